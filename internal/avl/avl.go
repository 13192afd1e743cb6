// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package avl implements the self-balancing numeric index: equality,
// greater-than, less-than, and range lookups over a "number" property,
// keyed by value with a set of document ids per key.
package avl

import "sort"

type node struct {
	key         float64
	ids         map[int]bool
	left, right *node
	height      int
}

func newLeaf(key float64, id int) *node {
	return &node{key: key, ids: map[int]bool{id: true}, height: 1}
}

// Tree is an AVL tree keyed by numeric value.
type Tree struct {
	root *node
	size int
}

// New returns an empty numeric index.
func New() *Tree {
	return &Tree{}
}

// Size returns the number of distinct keys currently stored.
func (t *Tree) Size() int { return t.size }

// Insert adds id under key, rebalancing as needed.
func (t *Tree) Insert(key float64, id int) {
	inserted := false
	t.root = insert(t.root, key, id, &inserted)
	if inserted {
		t.size++
	}
}

func insert(n *node, key float64, id int, inserted *bool) *node {
	if n == nil {
		*inserted = true
		return newLeaf(key, id)
	}
	switch {
	case key < n.key:
		n.left = insert(n.left, key, id, inserted)
	case key > n.key:
		n.right = insert(n.right, key, id, inserted)
	default:
		n.ids[id] = true
		return n
	}
	return rebalance(n)
}

// Remove removes id from key's id set. If that empties the set, the key
// is removed from the tree and the tree is rebalanced.
func (t *Tree) Remove(key float64, id int) {
	removed := false
	t.root = remove(t.root, key, id, &removed)
	if removed {
		t.size--
	}
}

func remove(n *node, key float64, id int, removed *bool) *node {
	if n == nil {
		return nil
	}
	switch {
	case key < n.key:
		n.left = remove(n.left, key, id, removed)
	case key > n.key:
		n.right = remove(n.right, key, id, removed)
	default:
		delete(n.ids, id)
		if len(n.ids) > 0 {
			return n
		}
		*removed = true
		return removeNode(n)
	}
	return rebalance(n)
}

// removeNode detaches n (whose id set is now empty) from the tree,
// replacing it with its in-order successor when it has two children.
func removeNode(n *node) *node {
	if n.left == nil {
		return n.right
	}
	if n.right == nil {
		return n.left
	}
	succ := n.right
	for succ.left != nil {
		succ = succ.left
	}
	n.key = succ.key
	n.ids = succ.ids
	n.right = removeMin(n.right)
	return rebalance(n)
}

func removeMin(n *node) *node {
	if n.left == nil {
		return n.right
	}
	n.left = removeMin(n.left)
	return rebalance(n)
}

// Find returns the ids stored at exactly key, or nil.
func (t *Tree) Find(key float64) []int {
	n := t.root
	for n != nil {
		switch {
		case key < n.key:
			n = n.left
		case key > n.key:
			n = n.right
		default:
			return idsOf(n)
		}
	}
	return nil
}

// GreaterThan returns the ids of every key > threshold (or >= when
// inclusive is true), ascending by key.
func (t *Tree) GreaterThan(threshold float64, inclusive bool) []int {
	var out []int
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		if n.key > threshold || (inclusive && n.key == threshold) {
			walk(n.left)
			out = append(out, idsOf(n)...)
			walk(n.right)
			return
		}
		walk(n.right)
	}
	walk(t.root)
	return out
}

// LessThan returns the ids of every key < threshold (or <= when
// inclusive is true), ascending by key.
func (t *Tree) LessThan(threshold float64, inclusive bool) []int {
	var out []int
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		if n.key < threshold || (inclusive && n.key == threshold) {
			walk(n.left)
			out = append(out, idsOf(n)...)
			walk(n.right)
			return
		}
		walk(n.left)
	}
	walk(t.root)
	return out
}

// RangeSearch returns the ids of every key in [min, max], ascending.
func (t *Tree) RangeSearch(min, max float64) []int {
	var out []int
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		if n.key > min {
			walk(n.left)
		}
		if n.key >= min && n.key <= max {
			out = append(out, idsOf(n)...)
		}
		if n.key < max {
			walk(n.right)
		}
	}
	walk(t.root)
	return out
}

func idsOf(n *node) []int {
	ids := make([]int, 0, len(n.ids))
	for id := range n.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// KeyIDs pairs a stored numeric key with the ids holding it.
type KeyIDs struct {
	Key float64
	IDs []int
}

// All returns every (key, ids) pair in ascending key order. Used by the
// index aggregate's facet counting, which needs every distinct numeric
// value a property holds.
func (t *Tree) All() []KeyIDs {
	var out []KeyIDs
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		walk(n.left)
		out = append(out, KeyIDs{Key: n.key, IDs: idsOf(n)})
		walk(n.right)
	}
	walk(t.root)
	return out
}

// Restore rebuilds the tree from a previously captured All() listing,
// replacing any current contents.
func (t *Tree) Restore(entries []KeyIDs) {
	t.root = nil
	t.size = 0
	for _, e := range entries {
		for _, id := range e.IDs {
			t.Insert(e.Key, id)
		}
	}
}

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func balanceFactor(n *node) int {
	if n == nil {
		return 0
	}
	return height(n.left) - height(n.right)
}

func updateHeight(n *node) {
	l, r := height(n.left), height(n.right)
	if l > r {
		n.height = l + 1
	} else {
		n.height = r + 1
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	updateHeight(y)
	updateHeight(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	updateHeight(x)
	updateHeight(y)
	return y
}

func rebalance(n *node) *node {
	updateHeight(n)
	bf := balanceFactor(n)

	if bf > 1 {
		if balanceFactor(n.left) < 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	}
	if bf < -1 {
		if balanceFactor(n.right) > 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	return n
}
