// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package telemetry carries the OpenTelemetry tracing span conventions
// and Prometheus metrics used across the engine's public operations:
// one span per Insert/Remove/Update/UpdateField/Search/Save/Load call
// (Create starts none), and counters/histograms
// recording call volume, error rate, and latency.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("oramago")
	meter  = otel.Meter("oramago")
)

// searchHits counts hits returned across Search calls. Recorded through
// the otel metric API alongside the Prometheus collectors so hosts that
// run an otel metrics pipeline see the same signal without scraping.
var searchHits, _ = meter.Int64Counter("oramago.search.hits",
	metric.WithDescription("Total hits returned by search calls"))

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oramago",
		Name:      "operations_total",
		Help:      "Total database operations by name and outcome",
	}, []string{"operation", "outcome"})

	operationLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "oramago",
		Name:      "operation_latency_seconds",
		Help:      "Database operation latency by name",
		Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"operation"})

	documentsIndexed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "oramago",
		Name:      "documents_indexed",
		Help:      "Number of documents currently indexed",
	})
)

// StartOperationSpan starts a span for a named public operation, with the
// database id attached as an attribute.
func StartOperationSpan(ctx context.Context, operation, dbID string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "oramago."+operation)
	span.SetAttributes(attribute.String("oramago.database_id", dbID))
	return ctx, span
}

// RecordOperationResult finalizes span and metrics for one operation call
// given its outcome (err may be nil) and elapsed duration.
func RecordOperationResult(span trace.Span, operation string, started time.Time, err error) {
	elapsed := time.Since(started)
	operationLatencySeconds.WithLabelValues(operation).Observe(elapsed.Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
	span.End()
}

// RecordSearchHits adds one search call's hit count to the otel counter.
func RecordSearchHits(ctx context.Context, n int) {
	searchHits.Add(ctx, int64(n))
}

// SetDocumentsIndexed updates the documents_indexed gauge to n.
func SetDocumentsIndexed(n int) {
	documentsIndexed.Set(float64(n))
}
