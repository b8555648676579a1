// Package oteladapters connects the store observability ports to OpenTelemetry.
//
// The store package defines small dependency-free interfaces for logging,
// metrics, and tracing, and every engine accepts implementations of them
// through its options. The adapters here implement those ports on the
// OpenTelemetry APIs, so a store publishes into an existing OpenTelemetry
// setup without custom glue:
//
//	st, err := sqliteengine.Open(path, s,
//		sqliteengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("eventlite")),
//		sqliteengine.WithMetrics(oteladapters.NewMetricsCollector(meter)),
//		sqliteengine.WithTracing(oteladapters.NewTracingCollector(tracer)),
//	)
//
// The ports are shared between the engines, so one adapter instance can
// serve a SQLite store and a Postgres store at the same time.
package oteladapters
