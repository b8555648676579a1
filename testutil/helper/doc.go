// Package helper provides shared testing utilities for the event journal test suites.
//
// This package contains engine-agnostic testing infrastructure: spies for
// the observability ports (log handler, metrics collector, tracing collector,
// contextual logger), fixture builders for the notes test domain, and
// conversion helpers between domain events and storable events.
// Engine-specific helpers, such as store wrappers, live in the per-engine
// helper packages.
package helper
