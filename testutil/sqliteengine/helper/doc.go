// Package helper provides testing utilities for the SQLite store engine.
//
// This package contains engine-coupled testing infrastructure: store factories
// on in-memory and file databases, plus filter builders and arrangement
// helpers for the notes fixture domain. Engine-agnostic spies live in
// testutil/helper.
package helper
