// Package helper provides PostgreSQL store test helpers: event arrangement
// functions and filter builders for the notes fixture schema.
package helper
