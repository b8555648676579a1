// Package sqlitestate provides the SQLite-modelled state factory for an
// eventlite schema: tables and materializers are declared with the schema
// package's definition types and compiled into a State by MakeState.
//
// The State's registries (table index, DDL plans, materializer index) exist
// only on factory-made values. A State assembled by hand compiles and is
// accepted by schema.Build, but reports Compiled() == false and registers
// nothing; schema.Build surfaces that as a warning. Always construct State
// values with MakeState.
//
// The state model is SQLite-flavoured regardless of the engine that later
// materializes it; engines render the dialect-neutral DDL plans into their
// own SQL.
package sqlitestate
