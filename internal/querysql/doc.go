// Package querysql compiles queryir graph-pattern queries to SQLite.
//
// Each pattern becomes one alias over the quads table; shared variables
// become equality conditions between aliases. Selected variables are
// ordered with COLLATE BINARY so results are deterministic across runs.
package querysql
