// Package aggregate is the orchestration layer: it turns a scope (project
// IDs, or everything needing attention) into one merged, deduplicated
// revision list with bounded-concurrency fan-out and partial-failure
// tolerance.
//
// Failed per-project calls are collected into a sideband error list
// returned alongside the data, never thrown — a partial result is strictly
// more useful than none. Whole-call errors are reserved for cancellation
// and for requests that cannot mean anything, such as an unresolvable
// project table.
package aggregate
