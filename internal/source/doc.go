// Package source holds the plumbing shared by both platform adapters: the
// error taxonomy surfaced to the orchestrator and the bounded-backoff retry
// helper.
//
// Adapters never silently swallow errors — every non-2xx response becomes a
// typed *APIError and every network failure a *TransportError, so the
// decision to degrade to a partial result belongs to the orchestrator, not
// the adapter.
package source
