// Package phabricator is the source adapter for a Phabricator-style Conduit
// API: form-encoded POST calls carrying an API token, with results wrapped
// in the uniform Conduit envelope.
//
// Unlike the merge-request adapter, revision search is global — one
// constrained call returns every revision needing attention, with no
// per-project fan-out. Raw diffs come back as one opaque text blob and need
// the unidiff parser; the activity stream comes back as transactions and
// needs the comment normalizer.
package phabricator
