// Package unidiff splits raw unified-diff text into per-file records for
// platforms that do not provide pre-structured file boundaries.
//
// GitLab returns structured per-file changes directly and never needs this
// parser; Phabricator's raw-diff endpoint returns one opaque text blob.
package unidiff
