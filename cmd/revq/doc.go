// Revq is a CLI that aggregates open code reviews from GitLab and
// Phabricator into one normalized queue.
//
// It lists merge requests and differential revisions needing attention,
// shows full revision detail with per-file diffs and the ordered comment
// stream, and posts or deletes review comments, with deterministic exit
// codes suitable for scripting.
//
// Usage:
//
//	revq list                         # merged review queue across sources
//	revq list --source gitlab         # one source only
//	revq show D123                    # a Phabricator revision
//	revq show 42!7                    # merge request !7 in project 42
//	revq comment D123 "LGTM"          # post a general comment
//	revq projects                     # projects visible to your credentials
//
// See https://github.com/revq-dev/revq for full documentation.
package main
