// Package gitlab is the source adapter for a GitLab-style merge-request
// API: bearer-token REST calls returning platform-native JSON records.
//
// Project listing pages at a fixed size until the first empty page (the API
// does not reliably report total counts) and filters to developer access and
// above client-side. All calls are paced by a shared rate limiter and retried
// per the adapter retry policy; errors are always propagated as typed values,
// never swallowed into empty results.
package gitlab
