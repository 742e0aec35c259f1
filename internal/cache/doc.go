// Package cache persists per-source project listings between invocations,
// with TTL-based expiry. Enumerating every accessible project is the most
// expensive call in the tool; everything else is fetched fresh.
package cache
