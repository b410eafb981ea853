// Package healthcache persists the last known healthy node set in redis
// with a bounded TTL. It is an optional warm-start aid, never the source of
// truth for routing decisions.
package healthcache
