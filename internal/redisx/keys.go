package redisx

import "time"

const (
	// List-page cache entries: pages:records|... and pages:orders|...
	// (key body is the deterministic filter+pagination string).
	KeyPagePrefix = "pages:"

	// Cached MusicBrainz lookups: mbid:{mbid} -> release JSON
	KeyMBIDLookup = "mbid:%s"

	// Dedup for event consumers: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLMBIDLookup = 24 * time.Hour
	TTLDedup      = 48 * time.Hour
)
