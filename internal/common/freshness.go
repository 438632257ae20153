// Package common provides shared utilities for Playground
package common

import "time"

// Freshness TTLs for derived data
const (
	FreshnessPrice        = 5 * time.Minute
	FreshnessHealthReport = 5 * time.Minute
)

// IsFreshAt reports whether updated is within ttl of now. A zero timestamp is never fresh.
func IsFreshAt(updated, now time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
