package common

import "time"

// StaleAfterIntervals is how many missed refresh intervals make the last
// published portfolio snapshot stale.
const StaleAfterIntervals = 3

// IsFresh returns true if the given timestamp is within the TTL at now
func IsFresh(updated, now time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
