package refresh

import "time"

// Floor is the minimum spacing between successful fetches no matter what
// interval was configured.
const Floor = 5 * time.Minute

// IsDue reports whether the configured interval has passed since lastRefresh.
func IsDue(lastRefresh time.Time, interval time.Duration, now time.Time) bool {
	return lastRefresh.Add(interval).Before(now)
}

// IsDueMillis is IsDue over epoch milliseconds.
func IsDueMillis(lastRefresh, interval, now int64) bool {
	return lastRefresh+interval < now
}

// WithinFloor reports whether now is still inside the hard Floor after
// lastRefresh.
func WithinFloor(lastRefresh, now time.Time) bool {
	return now.Before(lastRefresh.Add(Floor))
}
