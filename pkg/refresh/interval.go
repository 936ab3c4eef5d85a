// Package refresh decides how often the Enlighten API may be polled.
package refresh

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/log"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

// millisPerSecond is the length of an interval "second". It is short of a real
// second so a widget woken on a fixed schedule finds its interval elapsed.
const millisPerSecond = 950

const (
	secondsPerMinute = 60
	minutesPerHour   = 60
)

// Intervals are the refresh intervals offered to users.
var Intervals = []string{
	"5 minutes",
	"15 minutes",
	types.DefaultRefreshInterval,
	"1 hours",
	"2 hours",
	"6 hours",
	"12 hours",
}

// ValidInterval reports whether s is one of Intervals.
func ValidInterval(s string) bool {
	for _, i := range Intervals {
		if i == s {
			return true
		}
	}
	return false
}

// ParseInterval converts "<n> minutes" or "<n> hours" into a duration. Any
// other input falls back to 30 minutes. Intervals longer than a Duration can
// hold are capped at the maximum Duration.
func ParseInterval(s string) time.Duration {
	ms := ParseIntervalMillis(s)
	if ms > math.MaxInt64/int64(time.Millisecond) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ms) * time.Millisecond
}

// ParseIntervalMillis is ParseInterval in integer milliseconds. n must fit in
// an int32, so the result never overflows an int64.
func ParseIntervalMillis(s string) int64 {
	if ms, ok := parseIntervalMillis(s); ok {
		return ms
	}
	log.Ctx(context.Background()).Debug("falling back to default refresh interval", slog.String("interval", s))
	ms, _ := parseIntervalMillis(types.DefaultRefreshInterval)
	return ms
}

func parseIntervalMillis(s string) (int64, bool) {
	parts := strings.Split(s, " ")
	if len(parts) != 2 {
		return 0, false
	}
	amt, err := strconv.ParseInt(parts[0], 10, 32)
	if err != nil || amt <= 0 {
		return 0, false
	}

	minute := int64(secondsPerMinute * millisPerSecond)
	switch parts[1] {
	case "minutes":
		return amt * minute, true
	case "hours":
		return amt * minute * minutesPerHour, true
	}
	return 0, false
}
