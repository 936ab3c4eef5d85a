package types

import (
	"fmt"
	"time"
)

// Snapshot is one successfully fetched and parsed set of performance
// figures. All values are in watts or watt-hours. A Snapshot is never
// modified after it is built; newer data replaces it wholesale.
type Snapshot struct {
	CurrentWatts      float64   `json:"currentWatts"`
	TodayWattHours    float64   `json:"todayWattHours"`
	WeekWattHours     float64   `json:"weekWattHours"`
	MonthWattHours    float64   `json:"monthWattHours"`
	LifetimeWattHours float64   `json:"lifetimeWattHours"`
	FetchedAt         time.Time `json:"fetchedAt"`
}

// FetchedAtEpochMillis returns FetchedAt as milliseconds since the epoch.
func (s Snapshot) FetchedAtEpochMillis() int64 {
	return s.FetchedAt.UnixMilli()
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"C: %g, T: %g, W: %g, M: %g, L: %g",
		s.CurrentWatts,
		s.TodayWattHours,
		s.WeekWattHours,
		s.MonthWattHours,
		s.LifetimeWattHours,
	)
}
