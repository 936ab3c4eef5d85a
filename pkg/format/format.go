// Package format turns raw watt and watt-hour figures into display strings.
package format

import (
	"strconv"
	"time"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

// NoData is shown in place of the current power when nothing has been
// fetched yet.
const NoData = "No data"

// TimestampLayout is how the fetch time is rendered.
const TimestampLayout = "15:04:05"

const (
	kilo = 1000
	mega = 1000000

	// kilowatts are only used once a value is past this, so small systems
	// still read in whole watts
	kilowattThreshold = 9000
)

// Power formats value with one decimal place, scaled to W, kW or MW. minUnit
// forces at least that unit. Energy values get an "h" suffix.
func Power(value float64, energy bool, minUnit types.Unit) string {
	var scaled float64
	var suffix string
	switch {
	case value >= mega || minUnit == types.UnitMegawatt:
		scaled, suffix = value/mega, " MW"
	case value > kilowattThreshold || minUnit == types.UnitKilowatt:
		scaled, suffix = value/kilo, " kW"
	default:
		scaled, suffix = value, " W"
	}

	s := strconv.FormatFloat(scaled, 'f', 1, 64) + suffix
	if energy {
		s += "h"
	}
	return s
}

// Display renders a snapshot into the strings shown on a widget face. A nil
// snapshot produces the no-data state. loc may be nil for local time.
func Display(s *types.Snapshot, loc *time.Location) types.Display {
	if s == nil {
		return types.Display{Current: NoData}
	}
	if loc == nil {
		loc = time.Local
	}
	return types.Display{
		HasData:  true,
		Current:  Power(s.CurrentWatts, false, types.UnitWatt),
		Today:    Power(s.TodayWattHours, true, types.UnitKilowatt),
		Week:     Power(s.WeekWattHours, true, types.UnitKilowatt),
		Month:    Power(s.MonthWattHours, true, types.UnitKilowatt),
		Lifetime: Power(s.LifetimeWattHours, true, types.UnitKilowatt),
		Updated:  s.FetchedAt.In(loc).Format(TimestampLayout),
	}
}
