package enlighten

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

// the datasets array is positional
const (
	datasetCurrentPower = iota
	datasetEnergyToday
	datasetEnergyWeek
	datasetEnergyMonth
	datasetEnergyLifetime
	datasetCount
)

type performanceResponse struct {
	Datasets []*dataset `json:"datasets"`
}

type dataset struct {
	PrimaryStat *primaryStat `json:"primary_stat"`
}

type primaryStat struct {
	Units *string         `json:"units"`
	Value json.RawMessage `json:"value"`
}

// ParsePerformance extracts the five performance figures from an Enlighten
// response body. Nothing is returned unless every figure could be read.
func ParsePerformance(body string, now time.Time) (types.Snapshot, error) {
	var res performanceResponse
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return types.Snapshot{}, &ParseError{Reason: "invalid json", Err: err}
	}
	if res.Datasets == nil {
		return types.Snapshot{}, &ParseError{Reason: "missing datasets"}
	}
	if len(res.Datasets) < datasetCount {
		return types.Snapshot{}, &ParseError{Reason: fmt.Sprintf("expected %d datasets, got %d", datasetCount, len(res.Datasets))}
	}

	var watts [datasetCount]float64
	for i := range watts {
		w, err := res.Datasets[i].watts()
		if err != nil {
			return types.Snapshot{}, &ParseError{Reason: fmt.Sprintf("dataset %d", i), Err: err}
		}
		watts[i] = w
	}

	return types.Snapshot{
		CurrentWatts:      watts[datasetCurrentPower],
		TodayWattHours:    watts[datasetEnergyToday],
		WeekWattHours:     watts[datasetEnergyWeek],
		MonthWattHours:    watts[datasetEnergyMonth],
		LifetimeWattHours: watts[datasetEnergyLifetime],
		FetchedAt:         now,
	}, nil
}

func (d *dataset) watts() (float64, error) {
	if d == nil || d.PrimaryStat == nil {
		return 0, fmt.Errorf("missing primary_stat")
	}
	if d.PrimaryStat.Units == nil {
		return 0, fmt.Errorf("missing primary_stat.units")
	}
	value, err := d.PrimaryStat.value()
	if err != nil {
		return 0, err
	}
	return ToWatts(*d.PrimaryStat.Units, value)
}

// value accepts both numbers and numeric strings.
func (p *primaryStat) value() (float64, error) {
	raw := bytes.TrimSpace(p.Value)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("missing primary_stat.value")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("primary_stat.value is not a number: %s", raw)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("primary_stat.value is not a number: %w", err)
	}
	return f, nil
}

// ToWatts normalises value in units to watts (or watt-hours). kW and MW are
// checked before the bare W prefix.
func ToWatts(units string, value float64) (float64, error) {
	switch {
	case strings.HasPrefix(units, "MW"):
		return value * 1000000, nil
	case strings.HasPrefix(units, "kW"):
		return value * 1000, nil
	case strings.HasPrefix(units, "W"):
		return value, nil
	default:
		return 0, fmt.Errorf("unrecognized units %q", units)
	}
}
