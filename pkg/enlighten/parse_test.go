package enlighten

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePerformance(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Valid", func(t *testing.T) {
		s, err := ParsePerformance(samplePerformance, now)
		require.NoError(t, err)
		assert.Equal(t, 2500.0, s.CurrentWatts)
		assert.InDelta(t, 12300.0, s.TodayWattHours, 1e-9)
		assert.InDelta(t, 85100.0, s.WeekWattHours, 1e-9)
		assert.InDelta(t, 420000.0, s.MonthWattHours, 1e-9)
		assert.InDelta(t, 31700000.0, s.LifetimeWattHours, 1e-6)
		assert.Equal(t, now, s.FetchedAt)
	})

	t.Run("ExtraDatasetsIgnored", func(t *testing.T) {
		body := `{"datasets": [
			{"primary_stat": {"units": "W", "value": 1}},
			{"primary_stat": {"units": "Wh", "value": 2}},
			{"primary_stat": {"units": "Wh", "value": 3}},
			{"primary_stat": {"units": "Wh", "value": 4}},
			{"primary_stat": {"units": "Wh", "value": 5}},
			{"primary_stat": {"units": "bogus", "value": 6}}
		]}`
		s, err := ParsePerformance(body, now)
		require.NoError(t, err)
		assert.Equal(t, 1.0, s.CurrentWatts)
		assert.Equal(t, 5.0, s.LifetimeWattHours)
	})

	errorCases := map[string]string{
		"InvalidJSON":     `{"datasets": [`,
		"NotAnObject":     `[1, 2, 3]`,
		"Empty":           ``,
		"MissingDatasets": `{"foo": []}`,
		"TooFewDatasets": `{"datasets": [
			{"primary_stat": {"units": "kW", "value": 2.5}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}}
		]}`,
		"MissingPrimaryStat": `{"datasets": [
			{"primary_stat": {"units": "kW", "value": 2.5}},
			{"other": {}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}}
		]}`,
		"MissingUnits": `{"datasets": [
			{"primary_stat": {"value": 2.5}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}}
		]}`,
		"MissingValue": `{"datasets": [
			{"primary_stat": {"units": "kW"}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}}
		]}`,
		"NonNumericValue": `{"datasets": [
			{"primary_stat": {"units": "kW", "value": "lots"}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}}
		]}`,
		"NullDataset": `{"datasets": [null, null, null, null, null]}`,
		"UnknownUnits": `{"datasets": [
			{"primary_stat": {"units": "GW", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}},
			{"primary_stat": {"units": "kWh", "value": 1}}
		]}`,
	}
	for name, body := range errorCases {
		t.Run(name, func(t *testing.T) {
			s, err := ParsePerformance(body, now)
			require.Error(t, err)
			assert.True(t, IsParseError(err), "expected a ParseError, got %T", err)
			assert.Zero(t, s, "no partial snapshot should be returned")
		})
	}
}

func TestToWatts(t *testing.T) {
	tests := []struct {
		units string
		value float64
		want  float64
	}{
		{"W", 12, 12},
		{"Wh", 12, 12},
		{"kW", 2.5, 2500},
		{"kWh", 1.5, 1500},
		{"MW", 2, 2000000},
		{"MWh", 0.5, 500000},
	}
	for _, tt := range tests {
		t.Run(tt.units, func(t *testing.T) {
			got, err := ToWatts(tt.units, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ToWatts("", 1)
	assert.Error(t, err)
	_, err = ToWatts("kwh", 1)
	assert.Error(t, err, "units are case sensitive")
}
