package enlighten

import (
	"log/slog"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/log"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

// samplePerformance mirrors a real performance response trimmed to the
// fields that are read.
const samplePerformance = `{
	"datasets": [
		{"name": "power", "primary_stat": {"units": "kW", "value": 2.5}},
		{"name": "today", "primary_stat": {"units": "kWh", "value": 12.3}},
		{"name": "week", "primary_stat": {"units": "kWh", "value": "85.1"}},
		{"name": "month", "primary_stat": {"units": "MWh", "value": 0.42}},
		{"name": "lifetime", "primary_stat": {"units": "MWh", "value": 31.7}}
	]
}`
