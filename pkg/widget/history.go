package widget

import (
	"github.com/guptarohit/asciigraph"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

// NoHistory is shown when there are no stored snapshots to plot.
const NoHistory = "No history"

// History plots the current power, in kW, of each snapshot in order.
func History(snapshots []types.Snapshot, width, height int) string {
	if len(snapshots) == 0 {
		return MutedStyle.Render(NoHistory)
	}

	// ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	data := make([]float64, len(snapshots))
	for i, s := range snapshots {
		data[i] = s.CurrentWatts / 1000
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(1),
		asciigraph.Caption("Current power (kW)"),
	)
}
