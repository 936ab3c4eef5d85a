// Package widget renders performance data the way the home screen widget
// shows it: current power, today's energy and one cycling stat.
package widget

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/format"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

// Stat is the secondary figure shown on the face.
type Stat int

const (
	StatWeek Stat = iota
	StatMonth
	StatLifetime
	statCount
)

// String returns the label shown next to the stat value.
func (s Stat) String() string {
	switch s {
	case StatWeek:
		return "Week"
	case StatMonth:
		return "Month"
	case StatLifetime:
		return "Lifetime"
	default:
		return "Unknown"
	}
}

// View is the set of strings drawn on the face.
type View struct {
	Watts      string `json:"watts"`
	Today      string `json:"today"`
	StatLabel  string `json:"statLabel"`
	StatValue  string `json:"statValue"`
	LastUpdate string `json:"lastUpdate"`
}

// Face holds which stat is being shown. It is safe for concurrent use.
type Face struct {
	mu   sync.Mutex
	stat Stat
}

// NewFace returns a face showing the week stat.
func NewFace() *Face {
	return &Face{stat: StatWeek}
}

// Stat returns the stat currently shown.
func (f *Face) Stat() Stat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stat
}

// Next advances Week -> Month -> Lifetime -> Week and returns the new stat.
func (f *Face) Next() Stat {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stat = (f.stat + 1) % statCount
	return f.stat
}

// View picks the strings for d. Without data the watts line carries the
// no data label and everything else is blank.
func (f *Face) View(d types.Display) View {
	if !d.HasData {
		return View{Watts: format.NoData}
	}

	v := View{
		Watts:      d.Current,
		Today:      d.Today,
		LastUpdate: d.Updated,
	}
	stat := f.Stat()
	v.StatLabel = stat.String()
	switch stat {
	case StatWeek:
		v.StatValue = d.Week
	case StatMonth:
		v.StatValue = d.Month
	case StatLifetime:
		v.StatValue = d.Lifetime
	}
	return v
}

// Render draws the face for d as a bordered box.
func (f *Face) Render(d types.Display) string {
	v := f.View(d)
	if !d.HasData {
		return FaceStyle.Render(ErrorStyle.Render(v.Watts))
	}

	lines := []string{
		WattsStyle.Render(v.Watts),
		row("Today", v.Today),
		row(v.StatLabel, v.StatValue),
		MutedStyle.Render("Updated " + v.LastUpdate),
	}
	return FaceStyle.Render(strings.Join(lines, "\n"))
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), ValueStyle.Render(value))
}
