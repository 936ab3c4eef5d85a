package widget

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/format"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/monitor"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

var sampleDisplay = types.Display{
	HasData:  true,
	Current:  "2500.0 W",
	Today:    "12.3 kWh",
	Week:     "85.1 kWh",
	Month:    "420.0 kWh",
	Lifetime: "31.7 MWh",
	Updated:  "14:05:09",
}

func TestFaceNext(t *testing.T) {
	f := NewFace()
	assert.Equal(t, StatWeek, f.Stat())
	assert.Equal(t, StatMonth, f.Next())
	assert.Equal(t, StatLifetime, f.Next())
	assert.Equal(t, StatWeek, f.Next())
}

func TestFaceNextConcurrent(t *testing.T) {
	f := NewFace()
	var wg sync.WaitGroup
	for range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Next()
		}()
	}
	wg.Wait()
	assert.Equal(t, StatWeek, f.Stat())
}

func TestFaceView(t *testing.T) {
	f := NewFace()

	tests := []struct {
		label string
		value string
	}{
		{"Week", "85.1 kWh"},
		{"Month", "420.0 kWh"},
		{"Lifetime", "31.7 MWh"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, View{
				Watts:      "2500.0 W",
				Today:      "12.3 kWh",
				StatLabel:  tt.label,
				StatValue:  tt.value,
				LastUpdate: "14:05:09",
			}, f.View(sampleDisplay))
			f.Next()
		})
	}

	t.Run("NoData", func(t *testing.T) {
		assert.Equal(t, View{Watts: format.NoData}, f.View(format.Display(nil, nil)))
	})
}

func TestFaceRender(t *testing.T) {
	f := NewFace()
	out := f.Render(sampleDisplay)
	assert.Contains(t, out, "2500.0 W")
	assert.Contains(t, out, "12.3 kWh")
	assert.Contains(t, out, "85.1 kWh")
	assert.Contains(t, out, "14:05:09")

	out = f.Render(types.Display{Current: format.NoData})
	assert.Contains(t, out, format.NoData)
	assert.NotContains(t, out, "Today")
}

func TestHistory(t *testing.T) {
	assert.Contains(t, History(nil, 40, 5), NoHistory)

	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	var snapshots []types.Snapshot
	for i := range 10 {
		snapshots = append(snapshots, types.Snapshot{
			CurrentWatts: float64(i * 500),
			FetchedAt:    at.Add(time.Duration(i) * 30 * time.Minute),
		})
	}
	out := History(snapshots, 40, 5)
	assert.Contains(t, out, "Current power (kW)")
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), 5)
}

type fakeRefresher struct {
	mu        sync.Mutex
	refreshes int
	ticks     int
	err       error
	display   types.Display
}

func (f *fakeRefresher) Refresh(ctx context.Context) (*types.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return nil, f.err
}

func (f *fakeRefresher) Tick(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
	return f.err
}

func (f *fakeRefresher) Display(loc *time.Location) types.Display {
	return f.display
}

type fakeHistory struct {
	start, end time.Time
	snapshots  []types.Snapshot
}

func (f *fakeHistory) GetSnapshotHistory(ctx context.Context, start, end time.Time) ([]types.Snapshot, error) {
	f.start, f.end = start, end
	return f.snapshots, nil
}

// runCmd executes cmd and any batched commands, returning every message that
// is not a timer.
func runCmd(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			if c == nil {
				continue
			}
			msgs = append(msgs, runImmediate(c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

// runImmediate runs c unless it is a tea.Tick, which would block for the
// interval.
func runImmediate(c tea.Cmd) []tea.Msg {
	done := make(chan tea.Msg, 1)
	go func() { done <- c() }()
	select {
	case msg := <-done:
		return []tea.Msg{msg}
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func keyMsg(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func findMsg[T tea.Msg](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func newTestModel(r Refresher, h HistorySource) *Model {
	m := NewModel(context.Background(), r, h, NewFace(), time.UTC)
	m.SetTickInterval(time.Hour)
	m.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func TestModelInit(t *testing.T) {
	m := newTestModel(&fakeRefresher{}, nil)
	msgs := runCmd(t, m.Init())
	require.Len(t, msgs, 1)
	assert.IsType(t, TickMsg{}, msgs[0])
}

func TestModelTick(t *testing.T) {
	r := &fakeRefresher{}
	m := newTestModel(r, nil)

	_, cmd := m.Update(TickMsg{})
	assert.True(t, m.refreshing)
	msgs := runCmd(t, cmd)
	refreshed, ok := findMsg[RefreshedMsg](msgs)
	require.True(t, ok)
	assert.NoError(t, refreshed.Err)
	assert.Equal(t, 1, r.ticks)
	assert.Equal(t, 0, r.refreshes)

	// a tick while refreshing only reschedules
	_, cmd = m.Update(TickMsg{})
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, r.ticks)

	m.Update(refreshed)
	assert.False(t, m.refreshing)
}

func TestModelKeys(t *testing.T) {
	t.Run("Refresh", func(t *testing.T) {
		r := &fakeRefresher{err: monitor.ErrThrottled}
		m := newTestModel(r, nil)

		_, cmd := m.Update(keyMsg("r"))
		assert.True(t, m.refreshing)
		refreshed, ok := findMsg[RefreshedMsg](runCmd(t, cmd))
		require.True(t, ok)
		assert.Equal(t, 1, r.refreshes)

		// ignored while one is running
		_, cmd = m.Update(keyMsg("r"))
		assert.Nil(t, cmd)

		m.Update(refreshed)
		assert.False(t, m.refreshing)
		assert.Equal(t, "updated less than 5 minutes ago", m.status)
	})

	t.Run("Stat", func(t *testing.T) {
		m := newTestModel(&fakeRefresher{display: sampleDisplay}, nil)
		m.Update(keyMsg("s"))
		assert.Equal(t, StatMonth, m.face.Stat())
		assert.Contains(t, m.View(), "420.0 kWh")
	})

	t.Run("History", func(t *testing.T) {
		h := &fakeHistory{snapshots: []types.Snapshot{{CurrentWatts: 1000}, {CurrentWatts: 2000}}}
		m := newTestModel(&fakeRefresher{display: sampleDisplay}, h)

		_, cmd := m.Update(keyMsg("h"))
		assert.True(t, m.showHistory)
		msgs := runCmd(t, cmd)
		require.Len(t, msgs, 1)
		m.Update(msgs[0])
		assert.Len(t, m.snapshots, 2)
		assert.Equal(t, 24*time.Hour, h.end.Sub(h.start))
		assert.Contains(t, m.View(), "Current power (kW)")

		m.Update(keyMsg("h"))
		assert.False(t, m.showHistory)
	})

	t.Run("Quit", func(t *testing.T) {
		m := newTestModel(&fakeRefresher{}, nil)
		_, cmd := m.Update(keyMsg("q"))
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	})
}

func TestModelView(t *testing.T) {
	m := newTestModel(&fakeRefresher{display: types.Display{Current: format.NoData}}, nil)
	assert.Contains(t, m.View(), format.NoData)

	m.Update(RefreshedMsg{Err: errors.New("boom")})
	assert.Contains(t, m.View(), "boom")

	m.Update(RefreshedMsg{Err: monitor.ErrNotConfigured})
	assert.Contains(t, m.View(), "no installation id configured")
}
