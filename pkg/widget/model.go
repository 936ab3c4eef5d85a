package widget

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/monitor"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

const (
	// DefaultTickInterval is how often the model asks the monitor whether a
	// refresh is due.
	DefaultTickInterval = time.Minute

	// HistoryWindow is how far back the history chart reaches.
	HistoryWindow = 24 * time.Hour
)

// Refresher is the part of monitor.Monitor the model drives.
type Refresher interface {
	Refresh(ctx context.Context) (*types.Snapshot, error)
	Tick(ctx context.Context) error
	Display(loc *time.Location) types.Display
}

// HistorySource returns stored snapshots in [start, end).
type HistorySource interface {
	GetSnapshotHistory(ctx context.Context, start, end time.Time) ([]types.Snapshot, error)
}

// TickMsg is sent periodically to run a scheduled refresh.
type TickMsg struct {
	Time time.Time
}

// RefreshedMsg carries the result of a refresh.
type RefreshedMsg struct {
	Err error
}

// HistoryMsg carries stored snapshots for the chart.
type HistoryMsg struct {
	Snapshots []types.Snapshot
	Err       error
}

// KeyMap defines the keybindings for the widget.
type KeyMap struct {
	Refresh key.Binding
	Stat    key.Binding
	History key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Refresh: key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),
		Stat:    key.NewBinding(key.WithKeys("s", "tab"), key.WithHelp("s", "next stat")),
		History: key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Stat, k.History, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// Model is the Bubble Tea model for the terminal widget.
type Model struct {
	ctx       context.Context
	refresher Refresher
	history   HistorySource
	face      *Face
	loc       *time.Location

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	tickInterval time.Duration
	now          func() time.Time

	width       int
	refreshing  bool
	status      string
	showHistory bool
	snapshots   []types.Snapshot
}

// NewModel returns a model that refreshes through r and reads the chart
// from h. h may be nil to disable the chart.
func NewModel(ctx context.Context, r Refresher, h HistorySource, face *Face, loc *time.Location) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = WattsStyle
	return &Model{
		ctx:          ctx,
		refresher:    r,
		history:      h,
		face:         face,
		loc:          loc,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		spinner:      s,
		tickInterval: DefaultTickInterval,
		now:          time.Now,
		width:        40,
	}
}

// SetTickInterval changes how often scheduled refreshes are checked.
func (m *Model) SetTickInterval(d time.Duration) {
	if d > 0 {
		m.tickInterval = d
	}
}

// Init runs a scheduled refresh right away.
func (m *Model) Init() tea.Cmd {
	return func() tea.Msg {
		return TickMsg{Time: m.now()}
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		next := tickCmd(m.tickInterval)
		if m.refreshing {
			return m, next
		}
		m.refreshing = true
		return m, tea.Batch(m.spinner.Tick, scheduledRefreshCmd(m.ctx, m.refresher), next)

	case RefreshedMsg:
		m.refreshing = false
		m.status = statusFor(msg.Err)
		if m.showHistory {
			return m, m.loadHistory()
		}
		return m, nil

	case HistoryMsg:
		if msg.Err != nil {
			m.status = "history: " + msg.Err.Error()
			return m, nil
		}
		m.snapshots = msg.Snapshots
		return m, nil

	case spinner.TickMsg:
		if !m.refreshing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Refresh):
		if m.refreshing {
			return m, nil
		}
		m.refreshing = true
		return m, tea.Batch(m.spinner.Tick, refreshCmd(m.ctx, m.refresher))
	case key.Matches(msg, m.keys.Stat):
		m.face.Next()
		return m, nil
	case key.Matches(msg, m.keys.History):
		m.showHistory = !m.showHistory
		if m.showHistory {
			return m, m.loadHistory()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) loadHistory() tea.Cmd {
	if m.history == nil {
		return nil
	}
	end := m.now()
	return historyCmd(m.ctx, m.history, end.Add(-HistoryWindow), end)
}

// View renders the face, status and help.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.face.Render(m.refresher.Display(m.loc)))
	b.WriteString("\n")
	if m.refreshing {
		b.WriteString(m.spinner.View() + " refreshing")
	} else if m.status != "" {
		b.WriteString(MutedStyle.Render(m.status))
	}
	if m.showHistory {
		b.WriteString("\n")
		b.WriteString(History(m.snapshots, m.width-10, 6))
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func statusFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, monitor.ErrThrottled):
		return "updated less than 5 minutes ago"
	case errors.Is(err, monitor.ErrNotConfigured):
		return "no installation id configured"
	case errors.Is(err, monitor.ErrRefreshInProgress):
		return ""
	default:
		return err.Error()
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

func refreshCmd(ctx context.Context, r Refresher) tea.Cmd {
	return func() tea.Msg {
		_, err := r.Refresh(ctx)
		return RefreshedMsg{Err: err}
	}
}

func scheduledRefreshCmd(ctx context.Context, r Refresher) tea.Cmd {
	return func() tea.Msg {
		return RefreshedMsg{Err: r.Tick(ctx)}
	}
}

func historyCmd(ctx context.Context, h HistorySource, start, end time.Time) tea.Cmd {
	return func() tea.Msg {
		snapshots, err := h.GetSnapshotHistory(ctx, start, end)
		return HistoryMsg{Snapshots: snapshots, Err: err}
	}
}
