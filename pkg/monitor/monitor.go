// Package monitor owns the most recent performance snapshot and decides when
// a new one may be fetched.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/enlighten"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/format"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/log"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/metrics"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/refresh"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/storage"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

var (
	// ErrNotConfigured is returned when no installation id has been set.
	ErrNotConfigured = errors.New("no installation id configured")
	// ErrThrottled is returned when the last successful fetch was too recent.
	ErrThrottled = errors.New("refresh throttled")
	// ErrRefreshInProgress is returned when another refresh is running. The
	// request is dropped, not queued.
	ErrRefreshInProgress = errors.New("refresh already in progress")
	// ErrUnknownInterval is returned by Configure for an interval outside
	// refresh.Intervals.
	ErrUnknownInterval = errors.New("unknown refresh interval")
)

// PerformanceSource fetches a fresh snapshot for an installation.
type PerformanceSource interface {
	GetPerformance(ctx context.Context, installationID string, now time.Time) (types.Snapshot, error)
}

// Monitor serialises refreshes so at most one fetch is in flight and swaps
// the snapshot atomically for readers.
type Monitor struct {
	source  PerformanceSource
	storage storage.Database
	now     func() time.Time
	tick    time.Duration

	inFlight sync.Mutex
	snapshot atomic.Pointer[types.Snapshot]
}

// New returns a Monitor with no snapshot.
func New(source PerformanceSource, db storage.Database) *Monitor {
	return &Monitor{
		source:  source,
		storage: db,
		now:     time.Now,
		tick:    time.Minute,
	}
}

// Snapshot returns the most recent snapshot or nil if none was fetched yet.
func (m *Monitor) Snapshot() *types.Snapshot {
	return m.snapshot.Load()
}

// Display renders the current snapshot.
func (m *Monitor) Display(loc *time.Location) types.Display {
	return format.Display(m.Snapshot(), loc)
}

// Config returns the stored configuration.
func (m *Monitor) Config(ctx context.Context) (types.RefreshConfig, error) {
	return m.storage.GetConfig(ctx)
}

// Restore loads the latest stored snapshot so a restarted process has
// something to show before its first fetch.
func (m *Monitor) Restore(ctx context.Context) error {
	s, err := m.storage.GetLatestSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	if s == nil {
		return nil
	}
	m.snapshot.CompareAndSwap(nil, s)
	log.Ctx(ctx).DebugContext(ctx, "restored snapshot", slog.Time("fetchedAt", s.FetchedAt))
	return nil
}

// Configure stores cfg. Changing the installation id clears the last
// refresh time so the next refresh is not throttled.
func (m *Monitor) Configure(ctx context.Context, cfg types.RefreshConfig) error {
	cfg = cfg.WithDefaults()
	if !refresh.ValidInterval(cfg.RefreshInterval) {
		return fmt.Errorf("%w: %q", ErrUnknownInterval, cfg.RefreshInterval)
	}

	old, err := m.storage.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	if old.InstallationID != cfg.InstallationID {
		if err := m.storage.SetLastRefresh(ctx, time.Time{}); err != nil {
			return fmt.Errorf("failed to reset last refresh: %w", err)
		}
	}
	if err := m.storage.SetConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	log.Ctx(ctx).InfoContext(
		ctx,
		"monitor configured",
		slog.String("installationID", cfg.InstallationID),
		slog.String("refreshInterval", cfg.RefreshInterval),
	)
	return nil
}

// Refresh fetches a new snapshot now, ignoring the configured interval but
// not the 5 minute floor. When throttled the current snapshot is returned
// along with ErrThrottled. On any other error the previous snapshot is kept.
func (m *Monitor) Refresh(ctx context.Context) (*types.Snapshot, error) {
	if !m.inFlight.TryLock() {
		metrics.IncRefreshSkipped(metrics.SkipInProgress)
		log.Ctx(ctx).DebugContext(ctx, "dropping refresh, one is already running")
		return nil, ErrRefreshInProgress
	}
	defer m.inFlight.Unlock()

	cfg, err := m.storage.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	if cfg.InstallationID == "" {
		metrics.IncRefreshSkipped(metrics.SkipNotConfigured)
		return nil, ErrNotConfigured
	}

	lastRefresh, err := m.storage.GetLastRefresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get last refresh: %w", err)
	}

	now := m.now()
	if refresh.WithinFloor(lastRefresh, now) {
		metrics.IncRefreshSkipped(metrics.SkipThrottled)
		log.Ctx(ctx).InfoContext(ctx, "throttled performance update", slog.Time("lastRefresh", lastRefresh))
		// may be nil if this process has not fetched or restored yet
		return m.snapshot.Load(), ErrThrottled
	}

	start := time.Now()
	s, err := m.source.GetPerformance(ctx, cfg.InstallationID, now)
	if err != nil {
		metrics.ObserveFetch(metrics.ResultError, time.Since(start))
		metrics.IncFetchError(errorKind(err))
		log.Ctx(ctx).ErrorContext(
			ctx,
			"failed to get performance data",
			slog.String("installationID", cfg.InstallationID),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to refresh installation %s: %w", cfg.InstallationID, err)
	}
	metrics.ObserveFetch(metrics.ResultSuccess, time.Since(start))

	m.snapshot.Store(&s)
	metrics.SetSnapshot(s.CurrentWatts, s.FetchedAt)
	log.Ctx(ctx).DebugContext(ctx, "got performance data", slog.String("snapshot", s.String()))

	// the snapshot is already live, persistence failures only get logged
	if err := m.storage.SetLastRefresh(ctx, s.FetchedAt); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to save last refresh", slog.Any("error", err))
	}
	if err := m.storage.InsertSnapshot(ctx, s); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to save snapshot", slog.Any("error", err))
	}
	return &s, nil
}

// Tick refreshes if the configured interval has elapsed since the last
// successful refresh. It returns nil when nothing was due.
func (m *Monitor) Tick(ctx context.Context) error {
	cfg, err := m.storage.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	lastRefresh, err := m.storage.GetLastRefresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to get last refresh: %w", err)
	}

	interval := refresh.ParseInterval(cfg.RefreshInterval)
	now := m.now()
	if !refresh.IsDue(lastRefresh, interval, now) {
		log.Ctx(ctx).DebugContext(
			ctx,
			"refresh not due",
			slog.Time("lastRefresh", lastRefresh),
			slog.Duration("interval", interval),
		)
		return nil
	}

	_, err = m.Refresh(ctx)
	return err
}

// Run calls Tick immediately and then on every tick until ctx is done.
// Tick errors are logged and do not stop the loop.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		switch err := m.Tick(ctx); {
		case err == nil, errors.Is(err, ErrThrottled), errors.Is(err, ErrRefreshInProgress):
		case errors.Is(err, ErrNotConfigured):
			log.Ctx(ctx).DebugContext(ctx, "skipping scheduled refresh, not configured")
		default:
			log.Ctx(ctx).WarnContext(ctx, "scheduled refresh failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func errorKind(err error) string {
	var cfgErr *enlighten.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		return "config"
	case enlighten.IsParseError(err):
		return "parse"
	case enlighten.IsAPIError(err):
		return "api"
	default:
		return "unknown"
	}
}
