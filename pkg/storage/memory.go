package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

// Memory keeps everything in process. It is used for tests and for running
// without any persistence.
type Memory struct {
	mu          sync.Mutex
	cfg         types.RefreshConfig
	lastRefresh time.Time
	snapshots   []types.Snapshot
}

var _ Database = (*Memory)(nil)

// NewMemory returns an empty in-memory database.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) GetConfig(ctx context.Context) (types.RefreshConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.WithDefaults(), nil
}

func (m *Memory) SetConfig(ctx context.Context, cfg types.RefreshConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	return nil
}

func (m *Memory) GetLastRefresh(ctx context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRefresh, nil
}

func (m *Memory) SetLastRefresh(ctx context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRefresh = t
	return nil
}

func (m *Memory) InsertSnapshot(ctx context.Context, s types.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, s)
	sort.SliceStable(m.snapshots, func(i, j int) bool {
		return m.snapshots[i].FetchedAt.Before(m.snapshots[j].FetchedAt)
	})
	return nil
}

func (m *Memory) GetSnapshotHistory(ctx context.Context, start, end time.Time) ([]types.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []types.Snapshot
	for _, s := range m.snapshots {
		if !s.FetchedAt.Before(start) && s.FetchedAt.Before(end) {
			res = append(res, s)
		}
	}
	return res, nil
}

func (m *Memory) GetLatestSnapshot(ctx context.Context) (*types.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snapshots) == 0 {
		return nil, nil
	}
	s := m.snapshots[len(m.snapshots)-1]
	return &s, nil
}

func (m *Memory) Close() error {
	return nil
}
