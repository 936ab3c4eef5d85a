package storagemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/storage"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetConfig(ctx context.Context) (types.RefreshConfig, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(types.RefreshConfig), args.Error(1)
	}
	return types.RefreshConfig{}.WithDefaults(), nil
}

func (m *MockDatabase) SetConfig(ctx context.Context, cfg types.RefreshConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockDatabase) GetLastRefresh(ctx context.Context) (time.Time, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(time.Time), args.Error(1)
	}
	return time.Time{}, nil
}

func (m *MockDatabase) SetLastRefresh(ctx context.Context, t time.Time) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockDatabase) InsertSnapshot(ctx context.Context, s types.Snapshot) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockDatabase) GetSnapshotHistory(ctx context.Context, start, end time.Time) ([]types.Snapshot, error) {
	args := m.Called(ctx, start, end)
	if len(args) > 0 {
		return args.Get(0).([]types.Snapshot), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) GetLatestSnapshot(ctx context.Context) (*types.Snapshot, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(*types.Snapshot), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
