package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/log"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

// testDatabase runs the behaviour every provider has to share.
func testDatabase(t *testing.T, db Database) {
	ctx := context.Background()

	t.Run("DefaultConfig", func(t *testing.T) {
		cfg, err := db.GetConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, "", cfg.InstallationID)
		assert.Equal(t, types.DefaultRefreshInterval, cfg.RefreshInterval)
	})

	t.Run("Config", func(t *testing.T) {
		want := types.RefreshConfig{InstallationID: "12345", RefreshInterval: "2 hours"}
		require.NoError(t, db.SetConfig(ctx, want))
		got, err := db.GetConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("LastRefresh", func(t *testing.T) {
		last, err := db.GetLastRefresh(ctx)
		require.NoError(t, err)
		assert.True(t, last.IsZero())

		now := time.UnixMilli(1700000000123)
		require.NoError(t, db.SetLastRefresh(ctx, now))
		last, err = db.GetLastRefresh(ctx)
		require.NoError(t, err)
		assert.True(t, now.Equal(last), "got %s want %s", last, now)

		require.NoError(t, db.SetLastRefresh(ctx, time.Time{}))
		last, err = db.GetLastRefresh(ctx)
		require.NoError(t, err)
		assert.True(t, last.IsZero())
	})

	t.Run("Snapshots", func(t *testing.T) {
		latest, err := db.GetLatestSnapshot(ctx)
		require.NoError(t, err)
		assert.Nil(t, latest)

		base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			require.NoError(t, db.InsertSnapshot(ctx, types.Snapshot{
				CurrentWatts:      float64(1000 * (i + 1)),
				TodayWattHours:    float64(i),
				LifetimeWattHours: 4500000,
				FetchedAt:         base.Add(time.Duration(i) * 10 * time.Minute),
			}))
		}

		history, err := db.GetSnapshotHistory(ctx, base, base.Add(20*time.Minute))
		require.NoError(t, err)
		require.Len(t, history, 2, "end is exclusive")
		assert.Equal(t, 1000.0, history[0].CurrentWatts)
		assert.Equal(t, 2000.0, history[1].CurrentWatts)
		assert.True(t, base.Equal(history[0].FetchedAt))

		latest, err = db.GetLatestSnapshot(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 3000.0, latest.CurrentWatts)
		assert.Equal(t, 4500000.0, latest.LifetimeWattHours)
	})

	t.Run("SnapshotWithoutTime", func(t *testing.T) {
		if _, ok := db.(*Memory); ok {
			t.Skip("memory accepts any snapshot")
		}
		assert.Error(t, db.InsertSnapshot(ctx, types.Snapshot{CurrentWatts: 1}))
	})
}

func TestMemory(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	testDatabase(t, db)
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "monitor.db")

	db, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	testDatabase(t, db)
	require.NoError(t, db.Close())

	t.Run("Reopen", func(t *testing.T) {
		db, err := NewSQLite(ctx, path)
		require.NoError(t, err)
		defer db.Close()

		cfg, err := db.GetConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, "12345", cfg.InstallationID)

		latest, err := db.GetLatestSnapshot(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 3000.0, latest.CurrentWatts)
	})

	t.Run("Validate", func(t *testing.T) {
		_, err := NewSQLite(ctx, "")
		assert.ErrorContains(t, err, "sqlite-path cannot be empty")
	})
}
