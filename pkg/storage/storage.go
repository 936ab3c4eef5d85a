package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

// Preference keys shared by the key/value backed providers.
const (
	PrefInstallID   = "installId"
	PrefRefreshRate = "refreshRateMs"
	PrefLastRefresh = "lastRefresh"
)

// Database persists the monitor configuration, the last successful refresh
// time and the history of fetched snapshots.
type Database interface {
	// Configuration
	// GetConfig returns the stored configuration with defaults applied.
	GetConfig(ctx context.Context) (types.RefreshConfig, error)
	SetConfig(ctx context.Context, cfg types.RefreshConfig) error

	// Throttle state
	// GetLastRefresh returns the zero time if no refresh has succeeded yet.
	GetLastRefresh(ctx context.Context) (time.Time, error)
	SetLastRefresh(ctx context.Context, t time.Time) error

	// History
	InsertSnapshot(ctx context.Context, s types.Snapshot) error
	// GetSnapshotHistory returns snapshots fetched in [start, end) oldest first.
	GetSnapshotHistory(ctx context.Context, start, end time.Time) ([]types.Snapshot, error)
	// GetLatestSnapshot returns nil if there are no snapshots.
	GetLatestSnapshot(ctx context.Context) (*types.Snapshot, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "sqlite", "Storage provider to use (available: sqlite, firestore, memory)")

	var p struct{ Database }

	fs := configuredFirestore()
	sq := configuredSQLite()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "sqlite":
			if err := sq.Validate(); err != nil {
				panic(fmt.Sprintf("sqlite validation failed: %v", err))
			}
			p.Database = sq
			if err := sq.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("sqlite init failed: %v", err))
			}
		case "memory":
			p.Database = NewMemory()
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
