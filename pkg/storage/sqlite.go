package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/levenlabs/go-lflag"
	// registers the "sqlite" driver
	_ "modernc.org/sqlite"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

// SQLiteProvider stores preferences as key/value rows and snapshots in their
// own table of a local SQLite file.
type SQLiteProvider struct {
	db   *sql.DB
	path string
}

var _ Database = (*SQLiteProvider)(nil)

func configuredSQLite() *SQLiteProvider {
	path := lflag.String("sqlite-path", "enlightenmonitor.db", "Path of the SQLite database file")

	s := &SQLiteProvider{}
	lflag.Do(func() {
		s.path = *path
	})
	return s
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(ctx context.Context, path string) (*SQLiteProvider, error) {
	s := &SQLiteProvider{path: path}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks if the provider is properly configured.
func (s *SQLiteProvider) Validate() error {
	if s.path == "" {
		return errors.New("sqlite-path cannot be empty")
	}
	return nil
}

// Init opens the database and creates the schema.
func (s *SQLiteProvider) Init(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			fetched_at INTEGER PRIMARY KEY,
			current_watts REAL NOT NULL,
			today_watt_hours REAL NOT NULL,
			week_watt_hours REAL NOT NULL,
			month_watt_hours REAL NOT NULL,
			lifetime_watt_hours REAL NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	s.db = db
	return nil
}

// Close closes the database.
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteProvider) getPreference(ctx context.Context, key, def string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteProvider) savePreference(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteProvider) GetConfig(ctx context.Context) (types.RefreshConfig, error) {
	installID, err := s.getPreference(ctx, PrefInstallID, "")
	if err != nil {
		return types.RefreshConfig{}, err
	}
	rate, err := s.getPreference(ctx, PrefRefreshRate, types.DefaultRefreshInterval)
	if err != nil {
		return types.RefreshConfig{}, err
	}
	return types.RefreshConfig{InstallationID: installID, RefreshInterval: rate}.WithDefaults(), nil
}

func (s *SQLiteProvider) SetConfig(ctx context.Context, cfg types.RefreshConfig) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.savePreference(ctx, tx, PrefInstallID, cfg.InstallationID); err != nil {
		return err
	}
	if err := s.savePreference(ctx, tx, PrefRefreshRate, cfg.RefreshInterval); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteProvider) GetLastRefresh(ctx context.Context) (time.Time, error) {
	v, err := s.getPreference(ctx, PrefLastRefresh, "0")
	if err != nil {
		return time.Time{}, err
	}
	millis, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s preference %q: %w", PrefLastRefresh, v, err)
	}
	if millis == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(millis), nil
}

func (s *SQLiteProvider) SetLastRefresh(ctx context.Context, t time.Time) error {
	var millis int64
	if !t.IsZero() {
		millis = t.UnixMilli()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := s.savePreference(ctx, tx, PrefLastRefresh, strconv.FormatInt(millis, 10)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteProvider) InsertSnapshot(ctx context.Context, snap types.Snapshot) error {
	if snap.FetchedAt.IsZero() {
		return fmt.Errorf("snapshot missing fetchedAt")
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO snapshots
		(fetched_at, current_watts, today_watt_hours, week_watt_hours, month_watt_hours, lifetime_watt_hours)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.FetchedAt.UnixMilli(),
		snap.CurrentWatts,
		snap.TodayWattHours,
		snap.WeekWattHours,
		snap.MonthWattHours,
		snap.LifetimeWattHours,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

const snapshotColumns = `fetched_at, current_watts, today_watt_hours, week_watt_hours, month_watt_hours, lifetime_watt_hours`

func (s *SQLiteProvider) GetSnapshotHistory(ctx context.Context, start, end time.Time) ([]types.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots
		WHERE fetched_at >= ? AND fetched_at < ? ORDER BY fetched_at ASC`,
		start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []types.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}

func (s *SQLiteProvider) GetLatestSnapshot(ctx context.Context) (*types.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots ORDER BY fetched_at DESC LIMIT 1`)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (types.Snapshot, error) {
	var snap types.Snapshot
	var millis int64
	err := row.Scan(
		&millis,
		&snap.CurrentWatts,
		&snap.TodayWattHours,
		&snap.WeekWattHours,
		&snap.MonthWattHours,
		&snap.LifetimeWattHours,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Snapshot{}, err
		}
		return types.Snapshot{}, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	snap.FetchedAt = time.UnixMilli(millis)
	return snap, nil
}
