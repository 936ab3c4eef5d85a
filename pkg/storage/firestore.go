package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/log"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

// currentSnapshotVersion is stored alongside every snapshot document.
const currentSnapshotVersion = 1

// FirestoreProvider implements the Database interface using Google Cloud Firestore.
// Everything lives under monitors/{monitorID}.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
	monitorID string
}

var _ Database = (*FirestoreProvider)(nil)

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")
	monitorID := lflag.String("firestore-monitor-id", "default", "Document ID this monitor stores its data under")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database
		f.monitorID = *monitorID

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	if f.monitorID == "" {
		return fmt.Errorf("firestore-monitor-id cannot be empty")
	}
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) collection(name string) *firestore.CollectionRef {
	return f.client.Collection("monitors").Doc(f.monitorID).Collection(name)
}

// GetConfig retrieves the configuration from the "config/settings" document.
func (f *FirestoreProvider) GetConfig(ctx context.Context) (types.RefreshConfig, error) {
	doc, err := f.collection("config").Doc("settings").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.RefreshConfig{}.WithDefaults(), nil
		}
		return types.RefreshConfig{}, fmt.Errorf("failed to fetch config doc: %w", err)
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "config doc missing json", slog.String("monitorID", f.monitorID))
		return types.RefreshConfig{}, fmt.Errorf("config document missing 'json' field: %w", err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "config doc json not string", slog.String("monitorID", f.monitorID))
		return types.RefreshConfig{}, fmt.Errorf("config 'json' field is not a string")
	}

	var cfg types.RefreshConfig
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal config json", slog.String("monitorID", f.monitorID), slog.Any("err", err))
		return types.RefreshConfig{}, fmt.Errorf("failed to unmarshal config json: %w", err)
	}
	return cfg.WithDefaults(), nil
}

// SetConfig saves the configuration to the "config/settings" document as a
// JSON string.
func (f *FirestoreProvider) SetConfig(ctx context.Context, cfg types.RefreshConfig) error {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = f.collection("config").Doc("settings").Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// GetLastRefresh reads the "config/refresh" document.
func (f *FirestoreProvider) GetLastRefresh(ctx context.Context) (time.Time, error) {
	doc, err := f.collection("config").Doc("refresh").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to fetch refresh doc: %w", err)
	}
	return decodeLastRefresh(doc.Data())
}

// decodeLastRefresh reads the epoch millisecond field of a refresh document.
// An existing document without a readable field is an error.
func decodeLastRefresh(data map[string]interface{}) (time.Time, error) {
	val, ok := data[PrefLastRefresh]
	if !ok {
		return time.Time{}, fmt.Errorf("refresh document missing '%s' field", PrefLastRefresh)
	}
	millis, ok := val.(int64)
	if !ok {
		return time.Time{}, fmt.Errorf("refresh '%s' field is not an integer", PrefLastRefresh)
	}
	if millis == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(millis), nil
}

// SetLastRefresh stores t as epoch milliseconds; the zero time is stored as 0.
func (f *FirestoreProvider) SetLastRefresh(ctx context.Context, t time.Time) error {
	var millis int64
	if !t.IsZero() {
		millis = t.UnixMilli()
	}
	_, err := f.collection("config").Doc("refresh").Set(ctx, map[string]interface{}{
		PrefLastRefresh: millis,
	})
	if err != nil {
		return fmt.Errorf("failed to save last refresh: %w", err)
	}
	return nil
}

// InsertSnapshot adds a snapshot to the "snapshots" collection.
// The document ID is the RFC3339 timestamp of FetchedAt.
func (f *FirestoreProvider) InsertSnapshot(ctx context.Context, s types.Snapshot) error {
	if s.FetchedAt.IsZero() {
		return fmt.Errorf("snapshot missing fetchedAt")
	}
	jsonBytes, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	docID := s.FetchedAt.UTC().Format(time.RFC3339)
	_, err = f.collection("snapshots").Doc(docID).Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": s.FetchedAt,
		"version":   currentSnapshotVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// GetSnapshotHistory retrieves snapshots within the specified time range.
func (f *FirestoreProvider) GetSnapshotHistory(ctx context.Context, start, end time.Time) ([]types.Snapshot, error) {
	iter := f.collection("snapshots").
		Where("timestamp", ">=", start).
		Where("timestamp", "<", end).
		OrderBy("timestamp", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var snapshots []types.Snapshot
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating snapshots: %w", err)
		}
		s, err := decodeSnapshotDoc(ctx, doc)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}

// GetLatestSnapshot retrieves the most recently fetched snapshot.
func (f *FirestoreProvider) GetLatestSnapshot(ctx context.Context) (*types.Snapshot, error) {
	iter := f.collection("snapshots").
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot doc: %w", err)
	}
	s, err := decodeSnapshotDoc(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeSnapshotDoc(ctx context.Context, doc *firestore.DocumentSnapshot) (types.Snapshot, error) {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "snapshot doc missing json", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return types.Snapshot{}, fmt.Errorf("snapshot doc %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "snapshot doc json not string", slog.String("docID", doc.Ref.ID))
		return types.Snapshot{}, fmt.Errorf("snapshot doc %s 'json' field is not string", doc.Ref.ID)
	}
	var s types.Snapshot
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal snapshot", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return types.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot (id=%s): %w", doc.Ref.ID, err)
	}
	return s, nil
}
