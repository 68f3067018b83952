package store

import (
	"context"

	"github.com/MKhiriev/go-chat-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// RecordRepository is the local entity cache.
type RecordRepository interface {
	Upsert(ctx context.Context, record models.Record) error
	Get(ctx context.Context, entityType models.EntityType, entityID string) (models.Record, error)
	ListByType(ctx context.Context, entityType models.EntityType) ([]models.Record, error)
	MarkDeleted(ctx context.Context, entityType models.EntityType, entityID string) error
	Delete(ctx context.Context, entityType models.EntityType, entityID string) error
}

// JournalRepository is the durable queue of local changes awaiting upload.
// Entries leave the journal only after a successful upload or an explicit
// conflict hand-off.
type JournalRepository interface {
	Append(ctx context.Context, change models.LocalChange) error
	Get(ctx context.Context, clientID string) (models.LocalChange, error)
	ListOrdered(ctx context.Context, limit int) ([]models.LocalChange, error)
	Delete(ctx context.Context, clientIDs ...string) error
	Count(ctx context.Context) (int64, error)
}

// ConflictRepository stores conflicts awaiting manual resolution.
type ConflictRepository interface {
	Save(ctx context.Context, conflict models.Conflict) error
	Get(ctx context.Context, clientID string) (models.Conflict, error)
	ListAll(ctx context.Context) ([]models.Conflict, error)
	Delete(ctx context.Context, clientID string) error
	Count(ctx context.Context) (int64, error)
}

// SyncStateRepository is a small key/value table for sync bookkeeping
// (download cursor, last completed sync).
type SyncStateRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Keys stored in sync_state.
const (
	// StateKeyCursor is the durable download cursor.
	StateKeyCursor = "sync.cursor"
	// StateKeyLastSyncAt is the RFC3339 time of the last completed sync pass.
	StateKeyLastSyncAt = "sync.last-sync-at"
)
