package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-chat-sync/internal/config"
	"github.com/MKhiriev/go-chat-sync/internal/logger"
)

// Storages groups the client-side repositories into a single value that can
// be passed around the service layer.
type Storages struct {
	// Records is the local entity cache updated by both local edits and
	// downloaded server changes.
	Records RecordRepository

	// Journal is the durable outbox of local changes awaiting upload.
	Journal JournalRepository

	// Conflicts holds conflicts parked for manual resolution.
	Conflicts ConflictRepository

	// SyncState is the key/value table for sync bookkeeping.
	SyncState SyncStateRepository

	db *DB
}

// Close releases the underlying database connection.
func (s *Storages) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewStorages initialises the client storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens an SQLite connection to the file path specified in cfg.DB.DSN,
//     creating the database file if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs and returns a [Storages] value wired to fresh repositories.
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewStorages(cfg config.ClientStorage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(context.Background(), cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Storages{
		Records:   NewRecordRepository(db, logger),
		Journal:   NewJournalRepository(db, logger),
		Conflicts: NewConflictRepository(db, logger),
		SyncState: NewSyncStateRepository(db, logger),
		db:        db,
	}, nil
}
