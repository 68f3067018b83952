package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-chat-sync/internal/logger"
)

// syncStateRepository is the SQLite-backed implementation of
// [SyncStateRepository], a plain key/value table.
type syncStateRepository struct {
	*DB
	logger *logger.Logger
}

// NewSyncStateRepository constructs a [SyncStateRepository] backed by the
// provided database connection and logger.
func NewSyncStateRepository(db *DB, logger *logger.Logger) SyncStateRepository {
	return &syncStateRepository{
		DB:     db,
		logger: logger,
	}
}

// Get retrieves the value stored under key. Returns [ErrStateNotFound] when
// the key has never been set.
func (s *syncStateRepository) Get(ctx context.Context, key string) (string, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildGetStateQuery(ctx, key)
	if err != nil {
		log.Err(err).
			Str("func", "syncStateRepository.Get").
			Str("key", key).
			Msg("failed to build select query")
		return "", err
	}

	var value string
	scanErr := s.DB.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrStateNotFound, key)
	}
	if scanErr != nil {
		log.Err(scanErr).
			Str("func", "syncStateRepository.Get").
			Str("key", key).
			Msg("failed to scan sync state row")
		return "", fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
	}

	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *syncStateRepository) Set(ctx context.Context, key, value string) error {
	log := logger.FromContext(ctx)

	query, args, err := buildSetStateQuery(ctx, key, value)
	if err != nil {
		log.Err(err).
			Str("func", "syncStateRepository.Set").
			Str("key", key).
			Msg("failed to build upsert query")
		return err
	}

	if _, err = s.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "syncStateRepository.Set").
			Str("key", key).
			Msg("failed to execute upsert for sync state")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
