package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-chat-sync/internal/logger"
	"github.com/MKhiriev/go-chat-sync/models"
)

// conflictRepository is the SQLite-backed implementation of
// [ConflictRepository]. Conflicts routed to manual resolution are stored in
// the "conflicts" table so they survive restarts.
type conflictRepository struct {
	*DB
	logger *logger.Logger
}

// NewConflictRepository constructs a [ConflictRepository] backed by the
// provided database connection and logger.
func NewConflictRepository(db *DB, logger *logger.Logger) ConflictRepository {
	return &conflictRepository{
		DB:     db,
		logger: logger,
	}
}

// Save persists the conflict, replacing the remote side when the same
// client_id is reported again.
func (c *conflictRepository) Save(ctx context.Context, conflict models.Conflict) error {
	log := logger.FromContext(ctx)

	query, args, err := buildSaveConflictQuery(ctx, conflict)
	if err != nil {
		log.Err(err).
			Str("func", "conflictRepository.Save").
			Str("client_id", conflict.ClientID).
			Msg("failed to build upsert query")
		return err
	}

	if _, err = c.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "conflictRepository.Save").
			Str("client_id", conflict.ClientID).
			Str("entity_type", string(conflict.EntityType)).
			Msg("failed to execute upsert for conflict")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// Get retrieves one stored conflict by the client id of the colliding
// change. Returns [ErrConflictNotFound] when absent.
func (c *conflictRepository) Get(ctx context.Context, clientID string) (models.Conflict, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildGetConflictQuery(ctx, clientID)
	if err != nil {
		log.Err(err).
			Str("func", "conflictRepository.Get").
			Str("client_id", clientID).
			Msg("failed to build select query")
		return models.Conflict{}, err
	}

	var conflict models.Conflict
	row := c.DB.QueryRowContext(ctx, query, args...)
	scanErr := row.Scan(
		&conflict.ClientID,
		&conflict.EntityType,
		&conflict.EntityID,
		&conflict.LocalPayload,
		&conflict.RemotePayload,
		&conflict.RemoteVersion,
		&conflict.DetectedAt,
	)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return models.Conflict{}, fmt.Errorf("%w: %s", ErrConflictNotFound, clientID)
	}
	if scanErr != nil {
		log.Err(scanErr).
			Str("func", "conflictRepository.Get").
			Str("client_id", clientID).
			Msg("failed to scan conflict row")
		return models.Conflict{}, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
	}

	return conflict, nil
}

// ListAll retrieves every stored conflict, oldest first.
func (c *conflictRepository) ListAll(ctx context.Context) ([]models.Conflict, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListConflictsQuery(ctx)
	if err != nil {
		log.Err(err).
			Str("func", "conflictRepository.ListAll").
			Msg("failed to build select query")
		return nil, err
	}

	rows, err := c.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "conflictRepository.ListAll").
			Msg("failed to execute query for listing conflicts")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var conflicts []models.Conflict

	for rows.Next() {
		var conflict models.Conflict

		scanErr := rows.Scan(
			&conflict.ClientID,
			&conflict.EntityType,
			&conflict.EntityID,
			&conflict.LocalPayload,
			&conflict.RemotePayload,
			&conflict.RemoteVersion,
			&conflict.DetectedAt,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "conflictRepository.ListAll").
				Msg("failed to scan conflict row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		conflicts = append(conflicts, conflict)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "conflictRepository.ListAll").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return conflicts, nil
}

// Delete removes a resolved conflict. Returns [ErrConflictNotFound] when the
// client id is unknown.
func (c *conflictRepository) Delete(ctx context.Context, clientID string) error {
	log := logger.FromContext(ctx)

	query, args, err := buildDeleteConflictQuery(ctx, clientID)
	if err != nil {
		log.Err(err).
			Str("func", "conflictRepository.Delete").
			Str("client_id", clientID).
			Msg("failed to build delete query")
		return err
	}

	result, err := c.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "conflictRepository.Delete").
			Str("client_id", clientID).
			Msg("failed to execute delete for conflict")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Err(err).
			Str("func", "conflictRepository.Delete").
			Str("client_id", clientID).
			Msg("failed to get rows affected after delete")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrConflictNotFound, clientID)
	}

	return nil
}

// Count reports the number of conflicts awaiting manual resolution.
func (c *conflictRepository) Count(ctx context.Context) (int64, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildCountConflictsQuery(ctx)
	if err != nil {
		log.Err(err).
			Str("func", "conflictRepository.Count").
			Msg("failed to build count query")
		return 0, err
	}

	var count int64
	if err = c.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		log.Err(err).
			Str("func", "conflictRepository.Count").
			Msg("failed to scan conflict count")
		return 0, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return count, nil
}
