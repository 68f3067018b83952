package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-chat-sync/internal/logger"
	"github.com/MKhiriev/go-chat-sync/models"
)

// recordRepository is the SQLite-backed implementation of
// [RecordRepository]. It maintains the "records" table holding the last
// known state of every synchronized entity.
//
// Every public method obtains a context-scoped logger via
// [logger.FromContext] so that all database interactions are traced with
// structured fields (entity_type, entity_id, etc.).
type recordRepository struct {
	*DB
	logger *logger.Logger
}

// NewRecordRepository constructs a [RecordRepository] backed by the provided
// database connection and logger.
func NewRecordRepository(db *DB, logger *logger.Logger) RecordRepository {
	return &recordRepository{
		DB:     db,
		logger: logger,
	}
}

// Upsert inserts the record or replaces the stored row when the
// (entity_type, entity_id) pair already exists.
func (r *recordRepository) Upsert(ctx context.Context, record models.Record) error {
	log := logger.FromContext(ctx)

	query, args, err := buildUpsertRecordQuery(ctx, record)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Upsert").
			Str("entity_type", string(record.EntityType)).
			Str("entity_id", record.EntityID).
			Msg("failed to build upsert query")
		return err
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "recordRepository.Upsert").
			Str("entity_type", string(record.EntityType)).
			Str("entity_id", record.EntityID).
			Msg("failed to execute upsert for record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// Get retrieves one record by (entity_type, entity_id), including logically
// deleted ones. Returns [ErrRecordNotFound] when the pair is unknown.
func (r *recordRepository) Get(ctx context.Context, entityType models.EntityType, entityID string) (models.Record, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildGetRecordQuery(ctx, entityType, entityID)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Get").
			Str("entity_type", string(entityType)).
			Str("entity_id", entityID).
			Msg("failed to build select query")
		return models.Record{}, err
	}

	var record models.Record
	row := r.DB.QueryRowContext(ctx, query, args...)
	scanErr := row.Scan(
		&record.EntityType,
		&record.EntityID,
		&record.Payload,
		&record.Version,
		&record.UpdatedAt,
		&record.Deleted,
	)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return models.Record{}, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, entityType, entityID)
	}
	if scanErr != nil {
		log.Err(scanErr).
			Str("func", "recordRepository.Get").
			Str("entity_type", string(entityType)).
			Str("entity_id", entityID).
			Msg("failed to scan record row")
		return models.Record{}, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
	}

	return record, nil
}

// ListByType retrieves every live record of one entity type, newest first.
// Logically deleted records are excluded.
func (r *recordRepository) ListByType(ctx context.Context, entityType models.EntityType) ([]models.Record, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListRecordsByTypeQuery(ctx, entityType)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.ListByType").
			Str("entity_type", string(entityType)).
			Msg("failed to build select query")
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.ListByType").
			Str("entity_type", string(entityType)).
			Msg("failed to execute query for listing records")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	records := make([]models.Record, 0, 50)

	for rows.Next() {
		var record models.Record

		scanErr := rows.Scan(
			&record.EntityType,
			&record.EntityID,
			&record.Payload,
			&record.Version,
			&record.UpdatedAt,
			&record.Deleted,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "recordRepository.ListByType").
				Str("entity_type", string(entityType)).
				Msg("failed to scan record row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		records = append(records, record)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "recordRepository.ListByType").
			Str("entity_type", string(entityType)).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return records, nil
}

// MarkDeleted flags the record as logically deleted, keeping the row for
// sync bookkeeping. Returns [ErrRecordNotFound] when nothing matched.
func (r *recordRepository) MarkDeleted(ctx context.Context, entityType models.EntityType, entityID string) error {
	log := logger.FromContext(ctx)

	query, args, err := buildMarkRecordDeletedQuery(ctx, entityType, entityID)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.MarkDeleted").
			Str("entity_type", string(entityType)).
			Str("entity_id", entityID).
			Msg("failed to build update query")
		return err
	}

	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.MarkDeleted").
			Str("entity_type", string(entityType)).
			Str("entity_id", entityID).
			Msg("failed to execute soft delete for record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.MarkDeleted").
			Str("entity_type", string(entityType)).
			Str("entity_id", entityID).
			Msg("failed to get rows affected after soft delete")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, entityType, entityID)
	}

	return nil
}

// Delete removes the record row entirely. Deleting an absent record is not
// an error.
func (r *recordRepository) Delete(ctx context.Context, entityType models.EntityType, entityID string) error {
	log := logger.FromContext(ctx)

	query, args, err := buildDeleteRecordQuery(ctx, entityType, entityID)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Delete").
			Str("entity_type", string(entityType)).
			Str("entity_id", entityID).
			Msg("failed to build delete query")
		return err
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "recordRepository.Delete").
			Str("entity_type", string(entityType)).
			Str("entity_id", entityID).
			Msg("failed to execute delete for record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
