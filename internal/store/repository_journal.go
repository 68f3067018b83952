package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-chat-sync/internal/logger"
	"github.com/MKhiriev/go-chat-sync/models"
)

// journalRepository is the SQLite-backed implementation of
// [JournalRepository]. The "change_journal" table is the durable outbox:
// a change lands here before the recording call returns and leaves only
// after the server acknowledged it.
type journalRepository struct {
	*DB
	logger *logger.Logger
}

// NewJournalRepository constructs a [JournalRepository] backed by the
// provided database connection and logger.
func NewJournalRepository(db *DB, logger *logger.Logger) JournalRepository {
	return &journalRepository{
		DB:     db,
		logger: logger,
	}
}

// Append persists one local change at the tail of the journal.
func (j *journalRepository) Append(ctx context.Context, change models.LocalChange) error {
	log := logger.FromContext(ctx)

	query, args, err := buildAppendJournalQuery(ctx, change)
	if err != nil {
		log.Err(err).
			Str("func", "journalRepository.Append").
			Str("client_id", change.ClientID).
			Msg("failed to build insert query")
		return err
	}

	if _, err = j.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "journalRepository.Append").
			Str("client_id", change.ClientID).
			Str("entity_type", string(change.EntityType)).
			Msg("failed to execute insert for journal entry")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// Get retrieves one queued change by its client id. Returns
// [ErrJournalEntryNotFound] when the change is no longer queued.
func (j *journalRepository) Get(ctx context.Context, clientID string) (models.LocalChange, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildGetJournalQuery(ctx, clientID)
	if err != nil {
		log.Err(err).
			Str("func", "journalRepository.Get").
			Str("client_id", clientID).
			Msg("failed to build select query")
		return models.LocalChange{}, err
	}

	var change models.LocalChange
	row := j.DB.QueryRowContext(ctx, query, args...)
	scanErr := row.Scan(
		&change.ClientID,
		&change.EntityType,
		&change.EntityID,
		&change.Action,
		&change.Payload,
		&change.CreatedAt,
	)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return models.LocalChange{}, fmt.Errorf("%w: %s", ErrJournalEntryNotFound, clientID)
	}
	if scanErr != nil {
		log.Err(scanErr).
			Str("func", "journalRepository.Get").
			Str("client_id", clientID).
			Msg("failed to scan journal row")
		return models.LocalChange{}, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
	}

	return change, nil
}

// ListOrdered retrieves queued changes oldest first. A non-positive limit
// returns the whole journal.
func (j *journalRepository) ListOrdered(ctx context.Context, limit int) ([]models.LocalChange, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListJournalQuery(ctx, limit)
	if err != nil {
		log.Err(err).
			Str("func", "journalRepository.ListOrdered").
			Int("limit", limit).
			Msg("failed to build select query")
		return nil, err
	}

	rows, err := j.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "journalRepository.ListOrdered").
			Int("limit", limit).
			Msg("failed to execute query for listing journal entries")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	changes := make([]models.LocalChange, 0, 50)

	for rows.Next() {
		var change models.LocalChange

		scanErr := rows.Scan(
			&change.ClientID,
			&change.EntityType,
			&change.EntityID,
			&change.Action,
			&change.Payload,
			&change.CreatedAt,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "journalRepository.ListOrdered").
				Msg("failed to scan journal row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		changes = append(changes, change)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "journalRepository.ListOrdered").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return changes, nil
}

// Delete removes the given changes from the journal after the server
// acknowledged them. Unknown ids are ignored.
func (j *journalRepository) Delete(ctx context.Context, clientIDs ...string) error {
	if len(clientIDs) == 0 {
		return nil
	}

	log := logger.FromContext(ctx)

	query, args, err := buildDeleteJournalQuery(ctx, clientIDs)
	if err != nil {
		log.Err(err).
			Str("func", "journalRepository.Delete").
			Int("ids_count", len(clientIDs)).
			Msg("failed to build delete query")
		return err
	}

	if _, err = j.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "journalRepository.Delete").
			Int("ids_count", len(clientIDs)).
			Msg("failed to execute delete for journal entries")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// Count reports the number of changes awaiting upload.
func (j *journalRepository) Count(ctx context.Context) (int64, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildCountJournalQuery(ctx)
	if err != nil {
		log.Err(err).
			Str("func", "journalRepository.Count").
			Msg("failed to build count query")
		return 0, err
	}

	var count int64
	if err = j.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		log.Err(err).
			Str("func", "journalRepository.Count").
			Msg("failed to scan journal count")
		return 0, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return count, nil
}
