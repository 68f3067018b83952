// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-chat-sync/models"
)

// Column sets shared by the builders, the repositories and their tests.
var (
	recordColumns   = []string{"entity_type", "entity_id", "payload", "version", "updated_at", "deleted"}
	journalColumns  = []string{"client_id", "entity_type", "entity_id", "action", "payload", "created_at"}
	conflictColumns = []string{"client_id", "entity_type", "entity_id", "local_payload", "remote_payload", "remote_version", "detected_at"}
)

// buildUpsertRecordQuery builds an insert-or-replace for one cache record.
// The ON CONFLICT target is the (entity_type, entity_id) primary key.
func buildUpsertRecordQuery(_ context.Context, record models.Record) (string, []any, error) {
	query, args, err := sq.
		Insert(record.TableName()).
		Columns(recordColumns...).
		Values(record.EntityType, record.EntityID, []byte(record.Payload), record.Version, record.UpdatedAt, record.Deleted).
		Suffix(`ON CONFLICT(entity_type, entity_id) DO UPDATE SET
			payload    = excluded.payload,
			version    = excluded.version,
			updated_at = excluded.updated_at,
			deleted    = excluded.deleted`).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

func buildGetRecordQuery(_ context.Context, entityType models.EntityType, entityID string) (string, []any, error) {
	query, args, err := sq.
		Select(recordColumns...).
		From("records").
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

// buildListRecordsByTypeQuery selects live (not logically deleted) records of
// one entity type, newest first.
func buildListRecordsByTypeQuery(_ context.Context, entityType models.EntityType) (string, []any, error) {
	query, args, err := sq.
		Select(recordColumns...).
		From("records").
		Where(sq.Eq{"entity_type": entityType, "deleted": false}).
		OrderBy("updated_at DESC").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

func buildMarkRecordDeletedQuery(_ context.Context, entityType models.EntityType, entityID string) (string, []any, error) {
	query, args, err := sq.
		Update("records").
		Set("deleted", true).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

func buildDeleteRecordQuery(_ context.Context, entityType models.EntityType, entityID string) (string, []any, error) {
	query, args, err := sq.
		Delete("records").
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

func buildAppendJournalQuery(_ context.Context, change models.LocalChange) (string, []any, error) {
	query, args, err := sq.
		Insert(change.TableName()).
		Columns(journalColumns...).
		Values(change.ClientID, change.EntityType, change.EntityID, change.Action, []byte(change.Payload), change.CreatedAt).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

func buildGetJournalQuery(_ context.Context, clientID string) (string, []any, error) {
	query, args, err := sq.
		Select(journalColumns...).
		From("change_journal").
		Where(sq.Eq{"client_id": clientID}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

// buildListJournalQuery selects queued changes oldest first. The rowid
// tie-break keeps entries recorded within the same timestamp in insertion
// order. A non-positive limit selects the whole journal.
func buildListJournalQuery(_ context.Context, limit int) (string, []any, error) {
	builder := sq.
		Select(journalColumns...).
		From("change_journal").
		OrderBy("created_at ASC", "rowid ASC")

	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

func buildDeleteJournalQuery(_ context.Context, clientIDs []string) (string, []any, error) {
	query, args, err := sq.
		Delete("change_journal").
		Where(sq.Eq{"client_id": clientIDs}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

func buildCountJournalQuery(_ context.Context) (string, []any, error) {
	query, args, err := sq.
		Select("COUNT(*)").
		From("change_journal").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

// buildSaveConflictQuery builds an insert-or-replace keyed by client_id so
// that re-detecting the same conflict refreshes the remote side.
func buildSaveConflictQuery(_ context.Context, conflict models.Conflict) (string, []any, error) {
	query, args, err := sq.
		Insert(conflict.TableName()).
		Columns(conflictColumns...).
		Values(
			conflict.ClientID,
			conflict.EntityType,
			conflict.EntityID,
			[]byte(conflict.LocalPayload),
			[]byte(conflict.RemotePayload),
			conflict.RemoteVersion,
			conflict.DetectedAt,
		).
		Suffix(`ON CONFLICT(client_id) DO UPDATE SET
			remote_payload = excluded.remote_payload,
			remote_version = excluded.remote_version,
			detected_at    = excluded.detected_at`).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

func buildGetConflictQuery(_ context.Context, clientID string) (string, []any, error) {
	query, args, err := sq.
		Select(conflictColumns...).
		From("conflicts").
		Where(sq.Eq{"client_id": clientID}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

func buildListConflictsQuery(_ context.Context) (string, []any, error) {
	query, args, err := sq.
		Select(conflictColumns...).
		From("conflicts").
		OrderBy("detected_at ASC").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

func buildDeleteConflictQuery(_ context.Context, clientID string) (string, []any, error) {
	query, args, err := sq.
		Delete("conflicts").
		Where(sq.Eq{"client_id": clientID}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

func buildCountConflictsQuery(_ context.Context) (string, []any, error) {
	query, args, err := sq.
		Select("COUNT(*)").
		From("conflicts").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

func buildGetStateQuery(_ context.Context, key string) (string, []any, error) {
	query, args, err := sq.
		Select("value").
		From("sync_state").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

func buildSetStateQuery(_ context.Context, key, value string) (string, []any, error) {
	query, args, err := sq.
		Insert("sync_state").
		Columns("key", "value").
		Values(key, value).
		Suffix(`ON CONFLICT(key) DO UPDATE SET value = excluded.value`).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}
