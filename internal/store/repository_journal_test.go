package store

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-chat-sync/internal/logger"
	"github.com/MKhiriev/go-chat-sync/models"
)

func TestJournalRepository_Append(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewJournalRepository(db, logger.Nop())

	now := time.Now()
	change := models.LocalChange{
		ClientID:   "c-1",
		EntityType: models.EntityMessages,
		EntityID:   "msg-1",
		Action:     models.ActionCreate,
		Payload:    json.RawMessage(`{"text":"hi"}`),
		CreatedAt:  now,
	}

	mock.ExpectExec("INSERT INTO change_journal").
		WithArgs("c-1", "messages", "msg-1", "create", []byte(`{"text":"hi"}`), now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(testContext(), change)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepository_Append_ExecError(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewJournalRepository(db, logger.Nop())

	mock.ExpectExec("INSERT INTO change_journal").
		WillReturnError(errors.New("database is locked"))

	err := repo.Append(testContext(), models.LocalChange{ClientID: "c-1"})
	require.ErrorIs(t, err, ErrExecutingStatement)
}

func TestJournalRepository_Get(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewJournalRepository(db, logger.Nop())

	created := time.Now()
	rows := sqlmock.NewRows(journalColumns).
		AddRow("c-1", "messages", "msg-1", "update", []byte(`{"text":"hi"}`), created)

	mock.ExpectQuery("SELECT .+ FROM change_journal").
		WithArgs("c-1").
		WillReturnRows(rows)

	change, err := repo.Get(testContext(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, models.EntityMessages, change.EntityType)
	assert.Equal(t, models.ActionUpdate, change.Action)
	assert.JSONEq(t, `{"text":"hi"}`, string(change.Payload))
}

func TestJournalRepository_Get_NotFound(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewJournalRepository(db, logger.Nop())

	mock.ExpectQuery("SELECT .+ FROM change_journal").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(journalColumns))

	_, err := repo.Get(testContext(), "ghost")
	require.ErrorIs(t, err, ErrJournalEntryNotFound)
}

func TestJournalRepository_ListOrdered(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewJournalRepository(db, logger.Nop())

	early := time.Now().Add(-time.Minute)
	late := time.Now()
	rows := sqlmock.NewRows(journalColumns).
		AddRow("c-1", "messages", "msg-1", "create", []byte(`{"text":"a"}`), early).
		AddRow("c-2", "messages", "msg-1", "update", []byte(`{"text":"b"}`), late)

	mock.ExpectQuery("SELECT .+ FROM change_journal").
		WillReturnRows(rows)

	changes, err := repo.ListOrdered(testContext(), 50)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	// oldest first
	assert.Equal(t, "c-1", changes[0].ClientID)
	assert.Equal(t, models.ActionCreate, changes[0].Action)
	assert.Equal(t, "c-2", changes[1].ClientID)
	assert.Equal(t, models.ActionUpdate, changes[1].Action)
}

func TestJournalRepository_ListOrdered_Empty(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewJournalRepository(db, logger.Nop())

	mock.ExpectQuery("SELECT .+ FROM change_journal").
		WillReturnRows(sqlmock.NewRows(journalColumns))

	changes, err := repo.ListOrdered(testContext(), 50)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestJournalRepository_Delete(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewJournalRepository(db, logger.Nop())

	mock.ExpectExec("DELETE FROM change_journal").
		WithArgs("c-1", "c-2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.Delete(testContext(), "c-1", "c-2")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepository_Delete_NoIDsIsNoop(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewJournalRepository(db, logger.Nop())

	// no expectations registered: the call must not touch the database
	err := repo.Delete(testContext())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepository_Count(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewJournalRepository(db, logger.Nop())

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := repo.Count(testContext())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}
