package store

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-chat-sync/internal/logger"
)

func TestSyncStateRepository_Get_Success(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewSyncStateRepository(db, logger.Nop())

	mock.ExpectQuery("SELECT value FROM sync_state").
		WithArgs(StateKeyCursor).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("2026-01-02T15:04:05Z"))

	value, err := repo.Get(testContext(), StateKeyCursor)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02T15:04:05Z", value)
}

func TestSyncStateRepository_Get_NotFound(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewSyncStateRepository(db, logger.Nop())

	mock.ExpectQuery("SELECT value FROM sync_state").
		WithArgs(StateKeyCursor).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := repo.Get(testContext(), StateKeyCursor)
	require.ErrorIs(t, err, ErrStateNotFound)
}

func TestSyncStateRepository_Set(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewSyncStateRepository(db, logger.Nop())

	mock.ExpectExec("INSERT INTO sync_state").
		WithArgs(StateKeyCursor, "cursor-42").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Set(testContext(), StateKeyCursor, "cursor-42")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncStateRepository_Set_ExecError(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewSyncStateRepository(db, logger.Nop())

	mock.ExpectExec("INSERT INTO sync_state").
		WillReturnError(errors.New("database is locked"))

	err := repo.Set(testContext(), StateKeyCursor, "cursor-42")
	require.ErrorIs(t, err, ErrExecutingStatement)
}
