package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrRecordNotFound is returned when a query or update targets a cached
	// record (identified by entity_type and entity_id) that does not exist
	// in the database.
	ErrRecordNotFound = errors.New("record was not found")

	// ErrJournalEntryNotFound is returned when a journal operation targets a
	// change (identified by client_id) that is no longer queued.
	ErrJournalEntryNotFound = errors.New("journal entry was not found")

	// ErrConflictNotFound is returned when a conflict lookup by client_id
	// produces no row, typically because the conflict was already resolved.
	ErrConflictNotFound = errors.New("conflict was not found")

	// ErrStateNotFound is returned when a sync_state key has never been set.
	// Callers treat it as "start from the beginning" rather than a failure.
	ErrStateNotFound = errors.New("sync state key was not found")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to execute statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row into a destination struct fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan rows")
)
