package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-chat-sync/internal/adapter"
	"github.com/MKhiriev/go-chat-sync/internal/config"
	"github.com/MKhiriev/go-chat-sync/internal/events"
	"github.com/MKhiriev/go-chat-sync/internal/logger"
	"github.com/MKhiriev/go-chat-sync/internal/store"
	"github.com/MKhiriev/go-chat-sync/internal/timers"
	"github.com/MKhiriev/go-chat-sync/internal/utils"
	"github.com/MKhiriev/go-chat-sync/internal/validators"
	"github.com/MKhiriev/go-chat-sync/models"
)

// SessionInfo is the view of the session manager the sync engine needs.
type SessionInfo interface {
	IsAuthenticated() bool
	DeviceID() string
}

// SyncSummary is the outcome of one completed sync pass. Published with
// [events.TopicSyncCompleted].
type SyncSummary struct {
	Uploaded   int       `json:"uploaded"`
	Downloaded int       `json:"downloaded"`
	Conflicts  int       `json:"conflicts"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// SyncError is one recorded sync failure.
type SyncError struct {
	At    time.Time `json:"at"`
	Stage string    `json:"stage"`
	Err   string    `json:"error"`
}

// SyncStatus is a point-in-time snapshot of the engine.
type SyncStatus struct {
	Syncing        bool        `json:"syncing"`
	Online         bool        `json:"online"`
	PendingChanges int64       `json:"pendingChanges"`
	ConflictCount  int64       `json:"conflictCount"`
	LastSyncedAt   time.Time   `json:"lastSyncedAt"`
	Cursor         string      `json:"cursor,omitempty"`
	RecentErrors   []SyncError `json:"recentErrors,omitempty"`
}

// maxRecentErrors bounds the in-memory ring of recorded failures.
const maxRecentErrors = 50

// SyncEngine reconciles the local change journal with the server. One pass
// uploads queued local changes in batches, then downloads remote changes
// after the durable cursor. Every trigger (debounce after a local edit, the
// periodic timer, connectivity regained, an explicit call) funnels into the
// same guarded pass, so at most one runs at a time.
type SyncEngine struct {
	cfg       config.ClientSync
	gateway   adapter.ServerGateway
	session   SessionInfo
	probe     adapter.ConnectivityProbe
	storages  *store.Storages
	bus       *events.Bus
	timers    *timers.Set
	validator validators.Validator
	uuid      *utils.UUIDGenerator
	logger    *logger.Logger

	now             func() time.Time
	defaultStrategy models.ResolutionStrategy

	mu           sync.Mutex
	syncing      bool
	started      bool
	runCtx       context.Context
	lastSyncedAt time.Time
	debounce     *timers.Task
	periodic     *timers.Task
	subs         []*events.Subscription

	errsMu sync.Mutex
	errs   []SyncError
}

// SyncOption customises a SyncEngine.
type SyncOption func(*SyncEngine)

// WithStrategy sets the automatic strategy applied when the server reports a
// conflict. The default is server-wins.
func WithStrategy(strategy models.ResolutionStrategy) SyncOption {
	return func(e *SyncEngine) { e.defaultStrategy = strategy }
}

// WithSyncNow replaces the wall clock.
func WithSyncNow(now func() time.Time) SyncOption {
	return func(e *SyncEngine) { e.now = now }
}

// NewSyncEngine constructs a sync engine. The timer set must be dedicated to
// this engine: Stop cancels every task in it.
func NewSyncEngine(cfg config.ClientSync, gateway adapter.ServerGateway, session SessionInfo, probe adapter.ConnectivityProbe, storages *store.Storages, bus *events.Bus, set *timers.Set, log *logger.Logger, opts ...SyncOption) *SyncEngine {
	e := &SyncEngine{
		cfg:             cfg,
		gateway:         gateway,
		session:         session,
		probe:           probe,
		storages:        storages,
		bus:             bus,
		timers:          set,
		validator:       validators.NewChangeValidator(),
		uuid:            utils.NewUUIDGenerator(),
		logger:          log,
		now:             time.Now,
		defaultStrategy: models.ResolveServerWins,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RecordLocalChange journals one local edit and folds it into the cache.
// The journal write is the source of truth: the call fails only when
// validation or the journal write fails. A sync pass is debounced
// afterwards.
//
// A create without an entity id gets a generated one; the server may replace
// it in the acknowledgement.
func (e *SyncEngine) RecordLocalChange(ctx context.Context, entityType models.EntityType, entityID string, action models.ChangeAction, payload json.RawMessage) (models.LocalChange, error) {
	log := logger.FromContext(ctx)

	change := models.LocalChange{
		ClientID:   e.uuid.Generate(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Payload:    payload,
		CreatedAt:  e.now(),
	}
	if change.Action == models.ActionCreate && change.EntityID == "" {
		change.EntityID = e.uuid.Generate()
	}

	if err := e.validator.Validate(ctx, change); err != nil {
		return models.LocalChange{}, fmt.Errorf("validate local change: %w", err)
	}

	if err := e.storages.Journal.Append(ctx, change); err != nil {
		return models.LocalChange{}, fmt.Errorf("journal local change: %w", err)
	}

	if err := e.applyLocal(ctx, change); err != nil {
		// журнал уже принял запись, кэш догонит её после подтверждения
		log.Warn().Err(err).
			Str("func", "SyncEngine.RecordLocalChange").
			Str("client_id", change.ClientID).
			Msg("journaled change could not be applied to the local cache")
		e.recordError("apply-local", err)
	} else {
		e.bus.Publish(events.TopicDataChanged, change.EntityType)
	}

	e.bus.Publish(events.TopicJournalAppended, change)
	e.armDebounce()

	return change, nil
}

// Sync runs one full pass: upload queued changes, then download remote ones.
//
// Returns nil on a completed pass or:
//   - [ErrSyncInProgress] if a pass is already running;
//   - [ErrSyncUnavailable] if offline or unauthenticated;
//   - the stage error otherwise, with [events.TopicSyncFailed] published.
func (e *SyncEngine) Sync(ctx context.Context) error {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return ErrSyncInProgress
	}
	if !e.session.IsAuthenticated() || !e.probe.Online() {
		e.mu.Unlock()
		return ErrSyncUnavailable
	}
	e.syncing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	log := logger.FromContext(ctx)
	summary := SyncSummary{StartedAt: e.now()}
	e.bus.Publish(events.TopicSyncStarted, summary.StartedAt)

	uploaded, conflicts, err := e.upload(ctx)
	summary.Uploaded = uploaded
	summary.Conflicts = conflicts
	if err != nil {
		e.recordError("upload", err)
		e.bus.Publish(events.TopicSyncFailed, err)
		return fmt.Errorf("upload changes: %w", err)
	}

	downloaded, err := e.download(ctx)
	summary.Downloaded = downloaded
	if err != nil {
		e.recordError("download", err)
		e.bus.Publish(events.TopicSyncFailed, err)
		return fmt.Errorf("download changes: %w", err)
	}

	summary.FinishedAt = e.now()

	e.mu.Lock()
	e.lastSyncedAt = summary.FinishedAt
	e.mu.Unlock()

	if err := e.storages.SyncState.Set(ctx, store.StateKeyLastSyncAt, summary.FinishedAt.Format(time.RFC3339Nano)); err != nil {
		log.Warn().Err(err).
			Str("func", "SyncEngine.Sync").
			Msg("failed to persist last sync time")
	}

	log.Info().
		Str("func", "SyncEngine.Sync").
		Int("uploaded", summary.Uploaded).
		Int("downloaded", summary.Downloaded).
		Int("conflicts", summary.Conflicts).
		Msg("sync pass completed")
	e.bus.Publish(events.TopicSyncCompleted, summary)

	return nil
}

// Start arms the background triggers: the periodic pass and a pass when
// connectivity returns. Explicit and debounced passes work without Start.
func (e *SyncEngine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return
	}
	e.started = true
	e.runCtx = ctx

	sub := e.bus.Subscribe(events.TopicOnlineStatus, func(event events.Event) {
		online, ok := event.Payload.(bool)
		if !ok || !online {
			return
		}
		// публикация синхронная, пас не должен блокировать шину
		go e.syncQuietly(ctx, "online")
	})
	e.subs = append(e.subs, sub)

	e.periodic = e.timers.Every(e.cfg.Interval, func() {
		e.syncQuietly(ctx, "interval")
	})
}

// Stop cancels the background triggers. A running pass finishes on its own.
func (e *SyncEngine) Stop() {
	e.mu.Lock()
	subs := e.subs
	e.subs = nil
	e.started = false
	e.runCtx = nil
	e.debounce = nil
	e.periodic = nil
	e.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	e.timers.StopAll()
}

// Conflicts lists collisions parked for manual resolution, oldest first.
func (e *SyncEngine) Conflicts(ctx context.Context) ([]models.Conflict, error) {
	return e.storages.Conflicts.ListAll(ctx)
}

// Status reports a snapshot of the engine. Counts come from the local
// database; a failed read leaves the field at zero.
func (e *SyncEngine) Status(ctx context.Context) SyncStatus {
	log := logger.FromContext(ctx)

	e.mu.Lock()
	status := SyncStatus{
		Syncing:      e.syncing,
		LastSyncedAt: e.lastSyncedAt,
	}
	e.mu.Unlock()

	status.Online = e.probe.Online()

	pending, err := e.storages.Journal.Count(ctx)
	if err != nil {
		log.Warn().Err(err).
			Str("func", "SyncEngine.Status").
			Msg("failed to count pending changes")
	}
	status.PendingChanges = pending

	conflictCount, err := e.storages.Conflicts.Count(ctx)
	if err != nil {
		log.Warn().Err(err).
			Str("func", "SyncEngine.Status").
			Msg("failed to count parked conflicts")
	}
	status.ConflictCount = conflictCount

	if cursor, err := e.storages.SyncState.Get(ctx, store.StateKeyCursor); err == nil {
		status.Cursor = cursor
	}

	// первый снимок после рестарта берёт время из sync_state
	if status.LastSyncedAt.IsZero() {
		if value, err := e.storages.SyncState.Get(ctx, store.StateKeyLastSyncAt); err == nil {
			if at, parseErr := time.Parse(time.RFC3339Nano, value); parseErr == nil {
				status.LastSyncedAt = at
			}
		}
	}

	e.errsMu.Lock()
	status.RecentErrors = append([]SyncError(nil), e.errs...)
	e.errsMu.Unlock()

	return status
}

// upload drains the journal in batches. The pass stops when a batch comes up
// short or when nothing from a full batch was consumed, which happens when
// every entry waits on a client-wins conflict.
func (e *SyncEngine) upload(ctx context.Context) (uploaded, conflicts int, err error) {
	for {
		batch, err := e.storages.Journal.ListOrdered(ctx, e.cfg.BatchSize)
		if err != nil {
			return uploaded, conflicts, err
		}
		if len(batch) == 0 {
			return uploaded, conflicts, nil
		}

		resp, err := e.uploadBatch(ctx, batch)
		if err != nil {
			return uploaded, conflicts, err
		}

		acked, err := e.applyAcks(ctx, batch, resp.Processed)
		if err != nil {
			return uploaded, conflicts, err
		}
		uploaded += acked

		consumed := acked
		for _, conflict := range resp.Conflicts {
			done, err := e.resolve(ctx, conflict)
			if err != nil {
				return uploaded, conflicts, err
			}
			conflicts++
			if done {
				consumed++
			}
		}

		if len(batch) < e.cfg.BatchSize || consumed == 0 {
			return uploaded, conflicts, nil
		}
	}
}

// uploadBatch pushes one batch, retrying transient failures with a linear
// backoff. UploadRetries is the total attempt budget of the batch.
func (e *SyncEngine) uploadBatch(ctx context.Context, batch []models.LocalChange) (models.UploadChangesResponse, error) {
	req := models.UploadChangesRequest{
		Changes:  batch,
		DeviceID: e.session.DeviceID(),
	}
	if err := e.validator.Validate(ctx, req); err != nil {
		return models.UploadChangesResponse{}, fmt.Errorf("validate upload request: %w", err)
	}

	attempts := e.cfg.UploadRetries
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), linearBackoff(e.cfg.RetryDelay))

	var resp models.UploadChangesResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var callErr error
		resp, callErr = e.gateway.UploadChanges(ctx, req)
		if callErr == nil {
			return nil
		}
		if apiErr, ok := adapter.AsAPIError(callErr); ok && apiErr.Transient() {
			return retry.RetryableError(callErr)
		}
		return callErr
	})
	if err != nil {
		return models.UploadChangesResponse{}, err
	}

	return resp, nil
}

// linearBackoff waits base, 2*base, 3*base between attempts.
func linearBackoff(base time.Duration) retry.Backoff {
	var attempt int64

	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * base, false
	})
}

// applyAcks folds acknowledgements into the cache and removes the
// acknowledged entries from the journal. The batch is indexed by client id
// because acks do not repeat the entity type.
func (e *SyncEngine) applyAcks(ctx context.Context, batch []models.LocalChange, acks []models.ChangeAck) (int, error) {
	if len(acks) == 0 {
		return 0, nil
	}

	log := logger.FromContext(ctx)

	byClientID := make(map[string]models.LocalChange, len(batch))
	for _, change := range batch {
		byClientID[change.ClientID] = change
	}

	ackedIDs := make([]string, 0, len(acks))
	for _, ack := range acks {
		change, ok := byClientID[ack.ClientID]
		if !ok {
			log.Warn().
				Str("func", "SyncEngine.applyAcks").
				Str("client_id", ack.ClientID).
				Msg("server acknowledged a change missing from the batch")
			continue
		}

		if err := e.applyAck(ctx, change, ack); err != nil {
			log.Warn().Err(err).
				Str("func", "SyncEngine.applyAcks").
				Str("client_id", ack.ClientID).
				Msg("failed to apply acknowledgement to the local cache")
			e.recordError("apply-ack", err)
		}

		ackedIDs = append(ackedIDs, ack.ClientID)
	}

	if err := e.storages.Journal.Delete(ctx, ackedIDs...); err != nil {
		return 0, err
	}

	return len(ackedIDs), nil
}

// applyAck applies one acknowledgement. The server may rename an entity it
// created; the provisional cache row is replaced then.
func (e *SyncEngine) applyAck(ctx context.Context, change models.LocalChange, ack models.ChangeAck) error {
	if change.Action == models.ActionDelete {
		// подтверждённое удаление: надгробие больше не нужно
		return e.storages.Records.Delete(ctx, change.EntityType, change.EntityID)
	}

	entityID := change.EntityID
	if ack.EntityID != "" {
		entityID = ack.EntityID
	}
	if entityID != change.EntityID && change.EntityID != "" {
		if err := e.storages.Records.Delete(ctx, change.EntityType, change.EntityID); err != nil {
			return err
		}
	}

	payload := change.Payload
	if len(ack.Payload) > 0 {
		payload = ack.Payload
	}

	return e.storages.Records.Upsert(ctx, models.Record{
		EntityType: change.EntityType,
		EntityID:   entityID,
		Payload:    payload,
		Version:    ack.Version,
		UpdatedAt:  e.now(),
	})
}

// download pulls remote changes page by page. The since parameter stays
// fixed for the whole pagination run while the durable cursor advances per
// applied page, so an interrupted run resumes without refetching everything.
func (e *SyncEngine) download(ctx context.Context) (int, error) {
	cursor, err := e.storages.SyncState.Get(ctx, store.StateKeyCursor)
	if err != nil && !errors.Is(err, store.ErrStateNotFound) {
		return 0, err
	}

	downloaded := 0
	since := cursor
	token := ""
	for {
		resp, err := e.gateway.GetChanges(ctx, models.GetChangesQuery{Since: since, Token: token})
		if err != nil {
			return downloaded, err
		}

		applied, newest := e.applyPage(ctx, resp.Changes)
		downloaded += applied

		if !newest.IsZero() {
			cursor = newest.UTC().Format(time.RFC3339Nano)
			if err := e.storages.SyncState.Set(ctx, store.StateKeyCursor, cursor); err != nil {
				return downloaded, err
			}
		}

		if !resp.HasMore {
			return downloaded, nil
		}
		token = resp.NextToken
	}
}

// applyPage applies one page of remote changes. A change that cannot be
// applied is logged and skipped, and the cursor still moves past it, so one
// poisoned entry cannot wedge the download forever.
func (e *SyncEngine) applyPage(ctx context.Context, changes []models.RemoteChange) (int, time.Time) {
	log := logger.FromContext(ctx)

	applied := 0
	var newest time.Time
	touched := make(map[models.EntityType]struct{})

	for _, change := range changes {
		if change.Timestamp.After(newest) {
			newest = change.Timestamp
		}

		ok, err := e.applyRemote(ctx, change)
		if err != nil {
			log.Warn().Err(err).
				Str("func", "SyncEngine.applyPage").
				Str("entity_type", string(change.EntityType)).
				Str("entity_id", change.EntityID).
				Msg("failed to apply remote change, skipping it")
			e.recordError("apply-remote", err)
			continue
		}
		if ok {
			applied++
			touched[change.EntityType] = struct{}{}
		}
	}

	for entityType := range touched {
		e.bus.Publish(events.TopicDataChanged, entityType)
	}

	return applied, newest
}

// applyRemote folds one remote change into the cache. Changes that
// originated from this device and changes older than the cached version are
// skipped.
func (e *SyncEngine) applyRemote(ctx context.Context, change models.RemoteChange) (bool, error) {
	if change.SourceDeviceID != "" && change.SourceDeviceID == e.session.DeviceID() {
		return false, nil
	}

	if change.Action == models.ActionDelete {
		err := e.storages.Records.MarkDeleted(ctx, change.EntityType, change.EntityID)
		if errors.Is(err, store.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}

	current, err := e.storages.Records.Get(ctx, change.EntityType, change.EntityID)
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return false, err
	}
	if err == nil && current.Version > change.Version {
		return false, nil
	}

	err = e.storages.Records.Upsert(ctx, models.Record{
		EntityType: change.EntityType,
		EntityID:   change.EntityID,
		Payload:    change.Payload,
		Version:    change.Version,
		UpdatedAt:  change.Timestamp,
	})
	if err != nil {
		return false, err
	}

	return true, nil
}

// applyLocal folds a journaled change into the records cache. The row gets
// version zero until the server acknowledges it.
func (e *SyncEngine) applyLocal(ctx context.Context, change models.LocalChange) error {
	if change.Action == models.ActionDelete {
		err := e.storages.Records.MarkDeleted(ctx, change.EntityType, change.EntityID)
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	return e.storages.Records.Upsert(ctx, models.Record{
		EntityType: change.EntityType,
		EntityID:   change.EntityID,
		Payload:    change.Payload,
		UpdatedAt:  change.CreatedAt,
	})
}

// armDebounce schedules a pass shortly after the last local edit, collapsing
// bursts of edits into one pass. Inactive until Start.
func (e *SyncEngine) armDebounce() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return
	}

	ctx := e.runCtx
	e.debounce.Stop()
	e.debounce = e.timers.AfterFunc(e.cfg.Debounce, func() {
		e.syncQuietly(ctx, "debounce")
	})
}

// syncQuietly runs one pass where skipping is normal: concurrent passes and
// offline windows are expected for background triggers.
func (e *SyncEngine) syncQuietly(ctx context.Context, trigger string) {
	if ctx == nil {
		ctx = context.Background()
	}

	err := e.Sync(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress), errors.Is(err, ErrSyncUnavailable):
		e.logger.Debug().
			Str("func", "SyncEngine.syncQuietly").
			Str("trigger", trigger).
			Msg("sync pass skipped")
	default:
		e.logger.Warn().Err(err).
			Str("func", "SyncEngine.syncQuietly").
			Str("trigger", trigger).
			Msg("background sync pass failed")
	}
}

// recordError appends one failure to the bounded list of recent errors.
func (e *SyncEngine) recordError(stage string, err error) {
	e.errsMu.Lock()
	defer e.errsMu.Unlock()

	e.errs = append(e.errs, SyncError{At: e.now(), Stage: stage, Err: err.Error()})
	if len(e.errs) > maxRecentErrors {
		e.errs = e.errs[len(e.errs)-maxRecentErrors:]
	}
}
