// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-chat-sync/internal/adapter"
	"github.com/MKhiriev/go-chat-sync/internal/config"
	"github.com/MKhiriev/go-chat-sync/internal/events"
	"github.com/MKhiriev/go-chat-sync/internal/logger"
	"github.com/MKhiriev/go-chat-sync/internal/mock"
	"github.com/MKhiriev/go-chat-sync/internal/store"
	"github.com/MKhiriev/go-chat-sync/internal/timers"
	"github.com/MKhiriev/go-chat-sync/internal/validators"
	"github.com/MKhiriev/go-chat-sync/models"
)

// syncNow — фиксированное «сейчас» движка в тестах
var syncNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// stubSession — фиксированный взгляд на сессию, mockgen здесь не нужен
type stubSession struct {
	authenticated bool
	deviceID      string
}

func (s *stubSession) IsAuthenticated() bool { return s.authenticated }
func (s *stubSession) DeviceID() string      { return s.deviceID }

// stubProbe — фиксированное состояние сети
type stubProbe struct {
	online bool
}

func (p *stubProbe) Online() bool { return p.online }

// syncMocks группирует зависимости движка в тестах
type syncMocks struct {
	gateway   *mock.MockServerGateway
	records   *mock.MockRecordRepository
	journal   *mock.MockJournalRepository
	conflicts *mock.MockConflictRepository
	state     *mock.MockSyncStateRepository
	session   *stubSession
	probe     *stubProbe
	bus       *events.Bus
}

// newTestSyncEngine — хелпер для создания SyncEngine с мок-хранилищем
func newTestSyncEngine(t *testing.T, ctrl *gomock.Controller, opts ...SyncOption) (*SyncEngine, *syncMocks) {
	t.Helper()

	deps := &syncMocks{
		gateway:   mock.NewMockServerGateway(ctrl),
		records:   mock.NewMockRecordRepository(ctrl),
		journal:   mock.NewMockJournalRepository(ctrl),
		conflicts: mock.NewMockConflictRepository(ctrl),
		state:     mock.NewMockSyncStateRepository(ctrl),
		session:   &stubSession{authenticated: true, deviceID: "device-1"},
		probe:     &stubProbe{online: true},
		bus:       events.NewBus(logger.Nop()),
	}

	storages := &store.Storages{
		Records:   deps.records,
		Journal:   deps.journal,
		Conflicts: deps.conflicts,
		SyncState: deps.state,
	}

	cfg := config.ClientSync{
		BatchSize:     2,
		UploadRetries: 1,
		RetryDelay:    time.Millisecond,
		Debounce:      20 * time.Millisecond,
		Interval:      time.Hour,
	}

	opts = append([]SyncOption{WithSyncNow(func() time.Time { return syncNow })}, opts...)
	engine := NewSyncEngine(cfg, deps.gateway, deps.session, deps.probe, storages, deps.bus, timers.NewSet(), logger.Nop(), opts...)
	t.Cleanup(engine.Stop)

	return engine, deps
}

// queuedChange готовит типовую запись журнала
func queuedChange(clientID, entityID string) models.LocalChange {
	return models.LocalChange{
		ClientID:   clientID,
		EntityType: models.EntityMessages,
		EntityID:   entityID,
		Action:     models.ActionUpdate,
		Payload:    json.RawMessage(`{"text":"hello"}`),
		CreatedAt:  syncNow,
	}
}

// ── RecordLocalChange ────────────────────────────────────────────────────────

func TestSyncEngine_RecordLocalChange_JournalsAndCaches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	var appended, changed []events.Event
	deps.bus.Subscribe(events.TopicJournalAppended, func(ev events.Event) { appended = append(appended, ev) })
	deps.bus.Subscribe(events.TopicDataChanged, func(ev events.Event) { changed = append(changed, ev) })

	payload := json.RawMessage(`{"text":"hello"}`)

	deps.journal.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, change models.LocalChange) error {
			assert.NotEmpty(t, change.ClientID)
			assert.Equal(t, models.EntityMessages, change.EntityType)
			assert.Equal(t, "m-1", change.EntityID)
			assert.Equal(t, models.ActionUpdate, change.Action)
			assert.Equal(t, syncNow, change.CreatedAt)
			return nil
		},
	)
	deps.records.EXPECT().Upsert(ctx, models.Record{
		EntityType: models.EntityMessages,
		EntityID:   "m-1",
		Payload:    payload,
		UpdatedAt:  syncNow,
	}).Return(nil)

	change, err := engine.RecordLocalChange(ctx, models.EntityMessages, "m-1", models.ActionUpdate, payload)
	require.NoError(t, err)
	assert.NotEmpty(t, change.ClientID)

	require.Len(t, appended, 1)
	require.Len(t, changed, 1)
	assert.Equal(t, models.EntityMessages, changed[0].Payload)
}

func TestSyncEngine_RecordLocalChange_GeneratesEntityID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	// create без entity id получает сгенерированный
	var seenID string
	deps.journal.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, change models.LocalChange) error {
			assert.NotEmpty(t, change.EntityID)
			seenID = change.EntityID
			return nil
		},
	)
	deps.records.EXPECT().Upsert(ctx, gomock.Any()).Return(nil)

	change, err := engine.RecordLocalChange(ctx, models.EntityChats, "", models.ActionCreate, json.RawMessage(`{"title":"general"}`))
	require.NoError(t, err)
	assert.Equal(t, seenID, change.EntityID)
	assert.NotEqual(t, change.ClientID, change.EntityID)
}

func TestSyncEngine_RecordLocalChange_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, _ := newTestSyncEngine(t, ctrl)

	// delete с телом — ошибка, до журнала не доходит
	_, err := engine.RecordLocalChange(context.Background(), models.EntityMessages, "m-1", models.ActionDelete, json.RawMessage(`{"x":1}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, validators.ErrUnexpectedPayload)
}

func TestSyncEngine_RecordLocalChange_JournalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	deps.journal.EXPECT().Append(ctx, gomock.Any()).Return(errors.New("database is locked"))

	_, err := engine.RecordLocalChange(ctx, models.EntityMessages, "m-1", models.ActionUpdate, json.RawMessage(`{"text":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal local change")
}

func TestSyncEngine_RecordLocalChange_CacheFailureTolerated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	var appended, changed []events.Event
	deps.bus.Subscribe(events.TopicJournalAppended, func(ev events.Event) { appended = append(appended, ev) })
	deps.bus.Subscribe(events.TopicDataChanged, func(ev events.Event) { changed = append(changed, ev) })

	deps.journal.EXPECT().Append(ctx, gomock.Any()).Return(nil)
	deps.records.EXPECT().Upsert(ctx, gomock.Any()).Return(errors.New("disk full"))

	// журнал принял запись — операция успешна, кэш отстал
	_, err := engine.RecordLocalChange(ctx, models.EntityMessages, "m-1", models.ActionUpdate, json.RawMessage(`{"text":"x"}`))
	require.NoError(t, err)
	require.Len(t, appended, 1)
	assert.Empty(t, changed)

	// сбой применения виден в статусе
	deps.journal.EXPECT().Count(ctx).Return(int64(1), nil)
	deps.conflicts.EXPECT().Count(ctx).Return(int64(0), nil)
	deps.state.EXPECT().Get(ctx, store.StateKeyCursor).Return("", store.ErrStateNotFound)
	deps.state.EXPECT().Get(ctx, store.StateKeyLastSyncAt).Return("", store.ErrStateNotFound)

	status := engine.Status(ctx)
	require.Len(t, status.RecentErrors, 1)
	assert.Equal(t, "apply-local", status.RecentErrors[0].Stage)
}

// ── Sync ─────────────────────────────────────────────────────────────────────

func TestSyncEngine_Sync_UnavailableOffline(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	deps.probe.online = false

	assert.ErrorIs(t, engine.Sync(context.Background()), ErrSyncUnavailable)
}

func TestSyncEngine_Sync_UnavailableUnauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	deps.session.authenticated = false

	assert.ErrorIs(t, engine.Sync(context.Background()), ErrSyncUnavailable)
}

func TestSyncEngine_Sync_UploadsThenDownloads(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	var completed []events.Event
	deps.bus.Subscribe(events.TopicSyncCompleted, func(ev events.Event) { completed = append(completed, ev) })

	local := queuedChange("c-1", "m-1")

	// upload: одна неполная партия
	deps.journal.EXPECT().ListOrdered(ctx, 2).Return([]models.LocalChange{local}, nil)
	deps.gateway.EXPECT().UploadChanges(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req models.UploadChangesRequest) (models.UploadChangesResponse, error) {
			assert.Equal(t, "device-1", req.DeviceID)
			require.Len(t, req.Changes, 1)
			return models.UploadChangesResponse{
				Processed: []models.ChangeAck{{ClientID: "c-1", Version: 7}},
			}, nil
		},
	)
	deps.records.EXPECT().Upsert(ctx, models.Record{
		EntityType: models.EntityMessages,
		EntityID:   "m-1",
		Payload:    local.Payload,
		Version:    7,
		UpdatedAt:  syncNow,
	}).Return(nil)
	deps.journal.EXPECT().Delete(ctx, "c-1").Return(nil)

	// download: одна страница с чужим изменением
	remote := models.RemoteChange{
		EntityType:     models.EntityChats,
		EntityID:       "ch-1",
		Action:         models.ActionUpdate,
		Payload:        json.RawMessage(`{"title":"general"}`),
		Version:        3,
		Timestamp:      syncNow.Add(-time.Minute),
		SourceDeviceID: "device-2",
	}
	deps.state.EXPECT().Get(ctx, store.StateKeyCursor).Return("", store.ErrStateNotFound)
	deps.gateway.EXPECT().GetChanges(ctx, models.GetChangesQuery{}).Return(models.GetChangesResponse{
		Changes: []models.RemoteChange{remote},
	}, nil)
	deps.records.EXPECT().Get(ctx, models.EntityChats, "ch-1").Return(models.Record{}, store.ErrRecordNotFound)
	deps.records.EXPECT().Upsert(ctx, models.Record{
		EntityType: models.EntityChats,
		EntityID:   "ch-1",
		Payload:    remote.Payload,
		Version:    3,
		UpdatedAt:  remote.Timestamp,
	}).Return(nil)
	deps.state.EXPECT().Set(ctx, store.StateKeyCursor, remote.Timestamp.UTC().Format(time.RFC3339Nano)).Return(nil)
	deps.state.EXPECT().Set(ctx, store.StateKeyLastSyncAt, syncNow.Format(time.RFC3339Nano)).Return(nil)

	require.NoError(t, engine.Sync(ctx))

	require.Len(t, completed, 1)
	summary, ok := completed[0].Payload.(SyncSummary)
	require.True(t, ok)
	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 0, summary.Conflicts)
}

func TestSyncEngine_Sync_SecondPassRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)

	entered := make(chan struct{})
	release := make(chan struct{})

	deps.journal.EXPECT().ListOrdered(gomock.Any(), 2).DoAndReturn(
		func(context.Context, int) ([]models.LocalChange, error) {
			close(entered)
			<-release
			return nil, nil
		},
	)
	deps.state.EXPECT().Get(gomock.Any(), store.StateKeyCursor).Return("", store.ErrStateNotFound)
	deps.gateway.EXPECT().GetChanges(gomock.Any(), gomock.Any()).Return(models.GetChangesResponse{}, nil)
	deps.state.EXPECT().Set(gomock.Any(), store.StateKeyLastSyncAt, gomock.Any()).Return(nil)

	done := make(chan error, 1)
	go func() { done <- engine.Sync(context.Background()) }()

	<-entered
	assert.ErrorIs(t, engine.Sync(context.Background()), ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestSyncEngine_Sync_UploadFailureReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	var failed []events.Event
	deps.bus.Subscribe(events.TopicSyncFailed, func(ev events.Event) { failed = append(failed, ev) })

	deps.journal.EXPECT().ListOrdered(ctx, 2).Return([]models.LocalChange{queuedChange("c-1", "m-1")}, nil)
	deps.gateway.EXPECT().UploadChanges(gomock.Any(), gomock.Any()).Return(models.UploadChangesResponse{}, &adapter.APIError{
		Kind:       adapter.KindServer,
		Message:    "internal error",
		HTTPStatus: 500,
	})

	err := engine.Sync(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload changes")
	require.Len(t, failed, 1)
}

// ── Upload: дренаж журнала ───────────────────────────────────────────────────

func TestSyncEngine_Upload_DrainsFullBatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	// полная партия тянет следующую, неполная — последняя
	first := []models.LocalChange{queuedChange("c-1", "m-1"), queuedChange("c-2", "m-2")}
	second := []models.LocalChange{queuedChange("c-3", "m-3")}

	gomock.InOrder(
		deps.journal.EXPECT().ListOrdered(ctx, 2).Return(first, nil),
		deps.journal.EXPECT().ListOrdered(ctx, 2).Return(second, nil),
	)
	deps.gateway.EXPECT().UploadChanges(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req models.UploadChangesRequest) (models.UploadChangesResponse, error) {
			acks := make([]models.ChangeAck, 0, len(req.Changes))
			for _, change := range req.Changes {
				acks = append(acks, models.ChangeAck{ClientID: change.ClientID, Version: 1})
			}
			return models.UploadChangesResponse{Processed: acks}, nil
		},
	).Times(2)
	deps.records.EXPECT().Upsert(ctx, gomock.Any()).Return(nil).Times(3)
	deps.journal.EXPECT().Delete(ctx, "c-1", "c-2").Return(nil)
	deps.journal.EXPECT().Delete(ctx, "c-3").Return(nil)

	uploaded, conflicts, err := engine.upload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, uploaded)
	assert.Equal(t, 0, conflicts)
}

func TestSyncEngine_Upload_ClientWinsStopsDrain(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl, WithStrategy(models.ResolveClientWins))
	ctx := context.Background()

	// вся полная партия упёрлась в конфликты client-wins: записи остаются
	// в журнале, и проход обязан остановиться, а не крутиться вечно
	batch := []models.LocalChange{queuedChange("c-1", "m-1"), queuedChange("c-2", "m-2")}
	deps.journal.EXPECT().ListOrdered(ctx, 2).Return(batch, nil)
	deps.gateway.EXPECT().UploadChanges(gomock.Any(), gomock.Any()).Return(models.UploadChangesResponse{
		Conflicts: []models.Conflict{
			{ClientID: "c-1", EntityType: models.EntityMessages, EntityID: "m-1"},
			{ClientID: "c-2", EntityType: models.EntityMessages, EntityID: "m-2"},
		},
	}, nil)

	uploaded, conflicts, err := engine.upload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, uploaded)
	assert.Equal(t, 2, conflicts)
}

// ── Ретраи партии ────────────────────────────────────────────────────────────

func TestSyncEngine_UploadBatch_RetriesTransient(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	engine.cfg.UploadRetries = 3
	ctx := context.Background()

	batch := []models.LocalChange{queuedChange("c-1", "m-1")}
	netErr := &adapter.APIError{Kind: adapter.KindNetwork, Message: "connection reset"}

	gomock.InOrder(
		deps.gateway.EXPECT().UploadChanges(gomock.Any(), gomock.Any()).Return(models.UploadChangesResponse{}, netErr),
		deps.gateway.EXPECT().UploadChanges(gomock.Any(), gomock.Any()).Return(models.UploadChangesResponse{}, netErr),
		deps.gateway.EXPECT().UploadChanges(gomock.Any(), gomock.Any()).Return(models.UploadChangesResponse{
			Processed: []models.ChangeAck{{ClientID: "c-1", Version: 1}},
		}, nil),
	)

	resp, err := engine.uploadBatch(ctx, batch)
	require.NoError(t, err)
	require.Len(t, resp.Processed, 1)
}

func TestSyncEngine_UploadBatch_BudgetExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	engine.cfg.UploadRetries = 2
	ctx := context.Background()

	netErr := &adapter.APIError{Kind: adapter.KindNetwork, Message: "connection reset"}
	deps.gateway.EXPECT().UploadChanges(gomock.Any(), gomock.Any()).Return(models.UploadChangesResponse{}, netErr).Times(2)

	_, err := engine.uploadBatch(ctx, []models.LocalChange{queuedChange("c-1", "m-1")})
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrNetwork)
}

func TestSyncEngine_UploadBatch_NoRetryOnRejection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	engine.cfg.UploadRetries = 3
	ctx := context.Background()

	// 422 — свойство самого запроса, повтор не поможет
	deps.gateway.EXPECT().UploadChanges(gomock.Any(), gomock.Any()).Return(models.UploadChangesResponse{}, &adapter.APIError{
		Kind:       adapter.KindValidation,
		Message:    "malformed change",
		HTTPStatus: 422,
	})

	_, err := engine.uploadBatch(ctx, []models.LocalChange{queuedChange("c-1", "m-1")})
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrValidation)
}

// ── Применение подтверждений ─────────────────────────────────────────────────

func TestSyncEngine_ApplyAcks_RenamedEntity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	// сервер заменил временный id созданной записи на постоянный
	change := models.LocalChange{
		ClientID:   "c-1",
		EntityType: models.EntityMessages,
		EntityID:   "tmp-1",
		Action:     models.ActionCreate,
		Payload:    json.RawMessage(`{"text":"hi"}`),
		CreatedAt:  syncNow,
	}
	ack := models.ChangeAck{ClientID: "c-1", EntityID: "srv-9", Version: 1}

	deps.records.EXPECT().Delete(ctx, models.EntityMessages, "tmp-1").Return(nil)
	deps.records.EXPECT().Upsert(ctx, models.Record{
		EntityType: models.EntityMessages,
		EntityID:   "srv-9",
		Payload:    change.Payload,
		Version:    1,
		UpdatedAt:  syncNow,
	}).Return(nil)
	deps.journal.EXPECT().Delete(ctx, "c-1").Return(nil)

	acked, err := engine.applyAcks(ctx, []models.LocalChange{change}, []models.ChangeAck{ack})
	require.NoError(t, err)
	assert.Equal(t, 1, acked)
}

func TestSyncEngine_ApplyAcks_DeleteRemovesTombstone(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	change := models.LocalChange{
		ClientID:   "c-1",
		EntityType: models.EntityMessages,
		EntityID:   "m-1",
		Action:     models.ActionDelete,
		CreatedAt:  syncNow,
	}

	deps.records.EXPECT().Delete(ctx, models.EntityMessages, "m-1").Return(nil)
	deps.journal.EXPECT().Delete(ctx, "c-1").Return(nil)

	acked, err := engine.applyAcks(ctx, []models.LocalChange{change}, []models.ChangeAck{{ClientID: "c-1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, acked)
}

func TestSyncEngine_ApplyAcks_ServerPayloadWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	change := queuedChange("c-1", "m-1")
	// канонический payload из подтверждения вытесняет локальный
	ack := models.ChangeAck{
		ClientID: "c-1",
		Payload:  json.RawMessage(`{"text":"hello","editedAt":"2026-03-14T11:59:00Z"}`),
		Version:  2,
	}

	deps.records.EXPECT().Upsert(ctx, models.Record{
		EntityType: models.EntityMessages,
		EntityID:   "m-1",
		Payload:    ack.Payload,
		Version:    2,
		UpdatedAt:  syncNow,
	}).Return(nil)
	deps.journal.EXPECT().Delete(ctx, "c-1").Return(nil)

	acked, err := engine.applyAcks(ctx, []models.LocalChange{change}, []models.ChangeAck{ack})
	require.NoError(t, err)
	assert.Equal(t, 1, acked)
}

func TestSyncEngine_ApplyAcks_UnknownAckSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	change := queuedChange("c-1", "m-1")

	deps.records.EXPECT().Upsert(ctx, gomock.Any()).Return(nil)
	deps.journal.EXPECT().Delete(ctx, "c-1").Return(nil)

	// подтверждение не из этой партии игнорируется
	acked, err := engine.applyAcks(ctx, []models.LocalChange{change}, []models.ChangeAck{
		{ClientID: "ghost"},
		{ClientID: "c-1", Version: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, acked)
}

func TestSyncEngine_ApplyAcks_CacheFailureStillRetires(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	change := queuedChange("c-1", "m-1")

	// сбой кэша не мешает снять подтверждённую запись с очереди
	deps.records.EXPECT().Upsert(ctx, gomock.Any()).Return(errors.New("disk full"))
	deps.journal.EXPECT().Delete(ctx, "c-1").Return(nil)

	acked, err := engine.applyAcks(ctx, []models.LocalChange{change}, []models.ChangeAck{{ClientID: "c-1", Version: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, acked)
}

// ── Download ─────────────────────────────────────────────────────────────────

func TestSyncEngine_Download_PaginatesWithFixedSince(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	cursor := "2026-03-14T10:00:00Z"
	firstAt := syncNow.Add(-30 * time.Minute)
	secondAt := syncNow.Add(-10 * time.Minute)

	first := models.RemoteChange{
		EntityType: models.EntityMessages, EntityID: "m-1", Action: models.ActionUpdate,
		Payload: json.RawMessage(`{"text":"a"}`), Version: 1, Timestamp: firstAt, SourceDeviceID: "device-2",
	}
	second := models.RemoteChange{
		EntityType: models.EntityMessages, EntityID: "m-2", Action: models.ActionUpdate,
		Payload: json.RawMessage(`{"text":"b"}`), Version: 1, Timestamp: secondAt, SourceDeviceID: "device-2",
	}

	deps.state.EXPECT().Get(ctx, store.StateKeyCursor).Return(cursor, nil)

	// обе страницы идут с одним since, вторая — с токеном продолжения
	gomock.InOrder(
		deps.gateway.EXPECT().GetChanges(ctx, models.GetChangesQuery{Since: cursor}).Return(models.GetChangesResponse{
			Changes:   []models.RemoteChange{first},
			HasMore:   true,
			NextToken: "t-2",
		}, nil),
		deps.gateway.EXPECT().GetChanges(ctx, models.GetChangesQuery{Since: cursor, Token: "t-2"}).Return(models.GetChangesResponse{
			Changes: []models.RemoteChange{second},
		}, nil),
	)

	deps.records.EXPECT().Get(ctx, models.EntityMessages, "m-1").Return(models.Record{}, store.ErrRecordNotFound)
	deps.records.EXPECT().Upsert(ctx, gomock.Any()).Return(nil)
	deps.records.EXPECT().Get(ctx, models.EntityMessages, "m-2").Return(models.Record{}, store.ErrRecordNotFound)
	deps.records.EXPECT().Upsert(ctx, gomock.Any()).Return(nil)

	// курсор двигается после каждой применённой страницы
	gomock.InOrder(
		deps.state.EXPECT().Set(ctx, store.StateKeyCursor, firstAt.UTC().Format(time.RFC3339Nano)).Return(nil),
		deps.state.EXPECT().Set(ctx, store.StateKeyCursor, secondAt.UTC().Format(time.RFC3339Nano)).Return(nil),
	)

	downloaded, err := engine.download(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, downloaded)
}

func TestSyncEngine_Download_SkipsOwnChanges(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	// своё изменение уже в кэше, но курсор обязан пройти мимо него
	own := models.RemoteChange{
		EntityType: models.EntityMessages, EntityID: "m-1", Action: models.ActionUpdate,
		Payload: json.RawMessage(`{"text":"mine"}`), Version: 2, Timestamp: syncNow.Add(-time.Minute),
		SourceDeviceID: "device-1",
	}

	deps.state.EXPECT().Get(ctx, store.StateKeyCursor).Return("", store.ErrStateNotFound)
	deps.gateway.EXPECT().GetChanges(ctx, models.GetChangesQuery{}).Return(models.GetChangesResponse{
		Changes: []models.RemoteChange{own},
	}, nil)
	deps.state.EXPECT().Set(ctx, store.StateKeyCursor, own.Timestamp.UTC().Format(time.RFC3339Nano)).Return(nil)

	downloaded, err := engine.download(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, downloaded)
}

func TestSyncEngine_Download_StaleVersionSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	stale := models.RemoteChange{
		EntityType: models.EntityMessages, EntityID: "m-1", Action: models.ActionUpdate,
		Payload: json.RawMessage(`{"text":"old"}`), Version: 3, Timestamp: syncNow.Add(-time.Minute),
		SourceDeviceID: "device-2",
	}

	deps.state.EXPECT().Get(ctx, store.StateKeyCursor).Return("", store.ErrStateNotFound)
	deps.gateway.EXPECT().GetChanges(ctx, models.GetChangesQuery{}).Return(models.GetChangesResponse{
		Changes: []models.RemoteChange{stale},
	}, nil)

	// в кэше более свежая версия — изменение не применяется
	deps.records.EXPECT().Get(ctx, models.EntityMessages, "m-1").Return(models.Record{
		EntityType: models.EntityMessages, EntityID: "m-1", Version: 5,
	}, nil)
	deps.state.EXPECT().Set(ctx, store.StateKeyCursor, stale.Timestamp.UTC().Format(time.RFC3339Nano)).Return(nil)

	downloaded, err := engine.download(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, downloaded)
}

func TestSyncEngine_Download_RemoteDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	gone := models.RemoteChange{
		EntityType: models.EntityMessages, EntityID: "m-1", Action: models.ActionDelete,
		Timestamp: syncNow.Add(-2 * time.Minute), SourceDeviceID: "device-2",
	}
	unknown := models.RemoteChange{
		EntityType: models.EntityMessages, EntityID: "m-2", Action: models.ActionDelete,
		Timestamp: syncNow.Add(-time.Minute), SourceDeviceID: "device-2",
	}

	deps.state.EXPECT().Get(ctx, store.StateKeyCursor).Return("", store.ErrStateNotFound)
	deps.gateway.EXPECT().GetChanges(ctx, models.GetChangesQuery{}).Return(models.GetChangesResponse{
		Changes: []models.RemoteChange{gone, unknown},
	}, nil)

	deps.records.EXPECT().MarkDeleted(ctx, models.EntityMessages, "m-1").Return(nil)
	// удаление незнакомой записи — не ошибка
	deps.records.EXPECT().MarkDeleted(ctx, models.EntityMessages, "m-2").Return(store.ErrRecordNotFound)
	deps.state.EXPECT().Set(ctx, store.StateKeyCursor, unknown.Timestamp.UTC().Format(time.RFC3339Nano)).Return(nil)

	downloaded, err := engine.download(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, downloaded)
}

func TestSyncEngine_Download_PoisonedChangeSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	bad := models.RemoteChange{
		EntityType: models.EntityMessages, EntityID: "m-bad", Action: models.ActionUpdate,
		Payload: json.RawMessage(`{"text":"?"}`), Version: 1, Timestamp: syncNow.Add(-2 * time.Minute),
		SourceDeviceID: "device-2",
	}
	good := models.RemoteChange{
		EntityType: models.EntityMessages, EntityID: "m-good", Action: models.ActionUpdate,
		Payload: json.RawMessage(`{"text":"ok"}`), Version: 1, Timestamp: syncNow.Add(-time.Minute),
		SourceDeviceID: "device-2",
	}

	deps.state.EXPECT().Get(ctx, store.StateKeyCursor).Return("", store.ErrStateNotFound)
	deps.gateway.EXPECT().GetChanges(ctx, models.GetChangesQuery{}).Return(models.GetChangesResponse{
		Changes: []models.RemoteChange{bad, good},
	}, nil)

	// сломанная запись пропускается, страница и курсор не застревают
	deps.records.EXPECT().Get(ctx, models.EntityMessages, "m-bad").Return(models.Record{}, errors.New("corrupt index"))
	deps.records.EXPECT().Get(ctx, models.EntityMessages, "m-good").Return(models.Record{}, store.ErrRecordNotFound)
	deps.records.EXPECT().Upsert(ctx, gomock.Any()).Return(nil)
	deps.state.EXPECT().Set(ctx, store.StateKeyCursor, good.Timestamp.UTC().Format(time.RFC3339Nano)).Return(nil)

	downloaded, err := engine.download(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, downloaded)
}

// ── Status ───────────────────────────────────────────────────────────────────

func TestSyncEngine_Status_Snapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	deps.probe.online = false
	lastSync := syncNow.Add(-5 * time.Minute)

	deps.journal.EXPECT().Count(ctx).Return(int64(4), nil)
	deps.conflicts.EXPECT().Count(ctx).Return(int64(2), nil)
	deps.state.EXPECT().Get(ctx, store.StateKeyCursor).Return("2026-03-14T10:00:00Z", nil)
	deps.state.EXPECT().Get(ctx, store.StateKeyLastSyncAt).Return(lastSync.Format(time.RFC3339Nano), nil)

	status := engine.Status(ctx)
	assert.False(t, status.Syncing)
	assert.False(t, status.Online)
	assert.Equal(t, int64(4), status.PendingChanges)
	assert.Equal(t, int64(2), status.ConflictCount)
	assert.Equal(t, "2026-03-14T10:00:00Z", status.Cursor)
	assert.True(t, lastSync.Equal(status.LastSyncedAt), "время последней синхронизации берём из sync_state")
	assert.Empty(t, status.RecentErrors)
}

// ── Фоновые триггеры ─────────────────────────────────────────────────────────

func TestSyncEngine_Start_SyncsWhenOnlineReturns(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)

	completedCh := make(chan struct{}, 1)
	deps.bus.Subscribe(events.TopicSyncCompleted, func(events.Event) { completedCh <- struct{}{} })

	deps.journal.EXPECT().ListOrdered(gomock.Any(), 2).Return(nil, nil)
	deps.state.EXPECT().Get(gomock.Any(), store.StateKeyCursor).Return("", store.ErrStateNotFound)
	deps.gateway.EXPECT().GetChanges(gomock.Any(), gomock.Any()).Return(models.GetChangesResponse{}, nil)
	deps.state.EXPECT().Set(gomock.Any(), store.StateKeyLastSyncAt, gomock.Any()).Return(nil)

	engine.Start(context.Background())
	deps.bus.Publish(events.TopicOnlineStatus, true)

	select {
	case <-completedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("онлайн-триггер не запустил проход")
	}
}

func TestSyncEngine_Debounce_CollapsesBurst(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)
	ctx := context.Background()

	completedCh := make(chan struct{}, 1)
	deps.bus.Subscribe(events.TopicSyncCompleted, func(events.Event) { completedCh <- struct{}{} })

	deps.journal.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	deps.records.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	// серия правок сворачивается в один проход
	deps.journal.EXPECT().ListOrdered(gomock.Any(), 2).Return(nil, nil)
	deps.state.EXPECT().Get(gomock.Any(), store.StateKeyCursor).Return("", store.ErrStateNotFound)
	deps.gateway.EXPECT().GetChanges(gomock.Any(), gomock.Any()).Return(models.GetChangesResponse{}, nil)
	deps.state.EXPECT().Set(gomock.Any(), store.StateKeyLastSyncAt, gomock.Any()).Return(nil)

	engine.Start(ctx)

	_, err := engine.RecordLocalChange(ctx, models.EntityMessages, "m-1", models.ActionUpdate, json.RawMessage(`{"text":"a"}`))
	require.NoError(t, err)
	_, err = engine.RecordLocalChange(ctx, models.EntityMessages, "m-1", models.ActionUpdate, json.RawMessage(`{"text":"ab"}`))
	require.NoError(t, err)

	select {
	case <-completedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("дебаунс не запустил проход")
	}
}

func TestSyncEngine_Stop_DisarmsTriggers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, deps := newTestSyncEngine(t, ctrl)

	engine.Start(context.Background())
	engine.Stop()

	// после Stop онлайн-триггер мёртв: любой вызов моков провалил бы тест
	deps.bus.Publish(events.TopicOnlineStatus, true)
	time.Sleep(30 * time.Millisecond)
}

func TestSyncEngine_Stop_Twice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine, _ := newTestSyncEngine(t, ctrl)

	engine.Start(context.Background())
	assert.NotPanics(t, func() {
		engine.Stop()
		engine.Stop()
	})
}
