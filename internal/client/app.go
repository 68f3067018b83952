package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/MKhiriev/go-chat-sync/internal/adapter"
	"github.com/MKhiriev/go-chat-sync/internal/config"
	"github.com/MKhiriev/go-chat-sync/internal/events"
	"github.com/MKhiriev/go-chat-sync/internal/logger"
	"github.com/MKhiriev/go-chat-sync/internal/netmon"
	"github.com/MKhiriev/go-chat-sync/internal/securestore"
	"github.com/MKhiriev/go-chat-sync/internal/service"
	"github.com/MKhiriev/go-chat-sync/internal/store"
	"github.com/MKhiriev/go-chat-sync/internal/timers"
	"github.com/MKhiriev/go-chat-sync/internal/workers"
	"github.com/MKhiriev/go-chat-sync/models"
)

// App wires the client runtime together: local storage, the secret store,
// the event bus, the connectivity monitor, the session manager, the sync
// engine, and the realtime channel. It is the single entry point a UI or an
// embedding program talks to.
type App struct {
	log *logger.Logger

	bus      *events.Bus
	storages *store.Storages
	monitor  *netmon.Monitor
	session  *service.SessionManager
	engine   *service.SyncEngine
	realtime *adapter.RealtimeTransport
	workers  *workers.Workers

	mu     sync.Mutex
	cancel context.CancelFunc
}

// sessionCredentials defers the credential lookup: the HTTP and realtime
// transports need a CredentialSource before the session manager exists.
type sessionCredentials struct {
	mu      sync.RWMutex
	session *service.SessionManager
}

func (s *sessionCredentials) bind(m *service.SessionManager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = m
}

func (s *sessionCredentials) AccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	m := s.session
	s.mu.RUnlock()

	if m == nil {
		return "", service.ErrNotAuthenticated
	}

	return m.AccessToken(ctx)
}

func (s *sessionCredentials) DeviceID() string {
	s.mu.RLock()
	m := s.session
	s.mu.RUnlock()

	if m == nil {
		return ""
	}

	return m.DeviceID()
}

// NewApp assembles the client runtime from the config. It opens the local
// database and runs migrations; no network activity happens until Run.
func NewApp(cfg *config.ClientConfig, log *logger.Logger) (*App, error) {
	bus := events.NewBus(log)

	storages, err := store.NewStorages(cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	secrets := securestore.NewFileStore(cfg.Storage.Secrets.Path, cfg.Storage.Secrets.Passphrase)
	monitor := netmon.NewMonitor(cfg.Netmon.ProbeURL, cfg.Netmon.ProbeInterval, bus, log)

	credentials := &sessionCredentials{}

	requests, err := adapter.NewRequestClient(cfg.Adapter, credentials, log)
	if err != nil {
		return nil, fmt.Errorf("create request client: %w", err)
	}
	gateway := adapter.NewServerGateway(requests, log)

	session := service.NewSessionManager(gateway, secrets, bus, timers.NewSet(), cfg.App, log)
	credentials.bind(session)

	engine := service.NewSyncEngine(cfg.Sync, gateway, session, monitor, storages, bus, timers.NewSet(), log)
	realtime := adapter.NewRealtimeTransport(cfg.Realtime, credentials, monitor, bus, log)

	a := &App{
		log:      log,
		bus:      bus,
		storages: storages,
		monitor:  monitor,
		session:  session,
		engine:   engine,
		realtime: realtime,
	}
	a.workers = workers.New(
		workers.Fn(monitor.Run),
		workers.Fn(a.runRealtime),
	)

	return a, nil
}

// Run starts the background loops, restores a persisted session, and blocks
// until ctx is cancelled or Close is called. Teardown is orderly: triggers
// disarm first, then the loops drain, then the storage closes.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	a.workers.Run(runCtx)
	a.engine.Start(runCtx)

	if err := a.session.Restore(runCtx); err != nil {
		cancel()
		a.shutdown()

		return fmt.Errorf("restore session: %w", err)
	}

	if a.session.IsAuthenticated() {
		// Restore поднимает сессию молча, канал и первый проход дёргаем сами
		a.realtime.Connect(runCtx)
		if err := a.engine.Sync(runCtx); err != nil && !errors.Is(err, service.ErrSyncUnavailable) {
			a.log.Warn().Err(err).Str("func", "App.Run").Msg("initial sync failed")
		}
	}

	<-runCtx.Done()
	a.shutdown()

	return nil
}

// Close asks a running App to shut down. The active Run call performs the
// actual teardown and returns. Safe to call more than once.
func (a *App) Close() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Login authenticates against the server and warms the local replica with an
// immediate sync pass. A failed pass does not fail the login: the journal
// keeps local changes and the background triggers retry.
func (a *App) Login(ctx context.Context, email, password string) (models.User, error) {
	user, err := a.session.Login(ctx, email, password)
	if err != nil {
		return models.User{}, err
	}

	a.realtime.Connect(ctx)
	if err := a.engine.Sync(ctx); err != nil && !errors.Is(err, service.ErrSyncInProgress) {
		a.log.Warn().Err(err).Str("func", "App.Login").Msg("initial sync after login failed")
	}

	return user, nil
}

// Logout revokes the session on the server and forgets it locally.
func (a *App) Logout(ctx context.Context) error {
	return a.session.Logout(ctx)
}

// CurrentUser returns the authenticated user, if any.
func (a *App) CurrentUser() (models.User, bool) {
	return a.session.CurrentUser()
}

// SessionState reports the session lifecycle state.
func (a *App) SessionState() service.SessionState {
	return a.session.State()
}

// RecordLocalChange journals one local edit for upload and applies it to the
// local cache. Works offline.
func (a *App) RecordLocalChange(ctx context.Context, entityType models.EntityType, entityID string, action models.ChangeAction, payload json.RawMessage) (models.LocalChange, error) {
	return a.engine.RecordLocalChange(ctx, entityType, entityID, action, payload)
}

// ForceSync runs one sync pass right now.
func (a *App) ForceSync(ctx context.Context) error {
	return a.engine.Sync(ctx)
}

// SyncStatus reports a snapshot of the sync engine.
func (a *App) SyncStatus(ctx context.Context) service.SyncStatus {
	return a.engine.Status(ctx)
}

// Online reports the last known connectivity state.
func (a *App) Online() bool {
	return a.monitor.Online()
}

// Conflicts lists conflicts parked for manual resolution.
func (a *App) Conflicts(ctx context.Context) ([]models.Conflict, error) {
	return a.engine.Conflicts(ctx)
}

// ResolveConflict settles one parked conflict with the user's verdict.
func (a *App) ResolveConflict(ctx context.Context, clientID string, resolution service.Resolution) error {
	return a.engine.ResolveConflict(ctx, clientID, resolution)
}

// Events exposes the bus the runtime publishes on, for UI subscriptions.
func (a *App) Events() *events.Bus {
	return a.bus
}

// Realtime exposes the realtime channel for sends, requests, and event
// handlers.
func (a *App) Realtime() *adapter.RealtimeTransport {
	return a.realtime
}

func (a *App) runRealtime(ctx context.Context) {
	if err := a.realtime.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn().Err(err).Str("func", "App.runRealtime").Msg("realtime loop ended")
	}
}

func (a *App) shutdown() {
	a.engine.Stop()
	a.session.Close()
	a.realtime.Close()
	a.workers.Wait()

	if err := a.storages.Close(); err != nil {
		a.log.Warn().Err(err).Str("func", "App.shutdown").Msg("closing local storage")
	}
}
