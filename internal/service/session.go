// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package service contains the client-side domain logic: the session
// manager owning the credential lifecycle and the sync engine reconciling
// the local journal with the server.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MKhiriev/go-chat-sync/internal/adapter"
	"github.com/MKhiriev/go-chat-sync/internal/config"
	"github.com/MKhiriev/go-chat-sync/internal/events"
	"github.com/MKhiriev/go-chat-sync/internal/logger"
	"github.com/MKhiriev/go-chat-sync/internal/securestore"
	"github.com/MKhiriev/go-chat-sync/internal/timers"
	"github.com/MKhiriev/go-chat-sync/internal/utils"
	"github.com/MKhiriev/go-chat-sync/internal/validators"
	"github.com/MKhiriev/go-chat-sync/models"
)

// SessionState is the lifecycle phase of the client session.
type SessionState string

const (
	SessionUnauthenticated SessionState = "unauthenticated"
	SessionAuthenticating  SessionState = "authenticating"
	SessionAuthenticated   SessionState = "authenticated"
	SessionRefreshing      SessionState = "refreshing"
)

const (
	// expiryBuffer treats a token as expired this long before its real
	// expiry, so a request in flight does not land with a stale token.
	expiryBuffer = 5 * time.Minute

	// renewalLead schedules the proactive refresh this long before expiry.
	renewalLead = 10 * time.Minute

	// fallbackTokenTTL is assumed when the server reports no lifetime and
	// the access token carries no readable expiry claim.
	fallbackTokenTTL = time.Hour
)

// SessionManager owns the authentication lifecycle: login, token storage,
// proactive and on-demand refresh, restore on startup, and logout. It is the
// single owner of the credential; the transports pull tokens through the
// [adapter.CredentialSource] methods instead of holding copies.
type SessionManager struct {
	gateway   adapter.ServerGateway
	secrets   securestore.SecretStore
	bus       *events.Bus
	timers    *timers.Set
	validator validators.Validator
	uuid      *utils.UUIDGenerator
	logger    *logger.Logger

	app config.ClientApp
	now func() time.Time

	refreshGroup singleflight.Group

	mu         sync.RWMutex
	state      SessionState
	credential models.Credential
	user       models.User
	hasUser    bool
	deviceID   string
	renew      *timers.Task
}

// SessionOption customises a SessionManager.
type SessionOption func(*SessionManager)

// WithNow replaces the wall clock. Tests use it to pin token lifetimes.
func WithNow(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// NewSessionManager constructs a session manager. The timer set must be
// dedicated to this manager: logout stops every task in it.
func NewSessionManager(gateway adapter.ServerGateway, secrets securestore.SecretStore, bus *events.Bus, set *timers.Set, app config.ClientApp, log *logger.Logger, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		gateway:   gateway,
		secrets:   secrets,
		bus:       bus,
		timers:    set,
		validator: validators.NewAuthValidator(),
		uuid:      utils.NewUUIDGenerator(),
		logger:    log,
		app:       app,
		now:       time.Now,
		state:     SessionUnauthenticated,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// State returns the current lifecycle phase.
func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// CurrentUser returns the authenticated account, when the server reported
// one.
func (m *SessionManager) CurrentUser() (models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.user, m.hasUser
}

// IsAuthenticated reports whether a session exists that can still produce a
// token, possibly after a refresh.
func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != SessionAuthenticated && m.state != SessionRefreshing {
		return false
	}

	return m.credential.AccessToken != "" || m.credential.Refreshable()
}

// DeviceID returns the stable identifier of this installation. Empty until
// Login or Restore ran.
func (m *SessionManager) DeviceID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.deviceID
}

// Login authenticates against the server and establishes the session.
//
// Returns the authenticated user or:
//   - a validators error if email, password, or device id is unacceptable;
//   - [ErrLoginInProgress] if another login has not finished yet;
//   - the gateway error otherwise, with [events.TopicLoginFailed] published.
func (m *SessionManager) Login(ctx context.Context, email, password string) (models.User, error) {
	log := logger.FromContext(ctx)

	deviceID, err := m.ensureDeviceID(ctx)
	if err != nil {
		return models.User{}, err
	}

	req := models.LoginRequest{
		Email:      email,
		Password:   password,
		DeviceID:   deviceID,
		DeviceInfo: m.deviceInfo(),
	}
	if err := m.validator.Validate(ctx, req, validators.FieldEmail, validators.FieldPassword, validators.FieldDeviceID); err != nil {
		return models.User{}, fmt.Errorf("validate login request: %w", err)
	}

	m.mu.Lock()
	if m.state == SessionAuthenticating {
		m.mu.Unlock()
		return models.User{}, ErrLoginInProgress
	}
	m.state = SessionAuthenticating
	m.mu.Unlock()

	payload, err := m.gateway.Login(ctx, req)
	if err != nil {
		m.mu.Lock()
		m.state = SessionUnauthenticated
		m.mu.Unlock()

		log.Warn().Err(err).
			Str("func", "SessionManager.Login").
			Str("email", email).
			Msg("login rejected")
		m.bus.Publish(events.TopicLoginFailed, err)
		return models.User{}, fmt.Errorf("login: %w", err)
	}

	cred := m.credentialFrom(payload)

	var user models.User
	if payload.User != nil {
		user = *payload.User
	}

	m.mu.Lock()
	m.state = SessionAuthenticated
	m.credential = cred
	m.user = user
	m.hasUser = payload.User != nil
	m.mu.Unlock()

	m.persistSession(ctx, cred, payload.User)
	m.scheduleRenewal(cred.ExpiresAt)

	log.Info().
		Str("func", "SessionManager.Login").
		Str("user_id", user.ID).
		Str("device_id", deviceID).
		Msg("login succeeded")
	m.bus.Publish(events.TopicLoginSucceeded, user)

	return user, nil
}

// Refresh exchanges the refresh token for a fresh pair. Concurrent callers
// share one in-flight exchange. A definitive rejection by the server ends
// the session and publishes [events.TopicSessionExpired]; a transient
// failure leaves the session untouched.
func (m *SessionManager) Refresh(ctx context.Context) error {
	_, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx)
	})

	return err
}

func (m *SessionManager) refresh(ctx context.Context) error {
	log := logger.FromContext(ctx)

	m.mu.Lock()
	if !m.credential.Refreshable() {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	prevState := m.state
	refreshToken := m.credential.RefreshToken
	m.state = SessionRefreshing
	m.mu.Unlock()

	payload, err := m.gateway.Refresh(ctx, refreshToken)
	if err != nil {
		// 401/422 means the refresh token itself is dead; anything else
		// may be a passing failure and keeps the session.
		if errors.Is(err, adapter.ErrAuth) || errors.Is(err, adapter.ErrValidation) {
			log.Warn().Err(err).
				Str("func", "SessionManager.refresh").
				Msg("refresh token rejected, session expired")
			m.clearSession(ctx)
			m.bus.Publish(events.TopicSessionExpired, err)
			return fmt.Errorf("session expired: %w", err)
		}

		m.mu.Lock()
		m.state = prevState
		m.mu.Unlock()
		return fmt.Errorf("refresh: %w", err)
	}

	cred := m.credentialFrom(payload)

	m.mu.Lock()
	m.state = SessionAuthenticated
	m.credential = cred
	if payload.User != nil {
		m.user = *payload.User
		m.hasUser = true
	}
	m.mu.Unlock()

	m.persistSession(ctx, cred, payload.User)
	m.scheduleRenewal(cred.ExpiresAt)

	m.bus.Publish(events.TopicTokenRefreshed, cred)

	return nil
}

// AccessToken returns a token good for at least the expiry buffer,
// refreshing the pair first when the stored one is too close to expiry.
// Returns [ErrNotAuthenticated] when no usable session exists.
func (m *SessionManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	cred := m.credential
	m.mu.RUnlock()

	if cred.Usable(m.now(), expiryBuffer) {
		return cred.AccessToken, nil
	}
	if !cred.Refreshable() {
		return "", ErrNotAuthenticated
	}

	if err := m.Refresh(ctx); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.credential.AccessToken == "" {
		return "", ErrNotAuthenticated
	}

	return m.credential.AccessToken, nil
}

// Logout ends the session. The server call is best effort: local state is
// cleared and [events.TopicLoggedOut] published even when the server is
// unreachable.
func (m *SessionManager) Logout(ctx context.Context) error {
	log := logger.FromContext(ctx)

	m.mu.RLock()
	deviceID := m.deviceID
	active := m.state == SessionAuthenticated || m.state == SessionRefreshing
	m.mu.RUnlock()

	if active && deviceID != "" {
		if err := m.gateway.Logout(ctx, deviceID); err != nil {
			log.Warn().Err(err).
				Str("func", "SessionManager.Logout").
				Msg("server-side logout failed, clearing local session anyway")
		}
	}

	m.clearSession(ctx)
	m.bus.Publish(events.TopicLoggedOut, nil)

	return nil
}

// Restore rebuilds the session from the secret store at startup. A usable
// credential authenticates immediately; an expired one with a refresh token
// authenticates and refreshes silently. Restore publishes no events: it runs
// before anyone subscribes.
func (m *SessionManager) Restore(ctx context.Context) error {
	log := logger.FromContext(ctx)

	if _, err := m.ensureDeviceID(ctx); err != nil {
		return err
	}

	raw, err := m.secrets.Get(ctx, securestore.KeyCredential)
	if errors.Is(err, securestore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load stored credential: %w", err)
	}

	var cred models.Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		log.Warn().Err(err).
			Str("func", "SessionManager.Restore").
			Msg("stored credential is corrupted, dropping it")
		m.deleteStoredSession(ctx)
		return nil
	}

	user, hasUser := m.loadIdentity(ctx)

	switch {
	case cred.Usable(m.now(), expiryBuffer):
		m.adopt(cred, user, hasUser)
		m.scheduleRenewal(cred.ExpiresAt)
		log.Info().
			Str("func", "SessionManager.Restore").
			Msg("session restored")

	case cred.Refreshable():
		m.adopt(cred, user, hasUser)
		if err := m.Refresh(ctx); err != nil {
			log.Warn().Err(err).
				Str("func", "SessionManager.Restore").
				Msg("silent refresh of restored session failed")
		}

	default:
		log.Info().
			Str("func", "SessionManager.Restore").
			Msg("stored session is no longer usable, dropping it")
		m.deleteStoredSession(ctx)
	}

	return nil
}

// Close stops the scheduled renewal. The stored session survives for the
// next Restore.
func (m *SessionManager) Close() {
	m.timers.StopAll()
}

// adopt installs a restored credential as the live session.
func (m *SessionManager) adopt(cred models.Credential, user models.User, hasUser bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = SessionAuthenticated
	m.credential = cred
	m.user = user
	m.hasUser = hasUser
}

// credentialFrom derives the stored credential from an auth payload. Expiry
// preference: the explicit expires_in, then the token's own exp claim, then
// a conservative fallback.
func (m *SessionManager) credentialFrom(payload models.AuthPayload) models.Credential {
	now := m.now()

	cred := models.Credential{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    payload.TokenType,
	}
	if cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}

	if payload.ExpiresIn > 0 {
		cred.ExpiresAt = now.Add(time.Duration(payload.ExpiresIn) * time.Second)
		return cred
	}

	expiry, err := utils.TokenExpiry(payload.AccessToken)
	if err != nil {
		m.logger.Warn().Err(err).
			Str("func", "SessionManager.credentialFrom").
			Msg("token carries no readable expiry, assuming fallback lifetime")
		expiry = now.Add(fallbackTokenTTL)
	}
	cred.ExpiresAt = expiry

	return cred
}

// persistSession stores the credential and identity. Persistence failures
// are logged, not returned: the in-memory session stays valid either way.
func (m *SessionManager) persistSession(ctx context.Context, cred models.Credential, user *models.User) {
	log := logger.FromContext(ctx)

	raw, err := json.Marshal(cred)
	if err == nil {
		err = m.secrets.Set(ctx, securestore.KeyCredential, string(raw))
	}
	if err != nil {
		log.Warn().Err(err).
			Str("func", "SessionManager.persistSession").
			Msg("failed to persist credential")
	}

	if user == nil {
		return
	}

	raw, err = json.Marshal(user)
	if err == nil {
		err = m.secrets.Set(ctx, securestore.KeyIdentity, string(raw))
	}
	if err != nil {
		log.Warn().Err(err).
			Str("func", "SessionManager.persistSession").
			Msg("failed to persist identity")
	}
}

// loadIdentity reads the stored account, if any.
func (m *SessionManager) loadIdentity(ctx context.Context) (models.User, bool) {
	raw, err := m.secrets.Get(ctx, securestore.KeyIdentity)
	if err != nil {
		return models.User{}, false
	}

	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return models.User{}, false
	}

	return user, true
}

// scheduleRenewal arms the proactive refresh. A previous renewal is stopped
// first so at most one is ever pending.
func (m *SessionManager) scheduleRenewal(expiresAt time.Time) {
	delay := expiresAt.Sub(m.now()) - renewalLead
	if delay < 0 {
		delay = 0
	}

	m.mu.Lock()
	m.renew.Stop()
	m.renew = m.timers.AfterFunc(delay, func() {
		if err := m.Refresh(context.Background()); err != nil {
			m.logger.Warn().Err(err).
				Str("func", "SessionManager.scheduleRenewal").
				Msg("scheduled token renewal failed")
		}
	})
	m.mu.Unlock()
}

// clearSession drops the in-memory session and the stored secrets. The
// device id survives: it identifies the installation, not the session.
func (m *SessionManager) clearSession(ctx context.Context) {
	m.timers.StopAll()

	m.mu.Lock()
	m.state = SessionUnauthenticated
	m.credential = models.Credential{}
	m.user = models.User{}
	m.hasUser = false
	m.renew = nil
	m.mu.Unlock()

	m.deleteStoredSession(ctx)
}

func (m *SessionManager) deleteStoredSession(ctx context.Context) {
	for _, key := range []string{securestore.KeyCredential, securestore.KeyIdentity} {
		if err := m.secrets.Delete(ctx, key); err != nil {
			m.logger.Warn().Err(err).
				Str("func", "SessionManager.deleteStoredSession").
				Str("key", key).
				Msg("failed to delete stored secret")
		}
	}
}

// ensureDeviceID loads the stable device id, generating and persisting one
// on first run.
func (m *SessionManager) ensureDeviceID(ctx context.Context) (string, error) {
	m.mu.RLock()
	id := m.deviceID
	m.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	stored, err := m.secrets.Get(ctx, securestore.KeyDeviceID)
	switch {
	case err == nil && stored != "":
		id = stored
	case err != nil && !errors.Is(err, securestore.ErrNotFound):
		return "", fmt.Errorf("load device id: %w", err)
	default:
		id = m.uuid.Generate()
		if err := m.secrets.Set(ctx, securestore.KeyDeviceID, id); err != nil {
			return "", fmt.Errorf("persist device id: %w", err)
		}
	}

	m.mu.Lock()
	m.deviceID = id
	m.mu.Unlock()

	return id, nil
}

// deviceInfo composes the free-form device description sent at login.
func (m *SessionManager) deviceInfo() string {
	info := m.app.DeviceName
	if m.app.Version != "" {
		info = strings.TrimSpace(info + " v" + m.app.Version)
	}

	return info
}
