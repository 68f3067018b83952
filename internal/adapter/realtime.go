// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/MKhiriev/go-chat-sync/internal/config"
	"github.com/MKhiriev/go-chat-sync/internal/events"
	"github.com/MKhiriev/go-chat-sync/internal/logger"
	"github.com/MKhiriev/go-chat-sync/internal/utils"
	"github.com/MKhiriev/go-chat-sync/models"
	"github.com/coder/websocket"
)

const (
	// maxReconnectDelay caps the doubling reconnect backoff.
	maxReconnectDelay = 30 * time.Second

	// inboundQueueSize buffers frames between the reader goroutine and the
	// run loop.
	inboundQueueSize = 64
)

var (
	// errNotReady: no session or no network, connecting would be pointless.
	errNotReady = errors.New("realtime prerequisites not met")

	// errDeliberateClose: Close was called, the drop must not reconnect.
	errDeliberateClose = errors.New("deliberate close")
)

// ConnState is the lifecycle state of the realtime channel.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
	StateError        ConnState = "error"
)

// wsConn abstracts the WebSocket connection so the transport can be tested
// without a real server. *websocket.Conn satisfies this interface.
type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// dialFunc opens one WebSocket connection to the given endpoint.
type dialFunc func(ctx context.Context, endpoint string) (wsConn, error)

// inboundFrame wraps one raw frame read by the reader goroutine.
type inboundFrame struct {
	data []byte
	err  error
}

// RealtimeTransport is the persistent WebSocket channel to the messaging
// server. Every frame in both directions is one JSON [models.Envelope].
//
// Architecture: a reader goroutine feeds an inbound channel. A single run
// loop processes inbound frames, drains the outbound queue, and sends
// heartbeats. All writes to the socket happen from the run loop, so the
// socket needs no write mutex and pushes can never deadlock against
// request/response waits.
type RealtimeTransport struct {
	cfg    config.ClientRealtime
	source CredentialSource
	probe  ConnectivityProbe
	bus    *events.Bus
	dial   dialFunc
	uuid   *utils.UUIDGenerator
	logger *logger.Logger

	state   ConnState
	stateMu sync.RWMutex

	// queue holds outbound frames in send order until the run loop writes
	// them. It survives reconnects.
	queue   []models.Envelope
	queueMu sync.Mutex

	// wake tells the run loop the queue has frames. Capacity 1: one signal
	// is enough, the loop drains the whole queue.
	wake chan struct{}

	// pending maps a request id to the waiter of its response frame.
	pending   map[string]chan models.Envelope
	pendingMu sync.Mutex

	connectCh chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// NewRealtimeTransport constructs the realtime channel. source supplies the
// token and device id attached to the dial URL, probe gates connecting on
// network reachability (nil disables the gate), and every state transition
// and inbound event is published on bus.
func NewRealtimeTransport(cfg config.ClientRealtime, source CredentialSource, probe ConnectivityProbe, bus *events.Bus, log *logger.Logger) *RealtimeTransport {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = config.DefaultConnectTimeout
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = config.DefaultHeartbeatInterval
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = config.DefaultResponseTimeout
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = config.DefaultReconnectDelay
	}
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = config.DefaultMaxReconnects
	}

	return &RealtimeTransport{
		cfg:       cfg,
		source:    source,
		probe:     probe,
		bus:       bus,
		dial:      dialWebsocket,
		uuid:      utils.NewUUIDGenerator(),
		logger:    log,
		state:     StateDisconnected,
		pending:   make(map[string]chan models.Envelope),
		wake:      make(chan struct{}, 1),
		connectCh: make(chan struct{}, 1),
		closed:    make(chan struct{}),
	}
}

// Run owns the connection lifecycle until ctx is cancelled or Close is
// called. It waits for a connect trigger, dials, serves the connection, and
// reconnects with backoff on unexpected drops. Connectivity regained and
// re-auth act as triggers too, so an exhausted backoff budget (error state)
// ends as soon as the outside world changes.
func (t *RealtimeTransport) Run(ctx context.Context) error {
	subs := []*events.Subscription{
		t.bus.Subscribe(events.TopicOnlineStatus, func(ev events.Event) {
			if online, ok := ev.Payload.(bool); ok && online {
				t.Connect(ctx)
			}
		}),
		t.bus.Subscribe(events.TopicLoginSucceeded, func(events.Event) { t.Connect(ctx) }),
		t.bus.Subscribe(events.TopicTokenRefreshed, func(events.Event) { t.Connect(ctx) }),
	}
	defer func() {
		for _, sub := range subs {
			sub.Cancel()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			t.setState(StateDisconnected)
			return ctx.Err()
		case <-t.closed:
			t.setState(StateDisconnected)
			return nil
		case <-t.connectCh:
		}

		t.runSession(ctx)
	}
}

// runSession drives one connect/serve/reconnect cycle. It returns when the
// transport goes back to waiting for a trigger: prerequisites missing,
// deliberate close, ctx cancelled, or the reconnect budget exhausted.
func (t *RealtimeTransport) runSession(ctx context.Context) {
	attempts := 0
	backoff := t.cfg.ReconnectDelay

	for {
		conn, err := t.connectOnce(ctx)
		switch {
		case err == nil:
			attempts = 0
			backoff = t.cfg.ReconnectDelay

			serveErr := t.serveConn(ctx, conn)
			if errors.Is(serveErr, errDeliberateClose) || ctx.Err() != nil {
				t.setState(StateDisconnected)
				return
			}

			t.logger.Warn().
				Str("func", "RealtimeTransport.runSession").
				Err(serveErr).
				Msg("connection lost, reconnecting")

		case errors.Is(err, errNotReady):
			t.setState(StateDisconnected)
			return

		default:
			attempts++
			t.logger.Warn().
				Str("func", "RealtimeTransport.runSession").
				Err(err).
				Int("attempt", attempts).
				Msg("connect failed")

			if attempts > t.cfg.MaxReconnects {
				t.logger.Error().
					Str("func", "RealtimeTransport.runSession").
					Int("attempts", attempts-1).
					Msg("reconnect attempts exhausted")
				t.setState(StateError)
				return
			}
		}

		// The connection dropped or the dial failed: back off, then try
		// again. An external trigger during the wait resets the budget.
		t.setState(StateReconnecting)

		reset, ok := t.waitReconnect(ctx, backoff)
		if !ok {
			t.setState(StateDisconnected)
			return
		}
		if reset {
			attempts = 0
			backoff = t.cfg.ReconnectDelay
		} else {
			backoff = min(backoff*2, maxReconnectDelay)
		}
	}
}

// waitReconnect sleeps for delay before the next attempt. Reports
// reset=true when an external connect trigger short-circuited the wait,
// ok=false when the transport is shutting down.
func (t *RealtimeTransport) waitReconnect(ctx context.Context, delay time.Duration) (reset, ok bool) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false, false
	case <-t.closed:
		return false, false
	case <-timer.C:
		return false, true
	case <-t.connectCh:
		return true, true
	}
}

// connectOnce checks the preconditions and dials once. Returns errNotReady
// when there is no session or no network; that is not a failed attempt.
func (t *RealtimeTransport) connectOnce(ctx context.Context) (wsConn, error) {
	token, err := t.source.AccessToken(ctx)
	if err != nil || token == "" {
		t.logger.Debug().
			Str("func", "RealtimeTransport.connectOnce").
			Msg("no active session, not connecting")
		return nil, errNotReady
	}
	if t.probe != nil && !t.probe.Online() {
		t.logger.Debug().
			Str("func", "RealtimeTransport.connectOnce").
			Msg("offline, not connecting")
		return nil, errNotReady
	}

	t.setState(StateConnecting)

	endpoint, err := realtimeURL(t.cfg.Address, token, t.source.DeviceID())
	if err != nil {
		return nil, fmt.Errorf("invalid realtime address: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.ConnectTimeout)
	defer cancel()

	conn, err := t.dial(dialCtx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dialing websocket: %w", err)
	}

	return conn, nil
}

// serveConn runs the reader and the event loop for one connection and
// closes the socket when the loop exits.
func (t *RealtimeTransport) serveConn(ctx context.Context, conn wsConn) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	inbound := t.startReader(connCtx, conn)

	t.setState(StateConnected)

	err := t.eventLoop(ctx, conn, inbound)

	if errors.Is(err, errDeliberateClose) {
		conn.Close(websocket.StatusNormalClosure, "client closing")
	} else {
		conn.Close(websocket.StatusGoingAway, "connection reset")
	}

	return err
}

// startReader launches the goroutine that reads frames from the socket and
// feeds the returned channel. A read error is delivered as the final
// message. conn and the channel are captured by value so a stale reader
// from a previous connection can never feed the current loop.
func (t *RealtimeTransport) startReader(connCtx context.Context, conn wsConn) <-chan inboundFrame {
	ch := make(chan inboundFrame, inboundQueueSize)

	go func() {
		for {
			_, data, err := conn.Read(connCtx)
			select {
			case ch <- inboundFrame{data: data, err: err}:
			case <-connCtx.Done():
				return
			}

			if err != nil {
				return
			}
		}
	}()

	return ch
}

// eventLoop is the single owner of all writes on one connection. It flushes
// the outbound queue, dispatches inbound frames, and sends heartbeats.
// Returns on read/write error, deliberate close, or ctx cancellation.
func (t *RealtimeTransport) eventLoop(ctx context.Context, conn wsConn, inbound <-chan inboundFrame) error {
	// Queued frames first: the queue preserves send order across reconnects.
	if err := t.flushQueue(ctx, conn); err != nil {
		return err
	}

	heartbeat := time.NewTicker(t.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case frame := <-inbound:
			if frame.err != nil {
				return fmt.Errorf("reading frame: %w", frame.err)
			}
			t.handleInbound(frame.data)

		case <-t.wake:
			if err := t.flushQueue(ctx, conn); err != nil {
				return err
			}

		case <-heartbeat.C:
			env := models.Envelope{Type: models.FrameEvent, Event: models.EventHeartbeat}
			if err := t.writeEnvelope(ctx, conn, env); err != nil {
				return fmt.Errorf("sending heartbeat: %w", err)
			}

		case <-ctx.Done():
			return ctx.Err()

		case <-t.closed:
			return errDeliberateClose
		}
	}
}

// handleInbound dispatches one decoded frame. Undecodable frames are
// dropped; the connection stays up.
func (t *RealtimeTransport) handleInbound(data []byte) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.logger.Debug().
			Str("func", "RealtimeTransport.handleInbound").
			Int("bytes", len(data)).
			Msg("frame failed to decode, dropping")
		return
	}

	switch env.Type {
	case models.FrameResponse:
		t.resolvePending(env)

	case models.FrameEvent:
		if env.Event == models.EventHeartbeat {
			return
		}

		topic := events.RealtimePrefix + env.Event
		if t.bus.SubscriberCount(topic) == 0 {
			t.logger.Debug().
				Str("func", "RealtimeTransport.handleInbound").
				Str("event", env.Event).
				Msg("no listeners for event, dropping")
			return
		}
		t.bus.Publish(topic, env)

	default:
		t.logger.Debug().
			Str("func", "RealtimeTransport.handleInbound").
			Str("type", string(env.Type)).
			Msg("unexpected frame type, dropping")
	}
}

// resolvePending hands a response frame to its waiter, if one is still
// registered.
func (t *RealtimeTransport) resolvePending(env models.Envelope) {
	t.pendingMu.Lock()
	waiter, ok := t.pending[env.RequestID]
	if ok {
		delete(t.pending, env.RequestID)
	}
	t.pendingMu.Unlock()

	if !ok {
		t.logger.Debug().
			Str("func", "RealtimeTransport.resolvePending").
			Str("request_id", env.RequestID).
			Msg("response for unknown request, dropping")
		return
	}

	waiter <- env
}

// flushQueue writes queued frames oldest first. A write failure puts the
// frame back at the head so it survives the reconnect.
func (t *RealtimeTransport) flushQueue(ctx context.Context, conn wsConn) error {
	for {
		t.queueMu.Lock()
		if len(t.queue) == 0 {
			t.queueMu.Unlock()
			return nil
		}
		env := t.queue[0]
		t.queue = t.queue[1:]
		t.queueMu.Unlock()

		if err := t.writeEnvelope(ctx, conn, env); err != nil {
			t.queueMu.Lock()
			t.queue = append([]models.Envelope{env}, t.queue...)
			t.queueMu.Unlock()

			return fmt.Errorf("flushing queued frame: %w", err)
		}
	}
}

func (t *RealtimeTransport) writeEnvelope(ctx context.Context, conn wsConn, env models.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	return conn.Write(ctx, websocket.MessageText, data)
}

// Connect asks the run loop to establish the channel. It is a trigger, not
// a blocking dial: when the session is not authenticated or the network is
// offline the loop logs and stays disconnected.
func (t *RealtimeTransport) Connect(ctx context.Context) {
	select {
	case t.connectCh <- struct{}{}:
	default:
	}
}

// Close shuts the transport down for good: the run loop closes the socket
// with a normal closure and never reconnects. Safe to call more than once.
func (t *RealtimeTransport) Close() {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
}

// Send queues env for delivery and returns immediately. While connected the
// run loop writes it in order; while disconnected the frame waits in the
// outbound queue and is flushed on the next successful connect.
func (t *RealtimeTransport) Send(ctx context.Context, env models.Envelope) error {
	select {
	case <-t.closed:
		return ErrTransportClosed
	default:
	}

	if env.Type == "" {
		env.Type = models.FrameEvent
	}

	t.enqueue(env)

	return nil
}

// Request sends a request frame and waits for the correlated response
// frame. The request id is assigned here; after ResponseTimeout the waiter
// is dropped and [ErrRequestTimeout] returned, a late response is then
// discarded by the run loop.
func (t *RealtimeTransport) Request(ctx context.Context, env models.Envelope) (json.RawMessage, error) {
	select {
	case <-t.closed:
		return nil, ErrTransportClosed
	default:
	}

	env.Type = models.FrameRequest
	if env.RequestID == "" {
		env.RequestID = t.uuid.Generate()
	}

	waiter := make(chan models.Envelope, 1)
	t.pendingMu.Lock()
	t.pending[env.RequestID] = waiter
	t.pendingMu.Unlock()

	t.enqueue(env)

	timeout := time.NewTimer(t.cfg.ResponseTimeout)
	defer timeout.Stop()

	select {
	case resp := <-waiter:
		if resp.Event == models.EventError {
			return nil, realtimeError(resp.Data)
		}
		return resp.Data, nil

	case <-timeout.C:
		t.dropPending(env.RequestID)
		return nil, fmt.Errorf("%w: %s", ErrRequestTimeout, env.Event)

	case <-ctx.Done():
		t.dropPending(env.RequestID)
		return nil, ctx.Err()

	case <-t.closed:
		t.dropPending(env.RequestID)
		return nil, ErrTransportClosed
	}
}

// On subscribes handler to inbound frames of one event type. Dispatch goes
// through the shared bus under the realtime.<event> topic, so handlers get
// the same ordering and panic-isolation guarantees as any bus subscriber.
func (t *RealtimeTransport) On(event string, handler func(models.Envelope)) *events.Subscription {
	return t.bus.Subscribe(events.RealtimePrefix+event, func(ev events.Event) {
		if env, ok := ev.Payload.(models.Envelope); ok {
			handler(env)
		}
	})
}

// State returns the current connection state.
func (t *RealtimeTransport) State() ConnState {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()

	return t.state
}

func (t *RealtimeTransport) enqueue(env models.Envelope) {
	t.queueMu.Lock()
	t.queue = append(t.queue, env)
	t.queueMu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *RealtimeTransport) dropPending(requestID string) {
	t.pendingMu.Lock()
	delete(t.pending, requestID)
	t.pendingMu.Unlock()
}

// setState records a transition and publishes it. Same-state calls are
// no-ops so subscribers only see transitions.
func (t *RealtimeTransport) setState(state ConnState) {
	t.stateMu.Lock()
	if t.state == state {
		t.stateMu.Unlock()
		return
	}
	prev := t.state
	t.state = state
	t.stateMu.Unlock()

	t.logger.Info().
		Str("func", "RealtimeTransport.setState").
		Str("from", string(prev)).
		Str("to", string(state)).
		Msg("realtime state changed")

	t.bus.Publish(events.TopicRealtimeState, state)
}

// realtimeError decodes an error response frame into the shared taxonomy.
func realtimeError(data json.RawMessage) error {
	var body models.APIErrorBody
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		return &APIError{Kind: KindServer, Message: "realtime request rejected", Timestamp: time.Now()}
	}

	return &APIError{Kind: KindServer, Message: body.Message, RequestID: body.RequestID, Timestamp: time.Now()}
}

// realtimeURL attaches the auth token and device id to the configured
// websocket endpoint.
func realtimeURL(address, token, deviceID string) (string, error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("token", token)
	q.Set("deviceId", deviceID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
