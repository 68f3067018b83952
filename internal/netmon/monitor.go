// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package netmon tracks whether the server is reachable.
//
// The monitor combines two signals: a periodic HTTP health probe and
// explicit reports from components that already talk to the server (the
// realtime transport, the sync engine). Transitions are published on the
// event bus so the sync engine can flush as soon as connectivity returns.
package netmon

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-chat-sync/internal/events"
	"github.com/MKhiriev/go-chat-sync/internal/logger"
)

const probeTimeout = 5 * time.Second

// Monitor owns the online/offline state of the client.
type Monitor struct {
	http     *resty.Client
	probeURL string
	interval time.Duration
	bus      *events.Bus
	log      *logger.Logger

	mu     sync.RWMutex
	online bool
}

// NewMonitor returns a monitor probing probeURL every interval.
// The monitor starts offline until the first probe or report says otherwise.
func NewMonitor(probeURL string, interval time.Duration, bus *events.Bus, log *logger.Logger) *Monitor {
	return &Monitor{
		http:     resty.New().SetTimeout(probeTimeout),
		probeURL: probeURL,
		interval: interval,
		bus:      bus,
		log:      log,
	}
}

// Online reports the last known connectivity state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records a connectivity signal. Components that observe the
// network directly (a failed upload, an established realtime connection)
// call this instead of waiting for the next probe. A state transition is
// published as events.TopicOnlineStatus with a bool payload.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	m.mu.Unlock()

	m.log.Info().Bool("online", online).Msg("connectivity changed")
	m.bus.Publish(events.TopicOnlineStatus, online)
}

// Run probes the health endpoint until ctx is cancelled. The first probe
// fires immediately so startup does not wait a full interval.
func (m *Monitor) Run(ctx context.Context) {
	m.SetOnline(m.probe(ctx))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetOnline(m.probe(ctx))
		}
	}
}

// probe performs one health check. Any 2xx answer counts as online;
// transport errors and server-side failures count as offline.
func (m *Monitor) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	resp, err := m.http.R().SetContext(probeCtx).Get(m.probeURL)
	if err != nil {
		m.log.Debug().Err(err).Str("url", m.probeURL).Msg("health probe failed")
		return false
	}

	return resp.IsSuccess()
}
