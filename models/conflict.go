package models

import (
	"encoding/json"
	"time"
)

// ResolutionStrategy selects how a detected conflict is settled.
type ResolutionStrategy string

const (
	// ResolveServerWins discards the local change and applies the
	// server's record. This is the default strategy.
	ResolveServerWins ResolutionStrategy = "server-wins"

	// ResolveClientWins keeps the local journal entry queued for
	// re-upload, ignoring the server's reported state.
	ResolveClientWins ResolutionStrategy = "client-wins"

	// ResolveMerge deep-merges the server record into the local payload
	// and re-queues the merged result.
	ResolveMerge ResolutionStrategy = "merge"

	// ResolveManual persists the conflict for an explicit decision by
	// the caller.
	ResolveManual ResolutionStrategy = "manual"
)

// Valid reports whether s is one of the known strategies.
func (s ResolutionStrategy) Valid() bool {
	switch s {
	case ResolveServerWins, ResolveClientWins, ResolveMerge, ResolveManual:
		return true
	default:
		return false
	}
}

// Conflict captures a divergence between a local change and the server's
// current record, as reported by the upload endpoint. Manual conflicts are
// persisted until resolved explicitly.
type Conflict struct {
	// ClientID is the identifier of the local change that collided.
	ClientID string `json:"clientId"`

	// EntityType names the collection of the conflicting record.
	EntityType EntityType `json:"entityType"`

	// EntityID identifies the conflicting record.
	EntityID string `json:"entityId,omitempty"`

	// LocalPayload is the client's version of the record.
	LocalPayload json.RawMessage `json:"localPayload,omitempty"`

	// RemotePayload is the server's version of the record.
	RemotePayload json.RawMessage `json:"remotePayload,omitempty"`

	// RemoteVersion is the server revision of the record at detection time.
	RemoteVersion int64 `json:"remoteVersion,omitempty"`

	// DetectedAt is when the conflict was reported.
	DetectedAt time.Time `json:"detectedAt"`
}

// TableName returns table name of Conflict model
func (c Conflict) TableName() string {
	return "conflicts"
}
