package models

import (
	"encoding/json"
	"time"
)

// LocalChange is a single journaled local mutation waiting to be uploaded.
// Entries are written to the journal before the recording call returns,
// so a crash never loses an accepted change.
type LocalChange struct {
	// ClientID is the client-generated unique identifier of the change.
	// The server echoes it back in acks and conflicts.
	ClientID string `json:"clientId"`

	// EntityType names the collection the change belongs to.
	EntityType EntityType `json:"entityType"`

	// EntityID identifies the affected record. For creates it is the
	// locally assigned identifier the server may replace.
	EntityID string `json:"entityId,omitempty"`

	// Action is the mutation verb.
	Action ChangeAction `json:"action"`

	// Payload is the opaque JSON body of the mutation. Empty for deletes.
	Payload json.RawMessage `json:"payload,omitempty"`

	// CreatedAt orders uploads: entries for the same entity are applied
	// on the server in creation order.
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns table name of LocalChange model
func (c LocalChange) TableName() string {
	return "change_journal"
}

// RemoteChange is a single server-side mutation delivered by the
// incremental download endpoint.
type RemoteChange struct {
	// EntityType names the collection the change belongs to.
	EntityType EntityType `json:"entityType"`

	// EntityID identifies the affected record.
	EntityID string `json:"entityId"`

	// Action is the mutation verb.
	Action ChangeAction `json:"action"`

	// Payload is the full record body for create/update, empty for delete.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Version is the server's monotonically increasing revision of the
	// record, used for last-writer checks when applying.
	Version int64 `json:"version"`

	// Timestamp is the server-side instant of the change. The sync cursor
	// advances to the largest timestamp of a fully applied page.
	Timestamp time.Time `json:"timestamp"`

	// SourceDeviceID identifies the device that produced the change.
	// Changes originating from this device may be skipped on apply.
	SourceDeviceID string `json:"sourceDeviceId,omitempty"`
}

// ChangeAck is the server's acknowledgement of one uploaded change.
type ChangeAck struct {
	// ClientID echoes LocalChange.ClientID.
	ClientID string `json:"clientId"`

	// EntityID is the authoritative identifier of the record, which may
	// differ from the locally assigned one for creates.
	EntityID string `json:"entityId,omitempty"`

	// Payload is the server's canonical record body after applying the
	// change (server-assigned metadata merged in). Optional.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Version is the record revision after the change was applied.
	Version int64 `json:"version,omitempty"`
}
