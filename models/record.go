package models

import (
	"encoding/json"
	"time"
)

// Record is one row of the local entity cache. The cache mirrors server
// state per entity and is updated optimistically by local edits and
// authoritatively by downloaded changes.
type Record struct {
	// EntityType names the collection this record belongs to.
	EntityType EntityType `json:"entityType"`

	// EntityID is the entity identifier, unique within EntityType.
	EntityID string `json:"entityId"`

	// Payload is the JSON document of the entity as last known.
	Payload json.RawMessage `json:"payload"`

	// Version is the server-assigned version of the entity, zero while the
	// entity exists only locally.
	Version int64 `json:"version"`

	// UpdatedAt is when the record was last written locally.
	UpdatedAt time.Time `json:"updatedAt"`

	// Deleted marks a logically deleted record kept for sync bookkeeping.
	Deleted bool `json:"deleted"`
}

// TableName returns table name of Record model
func (r Record) TableName() string {
	return "records"
}
