package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dario.cat/mergo"

	"github.com/MKhiriev/go-chat-sync/internal/events"
	"github.com/MKhiriev/go-chat-sync/internal/logger"
	"github.com/MKhiriev/go-chat-sync/internal/store"
	"github.com/MKhiriev/go-chat-sync/models"
)

// ResolutionChoice selects the winning side of a manual resolution.
type ResolutionChoice string

const (
	// ChooseServer applies the server's record and discards the local one.
	ChooseServer ResolutionChoice = "server"

	// ChooseClient re-queues the local record for upload.
	ChooseClient ResolutionChoice = "client"

	// ChooseMerged re-queues a hand-merged document supplied by the caller.
	ChooseMerged ResolutionChoice = "merged"
)

// Resolution is the user's verdict on one parked conflict.
type Resolution struct {
	Choice ResolutionChoice `json:"choice"`

	// Payload is the merged document, required for [ChooseMerged].
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ResolveConflict settles one parked conflict with the user's verdict.
// Choosing the client or merged side journals the winning payload as a fresh
// update, so it uploads on the next pass.
//
// Returns [store.ErrConflictNotFound] when the client id names no parked
// conflict and [ErrUnknownResolution] for an unknown choice.
func (e *SyncEngine) ResolveConflict(ctx context.Context, clientID string, resolution Resolution) error {
	log := logger.FromContext(ctx)

	conflict, err := e.storages.Conflicts.Get(ctx, clientID)
	if err != nil {
		return err
	}

	switch resolution.Choice {
	case ChooseServer:
		if err := e.applyRemotePayload(ctx, conflict); err != nil {
			return err
		}

	case ChooseClient:
		if err := e.rejournal(ctx, conflict, conflict.LocalPayload); err != nil {
			return err
		}

	case ChooseMerged:
		if len(resolution.Payload) == 0 {
			return ErrMergedPayloadRequired
		}
		if err := e.rejournal(ctx, conflict, resolution.Payload); err != nil {
			return err
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownResolution, resolution.Choice)
	}

	if err := e.storages.Conflicts.Delete(ctx, clientID); err != nil {
		return err
	}

	log.Info().
		Str("func", "SyncEngine.ResolveConflict").
		Str("client_id", clientID).
		Str("choice", string(resolution.Choice)).
		Msg("conflict resolved")

	if resolution.Choice != ChooseServer {
		e.armDebounce()
	}

	return nil
}

// resolve applies the automatic strategy to one conflict reported by the
// upload endpoint. The returned flag says whether the conflicting journal
// entry was consumed: server-wins, merge, and manual all retire or replace
// it, client-wins leaves it queued untouched for the next pass.
func (e *SyncEngine) resolve(ctx context.Context, conflict models.Conflict) (bool, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Str("func", "SyncEngine.resolve").
		Str("client_id", conflict.ClientID).
		Str("entity_type", string(conflict.EntityType)).
		Str("strategy", string(e.defaultStrategy)).
		Msg("resolving reported conflict")

	switch e.defaultStrategy {
	case models.ResolveServerWins:
		if err := e.applyRemotePayload(ctx, conflict); err != nil {
			return false, err
		}
		if err := e.storages.Journal.Delete(ctx, conflict.ClientID); err != nil {
			return false, err
		}
		return true, nil

	case models.ResolveClientWins:
		// запись остаётся в журнале и уйдёт со следующей партией
		return false, nil

	case models.ResolveMerge:
		merged, ok, err := e.mergePayloads(conflict.LocalPayload, conflict.RemotePayload)
		if err != nil {
			return false, err
		}
		if !ok {
			// не-объектные документы не сливаются, отдаём пользователю
			return e.parkManual(ctx, conflict)
		}
		if err := e.requeueMerged(ctx, conflict, merged); err != nil {
			return false, err
		}
		return false, nil

	case models.ResolveManual:
		return e.parkManual(ctx, conflict)

	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownResolution, e.defaultStrategy)
	}
}

// parkManual stores the conflict for the user to settle and retires the
// journal entry so upload passes are not blocked behind it.
func (e *SyncEngine) parkManual(ctx context.Context, conflict models.Conflict) (bool, error) {
	if conflict.DetectedAt.IsZero() {
		conflict.DetectedAt = e.now()
	}

	if err := e.storages.Conflicts.Save(ctx, conflict); err != nil {
		return false, err
	}
	if err := e.storages.Journal.Delete(ctx, conflict.ClientID); err != nil {
		return false, err
	}

	e.bus.Publish(events.TopicConflictDetected, conflict)

	return true, nil
}

// requeueMerged replaces the queued payload with the merged one, keeping the
// original client id and creation time so journal ordering is untouched.
func (e *SyncEngine) requeueMerged(ctx context.Context, conflict models.Conflict, merged json.RawMessage) error {
	change, err := e.storages.Journal.Get(ctx, conflict.ClientID)
	if err != nil {
		return err
	}
	change.Payload = merged

	if err := e.storages.Journal.Delete(ctx, change.ClientID); err != nil {
		return err
	}
	if err := e.storages.Journal.Append(ctx, change); err != nil {
		return err
	}

	return e.storages.Records.Upsert(ctx, models.Record{
		EntityType: conflict.EntityType,
		EntityID:   conflict.EntityID,
		Payload:    merged,
		Version:    conflict.RemoteVersion,
		UpdatedAt:  e.now(),
	})
}

// mergePayloads deep-merges two JSON object payloads, local fields winning
// on overlap. Non-object payloads cannot be merged.
func (e *SyncEngine) mergePayloads(local, remote json.RawMessage) (json.RawMessage, bool, error) {
	var dst, src map[string]any
	if err := json.Unmarshal(local, &dst); err != nil || dst == nil {
		return nil, false, nil
	}
	if err := json.Unmarshal(remote, &src); err != nil || src == nil {
		return nil, false, nil
	}

	if err := mergo.Merge(&dst, src); err != nil {
		return nil, false, fmt.Errorf("merge payloads: %w", err)
	}

	merged, err := json.Marshal(dst)
	if err != nil {
		return nil, false, fmt.Errorf("marshal merged payload: %w", err)
	}

	return merged, true, nil
}

// rejournal queues the winning payload of a settled conflict as a fresh
// update. The original client id was already consumed by the conflicting
// upload, so the entry gets a new one.
func (e *SyncEngine) rejournal(ctx context.Context, conflict models.Conflict, payload json.RawMessage) error {
	change := models.LocalChange{
		ClientID:   e.uuid.Generate(),
		EntityType: conflict.EntityType,
		EntityID:   conflict.EntityID,
		Action:     models.ActionUpdate,
		Payload:    payload,
		CreatedAt:  e.now(),
	}

	if err := e.storages.Journal.Append(ctx, change); err != nil {
		return err
	}

	return e.storages.Records.Upsert(ctx, models.Record{
		EntityType: conflict.EntityType,
		EntityID:   conflict.EntityID,
		Payload:    payload,
		Version:    conflict.RemoteVersion,
		UpdatedAt:  change.CreatedAt,
	})
}

// applyRemotePayload replaces the cached row with the server's side of a
// conflict. An empty remote payload means the record is gone on the server.
func (e *SyncEngine) applyRemotePayload(ctx context.Context, conflict models.Conflict) error {
	if len(conflict.RemotePayload) == 0 || string(conflict.RemotePayload) == "null" {
		err := e.storages.Records.MarkDeleted(ctx, conflict.EntityType, conflict.EntityID)
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	return e.storages.Records.Upsert(ctx, models.Record{
		EntityType: conflict.EntityType,
		EntityID:   conflict.EntityID,
		Payload:    conflict.RemotePayload,
		Version:    conflict.RemoteVersion,
		UpdatedAt:  e.now(),
	})
}
