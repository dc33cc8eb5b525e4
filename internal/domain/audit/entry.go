package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

// Changes holds optional before/after snapshots of the mutated entity
type Changes struct {
	Before json.RawMessage `json:"before,omitempty" bson:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty" bson:"after,omitempty"`
}

// Entry is one line of the append-only audit trail. Entries are written for
// every successful mutation and are never updated or deleted.
type Entry struct {
	ID            uuid.UUID          `json:"id" bson:"id"`
	Timestamp     time.Time          `json:"timestamp" bson:"timestamp"`
	Actor         string             `json:"actor" bson:"actor"`
	Action        shared.AuditAction `json:"action" bson:"action"`
	Entity        string             `json:"entity" bson:"entity"`
	EntityID      string             `json:"entity_id" bson:"entity_id"`
	Details       string             `json:"details" bson:"details"`
	Changes       Changes            `json:"changes" bson:"changes"`
	CorrelationID string             `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
}

// NewEntry builds an audit entry, marshalling the before/after snapshots.
// Either snapshot may be nil (creates have no before, deletes no after).
func NewEntry(actor string, action shared.AuditAction, entity, entityID, details string, before, after interface{}) (*Entry, error) {
	e := &Entry{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Actor:     actor,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
	}

	if before != nil {
		raw, err := json.Marshal(before)
		if err != nil {
			return nil, err
		}
		e.Changes.Before = raw
	}
	if after != nil {
		raw, err := json.Marshal(after)
		if err != nil {
			return nil, err
		}
		e.Changes.After = raw
	}

	return e, nil
}
