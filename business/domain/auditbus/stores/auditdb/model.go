package auditdb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/auditbus"
)

type eventDB struct {
	ID          uuid.UUID     `db:"event_id"`
	ActorID     uuid.NullUUID `db:"actor_id"`
	WorkspaceID uuid.NullUUID `db:"workspace_id"`
	Action      string        `db:"action"`
	TargetID    string        `db:"target_id"`
	Metadata    []byte        `db:"metadata"`
	CreatedAt   time.Time     `db:"created_at"`
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}

	return uuid.NullUUID{UUID: *id, Valid: true}
}

func fromNullUUID(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}

	id := n.UUID
	return &id
}

func toDBEvent(bus auditbus.Event) (eventDB, error) {
	md, err := json.Marshal(bus.Metadata)
	if err != nil {
		return eventDB{}, fmt.Errorf("marshal metadata: %w", err)
	}

	db := eventDB{
		ID:          bus.ID,
		ActorID:     toNullUUID(bus.ActorID),
		WorkspaceID: toNullUUID(bus.WorkspaceID),
		Action:      bus.Action,
		TargetID:    bus.TargetID,
		Metadata:    md,
		CreatedAt:   bus.CreatedAt.UTC(),
	}

	return db, nil
}

func toBusEvent(db eventDB) (auditbus.Event, error) {
	md := map[string]any{}
	if len(db.Metadata) > 0 {
		if err := json.Unmarshal(db.Metadata, &md); err != nil {
			return auditbus.Event{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	bus := auditbus.Event{
		ID:          db.ID,
		ActorID:     fromNullUUID(db.ActorID),
		WorkspaceID: fromNullUUID(db.WorkspaceID),
		Action:      db.Action,
		TargetID:    db.TargetID,
		Metadata:    md,
		CreatedAt:   db.CreatedAt.UTC(),
	}

	return bus, nil
}

func toBusEvents(dbs []eventDB) ([]auditbus.Event, error) {
	bus := make([]auditbus.Event, len(dbs))

	for i, db := range dbs {
		var err error
		bus[i], err = toBusEvent(db)
		if err != nil {
			return nil, err
		}
	}

	return bus, nil
}
