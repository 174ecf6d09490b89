package rosterdb

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/rosterbus"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

type entryDB struct {
	UserID      uuid.UUID `db:"user_id"`
	WorkspaceID uuid.UUID `db:"workspace_id"`
	TenantID    string    `db:"tenant_id"`
	Name        string    `db:"name"`
	Contact     string    `db:"contact"`
	Role        string    `db:"role"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func toDBEntry(bus rosterbus.Entry) entryDB {
	return entryDB{
		UserID:      bus.UserID,
		WorkspaceID: bus.WorkspaceID,
		TenantID:    bus.TenantID,
		Name:        bus.Name,
		Contact:     bus.Contact,
		Role:        bus.Role.String(),
		Status:      bus.Status.String(),
		CreatedAt:   bus.CreatedAt.UTC(),
		UpdatedAt:   bus.UpdatedAt.UTC(),
	}
}

func toBusEntry(db entryDB) (rosterbus.Entry, error) {
	r, err := role.Parse(db.Role)
	if err != nil {
		return rosterbus.Entry{}, fmt.Errorf("parse role: %w", err)
	}

	st, err := memberstatus.Parse(db.Status)
	if err != nil {
		return rosterbus.Entry{}, fmt.Errorf("parse status: %w", err)
	}

	bus := rosterbus.Entry{
		UserID:      db.UserID,
		WorkspaceID: db.WorkspaceID,
		TenantID:    db.TenantID,
		Name:        db.Name,
		Contact:     db.Contact,
		Role:        r,
		Status:      st,
		CreatedAt:   db.CreatedAt.UTC(),
		UpdatedAt:   db.UpdatedAt.UTC(),
	}

	return bus, nil
}

func toBusEntries(dbs []entryDB) ([]rosterbus.Entry, error) {
	bus := make([]rosterbus.Entry, len(dbs))

	for i, db := range dbs {
		var err error
		bus[i], err = toBusEntry(db)
		if err != nil {
			return nil, err
		}
	}

	return bus, nil
}
