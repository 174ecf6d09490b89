package workspacedb

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/types/name"
)

type workspaceDB struct {
	ID        uuid.UUID `db:"workspace_id"`
	TenantID  string    `db:"tenant_id"`
	Name      string    `db:"name"`
	Avatar    string    `db:"avatar"`
	Enabled   bool      `db:"enabled"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func toDBWorkspace(bus workspacebus.Workspace) workspaceDB {
	return workspaceDB{
		ID:        bus.ID,
		TenantID:  bus.TenantID,
		Name:      bus.Name.String(),
		Avatar:    bus.Avatar,
		Enabled:   bus.Enabled,
		CreatedAt: bus.CreatedAt.UTC(),
		UpdatedAt: bus.UpdatedAt.UTC(),
	}
}

func toBusWorkspace(db workspaceDB) (workspacebus.Workspace, error) {
	nme, err := name.Parse(db.Name)
	if err != nil {
		return workspacebus.Workspace{}, fmt.Errorf("parse name: %w", err)
	}

	bus := workspacebus.Workspace{
		ID:        db.ID,
		TenantID:  db.TenantID,
		Name:      nme,
		Avatar:    db.Avatar,
		Enabled:   db.Enabled,
		CreatedAt: db.CreatedAt.UTC(),
		UpdatedAt: db.UpdatedAt.UTC(),
	}

	return bus, nil
}
