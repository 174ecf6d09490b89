package membershipdb

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/types/capability"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/role"
	"github.com/lib/pq"
)

type membershipDB struct {
	UserID          uuid.UUID      `db:"user_id"`
	WorkspaceID     uuid.UUID      `db:"workspace_id"`
	TenantID        string         `db:"tenant_id"`
	Role            string         `db:"role"`
	Status          string         `db:"status"`
	Permissions     pq.StringArray `db:"permissions"`
	WorkspaceName   string         `db:"workspace_name"`
	WorkspaceAvatar string         `db:"workspace_avatar"`
	JoinedAt        time.Time      `db:"joined_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func toDBMembership(bus membershipbus.Membership) membershipDB {
	return membershipDB{
		UserID:          bus.UserID,
		WorkspaceID:     bus.WorkspaceID,
		TenantID:        bus.TenantID,
		Role:            bus.Role.String(),
		Status:          bus.Status.String(),
		Permissions:     pq.StringArray(capability.Strings(bus.Permissions)),
		WorkspaceName:   bus.WorkspaceName,
		WorkspaceAvatar: bus.WorkspaceAvatar,
		JoinedAt:        bus.JoinedAt.UTC(),
		UpdatedAt:       bus.UpdatedAt.UTC(),
	}
}

func toBusMembership(db membershipDB) (membershipbus.Membership, error) {
	r, err := role.Parse(db.Role)
	if err != nil {
		return membershipbus.Membership{}, fmt.Errorf("parse role: %w", err)
	}

	st, err := memberstatus.Parse(db.Status)
	if err != nil {
		return membershipbus.Membership{}, fmt.Errorf("parse status: %w", err)
	}

	perms, err := capability.ParseMany(db.Permissions)
	if err != nil {
		return membershipbus.Membership{}, fmt.Errorf("parse permissions: %w", err)
	}

	bus := membershipbus.Membership{
		UserID:          db.UserID,
		WorkspaceID:     db.WorkspaceID,
		TenantID:        db.TenantID,
		Role:            r,
		Status:          st,
		Permissions:     perms,
		WorkspaceName:   db.WorkspaceName,
		WorkspaceAvatar: db.WorkspaceAvatar,
		JoinedAt:        db.JoinedAt.UTC(),
		UpdatedAt:       db.UpdatedAt.UTC(),
	}

	return bus, nil
}

func toBusMemberships(dbs []membershipDB) ([]membershipbus.Membership, error) {
	bus := make([]membershipbus.Membership, len(dbs))

	for i, db := range dbs {
		var err error
		bus[i], err = toBusMembership(db)
		if err != nil {
			return nil, err
		}
	}

	return bus, nil
}
