package invitationdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/business/types/invitestatus"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/phone"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

type invitationDB struct {
	ID          uuid.UUID      `db:"invitation_id"`
	Code        string         `db:"code"`
	Phone       string         `db:"phone"`
	Name        string         `db:"name"`
	WorkspaceID uuid.UUID      `db:"workspace_id"`
	TenantID    string         `db:"tenant_id"`
	Role        string         `db:"role"`
	InvitedBy   uuid.UUID      `db:"invited_by"`
	InviterName sql.NullString `db:"inviter_name"`
	InvitedAt   time.Time      `db:"invited_at"`
	ExpiresAt   time.Time      `db:"expires_at"`
	Status      string         `db:"status"`
	AcceptedAt  sql.NullTime   `db:"accepted_at"`
	AcceptedBy  uuid.NullUUID  `db:"accepted_by"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func toDBInvitation(bus invitationbus.Invitation) invitationDB {
	db := invitationDB{
		ID:          bus.ID,
		Code:        bus.Code,
		Phone:       bus.Phone.String(),
		Name:        bus.Name.String(),
		WorkspaceID: bus.WorkspaceID,
		TenantID:    bus.TenantID,
		Role:        bus.Role.String(),
		InvitedBy:   bus.InvitedBy,
		InvitedAt:   bus.InvitedAt.UTC(),
		ExpiresAt:   bus.ExpiresAt.UTC(),
		Status:      bus.Status.String(),
		UpdatedAt:   bus.UpdatedAt.UTC(),
	}

	if bus.InviterName != nil {
		db.InviterName = sql.NullString{String: *bus.InviterName, Valid: true}
	}

	if bus.AcceptedAt != nil {
		db.AcceptedAt = sql.NullTime{Time: bus.AcceptedAt.UTC(), Valid: true}
	}

	if bus.AcceptedBy != nil {
		db.AcceptedBy = uuid.NullUUID{UUID: *bus.AcceptedBy, Valid: true}
	}

	return db
}

func toBusInvitation(db invitationDB) (invitationbus.Invitation, error) {
	p, err := phone.Parse(db.Phone)
	if err != nil {
		return invitationbus.Invitation{}, fmt.Errorf("parse phone: %w", err)
	}

	n, err := name.Parse(db.Name)
	if err != nil {
		return invitationbus.Invitation{}, fmt.Errorf("parse name: %w", err)
	}

	r, err := role.Parse(db.Role)
	if err != nil {
		return invitationbus.Invitation{}, fmt.Errorf("parse role: %w", err)
	}

	st, err := invitestatus.Parse(db.Status)
	if err != nil {
		return invitationbus.Invitation{}, fmt.Errorf("parse status: %w", err)
	}

	bus := invitationbus.Invitation{
		ID:          db.ID,
		Code:        db.Code,
		Phone:       p,
		Name:        n,
		WorkspaceID: db.WorkspaceID,
		TenantID:    db.TenantID,
		Role:        r,
		InvitedBy:   db.InvitedBy,
		InvitedAt:   db.InvitedAt.UTC(),
		ExpiresAt:   db.ExpiresAt.UTC(),
		Status:      st,
		UpdatedAt:   db.UpdatedAt.UTC(),
	}

	if db.InviterName.Valid {
		s := db.InviterName.String
		bus.InviterName = &s
	}

	if db.AcceptedAt.Valid {
		t := db.AcceptedAt.Time.UTC()
		bus.AcceptedAt = &t
	}

	if db.AcceptedBy.Valid {
		id := db.AcceptedBy.UUID
		bus.AcceptedBy = &id
	}

	return bus, nil
}

func toBusInvitations(dbs []invitationDB) ([]invitationbus.Invitation, error) {
	bus := make([]invitationbus.Invitation, len(dbs))

	for i, db := range dbs {
		var err error
		bus[i], err = toBusInvitation(db)
		if err != nil {
			return nil, err
		}
	}

	return bus, nil
}
