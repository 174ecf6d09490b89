package memdb

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/types/invitestatus"
	"github.com/jcpaschoal/crewspace/business/types/phone"
)

// InvitationStore implements invitationbus.Storer.
type InvitationStore struct {
	db *DB
	tx *Tx
}

// InvitationStore returns the invitation storer.
func (db *DB) InvitationStore() *InvitationStore {
	return &InvitationStore{db: db}
}

// NewWithTx binds the store to the transaction.
func (s *InvitationStore) NewWithTx(tx sqldb.CommitRollbacker) (invitationbus.Storer, error) {
	t, err := txOf(tx)
	if err != nil {
		return nil, err
	}

	return &InvitationStore{db: s.db, tx: t}, nil
}

// Create adds an invitation. A code, and a phone inside a workspace, may
// each be held by one pending row at a time.
func (s *InvitationStore) Create(ctx context.Context, inv invitationbus.Invitation) error {
	return s.db.exec(s.tx, "invitation.Create", func(st *state) error {
		if inv.Status.Equal(invitestatus.Pending) {
			for _, v := range st.invitations {
				if !v.Status.Equal(invitestatus.Pending) {
					continue
				}

				if v.Code == inv.Code {
					return fmt.Errorf("db: %w", invitationbus.ErrCodeTaken)
				}

				if v.WorkspaceID == inv.WorkspaceID && v.Phone.Equal(inv.Phone) {
					return fmt.Errorf("db: invitationID[%s]: %w", v.ID, invitationbus.ErrPendingExists)
				}
			}
		}
		st.invitations[inv.ID] = inv
		return nil
	})
}

// Transition writes the invitation only while its status equals from.
func (s *InvitationStore) Transition(ctx context.Context, inv invitationbus.Invitation, from invitestatus.Status) error {
	return s.db.exec(s.tx, "invitation.Transition", func(st *state) error {
		v, exists := st.invitations[inv.ID]
		if !exists || !v.Status.Equal(from) {
			return fmt.Errorf("db: invitationID[%s]: %w", inv.ID, invitationbus.ErrAlreadyTerminal)
		}

		v.Status = inv.Status
		v.AcceptedAt = inv.AcceptedAt
		v.AcceptedBy = inv.AcceptedBy
		v.UpdatedAt = inv.UpdatedAt
		st.invitations[inv.ID] = v
		return nil
	})
}

// QueryByID finds an invitation.
func (s *InvitationStore) QueryByID(ctx context.Context, invitationID uuid.UUID) (invitationbus.Invitation, error) {
	var inv invitationbus.Invitation

	err := s.db.read(s.tx, "invitation.QueryByID", func(st *state) error {
		v, exists := st.invitations[invitationID]
		if !exists {
			return fmt.Errorf("db: %w", invitationbus.ErrNotFound)
		}
		inv = v
		return nil
	})

	return inv, err
}

// QueryByCode finds the most recently issued invitation with the code.
func (s *InvitationStore) QueryByCode(ctx context.Context, code string) (invitationbus.Invitation, error) {
	var inv invitationbus.Invitation

	err := s.db.read(s.tx, "invitation.QueryByCode", func(st *state) error {
		invs := collectInvitations(st, func(v invitationbus.Invitation) bool { return v.Code == code })
		if len(invs) == 0 {
			return fmt.Errorf("db: %w", invitationbus.ErrNotFound)
		}
		inv = invs[len(invs)-1]
		return nil
	})

	return inv, err
}

// PendingCodeExists reports whether a pending invitation holds the code.
func (s *InvitationStore) PendingCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool

	err := s.db.read(s.tx, "invitation.PendingCodeExists", func(st *state) error {
		exists = len(collectInvitations(st, func(v invitationbus.Invitation) bool {
			return v.Code == code && v.Status.Equal(invitestatus.Pending)
		})) > 0
		return nil
	})

	return exists, err
}

// QueryPending returns the pending invitations for the phone in the workspace.
func (s *InvitationStore) QueryPending(ctx context.Context, workspaceID uuid.UUID, p phone.Phone) ([]invitationbus.Invitation, error) {
	var invs []invitationbus.Invitation

	err := s.db.read(s.tx, "invitation.QueryPending", func(st *state) error {
		invs = collectInvitations(st, func(v invitationbus.Invitation) bool {
			return v.WorkspaceID == workspaceID && v.Phone.Equal(p) && v.Status.Equal(invitestatus.Pending)
		})
		return nil
	})

	return invs, err
}

// QueryAcceptedByPhone returns the accepted invitations for the phone.
func (s *InvitationStore) QueryAcceptedByPhone(ctx context.Context, p phone.Phone) ([]invitationbus.Invitation, error) {
	var invs []invitationbus.Invitation

	err := s.db.read(s.tx, "invitation.QueryAcceptedByPhone", func(st *state) error {
		invs = collectInvitations(st, func(v invitationbus.Invitation) bool {
			return v.Phone.Equal(p) && v.Status.Equal(invitestatus.Accepted)
		})
		return nil
	})

	return invs, err
}

// Query returns a page of invitations matching the filter, newest first.
func (s *InvitationStore) Query(ctx context.Context, filter invitationbus.QueryFilter, pg page.Page) ([]invitationbus.Invitation, error) {
	var invs []invitationbus.Invitation

	err := s.db.read(s.tx, "invitation.Query", func(st *state) error {
		all := collectInvitations(st, matchFilter(filter))
		slices.Reverse(all)
		invs = pageOf(all, pg)
		return nil
	})

	return invs, err
}

// Count returns the number of invitations matching the filter.
func (s *InvitationStore) Count(ctx context.Context, filter invitationbus.QueryFilter) (int, error) {
	var n int

	err := s.db.read(s.tx, "invitation.Count", func(st *state) error {
		n = len(collectInvitations(st, matchFilter(filter)))
		return nil
	})

	return n, err
}

func matchFilter(filter invitationbus.QueryFilter) func(invitationbus.Invitation) bool {
	return func(v invitationbus.Invitation) bool {
		if filter.WorkspaceID != nil && v.WorkspaceID != *filter.WorkspaceID {
			return false
		}
		if filter.Status != nil && !v.Status.Equal(*filter.Status) {
			return false
		}
		if filter.Phone != nil && !v.Phone.Equal(*filter.Phone) {
			return false
		}
		return true
	}
}

// collectInvitations returns the matching rows oldest first.
func collectInvitations(st *state, match func(invitationbus.Invitation) bool) []invitationbus.Invitation {
	var invs []invitationbus.Invitation
	for _, v := range st.invitations {
		if match(v) {
			invs = append(invs, v)
		}
	}

	slices.SortFunc(invs, func(a, b invitationbus.Invitation) int {
		if c := a.InvitedAt.Compare(b.InvitedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	return invs
}
