package memdb

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
)

// MembershipStore implements membershipbus.Storer.
type MembershipStore struct {
	db *DB
	tx *Tx
}

// MembershipStore returns the membership storer.
func (db *DB) MembershipStore() *MembershipStore {
	return &MembershipStore{db: db}
}

// NewWithTx binds the store to the transaction.
func (s *MembershipStore) NewWithTx(tx sqldb.CommitRollbacker) (membershipbus.Storer, error) {
	t, err := txOf(tx)
	if err != nil {
		return nil, err
	}

	return &MembershipStore{db: s.db, tx: t}, nil
}

// Create adds a membership, one per user and workspace.
func (s *MembershipStore) Create(ctx context.Context, m membershipbus.Membership) error {
	m.Permissions = slices.Clone(m.Permissions)

	return s.db.exec(s.tx, "membership.Create", func(st *state) error {
		k := pairKey{m.UserID, m.WorkspaceID}
		if _, exists := st.memberships[k]; exists {
			return fmt.Errorf("db: %w", membershipbus.ErrExists)
		}
		st.memberships[k] = m
		return nil
	})
}

// Update replaces a membership.
func (s *MembershipStore) Update(ctx context.Context, m membershipbus.Membership) error {
	m.Permissions = slices.Clone(m.Permissions)

	return s.db.exec(s.tx, "membership.Update", func(st *state) error {
		k := pairKey{m.UserID, m.WorkspaceID}
		if _, exists := st.memberships[k]; !exists {
			return nil
		}
		st.memberships[k] = m
		return nil
	})
}

// QueryByID finds the membership of the user in the workspace.
func (s *MembershipStore) QueryByID(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (membershipbus.Membership, error) {
	var m membershipbus.Membership

	err := s.db.read(s.tx, "membership.QueryByID", func(st *state) error {
		v, exists := st.memberships[pairKey{userID, workspaceID}]
		if !exists {
			return fmt.Errorf("db: %w", membershipbus.ErrNotFound)
		}
		m = v
		m.Permissions = slices.Clone(v.Permissions)
		return nil
	})

	return m, err
}

// QueryByUserID returns every membership of the user ordered by join time.
func (s *MembershipStore) QueryByUserID(ctx context.Context, userID uuid.UUID) ([]membershipbus.Membership, error) {
	var ms []membershipbus.Membership

	err := s.db.read(s.tx, "membership.QueryByUserID", func(st *state) error {
		ms = s.collect(st, func(m membershipbus.Membership) bool { return m.UserID == userID })
		return nil
	})

	return ms, err
}

// QueryByWorkspace returns a page of the workspace memberships.
func (s *MembershipStore) QueryByWorkspace(ctx context.Context, workspaceID uuid.UUID, pg page.Page) ([]membershipbus.Membership, error) {
	var ms []membershipbus.Membership

	err := s.db.read(s.tx, "membership.QueryByWorkspace", func(st *state) error {
		ms = pageOf(s.collect(st, func(m membershipbus.Membership) bool { return m.WorkspaceID == workspaceID }), pg)
		return nil
	})

	return ms, err
}

// CountByWorkspace returns the number of memberships in the workspace.
func (s *MembershipStore) CountByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	var n int

	err := s.db.read(s.tx, "membership.CountByWorkspace", func(st *state) error {
		n = len(s.collect(st, func(m membershipbus.Membership) bool { return m.WorkspaceID == workspaceID }))
		return nil
	})

	return n, err
}

func (s *MembershipStore) collect(st *state, match func(membershipbus.Membership) bool) []membershipbus.Membership {
	var ms []membershipbus.Membership
	for _, m := range st.memberships {
		if match(m) {
			m.Permissions = slices.Clone(m.Permissions)
			ms = append(ms, m)
		}
	}

	slices.SortFunc(ms, func(a, b membershipbus.Membership) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(a.WorkspaceID.String(), b.WorkspaceID.String()); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID.String(), b.UserID.String())
	})

	return ms
}
