// Package dbtest wires every business core over the in memory database for
// tests.
package dbtest

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jcpaschoal/crewspace/business/domain/auditbus"
	"github.com/jcpaschoal/crewspace/business/domain/claimsbus"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/pointerbus"
	"github.com/jcpaschoal/crewspace/business/domain/repairbus"
	"github.com/jcpaschoal/crewspace/business/domain/rosterbus"
	"github.com/jcpaschoal/crewspace/business/domain/switchbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/sdk/memdb"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/foundation/logger"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock constructs a clock stopped at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t.UTC()}
}

// Now returns the current time of the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// Notifier records every notice handed to it.
type Notifier struct {
	mu      sync.Mutex
	notices []invitationbus.Notice
	err     error
}

// Notify implements invitationbus.Notifier.
func (n *Notifier) Notify(ctx context.Context, nt invitationbus.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.notices = append(n.notices, nt)
	return n.err
}

// Fail makes every later Notify report err.
func (n *Notifier) Fail(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.err = err
}

// Notices returns the notices received so far.
func (n *Notifier) Notices() []invitationbus.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]invitationbus.Notice(nil), n.notices...)
}

// BusDomain represents all the business domain apis needed for testing.
type BusDomain struct {
	Workspace  *workspacebus.Core
	Identity   *identitybus.Core
	Membership *membershipbus.Core
	Pointer    *pointerbus.Core
	Roster     *rosterbus.Core
	Audit      *auditbus.Core
	Claims     *claimsbus.Core
	Invitation *invitationbus.Core
	Switch     *switchbus.Core
	Repair     *repairbus.Core
}

// Test owns the state of one test.
type Test struct {
	DB       *memdb.DB
	Log      *logger.Logger
	Clock    *Clock
	Notifier *Notifier
	Core     BusDomain

	buf *bytes.Buffer
}

// Options customize the wiring of a Test.
type Options struct {
	InvitationOptions []invitationbus.Option
	RepairObserver    repairbus.StepObserver
}

// New wires a fresh database and every core over it. The log output is
// printed only when the test fails.
func New(t *testing.T, opts ...Options) *Test {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelInfo, "TEST", func(context.Context) string { return "00000000-0000-0000-0000-000000000000" })

	db := memdb.New()
	clock := NewClock(time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC))
	notifier := Notifier{}

	workspaceBus := workspacebus.NewCore(log, db.WorkspaceStore())
	identityBus := identitybus.NewCore(log, db.IdentityStore())
	membershipBus := membershipbus.NewCore(log, db.MembershipStore())
	pointerBus := pointerbus.NewCore(log, db.PointerStore())
	rosterBus := rosterbus.NewCore(log, db.RosterStore())
	auditBus := auditbus.NewCore(log, db.AuditStore())
	claimsBus := claimsbus.NewCore(log, membershipBus, pointerBus, identityBus)

	invOpts := append([]invitationbus.Option{invitationbus.WithClock(clock.Now)}, o.InvitationOptions...)

	invitationBus := invitationbus.NewCore(invitationbus.Config{
		Log:           log,
		Storer:        db.InvitationStore(),
		Beginner:      db,
		WorkspaceBus:  workspaceBus,
		MembershipBus: membershipBus,
		PointerBus:    pointerBus,
		RosterBus:     rosterBus,
		AuditBus:      auditBus,
		ClaimsBus:     claimsBus,
		Notifier:      &notifier,
	}, invOpts...)

	switchBus := switchbus.NewCore(log, membershipBus, pointerBus, claimsBus, auditBus)

	repairBus := repairbus.NewCore(repairbus.Config{
		Log:           log,
		Storer:        db.MappingStore(),
		WorkspaceBus:  workspaceBus,
		IdentityBus:   identityBus,
		MembershipBus: membershipBus,
		PointerBus:    pointerBus,
		ClaimsBus:     claimsBus,
		RosterBus:     rosterBus,
		InvitationBus: invitationBus,
		AuditBus:      auditBus,
		Observer:      o.RepairObserver,
	})

	test := Test{
		DB:       db,
		Log:      log,
		Clock:    clock,
		Notifier: &notifier,
		Core: BusDomain{
			Workspace:  workspaceBus,
			Identity:   identityBus,
			Membership: membershipBus,
			Pointer:    pointerBus,
			Roster:     rosterBus,
			Audit:      auditBus,
			Claims:     claimsBus,
			Invitation: invitationBus,
			Switch:     switchBus,
			Repair:     repairBus,
		},
		buf: &buf,
	}

	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("******************** LOGS ********************\n%s", buf.String())
		}
	})

	return &test
}

// AddWorkspace creates an enabled workspace in the tenant.
func (tst *Test) AddWorkspace(t *testing.T, wsName string, tenantID string) workspacebus.Workspace {
	t.Helper()

	ws, err := tst.Core.Workspace.Create(context.Background(), workspacebus.NewWorkspace{
		TenantID: tenantID,
		Name:     name.MustParse(wsName),
	})
	if err != nil {
		t.Fatalf("Should be able to create workspace %s: %s", wsName, err)
	}

	return ws
}
