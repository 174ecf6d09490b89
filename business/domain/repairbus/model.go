package repairbus

import (
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

// Mapping records that an identity was meant to be provisioned into a
// workspace. It is the intent repair rebuilds from.
type Mapping struct {
	LookupKey   string
	WorkspaceID uuid.UUID
	TenantID    string
	Role        role.Role
	Name        name.Name
	Contact     string
	CreatedAt   time.Time
}

// NewMapping contains information needed to record a provisioning intent.
type NewMapping struct {
	LookupKey   string
	WorkspaceID uuid.UUID
	Role        role.Role
	Name        name.Name
	Contact     string
}

// Set of step names a repair walks through, in order.
const (
	StepIdentity   = "identity"
	StepMembership = "membership"
	StepPointer    = "pointer"
	StepClaims     = "claims"
	StepRoster     = "roster"
)

// Outcome is what a step found.
type Outcome string

// Set of outcomes a step can report.
const (
	OutcomeAlreadyCorrect Outcome = "already_correct"
	OutcomeCreated        Outcome = "created"
	OutcomeFailed         Outcome = "failed"
)

// Step is one audited action of a repair run.
type Step struct {
	Name        string
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	Outcome     Outcome
	Detail      string
}

// Report lists every step a repair run took.
type Report struct {
	Identifier string
	Steps      []Step
}

// Converged reports whether every step found the state already correct.
func (r Report) Converged() bool {
	for _, s := range r.Steps {
		if s.Outcome != OutcomeAlreadyCorrect {
			return false
		}
	}

	return len(r.Steps) > 0
}

// Failed returns the failed step, if any.
func (r Report) Failed() (Step, bool) {
	for _, s := range r.Steps {
		if s.Outcome == OutcomeFailed {
			return s, true
		}
	}

	return Step{}, false
}
