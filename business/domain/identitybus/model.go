package identitybus

import (
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/types/authclaims"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/phone"
)

// Identity represents an account held by the identity provider inside a
// tenant. The same person has a distinct identity per tenant.
type Identity struct {
	UID       uuid.UUID
	TenantID  string
	LookupKey string
	Name      name.Name
	Phone     phone.Null
	CreatedAt time.Time
}

// Profile contains information needed to create an identity.
type Profile struct {
	LookupKey string
	Name      name.Name
	Phone     phone.Null
}

// ClaimsRecord is the claims bundle stored against an identity. Version
// increases by one on every write.
type ClaimsRecord struct {
	UID       uuid.UUID
	Claims    authclaims.Claims
	Version   int
	UpdatedAt time.Time
}
