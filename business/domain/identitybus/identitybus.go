// Package identitybus provides the adapter over the external identity
// provider: tenant scoped accounts and the custom claims stored on them.
package identitybus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/types/authclaims"
	"github.com/jcpaschoal/crewspace/business/types/phone"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jcpaschoal/crewspace/foundation/otel"
)

// Set of error variables for identity operations.
var (
	ErrNotFound            = errors.New("identity not found")
	ErrExists              = errors.New("identity already exists in tenant")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrLookupKey           = errors.New("lookup key is required")
	ErrVersionConflict     = errors.New("claims version changed")
)

// Storer defines the behavior required by the identitybus to interact with
// the provider's storage.
type Storer interface {
	NewWithTx(tx sqldb.CommitRollbacker) (Storer, error)
	Create(ctx context.Context, idt Identity) error
	QueryByID(ctx context.Context, uid uuid.UUID) (Identity, error)
	QueryByLookupKey(ctx context.Context, tenantID string, lookupKey string) (Identity, error)
	SetClaims(ctx context.Context, uid uuid.UUID, claims authclaims.Claims, expected int, now time.Time) (ClaimsRecord, error)
	QueryClaims(ctx context.Context, uid uuid.UUID) (ClaimsRecord, error)
}

// Core manages the set of APIs for identity access.
type Core struct {
	log    *logger.Logger
	storer Storer
}

// NewCore constructs a core for identity api access.
func NewCore(log *logger.Logger, storer Storer) *Core {
	return &Core{
		log:    log,
		storer: storer,
	}
}

// NewWithTx constructs a new Core value replacing the Storer
// value with a Storer value that is currently inside a transaction.
func (c *Core) NewWithTx(tx sqldb.CommitRollbacker) (*Core, error) {
	storer, err := c.storer.NewWithTx(tx)
	if err != nil {
		return nil, fmt.Errorf("newWithTx: %w", err)
	}

	return NewCore(c.log, storer), nil
}

// FindUserInTenant looks an account up by phone or email inside a tenant.
func (c *Core) FindUserInTenant(ctx context.Context, tenantID string, lookupKey string) (Identity, error) {
	ctx, span := otel.AddSpan(ctx, "business.identitybus.findUserInTenant")
	defer span.End()

	key := NormalizeLookupKey(lookupKey)
	if key == "" {
		return Identity{}, ErrLookupKey
	}

	idt, err := c.storer.QueryByLookupKey(ctx, tenantID, key)
	if err != nil {
		return Identity{}, fmt.Errorf("query: tenantID[%s] key[%s]: %w", tenantID, key, provider(err))
	}

	return idt, nil
}

// CreateUserInTenant creates a new account in the tenant.
func (c *Core) CreateUserInTenant(ctx context.Context, tenantID string, p Profile) (Identity, error) {
	ctx, span := otel.AddSpan(ctx, "business.identitybus.createUserInTenant")
	defer span.End()

	key := NormalizeLookupKey(p.LookupKey)
	if key == "" {
		return Identity{}, ErrLookupKey
	}

	idt := Identity{
		UID:       uuid.New(),
		TenantID:  tenantID,
		LookupKey: key,
		Name:      p.Name,
		Phone:     p.Phone,
		CreatedAt: time.Now().UTC(),
	}

	if err := c.storer.Create(ctx, idt); err != nil {
		return Identity{}, fmt.Errorf("create: tenantID[%s] key[%s]: %w", tenantID, key, provider(err))
	}

	return idt, nil
}

// FindOrCreate returns the tenant account for the profile, creating it when
// absent. The boolean reports whether a new account was created. A
// concurrent creation of the same account resolves to the winner's row.
func (c *Core) FindOrCreate(ctx context.Context, tenantID string, p Profile) (Identity, bool, error) {
	idt, err := c.FindUserInTenant(ctx, tenantID, p.LookupKey)
	switch {
	case err == nil:
		return idt, false, nil

	case !errors.Is(err, ErrNotFound):
		return Identity{}, false, err
	}

	idt, err = c.CreateUserInTenant(ctx, tenantID, p)
	switch {
	case err == nil:
		return idt, true, nil

	case errors.Is(err, ErrExists):
		idt, err := c.FindUserInTenant(ctx, tenantID, p.LookupKey)
		if err != nil {
			return Identity{}, false, err
		}
		return idt, false, nil
	}

	return Identity{}, false, err
}

// QueryByID finds the identity by the specified uid.
func (c *Core) QueryByID(ctx context.Context, uid uuid.UUID) (Identity, error) {
	ctx, span := otel.AddSpan(ctx, "business.identitybus.queryByID")
	defer span.End()

	idt, err := c.storer.QueryByID(ctx, uid)
	if err != nil {
		return Identity{}, fmt.Errorf("query: uid[%s]: %w", uid, provider(err))
	}

	return idt, nil
}

// SetClaims replaces the claims stored on the identity and returns the new
// record with its incremented version. The write only lands when the stored
// version still equals expected, zero meaning no claims are stored yet.
// Otherwise ErrVersionConflict is returned.
func (c *Core) SetClaims(ctx context.Context, uid uuid.UUID, claims authclaims.Claims, expected int) (ClaimsRecord, error) {
	ctx, span := otel.AddSpan(ctx, "business.identitybus.setClaims")
	defer span.End()

	rec, err := c.storer.SetClaims(ctx, uid, claims, expected, time.Now().UTC())
	if err != nil {
		return ClaimsRecord{}, fmt.Errorf("setclaims: uid[%s] version[%d]: %w", uid, expected, provider(err))
	}

	return rec, nil
}

// QueryClaims returns the claims currently stored on the identity.
func (c *Core) QueryClaims(ctx context.Context, uid uuid.UUID) (ClaimsRecord, error) {
	ctx, span := otel.AddSpan(ctx, "business.identitybus.queryClaims")
	defer span.End()

	rec, err := c.storer.QueryClaims(ctx, uid)
	if err != nil {
		return ClaimsRecord{}, fmt.Errorf("query: uid[%s]: %w", uid, provider(err))
	}

	return rec, nil
}

// =============================================================================

// NormalizeLookupKey reduces a phone number or email to the form accounts are
// indexed by.
func NormalizeLookupKey(key string) string {
	key = strings.TrimSpace(key)

	if p, err := phone.Parse(key); err == nil {
		return p.String()
	}

	return strings.ToLower(key)
}

// provider tags transient storage failures as provider outages.
func provider(err error) error {
	if sqldb.IsUnavailable(err) {
		return errors.Join(ErrProviderUnavailable, err)
	}

	return err
}
