// Package auth issues and validates the tokens that carry a user's claims
// bundle.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/claimsbus"
	"github.com/jcpaschoal/crewspace/business/types/authclaims"
	"github.com/jcpaschoal/crewspace/business/types/capability"
	"github.com/jcpaschoal/crewspace/foundation/logger"
)

// Set of error variables for the auth package.
var (
	ErrForbidden     = errors.New("attempted action is not allowed")
	ErrKIDMissing    = errors.New("kid missing from token header")
	ErrKIDMalformed  = errors.New("kid in token header is malformed")
	ErrStale         = errors.New("token claims are older than the stored claims")
	ErrNoWorkspace   = errors.New("no active workspace")
	ErrBearerMissing = errors.New("expected authorization header format: Bearer <token>")
)

// Claims represents the authorization claims transmitted via a JWT. Version
// is the claims version stored by the identity provider when the token was
// issued.
type Claims struct {
	jwt.RegisteredClaims
	authclaims.Claims
	Version int `json:"ver"`
}

// KeyLookup declares a method set of behavior for looking up
// private and public keys for JWT use.
type KeyLookup interface {
	PrivateKey(kid string) (key string, err error)
	PublicKey(kid string) (key string, err error)
}

// Config represents information required to initialize auth.
type Config struct {
	Log       *logger.Logger
	ClaimsBus *claimsbus.Core
	KeyLookup KeyLookup
	Issuer    string
	ActiveKID string
	TTL       time.Duration
}

// Auth is used to authenticate clients.
type Auth struct {
	log       *logger.Logger
	claimsBus *claimsbus.Core
	keyLookup KeyLookup
	method    jwt.SigningMethod
	parser    *jwt.Parser
	lenient   *jwt.Parser
	issuer    string
	activeKID string
	ttl       time.Duration
}

// New creates an Auth to support authentication/authorization.
func New(cfg Config) *Auth {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}

	return &Auth{
		log:       cfg.Log,
		claimsBus: cfg.ClaimsBus,
		keyLookup: cfg.KeyLookup,
		method:    jwt.GetSigningMethod(jwt.SigningMethodRS256.Name),
		parser:    jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}), jwt.WithIssuer(cfg.Issuer)),
		lenient:   jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}), jwt.WithoutClaimsValidation()),
		issuer:    cfg.Issuer,
		activeKID: cfg.ActiveKID,
		ttl:       ttl,
	}
}

// Issuer provides the configured issuer used to authenticate tokens.
func (a *Auth) Issuer() string {
	return a.issuer
}

// GenerateToken signs a token carrying the claims bundle and its version.
func (a *Auth) GenerateToken(res claimsbus.SyncResult) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   res.Claims.UserID.String(),
			Issuer:    a.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Claims:  res.Claims,
		Version: res.Version,
	}

	token := jwt.NewWithClaims(a.method, claims)
	token.Header["kid"] = a.activeKID

	privateKeyPEM, err := a.keyLookup.PrivateKey(a.activeKID)
	if err != nil {
		return "", fmt.Errorf("private key: %w", err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return "", fmt.Errorf("parsing private key from PEM: %w", err)
	}

	str, err := token.SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return str, nil
}

// Authenticate validates the token and rejects it with ErrStale when the
// identity provider holds a newer claims version than the one it carries.
func (a *Auth) Authenticate(ctx context.Context, bearerToken string) (Claims, error) {
	claims, err := a.verify(bearerToken, a.parser)
	if err != nil {
		a.log.Info(ctx, "**Authenticate-FAILED**", "ERROR", err)
		return Claims{}, fmt.Errorf("authentication failed: %w", err)
	}

	if a.claimsBus == nil {
		return claims, nil
	}

	current, err := a.claimsBus.Current(ctx, claims.UserID)
	if err != nil {
		return Claims{}, fmt.Errorf("current claims: userID[%s]: %w", claims.UserID, err)
	}

	if current.Version > claims.Version {
		return Claims{}, fmt.Errorf("userID[%s] token[%d] stored[%d]: %w", claims.UserID, claims.Version, current.Version, ErrStale)
	}

	return claims, nil
}

// Refresh issues a new token from the stored claims. The presented token only
// needs a valid signature; stale and expired tokens are accepted.
func (a *Auth) Refresh(ctx context.Context, bearerToken string) (string, claimsbus.SyncResult, error) {
	claims, err := a.verify(bearerToken, a.lenient)
	if err != nil {
		return "", claimsbus.SyncResult{}, fmt.Errorf("refresh: %w", err)
	}

	if claims.Issuer != a.issuer {
		return "", claimsbus.SyncResult{}, fmt.Errorf("refresh: invalid issuer: expected %q, got %q", a.issuer, claims.Issuer)
	}

	current, err := a.claimsBus.Current(ctx, claims.UserID)
	if err != nil {
		return "", claimsbus.SyncResult{}, fmt.Errorf("refresh: userID[%s]: %w", claims.UserID, err)
	}

	token, err := a.GenerateToken(current)
	if err != nil {
		return "", claimsbus.SyncResult{}, fmt.Errorf("refresh: %w", err)
	}

	return token, current, nil
}

// Authorize checks the active workspace of the claims grants the capability.
func (a *Auth) Authorize(claims Claims, cp capability.Capability) error {
	if claims.WorkspaceID == uuid.Nil {
		return fmt.Errorf("%w: %w", ErrForbidden, ErrNoWorkspace)
	}

	if !claims.Can(cp) {
		return fmt.Errorf("%w: role %q lacks %q in workspace %s", ErrForbidden, claims.Role, cp, claims.WorkspaceID)
	}

	return nil
}

// verify checks the signature of the token using the public key named by
// its kid header.
func (a *Auth) verify(bearerToken string, parser *jwt.Parser) (Claims, error) {
	tokenStr, ok := strings.CutPrefix(bearerToken, "Bearer ")
	if !ok {
		return Claims{}, ErrBearerMissing
	}

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		kidRaw, exists := t.Header["kid"]
		if !exists {
			return nil, ErrKIDMissing
		}

		kid, ok := kidRaw.(string)
		if !ok {
			return nil, ErrKIDMalformed
		}

		pem, err := a.keyLookup.PublicKey(kid)
		if err != nil {
			return nil, fmt.Errorf("fetching public key for kid %q: %w", kid, err)
		}

		return jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	})
	if err != nil {
		return Claims{}, fmt.Errorf("validating token signature: %w", err)
	}

	if !token.Valid {
		return Claims{}, errors.New("token is invalid")
	}

	return claims, nil
}
