// Package mid contains the set of middleware functions.
package mid

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/app/sdk/auth"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/sdk/web"
)

func checkIsError(e web.Encoder) error {
	err, hasError := e.(error)
	if hasError {
		return err
	}

	return nil
}

// =============================================================================

type ctxKey int

const (
	claimKey ctxKey = iota + 1
	trKey
)

func setClaims(ctx context.Context, claims auth.Claims) context.Context {
	return context.WithValue(ctx, claimKey, claims)
}

// GetClaims returns the claims from the context.
func GetClaims(ctx context.Context) auth.Claims {
	v, ok := ctx.Value(claimKey).(auth.Claims)
	if !ok {
		return auth.Claims{}
	}
	return v
}

// GetUserID returns the user id from the claims.
func GetUserID(ctx context.Context) (uuid.UUID, error) {
	v, ok := ctx.Value(claimKey).(auth.Claims)
	if !ok || v.UserID == uuid.Nil {
		return uuid.UUID{}, errors.New("user id not found in context")
	}

	return v.UserID, nil
}

// GetWorkspaceID returns the active workspace carried by the claims.
func GetWorkspaceID(ctx context.Context) (uuid.UUID, error) {
	v, ok := ctx.Value(claimKey).(auth.Claims)
	if !ok || v.WorkspaceID == uuid.Nil {
		return uuid.UUID{}, errors.New("workspace id not found in context")
	}

	return v.WorkspaceID, nil
}

func setTran(ctx context.Context, tx sqldb.CommitRollbacker) context.Context {
	return context.WithValue(ctx, trKey, tx)
}

// GetTran retrieves the value that can manage a transaction.
func GetTran(ctx context.Context) (sqldb.CommitRollbacker, error) {
	v, ok := ctx.Value(trKey).(sqldb.CommitRollbacker)
	if !ok {
		return nil, errors.New("transaction not found in context")
	}

	return v, nil
}
