// Package migrate contains the database schema and the support for applying
// it to a database.
package migrate

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jmoiron/sqlx"
)

var (
	//go:embed sql/schema.sql
	schemaDoc string
)

// Migrate attempts to bring the database up to date with the schema. Every
// statement is idempotent so the schema can be applied on each deploy.
func Migrate(ctx context.Context, log *logger.Logger, db *sqlx.DB) error {
	if err := waitForDB(ctx, db); err != nil {
		return fmt.Errorf("status check database: %w", err)
	}

	log.Info(ctx, "migrate", "status", "applying schema")

	// The document holds several statements and no bind parameters.
	if _, err := db.ExecContext(ctx, schemaDoc); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}

// Schema returns the embedded schema document.
func Schema() string {
	return schemaDoc
}

func waitForDB(ctx context.Context, db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var err error
	for {
		if err = sqldb.StatusCheck(ctx, db); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), err)
		case <-time.After(time.Second):
		}
	}
}
