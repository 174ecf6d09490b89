// This program performs administrative tasks for the crewspace service.
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/api/cmd/build/all"
	"github.com/jcpaschoal/crewspace/business/domain/repairbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/sdk/migrate"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/role"
	"github.com/jcpaschoal/crewspace/foundation/keystore"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
)

// Config replicates the database settings of the service.
type Config struct {
	DB struct {
		User         string `envconfig:"DB_USER" default:"postgres"`
		Password     string `envconfig:"DB_PASSWORD" default:"postgres"`
		Host         string `envconfig:"DB_HOST" default:"localhost"`
		Name         string `envconfig:"DB_NAME" default:"crewspace"`
		MaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"0"`
		MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"0"`
		DisableTLS   bool   `envconfig:"DB_DISABLE_TLS" default:"true"`
	}
	Auth struct {
		KeysFolder string `envconfig:"AUTH_KEYS_FOLDER" default:"zarf/keys/"`
	}
}

func main() {
	log := logger.New(os.Stdout, logger.LevelInfo, "ADMIN", nil)
	ctx := context.Background()

	if err := run(ctx, log); err != nil {
		log.Error(ctx, "admin", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger) error {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("processing config: %w", err)
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: genkey, migrate, add-workspace, map-identity, repair")
		return nil
	}

	cmd, args := os.Args[1], os.Args[2:]

	// genkey needs no database.
	if cmd == "genkey" {
		return runGenKey(cfg.Auth.KeysFolder)
	}

	db, err := sqldb.Open(sqldb.Config{
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		Host:         cfg.DB.Host,
		Name:         cfg.DB.Name,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		DisableTLS:   cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	switch cmd {
	case "migrate":
		return runMigrate(ctx, log, db)
	case "add-workspace":
		return runAddWorkspace(ctx, all.NewBusDomain(log, db, nil, 0), args)
	case "map-identity":
		return runMapIdentity(ctx, all.NewBusDomain(log, db, nil, 0), args)
	case "repair":
		return runRepair(ctx, all.NewBusDomain(log, db, nil, 0), args)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func runGenKey(folder string) error {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	pem, err := keystore.EncodePrivate(privateKey)
	if err != nil {
		return fmt.Errorf("encoding private key: %w", err)
	}

	if err := os.MkdirAll(folder, 0o700); err != nil {
		return fmt.Errorf("creating keys folder: %w", err)
	}

	kid := uuid.NewString()
	file := filepath.Join(folder, kid+".pem")

	if err := os.WriteFile(file, []byte(pem), 0o600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}

	fmt.Printf("\nSUCCESS: key written\nKID:  %s\nFile: %s\n", kid, file)
	return nil
}

func runMigrate(ctx context.Context, log *logger.Logger, db *sqlx.DB) error {
	if err := migrate.Migrate(ctx, log, db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	fmt.Println("\nSUCCESS: migrations complete")
	return nil
}

func runAddWorkspace(ctx context.Context, bus all.BusDomain, args []string) error {
	cmd := flag.NewFlagSet("add-workspace", flag.ExitOnError)
	tenantID := cmd.String("tenant", "", "Tenant id (Required)")
	nameStr := cmd.String("name", "", "Workspace name (Required)")
	cmd.Parse(args)

	if *tenantID == "" || *nameStr == "" {
		cmd.PrintDefaults()
		return errors.New("missing required fields")
	}

	n, err := name.Parse(*nameStr)
	if err != nil {
		return fmt.Errorf("invalid name: %w", err)
	}

	ws, err := bus.Workspace.Create(ctx, workspacebus.NewWorkspace{
		TenantID: *tenantID,
		Name:     n,
	})
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	fmt.Printf("\nSUCCESS: workspace created\nID:     %s\nTenant: %s\nName:   %s\n", ws.ID, ws.TenantID, ws.Name)
	return nil
}

func runMapIdentity(ctx context.Context, bus all.BusDomain, args []string) error {
	cmd := flag.NewFlagSet("map-identity", flag.ExitOnError)
	key := cmd.String("key", "", "Email or phone the identity signs in with (Required)")
	wsStr := cmd.String("workspace", "", "Workspace UUID (Required)")
	nameStr := cmd.String("name", "", "Display name (Required)")
	roleStr := cmd.String("role", role.Member.String(), "Role granted in the workspace")
	contact := cmd.String("contact", "", "Contact shown on the roster")
	cmd.Parse(args)

	if *key == "" || *wsStr == "" || *nameStr == "" {
		cmd.PrintDefaults()
		return errors.New("missing required fields")
	}

	wsID, err := uuid.Parse(*wsStr)
	if err != nil {
		return fmt.Errorf("invalid workspace uuid: %w", err)
	}

	n, err := name.Parse(*nameStr)
	if err != nil {
		return fmt.Errorf("invalid name: %w", err)
	}

	r, err := role.Parse(*roleStr)
	if err != nil {
		return fmt.Errorf("invalid role: %w", err)
	}

	m, err := bus.Repair.AddMapping(ctx, repairbus.NewMapping{
		LookupKey:   *key,
		WorkspaceID: wsID,
		Role:        r,
		Name:        n,
		Contact:     *contact,
	})
	if err != nil {
		return fmt.Errorf("add mapping: %w", err)
	}

	fmt.Printf("\nSUCCESS: mapping recorded\nKey:       %s\nWorkspace: %s\nRole:      %s\n", m.LookupKey, m.WorkspaceID, m.Role)
	return nil
}

func runRepair(ctx context.Context, bus all.BusDomain, args []string) error {
	cmd := flag.NewFlagSet("repair", flag.ExitOnError)
	key := cmd.String("key", "", "Email or phone to repair (Required)")
	cmd.Parse(args)

	if *key == "" {
		cmd.PrintDefaults()
		return errors.New("missing required fields")
	}

	rep, err := bus.Repair.Repair(ctx, *key)

	for _, s := range rep.Steps {
		fmt.Printf("%-10s %-16s workspace[%s] user[%s] %s\n", s.Name, s.Outcome, s.WorkspaceID, s.UserID, s.Detail)
	}

	if err != nil {
		return fmt.Errorf("repair: %w", err)
	}

	if rep.Converged() {
		fmt.Println("\nSUCCESS: already converged")
		return nil
	}

	fmt.Println("\nSUCCESS: repair complete")
	return nil
}
