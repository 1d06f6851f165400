// Command migrate applies or inspects the Warbler database schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"warbler/internal/config"
	"warbler/internal/database"

	"gorm.io/gorm"
)

const usageText = "usage: go run ./cmd/migrate <up|auto|status|list|down <version>|redo <version>>"

func main() {
	log.SetPrefix("migrate: ")
	log.SetFlags(0)
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return fmt.Errorf(usageText)
	}
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))

	// list needs no database.
	if cmd == "list" {
		for _, m := range database.GetMigrations() {
			log.Printf("%s", m.String())
		}
		return nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.Options{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	switch cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		return printStatus(ctx, db, cfg)
	case "down", "redo":
		version, err := versionArg()
		if err != nil {
			return err
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Printf("rolled back migration %d", version)
		if cmd == "redo" {
			if err := database.RunMigrations(ctx, db); err != nil {
				return fmt.Errorf("reapply failed: %w", err)
			}
			log.Printf("reapplied pending migrations")
		}
	default:
		return fmt.Errorf(usageText)
	}
	return nil
}

func versionArg() (int, error) {
	if flag.NArg() < 2 {
		return 0, fmt.Errorf("%s needs a version", flag.Arg(0))
	}
	version, err := strconv.Atoi(flag.Arg(1))
	if err != nil || database.GetMigrationByVersion(version) == nil {
		return 0, fmt.Errorf("unknown migration version %q", flag.Arg(1))
	}
	return version, nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	log.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%v pending=%d",
		status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
		status.AppliedVersions, len(status.PendingMigrations))
	for _, m := range status.PendingMigrations {
		log.Printf("pending: %06d_%s", m.Version, m.Name)
	}
	return nil
}
