// Command migrate manages the service's database schema from the
// command line. Exactly one action flag must be given per invocation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-enrichment-service/internal/config"
	"github.com/helixir/paper-enrichment-service/internal/database"
	"github.com/helixir/paper-enrichment-service/internal/observability"
)

const connectTimeout = 30 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	var (
		up    = fs.Bool("up", false, "apply all pending migrations")
		down  = fs.Bool("down", false, "revert all applied migrations")
		steps = fs.Int("steps", 0, "apply N migrations (negative N reverts)")
		ver   = fs.Bool("version", false, "print the current schema version")
		force = fs.Int("force", -1, "overwrite the schema version without migrating")
		dir   = fs.String("path", "", "migrations directory (defaults to the configured path)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	actions := 0
	for _, set := range []bool{*up, *down, *steps != 0, *ver, *force >= 0} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		fs.Usage()
		return errors.New("exactly one of -up, -down, -steps, -version, -force is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}).With().Str("component", "migrate").Logger()

	if *dir == "" {
		*dir = cfg.Database.MigrationPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	mg, err := database.NewMigrator(db, *dir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := mg.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("closing migrator")
		}
	}()

	switch {
	case *up:
		err = mg.Up()
	case *down:
		err = mg.Down()
	case *steps != 0:
		err = mg.Steps(*steps)
	case *force >= 0:
		err = mg.Force(*force)
	}
	if err != nil {
		return err
	}

	reportVersion(mg, logger)
	return nil
}

func reportVersion(mg *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := mg.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("schema version unknown")
		return
	}
	logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("schema version")
}
