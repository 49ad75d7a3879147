package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/plugify/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the default configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err == nil {
		if !cmd.Bool("force") {
			return fmt.Errorf("%w: %s already exists (use --force to overwrite)", shared.ErrInvalidArgument, r.configPath)
		}
		if err := os.Remove(r.configPath); err != nil {
			return fmt.Errorf("failed to replace config file: %w", err)
		}
	}

	if cmd.IsSet("public-url") || cmd.IsSet("port") {
		config := shared.DefaultConfig()
		if cmd.IsSet("public-url") {
			config.Server.PublicURL = cmd.String("public-url")
		}
		if cmd.IsSet("port") {
			config.Server.Port = cmd.Int("port")
		}
		if err := config.Validate(); err != nil {
			return err
		}
		if err := shared.SaveConfig(r.configPath, config); err != nil {
			return err
		}
	} else if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	return r.writePlain("✓ Config written to %s\n", r.configPath)
}

// SetupDatabase opens the configured database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path
	if path == "" || path == shared.MemoryDatabase {
		r.logger.Warn("database is in-memory; todos will not survive a restart", "path", shared.MemoryDatabase)
	}

	r.logger.Info("initializing database", "path", path)

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
	}

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", path)
	return r.writePlain("✓ Database ready (schema version %d)\n", version)
}
