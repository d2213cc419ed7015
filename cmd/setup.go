package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediactl/internal/shared"
)

// SetupConfig writes config.toml from the embedded template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if _, err := os.Stat(path); err == nil {
		if !cmd.Bool("force") {
			return fmt.Errorf("%w: %s already exists, pass --force to overwrite", shared.ErrInvalidArgument, path)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to replace config file: %w", err)
		}
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Configuration written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set api.base_url, or MEDIACTL_API_BASE_URL in .env\n")
	r.writePlain("2. Set MEDIACTL_API_TOKEN in .env\n")
	r.writePlain("3. Run 'mediactl setup database'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.database()
	if err != nil {
		return err
	}

	if cmd.Bool("rollback") {
		mig, err := shared.RollbackMigration(db)
		if err != nil {
			return err
		}
		r.logger.Warn("rolled back migration", "version", mig.Version, "name", mig.Name)
		r.writePlain("✓ Rolled back %04d_%s\n", mig.Version, mig.Name)
		return nil
	}

	versions, err := shared.AppliedVersions(db)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s (%d migrations applied)\n", r.config.Database.Path, len(versions))
	return nil
}
