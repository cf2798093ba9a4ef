package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
	"github.com/pgEdge/pgedge-salesmart/pkg/version"
)

var initDropExisting bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the warehouse schema",
	Long: `Create the star schema tables, the load audit log and the report
views in the configured warehouse. Tables are created empty; use the
'load' command to populate them.

Example:
  pgedge-salesmart init --connection "postgres://..."
  pgedge-salesmart init --backend duckdb --duckdb-path ./sales.duckdb --drop-existing`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop existing schema, data and audit history before initialization")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	logging.Info().
		Str("backend", store.Backend()).
		Msg("Initializing warehouse")

	// Refuse to silently reuse a schema from another release
	existing, err := store.Metadata(ctx, "schema_version")
	if err == nil && existing != "" && existing != version.SchemaVersion && !initDropExisting {
		return fmt.Errorf(
			"warehouse has schema version '%s' but this build uses '%s'; "+
				"use --drop-existing to reinitialize",
			existing, version.SchemaVersion)
	}

	if initDropExisting {
		logging.Warn().Msg("Dropping existing schema")
		if err := store.DropSchema(ctx); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
	}

	logging.Info().Msg("Creating schema")
	if err := store.CreateSchema(ctx); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := store.SaveMetadata(ctx, map[string]string{
		"schema_version": version.SchemaVersion,
		"version":        version.Version,
		"backend":        store.Backend(),
		"initialized_at": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	logging.Info().
		Str("backend", store.Backend()).
		Str("schema_version", version.SchemaVersion).
		Msg("Warehouse initialization complete")

	return nil
}
