package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hrtaj/hrtaj-cli/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the local SQLite schema",
	Long:  "Creates the listing, project, lead and import-run tables plus the report views in the SQLite file named by store.database_url. Postgres schemas are managed by the platform.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Store.Driver != "sqlite" {
			return eris.Errorf("migrate only bootstraps the sqlite store (driver is %q)", cfg.Store.Driver)
		}
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}

		st, err := store.NewSQLite(dsn)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		zap.L().Info("sqlite schema ready", zap.String("path", dsn))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
