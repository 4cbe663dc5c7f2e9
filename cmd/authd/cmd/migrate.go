package cmd

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply SQL schema migrations",
	Long:  `Creates or upgrades the identities table. Requires store.driver=sql.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openSQL(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		return runMigrations(cmd.Context(), db)
	},
}
