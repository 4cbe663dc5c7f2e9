package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cignalottu/authcore/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the development users",
	Long:  `Creates one user per role. Users whose email already exists are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engineCfg, err := cfg.Engine()
		if err != nil {
			return err
		}
		hasher, err := newHasher(engineCfg)
		if err != nil {
			return fmt.Errorf("configure password hasher: %w", err)
		}
		store, closeStore, err := openStore(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer closeStore()

		res, err := seed.Run(cmd.Context(), store, hasher, log, seed.DevUsers)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d\n", len(res.Created), len(res.Skipped))
		return nil
	},
}
