package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("database migrated", zap.String("dsn", cfg.DatabaseDSN))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
