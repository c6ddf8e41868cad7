package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"headless/internal/auth"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage editor accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username> <display-name> <password>",
	Short: "Create an editor account",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		// Registration does not touch sessions, so no store is needed.
		svc := auth.NewService(auth.NewRepository(db), nil)
		user, err := svc.RegisterUser(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		logger.Info("user created", zap.Int("id", user.ID), zap.String("username", user.Username))
		fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}
