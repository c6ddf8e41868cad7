package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"headless/internal/draft"
)

var draftCodeCmd = &cobra.Command{
	Use:   "draft-code <page-id>",
	Short: "Print today's draft code for a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageID, err := strconv.Atoi(args[0])
		if err != nil || pageID <= 0 {
			return fmt.Errorf("invalid page id %q", args[0])
		}
		token, ok := draft.NewVerifier(cfg.DraftCode).TokenFor(pageID)
		if !ok {
			return errors.New("draft.code is not configured")
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(draftCodeCmd)
}
