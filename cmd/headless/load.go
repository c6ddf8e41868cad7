package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"headless/internal/fixtures"
	"headless/internal/page"
	"headless/internal/pagetype"
	"headless/internal/redirect"
	"headless/internal/site"
)

var loadDemo bool

var loadCmd = &cobra.Command{
	Use:   "load [fixtures.yaml]",
	Short: "Load sites, pages and redirects from a YAML fixture file",
	Long: `Load sites, pages and redirects from a YAML fixture file.

The whole document is checked before anything is written, so a bad type,
ref or site leaves the database untouched.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if loadDemo == (len(args) == 1) {
			return errors.New("pass either a fixture file or --demo")
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		loader := &fixtures.Loader{
			Pages:     page.NewRepository(db),
			Sites:     site.NewRepository(db),
			Redirects: redirect.NewRepository(db),
			Types:     pagetype.NewRegistry(cfg.PageTypes...),
			Logger:    logger,
		}

		var res fixtures.Result
		if loadDemo {
			res, err = loader.LoadDemo(cmd.Context())
		} else {
			res, err = loader.LoadFile(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		for ref, id := range res.Pages {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", id, ref)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().BoolVar(&loadDemo, "demo", false, "Load the bundled demo content")
}
