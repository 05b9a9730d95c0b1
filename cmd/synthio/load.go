package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alt-coder/synthio/store"
)

func loadCmd() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load CSV files into the database, one table per file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			settings, err := initApp()
			if err != nil {
				return err
			}

			db, err := store.Open(settings)
			if err != nil {
				return err
			}
			defer db.Close()

			reports, err := store.NewLoader(db).LoadDirectory(ctx, dataDir)
			if err != nil {
				return err
			}

			for _, report := range reports {
				fmt.Printf("loaded %-24s %d rows\n", report.Table, report.Rows)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data", "./data", "Directory containing the CSV files")
	return cmd
}
