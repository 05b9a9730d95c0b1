package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alt-coder/synthio/schema"
	"github.com/alt-coder/synthio/store"
)

func schemaCmd() *cobra.Command {
	var static bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the schema documentation the model sees",
		RunE: func(cmd *cobra.Command, args []string) error {
			if static {
				fmt.Print(schema.Documentation + "\n")
				return nil
			}

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

			doc, err := schema.Build(ctx, db, true)
			if err != nil {
				return err
			}
			fmt.Println(doc)
			return nil
		},
	}

	cmd.Flags().BoolVar(&static, "static", false, "Print only the curated documentation, without touching the database")
	return cmd
}
