package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func askCmd() *cobra.Command {
	var details bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bot, _, err := newBot(ctx)
			if err != nil {
				return err
			}
			defer bot.Close()

			result, err := bot.AskDetailed(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			if details {
				raw, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(raw))
				return nil
			}

			fmt.Println(result.FinalResponse)
			if !result.Success {
				return fmt.Errorf("the question could not be answered")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&details, "details", false, "Print the full run metadata as JSON")
	return cmd
}
