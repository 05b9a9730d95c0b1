package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alt-coder/synthio/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP chat API, the web UI, and the MCP endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bot, settings, err := newBot(ctx)
			if err != nil {
				return err
			}
			defer bot.Close()

			return server.New(bot, settings.ListenAddr).Start(ctx)
		},
	}
}
