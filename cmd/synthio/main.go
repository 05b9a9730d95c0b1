// Command synthio is the pharmaceutical sales chatbot: an interactive
// REPL, a one shot ask, an HTTP and MCP server, and CSV data loading.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alt-coder/synthio/chatbot"
	"github.com/alt-coder/synthio/config"
)

var version = "1.0.0"

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "synthio",
		Short: "Natural language chatbot over the pharmaceutical sales database",
		Long: `synthio answers plain English questions about the pharmaceutical sales
dataset by planning, generating, and validating SQL with an LLM, then
writing the result back as prose.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")

	root.AddCommand(chatCmd(), askCmd(), serveCmd(), loadCmd(), schemaCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initApp resolves settings and prepares logging. Every subcommand
// calls it before doing anything else.
func initApp() (*config.Settings, error) {
	// Populate the environment from .env before the config reads it.
	_ = godotenv.Load()

	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	configureLogging(settings)
	return settings, nil
}

func configureLogging(settings *config.Settings) {
	if settings.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(settings.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// newBot builds the fully wired bot most subcommands run against.
func newBot(ctx context.Context) (*chatbot.Bot, *config.Settings, error) {
	settings, err := initApp()
	if err != nil {
		return nil, nil, err
	}
	bot, err := chatbot.New(ctx, settings)
	if err != nil {
		return nil, nil, err
	}
	return bot, settings, nil
}
