package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alt-coder/synthio/chatbot"
)

// timeRounding keeps the per-answer timing readable in the REPL.
const timeRounding = 10 * time.Millisecond

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bot, _, err := newBot(ctx)
			if err != nil {
				return err
			}
			defer bot.Close()
			return runREPL(ctx, bot, os.Stdin, os.Stdout)
		},
	}
}

// runREPL drives the interactive loop. Split from the command so tests
// can feed it scripted input.
func runREPL(ctx context.Context, bot *chatbot.Bot, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Synthio sales data chat. Type 'help' for commands, 'quit' to leave.")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "\nYou> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			fmt.Fprintln(out, "Bye!")
			return nil
		case "help":
			printHelp(out)
			continue
		case "schema":
			fmt.Fprintln(out, bot.SchemaContext())
			continue
		case "tables":
			if err := printTables(ctx, bot, out); err != nil {
				fmt.Fprintf(out, "Could not list tables: %v\n", err)
			}
			continue
		}

		result, err := bot.AskDetailed(ctx, line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}

		fmt.Fprintf(out, "\nAssistant: %s\n", result.FinalResponse)
		if result.SQLQuery != "" {
			fmt.Fprintf(out, "\n  sql: %s\n", result.SQLQuery)
			notes := []string{fmt.Sprintf("%d rows", result.RowCount), result.Duration.Round(timeRounding).String()}
			if result.RetryCount > 0 {
				notes = append(notes, fmt.Sprintf("%d retries", result.RetryCount))
			}
			if result.Cached {
				notes = append(notes, "cached")
			}
			fmt.Fprintf(out, "  %s\n", strings.Join(notes, ", "))
		}
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `Commands:
  help     Show this help
  schema   Print the database schema documentation
  tables   List tables and row counts
  quit     Leave the chat

Anything else is treated as a question about the sales data.`)
}

func printTables(ctx context.Context, bot *chatbot.Bot, out io.Writer) error {
	tables, err := bot.Tables(ctx)
	if err != nil {
		return err
	}
	for _, table := range tables {
		fmt.Fprintf(out, "  %-24s %d rows\n", table.Name, table.Rows)
	}
	return nil
}
