package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remardo/mkk-portal/internal/cli"
	"github.com/remardo/mkk-portal/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal",
		Short: "Portal CLI - knowledge base assistant for МКК ФК employees",
		Long: `Portal CLI provides access to the internal knowledge base and assistant.

Environment variables:
  PORTAL_TOKEN     Session token for authentication (required)
  PORTAL_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("token", "", "Session token for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.GetCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
