package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remardo/mkk-portal/internal/cli"
	"github.com/remardo/mkk-portal/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portald",
		Short: "Portal daemon and CLI",
		Long:  "Portal daemon for running the API server and managing employee profiles and sessions",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.ProfileCmd())
	rootCmd.AddCommand(admin.SessionCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
