// Package cli provides the command-line interface for the catalog
// automation server.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/client"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string

	// apiClient talks to the automation server.
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mercado",
	Short: "Bulk catalog automation for the market dashboard",
	Long: `Mercado drives the catalog automation server: bulk-renaming products,
assigning categories and subcategories via an LLM classifier, and
reverting runs that went wrong.

All commands talk to a running mercado-server instance.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		apiClient = client.New(serverURL)
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "automation server URL (default $MERCADO_SERVER_URL or http://localhost:8474)")

	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(categorizeCmd)
	rootCmd.AddCommand(targetedCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(usageCmd)
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
