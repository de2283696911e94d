// agrotwin runs the AgroLinker session twin and talks to a running one.
//
// Usage:
//
//	agrotwin serve                 Start the twin (reads agrotwin.yaml)
//	agrotwin catalog [kind]        Print the reference catalog
//	agrotwin project               Quote an investment projection offline
//	agrotwin status                Summarise a running twin
//	agrotwin reset                 Drop every session on a running twin
//	agrotwin seed <file>           Replace session state from a JSON file
//	agrotwin advance <duration>    Move a running twin's simulated clock
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath string
	adminURL   string
)

var rootCmd = &cobra.Command{
	Use:           "agrotwin",
	Short:         "AgroLinker session twin",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `agrotwin simulates the AgroLinker client application state: wallet,
investment ledger, cart and checkout, notifications and service bookings,
one isolated session per client, over HTTP.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./agrotwin.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&adminURL, "url", "http://127.0.0.1:4100", "Base URL of a running twin")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(advanceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "agrotwin: %v\n", err)
		os.Exit(1)
	}
}
