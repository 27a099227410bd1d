// Package cli provides the command-line interface for vroomie.
package cli

import (
	"github.com/raphaelgruber/vroomie/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	// Global flags
	serverURL string
	verbose   bool

	cfg config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vroomie",
	Short: "Chat assistant for vehicle questions",
	Long: `Vroomie is a chat assistant for vehicle questions: specs, prices,
comparisons, market trends. It talks to a vroomie-server over a realtime
websocket channel, reconnecting with backoff and falling back to plain
HTTP when the channel is unavailable.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "server base URL (default from VROOMIE_SERVER_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
}
