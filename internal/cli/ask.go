package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/vroomie/internal/client"
	"github.com/spf13/cobra"
)

var askTimeout time.Duration

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Ask a single vehicle question",
	Long: `Ask a single question and print the answer.

Uses the server's one-shot endpoint: no conversation history is kept
between questions. For a stateful conversation use 'vroomie chat'.

Examples:
  vroomie ask "Tesla Model 3 price"
  vroomie ask "best commuter EV under 30k" --timeout 2m`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().DurationVar(&askTimeout, "timeout", time.Minute, "request timeout")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	answer, err := client.Ask(ctx, cfg.ServerURL, args[0])
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Print(answer)
	return nil
}
