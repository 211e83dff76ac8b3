package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"paydesk/internal/clientpage"
	"paydesk/internal/logger"
	"paydesk/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [email]",
	Short: "Open the interactive payment page of a client",
	Long: `Open the payment page of a client in the terminal.

Keys: ↑/k and ↓/j move through the jobs, enter shows the payment history of
the highlighted job, r refreshes (or retries after an error), q quits.

Log output goes to LOG_OUTPUT; set LOG_OUTPUT to a file path to keep it out
of the screen.`,
	Example: `  LOG_OUTPUT=paydesk.log paydesk tui owner@acme.io`,
	Args:    cobra.ExactArgs(1),
	RunE:    runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("tui")
	email := strings.TrimSpace(args[0])

	cfg, client, err := setup(log)
	if err != nil {
		return err
	}

	// No overall deadline: each request is bounded by the HTTP client timeout.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("email", email).Msg("Starting client payment page")
	return tui.Run(ctx, clientpage.NewPage(client, email, cfg.FanoutLimit))
}
