package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paydesk/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "paydesk",
	Short: "Paydesk - administer job payments from the command line",
	Long: `Paydesk is a command-line client for the job-payment backend.

It lists payment-eligible jobs, shows the payment history of a job, records
monthly payments, uploads invoice documents and runs payment reports. The
client payment page is available both as a summary command and as an
interactive terminal UI.

Configuration is read from the environment (or a .env file):
  PAYDESK_API_URL       - Backend base URL (required)
  PAYDESK_API_TOKEN     - Bearer token sent with every request
  PAYDESK_TIMEOUT_SECONDS, PAYDESK_RATE_LIMIT, PAYDESK_FANOUT_LIMIT, PAYDESK_PAGE_SIZE`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")
	rootCmd.PersistentFlags().Int("timeout", 0, "Command timeout in seconds (default: PAYDESK_TIMEOUT_SECONDS)")
}
