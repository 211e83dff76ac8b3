package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paydesk/internal/api"
	"paydesk/internal/logger"
	"paydesk/pkg/models"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show payment dashboard statistics",
	Long: `Show the backend's aggregate payment statistics: jobs requiring payment,
jobs with payments, pending/paid/overdue counts and the paid and pending totals.

When the statistics cannot be loaded a zero dashboard is shown together with
a warning.`,
	Example: `  paydesk dashboard
  paydesk dashboard --json`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("dashboard")

	cfg, client, err := setup(log)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cfg, log)
	defer cancel()

	stats, err := client.DashboardStats(ctx)
	if err != nil {
		// Zero stats are still rendered.
		log.Warn().Err(err).Msg("Dashboard stats unavailable")
		if !jsonOutput(cmd) {
			fmt.Fprintf(os.Stderr, "Warning: could not load dashboard stats: %s\n\n", api.Message(err, "unknown error"))
		}
	}

	if jsonOutput(cmd) {
		return printJSON(stats)
	}
	printDashboard(stats)
	return nil
}

func printDashboard(stats models.DashboardStats) {
	rule()
	fmt.Println("                              PAYMENT DASHBOARD")
	rule()
	fmt.Printf("Jobs requiring payment: %d\n", stats.JobsRequiringPayment)
	fmt.Printf("Jobs with payments:     %d\n", stats.JobsWithPayments)
	fmt.Println()
	fmt.Printf("Pending payments:       %d\n", stats.PendingPayments)
	fmt.Printf("Paid payments:          %d\n", stats.PaidPayments)
	fmt.Printf("Overdue payments:       %d\n", stats.OverduePayments)
	fmt.Println()
	fmt.Printf("Total paid:             %s\n", money(stats.TotalAmountPaid))
	fmt.Printf("Total pending:          %s\n", money(stats.TotalAmountPending))
	rule()
}
