package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"paydesk/internal/api"
	"paydesk/internal/export"
	"paydesk/internal/logger"
	"paydesk/pkg/models"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run a filtered payments report",
	Long: `Run a payments report over the backend's payment records. All filters are
optional. The summary is taken from the backend, or computed from the
returned records when the backend omits it.

The report rows can be exported to an .xlsx file (--xlsx, with the summary
below the rows) or appended to the Google Sheet configured in GOOGLE_SHEET_URL
(--sheet).`,
	Example: `  paydesk report --year 2024 --status Pending
  paydesk report --from 2024-01-01 --to 2024-03-31 --xlsx q1.xlsx
  paydesk report --job 65f1c0ffee --sheet Reports`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().IntP("page", "p", 1, "Page number")
	reportCmd.Flags().IntP("limit", "l", 100, "Records per page")
	reportCmd.Flags().Int("year", 0, "Year")
	reportCmd.Flags().Int("month", 0, "Month, 1-12")
	reportCmd.Flags().String("status", "", "Paid, Pending or Overdue")
	reportCmd.Flags().String("job", "", "Job id")
	reportCmd.Flags().StringP("search", "s", "", "Search term")
	reportCmd.Flags().String("from", "", "Start date, YYYY-MM-DD")
	reportCmd.Flags().String("to", "", "End date, YYYY-MM-DD")
	addExportFlags(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("report")

	filters, err := reportFilters(cmd)
	if err != nil {
		return err
	}

	cfg, client, err := setup(log)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cfg, log)
	defer cancel()

	report, err := client.Report(ctx, filters)
	if err != nil {
		return handleAPIError(err, "run payments report", log)
	}

	rows := export.PaymentRows(report.Payments)
	if err := exportRows(ctx, cfg, cmd, "Report", rows, &report.Summary, log); err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(report)
	}

	rule()
	fmt.Println("                               PAYMENTS REPORT")
	rule()
	printPayments(report.Payments)
	fmt.Println()
	s := report.Summary
	fmt.Printf("Payments: %d\n", s.TotalPayments)
	fmt.Printf("Total:    %s\n", money(s.TotalAmount))
	fmt.Printf("Paid:     %s\n", money(s.PaidAmount))
	fmt.Printf("Pending:  %s\n", money(s.PendingAmount))
	fmt.Printf("Overdue:  %s\n", money(s.OverdueAmount))
	if p := report.Pagination; p.TotalPages > 1 {
		fmt.Printf("\nPage %d of %d (%d records)\n", p.CurrentPage, p.TotalPages, p.TotalItems)
	}
	return nil
}

func reportFilters(cmd *cobra.Command) (api.ReportFilters, error) {
	var f api.ReportFilters
	f.Page, _ = cmd.Flags().GetInt("page")
	f.Limit, _ = cmd.Flags().GetInt("limit")
	f.Year, _ = cmd.Flags().GetInt("year")
	f.Month, _ = cmd.Flags().GetInt("month")
	f.JobID, _ = cmd.Flags().GetString("job")
	f.Search, _ = cmd.Flags().GetString("search")
	f.StartDate, _ = cmd.Flags().GetString("from")
	f.EndDate, _ = cmd.Flags().GetString("to")

	if f.Month < 0 || f.Month > 12 {
		return f, fmt.Errorf("--month must be between 1 and 12")
	}
	if status, _ := cmd.Flags().GetString("status"); status != "" {
		parsed, err := models.ParsePaymentStatus(status)
		if err != nil {
			return f, err
		}
		f.Status = parsed
	}
	return f, nil
}
