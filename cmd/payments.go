package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"paydesk/internal/api"
	"paydesk/internal/history"
	"paydesk/internal/logger"
	"paydesk/pkg/models"
)

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "List and manage monthly payment records",
	Long: `List, record, update and delete the monthly payment records of jobs.

Each job has at most one payment record per year and month. Recording a month
that already exists updates it.`,
}

var paymentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List payment records",
	Example: `  paydesk payments list
  paydesk payments list --year 2024 --search acme`,
	Args: cobra.NoArgs,
	RunE: runPaymentsList,
}

func init() {
	rootCmd.AddCommand(paymentsCmd)
	paymentsCmd.AddCommand(paymentsListCmd)

	paymentsListCmd.Flags().StringP("search", "s", "", "Search term")
	paymentsListCmd.Flags().Int("year", 0, "Only records of this year")
	paymentsListCmd.Flags().IntP("page", "p", 1, "Page number")
	paymentsListCmd.Flags().IntP("limit", "l", 0, "Records per page (default: PAYDESK_PAGE_SIZE)")
}

func runPaymentsList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("payments")

	search, _ := cmd.Flags().GetString("search")
	year, _ := cmd.Flags().GetInt("year")
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, client, err := setup(log)
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = cfg.PageSize
	}
	ctx, cancel := commandContext(cmd, cfg, log)
	defer cancel()

	result, err := client.Payments(ctx, api.PaymentQuery{Page: page, Limit: limit, Search: search, Year: year})
	if err != nil {
		return handleAPIError(err, "list payments", log)
	}

	if jsonOutput(cmd) {
		return printJSON(result)
	}
	printPayments(result.Payments)
	p := result.Pagination
	if p.TotalPages > 1 {
		fmt.Printf("\nPage %d of %d (%d records)\n", p.CurrentPage, p.TotalPages, p.TotalItems)
	}
	return nil
}

func printPayments(records []models.PaymentRecord) {
	if len(records) == 0 {
		fmt.Println("No payment records")
		return
	}
	fmt.Printf("%-26s %-26s %-16s %12s  %-8s %s\n", "ID", "JOB", "MONTH", "AMOUNT", "STATUS", "DOC")
	fmt.Println(strings.Repeat("-", 100))
	for _, r := range records {
		job := r.JobID.Name
		if job == "" {
			job = r.JobID.ID
		}
		doc := ""
		if history.HasDocument(r) {
			doc = "yes"
		}
		fmt.Printf("%-26s %-26s %-16s %12s  %-8s %s\n",
			r.ID,
			orDash(job),
			fmt.Sprintf("%s %d", r.DisplayMonth(), r.Year),
			money(r.TotalAmount),
			r.Status,
			orDash(doc),
		)
	}
}

func printPayment(record *models.PaymentRecord) {
	if record == nil {
		return
	}
	fmt.Printf("Payment:  %s\n", record.ID)
	fmt.Printf("Job:      %s\n", orDash(record.JobID.ID))
	fmt.Printf("Period:   %s %d\n", record.DisplayMonth(), record.Year)
	fmt.Printf("Amount:   %s\n", money(record.TotalAmount))
	fmt.Printf("Status:   %s\n", record.Status)
	if record.Notes != "" {
		fmt.Printf("Notes:    %s\n", record.Notes)
	}
}
