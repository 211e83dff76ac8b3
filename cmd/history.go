package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"paydesk/internal/export"
	"paydesk/internal/history"
	"paydesk/internal/logger"
)

var historyCmd = &cobra.Command{
	Use:   "history [job-id]",
	Short: "Show the payment history of a job",
	Long: `Show every monthly payment record of a job, newest first, with the total,
paid and pending amounts and the document attached to each month.

The records can be exported to an .xlsx file (--xlsx) or appended to the
Google Sheet configured in GOOGLE_SHEET_URL (--sheet).`,
	Example: `  paydesk history 65f1c0ffee
  paydesk history 65f1c0ffee --xlsx acme.xlsx
  paydesk history 65f1c0ffee --sheet Payments`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	addExportFlags(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("history")
	jobID := args[0]

	cfg, client, err := setup(log)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cfg, log)
	defer cancel()

	vm := history.NewViewModel(client)
	state, err := vm.Load(ctx, jobID)
	if err != nil {
		return handleAPIError(err, "load payment history", log)
	}

	rows := export.PaymentRows(state.Records)
	if err := exportRows(ctx, cfg, cmd, "", rows, nil, log); err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(map[string]interface{}{
			"jobId":    jobID,
			"payments": state.Records,
			"stats":    state.Stats,
		})
	}

	printHistory(state)
	return nil
}

func printHistory(state history.State) {
	rule()
	fmt.Printf("PAYMENT HISTORY %s\n", state.JobID)
	rule()

	if state.Empty() {
		fmt.Println("No payment records for this job")
		return
	}

	stats := state.Stats
	fmt.Printf("Total: %s  Paid: %s  Pending: %s\n", money(stats.Total), money(stats.Paid), money(stats.Pending))
	if stats.LastPaymentDate != nil {
		fmt.Printf("Last payment: %s\n", stats.LastPaymentDate.Format("2006-01-02"))
	}
	fmt.Println()

	fmt.Printf("%-16s %12s  %-8s %-9s %s\n", "MONTH", "AMOUNT", "STATUS", "INVOICES", "DOCUMENT")
	fmt.Println(strings.Repeat("-", 80))
	for _, record := range state.Records {
		document := "-"
		if doc, ok := history.PrimaryDocument(record); ok {
			document = orDash(doc.Description)
			if doc.FileURL != "" {
				document += " (" + doc.FileURL + ")"
			}
		}
		fmt.Printf("%-16s %12s  %-8s %-9d %s\n",
			fmt.Sprintf("%s %d", record.DisplayMonth(), record.Year),
			money(record.TotalAmount),
			record.Status,
			len(history.PaymentInvoices(record)),
			document,
		)
		if record.Notes != "" {
			fmt.Printf("  Notes: %s\n", record.Notes)
		}
	}
}
