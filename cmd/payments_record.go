package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"paydesk/internal/api"
	"paydesk/internal/logger"
	"paydesk/internal/upload"
	"paydesk/pkg/models"
)

var paymentsRecordCmd = &cobra.Command{
	Use:   "record [job-id]",
	Short: "Create or update the payment record of a month",
	Long: `Create the payment record of a job for one year and month, or update it when
it already exists.

Invoices are given as description:amount[:method[:date]]. The method defaults
to "Bank Transfer" and the date to today. Files given with --file are attached
in the same order as the invoices.`,
	Example: `  paydesk payments record 65f1c0ffee --year 2024 --month 5
  paydesk payments record 65f1c0ffee --year 2024 --month 5 --status Paid \
    --invoice "May payroll:1250.00:Bank Transfer:2024-05-31" --file may.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runPaymentsRecord,
}

func init() {
	paymentsCmd.AddCommand(paymentsRecordCmd)

	paymentsRecordCmd.Flags().Int("year", 0, "Year of the record (required)")
	paymentsRecordCmd.Flags().Int("month", 0, "Month of the record, 1-12 (required)")
	paymentsRecordCmd.Flags().String("status", string(models.PaymentPending), "Paid, Pending or Overdue")
	paymentsRecordCmd.Flags().String("notes", "", "Notes")
	paymentsRecordCmd.Flags().String("job-type", "", "Job type")
	paymentsRecordCmd.Flags().StringArray("invoice", nil, "Invoice as description:amount[:method[:date]] (repeatable)")
	paymentsRecordCmd.Flags().StringArray("file", nil, "Invoice file to attach (repeatable)")
	_ = paymentsRecordCmd.MarkFlagRequired("year")
	_ = paymentsRecordCmd.MarkFlagRequired("month")
}

func runPaymentsRecord(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("payments")

	year, _ := cmd.Flags().GetInt("year")
	month, _ := cmd.Flags().GetInt("month")
	statusFlag, _ := cmd.Flags().GetString("status")
	notes, _ := cmd.Flags().GetString("notes")
	jobType, _ := cmd.Flags().GetString("job-type")
	invoiceFlags, _ := cmd.Flags().GetStringArray("invoice")
	filePaths, _ := cmd.Flags().GetStringArray("file")

	status, err := models.ParsePaymentStatus(statusFlag)
	if err != nil {
		return err
	}

	invoices := make([]api.NewInvoice, 0, len(invoiceFlags))
	for _, raw := range invoiceFlags {
		inv, err := parseInvoiceFlag(raw, time.Now())
		if err != nil {
			return err
		}
		invoices = append(invoices, inv)
	}

	files := make([]api.File, 0, len(filePaths))
	for _, path := range filePaths {
		f, err := upload.FileFromPath(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		if err := f.Validate(); err != nil {
			return handleUploadError(err, nil, log)
		}
		files = append(files, api.File{Name: f.Name, ContentType: f.MIMEType, Content: f.Content})
	}

	cfg, client, err := setup(log)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cfg, log)
	defer cancel()

	log.Info().
		Str("job_id", args[0]).
		Int("year", year).
		Int("month", month).
		Int("invoices", len(invoices)).
		Int("files", len(files)).
		Msg("Recording payment")

	record, err := client.CreatePayment(ctx, api.CreatePaymentRequest{
		JobID:    args[0],
		JobType:  jobType,
		Year:     year,
		Month:    month,
		Status:   status,
		Notes:    notes,
		Invoices: invoices,
		Files:    files,
	})
	if err != nil {
		return handleAPIError(err, "record payment", log)
	}

	if jsonOutput(cmd) {
		return printJSON(record)
	}
	fmt.Println("Payment recorded")
	printPayment(record)
	return nil
}

// parseInvoiceFlag parses description:amount[:method[:date]]. now supplies
// the default invoice date.
func parseInvoiceFlag(raw string, now time.Time) (api.NewInvoice, error) {
	parts := strings.SplitN(raw, ":", 4)
	if len(parts) < 2 {
		return api.NewInvoice{}, fmt.Errorf("invalid --invoice %q: expected description:amount[:method[:date]]", raw)
	}

	description := strings.TrimSpace(parts[0])
	if description == "" {
		return api.NewInvoice{}, fmt.Errorf("invalid --invoice %q: description is required", raw)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return api.NewInvoice{}, fmt.Errorf("invalid --invoice %q: amount: %w", raw, err)
	}

	inv := api.NewInvoice{
		Description:   description,
		Amount:        amount,
		PaymentMethod: "Bank Transfer",
		InvoiceDate:   now.Format("2006-01-02"),
	}
	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		inv.PaymentMethod = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
		date := strings.TrimSpace(parts[3])
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return api.NewInvoice{}, fmt.Errorf("invalid --invoice %q: date must be YYYY-MM-DD", raw)
		}
		inv.InvoiceDate = date
	}
	return inv, nil
}
