package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"paydesk/internal/logger"
	"paydesk/pkg/models"
)

var paymentsStatusCmd = &cobra.Command{
	Use:     "status [payment-id]",
	Short:   "Change the status of a payment record",
	Example: `  paydesk payments status 6601beef --status Paid --notes "settled by wire"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runPaymentsStatus,
}

var paymentsDeleteCmd = &cobra.Command{
	Use:     "delete [payment-id]",
	Short:   "Delete a payment record",
	Example: `  paydesk payments delete 6601beef`,
	Args:    cobra.ExactArgs(1),
	RunE:    runPaymentsDelete,
}

func init() {
	paymentsCmd.AddCommand(paymentsStatusCmd)
	paymentsCmd.AddCommand(paymentsDeleteCmd)

	paymentsStatusCmd.Flags().String("status", "", "Paid, Pending or Overdue (required)")
	paymentsStatusCmd.Flags().String("notes", "", "Notes")
	_ = paymentsStatusCmd.MarkFlagRequired("status")
}

func runPaymentsStatus(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("payments")

	statusFlag, _ := cmd.Flags().GetString("status")
	notes, _ := cmd.Flags().GetString("notes")

	status, err := models.ParsePaymentStatus(statusFlag)
	if err != nil {
		return err
	}

	cfg, client, err := setup(log)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cfg, log)
	defer cancel()

	record, err := client.UpdatePaymentStatus(ctx, args[0], status, notes)
	if err != nil {
		return handleAPIError(err, "update payment status", log)
	}

	if jsonOutput(cmd) {
		return printJSON(record)
	}
	fmt.Printf("Payment %s is now %s\n", args[0], status)
	printPayment(record)
	return nil
}

func runPaymentsDelete(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("payments")

	cfg, client, err := setup(log)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cfg, log)
	defer cancel()

	message, err := client.DeletePayment(ctx, args[0])
	if err != nil {
		return handleAPIError(err, "delete payment", log)
	}

	if jsonOutput(cmd) {
		return printJSON(map[string]string{"id": args[0], "message": message})
	}
	if message == "" {
		message = "Payment deleted"
	}
	fmt.Println(message)
	return nil
}
