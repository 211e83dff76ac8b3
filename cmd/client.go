package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"paydesk/internal/api"
	"paydesk/internal/clientpage"
	"paydesk/internal/history"
	"paydesk/internal/logger"
)

var clientCmd = &cobra.Command{
	Use:   "client [email]",
	Short: "Show the payment page of a client",
	Long: `Show the payment page of the client with the given email: the client
profile, the client's payment-eligible jobs and the payment history of the
selected job (the newest job unless --job is given).

With --overview the payment history of every job is fetched concurrently
(bounded by PAYDESK_FANOUT_LIMIT) to show which jobs have payment records.`,
	Example: `  paydesk client owner@acme.io
  paydesk client owner@acme.io --job 65f1c0ffee
  paydesk client owner@acme.io --overview --json`,
	Args: cobra.ExactArgs(1),
	RunE: runClient,
}

func init() {
	rootCmd.AddCommand(clientCmd)

	clientCmd.Flags().String("job", "", "Job to show the payment history of")
	clientCmd.Flags().Bool("overview", false, "Mark which jobs have payment records")
}

func runClient(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("client")
	email := strings.TrimSpace(args[0])

	jobID, _ := cmd.Flags().GetString("job")
	overview, _ := cmd.Flags().GetBool("overview")

	cfg, client, err := setup(log)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cfg, log)
	defer cancel()

	page := clientpage.NewPage(client, email, cfg.FanoutLimit)
	state, err := page.Refresh(ctx)
	if err != nil {
		return handleAPIError(err, "load client jobs", log)
	}

	if jobID != "" && jobID != state.SelectedJobID {
		if _, err := page.SelectJob(ctx, jobID); err != nil {
			if errors.Is(err, clientpage.ErrUnknownJob) {
				return fmt.Errorf("job %s is not a payment-eligible job of %s", jobID, email)
			}
			log.Warn().Err(err).Str("job_id", jobID).Msg("Selected job history unavailable")
		}
		state = page.State()
	}

	var fanout []history.JobPayments
	if overview {
		fanout = page.PaymentsOverview(ctx)
		state = page.State()
	}
	hist := page.History.State()

	if jsonOutput(cmd) {
		out := map[string]interface{}{
			"client":        state.Client,
			"jobs":          state.Jobs,
			"selectedJobId": state.SelectedJobID,
			"payments":      hist.Records,
			"stats":         hist.Stats,
		}
		if overview {
			out["overview"] = fanout
		}
		return printJSON(out)
	}

	printClientPage(state, hist)
	return nil
}

func printClientPage(state clientpage.State, hist history.State) {
	c := state.Client
	rule()
	fmt.Printf("CLIENT %s <%s>\n", c.Name, c.Email)
	rule()
	fmt.Printf("Company: %s\n", orDash(c.Company))
	fmt.Printf("Phone:   %s\n", orDash(c.Phone))
	if state.ClientErr != nil {
		fmt.Println("(client profile unavailable)")
	}
	fmt.Println()

	if state.Empty() {
		fmt.Println("No payment-eligible jobs for this client")
		return
	}

	fmt.Println("=== JOBS ===")
	for _, job := range state.Jobs {
		marker := " "
		if job.ID == state.SelectedJobID {
			marker = "*"
		}
		payments := ""
		if job.HasPayments {
			payments = "  [payments]"
		}
		fmt.Printf("%s %-26s %-18s %s%s\n",
			marker, job.ID, orDash(job.ServiceType), orDash(job.SortTime().DateString()), payments)
	}
	fmt.Println()

	if hist.Status == history.StatusError && !hist.Stale {
		fmt.Printf("Payment history unavailable: %s\n", api.Message(hist.Err, "Failed to load payment history"))
		return
	}
	if hist.Stale {
		fmt.Printf("Showing last loaded payments: %s\n", api.Message(hist.Err, "Failed to load payment history"))
	}
	printHistory(hist)
}
