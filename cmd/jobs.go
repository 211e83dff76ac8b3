package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"paydesk/internal/joblist"
	"paydesk/internal/logger"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List payment-eligible jobs",
	Long: `List jobs that have reached a completed status and can be billed.

The search term is sent to the backend and re-applied locally over the job id,
client name, service type and client email fields. Results are sorted on the
client; server pagination is shown unchanged.

Sort keys: date-desc (default), date-asc, client-asc, client-desc,
service-asc, service-desc.`,
	Example: `  paydesk jobs
  paydesk jobs --search acme --sort client-asc
  paydesk jobs --page 3 --limit 25`,
	Args: cobra.NoArgs,
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)

	jobsCmd.Flags().StringP("search", "s", "", "Search term")
	jobsCmd.Flags().IntP("page", "p", 1, "Page number")
	jobsCmd.Flags().IntP("limit", "l", 0, "Jobs per page (default: PAYDESK_PAGE_SIZE)")
	jobsCmd.Flags().String("sort", string(joblist.DefaultSort), "Sort key")
}

func runJobs(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("jobs")

	search, _ := cmd.Flags().GetString("search")
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")
	sortKey, _ := cmd.Flags().GetString("sort")

	cfg, client, err := setup(log)
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = cfg.PageSize
	}

	ctx, cancel := commandContext(cmd, cfg, log)
	defer cancel()

	vm := joblist.NewViewModel(client, limit)
	vm.SetSort(joblist.ParseSortKey(sortKey))

	log.Info().
		Str("search", search).
		Int("page", page).
		Int("limit", limit).
		Str("sort", sortKey).
		Msg("Listing payment-eligible jobs")

	state, err := vm.Search(ctx, search, page, limit)
	if err != nil {
		return handleAPIError(err, "list jobs", log)
	}

	if jsonOutput(cmd) {
		return printJSON(map[string]interface{}{
			"jobs":       state.Jobs,
			"pagination": state.Pagination,
			"sort":       state.Sort,
		})
	}

	printJobs(state)
	return nil
}

func printJobs(state joblist.State) {
	if state.Empty() {
		if state.Query != "" {
			fmt.Printf("No payment-eligible jobs match %q\n", state.Query)
		} else {
			fmt.Println("No payment-eligible jobs")
		}
		return
	}

	fmt.Printf("%-26s %-24s %-18s %-28s %s\n", "ID", "CLIENT", "SERVICE", "EMAIL", "CREATED")
	fmt.Println(strings.Repeat("-", 110))
	for _, job := range state.Jobs {
		fmt.Printf("%-26s %-24s %-18s %-28s %s\n",
			job.ID,
			orDash(job.ClientName),
			orDash(job.ServiceType),
			orDash(job.Email()),
			orDash(job.SortTime().DateString()),
		)
	}

	controls := state.Controls()
	if !controls.Visible {
		return
	}
	fmt.Println()
	pages := make([]string, len(controls.Pages))
	for i, n := range controls.Pages {
		if n == controls.Current {
			pages[i] = fmt.Sprintf("[%d]", n)
		} else {
			pages[i] = fmt.Sprintf("%d", n)
		}
	}
	fmt.Printf("Page %d of %d (%d jobs)  %s\n",
		controls.Current, controls.Total, state.Pagination.TotalItems, strings.Join(pages, " "))
}
