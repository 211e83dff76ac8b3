package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"paydesk/internal/api"
	"paydesk/internal/config"
	"paydesk/internal/export"
	"paydesk/internal/sheets"
	"paydesk/internal/upload"
	"paydesk/pkg/models"
)

// loadConfig reads the environment configuration with a user-facing error.
func loadConfig(log zerolog.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Configuration invalid")
		return nil, fmt.Errorf("invalid configuration. Please check your .env file:\n"+
			"  PAYDESK_API_URL - backend base URL, e.g. https://api.example.com\n"+
			"  PAYDESK_API_TOKEN - bearer token (if the backend requires one)\n"+
			"Original error: %w", err)
	}
	return cfg, nil
}

// newAPIClient creates the backend client from the configuration.
func newAPIClient(cfg *config.Config) (*api.Client, error) {
	return api.NewClient(api.Config{
		BaseURL:           cfg.APIURL,
		Token:             cfg.APIToken,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.RateLimit,
		UserAgent:         "paydesk/" + version,
	})
}

// setup loads the configuration and creates the backend client.
func setup(log zerolog.Logger) (*config.Config, *api.Client, error) {
	cfg, err := loadConfig(log)
	if err != nil {
		return nil, nil, err
	}
	client, err := newAPIClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	log.Debug().Str("api_url", client.BaseURL()).Msg("Backend client created")
	return cfg, client, nil
}

// commandContext creates a context bounded by the --timeout flag (or the
// configured timeout) that is also canceled on SIGINT and SIGTERM.
func commandContext(cmd *cobra.Command, cfg *config.Config, log zerolog.Logger) (context.Context, context.CancelFunc) {
	timeout := cfg.Timeout()
	if secs, _ := cmd.Flags().GetInt("timeout"); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func jsonOutput(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}

func printJSON(v interface{}) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	fmt.Println(string(jsonData))
	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func rule() {
	fmt.Println(strings.Repeat("=", 80))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// handleAPIError turns a backend failure into a user-facing error. action
// names what was attempted, e.g. "load payment history".
func handleAPIError(err error, action string, log zerolog.Logger) error {
	log.Error().Err(err).Str("action", action).Msg("Backend call failed")

	msg := api.Message(err, "unknown error")
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s timed out. Try increasing --timeout", action)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s was canceled", action)
	case errors.Is(err, api.ErrInvalidArgument):
		return fmt.Errorf("cannot %s: %s", action, msg)
	case errors.Is(err, api.ErrTransport):
		return fmt.Errorf("cannot %s: backend unreachable. Check PAYDESK_API_URL and your network: %s", action, msg)
	case api.IsStatus(err, http.StatusUnauthorized), api.IsStatus(err, http.StatusForbidden):
		return fmt.Errorf("cannot %s: not authorized. Check PAYDESK_API_TOKEN: %s", action, msg)
	case api.IsStatus(err, http.StatusNotFound):
		return fmt.Errorf("cannot %s: not found: %s", action, msg)
	case errors.Is(err, api.ErrDecode):
		return fmt.Errorf("cannot %s: the backend answered in an unexpected format: %s", action, msg)
	case errors.Is(err, api.ErrServer):
		return fmt.Errorf("cannot %s: %s", action, msg)
	default:
		return fmt.Errorf("failed to %s: %w", action, err)
	}
}

// handleUploadError maps upload flow failures, keeping validation messages
// as they are shown in the form.
func handleUploadError(err error, flow *upload.Flow, log zerolog.Logger) error {
	var v *upload.ValidationError
	if errors.As(err, &v) {
		log.Warn().Err(err).Msg("Upload rejected")
		return errors.New(v.Message)
	}
	if errors.Is(err, upload.ErrBusy) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return handleAPIError(err, "upload invoice", log)
	}
	if flow != nil {
		if msg := flow.Snapshot().Message; msg != "" {
			log.Error().Err(err).Msg("Invoice upload failed")
			return fmt.Errorf("upload failed: %s", msg)
		}
	}
	return handleAPIError(err, "upload invoice", log)
}

// exportRows writes rows to an xlsx file and/or a Google Sheet when the
// corresponding flag is set.
func exportRows(ctx context.Context, cfg *config.Config, cmd *cobra.Command, sheetTitle string, rows []export.Row, summary *models.ReportSummary, log zerolog.Logger) error {
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	sheetName, _ := cmd.Flags().GetString("sheet")

	if xlsxPath != "" {
		if err := export.WriteXLSX(xlsxPath, sheetTitle, rows, summary); err != nil {
			return fmt.Errorf("failed to write %s: %w", xlsxPath, err)
		}
		log.Info().Str("path", xlsxPath).Int("rows", len(rows)).Msg("Wrote xlsx export")
		if !jsonOutput(cmd) {
			fmt.Printf("Exported %d rows to %s\n", len(rows), xlsxPath)
		}
	}

	if cmd.Flags().Changed("sheet") || sheetName != "" {
		if err := appendToSheet(ctx, cfg, sheetName, rows, log); err != nil {
			return err
		}
		if !jsonOutput(cmd) {
			fmt.Printf("Appended %d rows to Google Sheet %s\n", len(rows), cfg.GoogleSheetURL)
		}
	}
	return nil
}

func appendToSheet(ctx context.Context, cfg *config.Config, sheetName string, rows []export.Row, log zerolog.Logger) error {
	if !cfg.HasSheets() {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required for --sheet")
	}
	if sheetName == "" {
		sheetName = cfg.GoogleSheetWorksheet
	}
	creds, err := cfg.GoogleCredentials()
	if err != nil {
		return err
	}
	service, err := sheets.NewService(ctx, cfg.GoogleSheetURL, creds)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Google Sheets service")
		return fmt.Errorf("failed to create Google Sheets service: %w", err)
	}
	if err := service.AppendPaymentRows(ctx, sheetName, rows); err != nil {
		return fmt.Errorf("failed to write to Google Sheet: %w", err)
	}
	return nil
}

// addExportFlags registers --xlsx and --sheet.
func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().String("xlsx", "", "Export the rows to an .xlsx file")
	cmd.Flags().String("sheet", "", "Append the rows to this worksheet of GOOGLE_SHEET_URL")
}
