package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"paydesk/internal/config"
	"paydesk/internal/extract"
	"paydesk/internal/logger"
	"paydesk/internal/ocr"
	"paydesk/internal/upload"
	"paydesk/pkg/models"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [payment-id] [file]",
	Short: "Upload an invoice document to a payment record",
	Long: `Attach a supporting invoice document to a monthly payment record.

Accepted files are PDF, Word, Excel, JPEG and PNG documents up to 5MB. The
description defaults to the file name. With --replace the document shown for
the record is superseded by the new one.

With --prefill the invoice date and description are read from the document
when not given on the command line. This uses Google Document AI
(GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID), Google Vision OCR and, when
OPENAI_API_KEY is set, an OpenAI model for fields the parser missed. Missing
credentials only produce a warning.`,
	Example: `  paydesk upload 6601beef may.pdf --date 2024-05-31 --description "May payroll"
  paydesk upload 6601beef may.pdf --prefill
  paydesk upload 6601beef corrected.pdf --date 2024-05-31 --replace 6601d0c5 \
    --incorrect --reason "wrong amount on first scan"`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().String("date", "", "Invoice date, YYYY-MM-DD")
	uploadCmd.Flags().String("description", "", "Description (default: file name)")
	uploadCmd.Flags().String("replace", "", "Id of the document invoice to replace")
	uploadCmd.Flags().Bool("incorrect", false, "Mark the invoice as incorrect")
	uploadCmd.Flags().String("reason", "", "Why the invoice is incorrect")
	uploadCmd.Flags().Bool("prefill", false, "Read date and description from the document")
}

func runUpload(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("upload")
	paymentID, path := args[0], args[1]

	date, _ := cmd.Flags().GetString("date")
	description, _ := cmd.Flags().GetString("description")
	replace, _ := cmd.Flags().GetString("replace")
	incorrect, _ := cmd.Flags().GetBool("incorrect")
	reason, _ := cmd.Flags().GetString("reason")
	prefill, _ := cmd.Flags().GetBool("prefill")

	cfg, client, err := setup(log)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cfg, log)
	defer cancel()

	var flow *upload.Flow
	if replace != "" {
		flow = upload.NewReplaceFlow(client, paymentID, models.Invoice{ID: replace})
	} else {
		flow = upload.NewFlow(client, paymentID)
	}

	file, err := upload.FileFromPath(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := flow.SelectFile(file); err != nil {
		return handleUploadError(err, flow, log)
	}

	if prefill && (date == "" || description == "") {
		prefillFlow(ctx, cfg, flow, log)
	}

	fields := flow.Snapshot().Fields
	if date != "" {
		fields.InvoiceDate = date
	}
	if description != "" {
		fields.Description = description
	}
	fields.IsIncorrectInvoice = incorrect
	fields.IncorrectReason = reason

	log.Info().
		Str("payment_id", paymentID).
		Str("file", file.Name).
		Str("mime_type", file.MIMEType).
		Str("replace", replace).
		Msg("Submitting invoice upload")

	result, err := flow.Submit(ctx, fields)
	if err != nil {
		return handleUploadError(err, flow, log)
	}

	if jsonOutput(cmd) {
		return printJSON(result)
	}
	snapshot := flow.Snapshot()
	message := snapshot.Message
	if message == "" {
		message = "Invoice uploaded successfully"
	}
	fmt.Println(message)
	fmt.Printf("File:        %s\n", snapshot.FileName)
	fmt.Printf("Date:        %s\n", snapshot.Fields.InvoiceDate)
	fmt.Printf("Description: %s\n", snapshot.Fields.Description)
	if snapshot.Replacing != "" {
		fmt.Printf("Replaced:    %s\n", snapshot.Replacing)
	}
	return nil
}

// prefillFlow fills the form from the document. Every failure is logged and
// printed as a warning; the upload proceeds with the user's fields.
func prefillFlow(ctx context.Context, cfg *config.Config, flow *upload.Flow, log zerolog.Logger) {
	extractor, closeFn, err := newExtractor(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("Invoice extraction unavailable")
		fmt.Fprintf(os.Stderr, "Warning: cannot read fields from the document: %v\n", err)
		return
	}
	defer closeFn()

	draft, err := flow.Prefill(ctx, extractor)
	if err != nil {
		log.Warn().Err(err).Msg("Invoice extraction failed")
		fmt.Fprintf(os.Stderr, "Warning: %s\n", extractionMessage(err))
		return
	}
	log.Info().
		Strs("missing", draft.Missing()).
		Float32("confidence", draft.Confidence).
		Strs("source", draft.Source).
		Msg("Prefilled upload form from document")
}

// newExtractor wires Document AI, Vision OCR and OpenAI completion from the
// configuration. At least one of Document AI or Vision must be available.
func newExtractor(ctx context.Context, cfg *config.Config, log zerolog.Logger) (extract.Extractor, func(), error) {
	creds, err := cfg.GoogleCredentials()
	if err != nil {
		return nil, nil, err
	}

	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("Failed to close extraction client")
			}
		}
	}

	var primary extract.Extractor
	if cfg.HasDocumentAI() {
		docAI, err := extract.NewDocumentAIExtractor(ctx, extract.DocumentAIConfig{
			ProjectID:       cfg.GoogleCloudProject,
			Location:        cfg.GoogleCloudLocation,
			ProcessorID:     cfg.DocumentAIProcessorID,
			CredentialsJSON: creds,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Document AI unavailable")
		} else {
			primary = docAI
			closers = append(closers, docAI.Close)
		}
	}

	var text ocr.Service
	vision, err := ocr.NewVisionService(ctx, creds)
	if err != nil {
		log.Warn().Err(err).Msg("Vision OCR unavailable")
	} else {
		text = vision
		closers = append(closers, vision.Close)
	}

	if primary == nil && text == nil {
		closeAll()
		return nil, nil, fmt.Errorf("%w: configure GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID and Google credentials", extract.ErrMissingCredentials)
	}

	chat := extract.NewOpenAIClient(cfg.OpenAIAPIKey)
	return extract.NewCompletionExtractor(primary, text, chat, extract.CompletionConfig{Model: cfg.OpenAIModel}), closeAll, nil
}

func extractionMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "reading the document timed out"
	case errors.Is(err, extract.ErrNoFields):
		return "no invoice fields found in the document"
	case errors.Is(err, extract.ErrPermissionDenied):
		return "Google Cloud permission denied. Ensure the service account has the 'Document AI API User' role"
	case errors.Is(err, extract.ErrQuotaExceeded):
		return "Document AI quota exceeded. Check your project quotas in Google Cloud Console"
	case errors.Is(err, extract.ErrProcessorNotFound):
		return "Document AI processor not found. Check DOCUMENT_AI_PROCESSOR_ID"
	case errors.Is(err, extract.ErrUnsupportedDocument):
		return "this document type cannot be read automatically"
	default:
		return fmt.Sprintf("could not read fields from the document: %v", err)
	}
}
