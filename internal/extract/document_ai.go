package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"paydesk/internal/logger"
)

// documentAITypes are the MIME types the invoice parser accepts.
var documentAITypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/tiff":      true,
	"image/gif":       true,
	"image/bmp":       true,
	"image/webp":      true,
}

// DocumentAIConfig holds configuration for Google Document AI processing.
type DocumentAIConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu").
	Location string

	// ProcessorID is the invoice parser processor ID.
	ProcessorID string

	// CredentialsJSON is a service account key. When empty, application
	// default credentials are used.
	CredentialsJSON []byte

	// Timeout bounds a single ProcessDocument call. Default: 60 seconds.
	Timeout time.Duration
}

func (c DocumentAIConfig) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAIExtractor reads invoice fields with a Document AI invoice parser.
type DocumentAIExtractor struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIExtractor connects to Document AI using the regional endpoint
// for config.Location.
func NewDocumentAIExtractor(ctx context.Context, config DocumentAIConfig) (*DocumentAIExtractor, error) {
	const op = "NewDocumentAIExtractor"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, WrapExtractionError(op, ErrInvalidConfiguration, "project and processor ID are required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}
	if len(config.CredentialsJSON) > 0 {
		clientOptions = append(clientOptions, option.WithCredentialsJSON(config.CredentialsJSON))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(config.CredentialsJSON) == 0 {
			return nil, WrapExtractionError(op, ErrMissingCredentials, err.Error())
		}
		return nil, WrapExtractionError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}, nil
}

// Extract sends content to the invoice parser and maps its entities.
func (e *DocumentAIExtractor) Extract(ctx context.Context, content []byte, mimeType string) (*Draft, error) {
	const op = "DocumentAI.Extract"

	if !documentAITypes[mimeType] {
		return nil, WrapExtractionError(op, ErrUnsupportedDocument, mimeType)
	}
	if len(content) > MaxDocumentSize {
		return nil, WrapExtractionError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(content)))
	}

	processCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.client.ProcessDocument(processCtx, &documentaipb.ProcessRequest{
		Name: e.config.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
	})
	if err != nil {
		return nil, classifyError(op, err, e.config.ProcessorID)
	}
	if resp.GetDocument() == nil {
		return nil, WrapExtractionError(op, ErrExtractionFailed, "no document in response")
	}

	draft := draftFromDocument(resp.GetDocument(), e.log)
	e.log.Info().
		Dur("duration", time.Since(start)).
		Strs("missing", draft.Missing()).
		Float32("confidence", draft.Confidence).
		Msg("Document AI extraction completed")

	if draft.Empty() {
		return draft, WrapExtractionError(op, ErrNoFields, "")
	}
	return draft, nil
}

// Close closes the underlying Document AI client.
func (e *DocumentAIExtractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// classifyError maps gRPC status codes to extraction errors.
func classifyError(op string, err error, processorID string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return WrapExtractionError(op, err, "processing interrupted")
	}
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return WrapExtractionError(op, ErrPermissionDenied, err.Error())
	case codes.ResourceExhausted:
		return WrapExtractionError(op, ErrQuotaExceeded, err.Error())
	case codes.NotFound:
		return WrapExtractionError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", processorID))
	case codes.InvalidArgument:
		return WrapExtractionError(op, ErrUnsupportedDocument, "document format not supported or corrupted")
	case codes.DeadlineExceeded:
		return WrapExtractionError(op, context.DeadlineExceeded, "processing timeout")
	case codes.Canceled:
		return WrapExtractionError(op, context.Canceled, "processing was canceled")
	default:
		return WrapExtractionError(op, ErrExtractionFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// draftFromDocument converts invoice parser entities into a Draft.
func draftFromDocument(doc *documentaipb.Document, log zerolog.Logger) *Draft {
	draft := &Draft{Source: []string{"document-ai"}}
	var lineItems []string

	for _, entity := range doc.GetEntities() {
		value := strings.TrimSpace(entity.GetMentionText())

		log.Debug().
			Str("entity_type", entity.GetType()).
			Str("value", value).
			Float32("confidence", entity.GetConfidence()).
			Msg("Processing Document AI entity")

		switch entity.GetType() {
		case "invoice_date":
			if date, err := entityDate(entity); err == nil {
				draft.InvoiceDate = date
				draft.observe(entity.GetConfidence())
			}
		case "supplier_name", "vendor_name":
			if draft.Supplier == "" {
				draft.Supplier = value
				draft.observe(entity.GetConfidence())
			}
		case "invoice_id", "invoice_number":
			if draft.InvoiceNumber == "" {
				draft.InvoiceNumber = value
				draft.observe(entity.GetConfidence())
			}
		case "total_amount", "gross_amount":
			amount, err := entityAmount(entity)
			if err != nil {
				log.Warn().Err(err).Str("raw_value", value).Msg("Failed to extract total amount from Document AI")
				continue
			}
			draft.Amount = amount
			draft.observe(entity.GetConfidence())
		case "line_item":
			if desc := lineItemDescription(entity); desc != "" {
				lineItems = append(lineItems, desc)
			}
		}
	}

	draft.Description = describe(draft.Supplier, draft.InvoiceNumber, lineItems)
	return draft
}

// describe builds a short description for the upload form.
func describe(supplier, number string, lineItems []string) string {
	if len(lineItems) > 0 {
		return lineItems[0]
	}
	switch {
	case supplier != "" && number != "":
		return fmt.Sprintf("%s invoice %s", supplier, number)
	case supplier != "":
		return supplier + " invoice"
	case number != "":
		return "Invoice " + number
	}
	return ""
}

func lineItemDescription(entity *documentaipb.Document_Entity) string {
	for _, prop := range entity.GetProperties() {
		if prop.GetType() == "line_item/description" {
			return strings.TrimSpace(prop.GetMentionText())
		}
	}
	return ""
}

// entityDate prefers the normalized date and falls back to the mention text.
func entityDate(entity *documentaipb.Document_Entity) (time.Time, error) {
	if d := entity.GetNormalizedValue().GetDateValue(); d != nil && d.GetYear() > 0 {
		return time.Date(int(d.GetYear()), time.Month(d.GetMonth()), int(d.GetDay()), 0, 0, 0, 0, time.UTC), nil
	}
	return ParseDate(entity.GetMentionText())
}

// entityAmount prefers the normalized money value and falls back to the
// mention text.
func entityAmount(entity *documentaipb.Document_Entity) (decimal.Decimal, error) {
	if m := entity.GetNormalizedValue().GetMoneyValue(); m != nil {
		return decimal.New(m.GetUnits(), 0).Add(decimal.New(int64(m.GetNanos()), -9)), nil
	}
	return ParseAmount(entity.GetMentionText())
}
