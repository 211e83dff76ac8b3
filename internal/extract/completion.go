package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"paydesk/internal/logger"
	"paydesk/internal/ocr"
)

// ChatClient is the part of the OpenAI client used for completion.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// CompletionConfig configures a CompletionExtractor.
type CompletionConfig struct {
	// Model is the OpenAI chat model. Default: gpt-4o-mini.
	Model string

	// Temperature is the sampling temperature. Default: 0.1.
	Temperature float32

	// MaxRetries bounds attempts at getting valid JSON from the model. Default: 2.
	MaxRetries int
}

// CompletionExtractor fills the fields a primary extractor missed from the
// document's OCR text.
type CompletionExtractor struct {
	primary Extractor
	ocr     ocr.Service
	chat    ChatClient
	config  CompletionConfig
	log     zerolog.Logger
}

// NewCompletionExtractor creates a CompletionExtractor. primary and chat may
// be nil: without primary only OCR text is used, without chat the text is
// scanned for a date.
func NewCompletionExtractor(primary Extractor, text ocr.Service, chat ChatClient, config CompletionConfig) *CompletionExtractor {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.1
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 2
	}
	return &CompletionExtractor{
		primary: primary,
		ocr:     text,
		chat:    chat,
		config:  config,
		log:     logger.WithComponent("invoice-completion"),
	}
}

// NewOpenAIClient returns a chat client for apiKey, or nil when apiKey is empty.
func NewOpenAIClient(apiKey string) ChatClient {
	if apiKey == "" {
		return nil
	}
	return openai.NewClient(apiKey)
}

// Extract runs the primary extractor and completes its draft. Failures of
// the primary extractor or of OCR are logged and only returned when nothing
// was found at all.
func (c *CompletionExtractor) Extract(ctx context.Context, content []byte, mimeType string) (*Draft, error) {
	const op = "Completion.Extract"

	draft := &Draft{}
	var firstErr error

	if c.primary != nil {
		d, err := c.primary.Extract(ctx, content, mimeType)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, WrapExtractionError(op, ctxErr, "")
		}
		if err != nil {
			firstErr = err
			c.log.Warn().Err(err).Msg("Primary extraction failed, falling back to OCR text")
		}
		if d != nil {
			draft.fill(d)
		}
	}

	if !needsCompletion(draft) || c.ocr == nil {
		return finish(op, draft, firstErr)
	}

	text, err := c.ocr.Text(ctx, content, mimeType)
	if err != nil {
		if firstErr == nil {
			firstErr = err
		}
		c.log.Warn().Err(err).Msg("OCR failed")
		return finish(op, draft, firstErr)
	}

	var found *Draft
	if c.chat != nil {
		found, err = c.complete(ctx, text.Text, draft.Missing())
		if err != nil {
			c.log.Warn().Err(err).Msg("Completion failed, scanning text for a date")
			found = scanText(text.Text)
		}
	} else {
		found = scanText(text.Text)
	}
	found.observe(text.Confidence)
	draft.fill(found)

	c.log.Debug().
		Strs("source", draft.Source).
		Strs("missing", draft.Missing()).
		Msg("Extraction completed")

	return finish(op, draft, firstErr)
}

// needsCompletion reports whether a field the upload form uses is missing.
func needsCompletion(d *Draft) bool {
	return d.InvoiceDate.IsZero() || strings.TrimSpace(d.Description) == ""
}

func finish(op string, draft *Draft, err error) (*Draft, error) {
	if !draft.Empty() {
		return draft, nil
	}
	if err == nil {
		err = ErrNoFields
	}
	return nil, WrapExtractionError(op, err, "")
}

// scanText finds what it can in plain text without a model.
func scanText(text string) *Draft {
	draft := &Draft{Source: []string{"text"}}
	if date, ok := FindDate(text); ok {
		draft.InvoiceDate = date
	}
	return draft
}

// complete asks the chat model for the missing fields.
func (c *CompletionExtractor) complete(ctx context.Context, text string, missing []string) (*Draft, error) {
	const op = "complete"

	prompt := buildPrompt(text, missing)

	c.log.Debug().
		Int("prompt_length", len(prompt)).
		Strs("missing_fields", missing).
		Str("model", c.config.Model).
		Msg("Sending completion request")

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.config.Model,
			Temperature: c.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			MaxTokens: 500,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%s: %w", op, ctx.Err())
			}
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("Completion request failed, retrying")
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = errors.New("no response choices")
			continue
		}

		draft, err := parseCompletion(resp.Choices[0].Message.Content)
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("Failed to parse completion, retrying")
			continue
		}
		return draft, nil
	}

	return nil, fmt.Errorf("%s: all %d attempts failed, last error: %w", op, c.config.MaxRetries, lastErr)
}

const systemPrompt = `You read invoices for a bookkeeping service. Answer with one JSON object and nothing else. Use ISO dates (YYYY-MM-DD) and plain decimal amounts without currency symbols. Leave a field out when the document does not state it.`

func buildPrompt(text string, missing []string) string {
	var prompt strings.Builder
	prompt.WriteString("Extract these fields from the invoice text below: ")
	prompt.WriteString(strings.Join(missing, ", "))
	prompt.WriteString(".\n\nFields:\n")
	for _, field := range missing {
		switch field {
		case FieldInvoiceDate:
			prompt.WriteString(`  "invoice_date": date the invoice was issued, YYYY-MM-DD` + "\n")
		case FieldDescription:
			prompt.WriteString(`  "description": short description of what was invoiced, at most 80 characters` + "\n")
		case FieldAmount:
			prompt.WriteString(`  "amount": gross total as a decimal number` + "\n")
		case FieldInvoiceNumber:
			prompt.WriteString(`  "invoice_number": the invoice number` + "\n")
		case FieldSupplier:
			prompt.WriteString(`  "supplier": name of the issuing company` + "\n")
		}
	}
	prompt.WriteString("\nInvoice text:\n")
	prompt.WriteString(text)
	return prompt.String()
}

// parseCompletion reads the model's JSON answer. Amounts may arrive as
// strings or numbers.
func parseCompletion(content string) (*Draft, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse completion JSON: %w", err)
	}

	draft := &Draft{
		Description:   getString(raw, FieldDescription),
		InvoiceNumber: getString(raw, FieldInvoiceNumber),
		Supplier:      getString(raw, FieldSupplier),
		Source:        []string{"completion"},
	}
	if s := getString(raw, FieldInvoiceDate); s != "" {
		if date, err := ParseDate(s); err == nil {
			draft.InvoiceDate = date
		}
	}
	if s := getString(raw, FieldAmount); s != "" {
		if amount, err := ParseAmount(s); err == nil {
			draft.Amount = amount
		}
	}
	return draft, nil
}

// getString extracts a string or number value from a decoded JSON object.
func getString(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
