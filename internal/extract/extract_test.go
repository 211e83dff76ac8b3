package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/type/date"
	"google.golang.org/genproto/googleapis/type/money"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"paydesk/internal/ocr"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"7.303,08", "7303.08"},
		{"7,303.08", "7303.08"},
		{"1234,50 €", "1234.5"},
		{"EUR 99", "99"},
		{"$ 1,000", "1000"},
		{"-12,5", "-12.5"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}

	_, err := ParseAmount("n/a")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-03-31", "31.03.2024", "31/03/2024", "March 31, 2024", "31 Mar 2024"} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, day(2024, time.March, 31), got, s)
	}
	_, err := ParseDate("")
	assert.Error(t, err)
	_, err = ParseDate("yesterday")
	assert.Error(t, err)
}

func TestFindDate(t *testing.T) {
	text := "Lieferdatum 01.02.2024\nRechnungsdatum: 05.02.2024\nFällig 2024-03-01"
	got, ok := FindDate(text)
	require.True(t, ok)
	assert.Equal(t, day(2024, time.February, 5), got)

	got, ok = FindDate("shipped 2024-01-09 and 2024-01-10")
	require.True(t, ok)
	assert.Equal(t, day(2024, time.January, 9), got)

	_, ok = FindDate("no dates here")
	assert.False(t, ok)
}

func TestDraftMissingAndFill(t *testing.T) {
	d := &Draft{Supplier: "Acme", Confidence: 0.9, Source: []string{"a"}}
	assert.Equal(t, []string{FieldInvoiceDate, FieldDescription, FieldAmount, FieldInvoiceNumber}, d.Missing())
	assert.False(t, d.Empty())
	assert.True(t, (&Draft{}).Empty())

	d.fill(&Draft{
		InvoiceDate: day(2024, 1, 2),
		Supplier:    "Other",
		Amount:      decimal.NewFromInt(5),
		Confidence:  0.4,
		Source:      []string{"b"},
	})
	assert.Equal(t, "Acme", d.Supplier)
	assert.Equal(t, day(2024, 1, 2), d.InvoiceDate)
	assert.Equal(t, float32(0.4), d.Confidence)
	assert.Equal(t, []string{"a", "b"}, d.Source)
}

func TestDraftFromDocument(t *testing.T) {
	doc := &documentaipb.Document{
		Entities: []*documentaipb.Document_Entity{
			{
				Type:        "invoice_date",
				MentionText: "31 Mar 2024",
				Confidence:  0.95,
				NormalizedValue: &documentaipb.Document_Entity_NormalizedValue{
					StructuredValue: &documentaipb.Document_Entity_NormalizedValue_DateValue{
						DateValue: &date.Date{Year: 2024, Month: 3, Day: 31},
					},
				},
			},
			{Type: "supplier_name", MentionText: " Acme GmbH ", Confidence: 0.9},
			{Type: "invoice_id", MentionText: "RE-2024-17", Confidence: 0.8},
			{
				Type:        "total_amount",
				MentionText: "1.190,50 EUR",
				Confidence:  0.85,
				NormalizedValue: &documentaipb.Document_Entity_NormalizedValue{
					StructuredValue: &documentaipb.Document_Entity_NormalizedValue_MoneyValue{
						MoneyValue: &money.Money{CurrencyCode: "EUR", Units: 1190, Nanos: 500000000},
					},
				},
			},
		},
	}

	d := draftFromDocument(doc, zerolog.Nop())
	assert.Equal(t, day(2024, time.March, 31), d.InvoiceDate)
	assert.Equal(t, "Acme GmbH", d.Supplier)
	assert.Equal(t, "RE-2024-17", d.InvoiceNumber)
	assert.True(t, decimal.RequireFromString("1190.5").Equal(d.Amount))
	assert.Equal(t, "Acme GmbH invoice RE-2024-17", d.Description)
	assert.Equal(t, float32(0.8), d.Confidence)
	assert.Empty(t, d.Missing())
}

func TestDraftFromDocumentMentionFallbackAndLineItems(t *testing.T) {
	doc := &documentaipb.Document{
		Entities: []*documentaipb.Document_Entity{
			{Type: "invoice_date", MentionText: "05.02.2024"},
			{Type: "total_amount", MentionText: "89,90 €"},
			{Type: "total_amount", MentionText: "not money"},
			{
				Type: "line_item",
				Properties: []*documentaipb.Document_Entity{
					{Type: "line_item/description", MentionText: "Monthly payroll service"},
				},
			},
		},
	}

	d := draftFromDocument(doc, zerolog.Nop())
	assert.Equal(t, day(2024, time.February, 5), d.InvoiceDate)
	assert.True(t, decimal.RequireFromString("89.9").Equal(d.Amount))
	assert.Equal(t, "Monthly payroll service", d.Description)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		code codes.Code
		want error
	}{
		{codes.PermissionDenied, ErrPermissionDenied},
		{codes.ResourceExhausted, ErrQuotaExceeded},
		{codes.NotFound, ErrProcessorNotFound},
		{codes.InvalidArgument, ErrUnsupportedDocument},
		{codes.DeadlineExceeded, context.DeadlineExceeded},
		{codes.Internal, ErrExtractionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			err := classifyError("op", status.Error(tt.code, "boom"), "proc-1")
			assert.ErrorIs(t, err, tt.want)
			var e *ExtractionError
			assert.True(t, errors.As(err, &e))
		})
	}
}

type fakeExtractor struct {
	draft *Draft
	err   error
}

func (f fakeExtractor) Extract(ctx context.Context, content []byte, mimeType string) (*Draft, error) {
	return f.draft, f.err
}

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (f *fakeOCR) Text(ctx context.Context, content []byte, mimeType string) (*ocr.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ocr.Result{Text: f.text, PageCount: 1, Confidence: 0.7}, nil
}

type fakeChat struct {
	replies []string
	prompts []string
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)
	if len(f.replies) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("no more replies")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: reply}}},
	}, nil
}

func TestCompletionFillsMissingFields(t *testing.T) {
	primary := fakeExtractor{draft: &Draft{Supplier: "Acme", InvoiceNumber: "17", Confidence: 0.9, Source: []string{"document-ai"}}}
	text := &fakeOCR{text: "Acme invoice 17"}
	chat := &fakeChat{replies: []string{
		"not json",
		"```json\n{\"invoice_date\": \"2024-03-31\", \"description\": \"Payroll March\", \"amount\": 120.5, \"supplier\": \"Ignored\"}\n```",
	}}

	x := NewCompletionExtractor(primary, text, chat, CompletionConfig{})
	d, err := x.Extract(context.Background(), []byte("%PDF"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, day(2024, time.March, 31), d.InvoiceDate)
	assert.Equal(t, "Payroll March", d.Description)
	assert.Equal(t, "Acme", d.Supplier, "primary fields win")
	assert.True(t, decimal.RequireFromString("120.5").Equal(d.Amount))
	assert.Equal(t, []string{"document-ai", "completion"}, d.Source)
	assert.Equal(t, float32(0.7), d.Confidence)

	require.Len(t, chat.prompts, 2)
	assert.True(t, strings.Contains(chat.prompts[0], FieldInvoiceDate))
	assert.False(t, strings.Contains(chat.prompts[0], `"supplier"`))
}

func TestCompletionSkipsOCRWhenComplete(t *testing.T) {
	primary := fakeExtractor{draft: &Draft{InvoiceDate: day(2024, 1, 1), Description: "done"}}
	text := &fakeOCR{text: "unused"}

	d, err := NewCompletionExtractor(primary, text, nil, CompletionConfig{}).Extract(context.Background(), nil, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "done", d.Description)
	assert.Zero(t, text.calls)
}

func TestCompletionWithoutChatScansText(t *testing.T) {
	primary := fakeExtractor{err: ErrPermissionDenied}
	text := &fakeOCR{text: "Invoice date: 2024-02-29\nTotal 10"}

	d, err := NewCompletionExtractor(primary, text, nil, CompletionConfig{}).Extract(context.Background(), nil, "image/png")
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.February, 29), d.InvoiceDate)
	assert.Empty(t, d.Description)
}

func TestCompletionNothingFound(t *testing.T) {
	text := &fakeOCR{err: ocr.ErrEmptyDocument}

	_, err := NewCompletionExtractor(fakeExtractor{err: ErrQuotaExceeded}, text, nil, CompletionConfig{}).
		Extract(context.Background(), nil, "application/pdf")
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	_, err = NewCompletionExtractor(nil, &fakeOCR{text: "nothing useful"}, nil, CompletionConfig{}).
		Extract(context.Background(), nil, "application/pdf")
	assert.ErrorIs(t, err, ErrNoFields)
}

func TestNewOpenAIClient(t *testing.T) {
	assert.Nil(t, NewOpenAIClient(""))
	assert.NotNil(t, NewOpenAIClient("sk-test"))
}
