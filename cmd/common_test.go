package cmd

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydesk/internal/api"
	"paydesk/internal/upload"
)

func TestParseInvoiceFlag(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	inv, err := parseInvoiceFlag("May payroll:1250.50", now)
	require.NoError(t, err)
	assert.Equal(t, "May payroll", inv.Description)
	assert.True(t, decimal.RequireFromString("1250.50").Equal(inv.Amount))
	assert.Equal(t, "Bank Transfer", inv.PaymentMethod)
	assert.Equal(t, "2024-06-15", inv.InvoiceDate)

	inv, err = parseInvoiceFlag("Fees:20:Card:2024-05-31", now)
	require.NoError(t, err)
	assert.Equal(t, "Card", inv.PaymentMethod)
	assert.Equal(t, "2024-05-31", inv.InvoiceDate)

	for _, bad := range []string{"no amount", ":10", "Fees:ten", "Fees:10:Card:31.05.2024"} {
		_, err := parseInvoiceFlag(bad, now)
		assert.Error(t, err, bad)
	}
}

func TestHandleAPIError(t *testing.T) {
	log := zerolog.Nop()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "timeout",
			err:  fmt.Errorf("wrapped: %w", context.DeadlineExceeded),
			want: "load jobs timed out. Try increasing --timeout",
		},
		{
			name: "unauthorized",
			err:  &api.Error{Op: "Payments", StatusCode: 401, Message: "Invalid token", Err: api.ErrServer},
			want: "cannot load jobs: not authorized. Check PAYDESK_API_TOKEN: Invalid token",
		},
		{
			name: "server message",
			err:  &api.Error{Op: "Payments", StatusCode: 409, Message: "Payment already exists", Err: api.ErrServer},
			want: "cannot load jobs: Payment already exists",
		},
		{
			name: "transport",
			err:  &api.Error{Op: "Payments", Message: "connection refused", Err: api.ErrTransport},
			want: "cannot load jobs: backend unreachable. Check PAYDESK_API_URL and your network: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, handleAPIError(tt.err, "load jobs", log), tt.want)
		})
	}
}

func TestHandleUploadErrorKeepsValidationMessage(t *testing.T) {
	err := upload.File{Name: "notes.txt", MIMEType: "text/plain", Size: 10}.Validate()
	require.Error(t, err)

	got := handleUploadError(err, nil, zerolog.Nop())
	assert.EqualError(t, got, "Invalid file type. Please upload a PDF, Word, Excel, JPEG or PNG file")
}
