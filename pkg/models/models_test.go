package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobUnmarshalIdentifiers(t *testing.T) {
	var withUnderscore, withPlain Job
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"a","clientName":"Acme"}`), &withUnderscore))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b","clientName":"Beta"}`), &withPlain))

	assert.Equal(t, "a", withUnderscore.ID)
	assert.Equal(t, "b", withPlain.ID)
	assert.Equal(t, "Beta", withPlain.ClientName)
}

func TestJobClientRefShapes(t *testing.T) {
	var populated, bare Job
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"a","clientId":{"_id":"c1","gmail":"jane@x.com"}}`), &populated))
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"b","clientId":"c2"}`), &bare))

	assert.Equal(t, "c1", populated.Client.ID)
	assert.Equal(t, "jane@x.com", populated.Client.Gmail)
	assert.Equal(t, "c2", bare.Client.ID)
	assert.Empty(t, bare.Client.Gmail)
}

func TestJobMatchesEmail(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		want bool
	}{
		{"gmail", Job{Gmail: "Jane@X.com"}, true},
		{"clientEmail", Job{ClientEmail: " jane@x.com "}, true},
		{"nested clientId", Job{Client: Ref{Gmail: "jane@x.com"}}, true},
		{"other client", Job{Gmail: "john@x.com", ClientEmail: "john@y.com"}, false},
		{"no identifiers", Job{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.job.MatchesEmail("jane@x.com"))
		})
	}
	assert.False(t, Job{Gmail: "jane@x.com"}.MatchesEmail(""))
}

func TestJobIsPaymentEligible(t *testing.T) {
	assert.True(t, Job{Status: "om_completed"}.IsPaymentEligible())
	assert.True(t, Job{Status: "Completed"}.IsPaymentEligible())
	assert.False(t, Job{Status: "in_progress"}.IsPaymentEligible())
}

func TestTimestampUnmarshal(t *testing.T) {
	var payload struct {
		A Timestamp `json:"a"`
		B Timestamp `json:"b"`
		C Timestamp `json:"c"`
		D Timestamp `json:"d"`
		E Timestamp `json:"e"`
	}
	raw := `{"a":"2024-03-01T10:00:00.123Z","b":"2024-03-02","c":null,"d":"","e":1709287200000}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.Equal(t, 2024, payload.A.Year())
	assert.Equal(t, "2024-03-02", payload.B.DateString())
	assert.True(t, payload.C.IsZero())
	assert.True(t, payload.D.IsZero())
	assert.Equal(t, time.UnixMilli(1709287200000).UTC(), payload.E.Time)

	var bad Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestTimestampMarshalZeroIsNull(t *testing.T) {
	out, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestPaymentRecordUnmarshal(t *testing.T) {
	raw := `{
		"id": "p1",
		"jobId": {"_id": "j1"},
		"year": 2024,
		"month": 3,
		"totalAmount": "150.50",
		"status": "Paid",
		"invoices": [
			{"_id": "i1", "amount": 100, "paymentMethod": "Bank Transfer"},
			{"id": "i2", "amount": 0, "option": "DOCUMENT_ONLY"}
		]
	}`

	var record PaymentRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &record))

	assert.Equal(t, "p1", record.ID)
	assert.Equal(t, "j1", record.JobID.ID)
	assert.True(t, record.TotalAmount.Equal(decimal.RequireFromString("150.50")))
	assert.True(t, record.IsPaid())
	require.Len(t, record.Invoices, 2)
	assert.Equal(t, "i2", record.Invoices[1].ID)
	assert.False(t, record.Invoices[0].IsDocumentOnly())
	assert.True(t, record.Invoices[1].IsDocumentOnly())
	assert.Equal(t, "2024-03", record.Period())
	assert.Equal(t, "March", record.DisplayMonth())
}

func TestInvoiceDocumentOnlyByPaymentMethod(t *testing.T) {
	assert.True(t, Invoice{PaymentMethod: PaymentMethodDocumentOnly}.IsDocumentOnly())
}

func TestParsePaymentStatus(t *testing.T) {
	status, err := ParsePaymentStatus("overdue")
	require.NoError(t, err)
	assert.Equal(t, PaymentOverdue, status)

	_, err = ParsePaymentStatus("cancelled")
	assert.Error(t, err)
}

func TestStubClient(t *testing.T) {
	assert.Equal(t, Client{
		Name:    "jane",
		Email:   "jane@x.com",
		Phone:   "N/A",
		Company: "N/A",
	}, StubClient("jane@x.com"))
}

func TestClientUnmarshalEmailAlias(t *testing.T) {
	var c Client
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Jane","email":"jane@x.com"}`), &c))
	assert.Equal(t, "jane@x.com", c.Email)
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{CurrentPage: 2, TotalPages: 3, TotalItems: 25, ItemsPerPage: 10}, NewPagination(2, 10, 25))
	assert.Equal(t, Pagination{CurrentPage: 1, TotalPages: 0, TotalItems: 0, ItemsPerPage: 0}, NewPagination(0, 0, 0))
}
