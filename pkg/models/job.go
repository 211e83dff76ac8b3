package models

import (
	"encoding/json"
	"strings"
)

// Job statuses that mark a job as operationally complete.
const (
	JobStatusOMCompleted = "om_completed"
	JobStatusCompleted   = "completed"
)

var paymentEligibleStatuses = map[string]bool{
	JobStatusOMCompleted: true,
	JobStatusCompleted:   true,
}

// Job is a unit of work that becomes billable once completed.
type Job struct {
	ID          string    `json:"_id"`
	ClientName  string    `json:"clientName,omitempty"`
	Gmail       string    `json:"gmail,omitempty"`
	ClientEmail string    `json:"clientEmail,omitempty"`
	Client      Ref       `json:"clientId"`
	ServiceType string    `json:"serviceType,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
	HasPayments bool      `json:"hasPayments,omitempty"`
}

// UnmarshalJSON accepts both "_id" and "id" as the job identifier.
func (j *Job) UnmarshalJSON(data []byte) error {
	type jobAlias Job
	aux := struct {
		*jobAlias
		AltID string `json:"id"`
	}{jobAlias: (*jobAlias)(j)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if j.ID == "" {
		j.ID = aux.AltID
	}
	return nil
}

// Emails returns every non-empty email-bearing field of the job, in the
// order gmail, clientEmail, clientId.gmail.
func (j Job) Emails() []string {
	var emails []string
	for _, e := range []string{j.Gmail, j.ClientEmail, j.Client.Gmail} {
		if e = strings.TrimSpace(e); e != "" {
			emails = append(emails, e)
		}
	}
	return emails
}

// Email returns the first known client email of the job.
func (j Job) Email() string {
	if emails := j.Emails(); len(emails) > 0 {
		return emails[0]
	}
	return ""
}

// MatchesEmail reports whether any of the job's identifier fields equals
// email, ignoring case and surrounding whitespace.
func (j Job) MatchesEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, e := range j.Emails() {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

// IsPaymentEligible reports whether the job has reached a completion status.
func (j Job) IsPaymentEligible() bool {
	return paymentEligibleStatuses[strings.ToLower(strings.TrimSpace(j.Status))]
}

// SortTime is the time used to order jobs by date: createdAt, then
// updatedAt, then the zero time.
func (j Job) SortTime() Timestamp {
	if !j.CreatedAt.IsZero() {
		return j.CreatedAt
	}
	return j.UpdatedAt
}
