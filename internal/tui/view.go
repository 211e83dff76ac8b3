package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"paydesk/internal/api"
	"paydesk/internal/clientpage"
	"paydesk/internal/history"
	"paydesk/pkg/models"
)

const help = "↑/k up • ↓/j down • enter select • r refresh • q quit"

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	jobs := paneStyle.Render(m.jobsPane())
	payments := paneStyle.Render(m.historyPane())
	if m.width > 0 && lipgloss.Width(jobs)+lipgloss.Width(payments) > m.width {
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, jobs, payments))
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, jobs, payments))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(help))
	b.WriteString("\n")
	return b.String()
}

func (m Model) header() string {
	c := m.state.Client
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s <%s>", c.Name, c.Email)),
		mutedStyle.Render(fmt.Sprintf("Company: %s  Phone: %s", orNA(c.Company), orNA(c.Phone))),
	}
	if m.state.ClientErr != nil {
		lines = append(lines, mutedStyle.Render("Client profile unavailable"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) jobsPane() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Jobs"))
	b.WriteString("\n")

	switch {
	case m.loading && len(m.state.Jobs) == 0:
		b.WriteString(mutedStyle.Render("Loading jobs..."))
		return b.String()
	case m.state.Status == clientpage.StatusError:
		b.WriteString(errorStyle.Render(api.Message(m.state.Err, "Failed to load jobs")))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Press r to retry"))
		return b.String()
	case m.state.Empty():
		b.WriteString(mutedStyle.Render("No payment-eligible jobs for this client"))
		return b.String()
	}

	for i, job := range m.state.Jobs {
		marker := "  "
		if job.ID == m.state.SelectedJobID {
			marker = "● "
		}
		line := marker + jobLabel(job)
		if i == m.cursor {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) historyPane() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Payment history"))
	b.WriteString("\n")

	h := m.history
	switch h.Status {
	case history.StatusIdle:
		b.WriteString(mutedStyle.Render("Select a job to see its payments"))
		return b.String()
	case history.StatusLoading:
		if len(h.Records) == 0 {
			b.WriteString(mutedStyle.Render("Loading payment history..."))
			return b.String()
		}
	case history.StatusError:
		b.WriteString(errorStyle.Render(api.Message(h.Err, "Failed to load payment history")))
		b.WriteString("\n")
		if !h.Stale {
			b.WriteString(mutedStyle.Render("Press r to retry"))
			return b.String()
		}
		b.WriteString(mutedStyle.Render("Showing last loaded payments. Press r to retry"))
		b.WriteString("\n")
	}

	if h.Empty() {
		b.WriteString(mutedStyle.Render("No payment records for this job"))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Total %s  Paid %s  Pending %s\n",
		h.Stats.Total.StringFixed(2),
		paidStyle.Render(h.Stats.Paid.StringFixed(2)),
		pendingStyle.Render(h.Stats.Pending.StringFixed(2)),
	))
	if h.Stats.LastPaymentDate != nil {
		b.WriteString(mutedStyle.Render("Last payment " + h.Stats.LastPaymentDate.Format("2006-01-02")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, record := range h.Records {
		doc := ""
		if d, ok := history.PrimaryDocument(record); ok {
			doc = "  [doc] " + d.Description
		}
		b.WriteString(fmt.Sprintf("%-16s %10s  %s%s\n",
			fmt.Sprintf("%s %d", record.DisplayMonth(), record.Year),
			record.TotalAmount.StringFixed(2),
			statusLabel(record.Status),
			mutedStyle.Render(doc),
		))
	}
	return strings.TrimRight(b.String(), "\n")
}

func jobLabel(job models.Job) string {
	name := job.ClientName
	if name == "" {
		name = job.ServiceType
	}
	if name == "" {
		name = job.ID
	}
	label := name
	if job.ServiceType != "" && job.ServiceType != name {
		label += " · " + job.ServiceType
	}
	if date := job.SortTime().DateString(); date != "" {
		label += "  " + mutedStyle.Render(date)
	}
	return label
}

func statusLabel(status models.PaymentStatus) string {
	switch status {
	case models.PaymentPaid:
		return paidStyle.Render(string(status))
	case models.PaymentOverdue:
		return overdueStyle.Render(string(status))
	default:
		return pendingStyle.Render(string(status))
	}
}

func orNA(s string) string {
	if s == "" {
		return models.NotAvailable
	}
	return s
}
