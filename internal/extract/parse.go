package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order. Day-first layouts precede month-first
// ones, matching the European invoices this tool mostly sees.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseDate parses a date written in one of the common invoice layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

var datePattern = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}\.\d{1,2}\.\d{4}|\d{2}/\d{2}/\d{4})\b`)

// invoiceDateLabel marks the line that most likely carries the invoice date.
var invoiceDateLabel = regexp.MustCompile(`(?i)(invoice date|rechnungsdatum|date of issue|issue date)`)

// FindDate returns the invoice date in free text. A date on a line labelled
// as the invoice date wins over the first date in the text.
func FindDate(text string) (time.Time, bool) {
	var first time.Time
	for _, line := range strings.Split(text, "\n") {
		for _, match := range datePattern.FindAllString(line, -1) {
			t, err := ParseDate(match)
			if err != nil {
				continue
			}
			if invoiceDateLabel.MatchString(line) {
				return t, true
			}
			if first.IsZero() {
				first = t
			}
		}
	}
	return first, !first.IsZero()
}

var currencyTokens = []string{"€", "$", "£", "EUR", "USD", "GBP", "CHF"}

// ParseAmount parses a money amount in German (1.234,56) or English
// (1,234.56) notation with an optional currency symbol or code.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	for _, token := range currencyTokens {
		cleaned = strings.ReplaceAll(cleaned, token, "")
	}

	dot := strings.LastIndex(cleaned, ".")
	comma := strings.LastIndex(cleaned, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			// 7.303,08
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			// 7,303.08
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case comma >= 0:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse amount: %s (cleaned: %s)", s, cleaned)
	}
	return amount, nil
}
