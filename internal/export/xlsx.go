package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"paydesk/pkg/models"
)

// DefaultSheet is used when no sheet name is given.
const DefaultSheet = "Payments"

// WriteXLSX writes rows to a new workbook at path. A non-nil summary is
// appended below the rows after one blank line.
func WriteXLSX(path, sheet string, rows []Row, summary *models.ReportSummary) error {
	const op = "export.WriteXLSX"

	f, err := workbook(sheet, rows, summary)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%s: failed to save %s: %w", op, path, err)
	}
	return nil
}

// EncodeXLSX writes the workbook to w.
func EncodeXLSX(w io.Writer, sheet string, rows []Row, summary *models.ReportSummary) error {
	const op = "export.EncodeXLSX"

	f, err := workbook(sheet, rows, summary)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func workbook(sheet string, rows []Row, summary *models.ReportSummary) (*excelize.File, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet %q: %w", sheet, err)
	}

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
		_ = f.SetCellStyle(sheet, "A1", last, bold)
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := row.Values()
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			f.Close()
			return nil, err
		}
	}

	if summary != nil {
		line := len(rows) + 3
		for _, entry := range summaryLines(*summary) {
			label, _ := excelize.CoordinatesToCellName(1, line)
			value, _ := excelize.CoordinatesToCellName(2, line)
			_ = f.SetCellValue(sheet, label, entry.label)
			_ = f.SetCellValue(sheet, value, entry.value)
			line++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "I", "I", 40)
	return f, nil
}

type summaryLine struct {
	label string
	value interface{}
}

func summaryLines(s models.ReportSummary) []summaryLine {
	return []summaryLine{
		{"Total payments", s.TotalPayments},
		{"Total amount", s.TotalAmount.InexactFloat64()},
		{"Paid amount", s.PaidAmount.InexactFloat64()},
		{"Pending amount", s.PendingAmount.InexactFloat64()},
		{"Overdue amount", s.OverdueAmount.InexactFloat64()},
	}
}
