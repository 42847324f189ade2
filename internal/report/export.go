// Package report renders attendance ledgers for download.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat defaults to CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", domain.ErrBadRequest.WithMessage(fmt.Sprintf("unsupported export format %q", s))
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename is the suggested download name for one ledger.
func (f Format) Filename(class, date string) string {
	return fmt.Sprintf("attendance_%s_%s.%s", class, date, f)
}

var header = []string{"reg_no", "name", "status", "timestamp"}

func row(r domain.AttendanceRecord) []string {
	ts := ""
	if !r.Timestamp.IsZero() {
		ts = r.Timestamp.Format(time.RFC3339)
	}
	return []string{r.RegNo, r.Name, string(r.Status), ts}
}

// Write renders records in format f.
func Write(w io.Writer, f Format, class, date string, records []domain.AttendanceRecord) error {
	if f == FormatXLSX {
		return WriteXLSX(w, class, date, records)
	}
	return WriteCSV(w, records)
}

func WriteCSV(w io.Writer, records []domain.AttendanceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook with a bold header row and a
// summary of counts per status below the records.
func WriteXLSX(w io.Writer, class, date string, records []domain.AttendanceRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(class, date)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	counts := make(map[domain.Status]int)
	for i, r := range records {
		if err := setRow(f, sheet, i+2, row(r)); err != nil {
			return err
		}
		counts[r.Status]++
	}

	line := len(records) + 3
	for _, st := range []domain.Status{domain.StatusPresent, domain.StatusLate, domain.StatusExcused, domain.StatusAbsent} {
		if err := setRow(f, sheet, line, []string{string(st), fmt.Sprint(counts[st])}); err != nil {
			return err
		}
		line++
	}

	if err := f.SetColWidth(sheet, "A", "A", 14); err != nil {
		return fmt.Errorf("set widths: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", "B", 28); err != nil {
		return fmt.Errorf("set widths: %w", err)
	}
	if err := f.SetColWidth(sheet, "D", "D", 26); err != nil {
		return fmt.Errorf("set widths: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", n, err)
	}
	return nil
}

// sheetName fits Excel's 31 character limit and forbidden characters.
func sheetName(class, date string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, class+" "+date)
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
