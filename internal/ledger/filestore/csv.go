package filestore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Header is the canonical column order written by every writer.
var Header = []string{"reg_no", "name", "status", "timestamp"}

const (
	colRegNo = iota
	colName
	colStatus
	colTimestamp
)

// headerAliases maps lowercased header cells, canonical and legacy, to columns.
var headerAliases = map[string]int{
	"reg_no":       colRegNo,
	"reg no":       colRegNo,
	"name":         colName,
	"student name": colName,
	"status":       colStatus,
	"timestamp":    colTimestamp,
	"date-time":    colTimestamp,
	"time":         colTimestamp,
}

// legacyTimeLayouts are tried after RFC 3339; times are local wall clock.
var legacyTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// legacyClockLayout is a bare time of day, dated by the ledger's own date.
const legacyClockLayout = "15:04:05"

var errMalformed = errors.New("malformed ledger")

// decoded is one parsed ledger file.
type decoded struct {
	records []domain.AttendanceRecord
	// canonical is false when the file used a legacy header or held
	// duplicate rows; the next write rewrites it.
	canonical bool
}

// decode reads a ledger. Columns are located by header name, so both legacy
// layouts ("Reg No,Student Name,Status,Date-Time" and
// "Student Name,Reg No,Status,Time") are accepted. Later duplicates of a
// reg_no are dropped.
func decode(r io.Reader, date string, loc *time.Location) (decoded, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return decoded{records: []domain.AttendanceRecord{}, canonical: true}, nil
	}
	if err != nil {
		return decoded{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	index := [4]int{-1, -1, -1, -1}
	canonical := len(head) == len(Header)
	for i, cell := range head {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
		col, ok := headerAliases[key]
		if !ok {
			continue
		}
		index[col] = i
		if i >= len(Header) || Header[i] != key {
			canonical = false
		}
	}
	for col, i := range index {
		if i < 0 && col != colTimestamp {
			return decoded{}, fmt.Errorf("%w: header %q lacks %s", errMalformed, strings.Join(head, ","), Header[col])
		}
	}

	out := decoded{records: []domain.AttendanceRecord{}, canonical: canonical}
	seen := make(map[string]bool)
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return decoded{}, fmt.Errorf("%w: line %d: %v", errMalformed, line, err)
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		cell := func(col int) string {
			i := index[col]
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec := domain.AttendanceRecord{
			RegNo:  cell(colRegNo),
			Name:   cell(colName),
			Status: domain.Status(cell(colStatus)),
		}
		if rec.RegNo == "" {
			return decoded{}, fmt.Errorf("%w: line %d: empty reg_no", errMalformed, line)
		}
		if st, err := domain.ParseStatus(string(rec.Status)); err == nil {
			rec.Status = st
		}
		if ts := cell(colTimestamp); ts != "" {
			if rec.Timestamp, err = parseTimestamp(ts, date, loc); err != nil {
				return decoded{}, fmt.Errorf("%w: line %d: %v", errMalformed, line, err)
			}
		}

		if seen[rec.RegNo] {
			out.canonical = false
			continue
		}
		seen[rec.RegNo] = true
		out.records = append(out.records, rec)
	}

	return out, nil
}

func parseTimestamp(v, date string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	for _, layout := range legacyTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation(domain.DateLayout+" "+legacyClockLayout, date+" "+v, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}

// encode writes records in canonical form.
func encode(w io.Writer, records []domain.AttendanceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.RegNo, r.Name, string(r.Status), ""}
		if !r.Timestamp.IsZero() {
			row[colTimestamp] = r.Timestamp.Format(time.RFC3339Nano)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
