package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

var records = []domain.AttendanceRecord{
	{RegNo: "21A", Name: "John Doe", Status: domain.StatusPresent, Timestamp: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
	{RegNo: "22B", Name: "Mary Ann", Status: domain.StatusLate, Timestamp: time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)},
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{"xlsx", FormatXLSX, false},
		{"excel", FormatXLSX, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, "attendance_classX_2024-03-01.csv", FormatCSV.Filename("classX", "2024-03-01"))
	assert.Equal(t, "attendance_classX_2024-03-01.xlsx", FormatXLSX.Filename("classX", "2024-03-01"))
	assert.True(t, strings.HasPrefix(FormatCSV.ContentType(), "text/csv"))
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, "classX", "2024-03-01", records))

	assert.Equal(t,
		"reg_no,name,status,timestamp\n"+
			"21A,John Doe,Present,2024-03-01T09:00:00Z\n"+
			"22B,Mary Ann,Late,2024-03-01T09:15:00Z\n",
		buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, "classX", "2024-03-01", records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	assert.Equal(t, "classX 2024-03-01", sheet)

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 7)

	assert.Equal(t, []string{"reg_no", "name", "status", "timestamp"}, rows[0])
	assert.Equal(t, []string{"21A", "John Doe", "Present", "2024-03-01T09:00:00Z"}, rows[1])
	assert.Equal(t, []string{"22B", "Mary Ann", "Late", "2024-03-01T09:15:00Z"}, rows[2])
	assert.Equal(t, []string{"Present", "1"}, rows[4])
	assert.Equal(t, []string{"Late", "1"}, rows[5])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "a_b 2024-03-01", sheetName("a:b", "2024-03-01"))
	assert.Len(t, []rune(sheetName(strings.Repeat("x", 40), "2024-03-01")), 31)
}
