package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

// ImportResult counts the outcome of a bulk import.
type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Invalid int `json:"invalid"`
}

// ImportXLSX registers every student listed on the first sheet of an Excel
// workbook. The first row is the header and is matched by column name, so
// both "reg_no,name,class,parent_email" and "Reg No,Name,Class,Parent Email"
// work. defaultClass fills rows that have no class cell.
func ImportXLSX(ctx context.Context, reg Registry, r io.Reader, defaultClass string, logger *slog.Logger) (ImportResult, error) {
	var result ImportResult

	f, err := excelize.OpenReader(r)
	if err != nil {
		return result, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("close workbook failed", "error", err)
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return result, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return result, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return result, nil
	}

	index, err := columns(rows[0])
	if err != nil {
		return result, err
	}

	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		s := fromRow(index, row)
		if s.RegNo == "" && s.Name == "" {
			continue
		}
		if s.Class == "" {
			s.Class = defaultClass
		}

		s, err := Normalize(s)
		if err != nil {
			logger.Warn("skipping invalid registry row", "row", i+2, "error", err)
			result.Invalid++
			continue
		}

		created, err := reg.Register(ctx, s)
		if err != nil {
			return result, err
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	logger.Info("registry import finished",
		"sheet", sheet,
		"created", result.Created,
		"skipped", result.Skipped,
		"invalid", result.Invalid,
	)
	return result, nil
}
