package categorizer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ReportSheet is the worksheet name used for reports.
const ReportSheet = "Sheet1"

const maxColumnWidth = 255

// WriteXLSX serializes report as an .xlsx workbook. Cells wrap text and align
// to the top; each column is sized from its longest value.
func WriteXLSX(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	header := report.Header()
	rows := make([][]string, 0, len(report.Rows)+1)
	rows = append(rows, header)
	for _, r := range report.Rows {
		rows = append(rows, r.Values())
	}
	widths := make([]int, len(header))
	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		line := make([]any, len(values))
		for j, v := range values {
			line[j] = v
			if j < len(widths) {
				if n := utf8.RuneCountInString(v); n > widths[j] {
					widths[j] = n
				}
			}
		}
		if err := f.SetSheetRow(ReportSheet, cell, &line); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), len(rows))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(ReportSheet, "A1", last, style); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}
	for i, n := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(ReportSheet, col, col, columnWidth(n)); err != nil {
			return fmt.Errorf("set width %s: %w", col, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func columnWidth(maxLen int) float64 {
	width := float64(maxLen+2) * 1.2
	if width > maxColumnWidth {
		return maxColumnWidth
	}
	return width
}

// SaveReport writes report to path, choosing CSV for ".csv" and XLSX otherwise.
func SaveReport(path string, report Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		err = WriteCSV(f, report)
	} else {
		err = WriteXLSX(f, report)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}
