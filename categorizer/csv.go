package categorizer

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes report as UTF-8 CSV with a BOM so Excel detects the encoding.
func WriteCSV(w io.Writer, report Report) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(report.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range report.Rows {
		if err := writer.Write(row.Values()); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}
	return nil
}
