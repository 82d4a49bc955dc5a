package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/vigia-data/registry-harvester/internal/enrich"
	"github.com/vigia-data/registry-harvester/internal/harvest"
)

// BuildAttachment encodes the report attachment as CSV. The union is resolved
// here, at the only call site that knows both shapes.
func BuildAttachment(att harvest.Attachment) ([]byte, error) {
	switch {
	case att.Table != nil:
		return encodeCSV(att.Table.Columns, att.Table.Rows)
	case att.Records != nil:
		tbl := enrich.ToTable(att.Records.Records)
		rows := make([][]string, 0, tbl.Len())
		for _, row := range tbl.Rows {
			cells := make([]string, len(tbl.Columns))
			for i, col := range tbl.Columns {
				cells[i] = row[col]
			}
			rows = append(rows, cells)
		}
		return encodeCSV(tbl.Columns, rows)
	default:
		return nil, fmt.Errorf("attachment has no content")
	}
}

func encodeCSV(columns []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// AttachmentName stamps the configured base name with the run date.
func AttachmentName(base string, status harvest.RunStatus) string {
	return fmt.Sprintf("%s_%s.csv", base, status.RunDate)
}

// Summary renders the daily run summary for the report body.
func Summary(status harvest.RunStatus, weekly string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resumen de la corrida %s (%s)\n\n", status.RunID, status.RunDate)
	fmt.Fprintf(&b, "%s counts_match:%t\n", status.CountsLine(), status.CountsMatch)

	for _, src := range status.Sources {
		line := fmt.Sprintf("- %s: %d extraídos", src.Source, src.Extracted)
		if src.SkippedRows > 0 {
			line += fmt.Sprintf(", %d filas omitidas", src.SkippedRows)
		}
		if src.Error != "" {
			line += fmt.Sprintf(" (error: %s)", src.Error)
		}
		b.WriteString(line + "\n")
	}

	if len(status.Alarms) > 0 {
		b.WriteString("\nAlarmas:\n")
		for _, alarm := range status.Alarms {
			fmt.Fprintf(&b, "- %s\n", alarm)
		}
	}
	if len(status.StorageErrors) > 0 {
		b.WriteString("\nErrores de almacenamiento:\n")
		for _, storageErr := range status.StorageErrors {
			fmt.Fprintf(&b, "- %s\n", storageErr)
		}
	}

	if weekly != "" {
		b.WriteString("\n" + weekly + "\n")
	}
	return b.String()
}
