package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/vigia-data/registry-harvester/internal/table"
)

// encodeParquet serializes a table into one columnar fragment. Every column is
// an optional string: the rule engine already normalized values, and nullness
// must survive the round trip.
func encodeParquet(tbl *table.Table) ([]byte, error) {
	group := parquet.Group{}
	for _, col := range tbl.Columns {
		group[col] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("enriched", group)

	rows := make([]map[string]any, 0, tbl.Len())
	for _, row := range tbl.Rows {
		out := make(map[string]any, len(tbl.Columns))
		for _, col := range tbl.Columns {
			if v, ok := row[col]; ok {
				out[col] = v
			}
		}
		rows = append(rows, out)
	}

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[map[string]any](&buf, schema)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeParquet reads one columnar fragment back into a table with the given
// column order. Map rows carry no type information, so the reader must be
// handed the fragment's own schema.
func decodeParquet(data []byte, columns []string) (*table.Table, error) {
	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet fragment: %w", err)
	}
	reader := parquet.NewGenericReader[map[string]any](bytes.NewReader(data), file.Schema())
	defer reader.Close()

	tbl := table.New(columns...)
	for {
		// fresh maps each batch: the reader fills maps in place, and a
		// reused map would leak keys from the previous row
		batch := make([]map[string]any, 64)
		for i := range batch {
			batch[i] = make(map[string]any, len(columns))
		}
		n, err := reader.Read(batch)
		for _, raw := range batch[:n] {
			tbl.Append(decodeRow(raw))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return tbl, nil
}

func decodeRow(raw map[string]any) table.Row {
	row := make(table.Row, len(raw))
	for col, v := range raw {
		switch value := v.(type) {
		case nil:
			// null stays absent
		case string:
			row[col] = value
		case []byte:
			row[col] = string(value)
		default:
			row[col] = fmt.Sprint(value)
		}
	}
	return row
}

// fragmentColumns recovers the column order of a fragment's schema.
func fragmentColumns(data []byte) ([]string, error) {
	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet fragment: %w", err)
	}
	fields := file.Schema().Fields()
	columns := make([]string, 0, len(fields))
	for _, f := range fields {
		columns = append(columns, f.Name())
	}
	return columns, nil
}
