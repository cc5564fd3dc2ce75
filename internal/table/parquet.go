package table

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/parquet-go/parquet-go"
)

// IndexColumn names the record-key column of keyed tables in Parquet and
// SQLite output, where an unlabeled column is not allowed.
const IndexColumn = "_key"

// ErrNoColumns is returned when a table without columns is encoded to a
// columnar format.
var ErrNoColumns = errors.New("table has no columns")

// Schema builds the Parquet schema of t: one optional string column per
// header entry, plus IndexColumn for keyed tables.
func Schema(t *Table) (*parquet.Schema, error) {
	names, err := columnNames(t)
	if err != nil {
		return nil, err
	}
	group := parquet.Group{}
	for _, name := range names {
		group[name] = parquet.Optional(parquet.String())
	}
	name := t.Name
	if name == "" {
		name = "table"
	}
	return parquet.NewSchema(name, group), nil
}

// WriteParquet writes t to path. Empty cells are stored as nulls.
func WriteParquet(path string, t *Table, overwrite bool) error {
	if len(t.Header) == 0 && t.Index == nil {
		slog.Warn("Skipping Parquet file for table without columns", "path", path, "table", t.Name)
		return nil
	}

	file, err := createFile(path, overwrite)
	if err != nil {
		return err
	}

	slog.Info("Writing Parquet file", "path", path, "rows", t.Len(), "columns", len(t.Header))
	if err := EncodeParquet(file, t); err != nil {
		file.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write parquet %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close parquet %s: %w", path, err)
	}
	return nil
}

// EncodeParquet writes t to w as a single Parquet file.
func EncodeParquet(w io.Writer, t *Table) error {
	schema, err := Schema(t)
	if err != nil {
		return err
	}

	// Group columns are laid out in name order, not header order.
	columnIndex := make(map[string]int)
	for i, path := range schema.Columns() {
		columnIndex[path[0]] = i
	}

	writer := parquet.NewWriter(w, schema)

	rows := make([]parquet.Row, 0, len(t.Rows))
	for i, cells := range t.Rows {
		row := make(parquet.Row, len(columnIndex))
		if t.Index != nil {
			col := columnIndex[IndexColumn]
			row[col] = cellValue(t.Index[i], col)
		}
		for j, name := range t.Header {
			col := columnIndex[name]
			row[col] = cellValue(cells[j], col)
		}
		rows = append(rows, row)
	}

	if _, err := writer.WriteRows(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet: %w", err)
	}
	return nil
}

func cellValue(cell string, col int) parquet.Value {
	if cell == "" {
		return parquet.NullValue().Level(0, 0, col)
	}
	return parquet.ValueOf(cell).Level(0, 1, col)
}

func columnNames(t *Table) ([]string, error) {
	names := make([]string, 0, len(t.Header)+1)
	if t.Index != nil {
		names = append(names, IndexColumn)
	}
	for _, name := range t.Header {
		if t.Index != nil && name == IndexColumn {
			return nil, fmt.Errorf("column %q collides with the index column", name)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, ErrNoColumns
	}
	return names, nil
}
