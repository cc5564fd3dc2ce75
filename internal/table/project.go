// Package table flattens heterogeneous plist records into rows and writes
// them as CSV, Parquet or SQLite tables.
package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/plist"
)

// UnsupportedFieldTypeError is returned when a field holds a value with no
// flat text encoding. Row is -1 when the value was formatted on its own.
type UnsupportedFieldTypeError struct {
	Row    int
	Column string
	Kind   plist.Kind
}

func (e *UnsupportedFieldTypeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%s values cannot be projected to a flat cell", e.Kind)
	}
	return fmt.Sprintf("row %d column %q: %s values cannot be projected to a flat cell", e.Row, e.Column, e.Kind)
}

// Options controls cell serialisation.
type Options struct {
	// ListDelimiter joins the scalar elements of an array field. When empty,
	// array fields are rejected.
	ListDelimiter string
}

// Table is a projected record set. Index holds one key per row for keyed
// record sets and is nil otherwise.
type Table struct {
	Name   string
	Header []string
	Index  []string
	Rows   [][]string
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Project flattens records. The header is the union of all keys in
// first-seen order; absent fields become empty cells.
func Project(records []*plist.Dict, opts Options) (*Table, error) {
	header := Header(records)
	rows := make([][]string, 0, len(records))
	for i, rec := range records {
		row, err := projectRow(rec, header, i, opts)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return &Table{Header: header, Rows: rows}, nil
}

// ProjectKeyed flattens a dictionary of records, keeping each record's key
// in Table.Index.
func ProjectKeyed(d *plist.Dict, opts Options) (*Table, error) {
	keys := d.Keys()
	records := make([]*plist.Dict, 0, len(keys))
	for _, key := range keys {
		v, _ := d.Get(key)
		rec, ok := v.(*plist.Dict)
		if !ok {
			return nil, fmt.Errorf("record %q is %s, expected dict", key, v.Kind())
		}
		records = append(records, rec)
	}

	t, err := Project(records, opts)
	if err != nil {
		return nil, err
	}
	t.Index = keys
	return t, nil
}

// Header returns the union of the records' keys in first-seen order.
func Header(records []*plist.Dict) []string {
	seen := make(map[string]struct{})
	var header []string
	for _, rec := range records {
		for key := range rec.All() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			header = append(header, key)
		}
	}
	return header
}

func projectRow(rec *plist.Dict, header []string, idx int, opts Options) ([]string, error) {
	row := make([]string, len(header))
	for col, key := range header {
		v, ok := rec.Get(key)
		if !ok {
			continue
		}
		text, err := Format(v, opts)
		if err != nil {
			var unsupported *UnsupportedFieldTypeError
			if errors.As(err, &unsupported) {
				unsupported.Row, unsupported.Column = idx, key
			}
			return nil, err
		}
		row[col] = text
	}
	return row, nil
}

// Format returns the cell text of v. Scalars use their canonical text;
// arrays of scalars are joined with opts.ListDelimiter when it is set;
// dicts and nested collections are rejected.
func Format(v plist.Value, opts Options) (string, error) {
	switch v := v.(type) {
	case *plist.Dict:
		return "", &UnsupportedFieldTypeError{Row: -1, Kind: plist.KindDict}
	case *plist.Array:
		if opts.ListDelimiter == "" {
			return "", &UnsupportedFieldTypeError{Row: -1, Kind: plist.KindArray}
		}
		parts := make([]string, 0, v.Len())
		for _, item := range v.All() {
			text, ok := plist.Text(item)
			if !ok {
				return "", &UnsupportedFieldTypeError{Row: -1, Kind: item.Kind()}
			}
			parts = append(parts, text)
		}
		return strings.Join(parts, opts.ListDelimiter), nil
	default:
		text, _ := plist.Text(v)
		return text, nil
	}
}
