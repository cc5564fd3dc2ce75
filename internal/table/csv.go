package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// CSVOptions controls how a table is written as CSV.
type CSVOptions struct {
	// Encoding is a WHATWG encoding label ("utf-8", "shift_jis", ...).
	// Empty means UTF-8.
	Encoding string
	// BOM prefixes the file with a byte order mark.
	BOM bool
	// Overwrite replaces an existing file instead of failing.
	Overwrite bool
}

// LookupEncoding resolves an encoding label.
func LookupEncoding(label string) (encoding.Encoding, error) {
	if label == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return enc, nil
}

// WriteCSV writes t to path. Keyed tables get a leading unlabeled index
// column.
func WriteCSV(path string, t *Table, opts CSVOptions) error {
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return err
	}

	file, err := createFile(path, opts.Overwrite)
	if err != nil {
		return err
	}

	slog.Info("Writing CSV file", "path", path, "rows", t.Len(), "columns", len(t.Header))
	if err := encodeCSV(file, t, enc, opts.BOM); err != nil {
		file.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write csv %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close csv %s: %w", path, err)
	}
	return nil
}

// EncodeCSV writes t to w as UTF-8 CSV.
func EncodeCSV(w io.Writer, t *Table) error {
	return encodeCSV(w, t, unicode.UTF8, false)
}

func encodeCSV(w io.Writer, t *Table, enc encoding.Encoding, bom bool) error {
	out := enc.NewEncoder().Writer(w)
	if bom {
		if _, err := io.WriteString(out, "\uFEFF"); err != nil {
			return err
		}
	}

	writer := csv.NewWriter(out)

	header := t.Header
	if t.Index != nil {
		header = append([]string{""}, t.Header...)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, row := range t.Rows {
		if t.Index != nil {
			row = append([]string{t.Index[i]}, row...)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	if c, ok := out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func createFile(path string, overwrite bool) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("refusing to overwrite existing file %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return file, nil
}
