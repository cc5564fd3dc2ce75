package table

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/iphoto"
)

const defaultTimeout = 5 * time.Second

// SQLiteWriter stores projected tables and album compositions in a single
// SQLite database file.
type SQLiteWriter struct {
	db   *sql.DB
	path string
}

// OpenSQLite creates the database at path. An existing file is replaced
// only when overwrite is set.
func OpenSQLite(ctx context.Context, path string, overwrite bool) (*SQLiteWriter, error) {
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return nil, fmt.Errorf("refusing to overwrite existing file %s: %w", path, os.ErrExist)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=DELETE&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database after ping failure", "err", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)

	w := &SQLiteWriter{db: db, path: path}
	if err := w.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database after initialization failure", "err", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	slog.Info("Database initialized", "path", path)
	return w, nil
}

func (w *SQLiteWriter) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS album_members (
		album_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		image_key TEXT NOT NULL,
		path TEXT,
		resolved INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_album_members_album ON album_members(album_id, position);
	CREATE INDEX IF NOT EXISTS idx_album_members_image ON album_members(image_key);
	`
	_, err := w.db.ExecContext(ctx, schema)
	return err
}

// Close releases the database.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}

// WriteTable creates a table named name holding t. Every column is TEXT;
// empty cells are stored as NULL.
func (w *SQLiteWriter) WriteTable(ctx context.Context, name string, t *Table) error {
	columns, err := columnNames(t)
	if errors.Is(err, ErrNoColumns) {
		slog.Warn("Skipping SQLite table without columns", "table", name)
		return nil
	}
	if err != nil {
		return err
	}
	columns = foldColumns(name, columns)

	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = quoteIdent(col) + " TEXT"
		if t.Index != nil && i == 0 {
			defs[i] += " PRIMARY KEY"
		}
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(name),
		strings.Join(quoted, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "),
	)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", name, err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for i, cells := range t.Rows {
		offset := 0
		if t.Index != nil {
			args[0] = nullable(t.Index[i])
			offset = 1
		}
		for j, cell := range cells {
			args[offset+j] = nullable(cell)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table %s: %w", name, err)
	}
	slog.Info("Wrote SQLite table", "path", w.path, "table", name, "rows", t.Len())
	return nil
}

// WriteCompositions stores one album_members row per reference, gaps
// included.
func (w *SQLiteWriter) WriteCompositions(ctx context.Context, comps []iphoto.Composition) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO album_members (album_id, position, image_key, path, resolved)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare album member insert: %w", err)
	}
	defer stmt.Close()

	members := 0
	for _, comp := range comps {
		for _, ref := range comp.References {
			if _, err := stmt.ExecContext(ctx, comp.Label, ref.Position, ref.Key, nullable(ref.Path), ref.Resolved); err != nil {
				return fmt.Errorf("failed to insert member %d of album %s: %w", ref.Position, comp.Label, err)
			}
			members++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit album members: %w", err)
	}
	slog.Info("Wrote SQLite album members", "path", w.path, "albums", len(comps), "members", members)
	return nil
}

// foldColumns renames columns that differ from an earlier one only by case,
// since SQLite identifiers are case-insensitive. The second "caption" of
// ["Caption", "caption"] becomes "caption_2".
func foldColumns(tableName string, columns []string) []string {
	seen := make(map[string]bool, len(columns))
	out := make([]string, len(columns))
	for i, col := range columns {
		name := col
		for n := 2; seen[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d", col, n)
		}
		if name != col {
			slog.Warn("Renaming SQLite column that differs only by case", "table", tableName, "column", col, "as", name)
		}
		seen[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
