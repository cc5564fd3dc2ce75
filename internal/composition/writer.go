package composition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/iphoto"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/table"
)

// DuplicateNameError is returned when two albums map to the same file name.
type DuplicateNameError struct {
	Name   string
	Albums []string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("albums %v all map to composition file %q", e.Albums, e.Name)
}

// File is one planned composition file.
type File struct {
	Name        string
	Path        string
	Composition iphoto.Composition
}

// Writer writes composition files into Dir.
type Writer struct {
	Dir              string
	Namer            Namer
	Fields           iphoto.Fields
	Encoding         string
	UnresolvedPrefix string
	Overwrite        bool
	Workers          int
}

// Plan names every composition and checks the names before anything is
// written. Names that are not a single path element, duplicates and, unless
// Overwrite is set, existing files are errors.
func (w *Writer) Plan(comps []iphoto.Composition) ([]File, error) {
	if err := w.Namer.Validate(); err != nil {
		return nil, err
	}

	files := make([]File, 0, len(comps))
	owners := make(map[string][]string)
	for _, comp := range comps {
		name, err := w.Namer.FileName(comp.Album, w.Fields)
		if err != nil {
			return nil, err
		}
		if filepath.Base(name) != name || name == "." || name == ".." {
			return nil, fmt.Errorf("album %s: composition file name %q is not a plain file name", comp.Label, name)
		}
		owners[name] = append(owners[name], comp.Label)
		files = append(files, File{
			Name:        name,
			Path:        filepath.Join(w.Dir, name),
			Composition: comp,
		})
	}

	for _, f := range files {
		if albums := owners[f.Name]; len(albums) > 1 {
			return nil, &DuplicateNameError{Name: f.Name, Albums: albums}
		}
		if w.Overwrite {
			continue
		}
		if _, err := os.Stat(f.Path); err == nil {
			return nil, fmt.Errorf("refusing to overwrite existing file %s: %w", f.Path, os.ErrExist)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to check %s: %w", f.Path, err)
		}
	}
	return files, nil
}

// WriteAll plans and writes one file per composition. It returns the paths
// written, in composition order.
func (w *Writer) WriteAll(ctx context.Context, comps []iphoto.Composition) ([]string, error) {
	enc, err := table.LookupEncoding(w.Encoding)
	if err != nil {
		return nil, err
	}
	files, err := w.Plan(comps)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create composition directory %s: %w", w.Dir, err)
	}

	prefix := w.UnresolvedPrefix
	if prefix == "" {
		prefix = DefaultUnresolvedPrefix
	}
	workers := w.Workers
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			body, err := enc.NewEncoder().String(Render(f.Composition, prefix))
			if err != nil {
				return fmt.Errorf("failed to encode composition %s: %w", f.Name, err)
			}
			slog.Debug("Writing composition file", "path", f.Path, "references", f.Composition.Len())
			return writeFile(f.Path, []byte(body), w.Overwrite)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeFile(path string, data []byte, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
