package exportcmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/composition"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/config"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/iphoto"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/plist"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/report"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/table"
)

// Stage names used as the "stage" log attribute.
const (
	StageMasterImages = "Master Image List"
	StageAlbums       = "List of Albums"
	StageComposition  = "Album Composition"
)

// SQLite table names.
const (
	MasterImagesTable = "master_images"
	AlbumsTable       = "albums"
)

type exporter struct {
	cfg     *config.Config
	logger  *slog.Logger
	summary *report.Summary
	db      *table.SQLiteWriter
}

// Run decodes the configured catalog and writes every enabled output. A
// stage that fails stops the run before writing any of its outputs.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*report.Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &exporter{
		cfg:    cfg,
		logger: logger,
		summary: &report.Summary{
			Input:     cfg.Input.XMLPath,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	logger.Info("Starting export", "input", cfg.Input.XMLPath, "output_dir", cfg.Output.Dir)

	var opts []plist.Option
	if !cfg.Input.NormalizeStrings {
		opts = append(opts, plist.WithoutNormalization())
	}
	root, err := plist.NewDecoder(opts...).DecodeFile(cfg.Input.XMLPath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	rootDict, ok := root.(*plist.Dict)
	if !ok {
		return nil, fmt.Errorf("failed to decode catalog: root is %s, expected dict", root.Kind())
	}

	if cfg.Output.Dir != "" {
		if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if cfg.Output.SQLite.Generate && !cfg.Output.Overwrite {
		path := cfg.OutputPath(cfg.Output.SQLite.FilePath)
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("refusing to overwrite existing file %s: %w", path, os.ErrExist)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to check %s: %w", path, err)
		}
	}
	defer e.closeDatabase()

	images, err := e.masterImages(ctx, rootDict)
	if err != nil {
		return nil, fmt.Errorf("failed to process %q: %w", StageMasterImages, err)
	}
	albums, err := e.albums(ctx, rootDict)
	if err != nil {
		return nil, fmt.Errorf("failed to process %q: %w", StageAlbums, err)
	}
	if err := e.compositions(ctx, albums, images); err != nil {
		return nil, fmt.Errorf("failed to process %q: %w", StageComposition, err)
	}

	if cfg.Output.Report.Generate {
		path := cfg.OutputPath(cfg.Output.Report.FilePath)
		if err := report.SaveYAML(path, e.summary, cfg.Output.Overwrite); err != nil {
			return nil, err
		}
	}

	logger.Info("Export finished",
		"master_images", e.summary.MasterImagesKept,
		"albums", e.summary.AlbumsKept,
		"unresolved", e.summary.Unresolved,
		"outputs", len(e.summary.Outputs))
	return e.summary, nil
}

func (e *exporter) masterImages(ctx context.Context, root *plist.Dict) (iphoto.MasterImages, error) {
	log := e.logger.With("stage", StageMasterImages)
	log.Info("Processing section")

	images, err := e.cfg.Sections().ExtractMasterImages(root)
	if err != nil {
		return iphoto.MasterImages{}, err
	}
	e.summary.MasterImages = images.Len()

	images = iphoto.FilterMasterImages(images, e.cfg.Process.FieldsFilter.MasterImageList)
	e.summary.MasterImagesKept = images.Len()
	log.Info("Section extracted", "records", e.summary.MasterImages, "kept", e.summary.MasterImagesKept)

	t, err := table.ProjectKeyed(images.Dict(), e.cfg.TableOptions())
	if err != nil {
		return iphoto.MasterImages{}, err
	}
	t.Name = MasterImagesTable

	if err := e.writeTable(ctx, log, t, e.cfg.Output.CSV.MasterImageList, e.cfg.Output.Parquet.MasterImageList); err != nil {
		return iphoto.MasterImages{}, err
	}
	return images, nil
}

func (e *exporter) albums(ctx context.Context, root *plist.Dict) ([]iphoto.Album, error) {
	log := e.logger.With("stage", StageAlbums)
	log.Info("Processing section")

	albums, err := e.cfg.Sections().ExtractAlbums(root)
	if err != nil {
		return nil, err
	}
	e.summary.Albums = len(albums)

	albums = iphoto.FilterAlbums(albums, e.cfg.Process.FieldsFilter.ListOfAlbums)
	e.summary.AlbumsKept = len(albums)
	log.Info("Section extracted", "records", e.summary.Albums, "kept", e.summary.AlbumsKept)

	records := make([]*plist.Dict, len(albums))
	for i, a := range albums {
		records[i] = a.Dict()
	}
	t, err := table.Project(records, e.cfg.TableOptions())
	if err != nil {
		return nil, err
	}
	t.Name = AlbumsTable

	if err := e.writeTable(ctx, log, t, e.cfg.Output.CSV.ListOfAlbums, e.cfg.Output.Parquet.ListOfAlbums); err != nil {
		return nil, err
	}
	return albums, nil
}

func (e *exporter) writeTable(ctx context.Context, log *slog.Logger, t *table.Table, csvCfg config.CSVFileConfig, parquetPath string) error {
	overwrite := e.cfg.Output.Overwrite

	if csvCfg.Generate {
		path := e.cfg.OutputPath(csvCfg.FilePath)
		opts := table.CSVOptions{Encoding: csvCfg.Encoding, BOM: csvCfg.BOM, Overwrite: overwrite}
		if err := table.WriteCSV(path, t, opts); err != nil {
			return err
		}
		e.summary.AddOutput(path)
	}

	if e.cfg.Output.Parquet.Generate {
		path := e.cfg.OutputPath(parquetPath)
		if err := table.WriteParquet(path, t, overwrite); err != nil {
			return err
		}
		e.summary.AddOutput(path)
	}

	if e.cfg.Output.SQLite.Generate {
		db, err := e.database(ctx)
		if err != nil {
			return err
		}
		if err := db.WriteTable(ctx, t.Name, t); err != nil {
			return err
		}
	}

	log.Debug("Table written", "rows", t.Len(), "columns", len(t.Header))
	return nil
}

func (e *exporter) compositions(ctx context.Context, albums []iphoto.Album, images iphoto.MasterImages) error {
	log := e.logger.With("stage", StageComposition)
	log.Info("Joining master images to albums")

	fields := e.cfg.Fields()
	comps := iphoto.ResolveAll(albums, images, fields)
	for _, comp := range comps {
		for _, u := range comp.Unresolved() {
			log.Warn("Unresolved album reference", "album", u.Album, "position", u.Position, "key", u.Key, "reason", u.Reason)
		}
	}
	e.summary.AddCompositions(comps)

	if c := e.cfg.Output.Composition; c.Generate {
		w := &composition.Writer{
			Dir:              e.cfg.OutputPath(c.DirPath),
			Namer:            e.cfg.Namer(),
			Fields:           fields,
			Encoding:         c.Encoding,
			UnresolvedPrefix: c.UnresolvedPrefix,
			Overwrite:        e.cfg.Output.Overwrite,
			Workers:          c.Workers,
		}
		paths, err := w.WriteAll(ctx, comps)
		if err != nil {
			return err
		}
		for _, p := range paths {
			e.summary.AddOutput(p)
		}
		log.Info("Composition files written", "albums", len(paths), "dir", w.Dir)
	}

	if e.cfg.Output.SQLite.Generate {
		db, err := e.database(ctx)
		if err != nil {
			return err
		}
		if err := db.WriteCompositions(ctx, comps); err != nil {
			return err
		}
	}
	return nil
}

// database opens the SQLite output on first use, so a run that fails
// before its first table leaves no database file behind.
func (e *exporter) database(ctx context.Context) (*table.SQLiteWriter, error) {
	if e.db != nil {
		return e.db, nil
	}
	path := e.cfg.OutputPath(e.cfg.Output.SQLite.FilePath)
	db, err := table.OpenSQLite(ctx, path, e.cfg.Output.Overwrite)
	if err != nil {
		return nil, err
	}
	e.db = db
	e.summary.AddOutput(path)
	return db, nil
}

func (e *exporter) closeDatabase() {
	if e.db == nil {
		return
	}
	if err := e.db.Close(); err != nil {
		e.logger.Error("Failed to close SQLite output", "err", err)
	}
}
