// Package config loads the export configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/composition"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/iphoto"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/table"
)

// EnvConfigPath names the environment variable holding the default config
// file path.
const EnvConfigPath = "IPHOTO_CATALOG_CONFIG"

// Config is the full export configuration.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Process ProcessConfig `yaml:"process"`
	Output  OutputConfig  `yaml:"output"`
}

// InputConfig locates the catalog file and its sections.
type InputConfig struct {
	XMLPath            string `yaml:"xml_path"`
	MasterImageListKey string `yaml:"master_image_list_key"`
	ListOfAlbumsKey    string `yaml:"list_of_albums_key"`
	NormalizeStrings   bool   `yaml:"normalize_strings"`
}

// ProcessConfig controls filtering, joining and projection.
type ProcessConfig struct {
	FieldsFilter  FieldsFilterConfig `yaml:"fields_filter"`
	TargetFields  TargetFieldsConfig `yaml:"target_fields"`
	ListDelimiter string             `yaml:"list_delimiter"`
}

// FieldsFilterConfig holds one optional filter per section.
type FieldsFilterConfig struct {
	MasterImageList *iphoto.FieldsFilter `yaml:"master_image_list"`
	ListOfAlbums    *iphoto.FieldsFilter `yaml:"list_of_albums"`
}

// TargetFieldsConfig names the record attributes the joiner reads.
type TargetFieldsConfig struct {
	MasterImageList struct {
		ImagePath    string `yaml:"image_path"`
		OriginalPath string `yaml:"original_path"`
	} `yaml:"master_image_list"`
	ListOfAlbums struct {
		AlbumID   string `yaml:"album_id"`
		AlbumType string `yaml:"album_type"`
		AlbumName string `yaml:"album_name"`
		KeyList   string `yaml:"key_list"`
	} `yaml:"list_of_albums"`
}

// OutputConfig selects the outputs to write. Relative paths are resolved
// against Dir.
type OutputConfig struct {
	Dir         string            `yaml:"dir"`
	Overwrite   bool              `yaml:"overwrite"`
	CSV         CSVConfig         `yaml:"csv"`
	Parquet     ParquetConfig     `yaml:"parquet"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Composition CompositionConfig `yaml:"composition"`
	Report      ReportConfig      `yaml:"report"`
}

// CSVConfig holds one CSV output per section.
type CSVConfig struct {
	MasterImageList CSVFileConfig `yaml:"master_image_list"`
	ListOfAlbums    CSVFileConfig `yaml:"list_of_albums"`
}

// CSVFileConfig describes one CSV file.
type CSVFileConfig struct {
	Generate bool   `yaml:"generate"`
	FilePath string `yaml:"file_path"`
	Encoding string `yaml:"encoding"`
	BOM      bool   `yaml:"bom"`
}

// ParquetConfig writes both sections as Parquet files.
type ParquetConfig struct {
	Generate        bool   `yaml:"generate"`
	MasterImageList string `yaml:"master_image_list"`
	ListOfAlbums    string `yaml:"list_of_albums"`
}

// SQLiteConfig writes both sections and the album members to one database.
type SQLiteConfig struct {
	Generate bool   `yaml:"generate"`
	FilePath string `yaml:"file_path"`
}

// CompositionConfig controls the per-album text files.
type CompositionConfig struct {
	Generate         bool       `yaml:"generate"`
	DirPath          string     `yaml:"dir_path"`
	Encoding         string     `yaml:"encoding"`
	UnresolvedPrefix string     `yaml:"unresolved_prefix"`
	Workers          int        `yaml:"workers"`
	Name             NameConfig `yaml:"name"`
}

// NameConfig controls composition file names.
type NameConfig struct {
	IDPadding  int    `yaml:"id_padding"`
	JoinChar   string `yaml:"join_char"`
	EscapeChar string `yaml:"escape_char"`
}

// ReportConfig controls the YAML run report.
type ReportConfig struct {
	Generate bool   `yaml:"generate"`
	FilePath string `yaml:"file_path"`
}

// Default returns the configuration used for keys a file leaves out.
func Default() *Config {
	fields := iphoto.DefaultFields()
	sections := iphoto.DefaultSections()
	namer := composition.DefaultNamer()

	cfg := &Config{
		Input: InputConfig{
			MasterImageListKey: sections.MasterImageList,
			ListOfAlbumsKey:    sections.ListOfAlbums,
			NormalizeStrings:   true,
		},
		Output: OutputConfig{
			CSV: CSVConfig{
				MasterImageList: CSVFileConfig{Generate: true, FilePath: "master_image_list.csv", Encoding: "utf-8"},
				ListOfAlbums:    CSVFileConfig{Generate: true, FilePath: "list_of_albums.csv", Encoding: "utf-8"},
			},
			Parquet: ParquetConfig{
				MasterImageList: "master_image_list.parquet",
				ListOfAlbums:    "list_of_albums.parquet",
			},
			SQLite: SQLiteConfig{FilePath: "catalog.sqlite"},
			Composition: CompositionConfig{
				Generate:         true,
				DirPath:          "albums",
				Encoding:         "utf-8",
				UnresolvedPrefix: composition.DefaultUnresolvedPrefix,
				Workers:          4,
				Name: NameConfig{
					IDPadding:  namer.Pad,
					JoinChar:   namer.Join,
					EscapeChar: namer.Escape,
				},
			},
			Report: ReportConfig{FilePath: "report.yaml"},
		},
	}
	cfg.Process.TargetFields.MasterImageList.ImagePath = fields.ImagePath
	cfg.Process.TargetFields.MasterImageList.OriginalPath = fields.OriginalPath
	cfg.Process.TargetFields.ListOfAlbums.AlbumID = fields.AlbumID
	cfg.Process.TargetFields.ListOfAlbums.AlbumType = fields.AlbumType
	cfg.Process.TargetFields.ListOfAlbums.AlbumName = fields.AlbumName
	cfg.Process.TargetFields.ListOfAlbums.KeyList = fields.KeyList
	return cfg
}

// Load reads path over the defaults. Unknown keys are errors. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer file.Close()

	if err := Decode(file, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads YAML from r into cfg, keeping values the document omits.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the configuration for problems that would otherwise only
// surface part way through an export.
func (c *Config) Validate() error {
	var errs []error

	if c.Input.XMLPath == "" {
		errs = append(errs, errors.New("input.xml_path is required"))
	}
	if c.Input.MasterImageListKey == "" || c.Input.ListOfAlbumsKey == "" {
		errs = append(errs, errors.New("input section keys must not be empty"))
	}

	csvFiles := map[string]CSVFileConfig{
		"master_image_list": c.Output.CSV.MasterImageList,
		"list_of_albums":    c.Output.CSV.ListOfAlbums,
	}
	for _, name := range []string{"master_image_list", "list_of_albums"} {
		f := csvFiles[name]
		if !f.Generate {
			continue
		}
		if f.FilePath == "" {
			errs = append(errs, fmt.Errorf("output.csv.%s.file_path is required", name))
		}
		if _, err := table.LookupEncoding(f.Encoding); err != nil {
			errs = append(errs, fmt.Errorf("output.csv.%s.encoding: %w", name, err))
		}
	}

	if c.Output.Parquet.Generate && (c.Output.Parquet.MasterImageList == "" || c.Output.Parquet.ListOfAlbums == "") {
		errs = append(errs, errors.New("output.parquet needs a path for both sections"))
	}
	if c.Output.SQLite.Generate && c.Output.SQLite.FilePath == "" {
		errs = append(errs, errors.New("output.sqlite.file_path is required"))
	}

	if comp := c.Output.Composition; comp.Generate {
		if comp.DirPath == "" {
			errs = append(errs, errors.New("output.composition.dir_path is required"))
		}
		if _, err := table.LookupEncoding(comp.Encoding); err != nil {
			errs = append(errs, fmt.Errorf("output.composition.encoding: %w", err))
		}
		if comp.Workers < 1 {
			errs = append(errs, fmt.Errorf("output.composition.workers must be at least 1, got %d", comp.Workers))
		}
		if err := c.Namer().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("output.composition.name: %w", err))
		}
	}

	if c.Output.Report.Generate && c.Output.Report.FilePath == "" {
		errs = append(errs, errors.New("output.report.file_path is required"))
	}

	return errors.Join(errs...)
}

// Sections returns the configured section names.
func (c *Config) Sections() iphoto.Sections {
	return iphoto.Sections{
		MasterImageList: c.Input.MasterImageListKey,
		ListOfAlbums:    c.Input.ListOfAlbumsKey,
	}
}

// Fields returns the configured record attribute names.
func (c *Config) Fields() iphoto.Fields {
	t := c.Process.TargetFields
	return iphoto.Fields{
		AlbumID:      t.ListOfAlbums.AlbumID,
		AlbumType:    t.ListOfAlbums.AlbumType,
		AlbumName:    t.ListOfAlbums.AlbumName,
		KeyList:      t.ListOfAlbums.KeyList,
		ImagePath:    t.MasterImageList.ImagePath,
		OriginalPath: t.MasterImageList.OriginalPath,
	}
}

// Namer returns the composition file namer.
func (c *Config) Namer() composition.Namer {
	n := c.Output.Composition.Name
	return composition.Namer{Pad: n.IDPadding, Join: n.JoinChar, Escape: n.EscapeChar}
}

// TableOptions returns the cell formatting options.
func (c *Config) TableOptions() table.Options {
	return table.Options{ListDelimiter: c.Process.ListDelimiter}
}

// OutputPath resolves p against the output directory.
func (c *Config) OutputPath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Output.Dir == "" {
		return p
	}
	return filepath.Join(c.Output.Dir, p)
}
