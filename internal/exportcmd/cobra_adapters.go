package exportcmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/config"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/report"
)

type commonFlags struct {
	configPath string
	input      string
	outputDir  string
	verbose    bool
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to the YAML config file (default $"+config.EnvConfigPath+")")
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "AlbumData.xml to read (overrides input.xml_path)")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Directory for relative output paths (overrides output.dir)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Verbose logging")
}

// load reads the config file and applies the command-line overrides. The
// environment is consulted here, after the root command has loaded .env.
func (f *commonFlags) load() (*config.Config, error) {
	path := f.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if f.input != "" {
		cfg.Input.XMLPath = f.input
	}
	if f.outputDir != "" {
		cfg.Output.Dir = f.outputDir
	}
	return cfg, nil
}

// NewLogger returns the text logger used by every command. Debug output is
// enabled by verbose or LOG_LEVEL=debug.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose || strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	var flags commonFlags
	var overwrite bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export master images, albums and album compositions",
		Long: `Decode an iPhoto AlbumData.xml catalog and write:

  - the master image list as a table keyed by image id
  - the list of albums as a table
  - one text file per album listing its member image paths in order

Tables are written as CSV and optionally as Parquet and SQLite. Which outputs
are written, their paths, encodings and the fields used for joining come from
the YAML config file.`,
		Example: `  # Export with a config file
  iphoto-catalog export --config export.yaml

  # Override the input and output directory
  iphoto-catalog export -c export.yaml -i ~/Pictures/iPhoto\ Library/AlbumData.xml -o ./out

  # Re-run into the same directory
  iphoto-catalog export -c export.yaml --overwrite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := NewLogger(flags.verbose)
			slog.SetDefault(logger)

			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if overwrite {
				cfg.Output.Overwrite = true
			}

			summary, err := Run(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			if !quiet {
				report.Print(cmd.OutOrStdout(), summary)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing output files")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the summary")

	return cmd
}

// NewInspectCmd creates the inspect command.
func NewInspectCmd() *cobra.Command {
	var flags commonFlags
	var opts InspectOptions

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect a catalog without writing anything",
		Long: `Decode an iPhoto AlbumData.xml catalog and print its top-level keys and
albums, or the detail of a single album or master image.`,
		Example: `  # Overview of the catalog
  iphoto-catalog inspect -i AlbumData.xml

  # Members of album 42
  iphoto-catalog inspect -i AlbumData.xml --album 42

  # One master image record
  iphoto-catalog inspect -i AlbumData.xml --image 1337`,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.SetDefault(NewLogger(flags.verbose))

			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if cfg.Input.XMLPath == "" {
				return fmt.Errorf("--input or input.xml_path is required")
			}
			return Inspect(cmd.OutOrStdout(), cfg, opts)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&opts.Album, "album", "", "Show the album with this id (or name, for albums without an id)")
	cmd.Flags().StringVar(&opts.Image, "image", "", "Show the master image with this key")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Number of albums or members to list (0 for all)")
	cmd.Flags().StringVar(&opts.Prefix, "unresolved-prefix", "", "Prefix for unresolved members (default from config)")
	cmd.MarkFlagsMutuallyExclusive("album", "image")

	return cmd
}
