package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/exportcmd"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iphoto-catalog",
		Short: "Export iPhoto AlbumData.xml catalogs to tables and album lists",
		Long: `iphoto-catalog decodes the AlbumData.xml catalog written by iPhoto and exports
its master image list, its albums and the ordered member list of every album.

Configuration is read from a YAML file given with --config or the
IPHOTO_CATALOG_CONFIG environment variable.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(exportcmd.NewExportCmd())
	cmd.AddCommand(exportcmd.NewInspectCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
