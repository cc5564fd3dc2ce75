package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/config"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/exportcmd"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/handlers"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/storage"
)

func newServeCmd() *cobra.Command {
	var port string
	var configPath string
	var input string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only JSON API over a catalog",
		Long: `Decodes the catalog once and serves its albums, album members and master
images as JSON. POST /api/catalog reloads the catalog from disk.

Endpoints:
  GET  /api/catalog         catalog overview
  POST /api/catalog         reload from disk
  GET  /api/albums          album list (?type= filters by album type)
  GET  /api/albums/{id}     album attributes and ordered members
  GET  /api/images/{key}    one master image record
  GET  /healthcheck`,
		Example: `  # Start server on default port 8888
  iphoto-catalog serve -i AlbumData.xml

  # Start server on custom port with a config file
  iphoto-catalog serve -c export.yaml --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.SetDefault(exportcmd.NewLogger(verbose))

			if configPath == "" {
				configPath = os.Getenv(config.EnvConfigPath)
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if input != "" {
				cfg.Input.XMLPath = input
			}
			if cfg.Input.XMLPath == "" {
				return fmt.Errorf("--input or input.xml_path is required")
			}

			store := storage.New()
			if _, err := store.Load(cfg); err != nil {
				return err
			}
			handler := handlers.New(store, cfg)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Catalog API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file (default $"+config.EnvConfigPath+")")
	cmd.Flags().StringVarP(&input, "input", "i", "", "AlbumData.xml to serve (overrides input.xml_path)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	return cmd
}
