package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/config"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/iphoto"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/models"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/plist"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/storage"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/table"
)

type Handler struct {
	catalogStore *storage.CatalogStore
	cfg          *config.Config
}

func New(store *storage.CatalogStore, cfg *config.Config) *Handler {
	return &Handler{
		catalogStore: store,
		cfg:          cfg,
	}
}

// Routes registers the API endpoints on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/catalog", h.HandleCatalog)
	mux.HandleFunc("/api/albums", h.HandleAlbums)
	mux.HandleFunc("/api/albums/", h.HandleAlbumDetail)
	mux.HandleFunc("/api/images/", h.HandleImage)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Snapshot helpers
func (h *Handler) getSnapshotOrError(w http.ResponseWriter) (*storage.Snapshot, bool) {
	snapshot, exists := h.catalogStore.Get()
	if !exists {
		h.writeError(w, "Catalog not loaded", http.StatusServiceUnavailable)
		return nil, false
	}
	return snapshot, true
}

func (h *Handler) fields(rec *plist.Dict) []models.Field {
	opts := h.cfg.TableOptions()
	fields := make([]models.Field, 0, rec.Len())
	for name, v := range rec.All() {
		text, err := table.Format(v, opts)
		if err != nil {
			text = plist.Describe(v)
		}
		fields = append(fields, models.Field{Name: name, Kind: v.Kind().String(), Value: text})
	}
	return fields
}

func summarize(comp iphoto.Composition, f iphoto.Fields) models.AlbumSummary {
	name, _ := comp.Album.Text(f.AlbumName)
	kind, _ := comp.Album.Text(f.AlbumType)
	return models.AlbumSummary{
		ID:         comp.Label,
		Name:       name,
		Type:       kind,
		Members:    comp.Len(),
		Unresolved: len(comp.Unresolved()),
	}
}
