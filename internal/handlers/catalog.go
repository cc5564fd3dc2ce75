package handlers

import (
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/models"
	"github.com/lehigh-university-libraries/iphoto-catalog/internal/storage"
)

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		snapshot, ok := h.getSnapshotOrError(w)
		if !ok {
			return
		}
		h.writeJSON(w, catalogInfo(snapshot))
	case "POST":
		// The previous snapshot keeps serving when the reload fails.
		snapshot, err := h.catalogStore.Load(h.cfg)
		if err != nil {
			h.writeError(w, "Failed to reload catalog: "+err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, catalogInfo(snapshot))
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func catalogInfo(snapshot *storage.Snapshot) models.CatalogInfo {
	info := models.CatalogInfo{
		Source:       snapshot.Source,
		LoadedAt:     snapshot.LoadedAt,
		MasterImages: snapshot.MasterImages.Len(),
		Albums:       len(snapshot.Albums),
	}
	for _, comp := range snapshot.Compositions {
		info.Unresolved += len(comp.Unresolved())
	}
	return info
}

func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/images/")

	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, ok := h.getSnapshotOrError(w)
	if !ok {
		return
	}
	rec, exists := snapshot.MasterImages.Get(key)
	if !exists {
		h.writeError(w, "Master image not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, models.ImageRecord{Key: key, Fields: h.fields(rec)})
}
