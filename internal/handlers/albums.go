package handlers

import (
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/iphoto-catalog/internal/models"
)

func (h *Handler) HandleAlbums(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		snapshot, ok := h.getSnapshotOrError(w)
		if !ok {
			return
		}
		albumType := r.URL.Query().Get("type")
		albums := make([]models.AlbumSummary, 0, len(snapshot.Compositions))
		for _, comp := range snapshot.Compositions {
			summary := summarize(comp, snapshot.Fields)
			if albumType != "" && summary.Type != albumType {
				continue
			}
			albums = append(albums, summary)
		}
		h.writeJSON(w, albums)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleAlbumDetail(w http.ResponseWriter, r *http.Request) {
	albumID := strings.TrimPrefix(r.URL.Path, "/api/albums/")

	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, ok := h.getSnapshotOrError(w)
	if !ok {
		return
	}
	comp, exists := snapshot.Composition(albumID)
	if !exists {
		h.writeError(w, "Album not found", http.StatusNotFound)
		return
	}

	detail := models.AlbumDetail{
		AlbumSummary: summarize(comp, snapshot.Fields),
		Fields:       h.fields(comp.Album.Dict()),
		Members:      make([]models.Member, 0, comp.Len()),
	}
	for _, ref := range comp.References {
		detail.Members = append(detail.Members, models.Member{
			Position: ref.Position,
			Key:      ref.Key,
			Path:     ref.Path,
			Resolved: ref.Resolved,
			Reason:   ref.Reason,
		})
	}
	h.writeJSON(w, detail)
}
