package handlers

import (
	"encoding/json"
	"net/http"

	"jamesfarrell.me/video-library/internal/storage/models"
)

type SearchHandler struct {
	videos *VideoHandler
}

func NewSearchHandler(videos *VideoHandler) *SearchHandler {
	return &SearchHandler{videos: videos}
}

// Search runs the query over the whole library. Videos whose matching call
// failed are still listed, with their error set.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := h.videos.lib.Search(r.Context(), req.Query)
	if err != nil {
		h.videos.writeError(w, err)
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}

	writeJSON(w, http.StatusOK, models.SearchResponse{Results: results})
}
