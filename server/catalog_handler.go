package server

import (
	"net/http"

	"rabbithole/logger"

	"github.com/gorilla/mux"
)

// GetSongsHandler 获取曲库中的所有歌曲
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	tracks := h.provider.GetCatalog(r.Context())

	list := make([]interface{}, 0, len(tracks))
	for _, track := range tracks {
		list = append(list, track)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    list,
	})
}

// GetSongHandler 根据slug获取单首歌曲
func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	if slug == "" {
		writeError(w, http.StatusBadRequest, "Song slug is required")
		return
	}

	track := h.provider.GetSong(r.Context(), slug)
	if track == nil {
		writeError(w, http.StatusNotFound, "Song not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    track,
	})
}

// SearchSongsHandler 搜索歌曲
func (h *APIHandler) SearchSongsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "Search query is required")
		return
	}

	tracks := h.provider.Search(r.Context(), query)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    tracks,
	})
}

// GetConnectionsHandler 获取音乐人的关联歌曲
func (h *APIHandler) GetConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["musician"]
	if name == "" {
		writeError(w, http.StatusBadRequest, "Musician name is required")
		return
	}

	conns := h.provider.Connections(r.Context(), name)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    conns,
	})
}

// SyncCatalogHandler 从Wiki同步曲库
func (h *APIHandler) SyncCatalogHandler(w http.ResponseWriter, r *http.Request) {
	count, err := h.provider.Sync(r.Context())
	if err != nil {
		logger.Error("曲库同步失败", logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, "Catalog sync failed")
		return
	}

	logger.Info("曲库同步完成", logger.Int("count", count))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   count,
	})
}
