package server

import (
	"encoding/json"
	"net/http"

	"rabbithole/logger"

	"github.com/gorilla/mux"
)

// GetDiscoveryHandler returns the listener's current discovery state.
func (h *APIHandler) GetDiscoveryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	state := h.session(r.Context(), userID).machine.State()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    state,
	})
}

// FollowMusicianHandler sets (or clears) the followed musician and re-rolls
// the next-song recommendation.
func (h *APIHandler) FollowMusicianHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Musician string `json:"musician"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s := h.session(r.Context(), userID)
	s.machine.SetFollowingMusician(r.Context(), req.Musician)
	logger.Info("跟随音乐人",
		logger.Int64("userId", userID),
		logger.String("musician", req.Musician))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    s.machine.State(),
	})
}

// NextSongHandler dequeues the pending recommendation, promotes it to the
// current song and loads it into the player.
func (h *APIHandler) NextSongHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	s := h.session(r.Context(), userID)
	slug, ok := s.machine.PopNextSong()
	if !ok {
		writeError(w, http.StatusNotFound, "No song queued")
		return
	}

	track := h.provider.GetSong(r.Context(), slug)
	if track == nil {
		writeError(w, http.StatusNotFound, "Queued song no longer in catalog")
		return
	}

	s.machine.SetCurrentSong(r.Context(), slug)
	s.player.Load(track)

	// 继续跟随时立刻补上下一首推荐
	state := s.machine.State()
	if state.FollowMode && state.FollowingMusician != "" {
		s.machine.QueueNextSongByMusician(r.Context(), state.FollowingMusician)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    s.machine.State(),
		"song":    track,
	})
}

// GoBackHandler pops the most recent history entry and reloads that song.
func (h *APIHandler) GoBackHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	s := h.session(r.Context(), userID)
	ref := s.machine.GoBack(r.Context())
	if ref == nil {
		writeError(w, http.StatusNotFound, "History is empty")
		return
	}

	track := h.provider.GetSong(r.Context(), ref.SongSlug)
	if track != nil {
		s.machine.SetCurrentSong(r.Context(), ref.SongSlug)
		s.player.Load(track)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    s.machine.State(),
		"song":    track,
	})
}

// PlayableHandler reports whether a slug is a legal discovery target for this
// listener.
func (h *APIHandler) PlayableHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	slug := mux.Vars(r)["slug"]
	playable := h.session(r.Context(), userID).machine.IsPlayable(r.Context(), slug)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"playable": playable,
	})
}

// LoadSongHandler loads an arbitrary catalog song into the player without
// going through the queue, e.g. when the listener picks a song directly.
func (h *APIHandler) LoadSongHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	slug := mux.Vars(r)["slug"]
	track := h.provider.GetSong(r.Context(), slug)
	if track == nil {
		writeError(w, http.StatusNotFound, "Song not found")
		return
	}

	s := h.session(r.Context(), userID)
	s.machine.SetCurrentSong(r.Context(), slug)
	s.player.Load(track)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    s.machine.State(),
		"song":    track,
	})
}
