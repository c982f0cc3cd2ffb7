package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"rabbithole/logger"
	"rabbithole/storage"
)

// StaticHandler serves covers and audio straight out of the MinIO bucket.
func (h *APIHandler) StaticHandler(w http.ResponseWriter, r *http.Request) {
	objectPath := strings.TrimPrefix(r.URL.Path, "/static/")
	if objectPath == "" {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	object, err := storage.GetObject(ctx, h.cfg.MinioBucket, objectPath)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer object.Close()

	var contentType string
	switch {
	case strings.HasPrefix(objectPath, "covers/"):
		contentType = "image/jpeg"
	case strings.HasPrefix(objectPath, "audio/"):
		contentType = "audio/mpeg"
	default:
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000") // 缓存一年

	if _, err := io.Copy(w, object); err != nil {
		logger.Debug("static file copy interrupted",
			logger.String("path", objectPath),
			logger.ErrorField(err))
	}
}
