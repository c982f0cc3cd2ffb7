package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"rabbithole/logger"
	"rabbithole/model"
	"rabbithole/repository"

	"github.com/fsnotify/fsnotify"
)

// Watcher ingests track-record JSON files dropped into a local directory so
// the catalog can be updated without going through the wiki.
type Watcher struct {
	dir  string
	repo repository.SongRepository
}

// NewWatcher 创建曲库目录监听器
func NewWatcher(dir string, repo repository.SongRepository) *Watcher {
	return &Watcher{dir: dir, repo: repo}
}

// Run watches the directory until the context is cancelled. Errors on
// individual files are logged and skipped.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	logger.Info("watching catalog directory", logger.String("dir", w.dir))

	for {
		select {
		case event := <-watcher.Events:
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			w.ingest(ctx, event.Name)

		case err := <-watcher.Errors:
			logger.Warn("catalog watcher error", logger.ErrorField(err))

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("failed to read catalog file",
			logger.String("file", path),
			logger.ErrorField(err))
		return
	}

	var track model.TrackRecord
	if err := json.Unmarshal(data, &track); err != nil {
		logger.Warn("invalid catalog file",
			logger.String("file", path),
			logger.ErrorField(err))
		return
	}

	if track.Slug == "" {
		// Fall back to the file name.
		track.Slug = strings.TrimSuffix(filepath.Base(path), ".json")
	}

	if err := w.repo.Upsert(ctx, &track); err != nil {
		logger.Warn("failed to store catalog file",
			logger.String("slug", track.Slug),
			logger.ErrorField(err))
		return
	}

	logger.Info("catalog file ingested",
		logger.String("slug", track.Slug),
		logger.String("file", filepath.Base(path)))
}
