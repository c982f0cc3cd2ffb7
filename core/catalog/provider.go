package catalog

import (
	"context"

	"rabbithole/cache"
	"rabbithole/core/wiki"
	"rabbithole/logger"
	"rabbithole/model"
	"rabbithole/repository"
)

// Provider is the catalog the discovery loop reads: mysql as the canonical
// store, redis as a read-through cache, the wiki API as upstream. Every
// lookup is best-effort; missing data degrades to empty results.
type Provider struct {
	repo      repository.SongRepository
	wikiAPI   *wiki.Client
	wikiCache *cache.WikiCache
}

// NewProvider 创建曲库提供者
func NewProvider(repo repository.SongRepository, wikiAPI *wiki.Client, wikiCache *cache.WikiCache) *Provider {
	return &Provider{repo: repo, wikiAPI: wikiAPI, wikiCache: wikiCache}
}

// GetSong returns the track record for a slug, or nil when nowhere to be
// found. Lookup order: redis cache, mysql, wiki upstream.
func (p *Provider) GetSong(ctx context.Context, slug string) *model.TrackRecord {
	if p.wikiCache != nil {
		if track, err := p.wikiCache.GetSong(ctx, slug); err == nil && track != nil {
			return track
		}
	}

	track, err := p.repo.GetBySlug(ctx, slug)
	if err != nil {
		logger.Warn("song lookup failed", logger.String("slug", slug), logger.ErrorField(err))
	}
	if track != nil {
		p.cacheSong(ctx, track)
		return track
	}

	if p.wikiAPI == nil {
		return nil
	}
	track, err = p.wikiAPI.GetSong(ctx, slug)
	if err != nil {
		logger.Warn("wiki song fetch failed", logger.String("slug", slug), logger.ErrorField(err))
		return nil
	}
	if track == nil {
		return nil
	}

	if err := p.repo.Upsert(ctx, track); err != nil {
		logger.Warn("failed to store wiki song", logger.String("slug", slug), logger.ErrorField(err))
	}
	p.cacheSong(ctx, track)
	return track
}

// HasSong reports whether the slug exists in the catalog.
func (p *Provider) HasSong(ctx context.Context, slug string) bool {
	exists, err := p.repo.ExistsBySlug(ctx, slug)
	if err != nil {
		logger.Warn("song existence check failed", logger.String("slug", slug), logger.ErrorField(err))
		return p.GetSong(ctx, slug) != nil
	}
	if exists {
		return true
	}
	return p.GetSong(ctx, slug) != nil
}

// SongTitle returns the title for a slug, empty when unknown.
func (p *Provider) SongTitle(ctx context.Context, slug string) string {
	if track := p.GetSong(ctx, slug); track != nil {
		return track.Title
	}
	return ""
}

// GetCatalog returns every known track keyed by slug.
func (p *Provider) GetCatalog(ctx context.Context) map[string]*model.TrackRecord {
	tracks, err := p.repo.List(ctx)
	if err != nil {
		logger.Warn("catalog list failed", logger.ErrorField(err))
		return map[string]*model.TrackRecord{}
	}

	catalog := make(map[string]*model.TrackRecord, len(tracks))
	for _, track := range tracks {
		catalog[track.Slug] = track
	}
	return catalog
}

// Search queries the local store first and falls back to the wiki.
func (p *Provider) Search(ctx context.Context, query string) []*model.TrackRecord {
	tracks, err := p.repo.Search(ctx, query)
	if err != nil {
		logger.Warn("catalog search failed", logger.String("query", query), logger.ErrorField(err))
	}
	if len(tracks) > 0 {
		return tracks
	}

	if p.wikiAPI == nil {
		return nil
	}
	tracks, err = p.wikiAPI.Search(ctx, query)
	if err != nil {
		logger.Warn("wiki search failed", logger.String("query", query), logger.ErrorField(err))
		return nil
	}
	return tracks
}

// Connections returns a musician's catalog connections, cached per musician.
func (p *Provider) Connections(ctx context.Context, musician string) []model.MusicianConnection {
	name := wiki.NormalizeMusician(musician)

	if p.wikiCache != nil {
		if conns, ok := p.wikiCache.GetConnections(ctx, name); ok {
			return conns
		}
	}

	if p.wikiAPI == nil {
		return nil
	}
	conns, err := p.wikiAPI.GetMusicianConnections(ctx, name)
	if err != nil {
		logger.Warn("connections lookup failed", logger.String("musician", name), logger.ErrorField(err))
		return nil
	}

	if p.wikiCache != nil {
		if err := p.wikiCache.SetConnections(ctx, name, conns); err != nil {
			logger.Warn("failed to cache connections", logger.String("musician", name), logger.ErrorField(err))
		}
	}
	return conns
}

// Sync pulls the full wiki catalog into mysql. Used by the sync command and
// at server startup when the local catalog is empty.
func (p *Provider) Sync(ctx context.Context) (int, error) {
	if p.wikiAPI == nil {
		return 0, nil
	}

	upstream, err := p.wikiAPI.GetCatalog(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for slug, track := range upstream {
		if err := p.repo.Upsert(ctx, track); err != nil {
			logger.Warn("failed to upsert song during sync",
				logger.String("slug", slug),
				logger.ErrorField(err))
			continue
		}
		count++
	}
	return count, nil
}

func (p *Provider) cacheSong(ctx context.Context, track *model.TrackRecord) {
	if p.wikiCache == nil {
		return
	}
	if err := p.wikiCache.SetSong(ctx, track); err != nil {
		logger.Warn("failed to cache song", logger.String("slug", track.Slug), logger.ErrorField(err))
	}
}
