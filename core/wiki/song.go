package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"rabbithole/logger"
	"rabbithole/model"
)

// GetSong 获取单首歌曲记录
func (c *Client) GetSong(ctx context.Context, slug string) (*model.TrackRecord, error) {
	endpoint := fmt.Sprintf("%s/api/songs/%s", c.baseURL, url.PathEscape(slug))

	var track model.TrackRecord
	if err := c.getJSON(ctx, endpoint, &track); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("获取歌曲失败 (slug: %s): %w", slug, err)
	}
	if track.Slug == "" {
		track.Slug = slug
	}
	return &track, nil
}

// GetCatalog 获取整个曲库（slug -> 歌曲记录）
func (c *Client) GetCatalog(ctx context.Context) (map[string]*model.TrackRecord, error) {
	endpoint := fmt.Sprintf("%s/api/songs", c.baseURL)

	var tracks []*model.TrackRecord
	if err := c.getJSON(ctx, endpoint, &tracks); err != nil {
		return nil, fmt.Errorf("获取曲库失败: %w", err)
	}

	catalog := make(map[string]*model.TrackRecord, len(tracks))
	for _, track := range tracks {
		if track.Slug == "" {
			logger.Warn("wiki returned a song without a slug, skipping",
				logger.String("title", track.Title))
			continue
		}
		catalog[track.Slug] = track
	}
	return catalog, nil
}

// Search 按关键字搜索歌曲
func (c *Client) Search(ctx context.Context, query string) ([]*model.TrackRecord, error) {
	endpoint := fmt.Sprintf("%s/api/search?q=%s", c.baseURL, url.QueryEscape(query))

	var tracks []*model.TrackRecord
	if err := c.getJSON(ctx, endpoint, &tracks); err != nil {
		return nil, fmt.Errorf("搜索失败 (query: %s): %w", query, err)
	}
	return tracks, nil
}
