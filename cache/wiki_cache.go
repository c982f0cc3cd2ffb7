package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rabbithole/model"

	"github.com/go-redis/redis/v8"
)

// WikiCache caches wiki query results so the per-session discovery loop does
// not hammer the wiki API.
type WikiCache struct {
	ttl time.Duration
}

// NewWikiCache 创建wiki结果缓存
func NewWikiCache(ttl time.Duration) *WikiCache {
	return &WikiCache{ttl: ttl}
}

func songKey(slug string) string {
	return fmt.Sprintf("rabbithole:wiki:song:%s", slug)
}

func connectionsKey(musician string) string {
	return fmt.Sprintf("rabbithole:wiki:connections:%s", musician)
}

// GetSong 读取缓存的歌曲记录，未命中返回 (nil, nil)
func (c *WikiCache) GetSong(ctx context.Context, slug string) (*model.TrackRecord, error) {
	if RedisClient == nil {
		return nil, nil
	}

	data, err := RedisClient.Get(ctx, songKey(slug)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached song: %w", err)
	}

	var track model.TrackRecord
	if err := json.Unmarshal([]byte(data), &track); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached song: %w", err)
	}
	return &track, nil
}

// SetSong 写入歌曲记录缓存
func (c *WikiCache) SetSong(ctx context.Context, track *model.TrackRecord) error {
	if RedisClient == nil {
		return nil
	}

	data, err := json.Marshal(track)
	if err != nil {
		return fmt.Errorf("failed to marshal song: %w", err)
	}
	return RedisClient.Set(ctx, songKey(track.Slug), data, c.ttl).Err()
}

// GetConnections 读取缓存的音乐人连接，未命中返回 (nil, false)
func (c *WikiCache) GetConnections(ctx context.Context, musician string) ([]model.MusicianConnection, bool) {
	if RedisClient == nil {
		return nil, false
	}

	data, err := RedisClient.Get(ctx, connectionsKey(musician)).Result()
	if err != nil {
		return nil, false
	}

	var conns []model.MusicianConnection
	if err := json.Unmarshal([]byte(data), &conns); err != nil {
		return nil, false
	}
	return conns, true
}

// SetConnections 写入音乐人连接缓存
func (c *WikiCache) SetConnections(ctx context.Context, musician string, conns []model.MusicianConnection) error {
	if RedisClient == nil {
		return nil
	}

	data, err := json.Marshal(conns)
	if err != nil {
		return fmt.Errorf("failed to marshal connections: %w", err)
	}
	return RedisClient.Set(ctx, connectionsKey(musician), data, c.ttl).Err()
}
