package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rabbithole/model"

	"github.com/go-redis/redis/v8"
)

// 会话数据保留30天，活跃用户每次变更都会续期
const sessionTTL = 30 * 24 * time.Hour

// SessionStore persists one listener's discovery session under a namespaced
// key. It implements discovery.Store.
type SessionStore struct {
	userID int64
}

// NewSessionStore 创建指定用户的会话存储
func NewSessionStore(userID int64) *SessionStore {
	return &SessionStore{userID: userID}
}

// GetSessionKey 根据用户ID生成会话的Redis键
func GetSessionKey(userID int64) string {
	return fmt.Sprintf("rabbithole:session:%d", userID)
}

// Load reads the persisted session. A missing key yields (nil, nil);
// corrupted data yields an error the caller treats as empty state.
func (s *SessionStore) Load(ctx context.Context) (*model.PersistedSession, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := RedisClient.Get(ctx, GetSessionKey(s.userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session model.PersistedSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Save serializes the session state.
func (s *SessionStore) Save(ctx context.Context, session *model.PersistedSession) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = RedisClient.Set(ctx, GetSessionKey(s.userID), data, sessionTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
