package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"rabbithole/cache"
	"rabbithole/config"
	"rabbithole/core/catalog"
	"rabbithole/core/discovery"
	"rabbithole/core/player"
	"rabbithole/logger"
	"rabbithole/repository"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	songRepo repository.SongRepository
	userRepo repository.UserRepository
	provider *catalog.Provider
	cfg      *config.Config

	mu       sync.Mutex
	sessions map[int64]*userSession
}

// userSession binds one listener's discovery machine to their playback
// session. Both live for the lifetime of the process; the durable part of the
// machine is in redis.
type userSession struct {
	machine *discovery.Machine
	player  *player.Session
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	songRepo repository.SongRepository,
	userRepo repository.UserRepository,
	provider *catalog.Provider,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		songRepo: songRepo,
		userRepo: userRepo,
		provider: provider,
		cfg:      cfg,
		sessions: make(map[int64]*userSession),
	}
}

// session returns the listener's session, creating and rehydrating it on
// first use.
func (h *APIHandler) session(ctx context.Context, userID int64) *userSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.sessions[userID]; ok {
		return s
	}

	store := cache.NewSessionStore(userID)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := &userSession{
		machine: discovery.New(ctx, h.provider, store, rng),
		player:  player.NewSession(),
	}
	h.sessions[userID] = s
	logger.Info("discovery session created", logger.Int64("userId", userID))
	return s
}

// writeJSON 以统一格式写出JSON响应
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("编码响应失败", logger.ErrorField(err))
	}
}

// writeError 写出错误响应
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
