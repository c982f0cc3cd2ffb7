package server

import (
	"net/http"
	"time"

	"rabbithole/core/auth"
	"rabbithole/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// stageCommand is a control message from the playback client. The client owns
// the audio clock; load/play/pause/seek keep the server's model in step.
type stageCommand struct {
	Action   string  `json:"action"` // load | play | pause | seek
	Slug     string  `json:"slug,omitempty"`
	Position float64 `json:"position,omitempty"`
}

// StageFeedHandler streams stage snapshots over a websocket. Each tick the
// current arrangement, musician weights and due moments are pushed; the
// client reconciles its rendering against them.
func (h *APIHandler) StageFeedHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	claims, err := auth.ParseToken(tokenString)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	feedID := uuid.NewString()
	s := h.session(r.Context(), claims.UserID)
	logger.Info("stage feed connected",
		logger.String("feedId", feedID),
		logger.Int64("userId", claims.UserID))
	defer logger.Info("stage feed closed", logger.String("feedId", feedID))

	// quit is closed by the feed loop so a reader blocked on the command send
	// can still exit after the writer side gives up.
	commands := make(chan stageCommand)
	readerDone := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)

	go func() {
		defer close(readerDone)
		readCommands(conn, commands, quit)
	}()

	ticker := time.NewTicker(h.cfg.TickInterval)
	defer ticker.Stop()

	var (
		playing  bool
		position float64
		lastTick = time.Now()
	)

	for {
		select {
		case cmd := <-commands:
			switch cmd.Action {
			case "load":
				track := h.provider.GetSong(r.Context(), cmd.Slug)
				if track == nil {
					logger.Warn("stage load for unknown song", logger.String("slug", cmd.Slug))
					continue
				}
				s.machine.SetCurrentSong(r.Context(), cmd.Slug)
				s.player.Load(track)
				position = 0
				playing = false
			case "play":
				playing = true
				lastTick = time.Now()
			case "pause":
				playing = false
			case "seek":
				position = cmd.Position
			}

		case now := <-ticker.C:
			if playing {
				position += now.Sub(lastTick).Seconds()
			}
			lastTick = now

			snap := s.player.Tick(position)
			if err := conn.WriteJSON(snap); err != nil {
				logger.Debug("stage feed write failed", logger.ErrorField(err))
				return
			}

		case <-readerDone:
			return
		}
	}
}

// commandReader is the slice of the websocket connection the command pump
// needs.
type commandReader interface {
	ReadJSON(v interface{}) error
}

// readCommands pumps client commands into the channel until the connection
// errors or quit is closed. quit belongs to the receiving side, so the pump
// never deadlocks on an abandoned send.
func readCommands(conn commandReader, commands chan<- stageCommand, quit <-chan struct{}) {
	for {
		var cmd stageCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		select {
		case commands <- cmd:
		case <-quit:
			return
		}
	}
}
