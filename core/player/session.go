package player

import (
	"sync"

	"rabbithole/core/stage"
	"rabbithole/core/timeline"
	"rabbithole/logger"
	"rabbithole/model"
)

// Snapshot is the per-tick projection of playback state consumed by the
// rendering layer. The core holds no UI handles; rendering reconciles against
// these immutable snapshots.
type Snapshot struct {
	SongSlug    string                     `json:"songSlug"`
	Position    float64                    `json:"position"`
	Arrangement *model.ResolvedArrangement `json:"arrangement,omitempty"`
	PartIndex   int                        `json:"partIndex"`
	SongParts   []string                   `json:"songParts,omitempty"`
	Weights     map[string]float64         `json:"weights,omitempty"`
	Moments     []stage.Moment             `json:"moments,omitempty"`
}

// loadedTrack binds the resolver cache, the weigher and the pending moments
// to one track so switching tracks is a single swap, never a partial
// mutation of stale caches.
type loadedTrack struct {
	track    *model.TrackRecord
	timeline *timeline.Timeline
	weigher  *stage.Weigher
	moments  *stage.Dispatcher
}

// Session drives one player's playback world model.
type Session struct {
	mu  sync.Mutex
	cur *loadedTrack
}

// NewSession returns an empty session with no track loaded.
func NewSession() *Session {
	return &Session{}
}

// Load resolves the track's timeline and swaps it in atomically, discarding
// the previous track's caches and pending moments.
func (s *Session) Load(track *model.TrackRecord) {
	tl := timeline.Resolve(track)
	loaded := &loadedTrack{
		track:    track,
		timeline: tl,
		weigher:  stage.NewWeigher(track.Ensemble),
		moments:  stage.NewDispatcher(tl),
	}

	s.mu.Lock()
	s.cur = loaded
	s.mu.Unlock()

	logger.Info("track loaded",
		logger.String("slug", track.Slug),
		logger.Int("timelineEntries", len(tl.Entries())),
		logger.Float64("duration", track.Duration))
}

// Unload clears the current track.
func (s *Session) Unload() {
	s.mu.Lock()
	s.cur = nil
	s.mu.Unlock()
}

// Current returns the loaded track, or nil.
func (s *Session) Current() *model.TrackRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return nil
	}
	return s.cur.track
}

// SongParts returns the loaded track's song part sequence.
func (s *Session) SongParts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return nil
	}
	return s.cur.timeline.SongParts()
}

// Tick computes the snapshot for the given playback position. Before the
// first arrangement key there is no active arrangement and the snapshot
// carries no stage data.
func (s *Session) Tick(position float64) Snapshot {
	s.mu.Lock()
	cur := s.cur
	s.mu.Unlock()

	if cur == nil {
		return Snapshot{Position: position, PartIndex: -1}
	}

	snap := Snapshot{
		SongSlug:  cur.track.Slug,
		Position:  position,
		PartIndex: cur.timeline.CurrentPartIndex(position),
		SongParts: cur.timeline.SongParts(),
	}

	arr := cur.timeline.ArrangementAt(position)
	if arr == nil {
		return snap
	}

	cur.weigher.Observe(cur.timeline.EntryTimeAt(position), arr)
	snap.Arrangement = arr
	snap.Weights = cur.weigher.Weights(position, arr)
	snap.Moments = cur.moments.Poll(position)
	return snap
}
