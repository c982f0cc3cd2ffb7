package discovery

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"rabbithole/logger"
	"rabbithole/model"
)

// Catalog is the slice of the catalog provider the state machine needs.
// Lookups are best-effort: missing data degrades to "nothing available".
type Catalog interface {
	HasSong(ctx context.Context, slug string) bool
	SongTitle(ctx context.Context, slug string) string
	Connections(ctx context.Context, musician string) []model.MusicianConnection
}

// Store persists the durable part of a discovery session. Absence or
// corruption of stored state must fail soft.
type Store interface {
	Load(ctx context.Context) (*model.PersistedSession, error)
	Save(ctx context.Context, s *model.PersistedSession) error
}

// EventType classifies observer notifications.
type EventType string

const (
	EventFollow      EventType = "follow"
	EventNextSong    EventType = "next_song"
	EventCurrentSong EventType = "current_song"
)

// Event is delivered to observers after a state mutation.
type Event struct {
	Type        EventType
	Musician    string
	NextSong    *model.SongRef
	CurrentSong string
}

// Observer receives discovery events.
type Observer func(Event)

// Machine is the discovery state machine: followed musician, played history
// and the single-slot next-song queue. All mutations go through its methods.
type Machine struct {
	mu        sync.Mutex
	state     model.DiscoverySession
	catalog   Catalog
	store     Store
	rng       *rand.Rand
	observers []Observer
}

// New creates a machine rehydrated from the store. The random source is
// injected so selection is reproducible under test.
func New(ctx context.Context, catalog Catalog, store Store, rng *rand.Rand) *Machine {
	m := &Machine{
		catalog: catalog,
		store:   store,
		rng:     rng,
		state: model.DiscoverySession{
			PlayedSongs: make(map[string]bool),
		},
	}
	m.rehydrate(ctx)
	return m
}

// Subscribe registers an observer for discovery events.
func (m *Machine) Subscribe(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// SetFollowingMusician records the new target and immediately re-rolls the
// next-song recommendation. Re-following the same musician re-rolls on
// purpose: there is no no-op guard.
func (m *Machine) SetFollowingMusician(ctx context.Context, name string) {
	m.mu.Lock()
	m.state.FollowingMusician = name
	m.state.FollowMode = name != ""
	m.persist(ctx)
	events := []Event{{Type: EventFollow, Musician: name}}
	events = append(events, m.queueByMusician(ctx, name))
	m.mu.Unlock()

	m.emit(events...)
}

// QueueNextSongByMusician picks an unplayed catalog song connected to the
// musician, uniformly at random among the survivors.
func (m *Machine) QueueNextSongByMusician(ctx context.Context, name string) {
	m.mu.Lock()
	event := m.queueByMusician(ctx, name)
	m.mu.Unlock()

	m.emit(event)
}

// queueByMusician mutates under the caller's lock and returns the event to
// emit once the lock is released.
func (m *Machine) queueByMusician(ctx context.Context, name string) Event {
	conns := m.catalog.Connections(ctx, name)

	seen := make(map[string]bool)
	var candidates []string
	for _, conn := range conns {
		slug := conn.Song
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		if m.state.PlayedSongs[slug] || slug == m.state.CurrentSongSlug {
			continue
		}
		if !m.catalog.HasSong(ctx, slug) {
			continue
		}
		candidates = append(candidates, slug)
	}

	if len(candidates) == 0 {
		// Sentinel: observers still hear about it, so "nothing available" is
		// distinguishable from "not yet computed".
		m.state.NextSong = &model.SongRef{ViaMusician: name}
		m.state.Queue = nil
		logger.Debug("no songs queued for musician", logger.String("musician", name))
		return Event{Type: EventNextSong, Musician: name, NextSong: m.state.NextSong}
	}

	slug := candidates[m.rng.Intn(len(candidates))]
	ref := &model.SongRef{
		SongSlug:    slug,
		SongTitle:   m.catalog.SongTitle(ctx, slug),
		ViaMusician: name,
	}
	m.state.NextSong = ref
	m.state.Queue = []string{slug}
	return Event{Type: EventNextSong, Musician: name, NextSong: ref}
}

// SetCurrentSong loads a new current song. The previous song, if any and if a
// recommendation justified the transition, is appended to history and marked
// played. Callers must invoke this before mutating any other current-song
// state so the history entry captures the song being left.
func (m *Machine) SetCurrentSong(ctx context.Context, slug string) {
	m.mu.Lock()
	prev := m.state.CurrentSongSlug
	if prev != "" && m.state.NextSong != nil {
		m.state.History = append(m.state.History, model.SongRef{
			SongSlug:    prev,
			SongTitle:   m.catalog.SongTitle(ctx, prev),
			ViaMusician: m.state.NextSong.ViaMusician,
		})
		m.state.PlayedSongs[prev] = true
	}
	m.state.CurrentSongSlug = slug
	m.persist(ctx)
	m.mu.Unlock()

	m.emit(Event{Type: EventCurrentSong, CurrentSong: slug})
}

// PopNextSong dequeues the pending recommendation, if any.
func (m *Machine) PopNextSong() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.state.Queue) == 0 {
		return "", false
	}
	slug := m.state.Queue[0]
	m.state.Queue = m.state.Queue[1:]
	return slug, true
}

// GoBack pops the most recent history entry, un-plays its song so it is
// selectable again, and returns it for the caller to reload. Returns nil when
// history is empty.
func (m *Machine) GoBack(ctx context.Context) *model.SongRef {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.state.History) == 0 {
		return nil
	}
	last := m.state.History[len(m.state.History)-1]
	m.state.History = m.state.History[:len(m.state.History)-1]
	delete(m.state.PlayedSongs, last.SongSlug)
	m.persist(ctx)
	return &last
}

// IsPlayable reports whether the slug is a legal discovery target: present in
// the catalog, not yet played, and not the current song.
func (m *Machine) IsPlayable(ctx context.Context, slug string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.PlayedSongs[slug] || slug == m.state.CurrentSongSlug {
		return false
	}
	return m.catalog.HasSong(ctx, slug)
}

// State returns a copy of the current session state.
func (m *Machine) State() model.DiscoverySession {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.state
	out.PlayedSongs = make(map[string]bool, len(m.state.PlayedSongs))
	for slug := range m.state.PlayedSongs {
		out.PlayedSongs[slug] = true
	}
	out.History = append([]model.SongRef(nil), m.state.History...)
	out.Queue = append([]string(nil), m.state.Queue...)
	return out
}

// persist saves the durable fields. History and queue are session-scoped and
// excluded. Store failures are logged, never raised.
func (m *Machine) persist(ctx context.Context) {
	if m.store == nil {
		return
	}

	played := make([]string, 0, len(m.state.PlayedSongs))
	for slug := range m.state.PlayedSongs {
		played = append(played, slug)
	}
	sort.Strings(played)

	err := m.store.Save(ctx, &model.PersistedSession{
		FollowingMusician: m.state.FollowingMusician,
		PlayedSongs:       played,
		CurrentSongSlug:   m.state.CurrentSongSlug,
		FollowMode:        m.state.FollowMode,
	})
	if err != nil {
		logger.Warn("failed to persist discovery session", logger.ErrorField(err))
	}
}

func (m *Machine) rehydrate(ctx context.Context) {
	if m.store == nil {
		return
	}

	saved, err := m.store.Load(ctx)
	if err != nil {
		logger.Warn("failed to load discovery session, starting empty", logger.ErrorField(err))
		return
	}
	if saved == nil {
		return
	}

	m.state.FollowingMusician = saved.FollowingMusician
	m.state.FollowMode = saved.FollowMode
	m.state.CurrentSongSlug = saved.CurrentSongSlug
	for _, slug := range saved.PlayedSongs {
		m.state.PlayedSongs[slug] = true
	}
}

func (m *Machine) emit(events ...Event) {
	m.mu.Lock()
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	for _, event := range events {
		for _, fn := range observers {
			fn(event)
		}
	}
}
