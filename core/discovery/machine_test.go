package discovery

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"rabbithole/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	songs map[string]string // slug -> title
	conns map[string][]model.MusicianConnection
}

func (c *fakeCatalog) HasSong(_ context.Context, slug string) bool {
	_, ok := c.songs[slug]
	return ok
}

func (c *fakeCatalog) SongTitle(_ context.Context, slug string) string {
	return c.songs[slug]
}

func (c *fakeCatalog) Connections(_ context.Context, musician string) []model.MusicianConnection {
	return c.conns[musician]
}

type fakeStore struct {
	saved   *model.PersistedSession
	loadErr error
	saveErr error
	saves   int
}

func (s *fakeStore) Load(_ context.Context) (*model.PersistedSession, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.saved, nil
}

func (s *fakeStore) Save(_ context.Context, session *model.PersistedSession) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = session
	return nil
}

func connsTo(slugs ...string) []model.MusicianConnection {
	out := make([]model.MusicianConnection, len(slugs))
	for i, slug := range slugs {
		out[i] = model.MusicianConnection{Song: slug, Context: "plays on"}
	}
	return out
}

func threeSongCatalog() *fakeCatalog {
	return &fakeCatalog{
		songs: map[string]string{
			"a": "Alpha",
			"b": "Bravo",
			"c": "Charlie",
		},
		conns: map[string][]model.MusicianConnection{
			"Holly": connsTo("a", "b", "c"),
		},
	}
}

func newTestMachine(catalog Catalog, store Store) *Machine {
	return New(context.Background(), catalog, store, rand.New(rand.NewSource(1)))
}

func TestFollowQueuesOnlyUnplayedCatalogSongs(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{saved: &model.PersistedSession{
		PlayedSongs:     []string{"a"},
		CurrentSongSlug: "b",
	}}

	m := newTestMachine(threeSongCatalog(), store)
	m.SetFollowingMusician(ctx, "Holly")

	state := m.State()
	require.NotNil(t, state.NextSong)
	assert.Equal(t, "c", state.NextSong.SongSlug, "played and current songs are excluded")
	assert.Equal(t, "Charlie", state.NextSong.SongTitle)
	assert.Equal(t, "Holly", state.NextSong.ViaMusician)
	assert.Equal(t, []string{"c"}, state.Queue)
}

func TestFollowSkipsSongsMissingFromCatalog(t *testing.T) {
	ctx := context.Background()
	catalog := threeSongCatalog()
	catalog.conns["Holly"] = connsTo("ghost", "c")

	m := newTestMachine(catalog, nil)
	m.SetFollowingMusician(ctx, "Holly")

	state := m.State()
	require.NotNil(t, state.NextSong)
	assert.Equal(t, "c", state.NextSong.SongSlug)
}

func TestSentinelWhenNothingAvailable(t *testing.T) {
	ctx := context.Background()
	catalog := threeSongCatalog()
	catalog.conns["Nobody"] = nil

	m := newTestMachine(catalog, nil)

	var events []Event
	m.Subscribe(func(e Event) { events = append(events, e) })

	m.SetFollowingMusician(ctx, "Nobody")

	state := m.State()
	require.NotNil(t, state.NextSong, "empty pool still produces a sentinel")
	assert.Empty(t, state.NextSong.SongSlug)
	assert.Equal(t, "Nobody", state.NextSong.ViaMusician)
	assert.Empty(t, state.Queue)

	// Observers hear both the follow and the sentinel recommendation.
	require.Len(t, events, 2)
	assert.Equal(t, EventFollow, events[0].Type)
	assert.Equal(t, EventNextSong, events[1].Type)
	require.NotNil(t, events[1].NextSong)
	assert.Empty(t, events[1].NextSong.SongSlug)
}

func TestRefollowRerolls(t *testing.T) {
	ctx := context.Background()
	m := newTestMachine(threeSongCatalog(), nil)

	var rolls int
	m.Subscribe(func(e Event) {
		if e.Type == EventNextSong {
			rolls++
		}
	})

	m.SetFollowingMusician(ctx, "Holly")
	m.SetFollowingMusician(ctx, "Holly")

	assert.Equal(t, 2, rolls, "re-following the same musician re-rolls the pick")
}

func TestPlayAndGoBackSymmetry(t *testing.T) {
	ctx := context.Background()
	catalog := threeSongCatalog()
	catalog.conns["Holly"] = connsTo("a")

	m := newTestMachine(catalog, &fakeStore{})
	m.SetFollowingMusician(ctx, "Holly")

	slug, ok := m.PopNextSong()
	require.True(t, ok)
	require.Equal(t, "a", slug)
	m.SetCurrentSong(ctx, "a")
	assert.Empty(t, m.State().History, "first song has no predecessor to record")

	catalog.conns["Holly"] = connsTo("a", "b")
	m.QueueNextSongByMusician(ctx, "Holly")

	slug, ok = m.PopNextSong()
	require.True(t, ok)
	require.Equal(t, "b", slug, "the current song is never re-picked")
	m.SetCurrentSong(ctx, "b")

	state := m.State()
	require.Len(t, state.History, 1)
	assert.Equal(t, "a", state.History[0].SongSlug)
	assert.Equal(t, "Alpha", state.History[0].SongTitle)
	assert.Equal(t, "Holly", state.History[0].ViaMusician)
	assert.False(t, m.IsPlayable(ctx, "a"), "played songs are not playable")

	ref := m.GoBack(ctx)
	require.NotNil(t, ref)
	assert.Equal(t, "a", ref.SongSlug)
	assert.Empty(t, m.State().History)
	assert.True(t, m.IsPlayable(ctx, "a"), "going back restores playability")
}

func TestGoBackOnEmptyHistory(t *testing.T) {
	m := newTestMachine(threeSongCatalog(), nil)
	assert.Nil(t, m.GoBack(context.Background()))
}

func TestPersistedFields(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	catalog := threeSongCatalog()
	catalog.conns["Holly"] = connsTo("a")

	m := newTestMachine(catalog, store)
	m.SetFollowingMusician(ctx, "Holly")
	m.SetCurrentSong(ctx, "a")

	catalog.conns["Holly"] = connsTo("b")
	m.QueueNextSongByMusician(ctx, "Holly")
	m.SetCurrentSong(ctx, "b")

	require.NotNil(t, store.saved)
	assert.Equal(t, "Holly", store.saved.FollowingMusician)
	assert.True(t, store.saved.FollowMode)
	assert.Equal(t, "b", store.saved.CurrentSongSlug)
	assert.Equal(t, []string{"a"}, store.saved.PlayedSongs)
}

func TestStoreFailuresAreSoft(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		loadErr: errors.New("redis down"),
		saveErr: errors.New("redis down"),
	}

	m := newTestMachine(threeSongCatalog(), store)
	m.SetFollowingMusician(ctx, "Holly")

	state := m.State()
	assert.Equal(t, "Holly", state.FollowingMusician)
	require.NotNil(t, state.NextSong)
	assert.NotEmpty(t, state.NextSong.SongSlug)
	assert.Positive(t, store.saves, "persistence is attempted even when it fails")
}

func TestUnfollowClearsFollowMode(t *testing.T) {
	ctx := context.Background()
	m := newTestMachine(threeSongCatalog(), nil)

	m.SetFollowingMusician(ctx, "Holly")
	m.SetFollowingMusician(ctx, "")

	state := m.State()
	assert.False(t, state.FollowMode)
	assert.Empty(t, state.FollowingMusician)
}

func TestStateReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := newTestMachine(threeSongCatalog(), nil)
	m.SetFollowingMusician(ctx, "Holly")

	state := m.State()
	state.PlayedSongs["zzz"] = true
	state.Queue = append(state.Queue, "zzz")

	assert.False(t, m.State().PlayedSongs["zzz"])
	assert.NotContains(t, m.State().Queue, "zzz")
}
