package player

import (
	"testing"

	"rabbithole/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionTrack(slug string) *model.TrackRecord {
	return &model.TrackRecord{
		Slug:     slug,
		Title:    "Test Track",
		Duration: 120,
		Ensemble: model.Ensemble{
			{Name: "Jess", Instruments: []string{"fiddle"}},
			{Name: "Mo", Instruments: []string{"banjo"}},
		},
		Timeline: model.Timeline{
			"0": {
				Part:      "intro",
				Musicians: map[string]string{"Jess": model.PresenceIn},
			},
			"10": {
				Part:      "verse",
				Solo:      "Jess",
				Musicians: map[string]string{"Mo": model.PresenceIn},
			},
		},
	}
}

func TestTickWithoutTrack(t *testing.T) {
	s := NewSession()

	snap := s.Tick(12)
	assert.Empty(t, snap.SongSlug)
	assert.Equal(t, -1, snap.PartIndex)
	assert.Nil(t, snap.Arrangement)
	assert.Nil(t, snap.Weights)
}

func TestTickSnapshot(t *testing.T) {
	s := NewSession()
	s.Load(sessionTrack("one"))

	snap := s.Tick(11)
	assert.Equal(t, "one", snap.SongSlug)
	assert.Equal(t, 11.0, snap.Position)
	assert.Equal(t, 1, snap.PartIndex)
	assert.Equal(t, []string{"intro", "verse"}, snap.SongParts)
	require.NotNil(t, snap.Arrangement)
	assert.Equal(t, "verse", snap.Arrangement.Part)
	assert.Equal(t, 1.0, snap.Weights["Jess"])

	// Mo's entrance at 10 fires exactly once.
	require.Len(t, snap.Moments, 1)
	assert.Equal(t, []string{"Mo"}, snap.Moments[0].Subjects)
	assert.Empty(t, s.Tick(11.2).Moments)
}

func TestTickBeforeFirstKey(t *testing.T) {
	track := sessionTrack("one")
	delete(track.Timeline, "0")

	s := NewSession()
	s.Load(track)

	snap := s.Tick(5)
	assert.Nil(t, snap.Arrangement)
	assert.Nil(t, snap.Weights)
	assert.Equal(t, -1, snap.PartIndex)
}

func TestLoadSwapsAtomically(t *testing.T) {
	s := NewSession()
	s.Load(sessionTrack("one"))

	// Consume the entrance moment on the first track.
	require.Len(t, s.Tick(10.5).Moments, 1)

	// Reloading resets pending moments: the same entrance fires again.
	s.Load(sessionTrack("two"))
	snap := s.Tick(10.5)
	assert.Equal(t, "two", snap.SongSlug)
	require.Len(t, snap.Moments, 1)
}

func TestPickupRampAnchorsToArrangementTime(t *testing.T) {
	track := sessionTrack("one")
	track.Timeline["10"] = &model.ArrangementSpec{Part: "verse", Pickup: "Mo"}

	s := NewSession()
	s.Load(track)

	// First tick lands mid-pickup, as after a seek. The ramp is measured from
	// the arrangement's own time at 10, not from the tick position.
	snap := s.Tick(13)
	require.NotNil(t, snap.Arrangement)
	assert.InDelta(t, 3.2, snap.Weights["Mo"], 1e-9)
}

func TestUnload(t *testing.T) {
	s := NewSession()
	s.Load(sessionTrack("one"))
	require.NotNil(t, s.Current())

	s.Unload()
	assert.Nil(t, s.Current())
	assert.Equal(t, -1, s.Tick(5).PartIndex)
}
