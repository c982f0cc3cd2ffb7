package stage

import (
	"testing"

	"rabbithole/core/timeline"
	"rabbithole/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func momentsTrack() *model.TrackRecord {
	return &model.TrackRecord{
		Slug: "entrances",
		Timeline: model.Timeline{
			"0": {Musicians: map[string]string{
				"Jess": model.PresenceIn,
				"Mo":   model.PresenceIn,
			}},
			"50.5": {Musicians: map[string]string{"Mo": model.PresenceOut}},
			"80":   {Musicians: map[string]string{model.BandKey: model.PresenceOut}},
			"90":   {Musicians: map[string]string{"Mo": model.PresenceOut}},
		},
	}
}

func TestDispatcherCollectsChangesOnly(t *testing.T) {
	d := NewDispatcher(timeline.Resolve(momentsTrack()))

	// The t=0 baseline never fires, and the repeat at 90 is not a change.
	assert.Equal(t, 2, d.PendingCount())
}

func TestDueMomentFiresOnce(t *testing.T) {
	d := NewDispatcher(timeline.Resolve(momentsTrack()))

	assert.Empty(t, d.Poll(50.0), "not due yet")

	due := d.Poll(51.0)
	require.Len(t, due, 1)
	assert.Equal(t, 50.5, due[0].Time)
	assert.Equal(t, []string{"Mo"}, due[0].Subjects)
	assert.False(t, due[0].Band)

	assert.Empty(t, d.Poll(51.2), "a fired moment never fires again")
	assert.Equal(t, 1, d.PendingCount())
}

func TestMissedMomentsDropWithoutFiring(t *testing.T) {
	d := NewDispatcher(timeline.Resolve(momentsTrack()))

	// Seeking straight past the window discards the moment silently.
	assert.Empty(t, d.Poll(60))
	assert.Equal(t, 1, d.PendingCount(), "only the band moment at 80 survives")
}

func TestBandMoment(t *testing.T) {
	d := NewDispatcher(timeline.Resolve(momentsTrack()))

	d.Poll(51)
	due := d.Poll(80.5)
	require.Len(t, due, 1)
	assert.True(t, due[0].Band)
	assert.Empty(t, due[0].Subjects)
}
