package stage

import (
	"testing"

	"rabbithole/model"

	"github.com/stretchr/testify/assert"
)

func quintet() model.Ensemble {
	return model.Ensemble{
		{Name: "Ada", Instruments: []string{"fiddle"}},
		{Name: "Ben", Instruments: []string{"banjo"}},
		{Name: "Cal", Instruments: []string{"guitar"}},
		{Name: "Dot", Instruments: []string{"bass"}},
		{Name: "Eve", Instruments: []string{"mandolin"}},
	}
}

func soloArr(name string) *model.ResolvedArrangement {
	return &model.ResolvedArrangement{ArrangementSpec: model.ArrangementSpec{Solo: name}}
}

func TestFeaturedMusicianWeighsOne(t *testing.T) {
	w := NewWeigher(quintet())
	arr := soloArr("Ada")
	w.Observe(0, arr)

	assert.Equal(t, 1.0, w.WeightOf("Ada", 0, arr))
	assert.Equal(t, 110.0, w.WeightOf("Ben", 0, arr), "unfeatured musicians keep their base weight")
}

func TestSceneWeights(t *testing.T) {
	w := NewWeigher(quintet())
	arr := &model.ResolvedArrangement{ArrangementSpec: model.ArrangementSpec{
		Feature: map[string]string{
			"Ada": model.SceneLead,
			"Ben": model.SceneCooldown,
			"Cal": model.SceneHarmony,
			"Dot": model.SceneRhythm,
			"Eve": "shimmer",
		},
	}}
	w.Observe(0, arr)

	assert.Equal(t, 1.0, w.WeightOf("Ada", 0, arr))
	assert.Equal(t, 5.0, w.WeightOf("Ben", 0, arr))
	assert.Equal(t, 7.0, w.WeightOf("Cal", 0, arr))
	assert.Equal(t, 8.0, w.WeightOf("Dot", 0, arr))
	assert.Equal(t, 6.0, w.WeightOf("Eve", 0, arr), "unknown scenes land between cooldown and harmony")
}

func TestPickupRampsDown(t *testing.T) {
	w := NewWeigher(quintet())
	arr := &model.ResolvedArrangement{ArrangementSpec: model.ArrangementSpec{Pickup: "Ben"}}

	w.Observe(10, arr)
	assert.Equal(t, 5.0, w.WeightOf("Ben", 10, arr))
	assert.InDelta(t, 3.5, w.WeightOf("Ben", 12.5, arr), 1e-9)
	assert.Equal(t, 2.0, w.WeightOf("Ben", 15, arr))
	assert.Equal(t, 2.0, w.WeightOf("Ben", 60, arr), "ramp clamps at the floor")
}

func TestPickupRampRestartsOnReentry(t *testing.T) {
	w := NewWeigher(quintet())
	pickup := &model.ResolvedArrangement{ArrangementSpec: model.ArrangementSpec{Pickup: "Ben"}}
	plain := &model.ResolvedArrangement{}

	w.Observe(0, pickup)
	w.Observe(20, plain)
	w.Observe(30, pickup)

	assert.Equal(t, 5.0, w.WeightOf("Ben", 30, pickup), "a fresh pickup entry restarts the ramp")
}

func TestRecencyOrdersRecentlyFeatured(t *testing.T) {
	w := NewWeigher(quintet())

	for i, name := range []string{"Ada", "Ben", "Cal", "Dot"} {
		w.Observe(float64(i*10), soloArr(name))
	}

	// Dot holds the spotlight; the three before her rank by recency.
	arr := soloArr("Dot")
	assert.Equal(t, []string{"Cal", "Ben", "Ada"}, w.Recent())
	assert.Equal(t, 10.0, w.WeightOf("Cal", 40, arr))
	assert.Equal(t, 11.0, w.WeightOf("Ben", 40, arr))
	assert.Equal(t, 12.0, w.WeightOf("Ada", 40, arr))

	// Everyone else is pushed down by the recency list length.
	assert.Equal(t, 140.0+15.0, w.WeightOf("Eve", 40, arr))
}

func TestRecencyListIsBounded(t *testing.T) {
	w := NewWeigher(quintet())

	for i, name := range []string{"Ada", "Ben", "Cal", "Dot", "Eve"} {
		w.Observe(float64(i*10), soloArr(name))
	}

	recent := w.Recent()
	assert.Len(t, recent, maxRecent)
	assert.Equal(t, []string{"Dot", "Cal", "Ben"}, recent)
}

func TestWeightsCoversWholeEnsemble(t *testing.T) {
	w := NewWeigher(quintet())
	arr := soloArr("Ada")
	w.Observe(0, arr)

	weights := w.Weights(0, arr)
	assert.Len(t, weights, 5)
	assert.Equal(t, 1.0, weights["Ada"])
}
