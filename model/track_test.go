package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsemblePreservesKeyOrder(t *testing.T) {
	data := []byte(`{
		"Zoe": ["fiddle"],
		"Ada": ["banjo", "vocals"],
		"Mo": ["bass"]
	}`)

	var e Ensemble
	require.NoError(t, json.Unmarshal(data, &e))

	require.Len(t, e, 3)
	assert.Equal(t, "Zoe", e[0].Name)
	assert.Equal(t, "Ada", e[1].Name)
	assert.Equal(t, "Mo", e[2].Name)
	assert.Equal(t, []string{"banjo", "vocals"}, e[1].Instruments)

	// Round-trip keeps the order too.
	out, err := json.Marshal(e)
	require.NoError(t, err)
	var again Ensemble
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, e, again)
}

func TestArrangementSpecSplitsNumericKeys(t *testing.T) {
	data := []byte(`{
		"part": "chorus",
		"pickup": "Mo",
		"45": {"solo": "Jess"},
		"48.5": {"part": "chorus-fill"}
	}`)

	var spec ArrangementSpec
	require.NoError(t, json.Unmarshal(data, &spec))

	assert.Equal(t, "chorus", spec.Part)
	assert.Equal(t, "Mo", spec.Pickup)
	require.Len(t, spec.SubMoments, 2)
	assert.Equal(t, "Jess", spec.SubMoments["45"].Solo)
	assert.Equal(t, "chorus-fill", spec.SubMoments["48.5"].Part)
}

func TestArrangementSpecRoundTrip(t *testing.T) {
	spec := ArrangementSpec{
		Part: "verse",
		Solo: "Jess",
		SubMoments: map[string]*ArrangementSpec{
			"12": {Pickup: "Mo"},
		},
	}

	out, err := json.Marshal(spec)
	require.NoError(t, err)

	var again ArrangementSpec
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, spec.Part, again.Part)
	assert.Equal(t, spec.Solo, again.Solo)
	require.Contains(t, again.SubMoments, "12")
	assert.Equal(t, "Mo", again.SubMoments["12"].Pickup)
}

func TestFeaturedName(t *testing.T) {
	assert.Equal(t, "Jess", (&ArrangementSpec{Solo: "Jess", Soloist: "Mo"}).FeaturedName())
	assert.Equal(t, "Mo", (&ArrangementSpec{Soloist: "Mo"}).FeaturedName())
	assert.Empty(t, (&ArrangementSpec{}).FeaturedName())
	assert.Empty(t, (*ArrangementSpec)(nil).FeaturedName())
}

func TestTimelineScanValue(t *testing.T) {
	tl := Timeline{
		"0":        {Part: "intro"},
		"section1": {Part: "chorus", Length: 45},
	}

	val, err := tl.Value()
	require.NoError(t, err)

	var scanned Timeline
	require.NoError(t, scanned.Scan(val))
	require.Contains(t, scanned, "section1")
	assert.Equal(t, 45.0, scanned["section1"].Length)
}
