package wiki

import (
	"testing"

	"rabbithole/model"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMusician(t *testing.T) {
	cases := map[string]string{
		"Jess (fiddle)":      "Jess",
		"Jess":               "Jess",
		"Mo Harris (banjo) ": "Mo Harris",
		"  Ada  ":            "Ada",
		"Ben (lap steel)":    "Ben",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeMusician(in), "input %q", in)
	}
}

func TestMatchConnectionsExact(t *testing.T) {
	index := map[string][]model.MusicianConnection{
		"Jess Harper": {{Song: "a", Context: "fiddle on"}},
		"Jessica":     {{Song: "b", Context: "vocals on"}},
	}

	conns := MatchConnections(index, "Jess Harper")
	assert.Equal(t, "a", conns[0].Song, "exact match wins over prefix candidates")
}

func TestMatchConnectionsFirstWordFallback(t *testing.T) {
	index := map[string][]model.MusicianConnection{
		"Morgan Lee": {{Song: "x"}},
	}

	conns := MatchConnections(index, "Morgan")
	assert.Len(t, conns, 1)
	assert.Equal(t, "x", conns[0].Song)
}

func TestMatchConnectionsAmbiguousPrefixIsStable(t *testing.T) {
	index := map[string][]model.MusicianConnection{
		"Morgan Lee": {{Song: "lee"}},
		"Morgan Fay": {{Song: "fay"}},
	}

	// With two prefix candidates the lexicographically first key wins, every
	// time.
	for i := 0; i < 20; i++ {
		conns := MatchConnections(index, "Morgan")
		assert.Equal(t, "fay", conns[0].Song)
	}
}

func TestMatchConnectionsNoMatch(t *testing.T) {
	index := map[string][]model.MusicianConnection{
		"Morgan Lee": {{Song: "x"}},
	}

	assert.Nil(t, MatchConnections(index, "Zed"))
	assert.Nil(t, MatchConnections(index, ""))
	assert.Nil(t, MatchConnections(index, "morgan"), "matching is case-sensitive")
}
