package timeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"rabbithole/logger"
	"rabbithole/model"
)

// SectionCap is the hard ceiling on synthesized sections. Tracks declaring
// more sections than this resolve only the first SectionCap; the overflow is
// logged, never silently dropped.
const SectionCap = 20

// Entry is one resolved point on the timeline.
type Entry struct {
	Time        float64                    `json:"time"`
	Arrangement *model.ResolvedArrangement `json:"arrangement"`
}

type partMark struct {
	Time float64
	Part string
}

// Timeline is the resolved arrangement lookup for a single track. It is built
// once per track load and is immutable afterwards, so every query is
// deterministic and time-independent.
type Timeline struct {
	track   *model.TrackRecord
	entries []Entry
	parts   []partMark
}

// Resolve converts a track's declarative timeline into the resolved mapping.
func Resolve(track *model.TrackRecord) *Timeline {
	resolved := make(map[float64]*model.ResolvedArrangement)

	if track.StandardSectionLength <= 0 {
		// No section synthesis: the raw timeline is the resolved mapping.
		for key, spec := range track.Timeline {
			t, err := strconv.ParseFloat(key, 64)
			if err != nil {
				logger.Warn("skipping non-numeric timeline key on sectionless track",
					logger.String("track", track.Slug),
					logger.String("key", key))
				continue
			}
			resolved[t] = &model.ResolvedArrangement{ArrangementSpec: withoutSubMoments(spec)}
		}
		return build(track, resolved)
	}

	// Explicit entries are copied verbatim at their literal time.
	maxExplicit := 0.0
	for key, spec := range track.Timeline {
		if strings.HasPrefix(key, "section") {
			continue
		}
		t, err := strconv.ParseFloat(key, 64)
		if err != nil {
			logger.Warn("skipping unparseable timeline key",
				logger.String("track", track.Slug),
				logger.String("key", key))
			continue
		}
		resolved[t] = &model.ResolvedArrangement{ArrangementSpec: withoutSubMoments(spec)}
		if t > maxExplicit {
			maxExplicit = t
		}
	}

	if n := highestSectionIndex(track.Timeline); n > SectionCap {
		logger.Warn("timeline exceeds section cap, resolving first sections only",
			logger.String("track", track.Slug),
			logger.Int("declared", n),
			logger.Int("cap", SectionCap))
	}

	// Sections accumulate duration in index order. A section's start time is
	// the cursor AFTER consuming its own length.
	cursor := maxExplicit
	for i := 1; i <= SectionCap; i++ {
		spec, ok := track.Timeline[fmt.Sprintf("section%d", i)]
		if !ok {
			continue
		}

		length := track.StandardSectionLength
		if spec.Length > 0 {
			length = spec.Length
		}
		cursor += length
		start := cursor

		base := withoutSubMoments(spec)
		resolved[start] = &model.ResolvedArrangement{ArrangementSpec: base, SectionStart: true}

		// Numeric sub-keys are absolute times, not offsets. Sub-moment fields
		// override same-named base fields.
		for subKey, subSpec := range spec.SubMoments {
			subTime, err := strconv.ParseFloat(subKey, 64)
			if err != nil {
				logger.Warn("skipping unparseable sub-moment key",
					logger.String("track", track.Slug),
					logger.String("key", subKey))
				continue
			}
			entry := &model.ResolvedArrangement{
				ArrangementSpec: merge(base, subSpec),
				SubMoment:       true,
			}
			if subTime == start {
				entry.SectionStart = true
			}
			resolved[subTime] = entry
		}
	}

	return build(track, resolved)
}

func build(track *model.TrackRecord, resolved map[float64]*model.ResolvedArrangement) *Timeline {
	entries := make([]Entry, 0, len(resolved))
	for t, arr := range resolved {
		entries = append(entries, Entry{Time: t, Arrangement: arr})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Time < entries[j].Time })

	var parts []partMark
	for _, e := range entries {
		if e.Arrangement.Part == "" {
			continue
		}
		// Part labels attached only to sub-moments are not song parts.
		if e.Arrangement.SubMoment && !e.Arrangement.SectionStart {
			continue
		}
		parts = append(parts, partMark{Time: e.Time, Part: e.Arrangement.Part})
	}

	return &Timeline{track: track, entries: entries, parts: parts}
}

// merge overlays sub-moment fields onto the section base. Shallow, total over
// both records: a set field on the override wins, everything else inherits.
func merge(base model.ArrangementSpec, over *model.ArrangementSpec) model.ArrangementSpec {
	out := base
	if over == nil {
		return out
	}
	if over.Part != "" {
		out.Part = over.Part
	}
	if over.Solo != "" {
		out.Solo = over.Solo
	}
	if over.Soloist != "" {
		out.Soloist = over.Soloist
	}
	if over.Pickup != "" {
		out.Pickup = over.Pickup
	}
	if over.Feature != nil {
		out.Feature = over.Feature
	}
	if over.Musicians != nil {
		out.Musicians = over.Musicians
	}
	if over.InstrumentChanges != nil {
		out.InstrumentChanges = over.InstrumentChanges
	}
	if over.Flourish != nil {
		out.Flourish = over.Flourish
	}
	if over.Spotlight != nil {
		out.Spotlight = over.Spotlight
	}
	if over.BandFlash != nil {
		out.BandFlash = over.BandFlash
	}
	if over.Length > 0 {
		out.Length = over.Length
	}
	return out
}

func withoutSubMoments(spec *model.ArrangementSpec) model.ArrangementSpec {
	out := *spec
	out.SubMoments = nil
	return out
}

func highestSectionIndex(tl model.Timeline) int {
	highest := 0
	for key := range tl {
		rest, ok := strings.CutPrefix(key, "section")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

// Track returns the track this timeline was resolved from.
func (tl *Timeline) Track() *model.TrackRecord {
	return tl.track
}

// Entries returns the resolved entries in ascending time order.
func (tl *Timeline) Entries() []Entry {
	return tl.entries
}

// ArrangementAt returns the arrangement in effect at time t: the entry with
// the greatest key not after t. Before the first key there is no active
// arrangement and nil is returned.
func (tl *Timeline) ArrangementAt(t float64) *model.ResolvedArrangement {
	idx := sort.Search(len(tl.entries), func(i int) bool {
		return tl.entries[i].Time > t
	})
	if idx == 0 {
		return nil
	}
	return tl.entries[idx-1].Arrangement
}

// EntryTimeAt returns the key time of the entry in effect at t, or -1 when no
// arrangement is active yet.
func (tl *Timeline) EntryTimeAt(t float64) float64 {
	idx := sort.Search(len(tl.entries), func(i int) bool {
		return tl.entries[i].Time > t
	})
	if idx == 0 {
		return -1
	}
	return tl.entries[idx-1].Time
}

// SongParts returns the ordered part labels of the track, skipping parts that
// belong only to sub-moments.
func (tl *Timeline) SongParts() []string {
	parts := make([]string, len(tl.parts))
	for i, p := range tl.parts {
		parts[i] = p.Part
	}
	return parts
}

// CurrentPartIndex returns the index of the last song part started at or
// before t, or -1 if none has started yet.
func (tl *Timeline) CurrentPartIndex(t float64) int {
	idx := -1
	for i, p := range tl.parts {
		if p.Time > t {
			break
		}
		idx = i
	}
	return idx
}
