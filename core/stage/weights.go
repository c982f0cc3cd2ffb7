package stage

import (
	"rabbithole/model"
)

// pickupWindow is the window, in seconds, over which a pickup musician ramps
// from weight 5 down to weight 2.
const pickupWindow = 5.0

// maxRecent bounds the recently-featured list.
const maxRecent = 3

// Weigher computes per-musician display priority: lower weight sorts first.
// Weights feed rendering order only, never playback logic.
type Weigher struct {
	order        []string
	base         map[string]float64
	recent       []string
	lastFeatured string
	pickupSince  map[string]float64
	inPickup     map[string]bool
}

// NewWeigher assigns base weights 100, 110, 120, … in ensemble order.
func NewWeigher(ensemble model.Ensemble) *Weigher {
	w := &Weigher{
		base:        make(map[string]float64, len(ensemble)),
		pickupSince: make(map[string]float64),
		inPickup:    make(map[string]bool),
	}
	for i, member := range ensemble {
		w.order = append(w.order, member.Name)
		w.base[member.Name] = float64(100 + 10*i)
	}
	return w
}

// Observe advances the weigher's state for the current arrangement.
// entryTime is the arrangement's own timeline key, not the polling tick, so a
// seek landing mid-pickup keeps the ramp anchored to where the pickup was
// declared. Call once per tick before querying weights.
func (w *Weigher) Observe(entryTime float64, arr *model.ResolvedArrangement) {
	if arr == nil {
		return
	}

	featured := featuredOf(arr)
	if featured != w.lastFeatured {
		if w.lastFeatured != "" {
			w.pushRecent(w.lastFeatured)
		}
		w.lastFeatured = featured
	}

	// Stamp musicians entering a pickup so the ramp is measured from the most
	// recent arrangement where they became a pickup entry.
	now := make(map[string]bool)
	if arr.Pickup != "" {
		now[arr.Pickup] = true
	}
	for name, scene := range arr.Feature {
		if scene == model.ScenePickup {
			now[name] = true
		}
	}
	for name := range now {
		if !w.inPickup[name] {
			w.pickupSince[name] = entryTime
		}
	}
	w.inPickup = now
}

// WeightOf returns the display weight for one musician at time t under the
// given arrangement.
func (w *Weigher) WeightOf(name string, t float64, arr *model.ResolvedArrangement) float64 {
	if arr != nil {
		if arr.FeaturedName() == name {
			return 1
		}

		scene, featured := arr.Feature[name]
		if arr.Pickup == name && !featured {
			scene, featured = model.ScenePickup, true
		}
		if featured {
			switch scene {
			case model.SceneLead:
				return 1
			case model.ScenePickup:
				return w.pickupWeight(name, t)
			case model.SceneCooldown:
				return 5
			case model.SceneHarmony:
				return 7
			case model.SceneRhythm:
				return 8
			default:
				return 6
			}
		}
	}

	for i, recent := range w.recent {
		if recent == name {
			return float64(10 + i)
		}
	}

	base, ok := w.base[name]
	if !ok {
		base = float64(100 + 10*len(w.order))
	}
	return base + 5*float64(len(w.recent))
}

// Weights evaluates every ensemble musician at once.
func (w *Weigher) Weights(t float64, arr *model.ResolvedArrangement) map[string]float64 {
	out := make(map[string]float64, len(w.order))
	for _, name := range w.order {
		out[name] = w.WeightOf(name, t, arr)
	}
	return out
}

// Recent returns the recently-featured list, most recent first.
func (w *Weigher) Recent() []string {
	return w.recent
}

// pickupWeight interpolates linearly from 5 down to 2 across the pickup
// window, clamped at both ends.
func (w *Weigher) pickupWeight(name string, t float64) float64 {
	since, ok := w.pickupSince[name]
	if !ok {
		since = t
	}
	frac := (t - since) / pickupWindow
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return 5 - 3*frac
}

func (w *Weigher) pushRecent(name string) {
	list := make([]string, 0, maxRecent)
	list = append(list, name)
	for _, n := range w.recent {
		if n == name {
			continue
		}
		list = append(list, n)
		if len(list) == maxRecent {
			break
		}
	}
	w.recent = list
}

// featuredOf resolves the arrangement's featured target: the solo/soloist
// field, falling back to a lead feature scene.
func featuredOf(arr *model.ResolvedArrangement) string {
	if name := arr.FeaturedName(); name != "" {
		return name
	}
	for name, scene := range arr.Feature {
		if scene == model.SceneLead {
			return name
		}
	}
	return ""
}
