package stage

import (
	"sort"
	"sync"

	"rabbithole/core/timeline"
	"rabbithole/logger"
	"rabbithole/model"
)

// momentTolerance is how far past its scheduled time a moment may still fire,
// in seconds. Anything older is a seek artifact and is dropped.
const momentTolerance = 1.0

// Moment is a one-shot entrance/exit event: either the whole band or a set of
// individual musicians changing in/out status.
type Moment struct {
	Time     float64  `json:"time"`
	Subjects []string `json:"subjects,omitempty"`
	Band     bool     `json:"band,omitempty"`
}

// Dispatcher fires each moment at most once near its scheduled time. Firing
// has no effect on the resolved timeline.
type Dispatcher struct {
	mu      sync.Mutex
	pending []Moment
}

// NewDispatcher collects the moment times of a resolved timeline: every entry
// at t > 0 where an individual musician's in/out status changes, or the band
// shortcut changes.
func NewDispatcher(tl *timeline.Timeline) *Dispatcher {
	status := make(map[string]string)
	bandStatus := ""

	var pending []Moment
	for _, entry := range tl.Entries() {
		arr := entry.Arrangement
		if len(arr.Musicians) == 0 {
			continue
		}

		var changed []string
		band := false
		for name, state := range arr.Musicians {
			if name == model.BandKey {
				if state != bandStatus {
					band = true
					bandStatus = state
				}
				continue
			}
			if status[name] != state {
				changed = append(changed, name)
				status[name] = state
			}
		}

		if entry.Time <= 0 {
			continue
		}
		if band || len(changed) > 0 {
			sort.Strings(changed)
			pending = append(pending, Moment{Time: entry.Time, Subjects: changed, Band: band})
		}
	}

	return &Dispatcher{pending: pending}
}

// Poll classifies every unconsumed moment against the current time T: future
// moments stay pending, due moments (within tolerance) fire and are removed,
// missed moments are dropped without firing so a seek never replays a burst
// of stale flashes.
func (d *Dispatcher) Poll(t float64) []Moment {
	d.mu.Lock()
	defer d.mu.Unlock()

	var due []Moment
	keep := d.pending[:0]
	for _, m := range d.pending {
		switch {
		case m.Time > t:
			keep = append(keep, m)
		case t-m.Time <= momentTolerance:
			due = append(due, m)
		default:
			logger.Debug("dropping missed moment",
				logger.Float64("moment", m.Time),
				logger.Float64("position", t))
		}
	}
	d.pending = keep
	return due
}

// PendingCount reports how many moments have not yet fired or expired.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
