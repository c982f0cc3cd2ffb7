package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Feature scene tags a musician can carry in an arrangement.
const (
	SceneLead     = "lead"
	ScenePickup   = "pickup"
	SceneCooldown = "cooldown"
	SceneHarmony  = "harmony"
	SceneRhythm   = "rhythm"
)

// Presence states for the musicians map. BandKey is the shortcut key that
// flips the whole ensemble at once.
const (
	PresenceIn  = "in"
	PresenceOut = "out"
	BandKey     = "band"
)

// EffectSpec describes a transient visual effect attached to an arrangement.
type EffectSpec struct {
	Duration float64 `json:"duration,omitempty"`
	Color    string  `json:"color,omitempty"`
	Target   string  `json:"target,omitempty"`
}

// ArrangementSpec is the value found at one timeline key. All fields are
// optional. Numeric keys nested inside a section entry are absolute sub-moment
// times and are collected into SubMoments.
type ArrangementSpec struct {
	Part              string                      `json:"part,omitempty"`
	Solo              string                      `json:"solo,omitempty"`
	Soloist           string                      `json:"soloist,omitempty"`
	Pickup            string                      `json:"pickup,omitempty"`
	Feature           map[string]string           `json:"feature,omitempty"`
	Musicians         map[string]string           `json:"musicians,omitempty"`
	InstrumentChanges map[string]string           `json:"instrumentChanges,omitempty"`
	Flourish          *EffectSpec                 `json:"flourish,omitempty"`
	Spotlight         *EffectSpec                 `json:"spotlight,omitempty"`
	BandFlash         *EffectSpec                 `json:"bandFlash,omitempty"`
	Length            float64                     `json:"length,omitempty"`
	SubMoments        map[string]*ArrangementSpec `json:"-"`
}

// arrangementSpecAlias avoids recursing into the custom codec.
type arrangementSpecAlias ArrangementSpec

// UnmarshalJSON splits numeric keys off into SubMoments and decodes the rest
// as regular fields.
func (a *ArrangementSpec) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	sub := make(map[string]*ArrangementSpec)
	plain := make(map[string]json.RawMessage, len(raw))
	for key, val := range raw {
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			var s ArrangementSpec
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("sub-moment %q: %w", key, err)
			}
			sub[key] = &s
			continue
		}
		plain[key] = val
	}

	merged, err := json.Marshal(plain)
	if err != nil {
		return err
	}
	var alias arrangementSpecAlias
	if err := json.Unmarshal(merged, &alias); err != nil {
		return err
	}
	*a = ArrangementSpec(alias)
	if len(sub) > 0 {
		a.SubMoments = sub
	}
	return nil
}

// MarshalJSON folds SubMoments back into the object as numeric keys.
func (a ArrangementSpec) MarshalJSON() ([]byte, error) {
	alias := arrangementSpecAlias(a)
	base, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(a.SubMoments) == 0 {
		return base, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(base, &obj); err != nil {
		return nil, err
	}
	for key, spec := range a.SubMoments {
		encoded, err := json.Marshal(spec)
		if err != nil {
			return nil, err
		}
		obj[key] = encoded
	}
	return json.Marshal(obj)
}

// FeaturedName returns the featured musician named by the solo/soloist fields.
func (a *ArrangementSpec) FeaturedName() string {
	if a == nil {
		return ""
	}
	if a.Solo != "" {
		return a.Solo
	}
	return a.Soloist
}

// ResolvedArrangement is an ArrangementSpec annotated with its origin in the
// resolved timeline.
type ResolvedArrangement struct {
	ArrangementSpec
	SectionStart bool `json:"sectionStart,omitempty"`
	SubMoment    bool `json:"subMoment,omitempty"`
}

// Timeline maps a raw key (numeric string or sectionN) to its spec.
type Timeline map[string]*ArrangementSpec

// Value 实现 driver.Valuer，时间轴以JSON列存储
func (t Timeline) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Scan 实现 sql.Scanner
func (t *Timeline) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported timeline column type %T", value)
	}
	return json.Unmarshal(data, t)
}

// EnsembleMember is one musician and their instruments; the first instrument
// is the primary one.
type EnsembleMember struct {
	Name        string   `json:"name"`
	Instruments []string `json:"instruments"`
}

// Ensemble is the ordered set of musicians on a track. Order establishes the
// tie-break priority for default ranking, so JSON decoding preserves the key
// order of the source object.
type Ensemble []EnsembleMember

// UnmarshalJSON reads a musician→instruments object keeping key order.
func (e *Ensemble) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ensemble must be a JSON object")
	}

	out := Ensemble{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("ensemble key is not a string")
		}
		var instruments []string
		if err := dec.Decode(&instruments); err != nil {
			return fmt.Errorf("instruments for %q: %w", name, err)
		}
		out = append(out, EnsembleMember{Name: name, Instruments: instruments})
	}
	*e = out
	return nil
}

// MarshalJSON writes the ensemble back as an ordered object.
func (e Ensemble) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, member := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(member.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(member.Instruments)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Value 实现 driver.Valuer
func (e Ensemble) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

// Scan 实现 sql.Scanner
func (e *Ensemble) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported ensemble column type %T", value)
	}
	return json.Unmarshal(data, e)
}

// Member returns the ensemble entry for a musician, or nil.
func (e Ensemble) Member(name string) *EnsembleMember {
	for i := range e {
		if e[i].Name == name {
			return &e[i]
		}
	}
	return nil
}

// TrackRecord represents one song in the catalog, including its declarative
// timeline. Read-only to the playback core.
type TrackRecord struct {
	ID                    int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug                  string    `gorm:"uniqueIndex;size:191" json:"slug"`
	Title                 string    `json:"title"`
	Artist                string    `json:"artist"`
	Duration              float64   `json:"duration"`
	StandardSectionLength float64   `json:"standardSectionLength,omitempty"`
	Ensemble              Ensemble  `gorm:"type:json" json:"ensemble"`
	Timeline              Timeline  `gorm:"type:json" json:"timeline"`
	CoverArtPath          string    `json:"coverArtPath,omitempty"`
	AudioPath             string    `json:"audioPath,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (TrackRecord) TableName() string {
	return "songs"
}
