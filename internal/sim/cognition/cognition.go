// Package cognition is the boundary to the NPC cognition subsystem that owns
// moods, appraisal and dialogue. The engine only consumes its outputs.
package cognition

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/sim/logic/mathx"
)

// Engine is called synchronously from the session controller.
type Engine interface {
	// Mood is the member's current mood. The scoring side rounds it.
	Mood(member string) float64
	// Appraise applies the categorical outcome of events to member.
	Appraise(member string, events []string)
	// SelectEvent picks one of the candidate event ids for member.
	SelectEvent(member string, candidates []string) string
	// Dialogue returns the line member says about event.
	Dialogue(member, event string) string
}

const (
	MoodMin = -5.0
	MoodMax = 5.0
)

// DefaultDeltas are the mood shifts Static applies per event id.
func DefaultDeltas() map[string]float64 {
	return map[string]float64{
		"NotSelectedAngry":  -2,
		"NotSelectedSad":    -1,
		"ManagerComplaint":  -1,
		"PraiseFromCrew":    1,
		"RetirementRequest": 0,
	}
}

// Static is an in-process Engine with fixed per-event mood deltas and
// deterministic event picks. It is what the standalone server runs with.
// Once bound to a store, every mood change is written to the member's
// mood key so saves carry it.
type Static struct {
	store    belief.Store
	moods    map[string]float64
	deltas   map[string]float64
	lines    map[string]string
	appraise []Appraisal
}

// Appraisal records one Appraise call.
type Appraisal struct {
	Member string
	Events []string
}

func NewStatic(deltas map[string]float64) *Static {
	if deltas == nil {
		deltas = DefaultDeltas()
	}
	return &Static{
		moods:  map[string]float64{},
		deltas: deltas,
		lines: map[string]string{
			"NotSelectedAngry":  "{member} storms off the dock.",
			"NotSelectedSad":    "{member} quietly coils a rope.",
			"ManagerComplaint":  "{member} wants a word about how things are run.",
			"PraiseFromCrew":    "{member} gets a pat on the back from the crew.",
			"RetirementRequest": "{member} says it is time to hang up the oilskins.",
		},
	}
}

func (s *Static) Mood(member string) float64 { return s.moods[member] }

func (s *Static) SetMood(member string, v float64) {
	v = math.Max(MoodMin, math.Min(MoodMax, v))
	s.moods[member] = v
	if s.store != nil {
		s.store.Set(member, belief.KeyMood, strconv.FormatFloat(v, 'g', -1, 64))
	}
}

// Bind makes store the home of every mood. Moods already recorded in store
// replace the in-memory ones; unparsable values read as 0.
func (s *Static) Bind(store belief.Enumerable) {
	s.store = store
	s.moods = map[string]float64{}
	if store == nil {
		return
	}
	for _, name := range store.Characters() {
		raw, ok := store.Get(name, belief.KeyMood)
		if !ok {
			continue
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			s.moods[name] = math.Max(MoodMin, math.Min(MoodMax, v))
		}
	}
}

// Moods returns a copy of every non-zero mood.
func (s *Static) Moods() map[string]float64 {
	out := make(map[string]float64, len(s.moods))
	for k, v := range s.moods {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

func (s *Static) Appraise(member string, events []string) {
	s.appraise = append(s.appraise, Appraisal{Member: member, Events: append([]string(nil), events...)})
	v := s.moods[member]
	for _, ev := range events {
		v += s.deltas[ev]
	}
	s.SetMood(member, v)
}

// Appraisals returns every Appraise call in order.
func (s *Static) Appraisals() []Appraisal {
	return append([]Appraisal(nil), s.appraise...)
}

// SelectEvent hashes member and the sorted candidates, so the same inputs
// always pick the same event.
func (s *Static) SelectEvent(member string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	h := mathx.HashString(member + "|" + strings.Join(sorted, "|"))
	return sorted[mathx.AbsInt(h)%len(sorted)]
}

func (s *Static) Dialogue(member, event string) string {
	line, ok := s.lines[event]
	if !ok {
		line = "{member}: " + event
	}
	return strings.ReplaceAll(line, "{member}", member)
}
