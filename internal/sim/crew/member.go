package crew

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/sim/logic/mathx"
)

const (
	OpinionMin = -5
	OpinionMax = 5
)

// CrewMember carries the true skills and opinions used for scoring and the
// revealed projection the manager has paid to see. Mood is not stored here.
type CrewMember struct {
	Person

	skills   map[Skill]int
	revealed map[Skill]int

	opinions         map[string]int
	revealedOpinions map[string]int
	// Sessions since each opinion was revealed. Only revealed names have an entry.
	revealedAge map[string]int

	rest   int
	status string

	beliefs belief.Store
	boat    *Boat
}

// NewCrewMember builds a member and writes its full initial state to store.
// A nil store disables persistence.
func NewCrewMember(p Person, skills map[Skill]int, store belief.Store) *CrewMember {
	m := blankMember(p, store)
	for _, s := range AllSkills {
		m.skills[s] = skills[s]
	}
	m.persistAll()
	return m
}

func blankMember(p Person, store belief.Store) *CrewMember {
	return &CrewMember{
		Person:           p,
		skills:           make(map[Skill]int, len(AllSkills)),
		revealed:         make(map[Skill]int, len(AllSkills)),
		opinions:         map[string]int{},
		revealedOpinions: map[string]int{},
		revealedAge:      map[string]int{},
		status:           belief.StatusActive,
		beliefs:          store,
	}
}

// LoadCrewMember rebuilds a member from its persisted beliefs. Every skill must
// be present; opinions and revealed values are optional.
func LoadCrewMember(name string, store belief.Enumerable) (*CrewMember, error) {
	p := Person{Name: name, Gender: getString(store, name, belief.KeyGender)}
	age, err := getInt(store, name, belief.KeyAge)
	if err != nil {
		return nil, err
	}
	p.Age = age

	m := blankMember(p, store)
	for _, s := range AllSkills {
		v, err := getInt(store, name, belief.SkillKey(s.String()))
		if err != nil {
			return nil, err
		}
		m.skills[s] = v
		if rv, err := getInt(store, name, belief.RevealedSkillKey(s.String())); err == nil {
			m.revealed[s] = rv
		}
	}

	keys := store.Keys(name)
	for _, other := range belief.TrimPrefixed(keys, belief.PrefixOpinion) {
		v, err := getInt(store, name, belief.OpinionKey(other))
		if errors.Is(err, belief.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m.opinions[other] = mathx.Clamp(v, OpinionMin, OpinionMax)
	}
	for _, other := range belief.TrimPrefixed(keys, belief.PrefixRevealedOpinion) {
		v, err := getInt(store, name, belief.RevealedOpinionKey(other))
		if errors.Is(err, belief.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m.revealedOpinions[other] = v
	}
	for _, other := range belief.TrimPrefixed(keys, belief.PrefixRevealedOpinionAge) {
		v, err := getInt(store, name, belief.RevealedOpinionAgeKey(other))
		if errors.Is(err, belief.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m.revealedAge[other] = v
	}
	if v, err := getInt(store, name, belief.KeyRest); err == nil {
		m.rest = v
	}
	if st := getString(store, name, belief.KeyStatus); st != "" {
		m.status = st
	}
	// Key space stays symmetric even when only one side was persisted.
	for other := range m.revealedOpinions {
		if _, ok := m.opinions[other]; !ok {
			m.opinions[other] = 0
		}
	}
	for other := range m.opinions {
		if _, ok := m.revealedOpinions[other]; !ok {
			m.revealedOpinions[other] = 0
		}
	}
	return m, nil
}

func (m *CrewMember) Skill(s Skill) int { return m.skills[s] }

// RevealedSkill is 0 while hidden.
func (m *CrewMember) RevealedSkill(s Skill) int { return m.revealed[s] }

func (m *CrewMember) Skills() map[Skill]int {
	out := make(map[Skill]int, len(m.skills))
	for k, v := range m.skills {
		out[k] = v
	}
	return out
}

// Opinion of name; 0 when the member holds none.
func (m *CrewMember) Opinion(name string) int { return m.opinions[name] }

func (m *CrewMember) Knows(name string) bool {
	_, ok := m.opinions[name]
	return ok
}

// Known returns every person m holds an opinion entry for, sorted.
func (m *CrewMember) Known() []string {
	out := make([]string, 0, len(m.opinions))
	for k := range m.opinions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RevealedOpinion reports the last revealed value and whether it was ever revealed.
func (m *CrewMember) RevealedOpinion(name string) (int, bool) {
	_, ok := m.revealedAge[name]
	return m.revealedOpinions[name], ok
}

// RevealedOpinionAge is the number of sessions since name was revealed, or -1.
func (m *CrewMember) RevealedOpinionAge(name string) int {
	age, ok := m.revealedAge[name]
	if !ok {
		return -1
	}
	return age
}

func (m *CrewMember) Rest() int { return m.rest }

func (m *CrewMember) SetRest(v int) {
	m.rest = v
	m.set(belief.KeyRest, strconv.Itoa(v))
}

func (m *CrewMember) Status() string { return m.status }

func (m *CrewMember) Retired() bool { return m.status == belief.StatusRetired }

func (m *CrewMember) SetStatus(status string) {
	m.status = status
	m.set(belief.KeyStatus, status)
}

// Boat returns the boat m currently occupies a slot on, if any.
func (m *CrewMember) Boat() *Boat { return m.boat }

// AddOrUpdateOpinion adds delta to the opinion of target, or sets it when
// replace is true, clamps to [OpinionMin, OpinionMax] and persists. If m sits
// on a boat, that boat rescores: m's peer and manager terms depend on it.
func (m *CrewMember) AddOrUpdateOpinion(target string, delta int, replace bool) {
	if target == "" || target == m.Name {
		return
	}
	v := delta
	if !replace {
		v = m.opinions[target] + delta
	}
	v = mathx.Clamp(v, OpinionMin, OpinionMax)
	m.opinions[target] = v
	if _, ok := m.revealedOpinions[target]; !ok {
		m.revealedOpinions[target] = 0
	}
	m.set(belief.OpinionKey(target), strconv.Itoa(v))
	if m.boat != nil {
		m.boat.UpdateScores()
	}
}

// EnsureOpinion seeds a neutral entry for name if none exists.
func (m *CrewMember) EnsureOpinion(name string) {
	if name == "" || name == m.Name || m.Knows(name) {
		return
	}
	m.opinions[name] = 0
	m.revealedOpinions[name] = 0
	m.set(belief.OpinionKey(name), "0")
}

// ForgetOpinion drops every entry m holds about name.
func (m *CrewMember) ForgetOpinion(name string) {
	if !m.Knows(name) {
		return
	}
	delete(m.opinions, name)
	delete(m.revealedOpinions, name)
	delete(m.revealedAge, name)
	belief.Remove(m.beliefs, m.Name, belief.OpinionKey(name))
	belief.Remove(m.beliefs, m.Name, belief.RevealedOpinionKey(name))
	belief.Remove(m.beliefs, m.Name, belief.RevealedOpinionAgeKey(name))
	if m.boat != nil {
		m.boat.UpdateScores()
	}
}

// RevealSkill copies the true value into the revealed projection.
func (m *CrewMember) RevealSkill(s Skill) int {
	v := m.skills[s]
	m.revealed[s] = v
	m.set(belief.RevealedSkillKey(s.String()), strconv.Itoa(v))
	return v
}

// RevealOpinion copies the current opinion of name and restarts its age.
func (m *CrewMember) RevealOpinion(name string) int {
	m.EnsureOpinion(name)
	v := m.opinions[name]
	m.revealedOpinions[name] = v
	m.revealedAge[name] = 0
	m.set(belief.RevealedOpinionKey(name), strconv.Itoa(v))
	m.set(belief.RevealedOpinionAgeKey(name), "0")
	return v
}

// AgeRevealedOpinions advances the age of every revealed opinion by one session.
func (m *CrewMember) AgeRevealedOpinions() {
	for _, name := range sortedKeys(m.revealedAge) {
		m.revealedAge[name]++
		m.set(belief.RevealedOpinionAgeKey(name), strconv.Itoa(m.revealedAge[name]))
	}
}

// Bind moves m onto another store and persists its full state there.
func (m *CrewMember) Bind(store belief.Store) {
	m.beliefs = store
	m.persistAll()
}

func (m *CrewMember) setPositionLabel(label string) {
	m.set(belief.KeyPosition, label)
}

func (m *CrewMember) persistAll() {
	if m.beliefs == nil {
		return
	}
	m.set(belief.KeyAge, strconv.Itoa(m.Age))
	m.set(belief.KeyGender, m.Gender)
	m.set(belief.KeyStatus, m.status)
	m.set(belief.KeyRest, strconv.Itoa(m.rest))
	for _, s := range AllSkills {
		m.set(belief.SkillKey(s.String()), strconv.Itoa(m.skills[s]))
		m.set(belief.RevealedSkillKey(s.String()), strconv.Itoa(m.revealed[s]))
	}
	for _, name := range sortedKeys(m.opinions) {
		m.set(belief.OpinionKey(name), strconv.Itoa(m.opinions[name]))
	}
	for _, name := range sortedKeys(m.revealedAge) {
		m.set(belief.RevealedOpinionKey(name), strconv.Itoa(m.revealedOpinions[name]))
		m.set(belief.RevealedOpinionAgeKey(name), strconv.Itoa(m.revealedAge[name]))
	}
	label := belief.NullPosition
	if m.boat != nil {
		if slot := m.boat.SlotOf(m); slot != nil {
			label = slot.Position.Name
		}
	}
	m.setPositionLabel(label)
}

func (m *CrewMember) set(key, value string) {
	if m.beliefs == nil {
		return
	}
	m.beliefs.Set(m.Name, key, value)
}

func getString(s belief.Store, character, key string) string {
	v, _ := s.Get(character, key)
	return v
}

func getInt(s belief.Store, character, key string) (int, error) {
	v, ok := s.Get(character, key)
	if !ok || v == "" {
		return 0, fmt.Errorf("%s/%s: %w", character, key, belief.ErrNotFound)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s/%s: %w", character, key, err)
	}
	return n, nil
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
