// Package team owns the roster of a game: active crew, retired crew and the
// recruiting pool, plus the boat they sail and the history of confirmed
// line-ups.
package team

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/sim/catalogs"
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/logic/roll"
	"crewline.ai/internal/sim/tuning"
)

var ErrUnknownArchetype = errors.New("unknown boat archetype")

type Config struct {
	Catalogs *catalogs.Catalogs
	Tuning   tuning.Tuning
	Store    belief.Store
	Mood     crew.MoodSource
	Manager  crew.Person
	Seed     int64
}

type Team struct {
	Manager crew.Person
	Boat    *crew.Boat

	cats  *catalogs.Catalogs
	tune  tuning.Tuning
	store belief.Store
	mood  crew.MoodSource
	roll  *roll.Roller
	names names

	// Each list is kept sorted by name, so a reloaded team iterates in the
	// same order as the one that was saved.
	active   []*crew.CrewMember
	retired  []*crew.CrewMember
	recruits []*crew.CrewMember

	history []crew.LineUp
}

func newTeam(cfg Config, bt catalogs.BoatType, r *roll.Roller) *Team {
	t := &Team{
		Manager: cfg.Manager,
		Boat:    crew.NewBoat(bt.Name, bt.Positions, cfg.Manager, cfg.Mood),
		cats:    cfg.Catalogs,
		tune:    cfg.Tuning,
		store:   cfg.Store,
		mood:    cfg.Mood,
		roll:    r,
		names:   names{words: cfg.Catalogs.Names},
	}
	t.names.reserve(cfg.Manager.Name)
	return t
}

// New starts a game on the first archetype with 2 crew per position and a
// fresh recruiting pool.
func New(cfg Config) (*Team, error) {
	if cfg.Manager.Name == "" {
		return nil, fmt.Errorf("team: manager needs a name")
	}
	if len(cfg.Catalogs.Boats.Types) == 0 {
		return nil, fmt.Errorf("team: %w: catalog is empty", ErrUnknownArchetype)
	}
	t := newTeam(cfg, cfg.Catalogs.Boats.First(), roll.New(cfg.Seed))
	t.setManager(belief.KeyStatus, belief.StatusManager)
	t.setManager(belief.KeyAge, strconv.Itoa(cfg.Manager.Age))
	t.setManager(belief.KeyGender, cfg.Manager.Gender)
	t.setManager(belief.KeySeed, strconv.FormatInt(cfg.Seed, 10))

	start := min(2*t.MinCrew(), t.MaxCrew())
	weak := t.WeakPositions()
	for i := 0; i < start; i++ {
		t.addActive(t.generate(weak[i%len(weak)], belief.StatusActive))
	}
	t.RefreshRecruits()
	t.PersistState()
	return t, nil
}

func (t *Team) Catalogs() *catalogs.Catalogs { return t.cats }
func (t *Team) Tuning() tuning.Tuning        { return t.tune }
func (t *Team) Store() belief.Store          { return t.store }
func (t *Team) Roll() *roll.Roller           { return t.roll }
func (t *Team) BoatType() string             { return t.Boat.Type }

func (t *Team) Active() []*crew.CrewMember   { return append([]*crew.CrewMember(nil), t.active...) }
func (t *Team) Retired() []*crew.CrewMember  { return append([]*crew.CrewMember(nil), t.retired...) }
func (t *Team) Recruits() []*crew.CrewMember { return append([]*crew.CrewMember(nil), t.recruits...) }

// Member returns an active crew member.
func (t *Team) Member(name string) *crew.CrewMember { return find(t.active, name) }

func (t *Team) Recruit(name string) *crew.CrewMember { return find(t.recruits, name) }

// MinCrew is the number of positions on the boat.
func (t *Team) MinCrew() int { return len(t.Boat.Positions) }

// MaxCrew allows a full second crew plus two.
func (t *Team) MaxCrew() int { return (len(t.Boat.Positions) + 1) * 2 }

func (t *Team) CanHire() bool { return len(t.active) < t.MaxCrew() }

func (t *Team) CanFire() bool { return len(t.active) > t.MinCrew() }

// Hire moves a recruit into the active roster. It reports false when the
// roster is full or name is not a recruit.
func (t *Team) Hire(name string) bool {
	m := t.Recruit(name)
	if m == nil || !t.CanHire() {
		return false
	}
	t.recruits = without(t.recruits, m)
	m.SetStatus(belief.StatusActive)
	t.addActive(m)
	return true
}

// Retire moves an active member to the retired list, takes them off the boat
// and removes every opinion the remaining crew held about them. Bounds are
// the caller's concern.
func (t *Team) Retire(name string) bool {
	m := t.Member(name)
	if m == nil {
		return false
	}
	t.Boat.Remove(m)
	t.active = without(t.active, m)
	m.SetStatus(belief.StatusRetired)
	t.retired = insertSorted(t.retired, m)
	for _, other := range t.active {
		other.ForgetOpinion(name)
	}
	return true
}

// addActive seeds neutral opinions both ways with the crew and the manager
// and benches the newcomer.
func (t *Team) addActive(m *crew.CrewMember) {
	m.EnsureOpinion(t.Manager.Name)
	for _, other := range t.active {
		m.EnsureOpinion(other.Name)
		other.EnsureOpinion(m.Name)
	}
	t.active = insertSorted(t.active, m)
	t.Boat.AddToUnassigned(m)
}

// PersistState writes the team-level beliefs kept on the manager record.
func (t *Team) PersistState() {
	t.setManager(belief.KeyBoatType, t.Boat.Type)
	t.setManager(belief.KeySeed, strconv.FormatInt(t.roll.Seed(), 10))
	t.setManager(belief.KeyRollCounter, strconv.FormatUint(t.roll.Counter(), 10))
}

func (t *Team) setManager(key, value string) {
	if t.store == nil {
		return
	}
	t.store.Set(t.Manager.Name, key, value)
}

func find(list []*crew.CrewMember, name string) *crew.CrewMember {
	i := sort.Search(len(list), func(i int) bool { return list[i].Name >= name })
	if i < len(list) && list[i].Name == name {
		return list[i]
	}
	return nil
}

func insertSorted(list []*crew.CrewMember, m *crew.CrewMember) []*crew.CrewMember {
	i := sort.Search(len(list), func(i int) bool { return list[i].Name >= m.Name })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = m
	return list
}

func without(list []*crew.CrewMember, m *crew.CrewMember) []*crew.CrewMember {
	out := list[:0:0]
	for _, x := range list {
		if x != m {
			out = append(out, x)
		}
	}
	return out
}
