// Package simtest builds the catalogs, tuning and collaborators that sim
// package tests share. It only reads the repository's configs directory.
package simtest

import (
	"path/filepath"
	"runtime"
	"testing"

	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/sim/catalogs"
	"crewline.ai/internal/sim/cognition"
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/team"
	"crewline.ai/internal/sim/tuning"
)

const ManagerName = "Skip Harbour"

// ConfigDir is the repository's configs directory.
func ConfigDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "configs")
}

type Harness struct {
	T     testing.TB
	Cats  *catalogs.Catalogs
	Tune  tuning.Tuning
	Store *belief.Memory
	Mind  *cognition.Static
}

func New(t testing.TB) *Harness {
	t.Helper()
	cats, err := catalogs.Load(ConfigDir())
	if err != nil {
		t.Fatalf("catalogs.Load: %v", err)
	}
	tune, err := tuning.Load(filepath.Join(ConfigDir(), "tuning.yaml"))
	if err != nil {
		t.Fatalf("tuning.Load: %v", err)
	}
	return &Harness{
		T:     t,
		Cats:  cats,
		Tune:  tune,
		Store: belief.NewMemory(),
		Mind:  cognition.NewStatic(nil),
	}
}

// With overrides tunables for the rest of the test.
func (h *Harness) With(kv map[tuning.Key]float64) *Harness {
	for k, v := range kv {
		h.Tune = h.Tune.With(k, v)
	}
	return h
}

func (h *Harness) TeamConfig(seed int64) team.Config {
	return team.Config{
		Catalogs: h.Cats,
		Tuning:   h.Tune,
		Store:    h.Store,
		Mood:     h.Mind,
		Manager:  crew.Person{Name: ManagerName, Age: 52, Gender: "female"},
		Seed:     seed,
	}
}

// NewTeam starts a fresh game.
func (h *Harness) NewTeam(seed int64) *team.Team {
	h.T.Helper()
	tm, err := team.New(h.TeamConfig(seed))
	if err != nil {
		h.T.Fatalf("team.New: %v", err)
	}
	return tm
}

// Reload rebuilds a team from a deep copy of the harness store.
func (h *Harness) Reload() *team.Team {
	h.T.Helper()
	tm, err := team.Load(h.TeamConfig(0), h.Store.Clone())
	if err != nil {
		h.T.Fatalf("team.Load: %v", err)
	}
	return tm
}

// SeatBest fills every slot with the best-rated unassigned member, in slot
// order.
func SeatBest(b *crew.Boat) {
	for _, bp := range b.Positions {
		var pick *crew.CrewMember
		best := -1
		for _, m := range b.Unassigned {
			if r := crew.RatePosition(bp.Position, m); r > best {
				pick, best = m, r
			}
		}
		if pick != nil {
			b.Assign(bp, pick)
		}
	}
}
