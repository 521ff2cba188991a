package crew

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/sim/logic/roll"
)

type moods map[string]float64

func (m moods) Mood(name string) float64 { return m[name] }

var (
	skipper   = Position{Name: "Skipper", Required: NewSkillSet(Charisma, Willpower, Wisdom)}
	navigator = Position{Name: "Navigator", Required: NewSkillSet(Perception, Wisdom)}
	midBowman = Position{Name: "Mid-Bowman", Required: NewSkillSet(Body, Quickness, Willpower)}
)

func skillsWith(high ...Skill) map[Skill]int {
	out := map[Skill]int{}
	for _, s := range AllSkills {
		out[s] = 2
	}
	for _, s := range high {
		out[s] = 10
	}
	return out
}

type fixture struct {
	store *belief.Memory
	boat  *Boat
	a     *CrewMember
	b     *CrewMember
	c     *CrewMember
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := belief.NewMemory()
	manager := Person{Name: "Manager"}
	f := fixture{
		store: store,
		boat:  NewBoat("Dinghy", []Position{skipper, navigator, midBowman}, manager, moods{}),
		a:     NewCrewMember(Person{Name: "Ann", Age: 30}, skillsWith(Charisma, Willpower, Wisdom), store),
		b:     NewCrewMember(Person{Name: "Bo", Age: 25}, skillsWith(Perception, Wisdom), store),
		c:     NewCrewMember(Person{Name: "Cy", Age: 41}, skillsWith(Body, Quickness, Willpower), store),
	}
	all := []*CrewMember{f.a, f.b, f.c}
	for _, m := range all {
		m.EnsureOpinion(manager.Name)
		for _, o := range all {
			m.EnsureOpinion(o.Name)
		}
		f.boat.AddToUnassigned(m)
	}
	return f
}

func (f fixture) seatAll(t *testing.T) {
	t.Helper()
	require.True(t, f.boat.Assign(f.boat.Slot("Skipper"), f.a))
	require.True(t, f.boat.Assign(f.boat.Slot("Navigator"), f.b))
	require.True(t, f.boat.Assign(f.boat.Slot("Mid-Bowman"), f.c))
}

func (f fixture) setMutual(v int) {
	all := []*CrewMember{f.a, f.b, f.c}
	for _, m := range all {
		for _, o := range all {
			if m != o {
				m.AddOrUpdateOpinion(o.Name, v, true)
			}
		}
	}
}

func TestBoat_ReferenceScores(t *testing.T) {
	f := newFixture(t)
	f.seatAll(t)
	for _, bp := range f.boat.Positions {
		assert.Equal(t, 10, bp.Score, bp.Position.Name)
	}
	assert.Equal(t, 30, f.boat.Score)

	f.setMutual(5)
	assert.Equal(t, 45, f.boat.Score)

	f.setMutual(-5)
	assert.Equal(t, 15, f.boat.Score)
}

func TestBoat_AssignSameMemberToEveryPosition(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"Skipper", "Navigator", "Mid-Bowman"} {
		require.True(t, f.boat.Assign(f.boat.Slot(name), f.a))
	}
	assert.Nil(t, f.boat.Slot("Skipper").CrewMember)
	assert.Nil(t, f.boat.Slot("Navigator").CrewMember)
	assert.Equal(t, f.a, f.boat.Slot("Mid-Bowman").CrewMember)
	assert.Equal(t, 0, f.boat.Slot("Skipper").Score)
	assert.Equal(t, 0, f.boat.Slot("Navigator").Score)
	assert.False(t, f.boat.IsUnassigned(f.a))
	v, _ := f.store.Get("Ann", belief.KeyPosition)
	assert.Equal(t, "Mid-Bowman", v)
}

func TestBoat_AssignOccupiedSlotBenchesPreviousOccupant(t *testing.T) {
	f := newFixture(t)
	f.seatAll(t)
	f.boat.Assign(f.boat.Slot("Skipper"), f.b)
	assert.Equal(t, f.b, f.boat.Slot("Skipper").CrewMember)
	assert.Nil(t, f.boat.Slot("Navigator").CrewMember)
	assert.True(t, f.boat.IsUnassigned(f.a))
	v, _ := f.store.Get("Ann", belief.KeyPosition)
	assert.Equal(t, belief.NullPosition, v)
}

func TestBoat_AssignRejectsForeignSlot(t *testing.T) {
	f := newFixture(t)
	other := NewBoat("Dinghy", []Position{skipper}, f.boat.Manager, nil)
	assert.False(t, f.boat.Assign(other.Slot("Skipper"), f.a))
	assert.True(t, f.boat.IsUnassigned(f.a))
}

func TestBoat_DetachPersistsNullPosition(t *testing.T) {
	f := newFixture(t)
	f.seatAll(t)
	f.boat.Detach(f.boat.Slot("Navigator"))
	assert.True(t, f.boat.IsUnassigned(f.b))
	assert.Nil(t, f.b.Boat())
	v, _ := f.store.Get("Bo", belief.KeyPosition)
	assert.Equal(t, belief.NullPosition, v)
	assert.Equal(t, 20, f.boat.Score)
}

func TestBoat_AddToUnassignedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seatAll(t)
	f.boat.AddToUnassigned(f.a)
	f.boat.AddToUnassigned(f.a)
	assert.Empty(t, f.boat.Unassigned)

	f.boat.Detach(f.boat.Slot("Skipper"))
	f.boat.AddToUnassigned(f.a)
	assert.Len(t, f.boat.Unassigned, 1)
}

func TestBoat_ExclusivityUnderRandomMutation(t *testing.T) {
	f := newFixture(t)
	members := []*CrewMember{f.a, f.b, f.c}
	r := roll.New(99)
	for i := 0; i < 300; i++ {
		slot := f.boat.Positions[r.Intn(len(f.boat.Positions))]
		switch r.Intn(3) {
		case 0, 1:
			f.boat.Assign(slot, members[r.Intn(len(members))])
		default:
			f.boat.Detach(slot)
		}
		for _, m := range members {
			seated := 0
			for _, bp := range f.boat.Positions {
				if bp.CrewMember == m {
					seated++
				}
			}
			require.LessOrEqual(t, seated, 1, "step %d: %s seated twice", i, m.Name)
			require.Equal(t, seated == 0, f.boat.IsUnassigned(m), "step %d: %s", i, m.Name)
		}
	}
}

func TestBoat_RescoresWhenSeatedMemberChangesOpinion(t *testing.T) {
	f := newFixture(t)
	f.seatAll(t)
	f.a.AddOrUpdateOpinion("Bo", 4, false)
	// Ann's peer average over Bo(4) and Cy(0) is 2.
	assert.Equal(t, 12, f.boat.Slot("Skipper").Score)
	assert.Equal(t, 32, f.boat.Score)

	f.a.AddOrUpdateOpinion("Manager", -3, false)
	assert.Equal(t, 9, f.boat.Slot("Skipper").Score)
}

func TestBoat_UpdateScoresIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seatAll(t)
	f.a.AddOrUpdateOpinion("Cy", -2, false)
	f.boat.UpdateScores()
	first := f.boat.Snapshot()
	f.boat.UpdateScores()
	assert.Equal(t, first, f.boat.Snapshot())
}

func TestBoat_MoodIsRounded(t *testing.T) {
	f := newFixture(t)
	f.boat.SetMoodSource(moods{"Ann": 1.5, "Bo": -1.5, "Cy": 0.4})
	f.seatAll(t)
	assert.Equal(t, 12, f.boat.Slot("Skipper").Score)
	assert.Equal(t, 8, f.boat.Slot("Navigator").Score)
	assert.Equal(t, 10, f.boat.Slot("Mid-Bowman").Score)
}

func TestBoat_BreakdownWeighted(t *testing.T) {
	f := newFixture(t)
	f.seatAll(t)
	f.setMutual(2)
	d := f.boat.Breakdown(f.boat.Slot("Skipper"))
	assert.Equal(t, Breakdown{Skill: 10, Peer: 2}, d)
	assert.Equal(t, 12, d.Total())
	assert.InDelta(t, 21.0, d.Weighted(Weights{Skill: 2, Opinion: 0.5, Manager: 1, Mood: 1}), 1e-9)
	// Weights never leak into the slot score.
	assert.Equal(t, 12, f.boat.Slot("Skipper").Score)
}

func TestBoat_SnapshotIsDetached(t *testing.T) {
	f := newFixture(t)
	f.seatAll(t)
	snap := f.boat.Snapshot()
	f.boat.Detach(f.boat.Slot("Skipper"))
	assert.Equal(t, "Ann", snap.MemberAt("Skipper"))
	assert.Equal(t, 30, snap.Score)
	assert.True(t, snap.Selected("Ann"))
}

func TestBoat_IdealScoreFindsBetterLineUp(t *testing.T) {
	f := newFixture(t)
	// Everyone in the wrong seat.
	f.boat.Assign(f.boat.Slot("Skipper"), f.c)
	f.boat.Assign(f.boat.Slot("Navigator"), f.a)
	f.boat.Assign(f.boat.Slot("Mid-Bowman"), f.b)
	require.Less(t, f.boat.Score, 30)

	ideal := f.boat.IdealScore()
	assert.Equal(t, 30, ideal)
	// Searching must not disturb the real boat or the stored labels.
	assert.Equal(t, f.c, f.boat.Slot("Skipper").CrewMember)
	v, _ := f.store.Get("Cy", belief.KeyPosition)
	assert.Equal(t, "Skipper", v)
}

func TestBoat_Mistakes(t *testing.T) {
	f := newFixture(t)
	f.boat.Assign(f.boat.Slot("Skipper"), f.b)
	f.b.AddOrUpdateOpinion("Manager", -4, true)
	got := f.boat.Mistakes(-3)
	assert.Equal(t, []string{
		MistakeEmptyPosition,
		MistakeHiddenSkills,
		MistakeBetterAvailable,
		MistakeManagerDislike,
	}, got)

	f.b.RevealSkill(Wisdom)
	assert.NotContains(t, f.boat.Mistakes(-3), MistakeHiddenSkills)
}
