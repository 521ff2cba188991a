package team

import (
	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/sim/crew"
)

// Promote moves the team to the next archetype. Members keep their seat when
// the new boat has a position of the same name and are benched otherwise.
// The team gains two new crew per added position, as far as CanHire allows.
// It returns the number of crew created and false when there is no next
// archetype.
func (t *Team) Promote() (int, bool) {
	next, ok := t.cats.Boats.Next(t.Boat.Type)
	if !ok {
		return 0, false
	}
	old := t.Boat
	seats := make(map[*crew.CrewMember]string, len(old.Positions))
	for _, bp := range old.Positions {
		if bp.CrewMember != nil {
			seats[bp.CrewMember] = bp.Position.Name
		}
	}
	for _, m := range old.Members() {
		old.Remove(m)
	}

	t.Boat = crew.NewBoat(next.Name, next.Positions, t.Manager, t.mood)
	for _, m := range t.active {
		if slot := t.Boat.Slot(seats[m]); slot != nil {
			t.Boat.Assign(slot, m)
			continue
		}
		t.Boat.AddToUnassigned(m)
	}

	created := 0
	weak := t.WeakPositions()
	for i := 0; i < (len(next.Positions)-len(old.Positions))*2 && t.CanHire(); i++ {
		t.addActive(t.generate(weak[i%len(weak)], belief.StatusActive))
		created++
	}
	t.PersistState()
	return created, true
}
