package crew

import (
	"math"

	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/sim/logic/mathx"
)

// MoodSource supplies a member's current mood. It is the cognition
// collaborator seen from the scoring side.
type MoodSource interface {
	Mood(member string) float64
}

// BoatPosition pairs one Position with at most one member. CrewMember is a
// non-owning reference; the Team owns members.
type BoatPosition struct {
	Position   Position
	CrewMember *CrewMember
	Score      int
}

// Boat is one archetype's slots plus the members not placed in any of them.
// Every active member handed to the boat is in exactly one slot or in
// Unassigned.
type Boat struct {
	Type       string
	Positions  []*BoatPosition
	Unassigned []*CrewMember
	Manager    Person
	Score      int

	mood MoodSource
	// Scratch boats are used for what-if scoring: they never bind members or
	// write beliefs.
	scratch bool
}

func NewBoat(boatType string, positions []Position, manager Person, mood MoodSource) *Boat {
	b := &Boat{
		Type:      boatType,
		Positions: make([]*BoatPosition, 0, len(positions)),
		Manager:   manager,
		mood:      mood,
	}
	for _, p := range positions {
		b.Positions = append(b.Positions, &BoatPosition{Position: p})
	}
	return b
}

func (b *Boat) SetMoodSource(mood MoodSource) {
	b.mood = mood
	b.UpdateScores()
}

// Slot returns the slot for a position name, or nil.
func (b *Boat) Slot(position string) *BoatPosition {
	for _, bp := range b.Positions {
		if bp.Position.Name == position {
			return bp
		}
	}
	return nil
}

// SlotOf returns the slot m occupies, or nil.
func (b *Boat) SlotOf(m *CrewMember) *BoatPosition {
	if m == nil {
		return nil
	}
	for _, bp := range b.Positions {
		if bp.CrewMember == m {
			return bp
		}
	}
	return nil
}

func (b *Boat) IsUnassigned(m *CrewMember) bool {
	return b.unassignedIndex(m) >= 0
}

// Assigned returns the members in slot order.
func (b *Boat) Assigned() []*CrewMember {
	out := make([]*CrewMember, 0, len(b.Positions))
	for _, bp := range b.Positions {
		if bp.CrewMember != nil {
			out = append(out, bp.CrewMember)
		}
	}
	return out
}

// Members returns assigned members in slot order followed by the unassigned.
func (b *Boat) Members() []*CrewMember {
	out := b.Assigned()
	return append(out, b.Unassigned...)
}

func (b *Boat) owns(slot *BoatPosition) bool {
	for _, bp := range b.Positions {
		if bp == slot {
			return true
		}
	}
	return false
}

// Assign places m in slot. A member already seated elsewhere moves; the
// slot's previous occupant goes to Unassigned. Re-assigning a member to the
// slot it already holds changes nothing. It reports whether slot belongs to b.
func (b *Boat) Assign(slot *BoatPosition, m *CrewMember) bool {
	if slot == nil || !b.owns(slot) {
		return false
	}
	if m == nil {
		b.Detach(slot)
		return true
	}
	if slot.CrewMember == m {
		return true
	}
	if prev := b.SlotOf(m); prev != nil {
		prev.CrewMember = nil
	}
	b.removeUnassigned(m)
	if old := slot.CrewMember; old != nil {
		slot.CrewMember = nil
		b.unbind(old)
		b.Unassigned = append(b.Unassigned, old)
	}
	slot.CrewMember = m
	b.bind(m, slot.Position.Name)
	b.UpdateScores()
	return true
}

// Detach empties slot and moves its member to Unassigned.
func (b *Boat) Detach(slot *BoatPosition) {
	if slot == nil || slot.CrewMember == nil || !b.owns(slot) {
		return
	}
	m := slot.CrewMember
	slot.CrewMember = nil
	b.unbind(m)
	b.Unassigned = append(b.Unassigned, m)
	b.UpdateScores()
}

// AddToUnassigned is a no-op when m is already seated or already unassigned.
func (b *Boat) AddToUnassigned(m *CrewMember) {
	if m == nil || b.SlotOf(m) != nil || b.IsUnassigned(m) {
		return
	}
	b.Unassigned = append(b.Unassigned, m)
	if !b.scratch {
		m.setPositionLabel(belief.NullPosition)
	}
}

// Remove takes m off the boat entirely, from a slot or from Unassigned.
func (b *Boat) Remove(m *CrewMember) {
	if slot := b.SlotOf(m); slot != nil {
		slot.CrewMember = nil
		b.unbind(m)
		b.UpdateScores()
	}
	b.removeUnassigned(m)
}

func (b *Boat) bind(m *CrewMember, label string) {
	if b.scratch {
		return
	}
	m.boat = b
	m.setPositionLabel(label)
}

func (b *Boat) unbind(m *CrewMember) {
	if b.scratch {
		return
	}
	if m.boat == b {
		m.boat = nil
	}
	m.setPositionLabel(belief.NullPosition)
}

func (b *Boat) unassignedIndex(m *CrewMember) int {
	for i, u := range b.Unassigned {
		if u == m {
			return i
		}
	}
	return -1
}

func (b *Boat) removeUnassigned(m *CrewMember) {
	if i := b.unassignedIndex(m); i >= 0 {
		b.Unassigned = append(b.Unassigned[:i], b.Unassigned[i+1:]...)
	}
}

// Breakdown is one slot's score split into its four terms.
type Breakdown struct {
	Skill   int
	Peer    int
	Manager int
	Mood    int
}

func (d Breakdown) Total() int { return d.Skill + d.Peer + d.Manager + d.Mood }

// Weights scale a Breakdown for presentation only.
type Weights struct {
	Skill   float64
	Opinion float64
	Manager float64
	Mood    float64
}

func (d Breakdown) Weighted(w Weights) float64 {
	return float64(d.Skill)*w.Skill + float64(d.Peer)*w.Opinion +
		float64(d.Manager)*w.Manager + float64(d.Mood)*w.Mood
}

// Breakdown computes the terms for slot from current state. An empty slot is
// all zeros.
func (b *Boat) Breakdown(slot *BoatPosition) Breakdown {
	var d Breakdown
	if slot == nil || slot.CrewMember == nil {
		return d
	}
	m := slot.CrewMember
	d.Skill = RatePosition(slot.Position, m)

	sum, n := 0, 0
	for _, other := range b.Positions {
		if other == slot || other.CrewMember == nil {
			continue
		}
		sum += m.Opinion(other.CrewMember.Name)
		n++
	}
	d.Peer = mathx.DivRound(sum, n)

	d.Manager = m.Opinion(b.Manager.Name)
	if b.mood != nil {
		d.Mood = int(math.Round(b.mood.Mood(m.Name)))
	}
	return d
}

// UpdateScores recomputes every slot and the aggregate. Each slot depends on
// the set of seated peers, so all slots are recomputed together.
func (b *Boat) UpdateScores() {
	total := 0
	for _, bp := range b.Positions {
		bp.Score = b.Breakdown(bp).Total()
		total += bp.Score
	}
	b.Score = total
}
