package crew

// LineUpSlot is one frozen slot of a confirmed line-up.
type LineUpSlot struct {
	Position string
	Member   string // empty when the slot was not filled
	Score    int
}

// LineUp is an immutable copy of a boat at confirmation time. It holds names
// and numbers only, so later mutation of members cannot reach it.
type LineUp struct {
	BoatType   string
	Slots      []LineUpSlot
	Unassigned []string
	Score      int
	IdealScore int
	Mistakes   []string
	// Seconds the manager spent on the session before confirming.
	TimeOffset int
}

// Snapshot copies the boat's current assignment and scores.
func (b *Boat) Snapshot() LineUp {
	lu := LineUp{
		BoatType: b.Type,
		Slots:    make([]LineUpSlot, 0, len(b.Positions)),
		Score:    b.Score,
	}
	for _, bp := range b.Positions {
		s := LineUpSlot{Position: bp.Position.Name, Score: bp.Score}
		if bp.CrewMember != nil {
			s.Member = bp.CrewMember.Name
		}
		lu.Slots = append(lu.Slots, s)
	}
	for _, m := range b.Unassigned {
		lu.Unassigned = append(lu.Unassigned, m.Name)
	}
	return lu
}

// Clone returns a deep copy of the line-up.
func (lu LineUp) Clone() LineUp {
	out := lu
	out.Slots = append([]LineUpSlot(nil), lu.Slots...)
	out.Unassigned = append([]string(nil), lu.Unassigned...)
	out.Mistakes = append([]string(nil), lu.Mistakes...)
	return out
}

// Selected reports whether name held a slot in the line-up.
func (lu LineUp) Selected(name string) bool {
	for _, s := range lu.Slots {
		if s.Member == name && name != "" {
			return true
		}
	}
	return false
}

// MemberAt returns who held position, or "".
func (lu LineUp) MemberAt(position string) string {
	for _, s := range lu.Slots {
		if s.Position == position {
			return s.Member
		}
	}
	return ""
}

// scratchCopy returns a boat with the same slots and occupants that never
// binds members or writes beliefs.
func (b *Boat) scratchCopy() *Boat {
	c := &Boat{
		Type:      b.Type,
		Positions: make([]*BoatPosition, 0, len(b.Positions)),
		Manager:   b.Manager,
		mood:      b.mood,
		scratch:   true,
	}
	for _, bp := range b.Positions {
		c.Positions = append(c.Positions, &BoatPosition{
			Position:   bp.Position,
			CrewMember: bp.CrewMember,
			Score:      bp.Score,
		})
	}
	c.Unassigned = append([]*CrewMember(nil), b.Unassigned...)
	c.Score = b.Score
	return c
}
