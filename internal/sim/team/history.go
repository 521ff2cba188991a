package team

import (
	"fmt"
	"strconv"

	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/persistence/lineuplog"
	"crewline.ai/internal/sim/crew"
)

// Record appends a confirmed line-up to the history and to the manager's
// event log.
func (t *Team) Record(lu crew.LineUp) error {
	raw, err := lineuplog.Encode(entryOf(lu))
	if err != nil {
		return err
	}
	n := len(t.history)
	t.history = append(t.history, lu.Clone())
	t.setManager(LineUpKey(n), raw)
	t.setManager(belief.KeyLineUpCount, strconv.Itoa(n+1))
	return nil
}

// LineUpKey is the manager belief holding the n-th confirmed line-up.
func LineUpKey(n int) string { return fmt.Sprintf("%s%04d", belief.PrefixLineUp, n) }

func (t *Team) History() []crew.LineUp {
	out := make([]crew.LineUp, 0, len(t.history))
	for _, lu := range t.history {
		out = append(out, lu.Clone())
	}
	return out
}

// TimeOffsets parallels History.
func (t *Team) TimeOffsets() []int {
	out := make([]int, 0, len(t.history))
	for _, lu := range t.history {
		out = append(out, lu.TimeOffset)
	}
	return out
}

// LastLineUp returns the most recent confirmed line-up.
func (t *Team) LastLineUp() (crew.LineUp, bool) {
	if len(t.history) == 0 {
		return crew.LineUp{}, false
	}
	return t.history[len(t.history)-1].Clone(), true
}

func entryOf(lu crew.LineUp) lineuplog.Entry {
	e := lineuplog.Entry{
		BoatType:   lu.BoatType,
		IdealScore: lu.IdealScore,
		Mistakes:   append([]string(nil), lu.Mistakes...),
		TimeOffset: lu.TimeOffset,
	}
	for _, s := range lu.Slots {
		e.Slots = append(e.Slots, lineuplog.Slot{Member: s.Member, Score: s.Score})
	}
	return e
}

// lineUpOf restores position names from the archetype. The unassigned list is
// not logged.
func (t *Team) lineUpOf(e lineuplog.Entry) (crew.LineUp, error) {
	bt, ok := t.cats.Boats.Boat(e.BoatType)
	if !ok {
		return crew.LineUp{}, fmt.Errorf("%w: %q", ErrUnknownArchetype, e.BoatType)
	}
	lu := crew.LineUp{
		BoatType:   e.BoatType,
		IdealScore: e.IdealScore,
		Mistakes:   e.Mistakes,
		TimeOffset: e.TimeOffset,
	}
	for i, s := range e.Slots {
		lu.Slots = append(lu.Slots, crew.LineUpSlot{Position: bt.Positions[i].Name, Member: s.Member, Score: s.Score})
		lu.Score += s.Score
	}
	return lu, nil
}
