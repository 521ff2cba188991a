package crew

import (
	"math"
)

// Mistake tags recorded with a confirmed line-up.
const (
	MistakeEmptyPosition   = "empty_position"
	MistakeHiddenSkills    = "hidden_skills"
	MistakeBetterAvailable = "better_skill_available"
	MistakeManagerDislike  = "manager_dislike"
	MistakePeerConflict    = "peer_conflict"
)

var mistakeOrder = []string{
	MistakeEmptyPosition,
	MistakeHiddenSkills,
	MistakeBetterAvailable,
	MistakeManagerDislike,
	MistakePeerConflict,
}

const idealMaxPasses = 32

// IdealScore estimates the best aggregate score reachable with the members
// currently on the boat. It is a local search (greedy seed plus pairwise
// swaps), started from both the greedy line-up and the current one, and never
// reports less than the current score.
func (b *Boat) IdealScore() int {
	pool := b.Members()
	if len(pool) == 0 {
		return 0
	}

	current := b.scratchCopy()
	current.UpdateScores()
	best := climb(current)

	greedy := b.scratchCopy()
	seedGreedy(greedy, pool)
	if s := climb(greedy); s > best {
		best = s
	}
	return best
}

func seedGreedy(c *Boat, pool []*CrewMember) {
	for _, bp := range c.Positions {
		bp.CrewMember = nil
	}
	used := make(map[*CrewMember]bool, len(pool))
	for _, bp := range c.Positions {
		var pick *CrewMember
		bestVal := math.MinInt
		for _, m := range pool {
			if used[m] {
				continue
			}
			v := RatePosition(bp.Position, m) + m.Opinion(c.Manager.Name)
			if c.mood != nil {
				v += int(math.Round(c.mood.Mood(m.Name)))
			}
			if v > bestVal {
				pick, bestVal = m, v
			}
		}
		if pick != nil {
			bp.CrewMember = pick
			used[pick] = true
		}
	}
	c.Unassigned = c.Unassigned[:0]
	for _, m := range pool {
		if !used[m] {
			c.Unassigned = append(c.Unassigned, m)
		}
	}
	c.UpdateScores()
}

// climb applies improving swaps until none is left and returns the score.
func climb(c *Boat) int {
	best := c.Score
	for pass := 0; pass < idealMaxPasses; pass++ {
		improved := false
		for i, bp := range c.Positions {
			for j := i + 1; j < len(c.Positions); j++ {
				other := c.Positions[j]
				if bp.CrewMember == nil && other.CrewMember == nil {
					continue
				}
				bp.CrewMember, other.CrewMember = other.CrewMember, bp.CrewMember
				c.UpdateScores()
				if c.Score > best {
					best = c.Score
					improved = true
					continue
				}
				bp.CrewMember, other.CrewMember = other.CrewMember, bp.CrewMember
			}
			for k := range c.Unassigned {
				bench := c.Unassigned[k]
				if bp.CrewMember == nil {
					bp.CrewMember = bench
					c.Unassigned = append(c.Unassigned[:k:k], c.Unassigned[k+1:]...)
					c.UpdateScores()
					if c.Score > best {
						best = c.Score
						improved = true
						break
					}
					c.Unassigned = insertAt(c.Unassigned, k, bench)
					bp.CrewMember = nil
					continue
				}
				bp.CrewMember, c.Unassigned[k] = bench, bp.CrewMember
				c.UpdateScores()
				if c.Score > best {
					best = c.Score
					improved = true
					continue
				}
				bp.CrewMember, c.Unassigned[k] = c.Unassigned[k], bench
			}
		}
		c.UpdateScores()
		if !improved {
			break
		}
	}
	return best
}

func insertAt(s []*CrewMember, i int, m *CrewMember) []*CrewMember {
	s = append(s, nil)
	copy(s[i+1:], s[i:])
	s[i] = m
	return s
}

// Mistakes lists the tags that apply to the boat's current line-up, in a
// fixed order and without duplicates. dislike is the opinion at or below
// which a relationship counts as a conflict.
func (b *Boat) Mistakes(dislike int) []string {
	found := map[string]bool{}
	for _, bp := range b.Positions {
		m := bp.CrewMember
		if m == nil {
			found[MistakeEmptyPosition] = true
			continue
		}
		hidden := true
		for _, s := range bp.Position.Required.Skills() {
			if m.RevealedSkill(s) != 0 {
				hidden = false
				break
			}
		}
		if hidden {
			found[MistakeHiddenSkills] = true
		}
		rating := RatePosition(bp.Position, m)
		for _, u := range b.Unassigned {
			if RatePosition(bp.Position, u) > rating {
				found[MistakeBetterAvailable] = true
				break
			}
		}
		if m.Opinion(b.Manager.Name) <= dislike {
			found[MistakeManagerDislike] = true
		}
		for _, other := range b.Positions {
			if other == bp || other.CrewMember == nil {
				continue
			}
			if m.Opinion(other.CrewMember.Name) <= dislike {
				found[MistakePeerConflict] = true
				break
			}
		}
	}
	var out []string
	for _, tag := range mistakeOrder {
		if found[tag] {
			out = append(out, tag)
		}
	}
	return out
}
