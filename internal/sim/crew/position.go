package crew

import "crewline.ai/internal/sim/logic/mathx"

// Position is a catalog entry. It never changes after load.
type Position struct {
	Name        string
	Description string
	Required    SkillSet
}

// RatePosition is the member's average true skill over the position's
// required skills, rounded half away from zero.
func RatePosition(p Position, m *CrewMember) int {
	if m == nil {
		return 0
	}
	return rate(p, m.Skill)
}

// RateRevealed rates what the manager currently knows about m.
func RateRevealed(p Position, m *CrewMember) int {
	if m == nil {
		return 0
	}
	return rate(p, m.RevealedSkill)
}

func rate(p Position, value func(Skill) int) int {
	req := p.Required.Skills()
	if len(req) == 0 {
		return 0
	}
	sum := 0
	for _, s := range req {
		sum += value(s)
	}
	return mathx.DivRound(sum, len(req))
}
