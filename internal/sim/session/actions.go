package session

import (
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/tuning"
)

// spend deducts cost from the action allowance, or reports false and leaves
// it untouched.
func (c *Controller) spend(cost int) bool {
	if cost < 0 || cost > c.actionAllowance {
		return false
	}
	c.actionAllowance -= cost
	return true
}

func (c *Controller) affordable(cost int) bool {
	return cost >= 0 && cost <= c.actionAllowance
}

// RevealSkill uncovers one skill of an active member. A skill that is
// already revealed costs nothing and reports false.
func (c *Controller) RevealSkill(member string, s crew.Skill) (int, bool) {
	m := c.team.Member(member)
	if m == nil || m.RevealedSkill(s) != 0 || !c.spend(c.tune.Int(tuning.SkillRevealCost)) {
		return 0, false
	}
	c.engaged.Add(m.Name)
	v := m.RevealSkill(s)
	c.saveState()
	return v, true
}

// RevealRole tells the manager which position suits member best on the
// current boat and uncovers the skills that position needs.
func (c *Controller) RevealRole(member string) (crew.Position, bool) {
	m := c.team.Member(member)
	if m == nil || !c.spend(c.tune.Int(tuning.RoleRevealCost)) {
		return crew.Position{}, false
	}
	c.engaged.Add(m.Name)
	best := bestFit(c.team.Boat, m)
	for _, s := range best.Required.Skills() {
		m.RevealSkill(s)
	}
	c.saveState()
	return best, true
}

// bestFit is the highest-rated position; ties keep slot order.
func bestFit(b *crew.Boat, m *crew.CrewMember) crew.Position {
	var best crew.Position
	rating := -1
	for _, bp := range b.Positions {
		if r := crew.RatePosition(bp.Position, m); r > rating {
			best, rating = bp.Position, r
		}
	}
	return best
}

// RevealOpinion uncovers what member thinks of target, a crew member or the
// manager.
func (c *Controller) RevealOpinion(member, target string) (int, bool) {
	m := c.team.Member(member)
	if m == nil || !m.Knows(target) || !c.spend(c.tune.Int(tuning.OpinionRevealCost)) {
		return 0, false
	}
	c.engaged.Add(m.Name)
	v := m.RevealOpinion(target)
	c.saveState()
	return v, true
}

// RecruitQuestion uncovers one skill of every recruit in the pool. An empty
// pool reports false.
func (c *Controller) RecruitQuestion(s crew.Skill) bool {
	recruits := c.team.Recruits()
	if len(recruits) == 0 || !c.spend(c.tune.Int(tuning.RecruitQuestionCost)) {
		return false
	}
	for _, r := range recruits {
		r.RevealSkill(s)
	}
	c.saveState()
	return true
}

// Hire takes a recruit onto the roster for hiring_cost actions and one crew
// edit.
func (c *Controller) Hire(recruit string) bool {
	cost := c.tune.Int(tuning.HiringCost)
	if c.crewEditAllowance < 1 || !c.affordable(cost) || c.team.Recruit(recruit) == nil || !c.team.CanHire() {
		return false
	}
	if !c.team.Hire(recruit) {
		return false
	}
	c.spend(cost)
	c.crewEditAllowance--
	c.engaged.Add(recruit)
	c.saveState()
	return true
}

// Fire retires an active member for firing_cost actions and one crew edit.
func (c *Controller) Fire(member string) bool {
	cost := c.tune.Int(tuning.FiringCost)
	if c.crewEditAllowance < 1 || !c.affordable(cost) || c.team.Member(member) == nil || !c.team.CanFire() {
		return false
	}
	if !c.team.Retire(member) {
		return false
	}
	c.spend(cost)
	c.crewEditAllowance--
	c.engaged.Delete(member)
	c.saveState()
	return true
}

// Assign seats member at position. Unknown names report false.
func (c *Controller) Assign(position, member string) bool {
	m := c.team.Member(member)
	if m == nil {
		return false
	}
	return c.team.Boat.Assign(c.team.Boat.Slot(position), m)
}

// Detach benches whoever sits at position.
func (c *Controller) Detach(position string) bool {
	slot := c.team.Boat.Slot(position)
	if slot == nil || slot.CrewMember == nil {
		return false
	}
	c.team.Boat.Detach(slot)
	return true
}

// Weights are the presentation weights from tuning.
func (c *Controller) Weights() crew.Weights {
	return crew.Weights{
		Skill:   c.tune.Float(tuning.SkillWeighting),
		Opinion: c.tune.Float(tuning.OpinionWeighting),
		Manager: c.tune.Float(tuning.ManagerOpinionWeighting),
		Mood:    c.tune.Float(tuning.MoodWeighting),
	}
}

// Breakdown splits a slot's score into its terms and the weighted total
// shown to the manager.
func (c *Controller) Breakdown(position string) (crew.Breakdown, float64, bool) {
	slot := c.team.Boat.Slot(position)
	if slot == nil {
		return crew.Breakdown{}, 0, false
	}
	d := c.team.Boat.Breakdown(slot)
	return d, d.Weighted(c.Weights()), true
}
