package team

import (
	"sort"

	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/logic/mathx"
	"crewline.ai/internal/sim/tuning"
)

// WeakPositions ranks the boat's positions by the active roster's average
// fit, weakest first. Ties keep archetype order.
func (t *Team) WeakPositions() []crew.Position {
	type ranked struct {
		pos crew.Position
		avg int
	}
	rs := make([]ranked, 0, len(t.Boat.Positions))
	for _, bp := range t.Boat.Positions {
		sum := 0
		for _, m := range t.active {
			sum += crew.RatePosition(bp.Position, m)
		}
		rs = append(rs, ranked{pos: bp.Position, avg: mathx.DivRound(sum, len(t.active))})
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].avg < rs[j].avg })
	out := make([]crew.Position, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.pos)
	}
	return out
}

// RefreshRecruits discards each recruit with recruit_change_chance and tops
// the pool back up to recruit_count. New recruits cycle through the weak
// positions so the pool leans towards the roster's gaps.
func (t *Team) RefreshRecruits() {
	chance := t.tune.Int(tuning.RecruitChangeChance)
	kept := t.recruits[:0:0]
	for _, r := range t.recruits {
		if t.roll.Percent(chance) {
			r.SetStatus(belief.StatusDiscarded)
			continue
		}
		kept = append(kept, r)
	}
	t.recruits = kept

	need := t.tune.Int(tuning.RecruitCount) - len(t.recruits)
	weak := t.WeakPositions()
	for i := 0; i < need && len(weak) > 0; i++ {
		t.recruits = insertSorted(t.recruits, t.generate(weak[i%len(weak)], belief.StatusRecruit))
	}
}

// generate rolls a new character whose skills required by focus start at
// recruit_focus_skill_min.
func (t *Team) generate(focus crew.Position, status string) *crew.CrewMember {
	gender := GenderMale
	if t.roll.Intn(2) == 1 {
		gender = GenderFemale
	}
	p := crew.Person{
		Name:   t.names.next(t.roll, gender),
		Age:    t.roll.Between(t.tune.Int(tuning.MinAge), t.tune.Int(tuning.MaxAge)),
		Gender: gender,
	}
	lo, hi := t.tune.Int(tuning.SkillMin), t.tune.Int(tuning.SkillMax)
	focusLo := max(lo, t.tune.Int(tuning.RecruitFocusSkillMin))
	skills := make(map[crew.Skill]int, len(crew.AllSkills))
	for _, s := range crew.AllSkills {
		if focus.Required.Has(s) {
			skills[s] = t.roll.Between(focusLo, hi)
			continue
		}
		skills[s] = t.roll.Between(lo, hi)
	}
	m := crew.NewCrewMember(p, skills, t.store)
	if status != belief.StatusActive {
		m.SetStatus(status)
	}
	return m
}
