// Package events picks the post-session social events. Rules are tried in
// catalog order; each rule invocation takes at most one member, and no member
// is taken twice in a session.
package events

import (
	"github.com/ErikKalkoken/go-set"

	"crewline.ai/internal/sim/catalogs"
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/logic/roll"
)

type Input struct {
	Race bool
	// Candidates is the active roster in roster order.
	Candidates []*crew.CrewMember
	// Engaged members were already dealt with this session.
	Engaged set.Set[string]
	// LineUp is the line-up just confirmed.
	LineUp  crew.LineUp
	Manager string

	DislikeThreshold        int
	RetirementRestThreshold int
	// MaxRetirements caps how many members may retire this session.
	MaxRetirements int
	// Seen reports whether member already had a once-only rule.
	Seen func(member, rule string) bool
}

// Selection is one member chosen by one rule. Fired is false when the
// member qualified but the chance roll missed.
type Selection struct {
	Member *crew.CrewMember
	Rule   catalogs.EventRule
	Fired  bool
}

type Selector struct {
	rules []catalogs.EventRule
	roll  *roll.Roller
}

func NewSelector(rules []catalogs.EventRule, r *roll.Roller) *Selector {
	return &Selector{rules: rules, roll: r}
}

// Select runs passes over the rules until a full pass finds nobody.
func (s *Selector) Select(in Input) []Selection {
	var consumed set.Set[string]
	for name := range in.Engaged.All() {
		consumed.Add(name)
	}
	retirements := in.MaxRetirements

	var out []Selection
	for {
		found := false
		for _, rule := range s.rules {
			if !rule.Applies(in.Race) {
				continue
			}
			if rule.Retire && retirements <= 0 {
				continue
			}
			m := s.first(rule, in, consumed)
			if m == nil {
				continue
			}
			found = true
			consumed.Add(m.Name)
			sel := Selection{Member: m, Rule: rule, Fired: s.roll.Percent(rule.Chance)}
			if sel.Fired && rule.Retire {
				retirements--
			}
			out = append(out, sel)
		}
		if !found {
			return out
		}
	}
}

func (s *Selector) first(rule catalogs.EventRule, in Input, consumed set.Set[string]) *crew.CrewMember {
	for _, m := range in.Candidates {
		if consumed.Contains(m.Name) || m.Retired() {
			continue
		}
		if rule.Once && in.Seen != nil && in.Seen(m.Name, rule.ID) {
			continue
		}
		if eligible(rule.Trigger, m, in) {
			return m
		}
	}
	return nil
}

func eligible(trigger string, m *crew.CrewMember, in Input) bool {
	switch trigger {
	case catalogs.TriggerNotSelected:
		return len(in.LineUp.Slots) > 0 && !in.LineUp.Selected(m.Name)
	case catalogs.TriggerSelected:
		return in.LineUp.Selected(m.Name)
	case catalogs.TriggerRetirement:
		return m.Rest() <= in.RetirementRestThreshold
	case catalogs.TriggerManagerDislike:
		return m.Opinion(in.Manager) <= in.DislikeThreshold
	}
	return false
}
