package crew

import (
	"fmt"
	"math/bits"
	"strings"
)

// Skill is one of the six crew attributes. Values are single bits so that a
// position's requirements fit in a SkillSet.
type Skill uint8

const (
	Body Skill = 1 << iota
	Charisma
	Perception
	Quickness
	Willpower
	Wisdom
)

// AllSkills lists skills in their canonical order.
var AllSkills = []Skill{Body, Charisma, Perception, Quickness, Willpower, Wisdom}

func (s Skill) String() string {
	switch s {
	case Body:
		return "Body"
	case Charisma:
		return "Charisma"
	case Perception:
		return "Perception"
	case Quickness:
		return "Quickness"
	case Willpower:
		return "Willpower"
	case Wisdom:
		return "Wisdom"
	}
	return fmt.Sprintf("Skill(%d)", uint8(s))
}

func ParseSkill(name string) (Skill, error) {
	for _, s := range AllSkills {
		if strings.EqualFold(s.String(), strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown skill %q", name)
}

type SkillSet uint8

func NewSkillSet(skills ...Skill) SkillSet {
	var s SkillSet
	for _, k := range skills {
		s |= SkillSet(k)
	}
	return s
}

func (s SkillSet) Has(k Skill) bool { return s&SkillSet(k) != 0 }

func (s SkillSet) Len() int { return bits.OnesCount8(uint8(s)) }

// Skills returns the members of s in canonical order.
func (s SkillSet) Skills() []Skill {
	out := make([]Skill, 0, s.Len())
	for _, k := range AllSkills {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

func (s SkillSet) String() string {
	names := make([]string, 0, s.Len())
	for _, k := range s.Skills() {
		names = append(names, k.String())
	}
	return strings.Join(names, "|")
}
