package ws

import (
	"crewline.ai/internal/protocol"
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/session"
)

// StateView builds the manager's view of the game. Hidden skills and
// opinions are left out.
func StateView(c *session.Controller) protocol.StateMsg {
	t := c.Team()
	b := t.Boat
	st := protocol.StateMsg{
		Type:              protocol.TypeState,
		ProtocolVersion:   protocol.Version,
		Session:           c.SessionCount(),
		SessionInRace:     c.SessionInRace(),
		Race:              c.IsRace(),
		RaceScores:        c.RaceScores(),
		ActionAllowance:   c.ActionAllowance(),
		CrewEditAllowance: c.CrewEditAllowance(),
		BoatType:          b.Type,
		Slots:             make([]protocol.SlotObs, 0, len(b.Positions)),
		CanHire:           t.CanHire(),
		CanFire:           t.CanFire(),
		Crew:              []protocol.MemberObs{},
		Recruits:          []protocol.MemberObs{},
	}
	for _, bp := range b.Positions {
		slot := protocol.SlotObs{Position: bp.Position.Name, Skills: []string{}}
		for _, s := range bp.Position.Required.Skills() {
			slot.Skills = append(slot.Skills, s.String())
		}
		if bp.CrewMember != nil {
			slot.Member = bp.CrewMember.Name
		}
		st.Slots = append(st.Slots, slot)
	}
	for _, m := range t.Active() {
		obs := memberView(m)
		if slot := b.SlotOf(m); slot != nil {
			obs.Position = slot.Position.Name
		}
		st.Crew = append(st.Crew, obs)
	}
	for _, m := range t.Recruits() {
		st.Recruits = append(st.Recruits, memberView(m))
	}
	return st
}

func memberView(m *crew.CrewMember) protocol.MemberObs {
	obs := protocol.MemberObs{
		Name:   m.Name,
		Age:    m.Age,
		Gender: m.Gender,
		Skills: map[string]int{},
	}
	for _, s := range crew.AllSkills {
		if v := m.RevealedSkill(s); v != 0 {
			obs.Skills[s.String()] = v
		}
	}
	for _, name := range m.Known() {
		if v, ok := m.RevealedOpinion(name); ok {
			obs.Opinions = append(obs.Opinions, protocol.OpinionObs{
				Target: name,
				Value:  v,
				Age:    m.RevealedOpinionAge(name),
			})
		}
	}
	return obs
}
