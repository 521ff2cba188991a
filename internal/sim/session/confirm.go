package session

import (
	"context"
	"fmt"

	"github.com/ErikKalkoken/go-set"

	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/events"
	"crewline.ai/internal/sim/tuning"
)

// Outcome is one post-session event that fired.
type Outcome struct {
	Member   string
	Rule     string
	Event    string
	Dialogue string
	Retired  bool
}

type Result struct {
	LineUp crew.LineUp
	Race   bool
	Events []Outcome

	// Promoted names the new archetype when the race boundary promoted the team.
	Promoted string
	Created  int
}

// ConfirmLineUp closes the current session. It blocks until the previous
// line-up has been persisted, records the line-up, runs feedback, rest,
// aging and events, advances the session and, after a race, applies the
// race boundary. Persisting the new line-up is queued and the call returns
// without waiting for it.
func (c *Controller) ConfirmLineUp(ctx context.Context) (Result, error) {
	if err := c.queue.acquire(ctx); err != nil {
		return Result{}, err
	}
	res, job, err := c.confirm()
	if err != nil {
		c.queue.release()
		return Result{}, err
	}
	c.queue.run(job)
	return res, nil
}

func (c *Controller) confirm() (Result, Job, error) {
	b := c.team.Boat
	res := Result{Race: c.IsRace()}

	lu := b.Snapshot()
	lu.IdealScore = b.IdealScore()
	lu.Mistakes = b.Mistakes(c.tune.Int(tuning.OpinionDislikeThreshold))
	lu.TimeOffset = int(c.clock().Sub(c.sessionStart).Seconds())
	seq := len(c.team.History())
	if err := c.team.Record(lu); err != nil {
		return Result{}, Job{}, fmt.Errorf("session: record line-up: %w", err)
	}
	res.LineUp = lu.Clone()

	c.feedback(lu)
	for _, m := range c.team.Active() {
		if res.Race && lu.Selected(m.Name) {
			m.SetRest(0)
		} else {
			m.SetRest(m.Rest() - 1)
		}
		m.AgeRevealedOpinions()
	}
	res.Events = c.runEvents(lu, res.Race)
	b = c.team.Boat
	b.UpdateScores()

	c.sessionCount++
	c.engaged = set.Set[string]{}
	c.sessionStart = c.clock()
	if res.Race {
		c.raceScores = append(c.raceScores, lu.Score)
		if c.promotionDue() {
			if created, ok := c.team.Promote(); ok {
				res.Promoted, res.Created = c.team.BoatType(), created
			}
		}
		c.team.RefreshRecruits()
		c.resetAllowances()
	}
	c.saveState()

	job := Job{
		Seq:      seq,
		Session:  c.sessionCount,
		Race:     res.Race,
		RaceNum:  len(c.raceScores),
		LineUp:   res.LineUp,
		Promoted: res.Promoted,
		Events:   append([]Outcome(nil), res.Events...),
		Manager:  c.team.Manager.Name,
		Beliefs:  snapshotBeliefs(c.team),
	}
	return res, job, nil
}

// feedback lets every active member compare themselves with each occupied
// slot. A member who would have rated better than the occupant by more than
// feedback_tolerance thinks less of that peer and, once per session, of the
// manager. A selected member with no grievance warms to the manager.
func (c *Controller) feedback(lu crew.LineUp) {
	tolerance := c.tune.Int(tuning.FeedbackTolerance)
	peerDelta := c.tune.Int(tuning.FeedbackPeerDelta)
	managerDelta := c.tune.Int(tuning.FeedbackManagerDelta)
	manager := c.team.Manager.Name

	for _, m := range c.team.Active() {
		grievance := false
		for _, s := range lu.Slots {
			if s.Member == "" || s.Member == m.Name {
				continue
			}
			slot := c.team.Boat.Slot(s.Position)
			peer := c.team.Member(s.Member)
			if slot == nil || peer == nil {
				continue
			}
			mine := crew.RatePosition(slot.Position, m)
			theirs := crew.RatePosition(slot.Position, peer)
			if mine-theirs > tolerance {
				m.AddOrUpdateOpinion(peer.Name, -peerDelta, false)
				grievance = true
			}
		}
		switch {
		case grievance:
			m.AddOrUpdateOpinion(manager, -managerDelta, false)
		case lu.Selected(m.Name):
			m.AddOrUpdateOpinion(manager, managerDelta, false)
		}
	}
}

func (c *Controller) runEvents(lu crew.LineUp, race bool) []Outcome {
	var candidates []*crew.CrewMember
	for _, m := range c.team.Active() {
		if !c.engaged.Contains(m.Name) {
			candidates = append(candidates, m)
		}
	}
	store := c.team.Store()
	sels := c.selector.Select(events.Input{
		Race:                    race,
		Candidates:              candidates,
		Engaged:                 c.engaged,
		LineUp:                  lu,
		Manager:                 c.team.Manager.Name,
		DislikeThreshold:        c.tune.Int(tuning.OpinionDislikeThreshold),
		RetirementRestThreshold: c.tune.Int(tuning.RetirementRestThreshold),
		MaxRetirements:          len(c.team.Active()) - c.team.MinCrew(),
		Seen: func(member, rule string) bool {
			return store != nil && store.Exists(member, belief.EventSeenKey(rule))
		},
	})

	var out []Outcome
	for _, sel := range sels {
		if !sel.Fired {
			continue
		}
		name := sel.Member.Name
		ev := c.mind.SelectEvent(name, sel.Rule.Events)
		c.mind.Appraise(name, []string{ev})
		if sel.Rule.Once && store != nil {
			store.Set(name, belief.EventSeenKey(sel.Rule.ID), "1")
		}
		o := Outcome{Member: name, Rule: sel.Rule.ID, Event: ev, Dialogue: c.mind.Dialogue(name, ev)}
		if sel.Rule.Retire {
			o.Retired = c.team.Retire(name)
		}
		out = append(out, o)
	}
	return out
}

// promotionDue evaluates every promotion_every_races races: the sum of the
// last promotion_race_window race scores must reach
// promotion_score_threshold.
func (c *Controller) promotionDue() bool {
	races := len(c.raceScores)
	every := c.tune.Int(tuning.PromotionEveryRaces)
	window := c.tune.Int(tuning.PromotionRaceWindow)
	if every < 1 || races%every != 0 || races < window {
		return false
	}
	sum := 0
	for _, s := range c.raceScores[races-window:] {
		sum += s
	}
	return sum >= c.tune.Int(tuning.PromotionScoreThreshold)
}
