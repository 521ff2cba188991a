// Package session is the top-level state machine of a game: the per-race
// allowances, the actions that spend them, and the confirm step that closes
// a session.
package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ErikKalkoken/go-set"

	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/sim/cognition"
	"crewline.ai/internal/sim/events"
	"crewline.ai/internal/sim/team"
	"crewline.ai/internal/sim/tuning"
)

type Config struct {
	Team    *team.Team
	// Mind should be the mood source the team's boat was built with. Nil
	// falls back to a cognition.Static.
	Mind    cognition.Engine
	// Persist receives one job per confirmed line-up. Nil disables it.
	Persist Persister
	// Clock defaults to time.Now.
	Clock   func() time.Time
}

// Controller is not safe for concurrent use. Only the persistence of a
// confirmed line-up runs off the caller's goroutine.
type Controller struct {
	team     *team.Team
	mind     cognition.Engine
	tune     tuning.Tuning
	selector *events.Selector
	queue    *lineupQueue
	clock    func() time.Time

	sessionCount      int
	actionAllowance   int
	crewEditAllowance int
	raceScores        []int

	engaged      set.Set[string]
	sessionStart time.Time
}

func newController(cfg Config) *Controller {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	mind := cfg.Mind
	if mind == nil {
		mind = cognition.NewStatic(nil)
	}
	t := cfg.Team
	c := &Controller{
		team:     t,
		mind:     mind,
		tune:     t.Tuning(),
		selector: events.NewSelector(t.Catalogs().Events.Rules, t.Roll()),
		queue:    newLineupQueue(cfg.Persist),
		clock:    clock,
	}
	c.sessionStart = c.clock()
	return c
}

// New starts the controller for a fresh team.
func New(cfg Config) *Controller {
	c := newController(cfg)
	c.resetAllowances()
	c.saveState()
	return c
}

// Resume restores the controller state kept on the manager record. A team
// that never confirmed a session starts with full allowances.
func Resume(cfg Config) (*Controller, error) {
	c := newController(cfg)
	store, manager := c.team.Store(), c.team.Manager.Name
	raw, ok := store.Get(manager, belief.KeySessionCount)
	if !ok || raw == "" {
		c.resetAllowances()
		c.saveState()
		return c, nil
	}
	var err error
	if c.sessionCount, err = strconv.Atoi(raw); err != nil {
		return nil, fmt.Errorf("session: %s: %w", belief.KeySessionCount, err)
	}
	for key, dst := range map[string]*int{
		belief.KeyActionAllowance:   &c.actionAllowance,
		belief.KeyCrewEditAllowance: &c.crewEditAllowance,
	} {
		v, _ := store.Get(manager, key)
		if *dst, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("session: %s: %w", key, err)
		}
	}
	scores, _ := store.Get(manager, belief.KeyRaceScores)
	if c.raceScores, err = parseScores(scores); err != nil {
		return nil, fmt.Errorf("session: %s: %w", belief.KeyRaceScores, err)
	}
	return c, nil
}

func (c *Controller) Team() *team.Team { return c.team }

func (c *Controller) ActionAllowance() int   { return c.actionAllowance }
func (c *Controller) CrewEditAllowance() int { return c.crewEditAllowance }

// SessionCount is the number of confirmed sessions.
func (c *Controller) SessionCount() int { return c.sessionCount }

// SessionInRace is the 0-based index of the current session in its race
// block. The last index is the race itself.
func (c *Controller) SessionInRace() int {
	return c.sessionCount % c.tune.Int(tuning.RaceSessionLength)
}

// IsRace reports whether the current session is a race.
func (c *Controller) IsRace() bool {
	return c.SessionInRace() == c.tune.Int(tuning.RaceSessionLength)-1
}

// RaceScores holds the aggregate score of every race so far.
func (c *Controller) RaceScores() []int { return append([]int(nil), c.raceScores...) }

// Engaged lists the members the manager spent actions on this session.
func (c *Controller) Engaged() []string {
	var out []string
	for _, m := range c.team.Active() {
		if c.engaged.Contains(m.Name) {
			out = append(out, m.Name)
		}
	}
	return out
}

// Close waits for the outstanding persistence job and returns the first
// persistence error seen.
func (c *Controller) Close(ctx context.Context) error {
	return c.queue.Close(ctx)
}

func (c *Controller) resetAllowances() {
	positions := len(c.team.Boat.Positions)
	c.actionAllowance = c.tune.Int(tuning.ActionAllowancePerPosition) * positions
	c.crewEditAllowance = c.tune.Int(tuning.CrewEditAllowancePerPosition) * positions
}

func (c *Controller) saveState() {
	store, manager := c.team.Store(), c.team.Manager.Name
	if store == nil {
		return
	}
	store.Set(manager, belief.KeySessionCount, strconv.Itoa(c.sessionCount))
	store.Set(manager, belief.KeyActionAllowance, strconv.Itoa(c.actionAllowance))
	store.Set(manager, belief.KeyCrewEditAllowance, strconv.Itoa(c.crewEditAllowance))
	store.Set(manager, belief.KeyRaceScores, formatScores(c.raceScores))
	c.team.PersistState()
}

func formatScores(scores []int) string {
	parts := make([]string, 0, len(scores))
	for _, s := range scores {
		parts = append(parts, strconv.Itoa(s))
	}
	return strings.Join(parts, " ")
}

func parseScores(raw string) ([]int, error) {
	var out []int
	for _, f := range strings.Fields(raw) {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
