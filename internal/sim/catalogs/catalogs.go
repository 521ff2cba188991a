package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crewline.ai/internal/persistence/lineuplog"
	"crewline.ai/internal/sim/crew"
)

// Catalogs is the static game data read from the config directory.
type Catalogs struct {
	Positions PositionCatalog
	Boats     BoatCatalog
	Names     NameCatalog
	Events    EventCatalog
}

type PositionCatalog struct {
	ByName map[string]crew.Position
	Order  []string
	Digest string
}

type positionDef struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
}

type BoatType struct {
	Name      string
	Positions []crew.Position
}

// BoatCatalog keeps archetypes in file order, which is also promotion order.
type BoatCatalog struct {
	Types  []BoatType
	Digest string
}

type boatDef struct {
	Name      string   `json:"name"`
	Positions []string `json:"positions"`
}

type NameCatalog struct {
	Male   []string `json:"male"`
	Female []string `json:"female"`
	Last   []string `json:"last"`
	Digest string   `json:"-"`
}

// Event rule triggers.
const (
	TriggerNotSelected    = "not_selected"
	TriggerSelected       = "selected"
	TriggerRetirement     = "retirement"
	TriggerManagerDislike = "manager_dislike"
)

// Session kinds a rule applies to.
const (
	WhenRace     = "race"
	WhenPractice = "practice"
	WhenAny      = "any"
)

type EventRule struct {
	ID      string   `json:"id"`
	When    string   `json:"when"`
	Trigger string   `json:"trigger"`
	Chance  int      `json:"chance"`
	Events  []string `json:"events"`
	Once    bool     `json:"once,omitempty"`
	Retire  bool     `json:"retire,omitempty"`
}

// Applies reports whether the rule runs after a race or practice session.
func (r EventRule) Applies(race bool) bool {
	switch r.When {
	case WhenAny:
		return true
	case WhenRace:
		return race
	default:
		return !race
	}
}

// EventCatalog keeps rules in file order, which is selection priority.
type EventCatalog struct {
	Rules  []EventRule
	Digest string
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadPositions(filepath.Join(configDir, "positions.json"), &c.Positions); err != nil {
		return nil, err
	}
	if err := loadBoats(filepath.Join(configDir, "boats.json"), c.Positions, &c.Boats); err != nil {
		return nil, err
	}
	if err := loadNames(filepath.Join(configDir, "names.json"), &c.Names); err != nil {
		return nil, err
	}
	if err := loadEvents(filepath.Join(configDir, "events.json"), &c.Events); err != nil {
		return nil, err
	}
	return &c, nil
}

// Digests returns each catalog's content hash keyed by file name.
func (c *Catalogs) Digests() map[string]string {
	return map[string]string{
		"positions.json": c.Positions.Digest,
		"boats.json":     c.Boats.Digest,
		"names.json":     c.Names.Digest,
		"events.json":    c.Events.Digest,
	}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadPositions(path string, out *PositionCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []positionDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("positions.json: %w", err)
	}
	out.ByName = map[string]crew.Position{}
	for _, d := range defs {
		if d.Name == "" {
			return fmt.Errorf("positions.json: empty name")
		}
		if _, dup := out.ByName[d.Name]; dup {
			return fmt.Errorf("positions.json: duplicate %q", d.Name)
		}
		if len(d.Skills) == 0 {
			return fmt.Errorf("positions.json: %s requires no skills", d.Name)
		}
		var set crew.SkillSet
		for _, s := range d.Skills {
			sk, err := crew.ParseSkill(s)
			if err != nil {
				return fmt.Errorf("positions.json: %s: %w", d.Name, err)
			}
			set |= crew.NewSkillSet(sk)
		}
		out.ByName[d.Name] = crew.Position{Name: d.Name, Description: d.Description, Required: set}
		out.Order = append(out.Order, d.Name)
	}
	return nil
}

func loadBoats(path string, positions PositionCatalog, out *BoatCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []boatDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("boats.json: %w", err)
	}
	if len(defs) == 0 {
		return fmt.Errorf("boats.json: no boat types")
	}
	seen := map[string]bool{}
	for _, d := range defs {
		if d.Name == "" || strings.Contains(d.Name, lineuplog.Delimiter) {
			return fmt.Errorf("boats.json: bad name %q", d.Name)
		}
		if seen[d.Name] {
			return fmt.Errorf("boats.json: duplicate %q", d.Name)
		}
		seen[d.Name] = true
		if len(d.Positions) == 0 {
			return fmt.Errorf("boats.json: %s has no positions", d.Name)
		}
		bt := BoatType{Name: d.Name}
		slots := map[string]bool{}
		for _, name := range d.Positions {
			p, ok := positions.ByName[name]
			if !ok {
				return fmt.Errorf("boats.json: %s: unknown position %q", d.Name, name)
			}
			if slots[name] {
				return fmt.Errorf("boats.json: %s: position %q listed twice", d.Name, name)
			}
			slots[name] = true
			bt.Positions = append(bt.Positions, p)
		}
		out.Types = append(out.Types, bt)
	}
	return nil
}

// Boat returns the archetype called name.
func (c BoatCatalog) Boat(name string) (BoatType, bool) {
	for _, bt := range c.Types {
		if bt.Name == name {
			return bt, true
		}
	}
	return BoatType{}, false
}

// Next returns the archetype after name in promotion order. ok is false for
// the last archetype or an unknown one.
func (c BoatCatalog) Next(name string) (BoatType, bool) {
	for i, bt := range c.Types {
		if bt.Name == name && i+1 < len(c.Types) {
			return c.Types[i+1], true
		}
	}
	return BoatType{}, false
}

// First is the archetype a new game starts with.
func (c BoatCatalog) First() BoatType { return c.Types[0] }

// SlotCount adapts the catalog for lineuplog.Decode.
func (c BoatCatalog) SlotCount(name string) (int, bool) {
	bt, ok := c.Boat(name)
	return len(bt.Positions), ok
}

func loadNames(path string, out *NameCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("names.json: %w", err)
	}
	out.Digest = sha256Hex(raw)
	for _, list := range [][]string{out.Male, out.Female, out.Last} {
		if len(list) == 0 {
			return fmt.Errorf("names.json: empty name list")
		}
		for _, n := range list {
			if n == "" || strings.Contains(n, lineuplog.Delimiter) {
				return fmt.Errorf("names.json: bad name %q", n)
			}
		}
	}
	return nil
}

func loadEvents(path string, out *EventCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := json.Unmarshal(raw, &out.Rules); err != nil {
		return fmt.Errorf("events.json: %w", err)
	}
	ids := map[string]bool{}
	for _, r := range out.Rules {
		if r.ID == "" {
			return fmt.Errorf("events.json: missing id")
		}
		if ids[r.ID] {
			return fmt.Errorf("events.json: duplicate %q", r.ID)
		}
		ids[r.ID] = true
		switch r.Trigger {
		case TriggerNotSelected, TriggerSelected, TriggerRetirement, TriggerManagerDislike:
		default:
			return fmt.Errorf("events.json: %s: unknown trigger %q", r.ID, r.Trigger)
		}
		switch r.When {
		case WhenRace, WhenPractice, WhenAny:
		default:
			return fmt.Errorf("events.json: %s: unknown when %q", r.ID, r.When)
		}
		if r.Chance < 0 || r.Chance > 100 {
			return fmt.Errorf("events.json: %s: chance %d out of range", r.ID, r.Chance)
		}
		if len(r.Events) == 0 {
			return fmt.Errorf("events.json: %s: no events", r.ID)
		}
	}
	return nil
}
