package team

import (
	"fmt"
	"strconv"

	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/persistence/lineuplog"
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/logic/roll"
)

// Load rebuilds a team from a store written by a previous game. The manager
// is the character whose status is manager; cfg.Manager and cfg.Seed are
// ignored.
func Load(cfg Config, store belief.Enumerable) (*Team, error) {
	manager, err := findManager(store)
	if err != nil {
		return nil, err
	}
	boatType, _ := store.Get(manager.Name, belief.KeyBoatType)
	bt, ok := cfg.Catalogs.Boats.Boat(boatType)
	if !ok {
		return nil, fmt.Errorf("team: %w: %q", ErrUnknownArchetype, boatType)
	}
	seed, err := managerInt(store, manager.Name, belief.KeySeed)
	if err != nil {
		return nil, err
	}
	counter, err := managerInt(store, manager.Name, belief.KeyRollCounter)
	if err != nil {
		return nil, err
	}

	cfg.Manager = manager
	cfg.Store = store
	t := newTeam(cfg, bt, roll.Resume(int64(seed), uint64(counter)))

	for _, name := range store.Characters() {
		status, _ := store.Get(name, belief.KeyStatus)
		if name == manager.Name || status == "" {
			continue
		}
		if status == belief.StatusDiscarded {
			t.names.reserve(name)
			continue
		}
		m, err := crew.LoadCrewMember(name, store)
		if err != nil {
			return nil, fmt.Errorf("team: load %s: %w", name, err)
		}
		t.names.reserve(name)
		switch status {
		case belief.StatusActive:
			t.active = insertSorted(t.active, m)
		case belief.StatusRetired:
			t.retired = insertSorted(t.retired, m)
		case belief.StatusRecruit:
			t.recruits = insertSorted(t.recruits, m)
		default:
			return nil, fmt.Errorf("team: %s has unknown status %q", name, status)
		}
	}
	for _, m := range t.active {
		label, _ := store.Get(m.Name, belief.KeyPosition)
		if slot := t.Boat.Slot(label); slot != nil && slot.CrewMember == nil {
			t.Boat.Assign(slot, m)
			continue
		}
		t.Boat.AddToUnassigned(m)
	}

	count, err := managerInt(store, manager.Name, belief.KeyLineUpCount)
	if err != nil {
		count = 0
	}
	for i := 0; i < count; i++ {
		raw, _ := store.Get(manager.Name, LineUpKey(i))
		e, err := lineuplog.Decode(raw, cfg.Catalogs.Boats.SlotCount)
		if err != nil {
			return nil, fmt.Errorf("team: line-up %d: %w", i, err)
		}
		lu, err := t.lineUpOf(e)
		if err != nil {
			return nil, err
		}
		for _, s := range lu.Slots {
			if s.Member != "" {
				t.names.reserve(s.Member)
			}
		}
		t.history = append(t.history, lu)
	}
	return t, nil
}

func findManager(store belief.Enumerable) (crew.Person, error) {
	for _, name := range store.Characters() {
		if v, _ := store.Get(name, belief.KeyStatus); v != belief.StatusManager {
			continue
		}
		p := crew.Person{Name: name}
		p.Gender, _ = store.Get(name, belief.KeyGender)
		if age, err := managerInt(store, name, belief.KeyAge); err == nil {
			p.Age = age
		}
		return p, nil
	}
	return crew.Person{}, fmt.Errorf("team: no manager record: %w", belief.ErrNotFound)
}

func managerInt(store belief.Store, manager, key string) (int, error) {
	v, ok := store.Get(manager, key)
	if !ok || v == "" {
		return 0, fmt.Errorf("team: %s/%s: %w", manager, key, belief.ErrNotFound)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("team: %s/%s: %w", manager, key, err)
	}
	return n, nil
}
