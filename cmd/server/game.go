package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/persistence/savegame"
	"crewline.ai/internal/sim/catalogs"
	"crewline.ai/internal/sim/cognition"
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/session"
	"crewline.ai/internal/sim/team"
	"crewline.ai/internal/sim/tuning"
)

type game struct {
	ctl     *session.Controller
	mind    *cognition.Static
	resumed bool
}

// openGame resumes the save in cfg.saveDir() unless it is missing or a new
// game was requested.
func openGame(ctx context.Context, cfg serverConfig, cats *catalogs.Catalogs, tune tuning.Tuning, persist session.Persister) (*game, error) {
	mind := cognition.NewStatic(nil)
	tcfg := team.Config{
		Catalogs: cats,
		Tuning:   tune,
		Mood:     mind,
		Manager:  crew.Person{Name: cfg.Manager, Age: 45, Gender: "female"},
		Seed:     cfg.Seed,
	}
	scfg := session.Config{Mind: mind, Persist: persist}

	if !cfg.NewGame && saveExists(cfg.saveDir()) {
		mem, idx, err := savegame.Read(ctx, cfg.saveDir())
		if err != nil {
			return nil, fmt.Errorf("read save: %w", err)
		}
		mind.Bind(mem)
		t, err := team.Load(tcfg, mem)
		if err != nil {
			return nil, err
		}
		scfg.Team = t
		ctl, err := session.Resume(scfg)
		if err != nil {
			return nil, err
		}
		if t.Manager.Name != idx.Manager {
			return nil, fmt.Errorf("save index names manager %q, records name %q", idx.Manager, t.Manager.Name)
		}
		return &game{ctl: ctl, mind: mind, resumed: true}, nil
	}

	mem := belief.NewMemory()
	mind.Bind(mem)
	tcfg.Store = mem
	t, err := team.New(tcfg)
	if err != nil {
		return nil, err
	}
	scfg.Team = t
	return &game{ctl: session.New(scfg), mind: mind}, nil
}

func saveExists(saveDir string) bool {
	_, err := os.Stat(filepath.Join(saveDir, savegame.IndexFile))
	return err == nil
}
