package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"crewline.ai/internal/persistence/indexdb"
	persistlog "crewline.ai/internal/persistence/log"
	"crewline.ai/internal/persistence/savegame"
	"crewline.ai/internal/sim/catalogs"
	"crewline.ai/internal/sim/simtest"
	"crewline.ai/internal/sim/tuning"
)

func loadConfigs(t *testing.T, cfg serverConfig) (*catalogs.Catalogs, tuning.Tuning) {
	t.Helper()
	cats, err := catalogs.Load(cfg.ConfigDir)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tune, err := tuning.Load(filepath.Join(cfg.ConfigDir, "tuning.yaml"))
	if err != nil {
		t.Fatalf("tuning: %v", err)
	}
	return cats, tune
}

func TestGame_PersistsRaceAndResumes(t *testing.T) {
	ctx := context.Background()
	cfg, err := parseConfig([]string{"-data", t.TempDir(), "-configs", "../../configs", "-seed", "11"}, map[string]string{})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	cats, tune := loadConfigs(t, cfg)

	idx, err := indexdb.OpenSQLite(filepath.Join(cfg.gameDir(), "index", "game.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	journal := persistlog.NewSessionLogger(cfg.gameDir())
	p := &gamePersister{
		gameDir: cfg.gameDir(),
		saveDir: cfg.saveDir(),
		journal: journal,
		idx:     idx,
		log:     log.New(io.Discard, "", 0),
	}

	g, err := openGame(ctx, cfg, cats, tune, p)
	if err != nil {
		t.Fatalf("openGame: %v", err)
	}
	if g.resumed {
		t.Fatalf("fresh data dir resumed a game")
	}

	simtest.SeatBest(g.ctl.Team().Boat)
	for i := 0; i < 3; i++ {
		if i == 2 {
			// Shift seated moods so the mood term takes part in the
			// resumed score.
			for j, bp := range g.ctl.Team().Boat.Positions {
				if bp.CrewMember != nil {
					g.mind.SetMood(bp.CrewMember.Name, float64(j%3)-0.5)
				}
			}
		}
		if _, err := g.ctl.ConfirmLineUp(ctx); err != nil {
			t.Fatalf("confirm %d: %v", i, err)
		}
	}
	if err := g.ctl.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := journal.Close(); err != nil {
		t.Fatalf("journal close: %v", err)
	}

	rows, err := idx.LineUps(ctx)
	if err != nil {
		t.Fatalf("LineUps: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("lineups=%d want 3", len(rows))
	}
	if rows[1].Race || !rows[2].Race || rows[2].RaceNum != 1 {
		t.Fatalf("race flags: %+v %+v", rows[1], rows[2])
	}

	entries, err := persistlog.ReadSessions(cfg.gameDir())
	if err != nil {
		t.Fatalf("ReadSessions: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("journal entries=%d want 3", len(entries))
	}
	for i, e := range entries {
		if e.Seq != i || e.LineUp != rows[i].Raw {
			t.Fatalf("journal %d = seq %d %q, index raw %q", i, e.Seq, e.LineUp, rows[i].Raw)
		}
	}

	archived := filepath.Join(cfg.gameDir(), "archives", "race_001")
	for _, f := range []string{savegame.IndexFile, "meta.json"} {
		if _, err := os.Stat(filepath.Join(archived, f)); err != nil {
			t.Fatalf("archive %s: %v", f, err)
		}
	}

	g2, err := openGame(ctx, cfg, cats, tune, p)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = g2.ctl.Close(ctx) })
	if !g2.resumed {
		t.Fatalf("existing save was not resumed")
	}
	if g2.ctl.SessionCount() != 3 {
		t.Fatalf("session count=%d want 3", g2.ctl.SessionCount())
	}
	if a, b := g.ctl.RaceScores(), g2.ctl.RaceScores(); len(a) != len(b) || a[0] != b[0] {
		t.Fatalf("race scores %v != %v", a, b)
	}
	if g.ctl.ActionAllowance() != g2.ctl.ActionAllowance() {
		t.Fatalf("allowance %d != %d", g.ctl.ActionAllowance(), g2.ctl.ActionAllowance())
	}

	moods, moods2 := g.mind.Moods(), g2.mind.Moods()
	if len(moods) == 0 {
		t.Fatalf("no moods recorded before save")
	}
	if len(moods) != len(moods2) {
		t.Fatalf("moods before save %v, after reload %v", moods, moods2)
	}
	for name, v := range moods {
		if moods2[name] != v {
			t.Fatalf("mood of %s: %v before save, %v after reload", name, v, moods2[name])
		}
	}

	t1, t2 := g.ctl.Team(), g2.ctl.Team()
	if t1.BoatType() != t2.BoatType() || len(t1.Active()) != len(t2.Active()) || len(t1.History()) != len(t2.History()) {
		t.Fatalf("team shape changed on reload")
	}
	for i := range t1.Boat.Positions {
		a, b := t1.Boat.Positions[i].CrewMember, t2.Boat.Positions[i].CrewMember
		if (a == nil) != (b == nil) || (a != nil && a.Name != b.Name) {
			t.Fatalf("slot %d occupant changed on reload", i)
		}
	}
	if t1.Boat.Score != t2.Boat.Score {
		t.Fatalf("boat score before save=%d after reload=%d", t1.Boat.Score, t2.Boat.Score)
	}
}

func TestGame_NewFlagIgnoresSave(t *testing.T) {
	ctx := context.Background()
	cfg, err := parseConfig([]string{"-data", t.TempDir(), "-configs", "../../configs", "-new"}, map[string]string{})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	cats, tune := loadConfigs(t, cfg)

	if err := os.MkdirAll(cfg.saveDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.saveDir(), savegame.IndexFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	g, err := openGame(ctx, cfg, cats, tune, nil)
	if err != nil {
		t.Fatalf("openGame: %v", err)
	}
	t.Cleanup(func() { _ = g.ctl.Close(ctx) })
	if g.resumed || g.ctl.SessionCount() != 0 {
		t.Fatalf("resumed=%v sessions=%d", g.resumed, g.ctl.SessionCount())
	}
}
