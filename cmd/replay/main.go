package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	persistlog "crewline.ai/internal/persistence/log"
	"crewline.ai/internal/persistence/savegame"
	"crewline.ai/internal/sim/catalogs"
	"crewline.ai/internal/sim/cognition"
	"crewline.ai/internal/sim/team"
	"crewline.ai/internal/sim/tuning"
)

func main() {
	var (
		saveDir   = flag.String("save", "", "save directory (contains index.json)")
		gameDir   = flag.String("game", "", "game directory with the session journal (optional)")
		configDir = flag.String("configs", "./configs", "config directory")
	)
	flag.Parse()

	if *saveDir == "" {
		fmt.Fprintln(os.Stderr, "missing -save")
		os.Exit(2)
	}
	if err := run(context.Background(), os.Stdout, *saveDir, *gameDir, *configDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, saveDir, gameDir, configDir string) error {
	cats, err := catalogs.Load(configDir)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	tune, err := tuning.Load(filepath.Join(configDir, "tuning.yaml"))
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}

	mem, idx, err := savegame.Read(ctx, saveDir)
	if err != nil {
		return fmt.Errorf("read save: %w", err)
	}
	mind := cognition.NewStatic(nil)
	mind.Bind(mem)
	tcfg := team.Config{Catalogs: cats, Tuning: tune, Mood: mind}
	t, err := team.Load(tcfg, mem)
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}

	fmt.Fprintf(out, "save v%d manager=%q boat=%s session=%d characters=%d saved=%s\n",
		idx.Version, idx.Manager, idx.BoatType, idx.Session, len(idx.Characters), idx.SavedAt)
	fmt.Fprintf(out, "crew active=%d retired=%d recruits=%d\n", len(t.Active()), len(t.Retired()), len(t.Recruits()))

	history := t.History()
	for i, lu := range history {
		var seats []string
		for _, s := range lu.Slots {
			who := s.Member
			if who == "" {
				who = "-"
			}
			seats = append(seats, fmt.Sprintf("%s=%s(%d)", s.Position, who, s.Score))
		}
		fmt.Fprintf(out, "%4d %-10s score=%3d ideal=%3d t=%ds %s", i, lu.BoatType, lu.Score, lu.IdealScore, lu.TimeOffset, strings.Join(seats, " "))
		if len(lu.Mistakes) > 0 {
			fmt.Fprintf(out, " mistakes=%s", strings.Join(lu.Mistakes, ","))
		}
		fmt.Fprintln(out)
	}

	// Round trip: writing the loaded game and loading it again must seat
	// the same crew for the same score.
	tmp, err := os.MkdirTemp("", "crewline-replay-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)
	_, size, err := savegame.Write(ctx, filepath.Join(tmp, "save"), mem.Clone())
	if err != nil {
		return fmt.Errorf("rewrite save: %w", err)
	}
	mem2, _, err := savegame.Read(ctx, filepath.Join(tmp, "save"))
	if err != nil {
		return fmt.Errorf("reread save: %w", err)
	}
	mind2 := cognition.NewStatic(nil)
	mind2.Bind(mem2)
	tcfg.Mood = mind2
	t2, err := team.Load(tcfg, mem2)
	if err != nil {
		return fmt.Errorf("reload team: %w", err)
	}
	a, b := t.Boat.Snapshot(), t2.Boat.Snapshot()
	if a.Score != b.Score {
		return fmt.Errorf("round trip score mismatch: %d != %d", a.Score, b.Score)
	}
	for i := range a.Slots {
		if a.Slots[i] != b.Slots[i] {
			return fmt.Errorf("round trip slot %s mismatch: %+v != %+v", a.Slots[i].Position, a.Slots[i], b.Slots[i])
		}
	}
	moods, moods2 := mind.Moods(), mind2.Moods()
	if len(moods) != len(moods2) {
		return fmt.Errorf("round trip moods mismatch: %v != %v", moods, moods2)
	}
	for name, v := range moods {
		if moods2[name] != v {
			return fmt.Errorf("round trip mood of %s mismatch: %v != %v", name, v, moods2[name])
		}
	}
	fmt.Fprintf(out, "round trip ok: score=%d moods=%d size=%s\n", a.Score, len(moods), humanize.Bytes(uint64(size)))

	if gameDir == "" {
		return nil
	}
	entries, err := persistlog.ReadSessions(gameDir)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	checked := 0
	for _, e := range entries {
		if e.Seq >= len(history) {
			continue
		}
		raw, _ := mem.Get(idx.Manager, team.LineUpKey(e.Seq))
		if raw != e.LineUp {
			return fmt.Errorf("journal seq %d disagrees with save: %q != %q", e.Seq, e.LineUp, raw)
		}
		checked++
	}
	fmt.Fprintf(out, "journal ok: %d of %d entries match the save\n", checked, len(entries))
	return nil
}
