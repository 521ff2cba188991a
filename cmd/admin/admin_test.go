package main

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"crewline.ai/internal/persistence/archive"
	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/persistence/indexdb"
	"crewline.ai/internal/persistence/savegame"
	"crewline.ai/internal/sim/crew"
)

func sampleSave(session string) *belief.Memory {
	m := belief.NewMemory()
	m.Set("Robin Marsh", belief.KeyStatus, belief.StatusManager)
	m.Set("Robin Marsh", belief.KeyBoatType, "Dinghy")
	m.Set("Robin Marsh", belief.KeySessionCount, session)
	m.Set("Ann Hale", belief.KeyStatus, belief.StatusActive)
	return m
}

func TestRollback_RestoresArchivedRace(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	saveDir := filepath.Join(dir, "save")

	idx, _, err := savegame.Write(ctx, saveDir, sampleSave("3"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := archive.ArchiveRaceSave(dir, saveDir, idx, 1, 20); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, _, err := savegame.Write(ctx, saveDir, sampleSave("5")); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, err := rollback(ctx, dir, 1)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if got.Session != 3 {
		t.Fatalf("session=%d want 3", got.Session)
	}
	_, cur, err := savegame.Read(ctx, saveDir)
	if err != nil || cur.Session != 3 {
		t.Fatalf("current save session=%d err=%v", cur.Session, err)
	}

	if _, err := rollback(ctx, dir, 2); err == nil {
		t.Fatalf("expected missing archive error")
	}
	if _, cur, _ := savegame.Read(ctx, saveDir); cur.Session != 3 {
		t.Fatalf("failed rollback touched the save: session=%d", cur.Session)
	}
}

func TestQueryRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.sqlite")
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	idx.RecordLineUp(indexdb.LineUpRow{Seq: 0, LineUp: crew.LineUp{BoatType: "Dinghy", Score: 17}})
	idx.RecordPromotion(2, "Dinghy", "Keelboat")
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var out bytes.Buffer
	if err := queryRows(db, &out, "lineups", 5); err != nil {
		t.Fatalf("lineups: %v", err)
	}
	if !strings.Contains(out.String(), `"boat_type":"Dinghy"`) || !strings.Contains(out.String(), `"score":17`) {
		t.Fatalf("lineups output: %s", out.String())
	}
	out.Reset()
	if err := queryRows(db, &out, "promotions", 0); err != nil {
		t.Fatalf("promotions: %v", err)
	}
	if !strings.Contains(out.String(), `"to_type":"Keelboat"`) {
		t.Fatalf("promotions output: %s", out.String())
	}
	if err := queryRows(db, &out, "agents", 5); err == nil {
		t.Fatalf("expected unknown query error")
	}
}
