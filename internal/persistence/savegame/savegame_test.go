package savegame

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"crewline.ai/internal/persistence/belief"
)

func sampleStore() *belief.Memory {
	m := belief.NewMemory()
	m.Set("Skip Harbour", belief.KeyStatus, belief.StatusManager)
	m.Set("Skip Harbour", belief.KeyBoatType, "Dinghy")
	m.Set("Skip Harbour", belief.KeySessionCount, "4")
	m.Set("Skip Harbour", "lineup:0000", "Dinghy,Ann Hale,10,null,0,Bo Reed,7,20,empty_position,12")
	m.Set("Ann Hale", belief.KeyStatus, belief.StatusActive)
	m.Set("Ann Hale", belief.OpinionKey("Bo Reed"), "-2")
	m.Set("Bo Reed", belief.KeyStatus, belief.StatusRetired)
	m.Set("Cy O'Neil", belief.KeyStatus, belief.StatusRecruit)
	return m
}

func TestWriteRead_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "save")
	src := sampleStore()

	idx, size, err := Write(context.Background(), dir, src)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if idx.Manager != "Skip Harbour" || idx.BoatType != "Dinghy" || idx.Session != 4 {
		t.Fatalf("index=%+v", idx)
	}
	if len(idx.Characters) != 4 {
		t.Fatalf("characters=%d", len(idx.Characters))
	}
	if size <= 0 {
		t.Fatalf("size=%d", size)
	}
	if _, err := os.Stat(dir + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp dir left behind: %v", err)
	}

	got, gotIdx, err := Read(context.Background(), dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(gotIdx.Characters, idx.Characters) {
		t.Fatalf("index mismatch: %+v vs %+v", gotIdx.Characters, idx.Characters)
	}
	for _, c := range src.Characters() {
		if !reflect.DeepEqual(src.Record(c), got.Record(c)) {
			t.Fatalf("%s: record mismatch\n got %v\nwant %v", c, got.Record(c), src.Record(c))
		}
	}
}

func TestWrite_ReplacesPreviousSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "save")
	src := sampleStore()
	if _, _, err := Write(context.Background(), dir, src); err != nil {
		t.Fatalf("write: %v", err)
	}
	src.Set("Ann Hale", belief.KeyRest, "-4")
	if _, _, err := Write(context.Background(), dir, src); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	got, _, err := Read(context.Background(), dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v, _ := got.Get("Ann Hale", belief.KeyRest); v != "-4" {
		t.Fatalf("rest=%q", v)
	}
}

func TestWrite_RequiresManager(t *testing.T) {
	m := belief.NewMemory()
	m.Set("Ann Hale", belief.KeyStatus, belief.StatusActive)
	if _, _, err := Write(context.Background(), filepath.Join(t.TempDir(), "save"), m); err == nil {
		t.Fatalf("expected error without manager")
	}
}

func TestRead_RejectsMismatchedRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "save")
	idx, _, err := Write(context.Background(), dir, sampleStore())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	a := filepath.Join(dir, idx.Characters[0].File)
	b := filepath.Join(dir, idx.Characters[1].File)
	raw, err := os.ReadFile(b)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(a, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Read(context.Background(), dir); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestSlug(t *testing.T) {
	if got := slug("Cy O'Neil"); got != "cy_o_neil" {
		t.Fatalf("slug=%q", got)
	}
}
