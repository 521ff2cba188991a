package indexdb

import (
	"testing"

	"crewline.ai/internal/sim/crew"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqSave}

	s.RecordLineUp(LineUpRow{Seq: 1, LineUp: crew.LineUp{BoatType: "Dinghy"}})
	s.RecordPromotion(1, "Dinghy", "Keelboat")
	s.RecordSave(1, "/tmp/save", 10)
	s.RecordRace(1, 30, "/tmp/archives/race_001")

	st := s.Stats()
	if st.DropTotal != 4 {
		t.Fatalf("DropTotal=%d want=4", st.DropTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_IgnoresInvalidRows(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 4)}
	s.RecordPromotion(0, "Dinghy", "Keelboat")
	s.RecordPromotion(1, "Dinghy", "")
	s.RecordRace(0, 10, "")
	if got := len(s.ch); got != 0 {
		t.Fatalf("queued %d invalid rows", got)
	}
}
