package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"crewline.ai/internal/sim/catalogs"
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable read model of a game. The belief store and the
// save directories stay the source of truth; rows are written by a
// background goroutine and dropped if it falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropped atomic.Uint64
}

// QueueStats reports the writer queue for health output.
type QueueStats struct {
	QueueDepth    int
	QueueCapacity int
	DropTotal     uint64
}

func (s *SQLiteIndex) Stats() QueueStats {
	if s == nil {
		return QueueStats{}
	}
	return QueueStats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTotal:     s.dropped.Load(),
	}
}

type reqKind int

const (
	reqLineUp reqKind = iota + 1
	reqPromotion
	reqSave
	reqRace
	reqFlush
)

type req struct {
	kind reqKind

	lineUp    LineUpRow
	promotion PromotionRow
	save      saveRow
	race      raceRow
	done      chan struct{}
}

type LineUpRow struct {
	Seq     int
	Session int
	Race    bool
	RaceNum int
	LineUp  crew.LineUp
	// Raw is the encoded event-log entry.
	Raw string
}

type PromotionRow struct {
	RaceNum    int
	From       string
	To         string
	RecordedAt string
}

type saveRow struct {
	Session    int
	Path       string
	Bytes      int64
	RecordedAt string
}

type raceRow struct {
	Race       int
	Score      int
	Path       string
	RecordedAt string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS lineups (
			seq INTEGER PRIMARY KEY,
			session INTEGER NOT NULL,
			race INTEGER NOT NULL,
			race_num INTEGER NOT NULL,
			boat_type TEXT NOT NULL,
			score INTEGER NOT NULL,
			ideal_score INTEGER NOT NULL,
			mistakes TEXT NOT NULL,
			time_offset INTEGER NOT NULL,
			raw TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS lineup_slots (
			seq INTEGER NOT NULL,
			slot INTEGER NOT NULL,
			position TEXT NOT NULL,
			member TEXT NOT NULL,
			score INTEGER NOT NULL,
			PRIMARY KEY (seq, slot)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lineup_slots_member ON lineup_slots(member, seq);`,
		`CREATE TABLE IF NOT EXISTS promotions (
			race_num INTEGER PRIMARY KEY,
			from_type TEXT NOT NULL,
			to_type TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			session INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS races (
			race INTEGER PRIMARY KEY,
			score INTEGER NOT NULL,
			archive_path TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) send(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; saves remain the source of truth.
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) RecordLineUp(row LineUpRow) {
	row.LineUp = row.LineUp.Clone()
	s.send(req{kind: reqLineUp, lineUp: row})
}

func (s *SQLiteIndex) RecordPromotion(raceNum int, from, to string) {
	if raceNum <= 0 || to == "" {
		return
	}
	s.send(req{kind: reqPromotion, promotion: PromotionRow{
		RaceNum:    raceNum,
		From:       from,
		To:         to,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}})
}

func (s *SQLiteIndex) RecordSave(session int, path string, bytes int64) {
	s.send(req{kind: reqSave, save: saveRow{
		Session:    session,
		Path:       path,
		Bytes:      bytes,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}})
}

func (s *SQLiteIndex) RecordRace(race, score int, archivePath string) {
	if race <= 0 {
		return
	}
	s.send(req{kind: reqRace, race: raceRow{
		Race:       race,
		Score:      score,
		Path:       archivePath,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}})
}

// Flush waits until every request queued before it is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertCatalogs stores the catalogs and tuning the game runs with.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	positions := make([]map[string]any, 0, len(cats.Positions.Order))
	for _, name := range cats.Positions.Order {
		p := cats.Positions.ByName[name]
		positions = append(positions, map[string]any{"name": p.Name, "skills": p.Required.String()})
	}
	boats := make([]map[string]any, 0, len(cats.Boats.Types))
	for _, bt := range cats.Boats.Types {
		var names []string
		for _, p := range bt.Positions {
			names = append(names, p.Name)
		}
		boats = append(boats, map[string]any{"name": bt.Name, "positions": names})
	}
	var rows []kv
	add := func(name, digest string, v any) {
		if b, err := json.Marshal(v); err == nil {
			rows = append(rows, kv{name: name, digest: digest, json: b})
		}
	}
	add("positions", cats.Positions.Digest, positions)
	add("boats", cats.Boats.Digest, boats)
	add("names", cats.Names.Digest, cats.Names)
	add("events", cats.Events.Digest, cats.Events.Rules)
	add("tuning", tune.Digest(), tune.Map())

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LineUps returns the indexed line-ups in confirmation order, slots included.
func (s *SQLiteIndex) LineUps(ctx context.Context) ([]LineUpRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq,session,race,race_num,boat_type,score,ideal_score,mistakes,time_offset,raw FROM lineups ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LineUpRow
	for rows.Next() {
		var (
			r        LineUpRow
			race     int
			mistakes string
		)
		if err := rows.Scan(&r.Seq, &r.Session, &race, &r.RaceNum, &r.LineUp.BoatType, &r.LineUp.Score,
			&r.LineUp.IdealScore, &mistakes, &r.LineUp.TimeOffset, &r.Raw); err != nil {
			return nil, err
		}
		r.Race = race != 0
		if mistakes != "" {
			r.LineUp.Mistakes = strings.Split(mistakes, " ")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		slots, err := s.slots(ctx, out[i].Seq)
		if err != nil {
			return nil, err
		}
		out[i].LineUp.Slots = slots
	}
	return out, nil
}

func (s *SQLiteIndex) slots(ctx context.Context, seq int) ([]crew.LineUpSlot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT position,member,score FROM lineup_slots WHERE seq=? ORDER BY slot`, seq)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []crew.LineUpSlot
	for rows.Next() {
		var sl crew.LineUpSlot
		if err := rows.Scan(&sl.Position, &sl.Member, &sl.Score); err != nil {
			return nil, err
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Promotions(ctx context.Context) ([]PromotionRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT race_num,from_type,to_type,recorded_at FROM promotions ORDER BY race_num`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PromotionRow
	for rows.Next() {
		var p PromotionRow
		if err := rows.Scan(&p.RaceNum, &p.From, &p.To, &p.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CatalogDigest returns the stored digest for a catalog name.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	return d, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertLineUp, _ := s.db.Prepare(`INSERT OR REPLACE INTO lineups(seq,session,race,race_num,boat_type,score,ideal_score,mistakes,time_offset,raw) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertSlot, _ := s.db.Prepare(`INSERT OR REPLACE INTO lineup_slots(seq,slot,position,member,score) VALUES(?,?,?,?,?)`)
	insertPromotion, _ := s.db.Prepare(`INSERT OR REPLACE INTO promotions(race_num,from_type,to_type,recorded_at) VALUES(?,?,?,?)`)
	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(session,path,bytes,recorded_at) VALUES(?,?,?,?)`)
	insertRace, _ := s.db.Prepare(`INSERT OR REPLACE INTO races(race,score,archive_path,recorded_at) VALUES(?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertLineUp, insertSlot, insertPromotion, insertSave, insertRace} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqLineUp:
			lu := r.lineUp.LineUp
			race := 0
			if r.lineUp.Race {
				race = 1
			}
			if !exec(insertLineUp, r.lineUp.Seq, r.lineUp.Session, race, r.lineUp.RaceNum, lu.BoatType,
				lu.Score, lu.IdealScore, strings.Join(lu.Mistakes, " "), lu.TimeOffset, r.lineUp.Raw) {
				continue
			}
			for i, sl := range lu.Slots {
				if !exec(insertSlot, r.lineUp.Seq, i, sl.Position, sl.Member, sl.Score) {
					break
				}
			}
		case reqPromotion:
			p := r.promotion
			exec(insertPromotion, p.RaceNum, p.From, p.To, p.RecordedAt)
		case reqSave:
			sv := r.save
			exec(insertSave, sv.Session, sv.Path, sv.Bytes, sv.RecordedAt)
		case reqRace:
			rr := r.race
			exec(insertRace, rr.Race, rr.Score, rr.Path, rr.RecordedAt)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
