package main

import (
	"context"
	"log"
	"time"

	"github.com/dustin/go-humanize"

	"crewline.ai/internal/persistence/archive"
	"crewline.ai/internal/persistence/indexdb"
	persistlog "crewline.ai/internal/persistence/log"
	"crewline.ai/internal/persistence/savegame"
	"crewline.ai/internal/sim/session"
	"crewline.ai/internal/sim/team"
)

// gamePersister writes each confirmed session: the save directory first,
// then the journal, the read model and, after a race, the race archive.
type gamePersister struct {
	gameDir string
	saveDir string
	journal *persistlog.SessionLogger
	idx     *indexdb.SQLiteIndex // nil when disabled
	log     *log.Logger
}

func (p *gamePersister) PersistLineUp(ctx context.Context, job session.Job) error {
	start := time.Now()
	saved, size, err := savegame.Write(ctx, p.saveDir, job.Beliefs)
	if err != nil {
		return err
	}
	p.log.Printf("saved session=%d characters=%d size=%s in %s",
		job.Session, len(saved.Characters), humanize.Bytes(uint64(size)), time.Since(start).Round(time.Millisecond))

	raw, _ := job.Beliefs.Get(job.Manager, team.LineUpKey(job.Seq))
	entry := persistlog.SessionEntry{
		Seq:      job.Seq,
		Session:  job.Session,
		Race:     job.Race,
		LineUp:   raw,
		Score:    job.LineUp.Score,
		Promoted: job.Promoted,
		Time:     time.Now().UTC().Format(time.RFC3339),
	}
	if job.Race {
		entry.RaceNum = job.RaceNum
	}
	for _, o := range job.Events {
		entry.Events = append(entry.Events, persistlog.EventEntry{
			Member:  o.Member,
			Rule:    o.Rule,
			Event:   o.Event,
			Retired: o.Retired,
		})
	}
	if err := p.journal.WriteSession(entry); err != nil {
		p.log.Printf("journal: %v", err)
	}

	if p.idx != nil {
		p.idx.RecordLineUp(indexdb.LineUpRow{
			Seq:     job.Seq,
			Session: job.Session,
			Race:    job.Race,
			RaceNum: entry.RaceNum,
			LineUp:  job.LineUp,
			Raw:     raw,
		})
		p.idx.RecordSave(job.Session, p.saveDir, size)
		if job.Promoted != "" {
			p.idx.RecordPromotion(job.RaceNum, job.LineUp.BoatType, job.Promoted)
		}
	}

	if !job.Race {
		return nil
	}
	path, ok, err := archive.ArchiveRaceSave(p.gameDir, p.saveDir, saved, job.RaceNum, job.LineUp.Score)
	if err != nil {
		p.log.Printf("archive race %d: %v", job.RaceNum, err)
		return nil
	}
	if ok {
		p.log.Printf("race %d score=%d archived to %s", job.RaceNum, job.LineUp.Score, path)
		if p.idx != nil {
			p.idx.RecordRace(job.RaceNum, job.LineUp.Score, path)
		}
	}
	return nil
}
