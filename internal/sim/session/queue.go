package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"crewline.ai/internal/persistence/belief"
	"crewline.ai/internal/sim/crew"
	"crewline.ai/internal/sim/team"
)

// Job is everything needed to persist one confirmed line-up. Beliefs is a
// deep copy taken at confirm time, so later gameplay cannot reach it.
type Job struct {
	Seq      int
	Session  int
	Race     bool
	RaceNum  int
	LineUp   crew.LineUp
	Promoted string
	Events   []Outcome
	Manager  string
	Beliefs  *belief.Memory
}

// Persister writes a job. It runs on a background goroutine and is never
// cancelled once started.
type Persister interface {
	PersistLineUp(ctx context.Context, job Job) error
}

var ErrQueueClosed = errors.New("line-up queue closed")

// lineupQueue holds at most one outstanding job. acquire blocks until the
// previous job has finished.
type lineupQueue struct {
	persist Persister
	slot    chan struct{}

	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool

	mu  sync.Mutex
	err error
}

func newLineupQueue(p Persister) *lineupQueue {
	return &lineupQueue{persist: p, slot: make(chan struct{}, 1)}
}

func (q *lineupQueue) acquire(ctx context.Context) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *lineupQueue) release() { <-q.slot }

// run starts job on the held slot and frees the slot when it finishes.
func (q *lineupQueue) run(job Job) {
	if q.persist == nil {
		q.release()
		return
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer q.release()
		if err := q.persist.PersistLineUp(context.Background(), job); err != nil {
			q.mu.Lock()
			if q.err == nil {
				q.err = err
			}
			q.mu.Unlock()
		}
	}()
}

// Err returns the first persistence error.
func (q *lineupQueue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

func (q *lineupQueue) Close(ctx context.Context) error {
	q.once.Do(func() { q.closed.Store(true) })
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return q.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cloner is satisfied by belief.Memory.
type cloner interface {
	Clone() *belief.Memory
}

func snapshotBeliefs(t *team.Team) *belief.Memory {
	if c, ok := t.Store().(cloner); ok {
		return c.Clone()
	}
	return nil
}
