// Package roll produces deterministic pseudo-random rolls from a seed and a
// monotonically increasing counter, so that a saved game replays the same
// recruits, names and event picks after a reload.
package roll

import "crewline.ai/internal/sim/logic/mathx"

type Roller struct {
	seed int64
	n    uint64
}

func New(seed int64) *Roller {
	return &Roller{seed: seed}
}

// Resume continues a roller from a persisted counter.
func Resume(seed int64, counter uint64) *Roller {
	return &Roller{seed: seed, n: counter}
}

func (r *Roller) Seed() int64     { return r.seed }
func (r *Roller) Counter() uint64 { return r.n }

func (r *Roller) next() uint64 {
	r.n++
	return mathx.Hash3(r.seed, int(r.n), int(r.n>>32), 7919)
}

// Intn returns a value in [0,n). n <= 0 yields 0.
func (r *Roller) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.next() % uint64(n))
}

// Between returns a value in [lo,hi].
func (r *Roller) Between(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Percent reports whether a roll in [0,100) lands under chance.
func (r *Roller) Percent(chance int) bool {
	if chance <= 0 {
		return false
	}
	if chance >= 100 {
		return true
	}
	return r.Intn(100) < chance
}
