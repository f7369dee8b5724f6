// Package sequence numbers journal records.
package sequence

import "sync/atomic"

// Sequencer numbers journal records. Issue hands out the number for the
// next record; Release takes it back when the append carrying it failed,
// so the journal never has a gap.
type Sequencer struct {
	last atomic.Uint64
}

// New creates a sequencer whose last issued number is last. A fresh
// journal starts at 0, so its first record is 1.
func New(last uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(last)
	return s
}

func (s *Sequencer) Issue() uint64 {
	return s.last.Add(1)
}

// Release gives seq back. Only the most recently issued number can be
// released; it reports false otherwise.
func (s *Sequencer) Release(seq uint64) bool {
	return seq > 0 && s.last.CompareAndSwap(seq, seq-1)
}

func (s *Sequencer) Last() uint64 {
	return s.last.Load()
}

// Resume moves the sequencer up to the journal's final sequence after a
// replay. It never moves backwards and returns the number now in effect.
func (s *Sequencer) Resume(journalSeq uint64) uint64 {
	for {
		cur := s.last.Load()
		if journalSeq <= cur {
			return cur
		}
		if s.last.CompareAndSwap(cur, journalSeq) {
			return journalSeq
		}
	}
}
