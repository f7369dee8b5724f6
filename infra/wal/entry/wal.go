// Package entry is the instruction journal. Every committed instruction is
// appended as a CRC-framed record to size-rotated segment files, and the
// state store can be rebuilt from genesis by replaying them.
package entry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Henry-E/auction-house/infra/memory"
)

var frames = memory.NewBufferPool(512)

type Config struct {
	Dir         string
	SegmentSize int64
}

type WAL struct {
	mu       sync.Mutex
	dir      string
	segSize  int64
	current  *segment
	segIndex int
	lastSeq  uint64
}

// Open continues the journal in dir. A frame cut short by a crash at the
// tail of the newest segment is truncated away.
func Open(cfg Config) (*WAL, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	if cfg.SegmentSize <= 0 {
		return nil, errors.New("journal: segment size must be positive")
	}

	idxs, err := segmentIndexes(cfg.Dir)
	if err != nil {
		return nil, err
	}
	w := &WAL{dir: cfg.Dir, segSize: cfg.SegmentSize}

	if len(idxs) > 0 {
		w.segIndex = idxs[len(idxs)-1]
		last, err := Replay(cfg.Dir, 0, nil)
		if err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		w.lastSeq = last
		if err := repairTail(segmentPath(cfg.Dir, w.segIndex)); err != nil {
			return nil, err
		}
	}

	seg, err := openSegment(cfg.Dir, w.segIndex)
	if err != nil {
		return nil, err
	}
	w.current = seg
	return w, nil
}

// LastSeq is the sequence of the newest record in the journal.
func (w *WAL) LastSeq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeq
}

func (w *WAL) Append(r *Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if r.Seq <= w.lastSeq {
		return fmt.Errorf("journal: seq %d not after %d", r.Seq, w.lastSeq)
	}
	buf := frames.Get()
	*buf = appendFrame(*buf, r)
	err := w.current.append(*buf)
	frames.Put(buf)
	if err != nil {
		return err
	}
	w.lastSeq = r.Seq

	if w.current.offset >= w.segSize {
		return w.rotate()
	}
	return nil
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.close()
}

func (w *WAL) rotate() error {
	_ = w.current.close()
	w.segIndex++

	seg, err := openSegment(w.dir, w.segIndex)
	if err != nil {
		return err
	}
	w.current = seg
	return nil
}

// repairTail cuts the file after its last whole frame.
func repairTail(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var good int64
	for {
		_, n, err := readFrame(r)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return err
		}
		good += n
	}
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.Size() == good {
		return nil
	}
	return f.Truncate(good)
}
