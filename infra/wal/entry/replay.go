package entry

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

type ReplayHandler func(*Record) error

// Replay reads every record in dir in order and calls fn for those with a
// sequence above from. fn may be nil to only scan. A frame cut short at the
// very end of the newest segment ends the replay without error; anywhere
// else it is corruption.
func Replay(dir string, from uint64, fn ReplayHandler) (lastSeq uint64, err error) {
	idxs, err := segmentIndexes(dir)
	if err != nil {
		return 0, err
	}

	for i, idx := range idxs {
		last, err := replaySegment(segmentPath(dir, idx), i == len(idxs)-1, lastSeq, from, fn)
		lastSeq = last
		if err != nil {
			return lastSeq, err
		}
	}
	return lastSeq, nil
}

func replaySegment(path string, newest bool, lastSeq, from uint64, fn ReplayHandler) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return lastSeq, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		rec, _, err := readFrame(r)
		if err == io.EOF {
			return lastSeq, nil
		}
		if err == io.ErrUnexpectedEOF && newest {
			return lastSeq, nil
		}
		if err != nil {
			return lastSeq, fmt.Errorf("%s: %w", path, err)
		}

		if rec.Seq <= lastSeq {
			return lastSeq, fmt.Errorf("non-monotonic seq %d", rec.Seq)
		}
		lastSeq = rec.Seq

		if fn == nil || rec.Seq <= from {
			continue
		}
		if err := fn(rec); err != nil {
			return lastSeq, err
		}
	}
}
