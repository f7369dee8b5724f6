package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Writer struct {
	Dir string
}

// Write stores s as <dir>/snapshot-<auction>-<seq>.bin.zst and returns the
// path. The file is written under a temporary name and renamed into place.
func (w *Writer) Write(s *Snapshot) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(w.Dir, fmt.Sprintf("snapshot-%s-%020d.bin.zst", s.Auction.ID, s.Seq))
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp)

	if err := encode(f, s); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, os.Rename(tmp, path)
}

func encode(f *os.File, s *Snapshot) error {
	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(enc).Encode(s); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
