package snapshot

import (
	"encoding/gob"
	"os"

	"github.com/klauspost/compress/zstd"
)

func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var s Snapshot
	if err := gob.NewDecoder(dec).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
