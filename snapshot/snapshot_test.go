package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snaps")
	w := &Writer{Dir: dir}

	s := &Snapshot{
		Seq:     42,
		Created: time.Unix(1_700_000_000, 0).UTC(),
		Auction: AuctionEntry{ID: "sol-usdc", BaseAsset: "SOL", QuoteAsset: "USDC", Phase: "matching", ClearingPrice: 5 << 32},
		Orders: []OrderEntry{
			{ID: "00", Side: 0, Price: 5 << 32, Qty: 10, Owner: "ab"},
		},
		Accounts: []AccountEntry{{ID: "ab", Owner: "alice", Orders: 1, QuoteLocked: 50}},
	}

	path, err := w.Write(s)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "snapshot-sol-usdc-00000000000000000042.bin.zst"), path)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, s, got)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.bin.zst"))
	require.Error(t, err)
}
