package broadcaster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Henry-E/auction-house/infra/kafka"
	"github.com/Henry-E/auction-house/infra/outbox"
	"github.com/Henry-E/auction-house/infra/store"
)

type fakePublisher struct {
	failAt int
	calls  int
	keys   []string
	seqs   []uint64
	closed bool
}

func (f *fakePublisher) Publish(_ context.Context, n kafka.Notification) error {
	f.calls++
	if f.calls == f.failAt {
		return errors.New("broker down")
	}
	f.keys = append(f.keys, n.AuctionID)
	f.seqs = append(f.seqs, n.Seq)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func setup(t *testing.T, n int) (*outbox.Outbox, *store.Store) {
	t.Helper()
	st, err := store.Open("state", store.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Update(func(tx *store.Txn) error {
		for i := 0; i < n; i++ {
			if _, err := outbox.Put(tx, outbox.TypeOrderOut, "auction-a", outbox.OrderOut{BaseSize: uint64(i)}); err != nil {
				return err
			}
		}
		return nil
	}))
	return outbox.New(st), st
}

func TestReplayOncePublishesAndPurges(t *testing.T) {
	ob, _ := setup(t, 3)
	pub := &fakePublisher{}
	b := New(ob, pub, 0, zerolog.Nop(), nil)

	sent, err := b.ReplayOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, sent)
	require.Equal(t, []string{"auction-a", "auction-a", "auction-a"}, pub.keys)
	require.Equal(t, []uint64{1, 2, 3}, pub.seqs)

	left := 0
	require.NoError(t, ob.ScanByState(outbox.StateAcked, func(outbox.Record) error { left++; return nil }))
	require.Zero(t, left)

	sent, err = b.ReplayOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, sent)

	require.NoError(t, b.Close())
	require.True(t, pub.closed)
}

func TestReplayOnceStopsAtFailureAndRetries(t *testing.T) {
	ob, _ := setup(t, 3)
	pub := &fakePublisher{failAt: 2}
	b := New(ob, pub, 0, zerolog.Nop(), nil)

	sent, err := b.ReplayOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sent)

	rec, err := ob.Get(2)
	require.NoError(t, err)
	require.Equal(t, outbox.StateFailed, rec.State)
	require.Equal(t, uint32(1), rec.Retries)

	rec, err = ob.Get(3)
	require.NoError(t, err)
	require.Equal(t, outbox.StateNew, rec.State)

	sent, err = b.ReplayOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, sent)
	require.Equal(t, []uint64{1, 2, 3}, pub.seqs)
}

func TestRunStopsWithContext(t *testing.T) {
	ob, _ := setup(t, 1)
	pub := &fakePublisher{}
	b := New(ob, pub, 5*time.Millisecond, zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := ob.Get(1)
		return errors.Is(err, store.ErrNotFound)
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
