package orderbook

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBidsWalkHighestPriceOldestFirst(t *testing.T) {
	book := NewOrderBook(16)
	var owner CallbackInfo
	for _, price := range []uint64{100, 120, 100, 90} {
		_, err := book.NewOrder(NewOrderParams{
			Side: Bid, LimitPrice: price, MaxBaseQty: 1, MaxQuoteQty: price, Owner: owner,
		}, 1)
		require.NoError(t, err)
	}

	var got [][2]uint64
	book.ForEach(Bid, func(l LeafNode) bool {
		got = append(got, [2]uint64{l.Price(), ^l.Key.Lo})
		return true
	})
	require.Equal(t, [][2]uint64{{120, 2}, {100, 1}, {100, 3}, {90, 4}}, got)
}

func TestAsksWalkLowestPriceOldestFirst(t *testing.T) {
	book := NewOrderBook(16)
	for _, price := range []uint64{100, 80, 100} {
		_, err := book.NewOrder(NewOrderParams{
			Side: Ask, LimitPrice: price, MaxBaseQty: 1, MaxQuoteQty: price,
		}, 1)
		require.NoError(t, err)
	}
	var got []Key
	book.ForEach(Ask, func(l LeafNode) bool {
		got = append(got, l.Key)
		return true
	})
	require.Equal(t, []Key{{80, 2}, {100, 1}, {100, 3}}, got)
}

func TestSaveResumeContinuesWalk(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := NewSlab(512)
		n := rapid.IntRange(0, 400).Draw(t, "n")
		for i := 1; i <= n; i++ {
			price := rapid.Uint64Range(1, 50).Draw(t, "price")
			if _, err := tree.Insert(leafAt(Ask, price, uint64(i))); err != nil {
				t.Fatalf("insert: %v", err)
			}
		}
		ascending := rapid.Bool().Draw(t, "ascending")

		var full []Key
		it := tree.Iter(ascending)
		for l, ok := it.Next(); ok; l, ok = it.Next() {
			full = append(full, l.Key)
		}
		if len(full) != n {
			t.Fatalf("walk yielded %d leaves, want %d", len(full), n)
		}

		// walk again, saving and resuming after every step
		var stepped []Key
		st, err := tree.Iter(ascending).Save()
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		for {
			it, err := tree.Resume(ascending, st)
			if err != nil {
				t.Fatalf("resume: %v", err)
			}
			l, ok := it.Next()
			if !ok {
				break
			}
			stepped = append(stepped, l.Key)
			if st, err = it.Save(); err != nil {
				t.Fatalf("save: %v", err)
			}
		}
		for i := range full {
			if full[i] != stepped[i] {
				t.Fatalf("position %d: got %v want %v", i, stepped[i], full[i])
			}
		}
	})
}

func TestResumeRejectsFreedHandle(t *testing.T) {
	tree := NewSlab(4)
	_, _ = tree.Insert(leafAt(Ask, 1, 1))
	st, err := tree.Iter(true).Save()
	require.NoError(t, err)
	tree.Remove(NewKey(Ask, 1, 1))

	_, err = tree.Resume(true, st)
	require.ErrorIs(t, err, ErrInvalidStack)
}

func TestSaveOverflow(t *testing.T) {
	it := &Iterator{t: NewSlab(1), stack: make([]Handle, MaxStackDepth+1)}
	_, err := it.Save()
	require.ErrorIs(t, err, ErrStackOverflow)
}
