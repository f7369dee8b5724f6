package orderbook

import "errors"

// MaxStackDepth bounds a persisted iterator stack. A red-black tree of up to
// 65535 nodes never needs more.
const MaxStackDepth = 32

var (
	ErrStackOverflow = errors.New("orderbook: iterator stack overflow")
	ErrInvalidStack  = errors.New("orderbook: iterator stack references a free node")
)

// Stack is the serialisable position of an in-order walk.
type Stack struct {
	Depth   uint8
	Handles [MaxStackDepth]uint32
}

func (s Stack) Slice() []Handle {
	out := make([]Handle, s.Depth)
	for i := range out {
		out[i] = Handle(s.Handles[i])
	}
	return out
}

// Iterator walks a Slab in key order without recursion. Its whole state is
// the explicit stack, so Save and Resume round-trip a position exactly.
type Iterator struct {
	t         *Slab
	stack     []Handle
	ascending bool
}

// Iter starts a walk from the smallest key (ascending) or the largest.
func (t *Slab) Iter(ascending bool) *Iterator {
	it := &Iterator{t: t, ascending: ascending}
	it.pushSpine(t.root)
	return it
}

// Resume rebuilds an iterator from a saved stack.
func (t *Slab) Resume(ascending bool, s Stack) (*Iterator, error) {
	if int(s.Depth) > MaxStackDepth {
		return nil, ErrStackOverflow
	}
	hs := s.Slice()
	for _, h := range hs {
		if h == sentinel || int(h) >= len(t.nodes) || !t.n(h).used {
			return nil, ErrInvalidStack
		}
	}
	return &Iterator{t: t, stack: hs, ascending: ascending}, nil
}

// Next yields the next leaf in walk order.
func (it *Iterator) Next() (LeafNode, bool) {
	n := len(it.stack)
	if n == 0 {
		return LeafNode{}, false
	}
	h := it.stack[n-1]
	it.stack = it.stack[:n-1]
	if it.ascending {
		it.pushSpine(it.t.n(h).right)
	} else {
		it.pushSpine(it.t.n(h).left)
	}
	return it.t.n(h).leaf, true
}

// Save captures the current position.
func (it *Iterator) Save() (Stack, error) {
	var s Stack
	if len(it.stack) > MaxStackDepth {
		return s, ErrStackOverflow
	}
	s.Depth = uint8(len(it.stack))
	for i, h := range it.stack {
		s.Handles[i] = uint32(h)
	}
	return s, nil
}

func (it *Iterator) pushSpine(h Handle) {
	for h != sentinel {
		it.stack = append(it.stack, h)
		if it.ascending {
			h = it.t.n(h).left
		} else {
			h = it.t.n(h).right
		}
	}
}
