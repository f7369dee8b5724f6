package orderbook

import "errors"

var ErrCorruptSlab = errors.New("orderbook: corrupt slab state")

// SlabNode is the exported form of one slot of a Slab, used by persistence.
// Slot 0 is the sentinel and is never part of the state.
type SlabNode struct {
	Leaf   LeafNode
	Black  bool
	Left   uint32
	Right  uint32
	Parent uint32
	Used   bool
}

type SlabState struct {
	Capacity int
	Root     uint32
	Nodes    []SlabNode
	Free     []uint32
}

// State exports the slab verbatim, handles included.
func (t *Slab) State() SlabState {
	st := SlabState{
		Capacity: t.capacity,
		Root:     uint32(t.root),
		Nodes:    make([]SlabNode, 0, len(t.nodes)-1),
		Free:     make([]uint32, 0, len(t.free)),
	}
	for _, n := range t.nodes[1:] {
		st.Nodes = append(st.Nodes, SlabNode{
			Leaf:   n.leaf,
			Black:  n.color == black,
			Left:   uint32(n.left),
			Right:  uint32(n.right),
			Parent: uint32(n.parent),
			Used:   n.used,
		})
	}
	for _, h := range t.free {
		st.Free = append(st.Free, uint32(h))
	}
	return st
}

// RestoreSlab rebuilds a slab from State output.
func RestoreSlab(st SlabState) (*Slab, error) {
	t := NewSlab(st.Capacity)
	limit := uint32(len(st.Nodes))
	for _, sn := range st.Nodes {
		if sn.Left > limit || sn.Right > limit || sn.Parent > limit {
			return nil, ErrCorruptSlab
		}
		c := red
		if sn.Black {
			c = black
		}
		t.nodes = append(t.nodes, node{
			leaf:   sn.Leaf,
			color:  c,
			left:   Handle(sn.Left),
			right:  Handle(sn.Right),
			parent: Handle(sn.Parent),
			used:   sn.Used,
		})
		if sn.Used {
			t.size++
		}
	}
	if st.Root > limit || (st.Root != 0 && !t.nodes[st.Root].used) {
		return nil, ErrCorruptSlab
	}
	for _, h := range st.Free {
		if h == 0 || h > limit || t.nodes[h].used {
			return nil, ErrCorruptSlab
		}
		t.free = append(t.free, Handle(h))
	}
	t.root = Handle(st.Root)
	return t, nil
}

type BookState struct {
	LastSeq uint64
	Bids    SlabState
	Asks    SlabState
}

func (b *OrderBook) State() BookState {
	return BookState{LastSeq: b.LastSeq, Bids: b.Bids.State(), Asks: b.Asks.State()}
}

func RestoreOrderBook(st BookState) (*OrderBook, error) {
	bids, err := RestoreSlab(st.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := RestoreSlab(st.Asks)
	if err != nil {
		return nil, err
	}
	return &OrderBook{Bids: bids, Asks: asks, LastSeq: st.LastSeq}, nil
}
