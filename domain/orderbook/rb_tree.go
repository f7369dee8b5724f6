package orderbook

import "errors"

type Color uint8

const (
	red   Color = 0
	black Color = 1
)

// Handle addresses a node inside a Slab. Handle 0 is the black sentinel.
// Handles are stable for the life of a node, which is what lets an iterator
// stack be persisted and resumed later.
type Handle uint32

const sentinel Handle = 0

var (
	ErrSlabFull     = errors.New("orderbook: slab is full")
	ErrDuplicateKey = errors.New("orderbook: duplicate order key")
)

type node struct {
	leaf   LeafNode
	color  Color
	left   Handle
	right  Handle
	parent Handle
	used   bool
}

// Slab is a red-black tree of resting orders stored in a flat node array.
// Removed nodes go to a free list and their handles are reused.
type Slab struct {
	nodes    []node
	free     []Handle
	root     Handle
	size     int
	capacity int
}

// NewSlab constructs an empty tree holding at most capacity orders.
func NewSlab(capacity int) *Slab {
	return &Slab{
		nodes:    []node{{color: black}},
		root:     sentinel,
		capacity: capacity,
	}
}

func (t *Slab) Size() int     { return t.size }
func (t *Slab) Capacity() int { return t.capacity }
func (t *Slab) IsEmpty() bool { return t.size == 0 }

func (t *Slab) n(h Handle) *node { return &t.nodes[h] }

// Find returns the handle of the node holding key.
func (t *Slab) Find(key Key) (Handle, bool) {
	h := t.searchNode(key)
	return h, h != sentinel
}

func (t *Slab) Get(key Key) (LeafNode, bool) {
	h := t.searchNode(key)
	if h == sentinel {
		return LeafNode{}, false
	}
	return t.n(h).leaf, true
}

// Insert adds a leaf and returns its handle.
func (t *Slab) Insert(leaf LeafNode) (Handle, error) {
	y := sentinel
	x := t.root
	for x != sentinel {
		y = x
		switch leaf.Key.Compare(t.n(x).leaf.Key) {
		case -1:
			x = t.n(x).left
		case 1:
			x = t.n(x).right
		default:
			return sentinel, ErrDuplicateKey
		}
	}

	z, err := t.alloc()
	if err != nil {
		return sentinel, err
	}
	*t.n(z) = node{
		leaf:   leaf,
		color:  red,
		left:   sentinel,
		right:  sentinel,
		parent: y,
		used:   true,
	}

	if y == sentinel {
		t.root = z
	} else if leaf.Key.Compare(t.n(y).leaf.Key) < 0 {
		t.n(y).left = z
	} else {
		t.n(y).right = z
	}
	t.insertFixup(z)
	t.size++
	return z, nil
}

// Remove deletes the node holding key and returns its leaf.
func (t *Slab) Remove(key Key) (LeafNode, bool) {
	z := t.searchNode(key)
	if z == sentinel {
		return LeafNode{}, false
	}
	leaf := t.n(z).leaf
	t.deleteNode(z)
	t.release(z)
	t.size--
	return leaf, true
}

func (t *Slab) Min() (LeafNode, bool) {
	h := t.minNode(t.root)
	if h == sentinel {
		return LeafNode{}, false
	}
	return t.n(h).leaf, true
}

func (t *Slab) Max() (LeafNode, bool) {
	h := t.maxNode(t.root)
	if h == sentinel {
		return LeafNode{}, false
	}
	return t.n(h).leaf, true
}

// Height is the number of nodes on the longest root-to-leaf path.
func (t *Slab) Height() int {
	var walk func(h Handle) int
	walk = func(h Handle) int {
		if h == sentinel {
			return 0
		}
		l, r := walk(t.n(h).left), walk(t.n(h).right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(t.root)
}

/******************** Internal helpers ********************/

func (t *Slab) alloc() (Handle, error) {
	if t.size >= t.capacity {
		return sentinel, ErrSlabFull
	}
	if n := len(t.free); n > 0 {
		h := t.free[n-1]
		t.free = t.free[:n-1]
		return h, nil
	}
	t.nodes = append(t.nodes, node{})
	return Handle(len(t.nodes) - 1), nil
}

func (t *Slab) release(h Handle) {
	t.nodes[h] = node{}
	t.free = append(t.free, h)
}

func (t *Slab) searchNode(key Key) Handle {
	x := t.root
	for x != sentinel {
		switch key.Compare(t.n(x).leaf.Key) {
		case -1:
			x = t.n(x).left
		case 1:
			x = t.n(x).right
		default:
			return x
		}
	}
	return sentinel
}

func (t *Slab) minNode(h Handle) Handle {
	if h == sentinel {
		return sentinel
	}
	for t.n(h).left != sentinel {
		h = t.n(h).left
	}
	return h
}

func (t *Slab) maxNode(h Handle) Handle {
	if h == sentinel {
		return sentinel
	}
	for t.n(h).right != sentinel {
		h = t.n(h).right
	}
	return h
}

func (t *Slab) leftRotate(x Handle) {
	y := t.n(x).right
	t.n(x).right = t.n(y).left
	if t.n(y).left != sentinel {
		t.n(t.n(y).left).parent = x
	}
	t.n(y).parent = t.n(x).parent
	xp := t.n(x).parent
	if xp == sentinel {
		t.root = y
	} else if x == t.n(xp).left {
		t.n(xp).left = y
	} else {
		t.n(xp).right = y
	}
	t.n(y).left = x
	t.n(x).parent = y
}

func (t *Slab) rightRotate(y Handle) {
	x := t.n(y).left
	t.n(y).left = t.n(x).right
	if t.n(x).right != sentinel {
		t.n(t.n(x).right).parent = y
	}
	t.n(x).parent = t.n(y).parent
	yp := t.n(y).parent
	if yp == sentinel {
		t.root = x
	} else if y == t.n(yp).right {
		t.n(yp).right = x
	} else {
		t.n(yp).left = x
	}
	t.n(x).right = y
	t.n(y).parent = x
}

func (t *Slab) insertFixup(z Handle) {
	for t.n(t.n(z).parent).color == red {
		zp := t.n(z).parent
		zpp := t.n(zp).parent
		if zp == t.n(zpp).left {
			y := t.n(zpp).right
			if t.n(y).color == red {
				t.n(zp).color = black
				t.n(y).color = black
				t.n(zpp).color = red
				z = zpp
			} else {
				if z == t.n(zp).right {
					z = zp
					t.leftRotate(z)
				}
				zp = t.n(z).parent
				zpp = t.n(zp).parent
				t.n(zp).color = black
				t.n(zpp).color = red
				t.rightRotate(zpp)
			}
		} else {
			y := t.n(zpp).left
			if t.n(y).color == red {
				t.n(zp).color = black
				t.n(y).color = black
				t.n(zpp).color = red
				z = zpp
			} else {
				if z == t.n(zp).left {
					z = zp
					t.rightRotate(z)
				}
				zp = t.n(z).parent
				zpp = t.n(zp).parent
				t.n(zp).color = black
				t.n(zpp).color = red
				t.leftRotate(zpp)
			}
		}
	}
	t.n(t.root).color = black
}

func (t *Slab) transplant(u, v Handle) {
	up := t.n(u).parent
	if up == sentinel {
		t.root = v
	} else if u == t.n(up).left {
		t.n(up).left = v
	} else {
		t.n(up).right = v
	}
	t.n(v).parent = up
}

func (t *Slab) deleteNode(z Handle) {
	y := z
	yOrigColor := t.n(y).color
	var x Handle

	if t.n(z).left == sentinel {
		x = t.n(z).right
		t.transplant(z, t.n(z).right)
	} else if t.n(z).right == sentinel {
		x = t.n(z).left
		t.transplant(z, t.n(z).left)
	} else {
		y = t.minNode(t.n(z).right)
		yOrigColor = t.n(y).color
		x = t.n(y).right
		if t.n(y).parent == z {
			t.n(x).parent = y
		} else {
			t.transplant(y, t.n(y).right)
			t.n(y).right = t.n(z).right
			t.n(t.n(y).right).parent = y
		}
		t.transplant(z, y)
		t.n(y).left = t.n(z).left
		t.n(t.n(y).left).parent = y
		t.n(y).color = t.n(z).color
	}

	if yOrigColor == black {
		t.deleteFixup(x)
	}
	// the sentinel's parent is scratch space during fixup
	t.n(sentinel).parent = sentinel
	t.n(sentinel).color = black
}

func (t *Slab) deleteFixup(x Handle) {
	for x != t.root && t.n(x).color == black {
		xp := t.n(x).parent
		if x == t.n(xp).left {
			w := t.n(xp).right
			if t.n(w).color == red {
				t.n(w).color = black
				t.n(xp).color = red
				t.leftRotate(xp)
				w = t.n(xp).right
			}
			if t.n(t.n(w).left).color == black && t.n(t.n(w).right).color == black {
				t.n(w).color = red
				x = xp
			} else {
				if t.n(t.n(w).right).color == black {
					t.n(t.n(w).left).color = black
					t.n(w).color = red
					t.rightRotate(w)
					w = t.n(xp).right
				}
				t.n(w).color = t.n(xp).color
				t.n(xp).color = black
				t.n(t.n(w).right).color = black
				t.leftRotate(xp)
				x = t.root
			}
		} else {
			w := t.n(xp).left
			if t.n(w).color == red {
				t.n(w).color = black
				t.n(xp).color = red
				t.rightRotate(xp)
				w = t.n(xp).left
			}
			if t.n(t.n(w).right).color == black && t.n(t.n(w).left).color == black {
				t.n(w).color = red
				x = xp
			} else {
				if t.n(t.n(w).left).color == black {
					t.n(t.n(w).right).color = black
					t.n(w).color = red
					t.leftRotate(w)
					w = t.n(xp).left
				}
				t.n(w).color = t.n(xp).color
				t.n(xp).color = black
				t.n(t.n(w).left).color = black
				t.rightRotate(xp)
				x = t.root
			}
		}
	}
	t.n(x).color = black
}
