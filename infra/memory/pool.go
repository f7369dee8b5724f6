package memory

import "sync"

// Pool is a typed object pool. Reset, when set, runs on every object
// handed back so a later Get never sees stale contents.
type Pool[T any] struct {
	p     sync.Pool
	reset func(*T)
}

func NewPool[T any](ctor func() *T, reset func(*T)) *Pool[T] {
	pool := &Pool[T]{reset: reset}
	pool.p.New = func() any { return ctor() }
	return pool
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

func (p *Pool[T]) Put(v *T) {
	if p.reset != nil {
		p.reset(v)
	}
	p.p.Put(v)
}

// maxRetained keeps one oversized payload from pinning memory forever.
const maxRetained = 64 << 10

// NewBufferPool pools byte slices with capacity size. Slices that grew past
// 64 KiB are dropped instead of being reused.
func NewBufferPool(size int) *Pool[[]byte] {
	return NewPool(
		func() *[]byte {
			b := make([]byte, 0, size)
			return &b
		},
		func(b *[]byte) {
			if cap(*b) > maxRetained {
				*b = make([]byte, 0, size)
				return
			}
			*b = (*b)[:0]
		},
	)
}
