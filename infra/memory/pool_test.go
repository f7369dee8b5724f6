package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolResetsOnPut(t *testing.T) {
	type counter struct{ n int }
	p := NewPool(func() *counter { return &counter{} }, func(c *counter) { c.n = 0 })

	c := p.Get()
	c.n = 7
	p.Put(c)
	require.Zero(t, c.n)
	require.Zero(t, p.Get().n)
}

func TestBufferPool(t *testing.T) {
	p := NewBufferPool(16)

	b := p.Get()
	require.Empty(t, *b)
	require.Equal(t, 16, cap(*b))

	*b = append(*b, "frame"...)
	p.Put(b)
	require.Empty(t, *b)

	big := p.Get()
	*big = make([]byte, maxRetained+1)
	p.Put(big)
	require.Equal(t, 16, cap(*big))
}
