package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMPMCPushPopOrder(t *testing.T) {
	r := NewMPMC[int](4)
	require.True(t, r.Push(1))
	require.True(t, r.Push(2))
	v, ok := r.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = r.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = r.Pop()
	assert.False(t, ok)
}

func TestMPMCRoundsUpToPowerOfTwo(t *testing.T) {
	r := NewMPMC[int](3)
	assert.Equal(t, 4, r.Cap())
}

func TestMPMCFullReturnsFalse(t *testing.T) {
	r := NewMPMC[int](2)
	require.True(t, r.Push(1))
	require.True(t, r.Push(2))
	assert.False(t, r.Push(3))
}

func TestMPMCConcurrentProducersConsumers(t *testing.T) {
	const n = 10000
	r := NewMPMC[int](1024)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !r.Push(i) {
			}
		}
	}()

	sum := 0
	go func() {
		defer wg.Done()
		seen := 0
		for seen < n {
			if v, ok := r.Pop(); ok {
				sum += v
				seen++
			}
		}
	}()

	wg.Wait()
	assert.Equal(t, n*(n-1)/2, sum)
}

func TestFreeStackPushPopLIFO(t *testing.T) {
	nexts := make([]uint32, 8)
	s := NewFreeStack(
		func(i uint32) uint32 { return nexts[i] },
		func(i, n uint32) { nexts[i] = n },
	)

	_, ok := s.Pop()
	assert.False(t, ok)

	s.Push(0)
	s.Push(1)
	s.Push(2)

	v, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(2), v)

	v, ok = s.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(1), v)

	v, ok = s.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(0), v)

	_, ok = s.Pop()
	assert.False(t, ok)
}

func TestSlotRingProduceConsume(t *testing.T) {
	var head, tail atomicWord
	sr := SlotRing{Head: head.cursor(), Tail: tail.cursor(), Capacity: 4}

	idx, ok := sr.TryProduce(sr.Head.Load())
	require.True(t, ok)
	assert.Equal(t, uint32(0), idx)

	idx, ok = sr.TryProduce(sr.Head.Load())
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx)

	idx, ok = sr.TryConsume(sr.Tail.Load())
	require.True(t, ok)
	assert.Equal(t, uint32(0), idx)
}

func TestSlotRingFullWhenTailCatchesCapacity(t *testing.T) {
	var head, tail atomicWord
	sr := SlotRing{Head: head.cursor(), Tail: tail.cursor(), Capacity: 2}

	_, ok := sr.TryProduce(0)
	require.True(t, ok)
	_, ok = sr.TryProduce(0)
	require.True(t, ok)
	_, ok = sr.TryProduce(0)
	assert.False(t, ok)
}

// atomicWord gives tests a 4-byte-aligned backing array to Attach a Cursor
// to, without needing a real mmap'd page.
type atomicWord [4]byte

func (w *atomicWord) cursor() Cursor { return Attach(w[:]) }
