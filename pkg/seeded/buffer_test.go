package seeded

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_Width(t *testing.T) {
	assert.Equal(t, 2, width[uint16]())
	assert.Equal(t, 4, width[uint32]())
}

func TestBuffer_RefillsAfterExhaustion(t *testing.T) {
	b := NewBuffer[uint32]()
	seen := map[uint32]bool{}
	for i := 0; i < 3*bufferWords; i++ {
		seen[b.Value()] = true
	}
	// 768 crypto draws from 2^32 values; collisions are possible but rare.
	assert.Greater(t, len(seen), 3*bufferWords-5)
}

func TestBuffer_Norm(t *testing.T) {
	b32 := NewBuffer[uint32]()
	b16 := NewBuffer[uint16]()
	for i := 0; i < 1000; i++ {
		v := b32.Norm()
		require.True(t, v >= 0 && v < 1, "uint32 norm %v", v)
		w := b16.Norm()
		require.True(t, w >= 0 && w < 1, "uint16 norm %v", w)
	}
}

func TestBuffer_NormDividesByWordRange(t *testing.T) {
	b32 := NewBuffer[uint32]()
	b32.buf[0], b32.buf[1] = ^uint32(0), 1<<31
	b32.idx = 0
	assert.Equal(t, float64(1<<32-1)/(1<<32), b32.Norm())
	assert.Equal(t, 0.5, b32.Norm())

	b16 := NewBuffer[uint16]()
	b16.buf[0] = ^uint16(0)
	b16.idx = 0
	top := b16.Norm()
	assert.Equal(t, float64(1<<16-1)/(1<<16), top)
	assert.Less(t, top, 1.0)
}

func TestBuffer_ValueBetween(t *testing.T) {
	b := NewBuffer[uint16]()
	for i := 0; i < 1000; i++ {
		v := b.ValueBetween(10, 20)
		require.GreaterOrEqual(t, v, 10)
		require.Less(t, v, 20)
		require.Less(t, b.ValueIn(3), 3)
	}
	assert.Equal(t, 5, b.ValueBetween(5, 5))
}

func TestChoice(t *testing.T) {
	items := []string{"US", "CA"}
	for i := 0; i < 20; i++ {
		v, ok := Choice(Default32(), items)
		require.True(t, ok)
		assert.Contains(t, items, v)
	}
	_, ok := Choice(Default16(), []string{})
	assert.False(t, ok)
}

func TestBuffer_Concurrent(t *testing.T) {
	b := NewBuffer[uint32]()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				b.Value()
			}
		}()
	}
	wg.Wait()
}

func TestSeed_Diverges(t *testing.T) {
	a, b := Seed(), Seed()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
