package seeded

import (
	"crypto/rand"
	"encoding/binary"
	"math/bits"
	"strconv"
	"sync"
)

const bufferWords = 256

// Word is the element type a Buffer hands out.
type Word interface {
	uint16 | uint32
}

// Buffer serves crypto-strength random words from a fixed buffer that is
// refilled in one read once exhausted. Output is not reproducible.
// A Buffer is safe for concurrent use.
type Buffer[T Word] struct {
	mu  sync.Mutex
	buf [bufferWords]T
	idx int
}

// NewBuffer returns an empty buffer; the first draw fills it.
func NewBuffer[T Word]() *Buffer[T] {
	return &Buffer[T]{idx: bufferWords}
}

func width[T Word]() int {
	var top T = ^T(0)
	return bits.Len64(uint64(top)) / 8
}

func (b *Buffer[T]) fill() {
	w := width[T]()
	raw := make([]byte, bufferWords*w)
	// crypto/rand.Read does not return on failure.
	rand.Read(raw)
	for i := range b.buf {
		chunk := raw[i*w : (i+1)*w]
		if w == 2 {
			b.buf[i] = T(binary.LittleEndian.Uint16(chunk))
		} else {
			b.buf[i] = T(binary.LittleEndian.Uint32(chunk))
		}
	}
	b.idx = 0
}

// Value returns the next raw word.
func (b *Buffer[T]) Value() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.idx == bufferWords {
		b.fill()
	}
	v := b.buf[b.idx]
	b.idx++
	return v
}

// Norm maps the next word to [0, 1).
func (b *Buffer[T]) Norm() float64 {
	span := float64(uint64(1) << (8 * width[T]()))
	return float64(b.Value()) / span
}

// ValueIn returns a value in [0, stop) by modulo. stop must be positive.
func (b *Buffer[T]) ValueIn(stop int) int {
	return b.ValueBetween(0, stop)
}

// ValueBetween returns a value in [start, stop) by modulo. It returns start
// when the range is empty.
func (b *Buffer[T]) ValueBetween(start, stop int) int {
	n := stop - start
	if n <= 0 {
		return start
	}
	return int(uint64(b.Value())%uint64(n)) + start
}

// Choice returns a random element of items, or false when items is empty.
func Choice[T Word, E any](b *Buffer[T], items []E) (E, bool) {
	var zero E
	if len(items) == 0 {
		return zero, false
	}
	return items[b.ValueIn(len(items))], true
}

var (
	defaultBuffer32 = NewBuffer[uint32]()
	defaultBuffer16 = NewBuffer[uint16]()
)

// Default32 is the process-wide 32-bit buffer.
func Default32() *Buffer[uint32] { return defaultBuffer32 }

// Default16 is the process-wide 16-bit buffer.
func Default16() *Buffer[uint16] { return defaultBuffer16 }

// Seed mints a fallback seed string for callers that did not supply one.
func Seed() string {
	return strconv.FormatUint(uint64(defaultBuffer32.Value()), 36)
}
