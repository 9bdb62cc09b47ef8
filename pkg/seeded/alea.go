package seeded

import "log/slog"

// Alea is a small multiply-with-carry generator. Two instances built from the
// same seed produce the same sequence on every platform.
// An Alea is not safe for concurrent use.
type Alea struct {
	s0, s1, s2 float64
	c          float64
}

// NewAlea seeds a generator from an arbitrary string.
func NewAlea(seed string) *Alea {
	mash := NewMash()
	a := &Alea{
		s0: mash.Sum(" "),
		s1: mash.Sum(" "),
		s2: mash.Sum(" "),
		c:  1,
	}

	a.s0 -= mash.Sum(seed)
	if a.s0 < 0 {
		a.s0++
	}
	a.s1 -= mash.Sum(seed)
	if a.s1 < 0 {
		a.s1++
	}
	a.s2 -= mash.Sum(seed)
	if a.s2 < 0 {
		a.s2++
	}
	return a
}

// Next returns the next value in [0, 1).
func (a *Alea) Next() float64 {
	t := float64(2091639*a.s0) + float64(a.c*twoPowM32)
	a.s0 = a.s1
	a.s1 = a.s2
	a.c = float64(int32(int64(t)))
	a.s2 = t - a.c
	return a.s2
}

// Int32 returns the next value scaled to the signed 32-bit range.
func (a *Alea) Int32() int32 {
	return int32(int64(a.Next() * twoPow32))
}

// Uint32 returns the next non-negative Int32, drawing again on negatives.
func (a *Alea) Uint32() uint32 {
	tries := 0
	v := a.Int32()
	for v < 0 {
		tries++
		v = a.Int32()
	}
	if tries > 1 {
		slog.Debug("uint32 draw retried", "iterations", tries)
	}
	return uint32(v)
}

// Pick returns items[Uint32() % len(items)] for a generator seeded with seed.
// Callers pass a sorted list so the same seed selects the same element.
func Pick[T any](items []T, seed string) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	idx := NewAlea(seed).Uint32() % uint32(len(items))
	return items[idx], true
}
