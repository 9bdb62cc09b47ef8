// Package seeded provides a reproducible string-seeded generator (Alea) and a
// crypto-backed buffer generator used to mint fallback seeds.
package seeded

const (
	mashInit  = 0xefc8249d
	mashMul   = 0.02519603282416938
	twoPow32  = 0x100000000
	twoPowM32 = 2.3283064365386963e-10 // 2^-32
)

// Mash is the stateful string hash that derives Alea's initial state.
// State carries over between calls, so the same input hashes differently the
// second time.
type Mash struct {
	n float64
}

// NewMash returns a Mash in its initial state.
func NewMash() *Mash {
	return &Mash{n: mashInit}
}

// Sum folds the code points of s into the state and returns a value in [0, 1).
func (m *Mash) Sum(s string) float64 {
	n := m.n
	for _, r := range s {
		n += float64(r)
		h := mashMul * n
		n = toUint32(h)
		h -= n
		h *= n
		n = toUint32(h)
		h -= n
		// Explicit conversion keeps the product from fusing into an FMA.
		n += float64(h * twoPow32)
	}
	m.n = n
	return toUint32(n) * twoPowM32
}

// toUint32 truncates toward zero and wraps modulo 2^32.
func toUint32(f float64) float64 {
	return float64(uint32(int64(f)))
}
