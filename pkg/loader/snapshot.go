package loader

import (
	"iter"
	"slices"
	"time"

	"github.com/hazyhaar/postal-codes/pkg/geo"
	"github.com/hazyhaar/postal-codes/pkg/seeded"
)

// Snapshot is one country's parsed records. It is never mutated after it is
// built, so readers may share it without locking.
type Snapshot struct {
	country  string
	records  map[string]geo.Record
	codes    []string
	modTime  time.Time
	loadedAt time.Time
}

// NewSnapshot builds a snapshot from records, indexed by normalized postal
// code. The input slice is not retained.
func NewSnapshot(country string, records []geo.Record, modTime, loadedAt time.Time) *Snapshot {
	m := make(map[string]geo.Record, len(records))
	for _, r := range records {
		m[r.Key()] = r
	}
	return newSnapshot(geo.NormalizeCode(country), m, modTime, loadedAt)
}

// newSnapshot takes ownership of records.
func newSnapshot(country string, records map[string]geo.Record, modTime, loadedAt time.Time) *Snapshot {
	codes := make([]string, 0, len(records))
	for k := range records {
		codes = append(codes, k)
	}
	slices.Sort(codes)
	return &Snapshot{
		country:  country,
		records:  records,
		codes:    codes,
		modTime:  modTime,
		loadedAt: loadedAt,
	}
}

// Country returns the normalized country code.
func (s *Snapshot) Country() string { return s.country }

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.records) }

// ModTime is the modification time of the file the snapshot was parsed from.
func (s *Snapshot) ModTime() time.Time { return s.modTime }

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Get looks up a postal code. The code is normalized first.
func (s *Snapshot) Get(code string) (geo.Record, bool) {
	r, ok := s.records[geo.NormalizeCode(code)]
	return r, ok
}

// Codes returns a sorted copy of every postal code key.
func (s *Snapshot) Codes() []string {
	return slices.Clone(s.codes)
}

// Records iterates the records in code order.
func (s *Snapshot) Records() iter.Seq2[string, geo.Record] {
	return func(yield func(string, geo.Record) bool) {
		for _, code := range s.codes {
			if !yield(code, s.records[code]) {
				return
			}
		}
	}
}

// Pick selects a record reproducibly from seed. An empty seed is replaced
// with a fresh random one; the seed actually used is returned.
func (s *Snapshot) Pick(seed string) (geo.Record, string, bool) {
	if seed == "" {
		seed = seeded.Seed()
	}
	code, ok := seeded.Pick(s.codes, seed)
	if !ok {
		return geo.Record{}, seed, false
	}
	return s.records[code], seed, true
}
