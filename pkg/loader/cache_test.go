package loader

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/postal-codes/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(country string, codes ...string) *Snapshot {
	recs := make([]geo.Record, 0, len(codes))
	for _, c := range codes {
		recs = append(recs, geo.Record{CountryCode: country, PostalCode: c})
	}
	return NewSnapshot(country, recs, time.Time{}, time.Time{})
}

func TestSnapshot_PickSpreadsAcrossSeeds(t *testing.T) {
	codes := make([]string, 1200)
	for i := range codes {
		codes[i] = fmt.Sprintf("%05d", 10000+i)
	}
	snap := testSnapshot("US", codes...)
	require.Equal(t, 1200, snap.Len())

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		rec, seed, ok := snap.Pick(fmt.Sprintf("seed-%d", i))
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("seed-%d", i), seed)
		seen[rec.PostalCode] = true
	}
	assert.Greater(t, len(seen), 1, "20 seeds all picked %v", seen)
}

func TestCache_PutGetDelete(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("US")
	assert.False(t, ok)

	us := testSnapshot("US", "93109")
	c.Put(us)
	c.Put(testSnapshot("CA", "K1A 0B1"))

	got, ok := c.Get("US")
	require.True(t, ok)
	assert.Same(t, us, got)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"CA", "US"}, c.Countries())

	c.Delete("US")
	_, ok = c.Get("US")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestCache_PutReplaces(t *testing.T) {
	c := NewCache()
	c.Put(testSnapshot("US", "1"))
	newer := testSnapshot("US", "1", "2")
	c.Put(newer)

	got, _ := c.Get("US")
	assert.Same(t, newer, got)
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Put(testSnapshot("US", "93109"))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Get("US")
				c.Countries()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
}

func TestSnapshot_NormalizesLookups(t *testing.T) {
	s := testSnapshot("ca", "K1A 0B1", "m5v 3l9")
	assert.Equal(t, "CA", s.Country())

	rec, ok := s.Get("k1a0b1")
	require.True(t, ok)
	assert.Equal(t, "K1A 0B1", rec.PostalCode)

	_, ok = s.Get(" M5V 3L9 ")
	assert.True(t, ok)
	_, ok = s.Get("H0H 0H0")
	assert.False(t, ok)
}

func TestSnapshot_CodesIsACopy(t *testing.T) {
	s := testSnapshot("US", "2", "1", "3")
	codes := s.Codes()
	assert.Equal(t, []string{"1", "2", "3"}, codes)
	codes[0] = "mutated"
	assert.Equal(t, "1", s.Codes()[0])
}

func TestSnapshot_RecordsInOrder(t *testing.T) {
	s := testSnapshot("US", "3", "1", "2")
	var got []string
	for code := range s.Records() {
		got = append(got, code)
	}
	assert.Equal(t, []string{"1", "2", "3"}, got)
}

func TestSnapshot_Pick(t *testing.T) {
	s := testSnapshot("US", "10001", "90210", "93109", "60601", "02134")

	first, seed, ok := s.Pick("fixed-seed")
	require.True(t, ok)
	assert.Equal(t, "fixed-seed", seed)
	for i := 0; i < 10; i++ {
		again, _, _ := s.Pick("fixed-seed")
		assert.Equal(t, first, again)
	}

	// Unseeded picks mint distinct seeds.
	_, s1, _ := s.Pick("")
	_, s2, _ := s.Pick("")
	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)

	_, _, ok = testSnapshot("US").Pick("x")
	assert.False(t, ok)
}
