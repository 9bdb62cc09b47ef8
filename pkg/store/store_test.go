package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/postal-codes/pkg/geo"
	"github.com/hazyhaar/postal-codes/pkg/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func snapshotOf(country string, recs ...geo.Record) *loader.Snapshot {
	return loader.NewSnapshot(country, recs, time.Time{}, time.Time{})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "postal-codes:v1:CA:K1A0B1", RecordKey("ca", "k1a 0b1"))
	assert.Equal(t, "postal-codes:v1:US:codes", CodesKey("us"))
}

func TestPopulate(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	snap := snapshotOf("US",
		geo.Record{CountryCode: "US", PostalCode: "93109", PlaceName: "Santa Barbara", Latitude: 34.4048, Longitude: -119.7194, Accuracy: 1},
		geo.Record{CountryCode: "US", PostalCode: "10001", PlaceName: "New York", Latitude: 40.7484, Longitude: -73.9967},
	)
	n, err := s.Populate(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec, ok, err := s.Get(ctx, "us", "93109")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Santa Barbara", rec.PlaceName)
	assert.Equal(t, 34.4048, rec.Latitude)

	members, err := s.Members(ctx, CodesKey("US"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10001", "93109"}, members)

	keys, err := s.Keys(ctx, "postal-codes:v1:US:")
	require.NoError(t, err)
	assert.Equal(t, []string{"postal-codes:v1:US:10001", "postal-codes:v1:US:93109"}, keys)
}

func TestPopulate_ReplacesCodeSet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Populate(ctx, snapshotOf("CA",
		geo.Record{CountryCode: "CA", PostalCode: "K1A 0B1"},
		geo.Record{CountryCode: "CA", PostalCode: "H0H 0H0"},
	))
	require.NoError(t, err)
	_, err = s.Populate(ctx, snapshotOf("CA", geo.Record{CountryCode: "CA", PostalCode: "K1A 0B1", PlaceName: "Ottawa"}))
	require.NoError(t, err)

	members, err := s.Members(ctx, CodesKey("CA"))
	require.NoError(t, err)
	assert.Equal(t, []string{"K1A0B1"}, members)

	rec, ok, err := s.Get(ctx, "CA", "K1A0B1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ottawa", rec.PlaceName)
}

func TestGet_Missing(t *testing.T) {
	s := openTemp(t)
	_, ok, err := s.Get(context.Background(), "US", "00000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPopulate_CancelledContext(t *testing.T) {
	s := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Populate(ctx, snapshotOf("US", geo.Record{CountryCode: "US", PostalCode: "1"}))
	assert.Error(t, err)

	members, err := s.Members(context.Background(), CodesKey("US"))
	require.NoError(t, err)
	assert.Empty(t, members)
}
