package nearby

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomhuang/printnearby/internal/gazetteer"
	"github.com/thomhuang/printnearby/internal/gazetteer/gazetteertest"
	"github.com/thomhuang/printnearby/internal/geo"
	"github.com/thomhuang/printnearby/internal/store"
)

// within five miles of 10001, nearest first
var chelseaFiveMiles = []string{
	"10001", "10011", "10036", "10016", "10019", "10003", "07030",
	"10002", "10128", "07302", "11211", "10025", "11201",
}

func newYorkService(t *testing.T, providers store.ProviderStore, opts ...Option) *Service {
	t.Helper()
	return NewService(gazetteertest.NewYorkGazetteer(t), providers, opts...)
}

// countingStore records every FindByZips call made against it.
type countingStore struct {
	store.ProviderStore

	mu      sync.Mutex
	calls   int
	largest int
	err     error
}

func (c *countingStore) FindByZips(ctx context.Context, zips []string) ([]store.Provider, error) {
	c.mu.Lock()
	c.calls++
	c.largest = max(c.largest, len(zips))
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.ProviderStore.FindByZips(ctx, zips)
}

func providerIDs(ps []MatchedProvider) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}

func TestFindNearbyZips_Chelsea(t *testing.T) {
	svc := newYorkService(t, nil)

	got, err := svc.FindNearbyZipsByZip("10001", 5)
	require.NoError(t, err)
	assert.Equal(t, chelseaFiveMiles, got)

	// same centre given as coordinates
	byCoords, err := svc.FindNearbyZipsByCoords(40.750742, -73.996530, 5)
	require.NoError(t, err)
	assert.Equal(t, got, byCoords)

	// ZIP+4 resolves to the same centroid
	plus4, err := svc.FindNearbyZipsByZip("10001-2062", 5)
	require.NoError(t, err)
	assert.Equal(t, got, plus4)
}

func TestFindNearbyZips_Idempotent(t *testing.T) {
	svc := newYorkService(t, nil)

	first, err := svc.FindNearbyZipsByZip("10001", 12)
	require.NoError(t, err)
	for range 5 {
		again, err := svc.FindNearbyZipsByZip("10001", 12)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestFindNearbyZips_ContainsOrigin(t *testing.T) {
	svc := newYorkService(t, nil)

	for _, rec := range gazetteertest.NewYork() {
		got, err := svc.FindNearbyZipsByZip(rec.Zip, 1e-6)
		require.NoError(t, err, rec.Zip)
		assert.Contains(t, got, rec.Zip)
	}
}

func TestFindNearbyZips_Monotonic(t *testing.T) {
	svc := newYorkService(t, nil)

	var previous []string
	for _, radius := range []float64{0.5, 1, 2, 5, 10, 20, 50, 3000, 6000} {
		got, err := svc.FindNearbyZipsByZip("10001", radius)
		require.NoError(t, err)
		assert.Subset(t, got, previous, "radius %v", radius)
		previous = got
	}
	// 6000 miles reaches the Aleutians
	assert.Len(t, previous, len(gazetteertest.NewYork()))
}

func TestFindNearbyZips_RadiusIsInclusive(t *testing.T) {
	svc := newYorkService(t, nil)
	g := gazetteertest.NewYorkGazetteer(t)

	origin, ok := g.Lookup("10001")
	require.True(t, ok)
	target, ok := g.Lookup("10011")
	require.True(t, ok)
	d := geo.HaversineMiles(origin.Coord(), target.Coord())

	got, err := svc.FindNearbyZipsByZip("10001", d)
	require.NoError(t, err)
	assert.Contains(t, got, "10011")

	got, err = svc.FindNearbyZipsByZip("10001", d*(1-1e-9))
	require.NoError(t, err)
	assert.NotContains(t, got, "10011")
}

func TestNearbyZips_Distances(t *testing.T) {
	svc := newYorkService(t, nil)

	got, err := svc.NearbyZips(AtZip("10001"), 5)
	require.NoError(t, err)
	require.Len(t, got, len(chelseaFiveMiles))
	assert.Equal(t, ZipMatch{Zip: "10001", Distance: 0}, got[0])
	for i, m := range got {
		assert.LessOrEqual(t, m.Distance, 5.0)
		if i > 0 {
			assert.GreaterOrEqual(t, m.Distance, got[i-1].Distance)
		}
	}
	assert.InDelta(t, 1.684, got[6].Distance, 0.01)
}

func TestFindNearbyZips_Empty(t *testing.T) {
	svc := newYorkService(t, nil)

	// Gulf of Guinea
	got, err := svc.FindNearbyZipsByCoords(0, 0, 0.0001)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindNearbyZips_Antimeridian(t *testing.T) {
	g := gazetteertest.New(t, []gazetteer.ZipRecord{
		{Zip: "99546", Lat: 51.9, Lon: 179.9},
		{Zip: "99547", Lat: 51.9, Lon: -179.9},
	})
	svc := NewService(g, nil)

	got, err := svc.FindNearbyZipsByZip("99546", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"99546", "99547"}, got)
}

func TestFindNearbyZips_NotFound(t *testing.T) {
	svc := newYorkService(t, nil)

	_, err := svc.FindNearbyZipsByZip("00000", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var nerr *Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, opZips, nerr.Op)
}

func TestFindNearbyZips_InvalidArgument(t *testing.T) {
	svc := newYorkService(t, nil)

	cases := []struct {
		name   string
		origin Origin
		radius float64
	}{
		{"zero radius", AtZip("10001"), 0},
		{"negative radius", AtZip("10001"), -3},
		{"NaN radius", AtZip("10001"), math.NaN()},
		{"infinite radius", AtZip("10001"), math.Inf(1)},
		{"malformed zip", AtZip("ABCDE"), 5},
		{"latitude out of range", AtCoords(91, -73.99), 5},
		{"longitude out of range", AtCoords(40.7, -181), 5},
		{"NaN latitude", AtCoords(math.NaN(), -73.99), 5},
		{"infinite longitude", AtCoords(40.7, math.Inf(-1)), 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.FindNearbyZips(tc.origin, tc.radius)
			assert.ErrorIs(t, err, ErrInvalidArgument)

			_, err = svc.FindNearbyProviders(context.Background(), tc.origin, tc.radius)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestLookup(t *testing.T) {
	svc := newYorkService(t, nil)

	rec, err := svc.Lookup("90210")
	require.NoError(t, err)
	assert.InDelta(t, 34.100517, rec.Lat, 1e-9)

	_, err = svc.Lookup("00000")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Lookup("9021")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	c, err := svc.Resolve(AtCoords(10, 20))
	require.NoError(t, err)
	assert.Equal(t, geo.Coord{Lat: 10, Lon: 20}, c)
}

func TestSearch_ReportsCenter(t *testing.T) {
	svc := newYorkService(t, store.NewMemoryStore())

	zips, err := svc.SearchZips(AtZip("10001-2062"), 1)
	require.NoError(t, err)
	assert.Equal(t, Center{Zip: "10001", Coord: geo.Coord{Lat: 40.750742, Lon: -73.996530}}, zips.Center)
	assert.NotEmpty(t, zips.Matches)

	providers, err := svc.SearchProviders(context.Background(), AtCoords(0, 0), 1)
	require.NoError(t, err)
	assert.Equal(t, Center{Coord: geo.Coord{Lat: 0, Lon: 0}}, providers.Center)
	assert.Empty(t, providers.Providers)

	_, err = svc.SearchZips(AtZip("00000"), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func seedProviders(t *testing.T, s store.ProviderStore, ps ...store.Provider) {
	t.Helper()
	for _, p := range ps {
		require.NoError(t, s.Upsert(context.Background(), p))
	}
}

func TestFindNearbyProviders(t *testing.T) {
	mem := store.NewMemoryStore()
	seedProviders(t, mem,
		store.Provider{ID: "p1", Name: "Chelsea Prints", Zip: "10001", CreatedAt: 1},
		store.Provider{ID: "p2", Name: "Hoboken Fab", Zip: "07030", CreatedAt: 2},
		store.Provider{ID: "p3", Name: "LES Makers", Zip: "10002", CreatedAt: 3},
		store.Provider{ID: "p4", Name: "Midtown Layer", Zip: "10001", CreatedAt: 4},
		store.Provider{ID: "p5", Name: "Beverly Hills Resin", Zip: "90210", CreatedAt: 5},
	)
	svc := newYorkService(t, mem)

	got, err := svc.FindNearbyProviders(context.Background(), AtZip("10001"), 5)
	require.NoError(t, err)

	// equal distances keep store order
	assert.Equal(t, []string{"p1", "p4", "p2", "p3"}, providerIDs(got))
	assert.Zero(t, got[0].Distance)
	assert.Zero(t, got[1].Distance)
	assert.InDelta(t, 1.684, got[2].Distance, 0.01)
	assert.InDelta(t, 2.514, got[3].Distance, 0.01)
	assert.Equal(t, "Hoboken Fab", got[2].Name)
}

func TestFindNearbyProviders_NoZipsSkipsStore(t *testing.T) {
	counting := &countingStore{ProviderStore: store.NewMemoryStore()}
	svc := newYorkService(t, counting)

	got, err := svc.FindNearbyProviders(context.Background(), AtCoords(0, 0), 1)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, counting.calls)
}

func TestFindNearbyProviders_Chunks(t *testing.T) {
	var records []gazetteer.ZipRecord
	var seeded []store.Provider
	var want []string
	for i := range 25 {
		zip := fmt.Sprintf("%05d", 20000+i)
		records = append(records, gazetteer.ZipRecord{Zip: zip, Lat: 40 + float64(i)*0.001, Lon: -75})
		id := fmt.Sprintf("prov-%02d", i)
		seeded = append([]store.Provider{{ID: id, Name: id, Zip: zip}}, seeded...)
		want = append(want, id)
	}
	// store order is the reverse of distance order
	mem := store.NewMemoryStore()
	seedProviders(t, mem, seeded...)

	counting := &countingStore{ProviderStore: mem}
	svc := NewService(gazetteertest.New(t, records), counting, WithParallelism(2))

	got, err := svc.FindNearbyProviders(context.Background(), AtCoords(40, -75), 10)
	require.NoError(t, err)
	assert.Equal(t, want, providerIDs(got))
	assert.Equal(t, 3, counting.calls)
	assert.Equal(t, store.MaxInFilter, counting.largest)
}

func TestFindNearbyProviders_DuplicateZip(t *testing.T) {
	var records []gazetteer.ZipRecord
	for i := range 12 {
		zip := fmt.Sprintf("%05d", 30000+i)
		records = append(records, gazetteer.ZipRecord{Zip: zip, Lat: 40, Lon: -75 + float64(i)*0.01})
	}
	// a second 30000 about 6.9 miles out, past every other ZIP and so in the second chunk
	records = append(records, gazetteer.ZipRecord{Zip: "30000", Lat: 40.1, Lon: -75})

	mem := store.NewMemoryStore()
	seedProviders(t, mem, store.Provider{ID: "p", Name: "Only", Zip: "30000"})
	counting := &countingStore{ProviderStore: mem}
	svc := NewService(gazetteertest.New(t, records), counting)

	zips, err := svc.FindNearbyZipsByCoords(40, -75, 10)
	require.NoError(t, err)
	assert.Len(t, zips, 12)
	seen := make(map[string]bool)
	for _, zip := range zips {
		assert.False(t, seen[zip], "zip %s returned twice", zip)
		seen[zip] = true
	}

	got, err := svc.FindNearbyProviders(context.Background(), AtCoords(40, -75), 10)
	require.NoError(t, err)
	require.Equal(t, []string{"p"}, providerIDs(got))
	assert.Zero(t, got[0].Distance)
	assert.Equal(t, 2, counting.calls)
}

func TestFindNearbyProviders_SmallerChunks(t *testing.T) {
	mem := store.NewMemoryStore()
	counting := &countingStore{ProviderStore: mem}
	svc := newYorkService(t, counting, WithChunkSize(4), WithChunkSize(50))

	_, err := svc.FindNearbyProviders(context.Background(), AtZip("10001"), 5)
	require.NoError(t, err)
	// 13 zips in chunks of 4, the oversized option is ignored
	assert.Equal(t, 4, counting.calls)
	assert.Equal(t, 4, counting.largest)
}

func TestFindNearbyProviders_StoreFailure(t *testing.T) {
	boom := errors.New("connection reset")
	counting := &countingStore{ProviderStore: store.NewMemoryStore(), err: boom}
	svc := newYorkService(t, counting)

	got, err := svc.FindNearbyProviders(context.Background(), AtZip("10001"), 50)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrDependencyFailure)
	assert.ErrorIs(t, err, boom)
}

func TestFindNearbyProviders_Cancelled(t *testing.T) {
	svc := newYorkService(t, store.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.FindNearbyProviders(ctx, AtZip("10001"), 5)
	assert.ErrorIs(t, err, ErrDependencyFailure)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindNearbyProviders_NoStore(t *testing.T) {
	svc := newYorkService(t, nil)

	_, err := svc.FindNearbyProviders(context.Background(), AtZip("10001"), 5)
	assert.ErrorIs(t, err, ErrDependencyFailure)
}

// strayStore returns a provider whose ZIP the gazetteer does not know.
type strayStore struct{ store.ProviderStore }

func (strayStore) FindByZips(_ context.Context, zips []string) ([]store.Provider, error) {
	return []store.Provider{
		{ID: "known", Zip: zips[0]},
		{ID: "stray", Zip: "00000"},
	}, nil
}

func TestFindNearbyProviders_SkipsUnknownZip(t *testing.T) {
	svc := newYorkService(t, strayStore{})

	got, err := svc.FindNearbyProviders(context.Background(), AtZip("10001"), 0.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"known"}, providerIDs(got))
}

func TestChunk(t *testing.T) {
	zips := make([]string, 25)
	for i := range zips {
		zips[i] = fmt.Sprint(i)
	}
	chunks := chunk(zips, 10)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 10)
	assert.Len(t, chunks[1], 10)
	assert.Len(t, chunks[2], 5)
	assert.Equal(t, 10, cap(chunks[0]))

	assert.Empty(t, chunk(nil, 10))
	assert.Len(t, chunk(zips[:10], 10), 1)
}
