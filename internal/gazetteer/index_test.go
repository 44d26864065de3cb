package gazetteer

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(points ...[2]float64) *Index {
	b := NewBuilder(len(points))
	for i, p := range points {
		b.Add(i, p[0], p[1])
	}
	return b.Finish()
}

func TestIndex_NearestFirst(t *testing.T) {
	// (lon, lat) pairs along a line east of the origin
	ix := buildIndex(
		[2]float64{-73.90, 40.75},
		[2]float64{-73.99, 40.75},
		[2]float64{-73.95, 40.75},
		[2]float64{-73.80, 40.75},
	)
	got := ix.NearestWithinUpperBound(-74.0, 40.75, math.MaxInt, 50)
	assert.Equal(t, []int{1, 2, 0, 3}, got)
}

func TestIndex_MaxCount(t *testing.T) {
	ix := buildIndex(
		[2]float64{-73.90, 40.75},
		[2]float64{-73.99, 40.75},
		[2]float64{-73.95, 40.75},
	)
	assert.Equal(t, []int{1, 2}, ix.NearestWithinUpperBound(-74.0, 40.75, 2, 50))
	assert.Empty(t, ix.NearestWithinUpperBound(-74.0, 40.75, 0, 50))
}

func TestIndex_UpperBound(t *testing.T) {
	ix := buildIndex(
		[2]float64{-74.0, 40.75},  // origin
		[2]float64{-74.0, 40.80},  // ~5.6 km north
		[2]float64{-74.0, 41.00},  // ~27.8 km north
	)
	assert.Equal(t, []int{0, 1}, ix.NearestWithinUpperBound(-74.0, 40.75, math.MaxInt, 10))
	assert.Equal(t, []int{0}, ix.NearestWithinUpperBound(-74.0, 40.75, math.MaxInt, 1))
	assert.Equal(t, []int{0, 1, 2}, ix.NearestWithinUpperBound(-74.0, 40.75, math.MaxInt, 30))
}

func TestIndex_ZeroBoundFindsOrigin(t *testing.T) {
	ix := buildIndex([2]float64{-74.0, 40.75}, [2]float64{-74.001, 40.75})
	assert.Equal(t, []int{0}, ix.NearestWithinUpperBound(-74.0, 40.75, math.MaxInt, 0))
}

func TestIndex_AcrossAntimeridian(t *testing.T) {
	ix := buildIndex(
		[2]float64{179.9, 51.9},
		[2]float64{-179.9, 51.9},
		[2]float64{170.0, 51.9},
	)
	got := ix.NearestWithinUpperBound(179.95, 51.9, math.MaxInt, 30)
	assert.ElementsMatch(t, []int{0, 1}, got)

	got = ix.NearestWithinUpperBound(-179.95, 51.9, math.MaxInt, 30)
	assert.ElementsMatch(t, []int{0, 1}, got)
}

func TestIndex_NearPole(t *testing.T) {
	ix := buildIndex(
		[2]float64{0, 89.9},
		[2]float64{180, 89.9},
		[2]float64{0, 80},
	)
	got := ix.NearestWithinUpperBound(90, 89.95, math.MaxInt, 50)
	assert.ElementsMatch(t, []int{0, 1}, got)
}

func TestIndex_InvalidQuery(t *testing.T) {
	ix := buildIndex([2]float64{-74.0, 40.75})
	assert.Empty(t, ix.NearestWithinUpperBound(math.NaN(), 40.75, 1, 10))
	assert.Empty(t, ix.NearestWithinUpperBound(-74.0, 40.75, 1, math.NaN()))
	assert.Empty(t, ix.NearestWithinUpperBound(-74.0, 40.75, 1, -1))
	assert.Empty(t, (&Builder{}).Finish().NearestWithinUpperBound(-74.0, 40.75, 1, 10))
}

func TestBuilder_SpentAfterFinish(t *testing.T) {
	b := NewBuilder(1)
	b.Add(0, -74.0, 40.75)
	ix := b.Finish()
	require.Equal(t, 1, ix.Len())

	assert.Panics(t, func() { b.Add(1, -73.0, 40.0) })
	assert.Panics(t, func() { b.Finish() })
}

func TestIndex_ConcurrentQueries(t *testing.T) {
	ix := buildIndex(
		[2]float64{-73.90, 40.75},
		[2]float64{-73.99, 40.75},
		[2]float64{-73.95, 40.75},
	)
	want := ix.NearestWithinUpperBound(-74.0, 40.75, math.MaxInt, 50)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, want, ix.NearestWithinUpperBound(-74.0, 40.75, math.MaxInt, 50))
			}
		}()
	}
	wg.Wait()
}
