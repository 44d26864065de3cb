package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	manhattan  = Coord{Lat: 40.750742, Lon: -73.99653}
	beverly    = Coord{Lat: 34.100517, Lon: -118.414712}
	hoboken    = Coord{Lat: 40.745341, Lon: -74.0279}
	westAleut  = Coord{Lat: 51.9, Lon: 179.9}
	eastAleut  = Coord{Lat: 51.9, Lon: -179.9}
	northPole  = Coord{Lat: 90, Lon: 0}
	southPole  = Coord{Lat: -90, Lon: 0}
	equatorOne = Coord{Lat: 0, Lon: 1}
)

func TestHaversineMiles_KnownDistances(t *testing.T) {
	// NYC to Beverly Hills is roughly 2,450 miles
	assert.InDelta(t, 2450, HaversineMiles(manhattan, beverly), 15)
	// Chelsea to Hoboken is under two miles
	assert.InDelta(t, 1.65, HaversineMiles(manhattan, hoboken), 0.1)
	// one degree of longitude on the equator
	assert.InDelta(t, EarthRadiusMiles*math.Pi/180, HaversineMiles(Coord{}, equatorOne), 1e-9)
}

func TestHaversineMiles_Zero(t *testing.T) {
	assert.Equal(t, 0.0, HaversineMiles(manhattan, manhattan))
}

func TestHaversineMiles_Symmetric(t *testing.T) {
	pairs := [][2]Coord{
		{manhattan, beverly},
		{manhattan, hoboken},
		{westAleut, eastAleut},
		{northPole, southPole},
	}
	for _, p := range pairs {
		ab := HaversineMiles(p[0], p[1])
		ba := HaversineMiles(p[1], p[0])
		assert.InEpsilon(t, ab, ba, 1e-9)
	}
}

func TestHaversineMiles_AcrossAntimeridian(t *testing.T) {
	d := HaversineMiles(westAleut, eastAleut)
	assert.Less(t, d, 10.0)
	assert.Greater(t, d, 8.0)
}

func TestHaversineMiles_Antipodal(t *testing.T) {
	d := HaversineMiles(northPole, southPole)
	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, EarthRadiusMiles*math.Pi, d, 1e-6)
}

func TestMilesToKm(t *testing.T) {
	assert.InDelta(t, 8.0467, MilesToKm(5), 1e-9)
	assert.Equal(t, 0.0, MilesToKm(0))
}

func TestCoordValid(t *testing.T) {
	assert.True(t, manhattan.Valid())
	assert.True(t, northPole.Valid())
	assert.False(t, Coord{Lat: math.NaN(), Lon: 0}.Valid())
	assert.False(t, Coord{Lat: 0, Lon: math.Inf(1)}.Valid())
	assert.False(t, Coord{Lat: 91, Lon: 0}.Valid())
	assert.False(t, Coord{Lat: 0, Lon: -180.5}.Valid())
	assert.True(t, Coord{Lat: 91, Lon: 0}.Finite())
}
