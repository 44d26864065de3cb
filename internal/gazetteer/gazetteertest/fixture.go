// Package gazetteertest provides small real-world gazetteers for tests.
package gazetteertest

import (
	"testing"

	"github.com/thomhuang/printnearby/internal/gazetteer"
)

// NewYork returns census ZCTA centroids around New York City plus a few far
// away ZIPs. Coordinates are rounded published values.
func NewYork() []gazetteer.ZipRecord {
	return []gazetteer.ZipRecord{
		{Zip: "10001", Lat: 40.750742, Lon: -73.996530},
		{Zip: "10002", Lat: 40.715233, Lon: -73.986099},
		{Zip: "10003", Lat: 40.731830, Lon: -73.989181},
		{Zip: "10011", Lat: 40.741952, Lon: -74.000482},
		{Zip: "10016", Lat: 40.745221, Lon: -73.978294},
		{Zip: "10019", Lat: 40.765829, Lon: -73.985607},
		{Zip: "10025", Lat: 40.798601, Lon: -73.966622},
		{Zip: "10036", Lat: 40.759260, Lon: -73.989860},
		{Zip: "10128", Lat: 40.781433, Lon: -73.950064},
		{Zip: "10451", Lat: 40.820479, Lon: -73.923810},
		{Zip: "10471", Lat: 40.900870, Lon: -73.905480},
		{Zip: "10301", Lat: 40.631602, Lon: -74.092663},
		{Zip: "11201", Lat: 40.694021, Lon: -73.990382},
		{Zip: "11211", Lat: 40.712597, Lon: -73.953098},
		{Zip: "11040", Lat: 40.745000, Lon: -73.680000},
		{Zip: "07030", Lat: 40.745341, Lon: -74.027900},
		{Zip: "07302", Lat: 40.722015, Lon: -74.046708},
		{Zip: "06830", Lat: 41.044852, Lon: -73.628607},
		{Zip: "90210", Lat: 34.100517, Lon: -118.414712},
		{Zip: "99546", Lat: 51.878000, Lon: -176.658000},
	}
}

// New builds a gazetteer from records, failing the test on error.
func New(t testing.TB, records []gazetteer.ZipRecord) *gazetteer.Gazetteer {
	t.Helper()
	g, err := gazetteer.New(records)
	if err != nil {
		t.Fatalf("build gazetteer: %v", err)
	}
	return g
}

// NewYorkGazetteer is New(t, NewYork()).
func NewYorkGazetteer(t testing.TB) *gazetteer.Gazetteer {
	t.Helper()
	return New(t, NewYork())
}
