package gazetteer

import (
	"math"
	"strings"

	"github.com/thomhuang/printnearby/internal/geo"
)

// ZipRecord is one ZIP code centroid. Records without usable coordinates
// carry NaN in Lat/Lon and never enter the spatial index.
type ZipRecord struct {
	Zip string  `json:"zip"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coord returns the record's centroid.
func (r ZipRecord) Coord() geo.Coord {
	return geo.Coord{Lat: r.Lat, Lon: r.Lon}
}

// Located reports whether the record has a finite, in-range centroid.
func (r ZipRecord) Located() bool {
	return r.Coord().Valid()
}

// rawRecord is the on-disk shape; lat/lon may be null.
type rawRecord struct {
	Zip string   `json:"zip"`
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

func (r rawRecord) record() ZipRecord {
	rec := ZipRecord{Zip: r.Zip, Lat: math.NaN(), Lon: math.NaN()}
	if r.Lat != nil {
		rec.Lat = *r.Lat
	}
	if r.Lon != nil {
		rec.Lon = *r.Lon
	}
	return rec
}

func toRaw(r ZipRecord) rawRecord {
	raw := rawRecord{Zip: r.Zip}
	if !math.IsNaN(r.Lat) && !math.IsInf(r.Lat, 0) {
		lat := r.Lat
		raw.Lat = &lat
	}
	if !math.IsNaN(r.Lon) && !math.IsInf(r.Lon, 0) {
		lon := r.Lon
		raw.Lon = &lon
	}
	return raw
}

// NormalizeZip accepts "12345" or "12345-6789" (surrounding spaces allowed)
// and returns the five digit form.
func NormalizeZip(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 5 && isAllDigits(raw) {
		return raw, true
	}
	if len(raw) == 10 && raw[5] == '-' && isAllDigits(raw[:5]) && isAllDigits(raw[6:]) {
		return raw[:5], true
	}
	return "", false
}

func isAllDigits(value string) bool {
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}
