package nearby

import (
	"strconv"

	"github.com/thomhuang/printnearby/internal/geo"
)

// Origin is the centre of a search: a ZIP code resolved through the
// gazetteer, or a raw coordinate.
type Origin struct {
	zip    string
	coord  geo.Coord
	hasZip bool
}

// AtZip returns an origin at the centroid of zip.
func AtZip(zip string) Origin {
	return Origin{zip: zip, hasZip: true}
}

// AtCoords returns an origin at lat, lon.
func AtCoords(lat, lon float64) Origin {
	return Origin{coord: geo.Coord{Lat: lat, Lon: lon}}
}

// Zip returns the ZIP the origin was built from, if any.
func (o Origin) Zip() (string, bool) {
	return o.zip, o.hasZip
}

func (o Origin) String() string {
	if o.hasZip {
		return "zip " + o.zip
	}
	return strconv.FormatFloat(o.coord.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(o.coord.Lon, 'f', -1, 64)
}
