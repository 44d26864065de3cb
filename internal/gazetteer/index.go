package gazetteer

import (
	"cmp"
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/umahmood/haversine"
)

const (
	// earthRadiusKm matches the radius the haversine package uses for its km result.
	earthRadiusKm = 6371.0

	// R-tree branching used for the bulk load.
	minChildren = 25
	maxChildren = 50

	// pointSize is the edge of the degenerate rect stored for each centroid.
	pointSize = 1e-9

	// boxPad widens every search box so points on its edge still intersect.
	boxPad = 1e-6
)

// indexPoint is a centroid stored in the R-tree. pos is the record's position
// in the gazetteer's record slice.
type indexPoint struct {
	rect rtreego.Rect
	pos  int
	lat  float64
	lon  float64
}

func (p *indexPoint) Bounds() rtreego.Rect {
	return p.rect
}

// Builder collects centroids before the index is built. Once Finish has
// been called the builder is spent; only the returned Index can be queried.
type Builder struct {
	points   []rtreego.Spatial
	finished bool
}

// NewBuilder returns a builder sized for n points.
func NewBuilder(n int) *Builder {
	return &Builder{points: make([]rtreego.Spatial, 0, n)}
}

// Add stores (lon, lat) under position pos.
func (b *Builder) Add(pos int, lon, lat float64) {
	if b.finished {
		panic("gazetteer: Add called after Finish")
	}
	// store as a tiny rect anchored at the point
	rect, _ := rtreego.NewRect(rtreego.Point{lon, lat}, []float64{pointSize, pointSize})
	b.points = append(b.points, &indexPoint{rect: rect, pos: pos, lat: lat, lon: lon})
}

// Finish bulk-loads the R-tree and returns the immutable index.
func (b *Builder) Finish() *Index {
	if b.finished {
		panic("gazetteer: Finish called twice")
	}
	b.finished = true
	// dim = 2 for (lon, lat)
	tree := rtreego.NewTree(2, minChildren, maxChildren, b.points...)
	size := len(b.points)
	b.points = nil
	return &Index{tree: tree, size: size}
}

// Index is a read-only spatial index over ZIP centroids. It is safe for
// concurrent use.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// Len returns the number of indexed points.
func (ix *Index) Len() int {
	return ix.size
}

type candidate struct {
	pos int
	km  float64
}

// NearestWithinUpperBound returns up to maxCount positions whose centroid lies
// within upperBoundKm of (lon, lat), nearest first. Distances come from the
// haversine package with a 6371 km sphere, so the bound is slightly looser
// than the 3959 mile distance callers filter with.
func (ix *Index) NearestWithinUpperBound(lon, lat float64, maxCount int, upperBoundKm float64) []int {
	if ix.size == 0 || maxCount <= 0 || !(upperBoundKm >= 0) || math.IsInf(upperBoundKm, 0) {
		return nil
	}
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return nil
	}

	origin := haversine.Coord{Lat: lat, Lon: lon}
	boxes := searchBoxes(lon, lat, upperBoundKm)

	var hits []candidate
	for _, box := range boxes {
		for _, s := range ix.tree.SearchIntersect(box) {
			p := s.(*indexPoint)
			_, km := haversine.Distance(origin, haversine.Coord{Lat: p.lat, Lon: p.lon})
			if km <= upperBoundKm {
				hits = append(hits, candidate{pos: p.pos, km: km})
			}
		}
	}

	slices.SortFunc(hits, func(a, b candidate) int {
		if c := cmp.Compare(a.km, b.km); c != 0 {
			return c
		}
		return cmp.Compare(a.pos, b.pos)
	})
	// a point sitting on the antimeridian can match both halves of a split box
	if len(boxes) > 1 {
		hits = slices.CompactFunc(hits, func(a, b candidate) bool { return a.pos == b.pos })
	}

	if len(hits) > maxCount {
		hits = hits[:maxCount]
	}
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.pos
	}
	return out
}

// searchBoxes returns the lon/lat rectangles covering every point within km
// of the origin. Boxes crossing the antimeridian are split in two.
func searchBoxes(lon, lat, km float64) []rtreego.Rect {
	delta := km / earthRadiusKm // angular radius
	deltaDeg := delta*180/math.Pi + boxPad

	minLat := lat - deltaDeg
	maxLat := lat + deltaDeg
	minLon, maxLon := -180.0, 180.0

	if minLat <= -90 || maxLat >= 90 || delta >= math.Pi/2 {
		// a pole is inside the circle, every longitude is reachable
		minLat = math.Max(minLat, -90-boxPad)
		maxLat = math.Min(maxLat, 90+boxPad)
		return []rtreego.Rect{mustRect(minLon-boxPad, minLat, maxLon+boxPad, maxLat)}
	}

	ratio := math.Sin(delta) / math.Cos(lat*math.Pi/180)
	if ratio >= 1 {
		return []rtreego.Rect{mustRect(minLon-boxPad, minLat, maxLon+boxPad, maxLat)}
	}
	dLon := math.Asin(ratio)*180/math.Pi + boxPad
	minLon = lon - dLon
	maxLon = lon + dLon

	switch {
	case minLon < -180:
		return []rtreego.Rect{
			mustRect(minLon+360, minLat, 180+boxPad, maxLat),
			mustRect(-180-boxPad, minLat, maxLon, maxLat),
		}
	case maxLon > 180:
		return []rtreego.Rect{
			mustRect(minLon, minLat, 180+boxPad, maxLat),
			mustRect(-180-boxPad, minLat, maxLon-360, maxLat),
		}
	default:
		return []rtreego.Rect{mustRect(minLon, minLat, maxLon, maxLat)}
	}
}

func mustRect(minLon, minLat, maxLon, maxLat float64) rtreego.Rect {
	rect, err := rtreego.NewRect(rtreego.Point{minLon, minLat}, []float64{maxLon - minLon, maxLat - minLat})
	if err != nil {
		// lengths are always positive thanks to boxPad
		panic(err)
	}
	return rect
}
