// Package gazetteer loads the US ZIP centroid dataset and answers radius
// queries against a spatial index built once at startup.
//
// A Gazetteer is immutable after New returns: the record slice, the ZIP
// lookup table and the index are shared read-only by every request.
package gazetteer

import (
	"errors"
	"fmt"
)

// ErrDatasetLoad marks any failure to decompress, parse or index the
// startup dataset. The process must not serve geospatial queries after it.
var ErrDatasetLoad = errors.New("gazetteer dataset load failed")

// Gazetteer maps ZIP codes to centroids and owns the spatial index over them.
type Gazetteer struct {
	records []ZipRecord
	byZip   map[string]int
	index   *Index
}

// New indexes records. Position i in the index refers to records[i]; records
// without a usable centroid are kept for positional stability but are not
// indexed and cannot be looked up. When a ZIP appears more than once only its
// first located record is indexed, so every ZIP is returned at most once.
func New(records []ZipRecord) (*Gazetteer, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: dataset is empty", ErrDatasetLoad)
	}

	owned := make([]ZipRecord, len(records))
	copy(owned, records)

	byZip := make(map[string]int, len(owned))
	builder := NewBuilder(len(owned))
	for i, rec := range owned {
		if !rec.Located() {
			continue
		}
		// first occurrence wins for duplicate ZIPs
		if _, dup := byZip[rec.Zip]; dup {
			continue
		}
		byZip[rec.Zip] = i
		builder.Add(i, rec.Lon, rec.Lat)
	}
	if len(byZip) == 0 {
		return nil, fmt.Errorf("%w: no record has usable coordinates", ErrDatasetLoad)
	}

	return &Gazetteer{
		records: owned,
		byZip:   byZip,
		index:   builder.Finish(),
	}, nil
}

// Len returns the number of records, located or not.
func (g *Gazetteer) Len() int {
	return len(g.records)
}

// Located returns the number of indexed records.
func (g *Gazetteer) Located() int {
	return g.index.Len()
}

// Lookup returns the record for a ZIP code. ZIP+4 input is accepted.
func (g *Gazetteer) Lookup(zip string) (ZipRecord, bool) {
	zip5, ok := NormalizeZip(zip)
	if !ok {
		return ZipRecord{}, false
	}
	pos, ok := g.byZip[zip5]
	if !ok {
		return ZipRecord{}, false
	}
	return g.records[pos], true
}

// Record maps an index position back to its record. It reports false for
// positions outside the dataset or without a centroid.
func (g *Gazetteer) Record(pos int) (ZipRecord, bool) {
	if pos < 0 || pos >= len(g.records) {
		return ZipRecord{}, false
	}
	rec := g.records[pos]
	if !rec.Located() {
		return ZipRecord{}, false
	}
	return rec, true
}

// Each calls fn for every located record in dataset order, duplicates
// included.
func (g *Gazetteer) Each(fn func(ZipRecord)) {
	for _, rec := range g.records {
		if rec.Located() {
			fn(rec)
		}
	}
}

// Nearest proxies to the index; see Index.NearestWithinUpperBound.
func (g *Gazetteer) Nearest(lon, lat float64, maxCount int, upperBoundKm float64) []int {
	return g.index.NearestWithinUpperBound(lon, lat, maxCount, upperBoundKm)
}
