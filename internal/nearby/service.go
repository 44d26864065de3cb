// Package nearby finds ZIP codes, and the providers listed in them, within a
// mile radius of a ZIP code or coordinate.
//
// Candidates come from the gazetteer's spatial index using a generous km
// bound; the authoritative filter is the 3959 mile haversine distance,
// inclusive of the radius itself.
package nearby

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thomhuang/printnearby/internal/gazetteer"
	"github.com/thomhuang/printnearby/internal/geo"
	"github.com/thomhuang/printnearby/internal/logging"
	"github.com/thomhuang/printnearby/internal/metrics"
	"github.com/thomhuang/printnearby/internal/store"
)

const (
	opZips      = "find nearby zips"
	opProviders = "find nearby providers"
	opLookup    = "lookup zip"

	defaultParallelism = 4
)

// ZipMatch is a ZIP inside the search radius.
type ZipMatch struct {
	Zip      string  `json:"zip"`
	Distance float64 `json:"distance"`
}

// MatchedProvider is a stored provider plus its distance in miles from the
// search origin.
type MatchedProvider struct {
	store.Provider
	Distance float64 `json:"distance"`
}

// Center is a resolved search origin. Zip is the five digit ZIP for ZIP
// origins and empty for coordinate origins.
type Center struct {
	Zip string
	geo.Coord
}

// ZipSearch is the result of SearchZips.
type ZipSearch struct {
	Center  Center
	Matches []ZipMatch
}

// ProviderSearch is the result of SearchProviders.
type ProviderSearch struct {
	Center    Center
	Providers []MatchedProvider
}

// Service answers nearby searches. It holds no mutable state and is safe
// for concurrent use.
type Service struct {
	gaz         *gazetteer.Gazetteer
	providers   store.ProviderStore
	chunkSize   int
	parallelism int
}

// Option configures a Service.
type Option func(*Service)

// WithChunkSize lowers the number of ZIPs per store query. Values outside
// 1..store.MaxInFilter are ignored.
func WithChunkSize(n int) Option {
	return func(s *Service) {
		if n >= 1 && n <= store.MaxInFilter {
			s.chunkSize = n
		}
	}
}

// WithParallelism bounds how many chunk queries run at once.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n >= 1 {
			s.parallelism = n
		}
	}
}

// NewService returns a Service over a built gazetteer. providers may be nil
// when only ZIP searches are needed.
func NewService(gaz *gazetteer.Gazetteer, providers store.ProviderStore, opts ...Option) *Service {
	s := &Service{
		gaz:         gaz,
		providers:   providers,
		chunkSize:   store.MaxInFilter,
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup returns the gazetteer record for zip.
func (s *Service) Lookup(zip string) (gazetteer.ZipRecord, error) {
	if _, ok := gazetteer.NormalizeZip(zip); !ok {
		return gazetteer.ZipRecord{}, invalid(opLookup, "malformed zip %q", zip)
	}
	rec, ok := s.gaz.Lookup(zip)
	if !ok {
		return gazetteer.ZipRecord{}, &Error{Op: opLookup, Kind: ErrNotFound}
	}
	return rec, nil
}

// Resolve returns the coordinate an origin stands for.
func (s *Service) Resolve(o Origin) (geo.Coord, error) {
	c, err := s.resolve(opLookup, o)
	return c.Coord, err
}

func (s *Service) resolve(op string, o Origin) (Center, error) {
	if zip, ok := o.Zip(); ok {
		if _, ok := gazetteer.NormalizeZip(zip); !ok {
			return Center{}, invalid(op, "malformed zip %q", zip)
		}
		rec, ok := s.gaz.Lookup(zip)
		if !ok {
			return Center{}, &Error{Op: op, Kind: ErrNotFound}
		}
		return Center{Zip: rec.Zip, Coord: rec.Coord()}, nil
	}
	if !o.coord.Finite() {
		return Center{}, invalid(op, "coordinates must be finite numbers")
	}
	if !o.coord.Valid() {
		return Center{}, invalid(op, "coordinates out of range: %s", o)
	}
	return Center{Coord: o.coord}, nil
}

// NearbyZips returns every ZIP within radiusMiles of the origin together with
// its distance, in index order (nearest first).
func (s *Service) NearbyZips(o Origin, radiusMiles float64) ([]ZipMatch, error) {
	res, err := s.SearchZips(o, radiusMiles)
	return res.Matches, err
}

// SearchZips is NearbyZips that also reports the resolved origin.
func (s *Service) SearchZips(o Origin, radiusMiles float64) (ZipSearch, error) {
	started := time.Now()
	center, matches, err := s.match(opZips, o, radiusMiles)
	metrics.ObserveSearch("zips", outcome(err), started)
	if err != nil {
		return ZipSearch{}, err
	}
	return ZipSearch{Center: center, Matches: matches}, nil
}

// FindNearbyZips returns the ZIP codes within radiusMiles of the origin. An
// empty result is not an error. The radius must be positive; zero is
// rejected with ErrInvalidArgument like any other non-positive radius.
func (s *Service) FindNearbyZips(o Origin, radiusMiles float64) ([]string, error) {
	matches, err := s.NearbyZips(o, radiusMiles)
	if err != nil {
		return nil, err
	}
	zips := make([]string, len(matches))
	for i, m := range matches {
		zips[i] = m.Zip
	}
	return zips, nil
}

// FindNearbyZipsByCoords is FindNearbyZips(AtCoords(lat, lon), radiusMiles).
func (s *Service) FindNearbyZipsByCoords(lat, lon, radiusMiles float64) ([]string, error) {
	return s.FindNearbyZips(AtCoords(lat, lon), radiusMiles)
}

// FindNearbyZipsByZip is FindNearbyZips(AtZip(zip), radiusMiles).
func (s *Service) FindNearbyZipsByZip(zip string, radiusMiles float64) ([]string, error) {
	return s.FindNearbyZips(AtZip(zip), radiusMiles)
}

func (s *Service) match(op string, o Origin, radiusMiles float64) (Center, []ZipMatch, error) {
	if !(radiusMiles > 0) || math.IsInf(radiusMiles, 1) {
		return Center{}, nil, invalid(op, "radius must be a positive finite number of miles, got %v", radiusMiles)
	}
	center, err := s.resolve(op, o)
	if err != nil {
		return Center{}, nil, err
	}

	// the index bound is looser than the exact filter below, so this over-fetches
	positions := s.gaz.Nearest(center.Lon, center.Lat, math.MaxInt, geo.MilesToKm(radiusMiles))

	matches := make([]ZipMatch, 0, len(positions))
	for _, pos := range positions {
		rec, ok := s.gaz.Record(pos)
		if !ok {
			continue
		}
		d := geo.HaversineMiles(center.Coord, rec.Coord())
		if d <= radiusMiles {
			matches = append(matches, ZipMatch{Zip: rec.Zip, Distance: d})
		}
	}
	return center, matches, nil
}

// FindNearbyProviders returns providers located in any ZIP within
// radiusMiles of the origin, sorted by distance ascending. Providers at the
// same distance keep the order the store returned them in.
//
// The ZIP set is split into store.MaxInFilter sized chunks queried
// concurrently; any chunk failure fails the whole call.
func (s *Service) FindNearbyProviders(ctx context.Context, o Origin, radiusMiles float64) ([]MatchedProvider, error) {
	res, err := s.SearchProviders(ctx, o, radiusMiles)
	return res.Providers, err
}

// SearchProviders is FindNearbyProviders that also reports the resolved origin.
func (s *Service) SearchProviders(ctx context.Context, o Origin, radiusMiles float64) (ProviderSearch, error) {
	started := time.Now()
	center, out, err := s.findNearbyProviders(ctx, o, radiusMiles)
	metrics.ObserveSearch("providers", outcome(err), started)
	if err != nil {
		return ProviderSearch{}, err
	}
	return ProviderSearch{Center: center, Providers: out}, nil
}

func (s *Service) findNearbyProviders(ctx context.Context, o Origin, radiusMiles float64) (Center, []MatchedProvider, error) {
	center, matches, err := s.match(opProviders, o, radiusMiles)
	if err != nil {
		return Center{}, nil, err
	}
	if len(matches) == 0 {
		return center, []MatchedProvider{}, nil
	}
	if s.providers == nil {
		return Center{}, nil, &Error{Op: opProviders, Kind: ErrDependencyFailure, Err: errNoStore}
	}

	zips := make([]string, len(matches))
	for i, m := range matches {
		zips[i] = m.Zip
	}
	chunks := chunk(zips, s.chunkSize)

	// each goroutine owns one slot, merged in chunk order afterwards
	results := make([][]store.Provider, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, c := range chunks {
		g.Go(func() error {
			found, err := s.providers.FindByZips(gctx, c)
			if err != nil {
				metrics.StoreChunkQueries.WithLabelValues("error").Inc()
				return err
			}
			metrics.StoreChunkQueries.WithLabelValues("ok").Inc()
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("origin", o.String()).Int("chunks", len(chunks)).
			Msg("provider lookup failed")
		return Center{}, nil, &Error{Op: opProviders, Kind: ErrDependencyFailure, Err: err}
	}

	var out []MatchedProvider
	for _, found := range results {
		for _, p := range found {
			rec, ok := s.gaz.Lookup(p.Zip)
			if !ok {
				logging.Ctx(ctx).Debug().Str("provider", p.ID).Str("zip", p.Zip).
					Msg("provider zip missing from gazetteer")
				continue
			}
			out = append(out, MatchedProvider{
				Provider: p,
				Distance: geo.HaversineMiles(center.Coord, rec.Coord()),
			})
		}
	}
	if out == nil {
		out = []MatchedProvider{}
	}

	slices.SortStableFunc(out, func(a, b MatchedProvider) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return center, out, nil
}

// chunk splits zips into consecutive groups of at most size.
func chunk(zips []string, size int) [][]string {
	out := make([][]string, 0, (len(zips)+size-1)/size)
	for start := 0; start < len(zips); start += size {
		end := min(start+size, len(zips))
		out = append(out, zips[start:end:end])
	}
	return out
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "dependency_failure"
	}
}
