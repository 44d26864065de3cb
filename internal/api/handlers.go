package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thomhuang/printnearby/internal/nearby"
)

// Handler serves the search endpoints over a nearby.Service.
type Handler struct {
	svc       *nearby.Service
	maxRadius float64
	ready     func() error
	startTime time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMaxRadius caps the radius accepted from clients.
func WithMaxRadius(miles float64) HandlerOption {
	return func(h *Handler) { h.maxRadius = miles }
}

// WithReadiness sets the check behind /health/ready. A non-nil error marks
// the service not ready.
func WithReadiness(check func() error) HandlerOption {
	return func(h *Handler) { h.ready = check }
}

func NewHandler(svc *nearby.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:       svc,
		maxRadius: 500,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type originView struct {
	Zip string  `json:"zip,omitempty"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type zipView struct {
	Zip      string  `json:"zip"`
	Distance float64 `json:"distance"`
}

type providerView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Zip       string   `json:"zip"`
	Materials []string `json:"materials,omitempty"`
	Status    string   `json:"status,omitempty"`
	Distance  float64  `json:"distance"`
}

type nearbyZipsData struct {
	Origin originView `json:"origin"`
	Radius float64    `json:"radius"`
	Count  int        `json:"count"`
	Zips   []zipView  `json:"zips"`
}

type nearbyProvidersData struct {
	Origin    originView     `json:"origin"`
	Radius    float64        `json:"radius"`
	Count     int            `json:"count"`
	Providers []providerView `json:"providers"`
}

// roundMiles trims distances for display; the service compares unrounded values.
func roundMiles(d float64) float64 {
	return math.Round(d*1000) / 1000
}

// parseNearby validates the query string and builds the origin. Resolving
// it is left to the search so its outcome is recorded with the search.
func (h *Handler) parseNearby(w http.ResponseWriter, r *http.Request) (nearby.Origin, float64, bool) {
	q := r.URL.Query()
	req := nearbyQuery{
		Zip:    strings.TrimSpace(q.Get("zip")),
		Lat:    strings.TrimSpace(q.Get("lat")),
		Lon:    strings.TrimSpace(q.Get("lon")),
		Radius: strings.TrimSpace(q.Get("radius")),
	}
	if apiErr := validateStruct(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr)
		return nearby.Origin{}, 0, false
	}

	// the validator already vetted the number formats
	radius, _ := strconv.ParseFloat(req.Radius, 64)
	if radius > h.maxRadius {
		respondError(w, r, http.StatusBadRequest, &APIError{
			Code:    CodeInvalidArgument,
			Message: "radius exceeds the maximum of " + strconv.FormatFloat(h.maxRadius, 'f', -1, 64) + " miles",
			Details: map[string]any{"field": "radius", "max": h.maxRadius},
		})
		return nearby.Origin{}, 0, false
	}

	if req.Zip != "" {
		return nearby.AtZip(req.Zip), radius, true
	}
	lat, _ := strconv.ParseFloat(req.Lat, 64)
	lon, _ := strconv.ParseFloat(req.Lon, 64)
	return nearby.AtCoords(lat, lon), radius, true
}

func viewOf(c nearby.Center) originView {
	return originView{Zip: c.Zip, Lat: c.Lat, Lon: c.Lon}
}

// ZipsNearby handles GET /api/v1/zips/nearby.
func (h *Handler) ZipsNearby(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	origin, radius, ok := h.parseNearby(w, r)
	if !ok {
		return
	}

	res, err := h.svc.SearchZips(origin, radius)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	zips := make([]zipView, len(res.Matches))
	for i, m := range res.Matches {
		zips[i] = zipView{Zip: m.Zip, Distance: roundMiles(m.Distance)}
	}
	respondData(w, r, nearbyZipsData{Origin: viewOf(res.Center), Radius: radius, Count: len(zips), Zips: zips}, started)
}

// ProvidersNearby handles GET /api/v1/providers/nearby.
func (h *Handler) ProvidersNearby(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	origin, radius, ok := h.parseNearby(w, r)
	if !ok {
		return
	}

	res, err := h.svc.SearchProviders(r.Context(), origin, radius)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	providers := make([]providerView, len(res.Providers))
	for i, m := range res.Providers {
		providers[i] = providerView{
			ID:        m.ID,
			Name:      m.Name,
			Zip:       m.Zip,
			Materials: m.Materials,
			Status:    m.Status,
			Distance:  roundMiles(m.Distance),
		}
	}
	respondData(w, r, nearbyProvidersData{Origin: viewOf(res.Center), Radius: radius, Count: len(providers), Providers: providers}, started)
}

// Zip handles GET /api/v1/zips/{zip}.
func (h *Handler) Zip(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	rec, err := h.svc.Lookup(chi.URLParam(r, "zip"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, r, originView{Zip: rec.Zip, Lat: rec.Lat, Lon: rec.Lon}, started)
}

// HealthLive reports that the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady reports whether searches can be served.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		respondError(w, r, http.StatusServiceUnavailable, &APIError{Code: CodeNotReady, Message: "gazetteer not loaded"})
		return
	}
	if h.ready != nil {
		if err := h.ready(); err != nil {
			respondError(w, r, http.StatusServiceUnavailable, &APIError{Code: CodeNotReady, Message: err.Error()})
			return
		}
	}
	respondData(w, r, map[string]any{"ready": true}, time.Now())
}
