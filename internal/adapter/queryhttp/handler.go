// Package queryhttp exposes the query planner (internal/query) over the
// HTTP surface described in spec §6 for the forward/autocomplete/reverse
// geocoding endpoints. It binds gin routes to query.Executor and shapes
// responses into the GeoJSON-like form spec §6 defines; it is not a
// general-purpose API framework.
package queryhttp

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/basincode/cypress/internal/domain"
	"github.com/basincode/cypress/internal/query"
)

// maxForwardSize and maxAutocompleteSize cap `size` per spec §6
// ("size ≤40" / "size ≤20").
const (
	maxForwardSize      = 40
	maxAutocompleteSize = 20
)

// Executor is the subset of *query.Executor this package depends on,
// narrowed to an interface so handlers can be tested against a fake.
type Executor interface {
	Forward(ctx context.Context, req query.Request) (query.Response, error)
	Autocomplete(ctx context.Context, req query.Request) (query.Response, error)
	Reverse(ctx context.Context, req query.Request) (query.Response, error)
}

// Handler binds the v1/v2 search, autocomplete, and reverse routes to
// an Executor.
type Handler struct {
	exec Executor
}

// NewHandler returns a Handler serving queries through exec.
func NewHandler(exec Executor) *Handler {
	return &Handler{exec: exec}
}

// RegisterRoutes attaches this package's routes to r (spec §6 "HTTP
// surface").
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/search", h.handleSearch(false, false))
	r.GET("/v1/autocomplete", h.handleSearch(true, false))
	r.GET("/v1/reverse", h.handleReverse)
	r.GET("/v2/search", h.handleSearch(false, true))
}

func (h *Handler) handleSearch(autocomplete, includeNames bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		text := c.Query("text")
		if text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}

		maxSize := maxForwardSize
		if autocomplete {
			maxSize = maxAutocompleteSize
		}

		req := query.Request{
			Text:   text,
			Lang:   c.Query("lang"),
			Layers: parseLayers(c.Query("layers")),
			Bbox:   parseBbox(c.Query("bbox")),
			Focus:  parseFocus(c),
			Size:   clampSize(c.Query("size"), maxSize),
		}

		var (
			resp query.Response
			err  error
		)
		if autocomplete {
			resp, err = h.exec.Autocomplete(c.Request.Context(), req)
		} else {
			resp, err = h.exec.Forward(c.Request.Context(), req)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, toFeatureCollection(resp, includeNames))
	}
}

func (h *Handler) handleReverse(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("point.lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("point.lon"), 64)
	if latErr != nil || lonErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "point.lat and point.lon are required"})
		return
	}

	req := query.Request{
		Point:  &domain.GeoPoint{Lat: lat, Lon: lon},
		Layers: parseLayers(c.Query("layers")),
		Size:   clampSize(c.Query("size"), maxForwardSize),
	}

	resp, err := h.exec.Reverse(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toFeatureCollection(resp, false))
}

func parseLayers(raw string) []domain.Layer {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	layers := make([]domain.Layer, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			layers = append(layers, domain.Layer(p))
		}
	}
	return layers
}

// parseBbox reads "minLon,minLat,maxLon,maxLat" (spec §6).
func parseBbox(raw string) *domain.GeoBbox {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil
		}
		vals[i] = v
	}
	bbox := domain.NewGeoBbox(vals[0], vals[1], vals[2], vals[3])
	return &bbox
}

func parseFocus(c *gin.Context) *query.FocusPoint {
	lat, latErr := strconv.ParseFloat(c.Query("focus.point.lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("focus.point.lon"), 64)
	if latErr != nil || lonErr != nil {
		return nil
	}
	weight := 3.0 // spec §4.12 "weight focus_weight (default 3)"
	if w, err := strconv.ParseFloat(c.Query("focus.point.weight"), 64); err == nil {
		weight = w
	}
	return &query.FocusPoint{Lat: lat, Lon: lon, Weight: weight}
}

func clampSize(raw string, max int) int {
	if raw == "" {
		return max
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return max
	}
	if n > max {
		return max
	}
	return n
}

// featureCollection and feature mirror the GeoJSON-like shape spec §6
// describes ("Feature" shape).
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func toFeatureCollection(resp query.Response, includeNames bool) featureCollection {
	features := make([]feature, 0, len(resp.Results))
	for _, r := range resp.Results {
		features = append(features, toFeature(r, includeNames))
	}
	return featureCollection{Type: "FeatureCollection", Features: features}
}

func toFeature(r query.Result, includeNames bool) feature {
	p := r.Place
	props := map[string]any{
		"id":     p.SourceID,
		"name":   r.DisplayName,
		"label":  r.DisplayName,
		"layer":  p.Layer,
		"score":  r.Score,
	}
	if p.Address != nil && !p.Address.IsEmpty() {
		props["address"] = p.Address
	}
	if r.DistanceM != nil {
		props["distance"] = *r.DistanceM
	}
	for _, parent := range r.Parents {
		levelName := parent.Level.String()
		props[levelName] = map[string]any{
			"name": parent.Name,
			"abbr": parent.Abbr,
			"id":   parent.ID,
		}
		// v2 additionally returns "<field>_names" maps per admin slot
		// (spec §6 "GET /v2/search returns the v1 shape plus
		// <field>_names maps for each admin slot").
		if includeNames {
			props[levelName+"_names"] = parent.Names
		}
	}

	return feature{
		Type: "Feature",
		Geometry: geometry{
			Type:        "Point",
			Coordinates: [2]float64{p.CenterPoint.Lon, p.CenterPoint.Lat},
		},
		Properties: props,
	}
}
