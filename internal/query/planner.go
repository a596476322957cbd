// Package query implements the forward/autocomplete/reverse query
// planner and executor (spec §4.12): it builds a text-index query,
// hydrates the returned IDs against the KV store, applies importance
// and focus-point rescoring, and filters the returned admin hierarchy
// by layer rank before handing results back to an external caller
// (e.g. internal/adapter/queryhttp).
package query

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"

	"github.com/basincode/cypress/internal/domain"
	"github.com/basincode/cypress/internal/kvstore"
	"github.com/basincode/cypress/internal/observability"
	"github.com/basincode/cypress/internal/textindex"
)

// maxAdminBatch mirrors kvstore's safe IN-list cap (spec §4.9).
const maxAdminBatch = 9

// focusSigmaKM is the Gaussian decay scale used by the local focus
// rescore (spec §4.12/§8 scenario 5: "decay = exp(-d²/(2·50²))").
const focusSigmaKM = 50.0

// FocusPoint is the optional rescoring anchor for forward/autocomplete
// queries (spec §4.12 "Local focus rescoring").
type FocusPoint struct {
	Lat, Lon float64
	Weight   float64
}

// Request describes one forward, autocomplete, or reverse query.
type Request struct {
	Text   string
	Lang   string
	Layers []domain.Layer
	Bbox   *domain.GeoBbox
	Focus  *FocusPoint
	Point  *domain.GeoPoint // reverse only
	Size   int
}

// ResolvedParent is a displayed admin hierarchy slot. Names is only
// populated when the caller asks for it (the v2 HTTP shape's
// "<field>_names" maps); v1 only needs Name.
type ResolvedParent struct {
	Level domain.AdminLevel
	Name  string
	Abbr  string
	ID    string
	Bbox  *domain.GeoBbox
	Names map[string]string
}

// Result is one hydrated, rescored, hierarchy-filtered hit.
type Result struct {
	Place       domain.NormalizedPlace
	DisplayName string
	Parents     []ResolvedParent
	Score       float64
	DistanceM   *float64 // set for reverse results
}

// Response is the full result set for one request.
type Response struct {
	Results []Result
}

// Executor runs queries against the text index, hydrating hits from
// the KV store (spec §4.12).
type Executor struct {
	text    *typesense.Client
	kv      *kvstore.Client
	metrics *observability.Metrics
}

// NewExecutor builds an Executor from its collaborators.
func NewExecutor(text *typesense.Client, kv *kvstore.Client, metrics *observability.Metrics) *Executor {
	return &Executor{text: text, kv: kv, metrics: metrics}
}

// Forward runs a forward-geocoding query: text match across name,
// phrase, address, and parent name fields, with optional layer/bbox
// filters, importance and focus-point rescoring.
func (e *Executor) Forward(ctx context.Context, req Request) (Response, error) {
	params := textindex.BuildForwardQuery(textindex.ForwardQueryOptions{
		Text: req.Text, Layers: req.Layers, Bbox: req.Bbox, Autocomplete: false,
	})
	return e.run(ctx, "forward", req, params)
}

// Autocomplete is Forward with prefix matching against name_all.autocomplete.
func (e *Executor) Autocomplete(ctx context.Context, req Request) (Response, error) {
	params := textindex.BuildForwardQuery(textindex.ForwardQueryOptions{
		Text: req.Text, Layers: req.Layers, Bbox: req.Bbox, Autocomplete: true,
	})
	return e.run(ctx, "autocomplete", req, params)
}

// Reverse runs a match-all query sorted by geo distance to req.Point,
// with an optional layer filter. No importance/focus rescoring applies
// (spec §4.12 "Reverse: ... No rescoring").
func (e *Executor) Reverse(ctx context.Context, req Request) (Response, error) {
	if req.Point == nil {
		return Response{}, nil
	}
	params := textindex.BuildReverseQuery(textindex.ReverseQueryOptions{
		Lat: req.Point.Lat, Lon: req.Point.Lon, Layers: req.Layers,
	})
	return e.run(ctx, "reverse", req, params)
}

func (e *Executor) run(ctx context.Context, kind string, req Request, params *api.SearchCollectionParams) (Response, error) {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.QueryLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		}
	}()

	ids, err := e.search(ctx, params)
	if err != nil {
		e.observeOutcome(kind, "error")
		return Response{}, err
	}
	if len(ids) == 0 {
		e.observeOutcome(kind, "empty")
		return Response{}, nil
	}

	places := e.hydratePlaces(ctx, ids)
	if len(places) == 0 {
		e.observeOutcome(kind, "empty")
		return Response{}, nil
	}

	adminEntries := e.hydrateAdminEntries(ctx, places)

	results := make([]Result, 0, len(places))
	for _, p := range places {
		res := Result{
			Place:       p,
			DisplayName: displayName(p.Name, req.Lang),
			Parents:     resolveParents(p, adminEntries, req.Lang),
		}
		if kind == "reverse" && req.Point != nil {
			d := geo.Distance(
				orb.Point{req.Point.Lon, req.Point.Lat},
				orb.Point{p.CenterPoint.Lon, p.CenterPoint.Lat},
			)
			res.DistanceM = &d
		}
		results = append(results, res)
	}

	if kind == "reverse" {
		sort.SliceStable(results, func(i, j int) bool {
			di, dj := math.MaxFloat64, math.MaxFloat64
			if results[i].DistanceM != nil {
				di = *results[i].DistanceM
			}
			if results[j].DistanceM != nil {
				dj = *results[j].DistanceM
			}
			return di < dj
		})
	} else {
		rescore(results, req.Focus)
		sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	}

	if req.Size > 0 && len(results) > req.Size {
		results = results[:req.Size]
	}

	e.observeOutcome(kind, "success")
	return Response{Results: results}, nil
}

func (e *Executor) observeOutcome(kind, outcome string) {
	if e.metrics != nil {
		e.metrics.QueryRequests.WithLabelValues(kind, outcome).Inc()
	}
}

// search executes params against the places collection and returns the
// hit source IDs in ranked order (Typesense's own ranking; the planner
// treats hit order as the only text-relevance signal available and
// recomposes importance/focus scoring over it post-hydration).
func (e *Executor) search(ctx context.Context, params *api.SearchCollectionParams) ([]string, error) {
	result, err := e.text.Collection(textindex.PlacesCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, err
	}
	if result.Hits == nil {
		return nil, nil
	}

	ids := make([]string, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document
		id, ok := doc["source_id"].(string)
		if !ok || id == "" {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// hydratePlaces loads each hit's Place JSON from the KV store in
// parallel (spec §4.12 "hydrate Place JSON from KV via parallel
// get_place"). A hydration miss silently drops that hit (spec §7
// "Query-time hydration miss") instead of failing the whole response.
func (e *Executor) hydratePlaces(ctx context.Context, ids []string) []domain.NormalizedPlace {
	places := make([]*domain.NormalizedPlace, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			data, ok, err := e.kv.GetPlace(ctx, id)
			if err != nil || !ok {
				return
			}
			var p domain.NormalizedPlace
			if err := json.Unmarshal([]byte(data), &p); err != nil {
				return
			}
			places[i] = &p
		}(i, id)
	}
	wg.Wait()

	out := make([]domain.NormalizedPlace, 0, len(ids))
	for _, p := range places {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// hydrateAdminEntries batch-fetches the KV AdminEntry JSON (full form,
// including the Names map) for every admin ID referenced across all
// hydrated places, in chunks no larger than maxAdminBatch (spec §4.9).
func (e *Executor) hydrateAdminEntries(ctx context.Context, places []domain.NormalizedPlace) map[string]domain.AdminEntry {
	seen := map[string]bool{}
	var ids []string
	for _, p := range places {
		for level := domain.AdminLevelCountry; level <= domain.AdminLevelNeighbourhood; level++ {
			id := p.ParentIDs.Get(level)
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	out := map[string]domain.AdminEntry{}
	for start := 0; start < len(ids); start += maxAdminBatch {
		end := start + maxAdminBatch
		if end > len(ids) {
			end = len(ids)
		}
		chunk, err := e.kv.GetAdminAreas(ctx, ids[start:end])
		if err != nil {
			continue
		}
		for id, data := range chunk {
			var entry domain.AdminEntry
			if err := entry.UnmarshalKV([]byte(data)); err != nil {
				continue
			}
			entry.ID = id
			out[id] = entry
		}
	}
	return out
}

// resolveParents applies the hierarchy filter from spec §4.12: a parent
// slot is only populated in the response when its layer rank strictly
// exceeds the place's own layer rank (a Region result omits County; a
// Country omits itself and everything below).
func resolveParents(p domain.NormalizedPlace, entries map[string]domain.AdminEntry, lang string) []ResolvedParent {
	ownRank := domain.LayerRank(p.Layer)
	var out []ResolvedParent
	for level := domain.AdminLevelCountry; level <= domain.AdminLevelNeighbourhood; level++ {
		id := p.ParentIDs.Get(level)
		if id == "" {
			continue
		}
		if domain.LayerRank(domain.LayerForAdminLevel(level)) <= ownRank {
			continue
		}
		entry, ok := entries[id]
		if !ok {
			continue
		}
		out = append(out, ResolvedParent{
			Level: level,
			Name:  displayName(entry.Names, lang),
			Abbr:  entry.Abbr,
			ID:    entry.ID,
			Bbox:  entry.Bbox,
			Names: entry.Names,
		})
	}
	return out
}

// displayName picks name[lang] if present, else name["default"], else
// any entry (spec §4.12 "Language selection").
func displayName(names map[string]string, lang string) string {
	if lang != "" {
		if v, ok := names[lang]; ok {
			return v
		}
	}
	if v, ok := names["default"]; ok {
		return v
	}
	for _, v := range names {
		return v
	}
	return ""
}

// rescore assigns each result's Score. Without a focus point, it is the
// function-score composition of spec §4.12 (baseline 1.0 plus a
// log1p-modified, weight-2 importance term; boost_mode=multiply against
// the text rank already encoded in hit order). With a focus point, the
// local focus rescore overrides that composition entirely (spec §4.12:
// "overrides function score when present"): the text rank is multiplied
// by a haversine-decay/importance blend instead.
func rescore(results []Result, focus *FocusPoint) {
	for i := range results {
		textRank := float64(len(results) - i) // hit order is the only text-relevance signal the search layer surfaces
		importance := 0.0
		if results[i].Place.Importance != nil {
			importance = *results[i].Place.Importance
		}

		if focus == nil {
			results[i].Score = textRank * (1.0 + 2.0*math.Log1p(importance))
			continue
		}

		dKM := geo.Distance(
			orb.Point{focus.Lon, focus.Lat},
			orb.Point{results[i].Place.CenterPoint.Lon, results[i].Place.CenterPoint.Lat},
		) / 1000.0
		decay := math.Exp(-(dKM * dKM) / (2 * focusSigmaKM * focusSigmaKM))
		finalFactor := decay + (1-decay)*importance
		results[i].Score = textRank * finalFactor
	}
}
