package textindex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"

	"github.com/basincode/cypress/internal/domain"
)

// maxResults is the hard cap on returned hits (spec §4.12: "size ≤ 40").
const maxResults = 40

// parentNameFields lists every parent.*.name field in hierarchy order,
// used for the cross-field multi-match should clause.
var parentNameFields = []string{
	"parent_country_name", "parent_macro_region_name", "parent_region_name",
	"parent_macro_county_name", "parent_county_name", "parent_local_admin_name",
	"parent_locality_name", "parent_borough_name", "parent_neighbourhood_name",
}

// ForwardQueryOptions configures BuildForwardQuery / BuildAutocompleteQuery.
type ForwardQueryOptions struct {
	Text         string
	Layers       []domain.Layer
	Bbox         *domain.GeoBbox
	Autocomplete bool
}

// BuildForwardQuery builds the Typesense query-by/filter-by shape for a
// forward or autocomplete lookup (spec §4.12). Typesense has no
// function-score query stage: the importance/Gaussian-decay scoring the
// spec describes is applied in Go over the hydrated results (see
// internal/query), so this only needs to retrieve a high-recall
// candidate set ranked by text relevance and importance.
func BuildForwardQuery(opts ForwardQueryOptions) *api.SearchCollectionParams {
	nameField := "name_all"
	if opts.Autocomplete {
		nameField = "name_all,name_all.autocomplete"
	}

	queryBy := strings.Join(append([]string{nameField, "phrase", "street", "city", "postcode"}, parentNameFields...), ",")

	q := opts.Text
	perPage := maxResults
	page := 1
	sortBy := "_text_match:desc,importance:desc"
	params := &api.SearchCollectionParams{
		Q:       &q,
		QueryBy: &queryBy,
		PerPage: &perPage,
		Page:    &page,
		SortBy:  &sortBy,
	}

	if opts.Autocomplete {
		prefix := "true"
		params.Prefix = &prefix
	}

	if filter, ok := buildFilter(opts.Layers, opts.Bbox); ok {
		params.FilterBy = &filter
	}

	return params
}

// BuildAutocompleteQuery is BuildForwardQuery with prefix matching on.
func BuildAutocompleteQuery(text string, layers []domain.Layer) *api.SearchCollectionParams {
	return BuildForwardQuery(ForwardQueryOptions{Text: text, Layers: layers, Autocomplete: true})
}

// ReverseQueryOptions configures BuildReverseQuery.
type ReverseQueryOptions struct {
	Lat, Lon float64
	Layers   []domain.Layer
}

// BuildReverseQuery builds a match-all query sorted by geo distance
// ascending to center_point, with an optional layer filter (spec §4.12:
// "Reverse"). No score rescoring applies to reverse queries.
func BuildReverseQuery(opts ReverseQueryOptions) *api.SearchCollectionParams {
	q := "*"
	queryBy := "name_all"
	perPage := maxResults
	page := 1
	sortBy := fmt.Sprintf("center_point(%s, %s):asc", formatCoord(opts.Lat), formatCoord(opts.Lon))

	params := &api.SearchCollectionParams{
		Q:       &q,
		QueryBy: &queryBy,
		PerPage: &perPage,
		Page:    &page,
		SortBy:  &sortBy,
	}

	if filter, ok := buildFilter(opts.Layers, nil); ok {
		params.FilterBy = &filter
	}

	return params
}

func buildFilter(layers []domain.Layer, bbox *domain.GeoBbox) (string, bool) {
	var clauses []string

	if len(layers) > 0 {
		names := make([]string, len(layers))
		for i, l := range layers {
			names[i] = string(l)
		}
		clauses = append(clauses, fmt.Sprintf("layer:[%s]", strings.Join(names, ",")))
	}

	if bbox != nil {
		clauses = append(clauses, fmt.Sprintf(
			"center_point:(%s, %s, %s, %s)",
			formatCoord(bbox.MaxLat), formatCoord(bbox.MinLon),
			formatCoord(bbox.MinLat), formatCoord(bbox.MaxLon),
		))
	}

	if len(clauses) == 0 {
		return "", false
	}
	return strings.Join(clauses, " && "), true
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
