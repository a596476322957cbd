// Package textindex drives the full-text search sink: collection
// schema bootstrap, a background batched bulk indexer, forward/
// autocomplete/reverse query construction, and the version-record
// sidecar collection (spec §4.8, §4.12, §6).
package textindex

import (
	"context"
	"fmt"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
)

// PlacesCollection is the name of the main geocoding document collection.
const PlacesCollection = "places"

// VersionsCollection is the sidecar collection tracking one record per
// imported region (spec §6 / SPEC_FULL.md §3).
const VersionsCollection = "cypress_versions"

func boolPtr(v bool) *bool { return &v }
func strPtr(v string) *string { return &v }

// placesSchema describes the flattened place document. Typesense has no
// function-score query stage, so the schema favors fields the query
// planner can filter/sort/boost on directly; the Gaussian focus-point
// decay and cross-field scoring described in spec §4.12 are composed in
// Go over the hydrated KV records, not inside Typesense itself.
func placesSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: PlacesCollection,
		Fields: []api.Field{
			{Name: "source_id", Type: "string"},
			{Name: "layer", Type: "string", Facet: boolPtr(true)},
			{Name: "name_all", Type: "string[]"},
			{Name: "name_all.autocomplete", Type: "string[]", Optional: boolPtr(true)},
			{Name: "phrase", Type: "string"},
			{Name: "street", Type: "string", Optional: boolPtr(true)},
			{Name: "city", Type: "string", Optional: boolPtr(true)},
			{Name: "postcode", Type: "string", Optional: boolPtr(true)},
			{Name: "center_point", Type: "geopoint"},
			{Name: "importance", Type: "float", Optional: boolPtr(true)},
			{Name: "wikidata_id", Type: "string", Optional: boolPtr(true)},
			{Name: "categories", Type: "string[]", Optional: boolPtr(true), Facet: boolPtr(true)},
			{Name: "parent_country_name", Type: "string", Optional: boolPtr(true)},
			{Name: "parent_macro_region_name", Type: "string", Optional: boolPtr(true)},
			{Name: "parent_region_name", Type: "string", Optional: boolPtr(true)},
			{Name: "parent_macro_county_name", Type: "string", Optional: boolPtr(true)},
			{Name: "parent_county_name", Type: "string", Optional: boolPtr(true)},
			{Name: "parent_local_admin_name", Type: "string", Optional: boolPtr(true)},
			{Name: "parent_locality_name", Type: "string", Optional: boolPtr(true)},
			{Name: "parent_borough_name", Type: "string", Optional: boolPtr(true)},
			{Name: "parent_neighbourhood_name", Type: "string", Optional: boolPtr(true)},
			{Name: "source_file", Type: "string"},
			{Name: "import_timestamp", Type: "int64"},
		},
		DefaultSortingField: strPtr("importance"),
	}
}

func versionsSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: VersionsCollection,
		Fields: []api.Field{
			{Name: "region_name", Type: "string"},
			{Name: "filename", Type: "string"},
			{Name: "hash", Type: "string"},
			{Name: "timestamp", Type: "int64"},
		},
		DefaultSortingField: strPtr("timestamp"),
	}
}

// EnsureSchema creates the places and cypress_versions collections if
// they don't exist. When recreate is true (the ingest driver's
// create_index flag), both collections are dropped and rebuilt from
// scratch first — per SPEC_FULL.md's resolution of Open Question 2,
// this always forces a full re-import of every configured region.
func EnsureSchema(ctx context.Context, client *typesense.Client, recreate bool) error {
	if recreate {
		_, _ = client.Collection(PlacesCollection).Delete(ctx)
		_, _ = client.Collection(VersionsCollection).Delete(ctx)
	}

	if err := ensureCollection(ctx, client, PlacesCollection, placesSchema()); err != nil {
		return err
	}
	if err := ensureCollection(ctx, client, VersionsCollection, versionsSchema()); err != nil {
		return err
	}
	return nil
}

// CountDocuments returns the current document count of the places
// collection, for the post-ingest count-drift report (SPEC_FULL.md §3
// "cmd/validate").
func CountDocuments(ctx context.Context, client *typesense.Client) (int64, error) {
	resp, err := client.Collection(PlacesCollection).Retrieve(ctx)
	if err != nil {
		return 0, fmt.Errorf("textindex: retrieve %s collection: %w", PlacesCollection, err)
	}
	if resp.NumDocuments == nil {
		return 0, nil
	}
	return *resp.NumDocuments, nil
}

func ensureCollection(ctx context.Context, client *typesense.Client, name string, schema *api.CollectionSchema) error {
	if _, err := client.Collection(name).Retrieve(ctx); err == nil {
		return nil
	}
	if _, err := client.Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("textindex: create collection %s: %w", name, err)
	}
	return nil
}
