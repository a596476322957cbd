package textindex

import (
	"context"
	"fmt"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
)

// VersionRecord tracks one imported region's provenance (spec §6 /
// SPEC_FULL.md §3): which file was imported, a content hash to detect
// unchanged re-imports, and when the import ran.
type VersionRecord struct {
	RegionName string `json:"region_name"`
	Filename   string `json:"filename"`
	Hash       string `json:"hash"`
	Timestamp  int64  `json:"timestamp"`
}

// PutVersion upserts a region's version record, keyed by region name.
func PutVersion(ctx context.Context, client *typesense.Client, v VersionRecord) error {
	doc := map[string]interface{}{
		"id":          v.RegionName,
		"region_name": v.RegionName,
		"filename":    v.Filename,
		"hash":        v.Hash,
		"timestamp":   v.Timestamp,
	}
	if _, err := client.Collection(VersionsCollection).Documents().Upsert(ctx, doc); err != nil {
		return fmt.Errorf("textindex: upsert version record for %s: %w", v.RegionName, err)
	}
	return nil
}

// GetVersion fetches the version record for a region, or (zero, false)
// if none exists yet.
func GetVersion(ctx context.Context, client *typesense.Client, regionName string) (VersionRecord, bool, error) {
	var out VersionRecord
	doc, err := client.Collection(VersionsCollection).Document(regionName).Retrieve(ctx)
	if err != nil {
		return out, false, nil
	}
	if v, ok := doc["region_name"].(string); ok {
		out.RegionName = v
	}
	if v, ok := doc["filename"].(string); ok {
		out.Filename = v
	}
	if v, ok := doc["hash"].(string); ok {
		out.Hash = v
	}
	switch v := doc["timestamp"].(type) {
	case float64:
		out.Timestamp = int64(v)
	case int64:
		out.Timestamp = v
	}
	return out, true, nil
}

// DeleteStale removes documents from the places collection that came
// from sourceFile but were not refreshed by the import starting at
// beforeTimestamp (spec §4.11 step 9). Returns the number of documents
// deleted.
func DeleteStale(ctx context.Context, client *typesense.Client, sourceFile string, beforeTimestamp int64) (int, error) {
	filter := fmt.Sprintf("source_file:=%s && import_timestamp:<%d", sourceFile, beforeTimestamp)
	result, err := client.Collection(PlacesCollection).Documents().Delete(ctx, &api.DeleteDocumentsParams{FilterBy: &filter})
	if err != nil {
		return 0, fmt.Errorf("textindex: delete stale documents for %s: %w", sourceFile, err)
	}
	return result, nil
}
