// Package domain models the geocoding data produced by an OSM PBF ingest:
// administrative boundaries, normalized places, and the hierarchy that
// relates them.
//
// # OSM admin_level mapping
//
// OSM's numeric admin_level tag (2 through 10, with 11 collapsed into 10)
// maps bijectively onto [AdminLevel]:
//
//	2  Country        7  LocalAdmin
//	3  MacroRegion    8  Locality
//	4  Region         9  Borough
//	5  MacroCounty    10 Neighbourhood
//	6  County         11 Neighbourhood (collapsed)
//
// # Layer rank
//
// [Layer] carries a numeric rank used only by query-time hierarchy
// filtering (see the query package): a result only shows a parent slot
// whose rank is strictly greater than the result's own layer rank, so a
// Region result never lists a County parent and a Country result lists
// nothing at all.
//
// # Source IDs
//
// Every [Place] and [AdminArea] is addressed by a source ID of the form
// "<osm_type>/<osm_id>" (places) or "relation/<osm_id>" (admin areas,
// since administrative boundaries are always OSM relations). These IDs
// are the primary keys in the KV store and the document IDs in the text
// index, which makes ingestion naturally idempotent: re-running over the
// same source file upserts the same IDs rather than duplicating them.
package domain
