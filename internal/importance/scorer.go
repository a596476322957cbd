// Package importance scores places for query-time ranking: a popularity
// prior loaded from a Wikidata-derived TSV table, with a tag-based
// default for anything the table doesn't cover (spec §4.6).
package importance

import (
	"compress/gzip"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
)

// Table is a Q-ID -> importance (0..1) mapping loaded from a TSV dump.
type Table map[string]float64

// LoadFromTable reads a TSV file (optionally gzip-compressed, detected
// by a ".gz" extension) with a required header row containing
// "wikidata_id" and "importance" columns. Malformed rows are skipped
// silently (spec §4.6); a structurally broken file (unreadable, no
// header, missing either column) is a fatal error.
func LoadFromTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}

	wikidataIdx, importanceIdx := -1, -1
	for i, col := range header {
		switch col {
		case "wikidata_id":
			wikidataIdx = i
		case "importance":
			importanceIdx = i
		}
	}
	if wikidataIdx == -1 || importanceIdx == -1 {
		return nil, errMissingColumns
	}

	table := Table{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // malformed row: skipped, not fatal (spec §4.6)
		}
		if wikidataIdx >= len(record) || importanceIdx >= len(record) {
			continue
		}
		value, err := strconv.ParseFloat(record[importanceIdx], 64)
		if err != nil {
			continue
		}
		table[record[wikidataIdx]] = value
	}

	return table, nil
}

var errMissingColumns = tableError("importance: TSV header missing wikidata_id or importance column")

type tableError string

func (e tableError) Error() string { return string(e) }

// DefaultScore computes the tag-based default importance in [0,1] for
// an OSM object whose tags carry no Wikidata-table match (spec §4.6).
func DefaultScore(tags map[string]string) float64 {
	place := tags["place"]
	switch place {
	case "continent", "ocean":
		return 0.5
	case "sea":
		return 0.4
	case "country":
		return 0.4
	case "state":
		return 0.3
	case "region":
		return 0.25
	case "county":
		return 0.2
	case "city":
		return 0.2
	case "town":
		return 0.15
	case "village", "suburb":
		return 0.1
	case "hamlet", "farm":
		return 0.05
	case "locality":
		return 0.05
	}

	if highway, ok := tags["highway"]; ok {
		switch highway {
		case "path", "cycleway", "footway", "track":
			return 0.075
		default:
			return 0.1
		}
	}

	if _, ok := tags["shop"]; ok {
		return 0.05
	}
	switch tags["amenity"] {
	case "restaurant", "cafe", "fast_food", "bar", "pub", "marketplace":
		return 0.05
	}

	return 0.01
}
