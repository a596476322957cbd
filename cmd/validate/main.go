// Command validate performs post-ingest data integrity checks against
// a completed region import: every Place.parent admin ID in the KV
// store must resolve to a live admin_areas record (Testable Properties
// §8: "AdminEntry id maps to a live KV record after a successful
// ingest"), and the KV places table and the text index should agree on
// document count (SPEC_FULL.md §3).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/typesense/typesense-go/v2/typesense"

	"github.com/basincode/cypress/internal/config"
	"github.com/basincode/cypress/internal/domain"
	"github.com/basincode/cypress/internal/kvstore"
	"github.com/basincode/cypress/internal/textindex"
)

// phase tracks pass/fail for one validation phase, mirroring the
// pipeline's own ingest-vs-sink consistency taxonomy (spec §7).
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	kv, err := kvstore.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "cypress")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: connect redis: %v\n", err)
		os.Exit(1)
	}
	defer kv.Close()

	text := typesense.NewClient(
		typesense.WithServer(cfg.TypesenseURL),
		typesense.WithAPIKey(cfg.TypesenseAPIKey),
	)

	os.Exit(run(ctx, kv, text))
}

func run(ctx context.Context, kv *kvstore.Client, text *typesense.Client) int {
	fmt.Println("=== Cypress Post-Ingest Validation ===")
	fmt.Println()

	places, err := kv.AllPlaces(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: list KV places: %v\n", err)
		return 1
	}

	adminRefs := validateAdminReferences(ctx, kv, places)
	countDrift := validateCountDrift(ctx, text, int64(len(places)))

	phases := []*phase{adminRefs, countDrift}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-38s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Places in KV store: %d\n", len(places))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateAdminReferences walks every KV place and confirms each
// non-empty parent slot names a live admin_areas record.
func validateAdminReferences(ctx context.Context, kv *kvstore.Client, places map[string]string) *phase {
	p := &phase{name: "Admin parent references resolve in KV"}

	for placeID, data := range places {
		var np domain.NormalizedPlace
		if err := json.Unmarshal([]byte(data), &np); err != nil {
			p.errorf("%s: unparseable place JSON: %v", placeID, err)
			continue
		}

		for l := domain.AdminLevelCountry; l <= domain.AdminLevelNeighbourhood; l++ {
			adminID := np.ParentIDs.Get(l)
			if adminID == "" {
				continue
			}
			ok, err := kv.AdminAreaExists(ctx, adminID)
			if err != nil {
				p.errorf("%s: check admin area %s: %v", placeID, adminID, err)
				continue
			}
			if !ok {
				p.errorf("%s: parent.%s -> %s has no live admin_areas record", placeID, l.String(), adminID)
			}
		}
	}

	return p
}

// validateCountDrift compares the KV place count against the text
// index's document count and prints both. Drift is expected to be
// transient (the two sinks are only eventually consistent, spec §5), so
// a small drift passes without comment; the phase fails only when the
// drift exceeds both 1% of the KV count and 10 documents.
func validateCountDrift(ctx context.Context, text *typesense.Client, kvCount int64) *phase {
	p := &phase{name: "KV / text index document count drift"}

	textCount, err := textindex.CountDocuments(ctx, text)
	if err != nil {
		p.errorf("count text index documents: %v", err)
		return p
	}

	drift := kvCount - textCount
	if drift < 0 {
		drift = -drift
	}

	fmt.Printf("Text index document count: %d (KV: %d, drift: %d)\n", textCount, kvCount, drift)

	const driftTolerance = 0.01 // 1% of KV place count
	if float64(drift) > float64(kvCount)*driftTolerance && drift > 10 {
		p.errorf("document count drift of %d exceeds tolerance (kv=%d, text_index=%d)", drift, kvCount, textCount)
	}

	return p
}
