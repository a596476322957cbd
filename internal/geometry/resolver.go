package geometry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"

	"github.com/basincode/cypress/internal/observability"
	"github.com/basincode/cypress/internal/pbf"
)

// Predicate decides whether a relation or way's tags should pull its
// geometry into a Resolver build. The geometry filter is interface-shaped
// (a single-method capability), not an inheritance hierarchy (spec §9).
type Predicate func(tags map[string]string) bool

// Resolver answers way_polygon / relation_multipolygon / node_coords
// queries (spec §4.1) after a three-pass scan of a PBF file: relations,
// then ways, then nodes. Built once per ingest run; read-only afterward.
type Resolver struct {
	nodes     *NodeTable
	wayNodes  map[int64][]int64
	relations map[int64][]int64 // relation id -> member way ids (outer role)
	metrics   *observability.Metrics
}

// WithMetrics attaches metrics observed on each WayPolygon/
// RelationMultipolygon resolution. Returns the same Resolver for
// chaining at construction time.
func (r *Resolver) WithMetrics(m *observability.Metrics) *Resolver {
	r.metrics = m
	return r
}

type outerMember struct {
	wayID int64
}

// Build performs the three ordered passes described in spec §4.1 over r,
// rewinding between each. predicate selects which relations and ways
// pull their geometry in; scratchPath is the temp file backing the
// memory-mapped node table.
func Build(r *pbf.Reader, predicate Predicate, scratchPath string) (*Resolver, error) {
	if scratchPath == "" {
		scratchPath = filepath.Join(os.TempDir(), fmt.Sprintf("cypress-nodes-%d.bin", os.Getpid()))
	}

	relations := map[int64][]outerMember{}
	neededWays := map[int64]bool{}

	// Pass 1: relations.
	if err := r.Rewind(); err != nil {
		return nil, fmt.Errorf("geometry: rewind for relations pass: %w", err)
	}
	for {
		obj, ok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if obj.Kind != pbf.KindRelation || !predicate(obj.Tags) {
			continue
		}
		var members []outerMember
		for _, m := range obj.Members {
			if m.Type != "way" {
				continue
			}
			if m.Role != "outer" && m.Role != "" {
				continue
			}
			members = append(members, outerMember{wayID: m.Ref})
			neededWays[m.Ref] = true
		}
		relations[obj.ID] = members
	}

	// Pass 2: ways (needed by a relation, or themselves matching the predicate).
	if err := r.Rewind(); err != nil {
		return nil, fmt.Errorf("geometry: rewind for ways pass: %w", err)
	}
	wayNodes := map[int64][]int64{}
	for {
		obj, ok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if obj.Kind != pbf.KindWay {
			continue
		}
		if !neededWays[obj.ID] && !predicate(obj.Tags) {
			continue
		}
		wayNodes[obj.ID] = obj.Nodes
	}

	// Pass 3: nodes. Every node in the file is recorded in the table, not
	// only those referenced by a needed way.
	if err := r.Rewind(); err != nil {
		return nil, fmt.Errorf("geometry: rewind for nodes pass: %w", err)
	}
	nodes, err := BuildNodeTable(r, scratchPath)
	if err != nil {
		return nil, fmt.Errorf("geometry: build node table: %w", err)
	}

	relWays := map[int64][]int64{}
	for relID, members := range relations {
		ids := make([]int64, len(members))
		for i, m := range members {
			ids[i] = m.wayID
		}
		relWays[relID] = ids
	}

	return &Resolver{nodes: nodes, wayNodes: wayNodes, relations: relWays}, nil
}

// NodeCoords returns the (lat, lon) of a node seen during the node pass.
func (r *Resolver) NodeCoords(nodeID int64) (lat, lon float64, ok bool) {
	return r.nodes.Lookup(nodeID)
}

// WayNodes returns the node ID list recorded for a way, if it was
// visited during the ways pass.
func (r *Resolver) WayNodes(wayID int64) ([]int64, bool) {
	nodes, ok := r.wayNodes[wayID]
	return nodes, ok
}

// WayPolygon reconstructs a way's polygon: a single closed outer ring
// with no holes. Returns ok=false (not an error) if the way's nodes
// aren't all resolvable or the ring doesn't close (spec §4.1).
func (r *Resolver) WayPolygon(wayID int64) (orb.Polygon, bool) {
	start := time.Now()
	defer r.observeResolve(start)

	nodeIDs, ok := r.wayNodes[wayID]
	if !ok {
		r.markUnresolved()
		return nil, false
	}
	ring := r.wayFragment(nodeIDs)
	if ring == nil || !fragment(ring).closed() {
		r.markUnresolved()
		return nil, false
	}
	return orb.Polygon{orb.Ring(ring)}, true
}

func (r *Resolver) observeResolve(start time.Time) {
	if r.metrics != nil {
		r.metrics.GeometryResolveDuration.Observe(time.Since(start).Seconds())
	}
}

func (r *Resolver) markUnresolved() {
	if r.metrics != nil {
		r.metrics.UnresolvedGeometry.Inc()
	}
}

func (r *Resolver) wayFragment(nodeIDs []int64) fragment {
	coords := make(fragment, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		lat, lon, ok := r.nodes.Lookup(id)
		if !ok {
			return nil
		}
		coords = append(coords, orb.Point{lon, lat})
	}
	return coords
}

// RelationMultipolygon reconstructs a relation's multipolygon by
// collecting one fragment per outer member way and stitching them into
// closed rings (spec §4.1). Ways with unresolvable nodes are skipped,
// which may change (or empty) the result.
func (r *Resolver) RelationMultipolygon(relationID int64) (orb.MultiPolygon, bool) {
	start := time.Now()
	defer r.observeResolve(start)

	wayIDs, ok := r.relations[relationID]
	if !ok {
		r.markUnresolved()
		return nil, false
	}

	var fragments []fragment
	for _, wayID := range wayIDs {
		nodeIDs, ok := r.wayNodes[wayID]
		if !ok {
			continue
		}
		f := r.wayFragment(nodeIDs)
		if len(f) >= 2 {
			fragments = append(fragments, f)
		}
	}
	if len(fragments) == 0 {
		r.markUnresolved()
		return nil, false
	}

	rings := stitchRings(fragments)
	if len(rings) == 0 {
		r.markUnresolved()
		return nil, false
	}

	mp := make(orb.MultiPolygon, 0, len(rings))
	for _, ring := range rings {
		mp = append(mp, orb.Polygon{ring})
	}
	return mp, true
}

// Close releases the node table's scratch file.
func (r *Resolver) Close() error {
	if r.nodes != nil {
		return r.nodes.Close()
	}
	return nil
}

// Len returns the number of node records resolved, for diagnostics.
func (r *Resolver) Len() int {
	if r.nodes == nil {
		return 0
	}
	return r.nodes.Len()
}
