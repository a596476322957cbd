// Package waymerge groups adjacent OSM road ways that share a name and
// highway type into single indexed entries, trading a little geometric
// precision for a large reduction in indexed document count (spec
// §4.7).
package waymerge

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/basincode/cypress/internal/domain"
	"github.com/basincode/cypress/internal/geometry"
)

// excludedHighways never get merged: they're already segmented
// deliberately (motorway links, turn lanes) and merging them produces
// misleading centroids.
var excludedHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk_link":     true,
	"primary_link":   true,
	"secondary_link": true,
	"tertiary_link":  true,
}

// roadWay is a single OSM way eligible for merging.
type roadWay struct {
	wayID int64
	tags  map[string]string
	nodes []int64
}

// MergedRoad is one or more connected road ways collapsed into a
// single indexable entity.
type MergedRoad struct {
	WayIDs []int64
	Lines  []orb.LineString
	Tags   map[string]string
}

// Merger accumulates road ways grouped by name|highway and merges each
// group's physically-connected components on Merge.
type Merger struct {
	resolver   *geometry.Resolver
	byMergeKey map[string][]roadWay
}

// NewMerger returns a Merger that resolves way node coordinates
// through resolver.
func NewMerger(resolver *geometry.Resolver) *Merger {
	return &Merger{
		resolver:   resolver,
		byMergeKey: map[string][]roadWay{},
	}
}

// AddRoad registers a way for merging consideration. Ways without a
// name, without a highway tag, or with an excluded highway type are
// silently ignored.
func (m *Merger) AddRoad(wayID int64, tags map[string]string, nodes []int64) {
	key, ok := mergeKey(tags)
	if !ok {
		return
	}
	m.byMergeKey[key] = append(m.byMergeKey[key], roadWay{wayID: wayID, tags: tags, nodes: nodes})
}

// IsCandidate reports whether tags would be accepted by AddRoad,
// letting callers route a way to the merger instead of normal place
// extraction before they've built a Merger instance's node list.
func IsCandidate(tags map[string]string) bool {
	_, ok := mergeKey(tags)
	return ok
}

func mergeKey(tags map[string]string) (string, bool) {
	name, ok := tags["name"]
	if !ok || name == "" {
		return "", false
	}
	highway, ok := tags["highway"]
	if !ok || highway == "" {
		return "", false
	}
	if excludedHighways[highway] {
		return "", false
	}
	return fmt.Sprintf("%s|%s", name, highway), true
}

// Merge groups each name|highway bucket into physically-connected
// components and returns one MergedRoad per component. The Merger is
// drained; calling Merge again returns nothing.
func (m *Merger) Merge() []MergedRoad {
	var out []MergedRoad

	for key, ways := range m.byMergeKey {
		delete(m.byMergeKey, key)
		if len(ways) == 0 {
			continue
		}
		if len(ways) == 1 {
			out = append(out, MergedRoad{
				WayIDs: []int64{ways[0].wayID},
				Lines:  []orb.LineString{m.lineString(ways[0])},
				Tags:   ways[0].tags,
			})
			continue
		}

		for _, group := range groupConnected(ways) {
			wayIDs := make([]int64, len(group))
			lines := make([]orb.LineString, len(group))
			for i, w := range group {
				wayIDs[i] = w.wayID
				lines[i] = m.lineString(w)
			}
			out = append(out, MergedRoad{WayIDs: wayIDs, Lines: lines, Tags: group[0].tags})
		}
	}

	return out
}

func (m *Merger) lineString(w roadWay) orb.LineString {
	if m.resolver == nil {
		return nil
	}
	var ls orb.LineString
	for _, nodeID := range w.nodes {
		lat, lon, ok := m.resolver.NodeCoords(nodeID)
		if !ok {
			continue
		}
		ls = append(ls, orb.Point{lon, lat})
	}
	return ls
}

// groupConnected partitions ways into groups whose members share an
// endpoint, transitively: if A connects to B and B connects to C, all
// three land in one group even if A and C share no endpoint directly.
func groupConnected(ways []roadWay) [][]roadWay {
	remaining := append([]roadWay(nil), ways...)
	var groups [][]roadWay

	for len(remaining) > 0 {
		group := []roadWay{remaining[0]}
		remaining = remaining[1:]

		changed := true
		for changed && len(remaining) > 0 {
			changed = false
			for i := len(remaining) - 1; i >= 0; i-- {
				if connectedToGroup(group, remaining[i]) {
					group = append(group, remaining[i])
					remaining = append(remaining[:i], remaining[i+1:]...)
					changed = true
				}
			}
		}

		groups = append(groups, group)
	}

	return groups
}

func connectedToGroup(group []roadWay, w roadWay) bool {
	if len(w.nodes) == 0 {
		return false
	}
	wStart, wEnd := w.nodes[0], w.nodes[len(w.nodes)-1]

	for _, g := range group {
		if len(g.nodes) == 0 {
			continue
		}
		gStart, gEnd := g.nodes[0], g.nodes[len(g.nodes)-1]
		if wStart == gStart || wStart == gEnd || wEnd == gStart || wEnd == gEnd {
			return true
		}
	}
	return false
}

// ToPlace converts a merged road into an indexable Place. Roads with
// no resolvable coordinates produce (Place{}, false).
func (r MergedRoad) ToPlace(sourceFile string) (domain.Place, bool) {
	var points []orb.Point
	for _, ls := range r.Lines {
		points = append(points, ls...)
	}
	if len(points) == 0 {
		return domain.Place{}, false
	}

	center := averagePoint(points)
	place := domain.NewPlace(domain.OsmTypeWay, r.WayIDs[0], domain.LayerStreet,
		domain.GeoPoint{Lat: center[1], Lon: center[0]}, sourceFile)

	if bbox, ok := lineStringsBound(r.Lines); ok {
		place.Bbox = &bbox
	}
	if name, ok := r.Tags["name"]; ok {
		place.AddName("default", name)
	}
	if len(r.WayIDs) > 1 {
		place.AddCategory(fmt.Sprintf("merged_ways:%d", len(r.WayIDs)))
	}

	return place, true
}

func averagePoint(points []orb.Point) orb.Point {
	var sumLon, sumLat float64
	for _, p := range points {
		sumLon += p[0]
		sumLat += p[1]
	}
	n := float64(len(points))
	return orb.Point{sumLon / n, sumLat / n}
}

func lineStringsBound(lines []orb.LineString) (domain.GeoBbox, bool) {
	var minLon, minLat, maxLon, maxLat float64
	found := false
	for _, ls := range lines {
		for _, p := range ls {
			if !found {
				minLon, minLat, maxLon, maxLat = p[0], p[1], p[0], p[1]
				found = true
				continue
			}
			if p[0] < minLon {
				minLon = p[0]
			}
			if p[0] > maxLon {
				maxLon = p[0]
			}
			if p[1] < minLat {
				minLat = p[1]
			}
			if p[1] > maxLat {
				maxLat = p[1]
			}
		}
	}
	if !found {
		return domain.GeoBbox{}, false
	}
	return domain.NewGeoBbox(minLon, minLat, maxLon, maxLat), true
}
