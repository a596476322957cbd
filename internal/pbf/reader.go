// Package pbf adapts github.com/paulmach/osm/osmpbf's streaming scanner
// into the rewindable object stream the geometry resolver and admin
// boundary extractor need for their multi-pass scans.
package pbf

import (
	"context"
	"fmt"
	"os"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
)

// ObjectKind distinguishes the three OSM primitive kinds carried by Object.
type ObjectKind int

const (
	KindNode ObjectKind = iota
	KindWay
	KindRelation
)

// Member is one member of a relation.
type Member struct {
	Type osm.Type
	Ref  int64
	Role string
}

// Object is a flattened view over osm.Node/osm.Way/osm.Relation, letting
// callers branch on Kind without repeating paulmach/osm's own type switch.
type Object struct {
	Kind    ObjectKind
	ID      int64
	Tags    map[string]string
	Lat     float64 // KindNode only
	Lon     float64 // KindNode only
	Nodes   []int64 // KindWay only, in way order
	Members []Member // KindRelation only
}

// Reader is a rewindable stream of Objects over a PBF file. Unlike
// osmpbf.Scanner, which is forward-only, Reader supports Rewind by
// reopening the underlying file and starting a fresh scan — the
// geometry resolver and admin boundary extractor each make several
// ordered passes over the same file.
type Reader struct {
	path        string
	concurrency int
	file        *os.File
	scanner     *osmpbf.Scanner
}

// Open creates a Reader over the PBF file at path. concurrency controls
// the number of goroutines osmpbf uses to decode blocks in parallel.
func Open(path string, concurrency int) (*Reader, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	r := &Reader{path: path, concurrency: concurrency}
	if err := r.Rewind(); err != nil {
		return nil, err
	}
	return r, nil
}

// Rewind closes the current scan, if any, and reopens the file from the
// beginning. Callers must finish consuming the previous pass (or at
// least stop referencing it) before calling Rewind.
func (r *Reader) Rewind() error {
	r.closeScan()

	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("pbf: open %s: %w", r.path, err)
	}
	r.file = f
	r.scanner = osmpbf.New(context.Background(), f, r.concurrency)
	return nil
}

func (r *Reader) closeScan() {
	if r.scanner != nil {
		_ = r.scanner.Close()
		r.scanner = nil
	}
	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	r.closeScan()
	return nil
}

// Next returns the next Object in the current pass, or (Object{}, false,
// err) at end of stream or on a scan error.
func (r *Reader) Next() (Object, bool, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return Object{}, false, fmt.Errorf("pbf: scan: %w", err)
		}
		return Object{}, false, nil
	}
	return toObject(r.scanner.Object()), true, nil
}

func toObject(o osm.Object) Object {
	switch v := o.(type) {
	case *osm.Node:
		return Object{
			Kind: KindNode,
			ID:   int64(v.ID),
			Tags: v.Tags.Map(),
			Lat:  v.Lat,
			Lon:  v.Lon,
		}
	case *osm.Way:
		nodes := make([]int64, len(v.Nodes))
		for i, n := range v.Nodes {
			nodes[i] = int64(n.ID)
		}
		return Object{
			Kind:  KindWay,
			ID:    int64(v.ID),
			Tags:  v.Tags.Map(),
			Nodes: nodes,
		}
	case *osm.Relation:
		members := make([]Member, len(v.Members))
		for i, m := range v.Members {
			members[i] = Member{Type: m.Type, Ref: m.Ref, Role: m.Role}
		}
		return Object{
			Kind:    KindRelation,
			ID:      int64(v.ID),
			Tags:    v.Tags.Map(),
			Members: members,
		}
	default:
		return Object{}
	}
}
