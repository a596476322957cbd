// Package geometry reconstructs point/line/polygon geometry for OSM ways
// and relations from a PBF file's three logical passes: relations, then
// ways, then nodes. Node coordinates are kept in a memory-mapped,
// ID-sorted table so the way and relation passes can resolve a node's
// position without holding every node in the file in RAM at once. The
// exception is a table whose nodes arrive out of ID order:
// sortNodeTableFile then sorts the whole table in memory once.
package geometry

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/edsrzf/mmap-go"
	"github.com/paulmach/orb"

	"github.com/basincode/cypress/internal/pbf"
)

const nodeRecordSize = 24 // int64 id + float64 lat + float64 lon

// NodeTable is a sorted-by-ID, memory-mapped table of node coordinates.
// It is built once per ingest run (the node pass) and then queried by
// binary search during the way and relation passes.
type NodeTable struct {
	path string
	file *os.File
	mm   mmap.MMap
	n    int
}

// BuildNodeTable scans r for every Node object, writes its (id, lat, lon)
// record to a scratch file at path, sorts the file by ID if the source
// wasn't already in ID order, and memory-maps the result. r must be
// positioned at (or rewound to) the start of a pass that will visit every
// node; it is left exhausted on return.
func BuildNodeTable(r *pbf.Reader, path string) (*NodeTable, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("geometry: create node table %s: %w", path, err)
	}

	w := bufio.NewWriterSize(f, 1<<20)
	count := 0
	lastID := int64(-1)
	sorted := true

	buf := make([]byte, nodeRecordSize)
	for {
		obj, ok, err := r.Next()
		if err != nil {
			f.Close()
			return nil, err
		}
		if !ok {
			break
		}
		if obj.Kind != pbf.KindNode {
			continue
		}
		if obj.ID <= lastID {
			sorted = false
		}
		lastID = obj.ID

		binary.LittleEndian.PutUint64(buf[0:8], uint64(obj.ID))
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(obj.Lat))
		binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(obj.Lon))
		if _, err := w.Write(buf); err != nil {
			f.Close()
			return nil, fmt.Errorf("geometry: write node table: %w", err)
		}
		count++
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("geometry: flush node table: %w", err)
	}

	if !sorted {
		if err := sortNodeTableFile(f, count); err != nil {
			f.Close()
			return nil, err
		}
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("geometry: mmap node table: %w", err)
	}

	return &NodeTable{path: path, file: f, mm: mm, n: count}, nil
}

// sortNodeTableFile handles PBF inputs whose nodes aren't already in
// ascending ID order (uncommon for planet/region extracts, but not
// guaranteed by the format). It reads every record back, sorts in
// memory, and rewrites the file in place.
func sortNodeTableFile(f *os.File, count int) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("geometry: seek node table: %w", err)
	}
	raw := make([]byte, count*nodeRecordSize)
	if _, err := io.ReadFull(f, raw); err != nil {
		return fmt.Errorf("geometry: reread node table: %w", err)
	}

	type rec struct{ off int }
	idx := make([]rec, count)
	for i := range idx {
		idx[i] = rec{off: i * nodeRecordSize}
	}
	idAt := func(off int) int64 {
		return int64(binary.LittleEndian.Uint64(raw[off : off+8]))
	}
	sort.Slice(idx, func(i, j int) bool { return idAt(idx[i].off) < idAt(idx[j].off) })

	out := make([]byte, len(raw))
	for i, r := range idx {
		copy(out[i*nodeRecordSize:(i+1)*nodeRecordSize], raw[r.off:r.off+nodeRecordSize])
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("geometry: seek node table: %w", err)
	}
	if _, err := f.Write(out); err != nil {
		return fmt.Errorf("geometry: rewrite node table: %w", err)
	}
	return nil
}

// Lookup returns the coordinate of node id, or ok=false if id was never
// seen in the node pass.
func (t *NodeTable) Lookup(id int64) (lat, lon float64, ok bool) {
	lo, hi := 0, t.n-1
	for lo <= hi {
		mid := (lo + hi) / 2
		off := mid * nodeRecordSize
		midID := int64(binary.LittleEndian.Uint64(t.mm[off : off+8]))
		switch {
		case midID == id:
			lat = math.Float64frombits(binary.LittleEndian.Uint64(t.mm[off+8 : off+16]))
			lon = math.Float64frombits(binary.LittleEndian.Uint64(t.mm[off+16 : off+24]))
			return lat, lon, true
		case midID < id:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0, 0, false
}

// Point is a convenience wrapper over Lookup returning an orb.Point in
// (lon, lat) order, matching orb's convention.
func (t *NodeTable) Point(id int64) (orb.Point, bool) {
	lat, lon, ok := t.Lookup(id)
	if !ok {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}

// Len reports how many node records were indexed.
func (t *NodeTable) Len() int { return t.n }

// Close unmaps and removes the scratch file backing the table.
func (t *NodeTable) Close() error {
	if t.mm != nil {
		_ = t.mm.Unmap()
	}
	if t.file != nil {
		_ = t.file.Close()
	}
	return os.Remove(t.path)
}
