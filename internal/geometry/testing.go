package geometry

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
)

// NewResolverForTesting builds a Resolver directly from in-memory
// coordinate/topology data, bypassing the PBF three-pass scan in Build.
// Other packages' tests that need a real (non-nil) Resolver — rather than
// a fake PBF fixture, which would require a PBF encoder this pack doesn't
// carry — construct one this way. The node table lives in a temporary
// file; the returned func unmaps and removes it, and callers must call it.
func NewResolverForTesting(coords map[int64][2]float64, wayNodes map[int64][]int64, relations map[int64][]int64) (*Resolver, func(), error) {
	f, err := os.CreateTemp("", "cypress-test-nodes-*.bin")
	if err != nil {
		return nil, nil, fmt.Errorf("geometry: create test node table: %w", err)
	}
	scratchPath := f.Name()
	cleanup := func() { os.Remove(scratchPath) }

	w := bufio.NewWriter(f)
	buf := make([]byte, nodeRecordSize)
	for id, ll := range coords {
		binary.LittleEndian.PutUint64(buf[0:8], uint64(id))
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(ll[0]))
		binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(ll[1]))
		if _, err := w.Write(buf); err != nil {
			f.Close()
			cleanup()
			return nil, nil, fmt.Errorf("geometry: write test node table: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		cleanup()
		return nil, nil, fmt.Errorf("geometry: flush test node table: %w", err)
	}
	if err := sortNodeTableFile(f, len(coords)); err != nil {
		f.Close()
		cleanup()
		return nil, nil, err
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		cleanup()
		return nil, nil, fmt.Errorf("geometry: mmap test node table: %w", err)
	}

	nt := &NodeTable{path: scratchPath, file: f, mm: mm, n: len(coords)}
	outerCleanup := func() {
		_ = nt.Close()
		cleanup()
	}
	return &Resolver{nodes: nt, wayNodes: wayNodes, relations: relations}, outerCleanup, nil
}
