package geometry

import (
	"bufio"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/edsrzf/mmap-go"
	"github.com/stretchr/testify/require"
)

// newTestNodeTable writes coords directly to a scratch file in whatever
// order the map iterates (exercising the sort-on-build path) and mmaps
// it, without needing a real pbf.Reader.
func newTestNodeTable(t *testing.T, coords map[int64][2]float64) *NodeTable {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nodes.bin")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := bufio.NewWriter(f)
	buf := make([]byte, nodeRecordSize)
	for id, ll := range coords {
		binary.LittleEndian.PutUint64(buf[0:8], uint64(id))
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(ll[0]))
		binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(ll[1]))
		_, err := w.Write(buf)
		require.NoError(t, err)
	}
	require.NoError(t, w.Flush())
	require.NoError(t, sortNodeTableFile(f, len(coords)))

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	require.NoError(t, err)

	return &NodeTable{path: path, file: f, mm: mm, n: len(coords)}
}

func TestNodeTableLookup(t *testing.T) {
	nt := newTestNodeTable(t, map[int64][2]float64{
		5: {47.1, 8.1},
		1: {47.2, 8.2},
		3: {47.3, 8.3},
	})
	defer nt.Close()

	lat, lon, ok := nt.Lookup(3)
	require.True(t, ok)
	require.Equal(t, 47.3, lat)
	require.Equal(t, 8.3, lon)

	_, _, ok = nt.Lookup(99)
	require.False(t, ok)
}
