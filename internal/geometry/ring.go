package geometry

import "github.com/paulmach/orb"

// fragment is a single contiguous coordinate run extracted from one way,
// before ring stitching (spec §4.1, Glossary "Fragment").
type fragment []orb.Point

func (f fragment) head() orb.Point { return f[0] }
func (f fragment) tail() orb.Point { return f[len(f)-1] }

func (f fragment) closed() bool {
	return len(f) >= 4 && f.head() == f.tail()
}

func reversed(f fragment) fragment {
	out := make(fragment, len(f))
	for i, p := range f {
		out[len(f)-1-i] = p
	}
	return out
}

// stitchRings repeatedly joins fragment pairs that share an exact
// coordinate at either endpoint, trying all four orientation
// combinations, until no more joins are possible. Fragments that close
// (first == last, length >= 4) are emitted as outer rings; fragments
// that never close are dropped (spec §4.1).
func stitchRings(fragments []fragment) []orb.Ring {
	var rings []orb.Ring
	remaining := make([]fragment, len(fragments))
	copy(remaining, fragments)

	for len(remaining) > 0 {
		current := remaining[0]
		remaining = remaining[1:]

		for !current.closed() && len(remaining) > 0 {
			joined := false
			for i, candidate := range remaining {
				if next, ok := join(current, candidate); ok {
					current = next
					remaining = append(remaining[:i], remaining[i+1:]...)
					joined = true
					break
				}
			}
			if !joined {
				break
			}
		}

		if current.closed() {
			rings = append(rings, orb.Ring(current))
		}
	}

	return rings
}

// join tries the four head/tail orientation combinations to attach b to
// the end of a. It returns the combined fragment and true on success.
func join(a, b fragment) (fragment, bool) {
	switch {
	case a.tail() == b.head():
		return append(append(fragment{}, a...), b[1:]...), true
	case a.tail() == b.tail():
		return append(append(fragment{}, a...), reversed(b)[1:]...), true
	case a.head() == b.tail():
		return append(append(fragment{}, b...), a[1:]...), true
	case a.head() == b.head():
		return append(append(fragment{}, reversed(b)...), a[1:]...), true
	default:
		return nil, false
	}
}
