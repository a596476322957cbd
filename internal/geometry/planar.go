package geometry

import "github.com/paulmach/orb"

// RingArea returns the unsigned planar (shoelace) area of a closed ring,
// in square degrees. paulmach/orb does not expose an unsigned-area
// helper directly usable across Ring/Polygon/MultiPolygon without
// pulling in the geo encoding stack, so this and its neighbors below are
// small self-contained planar-geometry utilities built on orb's point
// types.
func RingArea(r orb.Ring) float64 {
	if len(r) < 4 {
		return 0
	}
	sum := 0.0
	for i := 0; i < len(r)-1; i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

// PolygonArea sums the outer ring area of every polygon in a
// multipolygon (holes are not modeled per spec §4.1).
func PolygonArea(mp orb.MultiPolygon) float64 {
	total := 0.0
	for _, poly := range mp {
		if len(poly) > 0 {
			total += RingArea(poly[0])
		}
	}
	return total
}

// RingCentroid returns the area-weighted centroid of a closed ring using
// the standard polygon centroid formula.
func RingCentroid(r orb.Ring) orb.Point {
	if len(r) < 4 {
		return ringAverage(r)
	}
	var cx, cy, area float64
	for i := 0; i < len(r)-1; i++ {
		cross := r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
		area += cross
		cx += (r[i][0] + r[i+1][0]) * cross
		cy += (r[i][1] + r[i+1][1]) * cross
	}
	area /= 2
	if area == 0 {
		return ringAverage(r)
	}
	return orb.Point{cx / (6 * area), cy / (6 * area)}
}

func ringAverage(r orb.Ring) orb.Point {
	if len(r) == 0 {
		return orb.Point{}
	}
	var x, y float64
	for _, p := range r {
		x += p[0]
		y += p[1]
	}
	n := float64(len(r))
	return orb.Point{x / n, y / n}
}

// MultiPolygonCentroid returns the area-weighted centroid across every
// outer ring of a multipolygon.
func MultiPolygonCentroid(mp orb.MultiPolygon) orb.Point {
	var cx, cy, totalArea float64
	for _, poly := range mp {
		if len(poly) == 0 {
			continue
		}
		a := RingArea(poly[0])
		c := RingCentroid(poly[0])
		cx += c[0] * a
		cy += c[1] * a
		totalArea += a
	}
	if totalArea == 0 {
		// Degenerate (zero-area) geometry: average every ring's simple mean.
		var x, y float64
		var n int
		for _, poly := range mp {
			if len(poly) == 0 {
				continue
			}
			p := ringAverage(poly[0])
			x += p[0]
			y += p[1]
			n++
		}
		if n == 0 {
			return orb.Point{}
		}
		return orb.Point{x / float64(n), y / float64(n)}
	}
	return orb.Point{cx / totalArea, cy / totalArea}
}

// MultiPolygonBound returns the bounding rectangle across every ring.
func MultiPolygonBound(mp orb.MultiPolygon) (minLon, minLat, maxLon, maxLat float64, ok bool) {
	first := true
	for _, poly := range mp {
		for _, ring := range poly {
			for _, p := range ring {
				if first {
					minLon, maxLon = p[0], p[0]
					minLat, maxLat = p[1], p[1]
					first = false
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
	}
	return minLon, minLat, maxLon, maxLat, !first
}

// RingContains reports whether point lies inside ring using the standard
// ray-casting algorithm. Points exactly on the boundary get no special
// handling and may be reported as inside or outside.
func RingContains(r orb.Ring, pt orb.Point) bool {
	if len(r) < 4 {
		return false
	}
	inside := false
	x, y := pt[0], pt[1]
	for i, j := 0, len(r)-1; i < len(r); j, i = i, i+1 {
		xi, yi := r[i][0], r[i][1]
		xj, yj := r[j][0], r[j][1]
		if (yi > y) != (yj > y) {
			xIntersect := (xj-xi)*(y-yi)/(yj-yi) + xi
			if x < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

// MultiPolygonContains reports whether pt falls within any outer ring of
// mp (no holes are modeled, per spec §4.1).
func MultiPolygonContains(mp orb.MultiPolygon, pt orb.Point) bool {
	for _, poly := range mp {
		if len(poly) > 0 && RingContains(poly[0], pt) {
			return true
		}
	}
	return false
}
