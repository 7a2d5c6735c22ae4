package geometry

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// bufferSegments is the number of arc segments used to approximate the
// circular uncertainty buffer.
const bufferSegments = 64

// ReprojectMultiPolygon returns a copy of mp with every vertex run
// through the projection. The input is left untouched.
func ReprojectMultiPolygon(mp *geom.MultiPolygon, proj Projection) *geom.MultiPolygon {
	flat := mp.FlatCoords()
	out := make([]float64, len(flat))
	stride := mp.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		x, y := proj.Forward(flat[i], flat[i+1])
		out[i], out[i+1] = x, y
		for j := 2; j < stride; j++ {
			out[i+j] = flat[i+j]
		}
	}
	endss := make([][]int, len(mp.Endss()))
	for i, ends := range mp.Endss() {
		endss[i] = append([]int(nil), ends...)
	}
	return geom.NewMultiPolygonFlat(mp.Layout(), out, endss)
}

// ReprojectPoint projects a lon/lat coordinate to planar meters.
func ReprojectPoint(lon, lat float64, proj Projection) geom.Coord {
	x, y := proj.Forward(lon, lat)
	return geom.Coord{x, y}
}

// Contains reports whether the multipolygon contains the coordinate:
// inside some polygon's exterior ring and outside all of that polygon's
// holes.
func Contains(mp *geom.MultiPolygon, c geom.Coord) bool {
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		if poly.NumLinearRings() == 0 {
			continue
		}
		if !xy.IsPointInRing(poly.Layout(), c, poly.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for r := 1; r < poly.NumLinearRings(); r++ {
			if xy.IsPointInRing(poly.Layout(), c, poly.LinearRing(r).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// BufferPoint builds a circular buffer polygon of the given radius
// (meters) around a projected point.
func BufferPoint(c geom.Coord, radiusM float64) *geom.Polygon {
	flat := make([]float64, 0, (bufferSegments+1)*2)
	for i := 0; i <= bufferSegments; i++ {
		theta := 2 * math.Pi * float64(i) / bufferSegments
		flat = append(flat, c[0]+radiusM*math.Cos(theta), c[1]+radiusM*math.Sin(theta))
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// AreaKM2 returns the planar area of a polygonal geometry in km².
func AreaKM2(g geom.T) float64 {
	var m2 float64
	switch t := g.(type) {
	case *geom.Polygon:
		m2 = t.Area()
	case *geom.MultiPolygon:
		m2 = t.Area()
	default:
		return 0
	}
	return math.Abs(m2) / 1e6
}
