// Package geometry provides the planar geometry primitives the pipeline
// is built on: equal-area projection, point containment, point
// buffering, and polygon area. Results are treated as exact by callers.
package geometry

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// authalicRadius is the sphere radius (meters) that preserves the
// earth's surface area, so projected areas stay comparable in km².
const authalicRadius = 6371007.181

// Projection is a parsed equal-area projection descriptor.
type Projection struct {
	kind  string
	lat0  float64 // radians
	lon0  float64 // radians
	latTS float64 // radians, cea only
}

// ParseProjection parses a proj-style descriptor into a Projection.
// Supported forms:
//
//	+proj=laea +lat_0=45 +lon_0=-100
//	+proj=cea +lon_0=0 +lat_ts=30
//
// Only equal-area projections are accepted; anything else is a fatal
// configuration error.
func ParseProjection(desc string) (Projection, error) {
	p := Projection{}
	for _, tok := range strings.Fields(desc) {
		tok = strings.TrimPrefix(tok, "+")
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		switch key {
		case "proj":
			p.kind = val
		case "lat_0", "lon_0", "lat_ts":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return Projection{}, eris.Wrapf(err, "geometry: parse projection parameter %s", key)
			}
			rad := f * math.Pi / 180
			switch key {
			case "lat_0":
				p.lat0 = rad
			case "lon_0":
				p.lon0 = rad
			case "lat_ts":
				p.latTS = rad
			}
		}
	}

	switch p.kind {
	case "laea", "cea":
		return p, nil
	case "":
		return Projection{}, eris.Errorf("geometry: projection descriptor %q missing proj parameter", desc)
	default:
		return Projection{}, eris.Errorf("geometry: projection %q is not a supported equal-area projection", p.kind)
	}
}

// Forward projects a lon/lat pair (degrees) to planar x/y meters.
func (p Projection) Forward(lon, lat float64) (x, y float64) {
	phi := lat * math.Pi / 180
	lam := lon*math.Pi/180 - p.lon0

	switch p.kind {
	case "cea":
		c := math.Cos(p.latTS)
		return authalicRadius * lam * c, authalicRadius * math.Sin(phi) / c
	default: // laea
		sin0, cos0 := math.Sin(p.lat0), math.Cos(p.lat0)
		sinP, cosP := math.Sin(phi), math.Cos(phi)
		denom := 1 + sin0*sinP + cos0*cosP*math.Cos(lam)
		k := math.Sqrt(2 / denom)
		x = authalicRadius * k * cosP * math.Sin(lam)
		y = authalicRadius * k * (cos0*sinP - sin0*cosP*math.Cos(lam))
		return x, y
	}
}
