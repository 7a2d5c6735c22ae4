package boundary

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/biorecs/occuncertainty/internal/geometry"
)

// indexedUnit holds one unit's projected geometry plus cached values.
type indexedUnit struct {
	state   string // canonical, as named in the layer
	county  string
	geom    *geom.MultiPolygon // projected, equal-area plane
	areaKM2 float64
}

// Index is the immutable pre-computation over both boundary layers:
// projected geometries, per-unit areas, and case-folded name lookups.
// It is built once and safe for concurrent reads.
type Index struct {
	proj     geometry.Projection
	states   []indexedUnit
	counties []indexedUnit

	stateAreas  map[string]float64            // folded state name
	countyAreas map[string]map[string]float64 // folded state → folded county
}

// NewIndex reprojects both layers into the equal-area plane and caches
// each polygon's area. A zero or negative area after reprojection
// indicates a corrupt boundary layer and is fatal. A county whose state
// is absent from the state layer is kept for containment but its
// state-level comparisons degrade to no match.
func NewIndex(states, counties Layer, proj geometry.Projection) (*Index, error) {
	idx := &Index{
		proj:        proj,
		stateAreas:  make(map[string]float64, len(states.Units)),
		countyAreas: make(map[string]map[string]float64),
	}

	for _, u := range states.Units {
		projected := geometry.ReprojectMultiPolygon(u.Geom, proj)
		area := geometry.AreaKM2(projected)
		if area <= 0 {
			return nil, eris.Errorf("boundary: state %q has non-positive projected area", u.State)
		}
		idx.states = append(idx.states, indexedUnit{state: u.State, geom: projected, areaKM2: area})
		idx.stateAreas[fold(u.State)] = area
	}

	var orphaned int
	for _, u := range counties.Units {
		projected := geometry.ReprojectMultiPolygon(u.Geom, proj)
		area := geometry.AreaKM2(projected)
		if area <= 0 {
			return nil, eris.Errorf("boundary: county %q (%s) has non-positive projected area", u.County, u.State)
		}
		idx.counties = append(idx.counties, indexedUnit{state: u.State, county: u.County, geom: projected, areaKM2: area})

		fs := fold(u.State)
		if _, ok := idx.stateAreas[fs]; !ok {
			orphaned++
		}
		m := idx.countyAreas[fs]
		if m == nil {
			m = make(map[string]float64)
			idx.countyAreas[fs] = m
		}
		m[fold(u.County)] = area
	}

	if orphaned > 0 {
		zap.L().Warn("boundary: counties reference states missing from the state layer",
			zap.Int("count", orphaned),
		)
	}

	zap.L().Info("boundary: index built",
		zap.Int("states", len(idx.states)),
		zap.Int("counties", len(idx.counties)),
	)
	return idx, nil
}

// HasState implements Source.
func (idx *Index) HasState(name string) bool {
	_, ok := idx.stateAreas[fold(name)]
	return ok
}

// CountyMatches implements Source.
func (idx *Index) CountyMatches(state, county string) bool {
	m, ok := idx.countyAreas[fold(state)]
	if !ok {
		return false
	}
	_, ok = m[fold(county)]
	return ok
}

// StateArea implements Source.
func (idx *Index) StateArea(name string) (float64, bool) {
	a, ok := idx.stateAreas[fold(name)]
	return a, ok
}

// CountyArea implements Source.
func (idx *Index) CountyArea(state, county string) (float64, bool) {
	m, ok := idx.countyAreas[fold(state)]
	if !ok {
		return 0, false
	}
	a, ok := m[fold(county)]
	return a, ok
}

// Locate implements Source. The point is projected once and tested
// against each layer; zero or multiple containing polygons resolve to
// an empty name with the ambiguity flagged. The context is unused: the
// index is purely in-memory.
func (idx *Index) Locate(_ context.Context, lon, lat float64) (Location, error) {
	c := geometry.ReprojectPoint(lon, lat, idx.proj)

	var loc Location
	loc.State, loc.StateAmbiguous = locateIn(idx.states, c, func(u indexedUnit) string { return u.state })
	var owner string
	loc.County, loc.CountyAmbiguous = locateIn(idx.counties, c, func(u indexedUnit) string {
		owner = u.state
		return u.county
	})
	if loc.County != "" {
		loc.CountyState = owner
	}
	return loc, nil
}

// BufferAreaKM2 implements Source.
func (idx *Index) BufferAreaKM2(_ context.Context, lon, lat, radiusM float64) (float64, error) {
	c := geometry.ReprojectPoint(lon, lat, idx.proj)
	return geometry.AreaKM2(geometry.BufferPoint(c, radiusM)), nil
}

// UnitArea is one named unit with its equal-area size, for reporting.
type UnitArea struct {
	State   string
	County  string // empty for a state row
	AreaKM2 float64
}

// UnitAreas returns every unit with its projected area, states first,
// each layer in its load order.
func (idx *Index) UnitAreas() []UnitArea {
	out := make([]UnitArea, 0, len(idx.states)+len(idx.counties))
	for _, u := range idx.states {
		out = append(out, UnitArea{State: u.state, AreaKM2: u.areaKM2})
	}
	for _, u := range idx.counties {
		out = append(out, UnitArea{State: u.state, County: u.county, AreaKM2: u.areaKM2})
	}
	return out
}

// locateIn scans units for containment. More than one hit means the
// point sits on shared geometry; that is reported as ambiguous, not as
// a match.
func locateIn(units []indexedUnit, c geom.Coord, name func(indexedUnit) string) (string, bool) {
	found := ""
	for _, u := range units {
		if !geometry.Contains(u.geom, c) {
			continue
		}
		if found != "" {
			return "", true
		}
		found = name(u)
	}
	return found, false
}

// fold normalizes a unit name for case-insensitive comparison. No
// whitespace or diacritic normalization: a non-exact string is a
// non-match, forcing data cleaning upstream.
func fold(name string) string {
	return strings.ToLower(name)
}
