package boundary

import "context"

// Location is the administrative context derived from a coordinate.
// Empty names mean no unique containing polygon was found; Ambiguous
// distinguishes multi-match from no-match for diagnostics.
type Location struct {
	State           string
	County          string
	CountyState     string // state owning the containing county polygon
	StateAmbiguous  bool
	CountyAmbiguous bool
}

// Source is the boundary-geography capability the matcher and
// classifier consume. The in-memory Index implements it from shapefile
// layers; the postgis package implements it against PostGIS tables.
type Source interface {
	// HasState reports whether the state name exists in the geography
	// (case-insensitive exact match).
	HasState(name string) bool
	// CountyMatches reports whether the county exists under the state.
	CountyMatches(state, county string) bool
	// StateArea returns the equal-area size of a state in km².
	StateArea(name string) (float64, bool)
	// CountyArea returns the equal-area size of a county in km².
	CountyArea(state, county string) (float64, bool)
	// Locate finds the state and county polygons uniquely containing
	// the point. Zero or multiple matches resolve to an empty name,
	// never an error.
	Locate(ctx context.Context, lon, lat float64) (Location, error)
	// BufferAreaKM2 buffers the point by radiusM in the equal-area
	// plane and returns the buffer's area in km².
	BufferAreaKM2(ctx context.Context, lon, lat, radiusM float64) (float64, error)
}
