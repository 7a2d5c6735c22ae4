// Package postgis implements the boundary source against PostGIS
// tables, for deployments that keep authoritative boundary layers in
// the database instead of shapefiles. Unit areas are loaded once at
// construction; only containment and buffering hit the database per
// record.
package postgis

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/biorecs/occuncertainty/internal/boundary"
)

// DefaultSRID is EPSG 6933, a global cylindrical equal-area projection.
const DefaultSRID = 6933

// Pool is the subset of pgxpool.Pool the source needs; pgxmock
// satisfies it in tests.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Source reads boundary geography from geo.states and geo.counties.
type Source struct {
	pool Pool
	srid int

	stateAreas  map[string]float64
	countyAreas map[string]map[string]float64
}

// New loads the per-unit equal-area sizes and returns a ready source.
// A non-positive area indicates a corrupt boundary table and is fatal,
// as is any query failure: geometry-engine problems abort at setup, not
// per record.
func New(ctx context.Context, pool Pool, srid int) (*Source, error) {
	if srid == 0 {
		srid = DefaultSRID
	}
	s := &Source{
		pool:        pool,
		srid:        srid,
		stateAreas:  make(map[string]float64),
		countyAreas: make(map[string]map[string]float64),
	}

	rows, err := pool.Query(ctx,
		`SELECT name, ST_Area(ST_Transform(geom, $1)) / 1000000.0 FROM geo.states`, srid)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: load state areas")
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var area float64
		if err := rows.Scan(&name, &area); err != nil {
			return nil, eris.Wrap(err, "postgis: scan state area")
		}
		if area <= 0 {
			return nil, eris.Errorf("postgis: state %q has non-positive projected area", name)
		}
		s.stateAreas[fold(name)] = area
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgis: iterate state areas")
	}

	crows, err := pool.Query(ctx,
		`SELECT state_name, name, ST_Area(ST_Transform(geom, $1)) / 1000000.0 FROM geo.counties`, srid)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: load county areas")
	}
	defer crows.Close()
	for crows.Next() {
		var state, name string
		var area float64
		if err := crows.Scan(&state, &name, &area); err != nil {
			return nil, eris.Wrap(err, "postgis: scan county area")
		}
		if area <= 0 {
			return nil, eris.Errorf("postgis: county %q (%s) has non-positive projected area", name, state)
		}
		m := s.countyAreas[fold(state)]
		if m == nil {
			m = make(map[string]float64)
			s.countyAreas[fold(state)] = m
		}
		m[fold(name)] = area
	}
	if err := crows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgis: iterate county areas")
	}

	zap.L().Info("postgis: boundary source ready",
		zap.Int("states", len(s.stateAreas)),
		zap.Int("srid", srid),
	)
	return s, nil
}

// HasState implements boundary.Source.
func (s *Source) HasState(name string) bool {
	_, ok := s.stateAreas[fold(name)]
	return ok
}

// CountyMatches implements boundary.Source.
func (s *Source) CountyMatches(state, county string) bool {
	_, ok := s.countyAreas[fold(state)][fold(county)]
	return ok
}

// StateArea implements boundary.Source.
func (s *Source) StateArea(name string) (float64, bool) {
	a, ok := s.stateAreas[fold(name)]
	return a, ok
}

// CountyArea implements boundary.Source.
func (s *Source) CountyArea(state, county string) (float64, bool) {
	a, ok := s.countyAreas[fold(state)][fold(county)]
	return a, ok
}

// Locate implements boundary.Source. Zero or multiple containing
// polygons resolve to an empty name; only a query failure is an error,
// and it aborts the batch.
func (s *Source) Locate(ctx context.Context, lon, lat float64) (boundary.Location, error) {
	var loc boundary.Location

	states, err := s.containing(ctx,
		`SELECT name, '' FROM geo.states WHERE ST_Contains(geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))`,
		lon, lat)
	if err != nil {
		return boundary.Location{}, eris.Wrap(err, "postgis: locate state")
	}
	switch len(states) {
	case 0:
	case 1:
		loc.State = states[0][0]
	default:
		loc.StateAmbiguous = true
	}

	counties, err := s.containing(ctx,
		`SELECT name, state_name FROM geo.counties WHERE ST_Contains(geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))`,
		lon, lat)
	if err != nil {
		return boundary.Location{}, eris.Wrap(err, "postgis: locate county")
	}
	switch len(counties) {
	case 0:
	case 1:
		loc.County = counties[0][0]
		loc.CountyState = counties[0][1]
	default:
		loc.CountyAmbiguous = true
	}

	return loc, nil
}

// BufferAreaKM2 implements boundary.Source.
func (s *Source) BufferAreaKM2(ctx context.Context, lon, lat, radiusM float64) (float64, error) {
	var area float64
	err := s.pool.QueryRow(ctx,
		`SELECT ST_Area(ST_Buffer(ST_Transform(ST_SetSRID(ST_MakePoint($1, $2), 4326), $3), $4)) / 1000000.0`,
		lon, lat, s.srid, radiusM,
	).Scan(&area)
	if err != nil {
		return 0, eris.Wrap(err, "postgis: buffer area")
	}
	return area, nil
}

// containing runs a containment query and returns (name, extra) pairs.
func (s *Source) containing(ctx context.Context, sql string, lon, lat float64) ([][2]string, error) {
	rows, err := s.pool.Query(ctx, sql, lon, lat)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][2]string
	for rows.Next() {
		var name, extra string
		if err := rows.Scan(&name, &extra); err != nil {
			return nil, err
		}
		out = append(out, [2]string{name, extra})
	}
	return out, rows.Err()
}

func fold(name string) string { return strings.ToLower(name) }
