package classify

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biorecs/occuncertainty/internal/boundary"
	"github.com/biorecs/occuncertainty/internal/model"
)

// stubSource is an in-memory boundary.Source with a fixed containment
// answer, so every decision-table input can be exercised directly.
type stubSource struct {
	states   map[string]float64
	counties map[string]map[string]float64
	loc      boundary.Location
}

func (s *stubSource) HasState(name string) bool {
	_, ok := s.states[strings.ToLower(name)]
	return ok
}

func (s *stubSource) CountyMatches(state, county string) bool {
	_, ok := s.counties[strings.ToLower(state)][strings.ToLower(county)]
	return ok
}

func (s *stubSource) StateArea(name string) (float64, bool) {
	a, ok := s.states[strings.ToLower(name)]
	return a, ok
}

func (s *stubSource) CountyArea(state, county string) (float64, bool) {
	a, ok := s.counties[strings.ToLower(state)][strings.ToLower(county)]
	return a, ok
}

func (s *stubSource) Locate(_ context.Context, lon, lat float64) (boundary.Location, error) {
	return s.loc, nil
}

func (s *stubSource) BufferAreaKM2(_ context.Context, lon, lat, radiusM float64) (float64, error) {
	return math.Pi * radiusM * radiusM / 1e6, nil
}

func texasSource(loc boundary.Location) *stubSource {
	return &stubSource{
		states: map[string]float64{
			"texas":    696241,
			"oklahoma": 181037,
		},
		counties: map[string]map[string]float64{
			"texas":    {"travis": 2500, "hays": 1800},
			"oklahoma": {"cleveland": 1400},
		},
		loc: loc,
	}
}

func inTravis() boundary.Location {
	return boundary.Location{State: "Texas", County: "Travis", CountyState: "Texas"}
}

func f(v float64) *float64 { return &v }

func defaultClassifier(t *testing.T, src boundary.Source) *Classifier {
	t.Helper()
	c, err := New(src, DefaultThresholds(100))
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadThresholds(t *testing.T) {
	src := texasSource(inTravis())

	tests := []struct {
		name string
		th   Thresholds
	}{
		{name: "missing precise threshold", th: Thresholds{MaxPrecisionUncerForceCountyM: 100, MaxPrecisionUncerForceStateM: 500}},
		{name: "county not below state", th: Thresholds{MinCoordUncerForPreciseM: 100, MaxPrecisionUncerForceCountyM: 500, MaxPrecisionUncerForceStateM: 500}},
		{name: "negative max area", th: Thresholds{MinCoordUncerForPreciseM: 100, MaxPrecisionUncerForceCountyM: 100, MaxPrecisionUncerForceStateM: 500, MaxAreaKM2: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(src, tt.th)
			assert.Error(t, err)
		})
	}
}

func TestClassifyPreciseScenario(t *testing.T) {
	// Unrounded coordinates inside the stated county, 50 m stated
	// uncertainty, no issues: precise, area ~ pi*(50+eps)^2.
	c := defaultClassifier(t, texasSource(inTravis()))

	rec := model.Record{
		ID:                "r1",
		StateProvince:     "Texas",
		County:            "Travis",
		Latitude:          f(30.2672),
		Longitude:         f(-97.7431),
		CoordUncertaintyM: f(50),
	}
	res, err := c.Classify(context.Background(), &rec)
	require.NoError(t, err)

	assert.Equal(t, model.UncerPrecise, res.UncerType)
	assert.True(t, res.Usable)
	require.NotNil(t, res.AreaKM2)
	require.NotNil(t, res.Diagnostic.AugmentedUncerM)

	aug := *res.Diagnostic.AugmentedUncerM
	assert.Greater(t, aug, 50.0)
	assert.Less(t, aug, 70.0)
	assert.InDelta(t, math.Pi*aug*aug/1e6, *res.AreaKM2, 1e-9)
	assert.Equal(t, model.BasisStatedUncertainty, res.Diagnostic.UncerBasis)
}

func TestClassifyPrecisionDominatedBasis(t *testing.T) {
	// One-digit coordinates with a tiny stated uncertainty: the
	// rounding contribution dominates the augmented figure.
	c, err := New(texasSource(inTravis()), Thresholds{
		MinCoordUncerForPreciseM:      20000,
		MaxPrecisionUncerForceCountyM: 50000,
		MaxPrecisionUncerForceStateM:  100000,
	})
	require.NoError(t, err)

	rec := model.Record{
		ID:                "r1",
		Latitude:          f(30.3),
		Longitude:         f(-97.7),
		CoordUncertaintyM: f(5),
	}
	res, err := c.Classify(context.Background(), &rec)
	require.NoError(t, err)

	assert.Equal(t, model.UncerPrecise, res.UncerType)
	assert.Equal(t, model.BasisCoordPrecision, res.Diagnostic.UncerBasis)
}

func TestClassifyCountyMismatchFallsBackToDerivedCounty(t *testing.T) {
	// Stated county does not exist under the state; coordinates sit in
	// Travis. The coordinate-derived county becomes the bound.
	c := defaultClassifier(t, texasSource(inTravis()))

	rec := model.Record{
		ID:                "r2",
		StateProvince:     "Texas",
		County:            "Nonexistent",
		Latitude:          f(30.2672),
		Longitude:         f(-97.7431),
		CoordUncertaintyM: f(50),
	}
	res, err := c.Classify(context.Background(), &rec)
	require.NoError(t, err)

	require.NotNil(t, res.Diagnostic.StateCountyMatches)
	assert.False(t, *res.Diagnostic.StateCountyMatches)
	assert.Equal(t, model.UncerCounty, res.UncerType)
	require.NotNil(t, res.AreaKM2)
	assert.Equal(t, 2500.0, *res.AreaKM2)
	assert.Equal(t, model.BasisCountyArea, res.Diagnostic.UncerBasis)
	assert.Equal(t, "Travis", res.Diagnostic.CountyFromCoords)
}

func TestClassifyGeospatialIssueDistrustsCoordinates(t *testing.T) {
	c := defaultClassifier(t, texasSource(inTravis()))

	rec := model.Record{
		ID:                  "r3",
		StateProvince:       "Texas",
		County:              "Travis",
		Latitude:            f(30.2672),
		Longitude:           f(-97.7431),
		CoordUncertaintyM:   f(50),
		HasGeospatialIssues: true,
	}
	res, err := c.Classify(context.Background(), &rec)
	require.NoError(t, err)

	assert.Equal(t, model.UncerCounty, res.UncerType)
	assert.Equal(t, 2500.0, *res.AreaKM2)
}

func TestClassifyNamedLocationOnly(t *testing.T) {
	c := defaultClassifier(t, texasSource(boundary.Location{}))

	tests := []struct {
		name     string
		rec      model.Record
		uncer    model.UncerType
		areaKM2  float64
		hasArea  bool
		basis    model.Basis
	}{
		{
			name:    "state only",
			rec:     model.Record{ID: "a", StateProvince: "Oklahoma"},
			uncer:   model.UncerState,
			areaKM2: 181037,
			hasArea: true,
			basis:   model.BasisStateArea,
		},
		{
			name:    "state and matching county",
			rec:     model.Record{ID: "b", StateProvince: "Texas", County: "Hays"},
			uncer:   model.UncerCounty,
			areaKM2: 1800,
			hasArea: true,
			basis:   model.BasisCountyArea,
		},
		{
			name:  "state not in geography",
			rec:   model.Record{ID: "c", StateProvince: "Atlantis"},
			uncer: model.UncerUnusable,
		},
		{
			name:  "county that does not match its state",
			rec:   model.Record{ID: "d", StateProvince: "Texas", County: "Cleveland"},
			uncer: model.UncerUnusable,
		},
		{
			name:  "nothing at all",
			rec:   model.Record{ID: "e"},
			uncer: model.UncerUnusable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Classify(context.Background(), &tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.uncer, res.UncerType)
			if tt.hasArea {
				require.NotNil(t, res.AreaKM2)
				assert.Equal(t, tt.areaKM2, *res.AreaKM2)
				assert.Equal(t, tt.basis, res.Diagnostic.UncerBasis)
				assert.True(t, res.Usable)
			} else {
				assert.Nil(t, res.AreaKM2)
				assert.False(t, res.Usable)
			}
		})
	}
}

func TestClassifyForcingRules(t *testing.T) {
	// Integer-degree coordinates at 45 degrees with a small stated
	// uncertainty: the rounding-implied ~79 km dominates and the small
	// state bounds the location tighter than the uncertainty circle.
	src := &stubSource{
		states: map[string]float64{"smallstate": 15000},
		loc:    boundary.Location{State: "SmallState"},
	}
	c := defaultClassifier(t, src)

	rec := model.Record{
		ID:                "r4",
		Latitude:          f(45),
		Longitude:         f(-100),
		CoordUncertaintyM: f(10),
	}
	res, err := c.Classify(context.Background(), &rec)
	require.NoError(t, err)

	require.NotNil(t, res.Diagnostic.AugmentedUncerM)
	assert.InDelta(t, 79000, *res.Diagnostic.AugmentedUncerM, 1000)
	assert.Equal(t, model.UncerState, res.UncerType)
	assert.Equal(t, 15000.0, *res.AreaKM2)
	assert.Equal(t, model.BasisStateArea, res.Diagnostic.UncerBasis)
}

func TestClassifyForcingPrefersFinerUnit(t *testing.T) {
	// Both forcing conditions hold; the county satisfies its own bound
	// so the finer unit wins.
	src := texasSource(inTravis())
	c := defaultClassifier(t, src)

	rec := model.Record{
		ID:                "r5",
		StateProvince:     "Texas",
		County:            "Travis",
		Latitude:          f(30.2672),
		Longitude:         f(-97.7431),
		CoordUncertaintyM: f(500000), // 500 km circle dwarfs both units
	}
	res, err := c.Classify(context.Background(), &rec)
	require.NoError(t, err)

	assert.Equal(t, model.UncerCounty, res.UncerType)
	assert.Equal(t, 2500.0, *res.AreaKM2)
}

func TestClassifyImpreciseWhenNoForcingApplies(t *testing.T) {
	src := texasSource(inTravis())
	c := defaultClassifier(t, src)

	rec := model.Record{
		ID:                "r6",
		StateProvince:     "Texas",
		County:            "Travis",
		Latitude:          f(30.2672),
		Longitude:         f(-97.7431),
		CoordUncertaintyM: f(5000), // 5 km circle, far below county area
	}
	res, err := c.Classify(context.Background(), &rec)
	require.NoError(t, err)

	assert.Equal(t, model.UncerImprecise, res.UncerType)
	require.NotNil(t, res.AreaKM2)
	assert.Equal(t, *res.Diagnostic.BufferAreaKM2, *res.AreaKM2)
}

func TestClassifyAbsurdUncertaintySkipsBuffering(t *testing.T) {
	src := texasSource(inTravis())
	c := defaultClassifier(t, src)

	rec := model.Record{
		ID:                "r7",
		StateProvince:     "Texas",
		County:            "Travis",
		Latitude:          f(30.2672),
		Longitude:         f(-97.7431),
		CoordUncertaintyM: f(6_000_000), // above the 5000 km ceiling
	}
	res, err := c.Classify(context.Background(), &rec)
	require.NoError(t, err)

	assert.Nil(t, res.Diagnostic.BufferAreaKM2)
	assert.Equal(t, model.UncerCounty, res.UncerType)
	assert.Equal(t, 2500.0, *res.AreaKM2)
}

func TestClassifyMaxAreaCapsUsability(t *testing.T) {
	src := texasSource(boundary.Location{})
	th := DefaultThresholds(100)
	th.MaxAreaKM2 = 2000
	c, err := New(src, th)
	require.NoError(t, err)

	// County exceeds the cap, so the fallback degrades to state; the
	// state exceeds it too, leaving the record categorized but unusable.
	rec := model.Record{ID: "r8", StateProvince: "Texas", County: "Travis"}
	res, err := c.Classify(context.Background(), &rec)
	require.NoError(t, err)

	assert.Equal(t, model.UncerState, res.UncerType)
	assert.False(t, res.Usable)

	// A county under the cap stays county and usable.
	rec2 := model.Record{ID: "r9", StateProvince: "Texas", County: "Hays"}
	res2, err := c.Classify(context.Background(), &rec2)
	require.NoError(t, err)
	assert.Equal(t, model.UncerCounty, res2.UncerType)
	assert.True(t, res2.Usable)
}

func TestClassifyMonotonicCoarseness(t *testing.T) {
	// Growing stated uncertainty must never move a record to a finer
	// category.
	rank := map[model.UncerType]int{
		model.UncerPrecise:   0,
		model.UncerImprecise: 1,
		model.UncerCounty:    2,
		model.UncerState:     3,
		model.UncerUnusable:  4,
	}

	c := defaultClassifier(t, texasSource(inTravis()))

	prev := -1
	for _, uncerM := range []float64{1, 50, 90, 200, 5000, 30000, 60000, 200000, 1_000_000} {
		rec := model.Record{
			ID:                "mono",
			StateProvince:     "Texas",
			County:            "Travis",
			Latitude:          f(30.2672),
			Longitude:         f(-97.7431),
			CoordUncertaintyM: f(uncerM),
		}
		res, err := c.Classify(context.Background(), &rec)
		require.NoError(t, err)
		r := rank[res.UncerType]
		assert.GreaterOrEqual(t, r, prev, "uncertainty %v moved category finer", uncerM)
		prev = r
	}
}

func TestClassifyIdempotent(t *testing.T) {
	c := defaultClassifier(t, texasSource(inTravis()))
	rec := model.Record{
		ID:                "r10",
		StateProvince:     "Texas",
		County:            "Travis",
		Latitude:          f(30.2672),
		Longitude:         f(-97.7431),
		CoordUncertaintyM: f(50),
	}

	first, err := c.Classify(context.Background(), &rec)
	require.NoError(t, err)
	second, err := c.Classify(context.Background(), &rec)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClassifyInvalidRecordStillGetsRow(t *testing.T) {
	c := defaultClassifier(t, texasSource(inTravis()))

	rec := model.Record{ID: "bad", Latitude: f(120), Longitude: f(-97)}
	res, err := c.Classify(context.Background(), &rec)
	require.NoError(t, err)
	assert.Equal(t, "bad", res.RecordID)
	assert.Equal(t, model.UncerUnusable, res.UncerType)
	assert.False(t, res.Usable)
	assert.Nil(t, res.AreaKM2)
}
