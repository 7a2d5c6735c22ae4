package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/biorecs/occuncertainty/internal/boundary"
	"github.com/biorecs/occuncertainty/internal/classify"
	"github.com/biorecs/occuncertainty/internal/geometry"
	"github.com/biorecs/occuncertainty/internal/model"
)

func square(minLon, minLat, maxLon, maxLat float64) *geom.MultiPolygon {
	flat := []float64{
		minLon, minLat,
		maxLon, minLat,
		maxLon, maxLat,
		minLon, maxLat,
		minLon, minLat,
	}
	mp := geom.NewMultiPolygon(geom.XY)
	if err := mp.Push(geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})); err != nil {
		panic(err)
	}
	return mp
}

func testIndex(t *testing.T) *boundary.Index {
	t.Helper()
	proj, err := geometry.ParseProjection("+proj=cea +lon_0=0 +lat_ts=0")
	require.NoError(t, err)

	states := boundary.Layer{Units: []boundary.Unit{
		{State: "Texas", Geom: square(0, 0, 2, 2)},
		{State: "Oklahoma", Geom: square(2, 0, 4, 2)},
	}}
	counties := boundary.Layer{Units: []boundary.Unit{
		{State: "Texas", County: "Travis", Geom: square(0, 0, 1, 1)},
		{State: "Oklahoma", County: "Cleveland", Geom: square(2, 0, 3, 1)},
	}}
	idx, err := boundary.NewIndex(states, counties, proj)
	require.NoError(t, err)
	return idx
}

func f(v float64) *float64 { return &v }

func TestRunRowAlignment(t *testing.T) {
	p, err := New(testIndex(t), classify.DefaultThresholds(100))
	require.NoError(t, err)

	records := []model.Record{
		{ID: "good", StateProvince: "Texas", County: "Travis",
			Latitude: f(0.5123), Longitude: f(0.5456), CoordUncertaintyM: f(50)},
		{ID: "empty"},
		{ID: "named-only", StateProvince: "Oklahoma"},
		{ID: "coords-only", Latitude: f(2.5123), Longitude: f(0.5456), CoordUncertaintyM: f(40)},
	}

	results, err := p.Run(context.Background(), records, Options{Workers: 2})
	require.NoError(t, err)
	require.Len(t, results, len(records))

	for i, res := range results {
		assert.Equal(t, records[i].ID, res.RecordID)
	}

	assert.Equal(t, model.UncerPrecise, results[0].UncerType)
	assert.Equal(t, model.UncerUnusable, results[1].UncerType)
	assert.Equal(t, model.UncerState, results[2].UncerType)
	assert.Equal(t, model.UncerPrecise, results[3].UncerType)
}

func TestRunEmptyBatch(t *testing.T) {
	p, err := New(testIndex(t), classify.DefaultThresholds(100))
	require.NoError(t, err)

	results, err := p.Run(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunDeterministic(t *testing.T) {
	p, err := New(testIndex(t), classify.DefaultThresholds(100))
	require.NoError(t, err)

	records := []model.Record{
		{ID: "a", StateProvince: "Texas", County: "Travis",
			Latitude: f(0.5123), Longitude: f(0.5456), CoordUncertaintyM: f(50)},
		{ID: "b", StateProvince: "Oklahoma"},
		{ID: "c"},
	}

	first, err := p.Run(context.Background(), records, Options{Workers: 4})
	require.NoError(t, err)
	second, err := p.Run(context.Background(), records, Options{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// failingSource aborts on the first containment lookup.
type failingSource struct{ boundary.Source }

func (f *failingSource) Locate(_ context.Context, lon, lat float64) (boundary.Location, error) {
	return boundary.Location{}, eris.New("boom")
}

func TestRunAbortsOnSourceFailure(t *testing.T) {
	p, err := New(&failingSource{Source: testIndex(t)}, classify.DefaultThresholds(100))
	require.NoError(t, err)

	records := []model.Record{
		{ID: "a", Latitude: f(0.5), Longitude: f(0.5)},
	}
	_, err = p.Run(context.Background(), records, Options{})
	assert.Error(t, err)
}

func TestRunCancelledContext(t *testing.T) {
	p, err := New(testIndex(t), classify.DefaultThresholds(100))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := make([]model.Record, 64)
	for i := range records {
		records[i] = model.Record{ID: "r"}
	}
	_, err = p.Run(ctx, records, Options{Workers: 2})
	assert.Error(t, err)
}
