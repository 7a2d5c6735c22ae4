package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biorecs/occuncertainty/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Thresholds: config.ThresholdsConfig{
			MinCoordUncerForPreciseM:      100,
			MaxPrecisionUncerForceCountyM: 100,
			MaxPrecisionUncerForceStateM:  500,
		},
	}
}

func TestBuildThresholds(t *testing.T) {
	cfg = testConfig()

	th, err := buildThresholds("", "")
	require.NoError(t, err)
	assert.Equal(t, 100.0, th.MinCoordUncerForPreciseM)
	assert.Equal(t, 500.0, th.MaxPrecisionUncerForceStateM)
}

func TestBuildThresholdsWithProfile(t *testing.T) {
	cfg = testConfig()

	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	yaml := `
profiles:
  strict:
    min_coord_uncer_for_precise_m: 25
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	th, err := buildThresholds(path, "strict")
	require.NoError(t, err)
	assert.Equal(t, 25.0, th.MinCoordUncerForPreciseM)
	// Unset profile fields inherit the config values.
	assert.Equal(t, 100.0, th.MaxPrecisionUncerForceCountyM)

	_, err = buildThresholds(path, "missing")
	assert.Error(t, err)
}

func TestReadRecordsCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "occ.csv")
	csv := "id,decimalLatitude,decimalLongitude\nr1,30.5,-97.5\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	records, err := readRecords(path, "", "", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ID)
	require.NotNil(t, records[0].Latitude)
	assert.Equal(t, 30.5, *records[0].Latitude)
}

func TestReadRecordsMissingFile(t *testing.T) {
	_, err := readRecords(filepath.Join(t.TempDir(), "nope.csv"), "", "", "")
	assert.Error(t, err)
}
