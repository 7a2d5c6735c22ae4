package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/biorecs/occuncertainty/internal/boundary"
	"github.com/biorecs/occuncertainty/internal/classify"
	"github.com/biorecs/occuncertainty/internal/config"
	"github.com/biorecs/occuncertainty/internal/geometry"
	"github.com/biorecs/occuncertainty/internal/loader"
	"github.com/biorecs/occuncertainty/internal/model"
	"github.com/biorecs/occuncertainty/internal/postgis"
)

// buildSource constructs the configured boundary source. The returned
// close func is a no-op for the in-memory index.
func buildSource(ctx context.Context) (boundary.Source, func(), error) {
	switch cfg.Source.Driver {
	case "shapefile":
		idx, err := buildIndex()
		if err != nil {
			return nil, nil, err
		}
		return idx, func() {}, nil

	case "postgis":
		if cfg.Source.DatabaseURL == "" {
			return nil, nil, eris.New("source.database_url is required for the postgis driver")
		}
		pool, err := pgxpool.New(ctx, cfg.Source.DatabaseURL)
		if err != nil {
			return nil, nil, eris.Wrap(err, "connect postgis")
		}
		src, err := postgis.New(ctx, pool, cfg.Source.SRID)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return src, pool.Close, nil

	default:
		return nil, nil, eris.Errorf("unknown source driver %q", cfg.Source.Driver)
	}
}

// buildIndex loads both shapefile layers and builds the in-memory index.
func buildIndex() (*boundary.Index, error) {
	if cfg.Layers.StatesPath == "" || cfg.Layers.CountiesPath == "" {
		return nil, eris.New("layers.states_path and layers.counties_path are required for the shapefile driver")
	}

	proj, err := geometry.ParseProjection(cfg.Layers.Projection)
	if err != nil {
		return nil, err
	}

	states, err := boundary.LoadShapefile(cfg.Layers.StatesPath, cfg.Layers.StateField, "")
	if err != nil {
		return nil, err
	}
	counties, err := boundary.LoadShapefile(cfg.Layers.CountiesPath, cfg.Layers.StateField, cfg.Layers.CountyField)
	if err != nil {
		return nil, err
	}

	return boundary.NewIndex(states, counties, proj)
}

// buildThresholds resolves the effective thresholds: config, optionally
// overlaid by a named profile.
func buildThresholds(profilePath, profileName string) (classify.Thresholds, error) {
	tc := cfg.Thresholds
	if profilePath != "" {
		var err error
		tc, err = config.LoadProfile(profilePath, profileName, tc)
		if err != nil {
			return classify.Thresholds{}, err
		}
	}
	return classify.Thresholds{
		MinCoordUncerForPreciseM:      tc.MinCoordUncerForPreciseM,
		MaxPrecisionUncerForceCountyM: tc.MaxPrecisionUncerForceCountyM,
		MaxPrecisionUncerForceStateM:  tc.MaxPrecisionUncerForceStateM,
		MaxAreaKM2:                    tc.MaxAreaKM2,
	}, nil
}

// readRecords loads occurrence records from a CSV or XLSX file, chosen
// by extension.
func readRecords(path, delimiter, charset, sheetName string) ([]model.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return loader.ReadXLSX(path, loader.XLSXOptions{SheetName: sheetName})
	default:
		f, err := openInput(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		opts := loader.CSVOptions{Charset: charset}
		if delimiter != "" {
			opts.Delimiter = rune(delimiter[0])
		}
		return loader.ReadCSV(f, opts)
	}
}

func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open input %s", path)
	}
	return f, nil
}
