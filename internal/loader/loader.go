// Package loader reads occurrence record tables from CSV and XLSX
// files into model records. Column names follow Darwin Core.
package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/biorecs/occuncertainty/internal/model"
)

// Recognized column names, compared case-insensitively.
const (
	colID               = "id"
	colOccurrenceID     = "occurrenceid"
	colStateProvince    = "stateprovince"
	colCounty           = "county"
	colLatitude         = "decimallatitude"
	colLongitude        = "decimallongitude"
	colCoordUncertainty = "coordinateuncertaintyinmeters"
	colGeospatialIssues = "hasgeospatialissues"
)

// columnMap resolves header names to column positions.
type columnMap map[string]int

func mapColumns(header []string) columnMap {
	m := make(columnMap, len(header))
	for i, name := range header {
		m[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return m
}

func (m columnMap) get(row []string, name string) string {
	i, ok := m[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// recordsFromRows converts raw table rows into records. Absent cells
// stay absent; malformed numerics are input errors, not data gaps.
func recordsFromRows(header []string, rows [][]string) ([]model.Record, error) {
	cols := mapColumns(header)

	records := make([]model.Record, 0, len(rows))
	for n, row := range rows {
		rec := model.Record{
			ID:            cols.get(row, colID),
			StateProvince: cols.get(row, colStateProvince),
			County:        cols.get(row, colCounty),
		}
		if rec.ID == "" {
			rec.ID = cols.get(row, colOccurrenceID)
		}
		if rec.ID == "" {
			// Rows keep a stable identity even without an id column.
			rec.ID = fmt.Sprintf("row-%d", n+1)
		}

		var err error
		if rec.Latitude, err = parseFloat(cols.get(row, colLatitude)); err != nil {
			return nil, eris.Wrapf(err, "loader: row %d decimalLatitude", n+1)
		}
		if rec.Longitude, err = parseFloat(cols.get(row, colLongitude)); err != nil {
			return nil, eris.Wrapf(err, "loader: row %d decimalLongitude", n+1)
		}
		if rec.CoordUncertaintyM, err = parseFloat(cols.get(row, colCoordUncertainty)); err != nil {
			return nil, eris.Wrapf(err, "loader: row %d coordinateUncertaintyInMeters", n+1)
		}

		if v := cols.get(row, colGeospatialIssues); v != "" {
			b, err := strconv.ParseBool(strings.ToLower(v))
			if err != nil {
				return nil, eris.Wrapf(err, "loader: row %d hasGeospatialIssues", n+1)
			}
			rec.HasGeospatialIssues = b
		}

		records = append(records, rec)
	}
	return records, nil
}

func parseFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "parse %q", s)
	}
	return &v, nil
}
