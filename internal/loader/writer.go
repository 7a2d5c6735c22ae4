package loader

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/biorecs/occuncertainty/internal/model"
)

// resultHeader is the output column order. Diagnostic columns come
// after the category and area so downstream filters can ignore them.
var resultHeader = []string{
	"id",
	"uncerType",
	"usable",
	"areaKM2",
	"uncerBasis",
	"precisionDigits",
	"precisionUncerM",
	"augmentedUncerM",
	"bufferAreaKM2",
	"stateFromCoords",
	"countyFromCoords",
}

// WriteCSV writes one row per result, in order, with empty cells for
// absent values.
func WriteCSV(w io.Writer, results []model.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultHeader); err != nil {
		return eris.Wrap(err, "loader: write result header")
	}

	for _, res := range results {
		d := res.Diagnostic
		row := []string{
			res.RecordID,
			string(res.UncerType),
			strconv.FormatBool(res.Usable),
			formatFloat(res.AreaKM2),
			string(d.UncerBasis),
			formatInt(d.PrecisionDigits),
			formatFloat(d.PrecisionUncerM),
			formatFloat(d.AugmentedUncerM),
			formatFloat(d.BufferAreaKM2),
			d.StateFromCoords,
			d.CountyFromCoords,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "loader: write result row %s", res.RecordID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "loader: flush results")
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
