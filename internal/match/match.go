// Package match reconciles a record's named geography with the
// geography derived from its coordinates.
package match

import (
	"context"
	"strings"

	"github.com/biorecs/occuncertainty/internal/boundary"
	"github.com/biorecs/occuncertainty/internal/model"
)

// Outcome holds the matcher's findings for one record. Pointer fields
// are nil when the comparison could not be made, which the classifier
// treats as an explicit absent state, never as false.
type Outcome struct {
	// StateInGeog is true iff the stated state name exists in the
	// state layer.
	StateInGeog bool
	// StateCountyMatches is nil when state or county is absent, else
	// whether the stated county exists under the stated state.
	StateCountyMatches *bool
	// Location is the coordinate-derived geography; zero-valued when
	// the record has no coordinates.
	Location boundary.Location
	// CoordsMatchNamed is nil when coordinates or all names are
	// absent, else whether every stated name agrees with the
	// coordinate-derived one.
	CoordsMatchNamed *bool
}

// Evaluate runs all name and containment comparisons for one record.
// Name comparison is case-insensitive and otherwise exact: whitespace
// and diacritics are significant, and fuzzy matching is deliberately
// absent so dirty names surface as non-matches.
func Evaluate(ctx context.Context, rec *model.Record, src boundary.Source) (Outcome, error) {
	var out Outcome

	out.StateInGeog = rec.HasState() && src.HasState(rec.StateProvince)

	if rec.HasState() && rec.HasCounty() {
		v := src.CountyMatches(rec.StateProvince, rec.County)
		out.StateCountyMatches = &v
	}

	if !rec.HasCoords() {
		return out, nil
	}

	loc, err := src.Locate(ctx, *rec.Longitude, *rec.Latitude)
	if err != nil {
		return Outcome{}, err
	}
	out.Location = loc

	if rec.HasState() || rec.HasCounty() {
		v := namedAgrees(rec, loc)
		out.CoordsMatchNamed = &v
	}

	return out, nil
}

// namedAgrees reports whether every stated administrative name equals
// the coordinate-derived one. An absent coordinate-derived unit (no
// unique containing polygon) counts as disagreement.
func namedAgrees(rec *model.Record, loc boundary.Location) bool {
	if rec.HasState() && !strings.EqualFold(rec.StateProvince, loc.State) {
		return false
	}
	if rec.HasCounty() && !strings.EqualFold(rec.County, loc.County) {
		return false
	}
	return true
}
