// Package classify assigns each occurrence record its spatial
// uncertainty category through a priority-ordered decision table: the
// first matching rule wins, and rules partition on presence or absence
// of names, coordinates, and uncertainty before anything else.
package classify

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/biorecs/occuncertainty/internal/boundary"
	"github.com/biorecs/occuncertainty/internal/match"
	"github.com/biorecs/occuncertainty/internal/model"
	"github.com/biorecs/occuncertainty/internal/precision"
)

// Classifier evaluates the decision table against a boundary source.
// It holds no per-record state and is safe for concurrent use.
type Classifier struct {
	src boundary.Source
	th  Thresholds
}

// New validates the thresholds and returns a Classifier.
func New(src boundary.Source, th Thresholds) (*Classifier, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{src: src, th: th}, nil
}

// Classify assigns the category, usability flag, and representative
// area for one record. Data gaps never produce an error; only a
// failing boundary source does.
func (c *Classifier) Classify(ctx context.Context, rec *model.Record) (model.Result, error) {
	res := model.Result{RecordID: rec.ID, UncerType: model.UncerUnusable}

	if err := rec.Validate(); err != nil {
		// Structurally invalid rows still get a result row; they are
		// excluded from all geometry and come out unusable.
		zap.L().Warn("classify: invalid record", zap.String("id", rec.ID), zap.Error(err))
		return res, nil
	}

	out, err := match.Evaluate(ctx, rec, c.src)
	if err != nil {
		return model.Result{}, err
	}
	diag := &res.Diagnostic
	diag.StateInGeog = out.StateInGeog
	diag.StateCountyMatches = out.StateCountyMatches
	diag.CoordsMatchNamed = out.CoordsMatchNamed
	diag.StateFromCoords = out.Location.State
	diag.CountyFromCoords = out.Location.County

	var statedM, precisionM float64
	if rec.HasCoords() {
		est := precision.Infer(*rec.Latitude, *rec.Longitude)
		precisionM = est.UncertaintyM
		diag.PrecisionDigits = &est.Digits
		diag.PrecisionUncerM = &est.UncertaintyM

		if rec.HasStatedUncertainty() {
			statedM = *rec.CoordUncertaintyM
		}
		// Rounding adds to, never subtracts from, positional error.
		aug := statedM + precisionM
		diag.AugmentedUncerM = &aug

		if aug > 0 && aug <= maxSaneUncertaintyM && !math.IsInf(aug, 0) && !math.IsNaN(aug) {
			ba, err := c.src.BufferAreaKM2(ctx, *rec.Longitude, *rec.Latitude, aug)
			if err != nil {
				return model.Result{}, err
			}
			diag.BufferAreaKM2 = &ba
		}
	}

	c.decide(rec, &out, &res, statedM, precisionM)

	res.Usable = res.UncerType != model.UncerUnusable &&
		res.AreaKM2 != nil && c.th.withinMaxArea(*res.AreaKM2)
	return res, nil
}

// decide walks the rule table in priority order and fills in category,
// representative area, and uncertainty basis.
func (c *Classifier) decide(rec *model.Record, out *match.Outcome, res *model.Result, statedM, precisionM float64) {
	diag := &res.Diagnostic

	if !rec.HasCoords() {
		// Rule 1: no coordinates and no trustworthy named location.
		if !rec.HasState() || !out.StateInGeog ||
			(rec.HasCounty() && diag.StateCountyMatches != nil && !*diag.StateCountyMatches) {
			return
		}
		// Named location only: the named unit is the best bound.
		c.adminFallback(rec, out, res)
		return
	}

	aug := *diag.AugmentedUncerM

	// Rule 2: tight uncertainty, trusted coordinates.
	if diag.BufferAreaKM2 != nil && aug <= c.th.MinCoordUncerForPreciseM &&
		!rec.HasGeospatialIssues && agreesOrUnnamed(out) {
		res.UncerType = model.UncerPrecise
		res.AreaKM2 = diag.BufferAreaKM2
		diag.UncerBasis = uncertaintyBasis(statedM, precisionM)
		return
	}

	// Rule 3: coordinates distrusted, fall back to the administrative
	// unit when one is resolvable.
	if rec.HasGeospatialIssues || disagrees(out) {
		c.adminFallback(rec, out, res)
		return
	}

	// Missing or absurd uncertainty: no buffer to compare against, the
	// administrative unit is all that is left.
	if diag.BufferAreaKM2 == nil {
		c.adminFallback(rec, out, res)
		return
	}

	// Rules 4 and 5: force a coarser unit when it bounds the location
	// tighter than the uncertainty circle. The county is checked first
	// so the finer unit wins whenever it satisfies its own bound.
	if aug >= c.th.MaxPrecisionUncerForceCountyM {
		if _, _, area, ok := c.resolveCounty(rec, out); ok && area < *diag.BufferAreaKM2 {
			res.UncerType = model.UncerCounty
			res.AreaKM2 = &area
			diag.UncerBasis = model.BasisCountyArea
			return
		}
	}
	if aug >= c.th.MaxPrecisionUncerForceStateM {
		if _, area, ok := c.resolveState(rec, out); ok && area < *diag.BufferAreaKM2 {
			res.UncerType = model.UncerState
			res.AreaKM2 = &area
			diag.UncerBasis = model.BasisStateArea
			return
		}
	}

	// Rule 6: nothing forces a coarser unit.
	res.UncerType = model.UncerImprecise
	res.AreaKM2 = diag.BufferAreaKM2
	diag.UncerBasis = uncertaintyBasis(statedM, precisionM)
}

// adminFallback resolves the tightest trustworthy administrative unit:
// county if one is resolvable and not over the area cap, else state,
// else unusable.
func (c *Classifier) adminFallback(rec *model.Record, out *match.Outcome, res *model.Result) {
	if _, _, area, ok := c.resolveCounty(rec, out); ok && c.th.withinMaxArea(area) {
		res.UncerType = model.UncerCounty
		res.AreaKM2 = &area
		res.Diagnostic.UncerBasis = model.BasisCountyArea
		return
	}
	if _, area, ok := c.resolveState(rec, out); ok {
		res.UncerType = model.UncerState
		res.AreaKM2 = &area
		res.Diagnostic.UncerBasis = model.BasisStateArea
		return
	}
	res.UncerType = model.UncerUnusable
}

// resolveCounty picks the county bounding the record: the stated county
// when it matches the stated state, else the coordinate-derived county.
func (c *Classifier) resolveCounty(rec *model.Record, out *match.Outcome) (county, state string, areaKM2 float64, ok bool) {
	if out.StateCountyMatches != nil && *out.StateCountyMatches {
		if a, found := c.src.CountyArea(rec.StateProvince, rec.County); found {
			return rec.County, rec.StateProvince, a, true
		}
	}
	if out.Location.County != "" {
		if a, found := c.src.CountyArea(out.Location.CountyState, out.Location.County); found {
			return out.Location.County, out.Location.CountyState, a, true
		}
	}
	return "", "", 0, false
}

// resolveState picks the state bounding the record: the stated state
// when it exists in the geography, else the coordinate-derived state.
func (c *Classifier) resolveState(rec *model.Record, out *match.Outcome) (state string, areaKM2 float64, ok bool) {
	if out.StateInGeog {
		if a, found := c.src.StateArea(rec.StateProvince); found {
			return rec.StateProvince, a, true
		}
	}
	if out.Location.State != "" {
		if a, found := c.src.StateArea(out.Location.State); found {
			return out.Location.State, a, true
		}
	}
	return "", 0, false
}

// agreesOrUnnamed reports whether no named location was given or the
// named location agrees with the coordinate-derived one.
func agreesOrUnnamed(out *match.Outcome) bool {
	return out.CoordsMatchNamed == nil || *out.CoordsMatchNamed
}

// disagrees reports whether a named location was given and conflicts
// with the coordinate-derived one.
func disagrees(out *match.Outcome) bool {
	return out.CoordsMatchNamed != nil && !*out.CoordsMatchNamed
}

// uncertaintyBasis records which contributor dominated the augmented
// uncertainty figure.
func uncertaintyBasis(statedM, precisionM float64) model.Basis {
	if statedM >= precisionM && statedM > 0 {
		return model.BasisStatedUncertainty
	}
	return model.BasisCoordPrecision
}
