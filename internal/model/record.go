// Package model defines occurrence records, per-record diagnostics, and
// classification results shared across the pipeline.
package model

import "github.com/rotisserie/eris"

// Record is a single biodiversity occurrence row. Optional fields are
// pointers so that "absent" stays distinct from a zero value.
type Record struct {
	ID                  string   `json:"id"`
	StateProvince       string   `json:"stateProvince,omitempty"`
	County              string   `json:"county,omitempty"`
	Latitude            *float64 `json:"decimalLatitude,omitempty"`
	Longitude           *float64 `json:"decimalLongitude,omitempty"`
	CoordUncertaintyM   *float64 `json:"coordinateUncertaintyInMeters,omitempty"`
	HasGeospatialIssues bool     `json:"hasGeospatialIssues,omitempty"`
}

// HasCoords reports whether both coordinate components are present.
func (r *Record) HasCoords() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// HasState reports whether a state/province name is present.
func (r *Record) HasState() bool {
	return r.StateProvince != ""
}

// HasCounty reports whether a county name is present.
func (r *Record) HasCounty() bool {
	return r.County != ""
}

// HasStatedUncertainty reports whether an explicit coordinate
// uncertainty was provided.
func (r *Record) HasStatedUncertainty() bool {
	return r.CoordUncertaintyM != nil
}

// Validate checks structural invariants: coordinates are both-present
// or both-absent, latitude and longitude are in range, and a stated
// uncertainty is non-negative.
func (r *Record) Validate() error {
	if (r.Latitude == nil) != (r.Longitude == nil) {
		return eris.Errorf("model: record %s has only one coordinate component", r.ID)
	}
	if r.Latitude != nil {
		if *r.Latitude < -90 || *r.Latitude > 90 {
			return eris.Errorf("model: record %s latitude %v out of range", r.ID, *r.Latitude)
		}
		if *r.Longitude < -180 || *r.Longitude > 180 {
			return eris.Errorf("model: record %s longitude %v out of range", r.ID, *r.Longitude)
		}
	}
	if r.CoordUncertaintyM != nil && *r.CoordUncertaintyM < 0 {
		return eris.Errorf("model: record %s negative coordinate uncertainty", r.ID)
	}
	return nil
}
