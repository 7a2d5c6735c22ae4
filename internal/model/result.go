package model

// UncerType is the spatial-uncertainty category assigned to a record:
// the smallest geographic unit that can be trusted to contain the true
// collection location.
type UncerType string

const (
	UncerPrecise   UncerType = "precise"
	UncerImprecise UncerType = "imprecise"
	UncerCounty    UncerType = "county"
	UncerState     UncerType = "state"
	UncerUnusable  UncerType = "unusable"
)

// Basis names the source of the final uncertainty figure.
type Basis string

const (
	BasisStatedUncertainty Basis = "stated coordinate uncertainty"
	BasisCoordPrecision    Basis = "coordinate precision"
	BasisCountyArea        Basis = "county area"
	BasisStateArea         Basis = "state area"
)

// Diagnostic accumulates per-record intermediate findings. It is the
// primary failure-inspection surface: an auditor reads these fields to
// understand why a record was downgraded.
type Diagnostic struct {
	PrecisionDigits    *int     `json:"precisionDigits,omitempty"`
	PrecisionUncerM    *float64 `json:"precisionUncertaintyM,omitempty"`
	AugmentedUncerM    *float64 `json:"augmentedUncertaintyM,omitempty"`
	BufferAreaKM2      *float64 `json:"bufferAreaKm2,omitempty"`
	StateInGeog        bool     `json:"stateInGeography"`
	StateCountyMatches *bool    `json:"stateCountyMatches,omitempty"`
	CoordsMatchNamed   *bool    `json:"coordsMatchNamed,omitempty"`
	StateFromCoords    string   `json:"stateFromCoords,omitempty"`
	CountyFromCoords   string   `json:"countyFromCoords,omitempty"`
	UncerBasis         Basis    `json:"uncertaintyBasis,omitempty"`
}

// Result is the classification outcome for one record. Row order and
// identifiers mirror the input table exactly; rows are never dropped.
type Result struct {
	RecordID  string    `json:"id"`
	UncerType UncerType `json:"uncerType"`
	Usable    bool      `json:"usable"`
	AreaKM2   *float64  `json:"representativeAreaKm2,omitempty"`

	Diagnostic Diagnostic `json:"diagnostic"`
}
