package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// profileFile is the on-disk shape of a threshold profile file: a named
// set of threshold overrides per collection or data source.
type profileFile struct {
	Profiles map[string]ThresholdsConfig `yaml:"profiles"`
}

// LoadProfile reads the named threshold profile from a YAML file and
// overlays it on base. Zero-valued profile fields inherit from base, so
// a profile only states what it changes.
func LoadProfile(path, name string, base ThresholdsConfig) (ThresholdsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ThresholdsConfig{}, eris.Wrapf(err, "config: read profile file %s", path)
	}

	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return ThresholdsConfig{}, eris.Wrap(err, "config: parse profile file")
	}

	p, ok := pf.Profiles[name]
	if !ok {
		return ThresholdsConfig{}, eris.Errorf("config: profile %q not found in %s", name, path)
	}

	out := base
	if p.MinCoordUncerForPreciseM != 0 {
		out.MinCoordUncerForPreciseM = p.MinCoordUncerForPreciseM
	}
	if p.MaxPrecisionUncerForceCountyM != 0 {
		out.MaxPrecisionUncerForceCountyM = p.MaxPrecisionUncerForceCountyM
	}
	if p.MaxPrecisionUncerForceStateM != 0 {
		out.MaxPrecisionUncerForceStateM = p.MaxPrecisionUncerForceStateM
	}
	if p.MaxAreaKM2 != 0 {
		out.MaxAreaKM2 = p.MaxAreaKM2
	}
	return out, nil
}
