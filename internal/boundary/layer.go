// Package boundary models administrative boundary layers and the
// immutable lookup index the classifier reads: per-unit equal-area
// sizes, name existence, and point containment.
package boundary

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Default attribute field names for unit names in boundary layers.
const (
	DefaultStateField  = "NAME_1"
	DefaultCountyField = "NAME_2"
)

// Unit is one named administrative polygon in a layer, unprojected
// (lon/lat degrees).
type Unit struct {
	State  string
	County string // empty in the state layer
	Geom   *geom.MultiPolygon
}

// Layer is a set of administrative units of one level.
type Layer struct {
	Units []Unit
}

// LoadShapefile reads a boundary layer from a shapefile. stateField
// names the attribute holding the state name; countyField, if
// non-empty, names the county attribute and marks this a county layer.
// A missing name field is a fatal configuration error. Rows without a
// usable polygon or name are skipped.
func LoadShapefile(path, stateField, countyField string) (Layer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return Layer{}, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	stateIdx, ok := fieldIdx[strings.ToLower(stateField)]
	if !ok {
		return Layer{}, eris.Errorf("boundary: field %q not found in %s", stateField, path)
	}
	countyIdx := -1
	if countyField != "" {
		countyIdx, ok = fieldIdx[strings.ToLower(countyField)]
		if !ok {
			return Layer{}, eris.Errorf("boundary: field %q not found in %s", countyField, path)
		}
	}

	// Units with the same name key can span multiple shapefile rows;
	// their polygons are merged into one multipolygon.
	byKey := make(map[string]int)
	var layer Layer
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		state := attribute(reader, stateIdx)
		county := ""
		if countyIdx >= 0 {
			county = attribute(reader, countyIdx)
		}
		if state == "" || (countyIdx >= 0 && county == "") {
			skipped++
			continue
		}

		mp := shapeToMultiPolygon(shape)
		if mp == nil {
			skipped++
			continue
		}

		key := strings.ToLower(state) + "\x1f" + strings.ToLower(county)
		if i, ok := byKey[key]; ok {
			merged := layer.Units[i].Geom
			for p := 0; p < mp.NumPolygons(); p++ {
				if err := merged.Push(mp.Polygon(p)); err != nil {
					skipped++
				}
			}
			continue
		}
		byKey[key] = len(layer.Units)
		layer.Units = append(layer.Units, Unit{State: state, County: county, Geom: mp})
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return layer, nil
}

func attribute(reader *shp.Reader, idx int) string {
	val := strings.TrimRight(reader.Attribute(idx), "\x00")
	return strings.TrimSpace(val)
}

// shapeToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Returns nil for nil or non-polygon shapes.
func shapeToMultiPolygon(shape shp.Shape) *geom.MultiPolygon {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
