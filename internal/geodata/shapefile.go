package geodata

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/treedensity/treedensity-cli/internal/model"
)

// DBF column names. DBF limits names to ten characters.
const (
	shpFieldID    = "ID"
	shpFieldName  = "NAME"
	shpFieldTrees = "N_TREES"
	shpFieldArea  = "AREA_KM2"
)

// ReadShapefile reads municipalities from an ESRI shapefile whose DBF carries
// ID, NAME, N_TREES and AREA_KM2 columns.
func ReadShapefile(path string) ([]Feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "geodata: open shapefile")
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, shpFieldID)
	nameIdx := fieldIndex(reader, shpFieldName)
	treesIdx := fieldIndex(reader, shpFieldTrees)
	areaIdx := fieldIndex(reader, shpFieldArea)
	if idIdx < 0 || nameIdx < 0 || treesIdx < 0 || areaIdx < 0 {
		return nil, eris.Wrapf(ErrMissingProperty, "geodata: shapefile fields (%s, %s, %s, %s)",
			shpFieldID, shpFieldName, shpFieldTrees, shpFieldArea)
	}

	var out []Feature
	for reader.Next() {
		n, shape := reader.Shape()

		id := attribute(reader, idIdx)
		if id == "" {
			return nil, eris.Wrapf(ErrMissingProperty, "geodata: shape %d: %s", n, shpFieldID)
		}
		treesF, err := strconv.ParseFloat(attribute(reader, treesIdx), 64)
		if err != nil || !validCount(treesF) {
			return nil, eris.Wrapf(ErrInvalidProperty, "geodata: shape %d: %s=%q", n, shpFieldTrees, reader.Attribute(treesIdx))
		}
		area, err := strconv.ParseFloat(attribute(reader, areaIdx), 64)
		if err != nil {
			return nil, eris.Wrapf(ErrInvalidProperty, "geodata: shape %d: %s=%q", n, shpFieldArea, reader.Attribute(areaIdx))
		}

		out = append(out, Feature{
			Municipality: model.Municipality{
				ID:        id,
				Name:      attribute(reader, nameIdx),
				TreeCount: int64(treesF),
				AreaKm2:   area,
			},
			Geometry: shapeToGeom(shape),
		})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrap(err, "geodata: read shapefile")
	}
	return out, nil
}

// attribute reads a DBF value of the current shape without space or NUL
// padding.
func attribute(reader *shp.Reader, idx int) string {
	return strings.Trim(reader.Attribute(idx), " \x00")
}

// fieldIndex returns the index of a named DBF field, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// shapeToGeom converts polygons to a MultiPolygon with one polygon per ring.
// Other shape types carry no boundary.
func shapeToGeom(s shp.Shape) geom.T {
	p, ok := s.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("geodata: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geodata: skipping malformed polygon", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
