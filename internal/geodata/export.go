package geodata

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/treedensity/treedensity-cli/internal/choropleth"
)

// Choropleth builds a FeatureCollection with each feature's density class and
// fill colour. Features without a usable density get a null density, class -1
// and no fill.
func Choropleth(features []Feature, scale *choropleth.QuantileScale) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(features))}
	for _, f := range features {
		m := f.Municipality
		props := map[string]any{
			"id":       m.ID,
			"name":     m.Name,
			"n_trees":  m.TreeCount,
			"area_km2": m.AreaKm2,
			"density":  nil,
			"class":    -1,
		}
		if d, ok := m.Density(); ok {
			props["density"] = d
			if scale != nil {
				props["class"] = scale.Class(d)
				props["fill"] = scale.Color(d)
			}
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         m.ID,
			Geometry:   f.Geometry,
			Properties: props,
		})
	}
	return fc
}

// EncodeChoropleth writes the classified FeatureCollection as GeoJSON.
func EncodeChoropleth(w io.Writer, features []Feature, scale *choropleth.QuantileScale) error {
	if err := json.NewEncoder(w).Encode(Choropleth(features, scale)); err != nil {
		return eris.Wrap(err, "geodata: encode choropleth")
	}
	return nil
}
