// Package geodata reads and writes the municipality datasets.
package geodata

import (
	"bytes"
	"encoding/json"
	"io"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/treedensity/treedensity-cli/internal/model"
)

// Feature pairs a municipality record with its boundary.
type Feature struct {
	Municipality model.Municipality
	Geometry     geom.T
}

type rawCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

type rawFeature struct {
	ID         any             `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// decodeCollection splits a FeatureCollection into features with their
// properties decoded as json.Number and geometry decoded by go-geom.
func decodeCollection(r io.Reader) ([]rawFeature, []geom.T, error) {
	var fc rawCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, nil, eris.Wrap(err, "geodata: decode feature collection")
	}
	if fc.Type != "FeatureCollection" {
		return nil, nil, eris.Errorf("geodata: expected FeatureCollection, got %q", fc.Type)
	}

	feats := make([]rawFeature, len(fc.Features))
	geoms := make([]geom.T, len(fc.Features))
	for i, raw := range fc.Features {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&feats[i]); err != nil {
			return nil, nil, eris.Wrapf(err, "geodata: decode feature %d", i)
		}
		g := feats[i].Geometry
		if len(g) == 0 || string(g) == "null" {
			continue
		}
		if err := geojson.Unmarshal(g, &geoms[i]); err != nil {
			return nil, nil, eris.Wrapf(err, "geodata: decode geometry of feature %d", i)
		}
	}
	return feats, geoms, nil
}

// featureID prefers the id property and falls back to the feature id.
func featureID(f rawFeature) (string, bool) {
	if v, ok := f.Properties["id"]; ok {
		if id, ok := idString(v); ok {
			return id, true
		}
	}
	return idString(f.ID)
}

// DecodeMunicipalities reads the tree-count FeatureCollection. Every feature
// needs id, name, n_trees and area_km2 properties.
func DecodeMunicipalities(r io.Reader) ([]Feature, error) {
	raws, geoms, err := decodeCollection(r)
	if err != nil {
		return nil, err
	}

	out := make([]Feature, 0, len(raws))
	seen := make(map[string]int, len(raws))
	for i, f := range raws {
		id, ok := featureID(f)
		if !ok {
			return nil, eris.Wrapf(ErrMissingProperty, "geodata: feature %d: id", i)
		}
		if prev, dup := seen[id]; dup {
			return nil, eris.Errorf("geodata: feature %d: duplicate id %q (first at %d)", i, id, prev)
		}
		seen[id] = i

		name, err := stringProp(f.Properties, "name")
		if err != nil {
			return nil, eris.Wrapf(err, "geodata: feature %d", i)
		}
		trees, err := countProp(f.Properties, "n_trees")
		if err != nil {
			return nil, eris.Wrapf(err, "geodata: feature %d", i)
		}
		area, err := floatProp(f.Properties, "area_km2")
		if err != nil {
			return nil, eris.Wrapf(err, "geodata: feature %d", i)
		}

		out = append(out, Feature{
			Municipality: model.Municipality{ID: id, Name: name, TreeCount: trees, AreaKm2: area},
			Geometry:     geoms[i],
		})
	}
	return out, nil
}

// DecodeCentres reads the centres FeatureCollection, keyed by municipality id.
// Point geometries are used as-is; other geometries contribute their centroid.
// Centres with an empty geometry are skipped. Duplicate ids are rejected.
func DecodeCentres(r io.Reader) (map[string]model.Centre, error) {
	raws, geoms, err := decodeCollection(r)
	if err != nil {
		return nil, err
	}

	out := make(map[string]model.Centre, len(raws))
	seen := make(map[string]int, len(raws))
	for i, f := range raws {
		id, ok := featureID(f)
		if !ok {
			return nil, eris.Wrapf(ErrMissingProperty, "geodata: centre %d: id", i)
		}
		if prev, dup := seen[id]; dup {
			return nil, eris.Errorf("geodata: centre %d: duplicate id %q (first at %d)", i, id, prev)
		}
		seen[id] = i
		if geoms[i] == nil {
			return nil, eris.Errorf("geodata: centre %d (%s): no geometry", i, id)
		}
		if geoms[i].Empty() {
			zap.L().Warn("geodata: skipping centre with empty geometry",
				zap.Int("feature", i),
				zap.String("id", id),
			)
			continue
		}
		c, err := centreOf(geoms[i])
		if err != nil {
			return nil, eris.Wrapf(err, "geodata: centre %d (%s)", i, id)
		}
		c.ID = id
		out[id] = c
	}
	return out, nil
}

func centreOf(g geom.T) (model.Centre, error) {
	if g.Empty() {
		return model.Centre{}, eris.New("empty geometry")
	}
	if p, ok := g.(*geom.Point); ok {
		return model.Centre{Lon: p.X(), Lat: p.Y()}, nil
	}
	c, err := xy.Centroid(g)
	if err != nil {
		return model.Centre{}, eris.Wrap(err, "centroid")
	}
	return model.Centre{Lon: c.X(), Lat: c.Y()}, nil
}

// Join attaches centres to the features sharing their id. It returns new
// features and the ids of centres that matched no municipality, in sorted order.
func Join(features []Feature, centres map[string]model.Centre) ([]Feature, []string) {
	out := make([]Feature, len(features))
	used := make(map[string]bool, len(centres))
	for i, f := range features {
		out[i] = f
		if c, ok := centres[f.Municipality.ID]; ok {
			out[i].Municipality.Centre = &c
			used[f.Municipality.ID] = true
		}
	}

	var orphans []string
	for id := range centres {
		if !used[id] {
			orphans = append(orphans, id)
		}
	}
	slices.Sort(orphans)
	return out, orphans
}

// Records extracts the municipality records of features.
func Records(features []Feature) []model.Municipality {
	out := make([]model.Municipality, len(features))
	for i, f := range features {
		out[i] = f.Municipality
	}
	return out
}
