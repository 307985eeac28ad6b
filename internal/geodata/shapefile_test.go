package geodata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

type shpRow struct {
	id, name string
	trees    any
	area     float64
}

func squareRing(x, y float64) []shp.Point {
	return []shp.Point{{X: x, Y: y}, {X: x, Y: y + 0.1}, {X: x + 0.1, Y: y + 0.1}, {X: x + 0.1, Y: y}, {X: x, Y: y}}
}

// writeShapefile writes a polygon shapefile with one square per row and the
// given DBF attributes.
func writeShapefile(t *testing.T, fields []shp.Field, rows []shpRow) string {
	t.Helper()
	base := filepath.Join(t.TempDir(), "communes")
	w, err := shp.Create(base+".shp", shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields(fields))
	for i, r := range rows {
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{squareRing(6.0+float64(i), 46.0)}))
		n := int(w.Write(&poly))
		values := []any{r.id, r.name, r.trees, r.area}
		for j := range fields {
			require.NoError(t, w.WriteAttribute(n, j, values[j]))
		}
	}
	w.Close()

	// go-shp v0.1.1 creates the table as "<base>dbf" while the reader opens
	// "<base>.dbf".
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	return base + ".shp"
}

func communeFields() []shp.Field {
	return []shp.Field{
		shp.StringField("ID", 10),
		shp.StringField("NAME", 40),
		shp.NumberField("N_TREES", 20),
		shp.FloatField("AREA_KM2", 12, 3),
	}
}

func TestReadShapefile(t *testing.T) {
	path := writeShapefile(t, communeFields(), []shpRow{
		{"5586", "Lausanne", 12000, 41.37},
		{"5591", "Renens", 1500, 2.96},
	})

	features, err := ReadShapefile(path)
	require.NoError(t, err)
	require.Len(t, features, 2)

	m := features[0].Municipality
	assert.Equal(t, "5586", m.ID)
	assert.Equal(t, "Lausanne", m.Name)
	assert.Equal(t, int64(12000), m.TreeCount)
	assert.InDelta(t, 41.37, m.AreaKm2, 1e-6)

	m = features[1].Municipality
	assert.Equal(t, "5591", m.ID)
	assert.Equal(t, "Renens", m.Name)
	assert.Equal(t, int64(1500), m.TreeCount)
	assert.InDelta(t, 2.96, m.AreaKm2, 1e-6)

	for _, f := range features {
		mp, ok := f.Geometry.(*geom.MultiPolygon)
		require.True(t, ok)
		assert.Equal(t, 1, mp.NumPolygons())
		assert.Equal(t, 4326, mp.SRID())
	}
	bounds := features[1].Geometry.Bounds()
	assert.InDelta(t, 7.0, bounds.Min(0), 1e-9)
	assert.InDelta(t, 46.1, bounds.Max(1), 1e-9)
}

func TestReadShapefile_InvalidTrees(t *testing.T) {
	for _, trees := range []any{"-3", "2.5", "9223372036854775808"} {
		path := writeShapefile(t, communeFields(), []shpRow{{"1", "A", trees, 1}})
		_, err := ReadShapefile(path)
		require.Error(t, err, "n_trees=%v", trees)
		assert.True(t, errors.Is(err, ErrInvalidProperty))
	}
}

func TestReadShapefile_MissingFields(t *testing.T) {
	path := writeShapefile(t, communeFields()[:2], []shpRow{{"1", "A", 0, 0}})

	_, err := ReadShapefile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingProperty))
}

func TestReadShapefile_NotFound(t *testing.T) {
	_, err := ReadShapefile(filepath.Join(t.TempDir(), "missing.shp"))
	assert.Error(t, err)
}

func TestShapeToGeom_NonPolygon(t *testing.T) {
	assert.Nil(t, shapeToGeom(&shp.Point{X: 1, Y: 2}))
	assert.Nil(t, shapeToGeom(nil))
	assert.Nil(t, shapeToGeom(&shp.Polygon{}))
}

func TestReadShapefile_NULPadding(t *testing.T) {
	path := writeShapefile(t, communeFields(), []shpRow{{"42", "Pully", 7, 5.8}})

	features, err := ReadShapefile(path)
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "42", features[0].Municipality.ID)
	assert.Equal(t, "Pully", features[0].Municipality.Name)
	assert.Equal(t, int64(7), features[0].Municipality.TreeCount)
}
