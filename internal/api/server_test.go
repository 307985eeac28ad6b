package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/treedensity/treedensity-cli/internal/choropleth"
	"github.com/treedensity/treedensity-cli/internal/dataset"
	"github.com/treedensity/treedensity-cli/internal/density"
	"github.com/treedensity/treedensity-cli/internal/geodata"
	"github.com/treedensity/treedensity-cli/internal/model"
)

func testDataset() *dataset.Dataset {
	records := []model.Municipality{
		{ID: "a", Name: "A", TreeCount: 100, AreaKm2: 10},
		{ID: "b", Name: "B", TreeCount: 300, AreaKm2: 10},
		{ID: "c", Name: "C", TreeCount: 200, AreaKm2: 10},
		{ID: "lake", Name: "Lake", TreeCount: 0, AreaKm2: 0},
	}
	features := make([]geodata.Feature, len(records))
	for i, m := range records {
		features[i] = geodata.Feature{
			Municipality: m,
			Geometry:     geom.NewPointFlat(geom.XY, []float64{6.6 + float64(i)/100, 46.5}),
		}
	}
	return &dataset.Dataset{Features: features, Records: records, RunID: "run-1"}
}

func newTestServer(t *testing.T, ds *dataset.Dataset, policy density.AreaPolicy) *httptest.Server {
	t.Helper()
	var scale *choropleth.QuantileScale
	if values := density.Densities(ds.Records); len(values) > 0 {
		s, err := choropleth.NewGreensScale(values, 3)
		require.NoError(t, err)
		scale = s
	}
	srv := httptest.NewServer(NewServer(ds, density.New(policy), scale, Options{TopN: 2}).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testDataset(), density.PolicyExclude)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestMunicipalities(t *testing.T) {
	srv := newTestServer(t, testDataset(), density.PolicyExclude)

	var body []map[string]any
	resp := getJSON(t, srv.URL+"/municipalities", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body, 4)
	assert.Equal(t, "a", body[0]["id"])
	assert.InDelta(t, 10.0, body[0]["density"], 1e-9)
	assert.Nil(t, body[3]["density"])
}

func TestRankingsMax(t *testing.T) {
	srv := newTestServer(t, testDataset(), density.PolicyExclude)

	var best model.Ranked
	resp := getJSON(t, srv.URL+"/rankings/max", &best)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "b", best.Municipality.ID)
	assert.Equal(t, 1, best.Rank)
	assert.InDelta(t, 30.0, best.Density, 1e-9)
}

func TestRankingsMax_Empty(t *testing.T) {
	srv := newTestServer(t, &dataset.Dataset{}, density.PolicyExclude)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/rankings/max", &body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestRankingsMax_RejectPolicy(t *testing.T) {
	srv := newTestServer(t, testDataset(), density.PolicyReject)

	resp := getJSON(t, srv.URL+"/rankings/max", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRankingsTop(t *testing.T) {
	srv := newTestServer(t, testDataset(), density.PolicyExclude)

	tests := []struct {
		query   string
		wantIDs []string
	}{
		{"", []string{"b", "c"}},
		{"?n=1", []string{"b"}},
		{"?n=3", []string{"b", "c", "a"}},
		{"?n=50", []string{"b", "c", "a"}},
		{"?n=0", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var top []model.Ranked
			resp := getJSON(t, srv.URL+"/rankings/top"+tt.query, &top)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			ids := make([]string, len(top))
			for i, r := range top {
				ids[i] = r.Municipality.ID
				assert.Equal(t, i+1, r.Rank)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestRankingsTop_BadN(t *testing.T) {
	srv := newTestServer(t, testDataset(), density.PolicyExclude)

	for _, q := range []string{"?n=abc", "?n=-1", "?n=1.5"} {
		var body map[string]string
		resp := getJSON(t, srv.URL+"/rankings/top"+q, &body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		assert.NotEmpty(t, body["error"], q)
	}
}

func TestSummary(t *testing.T) {
	srv := newTestServer(t, testDataset(), density.PolicyExclude)

	var sum density.Summary
	resp := getJSON(t, srv.URL+"/summary", &sum)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, 1, sum.Excluded)
	assert.InDelta(t, 20.0, sum.MedianDensity, 1e-9)

	empty := newTestServer(t, &dataset.Dataset{}, density.PolicyExclude)
	resp = getJSON(t, empty.URL+"/summary", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestChoropleth(t *testing.T) {
	srv := newTestServer(t, testDataset(), density.PolicyExclude)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	resp := getJSON(t, srv.URL+"/choropleth.geojson", &fc)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 4)

	assert.InDelta(t, 0.0, fc.Features[0].Properties["class"], 1e-9)
	assert.InDelta(t, 2.0, fc.Features[1].Properties["class"], 1e-9)
	assert.Equal(t, "#31a354", fc.Features[1].Properties["fill"])
	assert.InDelta(t, -1.0, fc.Features[3].Properties["class"], 1e-9)
	assert.Nil(t, fc.Features[3].Properties["density"])
}

func TestClasses(t *testing.T) {
	srv := newTestServer(t, testDataset(), density.PolicyExclude)

	var breaks []choropleth.Break
	resp := getJSON(t, srv.URL+"/classes", &breaks)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, breaks, 3)
	assert.InDelta(t, 10.0, breaks[0].From, 1e-9)
	assert.InDelta(t, 30.0, breaks[2].To, 1e-9)

	empty := newTestServer(t, &dataset.Dataset{}, density.PolicyExclude)
	var none []choropleth.Break
	resp = getJSON(t, empty.URL+"/classes", &none)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, none)
}

func TestCORS(t *testing.T) {
	ds := testDataset()
	srv := httptest.NewServer(NewServer(ds, density.New(""), nil, Options{AllowedOrigins: []string{"https://map.example.org"}}).Routes())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://map.example.org")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "https://map.example.org", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://elsewhere.example.org")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t, testDataset(), density.PolicyExclude)
	resp := getJSON(t, srv.URL+"/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
