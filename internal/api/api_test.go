package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lotes-cli/internal/reproject"
	"github.com/sells-group/lotes-cli/internal/session"
)

// São Paulo centre and two neighbours in UTM 23S.
const threeLotes = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [333287.0215, 7394586.0934]},
     "properties": {"ID_LOTE": "L1", "GRAU_RISCO": 1, "NUCLEO": "A", "CUSTO": 50}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [334287.0, 7395586.0]},
     "properties": {"ID_LOTE": "L2", "GRAU_RISCO": 3, "NUCLEO": "B", "CUSTO": 200, "LOTE_APP": "SIM"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [335287.0, 7396586.0]},
     "properties": {"ID_LOTE": "L3", "GRAU_RISCO": "NA", "NUCLEO": "A"}}
  ]
}`

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	if opts.DefaultProjection == (reproject.Projection{}) {
		p, err := reproject.ParseProjection("23s")
		require.NoError(t, err)
		opts.DefaultProjection = p
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 1000
		opts.RateBurst = 1000
	}
	srv := httptest.NewServer(New(session.New(session.Options{ReprojectWorkers: 2}), opts).Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	e, ok := decode(t, data)["error"].(map[string]any)
	require.True(t, ok, string(data))
	return e["code"].(string)
}

func loadThree(t *testing.T, srv *httptest.Server) {
	t.Helper()
	resp, body := do(t, http.MethodPost, srv.URL+"/dataset?source=test", threeLotes)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, body := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestLoadDataset(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp, body := do(t, http.MethodPost, srv.URL+"/dataset?source=test", threeLotes)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	info := decode(t, body)
	assert.Equal(t, "test", info["source"])
	assert.Equal(t, "23s", info["projection"])
	assert.EqualValues(t, 3, info["features"])

	resp, body = do(t, http.MethodGet, srv.URL+"/dataset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, info["id"], decode(t, body)["id"])
}

func TestLoadDataset_ParseErrorKeepsPrevious(t *testing.T) {
	srv := newTestServer(t, Options{})
	loadThree(t, srv)

	resp, body := do(t, http.MethodPost, srv.URL+"/dataset", `{"type": "Feature"`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "parse_error", errorCode(t, body))

	resp, body = do(t, http.MethodPost, srv.URL+"/dataset", `{"type": "Topology"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "parse_error", errorCode(t, body))

	_, body = do(t, http.MethodGet, srv.URL+"/dataset", "")
	assert.EqualValues(t, 3, decode(t, body)["features"])
}

func TestLoadDataset_BadProjection(t *testing.T) {
	srv := newTestServer(t, Options{})

	for _, sel := range []string{"61s", "abc", "auto"} {
		resp, body := do(t, http.MethodPost, srv.URL+"/dataset?projection="+sel, threeLotes)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, sel)
		assert.Equal(t, "configuration_error", errorCode(t, body), sel)
	}
}

func TestLoadDataset_GeodeticProjection(t *testing.T) {
	srv := newTestServer(t, Options{})
	doc := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","geometry":{"type":"Point","coordinates":[-46.6,-23.5]},"properties":{}}]}`

	resp, body := do(t, http.MethodPost, srv.URL+"/dataset?projection=geodetic", doc)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "geodetic", decode(t, body)["projection"])

	_, body = do(t, http.MethodGet, srv.URL+"/features", "")
	assert.Contains(t, string(body), `[-46.6,-23.5]`)
}

func TestLoadDataset_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t, Options{MaxBodyBytes: 16})
	resp, body := do(t, http.MethodPost, srv.URL+"/dataset", threeLotes)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "parse_error", errorCode(t, body))
}

func TestNucleos(t *testing.T) {
	srv := newTestServer(t, Options{})

	_, body := do(t, http.MethodGet, srv.URL+"/nucleos", "")
	assert.JSONEq(t, `{"nucleos":[],"selected":"all"}`, string(body))

	loadThree(t, srv)
	_, body = do(t, http.MethodGet, srv.URL+"/nucleos", "")
	assert.JSONEq(t, `{"nucleos":["A","B"],"selected":"all"}`, string(body))
}

func TestGrades(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp, body := do(t, http.MethodPut, srv.URL+"/grades/3", `{"enabled": false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var states []struct {
		Grade   string `json:"grade"`
		Name    string `json:"name"`
		Color   string `json:"color"`
		Enabled bool   `json:"enabled"`
	}
	require.NoError(t, json.Unmarshal(body, &states))
	require.Len(t, states, 5)
	assert.Equal(t, "3", states[2].Grade)
	assert.Equal(t, "Grau 3 - Alto", states[2].Name)
	assert.False(t, states[2].Enabled)
	assert.True(t, states[0].Enabled)

	resp, body = do(t, http.MethodPut, srv.URL+"/grades/na", `{"enabled": false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &states))
	assert.False(t, states[4].Enabled)

	_, body = do(t, http.MethodGet, srv.URL+"/grades", "")
	require.NoError(t, json.Unmarshal(body, &states))
	assert.False(t, states[2].Enabled)
}

func TestGrades_Invalid(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp, body := do(t, http.MethodPut, srv.URL+"/grades/7", `{"enabled": false}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_argument", errorCode(t, body))

	resp, body = do(t, http.MethodPut, srv.URL+"/grades/1", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_body", errorCode(t, body))
}

func TestSelection(t *testing.T) {
	srv := newTestServer(t, Options{})
	loadThree(t, srv)

	resp, body := do(t, http.MethodPut, srv.URL+"/selection", `{"nucleo": "A"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"nucleo":"A"}`, string(body))

	_, body = do(t, http.MethodGet, srv.URL+"/summary", "")
	s := decode(t, body)["summary"].(map[string]any)
	assert.EqualValues(t, 2, s["total"])

	_, body = do(t, http.MethodPut, srv.URL+"/selection", `{"nucleo": ""}`)
	assert.JSONEq(t, `{"nucleo":"all"}`, string(body))

	resp, body = do(t, http.MethodPut, srv.URL+"/selection", `nope`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_body", errorCode(t, body))
}

func TestSummary_EndToEnd(t *testing.T) {
	srv := newTestServer(t, Options{})

	_, body := do(t, http.MethodGet, srv.URL+"/summary", "")
	empty := decode(t, body)
	assert.Nil(t, empty["extent"])
	assert.Nil(t, empty["summary"].(map[string]any)["max_cost"])

	loadThree(t, srv)
	_, body = do(t, http.MethodGet, srv.URL+"/summary", "")
	out := decode(t, body)
	s := out["summary"].(map[string]any)
	assert.EqualValues(t, 3, s["total"])
	assert.EqualValues(t, 1, s["non_conforming"])
	assert.EqualValues(t, 1, s["in_preservation_area"])
	assert.EqualValues(t, 250, s["total_cost"])
	assert.Equal(t, "L2", s["max_cost"].(map[string]any)["label"])
	assert.Equal(t, "L1", s["min_cost"].(map[string]any)["label"])
	assert.Len(t, out["by_grade"], 5)
	assert.Len(t, out["by_nucleo"], 2)

	extent := out["extent"].(map[string]any)
	assert.InDelta(t, -46.633309, extent["min_lng"].(float64), 1e-6)
	assert.InDelta(t, -23.55052, extent["min_lat"].(float64), 1e-6)

	do(t, http.MethodPut, srv.URL+"/grades/3", `{"enabled": false}`)
	_, body = do(t, http.MethodGet, srv.URL+"/summary", "")
	s = decode(t, body)["summary"].(map[string]any)
	assert.EqualValues(t, 2, s["total"])
	assert.EqualValues(t, 50, s["total_cost"])
}

func TestFeatures(t *testing.T) {
	srv := newTestServer(t, Options{})
	loadThree(t, srv)
	do(t, http.MethodPut, srv.URL+"/selection", `{"nucleo": "B"}`)

	resp, body := do(t, http.MethodGet, srv.URL+"/features", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))

	doc := decode(t, body)
	assert.Equal(t, "FeatureCollection", doc["type"])
	assert.NotContains(t, doc, "crs")
	features := doc["features"].([]any)
	require.Len(t, features, 1)
	props := features[0].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "L2", props["ID_LOTE"])
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, Options{})
	loadThree(t, srv)
	do(t, http.MethodPut, srv.URL+"/selection", `{"nucleo": "A"}`)

	resp, body := do(t, http.MethodGet, srv.URL+"/export/xlsx", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="lotes-A.xlsx"`, resp.Header.Get("Content-Disposition"))
	f, err := xlsx.OpenBinary(body)
	require.NoError(t, err)
	assert.Len(t, f.Sheet["Lotes"].Rows, 3)

	resp, _ = do(t, http.MethodGet, srv.URL+"/export/geojson", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="lotes-A.geojson"`, resp.Header.Get("Content-Disposition"))

	resp, body = do(t, http.MethodGet, srv.URL+"/export/kml", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_format", errorCode(t, body))
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, Options{RateLimit: 0.001, RateBurst: 1})

	resp, _ := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", errorCode(t, body))
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, Options{CORSOrigins: []string{"https://mapa.example.org"}})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/summary", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://mapa.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "https://mapa.example.org", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Jardim-São-Luís", sanitizeFilename("Jardim São Luís"))
	assert.Equal(t, "a_b_c_", sanitizeFilename(`a/b\c"`))
}
