package verify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newVerifyServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()
	h := NewHandler(f.svc, zap.NewNop())
	r := chi.NewRouter()
	RegisterRoutes(r, h, func(next http.Handler) http.Handler { return next })
	r.Mount("/reports", SetupReportRoutes(h))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func TestVerifyHandler_StatusCodes(t *testing.T) {
	f := newFixture(t, 5, hydrantAt("near", 10), hydrantAt("far", 60))
	srv := newVerifyServer(t, f)

	body := map[string]any{
		"userId": "u1", "lat": timesSquare.Lat, "lng": timesSquare.Lng,
		"type": "hydrant", "conditionRating": 8, "functional": true,
	}
	resp := post(t, srv.URL+"/verify", body)
	var accepted Outcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, accepted.Allowed)
	assert.NotEmpty(t, accepted.ReportID)

	body["assetId"] = "far"
	resp = post(t, srv.URL+"/verify", body)
	var rejected Outcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rejected))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, rejected.Allowed)
	assert.Equal(t, ReasonTooFar, rejected.Reason)

	for name, tc := range map[string]struct {
		body   map[string]any
		status int
	}{
		"unknown type":   {map[string]any{"userId": "u", "lat": 1.0, "lng": 1.0, "type": "bench", "conditionRating": 5}, http.StatusBadRequest},
		"rating too low": {map[string]any{"userId": "u", "lat": 1.0, "lng": 1.0, "type": "hydrant", "conditionRating": 0}, http.StatusBadRequest},
		"no user":        {map[string]any{"lat": 1.0, "lng": 1.0, "type": "hydrant", "conditionRating": 5}, http.StatusBadRequest},
		"no coordinate":  {map[string]any{"userId": "u", "type": "hydrant", "conditionRating": 5}, http.StatusBadRequest},
		"lat only":       {map[string]any{"userId": "u", "lat": 40.758, "type": "hydrant", "conditionRating": 5}, http.StatusBadRequest},
		"nothing nearby": {map[string]any{"userId": "u", "lat": 1.0, "lng": 1.0, "type": "hydrant", "conditionRating": 5}, http.StatusNotFound},
	} {
		resp := post(t, srv.URL+"/verify", tc.body)
		resp.Body.Close()
		assert.Equal(t, tc.status, resp.StatusCode, name)
	}
}

func TestReportHandlers(t *testing.T) {
	f := newFixture(t, 5, hydrantAt("near", 10))
	srv := newVerifyServer(t, f)

	resp := post(t, srv.URL+"/verify", map[string]any{
		"userId": "u1", "lat": timesSquare.Lat, "lng": timesSquare.Lng,
		"type": "hydrant", "conditionRating": 8,
	})
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/reports/user/u1")
	require.NoError(t, err)
	var ur userReportsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ur))
	resp.Body.Close()
	assert.Equal(t, 1, ur.TotalReports)

	resp, err = http.Get(srv.URL + "/reports/recent")
	require.NoError(t, err)
	var recent []Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&recent))
	resp.Body.Close()
	assert.Len(t, recent, 1)

	for _, q := range []string{"limit=0", "limit=abc", "limit=500"} {
		resp, err = http.Get(srv.URL + "/reports/recent?" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}

	resp, err = http.Get(srv.URL + "/reports/nearby?lat=40.758&lng=-73.9855&radius_km=0.5")
	require.NoError(t, err)
	var nr nearbyReportsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&nr))
	resp.Body.Close()
	assert.Equal(t, 1, nr.TotalReports)
}
