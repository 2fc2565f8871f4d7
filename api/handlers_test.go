package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/allocation-engine/api"
	"github.com/warp/allocation-engine/engine"
	"github.com/warp/allocation-engine/engine/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler := api.NewHandler(store.NewMemory(), engine.New(nil), nil)
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func postRun(t *testing.T, srv *httptest.Server, req api.RunRequest) *http.Response {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/runs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestCreateRun_ReturnsAllocationTable(t *testing.T) {
	srv := newTestServer(t)

	resp := postRun(t, srv, api.RunRequest{
		DailyUsage: []map[string]string{
			{"Equipment": "A1", "Job": "2021-005 Main St", "Hours": "3"},
			{"Equipment": "A1", "Job": "2024-010 West Yard", "Hours": "1"},
		},
		Catalog: []map[string]string{
			{"Asset": "A1", "Monthly Rate": "100", "Description": "Excavator"},
		},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var run api.RunDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))

	assert.NotEmpty(t, run.ID)
	require.Len(t, run.Rows, 2)
	assert.InDelta(t, 0.75, run.Rows[0].Units, 1e-9)
	assert.InDelta(t, 0.25, run.Rows[1].Units, 1e-9)
	assert.InDelta(t, 75.0, run.Rows[0].Amount, 1e-9)
	assert.Equal(t, "Excavator", run.Rows[0].EquipmentDescription)
	assert.Equal(t, "9000 100M", run.Rows[0].CostCode)
	assert.Equal(t, "WT", run.Rows[1].Region)
	assert.Equal(t, 2, run.Summary.RowsProcessed)
}

func TestCreateRun_AppliesRevisions(t *testing.T) {
	srv := newTestServer(t)

	units := 0.7
	resp := postRun(t, srv, api.RunRequest{
		DailyUsage: []map[string]string{
			{"Equipment": "A1", "Job": "2023-020 Main St", "Hours": "4"},
		},
		Revisions: []api.RevisionDTO{
			{JobNumber: "2023-020", AssetID: "A1", RevisedUnits: &units},
		},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var run api.RunDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	require.Len(t, run.Rows, 1)
	assert.InDelta(t, 0.7, run.Rows[0].Units, 1e-9)
	require.NotNil(t, run.Rows[0].RevisionUnits)
}

func TestCreateRun_MalformedSourceIsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	resp := postRun(t, srv, api.RunRequest{
		Timecards: []map[string]string{{"Foo": "bar"}},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp api.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Contains(t, errResp.Error, "timecard")
}

func TestCreateRun_InvalidJSONIsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/runs", "application/json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRun_RoundTrip(t *testing.T) {
	srv := newTestServer(t)

	resp := postRun(t, srv, api.RunRequest{
		DailyUsage: []map[string]string{
			{"Equipment": "A1", "Job": "2023-001 Main St", "Hours": "2"},
		},
	})
	var created api.RunDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	getResp, err := http.Get(srv.URL + "/api/runs/" + created.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var fetched api.RunDTO
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Rows, fetched.Rows)
}

func TestGetRun_UnknownIDIsNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/runs/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRuns(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 2; i++ {
		resp := postRun(t, srv, api.RunRequest{
			DailyUsage: []map[string]string{
				{"Equipment": "A1", "Job": "2023-001 Main St", "Hours": "2"},
			},
		})
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/api/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var headers []api.RunHeaderDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&headers))
	assert.Len(t, headers, 2)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
