package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genshorts/genshorts/internal/core/services"
	"github.com/genshorts/genshorts/internal/httpapi"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *services.JobStore, *services.MarkStore) {
	store := services.NewJobStore()
	marks, err := services.NewMarkStore(filepath.Join(t.TempDir(), "marks.json"))
	require.NoError(t, err)

	router := httpapi.NewRouter(httpapi.Deps{
		Store:  store,
		Marks:  marks,
		Assets: t.TempDir(),
		Output: t.TempDir(),
		Cache:  t.TempDir(),
	})
	return router, store, marks
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		data, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGenerateAcceptsValidRequest(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(router, http.MethodPost, "/api/generate", map[string]interface{}{
		"topic":            "coffee",
		"duration_seconds": 30,
		"tone":             "informative",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["job_id"])
	assert.Equal(t, "QUEUED", body["status"])
}

func TestGenerateRejectsMissingTopic(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(router, http.MethodPost, "/api/generate", map[string]interface{}{
		"topic":            "",
		"duration_seconds": 30,
		"tone":             "informative",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateRejectsDurationOutOfRange(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(router, http.MethodPost, "/api/generate", map[string]interface{}{
		"topic":            "coffee",
		"duration_seconds": 10,
		"tone":             "informative",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateRejectsInvalidTone(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(router, http.MethodPost, "/api/generate", map[string]interface{}{
		"topic":            "coffee",
		"duration_seconds": 30,
		"tone":             "sarcastic",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateRejectsMalformedJSON(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusReturnsNotFoundForUnknownJob(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(router, http.MethodGet, "/api/status/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusReturnsCreatedJob(t *testing.T) {
	router, store, _ := newTestRouter(t)
	job := store.Create("coffee", 30, "informative", false)

	rec := doJSON(router, http.MethodGet, "/api/status/"+job.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, job.ID, body["job_id"])
}

func TestJobsListsEveryCreatedJob(t *testing.T) {
	router, store, _ := newTestRouter(t)
	store.Create("a", 30, "informative", false)
	store.Create("b", 30, "informative", false)

	rec := doJSON(router, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var jobs []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	assert.Len(t, jobs, 2)
}

func TestMarkUnmarkIsMarkedRoundTrip(t *testing.T) {
	router, store, _ := newTestRouter(t)
	job := store.Create("coffee", 30, "informative", false)

	rec := doJSON(router, http.MethodGet, "/api/is-marked/"+job.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["isMarked"])

	rec = doJSON(router, http.MethodPost, "/api/mark/"+job.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(router, http.MethodGet, "/api/is-marked/"+job.ID, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["isMarked"])

	rec = doJSON(router, http.MethodPost, "/api/unmark/"+job.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(router, http.MethodGet, "/api/is-marked/"+job.ID, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["isMarked"])
}

func TestStatsReportsCountsByStatus(t *testing.T) {
	router, store, _ := newTestRouter(t)
	store.Create("a", 30, "informative", false)
	store.Create("b", 30, "informative", false)

	rec := doJSON(router, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["total"])
}

func TestAPIV1MountMirrorsAPI(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(router, http.MethodGet, "/api/v1/jobs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
