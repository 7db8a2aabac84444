package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listBody struct {
	Items []Record `json:"items"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Details any    `json:"details"`
	} `json:"error"`
}

func newTestRouter(t *testing.T, userID string, guest bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("userId", userID)
			c.Set("isGuest", guest)
		}
		c.Next()
	})
	NewHandler(newTestService(t)).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHandlerChildrenFilter(t *testing.T) {
	r := newTestRouter(t, "guest:g1", true)

	resp := do(r, http.MethodGet, "/api/v1/insights/root-1/children?dim.Geography=US", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body listBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, []string{"us", "us-ent"}, ids(body.Items))

	resp = do(r, http.MethodGet, "/api/v1/insights/root-1/children?dim.Geography=all", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Len(t, body.Items, len(testChildren()))

	resp = do(r, http.MethodGet, "/api/v1/insights/root-1/children?dim.Geography=Mars", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Empty(t, body.Items)
}

func TestHandlerChildrenUnknownDimension(t *testing.T) {
	r := newTestRouter(t, "guest:g1", true)
	resp := do(r, http.MethodGet, "/api/v1/insights/root-1/children?dim.Device=Mobile", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error.Code)
	details, ok := body.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Device", details["dimension"])
}

func TestHandlerGetIncludesChildIDs(t *testing.T) {
	r := newTestRouter(t, "guest:g1", true)
	resp := do(r, http.MethodGet, "/api/v1/insights/root-1", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, true, payload["isRootInsight"])
	assert.Len(t, payload["childInsightIds"], len(testChildren()))

	resp = do(r, http.MethodGet, "/api/v1/insights/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandlerSearchAndLibrary(t *testing.T) {
	r := newTestRouter(t, "guest:g1", true)

	resp := do(r, http.MethodGet, "/api/v1/insights/search", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var body listBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, []string{"root-1"}, ids(body.Items))

	resp = do(r, http.MethodGet, "/api/v1/insights?limit=2&offset=1", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, []string{"us", "uk"}, ids(body.Items))

	resp = do(r, http.MethodGet, "/api/v1/insights?confidence=extreme", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(r, http.MethodGet, "/api/v1/insights/highlights", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHandlerWritesRequireUser(t *testing.T) {
	r := newTestRouter(t, "guest:g1", true)
	resp := do(r, http.MethodPost, "/api/v1/insights/approval", ApprovalInput{IDs: []string{"us"}, Status: ApprovalApproved})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "login_required", body.Error.Code)
}

func TestHandlerCreateAndEdit(t *testing.T) {
	r := newTestRouter(t, "user-1", false)

	resp := do(r, http.MethodPost, "/api/v1/insights", map[string]any{
		"statement":  "Churn rose in Q4",
		"team":       "Revenue",
		"dataPoints": []map[string]string{{"value": "3.1% vs 2.7%"}},
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created Record
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, 1, created.CurrentVersion)

	resp = do(r, http.MethodPatch, "/api/v1/insights/"+created.ID, EditInput{Statement: "Churn rose 15% in Q4", ChangeDescription: "added figure"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var edited Record
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &edited))
	assert.Equal(t, 2, edited.CurrentVersion)
	assert.Len(t, edited.VersionHistory, 2)

	resp = do(r, http.MethodPost, "/api/v1/insights", map[string]any{"statement": "no team", "dataPoints": []map[string]string{{"value": "x"}}})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error.Code)
}

func TestHandlerCompliance(t *testing.T) {
	r := newTestRouter(t, "user-1", false)
	resp := do(r, http.MethodPatch, "/api/v1/insights/root-1/compliance", ComplianceInput{SharingLevel: SharingPublic})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var rec Record
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rec))
	assert.Equal(t, SharingPublic, rec.SharingLevel)
}

// staleRepo loses every compare-and-swap, as if another editor always won.
type staleRepo struct {
	*MemoryRepo
}

func (staleRepo) Update(context.Context, Record, int) error { return ErrVersionConflict }

func TestHandlerEditConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestService(t)
	svc.Repo = staleRepo{MemoryRepo: svc.Repo.(*MemoryRepo)}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))

	resp := do(r, http.MethodPatch, "/api/v1/insights/root-1", EditInput{Statement: "edited", ChangeDescription: "d"})
	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
	var body errorBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "version_conflict", body.Error.Code)
}

type recordedSearch struct{ userID, query string }

type fakeSearchRecorder struct {
	got []recordedSearch
	err error
}

func (f *fakeSearchRecorder) RecordSearch(_ context.Context, userID, query string) error {
	f.got = append(f.got, recordedSearch{userID, query})
	return f.err
}

func newSearchRouter(t *testing.T, rec SearchRecorder, userID string, guest bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", guest)
		c.Next()
	})
	h := NewHandler(newTestService(t))
	h.Searches = rec
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestHandlerSearchRecordsSignedInQueries(t *testing.T) {
	rec := &fakeSearchRecorder{}
	r := newSearchRouter(t, rec, "user-1", false)

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/insights/search?q=satisfaction", nil).Code)
	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/insights/search", nil).Code)
	assert.Equal(t, []recordedSearch{{"user-1", "satisfaction"}}, rec.got)

	guest := &fakeSearchRecorder{}
	r = newSearchRouter(t, guest, "guest:g1", true)
	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/insights/search?q=satisfaction", nil).Code)
	assert.Empty(t, guest.got)
}

func TestHandlerSearchIgnoresHistoryFailure(t *testing.T) {
	rec := &fakeSearchRecorder{err: errors.New("history unavailable")}
	r := newSearchRouter(t, rec, "user-1", false)

	resp := do(r, http.MethodGet, "/api/v1/insights/search?q=satisfaction", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var body listBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, []string{"root-1"}, ids(body.Items))
	assert.Len(t, rec.got, 1)
}
