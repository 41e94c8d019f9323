package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"PimSync/internal/database/model/synclog"
	"PimSync/internal/sync"
	"PimSync/internal/sync/models"
	"PimSync/pkg/logging"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceMock struct {
	run         models.SyncRun
	report      models.ConnectionReport
	entries     []*synclog.Entry
	cleanupErr  error
	catalogID   string
	syncType    models.SyncType
	days        int
	limit       int
	companyID   int
	clearAction string
}

func (m *serviceMock) SyncCatalog(ctx context.Context, catalogID string, syncType models.SyncType, days int) models.SyncRun {
	m.catalogID, m.syncType, m.days = catalogID, syncType, days
	return m.run
}

func (m *serviceMock) TestConnections(ctx context.Context) models.ConnectionReport {
	return m.report
}

func (m *serviceMock) LogEntries(ctx context.Context, companyID, limit int) ([]*synclog.Entry, error) {
	m.companyID, m.limit = companyID, limit
	return m.entries, nil
}

func (m *serviceMock) ClearLogs(ctx context.Context, companyID int, action string) (int64, error) {
	m.companyID, m.clearAction = companyID, action
	return 3, nil
}

func (m *serviceMock) CleanupMappings(ctx context.Context, catalogID string) (int64, int64, error) {
	m.catalogID = catalogID
	if m.cleanupErr != nil {
		return 0, 0, m.cleanupErr
	}
	return 4, 5, nil
}

const testToken = "s3cret"

func serve(t *testing.T, mock *serviceMock, method, target string) (*httptest.ResponseRecorder, Response) {
	return serveWithHeaders(t, testToken, mock, method, target, map[string]string{"Authorization": "Bearer " + testToken})
}

func serveWithHeaders(t *testing.T, token string, mock *serviceMock, method, target string, headers map[string]string) (*httptest.ResponseRecorder, Response) {
	router := httprouter.New()
	NewHandler(context.Background(), mock, token, logging.Discard()).Register(router)

	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestVersion(t *testing.T) {
	rec, resp := serve(t, &serviceMock{}, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestSyncFull(t *testing.T) {
	mock := &serviceMock{run: models.SyncRun{Status: models.StatusCompleted}}

	rec, resp := serve(t, mock, http.MethodPost, "/pim_sync/sync_full?catalog_id=21")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, models.SyncFull, mock.syncType)
	assert.Equal(t, "21", mock.catalogID)
}

func TestSyncDeltaDays(t *testing.T) {
	mock := &serviceMock{run: models.SyncRun{Status: models.StatusCompleted}}

	rec, _ := serve(t, mock, http.MethodPost, "/pim_sync/sync_delta?days=7")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SyncDelta, mock.syncType)
	assert.Equal(t, 7, mock.days)

	rec, _ = serve(t, mock, http.MethodPost, "/pim_sync/sync_delta")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, mock.days)

	for _, days := range []string{"0", "366", "week"} {
		rec, resp := serve(t, &serviceMock{}, http.MethodPost, "/pim_sync/sync_delta?days="+days)
		assert.Equal(t, http.StatusBadRequest, rec.Code, days)
		assert.False(t, resp.Success)
	}
}

func TestSyncStatusCodes(t *testing.T) {
	mock := &serviceMock{run: models.SyncRun{Status: models.StatusFailed, Error: sync.ErrAlreadyRunning.Error()}}
	rec, resp := serve(t, mock, http.MethodPost, "/pim_sync/sync_full")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "sync already running", resp.Message)

	mock = &serviceMock{run: models.SyncRun{Status: models.StatusFailed, Error: "failed PIM authentication"}}
	rec, resp = serve(t, mock, http.MethodPost, "/pim_sync/sync_full")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
}

func TestTestConnection(t *testing.T) {
	mock := &serviceMock{report: models.ConnectionReport{
		PIM:        models.ConnectionStatus{Success: true},
		Storefront: models.ConnectionStatus{Error: "HTTP 401"},
	}}

	rec, resp := serve(t, mock, http.MethodPost, "/pim_sync/test_connection")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, resp.Success)
}

func TestLogs(t *testing.T) {
	mock := &serviceMock{}

	rec, resp := serve(t, mock, http.MethodGet, "/pim_sync/logs?company_id=2&limit=1000")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, []interface{}{}, resp.Data)
	assert.Equal(t, 2, mock.companyID)
	assert.Equal(t, maxLogLimit, mock.limit)

	rec, _ = serve(t, mock, http.MethodGet, "/pim_sync/logs?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearLogs(t *testing.T) {
	mock := &serviceMock{}

	rec, resp := serve(t, mock, http.MethodPost, "/pim_sync/clear_logs?action=clear_failed&company_id=1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"deleted": float64(3)}, resp.Data)
	assert.Equal(t, sync.ClearFailed, mock.clearAction)

	rec, _ = serve(t, mock, http.MethodPost, "/pim_sync/clear_logs?action=drop")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCleanupMappings(t *testing.T) {
	rec, resp := serve(t, &serviceMock{}, http.MethodPost, "/pim_sync/cleanup_mappings")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"categories": float64(4), "products": float64(5)}, resp.Data)

	rec, _ = serve(t, &serviceMock{cleanupErr: sync.ErrAlreadyRunning}, http.MethodPost, "/pim_sync/cleanup_mappings")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	cases := []struct {
		name    string
		token   string
		headers map[string]string
		code    int
	}{
		{"no credentials", testToken, nil, http.StatusUnauthorized},
		{"wrong bearer", testToken, map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"basic scheme", testToken, map[string]string{"Authorization": "Basic " + testToken}, http.StatusUnauthorized},
		{"empty server token", "", map[string]string{"Authorization": "Bearer "}, http.StatusUnauthorized},
		{"bearer", testToken, map[string]string{"Authorization": "Bearer " + testToken}, http.StatusOK},
		{"x-auth-token", testToken, map[string]string{"X-Auth-Token": testToken}, http.StatusOK},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mock := &serviceMock{run: models.SyncRun{Status: models.StatusCompleted}}
			rec, resp := serveWithHeaders(t, c.token, mock, http.MethodPost, "/pim_sync/sync_full?catalog_id=21", c.headers)
			assert.Equal(t, c.code, rec.Code)
			if c.code == http.StatusUnauthorized {
				assert.False(t, resp.Success)
				assert.Empty(t, mock.syncType, "sync must not start without credentials")
			}
		})
	}
}

func TestVersionIsPublic(t *testing.T) {
	rec, _ := serveWithHeaders(t, testToken, &serviceMock{}, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
