package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/finance"
	"github.com/powerquip/erp-backend/internal/report"
	"github.com/powerquip/erp-backend/internal/repository"
	"github.com/powerquip/erp-backend/internal/store"
	"github.com/powerquip/erp-backend/pkg/utils"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := store.NewMemoryStore()
	logger := zap.NewNop()
	clock := utils.SystemClock{}
	ids := utils.UUIDGen{}

	seq := repository.NewSequenceAllocator(st, logger)
	sheetRepo := repository.NewSheetRepository(st, seq, logger)
	advanceRepo := repository.NewAdvanceRepository(st, seq, logger)

	sheets := finance.NewSheetService(sheetRepo, clock, ids, logger)
	advances := finance.NewAdvanceService(advanceRepo, clock, ids, logger)
	ledger := finance.NewBalanceLedger(advanceRepo, sheetRepo, logger)
	exporter := finance.NewSummaryExporter(ledger, logger)

	templates := report.NewTemplateStore(st, logger)
	fetcher := report.NewImageFetcher("", logger)
	renderer := report.NewDocumentRenderer(templates, fetcher, clock, logger)

	return NewServer(DefaultServerConfig(), sheets, advances, ledger, exporter, templates, renderer, logger)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func employeeHeaders(userID string) map[string]string {
	return map[string]string{"X-User-ID": userID, "X-User-Name": "Test User", "X-User-Role": "employee"}
}

func financeHeaders() map[string]string {
	return map[string]string{"X-User-ID": "fin-1", "X-User-Role": "finance"}
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "error: %s", envelope.Error)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRequiresIdentity(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/sheets", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSheetLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	owner := employeeHeaders("u1")
	fin := financeHeaders()

	create := map[string]interface{}{
		"month": 3,
		"year":  2026,
		"items": []map[string]interface{}{{
			"date":         "05/03/2026",
			"project_name": "Panel retrofit",
			"bill_type":    "Travel",
			"description":  "Site visit",
			"amount":       "1500.00",
			"place":        "Chennai",
			"mode":         "Cash",
		}},
		"advance_received": "1000",
	}
	w := doJSON(t, s, http.MethodPost, "/api/sheets", create, owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sheet struct {
		ID      string `json:"id"`
		SheetNo string `json:"sheet_no"`
		Status  string `json:"status"`
	}
	decodeData(t, w, &sheet)
	assert.Equal(t, "ES/2026/0001", sheet.SheetNo)
	assert.Equal(t, "draft", sheet.Status)

	// Duplicate period conflicts.
	w = doJSON(t, s, http.MethodPost, "/api/sheets", create, owner)
	assert.Equal(t, http.StatusConflict, w.Code)

	base := "/api/sheets/" + sheet.ID
	w = doJSON(t, s, http.MethodPost, base+"/submit", nil, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Editing a pending sheet conflicts.
	w = doJSON(t, s, http.MethodPost, base+"/items", map[string]interface{}{
		"date": "06/03/2026", "project_name": "x", "bill_type": "Food",
		"description": "lunch", "amount": "100",
	}, owner)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Employee cannot verify: 403 with transition detail.
	w = doJSON(t, s, http.MethodPost, base+"/verify", nil, owner)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, s, http.MethodPost, base+"/verify", nil, fin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, s, http.MethodPost, base+"/approve", nil, fin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, s, http.MethodPost, base+"/pay", map[string]string{"mode": "Bank Transfer", "reference": "TXN-1"}, fin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Paying again is an invalid transition: 400.
	w = doJSON(t, s, http.MethodPost, base+"/pay", map[string]string{"mode": "Cash"}, fin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Review queue sees the paid sheet.
	w = doJSON(t, s, http.MethodGet, "/api/finance/sheets?status=paid", nil, fin)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []json.RawMessage
	decodeData(t, w, &listed)
	assert.Len(t, listed, 1)
}

func TestFinanceRoutesForbiddenForEmployees(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/finance/sheets", "/api/finance/balances", "/api/finance/advances"} {
		w := doJSON(t, s, http.MethodGet, path, nil, employeeHeaders("u1"))
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
}

func TestAdvanceAndBalanceOverHTTP(t *testing.T) {
	s := newTestServer(t)
	owner := employeeHeaders("u1")
	fin := financeHeaders()

	w := doJSON(t, s, http.MethodPost, "/api/advances", map[string]interface{}{
		"amount": "3000", "purpose": "Site visit",
	}, owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var req struct {
		ID        string `json:"id"`
		RequestNo string `json:"request_no"`
	}
	decodeData(t, w, &req)
	assert.Contains(t, req.RequestNo, fmt.Sprintf("ARN/%d/", time.Now().UTC().Year()))

	w = doJSON(t, s, http.MethodPost, "/api/advances/"+req.ID+"/approve", nil, fin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, s, http.MethodPost, "/api/advances/"+req.ID+"/pay", map[string]string{
		"paid_amount": "3000", "mode": "Bank Transfer",
	}, fin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Owner reads their own balance.
	w = doJSON(t, s, http.MethodGet, "/api/balances/u1", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	// decimal fields marshal as quoted strings
	var balance struct {
		RunningBalance string `json:"running_balance"`
	}
	decodeData(t, w, &balance)
	assert.Equal(t, "3000", balance.RunningBalance)

	// Another employee may not.
	w = doJSON(t, s, http.MethodGet, "/api/balances/u1", nil, employeeHeaders("u2"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Export produces a workbook.
	w = doJSON(t, s, http.MethodGet, "/api/finance/balances/export", nil, fin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestTemplateAndRenderOverHTTP(t *testing.T) {
	s := newTestServer(t)
	owner := employeeHeaders("u1")
	fin := financeHeaders()

	// Anyone authenticated can read settings.
	w := doJSON(t, s, http.MethodGet, "/api/templates/settings", nil, owner)
	assert.Equal(t, http.StatusOK, w.Code)

	// Only finance/admin can update.
	update := map[string]interface{}{
		"report_designs": map[string]interface{}{
			"amc": map[string]interface{}{"design_id": 3, "design_color": "#FF0000"},
		},
	}
	w = doJSON(t, s, http.MethodPut, "/api/templates/settings", update, owner)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, s, http.MethodPut, "/api/templates/settings", update, fin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodPut, "/api/templates/settings", map[string]interface{}{
		"branding": map[string]interface{}{"primary_color": "notahex"},
	}, fin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Render the built-in sample record.
	w = doJSON(t, s, http.MethodPost, "/api/reports/render", report.SampleRecord("amc"), owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = doJSON(t, s, http.MethodGet, "/api/templates/previews/designs?color=%23FF0000", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = doJSON(t, s, http.MethodGet, "/api/templates/previews/page?class=cover&report_type=wcc", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/templates/previews/page?class=margin&report_type=wcc", nil, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
