package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrtaj/hrtaj-cli/internal/config"
	"github.com/hrtaj/hrtaj-cli/internal/importer"
	"github.com/hrtaj/hrtaj-cli/internal/importlog"
	"github.com/hrtaj/hrtaj-cli/internal/lead"
	"github.com/hrtaj/hrtaj-cli/internal/report"
	"github.com/hrtaj/hrtaj-cli/internal/store"
	"github.com/hrtaj/hrtaj-cli/internal/table"
)

const resaleCSV = "نوع,السعر,العنوان,المنطقة\nشقة,1500000,شارع التسعين,التجمع\n,abc,,\n"

type testEnv struct {
	mem  *store.Memory
	runs *importlog.Log
	h    http.Handler
}

func testConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{DefaultCurrency: "EGP", DefaultPurpose: "sale", StaffOwnerUserID: "staff-1"},
		Server: config.ServerConfig{AppEnv: "production", AllowedOrigins: []string{"https://app.hrtaj.com"}},
		Auth:   config.AuthConfig{AdminKey: "admin-secret", ImportKey: "import-secret", LeadsKey: "leads-secret"},
	}
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	runs := importlog.New(mem)
	srv := New(cfg, Services{
		Importer: importer.New(mem),
		Runs:     runs,
		Leads:    lead.New(mem),
		Reports:  report.New(mem),
	})
	return &testEnv{mem: mem, runs: runs, h: srv.Handler()}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.h.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) (ok bool, data json.RawMessage, apiErr *apiError) {
	t.Helper()
	var body struct {
		OK    bool            `json:"ok"`
		Data  json.RawMessage `json:"data"`
		Error *apiError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body.OK, body.Data, body.Error
}

func multipartRequest(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-HRTAJ-Import-Key", "import-secret")
	return req
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testConfig())
	rr := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	ok, data, apiErr := decodeEnvelope(t, rr)
	assert.True(t, ok)
	assert.Nil(t, apiErr)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name     string
		appEnv   string
		key      string
		header   string
		wantCode int
		wantErr  string
	}{
		{"valid key", "production", "secret", "secret", http.StatusOK, ""},
		{"wrong key", "production", "secret", "nope", http.StatusUnauthorized, codeUnauthorized},
		{"missing header", "production", "secret", "", http.StatusUnauthorized, codeUnauthorized},
		{"unset key in production", "production", "", "", http.StatusInternalServerError, codeMisconfigured},
		{"unset key in dev", "local", "", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.AppEnv = tt.appEnv
			cfg.Auth.ImportKey = tt.key
			env := newTestEnv(t, cfg)

			req := httptest.NewRequest(http.MethodGet, "/v1/import/mapping", nil)
			if tt.header != "" {
				req.Header.Set("X-HRTAJ-Import-Key", tt.header)
			}
			rr := env.do(req)

			assert.Equal(t, tt.wantCode, rr.Code)
			if tt.wantErr != "" {
				ok, _, apiErr := decodeEnvelope(t, rr)
				assert.False(t, ok)
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantErr, apiErr.Code)
			}
		})
	}
}

func TestAuth_GroupsUseOwnKeys(t *testing.T) {
	env := newTestEnv(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/reports/daily", nil)
	req.Header.Set("X-HRTAJ-Import-Key", "import-secret")
	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/reports/daily", nil)
	req.Header.Set("X-HRTAJ-Admin-Key", "admin-secret")
	assert.Equal(t, http.StatusOK, env.do(req).Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/v1/import/resale", nil)
	req.Header.Set("Origin", "https://app.hrtaj.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := env.do(req)

	assert.Equal(t, "https://app.hrtaj.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestImportResale(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rr := env.do(multipartRequest(t, "/v1/import/resale", "units.csv", resaleCSV, nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	ok, data, _ := decodeEnvelope(t, rr)
	assert.True(t, ok)
	var rep importer.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, 2, rep.RowsTotal)
	assert.Equal(t, 1, rep.RowsInserted)
	assert.Equal(t, 1, rep.RowsFailed)
	assert.Equal(t, "نوع", rep.Mapping["type"])
	require.NotEmpty(t, rep.Errors)
	assert.Equal(t, 3, rep.Errors[0].Row)

	listings := env.mem.Rows("listings")
	require.Len(t, listings, 1)
	assert.Equal(t, "staff-1", listings[0]["owner_user_id"])
	assert.Equal(t, "EGP", listings[0]["currency"])

	runs, err := env.runs.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "resale", runs[0].Kind)
	assert.Equal(t, "units.csv", runs[0].Filename)
	assert.Equal(t, importlog.StatusComplete, runs[0].Status)
}

func TestImportResale_DryRunWritesNothing(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rr := env.do(multipartRequest(t, "/v1/import/resale", "units.csv", resaleCSV, map[string]string{"dry_run": "true"}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	_, data, _ := decodeEnvelope(t, rr)
	var rep importer.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, 1, rep.RowsInserted)

	assert.Empty(t, env.mem.Rows("listings"))
	assert.Empty(t, env.mem.Rows("import_runs"))
}

func TestImportResale_BadRequests(t *testing.T) {
	env := newTestEnv(t, testConfig())

	tests := []struct {
		name     string
		req      *http.Request
		wantText string
	}{
		{"unsupported type", multipartRequest(t, "/v1/import/resale", "units.pdf", "x", nil), "unsupported file type"},
		{"missing file", multipartRequest(t, "/v1/import/resale", "", "", map[string]string{"owner_user_id": "u"}), "file is required"},
		{"bad dry_run", multipartRequest(t, "/v1/import/resale", "units.csv", resaleCSV, map[string]string{"dry_run": "maybe"}), "dry_run"},
		{"corrupt workbook", multipartRequest(t, "/v1/import/resale", "units.xlsx", "not a workbook", nil), "units.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(tt.req)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			ok, _, apiErr := decodeEnvelope(t, rr)
			assert.False(t, ok)
			require.NotNil(t, apiErr)
			assert.Equal(t, codeInvalidRequest, apiErr.Code)
			assert.Contains(t, apiErr.Message, tt.wantText)
		})
	}
	assert.Empty(t, env.mem.Rows("import_runs"))
}

func TestImportProjects(t *testing.T) {
	env := newTestEnv(t, testConfig())
	csv := "project_title,type,price,unit_code\nBay Towers,Apartment,2000000,A-1\nBay Towers,Villa,9000000,V-1\n"

	rr := env.do(multipartRequest(t, "/v1/import/projects", "units.csv", csv, map[string]string{
		"developer_id":  "dev-1",
		"owner_user_id": "owner-1",
	}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	_, data, _ := decodeEnvelope(t, rr)
	var rep importer.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, 2, rep.RowsInserted)
	assert.Len(t, env.mem.Rows("projects"), 1)
	assert.Len(t, env.mem.Rows("import_runs"), 1)
}

func TestImportProjects_ArgumentErrors(t *testing.T) {
	env := newTestEnv(t, testConfig())
	csv := "project_title,type,price\nBay Towers,Apartment,2000000\n"

	rr := env.do(multipartRequest(t, "/v1/import/projects", "units.csv", csv, map[string]string{"owner_user_id": "owner-1"}))
	assert.Equal(t, http.StatusOK, rr.Code)
	ok, _, apiErr := decodeEnvelope(t, rr)
	assert.False(t, ok)
	require.NotNil(t, apiErr)
	assert.Equal(t, "invalid_request", apiErr.Code)
	assert.Equal(t, importer.ErrDeveloperRequired.Error(), apiErr.Message)

	rr = env.do(multipartRequest(t, "/v1/import/projects", "units.csv", csv, map[string]string{"developer_id": "dev-1"}))
	assert.Equal(t, http.StatusOK, rr.Code)
	ok, _, apiErr = decodeEnvelope(t, rr)
	assert.False(t, ok)
	require.NotNil(t, apiErr)
	assert.Equal(t, "invalid_request", apiErr.Code)
	assert.Equal(t, importer.ErrOwnerRequired.Error(), apiErr.Message)

	assert.Empty(t, env.mem.Rows("import_runs"))
}

func TestSampleTemplate(t *testing.T) {
	env := newTestEnv(t, testConfig())

	get := func(query string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/import/sample-template"+query, nil)
		req.Header.Set("X-HRTAJ-Import-Key", "import-secret")
		return env.do(req)
	}

	rr := get("")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, strings.Join(importer.TemplateHeaders(importer.KindResale), ",")+"\n", rr.Body.String())

	rr = get("?kind=project")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "project_title,project_code,"))

	rr = get("?kind=project&format=xlsx")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "project-template.xlsx")
	tbl, err := table.Read(rr.Body.Bytes(), "template.xlsx")
	require.NoError(t, err)
	assert.Equal(t, importer.TemplateHeaders(importer.KindProject), tbl.Columns)
}

func TestMapping(t *testing.T) {
	env := newTestEnv(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/v1/import/mapping", nil)
	req.Header.Set("X-HRTAJ-Import-Key", "import-secret")
	rr := env.do(req)
	require.Equal(t, http.StatusOK, rr.Code)

	_, data, _ := decodeEnvelope(t, rr)
	var body struct {
		Headers map[string][]string `json:"headers"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Contains(t, body.Headers["type"], "نوع")
	assert.Contains(t, body.Headers["price"], "السعر")
	assert.True(t, strings.Index(string(data), `"city"`) < strings.Index(string(data), `"type"`), "declaration order kept")
}

func leadsRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-HRTAJ-Leads-Key", "leads-secret")
	return req
}

func TestLeadsEndpoints(t *testing.T) {
	env := newTestEnv(t, testConfig())
	old := time.Now().Add(-3 * time.Hour).UTC().Format(time.RFC3339Nano)
	env.mem.Seed("leads", store.Record{
		"id": "lead-1", "listing_id": "l-1", "phone": "0100", "status": "new",
		"created_at": old, "updated_at": old,
	})
	env.mem.Seed("listings", store.Record{"id": "l-1", "price": 1000000.0, "inventory_source": "resale"})
	env.mem.Seed("profiles", store.Record{"id": "ops-1", "role": "ops"})

	rr := env.do(leadsRequest(http.MethodPost, "/v1/leads/score", `{"lead_id":"lead-1"}`))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	_, data, _ := decodeEnvelope(t, rr)
	var score lead.ScoreResult
	require.NoError(t, json.Unmarshal(data, &score))
	assert.Equal(t, 55, score.Score)
	assert.Equal(t, "warm", score.Label)

	rr = env.do(leadsRequest(http.MethodPost, "/v1/leads/route", `{"lead_id":"lead-1","dry_run":true}`))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	_, data, _ = decodeEnvelope(t, rr)
	var route lead.RouteResult
	require.NoError(t, json.Unmarshal(data, &route))
	assert.Equal(t, lead.ModeStaff, route.Mode)
	require.NotNil(t, route.AssignedTo)
	assert.Equal(t, "ops-1", *route.AssignedTo)

	rr = env.do(leadsRequest(http.MethodGet, "/v1/leads/sla?minutes=60", ""))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	_, data, _ = decodeEnvelope(t, rr)
	var sla struct {
		Breached []map[string]any `json:"breached"`
		Minutes  int              `json:"minutes"`
	}
	require.NoError(t, json.Unmarshal(data, &sla))
	assert.Equal(t, 60, sla.Minutes)
	require.Len(t, sla.Breached, 1)
	assert.Equal(t, "lead-1", sla.Breached[0]["id"])
}

func TestLeadsEndpoints_BadRequests(t *testing.T) {
	env := newTestEnv(t, testConfig())

	assert.Equal(t, http.StatusBadRequest, env.do(leadsRequest(http.MethodPost, "/v1/leads/score", `{`)).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(leadsRequest(http.MethodPost, "/v1/leads/route", `{}`)).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(leadsRequest(http.MethodGet, "/v1/leads/sla?minutes=soon", "")).Code)
}

func TestRouteLead_NotFound(t *testing.T) {
	env := newTestEnv(t, testConfig())
	rr := env.do(leadsRequest(http.MethodPost, "/v1/leads/route", `{"lead_id":"ghost"}`))
	require.Equal(t, http.StatusOK, rr.Code)
	_, data, _ := decodeEnvelope(t, rr)
	var route lead.RouteResult
	require.NoError(t, json.Unmarshal(data, &route))
	assert.Equal(t, lead.ModeNotFound, route.Mode)
	assert.Nil(t, route.AssignedTo)
}

func TestReports(t *testing.T) {
	env := newTestEnv(t, testConfig())
	today := time.Now().UTC().Format(time.DateOnly)
	env.mem.Seed("report_units_per_day", store.Record{"day": today, "count": 4})
	env.mem.Seed("report_leads_per_day", store.Record{"day": "2001-01-01", "count": 9})
	env.mem.Seed("leads",
		store.Record{"id": "a", "status": "won", "created_at": time.Now().UTC().Format(time.RFC3339Nano)},
		store.Record{"id": "b", "created_at": time.Now().UTC().Format(time.RFC3339Nano)},
	)

	admin := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-HRTAJ-Admin-Key", "admin-secret")
		return env.do(req)
	}

	rr := admin("/v1/reports/daily?days=3")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	_, data, _ := decodeEnvelope(t, rr)
	var daily struct {
		Units []map[string]any `json:"units"`
		Leads []map[string]any `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(data, &daily))
	assert.Len(t, daily.Units, 1)
	assert.Empty(t, daily.Leads)

	rr = admin("/v1/reports/pipeline")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	_, data, _ = decodeEnvelope(t, rr)
	var pipeline report.Pipeline
	require.NoError(t, json.Unmarshal(data, &pipeline))
	assert.Equal(t, 30, pipeline.WindowDays)
	assert.Equal(t, map[string]int{"won": 1, "new": 1}, pipeline.Counts)

	assert.Equal(t, http.StatusBadRequest, admin("/v1/reports/daily?days=-1").Code)
}
