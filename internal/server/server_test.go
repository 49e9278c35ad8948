package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cyberflux/internal/config"
	"cyberflux/internal/ingest"
	"cyberflux/internal/report"
	"cyberflux/internal/session"
	"cyberflux/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// cannedClient answers every completion with the same text.
type cannedClient struct {
	response   string
	configured bool
}

func (c *cannedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *cannedClient) CompleteWithSystem(context.Context, string, string) (string, error) {
	return c.response, nil
}

func (c *cannedClient) Configured() bool { return c.configured }

type testEnv struct {
	server *Server
	cfg    *config.Config
	store  *store.Store
}

func newTestEnv(t *testing.T, client *cannedClient) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	base := t.TempDir()
	cfg.Report.DataDir = filepath.Join(base, "data")
	cfg.Report.TmpDir = filepath.Join(base, "tmp_reports")
	require.NoError(t, os.MkdirAll(cfg.Report.DataDir, 0755))

	csv := strings.Join([]string{
		"Date first seen,Proto,Src IP Addr,Dst IP Addr,Bytes,Packets,class,attackType",
		"2017-03-15 00:01:16,TCP,10.0.0.1,10.0.0.9,2.5 M,9,attacker,bruteForce",
		"2017-03-15 00:02:16,UDP,10.0.0.2,10.0.0.9,300,2,normal,---",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Report.DataDir, "logs.csv"), []byte(csv), 0644))

	st, err := store.New(filepath.Join(base, "cyberflux.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	gen := report.NewGenerator(cfg, client, st)
	sessions := session.NewManager(client, st)

	datasets, err := ingest.NewDatasetIndex(cfg.Report.DataDir)
	require.NoError(t, err)
	t.Cleanup(func() { datasets.Close() })

	srv := New(cfg, gen, sessions, datasets, client, nil)
	return &testEnv{server: srv, cfg: cfg, store: st}
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, &cannedClient{})
	rec := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeJSON(t, rec)["status"])
}

func TestGenerateReturnsMetadata(t *testing.T) {
	env := newTestEnv(t, &cannedClient{})

	rec := env.get(t, "/report/generate?csv_filename=logs.csv")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["num_records"])
	assert.Equal(t, float64(1), body["suspicious_records"])

	filename, _ := body["filename"].(string)
	assert.True(t, strings.HasPrefix(filename, "cyberflux_report_"))
	assert.Equal(t, "/report/download?path="+filename, body["download"])
	// Metadata exposes only the base name, never the absolute path.
	assert.Equal(t, filename, body["pdf_path"])
}

func TestGenerateMissingDataset(t *testing.T) {
	env := newTestEnv(t, &cannedClient{})
	rec := env.get(t, "/report/generate?csv_filename=absent.csv")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadAfterGenerate(t *testing.T) {
	env := newTestEnv(t, &cannedClient{})

	rec := env.get(t, "/report/generate?csv_filename=logs.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	filename := decodeJSON(t, rec)["filename"].(string)

	dl := env.get(t, "/report/download?path="+filename)
	assert.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "application/pdf", dl.Header().Get("Content-Type"))
	assert.Contains(t, dl.Header().Get("Content-Disposition"), filename)
	assert.Greater(t, dl.Body.Len(), 0)
}

func TestDownloadRejectsTraversal(t *testing.T) {
	env := newTestEnv(t, &cannedClient{})

	for _, path := range []string{"../secrets.txt", "a/b.pdf", "..%2Fetc%2Fpasswd"} {
		rec := env.get(t, "/report/download?path="+path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "path %q", path)
	}

	rec := env.get(t, "/report/download?path=nope.pdf")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDirectReturnsPDF(t *testing.T) {
	env := newTestEnv(t, &cannedClient{})

	rec := env.get(t, "/report/direct?csv=logs.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestDirectDebugSurfacesDetail(t *testing.T) {
	env := newTestEnv(t, &cannedClient{})

	rec := env.get(t, "/report/direct_debug?csv=absent.csv")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeJSON(t, rec)
	assert.Contains(t, body["error"], "absent.csv")
	assert.NotEmpty(t, body["detail"])
}

func TestDatasets(t *testing.T) {
	env := newTestEnv(t, &cannedClient{})
	rec := env.get(t, "/api/datasets")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Datasets []string `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"logs.csv"}, body.Datasets)
}

func TestIncidentsFixtureIsDeterministic(t *testing.T) {
	env := newTestEnv(t, &cannedClient{})

	first := env.get(t, "/api/incidents")
	second := env.get(t, "/api/incidents")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	var body struct {
		Incidents []map[string]interface{} `json:"incidents"`
	}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &body))
	require.Len(t, body.Incidents, 2)
	assert.Equal(t, "INC-2041", body.Incidents[0]["id"])
	assert.Equal(t, "INC-2042", body.Incidents[1]["id"])
}

func TestIncidentsAcceptsOtherMethods(t *testing.T) {
	env := newTestEnv(t, &cannedClient{})
	req := httptest.NewRequest(http.MethodDelete, "/api/incidents", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestActionBench(t *testing.T) {
	env := newTestEnv(t, &cannedClient{})

	t.Run("POST echoes body", func(t *testing.T) {
		rec := env.postJSON(t, "/api/action-bench", map[string]interface{}{"action": "block_ip", "target": "10.0.0.1"})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeJSON(t, rec)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, true, body["saved"])
		result := body["result"].(map[string]interface{})
		assert.Equal(t, "block_ip", result["action"])
	})

	t.Run("GET reports ready", func(t *testing.T) {
		rec := env.get(t, "/api/action-bench")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ready", decodeJSON(t, rec)["status"])
	})

	t.Run("structured action gets an autorun verdict", func(t *testing.T) {
		rec := env.postJSON(t, "/api/action-bench", map[string]interface{}{
			"action": map[string]interface{}{"type": "block_ip", "impact_estimate": 2},
			"asset":  map[string]interface{}{"critical": false},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeJSON(t, rec)["autorun"])
	})

	t.Run("isolating a critical asset is denied", func(t *testing.T) {
		rec := env.postJSON(t, "/api/action-bench", map[string]interface{}{
			"action": map[string]interface{}{"type": "isolate_host", "impact_estimate": 1},
			"asset":  map[string]interface{}{"critical": true},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decodeJSON(t, rec)["autorun"])
	})

	t.Run("unstructured payload has no verdict", func(t *testing.T) {
		rec := env.postJSON(t, "/api/action-bench", map[string]interface{}{"note": "manual review"})
		require.Equal(t, http.StatusOK, rec.Code)
		_, present := decodeJSON(t, rec)["autorun"]
		assert.False(t, present)
	})
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t, &cannedClient{
		configured: true,
		response:   `{"summary": "traffic from 10.0.0.1 dominated by bruteForce"}`,
	})

	start := env.postJSON(t, "/api/session", map[string]string{"csv_filename": "logs.csv"})
	require.Equal(t, http.StatusOK, start.Code)
	sessionID := decodeJSON(t, start)["session_id"].(string)
	require.NotEmpty(t, sessionID)

	ask := env.postJSON(t, "/api/session/ask", map[string]string{
		"session_id": sessionID,
		"question":   "which host is attacking?",
	})
	require.Equal(t, http.StatusOK, ask.Code)
	assert.NotEmpty(t, decodeJSON(t, ask)["answer"])

	turns := env.get(t, "/api/session/turns?session_id="+sessionID)
	require.Equal(t, http.StatusOK, turns.Code)
	var turnBody struct {
		Turns []store.SessionTurn `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(turns.Body.Bytes(), &turnBody))
	require.Len(t, turnBody.Turns, 1)
	assert.Equal(t, "which host is attacking?", turnBody.Turns[0].Question)
}

func TestSessionAskUnknownID(t *testing.T) {
	env := newTestEnv(t, &cannedClient{})
	rec := env.postJSON(t, "/api/session/ask", map[string]string{"session_id": "nope", "question": "q"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ===== proxy status mapping =====

func proxyEnv(t *testing.T, upstream http.HandlerFunc) *testEnv {
	t.Helper()
	env := newTestEnv(t, &cannedClient{})
	if upstream != nil {
		backend := httptest.NewServer(upstream)
		t.Cleanup(backend.Close)
		env.cfg.Proxy.BackendBase = backend.URL
	} else {
		// A closed listener address produces a transport fault.
		backend := httptest.NewServer(http.NotFoundHandler())
		backend.Close()
		env.cfg.Proxy.BackendBase = backend.URL
	}
	return env
}

func TestProxyPassthrough(t *testing.T) {
	var gotQuery string
	env := proxyEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/report/direct", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="upstream.pdf"`)
		io.WriteString(w, "%PDF-1.4 fake")
	})

	rec := env.get(t, "/api/report_proxy?csv=sample.csv&nrows=100")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 fake", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "upstream.pdf")

	// Defaults fill in and explicit params forward.
	assert.Contains(t, gotQuery, "csv=sample.csv")
	assert.Contains(t, gotQuery, "include_ai=true")
	assert.Contains(t, gotQuery, "nrows=100")
}

func TestProxyDefaultsDisposition(t *testing.T) {
	env := proxyEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "logs.csv", r.URL.Query().Get("csv"))
		io.WriteString(w, "%PDF")
	})

	rec := env.get(t, "/api/report_proxy")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="report.pdf"`, rec.Header().Get("Content-Disposition"))
}

func TestProxyUpstreamFailure(t *testing.T) {
	env := proxyEnv(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	})

	rec := env.get(t, "/api/report_proxy")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, float64(500), body["status"])
	assert.Contains(t, body["body"], "backend exploded")
}

func TestProxyTransportFault(t *testing.T) {
	env := proxyEnv(t, nil)

	rec := env.get(t, "/api/report_proxy")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "proxy request failed", body["error"])
	assert.NotEmpty(t, body["detail"])
}
