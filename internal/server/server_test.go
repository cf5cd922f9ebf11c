package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabloom-cli/internal/clean"
	"github.com/KaramelBytes/tabloom-cli/internal/pipeline"
	"github.com/KaramelBytes/tabloom-cli/internal/testutil"
)

func setupRouter(t *testing.T, mutate func(*pipeline.Options)) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	opts := pipeline.DefaultOptions()
	opts.HeatmapPath = filepath.Join(t.TempDir(), "correlation_matrix.png")
	if mutate != nil {
		mutate(&opts)
	}
	h := NewHandler(opts)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return NewRouter(h), opts.HeatmapPath
}

func do(r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t, nil)
	w := do(r, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "2024-05-01T12:00:00Z", resp["timestamp"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDPropagates(t *testing.T) {
	r, _ := setupRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestAnalyzeQueryParam(t *testing.T) {
	r, heatmap := setupRouter(t, nil)
	src := testutil.WriteFile(t, "data.csv", testutil.SampleCSV)

	w := do(r, http.MethodPost, "/analyze?data_path="+url.QueryEscape(src), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, "Analysis completed successfully", resp["message"])
	assert.Equal(t, float64(4), resp["rows"])
	assert.Equal(t, float64(1), resp["dropped"])
	assert.Equal(t, heatmap, resp["artifact"])
	assert.NotEmpty(t, resp["run_id"])

	_, err := os.Stat(heatmap)
	assert.NoError(t, err)
}

func TestAnalyzeJSONBody(t *testing.T) {
	r, _ := setupRouter(t, nil)
	src := testutil.WriteFile(t, "data.csv", testutil.LinearCSV(12))
	body, _ := json.Marshal(map[string]string{"data_path": src})

	w := do(r, http.MethodPost, "/analyze", body)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAnalyzeErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}
	cases := []struct {
		name   string
		path   string
		mutate func(*pipeline.Options)
		status int
		stage  string
	}{
		{"missing", filepath.Join(dir, "none.csv"), nil, http.StatusNotFound, "load"},
		{"unsupported", write("a.txt", "x"), nil, http.StatusBadRequest, "load"},
		{"malformed", write("bad.csv", "a,b\n1\n"), nil, http.StatusBadRequest, "load"},
		{"no numeric", write("text.csv", "a,b\nx,y\n"), nil, http.StatusUnprocessableEntity, "correlate"},
		{"degenerate", write("const.csv", "a,c\n1,5\n2,5\n"), func(o *pipeline.Options) {
			o.Clean = clean.Options{Constant: clean.ConstantFail}
		}, http.StatusUnprocessableEntity, "clean"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := setupRouter(t, tc.mutate)
			w := do(r, http.MethodPost, "/analyze?data_path="+url.QueryEscape(tc.path), nil)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			resp := decode(t, w)
			assert.Equal(t, tc.stage, resp["stage"])
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestAnalyzeRequiresPath(t *testing.T) {
	r, _ := setupRouter(t, nil)
	w := do(r, http.MethodPost, "/analyze", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/analyze", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
