package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/narrator"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/parser"
	"github.com/GauravPandit27/AI-Data-Analyst/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type echoNarrator struct{}

func (echoNarrator) Narrate(_ context.Context, fileName, _ string) (*narrator.Narrative, error) {
	return &narrator.Narrative{Text: "**" + fileName + "** looks like sales data.\n\n- <script>alert(1)</script>", Model: "test-model"}, nil
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestServer(t *testing.T, limit string) *Server {
	t.Helper()
	runner := pipeline.NewRunner(echoNarrator{}, parser.Options{}, quiet)
	s, err := New(runner, Options{UploadLimit: limit, Version: "test", Provider: "groq", Model: "llama3-8b-8192", Logger: quiet})
	require.NoError(t, err)
	return s
}

const salesCSV = "Month,Units,Revenue\nJan,10,100.5\nFeb,12,130\nMar,9,95.25\nApr,15,160\n"

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range []string{"sales.csv", "broken.xlsx", "big.csv"} {
		content, ok := files[name]
		if !ok {
			continue
		}
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func do(s *Server, method, target string, body io.Reader, contentType string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestIndexPage(t *testing.T) {
	rec := do(newTestServer(t, ""), http.MethodGet, "/", nil, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `accept=".csv,.xlsx"`)
	assert.Contains(t, body, `name="files"`)
	assert.Contains(t, body, "multiple")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestHealth(t *testing.T) {
	rec := do(newTestServer(t, ""), http.MethodGet, "/api/health", nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, "groq", got["provider"])
	assert.Equal(t, "test", got["version"])
}

func TestAnalyzeAPI_JSON(t *testing.T) {
	body, ct := multipartBody(t, map[string]string{"sales.csv": salesCSV, "broken.xlsx": salesCSV})
	rec := do(newTestServer(t, ""), http.MethodPost, "/api/analyze", body, ct, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Files []struct {
			Name    string `json:"name"`
			Stage   string `json:"stage"`
			Failed  bool   `json:"failed"`
			Error   string `json:"error"`
			Summary *struct {
				Rows    int `json:"rows"`
				Numeric []struct {
					Column string   `json:"column"`
					Std    *float64 `json:"std"`
				} `json:"numeric"`
			} `json:"summary"`
			Charts []struct {
				Kind string `json:"kind"`
				PNG  []byte `json:"png"`
			} `json:"charts"`
			Narrative *struct {
				Text string `json:"text"`
			} `json:"narrative"`
		} `json:"files"`
		Failed int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 2)
	assert.Equal(t, 1, resp.Failed)

	ok := resp.Files[0]
	assert.Equal(t, "sales.csv", ok.Name)
	assert.Equal(t, "done", ok.Stage)
	require.NotNil(t, ok.Summary)
	assert.Equal(t, 4, ok.Summary.Rows)
	assert.Len(t, ok.Summary.Numeric, 2)
	assert.Len(t, ok.Charts, 3)
	assert.Equal(t, "heatmap", ok.Charts[2].Kind)
	assert.True(t, bytes.HasPrefix(ok.Charts[0].PNG, []byte("\x89PNG")))
	require.NotNil(t, ok.Narrative)
	assert.Contains(t, ok.Narrative.Text, "sales.csv")

	bad := resp.Files[1]
	assert.True(t, bad.Failed)
	assert.Equal(t, "loading", bad.Stage)
	assert.Contains(t, bad.Error, "Failed to load broken.xlsx")
}

func TestAnalyzeAPI_Msgpack(t *testing.T) {
	for _, tc := range []struct {
		target string
		header map[string]string
	}{
		{"/api/analyze?format=msgpack", nil},
		{"/api/analyze", map[string]string{"Accept": "application/msgpack"}},
	} {
		body, ct := multipartBody(t, map[string]string{"sales.csv": salesCSV})
		rec := do(newTestServer(t, ""), http.MethodPost, tc.target, body, ct, tc.header)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))

		var resp analyzeResponse
		require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Files, 1)
		assert.Equal(t, "sales.csv", resp.Files[0].Name)
		assert.Equal(t, pipeline.StageDone, resp.Files[0].Stage)
		require.NotNil(t, resp.Files[0].Summary)
		assert.Equal(t, 4, resp.Files[0].Summary.Rows)
	}
}

func TestAnalyzeAPI_NoFiles(t *testing.T) {
	body, ct := multipartBody(t, nil)
	rec := do(newTestServer(t, ""), http.MethodPost, "/api/analyze", body, ct, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
	assert.Equal(t, "no files uploaded", apiErr.Message)

	rec = do(newTestServer(t, ""), http.MethodPost, "/api/analyze", strings.NewReader("{}"), "application/json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeAPI_BodyLimit(t *testing.T) {
	big := "a,b\n" + strings.Repeat("1,2\n", 2000)
	body, ct := multipartBody(t, map[string]string{"big.csv": big})
	rec := do(newTestServer(t, "1K"), http.MethodPost, "/api/analyze", body, ct, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "PAYLOAD_TOO_LARGE", apiErr.Code)
}

func TestAnalyzePage(t *testing.T) {
	body, ct := multipartBody(t, map[string]string{"sales.csv": salesCSV, "broken.xlsx": salesCSV})
	rec := do(newTestServer(t, ""), http.MethodPost, "/analyze", body, ct, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	html := rec.Body.String()

	assert.Contains(t, html, "sales.csv")
	assert.Contains(t, html, "<th>Units</th>")
	assert.Contains(t, html, "<td>mean</td>")
	assert.Equal(t, 3, strings.Count(html, `src="data:image/png;base64,`))
	assert.Contains(t, html, "<strong>sales.csv</strong> looks like sales data.")
	assert.NotContains(t, html, "<script>alert(1)</script>", "raw HTML from the model must not be rendered")
	assert.Contains(t, html, "Failed to load broken.xlsx")
}

func TestAnalyzePage_NoFilesShowsForm(t *testing.T) {
	body, ct := multipartBody(t, nil)
	rec := do(newTestServer(t, ""), http.MethodPost, "/analyze", body, ct, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="error">no files uploaded`)
	assert.Contains(t, rec.Body.String(), `<form`)
}

func TestNewResultsView_NarrationError(t *testing.T) {
	v := newResultsView([]pipeline.FileResult{{Name: "x.csv", Stage: pipeline.StageDone, NarrativeError: "AI analysis failed for x.csv: boom"}})
	require.Len(t, v.Files, 1)
	assert.Equal(t, "AI analysis failed for x.csv: boom", v.Files[0].NarrativeError)
	assert.Empty(t, string(v.Files[0].Narrative))
	assert.Equal(t, 0, v.Failed)
}
