package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appanalysis "github.com/bryanwahyu/fileguard/internal/application/analysis"
	"github.com/bryanwahyu/fileguard/internal/domain/ai"
	domain "github.com/bryanwahyu/fileguard/internal/domain/analysis"
	"github.com/bryanwahyu/fileguard/internal/middleware"
)

const safeVerdict = `{"threatLevel":"SAFE","score":0,"summary":"clean"}`

type classifyCall struct {
	data      []byte
	mediaType string
}

type fakeClassifier struct {
	mu    sync.Mutex
	text  string
	err   error
	calls []classifyCall
}

func (f *fakeClassifier) Classify(_ context.Context, data []byte, mediaType, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, classifyCall{data: data, mediaType: mediaType})
	return f.text, f.err
}

type fakeObjects map[string]domain.UploadedFile

func (f fakeObjects) Fetch(_ context.Context, key string, _ int64) (domain.UploadedFile, error) {
	file, ok := f[key]
	if !ok {
		return domain.UploadedFile{}, domain.ErrObjectNotFound
	}
	return file, nil
}

func newTestRouter(t *testing.T, svc *appanalysis.Service, maxBytes int64) http.Handler {
	t.Helper()
	return NewRouter(svc, Options{
		ServiceName:    "FileGuard Local Backend",
		MaxUploadBytes: maxBytes,
		Logger:         zerolog.Nop(),
	})
}

// part describes one multipart section; a nil filename writes no filename parameter.
type part struct {
	field       string
	filename    *string
	contentType string
	body        []byte
}

func strPtr(s string) *string { return &s }

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		disp := fmt.Sprintf(`form-data; name="%s"`, p.field)
		if p.filename != nil {
			disp += fmt.Sprintf(`; filename="%s"`, *p.filename)
		}
		h.Set("Content-Disposition", disp)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postAnalyze(t *testing.T, h http.Handler, parts ...part) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, parts...)
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAnalyzeConcreteScenario(t *testing.T) {
	fc := &fakeClassifier{text: safeVerdict}
	h := newTestRouter(t, appanalysis.NewService(fc, "p"), 1024)

	rec := postAnalyze(t, h, part{field: "file", filename: strPtr("test.txt"), contentType: "text/plain", body: []byte("0123456789")})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.JSONEq(t, `{"analysis": "{\"threatLevel\":\"SAFE\",\"score\":0,\"summary\":\"clean\"}"}`, rec.Body.String())
	assert.Equal(t, safeVerdict, decodeBody(t, rec)["analysis"])

	require.Len(t, fc.calls, 1)
	assert.Equal(t, []byte("0123456789"), fc.calls[0].data)
	assert.Equal(t, "text/plain", fc.calls[0].mediaType)
}

func TestAnalyzeRelaysNonJSONTextVerbatim(t *testing.T) {
	text := "```json\n{\"threatLevel\": \"DANGEROUS\"} <script>&</script>\n```"
	h := newTestRouter(t, appanalysis.NewService(&fakeClassifier{text: text}, "p"), 1024)

	rec := postAnalyze(t, h, part{field: "file", filename: strPtr("x.sh"), body: []byte("curl | sh")})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, json.Valid(rec.Body.Bytes()))
	assert.Equal(t, text, decodeBody(t, rec)["analysis"])
}

func TestAnalyzeMediaType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{"undeclared falls back", "", domain.DefaultMediaType},
		{"params stripped", "text/plain; charset=utf-8", "text/plain"},
		{"declared kept", "application/x-msdownload", "application/x-msdownload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClassifier{text: "ok"}
			h := newTestRouter(t, appanalysis.NewService(fc, "p"), 1024)

			rec := postAnalyze(t, h, part{field: "file", filename: strPtr("f"), contentType: tt.contentType, body: []byte("MZ")})

			require.Equal(t, http.StatusOK, rec.Code)
			require.Len(t, fc.calls, 1)
			assert.Equal(t, tt.want, fc.calls[0].mediaType)
		})
	}
}

func TestAnalyzeBadRequests(t *testing.T) {
	tests := []struct {
		name    string
		parts   []part
		wantErr string
	}{
		{
			name:    "no parts",
			wantErr: "No file part",
		},
		{
			name:    "other field only",
			parts:   []part{{field: "comment", body: []byte("hi")}},
			wantErr: "No file part",
		},
		{
			name:    "file field without filename parameter",
			parts:   []part{{field: "file", body: []byte("plain value")}},
			wantErr: "No file part",
		},
		{
			name:    "file under a different name",
			parts:   []part{{field: "upload", filename: strPtr("a.txt"), body: []byte("x")}},
			wantErr: "No file part",
		},
		{
			name:    "empty filename",
			parts:   []part{{field: "file", filename: strPtr(""), body: []byte("x")}},
			wantErr: "No selected file",
		},
		{
			name:    "too large",
			parts:   []part{{field: "file", filename: strPtr("big.bin"), body: bytes.Repeat([]byte("A"), 17)}},
			wantErr: "file exceeds maximum size of 16 bytes",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClassifier{text: "unused"}
			h := newTestRouter(t, appanalysis.NewService(fc, "p"), 16)

			rec := postAnalyze(t, h, tt.parts...)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]string{"error": tt.wantErr}, decodeBody(t, rec))
			assert.Empty(t, fc.calls)
		})
	}
}

func TestAnalyzeNotMultipart(t *testing.T) {
	h := newTestRouter(t, appanalysis.NewService(&fakeClassifier{}, "p"), 1024)

	for _, ct := range []string{"", "application/json", "multipart/form-data"} {
		req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"file":"x"}`))
		if ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, ct)
		assert.Equal(t, "No file part", decodeBody(t, rec)["error"])
	}
}

func TestAnalyzeTruncatedBodyFails(t *testing.T) {
	fc := &fakeClassifier{text: "unused"}
	h := newTestRouter(t, appanalysis.NewService(fc, "p"), 1024)

	body := "--XYZ\r\nContent-Disposition: form-data; name=\"file\"; filename=\"a.txt\"\r\n\r\nabc"
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=XYZ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["error"])
	assert.Empty(t, fc.calls)
}

func TestAnalyzeClassifierFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"network", errors.New("dial tcp 142.250.0.1:443: connect: network is unreachable")},
		{"quota", fmt.Errorf("failed to generate content: %w", ai.ErrQuotaExceeded)},
		{"auth", fmt.Errorf("failed to generate content: %w", ai.ErrUnauthorized)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClassifier{err: tt.err}
			h := newTestRouter(t, appanalysis.NewService(fc, "p"), 1024)

			rec := postAnalyze(t, h, part{field: "file", filename: strPtr("a.txt"), body: []byte("x")})

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.err.Error(), body["error"])
			assert.Len(t, fc.calls, 1, "no retry expected")
		})
	}
}

func TestAnalyzeMissingCredential(t *testing.T) {
	h := newTestRouter(t, appanalysis.NewService(ai.Unavailable{Provider: "gemini"}, "p"), 1024)

	rec := postAnalyze(t, h, part{field: "file", filename: strPtr("a.txt"), body: []byte("x")})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ai.ErrMissingCredential.Error(), decodeBody(t, rec)["error"])
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	fc := &fakeClassifier{text: safeVerdict}
	h := newTestRouter(t, appanalysis.NewService(fc, "p"), 1024)
	p := part{field: "file", filename: strPtr("test.txt"), contentType: "text/plain", body: []byte("0123456789")}

	first := postAnalyze(t, h, p)
	second := postAnalyze(t, h, p)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Len(t, fc.calls, 2)
}

func TestHealthIgnoresClassifier(t *testing.T) {
	svc := appanalysis.NewService(ai.Unavailable{Cause: errors.New("unreachable")}, "p")
	h := newTestRouter(t, svc, 1024)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"active","service":"FileGuard Local Backend"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	h := newTestRouter(t, appanalysis.NewService(&fakeClassifier{}, "p"), 1024)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, appanalysis.NewService(&fakeClassifier{text: "ok"}, "p"), 1024)
	postAnalyze(t, h, part{field: "file", filename: strPtr("a.txt"), body: []byte("x")})
	postAnalyze(t, h, part{field: "file", filename: strPtr(""), body: []byte("x")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fileguard_analyses_total{outcome="success"} 1`)
	assert.Contains(t, rec.Body.String(), `fileguard_analyses_total{outcome="bad_request"} 1`)
}

func TestAnalyzeObject(t *testing.T) {
	objects := fakeObjects{"samples/a.js": {Filename: "a.js", MediaType: "application/javascript", Content: []byte("eval(x)")}}

	tests := []struct {
		name       string
		objects    domain.ObjectSource
		body       string
		wantStatus int
		wantBody   map[string]string
	}{
		{"ok", objects, `{"key":"samples/a.js"}`, http.StatusOK, map[string]string{"analysis": safeVerdict}},
		{"not configured", nil, `{"key":"samples/a.js"}`, http.StatusBadRequest, map[string]string{"error": "object storage is not configured"}},
		{"unknown key", objects, `{"key":"samples/b.js"}`, http.StatusBadRequest, map[string]string{"error": "object not found: samples/b.js"}},
		{"traversal", objects, `{"key":"../etc/passwd"}`, http.StatusBadRequest, map[string]string{"error": "path traversal detected"}},
		{"empty key", objects, `{}`, http.StatusBadRequest, map[string]string{"error": "key cannot be empty"}},
		{"empty body", objects, ``, http.StatusBadRequest, map[string]string{"error": "request body is empty"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &appanalysis.Service{Classifier: &fakeClassifier{text: safeVerdict}, Instructions: "p", Objects: tt.objects, MaxBytes: 1024}
			h := newTestRouter(t, svc, 1024)

			req := httptest.NewRequest(http.MethodPost, "/analyze/object", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, decodeBody(t, rec))
		})
	}
}
