package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/himanishpuri/QuizMix/pkg/logger"
	"github.com/himanishpuri/QuizMix/pkg/quizmix"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/audio"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/prompts"
)

type stubPrompts struct{}

func (stubPrompts) Fetch(_ context.Context, n int) (*prompts.Clip, error) {
	return &prompts.Clip{N: n, Name: fmt.Sprintf(prompts.DefaultPattern, n), Data: []byte(fmt.Sprintf("Q%d", n))}, nil
}

type joinMixer struct{}

func (joinMixer) Mix(_ context.Context, inputs []audio.Input) (*audio.Output, error) {
	var buf bytes.Buffer
	for i, in := range inputs {
		if i > 0 {
			buf.WriteByte('|')
		}
		buf.Write(in.Data)
	}
	return &audio.Output{Data: buf.Bytes(), Format: audio.FormatMP3, ContentType: "audio/mpeg"}, nil
}

func setupTestServer(t *testing.T) http.Handler {
	t.Helper()
	return newTestServer(t, &ServerConfig{AllowedOrigins: []string{"*"}, MaxRequestBytes: 1 << 20})
}

func newTestServer(t *testing.T, cfg *ServerConfig, opts ...quizmix.Option) http.Handler {
	t.Helper()

	base := []quizmix.Option{
		quizmix.WithLogger(logger.Discard()),
		quizmix.WithPromptSource(stubPrompts{}),
		quizmix.WithMixer(joinMixer{}),
		quizmix.WithIngestConcurrency(1),
	}
	svc, err := quizmix.NewService(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	s := NewServer(svc, cfg)
	s.log = logger.Discard()
	return s.setupRoutes()
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", nil, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d", rec.Code)
	}
	return decode[SessionResponse](t, rec).ID
}

type part struct {
	name string
	data string
}

func uploadFiles(t *testing.T, h http.Handler, id string, parts ...part) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := mw.CreateFormFile("files", p.name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write([]byte(p.data))
	}
	mw.Close()
	return do(t, h, http.MethodPost, "/api/sessions/"+id+"/clips", &body, mw.FormDataContentType())
}

func names(items []ItemDTO) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestHandleRootAndHealth(t *testing.T) {
	h := setupTestServer(t)

	if rec := do(t, h, http.MethodGet, "/", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("GET / = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/nope", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/health", nil, "")
	health := decode[HealthResponse](t, rec)
	if health.Status != "healthy" {
		t.Errorf("health = %+v", health)
	}
}

func TestUploadDuplicateScenario(t *testing.T) {
	h := setupTestServer(t)
	id := createSession(t, h)

	rec := uploadFiles(t, h, id,
		part{"b.mp3", "bbbb"},
		part{"a.mp3", "aaaa"},
		part{"b.mp3", "bbbb"},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[UploadResponse](t, rec)

	if resp.Accepted != 2 || resp.Duplicates != 1 || resp.Count != 2 {
		t.Errorf("unexpected upload response %+v", resp)
	}
	if got := strings.Join(names(resp.Items), ","); got != "b.mp3,a.mp3" {
		t.Errorf("items = %s", got)
	}
	if len(resp.Notices) != 1 || resp.Notices[0].Kind != "duplicate" || resp.Notices[0].DurationMs != 2000 {
		t.Errorf("unexpected notices %+v", resp.Notices)
	}

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/sort?confirm=true", nil, "")
	sorted := decode[SessionResponse](t, rec)
	if got := strings.Join(names(sorted.Items), ","); got != "a.mp3,b.mp3" {
		t.Errorf("after sort = %s", got)
	}
}

func TestUploadOversizedFileFailsAlone(t *testing.T) {
	h := newTestServer(t,
		&ServerConfig{AllowedOrigins: []string{"*"}, MaxRequestBytes: 1 << 20},
		quizmix.WithMaxUploadBytes(1024),
	)
	id := createSession(t, h)

	rec := uploadFiles(t, h, id,
		part{"ok.mp3", "small"},
		part{"big.mp3", strings.Repeat("x", 2048)},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[UploadResponse](t, rec)

	if resp.Accepted != 1 || resp.Failed != 1 {
		t.Errorf("accepted/failed = %d/%d, want 1/1", resp.Accepted, resp.Failed)
	}
	if got := strings.Join(names(resp.Items), ","); got != "ok.mp3" {
		t.Errorf("items = %s, want ok.mp3", got)
	}
	if len(resp.Notices) != 1 || resp.Notices[0].Kind != "ingest_failed" || resp.Notices[0].FileName != "big.mp3" {
		t.Errorf("unexpected notices %+v", resp.Notices)
	}
}

func TestUploadOverRequestCap(t *testing.T) {
	h := newTestServer(t, &ServerConfig{AllowedOrigins: []string{"*"}, MaxRequestBytes: 512})
	id := createSession(t, h)

	rec := uploadFiles(t, h, id, part{"big.mp3", strings.Repeat("x", 4096)})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestUploadRequiresFiles(t *testing.T) {
	h := setupTestServer(t)
	id := createSession(t, h)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("note", "no files")
	mw.Close()

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/clips", &body, mw.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestConfirmationRequired(t *testing.T) {
	h := setupTestServer(t)
	id := createSession(t, h)
	uploadFiles(t, h, id, part{"a.mp3", "a"})

	tests := []struct {
		method, path, question string
	}{
		{http.MethodPost, "/api/sessions/" + id + "/sort", quizmix.SortQuestion},
		{http.MethodDelete, "/api/sessions/" + id + "/clips", quizmix.ClearQuestion},
	}
	for _, tt := range tests {
		rec := do(t, h, tt.method, tt.path, nil, "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("%s %s = %d, want 409", tt.method, tt.path, rec.Code)
		}
		if resp := decode[ConfirmationResponse](t, rec); resp.Question != tt.question {
			t.Errorf("question = %q, want %q", resp.Question, tt.question)
		}
	}

	rec := do(t, h, http.MethodGet, "/api/sessions/"+id, nil, "")
	if resp := decode[SessionResponse](t, rec); resp.Count != 1 {
		t.Errorf("unconfirmed clear removed items: %+v", resp)
	}

	rec = do(t, h, http.MethodDelete, "/api/sessions/"+id+"/clips?confirm=true", nil, "")
	if resp := decode[SessionResponse](t, rec); resp.Count != 0 || resp.CanConcatenate {
		t.Errorf("confirmed clear left %+v", resp)
	}
}

func TestReorder(t *testing.T) {
	h := setupTestServer(t)
	id := createSession(t, h)
	uploadFiles(t, h, id, part{"0.mp3", "0"}, part{"1.mp3", "1"}, part{"2.mp3", "2"})

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/reorder", strings.NewReader(`{"from":0,"to":9}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("reorder: status %d", rec.Code)
	}
	resp := decode[ReorderResponse](t, rec)
	if resp.From != 0 || resp.To != 2 {
		t.Errorf("applied (%d,%d), want (0,2)", resp.From, resp.To)
	}
	if got := strings.Join(names(resp.Items), ","); got != "1.mp3,2.mp3,0.mp3" {
		t.Errorf("items = %s", got)
	}

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/reorder", strings.NewReader(`{"from":1}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing index: status %d, want 400", rec.Code)
	}
}

func TestPreview(t *testing.T) {
	h := setupTestServer(t)
	id := createSession(t, h)
	resp := decode[UploadResponse](t, uploadFiles(t, h, id, part{"a.mp3", "ID3 payload"}))

	rec := do(t, h, http.MethodGet, resp.Items[0].PreviewURL, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: status %d", rec.Code)
	}
	if rec.Body.String() != "ID3 payload" {
		t.Errorf("preview body = %q", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id+"/clips/0000/audio", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown clip: status %d, want 404", rec.Code)
	}
}

func TestConcatenateAndDownload(t *testing.T) {
	h := setupTestServer(t)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/concatenate", nil, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("empty concatenate: status %d, want 204", rec.Code)
	}

	uploadFiles(t, h, id, part{"a.mp3", "A"}, part{"b.mp3", "B"})

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/concatenate", nil, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("concatenate: status %d: %s", rec.Code, rec.Body.String())
	}
	exp := decode[ExportResponse](t, rec)
	if exp.Segments != 4 {
		t.Errorf("segments = %d", exp.Segments)
	}

	rec = do(t, h, http.MethodGet, exp.DownloadURL, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download: status %d", rec.Code)
	}
	if rec.Body.String() != "Q1|A|Q2|B" {
		t.Errorf("download body = %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") || !strings.Contains(cd, exp.FileName) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	if rec := do(t, h, http.MethodGet, "/api/exports/unknown", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown export: status %d", rec.Code)
	}
}

func TestUnknownSession(t *testing.T) {
	h := setupTestServer(t)

	for _, path := range []string{"/api/sessions/missing", "/api/sessions/missing/clips/abc/audio"} {
		if rec := do(t, h, http.MethodGet, path, nil, ""); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodDelete, "/api/sessions/missing", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("DELETE unknown session = %d", rec.Code)
	}
}

func TestEndSession(t *testing.T) {
	h := setupTestServer(t)
	id := createSession(t, h)

	if rec := do(t, h, http.MethodDelete, "/api/sessions/"+id, nil, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("end session: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/sessions/"+id, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("ended session still reachable: %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	svc, err := quizmix.NewService(quizmix.WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	defer svc.Close()

	s := NewServer(svc, &ServerConfig{AllowedOrigins: []string{"http://localhost:4200"}})
	s.log = logger.Discard()
	h := s.setupRoutes()

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q", got)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := getClientIP(req); got != "10.0.0.1" {
		t.Errorf("RemoteAddr ip = %s", got)
	}
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := getClientIP(req); got != "1.2.3.4" {
		t.Errorf("X-Forwarded-For ip = %s", got)
	}
}
