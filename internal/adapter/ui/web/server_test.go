package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"VoucherVisionClient/internal/adapter/ui"
	"VoucherVisionClient/internal/app/fallback"
	"VoucherVisionClient/internal/service/vouchervision"
)

type fakeHandlers struct {
	mu      sync.Mutex
	fileReq ui.LocalFileRequest
	urlReq  ui.URLRequest
	err     error
}

func (f *fakeHandlers) OnSubmitLocalFileRequested(_ context.Context, req ui.LocalFileRequest) (vouchervision.Result, error) {
	f.mu.Lock()
	f.fileReq = req
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return vouchervision.Result(`{"formatted_json":{"catalogNumber":"123"}}`), nil
}

func (f *fakeHandlers) OnSubmitURLRequested(_ context.Context, req ui.URLRequest, progress ui.ProgressFunc) (vouchervision.Result, error) {
	f.mu.Lock()
	f.urlReq = req
	f.mu.Unlock()
	if progress != nil {
		progress(fallback.StageWorkaround, "Direct URL processing failed, trying workaround...")
	}
	if f.err != nil {
		return nil, f.err
	}
	return vouchervision.Result(`{"ok":true}`), nil
}

func (f *fakeHandlers) lastFile() ui.LocalFileRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fileReq
}

func (f *fakeHandlers) lastURL() ui.URLRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.urlReq
}

func newTestServer(t *testing.T, h ui.Handlers) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Config{
		Defaults: vouchervision.Options{Engines: []string{"gemini-2.0-flash"}, Prompt: "SLTPvM_default.yaml"},
		APIKey:   "server-key",
	}, h, zap.NewNop().Sugar())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestIndexPage(t *testing.T) {
	_, ts := newTestServer(t, &fakeHandlers{})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("status=%d content-type=%q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	for _, id := range []string{"imageInput", "processButton", "imageUrlInput", "processUrlButton", "apiKeyInput", "results", "verboseCheckbox"} {
		if !bytes.Contains(body, []byte(`id="`+id+`"`)) {
			t.Errorf("page has no element %q", id)
		}
	}
}

func multipartBody(t *testing.T, fields map[string][]string, fileName, mimeType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		if mimeType != "" {
			h.Set("Content-Type", mimeType)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(data)
	}
	for k, vs := range fields {
		for _, v := range vs {
			_ = mw.WriteField(k, v)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestProcessUpload(t *testing.T) {
	h := &fakeHandlers{}
	_, ts := newTestServer(t, h)

	body, ct := multipartBody(t, map[string][]string{
		"engines": {"gemini-1.5-pro", "gemini-2.0-flash"},
		"prompt":  {"custom.yaml"},
		"verbose": {"on"},
	}, "label.png", "image/png", []byte("png-bytes"))

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/process", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-API-Key", "browser-key")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	got, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, got)
	}
	if string(got) != `{"formatted_json":{"catalogNumber":"123"}}` {
		t.Fatalf("body = %s", got)
	}

	r := h.lastFile()
	if r.File.Name != "label.png" || r.File.MimeType != "image/png" || string(r.File.Data) != "png-bytes" {
		t.Fatalf("file = %+v", r.File)
	}
	if r.APIKey != "browser-key" {
		t.Fatalf("api key = %q", r.APIKey)
	}
	if !slices.Equal(r.Options.Engines, []string{"gemini-1.5-pro", "gemini-2.0-flash"}) || r.Options.Prompt != "custom.yaml" || !r.Options.Verbose {
		t.Fatalf("options = %+v", r.Options)
	}
}

func TestProcessUploadUsesServerDefaults(t *testing.T) {
	h := &fakeHandlers{}
	_, ts := newTestServer(t, h)

	body, ct := multipartBody(t, nil, "label.jpg", "", []byte{0xFF, 0xD8, 0xFF, 0xE0})
	resp, err := http.Post(ts.URL+"/api/process", ct, body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	r := h.lastFile()
	if r.APIKey != "server-key" {
		t.Fatalf("api key = %q", r.APIKey)
	}
	if r.File.MimeType != "image/jpeg" {
		t.Fatalf("mime = %q", r.File.MimeType)
	}
	if !slices.Equal(r.Options.Engines, []string{"gemini-2.0-flash"}) || r.Options.Prompt != "SLTPvM_default.yaml" || r.Options.Verbose {
		t.Fatalf("options = %+v", r.Options)
	}
}

func TestProcessUploadWithoutFile(t *testing.T) {
	_, ts := newTestServer(t, &fakeHandlers{})

	body, ct := multipartBody(t, map[string][]string{"prompt": {"x"}}, "", "", nil)
	resp, err := http.Post(ts.URL+"/api/process", ct, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var eb errorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	if resp.StatusCode != http.StatusBadRequest || eb.Kind != "validation" {
		t.Fatalf("status=%d body=%+v", resp.StatusCode, eb)
	}
}

func TestProcessURL(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantEngines []string
		wantPrompt  string
		wantKey     string
	}{
		{
			name:        "defaults",
			body:        `{"image_url":"https://x.test/a.jpg"}`,
			wantEngines: []string{"gemini-2.0-flash"},
			wantPrompt:  "SLTPvM_default.yaml",
			wantKey:     "server-key",
		},
		{
			name:        "explicit",
			body:        `{"image_url":"https://x.test/a.jpg","engines":["gemini-1.5-pro"],"prompt":"p.yaml","api_key":"k"}`,
			wantEngines: []string{"gemini-1.5-pro"},
			wantPrompt:  "p.yaml",
			wantKey:     "k",
		},
		{
			name:        "explicitly empty",
			body:        `{"image_url":"https://x.test/a.jpg","engines":[],"prompt":""}`,
			wantEngines: []string{},
			wantPrompt:  "",
			wantKey:     "server-key",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHandlers{}
			_, ts := newTestServer(t, h)

			resp, err := http.Post(ts.URL+"/api/process-url", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			got, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK || string(got) != `{"ok":true}` {
				t.Fatalf("status=%d body=%s", resp.StatusCode, got)
			}

			r := h.lastURL()
			if r.ImageURL != "https://x.test/a.jpg" || r.APIKey != tt.wantKey {
				t.Fatalf("request = %+v", r)
			}
			if !slices.Equal(r.Options.Engines, tt.wantEngines) || r.Options.Prompt != tt.wantPrompt {
				t.Fatalf("options = %+v", r.Options)
			}
		})
	}
}

func TestProcessURLErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		body       string
		wantStatus int
		wantKind   string
	}{
		{"bad json", nil, `{`, http.StatusBadRequest, "validation"},
		{"validation", vouchervision.NewValidationError("image URL is required"), `{}`, http.StatusBadRequest, "validation"},
		{"remote", vouchervision.NewRemoteError(429, "API request failed: 429 - slow down", "slow down"), `{"image_url":"https://x.test/a.jpg"}`, http.StatusBadGateway, "remote"},
		{"transport", vouchervision.NewTransportError("request failed", io.ErrUnexpectedEOF), `{"image_url":"https://x.test/a.jpg"}`, http.StatusBadGateway, "transport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := newTestServer(t, &fakeHandlers{err: tt.err})

			resp, err := http.Post(ts.URL+"/api/process-url", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			var eb errorBody
			if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus || eb.Kind != tt.wantKind || eb.Error == "" {
				t.Fatalf("status=%d body=%+v", resp.StatusCode, eb)
			}
			if tt.name == "remote" && (eb.Status != 429 || eb.Error != "API request failed: 429 - slow down") {
				t.Fatalf("remote error body = %+v", eb)
			}
		})
	}
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

type testEvent struct {
	Type    string          `json:"type"`
	Stage   string          `json:"stage"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
	Error   *errorBody      `json:"error"`
}

func TestWebsocketProcessURL(t *testing.T) {
	h := &fakeHandlers{}
	_, ts := newTestServer(t, h)
	conn := dialWS(t, ts)

	if err := conn.WriteJSON(map[string]any{"action": "process-url", "image_url": "https://x.test/a.jpg", "api_key": "k"}); err != nil {
		t.Fatal(err)
	}

	var progress, result testEvent
	if err := conn.ReadJSON(&progress); err != nil {
		t.Fatal(err)
	}
	if progress.Type != eventProgress || progress.Stage != fallback.StageWorkaround || progress.Message == "" {
		t.Fatalf("progress = %+v", progress)
	}
	if err := conn.ReadJSON(&result); err != nil {
		t.Fatal(err)
	}
	if result.Type != eventResult || string(result.Result) != `{"ok":true}` {
		t.Fatalf("result = %+v", result)
	}
	if r := h.lastURL(); r.APIKey != "k" || r.ImageURL != "https://x.test/a.jpg" {
		t.Fatalf("request = %+v", r)
	}
}

func TestWebsocketProcessFile(t *testing.T) {
	h := &fakeHandlers{}
	_, ts := newTestServer(t, h)
	conn := dialWS(t, ts)

	// []byte кодируется в base64, как это делает страница
	cmd := wsCommand{Action: actionProcessFile, FileName: "photo.png", Data: []byte("\x89PNG\r\n\x1a\n")}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatal(err)
	}

	var ev testEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != eventResult {
		t.Fatalf("event = %+v", ev)
	}
	r := h.lastFile()
	if r.File.Name != "photo.png" || r.File.MimeType != "image/png" || string(r.File.Data) != "\x89PNG\r\n\x1a\n" {
		t.Fatalf("file = %+v", r.File)
	}
	if r.APIKey != "server-key" {
		t.Fatalf("api key = %q", r.APIKey)
	}
}

func TestWebsocketErrors(t *testing.T) {
	h := &fakeHandlers{err: vouchervision.NewRemoteError(500, "API request failed: 500 - boom", "boom")}
	_, ts := newTestServer(t, h)
	conn := dialWS(t, ts)

	_ = conn.WriteJSON(map[string]any{"action": "dance"})
	var ev testEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != eventError || ev.Error == nil || ev.Error.Kind != "validation" {
		t.Fatalf("unknown action event = %+v", ev)
	}

	// соединение живо после ошибки
	_ = conn.WriteJSON(map[string]any{"action": "process-url", "image_url": "https://x.test/a.jpg"})
	var progress testEvent
	if err := conn.ReadJSON(&progress); err != nil || progress.Type != eventProgress {
		t.Fatalf("progress = %+v, %v", progress, err)
	}
	ev = testEvent{}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != eventError || ev.Error == nil || ev.Error.Kind != "remote" || ev.Error.Status != 500 {
		t.Fatalf("remote error event = %+v", ev)
	}
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	s := New(Config{AllowedOrigins: []string{"http://allowed.test"}}, &fakeHandlers{}, zap.NewNop().Sugar())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	hdr := http.Header{"Origin": {"http://evil.test"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", hdr)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestStartStop(t *testing.T) {
	s := New(Config{BindAddr: "127.0.0.1:0"}, &fakeHandlers{}, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if strings.HasSuffix(s.Addr(), ":0") {
		t.Fatalf("addr was not resolved: %s", s.Addr())
	}

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("health = %q", body)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// повторный Stop — no-op
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
