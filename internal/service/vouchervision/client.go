package vouchervision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Ограничение на размер читаемого ответа сервиса.
const maxResponseBytes = 32 << 20

// Settings — параметры подключения к сервису.
type Settings struct {
	ServerURL  string
	AuthScheme AuthScheme
	Timeout    time.Duration // 0 — без таймаута, как у транспорта по умолчанию
}

// Client отправляет изображения в VoucherVision API и возвращает JSON ответа.
// Клиент не хранит состояния между вызовами.
type Client struct {
	http      *http.Client
	serverURL string
	auth      AuthScheme
	logger    *zap.SugaredLogger
}

func New(s Settings, logger *zap.SugaredLogger) *Client {
	return NewWithHTTPClient(s, &http.Client{Timeout: s.Timeout}, logger)
}

// NewWithHTTPClient позволяет подставить свой http.Client (например, в тестах).
func NewWithHTTPClient(s Settings, hc *http.Client, logger *zap.SugaredLogger) *Client {
	serverURL := strings.TrimRight(strings.TrimSpace(s.ServerURL), "/")
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	if s.AuthScheme == "" {
		s.AuthScheme = AuthAPIKey
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{http: hc, serverURL: serverURL, auth: s.AuthScheme, logger: logger}
}

// ServerURL — базовый адрес сервиса без завершающего слэша.
func (c *Client) ServerURL() string { return c.serverURL }

// SubmitLocalFile загружает файл multipart-запросом на /process.
func (c *Client) SubmitLocalFile(ctx context.Context, file File, apiKey string, opts Options) (Result, error) {
	if len(file.Data) == 0 {
		return nil, NewValidationError("file is required and must not be empty")
	}
	if strings.TrimSpace(file.Name) == "" {
		return nil, NewValidationError("file name is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, NewValidationError("api key is required")
	}

	trace := c.trace(opts)
	endpoint := c.serverURL + processPath
	trace.Debugw("Processing local file", "file", file.Name, "endpoint", endpoint)

	body, contentType, err := buildMultipart(file, opts)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if len(opts.Engines) > 0 {
		trace.Debugw("Using engines", "engines", opts.Engines)
	}
	if opts.Prompt != "" {
		trace.Debugw("Using prompt", "prompt", opts.Prompt)
	}
	trace.Debugw("File details", "name", file.Name, "type", file.MimeType, "bytes", len(file.Data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	return c.do(req, apiKey, trace)
}

// SubmitImageURL отправляет ссылку на изображение JSON-запросом на /process-url.
func (c *Client) SubmitImageURL(ctx context.Context, imageURL string, apiKey string, opts Options) (Result, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, NewValidationError("image url is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, NewValidationError("api key is required")
	}

	trace := c.trace(opts)
	endpoint := c.serverURL + processURLPath
	trace.Debugw("Processing image URL", "url", imageURL, "endpoint", endpoint)

	payload := urlRequest{ImageURL: imageURL, Prompt: opts.Prompt}
	if len(opts.Engines) > 0 {
		payload.Engines = opts.Engines
	}
	raw, err := json.Marshal(&payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	trace.Debugw("Request data", "body", string(raw))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, apiKey, trace)
}

// do выполняет запрос и приводит ответ к контракту Result/ClientError.
func (c *Client) do(req *http.Request, apiKey string, trace *zap.SugaredLogger) (Result, error) {
	hc := authorizedClient(c.http, c.auth, apiKey, req)

	started := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		trace.Debugw("Request failed", "endpoint", req.URL.String(), "error", err)
		return nil, NewTransportError("request to "+req.URL.Path+" failed", err)
	}
	defer resp.Body.Close()

	trace.Debugw("Response received",
		"status", resp.StatusCode,
		"headers", resp.Header,
		"took", time.Since(started).String(),
	)

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, NewTransportError("read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := strings.TrimSpace(string(b))
		if text == "" {
			text = resp.Status
		}
		trace.Debugw("Request failed", "status", resp.StatusCode, "body", text)
		return nil, NewRemoteError(resp.StatusCode, fmt.Sprintf("API request failed: %d - %s", resp.StatusCode, text), text)
	}

	if !json.Valid(b) {
		return nil, NewRemoteError(resp.StatusCode, "API response is not valid JSON", string(b))
	}
	trace.Debugw("Request successful", "bytes", len(b))
	return Result(b), nil
}

// trace — логгер для подробного вывода; без Verbose ничего не пишет.
func (c *Client) trace(opts Options) *zap.SugaredLogger {
	if !opts.Verbose {
		return zap.NewNop().Sugar()
	}
	return c.logger
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// buildMultipart собирает тело: file, затем engines по одному полю на движок, затем prompt.
func buildMultipart(file File, opts Options) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}

	for _, engine := range opts.Engines {
		if err := w.WriteField("engines", engine); err != nil {
			return nil, "", err
		}
	}
	if opts.Prompt != "" {
		if err := w.WriteField("prompt", opts.Prompt); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
