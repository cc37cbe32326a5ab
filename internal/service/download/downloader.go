package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"VoucherVisionClient/internal/service/vouchervision"
)

const defaultMaxSize = 50 << 20 // 50 МБ

// Object — скачанное изображение.
type Object struct {
	Data        []byte
	ContentType string // как прислал источник; может быть пустым
}

// Downloader скачивает изображение по ссылке одним GET-запросом, без повторов.
type Downloader struct {
	client  *http.Client
	maxSize int64
	logger  *zap.SugaredLogger
}

// New создаёт загрузчик. maxSize <= 0 — 50 МБ; timeout <= 0 — без таймаута.
func New(maxSize int64, timeout time.Duration, logger *zap.SugaredLogger) *Downloader {
	return NewWithHTTPClient(&http.Client{Timeout: timeout}, maxSize, logger)
}

func NewWithHTTPClient(client *http.Client, maxSize int64, logger *zap.SugaredLogger) *Downloader {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Downloader{client: client, maxSize: maxSize, logger: logger}
}

// Fetch выполняет GET и возвращает тело. Ошибки — *vouchervision.ClientError:
// сеть — KindTransport, не-2xx и слишком большой/пустой ответ — KindRemote.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (Object, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Object{}, vouchervision.NewValidationError("invalid image url %q: must be http:// or https://", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Object{}, fmt.Errorf("create request: %w", err)
	}

	started := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return Object{}, vouchervision.NewTransportError("failed to fetch image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Object{}, vouchervision.NewRemoteError(resp.StatusCode,
			fmt.Sprintf("failed to fetch image: %d", resp.StatusCode), strings.TrimSpace(string(b)))
	}
	if resp.ContentLength > d.maxSize {
		return Object{}, vouchervision.NewRemoteError(resp.StatusCode,
			fmt.Sprintf("image too large: %d bytes (max: %d)", resp.ContentLength, d.maxSize), "")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return Object{}, vouchervision.NewTransportError("failed to read image body", err)
	}
	if int64(len(data)) > d.maxSize {
		return Object{}, vouchervision.NewRemoteError(resp.StatusCode,
			fmt.Sprintf("image too large: more than %d bytes", d.maxSize), "")
	}
	if len(data) == 0 {
		return Object{}, vouchervision.NewRemoteError(resp.StatusCode, "downloaded image is empty", "")
	}

	d.logger.Debugw("Image downloaded",
		"url", truncateURL(u.String()),
		"bytes", len(data),
		"type", resp.Header.Get("Content-Type"),
		"took", time.Since(started).String(),
	)
	return Object{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

func truncateURL(s string) string {
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}
