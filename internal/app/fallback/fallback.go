package fallback

import (
	"context"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"VoucherVisionClient/internal/service/download"
	"VoucherVisionClient/internal/service/image"
	"VoucherVisionClient/internal/service/vouchervision"
)

// DefaultFilename используется, когда в пути ссылки нет последнего сегмента.
const DefaultFilename = "image.jpg"

// Stages, о которых сообщает ProcessImageURL.
const (
	StageDirect     = "direct"
	StageWorkaround = "workaround"
)

// Uploader — путь загрузки файла (/process).
type Uploader interface {
	SubmitLocalFile(ctx context.Context, file vouchervision.File, apiKey string, opts vouchervision.Options) (vouchervision.Result, error)
}

// URLSubmitter — прямой путь по ссылке (/process-url).
type URLSubmitter interface {
	SubmitImageURL(ctx context.Context, imageURL string, apiKey string, opts vouchervision.Options) (vouchervision.Result, error)
}

// Fetcher скачивает изображение-источник.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (download.Object, error)
}

// ProgressFunc получает промежуточные сообщения; может быть nil.
type ProgressFunc func(stage, message string)

// Orchestrator реализует обходной путь: скачать картинку самим и загрузить её как файл.
// Ровно один переход на запасной путь, без повторов и задержек.
type Orchestrator struct {
	direct   URLSubmitter
	uploader Uploader
	fetcher  Fetcher
	logger   *zap.SugaredLogger
}

func New(direct URLSubmitter, uploader Uploader, fetcher Fetcher, logger *zap.SugaredLogger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Orchestrator{direct: direct, uploader: uploader, fetcher: fetcher, logger: logger}
}

// SubmitImageURLWorkaround скачивает imageURL и отправляет байты через SubmitLocalFile
// с теми же ключом и опциями.
func (o *Orchestrator) SubmitImageURLWorkaround(ctx context.Context, imageURL string, apiKey string, opts vouchervision.Options) (vouchervision.Result, error) {
	if err := validate(imageURL, apiKey); err != nil {
		return nil, err
	}
	trace := o.trace(opts)
	trace.Debugw("Using URL download workaround", "url", imageURL)

	obj, err := o.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		trace.Debugw("Image download failed", "url", imageURL, "error", err)
		return nil, err
	}

	name := FilenameFromURL(imageURL)
	mimeType := obj.ContentType
	if strings.TrimSpace(mimeType) == "" {
		mimeType = image.ContentType(name, obj.Data)
	}
	trace.Debugw("Created file from download", "name", name, "type", mimeType, "bytes", len(obj.Data))

	return o.uploader.SubmitLocalFile(ctx, vouchervision.File{Name: name, MimeType: mimeType, Data: obj.Data}, apiKey, opts)
}

// ProcessImageURL сначала пробует /process-url, а при любой его ошибке один раз
// переходит на SubmitImageURLWorkaround. Возвращается результат или ошибка обходного пути.
func (o *Orchestrator) ProcessImageURL(ctx context.Context, imageURL string, apiKey string, opts vouchervision.Options, progress ProgressFunc) (vouchervision.Result, error) {
	if err := validate(imageURL, apiKey); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(string, string) {}
	}

	progress(StageDirect, "Processing image URL...")
	res, err := o.direct.SubmitImageURL(ctx, imageURL, apiKey, opts)
	if err == nil {
		return res, nil
	}

	o.logger.Warnw("Direct URL processing failed, trying workaround", "url", imageURL, "error", err)
	progress(StageWorkaround, "Direct URL processing failed, trying workaround...")
	return o.SubmitImageURLWorkaround(ctx, imageURL, apiKey, opts)
}

func (o *Orchestrator) trace(opts vouchervision.Options) *zap.SugaredLogger {
	if !opts.Verbose {
		return zap.NewNop().Sugar()
	}
	return o.logger
}

func validate(imageURL, apiKey string) error {
	if strings.TrimSpace(imageURL) == "" {
		return vouchervision.NewValidationError("image url is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return vouchervision.NewValidationError("api key is required")
	}
	return nil
}

// FilenameFromURL берёт последний сегмент пути ссылки (без query и fragment).
// Для "https://x.test/dir/" и ссылок без пути возвращает DefaultFilename.
func FilenameFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	if p == "" || strings.HasSuffix(p, "/") {
		return DefaultFilename
	}
	name := path.Base(p)
	if name == "." || name == "/" || name == "" {
		return DefaultFilename
	}
	return name
}
