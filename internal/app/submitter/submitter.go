package submitter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"VoucherVisionClient/internal/adapter/ui"
	"VoucherVisionClient/internal/app/fallback"
	"VoucherVisionClient/internal/service/vouchervision"
)

// Ensure interface compliance
var _ ui.Handlers = (*Submitter)(nil)

// URLProcessor — прямой запрос по ссылке с переходом на обходной путь.
type URLProcessor interface {
	ProcessImageURL(ctx context.Context, imageURL string, apiKey string, opts vouchervision.Options, progress fallback.ProgressFunc) (vouchervision.Result, error)
}

// Submitter реализует колбэки UI: присваивает запросу ID, пишет в лог и отдаёт работу клиенту.
type Submitter struct {
	files  fallback.Uploader
	urls   URLProcessor
	logger *zap.SugaredLogger
}

func New(files fallback.Uploader, urls URLProcessor, logger *zap.SugaredLogger) *Submitter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Submitter{files: files, urls: urls, logger: logger}
}

// OnSubmitLocalFileRequested отправляет выбранный файл на /process.
func (s *Submitter) OnSubmitLocalFileRequested(ctx context.Context, req ui.LocalFileRequest) (vouchervision.Result, error) {
	log := s.logger.With("request_id", uuid.NewString())
	log.Infow("Отправка файла..", "file", req.File.Name, "bytes", len(req.File.Data), "engines", req.Options.Engines)

	start := time.Now()
	res, err := s.files.SubmitLocalFile(ctx, req.File, req.APIKey, req.Options)
	s.logResult(log, start, err)
	return res, err
}

// OnSubmitURLRequested отправляет ссылку; при ошибке /process-url один раз пробует обходной путь.
func (s *Submitter) OnSubmitURLRequested(ctx context.Context, req ui.URLRequest, progress ui.ProgressFunc) (vouchervision.Result, error) {
	log := s.logger.With("request_id", uuid.NewString())
	log.Infow("Отправка ссылки..", "url", req.ImageURL, "engines", req.Options.Engines)

	start := time.Now()
	res, err := s.urls.ProcessImageURL(ctx, req.ImageURL, req.APIKey, req.Options, fallback.ProgressFunc(progress))
	s.logResult(log, start, err)
	return res, err
}

func (s *Submitter) logResult(log *zap.SugaredLogger, start time.Time, err error) {
	dur := time.Since(start)
	if err == nil {
		log.Infow("Ответ VoucherVision получен", "duration", dur.String())
		return
	}
	if ce, ok := vouchervision.AsClientError(err); ok {
		log.Errorw("Ошибка запроса VoucherVision", "duration", dur.String(), "kind", ce.Kind.String(), "status", ce.StatusCode, "error", err)
		return
	}
	log.Errorw("Ошибка запроса VoucherVision", "duration", dur.String(), "error", err)
}
