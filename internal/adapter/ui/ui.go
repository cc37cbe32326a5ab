package ui

import (
	"context"

	"VoucherVisionClient/internal/service/vouchervision"
)

// LocalFileRequest — пользователь выбрал файл и нажал «обработать».
type LocalFileRequest struct {
	File    vouchervision.File
	APIKey  string
	Options vouchervision.Options
}

// URLRequest — пользователь ввёл ссылку на изображение.
type URLRequest struct {
	ImageURL string
	APIKey   string
	Options  vouchervision.Options
}

// ProgressFunc получает промежуточные статусы (например, переход на обходной путь).
type ProgressFunc func(stage, message string)

// Handlers — колбэки, которые UI вызывает на действия пользователя.
// Реализация живёт в ядре, UI только передаёт ввод и показывает JSON или текст ошибки.
type Handlers interface {
	OnSubmitLocalFileRequested(ctx context.Context, req LocalFileRequest) (vouchervision.Result, error)
	OnSubmitURLRequested(ctx context.Context, req URLRequest, progress ProgressFunc) (vouchervision.Result, error)
}

// Server описывает UI, принимающий запросы по сети (браузерное демо).
type Server interface {
	// Start запускает сервер в отдельной горутине и немедленно возвращается.
	// Должен реагировать на отмену контекста и завершать работу.
	Start(ctx context.Context) error

	// Stop инициирует graceful shutdown с использованием контекста.
	Stop(ctx context.Context) error

	// Addr возвращает адрес, на котором слушает сервер.
	Addr() string
}
