package vouchervision

import "encoding/json"

const (
	DefaultServerURL = "https://vouchervision-go-738307415303.us-central1.run.app"
	DefaultPrompt    = "SLTPvM_default.yaml"

	processPath    = "/process"
	processURLPath = "/process-url"
)

// DefaultEngines возвращает копию списка движков по умолчанию.
func DefaultEngines() []string {
	return []string{"gemini-1.5-pro", "gemini-2.0-flash"}
}

// File — содержимое файла для загрузки через /process.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Result — JSON ответа сервиса как есть, без разбора.
type Result = json.RawMessage

// Options — параметры запроса. Пустой Engines и пустой Prompt в запрос не попадают.
// Verbose включает отладочный трейс и больше ни на что не влияет.
type Options struct {
	Engines []string
	Prompt  string
	Verbose bool
}

// DefaultOptions — движки и промпт по умолчанию, как в демо-клиентах.
func DefaultOptions() Options {
	return Options{Engines: DefaultEngines(), Prompt: DefaultPrompt}
}

// urlRequest — тело POST /process-url.
type urlRequest struct {
	ImageURL string   `json:"image_url"`
	Engines  []string `json:"engines,omitempty"`
	Prompt   string   `json:"prompt,omitempty"`
}
