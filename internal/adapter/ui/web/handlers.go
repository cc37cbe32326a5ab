package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"VoucherVisionClient/internal/adapter/ui"
	"VoucherVisionClient/internal/service/image"
	"VoucherVisionClient/internal/service/vouchervision"
)

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap переводит ошибку обработчика в JSON ответ.
func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, err)
		}
	}
}

// errorBody — ответ браузеру при ошибке.
type errorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Status int    `json:"status,omitempty"` // статус ответа VoucherVision или источника картинки
}

func errorResponse(err error) (int, errorBody) {
	ce, ok := vouchervision.AsClientError(err)
	if !ok {
		return http.StatusInternalServerError, errorBody{Error: err.Error(), Kind: "internal"}
	}
	body := errorBody{Error: ce.Error(), Kind: ce.Kind.String(), Status: ce.StatusCode}
	switch ce.Kind {
	case vouchervision.KindValidation:
		return http.StatusBadRequest, body
	default:
		return http.StatusBadGateway, body
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, body := errorResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeResult(w http.ResponseWriter, res vouchervision.Result) error {
	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write(res)
	return err
}

// POST /api/process
// multipart: file, engines (повторяется), prompt, verbose, api_key; ключ также из X-API-Key.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return vouchervision.NewValidationError("file is too large (max %d bytes)", maxUploadBytes)
		}
		return vouchervision.NewValidationError("invalid multipart form: %v", err)
	}
	defer r.MultipartForm.RemoveAll()

	f, fh, err := r.FormFile("file")
	if err != nil {
		return vouchervision.NewValidationError("please select a file first")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return vouchervision.NewValidationError("read uploaded file: %v", err)
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = image.ContentType(fh.Filename, data)
	}

	form := r.MultipartForm.Value
	opts := s.options(form["engines"], hasKey(form, "engines"), first(form["prompt"]), hasKey(form, "prompt"), parseBool(first(form["verbose"])))

	res, err := s.handlers.OnSubmitLocalFileRequested(r.Context(), ui.LocalFileRequest{
		File:    vouchervision.File{Name: fh.Filename, MimeType: mimeType, Data: data},
		APIKey:  s.apiKey(r.Header.Get("X-API-Key"), first(form["api_key"])),
		Options: opts,
	})
	if err != nil {
		return err
	}
	return writeResult(w, res)
}

// urlPayload — тело POST /api/process-url и команды websocket.
// Указатели отличают «поле не передано» (берём дефолт) от «передано пустым».
type urlPayload struct {
	ImageURL string    `json:"image_url"`
	Engines  *[]string `json:"engines,omitempty"`
	Prompt   *string   `json:"prompt,omitempty"`
	Verbose  bool      `json:"verbose,omitempty"`
	APIKey   string    `json:"api_key,omitempty"`
}

func (p urlPayload) options(s *Server) vouchervision.Options {
	var engines []string
	if p.Engines != nil {
		engines = *p.Engines
	}
	var prompt string
	if p.Prompt != nil {
		prompt = *p.Prompt
	}
	return s.options(engines, p.Engines != nil, prompt, p.Prompt != nil, p.Verbose)
}

// POST /api/process-url
// Body: {"image_url": "...", "engines": [...], "prompt": "...", "verbose": true}
func (s *Server) handleProcessURL(w http.ResponseWriter, r *http.Request) error {
	var body urlPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
		return vouchervision.NewValidationError("invalid json body: %v", err)
	}

	res, err := s.handlers.OnSubmitURLRequested(r.Context(), ui.URLRequest{
		ImageURL: body.ImageURL,
		APIKey:   s.apiKey(r.Header.Get("X-API-Key"), body.APIKey),
		Options:  body.options(s),
	}, func(stage, message string) {
		s.logger.Infow("Progress", "stage", stage, "message", message)
	})
	if err != nil {
		return err
	}
	return writeResult(w, res)
}

// options собирает параметры запроса: то, что прислал браузер, иначе дефолты сервера.
func (s *Server) options(engines []string, hasEngines bool, prompt string, hasPrompt bool, verbose bool) vouchervision.Options {
	opts := vouchervision.Options{
		Engines: append([]string(nil), s.cfg.Defaults.Engines...),
		Prompt:  s.cfg.Defaults.Prompt,
		Verbose: verbose || s.cfg.Defaults.Verbose,
	}
	if hasEngines {
		opts.Engines = opts.Engines[:0]
		for _, e := range engines {
			if e = strings.TrimSpace(e); e != "" {
				opts.Engines = append(opts.Engines, e)
			}
		}
	}
	if hasPrompt {
		opts.Prompt = strings.TrimSpace(prompt)
	}
	return opts
}

func (s *Server) apiKey(candidates ...string) string {
	for _, k := range candidates {
		if k = strings.TrimSpace(k); k != "" {
			return k
		}
	}
	return s.cfg.APIKey
}

func hasKey(form map[string][]string, key string) bool {
	_, ok := form[key]
	return ok
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

func parseBool(v string) bool {
	if v == "on" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
