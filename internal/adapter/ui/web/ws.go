package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"VoucherVisionClient/internal/adapter/ui"
	"VoucherVisionClient/internal/service/image"
	"VoucherVisionClient/internal/service/vouchervision"
)

const (
	actionProcessURL  = "process-url"
	actionProcessFile = "process-file"

	eventProgress = "progress"
	eventResult   = "result"
	eventError    = "error"

	wsWriteTimeout = 10 * time.Second
)

// wsCommand — сообщение браузера.
// Для process-file содержимое файла приходит в data (base64).
type wsCommand struct {
	Action   string `json:"action"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`
	urlPayload
}

// wsEvent — сообщение браузеру.
type wsEvent struct {
	Type    string               `json:"type"`
	Stage   string               `json:"stage,omitempty"`
	Message string               `json:"message,omitempty"`
	Result  vouchervision.Result `json:"result,omitempty"` // JSON ответа VoucherVision как есть
	Error   *errorBody           `json:"error,omitempty"`
}

// GET /ws
// Команды обрабатываются по одной; прогресс приходит до итогового result/error.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(2 * maxUploadBytes)

	ctx := r.Context()
	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warnw("websocket read error", "error", err)
			}
			return
		}

		send := func(ev wsEvent) bool {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Warnw("websocket write error", "error", err)
				return false
			}
			return true
		}

		var res vouchervision.Result
		switch cmd.Action {
		case actionProcessURL:
			res, err = s.handlers.OnSubmitURLRequested(ctx, ui.URLRequest{
				ImageURL: cmd.ImageURL,
				APIKey:   s.apiKey(cmd.APIKey),
				Options:  cmd.options(s),
			}, func(stage, message string) {
				send(wsEvent{Type: eventProgress, Stage: stage, Message: message})
			})
		case actionProcessFile:
			mimeType := cmd.MimeType
			if mimeType == "" {
				mimeType = image.ContentType(cmd.FileName, cmd.Data)
			}
			res, err = s.handlers.OnSubmitLocalFileRequested(ctx, ui.LocalFileRequest{
				File:    vouchervision.File{Name: cmd.FileName, MimeType: mimeType, Data: cmd.Data},
				APIKey:  s.apiKey(cmd.APIKey),
				Options: cmd.options(s),
			})
		default:
			err = vouchervision.NewValidationError("unknown action %q", cmd.Action)
		}

		ev := wsEvent{Type: eventResult, Result: res}
		if err != nil {
			_, body := errorResponse(err)
			ev = wsEvent{Type: eventError, Error: &body}
		}
		if !send(ev) {
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}
