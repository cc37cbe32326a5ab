package vouchervision

import (
	"errors"
	"fmt"
)

// Kind — категория ошибки клиента.
type Kind int

const (
	KindValidation Kind = iota + 1 // не выполнено предусловие, сеть не трогали
	KindTransport                  // сетевая ошибка до сервиса или до источника картинки
	KindRemote                     // ответ не 2xx (или 2xx с невалидным JSON)
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Сентинелы для errors.Is: errors.Is(err, ErrRemote) сработает на любой *ClientError с KindRemote.
var (
	ErrValidation = errors.New("validation error")
	ErrTransport  = errors.New("transport error")
	ErrRemote     = errors.New("remote error")
)

// ClientError — единый тип ошибки, который видит вызывающая сторона.
type ClientError struct {
	Kind       Kind
	StatusCode int    // HTTP статус; 0, если ответа не было
	Message    string // человекочитаемое сообщение
	Body       string // сырое тело ответа (для KindRemote)
	Err        error  // исходная ошибка транспорта, если есть
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error { return e.Err }

// Is сопоставляет ошибку с сентинелом по её Kind.
func (e *ClientError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrRemote:
		return e.Kind == KindRemote
	}
	return false
}

func NewValidationError(format string, args ...any) *ClientError {
	return &ClientError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewTransportError(message string, cause error) *ClientError {
	return &ClientError{Kind: KindTransport, Message: message, Err: cause}
}

func NewRemoteError(status int, message, body string) *ClientError {
	return &ClientError{Kind: KindRemote, StatusCode: status, Message: message, Body: body}
}

// AsClientError достаёт *ClientError из цепочки; ok=false для посторонних ошибок.
func AsClientError(err error) (*ClientError, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
