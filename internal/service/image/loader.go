package image

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"VoucherVisionClient/internal/service/vouchervision"
)

// Load читает файл с диска и готовит его к загрузке через /process.
// Отсутствующий, нечитаемый или пустой файл — ошибка валидации: до сети дело не доходит.
func Load(path string) (vouchervision.File, error) {
	if strings.TrimSpace(path) == "" {
		return vouchervision.File{}, vouchervision.NewValidationError("file path is required")
	}
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return vouchervision.File{}, vouchervision.NewValidationError("file not found: %s", path)
		}
		return vouchervision.File{}, vouchervision.NewValidationError("file is not readable: %v", err)
	}
	if fi.IsDir() {
		return vouchervision.File{}, vouchervision.NewValidationError("path is a directory: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return vouchervision.File{}, vouchervision.NewValidationError("file is not readable: %v", err)
	}
	if len(data) == 0 {
		return vouchervision.File{}, vouchervision.NewValidationError("image file is empty: %s", path)
	}

	name := filepath.Base(path)
	return vouchervision.File{
		Name:     name,
		MimeType: ContentType(name, data),
		Data:     data,
	}, nil
}

// ContentType определяет MIME тип по расширению, а если оно неизвестно — по содержимому.
func ContentType(name string, data []byte) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			// без параметров вида "; charset=utf-8"
			if mt, _, err := mime.ParseMediaType(t); err == nil {
				return mt
			}
			return t
		}
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	mt, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return mt
}
