package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"VoucherVisionClient/internal/service/vouchervision"
)

// Write печатает результат в человекочитаемом виде: json (с отступами) или yaml.
func Write(w io.Writer, res vouchervision.Result, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, res, "", "  "); err != nil {
			return fmt.Errorf("format json: %w", err)
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(w)
		return err
	case "yaml", "yml":
		var v any
		if err := json.Unmarshal(res, &v); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("format yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
