package render

import (
	"bytes"
	"testing"

	"VoucherVisionClient/internal/service/vouchervision"
)

const sample = `{"filename":"KHD00041592_lg","ocr_info":{"gemini-1.5-pro":{"tokens_in":10}}}`

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, vouchervision.Result(sample), "json"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	want := "{\n  \"filename\": \"KHD00041592_lg\",\n  \"ocr_info\": {\n    \"gemini-1.5-pro\": {\n      \"tokens_in\": 10\n    }\n  }\n}\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, vouchervision.Result(sample), "yaml"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	want := "filename: KHD00041592_lg\nocr_info:\n  gemini-1.5-pro:\n    tokens_in: 10\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, vouchervision.Result(`{}`), "xml"); err == nil {
		t.Fatalf("expected error")
	}
}
