package ocr

import (
	"context"
	"testing"
)

func TestTesseractMissingBinary(t *testing.T) {
	tess := Tesseract{Path: "/nonexistent/bin/tesseract"}
	if _, err := tess.Recognize(context.Background(), []byte("png")); err == nil {
		t.Fatal("expected error for missing binary, got nil")
	}
}
