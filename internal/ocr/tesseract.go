package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Tesseract runs the tesseract command line tool.
type Tesseract struct {
	Path string
	// Lang is passed as -l when set.
	Lang string
}

// Recognize pipes pngData to tesseract on stdin and returns its stdout.
func (t Tesseract) Recognize(ctx context.Context, pngData []byte) (string, error) {
	args := []string{"stdin", "stdout"}
	if t.Lang != "" {
		args = append(args, "-l", t.Lang)
	}

	cmd := exec.CommandContext(ctx, t.Path, args...) //nolint:gosec // path comes from operator config
	cmd.Stdin = bytes.NewReader(pngData)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("run %s: %w: %s", t.Path, err, msg)
		}
		return "", fmt.Errorf("run %s: %w", t.Path, err)
	}
	return stdout.String(), nil
}
