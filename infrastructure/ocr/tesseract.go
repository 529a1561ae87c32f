package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"
	"time"
)

// Tesseract runs the tesseract command line in single-line mode, feeding a
// PNG on stdin and reading the text from stdout.
type Tesseract struct {
	// Path is the executable; "tesseract" from PATH when empty.
	Path string
	// Args follow the stdin/stdout placeholders.
	Args    []string
	Timeout time.Duration
}

// NewTesseract returns a reader using page segmentation mode 7 (one line).
func NewTesseract(timeout time.Duration) *Tesseract {
	return &Tesseract{
		Path:    "tesseract",
		Args:    []string{"--psm", "7"},
		Timeout: timeout,
	}
}

// ReadText encodes img and runs tesseract on it.
func (t *Tesseract) ReadText(img image.Image) (string, error) {
	ctx := context.Background()
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	return t.ReadTextContext(ctx, img)
}

// ReadTextContext is ReadText bounded by ctx.
func (t *Tesseract) ReadTextContext(ctx context.Context, img image.Image) (string, error) {
	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	path := t.Path
	if path == "" {
		path = "tesseract"
	}
	args := append([]string{"-", "-"}, t.Args...)

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = &in
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to run %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

var _ Reader = (*Tesseract)(nil)
