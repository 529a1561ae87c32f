// Package capture provides frame sources that do not need a browser: still
// images for offline testing, plus the screenshot and preview-key handling
// shared with the OpenCV capture device.
package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"autopad-go/domain/frame"
)

// Config holds capture device settings.
type Config struct {
	// Device is the video device index.
	Device int
	Width  int
	Height int
	// Show opens the preview window.
	Show bool
	// Window is the preview window title.
	Window string
	// ScreenshotDir receives screenshots taken with the preview key.
	ScreenshotDir string
}

// DefaultConfig requests 1280x720 from device 0 with a preview window.
func DefaultConfig() *Config {
	return &Config{
		Device:        0,
		Width:         frame.CanonicalWidth,
		Height:        frame.CanonicalHeight,
		Show:          true,
		Window:        "game",
		ScreenshotDir: ".",
	}
}

// Preview keys.
const (
	KeyQuit       = 'q'
	KeyScreenshot = 's'
)

// KeyAction is what a preview key press asks for.
type KeyAction int

const (
	KeyNone KeyAction = iota
	KeyActionQuit
	KeyActionScreenshot
)

// ParseKey maps a raw window key code to an action.
func ParseKey(code int) KeyAction {
	if code < 0 {
		return KeyNone
	}
	switch code & 0xff {
	case KeyQuit:
		return KeyActionQuit
	case KeyScreenshot:
		return KeyActionScreenshot
	default:
		return KeyNone
	}
}

// Screenshots writes PNG files into a directory.
type Screenshots struct {
	Dir string
	// Name is the fixed file name; a millisecond timestamp is used when empty.
	Name   string
	Logger *slog.Logger
	Now    func() time.Time
}

// Save encodes img and returns the written path.
func (s *Screenshots) Save(img image.Image) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create save directory: %w", err)
	}

	name := s.Name
	if name == "" {
		now := time.Now
		if s.Now != nil {
			now = s.Now
		}
		name = fmt.Sprintf("%d.png", now().UnixMilli())
	}
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Screenshot saved", "path", path)
	return path, nil
}

// ImageFile is a frame source that re-reads a still image on every poll, so
// the file can be swapped while a script runs.
type ImageFile struct {
	Path string
}

// Next decodes the file.
func (s ImageFile) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := LoadImage(s.Path)
	if err != nil {
		return nil, err
	}
	return frame.New(img), nil
}

// LoadImage decodes a PNG or JPEG file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

var _ frame.Source = ImageFile{}
