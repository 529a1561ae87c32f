package browser

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"golang.org/x/image/draw"

	"autopad-go/domain/frame"
)

// ErrScreencastStopped is returned by Source.Next once the frame channel closes.
var ErrScreencastStopped = errors.New("screencast stopped")

// ScreencastConfig holds screencast settings.
type ScreencastConfig struct {
	Quality int
	MaxFPS  int
}

// DefaultScreencastConfig returns quality 80 at up to 30 frames per second.
func DefaultScreencastConfig() ScreencastConfig {
	return ScreencastConfig{Quality: 80, MaxFPS: 30}
}

// Source turns a browser screencast into a frame.Source. Next always returns
// the newest frame and discards anything older.
type Source struct {
	driver Driver
	frames <-chan image.Image
	logger *slog.Logger
}

// NewSource starts the screencast on driver.
func NewSource(ctx context.Context, driver Driver, cfg ScreencastConfig, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	frames, err := driver.StartScreencast(ctx, cfg.Quality, cfg.MaxFPS)
	if err != nil {
		return nil, err
	}
	logger.Info("Screencast started", "quality", cfg.Quality, "maxFPS", cfg.MaxFPS)
	return &Source{driver: driver, frames: frames, logger: logger}, nil
}

// Next blocks until a frame arrives, then drains any backlog.
func (s *Source) Next(ctx context.Context) (*frame.Frame, error) {
	var img image.Image
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case got, ok := <-s.frames:
		if !ok {
			return nil, ErrScreencastStopped
		}
		img = got
	}

drain:
	for {
		select {
		case got, ok := <-s.frames:
			if !ok {
				break drain
			}
			img = got
		default:
			break drain
		}
	}

	return frame.New(toRGBA(img)), nil
}

// Close stops the screencast.
func (s *Source) Close() error {
	if err := s.driver.StopScreencast(); err != nil {
		return fmt.Errorf("failed to stop screencast: %w", err)
	}
	return nil
}

// toRGBA converts decoded JPEG frames so pixel reads hit the fast path.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

var _ frame.Source = (*Source)(nil)
