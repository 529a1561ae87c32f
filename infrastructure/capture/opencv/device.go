// Package opencv reads frames from a capture card or webcam through OpenCV
// and shows them in a preview window that owns the quit and screenshot keys.
package opencv

import (
	"context"
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"

	"autopad-go/domain/frame"
	"autopad-go/infrastructure/capture"
)

// Device is an open video capture device.
type Device struct {
	vc          *gocv.VideoCapture
	mat         gocv.Mat
	window      *gocv.Window
	screenshots *capture.Screenshots
	logger      *slog.Logger
}

// Open opens the configured device and requests the configured resolution.
func Open(cfg *capture.Config, logger *slog.Logger) (*Device, error) {
	if cfg == nil {
		cfg = capture.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to open video device %d: %w", cfg.Device, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))

	d := &Device{
		vc:  vc,
		mat: gocv.NewMat(),
		screenshots: &capture.Screenshots{
			Dir:    cfg.ScreenshotDir,
			Name:   "screen.png",
			Logger: logger,
		},
		logger: logger,
	}
	if cfg.Show {
		d.window = gocv.NewWindow(cfg.Window)
	}

	logger.Info("Video device opened",
		"device", cfg.Device,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight),
		"preview", cfg.Show,
	)
	return d, nil
}

// Next reads one frame, shows it, and polls the preview keys. The quit key
// returns frame.ErrQuit; the screenshot key saves the frame and continues.
func (d *Device) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := d.vc.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, fmt.Errorf("failed to read frame from video device")
	}

	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}

	if d.window != nil {
		d.window.IMShow(d.mat)
		switch capture.ParseKey(d.window.WaitKey(1)) {
		case capture.KeyActionQuit:
			d.logger.Info("Quit key pressed")
			return nil, frame.ErrQuit
		case capture.KeyActionScreenshot:
			if _, err := d.screenshots.Save(img); err != nil {
				d.logger.Warn("Failed to save screenshot", "error", err)
			}
		}
	}

	return frame.New(img), nil
}

// Close releases the window, the frame buffer and the device.
func (d *Device) Close() error {
	if d.window != nil {
		_ = d.window.Close()
	}
	_ = d.mat.Close()
	return d.vc.Close()
}

var _ frame.Source = (*Device)(nil)
