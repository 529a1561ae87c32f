package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"autopad-go/domain/action"
	"autopad-go/domain/scene"
	"autopad-go/domain/script"
	"autopad-go/infrastructure/browser"
	"autopad-go/infrastructure/capture"
	"autopad-go/infrastructure/capture/opencv"
	"autopad-go/infrastructure/config"
	"autopad-go/infrastructure/logging"
	"autopad-go/infrastructure/ocr"
	"autopad-go/infrastructure/serialport"
	"autopad-go/resources"
	"autopad-go/scripts/console"
)

// app holds what every command shares: configuration and logging.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
}

func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.Setup(cfg.Logging())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return &app{cfg: cfg, logger: logger, closeLog: closeLog}, nil
}

func (a *app) Close() {
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// applyFlags overlays explicitly set flags on the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	str("log-level", &cfg.Log.Level)
	str("serial", &cfg.Serial.Port)
	str("source", &cfg.Capture.Source)
	str("image", &cfg.Capture.Image)
	str("url", &cfg.Browser.URL)
	str("ocr", &cfg.OCR.Engine)
	str("scripts-dir", &cfg.Scripts.Dir)
	if flags.Changed("device") {
		cfg.Capture.Device, _ = flags.GetInt("device")
	}
	if flags.Changed("no-show") {
		noShow, _ := flags.GetBool("no-show")
		cfg.Capture.Show = !noShow
	}
	// An image path alone selects the image source.
	if flags.Changed("image") && !flags.Changed("source") {
		cfg.Capture.Source = config.SourceImage
	}

	return cfg.Validate()
}

// registries loads the embedded scenes and scripts, then the configured
// directory, then the builtin Go scripts.
func (a *app) registries() (*scene.Registry, *script.Registry, error) {
	scenes := scene.NewRegistry()
	scripts := script.NewRegistry()

	type source struct {
		name string
		fsys fs.FS
	}
	sources := []source{{name: "embedded", fsys: resources.Files}}
	if dir := a.cfg.Scripts.Dir; dir != "" {
		sources = append(sources, source{name: dir, fsys: os.DirFS(dir)})
	}
	for _, src := range sources {
		if err := scene.NewLoader(scenes).LoadFromFS(src.fsys); err != nil {
			return nil, nil, fmt.Errorf("failed to load scenes from %s: %w", src.name, err)
		}
		if err := script.NewLoader(scripts).LoadFromFS(src.fsys); err != nil {
			return nil, nil, fmt.Errorf("failed to load scripts from %s: %w", src.name, err)
		}
	}
	if err := console.Register(scripts); err != nil {
		return nil, nil, err
	}

	a.logger.Debug("Registries loaded", "scenes", scenes.Count(), "scripts", scripts.Count())
	return scenes, scripts, nil
}

// ocrReader builds the configured OCR reader. The close function is never nil.
func (a *app) ocrReader() (ocr.Reader, func(), error) {
	return ocr.New(a.cfg.OCRReader(), a.logger)
}

// device is an open controller plus frame source.
type device struct {
	*action.Device
	closers []io.Closer
}

func (d *device) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i].Close())
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openDevice opens the configured frame source and its controller. With the
// browser source the page's keyboard is the controller; otherwise it is the
// serial port. dryRun replaces any controller with a logging stub.
func (a *app) openDevice(ctx context.Context, dryRun bool) (*device, error) {
	d := &device{Device: &action.Device{Logger: a.logger}}

	fail := func(err error) (*device, error) {
		_ = d.Close()
		return nil, err
	}

	switch a.cfg.Capture.Source {
	case config.SourceBrowser:
		driver := browser.NewChromeDPDriver(a.cfg.BrowserDriver())
		if err := driver.Start(ctx); err != nil {
			return fail(err)
		}
		d.closers = append(d.closers, closerFunc(driver.Stop))
		if err := driver.Navigate(ctx, a.cfg.Browser.URL); err != nil {
			return fail(err)
		}
		src, err := browser.NewSource(ctx, driver, a.cfg.Screencast(), a.logger)
		if err != nil {
			return fail(err)
		}
		d.closers = append(d.closers, src)
		d.Frames = src

		keys, err := a.cfg.Browser.KeyMap()
		if err != nil {
			return fail(err)
		}
		d.Controller = browser.NewKeyboard(driver, keys, a.logger)

	case config.SourceImage:
		d.Frames = capture.ImageFile{Path: a.cfg.Capture.Image}

	default:
		cam, err := opencv.Open(a.cfg.CaptureDevice(), a.logger)
		if err != nil {
			return fail(err)
		}
		d.closers = append(d.closers, cam)
		d.Frames = cam
	}

	switch {
	case dryRun:
		d.Controller = logController{logger: a.logger}
	case d.Controller == nil:
		port, err := serialport.Open(a.cfg.SerialPort(), a.logger)
		if err != nil {
			return fail(err)
		}
		d.closers = append(d.closers, port)
		d.Controller = port
	}
	return d, nil
}

// openController opens only the serial controller, for commands that send
// commands without watching the screen.
func (a *app) openController() (*serialport.Port, error) {
	return serialport.Open(a.cfg.SerialPort(), a.logger)
}

// logController accepts every write and logs it.
type logController struct {
	logger *slog.Logger
}

func (c logController) Write(p []byte) (int, error) {
	c.logger.Info("Controller write (dry run)", "bytes", string(p))
	return len(p), nil
}

var _ action.Controller = logController{}
