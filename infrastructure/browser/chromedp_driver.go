package browser

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// ChromeDPDriver implements Driver using chromedp.
type ChromeDPDriver struct {
	config      *DriverConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
	running     bool

	// Screencast state
	screencastChan   chan image.Image
	screencastCancel context.CancelFunc
	screencasting    bool
}

// NewChromeDPDriver creates a new ChromeDP-based browser driver.
func NewChromeDPDriver(config *DriverConfig) *ChromeDPDriver {
	if config == nil {
		config = DefaultDriverConfig()
	}
	return &ChromeDPDriver{
		config: config,
	}
}

func (d *ChromeDPDriver) buildExecAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.config.Headless),
		chromedp.Flag("hide-scrollbars", d.config.HideScrollbars),
		chromedp.Flag("mute-audio", d.config.MuteAudio),
		chromedp.Flag("disable-gpu", d.config.DisableGPU),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(d.config.WindowWidth, d.config.WindowHeight),
	)

	if d.config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(d.config.UserDataDir))
	}

	return opts
}

// Start launches the browser and applies the viewport.
func (d *ChromeDPDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("browser already running")
	}

	// The browser lifecycle is independent of the caller's context.
	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(
		context.Background(),
		d.buildExecAllocatorOptions()...,
	)
	d.ctx, d.cancel = chromedp.NewContext(d.allocCtx)

	if err := chromedp.Run(d.ctx, chromedp.EmulateViewport(
		int64(d.config.ViewportWidth), int64(d.config.ViewportHeight), chromedp.EmulateScale(1),
	)); err != nil {
		d.cleanup()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	d.running = true
	return nil
}

// Stop closes the browser and releases resources.
func (d *ChromeDPDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.cleanup()
	return nil
}

func (d *ChromeDPDriver) cleanup() {
	if d.screencasting {
		d.stopScreencastInternal()
	}

	d.running = false
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.allocCancel != nil {
		d.allocCancel()
		d.allocCancel = nil
	}
	d.ctx = nil
	d.allocCtx = nil
}

// IsRunning returns true if the browser is active.
func (d *ChromeDPDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// browserContext returns the tab context, or an error when not started.
func (d *ChromeDPDriver) browserContext() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running || d.ctx == nil {
		return nil, fmt.Errorf("browser not running")
	}
	return d.ctx, nil
}

// Navigate navigates to the specified URL.
func (d *ChromeDPDriver) Navigate(ctx context.Context, url string) error {
	browserCtx, err := d.browserContext()
	if err != nil {
		return err
	}
	return chromedp.Run(browserCtx, chromedp.Navigate(url))
}

// KeyDown presses and holds key.
func (d *ChromeDPDriver) KeyDown(ctx context.Context, key rune) error {
	return d.dispatchKey(input.KeyDown, key)
}

// KeyUp releases key.
func (d *ChromeDPDriver) KeyUp(ctx context.Context, key rune) error {
	return d.dispatchKey(input.KeyUp, key)
}

func (d *ChromeDPDriver) dispatchKey(typ input.KeyType, key rune) error {
	browserCtx, err := d.browserContext()
	if err != nil {
		return err
	}

	k, ok := kb.Keys[key]
	if !ok {
		return fmt.Errorf("no key binding for %q", key)
	}

	timeoutCtx, cancel := context.WithTimeout(browserCtx, 5*time.Second)
	defer cancel()

	return chromedp.Run(timeoutCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		p := input.DispatchKeyEvent(typ).
			WithKey(k.Key).
			WithCode(k.Code).
			WithNativeVirtualKeyCode(k.Native).
			WithWindowsVirtualKeyCode(k.Windows)
		if typ == input.KeyDown && k.Print {
			p = p.WithText(k.Text).WithUnmodifiedText(k.Unmodified)
		}
		return p.Do(ctx)
	}))
}

// StartScreencast starts frame streaming from the browser.
// quality: JPEG quality 0-100, maxFPS: maximum frames per second
func (d *ChromeDPDriver) StartScreencast(ctx context.Context, quality, maxFPS int) (<-chan image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running || d.ctx == nil {
		return nil, fmt.Errorf("browser not running")
	}
	if d.screencasting {
		return nil, fmt.Errorf("screencast already active")
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = 60
	}

	d.screencastChan = make(chan image.Image, 5)
	screencastCtx, screencastCancel := context.WithCancel(d.ctx)
	d.screencastCancel = screencastCancel
	d.screencasting = true

	browserCtx := d.ctx
	frameChan := d.screencastChan
	var sendMu sync.Mutex
	closed := false

	chromedp.ListenTarget(screencastCtx, func(ev interface{}) {
		e, ok := ev.(*page.EventScreencastFrame)
		if !ok {
			return
		}

		// Acknowledge the frame to receive the next one
		go func() {
			_ = chromedp.Run(screencastCtx,
				chromedp.ActionFunc(func(ctx context.Context) error {
					return page.ScreencastFrameAck(e.SessionID).Do(ctx)
				}),
			)
		}()

		frameData, err := base64.StdEncoding.DecodeString(e.Data)
		if err != nil {
			return
		}
		img, err := jpeg.Decode(bytes.NewReader(frameData))
		if err != nil {
			return
		}

		sendMu.Lock()
		defer sendMu.Unlock()
		if closed {
			return
		}
		select {
		case frameChan <- img:
		default:
			// Channel full, drop frame
		}
	})
	go func() {
		<-screencastCtx.Done()
		sendMu.Lock()
		closed = true
		close(frameChan)
		sendMu.Unlock()
	}()

	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return page.StartScreencast().
				WithFormat(page.ScreencastFormatJpeg).
				WithQuality(int64(quality)).
				WithMaxWidth(int64(d.config.ViewportWidth)).
				WithMaxHeight(int64(d.config.ViewportHeight)).
				WithEveryNthFrame(int64(60 / maxFPS)).
				Do(ctx)
		}),
	)
	if err != nil {
		d.stopScreencastInternal()
		return nil, fmt.Errorf("failed to start screencast: %w", err)
	}

	return frameChan, nil
}

// StopScreencast stops frame streaming.
func (d *ChromeDPDriver) StopScreencast() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stopScreencastInternal()
}

// stopScreencastInternal must be called with the lock held.
func (d *ChromeDPDriver) stopScreencastInternal() error {
	if !d.screencasting {
		return nil
	}

	if d.ctx != nil {
		_ = chromedp.Run(d.ctx,
			chromedp.ActionFunc(func(ctx context.Context) error {
				return page.StopScreencast().Do(ctx)
			}),
		)
	}

	// Cancelling the listener context closes the frame channel.
	if d.screencastCancel != nil {
		d.screencastCancel()
		d.screencastCancel = nil
	}
	d.screencastChan = nil
	d.screencasting = false
	return nil
}

// IsScreencasting returns true if screencast is active.
func (d *ChromeDPDriver) IsScreencasting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screencasting
}

var _ Driver = (*ChromeDPDriver)(nil)
