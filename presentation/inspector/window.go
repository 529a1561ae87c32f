package inspector

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"autopad-go/domain/frame"
	"autopad-go/domain/match"
	"autopad-go/domain/scene"
)

// Config configures the inspector window.
type Config struct {
	App fyne.App
	// Source supplies live frames for the Capture button. Nil disables it;
	// images can still be dropped onto the window.
	Source frame.Source
	// Reader is used for drag snippets. Nil reports "no OCR reader".
	Reader match.TextReader
	// Scenes are checked against every loaded frame. Nil skips the check.
	Scenes *scene.Registry
	// Initial is shown on open when set.
	Initial image.Image
	Logger  *slog.Logger
}

// Window is the inspector main window.
type Window struct {
	window fyne.Window
	canvas *FrameCanvas
	output *widget.Entry
	status *widget.Label

	source frame.Source
	reader match.TextReader
	scenes *scene.Registry
	logger *slog.Logger

	mu    sync.Mutex
	frame *frame.Frame
}

// New builds the window without showing it.
func New(cfg *Config) *Window {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Window{
		window: cfg.App.NewWindow("autopad inspector"),
		canvas: NewFrameCanvas(fyne.NewSize(frame.CanonicalWidth, frame.CanonicalHeight)),
		output: widget.NewMultiLineEntry(),
		status: widget.NewLabel("Click a pixel or drag a text box"),
		source: cfg.Source,
		reader: cfg.Reader,
		scenes: cfg.Scenes,
		logger: logger,
	}
	w.output.TextStyle = fyne.TextStyle{Monospace: true}
	w.output.Wrapping = fyne.TextWrapOff

	w.canvas.SetOnTapped(w.handleTap)
	w.canvas.SetOnDragged(w.handleDrag)

	captureBtn := widget.NewButton("Capture", w.captureAsync)
	if w.source == nil {
		captureBtn.Disable()
	}
	clearBtn := widget.NewButton("Clear", func() { w.output.SetText("") })

	controls := container.NewBorder(
		container.NewVBox(container.NewHBox(captureBtn, clearBtn), w.status),
		nil, nil, nil,
		w.output,
	)
	split := container.NewHSplit(controls, container.NewScroll(w.canvas))
	split.SetOffset(0.3)

	w.window.SetContent(split)
	w.window.Resize(fyne.NewSize(1700, 780))
	w.window.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		if len(uris) > 0 {
			w.loadURI(uris[0])
		}
	})

	if cfg.Initial != nil {
		w.Load(cfg.Initial)
	}
	return w
}

// Show displays the window.
func (w *Window) Show() {
	w.window.Show()
}

// ShowAndRun displays the window and runs the app event loop.
func (w *Window) ShowAndRun() {
	w.window.ShowAndRun()
}

// Load displays img as the current frame.
func (w *Window) Load(img image.Image) {
	f := frame.New(img)
	w.mu.Lock()
	w.frame = f
	w.mu.Unlock()
	w.canvas.SetImage(f.Image())
	w.status.SetText(FrameStatus(f, w.scenes))
}

func (w *Window) current() *frame.Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frame
}

func (w *Window) handleTap(p image.Point) {
	f := w.current()
	if f == nil {
		return
	}
	s := PixelSnippet(f, p)
	w.logger.Debug("Pixel inspected", "point", Canonical(f, p), "snippet", s.Go)
	w.append(s)
}

func (w *Window) handleDrag(from, to image.Point) {
	f := w.current()
	if f == nil {
		return
	}
	w.status.SetText("Reading text...")
	go func() {
		snippets := TextSnippets(f, w.reader, from, to)
		fyne.Do(func() {
			w.append(snippets...)
			w.status.SetText("Text read")
		})
	}()
}

func (w *Window) append(snippets ...Snippet) {
	parts := make([]string, 0, len(snippets)+1)
	if cur := strings.TrimRight(w.output.Text, "\n"); cur != "" {
		parts = append(parts, cur)
	}
	for _, s := range snippets {
		parts = append(parts, s.String())
	}
	w.output.SetText(strings.Join(parts, "\n\n") + "\n")
}

func (w *Window) captureAsync() {
	w.status.SetText("Capturing...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		f, err := w.source.Next(ctx)
		fyne.Do(func() {
			if err != nil {
				w.logger.Warn("Failed to capture frame", "error", err)
				w.status.SetText("Capture failed")
				dialog.ShowError(err, w.window)
				return
			}
			w.Load(f.Image())
		})
	}()
}

func (w *Window) loadURI(uri fyne.URI) {
	reader, err := storage.Reader(uri)
	if err != nil {
		dialog.ShowError(err, w.window)
		return
	}
	defer reader.Close()

	img, _, err := image.Decode(reader)
	if err != nil {
		dialog.ShowError(err, w.window)
		return
	}
	w.Load(img)
}
