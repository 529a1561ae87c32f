package inspector

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// FrameCanvas displays a frame and reports taps and drags in image
// coordinates.
type FrameCanvas struct {
	widget.BaseWidget
	canvas  *canvas.Image
	imageMu sync.RWMutex

	onTapped  func(p image.Point)
	onDragged func(from, to image.Point)

	dragMu  sync.Mutex
	dragRec *dragRecord
}

type dragRecord struct {
	from, to fyne.Position
}

// NewFrameCanvas creates an empty canvas of the given size.
func NewFrameCanvas(size fyne.Size) *FrameCanvas {
	fc := &FrameCanvas{
		canvas: canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, int(size.Width), int(size.Height)))),
	}
	fc.canvas.FillMode = canvas.ImageFillStretch
	fc.canvas.SetMinSize(size)
	fc.ExtendBaseWidget(fc)
	return fc
}

// SetImage replaces the displayed image.
func (c *FrameCanvas) SetImage(img image.Image) {
	if img == nil {
		return
	}
	c.imageMu.Lock()
	c.canvas.Image = img
	c.imageMu.Unlock()
	c.canvas.Refresh()
	c.Refresh()
}

// Image returns the displayed image.
func (c *FrameCanvas) Image() image.Image {
	c.imageMu.RLock()
	defer c.imageMu.RUnlock()
	return c.canvas.Image
}

// SetOnTapped sets the tap handler.
func (c *FrameCanvas) SetOnTapped(fn func(p image.Point)) {
	c.onTapped = fn
}

// SetOnDragged sets the drag handler, called once when the drag ends.
func (c *FrameCanvas) SetOnDragged(fn func(from, to image.Point)) {
	c.onDragged = fn
}

// CreateRenderer creates the widget renderer.
func (c *FrameCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(c.canvas)
}

// Tapped handles tap events.
func (c *FrameCanvas) Tapped(e *fyne.PointEvent) {
	if c.onTapped != nil {
		c.onTapped(c.toImage(e.Position))
	}
}

// Dragged records the drag rectangle.
func (c *FrameCanvas) Dragged(e *fyne.DragEvent) {
	c.dragMu.Lock()
	defer c.dragMu.Unlock()

	if c.dragRec == nil {
		c.dragRec = &dragRecord{
			from: fyne.NewPos(e.Position.X-e.Dragged.DX, e.Position.Y-e.Dragged.DY),
		}
	}
	c.dragRec.to = e.Position
}

// DragEnd reports the finished drag.
func (c *FrameCanvas) DragEnd() {
	c.dragMu.Lock()
	rec := c.dragRec
	c.dragRec = nil
	c.dragMu.Unlock()

	if rec != nil && c.onDragged != nil {
		c.onDragged(c.toImage(rec.from), c.toImage(rec.to))
	}
}

// toImage maps a widget position onto the stretched image, relative to its
// top-left corner.
func (c *FrameCanvas) toImage(pos fyne.Position) image.Point {
	img := c.Image()
	size := c.Size()
	if img == nil || size.Width <= 0 || size.Height <= 0 {
		return image.Point{}
	}
	return scalePoint(pos.X, pos.Y, size.Width, size.Height, img.Bounds())
}

func scalePoint(x, y, width, height float32, bounds image.Rectangle) image.Point {
	px := int(x / width * float32(bounds.Dx()))
	py := int(y / height * float32(bounds.Dy()))
	px = min(max(px, 0), bounds.Dx()-1)
	py = min(max(py, 0), bounds.Dy()-1)
	return image.Pt(px, py)
}

var (
	_ fyne.Tappable  = (*FrameCanvas)(nil)
	_ fyne.Draggable = (*FrameCanvas)(nil)
)
