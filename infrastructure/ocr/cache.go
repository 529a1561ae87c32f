package ocr

import (
	"bytes"
	"container/list"
	"image"
	"image/color"
	"sync"

	"github.com/corona10/goimagehash"
)

// Cached memoizes another reader. Entries are bucketed by difference hash
// and only reused when the pixels are identical, so a near-duplicate crop
// never returns a stale reading.
type Cached struct {
	inner Reader
	size  int

	mu      sync.Mutex
	order   *list.List // of *cacheEntry, most recent first
	buckets map[uint64][]*list.Element
	hits    int
	misses  int
}

type cacheEntry struct {
	hash   uint64
	pixels []byte
	text   string
}

// NewCached wraps inner with an LRU of at most size entries.
func NewCached(inner Reader, size int) *Cached {
	if size <= 0 {
		size = 1
	}
	return &Cached{
		inner:   inner,
		size:    size,
		order:   list.New(),
		buckets: make(map[uint64][]*list.Element),
	}
}

// ReadText returns the cached reading for identical pixels, or asks the
// inner reader. Errors are not cached.
func (c *Cached) ReadText(img image.Image) (string, error) {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return c.inner.ReadText(img)
	}
	key := hash.GetHash()
	pixels := pixelBytes(img)

	c.mu.Lock()
	for _, el := range c.buckets[key] {
		e := el.Value.(*cacheEntry)
		if bytes.Equal(e.pixels, pixels) {
			c.order.MoveToFront(el)
			c.hits++
			c.mu.Unlock()
			return e.text, nil
		}
	}
	c.misses++
	c.mu.Unlock()

	text, err := c.inner.ReadText(img)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	el := c.order.PushFront(&cacheEntry{hash: key, pixels: pixels, text: text})
	c.buckets[key] = append(c.buckets[key], el)
	for c.order.Len() > c.size {
		c.evict(c.order.Back())
	}
	return text, nil
}

func (c *Cached) evict(el *list.Element) {
	e := c.order.Remove(el).(*cacheEntry)
	bucket := c.buckets[e.hash]
	for i, b := range bucket {
		if b == el {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(c.buckets, e.hash)
	} else {
		c.buckets[e.hash] = bucket
	}
}

// Stats returns hit and miss counts.
func (c *Cached) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached readings.
func (c *Cached) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// pixelBytes flattens img into a comparable byte string, dimensions first.
func pixelBytes(img image.Image) []byte {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok {
		out := make([]byte, 0, 8+b.Dx()*b.Dy())
		out = append(out, dims(b)...)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := g.PixOffset(b.Min.X, y)
			out = append(out, g.Pix[i:i+b.Dx()]...)
		}
		return out
	}

	out := make([]byte, 0, 8+4*b.Dx()*b.Dy())
	out = append(out, dims(b)...)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			out = append(out, c.R, c.G, c.B, c.A)
		}
	}
	return out
}

func dims(r image.Rectangle) []byte {
	w, h := r.Dx(), r.Dy()
	return []byte{byte(w >> 24), byte(w >> 16), byte(w >> 8), byte(w), byte(h >> 24), byte(h >> 16), byte(h >> 8), byte(h)}
}

var _ Reader = (*Cached)(nil)
