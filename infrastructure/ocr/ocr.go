// Package ocr provides the text recognizers behind match.Text: the local
// tesseract binary, an HTTP OCR service, and a perceptual-hash result cache
// that wraps either.
package ocr

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"autopad-go/domain/match"
)

// Reader recognizes a single line of text.
type Reader = match.TextReader

// ErrDisabled is returned by NoOp.
var ErrDisabled = errors.New("OCR is disabled")

// Engine names accepted by New.
const (
	EngineTesseract = "tesseract"
	EngineHTTP      = "http"
	EngineNone      = "none"
)

// Config selects and tunes a reader.
type Config struct {
	Engine    string
	URL       string
	Timeout   time.Duration
	CacheSize int
}

// DefaultConfig returns the tesseract engine with a small cache.
func DefaultConfig() *Config {
	return &Config{
		Engine:    EngineTesseract,
		URL:       DefaultClientConfig().BaseURL,
		Timeout:   10 * time.Second,
		CacheSize: 256,
	}
}

// New builds the configured reader. The returned close function releases
// background resources and is never nil.
func New(cfg *Config, logger *slog.Logger) (Reader, func(), error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		r       Reader
		closeFn = func() {}
	)
	switch cfg.Engine {
	case EngineTesseract, "":
		r = NewTesseract(cfg.Timeout)
	case EngineHTTP:
		client := NewHTTPClient(&ClientConfig{
			BaseURL:        cfg.URL,
			Timeout:        cfg.Timeout,
			HealthInterval: DefaultClientConfig().HealthInterval,
			HealthTimeout:  DefaultClientConfig().HealthTimeout,
			Logger:         logger,
		})
		r, closeFn = client, client.Close
	case EngineNone:
		return NoOp{}, closeFn, nil
	default:
		return nil, closeFn, fmt.Errorf("unknown OCR engine %q", cfg.Engine)
	}

	if cfg.CacheSize > 0 {
		r = NewCached(r, cfg.CacheSize)
	}
	logger.Debug("OCR reader ready", "engine", cfg.Engine, "cache", cfg.CacheSize)
	return r, closeFn, nil
}

// NoOp fails every read, so text matchers never match.
type NoOp struct{}

func (NoOp) ReadText(image.Image) (string, error) {
	return "", ErrDisabled
}

var _ Reader = NoOp{}
