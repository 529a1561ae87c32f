package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrUnavailable is returned while the last health check failed.
var ErrUnavailable = errors.New("OCR service unavailable")

// ClientConfig contains configuration for the OCR service client.
type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	HealthInterval time.Duration
	HealthTimeout  time.Duration
	Logger         *slog.Logger
}

// DefaultClientConfig returns default OCR client configuration.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        "http://localhost:8000",
		Timeout:        10 * time.Second,
		HealthInterval: 5 * time.Second,
		HealthTimeout:  3 * time.Second,
	}
}

// textResponse is the body of POST {base}/v1/text.
type textResponse struct {
	Text string `json:"text"`
}

// HTTPClient reads text through an OCR service. Regions are posted as PNG to
// {base}/v1/text; GET {base}/health is polled in the background and reads
// fail fast with ErrUnavailable while it is down.
type HTTPClient struct {
	baseURL       string
	interval      time.Duration
	healthTimeout time.Duration
	http          *http.Client
	logger        *slog.Logger

	healthy atomic.Bool
	stop    context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// NewHTTPClient checks the service once and starts the health loop.
func NewHTTPClient(cfg *ClientConfig) *HTTPClient {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &HTTPClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		interval:      cfg.HealthInterval,
		healthTimeout: cfg.HealthTimeout,
		http:          &http.Client{Timeout: cfg.Timeout},
		logger:        logger.With("component", "ocr", "url", cfg.BaseURL),
		stop:          cancel,
		done:          make(chan struct{}),
	}

	if c.check(ctx) {
		c.healthy.Store(true)
	} else {
		c.logger.Warn("OCR service unavailable")
	}
	go c.watch(ctx)
	return c
}

// ReadText implements Reader.
func (c *HTTPClient) ReadText(img image.Image) (string, error) {
	return c.Recognize(context.Background(), img)
}

// Recognize posts img and returns the recognized text.
func (c *HTTPClient) Recognize(ctx context.Context, img image.Image) (string, error) {
	if !c.healthy.Load() {
		return "", ErrUnavailable
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/text", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out textResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return out.Text, nil
}

// Healthy reports the result of the last health check.
func (c *HTTPClient) Healthy() bool {
	return c.healthy.Load()
}

// Close stops the health loop. Safe to call more than once.
func (c *HTTPClient) Close() {
	c.once.Do(func() {
		c.stop()
		<-c.done
	})
}

func (c *HTTPClient) watch(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.setHealthy(c.check(ctx))
		}
	}
}

func (c *HTTPClient) check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *HTTPClient) setHealthy(ok bool) {
	if c.healthy.Swap(ok) == ok {
		return
	}
	if ok {
		c.logger.Info("OCR service available")
	} else {
		c.logger.Warn("OCR service unavailable")
	}
}

var _ Reader = (*HTTPClient)(nil)
