// Package browser drives a Chromium tab showing a remote-play page: the tab's
// screencast becomes a frame source and keyboard events become the
// controller.
package browser

import (
	"context"
	"image"
)

// Driver defines the browser operations the frame source and keyboard need.
type Driver interface {
	// Start initializes the browser instance.
	Start(ctx context.Context) error

	// Stop closes the browser and releases resources.
	Stop() error

	// Navigate navigates to the specified URL.
	Navigate(ctx context.Context, url string) error

	// KeyDown presses and holds a key.
	KeyDown(ctx context.Context, key rune) error

	// KeyUp releases a held key.
	KeyUp(ctx context.Context, key rune) error

	// StartScreencast starts frame streaming from the browser.
	// Returns a channel that receives decoded frames; it is closed when the
	// screencast stops.
	StartScreencast(ctx context.Context, quality, maxFPS int) (<-chan image.Image, error)

	// StopScreencast stops frame streaming.
	StopScreencast() error
}

// DriverConfig holds configuration for browser drivers.
type DriverConfig struct {
	// Headless runs the browser without a visible window.
	Headless bool

	WindowWidth  int
	WindowHeight int

	// ViewportWidth and ViewportHeight also bound screencast frames.
	ViewportWidth  int
	ViewportHeight int

	DisableGPU     bool
	MuteAudio      bool
	HideScrollbars bool

	// UserDataDir keeps the profile (and the remote-play login) between runs.
	UserDataDir string
}

// DefaultDriverConfig returns a headless browser with a 1280x720 viewport.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{
		Headless:       true,
		WindowWidth:    1280,
		WindowHeight:   860,
		ViewportWidth:  1280,
		ViewportHeight: 720,
		DisableGPU:     false,
		MuteAudio:      true,
		HideScrollbars: true,
	}
}
