package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autopad-go/domain/action"
)

// Keyboard is an action.Controller that plays controller bytes into the page
// as key events. A mapped byte presses and holds its key; the neutral byte
// releases every held key. Bytes with no mapping are ignored.
type Keyboard struct {
	driver  Driver
	keys    map[byte]rune
	timeout time.Duration
	logger  *slog.Logger

	mu   sync.Mutex
	held map[rune]struct{}
}

// DefaultKeyMap maps controller buttons to the keys a typical remote-play
// page listens on.
func DefaultKeyMap() map[byte]rune {
	return map[byte]rune{
		'A': 'k', 'B': 'j', 'X': 'i', 'Y': 'u',
		'L': 'q', 'R': 'e', 'l': '1', 'r': '3',
		'+': '=', '-': '-', 'H': 'h',
		'w': 'w', 'a': 'a', 's': 's', 'd': 'd',
	}
}

// NewKeyboard creates a keyboard controller. A nil keys uses DefaultKeyMap.
func NewKeyboard(driver Driver, keys map[byte]rune, logger *slog.Logger) *Keyboard {
	if keys == nil {
		keys = DefaultKeyMap()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Keyboard{
		driver:  driver,
		keys:    keys,
		timeout: 5 * time.Second,
		logger:  logger,
		held:    make(map[rune]struct{}),
	}
}

// Write dispatches one key event per byte.
func (k *Keyboard) Write(p []byte) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for i, b := range p {
		if err := k.apply(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

func (k *Keyboard) apply(b byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()

	if b == action.Neutral {
		for key := range k.held {
			if err := k.driver.KeyUp(ctx, key); err != nil {
				return fmt.Errorf("failed to release key %q: %w", key, err)
			}
			delete(k.held, key)
		}
		return nil
	}

	key, ok := k.keys[b]
	if !ok {
		k.logger.Debug("No key mapped for button", "button", string(b))
		return nil
	}
	if _, down := k.held[key]; down {
		return nil
	}
	if err := k.driver.KeyDown(ctx, key); err != nil {
		return fmt.Errorf("failed to press key %q: %w", key, err)
	}
	k.held[key] = struct{}{}
	return nil
}

// Held returns the number of keys currently pressed.
func (k *Keyboard) Held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.held)
}

var _ action.Controller = (*Keyboard)(nil)
