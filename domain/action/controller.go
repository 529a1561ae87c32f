package action

import (
	"context"
	"fmt"
	"time"
)

// Neutral is the byte that releases every button.
const Neutral = '0'

// Press timing.
const (
	DefaultPressDuration = 100 * time.Millisecond
	SettleDelay          = 75 * time.Millisecond
)

type press struct {
	button   string
	duration time.Duration
}

func (p press) Run(ctx context.Context, d *Device) (Result, error) {
	d.logger().Debug("Press", "button", p.button, "duration", p.duration)

	if err := write(d, []byte(p.button)); err != nil {
		return Continue, err
	}
	if err := d.Wait(ctx, p.duration); err != nil {
		// Never leave a button held.
		_ = write(d, []byte{Neutral})
		return Continue, err
	}
	if err := write(d, []byte{Neutral}); err != nil {
		return Continue, err
	}
	return Continue, d.Wait(ctx, SettleDelay)
}

// Press holds button for DefaultPressDuration.
func Press(button string) Action {
	return PressFor(button, DefaultPressDuration)
}

// PressFor writes the button, holds it for duration while draining frames,
// releases everything and waits a short settle delay.
func PressFor(button string, duration time.Duration) Action {
	return press{button: button, duration: duration}
}

// Write sends raw command bytes with no timed release, for latched controls.
func Write(button string) Action {
	return Func(func(ctx context.Context, d *Device) (Result, error) {
		return Continue, write(d, []byte(button))
	})
}

// Wait drains frames for duration without issuing a command.
func Wait(duration time.Duration) Action {
	return Func(func(ctx context.Context, d *Device) (Result, error) {
		return Continue, d.Wait(ctx, duration)
	})
}

// Touch screen geometry and packing bits understood by the touch firmware.
const (
	TouchWidth  = 320
	TouchHeight = 240

	touchPos  = 1 << 7
	touchX    = 1 << 6
	touchHigh = 1 << 5
	touchMask = touchHigh - 1
)

// TouchBytes packs a touch command: each axis is split into high and low
// five-bit halves, followed by 't'.
func TouchBytes(x, y int) ([]byte, error) {
	if x < 0 || x >= TouchWidth || y < 0 || y >= TouchHeight {
		return nil, fmt.Errorf("touch point (%d, %d) outside %dx%d", x, y, TouchWidth, TouchHeight)
	}
	return []byte{
		byte(touchPos | touchX | touchHigh | ((touchMask << 5 & x) >> 5)),
		byte(touchPos | touchX | (touchMask & x)),
		byte(touchPos | touchHigh | ((touchMask << 5 & y) >> 5)),
		byte(touchPos | (touchMask & y)),
		't',
	}, nil
}

// Touch taps the touch screen at (x, y).
func Touch(x, y int) Action {
	return Func(func(ctx context.Context, d *Device) (Result, error) {
		b, err := TouchBytes(x, y)
		if err != nil {
			return Continue, err
		}
		d.logger().Debug("Touch", "x", x, "y", y)
		return Continue, write(d, b)
	})
}

func write(d *Device, b []byte) error {
	if d.Controller == nil {
		return fmt.Errorf("no controller attached")
	}
	if _, err := d.Controller.Write(b); err != nil {
		return fmt.Errorf("failed to write %q: %w", b, err)
	}
	return nil
}
