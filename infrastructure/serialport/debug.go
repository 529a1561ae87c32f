package serialport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Firmware debug stream toggles.
const (
	DebugOn  = 'V'
	DebugOff = 'v'
)

// Debug turns on the firmware debug stream and copies it to out, prefixing
// every line with a [unix.millis] timestamp, until ctx is done or the port
// reaches EOF. The stream is turned off again on return.
func Debug(ctx context.Context, port io.ReadWriter, out io.Writer, now func() time.Time) (err error) {
	if now == nil {
		now = time.Now
	}
	if _, err := port.Write([]byte{DebugOn}); err != nil {
		return fmt.Errorf("failed to enable debug stream: %w", err)
	}
	defer func() {
		if _, werr := port.Write([]byte{DebugOff}); werr != nil && err == nil {
			err = fmt.Errorf("failed to disable debug stream: %w", werr)
		}
	}()

	stamp := func() []byte {
		t := now()
		return fmt.Appendf(nil, "[%d.%03d]", t.Unix(), t.Nanosecond()/int(time.Millisecond))
	}

	buf := make([]byte, 100)
	atLineStart := true
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, rerr := port.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if atLineStart {
				if _, err := out.Write(stamp()); err != nil {
					return err
				}
			}
			atLineStart = bytes.HasSuffix(chunk, []byte{'\n'})
			chunk = bytes.TrimSuffix(chunk, []byte{'\n'})
			chunk = bytes.ReplaceAll(chunk, []byte{'\n'}, append([]byte{'\n'}, stamp()...))
			if atLineStart {
				chunk = append(chunk, '\n')
			}
			if _, err := out.Write(chunk); err != nil {
				return err
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read debug stream: %w", rerr)
		}
	}
}
