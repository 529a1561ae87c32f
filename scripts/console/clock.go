package console

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"autopad-go/domain/action"
	"autopad-go/domain/frame"
	"autopad-go/domain/graph"
	"autopad-go/domain/match"
)

// MaxMisreads is how many unreadable polls a clock field tolerates before the
// script backs out to the home menu and navigates to the clock again.
const MaxMisreads = 10

var (
	clockTextTopLeft     = frame.Pt(370, 815)
	clockTextBottomRight = frame.Pt(401, 1048)

	meridiemTopLeft     = frame.Pt(442, 845)
	meridiemBottomRight = frame.Pt(500, 937)
)

// ToClock navigates from the home menu to the date and time settings page.
func ToClock() action.Action {
	return action.Do(
		action.Press("s"),
		action.PressFor("d", 550*time.Millisecond),
		action.Press("A"), action.Wait(time.Second),
		action.PressFor("s", 1300*time.Millisecond),
		action.Press("A"), action.Wait(750*time.Millisecond),
		action.PressFor("s", 700*time.Millisecond),
		action.Press("A"), action.Wait(750*time.Millisecond),
	)
}

// field is one spinner on the date and time editor.
type field struct {
	suffix      string
	topLeft     frame.Point
	bottomRight frame.Point
	want        int

	reader match.TextReader
	logger *slog.Logger

	found    int
	valid    bool
	misreads int
}

func (fd *field) read(f *frame.Frame) bool {
	text, err := match.ReadText(fd.reader, f, fd.topLeft, fd.bottomRight, false)
	if err == nil {
		var n int
		if n, err = ParseField(text); err == nil {
			fd.found, fd.valid, fd.misreads = n, true, 0
			return n == fd.want
		}
	}
	fd.valid = false
	fd.misreads++
	fd.logger.Warn("Unreadable clock field", "field", fd.suffix, "misreads", fd.misreads, "error", err)
	return false
}

func (fd *field) lost(*frame.Frame) bool {
	return fd.misreads >= MaxMisreads
}

// move scrolls toward the wanted value, faster the further away it is.
func (fd *field) move() action.Action {
	return action.Func(func(ctx context.Context, d *action.Device) (action.Result, error) {
		if !fd.valid {
			return action.Wait(300*time.Millisecond).Run(ctx, d)
		}
		button := "s"
		if fd.want > fd.found {
			button = "w"
		}
		return action.Do(
			action.PressFor(button, scrollDuration(fd.want-fd.found)),
			action.Wait(300*time.Millisecond),
		).Run(ctx, d)
	})
}

func (fd *field) backOut() action.Action {
	return action.Do(
		action.Press("H"),
		action.Wait(time.Second),
		action.Func(func(context.Context, *action.Device) (action.Result, error) {
			fd.misreads = 0
			fd.valid = false
			return action.Continue, nil
		}),
	)
}

func scrollDuration(diff int) time.Duration {
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff >= 10:
		return 800 * time.Millisecond
	case diff >= 5:
		return 400 * time.Millisecond
	default:
		return 100 * time.Millisecond
	}
}

// ParseField reads a spinner value. OCR sometimes reads a leading zero as
// the letter O, so leading zeros and Os are stripped first.
func ParseField(text string) (int, error) {
	s := strings.TrimLeft(strings.TrimSpace(text), "O0o")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock field %q: %w", text, err)
	}
	return n, nil
}

// Clock returns states that set the console clock to dt. The run enters at
// name from the home menu and leaves to end back on the home menu.
func Clock(dt time.Time, name, end string, reader match.TextReader, logger *slog.Logger) graph.States[string] {
	if logger == nil {
		logger = slog.Default()
	}

	hour12 := dt.Hour() % 12
	if hour12 == 0 {
		hour12 = 12
	}
	meridiem := "AM"
	if dt.Hour() >= 12 {
		meridiem = "PM"
	}

	fields := []*field{
		{suffix: "MONTH", topLeft: frame.Pt(441, 118), bottomRight: frame.Pt(497, 186), want: int(dt.Month())},
		{suffix: "DAY", topLeft: frame.Pt(442, 247), bottomRight: frame.Pt(499, 313), want: dt.Day()},
		{suffix: "YEAR", topLeft: frame.Pt(442, 390), bottomRight: frame.Pt(497, 516), want: dt.Year()},
		{suffix: "HOUR", topLeft: frame.Pt(440, 607), bottomRight: frame.Pt(503, 684), want: hour12},
		{suffix: "MINUTE", topLeft: frame.Pt(440, 735), bottomRight: frame.Pt(499, 807), want: dt.Minute()},
	}

	stateName := func(suffix string) string { return name + "_" + suffix }

	states := graph.States[string]{
		name: {
			graph.On(match.Always, action.Do(
				ToClock(),
				action.Press("s"),
				action.Press("s"),
				action.Press("A"),
				action.Wait(500*time.Millisecond),
			), stateName(fields[0].suffix)),
		},
	}

	for i, fd := range fields {
		fd.reader = reader
		fd.logger = logger.With("script_state", stateName(fd.suffix))

		next := stateName("AM")
		if i+1 < len(fields) {
			next = stateName(fields[i+1].suffix)
		}
		self := stateName(fd.suffix)
		states[self] = []graph.Rule[string]{
			graph.On(match.Func(fd.read), action.Do(action.Press("A"), action.Wait(100*time.Millisecond)), next),
			graph.On(match.Func(fd.lost), fd.backOut(), name),
			graph.On(match.Always, fd.move(), self),
		}
	}

	states[stateName("AM")] = []graph.Rule[string]{
		graph.On(
			match.Text(reader, meridiem, meridiemTopLeft, meridiemBottomRight, false),
			action.Do(
				action.Press("A"), action.Wait(100*time.Millisecond),
				action.Press("A"), action.Wait(500*time.Millisecond),
				action.Press("H"),
			),
			end,
		),
		graph.On(match.Always, action.Do(action.Press("s"), action.Wait(300*time.Millisecond)), stateName("AM")),
	}

	return states
}

// ParseClockText parses the settings page summary, e.g. "1/2/2024 3:04 p.m.".
func ParseClockText(text string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	parts := strings.Fields(strings.ReplaceAll(strings.ToLower(text), ".", ""))
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("unexpected clock text %q", text)
	}

	date := strings.Split(parts[0], "/")
	hm := strings.Split(parts[1], ":")
	if len(date) != 3 || len(hm) != 2 {
		return time.Time{}, fmt.Errorf("unexpected clock text %q", text)
	}

	nums := make([]int, 0, 5)
	for _, s := range append(date, hm...) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("unexpected clock text %q: %w", text, err)
		}
		nums = append(nums, n)
	}
	month, day, year, hour, minute := nums[0], nums[1], nums[2], nums[3], nums[4]

	if month < 1 || month > 12 || day < 1 || day > 31 || hour < 1 || hour > 12 || minute > 59 {
		return time.Time{}, fmt.Errorf("clock text %q out of range", text)
	}

	hour %= 12
	switch parts[2] {
	case "am":
	case "pm":
		hour += 12
	default:
		return time.Time{}, fmt.Errorf("unexpected meridiem %q", parts[2])
	}

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), nil
}

// ReadClock navigates to the clock settings from the home menu, reads the
// current console time and returns home.
func ReadClock(ctx context.Context, d *action.Device, reader match.TextReader, loc *time.Location) (time.Time, error) {
	if reader == nil {
		return time.Time{}, fmt.Errorf("reading the clock needs an OCR reader")
	}
	if d.Frames == nil {
		return time.Time{}, fmt.Errorf("reading the clock needs a frame source")
	}

	if _, err := ToClock().Run(ctx, d); err != nil {
		return time.Time{}, fmt.Errorf("failed to open clock settings: %w", err)
	}

	f, err := d.Frames.Next(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to capture frame: %w", err)
	}
	text, err := match.ReadText(reader, f, clockTextTopLeft, clockTextBottomRight, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read clock: %w", err)
	}
	dt, err := ParseClockText(text, loc)
	if err != nil {
		return time.Time{}, err
	}

	if _, err := action.Do(action.Press("H"), action.Wait(time.Second)).Run(ctx, d); err != nil {
		return time.Time{}, fmt.Errorf("failed to return home: %w", err)
	}
	return dt, nil
}
