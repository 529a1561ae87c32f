package console

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autopad-go/core/clock"
	"autopad-go/domain/action"
	"autopad-go/domain/frame"
	"autopad-go/domain/graph"
	"autopad-go/domain/script"
)

// regionReader answers OCR requests by the size of the cropped region, which
// is distinct for every text rectangle these scripts read.
type regionReader struct {
	mu    sync.Mutex
	texts map[image.Point]string
	calls int
}

func newRegionReader() *regionReader {
	return &regionReader{texts: make(map[image.Point]string)}
}

func (r *regionReader) set(topLeft, bottomRight frame.Point, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts[image.Pt(bottomRight.X-topLeft.X, bottomRight.Y-topLeft.Y)] = text
}

func (r *regionReader) ReadText(img image.Image) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	b := img.Bounds()
	for size, text := range r.texts {
		if abs(size.X-b.Dx()) <= 1 && abs(size.Y-b.Dy()) <= 1 {
			return text, nil
		}
	}
	return "", nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

type recordingController struct {
	writes []string
}

func (r *recordingController) Write(p []byte) (int, error) {
	r.writes = append(r.writes, string(p))
	return len(p), nil
}

func (r *recordingController) pressed() []string {
	var out []string
	for _, w := range r.writes {
		if w != string(action.Neutral) {
			out = append(out, w)
		}
	}
	return out
}

func blank() *frame.Frame {
	return frame.New(image.NewRGBA(image.Rect(0, 0, frame.CanonicalWidth, frame.CanonicalHeight)))
}

func homeMenu() *frame.Frame {
	img := image.NewRGBA(image.Rect(0, 0, frame.CanonicalWidth, frame.CanonicalHeight))
	img.SetRGBA(gameStartPoint.X, gameStartPoint.Y, color.RGBA{217, 217, 217, 255})
	return frame.New(img)
}

// newDevice returns a device whose frame source advances the manual clock,
// so waits finish instantly.
func newDevice(clk *clock.Manual) (*action.Device, *recordingController) {
	ctrl := &recordingController{}
	src := frame.SourceFunc(func(context.Context) (*frame.Frame, error) {
		clk.Advance(50 * time.Millisecond)
		return blank(), nil
	})
	return &action.Device{Controller: ctrl, Frames: src, Clock: clk}, ctrl
}

func fire(t *testing.T, g *graph.Graph[string], state string, f *frame.Frame, d *action.Device) (string, action.Result) {
	t.Helper()
	rules, ok := g.Rules(state)
	require.True(t, ok, "state %s", state)
	for _, r := range rules {
		if r.Matcher.Match(f) {
			res, err := r.Action.Run(context.Background(), d)
			require.NoError(t, err)
			return r.Next, res
		}
	}
	return state, action.Continue
}

func builtin(t *testing.T, name string) *script.Script {
	t.Helper()
	reg := script.NewRegistry()
	require.NoError(t, Register(reg))
	s := reg.Get(name)
	require.NotNil(t, s)
	return s
}

func TestRegister(t *testing.T) {
	reg := script.NewRegistry()
	require.NoError(t, Register(reg))
	assert.Equal(t, []string{"alarm", "clock", "restart"}, reg.List())
	for _, s := range reg.All() {
		assert.Equal(t, Source, s.Source)
	}

	assert.Error(t, Register(reg), "second registration collides")
}

func TestParseField(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"12", 12},
		{"07", 7},
		{"O07", 7},
		{"o3", 3},
		{"00", 0},
		{"O", 0},
		{"", 0},
		{" 2024 ", 2024},
	}
	for _, tt := range tests {
		got, err := ParseField(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseField("1O")
	assert.Error(t, err)
}

func TestParseClockText(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"1/2/2024 3:04 p.m.", time.Date(2024, 1, 2, 15, 4, 0, 0, time.UTC)},
		{"12/31/2023 12:00 AM", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"12/31/2023 12:30 PM", time.Date(2023, 12, 31, 12, 30, 0, 0, time.UTC)},
		{"7/4/2025 9:59 am", time.Date(2025, 7, 4, 9, 59, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseClockText(tt.in, time.UTC)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}

	for _, bad := range []string{"", "1/2/2024", "1/2 3:04 pm", "13/2/2024 3:04 pm", "1/2/2024 3:04 xm", "a/2/2024 3:04 pm"} {
		_, err := ParseClockText(bad, time.UTC)
		assert.Error(t, err, bad)
	}
}

func TestParseDateTime(t *testing.T) {
	got, err := ParseDateTime("2024-03-05T15:07", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 15, 7, 0, 0, time.UTC), got)

	got, err = ParseDateTime("2024-03-05T15:07:00Z", time.Local)
	require.NoError(t, err)
	assert.Equal(t, 15, got.UTC().Hour())

	_, err = ParseDateTime("yesterday", time.UTC)
	assert.Error(t, err)
}

func TestScrollDuration(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, scrollDuration(1))
	assert.Equal(t, 100*time.Millisecond, scrollDuration(-4))
	assert.Equal(t, 400*time.Millisecond, scrollDuration(5))
	assert.Equal(t, 400*time.Millisecond, scrollDuration(-9))
	assert.Equal(t, 800*time.Millisecond, scrollDuration(10))
	assert.Equal(t, 800*time.Millisecond, scrollDuration(-2000))
}

func clockGraph(t *testing.T, reader *regionReader, clk *clock.Manual, params map[string]string) *graph.Graph[string] {
	t.Helper()
	g, err := builtin(t, "clock").Graph(&script.Env{OCR: reader, Clock: clk, Params: params})
	require.NoError(t, err)
	return g
}

func TestClock_SetsEveryField(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	reader := newRegionReader()
	g := clockGraph(t, reader, clk, map[string]string{ParamAt: "2024-03-05T15:07"})

	assert.Equal(t, []string{
		"END", "INITIAL", "INITIAL_AM", "INITIAL_DAY", "INITIAL_HOUR",
		"INITIAL_MINUTE", "INITIAL_MONTH", "INITIAL_YEAR",
	}, g.Names())

	d, ctrl := newDevice(clk)

	next, _ := fire(t, g, "INITIAL", blank(), d)
	assert.Equal(t, "INITIAL_MONTH", next)
	assert.Equal(t, []string{"s", "d", "A", "s", "A", "s", "A", "s", "s", "A"}, ctrl.pressed())

	// Month reads 1, target 3: scroll up briefly.
	ctrl.writes = nil
	reader.set(frame.Pt(441, 118), frame.Pt(497, 186), "01")
	next, _ = fire(t, g, "INITIAL_MONTH", blank(), d)
	assert.Equal(t, "INITIAL_MONTH", next)
	assert.Equal(t, []string{"w"}, ctrl.pressed())

	reader.set(frame.Pt(441, 118), frame.Pt(497, 186), "O3")
	next, _ = fire(t, g, "INITIAL_MONTH", blank(), d)
	assert.Equal(t, "INITIAL_DAY", next)

	// Day reads 25, target 5: scroll down fast.
	ctrl.writes = nil
	reader.set(frame.Pt(442, 247), frame.Pt(499, 313), "25")
	next, _ = fire(t, g, "INITIAL_DAY", blank(), d)
	assert.Equal(t, "INITIAL_DAY", next)
	assert.Equal(t, []string{"s"}, ctrl.pressed())

	reader.set(frame.Pt(442, 247), frame.Pt(499, 313), "5")
	next, _ = fire(t, g, "INITIAL_DAY", blank(), d)
	assert.Equal(t, "INITIAL_YEAR", next)

	reader.set(frame.Pt(442, 390), frame.Pt(497, 516), "2024")
	next, _ = fire(t, g, "INITIAL_YEAR", blank(), d)
	assert.Equal(t, "INITIAL_HOUR", next)

	reader.set(frame.Pt(440, 607), frame.Pt(503, 684), "3")
	next, _ = fire(t, g, "INITIAL_HOUR", blank(), d)
	assert.Equal(t, "INITIAL_MINUTE", next)

	reader.set(frame.Pt(440, 735), frame.Pt(499, 807), "07")
	next, _ = fire(t, g, "INITIAL_MINUTE", blank(), d)
	assert.Equal(t, "INITIAL_AM", next)

	// Wrong meridiem scrolls, right one confirms and goes home.
	ctrl.writes = nil
	reader.set(meridiemTopLeft, meridiemBottomRight, "AM")
	next, _ = fire(t, g, "INITIAL_AM", blank(), d)
	assert.Equal(t, "INITIAL_AM", next)
	assert.Equal(t, []string{"s"}, ctrl.pressed())

	ctrl.writes = nil
	reader.set(meridiemTopLeft, meridiemBottomRight, "PM")
	next, _ = fire(t, g, "INITIAL_AM", blank(), d)
	assert.Equal(t, "END", next)
	assert.Equal(t, []string{"A", "A", "H"}, ctrl.pressed())

	next, res := fire(t, g, "END", blank(), d)
	assert.Equal(t, graph.Terminal, next)
	assert.True(t, res.Terminated())
	assert.Equal(t, 0, res.Code())
}

func TestClock_MisreadsBackOut(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	reader := newRegionReader()
	g := clockGraph(t, reader, clk, map[string]string{ParamAt: "2024-03-05T15:07"})
	d, ctrl := newDevice(clk)

	reader.set(frame.Pt(441, 118), frame.Pt(497, 186), "??")
	for i := 1; i < MaxMisreads; i++ {
		next, _ := fire(t, g, "INITIAL_MONTH", blank(), d)
		require.Equal(t, "INITIAL_MONTH", next)
	}
	assert.Empty(t, ctrl.pressed(), "no scrolling without a reading")

	next, _ := fire(t, g, "INITIAL_MONTH", blank(), d)
	assert.Equal(t, "INITIAL", next)
	assert.Equal(t, []string{"H"}, ctrl.pressed())

	// The count starts over after backing out.
	next, _ = fire(t, g, "INITIAL_MONTH", blank(), d)
	assert.Equal(t, "INITIAL_MONTH", next)
}

func TestClock_FreshStatePerBuild(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	reader := newRegionReader()
	params := map[string]string{ParamAt: "2024-03-05T15:07"}
	g1 := clockGraph(t, reader, clk, params)
	d, _ := newDevice(clk)

	reader.set(frame.Pt(441, 118), frame.Pt(497, 186), "??")
	for range MaxMisreads - 1 {
		fire(t, g1, "INITIAL_MONTH", blank(), d)
	}

	g2 := clockGraph(t, reader, clk, params)
	next, _ := fire(t, g2, "INITIAL_MONTH", blank(), d)
	assert.Equal(t, "INITIAL_MONTH", next)
}

func TestClock_Params(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	reader := newRegionReader()

	g := clockGraph(t, reader, clk, map[string]string{ParamAlarm: AlarmLoud})
	rules, ok := g.Rules("END")
	require.True(t, ok)
	assert.Equal(t, "END", rules[0].Next)

	g = clockGraph(t, reader, clk, map[string]string{ParamAlarm: AlarmQuiet})
	rules, _ = g.Rules("END")
	assert.Equal(t, graph.Terminal, rules[0].Next)

	s := builtin(t, "clock")
	_, err := s.Graph(&script.Env{OCR: reader, Clock: clk, Params: map[string]string{ParamAlarm: "siren"}})
	assert.ErrorContains(t, err, "unknown alarm mode")

	_, err = s.Graph(&script.Env{OCR: reader, Clock: clk, Params: map[string]string{ParamAt: "soon"}})
	assert.ErrorContains(t, err, "invalid date-time")

	_, err = s.Graph(&script.Env{Clock: clk})
	assert.ErrorContains(t, err, "needs an OCR reader")
}

func TestAlarm(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))

	t.Run("quiet", func(t *testing.T) {
		d, ctrl := newDevice(clk)
		rules := Alarm("DONE", true)["DONE"]
		require.Len(t, rules, 1)
		assert.Equal(t, graph.Terminal, rules[0].Next)

		res, err := rules[0].Action.Run(context.Background(), d)
		require.NoError(t, err)
		assert.True(t, res.Terminated())
		assert.Equal(t, 0, res.Code())
		assert.Equal(t, []string{"H", "H", "A"}, ctrl.pressed())
	})

	t.Run("loud", func(t *testing.T) {
		d, ctrl := newDevice(clk)
		rules := Alarm("DONE", false)["DONE"]
		require.Len(t, rules, 1)
		assert.Equal(t, "DONE", rules[0].Next)

		res, err := rules[0].Action.Run(context.Background(), d)
		require.NoError(t, err)
		assert.False(t, res.Terminated())
		assert.Equal(t, []string{"!", "."}, ctrl.pressed())
	})

	t.Run("builtin validates", func(t *testing.T) {
		_, err := builtin(t, "alarm").Graph(&script.Env{Clock: clk})
		assert.NoError(t, err)
	})
}

func TestReadClock(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	d, ctrl := newDevice(clk)
	reader := newRegionReader()
	reader.set(clockTextTopLeft, clockTextBottomRight, "3/5/2024 3:07 PM")

	got, err := ReadClock(context.Background(), d, reader, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 15, 7, 0, 0, time.UTC), got)
	assert.Equal(t, []string{"s", "d", "A", "s", "A", "s", "A", "H"}, ctrl.pressed())

	reader.set(clockTextTopLeft, clockTextBottomRight, "garbled")
	_, err = ReadClock(context.Background(), d, reader, time.UTC)
	assert.Error(t, err)

	_, err = ReadClock(context.Background(), d, nil, time.UTC)
	assert.ErrorContains(t, err, "OCR reader")
}

func TestReadClock_FrameError(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	d := &action.Device{
		Controller: &recordingController{},
		Clock:      clk,
		Frames: frame.SourceFunc(func(context.Context) (*frame.Frame, error) {
			return nil, frame.ErrQuit
		}),
	}
	_, err := ReadClock(context.Background(), d, newRegionReader(), time.UTC)
	assert.True(t, errors.Is(err, frame.ErrQuit))
}

func TestRestart(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	reader := newRegionReader()
	reader.set(startTextTopLeft, startTextBottomRight, "Start")

	g, err := builtin(t, "restart").Graph(&script.Env{
		OCR:    reader,
		Clock:  clk,
		Params: map[string]string{ParamSettle: "10s", ParamAttempts: "2"},
	})
	require.NoError(t, err)
	d, ctrl := newDevice(clk)

	next, _ := fire(t, g, "INITIAL", blank(), d)
	assert.Equal(t, "STARTING", next)
	assert.Equal(t, []string{"H", "X", "A"}, ctrl.pressed())

	next, _ = fire(t, g, "STARTING", blank(), d)
	assert.Equal(t, "STARTING", next, "waits for the home menu")

	next, _ = fire(t, g, "STARTING", homeMenu(), d)
	assert.Equal(t, "RUNNING", next)

	// The crash dialog is ignored during the hold.
	reader.set(crashTopLeft, crashBottomRight, CrashText)
	next, _ = fire(t, g, "RUNNING", blank(), d)
	assert.Equal(t, "RUNNING", next)

	clk.Advance(CrashHold + time.Second)
	next, _ = fire(t, g, "RUNNING", blank(), d)
	assert.Equal(t, "CRASHED", next)
	next, _ = fire(t, g, "CRASHED", blank(), d)
	assert.Equal(t, "INITIAL", next)

	// Second crash gives up.
	fire(t, g, "INITIAL", blank(), d)
	fire(t, g, "STARTING", homeMenu(), d)
	clk.Advance(CrashHold + time.Second)
	next, _ = fire(t, g, "RUNNING", blank(), d)
	assert.Equal(t, "CRASHED", next)
	next, res := fire(t, g, "CRASHED", blank(), d)
	assert.Equal(t, graph.Terminal, next)
	assert.Equal(t, ExitTooManyCrashes, res.Code())
}

func TestRestart_Settles(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	reader := newRegionReader()
	reader.set(startTextTopLeft, startTextBottomRight, "Start")

	g, err := builtin(t, "restart").Graph(&script.Env{
		OCR:    reader,
		Clock:  clk,
		Params: map[string]string{ParamSettle: "10s"},
	})
	require.NoError(t, err)
	d, _ := newDevice(clk)

	fire(t, g, "STARTING", homeMenu(), d)
	clk.Advance(CrashHold + 5*time.Second)
	next, _ := fire(t, g, "RUNNING", blank(), d)
	assert.Equal(t, "RUNNING", next)

	clk.Advance(10 * time.Second)
	next, res := fire(t, g, "RUNNING", blank(), d)
	assert.Equal(t, graph.Terminal, next)
	assert.True(t, res.Terminated())
	assert.Equal(t, 0, res.Code())
}

func TestRestart_BadParams(t *testing.T) {
	s := builtin(t, "restart")
	reader := newRegionReader()
	for _, params := range []map[string]string{
		{ParamSettle: "soon"},
		{ParamSettle: "-1s"},
		{ParamAttempts: "0"},
		{ParamAttempts: "many"},
	} {
		_, err := s.Graph(&script.Env{OCR: reader, Params: params})
		assert.Error(t, err, params)
	}
}

func TestGameStart_WithoutReader(t *testing.T) {
	assert.True(t, GameStart(nil).Match(homeMenu()))
	assert.False(t, GameStart(nil).Match(blank()))
}
