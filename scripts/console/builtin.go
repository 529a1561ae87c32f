package console

import (
	"fmt"
	"strconv"
	"time"

	"autopad-go/domain/action"
	"autopad-go/domain/graph"
	"autopad-go/domain/match"
	"autopad-go/domain/script"
	"autopad-go/domain/timer"
)

// Source marks scripts registered from this package.
const Source = "builtin"

// Parameters understood by the builtin scripts.
const (
	ParamAt       = "at"
	ParamAlarm    = "alarm"
	ParamSettle   = "settle"
	ParamAttempts = "attempts"
)

// Alarm modes for ParamAlarm.
const (
	AlarmNone  = "none"
	AlarmQuiet = "quiet"
	AlarmLoud  = "loud"
)

// ExitTooManyCrashes is the restart script's code when the title keeps crashing.
const ExitTooManyCrashes = 3

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseDateTime accepts RFC 3339 or a local "2006-01-02T15:04[:05]" time.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date-time %q", s)
}

// Scripts returns the builtin scripts.
func Scripts() []*script.Script {
	return []*script.Script{
		{
			Name:        "clock",
			Description: "set the console clock (params: at, alarm=none|quiet|loud)",
			Source:      Source,
			Initial:     "INITIAL",
			Build:       buildClock,
		},
		{
			Name:        "restart",
			Description: "restart the title and retry while it crashes (params: settle, attempts)",
			Source:      Source,
			Initial:     "INITIAL",
			Build:       buildRestart,
		},
		{
			Name:        "alarm",
			Description: "toggle the controller alarm until stopped",
			Source:      Source,
			Initial:     "INITIAL",
			Build: func(*script.Env) (graph.States[string], error) {
				return Alarm("INITIAL", false), nil
			},
		},
	}
}

// Register adds the builtin scripts to reg.
func Register(reg *script.Registry) error {
	for _, s := range Scripts() {
		if err := reg.Register(s); err != nil {
			return err
		}
	}
	return nil
}

func buildClock(env *script.Env) (graph.States[string], error) {
	if env.OCR == nil {
		return nil, fmt.Errorf("clock needs an OCR reader")
	}

	dt := env.Clock.Now()
	if at := env.Param(ParamAt, ""); at != "" {
		var err error
		if dt, err = ParseDateTime(at, time.Local); err != nil {
			return nil, err
		}
	}

	var end graph.States[string]
	switch mode := env.Param(ParamAlarm, AlarmNone); mode {
	case AlarmNone:
		end = graph.States[string]{"END": {graph.On(match.Always, action.Exit(0), graph.Terminal)}}
	case AlarmQuiet, AlarmLoud:
		end = Alarm("END", mode == AlarmQuiet)
	default:
		return nil, fmt.Errorf("unknown alarm mode %q", mode)
	}

	env.Logger.Info("Setting console clock", "target", dt.Format(time.RFC3339))
	return graph.Merge(Clock(dt, "INITIAL", "END", env.OCR, env.Logger), end)
}

func buildRestart(env *script.Env) (graph.States[string], error) {
	if env.OCR == nil {
		return nil, fmt.Errorf("restart needs an OCR reader")
	}

	settle, err := time.ParseDuration(env.Param(ParamSettle, "60s"))
	if err != nil || settle <= 0 {
		return nil, fmt.Errorf("invalid %s %q", ParamSettle, env.Param(ParamSettle, ""))
	}
	attempts, err := strconv.Atoi(env.Param(ParamAttempts, "5"))
	if err != nil || attempts < 1 {
		return nil, fmt.Errorf("invalid %s %q", ParamAttempts, env.Param(ParamAttempts, ""))
	}

	crash := GameCrash(env.Clock, env.OCR)
	up := timer.NewTimeout(env.Clock)
	crashes := &timer.Counter{}

	return graph.States[string]{
		"INITIAL": {
			graph.On(match.Always, Reset(), "STARTING"),
		},
		"STARTING": {
			graph.On(GameStart(env.OCR), action.Do(
				action.Press("A"),
				crash.Hold(CrashHold),
				up.After(CrashHold+settle),
			), "RUNNING"),
		},
		"RUNNING": {
			graph.On(crash.Check(), action.Do(
				crashes.Incr(),
				action.Press("A"),
				action.Wait(time.Second),
			), "CRASHED"),
			graph.On(up.Expired(), action.Exit(0), graph.Terminal),
		},
		"CRASHED": {
			graph.On(crashes.AtLeast(attempts), action.Exit(ExitTooManyCrashes), graph.Terminal),
			graph.On(match.Always, action.Nothing, "INITIAL"),
		},
	}, nil
}
