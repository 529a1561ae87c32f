// Package console holds builtin scripts for console-level menus: the system
// clock, the home-menu restart and the completion alarm. They are written in
// Go because they keep per-run state (OCR reads, misread counts) that the
// YAML vocabulary cannot express.
package console

import (
	"time"

	"autopad-go/core/clock"
	"autopad-go/domain/action"
	"autopad-go/domain/frame"
	"autopad-go/domain/graph"
	"autopad-go/domain/match"
	"autopad-go/domain/timer"
)

// CrashText is the dialog the console shows after a title crashes.
const CrashText = "The software was closed because an error occurred."

// CrashHold silences the crash check after a restart.
const CrashHold = 30 * time.Second

var (
	crashTopLeft     = frame.Pt(307, 306)
	crashBottomRight = frame.Pt(351, 971)

	gameStartPoint       = frame.Pt(61, 745)
	gameStartColor       = frame.RGB(217, 217, 217)
	startTextTopLeft     = frame.Pt(669, 1158)
	startTextBottomRight = frame.Pt(700, 1228)
)

// Reset closes the running title from the home menu and starts it again.
func Reset() action.Action {
	return action.Do(
		action.Press("H"),
		action.Wait(time.Second),
		action.Press("X"),
		action.Wait(500*time.Millisecond),
		action.Press("A"),
		action.Wait(2500*time.Millisecond),
	)
}

// GameStart matches the home menu with the title selected and its Start
// prompt visible. Without a reader only the pixel is checked.
func GameStart(reader match.TextReader) match.Matcher {
	px := match.Px(gameStartPoint, gameStartColor)
	if reader == nil {
		return px
	}
	return match.All(px, match.Text(reader, "Start", startTextTopLeft, startTextBottomRight, false))
}

// GameCrash watches for the crash dialog. Hold it right after pressing A on a
// fresh start; the dialog lingers while the title reloads.
func GameCrash(c clock.Clock, reader match.TextReader) *timer.Debounce {
	return timer.NewDebounce(c, match.Text(reader, CrashText, crashTopLeft, crashBottomRight, true))
}

// Alarm returns a single state that signals completion. A quiet alarm goes
// home, holds HOME to open the quick menu, confirms and exits. A loud alarm
// toggles the controller's alarm buttons until the stall watchdog or the
// operator ends the run.
func Alarm(name string, quiet bool) graph.States[string] {
	if quiet {
		return graph.States[string]{
			name: {
				graph.On(match.Always, action.Do(
					action.Press("H"),
					action.Wait(time.Second),
					action.PressFor("H", time.Second),
					action.Wait(500*time.Millisecond),
					action.Press("A"),
					action.Exit(0),
				), graph.Terminal),
			},
		}
	}
	return graph.States[string]{
		name: {
			graph.On(match.Always, action.Do(
				action.Press("!"),
				action.Wait(250*time.Millisecond),
				action.Press("."),
				action.Wait(250*time.Millisecond),
			), name),
		},
	}
}
