package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"autopad-go/core/clock"
	"autopad-go/domain/action"
	"autopad-go/infrastructure/serialport"
)

var pressCmd = &cobra.Command{
	Use:   "press <button>",
	Short: "Press a controller button",
	Long: `Sends a button command, holds it, releases every button and repeats.
Buttons are the firmware's single-byte commands, e.g. A, B, H, w, a, s, d.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		duration, _ := cmd.Flags().GetDuration("duration")
		interval, _ := cmd.Flags().GetDuration("interval")
		if len(args[0]) != 1 {
			return fmt.Errorf("button must be a single character, got %q", args[0])
		}
		if count < 1 {
			return fmt.Errorf("count must be at least 1, got %d", count)
		}

		steps := make([]action.Action, 0, 2*count)
		for i := range count {
			if i > 0 && interval > 0 {
				steps = append(steps, action.Wait(interval))
			}
			steps = append(steps, action.PressFor(args[0], duration))
		}
		return sendActions(cmd, action.Do(steps...))
	},
}

var touchCmd = &cobra.Command{
	Use:   "touch <x> <y>",
	Short: "Tap the touch screen at (x, y)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid x %q: %w", args[0], err)
		}
		y, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid y %q: %w", args[1], err)
		}
		if _, err := action.TouchBytes(x, y); err != nil {
			return err
		}
		return sendActions(cmd, action.Touch(x, y))
	},
}

var serialDebugCmd = &cobra.Command{
	Use:   "serial-debug",
	Short: "Echo the controller firmware's debug stream with timestamps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		port, err := a.openController()
		if err != nil {
			return err
		}
		defer port.Close()

		return serialport.Debug(ctx, port, cmd.OutOrStdout(), nil)
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serialport.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), p.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pressCmd, touchCmd, serialDebugCmd, portsCmd)

	pressCmd.Flags().IntP("count", "n", 1, "number of presses")
	pressCmd.Flags().DurationP("duration", "d", action.DefaultPressDuration, "how long to hold the button")
	pressCmd.Flags().Duration("interval", 0, "pause between presses")
}

// sendActions runs a one-off action on the serial controller without a
// frame source.
func sendActions(cmd *cobra.Command, act action.Action) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port, err := a.openController()
	if err != nil {
		return err
	}
	defer port.Close()

	dev := &action.Device{Controller: port, Clock: clock.System{}, Logger: a.logger}
	start := time.Now()
	if _, err := act.Run(ctx, dev); err != nil {
		return err
	}
	a.logger.Debug("Commands sent", "port", port.Name(), "elapsed", time.Since(start))
	return nil
}
