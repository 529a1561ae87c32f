package main

import (
	"context"
	"fmt"
	"image"
	"time"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"autopad-go/domain/frame"
	"autopad-go/infrastructure/capture"
	"autopad-go/presentation/inspector"
	"autopad-go/scripts/console"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [image]",
	Short: "Open the matcher inspector on an image or the live frame source",
	Long: `Shows a frame; clicking prints a pixel matcher with its HSV value and
dragging a box prints text matchers for both inversion settings, all in
canonical 1280x720 coordinates. Without an image argument frames come from the
configured source.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		reader, closeOCR, err := a.ocrReader()
		if err != nil {
			return err
		}
		defer closeOCR()

		scenes, _, err := a.registries()
		if err != nil {
			return err
		}

		cfg := &inspector.Config{
			App:    app.New(),
			Reader: scriptReader(a.cfg, reader),
			Scenes: scenes,
			Logger: a.logger,
		}

		if len(args) == 1 {
			img, err := capture.LoadImage(args[0])
			if err != nil {
				return err
			}
			cfg.Initial = img
		} else {
			// The inspector is the preview; no second window.
			a.cfg.Capture.Show = false
			dev, err := a.openDevice(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer dev.Close()
			cfg.Source = dev.Frames
			if img, err := firstFrame(cmd.Context(), dev.Frames); err == nil {
				cfg.Initial = img
			} else {
				a.logger.Warn("Failed to capture initial frame", "error", err)
			}
		}

		inspector.New(cfg).ShowAndRun()
		return nil
	},
}

var readClockCmd = &cobra.Command{
	Use:   "read-clock",
	Short: "Read the console clock from the system settings",
	Long:  `Navigates from the home menu to the date and time settings, reads the clock with OCR and returns home.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		reader, closeOCR, err := a.ocrReader()
		if err != nil {
			return err
		}
		defer closeOCR()

		dev, err := a.openDevice(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer dev.Close()

		dt, err := console.ReadClock(cmd.Context(), dev.Device, scriptReader(a.cfg, reader), time.Local)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dt.Format("2006-01-02T15:04"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd, readClockCmd)
}

func firstFrame(ctx context.Context, src frame.Source) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	f, err := src.Next(ctx)
	if err != nil {
		return nil, err
	}
	return f.Image(), nil
}
