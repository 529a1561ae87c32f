package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "autopad",
	Short: "autopad drives a game console from what it sees on screen",
	Long: `autopad watches the console's video output, matches each frame against the
rules of the current script state and presses buttons through a serial
controller until the script exits.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(os.Stderr, "Error:", ee.err)
		}
		return ee.code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}

func init() {
	addGlobalFlags(rootCmd)
}

// addGlobalFlags declares the flags applyFlags overlays on the configuration.
func addGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (default autopad.yaml when present)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("serial", "", "serial port of the controller")
	flags.String("source", "", "frame source: camera, browser or image")
	flags.Int("device", -1, "video device index")
	flags.String("image", "", "still image for the image source")
	flags.String("url", "", "page to open for the browser source")
	flags.Bool("no-show", false, "do not open the preview window")
	flags.String("ocr", "", "OCR engine: tesseract, http or none")
	flags.String("scripts-dir", "", "directory with scenes/ and scripts/ YAML files")
}
