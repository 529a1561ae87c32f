package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"autopad-go/application/runner"
	"autopad-go/core/clock"
	"autopad-go/domain/match"
	"autopad-go/domain/script"
	"autopad-go/infrastructure/config"
	"autopad-go/infrastructure/ocr"
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a script until it exits, stalls or is stopped",
	Long: `Runs a script against the configured frame source. The process exits with
the script's exit code; a stall or fault exits non-zero, the quit key in the
preview window exits 0 and Ctrl-C exits 130.`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringToString("set", nil, "script parameter key=value (repeatable)")
	runCmd.Flags().String("stall", "", `stall timeout override, e.g. 90s or "none"`)
	runCmd.Flags().Bool("dry-run", false, "log controller writes instead of sending them")
	runCmd.Flags().String("run-id", "", "run identifier (random when empty)")
}

func runScript(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scenes, scripts, err := a.registries()
	if err != nil {
		return err
	}
	s := scripts.Get(args[0])
	if s == nil {
		return fmt.Errorf("unknown script %q (see autopad list)", args[0])
	}

	reader, closeOCR, err := a.ocrReader()
	if err != nil {
		return err
	}
	defer closeOCR()

	params, _ := cmd.Flags().GetStringToString("set")
	env := &script.Env{
		Scenes: scenes,
		OCR:    scriptReader(a.cfg, reader),
		Clock:  clock.System{},
		Logger: a.logger.With("script", s.Name),
		Params: params,
	}
	g, err := s.Graph(env)
	if err != nil {
		return err
	}

	stall, err := stallTimeout(cmd, a.cfg, s)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	dev, err := a.openDevice(ctx, dryRun)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			a.logger.Warn("Failed to close device", "error", err)
		}
	}()
	dev.Clock = env.Clock

	obs, err := a.startObservers(ctx)
	if err != nil {
		return err
	}
	defer obs.Close()

	runID, _ := cmd.Flags().GetString("run-id")
	r, err := runner.New(g, s.Initial, dev.Device,
		runner.WithStallTimeout(stall),
		runner.WithLogger(a.logger),
		runner.WithEventBus(obs.bus),
		runner.WithName(s.Name),
		runner.WithRunID(runID),
	)
	if err != nil {
		return err
	}

	out, err := r.Run(ctx)
	if err == nil && out.ExitCode == 0 {
		return nil
	}
	code := out.ExitCode
	if code == 0 {
		code = 1
	}
	return &exitError{code: code, err: err}
}

// scriptReader hides a disabled OCR engine from scripts, so scripts that
// need text fail to build instead of never matching.
func scriptReader(cfg *config.Config, r ocr.Reader) match.TextReader {
	if cfg.OCR.Engine == ocr.EngineNone {
		return nil
	}
	return r
}

// stallTimeout resolves the watchdog: the flag wins, then the script's own
// setting, then the configuration.
func stallTimeout(cmd *cobra.Command, cfg *config.Config, s *script.Script) (time.Duration, error) {
	if cmd.Flags().Changed("stall") {
		v, _ := cmd.Flags().GetString("stall")
		return config.RunnerConfig{StallTimeout: v}.Stall()
	}
	switch {
	case s.StallTimeout == script.NoStall:
		return runner.NoStallTimeout, nil
	case s.StallTimeout > 0:
		return s.StallTimeout, nil
	}
	return cfg.Runner.Stall()
}
