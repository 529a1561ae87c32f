package main

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autopad-go/application/runner"
	"autopad-go/domain/script"
	"autopad-go/infrastructure/config"
	"autopad-go/infrastructure/ocr"
)

func parsed(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addGlobalFlags(cmd)
	cmd.Flags().String("stall", "", "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestApplyFlags(t *testing.T) {
	t.Run("unset flags keep config", func(t *testing.T) {
		cfg := config.Default()
		cfg.Serial.Port = "/dev/ttyACM0"
		require.NoError(t, applyFlags(parsed(t), cfg))
		assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
		assert.True(t, cfg.Capture.Show)
		assert.Equal(t, config.SourceCamera, cfg.Capture.Source)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg := config.Default()
		cmd := parsed(t, "--serial", "COM3", "--device", "2", "--no-show", "--ocr", "none", "--log-level", "debug")
		require.NoError(t, applyFlags(cmd, cfg))
		assert.Equal(t, "COM3", cfg.Serial.Port)
		assert.Equal(t, 2, cfg.Capture.Device)
		assert.False(t, cfg.Capture.Show)
		assert.Equal(t, ocr.EngineNone, cfg.OCR.Engine)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("image selects image source", func(t *testing.T) {
		cfg := config.Default()
		require.NoError(t, applyFlags(parsed(t, "--image", "screen.png"), cfg))
		assert.Equal(t, config.SourceImage, cfg.Capture.Source)
		assert.Equal(t, "screen.png", cfg.Capture.Image)
	})

	t.Run("browser needs url", func(t *testing.T) {
		cfg := config.Default()
		err := applyFlags(parsed(t, "--source", "browser"), cfg)
		assert.ErrorContains(t, err, "browser.url")
	})

	t.Run("unknown ocr engine", func(t *testing.T) {
		cfg := config.Default()
		err := applyFlags(parsed(t, "--ocr", "magic"), cfg)
		assert.ErrorContains(t, err, "unknown ocr.engine")
	})
}

func TestStallTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Runner.StallTimeout = "90s"

	tests := []struct {
		name   string
		args   []string
		script time.Duration
		want   time.Duration
	}{
		{"config", nil, 0, 90 * time.Second},
		{"script setting", nil, 30 * time.Second, 30 * time.Second},
		{"script disables", nil, script.NoStall, runner.NoStallTimeout},
		{"flag wins", []string{"--stall", "5s"}, 30 * time.Second, 5 * time.Second},
		{"flag disables", []string{"--stall", "none"}, 30 * time.Second, runner.NoStallTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stallTimeout(parsed(t, tt.args...), cfg, &script.Script{Name: "s", StallTimeout: tt.script})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := stallTimeout(parsed(t, "--stall", "soon"), cfg, &script.Script{Name: "s"})
	assert.ErrorContains(t, err, "invalid runner.stallTimeout")
}

func TestScriptReader(t *testing.T) {
	cfg := config.Default()
	reader := ocr.NoOp{}

	assert.NotNil(t, scriptReader(cfg, reader))

	cfg.OCR.Engine = ocr.EngineNone
	assert.Nil(t, scriptReader(cfg, reader))
}

func TestExitError(t *testing.T) {
	cause := errors.New("stalled in A")
	err := error(&exitError{code: 3, err: cause})

	assert.Equal(t, "stalled in A", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "exit status 2", (&exitError{code: 2}).Error())
}
