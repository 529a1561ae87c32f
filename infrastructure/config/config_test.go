package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autopad-go/application/runner"
	"autopad-go/infrastructure/ocr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, SourceCamera, cfg.Capture.Source)
	assert.Equal(t, 1280, cfg.Capture.Width)
	assert.Equal(t, ocr.EngineTesseract, cfg.OCR.Engine)

	stall, err := cfg.Runner.Stall()
	require.NoError(t, err)
	assert.Equal(t, runner.DefaultStallTimeout, stall)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("nope.yaml")
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "autopad.yaml", `
serial:
  port: /dev/ttyACM0
capture:
  source: image
  image: frame.png
ocr:
  engine: http
  timeout: 3s
runner:
  stallTimeout: none
browser:
  keys:
    A: k
`)
	t.Setenv("AUTOPAD_SERIAL_BAUD", "115200")
	t.Setenv("AUTOPAD_OCR_URL", "http://ocr:9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, SourceImage, cfg.Capture.Source)
	assert.Equal(t, ocr.EngineHTTP, cfg.OCR.Engine)
	assert.Equal(t, 3*time.Second, cfg.OCR.Timeout)
	assert.Equal(t, "http://ocr:9000", cfg.OCR.URL)

	stall, err := cfg.Runner.Stall()
	require.NoError(t, err)
	assert.Equal(t, runner.NoStallTimeout, stall)

	keys, err := cfg.Browser.KeyMap()
	require.NoError(t, err)
	assert.Equal(t, map[byte]rune{'A': 'k'}, keys)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "AUTOPAD_LOG_LEVEL=debug\n")
	// Setenv restores the variable afterwards; unset it so .env applies.
	t.Setenv("AUTOPAD_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("AUTOPAD_LOG_LEVEL"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"default ok", func(c *Config) {}, ""},
		{"bad baud", func(c *Config) { c.Serial.BaudRate = 0 }, "serial.baud"},
		{"bad source", func(c *Config) { c.Capture.Source = "vhs" }, "capture.source"},
		{"image without path", func(c *Config) { c.Capture.Source = SourceImage }, "capture.image"},
		{"browser without url", func(c *Config) { c.Capture.Source = SourceBrowser }, "browser.url"},
		{"bad engine", func(c *Config) { c.OCR.Engine = "magic" }, "ocr.engine"},
		{"bad stall", func(c *Config) { c.Runner.StallTimeout = "soon" }, "stallTimeout"},
		{"negative stall", func(c *Config) { c.Runner.StallTimeout = "-1s" }, "negative"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"bad key", func(c *Config) { c.Browser.Keys = map[string]string{"AB": "k"} }, "browser.keys"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "COM3"
	cfg.Log.Level = "warn"
	cfg.Journal.Database = "runs"

	assert.Equal(t, "COM3", cfg.SerialPort().Port)
	assert.Equal(t, slog.LevelWarn, cfg.Logging().Level)
	assert.Equal(t, "runs", cfg.Mongo().Database)
	assert.Equal(t, cfg.Browser.Quality, cfg.Screencast().Quality)
	assert.Equal(t, cfg.OCR.CacheSize, cfg.OCRReader().CacheSize)
}
