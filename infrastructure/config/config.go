// Package config loads autopad settings: defaults, then an optional YAML
// file, then a .env file and AUTOPAD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"autopad-go/application/runner"
	"autopad-go/infrastructure/browser"
	"autopad-go/infrastructure/capture"
	"autopad-go/infrastructure/journal"
	"autopad-go/infrastructure/logging"
	"autopad-go/infrastructure/metrics"
	"autopad-go/infrastructure/ocr"
	"autopad-go/infrastructure/serialport"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "autopad.yaml"

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "AUTOPAD_"

// Frame source kinds.
const (
	SourceCamera  = "camera"
	SourceBrowser = "browser"
	SourceImage   = "image"
)

// Config is the full application configuration.
type Config struct {
	Serial  SerialConfig  `yaml:"serial" envPrefix:"SERIAL_"`
	Capture CaptureConfig `yaml:"capture" envPrefix:"CAPTURE_"`
	Browser BrowserConfig `yaml:"browser" envPrefix:"BROWSER_"`
	OCR     OCRConfig     `yaml:"ocr" envPrefix:"OCR_"`
	Runner  RunnerConfig  `yaml:"runner" envPrefix:"RUNNER_"`
	Journal JournalConfig `yaml:"journal" envPrefix:"JOURNAL_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Scripts ScriptsConfig `yaml:"scripts" envPrefix:"SCRIPTS_"`
}

type SerialConfig struct {
	Port     string `yaml:"port" env:"PORT"`
	BaudRate int    `yaml:"baud" env:"BAUD"`
}

type CaptureConfig struct {
	// Source is camera, browser or image.
	Source        string `yaml:"source" env:"SOURCE"`
	Device        int    `yaml:"device" env:"DEVICE"`
	Width         int    `yaml:"width" env:"WIDTH"`
	Height        int    `yaml:"height" env:"HEIGHT"`
	Show          bool   `yaml:"show" env:"SHOW"`
	Image         string `yaml:"image" env:"IMAGE"`
	ScreenshotDir string `yaml:"screenshotDir" env:"SCREENSHOT_DIR"`
}

type BrowserConfig struct {
	URL         string            `yaml:"url" env:"URL"`
	Headless    bool              `yaml:"headless" env:"HEADLESS"`
	Quality     int               `yaml:"quality" env:"QUALITY"`
	MaxFPS      int               `yaml:"maxFPS" env:"MAX_FPS"`
	UserDataDir string            `yaml:"userDataDir" env:"USER_DATA_DIR"`
	Keys        map[string]string `yaml:"keys" env:"KEYS"`
}

type OCRConfig struct {
	Engine    string        `yaml:"engine" env:"ENGINE"`
	URL       string        `yaml:"url" env:"URL"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
	CacheSize int           `yaml:"cacheSize" env:"CACHE_SIZE"`
}

type RunnerConfig struct {
	// StallTimeout is a duration, or "none" to disable the watchdog.
	StallTimeout string `yaml:"stallTimeout" env:"STALL_TIMEOUT"`
}

type JournalConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	URI      string `yaml:"uri" env:"URI"`
	Database string `yaml:"database" env:"DATABASE"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr" env:"ADDR"`
}

type LogConfig struct {
	Level   string `yaml:"level" env:"LEVEL"`
	Dir     string `yaml:"dir" env:"DIR"`
	Console bool   `yaml:"console" env:"CONSOLE"`
}

type ScriptsConfig struct {
	// Dir holds scenes/ and scripts/ subdirectories of YAML files.
	Dir string `yaml:"dir" env:"DIR"`
}

// Default returns the built-in configuration.
func Default() *Config {
	serialCfg := serialport.DefaultConfig()
	captureCfg := capture.DefaultConfig()
	browserCfg := browser.DefaultDriverConfig()
	castCfg := browser.DefaultScreencastConfig()
	ocrCfg := ocr.DefaultConfig()
	mongoCfg := journal.DefaultConfig()

	return &Config{
		Serial: SerialConfig{
			Port:     serialCfg.Port,
			BaudRate: serialCfg.BaudRate,
		},
		Capture: CaptureConfig{
			Source:        SourceCamera,
			Device:        captureCfg.Device,
			Width:         captureCfg.Width,
			Height:        captureCfg.Height,
			Show:          captureCfg.Show,
			ScreenshotDir: captureCfg.ScreenshotDir,
		},
		Browser: BrowserConfig{
			Headless: browserCfg.Headless,
			Quality:  castCfg.Quality,
			MaxFPS:   castCfg.MaxFPS,
		},
		OCR: OCRConfig{
			Engine:    ocrCfg.Engine,
			URL:       ocrCfg.URL,
			Timeout:   ocrCfg.Timeout,
			CacheSize: ocrCfg.CacheSize,
		},
		Runner: RunnerConfig{
			StallTimeout: runner.DefaultStallTimeout.String(),
		},
		Journal: JournalConfig{
			URI:      mongoCfg.URI,
			Database: mongoCfg.Database,
		},
		Metrics: MetricsConfig{
			Addr: metrics.DefaultAddr,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration. A missing file at DefaultPath is not an
// error; a missing explicitly named file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.Serial.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", c.Serial.BaudRate))
	}
	switch c.Capture.Source {
	case SourceCamera, SourceBrowser:
	case SourceImage:
		if c.Capture.Image == "" {
			errs = append(errs, errors.New("capture.image is required for the image source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown capture.source %q", c.Capture.Source))
	}
	if c.Capture.Source == SourceBrowser && c.Browser.URL == "" {
		errs = append(errs, errors.New("browser.url is required for the browser source"))
	}
	switch c.OCR.Engine {
	case ocr.EngineTesseract, ocr.EngineHTTP, ocr.EngineNone:
	default:
		errs = append(errs, fmt.Errorf("unknown ocr.engine %q", c.OCR.Engine))
	}
	if _, err := c.Runner.Stall(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Browser.KeyMap(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Stall returns the stall timeout, runner.NoStallTimeout for "none".
func (r RunnerConfig) Stall() (time.Duration, error) {
	s := strings.TrimSpace(r.StallTimeout)
	switch strings.ToLower(s) {
	case "":
		return runner.DefaultStallTimeout, nil
	case "none", "off":
		return runner.NoStallTimeout, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid runner.stallTimeout %q: %w", r.StallTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid runner.stallTimeout %q: must not be negative", r.StallTimeout)
	}
	return d, nil
}

// KeyMap converts the button-to-key table. Both sides must be single
// characters. An empty table returns nil, selecting the default map.
func (b BrowserConfig) KeyMap() (map[byte]rune, error) {
	if len(b.Keys) == 0 {
		return nil, nil
	}
	m := make(map[byte]rune, len(b.Keys))
	for button, key := range b.Keys {
		kr := []rune(key)
		if len(button) != 1 || len(kr) != 1 {
			return nil, fmt.Errorf("invalid browser.keys entry %q: %q", button, key)
		}
		m[button[0]] = kr[0]
	}
	return m, nil
}

// SerialPort returns the serial line settings.
func (c *Config) SerialPort() *serialport.Config {
	cfg := serialport.DefaultConfig()
	cfg.Port = c.Serial.Port
	cfg.BaudRate = c.Serial.BaudRate
	return cfg
}

// CaptureDevice returns the capture device settings.
func (c *Config) CaptureDevice() *capture.Config {
	cfg := capture.DefaultConfig()
	cfg.Device = c.Capture.Device
	cfg.Width = c.Capture.Width
	cfg.Height = c.Capture.Height
	cfg.Show = c.Capture.Show
	cfg.ScreenshotDir = c.Capture.ScreenshotDir
	return cfg
}

// BrowserDriver returns the browser driver settings.
func (c *Config) BrowserDriver() *browser.DriverConfig {
	cfg := browser.DefaultDriverConfig()
	cfg.Headless = c.Browser.Headless
	cfg.UserDataDir = c.Browser.UserDataDir
	return cfg
}

// Screencast returns the screencast settings.
func (c *Config) Screencast() browser.ScreencastConfig {
	return browser.ScreencastConfig{Quality: c.Browser.Quality, MaxFPS: c.Browser.MaxFPS}
}

// OCRReader returns the OCR reader settings.
func (c *Config) OCRReader() *ocr.Config {
	return &ocr.Config{
		Engine:    c.OCR.Engine,
		URL:       c.OCR.URL,
		Timeout:   c.OCR.Timeout,
		CacheSize: c.OCR.CacheSize,
	}
}

// Mongo returns the journal connection settings.
func (c *Config) Mongo() *journal.Config {
	cfg := journal.DefaultConfig()
	cfg.URI = c.Journal.URI
	cfg.Database = c.Journal.Database
	return cfg
}

// Logging returns the logging settings. Validate has already checked the level.
func (c *Config) Logging() *logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level, _ = logging.ParseLevel(c.Log.Level)
	cfg.Dir = c.Log.Dir
	cfg.Console = c.Log.Console
	return cfg
}
