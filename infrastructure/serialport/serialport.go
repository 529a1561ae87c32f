// Package serialport is the command channel to the controller firmware:
// single ASCII bytes over a 9600 baud serial line.
package serialport

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"autopad-go/domain/action"
)

// Config holds serial line settings.
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// DefaultPort is the conventional USB serial adapter for the platform.
func DefaultPort() string {
	if runtime.GOOS == "windows" {
		return "COM1"
	}
	return "/dev/ttyUSB0"
}

// DefaultConfig returns 9600 baud on the default port.
func DefaultConfig() *Config {
	return &Config{
		Port:        DefaultPort(),
		BaudRate:    9600,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Port is an open controller connection.
type Port struct {
	name   string
	port   serial.Port
	mu     sync.Mutex
	logger *slog.Logger
}

// Open opens the port 8N1 at the configured rate.
func Open(cfg *Config, logger *slog.Logger) (*Port, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}
	if cfg.ReadTimeout > 0 {
		if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	logger.Info("Serial port opened", "port", cfg.Port, "baud", cfg.BaudRate)
	return &Port{name: cfg.Port, port: p, logger: logger}, nil
}

// Name returns the device path.
func (p *Port) Name() string {
	return p.name
}

// Write sends command bytes.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger.Debug("Serial write", "bytes", string(b))
	return p.port.Write(b)
}

// Read reads firmware output. It returns 0, nil when the read timeout
// elapses with no data.
func (p *Port) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Close releases the port.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port.Close()
}

var _ action.Controller = (*Port)(nil)

// PortInfo describes an available serial device.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// ListPorts enumerates serial devices, sorted by name.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		out = append(out, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// String renders a port the way the ports command prints it.
func (pi PortInfo) String() string {
	if !pi.IsUSB {
		return pi.Name
	}
	s := fmt.Sprintf("%s\tUSB %s:%s", pi.Name, pi.VID, pi.PID)
	if pi.Product != "" {
		s += "\t" + pi.Product
	}
	if pi.SerialNumber != "" {
		s += "\t" + pi.SerialNumber
	}
	return s
}
