package link

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tarm/serial"
)

// Serial defaults match an Arduino Uno running the LED/servo sketch.
const (
	DefaultBaud        = 9600
	DefaultSettle      = 2 * time.Second
	DefaultReadTimeout = time.Second
)

// SerialConfig describes the serial device.
type SerialConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
	// Settle is how long to wait after opening; the board resets when the port opens.
	Settle time.Duration
}

// OpenSerial opens the device, waits for it to settle and returns a link over it.
func OpenSerial(cfg SerialConfig) (*StreamLink, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial port not configured")
	}
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}

	if cfg.Settle > 0 {
		slog.Info("Waiting for serial device to reset", "port", cfg.Port, "settle", cfg.Settle)
		time.Sleep(cfg.Settle)
	}

	return NewStreamLink(cfg.Port, port), nil
}

// Open opens the serial device, or returns an offline link when the device is
// unavailable and not required. The returned error is non-nil only when required
// is true and the device could not be opened.
func Open(cfg SerialConfig, required bool) (Link, error) {
	l, err := OpenSerial(cfg)
	if err == nil {
		slog.Info("Serial device connected", "port", cfg.Port)
		return l, nil
	}
	if required {
		return nil, err
	}

	slog.Warn("Serial device unavailable, continuing camera-only", "port", cfg.Port, "error", err)
	return NewOfflineLink(cfg.Port), nil
}
