// Package link carries encoded commands to the actuator controller.
package link

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ayusman/mudra/internal/protocol"
)

var (
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("link closed")
	// ErrOffline is returned by the offline link; commands are dropped.
	ErrOffline = errors.New("link offline")
)

// Link is an outbound-only command channel. Nothing is read back.
type Link interface {
	// Send writes one framed command.
	Send(cmd protocol.Command) error
	// Connected reports whether commands can currently reach the device.
	Connected() bool
	// Name identifies the device for logs and session records.
	Name() string
	// Close releases the underlying handle. It is safe to call more than once.
	Close() error
}

// StreamLink writes framed commands to a byte stream.
type StreamLink struct {
	name   string
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewStreamLink wraps w. If w is also an io.Closer it is closed by Close.
func NewStreamLink(name string, w io.Writer) *StreamLink {
	return &StreamLink{name: name, w: w}
}

// Send writes cmd followed by the line terminator in a single write.
func (l *StreamLink) Send(cmd protocol.Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if _, err := l.w.Write(cmd.Frame()); err != nil {
		return fmt.Errorf("write %s to %s: %w", cmd, l.name, err)
	}
	return nil
}

// Connected reports whether the link is still open.
func (l *StreamLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.closed
}

// Name returns the device name.
func (l *StreamLink) Name() string {
	return l.name
}

// Close closes the underlying writer once.
func (l *StreamLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if c, ok := l.w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close %s: %w", l.name, err)
		}
	}
	return nil
}

// OfflineLink stands in for a missing device so the session can run camera-only.
type OfflineLink struct {
	name string
}

// NewOfflineLink returns a link that drops every command.
func NewOfflineLink(name string) *OfflineLink {
	return &OfflineLink{name: name}
}

// Send always returns ErrOffline.
func (l *OfflineLink) Send(cmd protocol.Command) error {
	return fmt.Errorf("%w: %s not sent to %s", ErrOffline, cmd, l.name)
}

func (l *OfflineLink) Connected() bool { return false }
func (l *OfflineLink) Name() string    { return l.name }
func (l *OfflineLink) Close() error    { return nil }
