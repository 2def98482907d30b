// Package tray provides a system tray front end for a mudra session.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onQuit    func()
	count     int
	hand      bool
	connected bool
	mu        sync.RWMutex
	ready     chan struct{}
	readyOnce sync.Once

	// Menu items stored for later updates
	menuFingers *systray.MenuItem
	menuSerial  *systray.MenuItem
}

// New creates a new Tray showing no hand and an offline link.
func New() *Tray {
	return &Tray{ready: make(chan struct{})}
}

// Ready is closed once the tray menu is built. Quit has no effect before then.
func (t *Tray) Ready() <-chan struct{} {
	return t.ready
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called and must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, unblocking Run.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra finger-count controller")

	t.mu.Lock()
	t.menuFingers = systray.AddMenuItem(fingersTitle(t.count, t.hand), "Fingers on the tracked hand")
	t.menuFingers.Disable()
	t.menuSerial = systray.AddMenuItem(serialTitle(t.connected), "Serial device state")
	t.menuSerial.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Stop the session and quit")

	go func() {
		<-menuQuit.ClickedCh
		t.handleQuit()
	}()

	t.readyOnce.Do(func() { close(t.ready) })
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetFingers updates the finger count display. handPresent false shows "No hand".
func (t *Tray) SetFingers(count int, handPresent bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count = count
	t.hand = handPresent
	if t.menuFingers != nil {
		t.menuFingers.SetTitle(fingersTitle(count, handPresent))
	}
}

// SetLink updates the serial state display.
func (t *Tray) SetLink(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.connected = connected
	if t.menuSerial != nil {
		t.menuSerial.SetTitle(serialTitle(connected))
	}
}

// Fingers returns the last displayed count and whether a hand was present.
func (t *Tray) Fingers() (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count, t.hand
}

func fingersTitle(count int, handPresent bool) string {
	if !handPresent {
		return "No hand"
	}
	return fmt.Sprintf("Fingers: %d", count)
}

func serialTitle(connected bool) string {
	if connected {
		return "Serial: connected"
	}
	return "Serial: offline"
}
