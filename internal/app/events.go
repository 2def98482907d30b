package app

import (
	"time"

	"github.com/ayusman/mudra/internal/protocol"
)

// EventType names a session event.
type EventType string

const (
	// EventFrame is published after every frame that reached the dispatcher.
	EventFrame EventType = "frame"
	// EventDispatch is published for every command the dispatcher emitted.
	EventDispatch EventType = "dispatch"
	// EventShutdown is published once, after all resources are released.
	EventShutdown EventType = "shutdown"
)

// Event describes something that happened in the session.
type Event struct {
	Type        EventType        `json:"type"`
	SessionID   string           `json:"session_id"`
	Time        time.Time        `json:"time"`
	HandPresent bool             `json:"hand_present"`
	Count       int              `json:"count"`
	Command     protocol.Command `json:"command,omitempty"`
	// Reason is the dispatch reason, or the end reason for shutdown events.
	Reason    string `json:"reason,omitempty"`
	Delivered bool   `json:"delivered,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Listener receives events on the frame loop goroutine. It must not block.
type Listener func(Event)

// Subscribe registers l for every subsequent event.
func (a *App) Subscribe(l Listener) {
	if l == nil {
		return
	}
	a.listenersMu.Lock()
	defer a.listenersMu.Unlock()
	a.listeners = append(a.listeners, l)
}

func (a *App) emit(ev Event) {
	a.listenersMu.RLock()
	listeners := a.listeners
	a.listenersMu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}
