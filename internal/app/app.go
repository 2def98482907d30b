// Package app runs a finger-count session: it reads frames, counts extended
// fingers on the first detected hand and sends the resulting commands over the link.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/link"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/protocol"
	"github.com/ayusman/mudra/internal/store"
	"gocv.io/x/gocv"
)

// DefaultShutdownGrace is how long the final neutral command is given to reach
// the device before the port is closed.
const DefaultShutdownGrace = 500 * time.Millisecond

// End reasons recorded on the session.
const (
	EndQuit        = "quit"
	EndCanceled    = "canceled"
	EndFrameError  = "frame_error"
	EndCameraError = "camera_error"
)

var (
	// ErrFrameAcquisition ends the session when the camera stops delivering frames.
	ErrFrameAcquisition = errors.New("frame acquisition failed")
	// ErrAlreadyStarted is returned when Run is called more than once.
	ErrAlreadyStarted = errors.New("session already started")
)

// Viewer displays frames. Show returns true when the user asked to quit.
type Viewer interface {
	Show(frame *gocv.Mat, hands []detector.HandLandmarks, st Status) bool
	Close() error
}

// Config wires the session's collaborators.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Link     link.Link
	// Store records the session and its commands. Optional.
	Store *store.Store
	// Viewer shows the annotated frame and polls for quit. Optional.
	Viewer Viewer
	// Clock defaults to the real clock.
	Clock         clockwork.Clock
	Debounce      time.Duration
	ShutdownGrace time.Duration
}

// Status is a point-in-time view of the session.
type Status struct {
	SessionID   string           `json:"session_id"`
	Running     bool             `json:"running"`
	State       dispatch.State   `json:"state"`
	HandPresent bool             `json:"hand_present"`
	Count       int              `json:"count"`
	LastCommand protocol.Command `json:"last_command,omitempty"`
	Device      string           `json:"device"`
	Connected   bool             `json:"connected"`
	Frames      int64            `json:"frames"`
	FPS         float64          `json:"fps"`
	StartedAt   time.Time        `json:"started_at"`
}

// App is the session controller. It owns every resource of one session.
type App struct {
	camera        capture.Camera
	detector      detector.Detector
	link          link.Link
	store         *store.Store
	viewer        Viewer
	clock         clockwork.Clock
	dispatcher    *dispatch.Dispatcher
	shutdownGrace time.Duration
	log           *slog.Logger

	mu      sync.RWMutex
	status  Status
	started bool

	listenersMu sync.RWMutex
	listeners   []Listener

	// frame loop only
	fpsStart  time.Time
	fpsFrames int
}

// New creates an App. Camera, Detector and Link are required.
func New(config Config) (*App, error) {
	if config.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if config.Detector == nil {
		return nil, errors.New("app: detector is required")
	}
	if config.Link == nil {
		return nil, errors.New("app: link is required")
	}

	clock := config.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	grace := config.ShutdownGrace
	if grace < 0 {
		grace = 0
	}

	return &App{
		camera:        config.Camera,
		detector:      config.Detector,
		link:          config.Link,
		store:         config.Store,
		viewer:        config.Viewer,
		clock:         clock,
		dispatcher:    dispatch.New(config.Debounce),
		shutdownGrace: grace,
		log:           logging.Logger,
		status: Status{
			State:     dispatch.Idle,
			Device:    config.Link.Name(),
			Connected: config.Link.Connected(),
		},
	}, nil
}

// Run executes the session until the context is canceled, the viewer reports
// quit or frame acquisition fails. Whatever the exit path, the neutral command is
// sent and every resource is released before Run returns.
func (a *App) Run(ctx context.Context) error {
	if err := a.begin(); err != nil {
		return err
	}

	reason := EndFrameError
	defer func() { a.release(reason) }()

	if err := a.camera.Open(); err != nil {
		reason = EndCameraError
		return fmt.Errorf("open camera: %w", err)
	}

	var err error
	reason, err = a.runPipeline(ctx)
	return err
}

// Status returns a snapshot safe to read from any goroutine.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	st := a.status
	st.Connected = a.link.Connected()
	return st
}

// SessionID returns the current session id, empty before Run.
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status.SessionID
}

func (a *App) begin() error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	a.started = true

	now := a.clock.Now()
	a.status.SessionID = uuid.NewString()
	a.status.Running = true
	a.status.StartedAt = now
	id := a.status.SessionID
	a.mu.Unlock()

	a.log = logging.WithSession(id)
	a.fpsStart = now

	if a.link.Connected() {
		metrics.LinkConnected.Set(1)
	} else {
		metrics.LinkConnected.Set(0)
	}

	if a.store != nil {
		err := a.store.Sessions().Create(&store.Session{
			ID:        id,
			Device:    a.link.Name(),
			Debounce:  a.dispatcher.Debounce(),
			StartedAt: now,
		})
		if err != nil {
			metrics.StoreErrorsTotal.WithLabelValues("session").Inc()
			a.log.Error("Failed to record session", "error", err)
		}
	}

	a.log.Info("Session started",
		"device", a.link.Name(),
		"connected", a.link.Connected(),
		"debounce", a.dispatcher.Debounce())
	return nil
}

// release sends the shutdown command, waits for it to drain and closes every resource.
func (a *App) release(reason string) {
	now := a.clock.Now()
	a.send(a.dispatcher.Shutdown(), protocol.MinCount, now)

	if a.shutdownGrace > 0 {
		a.clock.Sleep(a.shutdownGrace)
	}

	if err := a.link.Close(); err != nil {
		a.log.Error("Error closing link", "error", err)
	}
	metrics.LinkConnected.Set(0)

	if err := a.camera.Close(); err != nil {
		a.log.Error("Error closing camera", "error", err)
	}
	if err := a.detector.Close(); err != nil {
		a.log.Error("Error closing detector", "error", err)
	}
	if a.viewer != nil {
		if err := a.viewer.Close(); err != nil {
			a.log.Error("Error closing viewer", "error", err)
		}
	}

	a.mu.Lock()
	a.status.Running = false
	a.status.Connected = false
	frames := a.status.Frames
	id := a.status.SessionID
	a.mu.Unlock()

	ended := a.clock.Now()
	if a.store != nil {
		if err := a.store.Sessions().Finish(id, ended, frames, reason); err != nil {
			metrics.StoreErrorsTotal.WithLabelValues("session").Inc()
			a.log.Error("Failed to finish session", "error", err)
		}
	}

	a.emit(Event{Type: EventShutdown, SessionID: id, Time: ended, Reason: reason})
	a.log.Info("Session ended", "reason", reason, "frames", frames)
}
