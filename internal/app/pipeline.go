package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/fingers"
	"github.com/ayusman/mudra/internal/link"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/store"
	"gocv.io/x/gocv"
)

// fpsWindow is how often the measured frame rate is refreshed.
const fpsWindow = time.Second

// runPipeline is the frame loop. It returns the end reason and, for acquisition
// failures, an error wrapping ErrFrameAcquisition.
//
// Per frame:
// 1. Poll the context for quit
// 2. Read a frame (failure ends the session, no retry)
// 3. Detect hands, count fingers on the first one and dispatch
// 4. Show the frame; the viewer may ask to quit
func (a *App) runPipeline(ctx context.Context) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return EndCanceled, nil
		default:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			a.log.Error("Error reading frame", "error", err)
			return EndFrameError, fmt.Errorf("%w: %w", ErrFrameAcquisition, err)
		}

		hands := a.step(frame)

		quit := false
		if a.viewer != nil {
			quit = a.viewer.Show(frame, hands, a.Status())
		}
		if frame != nil {
			frame.Close()
		}

		if quit {
			return EndQuit, nil
		}
	}
}

// step processes one frame and returns the detected hands for display.
// A detector failure skips the frame without touching the dispatcher.
func (a *App) step(frame *gocv.Mat) []detector.HandLandmarks {
	start := a.clock.Now()
	defer func() {
		metrics.FrameDuration.Observe(a.clock.Since(start).Seconds())
	}()

	a.countFrame(start)

	hands, err := a.detector.Detect(frame)
	if err != nil {
		metrics.DetectErrorsTotal.Inc()
		a.log.Warn("Hand detection failed, skipping frame", "error", err)
		return nil
	}

	handPresent := len(hands) > 0
	count := 0
	if handPresent {
		// Only the first hand is counted.
		count = fingers.Count(&hands[0])
		metrics.FramesTotal.WithLabelValues("present").Inc()
		metrics.FingerCount.Set(float64(count))
	} else {
		metrics.FramesTotal.WithLabelValues("absent").Inc()
	}

	now := a.clock.Now()
	decision, emit := a.dispatcher.Dispatch(count, handPresent, now)
	snap := a.dispatcher.Snapshot()

	a.mu.Lock()
	a.status.State = snap.State
	a.status.HandPresent = handPresent
	a.status.Count = count
	id := a.status.SessionID
	a.mu.Unlock()

	a.log.Debug("Frame processed", "hand", handPresent, "count", count, "state", snap.State)
	a.emit(Event{Type: EventFrame, SessionID: id, Time: now, HandPresent: handPresent, Count: count})

	if emit {
		a.send(decision, count, now)
	}
	return hands
}

// countFrame bumps the frame counter and refreshes the FPS once per window.
func (a *App) countFrame(now time.Time) {
	elapsed := now.Sub(a.fpsStart)

	a.mu.Lock()
	defer a.mu.Unlock()

	if elapsed >= fpsWindow {
		a.status.FPS = float64(a.fpsFrames) / elapsed.Seconds()
		a.fpsFrames = 0
		a.fpsStart = now
	}
	a.fpsFrames++
	a.status.Frames++
}

// send writes one decision to the link. Failures are logged and counted; the
// dispatcher has already advanced and is not rolled back.
func (a *App) send(d dispatch.Decision, count int, now time.Time) {
	err := a.link.Send(d.Command)
	metrics.CommandsTotal.WithLabelValues(d.Command.String(), string(d.Reason)).Inc()

	switch {
	case err == nil:
		a.log.Info("Command sent", "command", d.Command, "reason", d.Reason, "count", count)
	case errors.Is(err, link.ErrOffline):
		a.log.Debug("Command dropped, serial offline", "command", d.Command, "reason", d.Reason)
	default:
		metrics.TransmitErrorsTotal.Inc()
		a.log.Error("Failed to send command", "command", d.Command, "reason", d.Reason, "error", err)
	}

	a.mu.Lock()
	a.status.LastCommand = d.Command
	id := a.status.SessionID
	a.mu.Unlock()

	ev := Event{
		Type:        EventDispatch,
		SessionID:   id,
		Time:        now,
		HandPresent: d.Reason == dispatch.ReasonChanged,
		Count:       count,
		Command:     d.Command,
		Reason:      string(d.Reason),
		Delivered:   err == nil,
	}
	if err != nil {
		ev.Error = err.Error()
	}

	a.record(ev)
	a.emit(ev)
}

// record stores a dispatch event. Store failures never stop the session.
func (a *App) record(ev Event) {
	if a.store == nil {
		return
	}

	err := a.store.Dispatches().Create(&store.Dispatch{
		SessionID:   ev.SessionID,
		Command:     ev.Command,
		FingerCount: ev.Count,
		Reason:      ev.Reason,
		Delivered:   ev.Delivered,
		Error:       ev.Error,
		CreatedAt:   ev.Time,
	})
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("dispatch").Inc()
		a.log.Error("Failed to record dispatch", "error", err)
	}
}
