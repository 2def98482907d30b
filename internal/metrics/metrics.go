// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics
var (
	// FramesTotal counts processed frames by whether a hand was found
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mudra_frames_total",
			Help: "Frames processed by hand presence (present/absent)",
		},
		[]string{"hand"},
	)

	// FrameDuration tracks detect-count-dispatch time per frame
	FrameDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mudra_frame_duration_seconds",
			Help:    "Time spent detecting, counting and dispatching one frame",
			Buckets: []float64{.005, .01, .02, .033, .05, .1, .25, .5, 1},
		},
	)

	// DetectErrorsTotal counts frames skipped because the detector failed
	DetectErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mudra_detect_errors_total",
			Help: "Total frames skipped because landmark detection failed",
		},
	)

	// FingerCount is the finger count of the most recent frame with a hand
	FingerCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mudra_finger_count",
			Help: "Extended fingers counted on the most recent tracked hand",
		},
	)
)

// Command metrics
var (
	// CommandsTotal counts emitted commands by value and reason
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mudra_commands_total",
			Help: "Commands emitted by the dispatcher by command and reason",
		},
		[]string{"command", "reason"},
	)

	// TransmitErrorsTotal counts commands the link failed to write
	TransmitErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mudra_transmit_errors_total",
			Help: "Total commands that could not be written to the serial link",
		},
	)

	// LinkConnected is 1 while the serial device is open
	LinkConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mudra_link_connected",
			Help: "Whether the serial device is connected (1) or offline (0)",
		},
	)
)

// History and event stream metrics
var (
	// StoreErrorsTotal counts failed session history writes
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mudra_store_errors_total",
			Help: "Session history writes that failed by operation",
		},
		[]string{"operation"},
	)

	// EventClientsCurrent tracks connected event stream clients
	EventClientsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mudra_event_clients_current",
			Help: "Current number of connected event stream clients",
		},
	)

	// EventsDroppedTotal counts events not delivered to slow clients
	EventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mudra_events_dropped_total",
			Help: "Events dropped because a client's send buffer was full",
		},
	)
)
