// Package detector provides hand detection interfaces and the landmark types shared by the pipeline.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark position normalized to [0,1] of the frame width and height.
// Z is relative depth as reported by the detector.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Finite reports whether X and Y are usable coordinates.
func (p Point3D) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// HandLandmarks is the landmark set of one detected hand for one frame.
// A well-formed set holds NumLandmarks points; shorter sets come from partial detections.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"` // "Left" or "Right"
	Score      float64   `json:"score"`
}

// NewHandLandmarks returns a hand with NumLandmarks zeroed points.
func NewHandLandmarks() HandLandmarks {
	return HandLandmarks{Points: make([]Point3D, NumLandmarks)}
}

// At returns the landmark at index i.
// The second value is false when i is out of range or the point has non-finite coordinates.
func (h *HandLandmarks) At(i int) (Point3D, bool) {
	if h == nil || i < 0 || i >= len(h.Points) {
		return Point3D{}, false
	}
	p := h.Points[i]
	if !p.Finite() {
		return Point3D{}, false
	}
	return p, true
}

// Complete reports whether every one of the NumLandmarks points is present and finite.
func (h *HandLandmarks) Complete() bool {
	if h == nil || len(h.Points) != NumLandmarks {
		return false
	}
	for _, p := range h.Points {
		if !p.Finite() {
			return false
		}
	}
	return true
}
