package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	err      error
	calls    int
	closed   bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by every Detect call.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetSequence scripts one result per Detect call.
// Once the sequence is consumed Detect falls back to the hands set with SetHands.
func (m *MockDetector) SetSequence(seq [][]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = seq
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		next := m.sequence[0]
		m.sequence = m.sequence[1:]
		return next, nil
	}
	return m.hands, nil
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// fingerColumn is the image-space X of each non-thumb finger on the posed hand.
var fingerColumn = [4]float64{0.42, 0.50, 0.57, 0.64}

// HandPose returns a mirrored right hand, palm towards the camera, with the given
// fingers extended (thumb, index, middle, ring, pinky). Extended fingers point up;
// an extended thumb points towards the left edge of the frame.
func HandPose(thumb, index, middle, ring, pinky bool) HandLandmarks {
	h := NewHandLandmarks()
	h.Handedness = "Right"
	h.Score = 0.95

	h.Points[Wrist] = Point3D{X: 0.52, Y: 0.85}

	h.Points[ThumbCMC] = Point3D{X: 0.44, Y: 0.80, Z: -0.01}
	h.Points[ThumbMCP] = Point3D{X: 0.38, Y: 0.74, Z: -0.02}
	h.Points[ThumbIP] = Point3D{X: 0.33, Y: 0.69, Z: -0.03}
	if thumb {
		h.Points[ThumbTip] = Point3D{X: 0.27, Y: 0.64, Z: -0.03}
	} else {
		h.Points[ThumbTip] = Point3D{X: 0.41, Y: 0.68, Z: -0.05}
	}

	extended := [4]bool{index, middle, ring, pinky}
	for f := 0; f < 4; f++ {
		mcp := IndexMCP + f*4
		x := fingerColumn[f]
		h.Points[mcp] = Point3D{X: x, Y: 0.62}
		if extended[f] {
			h.Points[mcp+1] = Point3D{X: x, Y: 0.52, Z: -0.01}
			h.Points[mcp+2] = Point3D{X: x, Y: 0.45, Z: -0.02}
			h.Points[mcp+3] = Point3D{X: x, Y: 0.38, Z: -0.02}
		} else {
			h.Points[mcp+1] = Point3D{X: x, Y: 0.55, Z: -0.04}
			h.Points[mcp+2] = Point3D{X: x, Y: 0.61, Z: -0.06}
			h.Points[mcp+3] = Point3D{X: x, Y: 0.65, Z: -0.05}
		}
	}

	return h
}

// OpenPalmLandmarks returns a hand with all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return HandPose(true, true, true, true, true)
}

// FistLandmarks returns a hand with every finger curled.
func FistLandmarks() HandLandmarks {
	return HandPose(false, false, false, false, false)
}

// FingersLandmarks returns a hand showing n fingers, raised in thumb-to-pinky order.
// n is clamped to [0,5].
func FingersLandmarks(n int) HandLandmarks {
	var up [5]bool
	for i := 0; i < len(up) && i < n; i++ {
		up[i] = true
	}
	return HandPose(up[0], up[1], up[2], up[3], up[4])
}
