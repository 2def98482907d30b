// Package preview shows the camera frame with the hand skeleton and session
// status in an OpenCV window.
package preview

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/protocol"
)

// DefaultTitle is the window title used when none is configured.
const DefaultTitle = "Hand Gesture Control"

var (
	white      = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	green      = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	red        = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	jointColor = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	boneColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
)

// swatches maps a finger count to the color of the HUD swatch.
var swatches = [protocol.MaxCount + 1]color.RGBA{
	{R: 128, G: 128, B: 128}, // 0 gray
	{R: 255, G: 255, B: 0},   // 1 yellow
	{R: 255, G: 0, B: 255},   // 2 magenta
	{R: 0, G: 255, B: 255},   // 3 cyan
	{R: 0, G: 255, B: 0},     // 4 green
	{R: 255, G: 0, B: 0},     // 5 red
}

// connections are the landmark pairs joined by bones.
var connections = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.Wrist, detector.PinkyMCP},
	{detector.PinkyMCP, detector.PinkyPIP}, {detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

// Window is an app.Viewer backed by a gocv window.
type Window struct {
	window *gocv.Window
}

// New opens a preview window.
func New(title string) *Window {
	if title == "" {
		title = DefaultTitle
	}
	return &Window{window: gocv.NewWindow(title)}
}

// Show draws the overlay, displays the frame and reports whether q was pressed.
func (w *Window) Show(frame *gocv.Mat, hands []detector.HandLandmarks, st app.Status) bool {
	if frame != nil && !frame.Empty() {
		Annotate(frame, hands, st)
		w.window.IMShow(*frame)
	}
	return IsQuitKey(w.window.WaitKey(1))
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}

// IsQuitKey reports whether a WaitKey result is the quit key.
func IsQuitKey(key int) bool {
	if key < 0 {
		return false
	}
	k := key & 0xFF
	return k == 'q' || k == 'Q'
}

// Swatch returns the HUD color for a finger count.
func Swatch(count int) (color.RGBA, bool) {
	if count < protocol.MinCount || count > protocol.MaxCount {
		return color.RGBA{}, false
	}
	return swatches[count], true
}

// Annotate draws every hand's skeleton and the status HUD onto frame.
func Annotate(frame *gocv.Mat, hands []detector.HandLandmarks, st app.Status) {
	cols, rows := frame.Cols(), frame.Rows()

	for i := range hands {
		drawHand(frame, &hands[i], cols, rows)
	}

	if st.HandPresent {
		gocv.PutText(frame, fmt.Sprintf("Fingers: %d", st.Count), image.Pt(10, 50),
			gocv.FontHersheySimplex, 2, green, 3)
		if c, ok := Swatch(st.Count); ok {
			gocv.Rectangle(frame, image.Rect(10, 80, 200, 130), c, -1)
		}
	} else {
		gocv.PutText(frame, "No hand detected", image.Pt(10, 50),
			gocv.FontHersheySimplex, 1, red, 2)
	}

	status, statusColor := "Serial: offline", red
	if st.Connected {
		status, statusColor = "Serial: connected", green
	}
	gocv.PutText(frame, status, image.Pt(10, rows-50), gocv.FontHersheySimplex, 0.6, statusColor, 2)
	gocv.PutText(frame, "'q' to quit", image.Pt(10, rows-20), gocv.FontHersheySimplex, 0.6, white, 2)
	gocv.PutText(frame, fmt.Sprintf("FPS: %.0f", st.FPS), image.Pt(cols-100, 30),
		gocv.FontHersheySimplex, 0.5, white, 1)
}

func drawHand(frame *gocv.Mat, hand *detector.HandLandmarks, cols, rows int) {
	for _, c := range connections {
		a, okA := toPixel(hand, c[0], cols, rows)
		b, okB := toPixel(hand, c[1], cols, rows)
		if okA && okB {
			gocv.Line(frame, a, b, boneColor, 2)
		}
	}
	for i := 0; i < detector.NumLandmarks; i++ {
		if p, ok := toPixel(hand, i, cols, rows); ok {
			gocv.Circle(frame, p, 2, jointColor, 2)
		}
	}
}

// toPixel maps a normalized landmark to image coordinates. Missing or
// non-finite landmarks are skipped.
func toPixel(hand *detector.HandLandmarks, i, cols, rows int) (image.Point, bool) {
	p, ok := hand.At(i)
	if !ok {
		return image.Point{}, false
	}
	return image.Pt(int(p.X*float64(cols)), int(p.Y*float64(rows))), true
}
