// Package fingers counts extended fingers on a detected hand.
//
// The count is a purely geometric heuristic for a right hand seen through a
// mirrored camera: the thumb is extended when its tip lies left of the IP joint,
// every other finger when its tip lies above the PIP joint. Rotated hands, left
// hands and the back of the hand are not corrected for.
package fingers

import "github.com/ayusman/mudra/internal/detector"

// Finger identifies one digit of the hand.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

// NumFingers is the number of digits on a hand and the largest possible count.
const NumFingers = 5

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

func (f Finger) String() string {
	if f < 0 || int(f) >= NumFingers {
		return "unknown"
	}
	return fingerNames[f]
}

// rule pairs a fingertip with the joint it is compared against.
type rule struct {
	tip       int
	reference int
	// horizontal compares X instead of Y.
	horizontal bool
}

var rules = [NumFingers]rule{
	Thumb:  {tip: detector.ThumbTip, reference: detector.ThumbIP, horizontal: true},
	Index:  {tip: detector.IndexTip, reference: detector.IndexPIP},
	Middle: {tip: detector.MiddleTip, reference: detector.MiddlePIP},
	Ring:   {tip: detector.RingTip, reference: detector.RingPIP},
	Pinky:  {tip: detector.PinkyTip, reference: detector.PinkyPIP},
}

// IsExtended reports whether finger f is extended on hand.
// A finger whose tip or reference landmark is missing is not extended.
func IsExtended(hand *detector.HandLandmarks, f Finger) bool {
	if f < 0 || int(f) >= NumFingers {
		return false
	}
	r := rules[f]

	tip, ok := hand.At(r.tip)
	if !ok {
		return false
	}
	ref, ok := hand.At(r.reference)
	if !ok {
		return false
	}

	if r.horizontal {
		return tip.X < ref.X
	}
	// Screen-space Y grows downward.
	return tip.Y < ref.Y
}

// Extended returns the per-finger decisions indexed by Finger.
func Extended(hand *detector.HandLandmarks) [NumFingers]bool {
	var out [NumFingers]bool
	for f := Thumb; f <= Pinky; f++ {
		out[f] = IsExtended(hand, f)
	}
	return out
}

// Count returns the number of extended fingers, always in [0, NumFingers].
func Count(hand *detector.HandLandmarks) int {
	n := 0
	for _, up := range Extended(hand) {
		if up {
			n++
		}
	}
	return n
}
