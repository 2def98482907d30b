package detector

import (
	"errors"
	"math"
	"testing"
)

func TestHandLandmarks_At(t *testing.T) {
	t.Run("returns point inside range", func(t *testing.T) {
		hand := OpenPalmLandmarks()

		p, ok := hand.At(IndexTip)
		if !ok {
			t.Fatal("expected index tip to be present")
		}
		if p != hand.Points[IndexTip] {
			t.Errorf("expected %v, got %v", hand.Points[IndexTip], p)
		}
	})

	t.Run("out of range indices are missing", func(t *testing.T) {
		hand := HandLandmarks{Points: make([]Point3D, 5)}

		for _, i := range []int{-1, 5, PinkyTip, 100} {
			if _, ok := hand.At(i); ok {
				t.Errorf("index %d should be missing", i)
			}
		}
	})

	t.Run("non-finite points are missing", func(t *testing.T) {
		hand := OpenPalmLandmarks()
		hand.Points[ThumbTip] = Point3D{X: math.NaN(), Y: 0.5}
		hand.Points[RingTip] = Point3D{X: 0.5, Y: math.Inf(1)}

		if _, ok := hand.At(ThumbTip); ok {
			t.Error("NaN thumb tip should be missing")
		}
		if _, ok := hand.At(RingTip); ok {
			t.Error("infinite ring tip should be missing")
		}
	})

	t.Run("nil hand has no points", func(t *testing.T) {
		var hand *HandLandmarks
		if _, ok := hand.At(Wrist); ok {
			t.Error("nil hand should have no points")
		}
	})
}

func TestHandLandmarks_Complete(t *testing.T) {
	full := OpenPalmLandmarks()
	if !full.Complete() {
		t.Error("fixture hand should be complete")
	}

	short := HandLandmarks{Points: full.Points[:NumLandmarks-1]}
	if short.Complete() {
		t.Error("truncated hand should not be complete")
	}

	holed := OpenPalmLandmarks()
	holed.Points[MiddlePIP].Y = math.NaN()
	if holed.Complete() {
		t.Error("hand with NaN point should not be complete")
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{OpenPalmLandmarks()})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Errorf("expected 1 hand, got %d", len(hands))
		}
	})

	t.Run("plays sequence then falls back", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{FistLandmarks()})
		mock.SetSequence([][]HandLandmarks{
			{OpenPalmLandmarks()},
			nil,
		})

		first, _ := mock.Detect(nil)
		second, _ := mock.Detect(nil)
		third, _ := mock.Detect(nil)

		if len(first) != 1 || first[0].Points[IndexTip] != OpenPalmLandmarks().Points[IndexTip] {
			t.Errorf("first call should return the open palm, got %v", first)
		}
		if len(second) != 0 {
			t.Errorf("second call should return no hands, got %d", len(second))
		}
		if len(third) != 1 || third[0].Points[IndexTip] != FistLandmarks().Points[IndexTip] {
			t.Errorf("third call should fall back to the fist, got %v", third)
		}
		if mock.Calls() != 3 {
			t.Errorf("expected 3 calls, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("Close marks closed", func(t *testing.T) {
		mock := NewMockDetector()

		if err := mock.Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
		if !mock.Closed() {
			t.Error("expected detector to be closed")
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestHandPose(t *testing.T) {
	t.Run("extended fingers point up", func(t *testing.T) {
		hand := OpenPalmLandmarks()

		for _, tip := range []int{IndexTip, MiddleTip, RingTip, PinkyTip} {
			if hand.Points[tip].Y >= hand.Points[tip-2].Y {
				t.Errorf("tip %d should be above its PIP joint", tip)
			}
		}
		if hand.Points[ThumbTip].X >= hand.Points[ThumbIP].X {
			t.Error("extended thumb should point to the left of its IP joint")
		}
	})

	t.Run("curled fingers fold below the PIP joint", func(t *testing.T) {
		hand := FistLandmarks()

		for _, tip := range []int{IndexTip, MiddleTip, RingTip, PinkyTip} {
			if hand.Points[tip].Y <= hand.Points[tip-2].Y {
				t.Errorf("tip %d should be below its PIP joint", tip)
			}
		}
		if hand.Points[ThumbTip].X <= hand.Points[ThumbIP].X {
			t.Error("curled thumb should sit right of its IP joint")
		}
	})

	t.Run("FingersLandmarks clamps", func(t *testing.T) {
		if FingersLandmarks(-3).Points[ThumbTip] != FistLandmarks().Points[ThumbTip] {
			t.Error("negative count should produce a fist")
		}
		if FingersLandmarks(9).Points[PinkyTip] != OpenPalmLandmarks().Points[PinkyTip] {
			t.Error("count above five should produce an open palm")
		}
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("decodes hands", func(t *testing.T) {
		line := []byte(`{"hands":[{"points":[{"x":0.1,"y":0.2,"z":0},{"x":0.3,"y":0.4,"z":0}],"handedness":"Right","score":0.9}]}` + "\n")

		hands, err := parseResponse(line)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if len(hands[0].Points) != 2 {
			t.Errorf("partial hand should keep 2 points, got %d", len(hands[0].Points))
		}
		if hands[0].Handedness != "Right" || hands[0].Score != 0.9 {
			t.Errorf("unexpected metadata: %+v", hands[0])
		}
	})

	t.Run("truncates extra points", func(t *testing.T) {
		line := []byte(`{"hands":[{"points":[` + repeatPoint(NumLandmarks+3) + `]}]}`)

		hands, err := parseResponse(line)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands[0].Points) != NumLandmarks {
			t.Errorf("expected %d points, got %d", NumLandmarks, len(hands[0].Points))
		}
	})

	t.Run("empty hands", func(t *testing.T) {
		hands, err := parseResponse([]byte(`{"hands":[]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected no hands, got %d", len(hands))
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"error":"model not loaded"}`)); err == nil {
			t.Error("expected service error to surface")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := parseResponse([]byte(`not json`)); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Script = "/nonexistent/mediapipe_service.py"

	_, err := NewMediaPipeDetector(cfg)
	if !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("expected ErrScriptNotFound, got %v", err)
	}
}

func repeatPoint(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += `{"x":0.5,"y":0.5,"z":0}`
	}
	return s
}
