package detector

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestHandLandmarks_Set(t *testing.T) {
	hand := OpenPalmLandmarks()
	set := hand.Set()

	if len(set) != NumLandmarks {
		t.Fatalf("expected %d points, got %d", NumLandmarks, len(set))
	}
	for i := range set {
		if set[i] != hand.Points[i] {
			t.Errorf("point %d reordered: got %+v, want %+v", i, set[i], hand.Points[i])
		}
	}

	set[Wrist].X = 42
	if hand.Points[Wrist].X == 42 {
		t.Error("Set should return an independent copy")
	}
}

func TestSetsFromHands(t *testing.T) {
	sets := SetsFromHands([]HandLandmarks{ThumbsUpLandmarks(), OpenPalmLandmarks()})

	if len(sets) != 2 {
		t.Fatalf("expected 2 sets, got %d", len(sets))
	}
	if sets[0][ThumbTip] != ThumbsUpLandmarks().Points[ThumbTip] {
		t.Error("first set should come from the first hand")
	}
	if got := sets.Points(); got != 2*NumLandmarks {
		t.Errorf("expected %d points, got %d", 2*NumLandmarks, got)
	}
}

func TestLandmarkSets_UnmarshalJSON(t *testing.T) {
	t.Run("nested hands", func(t *testing.T) {
		var sets LandmarkSets
		data := `[[{"x":0.1,"y":0.2,"z":0.3},{"x":0.4,"y":0.5,"z":0.6}],[{"x":0.7,"y":0.8,"z":0.9}]]`
		if err := json.Unmarshal([]byte(data), &sets); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sets) != 2 || len(sets[0]) != 2 || len(sets[1]) != 1 {
			t.Fatalf("unexpected shape: %+v", sets)
		}
		if sets[0][1] != (Point3D{X: 0.4, Y: 0.5, Z: 0.6}) {
			t.Errorf("unexpected point: %+v", sets[0][1])
		}
	})

	t.Run("flat points become one hand", func(t *testing.T) {
		var sets LandmarkSets
		if err := json.Unmarshal([]byte(`[{"x":0.1,"y":0.2,"z":0.3}]`), &sets); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sets) != 1 || len(sets[0]) != 1 {
			t.Fatalf("unexpected shape: %+v", sets)
		}
	})

	t.Run("empty list stays empty", func(t *testing.T) {
		var sets LandmarkSets
		if err := json.Unmarshal([]byte(`[]`), &sets); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sets) != 0 {
			t.Errorf("expected no sets, got %d", len(sets))
		}
	})

	t.Run("rejects non-list", func(t *testing.T) {
		var sets LandmarkSets
		if err := json.Unmarshal([]byte(`"nope"`), &sets); err == nil {
			t.Error("expected error for string keypoints")
		}
	})

	t.Run("round trip keeps nested form", func(t *testing.T) {
		in := SetsFromHands([]HandLandmarks{ThumbsUpLandmarks()})
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if data[0] != '[' || data[1] != '[' {
			t.Errorf("expected nested list encoding, got %s", data[:10])
		}
	})
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
		mock.SetHands([]HandLandmarks{ThumbsUpLandmarks(), OpenPalmLandmarks()})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
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

	t.Run("counts calls", func(t *testing.T) {
		mock := NewMockDetector()
		mock.Detect(nil)
		mock.Detect(nil)

		if mock.Calls() != 2 {
			t.Errorf("expected 2 calls, got %d", mock.Calls())
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestPresets(t *testing.T) {
	thumbsUp := ThumbsUpLandmarks()
	if thumbsUp.Points[ThumbTip].Y >= thumbsUp.Points[ThumbMCP].Y {
		t.Error("thumbs up: thumb tip should be above thumb MCP")
	}

	palm := OpenPalmLandmarks()
	for _, f := range [][2]int{{IndexMCP, IndexTip}, {MiddleMCP, MiddleTip}, {RingMCP, RingTip}, {PinkyMCP, PinkyTip}} {
		if palm.Points[f[0]].Y-palm.Points[f[1]].Y < 0.2 {
			t.Errorf("open palm: finger %d should be extended", f[1])
		}
	}
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	_, err := NewMediaPipeDetector(Config{ScriptPath: "/nonexistent/hand_landmarker.py"})
	if err == nil {
		t.Error("expected error for missing script")
	}
}
