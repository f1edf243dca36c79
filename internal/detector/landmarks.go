// Package detector provides hand landmark extraction for captured sign images.
package detector

import (
	"bytes"
	"encoding/json"
	"fmt"
)

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

// Point3D is a landmark position. X and Y are normalized to [0,1] against the
// image width and height, Z is depth relative to the wrist. Values outside
// that range are passed through as reported by the extractor.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Set returns the landmarks of h as an ordered LandmarkSet. Index i of the
// result is anatomical landmark i.
func (h *HandLandmarks) Set() LandmarkSet {
	set := make(LandmarkSet, NumLandmarks)
	copy(set, h.Points[:])
	return set
}

// LandmarkSet is the ordered landmark sequence of one detected hand.
type LandmarkSet []Point3D

// LandmarkSets is the hand sequence carried by proposals, commits, and
// annotation records. It encodes as a list of hands, each a list of points.
type LandmarkSets []LandmarkSet

// SetsFromHands converts detector output into LandmarkSets, keeping hand and
// point order.
func SetsFromHands(hands []HandLandmarks) LandmarkSets {
	sets := make(LandmarkSets, len(hands))
	for i := range hands {
		sets[i] = hands[i].Set()
	}
	return sets
}

// Points returns the total number of landmark points across all hands.
func (s LandmarkSets) Points() int {
	n := 0
	for _, set := range s {
		n += len(set)
	}
	return n
}

// UnmarshalJSON accepts the nested form [[{x,y,z},...],...] and, for older
// clients, a flat list of points which is read as a single hand.
func (s *LandmarkSets) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}

	var nested []LandmarkSet
	nestedErr := json.Unmarshal(trimmed, &nested)
	if nestedErr == nil {
		*s = nested
		return nil
	}

	var flat LandmarkSet
	if err := json.Unmarshal(trimmed, &flat); err != nil {
		return fmt.Errorf("keypoints: %w", nestedErr)
	}
	if len(flat) == 0 {
		*s = LandmarkSets{}
		return nil
	}
	*s = LandmarkSets{flat}
	return nil
}
