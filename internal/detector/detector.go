package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand landmark extraction.
type Detector interface {
	// Detect analyzes a decoded image and returns the detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// ScriptPath points at the landmarker service script. When empty the
	// usual install locations are searched.
	ScriptPath string

	// PythonPath is the interpreter used to run the script. When empty a
	// virtualenv interpreter is preferred, then python3.
	PythonPath string
}

// DefaultConfig returns a Config matching still-image capture: up to two
// hands at 0.5 confidence.
func DefaultConfig() Config {
	return Config{
		MaxHands:      2,
		MinConfidence: 0.5,
	}
}
