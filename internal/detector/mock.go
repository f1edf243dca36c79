package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// presetHand builds a right hand from raw (x, y, z) rows in landmark order.
func presetHand(rows [NumLandmarks][3]float64) HandLandmarks {
	hand := HandLandmarks{Handedness: "Right", Score: 0.95}
	for i, r := range rows {
		hand.Points[i] = Point3D{X: r[0], Y: r[1], Z: r[2]}
	}
	return hand
}

// ThumbsUpLandmarks returns a right hand with the thumb raised and the other
// fingers curled.
func ThumbsUpLandmarks() HandLandmarks {
	return presetHand([NumLandmarks][3]float64{
		{0.50, 0.80, 0.00}, // wrist
		{0.55, 0.75, 0.00}, {0.58, 0.65, 0.00}, {0.58, 0.50, 0.00}, {0.58, 0.35, 0.00},
		{0.55, 0.70, -0.02}, {0.55, 0.68, -0.05}, {0.52, 0.70, -0.04}, {0.50, 0.72, -0.02},
		{0.50, 0.68, -0.02}, {0.50, 0.66, -0.05}, {0.47, 0.68, -0.04}, {0.45, 0.70, -0.02},
		{0.45, 0.70, -0.02}, {0.45, 0.68, -0.05}, {0.42, 0.70, -0.04}, {0.40, 0.72, -0.02},
		{0.40, 0.72, -0.02}, {0.40, 0.70, -0.05}, {0.37, 0.72, -0.04}, {0.35, 0.74, -0.02},
	})
}

// OpenPalmLandmarks returns a right hand with all fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return presetHand([NumLandmarks][3]float64{
		{0.50, 0.80, 0.00}, // wrist
		{0.55, 0.75, 0.02}, {0.62, 0.70, 0.03}, {0.68, 0.65, 0.03}, {0.73, 0.60, 0.03},
		{0.55, 0.68, 0.00}, {0.57, 0.55, 0.00}, {0.58, 0.45, 0.00}, {0.58, 0.35, 0.00},
		{0.50, 0.66, 0.00}, {0.50, 0.52, 0.00}, {0.50, 0.40, 0.00}, {0.50, 0.28, 0.00},
		{0.45, 0.68, 0.00}, {0.43, 0.55, 0.00}, {0.42, 0.45, 0.00}, {0.42, 0.35, 0.00},
		{0.40, 0.70, 0.00}, {0.37, 0.60, 0.00}, {0.35, 0.50, 0.00}, {0.34, 0.42, 0.00},
	})
}
