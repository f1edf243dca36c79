package capture

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so callers can map them to responses.
type Kind int

const (
	// KindValidation marks a request with missing or unusable fields.
	KindValidation Kind = iota + 1
	// KindDecode marks a payload that is not valid base64 or not a decodable image.
	KindDecode
	// KindStorage marks a filesystem or ledger write failure.
	KindStorage
	// KindProcessing marks any other failure in detection or rendering.
	KindProcessing
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDecode:
		return "decode"
	case KindStorage:
		return "storage"
	case KindProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

var (
	// ErrMissingField is returned when a required input is empty.
	ErrMissingField = errors.New("missing required field")

	// ErrNoLandmarks is returned when a commit carries no landmark sets or a
	// set without points.
	ErrNoLandmarks = errors.New("no landmark sets")

	// ErrUndecodable is returned when image bytes cannot be decoded.
	ErrUndecodable = errors.New("image could not be decoded")
)

// Error is the failure type returned by every pipeline operation.
type Error struct {
	Kind      Kind
	Op        string
	Sign      string
	Timestamp string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.Kind)
	if e.Sign != "" {
		msg += " sign=" + e.Sign
	}
	if e.Timestamp != "" {
		msg += " ts=" + e.Timestamp
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a pipeline error, or 0 if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
