package dataset

import (
	"fmt"
	"sync"
	"time"
)

// timestampLayout is the second-resolution prefix; microseconds are appended
// as a six digit suffix.
const timestampLayout = "20060102_150405"

// FormatTimestamp renders t as YYYYMMDD_HHMMSS_ffffff.
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%s_%06d", t.Format(timestampLayout), t.Nanosecond()/int(time.Microsecond))
}

// ParseTimestamp is the inverse of FormatTimestamp, in local time.
func ParseTimestamp(s string) (time.Time, error) {
	if len(s) != len(timestampLayout)+7 || s[len(timestampLayout)] != '_' {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	t, err := time.ParseInLocation(timestampLayout, s[:len(timestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	var micros int
	if _, err := fmt.Sscanf(s[len(timestampLayout)+1:], "%06d", &micros); err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.Add(time.Duration(micros) * time.Microsecond), nil
}

// Stamper hands out timestamps that never repeat within a process. When the
// clock has not moved past the previous stamp, the next microsecond is used.
type Stamper struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewStamper creates a Stamper reading the wall clock.
func NewStamper() *Stamper {
	return NewStamperWithClock(time.Now)
}

// NewStamperWithClock creates a Stamper reading now.
func NewStamperWithClock(now func() time.Time) *Stamper {
	return &Stamper{now: now}
}

// Next returns a timestamp strictly later than every previous one.
func (s *Stamper) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().Round(0).Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return FormatTimestamp(t)
}
