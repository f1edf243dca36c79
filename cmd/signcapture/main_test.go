package main

import (
	"sync"
	"testing"

	"github.com/ayusman/signcapture/internal/capture"
	"github.com/ayusman/signcapture/internal/tray"
)

func TestFormURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":5000", "http://localhost:5000/"},
		{"0.0.0.0:8080", "http://localhost:8080/"},
		{"127.0.0.1:5000", "http://127.0.0.1:5000/"},
		{"[::]:5000", "http://localhost:5000/"},
	}
	for _, tt := range tests {
		if got := formURL(tt.addr); got != tt.want {
			t.Errorf("formURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestTrayCounter(t *testing.T) {
	tr := tray.New()
	c := &trayCounter{tray: tr}

	c.Notify(capture.Event{Type: capture.EventSample})
	c.Notify(capture.Event{Type: capture.EventVideo})
	c.Notify(capture.Event{Type: capture.EventSample})

	if tr.SampleCount() != 2 {
		t.Errorf("SampleCount() = %d, want 2", tr.SampleCount())
	}
}

func TestTrayCounter_ConcurrentCommits(t *testing.T) {
	tr := tray.New()
	c := &trayCounter{tray: tr}

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Notify(capture.Event{Type: capture.EventSample})
		}()
	}
	wg.Wait()

	if tr.SampleCount() != n {
		t.Errorf("SampleCount() = %d, want %d", tr.SampleCount(), n)
	}
}
