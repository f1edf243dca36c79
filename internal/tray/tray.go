// Package tray provides a system tray launcher for the capture server.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onOpen  func()
	onQuit  func()
	samples int
	mu      sync.RWMutex

	// Menu items stored for later updates
	menuSamples *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnOpen sets the callback function to be called when the capture form menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("SignCapture")
	systray.SetTooltip("Sign language dataset capture")

	menuOpen := systray.AddMenuItem("Open Capture Form", "Open the capture form in the browser")
	systray.AddSeparator()

	t.mu.Lock()
	t.menuSamples = systray.AddMenuItem(samplesTitle(t.samples), "Committed samples")
	t.menuSamples.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Stop the capture server")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleOpen handles the capture form menu item click.
func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetSampleCount updates the sample count display in the menu.
func (t *Tray) SetSampleCount(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples = n
	if t.menuSamples != nil {
		t.menuSamples.SetTitle(samplesTitle(n))
	}
}

// IncSampleCount adds one to the sample count.
func (t *Tray) IncSampleCount() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples++
	if t.menuSamples != nil {
		t.menuSamples.SetTitle(samplesTitle(t.samples))
	}
}

// SampleCount returns the current sample count.
func (t *Tray) SampleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.samples
}

func samplesTitle(n int) string {
	if n == 1 {
		return "1 sample"
	}
	return fmt.Sprintf("%d samples", n)
}
