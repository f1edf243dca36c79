// Package app wires the capture tool's components from a configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/signcapture/internal/annotate"
	"github.com/ayusman/signcapture/internal/capture"
	"github.com/ayusman/signcapture/internal/config"
	"github.com/ayusman/signcapture/internal/dataset"
	"github.com/ayusman/signcapture/internal/detector"
	"github.com/ayusman/signcapture/internal/labels"
	"github.com/ayusman/signcapture/internal/metrics"
	"github.com/ayusman/signcapture/internal/server"
	"github.com/ayusman/signcapture/internal/store"
)

// shutdownTimeout bounds how long in-flight requests may run after Run's
// context is cancelled.
const shutdownTimeout = 10 * time.Second

// App owns the long-lived objects of one capture process: the label
// registry, dataset store, ledger, catalog, detector and HTTP server.
type App struct {
	config   *config.Config
	detector detector.Detector
	labels   *labels.Registry
	dataset  *dataset.Store
	ledger   *dataset.Ledger
	catalog  *store.Store
	metrics  *metrics.Metrics
	events   *server.EventHub
	notify   *fanout
	pipeline *capture.Pipeline
	server   *server.Server
}

// New opens every component named by cfg. When det is nil the MediaPipe
// detector is tried first, falling back to the mock detector.
func New(cfg *config.Config, det detector.Detector) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{config: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var err error
	if a.dataset, err = dataset.NewStore(cfg.DatasetDir); err != nil {
		return nil, err
	}
	if a.labels, err = labels.Initialize(cfg.LabelsPath(), cfg.Signs); err != nil {
		return nil, fmt.Errorf("initialize labels: %w", err)
	}
	if a.ledger, err = dataset.OpenLedger(cfg.MetadataPath()); err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if a.catalog, err = store.New(cfg.CatalogPath()); err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	if det == nil {
		det = newDetector(cfg)
	}
	a.detector = det
	a.metrics = metrics.New()
	a.events = server.NewEventHub()
	a.notify = &fanout{targets: []capture.Notifier{a.events}}

	a.pipeline, err = capture.New(capture.Config{
		Detector: a.detector,
		Renderer: annotate.NewRenderer(cfg.MarkerRadius, cfg.JPEGQuality),
		Dataset:  a.dataset,
		Ledger:   a.ledger,
		Labels:   a.labels,
		Stamper:  dataset.NewStamper(),
		MaxHands: cfg.MaxHands,
		Catalog:  a.catalog,
		Metrics:  a.metrics,
		Notifier: a.notify,
	})
	if err != nil {
		return nil, err
	}

	a.server = server.New(server.Config{
		Pipeline:     a.pipeline,
		Dataset:      a.dataset,
		Labels:       a.labels,
		Catalog:      a.catalog,
		Metrics:      a.metrics,
		Events:       a.events,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	log.Printf("dataset at %s with %d signs", cfg.DatasetDir, a.labels.Len())
	ok = true
	return a, nil
}

// newDetector tries MediaPipe first, falling back to the mock detector.
func newDetector(cfg *config.Config) detector.Detector {
	dcfg := detector.DefaultConfig()
	dcfg.MaxHands = cfg.MaxHands
	dcfg.MinConfidence = cfg.MinConfidence

	mp, err := detector.NewMediaPipeDetector(dcfg)
	if err != nil {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		return detector.NewMockDetector()
	}
	log.Println("Using MediaPipe hand detection")
	return mp
}

// fanout forwards pipeline events to several notifiers.
type fanout struct {
	mu      sync.RWMutex
	targets []capture.Notifier
}

func (f *fanout) Notify(ev capture.Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.targets {
		t.Notify(ev)
	}
}

// AddNotifier registers n to receive every capture event after the
// WebSocket feed.
func (a *App) AddNotifier(n capture.Notifier) {
	a.notify.mu.Lock()
	defer a.notify.mu.Unlock()
	a.notify.targets = append(a.notify.targets, n)
}

// Pipeline returns the capture pipeline.
func (a *App) Pipeline() *capture.Pipeline { return a.pipeline }

// Server returns the HTTP server.
func (a *App) Server() *server.Server { return a.server }

// Catalog returns the sample catalog.
func (a *App) Catalog() *store.Store { return a.catalog }

// Ledger returns the metadata ledger.
func (a *App) Ledger() *dataset.Ledger { return a.ledger }

// Labels returns the label registry.
func (a *App) Labels() *labels.Registry { return a.labels }

// SampleCount returns the number of committed samples in the catalog.
func (a *App) SampleCount() (int, error) {
	return a.catalog.Samples().Count()
}

// ReindexStats counts the catalog entries written by Reindex.
type ReindexStats struct {
	Samples int
	Videos  int
}

// Reindex rebuilds the catalog: samples from the ledger, videos from the
// clips on disk. start is called with the number of ledger rows plus clips
// before any work, and progress once per row or clip.
func (a *App) Reindex(start func(total int), progress func()) (ReindexStats, error) {
	var stats ReindexStats

	rows, err := a.ledger.Rows()
	if err != nil {
		return stats, fmt.Errorf("read ledger: %w", err)
	}
	videos, err := a.dataset.ScanVideos()
	if err != nil {
		return stats, fmt.Errorf("scan videos: %w", err)
	}
	if start != nil {
		start(len(rows) + len(videos))
	}

	if stats.Samples, err = a.catalog.Reindex(rows, a.dataset, progress); err != nil {
		return stats, err
	}
	if stats.Videos, err = a.catalog.ReindexVideos(videos, progress); err != nil {
		return stats, err
	}
	return stats, nil
}

// Run serves HTTP on the configured address until ctx is cancelled, then
// shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe(a.config.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// Close releases every component. It is safe to call on a partly built App.
func (a *App) Close() error {
	var errs []error
	if a.events != nil {
		a.events.Close()
	}
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
	}
	if a.ledger != nil {
		errs = append(errs, a.ledger.Close())
	}
	if a.catalog != nil {
		errs = append(errs, a.catalog.Close())
	}
	return errors.Join(errs...)
}
