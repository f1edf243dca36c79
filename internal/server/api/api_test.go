package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/signcapture/internal/capture"
	"github.com/ayusman/signcapture/internal/dataset"
	"github.com/ayusman/signcapture/internal/detector"
	"github.com/ayusman/signcapture/internal/labels"
	"github.com/ayusman/signcapture/internal/store"
	"github.com/ayusman/signcapture/internal/testutil"
)

type testEnv struct {
	detector *detector.MockDetector
	dataset  *dataset.Store
	ledger   *dataset.Ledger
	labels   *labels.Registry
	catalog  *store.Store
	pipeline *capture.Pipeline
}

// newTestEnv wires a pipeline over temporary storage with a mock detector.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	ds, err := dataset.NewStore(filepath.Join(dir, "dataset"))
	if err != nil {
		t.Fatalf("failed to create dataset: %v", err)
	}
	ledger, err := dataset.OpenLedger(filepath.Join(dir, "dataset", "metadata.csv"))
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	t.Cleanup(func() { ledger.Close() })

	reg, err := labels.Initialize(filepath.Join(dir, "dataset", "labels.json"),
		[]string{"hello", "thank_you", "please", "yes", "no"})
	if err != nil {
		t.Fatalf("failed to initialize labels: %v", err)
	}

	catalog, err := store.New(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { catalog.Close() })

	env := &testEnv{
		detector: detector.NewMockDetector(),
		dataset:  ds,
		ledger:   ledger,
		labels:   reg,
		catalog:  catalog,
	}
	env.pipeline, err = capture.New(capture.Config{
		Detector: env.detector,
		Dataset:  ds,
		Ledger:   ledger,
		Labels:   reg,
		Catalog:  catalog,
	})
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}
	return env
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var response messageResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return response.Message
}

func jpegDataURI(t *testing.T) string {
	t.Helper()

	img, err := testutil.SolidJPEG(64, 48)
	if err != nil {
		t.Fatalf("failed to build image: %v", err)
	}
	return testutil.DataURI("image/jpeg", img)
}
