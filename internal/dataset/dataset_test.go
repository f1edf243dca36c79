package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/signcapture/internal/detector"
)

var timestampPattern = regexp.MustCompile(`^\d{8}_\d{6}_\d{6}$`)

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 7, 9, 5, 1, 123456789, time.Local)

	got := FormatTimestamp(ts)
	if got != "20240307_090501_123456" {
		t.Errorf("FormatTimestamp() = %q", got)
	}

	parsed, err := ParseTimestamp(got)
	if err != nil {
		t.Fatalf("ParseTimestamp() error = %v", err)
	}
	if !parsed.Equal(ts.Truncate(time.Microsecond)) {
		t.Errorf("ParseTimestamp() = %v, want %v", parsed, ts.Truncate(time.Microsecond))
	}

	for _, bad := range []string{"", "20240307_090501", "20240307-090501-123456", "20241307_090501_123456"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Errorf("ParseTimestamp(%q) should fail", bad)
		}
	}
}

func TestStamper_StrictlyIncreasing(t *testing.T) {
	frozen := time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local)
	s := NewStamperWithClock(func() time.Time { return frozen })

	first := s.Next()
	second := s.Next()
	third := s.Next()

	if first != "20240101_120000_000000" {
		t.Errorf("first = %q", first)
	}
	if second != "20240101_120000_000001" || third != "20240101_120000_000002" {
		t.Errorf("stamps should advance by a microsecond: %q %q", second, third)
	}
}

func TestStamper_ClockGoingBackwards(t *testing.T) {
	times := []time.Time{
		time.Date(2024, 1, 1, 12, 0, 1, 0, time.Local),
		time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local),
	}
	i := 0
	s := NewStamperWithClock(func() time.Time { t := times[i]; i++; return t })

	a, b := s.Next(), s.Next()
	if b <= a {
		t.Errorf("second stamp %q should sort after %q", b, a)
	}
}

func TestStamper_ConcurrentUnique(t *testing.T) {
	s := NewStamper()
	const workers, perWorker = 8, 200

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ts := s.Next()
				mu.Lock()
				if seen[ts] {
					t.Errorf("duplicate timestamp %q", ts)
				}
				seen[ts] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d stamps, got %d", workers*perWorker, len(seen))
	}
	for ts := range seen {
		if !timestampPattern.MatchString(ts) {
			t.Fatalf("malformed timestamp %q", ts)
		}
	}
}

func TestValidateSign(t *testing.T) {
	for _, ok := range []string{"hello", "thank_you", "Yes-2", "ñ", "a..b", "etc.."} {
		if err := ValidateSign(ok); err != nil {
			t.Errorf("ValidateSign(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, "../etc", "x\x00y"} {
		if err := ValidateSign(bad); !errors.Is(err, ErrInvalidSign) {
			t.Errorf("ValidateSign(%q) = %v, want ErrInvalidSign", bad, err)
		}
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "dataset"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestStore_Provision(t *testing.T) {
	s := newTestStore(t)

	if err := s.Provision("hello", Kinds...); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if err := s.Provision("hello", Kinds...); err != nil {
		t.Fatalf("second Provision() should be idempotent: %v", err)
	}

	for _, kind := range Kinds {
		info, err := os.Stat(filepath.Join(s.Root(), "hello", string(kind)))
		if err != nil || !info.IsDir() {
			t.Errorf("%s directory missing: %v", kind, err)
		}
	}

	if err := s.Provision("../escape", KindVideos); !errors.Is(err, ErrInvalidSign) {
		t.Errorf("expected ErrInvalidSign, got %v", err)
	}
}

func TestStore_WriteSample(t *testing.T) {
	s := newTestStore(t)
	ts := "20240101_120000_000001"
	if err := s.Provision("yes", KindOriginal, KindAnnotated, KindAnnotations); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	orig, err := s.WriteOriginal("yes", ts, []byte("original"))
	if err != nil {
		t.Fatalf("WriteOriginal() error = %v", err)
	}
	if orig != "yes_20240101_120000_000001_original.jpg" {
		t.Errorf("original filename = %q", orig)
	}

	ann, err := s.WriteAnnotated("yes", ts, []byte("annotated"))
	if err != nil {
		t.Fatalf("WriteAnnotated() error = %v", err)
	}
	if ann != "yes_20240101_120000_000001_annotated.jpg" {
		t.Errorf("annotated filename = %q", ann)
	}

	rec := &Annotation{
		FilenameOriginal:  orig,
		FilenameAnnotated: ann,
		Sign:              "yes",
		Keypoints:         detector.SetsFromHands([]detector.HandLandmarks{detector.ThumbsUpLandmarks()}),
	}
	name, err := s.WriteAnnotation("yes", ts, rec)
	if err != nil {
		t.Fatalf("WriteAnnotation() error = %v", err)
	}
	if name != "yes_20240101_120000_000001.json" {
		t.Errorf("annotation filename = %q", name)
	}

	got, err := s.ReadAnnotation("yes", ts)
	if err != nil {
		t.Fatalf("ReadAnnotation() error = %v", err)
	}
	if got.FilenameOriginal != orig || got.FilenameAnnotated != ann || got.Sign != "yes" {
		t.Errorf("annotation mismatch: %+v", got)
	}
	if len(got.Keypoints) != 1 || len(got.Keypoints[0]) != detector.NumLandmarks {
		t.Fatalf("keypoints shape lost: %d hands", len(got.Keypoints))
	}
	if got.Keypoints[0][detector.ThumbTip] != detector.ThumbsUpLandmarks().Points[detector.ThumbTip] {
		t.Error("keypoint order not preserved")
	}

	data, err := os.ReadFile(filepath.Join(s.Root(), "yes", "original_images", orig))
	if err != nil || string(data) != "original" {
		t.Errorf("original content = %q, %v", data, err)
	}

	t.Run("refuses to overwrite", func(t *testing.T) {
		if _, err := s.WriteOriginal("yes", ts, []byte("again")); !errors.Is(err, ErrExists) {
			t.Errorf("expected ErrExists, got %v", err)
		}
	})

	t.Run("no partial files left behind", func(t *testing.T) {
		entries, _ := os.ReadDir(filepath.Join(s.Root(), "yes", "original_images"))
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".partial-") {
				t.Errorf("leftover temp file %s", e.Name())
			}
		}
	})
}

func TestStore_WriteVideo(t *testing.T) {
	s := newTestStore(t)
	if err := s.Provision("please", KindVideos); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	name, err := s.WriteVideo("please", "20240101_120000_000000", []byte("webm"))
	if err != nil {
		t.Fatalf("WriteVideo() error = %v", err)
	}
	if name != "please_20240101_120000_000000.webm" {
		t.Errorf("video filename = %q", name)
	}
}

func TestStore_Path(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Path("hello", KindOriginal, "hello_1_original.jpg"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "../x.jpg", "a/b.jpg", ".partial-1"} {
		if _, err := s.Path("hello", KindOriginal, bad); !errors.Is(err, ErrInvalidFilename) {
			t.Errorf("Path(%q) = %v, want ErrInvalidFilename", bad, err)
		}
	}
}

func TestLedger_Header(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset", "metadata.csv")

	l, err := OpenLedger(path)
	if err != nil {
		t.Fatalf("OpenLedger() error = %v", err)
	}
	defer l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if string(data) != "filename,sign,label_id,timestamp\n" {
		t.Errorf("ledger content = %q", data)
	}

	if _, err := OpenLedger(path); err != nil {
		t.Fatalf("reopening ledger: %v", err)
	}
	data, _ = os.ReadFile(path)
	if strings.Count(string(data), "filename,") != 1 {
		t.Error("reopening should not repeat the header")
	}
}

func TestLedger_AppendAndRows(t *testing.T) {
	l, err := OpenLedger(filepath.Join(t.TempDir(), "metadata.csv"))
	if err != nil {
		t.Fatalf("OpenLedger() error = %v", err)
	}

	ts := "20240101_120000_000000"
	err = l.Append(
		Row{Filename: OriginalFilename("yes", ts), Sign: "yes", LabelID: 3, Timestamp: ts},
		Row{Filename: AnnotatedFilename("yes", ts), Sign: "yes", LabelID: 3, Timestamp: ts},
	)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := l.Append(Row{Filename: "x.jpg", Sign: "mystery", LabelID: -1, Timestamp: ts}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	rows, err := l.Rows()
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Filename != "yes_20240101_120000_000000_original.jpg" || rows[0].LabelID != 3 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[2].LabelID != -1 {
		t.Errorf("unknown sign label = %d, want -1", rows[2].LabelID)
	}

	l.Close()
	if err := l.Append(Row{Filename: "late.jpg"}); !errors.Is(err, ErrLedgerClosed) {
		t.Errorf("expected ErrLedgerClosed, got %v", err)
	}
}

func TestLedger_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.csv")
	l, err := OpenLedger(path)
	if err != nil {
		t.Fatalf("OpenLedger() error = %v", err)
	}
	defer l.Close()

	stamper := NewStamper()
	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ts := stamper.Next()
			sign := fmt.Sprintf("sign%d", i%5)
			if err := l.Append(
				Row{Filename: OriginalFilename(sign, ts), Sign: sign, LabelID: i % 5, Timestamp: ts},
				Row{Filename: AnnotatedFilename(sign, ts), Sign: sign, LabelID: i % 5, Timestamp: ts},
			); err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	rows, err := l.Rows()
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	if len(rows) != 2*n {
		t.Fatalf("expected %d rows, got %d", 2*n, len(rows))
	}

	// Pairs from one Append must stay adjacent.
	for i := 0; i < len(rows); i += 2 {
		if rows[i].Timestamp != rows[i+1].Timestamp || rows[i].Sign != rows[i+1].Sign {
			t.Errorf("rows %d and %d are not a pair: %+v %+v", i, i+1, rows[i], rows[i+1])
		}
	}
}
