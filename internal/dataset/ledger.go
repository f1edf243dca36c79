package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// LedgerHeader is the first line of every metadata ledger.
var LedgerHeader = []string{"filename", "sign", "label_id", "timestamp"}

// ErrLedgerClosed is returned by Append after Close.
var ErrLedgerClosed = errors.New("ledger is closed")

// Row is one ledger line, describing one stored image.
type Row struct {
	Filename  string
	Sign      string
	LabelID   int
	Timestamp string
}

func (r Row) record() []string {
	return []string{r.Filename, r.Sign, strconv.Itoa(r.LabelID), r.Timestamp}
}

// Ledger is the append-only metadata CSV. The file is opened in append mode
// for each write; a mutex keeps concurrent appends from interleaving.
type Ledger struct {
	path   string
	mu     sync.Mutex
	closed bool
}

// OpenLedger opens the ledger at path, creating it with a header row if it
// does not exist.
func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	switch {
	case err == nil:
		werr := writeRecords(f, [][]string{LedgerHeader})
		cerr := f.Close()
		if werr != nil {
			return nil, fmt.Errorf("write ledger header: %w", werr)
		}
		if cerr != nil {
			return nil, fmt.Errorf("close ledger: %w", cerr)
		}
	case errors.Is(err, os.ErrExist):
	default:
		return nil, fmt.Errorf("create ledger: %w", err)
	}

	return &Ledger{path: path}, nil
}

// Path returns the ledger file.
func (l *Ledger) Path() string {
	return l.path
}

// Append writes rows as a single write and syncs the file. Either all rows
// reach the file in one piece or Append returns an error.
func (l *Ledger) Append(rows ...Row) error {
	if len(rows) == 0 {
		return nil
	}

	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = r.record()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLedgerClosed
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	if err := writeRecords(f, records); err != nil {
		f.Close()
		return fmt.Errorf("append ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	return f.Close()
}

// writeRecords encodes records into one buffer and issues a single write.
func writeRecords(w io.Writer, records [][]string) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Rows reads every data row of the ledger in file order.
func (l *Ledger) Rows() ([]Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(LedgerHeader)

	var rows []Row
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		if line == 1 && rec[0] == LedgerHeader[0] {
			continue
		}
		id, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: bad label_id %q", line, rec[2])
		}
		rows = append(rows, Row{Filename: rec[0], Sign: rec[1], LabelID: id, Timestamp: rec[3]})
	}
	return rows, nil
}

// Close stops further appends.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
