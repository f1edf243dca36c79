package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sample is the catalog entry of a committed image pair.
type Sample struct {
	ID             string    `json:"id"`
	Sign           string    `json:"sign"`
	LabelID        int       `json:"label_id"`
	Timestamp      string    `json:"timestamp"`
	OriginalFile   string    `json:"original_file"`
	AnnotatedFile  string    `json:"annotated_file"`
	AnnotationFile string    `json:"annotation_file"`
	Hands          int       `json:"hands"`
	CreatedAt      time.Time `json:"created_at"`
}

// SampleRepository provides access to catalog samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Save inserts a sample, or refreshes the existing row with the same sign
// and timestamp. A missing ID is generated.
func (r *SampleRepository) Save(smp *Sample) error {
	if smp.ID == "" {
		smp.ID = uuid.New().String()
	}
	if smp.CreatedAt.IsZero() {
		smp.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO samples (id, sign, label_id, timestamp, original_file, annotated_file, annotation_file, hands, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(sign, timestamp) DO UPDATE SET
			label_id = excluded.label_id,
			original_file = excluded.original_file,
			annotated_file = excluded.annotated_file,
			annotation_file = excluded.annotation_file,
			hands = excluded.hands`,
		smp.ID, smp.Sign, smp.LabelID, smp.Timestamp, smp.OriginalFile, smp.AnnotatedFile, smp.AnnotationFile, smp.Hands, smp.CreatedAt,
	)
	return err
}

const sampleColumns = `id, sign, label_id, timestamp, original_file, annotated_file, annotation_file, hands, created_at`

func scanSample(row interface{ Scan(...any) error }) (*Sample, error) {
	smp := &Sample{}
	err := row.Scan(&smp.ID, &smp.Sign, &smp.LabelID, &smp.Timestamp, &smp.OriginalFile,
		&smp.AnnotatedFile, &smp.AnnotationFile, &smp.Hands, &smp.CreatedAt)
	if err != nil {
		return nil, err
	}
	return smp, nil
}

// Get retrieves the sample committed for sign at timestamp.
func (r *SampleRepository) Get(sign, timestamp string) (*Sample, error) {
	smp, err := scanSample(r.db.QueryRow(
		`SELECT `+sampleColumns+` FROM samples WHERE sign = ? AND timestamp = ?`,
		sign, timestamp,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return smp, nil
}

// List returns samples in timestamp order. An empty sign lists every sign.
func (r *SampleRepository) List(sign string) ([]*Sample, error) {
	query := `SELECT ` + sampleColumns + ` FROM samples`
	var args []any
	if sign != "" {
		query += ` WHERE sign = ?`
		args = append(args, sign)
	}
	query += ` ORDER BY timestamp, sign`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*Sample
	for rows.Next() {
		smp, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, smp)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// CountBySign returns the number of samples per sign.
func (r *SampleRepository) CountBySign() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT sign, COUNT(*) FROM samples GROUP BY sign`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sign string
		var n int
		if err := rows.Scan(&sign, &n); err != nil {
			return nil, err
		}
		counts[sign] = n
	}
	return counts, rows.Err()
}

// Count returns the total number of samples.
func (r *SampleRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&n)
	return n, err
}
