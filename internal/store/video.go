package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Video is the catalog entry of a stored clip.
type Video struct {
	ID        string    `json:"id"`
	Sign      string    `json:"sign"`
	Timestamp string    `json:"timestamp"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// VideoRepository provides access to catalog videos.
type VideoRepository struct {
	db *sql.DB
}

// Videos returns the video repository for this store.
func (s *Store) Videos() *VideoRepository {
	return &VideoRepository{db: s.db}
}

// Create inserts a video into the catalog.
func (r *VideoRepository) Create(v *Video) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	v.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO videos (id, sign, timestamp, filename, size, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.Sign, v.Timestamp, v.Filename, v.Size, v.CreatedAt,
	)
	return err
}

// Save inserts v or, when the sign and timestamp are already cataloged,
// updates its filename and size.
func (r *VideoRepository) Save(v *Video) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	v.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO videos (id, sign, timestamp, filename, size, created_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sign, timestamp) DO UPDATE SET filename = excluded.filename, size = excluded.size`,
		v.ID, v.Sign, v.Timestamp, v.Filename, v.Size, v.CreatedAt,
	)
	return err
}

// List returns videos in timestamp order. An empty sign lists every sign.
func (r *VideoRepository) List(sign string) ([]*Video, error) {
	query := `SELECT id, sign, timestamp, filename, size, created_at FROM videos`
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

	var videos []*Video
	for rows.Next() {
		v := &Video{}
		if err := rows.Scan(&v.ID, &v.Sign, &v.Timestamp, &v.Filename, &v.Size, &v.CreatedAt); err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}
