// Package dataset implements the on-disk sample layout and the metadata ledger.
//
// Layout, per sign:
//
//	<root>/<sign>/original_images/<sign>_<ts>_original.jpg
//	<root>/<sign>/annotated_images/<sign>_<ts>_annotated.jpg
//	<root>/<sign>/annotations/<sign>_<ts>.json
//	<root>/<sign>/videos/<sign>_<ts>.webm
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ayusman/signcapture/internal/detector"
)

// Kind names one of the per-sign subdirectories.
type Kind string

const (
	KindOriginal    Kind = "original_images"
	KindAnnotated   Kind = "annotated_images"
	KindAnnotations Kind = "annotations"
	KindVideos      Kind = "videos"
)

// Kinds lists every per-sign subdirectory.
var Kinds = []Kind{KindOriginal, KindAnnotated, KindAnnotations, KindVideos}

// File extensions used for stored artifacts.
const (
	ImageExt      = ".jpg"
	AnnotationExt = ".json"
	VideoExt      = ".webm"
)

var (
	// ErrInvalidSign is returned for signs that cannot be used as a directory name.
	ErrInvalidSign = errors.New("invalid sign")

	// ErrInvalidFilename is returned for filenames that escape their directory.
	ErrInvalidFilename = errors.New("invalid filename")

	// ErrExists is returned when a write would replace an existing artifact.
	ErrExists = errors.New("artifact already exists")
)

// Annotation is the per-sample record written next to the image pair.
type Annotation struct {
	FilenameOriginal  string                `json:"filename_original"`
	FilenameAnnotated string                `json:"filename_annotated"`
	Sign              string                `json:"sign"`
	Keypoints         detector.LandmarkSets `json:"keypoints"`
}

// OriginalFilename returns the stored name of a sample's original image.
func OriginalFilename(sign, ts string) string {
	return sign + "_" + ts + "_original" + ImageExt
}

// AnnotatedFilename returns the stored name of a sample's annotated image.
func AnnotatedFilename(sign, ts string) string {
	return sign + "_" + ts + "_annotated" + ImageExt
}

// AnnotationFilename returns the stored name of a sample's annotation record.
func AnnotationFilename(sign, ts string) string {
	return sign + "_" + ts + AnnotationExt
}

// VideoFilename returns the stored name of a video clip.
func VideoFilename(sign, ts string) string {
	return sign + "_" + ts + VideoExt
}

// ValidateSign reports whether sign is usable as a single path component.
func ValidateSign(sign string) error {
	switch {
	case sign == "":
		return fmt.Errorf("%w: empty", ErrInvalidSign)
	case sign == "." || sign == "..":
		return fmt.Errorf("%w: %q", ErrInvalidSign, sign)
	case strings.ContainsAny(sign, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidSign, sign)
	}
	return nil
}

// Store is the dataset directory tree. Methods are safe for concurrent use;
// uniqueness of names is the caller's responsibility via Stamper.
type Store struct {
	root string
}

// NewStore creates a Store rooted at root, creating the directory if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the dataset directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory holding artifacts of kind for sign.
func (s *Store) Dir(sign string, kind Kind) (string, error) {
	if err := ValidateSign(sign); err != nil {
		return "", err
	}
	return filepath.Join(s.root, sign, string(kind)), nil
}

// Path resolves a stored artifact, rejecting names that leave the directory.
func (s *Store) Path(sign string, kind Kind, filename string) (string, error) {
	dir, err := s.Dir(sign, kind)
	if err != nil {
		return "", err
	}
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return filepath.Join(dir, filename), nil
}

// Provision creates the given subdirectories for sign. It is idempotent.
func (s *Store) Provision(sign string, kinds ...Kind) error {
	for _, kind := range kinds {
		dir, err := s.Dir(sign, kind)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s directory: %w", kind, err)
		}
	}
	return nil
}

// WriteOriginal stores a sample's original image and returns its filename.
func (s *Store) WriteOriginal(sign, ts string, data []byte) (string, error) {
	name := OriginalFilename(sign, ts)
	return name, s.write(sign, KindOriginal, name, data)
}

// WriteAnnotated stores a sample's annotated image and returns its filename.
func (s *Store) WriteAnnotated(sign, ts string, data []byte) (string, error) {
	name := AnnotatedFilename(sign, ts)
	return name, s.write(sign, KindAnnotated, name, data)
}

// WriteAnnotation stores the annotation record and returns its filename.
func (s *Store) WriteAnnotation(sign, ts string, rec *Annotation) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal annotation: %w", err)
	}
	name := AnnotationFilename(sign, ts)
	return name, s.write(sign, KindAnnotations, name, data)
}

// ReadAnnotation loads the annotation record of a sample.
func (s *Store) ReadAnnotation(sign, ts string) (*Annotation, error) {
	path, err := s.Path(sign, KindAnnotations, AnnotationFilename(sign, ts))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Annotation
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse annotation %s: %w", path, err)
	}
	return &rec, nil
}

// WriteVideo stores a raw video clip and returns its filename.
func (s *Store) WriteVideo(sign, ts string, data []byte) (string, error) {
	name := VideoFilename(sign, ts)
	return name, s.write(sign, KindVideos, name, data)
}

// VideoFile is a clip found on disk by ScanVideos.
type VideoFile struct {
	Sign      string
	Timestamp string
	Filename  string
	Size      int64
}

// ScanVideos lists every stored clip, ordered by sign then timestamp.
// Entries that do not follow the clip naming scheme are skipped.
func (s *Store) ScanVideos() ([]VideoFile, error) {
	signs, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read dataset root: %w", err)
	}

	var videos []VideoFile
	for _, entry := range signs {
		sign := entry.Name()
		if !entry.IsDir() || ValidateSign(sign) != nil {
			continue
		}
		dir := filepath.Join(s.root, sign, string(KindVideos))
		files, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, f := range files {
			name := f.Name()
			ts, ok := strings.CutPrefix(name, sign+"_")
			if !ok || f.IsDir() || !strings.HasSuffix(ts, VideoExt) {
				continue
			}
			ts = strings.TrimSuffix(ts, VideoExt)
			if ts == "" {
				continue
			}
			info, err := f.Info()
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", name, err)
			}
			videos = append(videos, VideoFile{Sign: sign, Timestamp: ts, Filename: name, Size: info.Size()})
		}
	}

	sort.Slice(videos, func(i, j int) bool {
		if videos[i].Sign != videos[j].Sign {
			return videos[i].Sign < videos[j].Sign
		}
		return videos[i].Timestamp < videos[j].Timestamp
	})
	return videos, nil
}

// write places data at its final name only after it is fully on disk, so a
// reader never sees a partial artifact under a real filename.
func (s *Store) write(sign string, kind Kind, name string, data []byte) error {
	path, err := s.Path(sign, kind, name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install %s: %w", name, err)
	}
	return nil
}
