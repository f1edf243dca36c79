package store

import (
	"fmt"
	"log"
	"strings"

	"github.com/ayusman/signcapture/internal/dataset"
)

// AnnotationReader loads the annotation record of a sample.
type AnnotationReader interface {
	ReadAnnotation(sign, ts string) (*dataset.Annotation, error)
}

// Reindex rebuilds sample entries from ledger rows. Rows are paired by sign
// and timestamp; progress, if set, is called once per row consumed. Hand
// counts come from the annotation records when they can be read. It returns
// the number of samples written.
func (s *Store) Reindex(rows []dataset.Row, annotations AnnotationReader, progress func()) (int, error) {
	type key struct{ sign, ts string }
	pending := make(map[key]*Sample)
	var order []key

	for _, row := range rows {
		if progress != nil {
			progress()
		}
		k := key{row.Sign, row.Timestamp}
		smp, ok := pending[k]
		if !ok {
			smp = &Sample{
				Sign:           row.Sign,
				LabelID:        row.LabelID,
				Timestamp:      row.Timestamp,
				AnnotationFile: dataset.AnnotationFilename(row.Sign, row.Timestamp),
			}
			pending[k] = smp
			order = append(order, k)
		}
		switch {
		case strings.HasSuffix(row.Filename, "_original"+dataset.ImageExt):
			smp.OriginalFile = row.Filename
		case strings.HasSuffix(row.Filename, "_annotated"+dataset.ImageExt):
			smp.AnnotatedFile = row.Filename
		default:
			log.Printf("reindex: skipping unrecognized ledger file %q", row.Filename)
		}
	}

	written := 0
	for _, k := range order {
		smp := pending[k]
		if smp.OriginalFile == "" || smp.AnnotatedFile == "" {
			log.Printf("reindex: %s/%s has no complete image pair in the ledger", k.sign, k.ts)
			continue
		}
		if annotations != nil {
			if rec, err := annotations.ReadAnnotation(k.sign, k.ts); err == nil {
				smp.Hands = len(rec.Keypoints)
			} else {
				log.Printf("reindex: annotation for %s/%s unreadable: %v", k.sign, k.ts, err)
			}
		}
		if err := s.Samples().Save(smp); err != nil {
			return written, fmt.Errorf("save sample %s/%s: %w", k.sign, k.ts, err)
		}
		written++
	}
	return written, nil
}

// ReindexVideos rebuilds video entries from clips found on disk. progress,
// if set, is called once per clip. It returns the number of videos written.
func (s *Store) ReindexVideos(videos []dataset.VideoFile, progress func()) (int, error) {
	written := 0
	for _, vf := range videos {
		if progress != nil {
			progress()
		}
		err := s.Videos().Save(&Video{
			Sign:      vf.Sign,
			Timestamp: vf.Timestamp,
			Filename:  vf.Filename,
			Size:      vf.Size,
		})
		if err != nil {
			return written, fmt.Errorf("save video %s: %w", vf.Filename, err)
		}
		written++
	}
	return written, nil
}
