// Package labels maps sign names to the integer label ids used by training code.
package labels

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Unknown is the label id reported for signs outside the registry.
const Unknown = -1

var (
	// ErrEmptyVocabulary is returned when a new registry would have no signs.
	ErrEmptyVocabulary = errors.New("labels: vocabulary is empty")

	// ErrDuplicateSign is returned when a vocabulary names the same sign twice.
	ErrDuplicateSign = errors.New("labels: duplicate sign in vocabulary")
)

// Registry is a read-only sign to label id mapping. It is created once and
// shared by every request.
type Registry struct {
	path string
	ids  map[string]int
}

// Initialize loads the registry stored at path. When no file exists it
// assigns ids by vocabulary position (first sign is 0) and persists them.
// An existing file is authoritative: vocabulary is not re-applied.
func Initialize(path string, vocabulary []string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		ids := make(map[string]int)
		if err := json.Unmarshal(data, &ids); err != nil {
			return nil, fmt.Errorf("parse labels file %s: %w", path, err)
		}
		return &Registry{path: path, ids: ids}, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read labels file: %w", err)
	}

	ids, err := assign(vocabulary)
	if err != nil {
		return nil, err
	}
	if err := persist(path, ids); err != nil {
		return nil, err
	}
	return &Registry{path: path, ids: ids}, nil
}

func assign(vocabulary []string) (map[string]int, error) {
	if len(vocabulary) == 0 {
		return nil, ErrEmptyVocabulary
	}
	ids := make(map[string]int, len(vocabulary))
	for i, sign := range vocabulary {
		if _, ok := ids[sign]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSign, sign)
		}
		ids[sign] = i
	}
	return ids, nil
}

// persist writes the mapping through a temp file so a crash never leaves a
// truncated registry behind.
func persist(path string, ids map[string]int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create labels directory: %w", err)
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".labels-*")
	if err != nil {
		return fmt.Errorf("create labels file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write labels file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync labels file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close labels file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install labels file: %w", err)
	}
	return nil
}

// Lookup returns the label id for sign, or Unknown.
func (r *Registry) Lookup(sign string) int {
	if id, ok := r.ids[sign]; ok {
		return id
	}
	return Unknown
}

// Signs returns the registered signs ordered by label id.
func (r *Registry) Signs() []string {
	signs := make([]string, 0, len(r.ids))
	for sign := range r.ids {
		signs = append(signs, sign)
	}
	sort.Slice(signs, func(i, j int) bool {
		if r.ids[signs[i]] != r.ids[signs[j]] {
			return r.ids[signs[i]] < r.ids[signs[j]]
		}
		return signs[i] < signs[j]
	})
	return signs
}

// Entries returns a copy of the full mapping.
func (r *Registry) Entries() map[string]int {
	out := make(map[string]int, len(r.ids))
	for k, v := range r.ids {
		out[k] = v
	}
	return out
}

// Len returns the number of registered signs.
func (r *Registry) Len() int {
	return len(r.ids)
}

// Path returns the file backing the registry.
func (r *Registry) Path() string {
	return r.path
}
