package labels

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

var vocabulary = []string{"hello", "thank_you", "please", "yes", "no"}

func TestInitialize_AssignsByPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset", "labels.json")

	r, err := Initialize(path, vocabulary)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	for i, sign := range vocabulary {
		if got := r.Lookup(sign); got != i {
			t.Errorf("Lookup(%q) = %d, want %d", sign, got, i)
		}
	}
	if r.Len() != len(vocabulary) {
		t.Errorf("Len() = %d, want %d", r.Len(), len(vocabulary))
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("labels file should be persisted: %v", err)
	}
	if !reflect.DeepEqual(r.Signs(), vocabulary) {
		t.Errorf("Signs() = %v, want %v", r.Signs(), vocabulary)
	}
}

func TestInitialize_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")

	first, err := Initialize(path, vocabulary)
	if err != nil {
		t.Fatalf("first Initialize() error = %v", err)
	}
	second, err := Initialize(path, vocabulary)
	if err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}

	if !reflect.DeepEqual(first.Entries(), second.Entries()) {
		t.Errorf("mappings differ: %v vs %v", first.Entries(), second.Entries())
	}
}

func TestInitialize_ExistingRegistryIsAuthoritative(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")

	if _, err := Initialize(path, vocabulary); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	r, err := Initialize(path, []string{"no", "yes", "goodbye"})
	if err != nil {
		t.Fatalf("re-Initialize() error = %v", err)
	}

	if got := r.Lookup("no"); got != 4 {
		t.Errorf("Lookup(no) = %d, want 4", got)
	}
	if got := r.Lookup("goodbye"); got != Unknown {
		t.Errorf("Lookup(goodbye) = %d, want %d", got, Unknown)
	}
}

func TestRegistry_LookupUnknown(t *testing.T) {
	r, err := Initialize(filepath.Join(t.TempDir(), "labels.json"), vocabulary)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	for _, sign := range []string{"", "HELLO", "goodbye"} {
		if got := r.Lookup(sign); got != Unknown {
			t.Errorf("Lookup(%q) = %d, want %d", sign, got, Unknown)
		}
	}
}

func TestInitialize_Errors(t *testing.T) {
	t.Run("empty vocabulary", func(t *testing.T) {
		_, err := Initialize(filepath.Join(t.TempDir(), "labels.json"), nil)
		if !errors.Is(err, ErrEmptyVocabulary) {
			t.Errorf("expected ErrEmptyVocabulary, got %v", err)
		}
	})

	t.Run("duplicate sign", func(t *testing.T) {
		_, err := Initialize(filepath.Join(t.TempDir(), "labels.json"), []string{"yes", "no", "yes"})
		if !errors.Is(err, ErrDuplicateSign) {
			t.Errorf("expected ErrDuplicateSign, got %v", err)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "labels.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Initialize(path, vocabulary); err == nil {
			t.Error("expected error for corrupt labels file")
		}
	})
}
