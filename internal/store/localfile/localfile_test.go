package localfile

import (
	"path/filepath"
	"testing"
)

func TestStore_SetGetRemove(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, ok, err := s.Get("guest"); err != nil || ok {
		t.Fatalf("Expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := s.Set("guest", `{"showChart":true}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, ok, err := s.Get("guest")
	if err != nil || !ok {
		t.Fatalf("Expected value present, got ok=%v err=%v", ok, err)
	}
	if value != `{"showChart":true}` {
		t.Errorf("Unexpected value: %s", value)
	}

	if err := s.Remove("guest"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok, _ := s.Get("guest"); ok {
		t.Error("Expected key removed")
	}
}

func TestStore_RemoveAbsentKey(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Remove("never-existed"); err != nil {
		t.Errorf("Expected removing absent key to be a no-op, got %v", err)
	}
}

func TestStore_OverwriteReplacesValue(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "nested", "data"))
	if err != nil {
		t.Fatalf("New failed to create nested directory: %v", err)
	}

	if err := s.Set("guest", "first"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set("guest", "second"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, _, _ := s.Get("guest")
	if value != "second" {
		t.Errorf("Expected overwrite, got %s", value)
	}
}
