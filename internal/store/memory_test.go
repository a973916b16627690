package store

import (
	"context"
	"reflect"
	"testing"
)

func TestMemoryDocumentStore_SnapshotsAreIndependent(t *testing.T) {
	m := NewMemoryDocumentStore()
	doc := Document{
		"checklist": []interface{}{
			map[string]interface{}{"id": "c1", "text": "Milk", "completed": false},
		},
	}
	if err := m.Set(context.Background(), "user-1", doc, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := m.Get(context.Background(), "user-1")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}

	// Mutating nested values of a snapshot must not leak into the store.
	got["checklist"].([]interface{})[0].(map[string]interface{})["text"] = "Eggs"

	again, _, _ := m.Get(context.Background(), "user-1")
	text := again["checklist"].([]interface{})[0].(map[string]interface{})["text"]
	if text != "Milk" {
		t.Errorf("Stored document mutated through a snapshot: text = %v", text)
	}
}

func TestMemoryDocumentStore_MergePreservesSiblings(t *testing.T) {
	m := NewMemoryDocumentStore()
	_ = m.Set(context.Background(), "user-1", Document{"a": "1", "b": "2"}, false)

	if err := m.Set(context.Background(), "user-1", Document{"b": "3"}, true); err != nil {
		t.Fatalf("Merge set failed: %v", err)
	}

	got, _, _ := m.Get(context.Background(), "user-1")
	want := Document{"a": "1", "b": "3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merged document = %v, want %v", got, want)
	}
}

func TestMemoryDocumentStore_SubscribeDeliversInitialAndUpdates(t *testing.T) {
	m := NewMemoryDocumentStore()

	var snapshots []Document
	stop, err := m.Subscribe(context.Background(), "user-1", func(doc Document, exists bool, err error) {
		if err != nil {
			t.Errorf("Unexpected subscription error: %v", err)
		}
		if exists {
			snapshots = append(snapshots, doc)
		}
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer stop()

	_ = m.Set(context.Background(), "user-1", Document{"a": "1"}, false)
	_ = m.Set(context.Background(), "user-1", Document{"a": "2"}, false)

	if len(snapshots) != 2 || snapshots[1]["a"] != "2" {
		t.Errorf("Expected two snapshots ending at a=2, got %v", snapshots)
	}

	stop()
	_ = m.Set(context.Background(), "user-1", Document{"a": "3"}, false)
	if len(snapshots) != 2 {
		t.Errorf("Snapshot delivered after stop: %v", snapshots)
	}
}
