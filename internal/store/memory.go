package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryDocumentStore is an in-process DocumentStore. It backs tests and
// the dev-mode server when no Firestore project is configured; data does
// not survive a restart.
type MemoryDocumentStore struct {
	mu   sync.Mutex
	docs map[string]Document
	subs map[string][]*memorySub
}

type memorySub struct {
	fn     OnChange
	active bool
}

// NewMemoryDocumentStore returns an empty in-memory document store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		docs: make(map[string]Document),
		subs: make(map[string][]*memorySub),
	}
}

func (m *MemoryDocumentStore) Get(ctx context.Context, key string) (Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, false, nil
	}
	return cloneDocument(doc), true, nil
}

func (m *MemoryDocumentStore) Set(ctx context.Context, key string, doc Document, merge bool) error {
	m.mu.Lock()
	existing, ok := m.docs[key]
	if merge && ok {
		merged := cloneDocument(existing)
		for k, v := range doc {
			merged[k] = v
		}
		m.docs[key] = merged
	} else {
		m.docs[key] = cloneDocument(doc)
	}
	snapshot := cloneDocument(m.docs[key])
	subs := append([]*memorySub(nil), m.subs[key]...)
	m.mu.Unlock()

	// Notify outside the lock; mirrors the remote store delivering the
	// writer's own snapshot back to it.
	for _, sub := range subs {
		if sub.active {
			sub.fn(cloneDocument(snapshot), true, nil)
		}
	}
	return nil
}

func (m *MemoryDocumentStore) Subscribe(ctx context.Context, key string, fn OnChange) (func(), error) {
	m.mu.Lock()
	sub := &memorySub{fn: fn, active: true}
	m.subs[key] = append(m.subs[key], sub)
	doc, ok := m.docs[key]
	var snapshot Document
	if ok {
		snapshot = cloneDocument(doc)
	}
	m.mu.Unlock()

	// Initial snapshot, present or not.
	fn(snapshot, ok, nil)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		sub.active = false
	}, nil
}

// cloneDocument deep-copies via a JSON round trip so nested slices and
// maps are never shared between the store and its callers.
func cloneDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("store: unencodable document: %v", err))
	}
	var out Document
	if err := json.Unmarshal(encoded, &out); err != nil {
		panic(fmt.Sprintf("store: undecodable document: %v", err))
	}
	return out
}

// MemoryLocalStore is an in-process LocalStore for tests.
type MemoryLocalStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryLocalStore returns an empty in-memory local store.
func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{values: make(map[string]string)}
}

func (m *MemoryLocalStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryLocalStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryLocalStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
