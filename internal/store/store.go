// Package store defines the backing-store collaborators the synchronization
// controller writes the aggregate through: a remote per-identity document
// store and a local ephemeral store for guest sessions.
package store

import "context"

// Document is the raw persisted form of one identity's aggregate.
type Document = map[string]interface{}

// OnChange receives each document snapshot from a live subscription. exists
// is false when the document has not been created yet. A non-nil err means
// the subscription has died; no further notifications follow it.
type OnChange func(doc Document, exists bool, err error)

// DocumentStore is the remote per-user document store: read-once fetch,
// real-time subscription, and whole-document write with optional merge.
// Keys are user identifier strings.
type DocumentStore interface {
	// Get fetches the document once; the second return is false when it
	// does not exist.
	Get(ctx context.Context, key string) (Document, bool, error)

	// Set replaces the document. With merge, top-level fields absent from
	// doc are left alone; either way this is last-writer-wins per field.
	Set(ctx context.Context, key string, doc Document, merge bool) error

	// Subscribe registers fn for the current snapshot and every subsequent
	// change, including echoes of this client's own writes. A listener
	// failure is delivered as a final call with a non-nil error. The
	// returned function cancels the subscription.
	Subscribe(ctx context.Context, key string, fn OnChange) (func(), error)
}

// LocalStore is the guest-mode key-value store scoped to the device.
type LocalStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}
