// Package firestore implements the remote document store on Cloud
// Firestore: one document per identity under a single collection, with
// snapshot listeners providing the live-update subscription.
package firestore

import (
	"context"
	"fmt"

	cf "cloud.google.com/go/firestore"
	"github.com/dvloznov/finanai/internal/store"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection is the collection holding per-user aggregates.
const DefaultCollection = "users"

// Store is a store.DocumentStore backed by Cloud Firestore.
type Store struct {
	client     *cf.Client
	collection string
	log        zerolog.Logger
}

// New connects to Firestore in the given project. Credentials come from
// Application Default Credentials unless overridden via opts.
func New(ctx context.Context, projectID, collection string, log zerolog.Logger, opts ...option.ClientOption) (*Store, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := cf.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client, collection: collection, log: log}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) doc(key string) *cf.DocumentRef {
	return s.client.Collection(s.collection).Doc(key)
}

// Get fetches the identity's document once.
func (s *Store) Get(ctx context.Context, key string) (store.Document, bool, error) {
	snap, err := s.doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get document %q: %w", key, err)
	}
	return snap.Data(), true, nil
}

// Set writes the whole document. With merge, sibling top-level fields
// written by other revisions of the app are preserved.
func (s *Store) Set(ctx context.Context, key string, doc store.Document, merge bool) error {
	var opts []cf.SetOption
	if merge {
		opts = append(opts, cf.MergeAll)
	}
	if _, err := s.doc(key).Set(ctx, doc, opts...); err != nil {
		return fmt.Errorf("set document %q: %w", key, err)
	}
	return nil
}

// Subscribe starts a snapshot listener on the identity's document. Every
// snapshot, including echoes of this client's own writes, is delivered to
// fn. The returned stop function ends the listener.
func (s *Store) Subscribe(ctx context.Context, key string, fn store.OnChange) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	iter := s.doc(key).Snapshots(ctx)

	go func() {
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				// Cancellation is the stop function; anything else is a dead
				// listener the subscriber needs to hear about.
				if status.Code(err) != codes.Canceled {
					s.log.Error().Err(err).Str("key", key).Msg("Snapshot listener stopped")
					fn(nil, false, fmt.Errorf("snapshot listener for %q: %w", key, err))
				}
				return
			}
			if snap.Exists() {
				fn(snap.Data(), true, nil)
			} else {
				fn(nil, false, nil)
			}
		}
	}()

	return cancel, nil
}

var _ store.DocumentStore = (*Store)(nil)
