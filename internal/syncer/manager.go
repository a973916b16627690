package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/finanai/internal/finance"
	"github.com/dvloznov/finanai/internal/identity"
	"github.com/dvloznov/finanai/internal/store"
	"github.com/rs/zerolog"
)

// Session is one identity's state container plus its synchronization
// controller, created on first use and torn down at logout.
type Session struct {
	Identity identity.Identity
	Service  *finance.Service
	Syncer   *Syncer
}

// Manager owns the per-identity sessions for the HTTP server. Requests
// resolve their identity first, then borrow the matching session.
type Manager struct {
	ctx      context.Context
	remote   store.DocumentStore
	local    store.LocalStore
	notifier Notifier
	log      zerolog.Logger
	debounce time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewManager creates a session manager. ctx bounds the lifetime of every
// session it creates.
func NewManager(ctx context.Context, remote store.DocumentStore, local store.LocalStore, notifier Notifier, log zerolog.Logger) *Manager {
	return &Manager{
		ctx:      ctx,
		remote:   remote,
		local:    local,
		notifier: notifier,
		log:      log,
		debounce: DefaultDebounce,
		sessions: make(map[string]*Session),
	}
}

func sessionKey(id identity.Identity) string {
	return id.State.String() + ":" + id.Key()
}

// Session returns the session for id, creating and loading it on first
// use. The returned session is shared by all requests with the same
// identity; its Service serializes their dispatches.
func (m *Manager) Session(ctx context.Context, id identity.Identity) (*Session, error) {
	if id.State == identity.Unresolved {
		return nil, fmt.Errorf("identity not resolved")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("session manager closed")
	}
	key := sessionKey(id)
	if sess, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		if err := sess.Syncer.WaitLoaded(ctx); err != nil {
			return nil, fmt.Errorf("session load: %w", err)
		}
		return sess, nil
	}

	svc := finance.NewService()
	sy := New(Config{
		Service:  svc,
		Remote:   m.remote,
		Local:    m.local,
		Provider: identity.NewStatic(id),
		Notifier: m.notifier,
		Log:      m.log.With().Str("identity", key).Logger(),
		Debounce: m.debounce,
	})
	sess := &Session{Identity: id, Service: svc, Syncer: sy}
	m.sessions[key] = sess
	m.mu.Unlock()

	if err := sy.Start(m.ctx); err != nil {
		return nil, fmt.Errorf("start syncer: %w", err)
	}
	if err := sy.WaitLoaded(ctx); err != nil {
		return nil, fmt.Errorf("session load: %w", err)
	}
	return sess, nil
}

// Logout tears the identity's session down. The next request for the same
// identity starts a fresh session and reloads from the backing store.
func (m *Manager) Logout(ctx context.Context, id identity.Identity) error {
	m.mu.Lock()
	key := sessionKey(id)
	sess, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return sess.Syncer.Stop(ctx)
}

// Close stops every session.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.Syncer.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
