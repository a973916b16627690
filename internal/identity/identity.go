// Package identity models who the current session belongs to. Exactly one
// of three states holds at any time: still resolving, guest, or an
// authenticated user with an id.
package identity

import "context"

// State is the resolution state of a session identity.
type State int

const (
	// Unresolved means auth status is still loading; no load or save may
	// happen against any backing store while unresolved.
	Unresolved State = iota
	// Guest is an unauthenticated local-only session.
	Guest
	// Authenticated is a signed-in user with a stable user id.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Guest:
		return "guest"
	case Authenticated:
		return "authenticated"
	default:
		return "unresolved"
	}
}

// Identity is one resolved (or not yet resolved) session identity.
type Identity struct {
	State  State
	UserID string
}

// Key returns the storage key for this identity: the user id for an
// authenticated user, the fixed guest key otherwise.
func (id Identity) Key() string {
	if id.State == Authenticated {
		return id.UserID
	}
	return GuestKey
}

// GuestKey is the fixed storage key for guest sessions.
const GuestKey = "guest"

// Provider supplies the current identity and its changes over time.
type Provider interface {
	// Current returns the identity as known right now.
	Current() Identity

	// Watch emits the current identity and every subsequent change until
	// ctx is done. Implementations close the channel when done.
	Watch(ctx context.Context) <-chan Identity
}

// Static is a Provider with a fixed identity, used by the CLI and by
// per-session controllers where the identity was already resolved from the
// request.
type Static struct {
	ID Identity
}

// NewStatic returns a provider that always reports id.
func NewStatic(id Identity) *Static {
	return &Static{ID: id}
}

func (s *Static) Current() Identity {
	return s.ID
}

func (s *Static) Watch(ctx context.Context) <-chan Identity {
	ch := make(chan Identity, 1)
	ch <- s.ID
	close(ch)
	return ch
}
