// Package syncer bridges the pure finance reducer to whichever backing
// store the current identity uses, keeping in-memory and persisted state
// eventually consistent: load on identity change, live updates for
// authenticated users, debounced whole-document saves on every change.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/finanai/internal/domain"
	"github.com/dvloznov/finanai/internal/finance"
	"github.com/dvloznov/finanai/internal/identity"
	"github.com/dvloznov/finanai/internal/store"
	"github.com/rs/zerolog"
)

// Notifier surfaces user-visible notifications: payment reminders and
// persistence failures. In-memory state stays the optimistic source of
// truth when a write fails; there is no retry.
type Notifier interface {
	Notify(title, message string)
}

// LogNotifier writes notifications to the log. Used where no UI channel
// exists (CLI, tests).
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Notify(title, message string) {
	n.Log.Info().Str("title", title).Msg(message)
}

// DefaultDebounce is how long consecutive state changes are coalesced
// before a save is written.
const DefaultDebounce = 200 * time.Millisecond

// Config wires a Syncer. Service, Provider and Log are required; Remote
// and Local may each be nil when the corresponding identity mode is not
// served (the CLI runs guest-only, for example).
type Config struct {
	Service  *finance.Service
	Remote   store.DocumentStore
	Local    store.LocalStore
	Provider identity.Provider
	Notifier Notifier
	Log      zerolog.Logger
	Debounce time.Duration
	Now      func() time.Time
}

type saveRequest struct {
	id   identity.Identity
	data domain.FinancialData
}

// Syncer is the synchronization controller for one session.
type Syncer struct {
	svc      *finance.Service
	remote   store.DocumentStore
	local    store.LocalStore
	provider identity.Provider
	notifier Notifier
	log      zerolog.Logger
	debounce time.Duration
	now      func() time.Time

	mu       sync.Mutex
	current  identity.Identity
	loaded   bool
	loadErr  error
	loadedCh chan struct{}
	unsub    func()
	closed   bool

	saveCh  chan saveRequest
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New builds a Syncer from cfg. Call Start to begin watching the identity.
func New(cfg Config) *Syncer {
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{Log: cfg.Log}
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Syncer{
		svc:      cfg.Service,
		remote:   cfg.Remote,
		local:    cfg.Local,
		provider: cfg.Provider,
		notifier: cfg.Notifier,
		log:      cfg.Log,
		debounce: cfg.Debounce,
		now:      cfg.Now,
		loadedCh: make(chan struct{}),
		saveCh:   make(chan saveRequest, 1),
		closeCh:  make(chan struct{}),
	}
}

// Start hooks the service's change stream into the save path and begins
// watching the identity provider. It returns immediately; the initial load
// happens asynchronously (see WaitLoaded).
func (s *Syncer) Start(ctx context.Context) error {
	s.svc.OnChange(func(data domain.FinancialData) {
		s.mu.Lock()
		id, loaded := s.current, s.loaded
		s.mu.Unlock()
		// The loaded gate: never save the placeholder state over real
		// data while the load is still in flight, and never save while
		// the identity is unresolved.
		if !loaded || id.State == identity.Unresolved {
			return
		}
		s.enqueueSave(id, data)
	})

	s.wg.Add(1)
	go s.saveWorker(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for id := range s.provider.Watch(ctx) {
			s.handleIdentity(ctx, id)
		}
	}()

	return nil
}

// WaitLoaded blocks until the initial load for the current identity has
// settled or ctx expires. A load that cannot complete (the live
// subscription died before its first snapshot) returns that error rather
// than blocking the caller until the deadline.
func (s *Syncer) WaitLoaded(ctx context.Context) error {
	s.mu.Lock()
	ch := s.loadedCh
	s.mu.Unlock()
	select {
	case <-ch:
		s.mu.Lock()
		err := s.loadErr
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleIdentity runs the load protocol whenever the identity resolves or
// changes.
func (s *Syncer) handleIdentity(ctx context.Context, id identity.Identity) {
	s.mu.Lock()
	prev := s.current
	if s.closed || (prev.State == id.State && prev.UserID == id.UserID && s.loaded) {
		s.mu.Unlock()
		return
	}
	// Close the loaded gate before anything else so the transitions below
	// cannot be written over the previous identity's data. The gate channel
	// is rotated only once the previous gate has settled, so a caller that
	// grabbed the initial channel before the first identity arrived still
	// observes the first load.
	if s.loaded || s.loadErr != nil {
		s.loadedCh = make(chan struct{})
	}
	s.loaded = false
	s.loadErr = nil
	s.current = id
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}

	// Identity loss: no prior user's data may linger in memory.
	if prev.State == identity.Authenticated && (id.State != identity.Authenticated || id.UserID != prev.UserID) {
		s.svc.Dispatch(finance.ResetState{})
	}

	switch id.State {
	case identity.Unresolved:
		// Nothing loads or saves until the identity resolves.

	case identity.Guest:
		s.loadGuest()

	case identity.Authenticated:
		s.loadAuthenticated(ctx, id)
	}
}

// loadGuest reads the local store once; there is no live subscription in
// guest mode.
func (s *Syncer) loadGuest() {
	data := domain.Empty()
	if s.local != nil {
		value, ok, err := s.local.Get(identity.GuestKey)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to read local store")
			s.notifier.Notify("Sync", "Could not read saved data; starting fresh")
		} else if ok {
			var raw map[string]interface{}
			if err := json.Unmarshal([]byte(value), &raw); err != nil {
				s.log.Error().Err(err).Msg("Corrupt local document")
				s.notifier.Notify("Sync", "Saved data was unreadable; starting fresh")
			} else {
				data = domain.Normalize(raw)
			}
		}
	}
	s.svc.Dispatch(finance.SetState{Data: data})
	s.markLoaded()
	s.checkReminders(data)
}

// loadAuthenticated subscribes to the user's remote document. Each
// notification replaces the in-memory state; a missing document is
// initialized remotely with the empty aggregate.
func (s *Syncer) loadAuthenticated(ctx context.Context, id identity.Identity) {
	if s.remote == nil {
		s.log.Error().Msg("No remote store configured for authenticated identity")
		return
	}

	var first sync.Once
	unsub, err := s.remote.Subscribe(ctx, id.Key(), func(doc store.Document, exists bool, serr error) {
		if serr != nil {
			s.log.Error().Err(serr).Str("user", id.UserID).Msg("Live subscription lost")
			s.notifier.Notify("Sync", "Lost the connection to your cloud data")
			// A session still waiting on its first snapshot fails promptly
			// instead of hanging until the caller's deadline.
			s.failLoad(serr)
			return
		}
		if !exists {
			empty := domain.Empty()
			if err := s.remote.Set(ctx, id.Key(), domain.AsDocument(empty), false); err != nil {
				s.log.Error().Err(err).Str("user", id.UserID).Msg("Failed to initialize remote document")
				s.notifier.Notify("Sync", "Could not initialize your cloud data")
			}
			s.svc.Dispatch(finance.SetState{Data: empty})
			s.markLoaded()
			return
		}

		data := domain.Normalize(doc)
		s.svc.Dispatch(finance.SetState{Data: data})
		s.markLoaded()
		// The reminder check observes the first snapshot of a load only.
		first.Do(func() { s.checkReminders(data) })
	})
	if err != nil {
		s.log.Error().Err(err).Str("user", id.UserID).Msg("Failed to subscribe to remote document")
		s.notifier.Notify("Sync", "Could not connect to your cloud data")
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsub()
		return
	}
	s.unsub = unsub
	s.mu.Unlock()
}

func (s *Syncer) markLoaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded || s.loadErr != nil {
		return
	}
	s.loaded = true
	close(s.loadedCh)
}

// failLoad settles the gate with an error when the load can no longer
// complete. A gate already settled, successfully or not, is left alone.
func (s *Syncer) failLoad(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded || s.loadErr != nil {
		return
	}
	s.loadErr = err
	close(s.loadedCh)
}

// enqueueSave replaces any pending save with the newest state; only the
// latest aggregate matters since saves are whole-document.
func (s *Syncer) enqueueSave(id identity.Identity, data domain.FinancialData) {
	req := saveRequest{id: id, data: data}
	for {
		select {
		case s.saveCh <- req:
			return
		default:
			select {
			case <-s.saveCh:
			default:
			}
		}
	}
}

// saveWorker persists queued states, coalescing bursts within the debounce
// window.
func (s *Syncer) saveWorker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeCh:
			// Flush whatever is still pending before shutting down.
			select {
			case req := <-s.saveCh:
				s.persist(ctx, req)
			default:
			}
			return
		case req := <-s.saveCh:
			timer := time.NewTimer(s.debounce)
		coalesce:
			for {
				select {
				case newer := <-s.saveCh:
					req = newer
				case <-timer.C:
					break coalesce
				case <-s.closeCh:
					timer.Stop()
					s.persist(ctx, req)
					return
				case <-ctx.Done():
					timer.Stop()
					return
				}
			}
			s.persist(ctx, req)
		}
	}
}

// persist writes one whole aggregate to the active backing store. Failures
// surface as notifications; the in-memory state is not rolled back.
func (s *Syncer) persist(ctx context.Context, req saveRequest) {
	switch req.id.State {
	case identity.Authenticated:
		if s.remote == nil {
			return
		}
		if err := s.remote.Set(ctx, req.id.Key(), domain.AsDocument(req.data), true); err != nil {
			s.log.Error().Err(err).Str("user", req.id.UserID).Msg("Remote save failed")
			s.notifier.Notify("Sync", "Saving to the cloud failed; your changes are kept locally for now")
		}

	case identity.Guest:
		if s.local == nil {
			return
		}
		encoded, err := json.Marshal(req.data)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to encode aggregate")
			return
		}
		if err := s.local.Set(identity.GuestKey, string(encoded)); err != nil {
			s.log.Error().Err(err).Msg("Local save failed")
			s.notifier.Notify("Sync", "Saving on this device failed")
		}
	}
}

// Reset erases the identity's data: the remote document is overwritten with
// the empty aggregate (not deleted), the guest entry is removed, and the
// in-memory state resets either way.
func (s *Syncer) Reset(ctx context.Context) error {
	s.mu.Lock()
	id := s.current
	s.mu.Unlock()

	switch id.State {
	case identity.Authenticated:
		if s.remote != nil {
			if err := s.remote.Set(ctx, id.Key(), domain.AsDocument(domain.Empty()), false); err != nil {
				return fmt.Errorf("reset remote document: %w", err)
			}
		}
	case identity.Guest:
		if s.local != nil {
			if err := s.local.Remove(identity.GuestKey); err != nil {
				return fmt.Errorf("reset local store: %w", err)
			}
		}
	}
	s.svc.Dispatch(finance.ResetState{})
	return nil
}

// checkReminders surfaces a notification for every bill due today whose
// current month is unpaid. Read-only; fires at most once per load.
func (s *Syncer) checkReminders(data domain.FinancialData) {
	for _, r := range Reminders(data, s.now()) {
		s.notifier.Notify("Lembrete de Pagamento", fmt.Sprintf("Sua conta %q vence hoje!", r.Description))
	}
}

// Stop ends the workers, flushing any pending save, and waits for them up
// to ctx's deadline.
func (s *Syncer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	unsub := s.unsub
	s.unsub = nil
	close(s.closeCh)
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reminder describes one bill due today and unpaid for the current month.
type Reminder struct {
	BillID      string  `json:"billId"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	DueDay      int     `json:"dueDate"`
}

// Reminders computes the due-bill reminders for the given instant.
func Reminders(data domain.FinancialData, now time.Time) []Reminder {
	month := domain.MonthToken(now)
	day := now.Day()

	var out []Reminder
	for _, bill := range data.Bills {
		if bill.DueDay == day && !bill.Paid(month) {
			out = append(out, Reminder{
				BillID:      bill.ID,
				Description: bill.Description,
				Amount:      bill.Amount,
				DueDay:      bill.DueDay,
			})
		}
	}
	return out
}
