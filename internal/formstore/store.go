// Package formstore is the persisted BookingForm store: one mutable record per
// browser profile, serialized in full to durable storage on every write.
package formstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/observability/metrics"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

// ErrNotHydrated is returned when the form is used before Hydrate completed.
var ErrNotHydrated = errors.New("formstore: form not hydrated")

// Key returns the durable storage key of a profile's form.
func Key(profileID string) string {
	return bookingform.StorageKey + ":" + profileID
}

// Store holds one profile's form in memory and mirrors it to a Backend.
type Store struct {
	key     string
	backend Backend
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
	now     func() time.Time

	mu       sync.RWMutex
	form     bookingform.Form
	hydrated bool
	// generation advances on every Reset; a write only persists while its
	// generation is current.
	generation uint64
	closed     bool

	// persistMu orders storage writes so storage always ends on the latest snapshot.
	persistMu sync.Mutex

	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for swallowed persistence failures.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records storage operations.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock overrides time.Now for age derivation.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an unhydrated store for a profile.
func New(backend Backend, profileID string, opts ...Option) *Store {
	if backend == nil {
		panic("formstore: backend required")
	}
	s := &Store{
		key:     Key(profileID),
		backend: backend,
		logger:  logging.Default(),
		now:     time.Now,
		form:    bookingform.Default(),
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads the persisted copy and merges it over defaults. Load and
// parse failures are logged and leave the defaults in place. Only the first
// call does any work.
func (s *Store) Hydrate(ctx context.Context) {
	s.readyOnce.Do(func() {
		form := bookingform.Default()
		data, ok, err := s.backend.Load(ctx, s.key)
		switch {
		case err != nil:
			s.logger.Error("failed to load booking form", "key", s.key, "error", err)
			s.observe("load", "error")
		case ok:
			if err := json.Unmarshal(data, &form); err != nil {
				s.logger.Error("failed to parse booking form, using defaults", "key", s.key, "error", err)
				form = bookingform.Default()
				s.observe("load", "corrupt")
			} else {
				s.observe("load", "hit")
			}
		default:
			s.observe("load", "miss")
		}

		s.mu.Lock()
		s.form = form
		s.hydrated = true
		s.mu.Unlock()
		close(s.ready)
	})
}

// Ready is closed once hydration has completed.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until hydration finished, ctx is done, or max elapsed.
func (s *Store) WaitReady(ctx context.Context, max time.Duration) bool {
	select {
	case <-s.ready:
		return true
	default:
	}
	timer := time.NewTimer(max)
	defer timer.Stop()
	select {
	case <-s.ready:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Read returns a copy of the current form.
func (s *Store) Read() (bookingform.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hydrated {
		return bookingform.Form{}, ErrNotHydrated
	}
	return s.form.Clone(), nil
}

// Write merges patch into the in-memory form, then persists the whole record.
// Persistence failures are logged, never returned. Writes to a closed store
// are dropped and the current form is returned unchanged.
func (s *Store) Write(ctx context.Context, patch bookingform.Patch) (bookingform.Form, error) {
	s.mu.Lock()
	if !s.hydrated {
		s.mu.Unlock()
		return bookingform.Form{}, ErrNotHydrated
	}
	if s.closed {
		current := s.form.Clone()
		s.mu.Unlock()
		s.logger.Debug("write to closed booking form dropped", "key", s.key)
		s.observe("save", "dropped")
		return current, nil
	}
	s.form.ApplyAt(patch, s.now())
	updated := s.form.Clone()
	gen := s.generation
	s.mu.Unlock()

	s.persist(ctx, gen)
	return updated, nil
}

// Close detaches the store from its session. Later writes, such as a
// backend call resolving after logout, never reach memory or storage.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Reset discards the form and removes its storage entry. Writes merged
// before the reset but not yet persisted are skipped.
func (s *Store) Reset(ctx context.Context) {
	s.Hydrate(ctx)

	s.mu.Lock()
	s.form = bookingform.Default()
	s.generation++
	s.mu.Unlock()

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.backend.Delete(ctx, s.key); err != nil {
		s.logger.Error("failed to remove booking form", "key", s.key, "error", err)
		s.observe("delete", "error")
		return
	}
	s.observe("delete", "ok")
}

// AddReport appends an uploaded report to the in-memory list. Reports are
// never written to storage.
func (s *Store) AddReport(r bookingform.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hydrated {
		return ErrNotHydrated
	}
	s.form.Reports = append(s.form.Reports, r)
	return nil
}

// RemoveReport drops a report from the in-memory list.
func (s *Store) RemoveReport(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.form.Reports {
		if r.ID == id {
			s.form.Reports = append(s.form.Reports[:i], s.form.Reports[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) persist(ctx context.Context, gen uint64) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	if s.closed || s.generation != gen {
		s.mu.RUnlock()
		s.observe("save", "stale")
		return
	}
	data, err := json.Marshal(s.form)
	s.mu.RUnlock()
	if err != nil {
		s.logger.Error("failed to serialize booking form", "key", s.key, "error", err)
		s.observe("save", "error")
		return
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		s.logger.Error("failed to persist booking form", "key", s.key, "error", err)
		s.observe("save", "error")
		return
	}
	s.observe("save", "ok")
}

func (s *Store) observe(op, status string) {
	s.metrics.ObserveStore(s.backend.Name(), op, status)
}
