// Package session keeps one in-process booking session per browser profile.
// A session owns the profile's form store and the page state (wizard
// position, in-flight flags, in-memory reports) that lives between requests.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/clinicbook/internal/backend"
	"github.com/wolfman30/clinicbook/internal/formstore"
	"github.com/wolfman30/clinicbook/internal/observability/metrics"
	"github.com/wolfman30/clinicbook/internal/payments"
	"github.com/wolfman30/clinicbook/internal/recall"
	"github.com/wolfman30/clinicbook/internal/slots"
	"github.com/wolfman30/clinicbook/internal/wizard"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

// API is every clinic backend call a session's pages make.
type API interface {
	CreatePatient(ctx context.Context, req backend.PatientRequest) (backend.Patient, error)
	LinkFiles(ctx context.Context, patientID string, fileIDs []string) error
	CreateAppointment(ctx context.Context, req backend.AppointmentRequest) (backend.Appointment, error)
	CreateRecall(ctx context.Context, req backend.RecallRequest) (backend.Recall, error)
	AvailableSlots(ctx context.Context, date, mode string) ([]backend.Slot, error)
	CreatePaymentOrder(ctx context.Context, appointmentID string) (backend.PaymentOrder, error)
	VerifyPayment(ctx context.Context, v backend.PaymentVerification) (string, error)
}

// Session is one profile's booking state.
type Session struct {
	ProfileID string
	Store     *formstore.Store
	Wizard    *wizard.Controller
	Recall    *recall.Page
	Slots     *slots.Page
	Payment   *payments.Bridge

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Config wires the shared dependencies every session is built from.
type Config struct {
	Storage  formstore.Backend
	API      API
	Loader   *payments.Loader
	Calendar *slots.Calendar
	Recall   recall.Options
	Payment  payments.Options
	IdleTTL  time.Duration
	Logger   *logging.Logger
	Metrics  *metrics.BookingMetrics
}

// Manager is the registry of live sessions.
type Manager struct {
	cfg    Config
	logger *logging.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty registry.
func NewManager(cfg Config) *Manager {
	if cfg.Storage == nil || cfg.API == nil || cfg.Loader == nil {
		panic("session: storage, api and loader required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Calendar == nil {
		cfg.Calendar = slots.NewCalendar(time.Now, time.Local)
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * time.Hour
	}
	return &Manager{
		cfg:      cfg,
		logger:   cfg.Logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open returns the profile's live session, creating and hydrating a new one
// (wizard at step 1) when none exists.
func (m *Manager) Open(ctx context.Context, profileID string) *Session {
	m.mu.Lock()
	s, ok := m.sessions[profileID]
	if !ok {
		s = m.build(profileID)
		m.sessions[profileID] = s
		m.cfg.Metrics.SetActiveSessions(len(m.sessions))
		m.logger.Debug("booking session opened", "profile_id", profileID)
	}
	s.touch(m.now())
	m.mu.Unlock()

	s.Store.Hydrate(context.WithoutCancel(ctx))
	return s
}

// End logs the profile out: the stored form is removed and the session dropped.
// The old store is closed first so a backend call still resolving for it
// cannot write the form back.
func (m *Manager) End(ctx context.Context, profileID string) {
	m.mu.Lock()
	s, ok := m.sessions[profileID]
	delete(m.sessions, profileID)
	m.cfg.Metrics.SetActiveSessions(len(m.sessions))
	m.mu.Unlock()

	if ok {
		s.Store.Close()
	} else {
		s = m.build(profileID)
	}
	s.Store.Reset(context.WithoutCancel(ctx))
	m.logger.Info("booking session ended", "profile_id", profileID)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL. Their forms stay in
// storage; in-memory reports and page flags are lost.
func (m *Manager) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if s.Wizard.Submitting() || s.Recall.Submitting() || s.Payment.State().Processing {
			continue
		}
		if s.idleSince(now) > m.cfg.IdleTTL {
			s.Store.Close()
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		m.cfg.Metrics.SetActiveSessions(len(m.sessions))
		m.logger.Debug("idle booking sessions evicted", "count", evicted)
	}
	return evicted
}

// Run sweeps idle sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	interval := m.cfg.IdleTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) build(profileID string) *Session {
	logger := m.logger.With("profile_id", profileID)
	store := formstore.New(m.cfg.Storage, profileID,
		formstore.WithLogger(logger),
		formstore.WithMetrics(m.cfg.Metrics),
	)
	return &Session{
		ProfileID: profileID,
		Store:     store,
		Wizard:    wizard.NewController(store, m.cfg.API, logger, m.cfg.Metrics),
		Recall:    recall.NewPage(store, m.cfg.API, m.cfg.Recall, logger, m.cfg.Metrics),
		Slots:     slots.NewPage(store, m.cfg.API, m.cfg.Calendar, logger, m.cfg.Metrics),
		Payment:   payments.NewBridge(store, m.cfg.API, m.cfg.Loader, m.cfg.Payment, logger, m.cfg.Metrics),
	}
}
