// Package recall implements the food-recall page: the locally edited list of
// recall entries and the submit sequence that opens the appointment.
package recall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/wolfman30/clinicbook/internal/backend"
	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/flow"
	"github.com/wolfman30/clinicbook/internal/formstore"
	"github.com/wolfman30/clinicbook/internal/observability/metrics"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

var recallTracer = otel.Tracer("clinicbook.internal.recall")

// ErrEntryNotFound is returned when an entry id is not in the list.
var ErrEntryNotFound = errors.New("recall: entry not found")

// NoCompleteEntriesMessage blocks a submit with nothing to send.
const NoCompleteEntriesMessage = "please add at least one complete recall entry (meal type, time, food item and quantity)"

// FormStore is the slice of the form store the page needs.
type FormStore interface {
	Read() (bookingform.Form, error)
	Write(ctx context.Context, patch bookingform.Patch) (bookingform.Form, error)
	WaitReady(ctx context.Context, max time.Duration) bool
}

// Backend is the set of clinic backend calls made on submit.
type Backend interface {
	LinkFiles(ctx context.Context, patientID string, fileIDs []string) error
	CreateAppointment(ctx context.Context, req backend.AppointmentRequest) (backend.Appointment, error)
	CreateRecall(ctx context.Context, req backend.RecallRequest) (backend.Recall, error)
}

// Options tunes the page.
type Options struct {
	// GraceDelay is how long the guard waits for the store to hydrate before
	// judging fields missing.
	GraceDelay time.Duration
	// DefaultDuration is sent when the plan carries no package duration.
	DefaultDuration string
	// PriceOverrideSlug, when set, replaces the price of that one plan with
	// PriceOverrideAmount. Used for low-value test payments.
	PriceOverrideSlug   string
	PriceOverrideAmount float64
}

// Page is one session's recall page.
type Page struct {
	store   FormStore
	api     Backend
	opts    Options
	logger  *logging.Logger
	metrics *metrics.BookingMetrics

	// mu serializes read-modify-write of the entry list.
	mu         sync.Mutex
	submitting flow.InFlight
}

// NewPage creates a recall page.
func NewPage(store FormStore, api Backend, opts Options, logger *logging.Logger, m *metrics.BookingMetrics) *Page {
	if store == nil || api == nil {
		panic("recall: store and backend required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(opts.DefaultDuration) == "" {
		opts.DefaultDuration = "1 Month"
	}
	return &Page{store: store, api: api, opts: opts, logger: logger, metrics: m}
}

// Guard waits briefly for hydration, then requires the plan and a patient.
func (p *Page) Guard(ctx context.Context) (flow.Result, bool, error) {
	p.store.WaitReady(ctx, p.opts.GraceDelay)
	form, err := p.store.Read()
	if errors.Is(err, formstore.ErrNotHydrated) {
		// Still loading after the grace period: judge the empty defaults.
		form, err = bookingform.Default(), nil
	}
	if err != nil {
		return flow.Result{}, false, fmt.Errorf("recall: guard: %w", err)
	}
	if !form.HasPlan() {
		return flow.RedirectTo(flow.RouteServices), false, nil
	}
	if !form.Has(bookingform.PatientID) {
		return flow.RedirectTo(flow.RouteUserDetails), false, nil
	}
	return flow.Result{}, true, nil
}

// Submitting reports whether a submit is waiting on the backend.
func (p *Page) Submitting() bool {
	return p.submitting.Busy()
}

// Entries returns the entry list, seeding one empty entry when it is empty.
func (p *Page) Entries(ctx context.Context) ([]bookingform.RecallEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	form, err := p.store.Read()
	if err != nil {
		return nil, fmt.Errorf("recall: entries: %w", err)
	}
	if len(form.RecallEntries) > 0 {
		return form.RecallEntries, nil
	}
	return p.saveEntries(ctx, []bookingform.RecallEntry{bookingform.NewRecallEntry()})
}

// AddEntry appends an empty entry.
func (p *Page) AddEntry(ctx context.Context) (bookingform.RecallEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	form, err := p.store.Read()
	if err != nil {
		return bookingform.RecallEntry{}, fmt.Errorf("recall: add entry: %w", err)
	}
	entry := bookingform.NewRecallEntry()
	if _, err := p.saveEntries(ctx, append(form.RecallEntries, entry)); err != nil {
		return bookingform.RecallEntry{}, err
	}
	return entry, nil
}

// UpdateEntry merges patch into one entry.
func (p *Page) UpdateEntry(ctx context.Context, id string, patch bookingform.RecallEntryPatch) (bookingform.RecallEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	form, err := p.store.Read()
	if err != nil {
		return bookingform.RecallEntry{}, fmt.Errorf("recall: update entry: %w", err)
	}
	entries := form.RecallEntries
	for i := range entries {
		if entries[i].ID == id {
			entries[i].Apply(patch)
			if _, err := p.saveEntries(ctx, entries); err != nil {
				return bookingform.RecallEntry{}, err
			}
			return entries[i], nil
		}
	}
	return bookingform.RecallEntry{}, ErrEntryNotFound
}

// RemoveEntry deletes one entry. Removing the last entry leaves a fresh empty
// one in its place, so the list is never empty.
func (p *Page) RemoveEntry(ctx context.Context, id string) ([]bookingform.RecallEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	form, err := p.store.Read()
	if err != nil {
		return nil, fmt.Errorf("recall: remove entry: %w", err)
	}
	kept := make([]bookingform.RecallEntry, 0, len(form.RecallEntries))
	found := false
	for _, e := range form.RecallEntries {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return nil, ErrEntryNotFound
	}
	if len(kept) == 0 {
		kept = append(kept, bookingform.NewRecallEntry())
	}
	return p.saveEntries(ctx, kept)
}

// SetNotes stores the overall recall notes.
func (p *Page) SetNotes(ctx context.Context, notes string) error {
	if _, err := p.store.Write(ctx, bookingform.Patch{RecallNotes: bookingform.String(notes)}); err != nil {
		return fmt.Errorf("recall: notes: %w", err)
	}
	return nil
}

func (p *Page) saveEntries(ctx context.Context, entries []bookingform.RecallEntry) ([]bookingform.RecallEntry, error) {
	form, err := p.store.Write(ctx, bookingform.Patch{RecallEntries: &entries})
	if err != nil {
		return nil, fmt.Errorf("recall: save entries: %w", err)
	}
	return form.RecallEntries, nil
}
