// Package slots implements the slot page: a bounded booking calendar, the
// backend slot lookup for a date and mode, and the selection written into the
// form.
package slots

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/clinicbook/internal/backend"
	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/enums"
	"github.com/wolfman30/clinicbook/internal/flow"
	"github.com/wolfman30/clinicbook/internal/observability/metrics"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

var (
	// ErrDateNotSelectable is returned for past dates, Sundays and dates
	// beyond the booking window.
	ErrDateNotSelectable = errors.New("slots: date not selectable")
	// ErrUnknownSlot is returned when the slot id was not in the last fetch.
	ErrUnknownSlot = errors.New("slots: unknown slot")
)

// SelectionMissingMessage blocks Continue without a date and time.
const SelectionMissingMessage = "please select a date and time"

// FormStore is the slice of the form store the page needs.
type FormStore interface {
	Read() (bookingform.Form, error)
	Write(ctx context.Context, patch bookingform.Patch) (bookingform.Form, error)
}

// Backend lists open slots.
type Backend interface {
	AvailableSlots(ctx context.Context, date, mode string) ([]backend.Slot, error)
}

// State is what the slot page renders.
type State struct {
	Date     string         `json:"date,omitempty"`
	Mode     string         `json:"mode,omitempty"`
	Slots    []backend.Slot `json:"slots"`
	Selected string         `json:"selectedSlotId,omitempty"`
	Loading  bool           `json:"loading"`
}

// Page is one session's slot page.
type Page struct {
	store    FormStore
	api      Backend
	calendar *Calendar
	logger   *logging.Logger
	metrics  *metrics.BookingMetrics

	mu       sync.Mutex
	date     string
	mode     string
	slots    []backend.Slot
	selected *backend.Slot
	fetching flow.InFlight
}

// NewPage creates a slot page.
func NewPage(store FormStore, api Backend, calendar *Calendar, logger *logging.Logger, m *metrics.BookingMetrics) *Page {
	if store == nil || api == nil {
		panic("slots: store and backend required")
	}
	if calendar == nil {
		calendar = NewCalendar(nil, nil)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Page{store: store, api: api, calendar: calendar, logger: logger, metrics: m}
}

// Calendar exposes the page's calendar.
func (p *Page) Calendar() *Calendar {
	return p.calendar
}

// Guard requires a selected plan.
func (p *Page) Guard() (flow.Result, bool, error) {
	form, err := p.store.Read()
	if err != nil {
		return flow.Result{}, false, fmt.Errorf("slots: guard: %w", err)
	}
	if !form.Has(bookingform.PlanSlug) {
		return flow.RedirectTo(flow.RouteServices), false, nil
	}
	return flow.Result{}, true, nil
}

// State returns the page state.
func (p *Page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := State{Date: p.date, Mode: p.mode, Slots: append([]backend.Slot{}, p.slots...), Loading: p.fetching.Busy()}
	if p.selected != nil {
		st.Selected = p.selected.ID
	}
	return st
}

// Fetch loads the open slots for a date and mode, replacing any earlier list
// and selection. Backend failures come back as a notice.
func (p *Page) Fetch(ctx context.Context, date, mode string) ([]backend.Slot, flow.Result, error) {
	date = strings.TrimSpace(date)
	if !p.calendar.SelectableDate(date) {
		return nil, flow.Result{}, fmt.Errorf("%w: %s", ErrDateNotSelectable, date)
	}
	token := enums.NormalizeMode(mode)
	label, _ := enums.AppointmentMode.Label(token)

	if !p.fetching.Acquire() {
		return nil, flow.Result{}, flow.ErrInFlight
	}
	defer p.fetching.Release()

	slots, err := p.api.AvailableSlots(ctx, date, token)
	if err != nil {
		p.logger.Warn("slot lookup failed", "date", date, "mode", token, "error", err)
		p.metrics.ObservePageAction("slots", "fetch", "failed")
		return nil, flow.Result{Notice: backend.Message(err, "Failed to load available slots")}, nil
	}

	p.mu.Lock()
	p.date, p.mode = date, label
	p.slots = slots
	p.selected = nil
	p.mu.Unlock()
	p.metrics.ObservePageAction("slots", "fetch", "ok")
	return slots, flow.Result{}, nil
}

// Select picks a slot from the last fetch and writes the selection into the
// form right away.
func (p *Page) Select(ctx context.Context, slotID string) (bookingform.Form, error) {
	p.mu.Lock()
	var chosen *backend.Slot
	for i := range p.slots {
		if p.slots[i].ID == slotID {
			chosen = &p.slots[i]
			break
		}
	}
	if chosen == nil {
		p.mu.Unlock()
		return bookingform.Form{}, fmt.Errorf("%w: %s", ErrUnknownSlot, slotID)
	}
	slot := *chosen
	p.selected = &slot
	date, mode := p.date, p.mode
	p.mu.Unlock()

	form, err := p.store.Write(ctx, selectionPatch(date, mode, slot))
	if err != nil {
		return bookingform.Form{}, fmt.Errorf("slots: select: %w", err)
	}
	return form, nil
}

// Continue requires a date and time, writes the selection again and moves on
// to payment.
func (p *Page) Continue(ctx context.Context) (flow.Result, error) {
	if res, ok, err := p.Guard(); err != nil || !ok {
		return res, err
	}
	p.mu.Lock()
	date, mode, selected := p.date, p.mode, p.selected
	p.mu.Unlock()

	if date == "" || selected == nil || slotTime(*selected) == "" {
		p.metrics.ObservePageAction("slots", "continue", "blocked")
		return flow.Result{Error: SelectionMissingMessage}, nil
	}
	if _, err := p.store.Write(ctx, selectionPatch(date, mode, *selected)); err != nil {
		return flow.Result{}, fmt.Errorf("slots: continue: %w", err)
	}
	p.metrics.ObservePageAction("slots", "continue", "ok")
	return flow.Result{Navigate: flow.RoutePayment}, nil
}

func selectionPatch(date, mode string, slot backend.Slot) bookingform.Patch {
	return bookingform.Patch{
		AppointmentMode: bookingform.String(mode),
		AppointmentDate: bookingform.String(date),
		AppointmentTime: bookingform.String(slotTime(slot)),
		SlotID:          bookingform.String(slot.ID),
	}
}

func slotTime(slot backend.Slot) string {
	if strings.TrimSpace(slot.Label) != "" {
		return slot.Label
	}
	return slot.StartTime
}
