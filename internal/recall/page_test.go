package recall

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinicbook/internal/backend"
	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/flow"
	"github.com/wolfman30/clinicbook/internal/formstore"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

type fakeBackend struct {
	mu           sync.Mutex
	linkErr      error
	apptErr      error
	recallErr    error
	linked       [][]string
	appointments []backend.AppointmentRequest
	recalls      []backend.RecallRequest
}

func (f *fakeBackend) LinkFiles(_ context.Context, patientID string, fileIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linked = append(f.linked, fileIDs)
	return f.linkErr
}

func (f *fakeBackend) CreateAppointment(_ context.Context, req backend.AppointmentRequest) (backend.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appointments = append(f.appointments, req)
	if f.apptErr != nil {
		return backend.Appointment{}, f.apptErr
	}
	return backend.Appointment{ID: "apt_1", Status: "PENDING"}, nil
}

func (f *fakeBackend) CreateRecall(_ context.Context, req backend.RecallRequest) (backend.Recall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recalls = append(f.recalls, req)
	if f.recallErr != nil {
		return backend.Recall{}, f.recallErr
	}
	return backend.Recall{ID: "rec_1"}, nil
}

func newStore(t *testing.T, patch bookingform.Patch) *formstore.Store {
	t.Helper()
	s := formstore.New(formstore.NewMemoryBackend(), "profile-1", formstore.WithLogger(logging.Discard()))
	s.Hydrate(context.Background())
	_, err := s.Write(context.Background(), patch)
	require.NoError(t, err)
	return s
}

func bookedPatch() bookingform.Patch {
	return bookingform.Patch{
		PlanSlug:        bookingform.String("gut-reset"),
		PlanName:        bookingform.String("Gut Reset"),
		PlanPrice:       bookingform.String("₹1,500"),
		PlanRawPrice:    bookingform.Float(1500),
		PatientID:       bookingform.String("pat_1"),
		AppointmentMode: bookingform.String("Offline"),
	}
}

func newPage(store FormStore, api Backend) *Page {
	return NewPage(store, api, Options{GraceDelay: 10 * time.Millisecond, DefaultDuration: "1 Month"}, logging.Discard(), nil)
}

func fillEntry(t *testing.T, p *Page, id string) {
	t.Helper()
	_, err := p.UpdateEntry(context.Background(), id, bookingform.RecallEntryPatch{
		MealType: bookingform.String("Breakfast"),
		Time:     bookingform.String("08:00"),
		FoodItem: bookingform.String("Poha"),
		Quantity: bookingform.String("1 bowl"),
	})
	require.NoError(t, err)
}

func TestGuard(t *testing.T) {
	tests := []struct {
		name     string
		patch    bookingform.Patch
		redirect string
	}{
		{name: "no plan", patch: bookingform.Patch{PatientID: bookingform.String("pat_1")}, redirect: flow.RouteServices},
		{name: "no patient", patch: bookingform.Patch{PlanSlug: bookingform.String("a"), PlanName: bookingform.String("A"), PlanPrice: bookingform.String("1")}, redirect: flow.RouteUserDetails},
		{name: "ready", patch: bookedPatch()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPage(newStore(t, tt.patch), &fakeBackend{})
			res, ok, err := p.Guard(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.redirect == "", ok)
			assert.Equal(t, tt.redirect, res.Redirect)
		})
	}
}

func TestGuardWaitsForHydration(t *testing.T) {
	s := formstore.New(formstore.NewMemoryBackend(), "profile-1", formstore.WithLogger(logging.Discard()))
	p := NewPage(s, &fakeBackend{}, Options{GraceDelay: 200 * time.Millisecond}, logging.Discard(), nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.Hydrate(context.Background())
	}()
	res, ok, err := p.Guard(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, flow.RouteServices, res.Redirect)

	unhydrated := formstore.New(formstore.NewMemoryBackend(), "profile-2", formstore.WithLogger(logging.Discard()))
	res, ok, err = NewPage(unhydrated, &fakeBackend{}, Options{GraceDelay: time.Millisecond}, logging.Discard(), nil).Guard(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, flow.RouteServices, res.Redirect)
}

func TestEntriesNeverEmpty(t *testing.T) {
	ctx := context.Background()
	p := newPage(newStore(t, bookedPatch()), &fakeBackend{})

	entries, err := p.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	only := entries[0].ID

	entries, err = p.RemoveEntry(ctx, only)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEqual(t, only, entries[0].ID)
	assert.False(t, entries[0].Complete())

	added, err := p.AddEntry(ctx)
	require.NoError(t, err)
	entries, _ = p.Entries(ctx)
	require.Len(t, entries, 2)

	entries, err = p.RemoveEntry(ctx, added.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = p.RemoveEntry(ctx, "missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
	_, err = p.UpdateEntry(ctx, "missing", bookingform.RecallEntryPatch{})
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestSubmitWithoutCompleteEntriesMakesNoCalls(t *testing.T) {
	ctx := context.Background()
	api := &fakeBackend{}
	p := newPage(newStore(t, bookedPatch()), api)
	_, err := p.Entries(ctx)
	require.NoError(t, err)

	res, err := p.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, NoCompleteEntriesMessage, res.Error)
	assert.Empty(t, api.appointments)
	assert.Empty(t, api.recalls)
	assert.Empty(t, api.linked)
}

func TestSubmitCreatesAppointmentThenRecall(t *testing.T) {
	ctx := context.Background()
	api := &fakeBackend{}
	store := newStore(t, bookedPatch())
	require.NoError(t, store.AddReport(bookingform.Report{ID: "file_1", Name: "lipid.pdf"}))
	p := newPage(store, api)

	entries, err := p.Entries(ctx)
	require.NoError(t, err)
	fillEntry(t, p, entries[0].ID)
	_, err = p.AddEntry(ctx)
	require.NoError(t, err)
	require.NoError(t, p.SetNotes(ctx, "  skipped dinner on Sunday "))

	res, err := p.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, flow.RouteSlot, res.Navigate)
	assert.Equal(t, []flow.EffectReport{{Name: "link_files", OK: true}}, res.Effects)

	require.Len(t, api.appointments, 1)
	appt := api.appointments[0]
	assert.Equal(t, "IN_PERSON", appt.AppointmentMode)
	assert.Equal(t, "PENDING", appt.Status)
	assert.Equal(t, "RECALL", appt.BookingProgress)
	assert.Equal(t, "1 Month", appt.PlanDuration)
	assert.Equal(t, 1500.0, appt.PlanPrice)

	require.Len(t, api.recalls, 1)
	rec := api.recalls[0]
	assert.Equal(t, "apt_1", rec.AppointmentID)
	assert.Equal(t, "skipped dinner on Sunday", rec.Notes)
	require.Len(t, rec.Entries, 1)
	assert.Equal(t, "BREAKFAST", rec.Entries[0].MealType)
	assert.Equal(t, [][]string{{"file_1"}}, api.linked)

	form, _ := store.Read()
	assert.Equal(t, "apt_1", form.AppointmentID)
}

func TestSubmitSkipsLinkingForS3Reports(t *testing.T) {
	ctx := context.Background()
	api := &fakeBackend{}
	store := newStore(t, bookedPatch())
	require.NoError(t, store.AddReport(bookingform.Report{ID: "reports/2026/10/p/a.pdf", Source: bookingform.ReportSourceS3}))
	p := newPage(store, api)
	entries, _ := p.Entries(ctx)
	fillEntry(t, p, entries[0].ID)

	res, err := p.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, flow.RouteSlot, res.Navigate)
	assert.Empty(t, res.Effects)
	assert.Empty(t, api.linked)
}

func TestLinkFailureDoesNotChangeOutcome(t *testing.T) {
	ctx := context.Background()
	api := &fakeBackend{linkErr: errors.New("files service down")}
	store := newStore(t, bookedPatch())
	require.NoError(t, store.AddReport(bookingform.Report{ID: "file_1"}))
	p := newPage(store, api)
	entries, _ := p.Entries(ctx)
	fillEntry(t, p, entries[0].ID)

	res, err := p.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, flow.RouteSlot, res.Navigate)
	require.Len(t, res.Effects, 1)
	assert.False(t, res.Effects[0].OK)
}

func TestRecallFailureLeavesAppointmentUnlinked(t *testing.T) {
	ctx := context.Background()
	api := &fakeBackend{recallErr: &backend.APIError{StatusCode: 400, Message: "entries[0].time is invalid"}}
	store := newStore(t, bookedPatch())
	p := newPage(store, api)
	entries, _ := p.Entries(ctx)
	fillEntry(t, p, entries[0].ID)

	res, err := p.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "entries[0].time is invalid", res.Notice)
	assert.Empty(t, res.Navigate)
	assert.Len(t, api.appointments, 1)
	assert.False(t, p.Submitting())

	form, _ := store.Read()
	assert.Empty(t, form.AppointmentID)
}

func TestAppointmentFailureSkipsRecall(t *testing.T) {
	ctx := context.Background()
	api := &fakeBackend{apptErr: errors.New("timeout")}
	p := newPage(newStore(t, bookedPatch()), api)
	entries, _ := p.Entries(ctx)
	fillEntry(t, p, entries[0].ID)

	res, err := p.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "timeout", res.Notice)
	assert.Empty(t, api.recalls)
}

func TestAppointmentRequestDefaultsAndOverride(t *testing.T) {
	p := NewPage(newStore(t, bookingform.Patch{}), &fakeBackend{}, Options{PriceOverrideSlug: "trial", PriceOverrideAmount: 1}, logging.Discard(), nil)

	form := bookingform.Default()
	form.PlanSlug = "trial"
	form.PlanPrice = "₹2,999"
	req := p.appointmentRequest(form)
	assert.Equal(t, 1.0, req.PlanPrice)
	assert.Equal(t, "ONLINE", req.AppointmentMode)
	assert.Equal(t, "1 Month", req.PlanDuration)

	form.PlanSlug = "gut-reset"
	form.PackageDuration = "3 Months"
	form.AppointmentMode = "In-person"
	req = p.appointmentRequest(form)
	assert.Equal(t, 2999.0, req.PlanPrice)
	assert.Equal(t, "IN_PERSON", req.AppointmentMode)
	assert.Equal(t, "3 Months", req.PlanDuration)
}
