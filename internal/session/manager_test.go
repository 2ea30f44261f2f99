package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinicbook/internal/backend"
	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/formstore"
	"github.com/wolfman30/clinicbook/internal/observability/metrics"
	"github.com/wolfman30/clinicbook/internal/payments"
	"github.com/wolfman30/clinicbook/internal/steps"
	"github.com/wolfman30/clinicbook/internal/validation"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

type nopAPI struct{}

type blockingPatients struct {
	nopAPI
	started chan struct{}
	release chan struct{}
}

func (b blockingPatients) CreatePatient(context.Context, backend.PatientRequest) (backend.Patient, error) {
	close(b.started)
	<-b.release
	return backend.Patient{ID: "pat_late"}, nil
}

func (nopAPI) CreatePatient(context.Context, backend.PatientRequest) (backend.Patient, error) {
	return backend.Patient{ID: "pat_1"}, nil
}
func (nopAPI) LinkFiles(context.Context, string, []string) error { return nil }
func (nopAPI) CreateAppointment(context.Context, backend.AppointmentRequest) (backend.Appointment, error) {
	return backend.Appointment{ID: "apt_1"}, nil
}
func (nopAPI) CreateRecall(context.Context, backend.RecallRequest) (backend.Recall, error) {
	return backend.Recall{ID: "rec_1"}, nil
}
func (nopAPI) AvailableSlots(context.Context, string, string) ([]backend.Slot, error) {
	return nil, nil
}
func (nopAPI) CreatePaymentOrder(context.Context, string) (backend.PaymentOrder, error) {
	return backend.PaymentOrder{ID: "order_1"}, nil
}
func (nopAPI) VerifyPayment(context.Context, backend.PaymentVerification) (string, error) {
	return "", nil
}

func activeGauge(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var fam *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "clinicbook_session_active" {
			fam = f
		}
	}
	require.NotNil(t, fam)
	return fam.GetMetric()[0].GetGauge().GetValue()
}

func newManager(t *testing.T, storage formstore.Backend, m *metrics.BookingMetrics) *Manager {
	t.Helper()
	return newManagerWithAPI(t, storage, nopAPI{}, m)
}

func newManagerWithAPI(t *testing.T, storage formstore.Backend, api API, m *metrics.BookingMetrics) *Manager {
	t.Helper()
	return NewManager(Config{
		Storage: storage,
		API:     api,
		Loader:  payments.NewLoader("", nil),
		IdleTTL: time.Hour,
		Logger:  logging.Discard(),
		Metrics: m,
	})
}

func TestOpenReturnsSameSession(t *testing.T) {
	mgr := newManager(t, formstore.NewMemoryBackend(), nil)
	a := mgr.Open(context.Background(), "profile-1")
	b := mgr.Open(context.Background(), "profile-1")
	c := mgr.Open(context.Background(), "profile-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, mgr.Len())
	assert.EqualValues(t, 1, a.Wizard.Step())

	_, err := a.Store.Read()
	require.NoError(t, err)
}

func TestOpenConcurrently(t *testing.T) {
	mgr := newManager(t, formstore.NewMemoryBackend(), nil)
	var wg sync.WaitGroup
	got := make([]*Session, 20)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = mgr.Open(context.Background(), "profile-1")
		}(i)
	}
	wg.Wait()
	for _, s := range got {
		assert.Same(t, got[0], s)
	}
}

func TestEvictedSessionRehydratesFromStorage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.NewBookingMetrics(reg)
	mgr := newManager(t, formstore.NewRedisBackend(client), m)
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return now }

	s := mgr.Open(context.Background(), "profile-1")
	_, err := s.Store.Write(context.Background(), bookingform.Patch{FullName: bookingform.String("Asha Rao")})
	require.NoError(t, err)
	require.NoError(t, s.Store.AddReport(bookingform.Report{ID: "file_1"}))
	assert.Equal(t, 1.0, activeGauge(t, reg))

	now = now.Add(30 * time.Minute)
	assert.Zero(t, mgr.Sweep())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, mgr.Sweep())
	assert.Zero(t, mgr.Len())
	assert.Equal(t, 0.0, activeGauge(t, reg))

	again := mgr.Open(context.Background(), "profile-1")
	assert.NotSame(t, s, again)
	form, err := again.Store.Read()
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", form.FullName)
	assert.Empty(t, form.Reports)
}

func TestEndRemovesStoredForm(t *testing.T) {
	storage := formstore.NewMemoryBackend()
	mgr := newManager(t, storage, nil)
	s := mgr.Open(context.Background(), "profile-1")
	_, err := s.Store.Write(context.Background(), bookingform.Patch{PlanSlug: bookingform.String("gut-reset")})
	require.NoError(t, err)

	mgr.End(context.Background(), "profile-1")
	assert.Zero(t, mgr.Len())
	_, ok, err := storage.Load(context.Background(), formstore.Key("profile-1"))
	require.NoError(t, err)
	assert.False(t, ok)

	form, err := mgr.Open(context.Background(), "profile-1").Store.Read()
	require.NoError(t, err)
	assert.Equal(t, bookingform.Default(), form)
}

func TestEndWithoutLiveSessionStillClearsStorage(t *testing.T) {
	storage := formstore.NewMemoryBackend()
	require.NoError(t, storage.Save(context.Background(), formstore.Key("profile-9"), []byte(`{"fullName":"x"}`)))

	mgr := newManager(t, storage, nil)
	mgr.End(context.Background(), "profile-9")

	_, ok, err := storage.Load(context.Background(), formstore.Key("profile-9"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func fillForSubmit(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()
	inputs := map[validation.Step]steps.Input{
		validation.StepPersonal: {
			"fullName": "Asha Rao", "mobile": "9876543210", "email": "asha@example.com",
			"dateOfBirth": "1990-04-12", "gender": "Female", "address": "12 MG Road, Pune",
		},
		validation.StepMeasurements: {"weight": "60", "height": "160", "neck": "32", "waist": "76", "hip": "94"},
		validation.StepMedical:      {"medicalHistory": "none"},
		validation.StepLifestyle: {
			"bowelMovement": "Regular", "waterIntake": "2", "wakeUpTime": "06:30",
			"sleepTime": "22:30", "sleepQuality": "Good", "foodPreference": "Vegan",
		},
	}
	for step := validation.StepPersonal; step <= validation.StepLifestyle; step++ {
		_, _, err := s.Wizard.Edit(ctx, step, inputs[step])
		require.NoError(t, err)
		res, err := s.Wizard.Next(ctx)
		require.NoError(t, err)
		require.Empty(t, res.Error, "step %s", step)
	}
}

func TestLogoutDuringPatientCreationDiscardsForm(t *testing.T) {
	ctx := context.Background()
	storage := formstore.NewMemoryBackend()
	api := blockingPatients{started: make(chan struct{}), release: make(chan struct{})}
	mgr := newManagerWithAPI(t, storage, api, nil)

	s := mgr.Open(ctx, "p1")
	_, err := s.Store.Write(ctx, bookingform.Patch{
		PlanSlug:  bookingform.String("gut-reset"),
		PlanName:  bookingform.String("Gut Reset"),
		PlanPrice: bookingform.String("1500"),
	})
	require.NoError(t, err)
	fillForSubmit(t, s)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Wizard.Next(ctx)
	}()
	<-api.started

	mgr.End(ctx, "p1")
	close(api.release)
	<-done

	_, ok, err := storage.Load(ctx, formstore.Key("p1"))
	require.NoError(t, err)
	assert.False(t, ok)

	form, err := mgr.Open(ctx, "p1").Store.Read()
	require.NoError(t, err)
	assert.Empty(t, form.PatientID)
	assert.Empty(t, form.PlanSlug)
}

func TestSweepClosesEvictedStore(t *testing.T) {
	mgr := newManager(t, formstore.NewMemoryBackend(), nil)
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return now }

	s := mgr.Open(context.Background(), "p1")
	now = now.Add(3 * time.Hour)
	require.Equal(t, 1, mgr.Sweep())
	assert.True(t, s.Store.Closed())
}
