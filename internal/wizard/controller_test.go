package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinicbook/internal/backend"
	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/flow"
	"github.com/wolfman30/clinicbook/internal/formstore"
	"github.com/wolfman30/clinicbook/internal/steps"
	"github.com/wolfman30/clinicbook/internal/validation"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

type fakePatients struct {
	calls   atomic.Int32
	err     error
	block   chan struct{}
	lastReq backend.PatientRequest
}

func (f *fakePatients) CreatePatient(ctx context.Context, req backend.PatientRequest) (backend.Patient, error) {
	n := f.calls.Add(1)
	f.lastReq = req
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return backend.Patient{}, f.err
	}
	return backend.Patient{ID: fmt.Sprintf("pat_%d", n)}, nil
}

func newStore(t *testing.T) *formstore.Store {
	t.Helper()
	s := formstore.New(formstore.NewMemoryBackend(), "profile-1", formstore.WithLogger(logging.Discard()))
	s.Hydrate(context.Background())
	return s
}

func withPlan(t *testing.T, s *formstore.Store) {
	t.Helper()
	_, err := s.Write(context.Background(), bookingform.Patch{
		PlanSlug:        bookingform.String("gut-reset"),
		PlanName:        bookingform.String("Gut Reset"),
		PlanPrice:       bookingform.String("₹1,500"),
		PlanRawPrice:    bookingform.Float(1500),
		PackageDuration: bookingform.String("1 Month"),
	})
	require.NoError(t, err)
}

func fillAllSteps(t *testing.T, c *Controller) {
	t.Helper()
	ctx := context.Background()
	inputs := map[validation.Step]steps.Input{
		validation.StepPersonal: {
			"fullName": "Asha Rao", "mobile": "98765 43210", "email": "asha@example.com",
			"dateOfBirth": "1990-04-12", "gender": "Male", "address": "12 MG Road, Pune",
		},
		validation.StepMeasurements: {"weight": "72", "height": "170", "neck": "36", "waist": "84", "hip": "98"},
		validation.StepMedical:      {"medicalHistory": "Hypothyroid", "concerns": "bloating"},
		validation.StepLifestyle: {
			"bowelMovement": "Constipation", "waterIntake": "2.5", "wakeUpTime": "06:30",
			"sleepTime": "22:30", "sleepQuality": "Good", "foodPreference": "Vegetarian",
		},
	}
	for step := validation.StepPersonal; step <= validation.StepLifestyle; step++ {
		_, _, err := c.Edit(ctx, step, inputs[step])
		require.NoError(t, err)
		res, err := c.Next(ctx)
		require.NoError(t, err)
		require.Empty(t, res.Error, "step %s", step)
	}
	require.Equal(t, validation.StepReview, c.Step())
}

func TestGuardRedirectsWithoutPlan(t *testing.T) {
	s := newStore(t)
	c := NewController(s, &fakePatients{}, logging.Discard(), nil)

	_, res, err := c.View()
	require.NoError(t, err)
	assert.Equal(t, flow.RouteServices, res.Redirect)

	res, err = c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, flow.RouteServices, res.Redirect)
	assert.Equal(t, validation.StepPersonal, c.Step())
}

func TestNextBlocksOnFirstMissingField(t *testing.T) {
	s := newStore(t)
	withPlan(t, s)
	c := NewController(s, &fakePatients{}, logging.Discard(), nil)

	_, _, err := c.Edit(context.Background(), validation.StepPersonal, steps.Input{"fullName": "Asha"})
	require.NoError(t, err)
	res, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "please fill required field: Mobile Number", res.Error)
	assert.Equal(t, validation.StepPersonal, c.Step())

	state, _, err := c.View()
	require.NoError(t, err)
	assert.Equal(t, res.Error, state.Error)

	_, err = c.Prev()
	require.NoError(t, err)
	state, _, _ = c.View()
	assert.Empty(t, state.Error)
	assert.Equal(t, 1, state.Step)
}

func TestPrevStopsAtFirstStep(t *testing.T) {
	s := newStore(t)
	withPlan(t, s)
	c := NewController(s, &fakePatients{}, logging.Discard(), nil)
	fillAllSteps(t, c)

	for i := 0; i < 6; i++ {
		_, err := c.Prev()
		require.NoError(t, err)
	}
	assert.Equal(t, validation.StepPersonal, c.Step())
}

func TestDateOfBirthDerivesAge(t *testing.T) {
	s := newStore(t)
	withPlan(t, s)
	c := NewController(s, &fakePatients{}, logging.Discard(), nil)

	form, _, err := c.Edit(context.Background(), validation.StepPersonal, steps.Input{"dateOfBirth": "1990-04-12"})
	require.NoError(t, err)
	assert.NotEmpty(t, form.Age)

	form, _, err = c.Edit(context.Background(), validation.StepPersonal, steps.Input{"age": "41"})
	require.NoError(t, err)
	assert.Equal(t, "41", form.Age)
	assert.Equal(t, "1990-04-12", form.DateOfBirth)
}

func TestSubmitCreatesPatientOnceAndNavigates(t *testing.T) {
	var received []backend.PatientRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/patients", r.URL.Path)
		var req backend.PatientRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received = append(received, req)
		_, _ = w.Write([]byte(`{"success":true,"patient":{"id":"pat_42"}}`))
	}))
	defer srv.Close()

	s := newStore(t)
	withPlan(t, s)
	client := backend.NewClient(srv.URL, 5*time.Second, logging.Discard())
	c := NewController(s, client, logging.Discard(), nil)
	fillAllSteps(t, c)

	state, _, err := c.View()
	require.NoError(t, err)
	assert.Len(t, state.Summary, 4)

	res, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, flow.RouteRecall, res.Navigate)

	require.Len(t, received, 1)
	req := received[0]
	assert.Equal(t, "MALE", req.Gender)
	assert.Equal(t, "CONSTIPATION", req.BowelMovement)
	assert.Equal(t, "VEG", req.FoodPreference)
	assert.Equal(t, "GOOD", req.SleepQuality)
	assert.Equal(t, "9876543210", req.Phone)
	assert.Equal(t, 72.0, req.Weight)
	assert.Equal(t, 2.5, req.WaterIntake)
	assert.Equal(t, []string{}, req.FileIDs)

	form, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "pat_42", form.PatientID)
	assert.Equal(t, "gut-reset", form.PlanSlug)
	require.NotNil(t, form.PlanRawPrice)
	assert.Equal(t, 1500.0, *form.PlanRawPrice)
}

func TestSubmitListsEveryMissingField(t *testing.T) {
	s := newStore(t)
	withPlan(t, s)
	patients := &fakePatients{}
	c := NewController(s, patients, logging.Discard(), nil)
	fillAllSteps(t, c)

	// Fields only checked at submission, cleared after the step gates passed.
	_, err := s.Write(context.Background(), bookingform.Patch{Neck: bookingform.String(""), Hip: bookingform.String("")})
	require.NoError(t, err)

	res, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "please fill the following required fields: Neck, Hip", res.Error)
	assert.Zero(t, patients.calls.Load())
}

func TestSubmitFailureKeepsUserOnReview(t *testing.T) {
	s := newStore(t)
	withPlan(t, s)
	patients := &fakePatients{err: &backend.APIError{Operation: "create_patient", StatusCode: 400, Errors: []string{"email already registered"}}}
	c := NewController(s, patients, logging.Discard(), nil)
	fillAllSteps(t, c)

	res, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "email already registered", res.Notice)
	assert.Empty(t, res.Navigate)
	assert.Equal(t, validation.StepReview, c.Step())

	state, _, _ := c.View()
	assert.False(t, state.Submitting)
	form, _ := s.Read()
	assert.Empty(t, form.PatientID)
}

func TestSecondSubmitWhileInFlight(t *testing.T) {
	s := newStore(t)
	withPlan(t, s)
	patients := &fakePatients{block: make(chan struct{})}
	c := NewController(s, patients, logging.Discard(), nil)
	fillAllSteps(t, c)

	done := make(chan flow.Result)
	go func() {
		res, _ := c.Next(context.Background())
		done <- res
	}()
	require.Eventually(t, func() bool { return patients.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := c.Next(context.Background())
	assert.ErrorIs(t, err, flow.ErrInFlight)

	close(patients.block)
	res := <-done
	assert.Equal(t, flow.RouteRecall, res.Navigate)
	assert.EqualValues(t, 1, patients.calls.Load())
}

// Known deviation: proceeding twice from review creates two patients and the
// second id replaces the first.
func TestRepeatedSubmitCreatesNewPatientEachTime(t *testing.T) {
	s := newStore(t)
	withPlan(t, s)
	patients := &fakePatients{}
	c := NewController(s, patients, logging.Discard(), nil)
	fillAllSteps(t, c)

	_, err := c.Next(context.Background())
	require.NoError(t, err)
	first, _ := s.Read()

	_, err = c.Next(context.Background())
	require.NoError(t, err)
	second, _ := s.Read()

	assert.EqualValues(t, 2, patients.calls.Load())
	assert.Equal(t, "pat_1", first.PatientID)
	assert.Equal(t, "pat_2", second.PatientID)
	assert.NotEqual(t, first.PatientID, second.PatientID)
}

func TestTransportErrorMessage(t *testing.T) {
	s := newStore(t)
	withPlan(t, s)
	c := NewController(s, &fakePatients{err: errors.New("connection refused")}, logging.Discard(), nil)
	fillAllSteps(t, c)

	res, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "connection refused", res.Notice)
}
