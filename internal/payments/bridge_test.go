package payments

import (
	"context"
	"encoding/json"
	"errors"
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
	"github.com/wolfman30/clinicbook/pkg/logging"
)

const testSecret = "rzp_test_secret"

type fakeGateway struct {
	orders    atomic.Int32
	verifies  atomic.Int32
	orderErr  error
	verifyErr error
}

func (f *fakeGateway) CreatePaymentOrder(_ context.Context, appointmentID string) (backend.PaymentOrder, error) {
	f.orders.Add(1)
	if f.orderErr != nil {
		return backend.PaymentOrder{}, f.orderErr
	}
	return backend.PaymentOrder{ID: "order_1", Amount: 150000, Currency: "INR"}, nil
}

func (f *fakeGateway) VerifyPayment(_ context.Context, v backend.PaymentVerification) (string, error) {
	f.verifies.Add(1)
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return "", nil
}

func loadedLoader() *Loader {
	l := &Loader{url: "https://checkout.example.com/v1/checkout.js", fetch: func(context.Context, string) error { return nil }}
	return l
}

func bookedForm() bookingform.Patch {
	return bookingform.Patch{
		FullName:        bookingform.String("Asha Rao"),
		Email:           bookingform.String("asha@example.com"),
		Mobile:          bookingform.String("9876543210"),
		PlanSlug:        bookingform.String("gut-reset"),
		PlanName:        bookingform.String("Gut Reset"),
		PlanPrice:       bookingform.String("₹1,500"),
		PlanRawPrice:    bookingform.Float(1500),
		PatientID:       bookingform.String("pat_1"),
		AppointmentID:   bookingform.String("apt_1"),
		AppointmentMode: bookingform.String("Online"),
		AppointmentDate: bookingform.String("2026-10-20"),
		AppointmentTime: bookingform.String("10:00 AM"),
		SlotID:          bookingform.String("slot_1"),
	}
}

func newStore(t *testing.T, backendStore formstore.Backend, patch bookingform.Patch) *formstore.Store {
	t.Helper()
	s := formstore.New(backendStore, "profile-1", formstore.WithLogger(logging.Discard()))
	s.Hydrate(context.Background())
	_, err := s.Write(context.Background(), patch)
	require.NoError(t, err)
	return s
}

func newBridge(store FormStore, api Backend, opts Options) *Bridge {
	return NewBridge(store, api, loadedLoader(), opts, logging.Discard(), nil)
}

func TestGuardRequiresAppointmentSelection(t *testing.T) {
	patch := bookedForm()
	patch.AppointmentTime = nil
	b := newBridge(newStore(t, formstore.NewMemoryBackend(), patch), &fakeGateway{}, Options{})
	res, ok, err := b.Guard()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, flow.RouteUserDetails, res.Redirect)

	b = newBridge(newStore(t, formstore.NewMemoryBackend(), bookedForm()), &fakeGateway{}, Options{})
	_, ok, err = b.Guard()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPayNowWithMissingSlotRedirectsWithoutOrder(t *testing.T) {
	patch := bookedForm()
	patch.SlotID = nil
	gw := &fakeGateway{}
	b := newBridge(newStore(t, formstore.NewMemoryBackend(), patch), gw, Options{})

	_, res, err := b.PayNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, flow.RouteServices, res.Redirect)
	assert.Equal(t, MissingDetailsMessage, res.Notice)
	assert.Zero(t, gw.orders.Load())
	assert.False(t, b.State().Processing)
}

func TestPayNowReturnsCheckoutOptions(t *testing.T) {
	gw := &fakeGateway{}
	b := newBridge(newStore(t, formstore.NewMemoryBackend(), bookedForm()), gw,
		Options{KeyID: "rzp_test_key", ClinicName: "Nourish Clinic", ThemeColor: "#0f766e"})

	opts, res, err := b.PayNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Notice)
	assert.Equal(t, "rzp_test_key", opts.Key)
	assert.Equal(t, "order_1", opts.OrderID)
	assert.EqualValues(t, 150000, opts.Amount)
	assert.Equal(t, "Nourish Clinic", opts.Name)
	assert.Equal(t, Prefill{Name: "Asha Rao", Email: "asha@example.com", Contact: "9876543210"}, opts.Prefill)
	assert.Equal(t, "#0f766e", opts.Theme.Color)
	assert.True(t, b.State().Processing)

	_, _, err = b.PayNow(context.Background())
	assert.ErrorIs(t, err, flow.ErrInFlight)
	assert.EqualValues(t, 1, gw.orders.Load())

	res = b.Dismiss()
	assert.Equal(t, CancelledMessage, res.Notice)
	assert.False(t, b.State().Processing)
}

func TestPayNowOrderFailureReleasesProcessing(t *testing.T) {
	gw := &fakeGateway{orderErr: &backend.APIError{StatusCode: 409, Message: "Appointment already paid"}}
	b := newBridge(newStore(t, formstore.NewMemoryBackend(), bookedForm()), gw, Options{})
	_, res, err := b.PayNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Appointment already paid", res.Notice)
	assert.False(t, b.State().Processing)
}

func TestCompleteWithoutPayNow(t *testing.T) {
	b := newBridge(newStore(t, formstore.NewMemoryBackend(), bookedForm()), &fakeGateway{}, Options{})
	_, err := b.Complete(context.Background(), GatewayResponse{OrderID: "order_1", PaymentID: "pay_1", Signature: "x"})
	assert.ErrorIs(t, err, ErrNotProcessing)
}

func TestCompleteRejectsBadSignatureLocally(t *testing.T) {
	gw := &fakeGateway{}
	b := newBridge(newStore(t, formstore.NewMemoryBackend(), bookedForm()), gw, Options{KeySecret: testSecret})
	_, _, err := b.PayNow(context.Background())
	require.NoError(t, err)

	res, err := b.Complete(context.Background(), GatewayResponse{OrderID: "order_1", PaymentID: "pay_1", Signature: "deadbeef"})
	require.NoError(t, err)
	assert.Equal(t, VerifyFailedMessage, res.Notice)
	assert.Zero(t, gw.verifies.Load())
	assert.False(t, b.State().Processing)
}

func TestVerificationFailureKeepsForm(t *testing.T) {
	gw := &fakeGateway{verifyErr: &backend.APIError{StatusCode: 400, Message: "Invalid payment signature"}}
	store := newStore(t, formstore.NewMemoryBackend(), bookedForm())
	b := newBridge(store, gw, Options{})
	_, _, err := b.PayNow(context.Background())
	require.NoError(t, err)

	res, err := b.Complete(context.Background(), GatewayResponse{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"})
	require.NoError(t, err)
	assert.Equal(t, "Invalid payment signature", res.Notice)
	assert.False(t, b.State().Processing)
	form, _ := store.Read()
	assert.Equal(t, "slot_1", form.SlotID)
}

func TestSuccessfulPaymentResetsStore(t *testing.T) {
	var verified backend.PaymentVerification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payments/order":
			_, _ = w.Write([]byte(`{"success":true,"order":{"id":"order_77","amount":150000,"currency":"INR"},"appointmentId":"apt_1"}`))
		case "/payments/verify":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&verified))
			_, _ = w.Write([]byte(`{"success":true,"message":"Payment verified successfully"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	mem := formstore.NewMemoryBackend()
	store := newStore(t, mem, bookedForm())
	chimed := false
	b := newBridge(store, backend.NewClient(srv.URL, 5*time.Second, logging.Discard()), Options{
		KeySecret:    testSecret,
		SuccessDelay: 3 * time.Second,
		Chime: func(context.Context) error {
			chimed = true
			return errors.New("audio device busy")
		},
	})

	opts, _, err := b.PayNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, "order_77", opts.OrderID)

	res, err := b.Complete(context.Background(), GatewayResponse{
		OrderID:   "order_77",
		PaymentID: "pay_1",
		Signature: Sign(testSecret, "order_77", "pay_1"),
	})
	require.NoError(t, err)
	assert.Equal(t, flow.RouteHome, res.Redirect)
	assert.Equal(t, 3*time.Second, res.RedirectAfter)
	assert.Equal(t, "Payment verified successfully", res.Notice)
	assert.True(t, chimed)
	require.Len(t, res.Effects, 1)
	assert.False(t, res.Effects[0].OK)
	assert.Equal(t, "pay_1", verified.PaymentID)

	form, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, bookingform.Default(), form)
	_, ok, err := mem.Load(context.Background(), formstore.Key("profile-1"))
	require.NoError(t, err)
	assert.False(t, ok)

	st := b.State()
	assert.True(t, st.Celebrate)
	assert.False(t, st.Processing)
}

func TestCompleteRejectsForeignOrder(t *testing.T) {
	gw := &fakeGateway{}
	b := newBridge(newStore(t, formstore.NewMemoryBackend(), bookedForm()), gw, Options{})
	_, _, err := b.PayNow(context.Background())
	require.NoError(t, err)
	res, err := b.Complete(context.Background(), GatewayResponse{OrderID: "order_other", PaymentID: "pay_1", Signature: "sig"})
	require.NoError(t, err)
	assert.Equal(t, VerifyFailedMessage, res.Notice)
	assert.Zero(t, gw.verifies.Load())
}

func TestSignature(t *testing.T) {
	sig := Sign(testSecret, "order_1", "pay_1")
	assert.True(t, VerifySignature(testSecret, "order_1", "pay_1", sig))
	assert.False(t, VerifySignature(testSecret, "order_1", "pay_2", sig))
	assert.False(t, VerifySignature("", "order_1", "pay_1", sig))
}
