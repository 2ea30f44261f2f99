// Package payments bridges the booking to the hosted payment gateway: it
// loads the checkout integration, creates the gateway order, hands the browser
// its checkout options and verifies the result before clearing the form.
package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinicbook/internal/backend"
	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/flow"
	"github.com/wolfman30/clinicbook/internal/observability/metrics"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

var paymentsTracer = otel.Tracer("clinicbook.internal.payments")

// ErrNotProcessing is returned when a checkout result arrives with no payment
// in progress.
var ErrNotProcessing = errors.New("payments: no payment in progress")

// Notices shown on the payment page.
const (
	MissingDetailsMessage = "Booking details are incomplete. Please select your plan again."
	CancelledMessage      = "Payment cancelled"
	SuccessMessage        = "Payment successful! Your appointment is booked."
	VerifyFailedMessage   = "Payment verification failed"
)

// FormStore is the slice of the form store the bridge needs.
type FormStore interface {
	Read() (bookingform.Form, error)
	Reset(ctx context.Context)
}

// Backend creates and verifies gateway orders.
type Backend interface {
	CreatePaymentOrder(ctx context.Context, appointmentID string) (backend.PaymentOrder, error)
	VerifyPayment(ctx context.Context, v backend.PaymentVerification) (string, error)
}

// Options configures the checkout.
type Options struct {
	KeyID      string
	KeySecret  string
	ClinicName string
	ThemeColor string
	// SuccessDelay is how long the success screen shows before going home.
	SuccessDelay time.Duration
	// Chime plays the success sound. Its failure is ignored.
	Chime func(ctx context.Context) error
}

// Prefill seeds the hosted checkout's contact fields.
type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Theme styles the hosted checkout.
type Theme struct {
	Color string `json:"color,omitempty"`
}

// CheckoutOptions is everything the browser needs to open the hosted checkout.
type CheckoutOptions struct {
	Key         string            `json:"key"`
	OrderID     string            `json:"order_id"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ScriptURL   string            `json:"scriptUrl"`
	Prefill     Prefill           `json:"prefill"`
	Theme       Theme             `json:"theme"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// GatewayResponse is what the checkout's success handler receives.
type GatewayResponse struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// State is what the payment page renders.
type State struct {
	Processing bool   `json:"processing"`
	Loaded     bool   `json:"scriptLoaded"`
	Celebrate  bool   `json:"celebrate"`
	OrderID    string `json:"orderId,omitempty"`
}

// Bridge is one session's payment page.
type Bridge struct {
	store   FormStore
	api     Backend
	loader  *Loader
	opts    Options
	logger  *logging.Logger
	metrics *metrics.BookingMetrics

	processing flow.InFlight

	mu        sync.Mutex
	order     *backend.PaymentOrder
	celebrate bool
}

// NewBridge creates a payment bridge sharing the process-wide loader.
func NewBridge(store FormStore, api Backend, loader *Loader, opts Options, logger *logging.Logger, m *metrics.BookingMetrics) *Bridge {
	if store == nil || api == nil || loader == nil {
		panic("payments: store, backend and loader required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Bridge{store: store, api: api, loader: loader, opts: opts, logger: logger, metrics: m}
}

// Guard requires the plan and the appointment date, time and mode.
func (b *Bridge) Guard() (flow.Result, bool, error) {
	form, err := b.store.Read()
	if err != nil {
		return flow.Result{}, false, fmt.Errorf("payments: guard: %w", err)
	}
	if !form.HasPlan() ||
		!form.Has(bookingform.AppointmentDate) ||
		!form.Has(bookingform.AppointmentTime) ||
		!form.Has(bookingform.AppointmentMode) {
		return flow.RedirectTo(flow.RouteUserDetails), false, nil
	}
	return flow.Result{}, true, nil
}

// State returns the page state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := State{Processing: b.processing.Busy(), Loaded: b.loader.Loaded(), Celebrate: b.celebrate}
	if b.order != nil {
		st.OrderID = b.order.ID
	}
	return st
}

// Prepare loads the checkout integration when the page opens.
func (b *Bridge) Prepare(ctx context.Context) error {
	return b.loader.Load(ctx)
}

// PayNow creates the gateway order and returns the checkout options. The
// processing flag stays set until Complete or Dismiss.
func (b *Bridge) PayNow(ctx context.Context) (CheckoutOptions, flow.Result, error) {
	if !b.processing.Acquire() {
		return CheckoutOptions{}, flow.Result{}, flow.ErrInFlight
	}
	keep := false
	defer func() {
		if !keep {
			b.processing.Release()
		}
	}()

	form, err := b.store.Read()
	if err != nil {
		return CheckoutOptions{}, flow.Result{}, fmt.Errorf("payments: pay: %w", err)
	}
	if missing := missingForPayment(form); len(missing) > 0 {
		b.logger.Warn("payment blocked, booking details missing", "missing", missing)
		b.metrics.ObservePageAction("payment", "pay", "redirect")
		return CheckoutOptions{}, flow.Result{Redirect: flow.RouteServices, Notice: MissingDetailsMessage}, nil
	}

	if err := b.loader.Load(ctx); err != nil {
		b.logger.Error("checkout script unavailable", "error", err)
		b.metrics.ObservePageAction("payment", "pay", "script_failed")
		return CheckoutOptions{}, flow.Result{Notice: "Failed to load payment gateway. Please try again."}, nil
	}

	ctx = context.WithoutCancel(ctx)
	ctx, span := paymentsTracer.Start(ctx, "payments.pay_now")
	defer span.End()
	span.SetAttributes(attribute.String("clinicbook.appointment_id", form.AppointmentID))

	order, err := b.api.CreatePaymentOrder(ctx, form.AppointmentID)
	if err != nil {
		span.RecordError(err)
		b.logger.Warn("payment order failed", "appointment_id", form.AppointmentID, "error", err)
		b.metrics.ObservePageAction("payment", "pay", "failed")
		return CheckoutOptions{}, flow.Result{Notice: backend.Message(err, "Failed to create payment order")}, nil
	}
	span.SetAttributes(attribute.String("clinicbook.order_id", order.ID))

	b.mu.Lock()
	b.order = &order
	b.celebrate = false
	b.mu.Unlock()

	keep = true
	b.metrics.ObservePageAction("payment", "pay", "checkout_opened")
	return b.checkoutOptions(form, order), flow.Result{}, nil
}

// Complete verifies the checkout result. On success the form is cleared and
// the user is sent home after the success delay; on failure the processing
// flag is released so the user can retry.
func (b *Bridge) Complete(ctx context.Context, resp GatewayResponse) (flow.Result, error) {
	if !b.processing.Busy() {
		return flow.Result{}, ErrNotProcessing
	}

	ctx = context.WithoutCancel(ctx)
	ctx, span := paymentsTracer.Start(ctx, "payments.complete")
	defer span.End()
	span.SetAttributes(attribute.String("clinicbook.order_id", resp.OrderID))

	if err := b.precheck(resp); err != nil {
		span.RecordError(err)
		b.logger.Warn("checkout result rejected", "order_id", resp.OrderID, "error", err)
		b.processing.Release()
		b.metrics.ObservePageAction("payment", "verify", "rejected")
		return flow.Result{Notice: VerifyFailedMessage}, nil
	}

	msg, err := b.api.VerifyPayment(ctx, backend.PaymentVerification{
		OrderID:   resp.OrderID,
		PaymentID: resp.PaymentID,
		Signature: resp.Signature,
	})
	if err != nil {
		span.RecordError(err)
		b.logger.Warn("payment verification failed", "order_id", resp.OrderID, "error", err)
		b.processing.Release()
		b.metrics.ObservePageAction("payment", "verify", "failed")
		return flow.Result{Notice: backend.Message(err, VerifyFailedMessage)}, nil
	}

	var effects []flow.EffectReport
	if b.opts.Chime != nil {
		effects = flow.RunBestEffort(ctx, b.logger, flow.Effect{Name: "success_chime", Run: b.opts.Chime})
	}

	b.store.Reset(ctx)

	b.mu.Lock()
	b.order = nil
	b.celebrate = true
	b.mu.Unlock()
	b.processing.Release()

	b.logger.Info("payment verified", "order_id", resp.OrderID, "payment_id", resp.PaymentID)
	b.metrics.ObservePageAction("payment", "verify", "ok")
	if strings.TrimSpace(msg) == "" {
		msg = SuccessMessage
	}
	return flow.Result{
		Redirect:      flow.RouteHome,
		RedirectAfter: b.opts.SuccessDelay,
		Notice:        msg,
		Effects:       effects,
	}, nil
}

// Dismiss handles a checkout closed by the user.
func (b *Bridge) Dismiss() flow.Result {
	b.processing.Release()
	b.mu.Lock()
	b.order = nil
	b.mu.Unlock()
	b.metrics.ObservePageAction("payment", "dismiss", "cancelled")
	return flow.Result{Notice: CancelledMessage}
}

func (b *Bridge) precheck(resp GatewayResponse) error {
	if resp.OrderID == "" || resp.PaymentID == "" || resp.Signature == "" {
		return fmt.Errorf("%w: incomplete gateway response", ErrSignatureMismatch)
	}
	b.mu.Lock()
	order := b.order
	b.mu.Unlock()
	if order != nil && order.ID != resp.OrderID {
		return fmt.Errorf("%w: order %s does not match %s", ErrSignatureMismatch, resp.OrderID, order.ID)
	}
	if b.opts.KeySecret != "" && !VerifySignature(b.opts.KeySecret, resp.OrderID, resp.PaymentID, resp.Signature) {
		return ErrSignatureMismatch
	}
	return nil
}

func (b *Bridge) checkoutOptions(form bookingform.Form, order backend.PaymentOrder) CheckoutOptions {
	amount := order.Amount
	if amount == 0 && form.PlanRawPrice != nil {
		amount = int64(math.Round(*form.PlanRawPrice * 100))
	}
	currency := order.Currency
	if currency == "" {
		currency = "INR"
	}
	description := form.PlanName
	if form.PackageName != "" {
		description = form.PlanName + " - " + form.PackageName
	}
	return CheckoutOptions{
		Key:         b.opts.KeyID,
		OrderID:     order.ID,
		Amount:      amount,
		Currency:    currency,
		Name:        b.opts.ClinicName,
		Description: description,
		ScriptURL:   b.loader.URL(),
		Prefill: Prefill{
			Name:    form.FullName,
			Email:   form.Email,
			Contact: form.Mobile,
		},
		Theme: Theme{Color: b.opts.ThemeColor},
		Notes: map[string]string{
			"appointmentId": form.AppointmentID,
			"patientId":     form.PatientID,
			"slotId":        form.SlotID,
		},
	}
}

func missingForPayment(form bookingform.Form) []string {
	var missing []string
	for _, f := range []bookingform.Field{
		bookingform.SlotID,
		bookingform.PatientID,
		bookingform.PlanSlug,
		bookingform.AppointmentMode,
		bookingform.PlanRawPrice,
	} {
		if !form.Has(f) {
			missing = append(missing, string(f))
		}
	}
	return missing
}
