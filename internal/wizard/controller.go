// Package wizard drives the five-step booking wizard: step sequencing, the
// per-step gate and patient creation from the review step.
package wizard

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinicbook/internal/backend"
	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/flow"
	"github.com/wolfman30/clinicbook/internal/observability/metrics"
	"github.com/wolfman30/clinicbook/internal/steps"
	"github.com/wolfman30/clinicbook/internal/validation"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

var wizardTracer = otel.Tracer("clinicbook.internal.wizard")

// FormStore is the slice of the form store the wizard needs.
type FormStore interface {
	Read() (bookingform.Form, error)
	Write(ctx context.Context, patch bookingform.Patch) (bookingform.Form, error)
}

// PatientCreator creates patient records on the backend.
type PatientCreator interface {
	CreatePatient(ctx context.Context, req backend.PatientRequest) (backend.Patient, error)
}

// State is what the wizard page renders.
type State struct {
	Step       int                 `json:"step"`
	StepName   string              `json:"stepName"`
	Title      string              `json:"title"`
	Fields     []bookingform.Field `json:"fields,omitempty"`
	Error      string              `json:"error,omitempty"`
	Submitting bool                `json:"submitting"`
	Summary    []steps.Section     `json:"summary,omitempty"`
	Form       bookingform.Form    `json:"form"`
}

// Controller is one session's wizard. The position is never persisted, so a
// new controller always starts on the first step.
type Controller struct {
	store    FormStore
	patients PatientCreator
	logger   *logging.Logger
	metrics  *metrics.BookingMetrics

	mu     sync.Mutex
	step   validation.Step
	errMsg string

	submitting flow.InFlight
}

// NewController creates a wizard positioned on the personal step.
func NewController(store FormStore, patients PatientCreator, logger *logging.Logger, m *metrics.BookingMetrics) *Controller {
	if store == nil {
		panic("wizard: form store required")
	}
	if patients == nil {
		panic("wizard: patient creator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Controller{
		store:    store,
		patients: patients,
		logger:   logger,
		metrics:  m,
		step:     validation.FirstStep,
	}
}

// Guard redirects to plan selection when the plan is missing.
func (c *Controller) Guard(form bookingform.Form) (flow.Result, bool) {
	if !form.HasPlan() {
		return flow.RedirectTo(flow.RouteServices), false
	}
	return flow.Result{}, true
}

// Submitting reports whether patient creation is in flight.
func (c *Controller) Submitting() bool {
	return c.submitting.Busy()
}

// Step returns the current position.
func (c *Controller) Step() validation.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// View returns the current page state, or a redirect when the guard fails.
func (c *Controller) View() (State, flow.Result, error) {
	form, err := c.store.Read()
	if err != nil {
		return State{}, flow.Result{}, fmt.Errorf("wizard: view: %w", err)
	}
	if res, ok := c.Guard(form); !ok {
		return State{}, res, nil
	}
	return c.state(form), flow.Result{}, nil
}

// Edit writes raw input for the fields of one step. Format problems come back
// as field errors and do not block the write.
func (c *Controller) Edit(ctx context.Context, id validation.Step, in steps.Input) (bookingform.Form, steps.FieldErrors, error) {
	step, ok := steps.For(id)
	if !ok {
		return bookingform.Form{}, nil, fmt.Errorf("wizard: unknown step %d", id)
	}
	patch, fieldErrs, err := step.Apply(in)
	if err != nil {
		return bookingform.Form{}, nil, err
	}
	if patch.IsEmpty() {
		form, err := c.store.Read()
		return form, fieldErrs, err
	}
	form, err := c.store.Write(ctx, patch)
	if err != nil {
		return bookingform.Form{}, nil, fmt.Errorf("wizard: edit: %w", err)
	}
	return form, fieldErrs, nil
}

// Next gates the current step and advances, or on the review step creates the
// patient and moves on to the recall page.
func (c *Controller) Next(ctx context.Context) (flow.Result, error) {
	form, err := c.store.Read()
	if err != nil {
		return flow.Result{}, fmt.Errorf("wizard: next: %w", err)
	}
	if res, ok := c.Guard(form); !ok {
		c.metrics.ObservePageAction("wizard", "next", "redirect")
		return res, nil
	}

	c.mu.Lock()
	current := c.step
	if current < validation.LastStep {
		if msg := validation.StepMessage(current, form); msg != "" {
			c.errMsg = msg
			c.mu.Unlock()
			c.metrics.ObservePageAction("wizard", "next", "blocked")
			return flow.Result{Error: msg}, nil
		}
		c.step++
		c.errMsg = ""
		c.mu.Unlock()
		c.metrics.ObservePageAction("wizard", "next", "advanced")
		return flow.Result{}, nil
	}
	c.mu.Unlock()

	return c.submit(ctx, form)
}

// Prev moves back one step, clearing any error. It is a no-op on the first step.
func (c *Controller) Prev() (flow.Result, error) {
	form, err := c.store.Read()
	if err != nil {
		return flow.Result{}, fmt.Errorf("wizard: prev: %w", err)
	}
	if res, ok := c.Guard(form); !ok {
		return res, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step > validation.FirstStep {
		c.step--
	}
	c.errMsg = ""
	return flow.Result{}, nil
}

// submit runs the full pre-submission check and creates a fresh patient. Any
// previously stored patient id is discarded first, so every pass through the
// review step creates a new patient record.
func (c *Controller) submit(ctx context.Context, form bookingform.Form) (flow.Result, error) {
	if missing := validation.MissingForSubmission(form); len(missing) > 0 {
		msg := validation.SubmissionMessage(missing)
		c.setError(msg)
		c.metrics.ObservePageAction("wizard", "submit", "blocked")
		return flow.Result{Error: msg}, nil
	}

	if !c.submitting.Acquire() {
		return flow.Result{}, flow.ErrInFlight
	}
	defer c.submitting.Release()

	// The patient call is not abandoned when the caller goes away.
	ctx = context.WithoutCancel(ctx)
	ctx, span := wizardTracer.Start(ctx, "wizard.submit")
	defer span.End()

	if _, err := c.store.Write(ctx, bookingform.Patch{PatientID: bookingform.String("")}); err != nil {
		return flow.Result{}, fmt.Errorf("wizard: clear patient: %w", err)
	}

	patient, err := c.patients.CreatePatient(ctx, PatientRequestFrom(form))
	if err != nil {
		span.RecordError(err)
		msg := backend.Message(err, "Failed to save your details. Please try again.")
		c.setError(msg)
		c.logger.Warn("patient creation failed", "error", err)
		c.metrics.ObservePageAction("wizard", "submit", "failed")
		return flow.Result{Notice: msg}, nil
	}
	span.SetAttributes(attribute.String("clinicbook.patient_id", patient.ID))

	patch := bookingform.Patch{
		PatientID:       bookingform.String(patient.ID),
		PlanSlug:        bookingform.String(form.PlanSlug),
		PlanName:        bookingform.String(form.PlanName),
		PlanPrice:       bookingform.String(form.PlanPrice),
		PackageName:     bookingform.String(form.PackageName),
		PackageDuration: bookingform.String(form.PackageDuration),
	}
	if form.PlanRawPrice != nil {
		patch.PlanRawPrice = bookingform.Float(*form.PlanRawPrice)
	}
	if _, err := c.store.Write(ctx, patch); err != nil {
		return flow.Result{}, fmt.Errorf("wizard: store patient: %w", err)
	}

	c.setError("")
	c.logger.Info("patient created", "patient_id", patient.ID)
	c.metrics.ObservePageAction("wizard", "submit", "created")
	return flow.Result{Navigate: flow.RouteRecall}, nil
}

func (c *Controller) setError(msg string) {
	c.mu.Lock()
	c.errMsg = msg
	c.mu.Unlock()
}

func (c *Controller) state(form bookingform.Form) State {
	c.mu.Lock()
	step, errMsg := c.step, c.errMsg
	c.mu.Unlock()

	st := State{
		Step:       int(step),
		StepName:   step.String(),
		Error:      errMsg,
		Submitting: c.submitting.Busy(),
		Form:       form,
	}
	if comp, ok := steps.For(step); ok {
		st.Title = comp.Title()
		st.Fields = comp.Fields()
	}
	if step == validation.StepReview {
		st.Summary = steps.Summary(form)
	}
	return st
}
