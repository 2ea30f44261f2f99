package recall

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinicbook/internal/backend"
	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/enums"
	"github.com/wolfman30/clinicbook/internal/flow"
)

// Submit sends the complete entries: best-effort file linking, then the
// PENDING appointment, then the recall tied to it. A recall failure after the
// appointment was created leaves that appointment orphaned; nothing is rolled
// back.
func (p *Page) Submit(ctx context.Context) (flow.Result, error) {
	if res, ok, err := p.Guard(ctx); err != nil || !ok {
		return res, err
	}
	form, err := p.store.Read()
	if err != nil {
		return flow.Result{}, fmt.Errorf("recall: submit: %w", err)
	}

	complete := completeEntries(form.RecallEntries)
	if len(complete) == 0 {
		p.metrics.ObservePageAction("recall", "submit", "blocked")
		return flow.Result{Error: NoCompleteEntriesMessage}, nil
	}

	if !p.submitting.Acquire() {
		return flow.Result{}, flow.ErrInFlight
	}
	defer p.submitting.Release()

	ctx = context.WithoutCancel(ctx)
	ctx, span := recallTracer.Start(ctx, "recall.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinicbook.patient_id", form.PatientID),
		attribute.Int("clinicbook.recall_entries", len(complete)),
	)
	logger := p.logger.With("patient_id", form.PatientID)

	var effects []flow.EffectReport
	if fileIDs := form.ReportIDs(); len(fileIDs) > 0 {
		effects = flow.RunBestEffort(ctx, logger, flow.Effect{
			Name: "link_files",
			Run: func(ctx context.Context) error {
				return p.api.LinkFiles(ctx, form.PatientID, fileIDs)
			},
		})
	}

	appointment, err := p.api.CreateAppointment(ctx, p.appointmentRequest(form))
	if err != nil {
		span.RecordError(err)
		logger.Warn("appointment creation failed", "error", err)
		p.metrics.ObservePageAction("recall", "submit", "failed")
		return flow.Result{Notice: backend.Message(err, "Failed to create appointment"), Effects: effects}, nil
	}
	span.SetAttributes(attribute.String("clinicbook.appointment_id", appointment.ID))

	_, err = p.api.CreateRecall(ctx, backend.RecallRequest{
		PatientID:     form.PatientID,
		Notes:         strings.TrimSpace(form.RecallNotes),
		Entries:       complete,
		AppointmentID: appointment.ID,
	})
	if err != nil {
		span.RecordError(err)
		logger.Warn("recall creation failed, appointment left pending", "appointment_id", appointment.ID, "error", err)
		p.metrics.ObservePageAction("recall", "submit", "failed")
		return flow.Result{Notice: backend.Message(err, "Failed to save recall"), Effects: effects}, nil
	}

	if _, err := p.store.Write(ctx, bookingform.Patch{AppointmentID: bookingform.String(appointment.ID)}); err != nil {
		return flow.Result{}, fmt.Errorf("recall: store appointment: %w", err)
	}

	logger.Info("recall submitted", "appointment_id", appointment.ID, "entries", len(complete))
	p.metrics.ObservePageAction("recall", "submit", "created")
	return flow.Result{Navigate: flow.RouteSlot, Effects: effects}, nil
}

func (p *Page) appointmentRequest(form bookingform.Form) backend.AppointmentRequest {
	duration := strings.TrimSpace(form.PackageDuration)
	if duration == "" {
		duration = p.opts.DefaultDuration
	}
	return backend.AppointmentRequest{
		PatientID:       form.PatientID,
		PlanSlug:        form.PlanSlug,
		PlanName:        form.PlanName,
		PlanPrice:       p.price(form),
		PlanDuration:    duration,
		PlanPackageName: strings.TrimSpace(form.PackageName),
		AppointmentMode: enums.NormalizeMode(form.AppointmentMode),
		Status:          string(enums.StatusPending),
		BookingProgress: string(enums.ProgressRecall),
	}
}

func (p *Page) price(form bookingform.Form) float64 {
	if p.opts.PriceOverrideSlug != "" && p.opts.PriceOverrideAmount > 0 && form.PlanSlug == p.opts.PriceOverrideSlug {
		return p.opts.PriceOverrideAmount
	}
	if form.PlanRawPrice != nil {
		return *form.PlanRawPrice
	}
	return bookingform.ParseNumber(bookingform.SanitizeDecimal(form.PlanPrice))
}

func completeEntries(entries []bookingform.RecallEntry) []backend.RecallEntryRequest {
	var out []backend.RecallEntryRequest
	for _, e := range entries {
		if !e.Complete() {
			continue
		}
		out = append(out, backend.RecallEntryRequest{
			MealType: enums.MealType.Token(e.MealType),
			Time:     strings.TrimSpace(e.Time),
			FoodItem: strings.TrimSpace(e.FoodItem),
			Quantity: strings.TrimSpace(e.Quantity),
			Notes:    strings.TrimSpace(e.Notes),
		})
	}
	return out
}
