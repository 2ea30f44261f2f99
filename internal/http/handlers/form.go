package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/steps"
	"github.com/wolfman30/clinicbook/internal/validation"
)

// PlanSelection is the plan chosen in the services flow.
type PlanSelection struct {
	PlanSlug        string   `json:"planSlug"`
	PlanName        string   `json:"planName"`
	PlanPrice       string   `json:"planPrice"`
	PlanRawPrice    *float64 `json:"planRawPrice"`
	PackageName     string   `json:"packageName,omitempty"`
	PackageDuration string   `json:"packageDuration,omitempty"`
}

type formResponse struct {
	Form        bookingform.Form     `json:"form"`
	Reports     []bookingform.Report `json:"reports"`
	FieldErrors steps.FieldErrors    `json:"fieldErrors,omitempty"`
}

func newFormResponse(form bookingform.Form, fieldErrs steps.FieldErrors) formResponse {
	reports := form.Reports
	if reports == nil {
		reports = []bookingform.Report{}
	}
	return formResponse{Form: form, Reports: reports, FieldErrors: fieldErrs}
}

// GetPlan returns the selected plan.
func (h *BookingHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	form, err := sess.Store.Read()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PlanSelection{
		PlanSlug:        form.PlanSlug,
		PlanName:        form.PlanName,
		PlanPrice:       form.PlanPrice,
		PlanRawPrice:    form.PlanRawPrice,
		PackageName:     form.PackageName,
		PackageDuration: form.PackageDuration,
	})
}

// PutPlan records the plan chosen in the services flow.
func (h *BookingHandler) PutPlan(w http.ResponseWriter, r *http.Request) {
	var req PlanSelection
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PlanSlug) == "" || strings.TrimSpace(req.PlanName) == "" || strings.TrimSpace(req.PlanPrice) == "" {
		jsonError(w, "planSlug, planName and planPrice are required", http.StatusBadRequest)
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	patch := bookingform.Patch{
		PlanSlug:        bookingform.String(strings.TrimSpace(req.PlanSlug)),
		PlanName:        bookingform.String(req.PlanName),
		PlanPrice:       bookingform.String(req.PlanPrice),
		PlanRawPrice:    req.PlanRawPrice,
		PackageName:     bookingform.String(req.PackageName),
		PackageDuration: bookingform.String(req.PackageDuration),
	}
	form, err := sess.Store.Write(r.Context(), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFormResponse(form, nil))
}

// GetForm returns the whole booking form.
func (h *BookingHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	form, err := sess.Store.Read()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFormResponse(form, nil))
}

// PatchForm writes raw input for one wizard step, named or numbered.
func (h *BookingHandler) PatchForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseStep(chi.URLParam(r, "step"))
	if !ok {
		jsonError(w, "unknown step", http.StatusNotFound)
		return
	}
	var in steps.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	form, fieldErrs, err := sess.Wizard.Edit(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFormResponse(form, fieldErrs))
}

// DeleteForm discards the booking form.
func (h *BookingHandler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Store.Reset(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func parseStep(raw string) (validation.Step, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(raw); err == nil {
		s := validation.Step(n)
		return s, s >= validation.FirstStep && s <= validation.LastStep
	}
	return validation.ParseStep(raw)
}
