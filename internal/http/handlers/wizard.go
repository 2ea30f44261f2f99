package handlers

import (
	"net/http"

	"github.com/wolfman30/clinicbook/internal/flow"
	"github.com/wolfman30/clinicbook/internal/session"
)

// GetWizard renders the current wizard step.
func (h *BookingHandler) GetWizard(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	state, res, err := sess.Wizard.View()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if res.Redirected() {
		writeJSON(w, http.StatusOK, newPageResponse(res, nil))
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(res, state))
}

// NextStep gates the current step and advances, submitting on the last one.
func (h *BookingHandler) NextStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := sess.Wizard.Next(r.Context())
	h.wizardResult(w, r, sess, res, err)
}

// PrevStep goes back one step.
func (h *BookingHandler) PrevStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := sess.Wizard.Prev()
	h.wizardResult(w, r, sess, res, err)
}

func (h *BookingHandler) wizardResult(w http.ResponseWriter, r *http.Request, sess *session.Session, res flow.Result, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if res.Redirected() || res.Navigate != "" {
		writeJSON(w, http.StatusOK, newPageResponse(res, nil))
		return
	}
	state, _, err := sess.Wizard.View()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(res, state))
}
