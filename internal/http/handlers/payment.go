package handlers

import (
	"net/http"

	"github.com/wolfman30/clinicbook/internal/flow"
	"github.com/wolfman30/clinicbook/internal/http/middleware"
	"github.com/wolfman30/clinicbook/internal/payments"
)

// GetPayment renders the payment page and warms the checkout integration.
func (h *BookingHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	res, allowed, err := sess.Payment.Guard()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !allowed {
		writeJSON(w, http.StatusOK, newPageResponse(res, nil))
		return
	}
	if err := sess.Payment.Prepare(r.Context()); err != nil {
		h.logger.Warn("checkout script not loaded", "profile_id", sess.ProfileID, "error", err)
	}
	writeJSON(w, http.StatusOK, newPageResponse(flow.Result{}, sess.Payment.State()))
}

type payResponse struct {
	pageResponse
	Checkout *payments.CheckoutOptions `json:"checkout,omitempty"`
}

// PayNow creates the gateway order and returns the hosted checkout options.
func (h *BookingHandler) PayNow(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	opts, res, err := sess.Payment.PayNow(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := payResponse{pageResponse: newPageResponse(res, sess.Payment.State())}
	if opts.OrderID != "" {
		out.Checkout = &opts
	}
	writeJSON(w, http.StatusOK, out)
}

// VerifyPayment receives the checkout success callback.
func (h *BookingHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var resp payments.GatewayResponse
	if !decodeJSON(w, r, &resp) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := sess.Payment.Complete(r.Context(), resp)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(res, sess.Payment.State()))
}

// DismissPayment handles a checkout closed without paying.
func (h *BookingHandler) DismissPayment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	res := sess.Payment.Dismiss()
	writeJSON(w, http.StatusOK, newPageResponse(res, sess.Payment.State()))
}

// Logout clears the stored form and ends the session.
func (h *BookingHandler) Logout(w http.ResponseWriter, r *http.Request) {
	profileID, ok := middleware.ProfileIDFromContext(r.Context())
	if !ok {
		jsonError(w, "missing booking profile", http.StatusUnauthorized)
		return
	}
	h.sessions.End(r.Context(), profileID)
	w.WriteHeader(http.StatusNoContent)
}
