package handlers

import (
	"net/http"
	"strconv"
	"time"
)

// GetCalendar renders one month of the booking window, the current one by default.
func (h *BookingHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	cal := sess.Slots.Calendar()
	q := r.URL.Query()
	if q.Get("year") == "" && q.Get("month") == "" {
		writeJSON(w, http.StatusOK, cal.Current())
		return
	}
	year, errY := strconv.Atoi(q.Get("year"))
	month, errM := strconv.Atoi(q.Get("month"))
	if errY != nil || errM != nil || month < 1 || month > 12 {
		jsonError(w, "year and month must be numeric", http.StatusBadRequest)
		return
	}
	m, err := cal.Month(year, time.Month(month))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// GetSlots lists the open slots for ?date=YYYY-MM-DD&mode=.
func (h *BookingHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	res, allowed, err := sess.Slots.Guard()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !allowed {
		writeJSON(w, http.StatusOK, newPageResponse(res, nil))
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		writeJSON(w, http.StatusOK, newPageResponse(res, sess.Slots.State()))
		return
	}
	_, res, err = sess.Slots.Fetch(r.Context(), date, r.URL.Query().Get("mode"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(res, sess.Slots.State()))
}

// SelectSlot records the chosen slot immediately.
func (h *BookingHandler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SlotID string `json:"slotId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	form, err := sess.Slots.Select(r.Context(), req.SlotID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFormResponse(form, nil))
}

// ContinueSlot confirms the selection and moves on to payment.
func (h *BookingHandler) ContinueSlot(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := sess.Slots.Continue(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(res, nil))
}

