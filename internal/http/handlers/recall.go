package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/flow"
)

// RecallState is what the recall page renders.
type RecallState struct {
	Entries    []bookingform.RecallEntry `json:"entries"`
	Notes      string                    `json:"notes"`
	Reports    []bookingform.Report      `json:"reports"`
	Submitting bool                      `json:"submitting"`
}

// GetRecall renders the recall page, or redirects when the plan or patient is missing.
func (h *BookingHandler) GetRecall(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	res, allowed, err := sess.Recall.Guard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !allowed {
		writeJSON(w, http.StatusOK, newPageResponse(res, nil))
		return
	}
	entries, err := sess.Recall.Entries(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	form, err := sess.Store.Read()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	reports := form.Reports
	if reports == nil {
		reports = []bookingform.Report{}
	}
	writeJSON(w, http.StatusOK, newPageResponse(flow.Result{}, RecallState{
		Entries:    entries,
		Notes:      form.RecallNotes,
		Reports:    reports,
		Submitting: sess.Recall.Submitting(),
	}))
}

// AddRecallEntry appends an empty entry.
func (h *BookingHandler) AddRecallEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	entry, err := sess.Recall.AddEntry(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// UpdateRecallEntry edits one entry in place.
func (h *BookingHandler) UpdateRecallEntry(w http.ResponseWriter, r *http.Request) {
	var patch bookingform.RecallEntryPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	entry, err := sess.Recall.UpdateEntry(r.Context(), chi.URLParam(r, "entryID"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// RemoveRecallEntry deletes an entry. The list never becomes empty.
func (h *BookingHandler) RemoveRecallEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	entries, err := sess.Recall.RemoveEntry(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// SetRecallNotes replaces the free-text notes.
func (h *BookingHandler) SetRecallNotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Recall.SetNotes(r.Context(), req.Notes); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitRecall links reports, creates the appointment and the recall.
func (h *BookingHandler) SubmitRecall(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := sess.Recall.Submit(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(res, nil))
}
