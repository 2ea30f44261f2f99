package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wolfman30/clinicbook/internal/flow"
	"github.com/wolfman30/clinicbook/internal/formstore"
	"github.com/wolfman30/clinicbook/internal/http/middleware"
	"github.com/wolfman30/clinicbook/internal/payments"
	"github.com/wolfman30/clinicbook/internal/recall"
	"github.com/wolfman30/clinicbook/internal/reports"
	"github.com/wolfman30/clinicbook/internal/session"
	"github.com/wolfman30/clinicbook/internal/slots"
	"github.com/wolfman30/clinicbook/internal/steps"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

// Sessions is the session registry the booking handlers serve from.
type Sessions interface {
	Open(ctx context.Context, profileID string) *session.Session
	End(ctx context.Context, profileID string)
}

// BookingHandler serves the booking pages under /api/booking.
type BookingHandler struct {
	sessions Sessions
	uploader reports.Uploader
	logger   *logging.Logger
}

// NewBookingHandler creates the booking handler.
func NewBookingHandler(sessions Sessions, uploader reports.Uploader, logger *logging.Logger) *BookingHandler {
	if sessions == nil {
		panic("handlers: sessions required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{sessions: sessions, uploader: uploader, logger: logger}
}

// pageResponse is the envelope of every page action: the flow outcome plus
// whatever the page renders next.
type pageResponse struct {
	flow.Result
	RedirectAfterMs int64 `json:"redirectAfterMs,omitempty"`
	State           any   `json:"state,omitempty"`
}

func newPageResponse(res flow.Result, state any) pageResponse {
	return pageResponse{
		Result:          res,
		RedirectAfterMs: res.RedirectAfter.Milliseconds(),
		State:           state,
	}
}

func (h *BookingHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	profileID, ok := middleware.ProfileIDFromContext(r.Context())
	if !ok {
		jsonError(w, "missing booking profile", http.StatusUnauthorized)
		return nil, false
	}
	return h.sessions.Open(r.Context(), profileID), true
}

// fail maps page errors onto HTTP statuses. Anything unrecognized is a 500.
func (h *BookingHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var unknownField *steps.UnknownFieldError
	switch {
	case errors.Is(err, flow.ErrInFlight):
		jsonError(w, "request already in progress", http.StatusConflict)
	case errors.Is(err, payments.ErrNotProcessing):
		jsonError(w, "no payment in progress", http.StatusConflict)
	case errors.Is(err, formstore.ErrNotHydrated):
		jsonError(w, "booking form is still loading", http.StatusServiceUnavailable)
	case errors.Is(err, recall.ErrEntryNotFound):
		jsonError(w, "recall entry not found", http.StatusNotFound)
	case errors.Is(err, slots.ErrDateNotSelectable),
		errors.Is(err, slots.ErrUnknownSlot),
		errors.Is(err, slots.ErrMonthOutOfRange):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, reports.ErrFileTooLarge):
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, reports.ErrEmptyFile), errors.Is(err, reports.ErrUnsupportedType):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &unknownField):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("booking request failed", "path", r.URL.Path, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
