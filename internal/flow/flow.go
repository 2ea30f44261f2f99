// Package flow holds the outcome types shared by the booking pages: where to
// send the user next, what to tell them, and which best-effort side effects ran.
package flow

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/wolfman30/clinicbook/pkg/logging"
)

// ErrInFlight is returned when an action is triggered while the same action
// is still waiting on the backend.
var ErrInFlight = errors.New("flow: request already in flight")

// Page routes the flow navigates between.
const (
	RouteServices    = "/services"
	RouteUserDetails = "/book/user-details"
	RouteRecall      = "/book/recall"
	RouteSlot        = "/book/slot"
	RoutePayment     = "/book/payment"
	RouteHome        = "/"
)

// Result is the outcome of a page action.
//
// Redirect is a forced move away from a page whose prerequisites are missing.
// Navigate is the normal forward move after a successful action. Error is an
// inline validation message; Notice is a transient notification.
type Result struct {
	Redirect      string         `json:"redirect,omitempty"`
	Navigate      string         `json:"navigate,omitempty"`
	RedirectAfter time.Duration  `json:"-"`
	Error         string         `json:"error,omitempty"`
	Notice        string         `json:"notice,omitempty"`
	Effects       []EffectReport `json:"effects,omitempty"`
}

// Redirected reports whether the result moves the user elsewhere.
func (r Result) Redirected() bool {
	return r.Redirect != ""
}

// Failed reports whether the action was blocked or failed.
func (r Result) Failed() bool {
	return r.Error != "" || (r.Notice != "" && r.Navigate == "" && r.Redirect == "")
}

// RedirectTo builds a guard redirect.
func RedirectTo(route string) Result {
	return Result{Redirect: route}
}

// Effect is a secondary operation whose failure never changes the outcome of
// the action it belongs to.
type Effect struct {
	Name string
	Run  func(ctx context.Context) error
}

// EffectReport records how a best-effort effect went.
type EffectReport struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// RunBestEffort runs effects in order, logging and swallowing failures.
func RunBestEffort(ctx context.Context, logger *logging.Logger, effects ...Effect) []EffectReport {
	if logger == nil {
		logger = logging.Default()
	}
	reports := make([]EffectReport, 0, len(effects))
	for _, e := range effects {
		if e.Run == nil {
			continue
		}
		report := EffectReport{Name: e.Name, OK: true}
		if err := e.Run(ctx); err != nil {
			logger.Warn("best-effort step failed", "effect", e.Name, "error", err)
			report.OK = false
			report.Error = err.Error()
		}
		reports = append(reports, report)
	}
	return reports
}

// InFlight is a per-session processing flag. It keeps a second click from
// firing a second request; it is not a lock across sessions.
type InFlight struct {
	busy atomic.Bool
}

// Acquire marks the action as running. It returns false if it already was.
func (g *InFlight) Acquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release clears the flag.
func (g *InFlight) Release() {
	g.busy.Store(false)
}

// Busy reports whether the action is running.
func (g *InFlight) Busy() bool {
	return g.busy.Load()
}
