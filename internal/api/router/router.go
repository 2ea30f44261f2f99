package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinicbook/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinicbook/internal/http/middleware"
	"github.com/wolfman30/clinicbook/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Booking        *handlers.BookingHandler
	MetricsHandler http.Handler

	ProfileJWTSecret   string
	ProfileCookieName  string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", handlers.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.Booking == nil {
		return r
	}
	b := cfg.Booking
	r.Route("/api/booking", func(api chi.Router) {
		api.Use(httpmiddleware.Profile(cfg.ProfileJWTSecret, cfg.ProfileCookieName))
		if cfg.RateLimitRPS > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}

		api.Get("/plan", b.GetPlan)
		api.Put("/plan", b.PutPlan)

		api.Route("/form", func(form chi.Router) {
			form.Get("/", b.GetForm)
			form.Delete("/", b.DeleteForm)
			form.Patch("/{step}", b.PatchForm)
		})

		api.Route("/wizard", func(wiz chi.Router) {
			wiz.Get("/", b.GetWizard)
			wiz.Post("/next", b.NextStep)
			wiz.Post("/prev", b.PrevStep)
		})

		api.Post("/reports", b.UploadReport)

		api.Route("/recall", func(rc chi.Router) {
			rc.Get("/", b.GetRecall)
			rc.Post("/entries", b.AddRecallEntry)
			rc.Patch("/entries/{entryID}", b.UpdateRecallEntry)
			rc.Delete("/entries/{entryID}", b.RemoveRecallEntry)
			rc.Put("/notes", b.SetRecallNotes)
			rc.Post("/submit", b.SubmitRecall)
		})

		api.Route("/slots", func(sl chi.Router) {
			sl.Get("/", b.GetSlots)
			sl.Get("/calendar", b.GetCalendar)
			sl.Post("/select", b.SelectSlot)
			sl.Post("/continue", b.ContinueSlot)
		})

		api.Route("/payment", func(pay chi.Router) {
			pay.Get("/", b.GetPayment)
			pay.Post("/pay", b.PayNow)
			pay.Post("/verify", b.VerifyPayment)
			pay.Post("/dismiss", b.DismissPayment)
		})

		api.Post("/logout", b.Logout)
	})

	return r
}
