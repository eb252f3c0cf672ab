// Package router assembles the public and admin HTTP surfaces.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/availability"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/bookings"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/gdpr"
	httpmiddleware "github.com/BGomes2022/doctor-k-therapy-sub001/internal/http/middleware"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/patients"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/payments"
	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/waitlist"
	"github.com/BGomes2022/doctor-k-therapy-sub001/pkg/logging"
)

// Config holds the router's handler dependencies.
type Config struct {
	Logger              *logging.Logger
	PatientsHandler     *patients.Handler
	BookingsHandler     *bookings.Handler
	AvailabilityHandler *availability.Handler
	WaitlistHandler     *waitlist.Handler
	PaymentsHandler     *payments.Handler
	GDPRHandler         *gdpr.Handler
	MetricsHandler      http.Handler
	AdminJWTSecret      string
	CORSAllowedOrigins  []string
}

// New builds the chi router.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

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

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Public surface.
	r.Route("/api", func(api chi.Router) {
		api.Get("/availability", cfg.AvailabilityHandler.Slots(false))
		api.Post("/medical-form", cfg.PatientsHandler.SubmitMedicalForm)
		api.Get("/booking-tokens/{token}", cfg.PatientsHandler.ValidateToken)
		api.Get("/bookings", cfg.BookingsHandler.ListForToken)
		api.Post("/bookings", cfg.BookingsHandler.Create(false))
		api.Delete("/bookings", cfg.BookingsHandler.Cancel)
		api.Post("/waitlist", cfg.WaitlistHandler.Join)
		if cfg.PaymentsHandler != nil {
			api.Get("/payments/packages", cfg.PaymentsHandler.ListPackages)
			api.Post("/payments/orders", cfg.PaymentsHandler.CreateOrder)
			api.Post("/payments/orders/{orderID}/capture", cfg.PaymentsHandler.CaptureOrder)
		}
	})

	// Admin surface, JWT-protected.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))

		admin.Get("/bookings", cfg.BookingsHandler.AdminList)
		admin.Post("/bookings", cfg.BookingsHandler.Create(true))
		admin.Post("/bookings/recurring", cfg.BookingsHandler.CreateRecurring)
		admin.Patch("/bookings/{bookingID}", cfg.BookingsHandler.Reschedule)
		admin.Delete("/bookings/{bookingID}", cfg.BookingsHandler.CancelByID)

		admin.Get("/availability", cfg.AvailabilityHandler.ListOverrides)
		admin.Post("/availability", cfg.AvailabilityHandler.AddOverride)
		admin.Delete("/availability", cfg.AvailabilityHandler.RemoveOverride)
		admin.Get("/availability/slots", cfg.AvailabilityHandler.Slots(true))

		admin.Get("/booking-tokens", cfg.PatientsHandler.ListTokens)
		admin.Patch("/booking-tokens/{token}/sessions", cfg.PatientsHandler.OverrideSessions)

		admin.Get("/waitlist", cfg.WaitlistHandler.List)
		admin.Patch("/waitlist/{waitlistID}", cfg.WaitlistHandler.UpdateStatus)
		admin.Delete("/waitlist/{waitlistID}", cfg.WaitlistHandler.Delete)

		if cfg.GDPRHandler != nil {
			admin.Post("/gdpr/export", cfg.GDPRHandler.Export)
			admin.Post("/gdpr/erase", cfg.GDPRHandler.Erase)
			admin.Get("/gdpr/audit-log", cfg.GDPRHandler.AuditLog)
		}
	})

	return r
}
