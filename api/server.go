/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: Request-scoped slog logger, completion log line
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the operator console
  5. OperatorAuth:  Bearer token on everything under /api

ROUTE GROUPS:
  /healthz              Liveness (no auth)
  /api/bookings/*       Bookings, payments, ledger, checkout
  /api/payments/*       Payment status updates
  /api/settlements      Settlement journal
  /api/expenses         Expense listing
  /api/scenarios/*      Demo data (only when enabled)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Operator token validation
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/occupancy-engine/logging"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Auth            *OperatorAuth
	Logger          *slog.Logger
	AllowedOrigins  []string
	EnableScenarios bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth.Middleware)
		}

		// Booking routes
		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.ListBookings)
			r.Post("/", h.CreateBooking)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetBooking)
				r.Get("/transitions", h.GetTransitions)
				r.Post("/transitions", h.TransitionBooking)
				r.Get("/ledger", h.GetLedger)
				r.Get("/payments", h.ListPayments)
				r.Post("/payments", h.RecordPayment)
				r.Post("/checkout", h.Checkout)
				r.Post("/checkout/resume", h.ResumeCheckout)
				r.Post("/checkout/complete-expense", h.CompleteExpense)
			})
		})

		// Payment routes
		r.Patch("/payments/{id}/status", h.UpdatePaymentStatus)

		// Operations routes
		r.Get("/settlements", h.ListSettlements)
		r.Get("/expenses", h.ListExpenses)

		// Scenario routes
		if opts.EnableScenarios {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
			})
		}
	})

	return r
}
