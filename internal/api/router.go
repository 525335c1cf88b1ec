/**
 * @description
 * This file sets up the HTTP router for the account service. It defines the
 * API endpoints, associates them with their corresponding handlers, and
 * applies the authentication middleware for each surface.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 *
 * @notes
 * - Two authenticated surfaces: /api/v1 for providers (X-API-Key) and
 *   /admin/v1 for back-office operations (admin JWT).
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mobipay/account-service/internal/app"
)

// Routes creates and returns the router for the account service.
func Routes(h *Handlers, service *app.Service, adminJWTSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for request IDs, logging, panic recovery, and timeouts.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Provider-facing API, authenticated by API key.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ProviderAuthMiddleware(service))

		r.Post("/accounts/{accountNumber}/deposits", h.DepositToAccountHandler)
		r.Post("/customers/{customerID}/deposits", h.DepositToCustomerHandler)
		r.Get("/deposits/{reference}", h.DepositConfirmationHandler)
	})

	// Back-office API, authenticated by admin JWT.
	r.Route("/admin/v1", func(r chi.Router) {
		r.Use(AdminAuthMiddleware(adminJWTSecret))

		// Customers
		r.Post("/customers", h.CreateCustomerHandler)
		r.Get("/customers", h.ListCustomersHandler)
		r.Get("/customers/{customerID}", h.GetCustomerHandler)
		r.Patch("/customers/{customerID}", h.UpdateCustomerHandler)
		r.Delete("/customers/{customerID}", h.DeactivateCustomerHandler)
		r.Get("/customers/{customerID}/accounts", h.ListCustomerAccountsHandler)
		r.Post("/customers/{customerID}/accounts", h.CreateAccountHandler)

		// Accounts
		r.Get("/accounts/{accountNumber}", h.GetAccountHandler)
		r.Get("/accounts/{accountNumber}/deposits/summary", h.AccountDepositSummaryHandler)
		r.Post("/accounts/{accountNumber}/adjustments", h.AdjustBalanceHandler)

		// Providers
		r.Post("/providers", h.CreateProviderHandler)
		r.Get("/providers", h.ListProvidersHandler)
		r.Get("/providers/{providerID}", h.GetProviderHandler)
		r.Patch("/providers/{providerID}", h.UpdateProviderNameHandler)
		r.Post("/providers/{providerID}/regenerate-key", h.RegenerateProviderKeyHandler)
		r.Post("/providers/{providerID}/deactivate", h.DeactivateProviderHandler)
		r.Post("/providers/{providerID}/reactivate", h.ReactivateProviderHandler)

		// Reporting
		r.Get("/payments", h.SearchPaymentsHandler)
		r.Get("/payments/totals", h.PaymentTotalsHandler)
		r.Get("/payments/totals/by-provider", h.PaymentTotalsByProviderHandler)
		r.Get("/reports/settlement/{providerCode}", h.SettlementReportHandler)
	})

	return r
}
