/**
 * @description
 * Provider-facing deposit endpoints: record a deposit into an account or a
 * customer's main account, and look up a previously recorded deposit by the
 * provider's own reference.
 *
 * @notes
 * - A fresh deposit returns 201; an idempotent replay returns 200 with the
 *   originally recorded payment. Integrating providers can retry blindly.
 */

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mobipay/account-service/internal/domain"
)

type depositResponse struct {
	domain.Payment
	Replayed bool `json:"replayed"`
}

// DepositToAccountHandler records a deposit into a specific account.
func (h *Handlers) DepositToAccountHandler(w http.ResponseWriter, r *http.Request) {
	provider, ok := GetProvider(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "provider missing from context")
		return
	}
	accountNumber, ok := h.pathInt64(w, r, "accountNumber")
	if !ok {
		return
	}
	var req domain.DepositRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.DepositToAccount(r.Context(), provider, accountNumber, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeDepositResult(w, result.Payment, result.Replayed)
}

// DepositToCustomerHandler records a deposit into a customer's main account.
func (h *Handlers) DepositToCustomerHandler(w http.ResponseWriter, r *http.Request) {
	provider, ok := GetProvider(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "provider missing from context")
		return
	}
	customerID, ok := h.pathInt64(w, r, "customerID")
	if !ok {
		return
	}
	var req domain.DepositRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.DepositToCustomer(r.Context(), provider, customerID, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeDepositResult(w, result.Payment, result.Replayed)
}

func (h *Handlers) writeDepositResult(w http.ResponseWriter, payment domain.Payment, replayed bool) {
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	h.writeJSON(w, status, depositResponse{Payment: payment, Replayed: replayed})
}

// DepositConfirmationHandler returns the recorded payment for the calling
// provider's reference, with provider and customer details included.
func (h *Handlers) DepositConfirmationHandler(w http.ResponseWriter, r *http.Request) {
	provider, ok := GetProvider(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "provider missing from context")
		return
	}
	reference := chi.URLParam(r, "reference")

	details, err := h.service.GetDepositConfirmation(r.Context(), provider, reference)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, details)
}
