/**
 * @description
 * Back-office endpoints for customer and account management: onboarding,
 * reads, search, partial update, soft delete, and secondary account
 * creation.
 */

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mobipay/account-service/internal/domain"
)

type createCustomerResponse struct {
	Customer domain.Customer `json:"customer"`
	Account  domain.Account  `json:"account"`
}

// CreateCustomerHandler onboards a customer with their main account.
func (h *Handlers) CreateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCustomerRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	customer, account, err := h.service.CreateCustomer(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, createCustomerResponse{Customer: *customer, Account: *account})
}

// ListCustomersHandler lists active customers; with a mobile_number query
// parameter it becomes a partial-match search.
func (h *Handlers) ListCustomersHandler(w http.ResponseWriter, r *http.Request) {
	var (
		customers []domain.Customer
		err       error
	)
	if fragment := strings.TrimSpace(r.URL.Query().Get("mobile_number")); fragment != "" {
		customers, err = h.service.SearchCustomersByMobile(r.Context(), fragment)
	} else {
		customers, err = h.service.ListCustomers(r.Context())
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if customers == nil {
		customers = []domain.Customer{}
	}
	h.writeJSON(w, http.StatusOK, customers)
}

// GetCustomerHandler returns one active customer.
func (h *Handlers) GetCustomerHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.pathInt64(w, r, "customerID")
	if !ok {
		return
	}
	customer, err := h.service.GetCustomer(r.Context(), customerID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, customer)
}

// UpdateCustomerHandler applies a partial update to a customer.
func (h *Handlers) UpdateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.pathInt64(w, r, "customerID")
	if !ok {
		return
	}
	var req domain.UpdateCustomerRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	customer, err := h.service.UpdateCustomer(r.Context(), customerID, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, customer)
}

// DeactivateCustomerHandler soft-deletes a customer.
func (h *Handlers) DeactivateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.pathInt64(w, r, "customerID")
	if !ok {
		return
	}
	if err := h.service.DeactivateCustomer(r.Context(), customerID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCustomerAccountsHandler lists a customer's accounts, main first.
func (h *Handlers) ListCustomerAccountsHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.pathInt64(w, r, "customerID")
	if !ok {
		return
	}
	accounts, err := h.service.ListCustomerAccounts(r.Context(), customerID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

// CreateAccountHandler opens an additional account for a customer. The body
// is optional; without one a secondary account is created.
func (h *Handlers) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.pathInt64(w, r, "customerID")
	if !ok {
		return
	}
	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.service.CreateAccount(r.Context(), customerID, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, account)
}

// AdjustBalanceHandler applies a back-office balance correction. A debit
// below zero is rejected without changing the balance.
func (h *Handlers) AdjustBalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := h.pathInt64(w, r, "accountNumber")
	if !ok {
		return
	}
	var req domain.AdjustBalanceRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	account, err := h.service.AdjustAccountBalance(r.Context(), accountNumber, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// GetAccountHandler returns one account with its balance.
func (h *Handlers) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := h.pathInt64(w, r, "accountNumber")
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), accountNumber)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}
