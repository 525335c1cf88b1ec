/**
 * @description
 * Back-office reporting endpoints: payment search with optional filters,
 * totals, per-provider breakdowns, per-account summaries, and provider
 * settlement reports.
 *
 * @notes
 * - All filters are query parameters and all are optional. Timestamps use
 *   RFC 3339; the `to` bound is exclusive.
 */

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mobipay/account-service/internal/domain"
)

// parsePaymentFilter reads the optional filter query parameters. The bool
// result is false when a parameter was present but malformed (response
// already written).
func (h *Handlers) parsePaymentFilter(w http.ResponseWriter, r *http.Request) (domain.PaymentFilter, bool) {
	var filter domain.PaymentFilter
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("account_number")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "account_number must be numeric")
			return filter, false
		}
		filter.AccountNumber = &value
	}
	if raw := strings.TrimSpace(q.Get("customer_id")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "customer_id must be numeric")
			return filter, false
		}
		filter.CustomerID = &value
	}
	if raw := strings.TrimSpace(q.Get("provider_code")); raw != "" {
		code := strings.ToUpper(raw)
		filter.ProviderCode = &code
	}
	var ok bool
	if filter.From, ok = h.parseTimeParam(w, q.Get("from"), "from"); !ok {
		return filter, false
	}
	if filter.To, ok = h.parseTimeParam(w, q.Get("to"), "to"); !ok {
		return filter, false
	}
	return filter, true
}

func (h *Handlers) parseTimeParam(w http.ResponseWriter, raw, name string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, name+" must be an RFC 3339 timestamp")
		return nil, false
	}
	return &value, true
}

// SearchPaymentsHandler returns payments matching the filters, newest first.
func (h *Handlers) SearchPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parsePaymentFilter(w, r)
	if !ok {
		return
	}
	payments, err := h.service.SearchPayments(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if payments == nil {
		payments = []domain.PaymentDetails{}
	}
	h.writeJSON(w, http.StatusOK, payments)
}

// PaymentTotalsHandler returns the aggregate over the filtered payments.
func (h *Handlers) PaymentTotalsHandler(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parsePaymentFilter(w, r)
	if !ok {
		return
	}
	totals, err := h.service.PaymentTotals(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, totals)
}

// PaymentTotalsByProviderHandler groups the filtered totals per provider.
func (h *Handlers) PaymentTotalsByProviderHandler(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parsePaymentFilter(w, r)
	if !ok {
		return
	}
	breakdown, err := h.service.PaymentTotalsByProvider(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if breakdown == nil {
		breakdown = []domain.ProviderBreakdown{}
	}
	h.writeJSON(w, http.StatusOK, breakdown)
}

type accountSummaryResponse struct {
	Totals     domain.PaymentTotals       `json:"totals"`
	ByProvider []domain.ProviderBreakdown `json:"by_provider"`
}

// AccountDepositSummaryHandler returns one account's lifetime deposit totals.
func (h *Handlers) AccountDepositSummaryHandler(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := h.pathInt64(w, r, "accountNumber")
	if !ok {
		return
	}
	totals, breakdown, err := h.service.AccountDepositSummary(r.Context(), accountNumber)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if breakdown == nil {
		breakdown = []domain.ProviderBreakdown{}
	}
	h.writeJSON(w, http.StatusOK, accountSummaryResponse{Totals: totals, ByProvider: breakdown})
}

// SettlementReportHandler builds a provider's settlement report for a period.
func (h *Handlers) SettlementReportHandler(w http.ResponseWriter, r *http.Request) {
	providerCode := chi.URLParam(r, "providerCode")

	q := r.URL.Query()
	from, ok := h.parseTimeParam(w, q.Get("from"), "from")
	if !ok {
		return
	}
	to, ok := h.parseTimeParam(w, q.Get("to"), "to")
	if !ok {
		return
	}

	report, err := h.service.SettlementReport(r.Context(), providerCode, from, to)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}
