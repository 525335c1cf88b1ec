/**
 * @description
 * Domain models for payments and payment providers, plus the deposit DTOs
 * exchanged with providers over the API.
 *
 * @notes
 * - A Payment is an immutable audit record: created once, never mutated or
 *   deleted. Its (ProviderID, PaymentReference) pair is the idempotency key
 *   and carries a database unique constraint that the deposit pipeline leans
 *   on for correctness.
 * - Provider API key hashes never leave the service; the hash field is
 *   excluded from JSON serialization.
 */
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxReferenceLength bounds the provider-supplied payment reference.
const MaxReferenceLength = 64

// Payment is one recorded deposit. ReceiptNumber is a time-ordered UUID (v7)
// assigned at creation and used as the primary key.
type Payment struct {
	ReceiptNumber    string          `json:"receipt_number"`
	AccountNumber    int64           `json:"account_number"`
	Amount           decimal.Decimal `json:"amount"`
	ProviderID       int64           `json:"provider_id"`
	PaymentReference string          `json:"payment_reference"`
	PaymentDate      time.Time       `json:"payment_date"`
}

// PaymentDetails is the eagerly-populated projection returned by lookups and
// reports: the payment joined with its provider and owning customer. No lazy
// loading anywhere — every query returns this fully filled.
type PaymentDetails struct {
	Payment
	ProviderCode string `json:"provider_code"`
	ProviderName string `json:"provider_name"`
	CustomerID   int64  `json:"customer_id"`
}

// Provider is an external payment processor allowed to submit deposits.
type Provider struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	APIKeyHash   string    `json:"-"`
	APIKeyPrefix string    `json:"api_key_prefix"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DepositRequest is the provider-facing DTO for recording a deposit against
// an account or a customer's main account.
type DepositRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// Validate is the explicit guard at the pipeline entry: positive amount with
// at most two fractional digits, and a non-empty bounded reference.
func (r DepositRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return NewValidationError("amount", "must be positive")
	}
	if r.Amount.Exponent() < -2 {
		return NewValidationError("amount", "must have at most 2 decimal places")
	}
	ref := strings.TrimSpace(r.Reference)
	if ref == "" {
		return NewValidationError("reference", "must not be empty")
	}
	if len(ref) > MaxReferenceLength {
		return NewValidationError("reference", "must be at most 64 characters")
	}
	return nil
}

// CreateProviderRequest onboards a new payment provider.
type CreateProviderRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Validate checks provider onboarding input.
func (r CreateProviderRequest) Validate() error {
	code := strings.TrimSpace(r.Code)
	if code == "" || len(code) > 50 {
		return NewValidationError("code", "must be 1-50 characters")
	}
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "must not be empty")
	}
	return nil
}

// UpdateProviderRequest renames a provider.
type UpdateProviderRequest struct {
	Name string `json:"name"`
}

// ProviderCredentials couples a provider row with the raw API key it was just
// issued. The raw key exists only in this value and the HTTP response that
// carries it; it is never persisted.
type ProviderCredentials struct {
	Provider Provider `json:"provider"`
	RawKey   string   `json:"api_key"`
}

// PaymentFilter holds the all-optional reporting search filters. Nil fields
// are not applied.
type PaymentFilter struct {
	AccountNumber *int64
	CustomerID    *int64
	ProviderCode  *string
	From          *time.Time
	To            *time.Time
}

// PaymentTotals is an aggregate over a set of payments.
type PaymentTotals struct {
	Total decimal.Decimal `json:"total"`
	Count int64           `json:"count"`
}

// ProviderBreakdown is PaymentTotals grouped by provider, ordered by total
// descending.
type ProviderBreakdown struct {
	ProviderCode string          `json:"provider_code"`
	ProviderName string          `json:"provider_name"`
	Total        decimal.Decimal `json:"total"`
	Count        int64           `json:"count"`
}

// SettlementReport lists every payment a provider submitted in a period,
// with the period totals, for reconciliation against the provider's books.
type SettlementReport struct {
	ProviderCode string           `json:"provider_code"`
	ProviderName string           `json:"provider_name"`
	From         *time.Time       `json:"from,omitempty"`
	To           *time.Time       `json:"to,omitempty"`
	Totals       PaymentTotals    `json:"totals"`
	Payments     []PaymentDetails `json:"payments"`
}
