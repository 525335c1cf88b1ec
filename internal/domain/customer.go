/**
 * @description
 * Core domain models for customers and their accounts. These structs map
 * directly to the `customers` and `accounts` tables and are shared by the
 * store, application, and API layers.
 *
 * @notes
 * - Identifiers are checksum-validated Luhn numbers assigned at creation and
 *   immutable afterwards: 8 digits for customers, 10 for accounts.
 * - Customers are never hard-deleted; `Active` is the soft-delete marker and
 *   every read path filters on it explicitly.
 * - Balances use shopspring decimal to mirror the NUMERIC(15,2) column; they
 *   are only ever mutated through the atomic adjustment in the store layer.
 */
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Customer is the identity anchor owning one or more accounts.
type Customer struct {
	CustomerID   int64     `json:"customer_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	MobileNumber string    `json:"mobile_number"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Account is a utility account owned by exactly one customer. At most one
// account per customer carries the main flag.
type Account struct {
	AccountNumber int64           `json:"account_number"`
	CustomerID    int64           `json:"customer_id"`
	Balance       decimal.Decimal `json:"balance"`
	MainAccount   bool            `json:"main_account"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreateCustomerRequest is the DTO for onboarding a new customer. The main
// account is created in the same transaction.
type CreateCustomerRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobile_number"`
}

// UpdateCustomerRequest carries the mutable customer fields. Nil pointers
// leave the current value untouched.
type UpdateCustomerRequest struct {
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	Email        *string `json:"email,omitempty"`
	MobileNumber *string `json:"mobile_number,omitempty"`
}

// CreateAccountRequest opens an additional account for an existing customer.
// MainAccount is a repair path for customers that lost their main account to
// a partial migration; it conflicts when a main account already exists.
type CreateAccountRequest struct {
	MainAccount bool `json:"main_account"`
}

// AdjustBalanceRequest is a back-office balance correction. Amount may be
// negative; the non-negative balance constraint still applies.
type AdjustBalanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Validate rejects no-op and oversized corrections.
func (r AdjustBalanceRequest) Validate() error {
	if r.Amount.IsZero() {
		return NewValidationError("amount", "must not be zero")
	}
	if r.Amount.Exponent() < -2 {
		return NewValidationError("amount", "must have at most two decimal places")
	}
	return nil
}

// NormalizeEmail lowercases and trims an email for storage and uniqueness
// comparison. All email writes and lookups go through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the onboarding request before any identifier is generated.
func (r CreateCustomerRequest) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" {
		return NewValidationError("first_name", "must not be empty")
	}
	if strings.TrimSpace(r.LastName) == "" {
		return NewValidationError("last_name", "must not be empty")
	}
	email := NormalizeEmail(r.Email)
	if email == "" || !strings.Contains(email, "@") || len(email) > 100 {
		return NewValidationError("email", "must be a valid email address")
	}
	mobile := strings.TrimSpace(r.MobileNumber)
	if mobile == "" || len(mobile) > 15 {
		return NewValidationError("mobile_number", "must be 1-15 characters")
	}
	return nil
}
