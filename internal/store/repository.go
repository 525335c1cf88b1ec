/**
 * @description
 * This file defines the Repository interface: the complete data-access
 * contract the application layer programs against. The production
 * implementation is PostgresRepository; tests use the in-memory
 * implementation in memory.go.
 *
 * @notes
 * - Store-level sentinel errors signal the two storage outcomes the pipeline
 *   must reclassify rather than surface raw: a unique violation on the
 *   payment idempotency key, and a primary-key collision on a generated
 *   Luhn identifier. Everything else maps straight onto the domain taxonomy.
 * - Every customer/account read filters on the owning customer's active
 *   flag. Soft-deleted data is physically present but logically gone.
 */
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mobipay/account-service/internal/domain"
)

var (
	// ErrDuplicateReference is the unique violation on
	// (provider_id, payment_reference). The deposit pipeline resolves it into
	// an idempotent replay or a conflict; it never reaches the API raw.
	ErrDuplicateReference = errors.New("payment reference already recorded for provider")

	// ErrIDCollision is a primary-key collision on a freshly generated
	// customer ID or account number. The onboarding flow retries it with a
	// fresh identifier; an email conflict is deliberately NOT this error.
	ErrIDCollision = errors.New("generated identifier collided")
)

// Repository is the data-access contract for the service.
type Repository interface {
	// Customers

	// CreateCustomerWithMainAccount inserts the customer and their main
	// account in one transaction. Returns ErrIDCollision when either
	// generated identifier hits an existing primary key, and
	// domain.ErrDuplicate when the email is already registered.
	CreateCustomerWithMainAccount(ctx context.Context, customer *domain.Customer, account *domain.Account) error

	// EmailExists reports whether any customer, active or soft-deleted,
	// already uses the normalized email.
	EmailExists(ctx context.Context, email string) (bool, error)

	GetCustomer(ctx context.Context, customerID int64) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	SearchCustomersByMobile(ctx context.Context, fragment string) ([]domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer *domain.Customer) error
	DeactivateCustomer(ctx context.Context, customerID int64) error

	// Accounts

	// CreateAccount inserts a secondary account. ErrIDCollision on account
	// number collision; domain.ErrDuplicate when the main flag is set and a
	// main account already exists for the customer.
	CreateAccount(ctx context.Context, account *domain.Account) error

	HasMainAccount(ctx context.Context, customerID int64) (bool, error)

	// GetAccount returns the account only when its owning customer is
	// active; otherwise domain.ErrNotFound.
	GetAccount(ctx context.Context, accountNumber int64) (*domain.Account, error)

	// GetMainAccount resolves an active customer's main account.
	GetMainAccount(ctx context.Context, customerID int64) (*domain.Account, error)

	ListCustomerAccounts(ctx context.Context, customerID int64) ([]domain.Account, error)

	// AdjustBalance applies balance = balance + delta as one atomic
	// statement guarded on the account number and an active owner. Zero rows
	// affected surfaces as domain.ErrNotFound; a constraint violation (e.g.
	// the non-negative balance check) as domain.ErrBalanceUpdate.
	AdjustBalance(ctx context.Context, accountNumber int64, delta decimal.Decimal) error

	// Payments

	// RecordDeposit runs the insert-first deposit transaction: INSERT the
	// payment row, then the atomic balance adjustment, commit. A unique
	// violation on the idempotency key rolls the whole transaction back and
	// returns ErrDuplicateReference with no balance effect.
	RecordDeposit(ctx context.Context, payment *domain.Payment) error

	// GetPaymentByProviderAndReference is the duplicate-resolution lookup.
	// It runs on a fresh connection, never inside the failed transaction.
	GetPaymentByProviderAndReference(ctx context.Context, providerID int64, reference string) (*domain.Payment, error)

	// GetPaymentDetails returns the eager projection (provider and customer
	// joined in) for confirmation lookups.
	GetPaymentDetails(ctx context.Context, providerID int64, reference string) (*domain.PaymentDetails, error)

	// Reporting (read-only aggregation; no invariants of its own)

	SearchPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.PaymentDetails, error)
	GlobalTotals(ctx context.Context, filter domain.PaymentFilter) (domain.PaymentTotals, error)
	TotalsByProvider(ctx context.Context, filter domain.PaymentFilter) ([]domain.ProviderBreakdown, error)
	AccountTotals(ctx context.Context, accountNumber int64) (domain.PaymentTotals, error)
	AccountTotalsByProvider(ctx context.Context, accountNumber int64) ([]domain.ProviderBreakdown, error)
	PaymentsByProviderCode(ctx context.Context, providerCode string, filter domain.PaymentFilter) ([]domain.PaymentDetails, error)

	// Providers

	// CreateProvider inserts a provider; domain.ErrDuplicate when the code
	// is taken.
	CreateProvider(ctx context.Context, provider *domain.Provider) error

	GetProvider(ctx context.Context, id int64) (*domain.Provider, error)
	GetProviderByCode(ctx context.Context, code string) (*domain.Provider, error)
	ListProviders(ctx context.Context) ([]domain.Provider, error)
	UpdateProviderName(ctx context.Context, id int64, name string) (*domain.Provider, error)
	SetProviderActive(ctx context.Context, id int64, active bool) (*domain.Provider, error)
	UpdateProviderKey(ctx context.Context, id int64, keyHash, keyPrefix string) (*domain.Provider, error)

	// FindActiveProviderByKeyHash is the cache-aside fallback: resolve an
	// API key hash to an active provider, or domain.ErrNotFound.
	FindActiveProviderByKeyHash(ctx context.Context, keyHash string) (*domain.Provider, error)
}
