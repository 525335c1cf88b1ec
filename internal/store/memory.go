/**
 * @description
 * In-memory Repository implementation for tests. Mirrors the constraint
 * semantics of the PostgreSQL implementation — primary-key collisions, the
 * email and provider-code unique constraints, the (provider_id,
 * payment_reference) idempotency key, the non-negative balance check, and
 * active-customer filtering — so the application layer can be exercised
 * without a database.
 *
 * @notes
 * - All methods are safe for concurrent use; deposit tests hammer this from
 *   many goroutines.
 * - FailDepositsAfterInsert simulates a crash between the payment insert and
 *   the balance update: the fake rolls both back, matching the transactional
 *   behavior of the real store.
 */
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mobipay/account-service/internal/domain"
)

// MemoryRepository is a concurrency-safe, map-backed Repository.
type MemoryRepository struct {
	mu sync.Mutex

	customers map[int64]*domain.Customer
	accounts  map[int64]*domain.Account
	providers map[int64]*domain.Provider
	payments  map[string]*domain.Payment // keyed by receipt number

	nextProviderID int64

	// FailDepositsAfterInsert, when positive, makes that many RecordDeposit
	// calls fail after the payment insert would have happened, with full
	// rollback.
	FailDepositsAfterInsert int
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		customers: make(map[int64]*domain.Customer),
		accounts:  make(map[int64]*domain.Account),
		providers: make(map[int64]*domain.Provider),
		payments:  make(map[string]*domain.Payment),
	}
}

// Customers

func (m *MemoryRepository) CreateCustomerWithMainAccount(ctx context.Context, customer *domain.Customer, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[customer.CustomerID]; ok {
		return fmt.Errorf("customer id %d: %w", customer.CustomerID, ErrIDCollision)
	}
	for _, c := range m.customers {
		if c.Email == customer.Email {
			return fmt.Errorf("%w: customer with email %s already exists", domain.ErrDuplicate, customer.Email)
		}
	}
	if _, ok := m.accounts[account.AccountNumber]; ok {
		return fmt.Errorf("account number %d: %w", account.AccountNumber, ErrIDCollision)
	}

	now := time.Now()
	customer.Active = true
	customer.CreatedAt, customer.UpdatedAt = now, now
	account.CreatedAt, account.UpdatedAt = now, now

	cc, ac := *customer, *account
	m.customers[cc.CustomerID] = &cc
	m.accounts[ac.AccountNumber] = &ac
	return nil
}

func (m *MemoryRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) GetCustomer(ctx context.Context, customerID int64) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok || !c.Active {
		return nil, fmt.Errorf("%w: customer %d", domain.ErrNotFound, customerID)
	}
	cc := *c
	return &cc, nil
}

func (m *MemoryRepository) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Customer
	for _, c := range m.customers {
		if c.Active {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

func (m *MemoryRepository) SearchCustomersByMobile(ctx context.Context, fragment string) ([]domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Customer
	for _, c := range m.customers {
		if c.Active && strings.Contains(c.MobileNumber, fragment) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

func (m *MemoryRepository) UpdateCustomer(ctx context.Context, customer *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.customers[customer.CustomerID]
	if !ok || !existing.Active {
		return fmt.Errorf("%w: customer %d", domain.ErrNotFound, customer.CustomerID)
	}
	for id, c := range m.customers {
		if id != customer.CustomerID && c.Email == customer.Email {
			return fmt.Errorf("%w: customer with email %s already exists", domain.ErrDuplicate, customer.Email)
		}
	}
	customer.Active = existing.Active
	customer.CreatedAt = existing.CreatedAt
	customer.UpdatedAt = time.Now()
	cc := *customer
	m.customers[customer.CustomerID] = &cc
	return nil
}

func (m *MemoryRepository) DeactivateCustomer(ctx context.Context, customerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok || !c.Active {
		return fmt.Errorf("%w: customer %d", domain.ErrNotFound, customerID)
	}
	c.Active = false
	c.UpdatedAt = time.Now()
	return nil
}

// Accounts

func (m *MemoryRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.AccountNumber]; ok {
		return fmt.Errorf("account number %d: %w", account.AccountNumber, ErrIDCollision)
	}
	if account.MainAccount {
		for _, a := range m.accounts {
			if a.CustomerID == account.CustomerID && a.MainAccount {
				return fmt.Errorf("%w: customer %d already has a main account", domain.ErrDuplicate, account.CustomerID)
			}
		}
	}
	now := time.Now()
	account.CreatedAt, account.UpdatedAt = now, now
	ac := *account
	m.accounts[ac.AccountNumber] = &ac
	return nil
}

func (m *MemoryRepository) HasMainAccount(ctx context.Context, customerID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.CustomerID == customerID && a.MainAccount {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) GetAccount(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getActiveAccountLocked(accountNumber)
}

// getActiveAccountLocked requires m.mu held.
func (m *MemoryRepository) getActiveAccountLocked(accountNumber int64) (*domain.Account, error) {
	a, ok := m.accounts[accountNumber]
	if !ok {
		return nil, fmt.Errorf("%w: account %d", domain.ErrNotFound, accountNumber)
	}
	c, ok := m.customers[a.CustomerID]
	if !ok || !c.Active {
		return nil, fmt.Errorf("%w: account %d", domain.ErrNotFound, accountNumber)
	}
	ac := *a
	return &ac, nil
}

func (m *MemoryRepository) GetMainAccount(ctx context.Context, customerID int64) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok || !c.Active {
		return nil, fmt.Errorf("%w: main account for customer %d", domain.ErrNotFound, customerID)
	}
	for _, a := range m.accounts {
		if a.CustomerID == customerID && a.MainAccount {
			ac := *a
			return &ac, nil
		}
	}
	return nil, fmt.Errorf("%w: main account for customer %d", domain.ErrNotFound, customerID)
}

func (m *MemoryRepository) ListCustomerAccounts(ctx context.Context, customerID int64) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok || !c.Active {
		return nil, nil
	}
	var out []domain.Account
	for _, a := range m.accounts {
		if a.CustomerID == customerID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MainAccount != out[j].MainAccount {
			return out[i].MainAccount
		}
		return out[i].AccountNumber < out[j].AccountNumber
	})
	return out, nil
}

func (m *MemoryRepository) AdjustBalance(ctx context.Context, accountNumber int64, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustBalanceLocked(accountNumber, delta)
}

// adjustBalanceLocked requires m.mu held.
func (m *MemoryRepository) adjustBalanceLocked(accountNumber int64, delta decimal.Decimal) error {
	a, ok := m.accounts[accountNumber]
	if !ok {
		return fmt.Errorf("%w: account %d not found or owner inactive", domain.ErrNotFound, accountNumber)
	}
	c, ok := m.customers[a.CustomerID]
	if !ok || !c.Active {
		return fmt.Errorf("%w: account %d not found or owner inactive", domain.ErrNotFound, accountNumber)
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("%w: account %d", domain.ErrBalanceUpdate, accountNumber)
	}
	a.Balance = next
	a.UpdatedAt = time.Now()
	return nil
}

// Payments

func (m *MemoryRepository) RecordDeposit(ctx context.Context, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.payments {
		if p.ProviderID == payment.ProviderID && p.PaymentReference == payment.PaymentReference {
			return fmt.Errorf("provider %d reference %q: %w",
				payment.ProviderID, payment.PaymentReference, ErrDuplicateReference)
		}
	}

	if m.FailDepositsAfterInsert > 0 {
		m.FailDepositsAfterInsert--
		return fmt.Errorf("record deposit: simulated storage failure")
	}

	if err := m.adjustBalanceLocked(payment.AccountNumber, payment.Amount); err != nil {
		return err
	}

	payment.PaymentDate = time.Now()
	pc := *payment
	m.payments[pc.ReceiptNumber] = &pc
	return nil
}

func (m *MemoryRepository) GetPaymentByProviderAndReference(ctx context.Context, providerID int64, reference string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ProviderID == providerID && p.PaymentReference == reference {
			pc := *p
			return &pc, nil
		}
	}
	return nil, fmt.Errorf("%w: payment for provider %d reference %q", domain.ErrNotFound, providerID, reference)
}

func (m *MemoryRepository) GetPaymentDetails(ctx context.Context, providerID int64, reference string) (*domain.PaymentDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ProviderID == providerID && p.PaymentReference == reference {
			return m.detailsLocked(p)
		}
	}
	return nil, fmt.Errorf("%w: payment for provider %d reference %q", domain.ErrNotFound, providerID, reference)
}

// detailsLocked requires m.mu held.
func (m *MemoryRepository) detailsLocked(p *domain.Payment) (*domain.PaymentDetails, error) {
	prov, ok := m.providers[p.ProviderID]
	if !ok {
		return nil, fmt.Errorf("%w: provider %d", domain.ErrNotFound, p.ProviderID)
	}
	acct, ok := m.accounts[p.AccountNumber]
	if !ok {
		return nil, fmt.Errorf("%w: account %d", domain.ErrNotFound, p.AccountNumber)
	}
	return &domain.PaymentDetails{
		Payment:      *p,
		ProviderCode: prov.Code,
		ProviderName: prov.Name,
		CustomerID:   acct.CustomerID,
	}, nil
}

func (m *MemoryRepository) matchesLocked(p *domain.Payment, f domain.PaymentFilter) bool {
	if f.AccountNumber != nil && p.AccountNumber != *f.AccountNumber {
		return false
	}
	if f.CustomerID != nil {
		a, ok := m.accounts[p.AccountNumber]
		if !ok || a.CustomerID != *f.CustomerID {
			return false
		}
	}
	if f.ProviderCode != nil {
		prov, ok := m.providers[p.ProviderID]
		if !ok || prov.Code != *f.ProviderCode {
			return false
		}
	}
	if f.From != nil && p.PaymentDate.Before(*f.From) {
		return false
	}
	if f.To != nil && !p.PaymentDate.Before(*f.To) {
		return false
	}
	return true
}

func (m *MemoryRepository) SearchPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.PaymentDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentDetails
	for _, p := range m.payments {
		if !m.matchesLocked(p, filter) {
			continue
		}
		d, err := m.detailsLocked(p)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDate.After(out[j].PaymentDate) })
	return out, nil
}

func (m *MemoryRepository) GlobalTotals(ctx context.Context, filter domain.PaymentFilter) (domain.PaymentTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := domain.PaymentTotals{Total: decimal.Zero}
	for _, p := range m.payments {
		if m.matchesLocked(p, filter) {
			t.Total = t.Total.Add(p.Amount)
			t.Count++
		}
	}
	return t, nil
}

func (m *MemoryRepository) TotalsByProvider(ctx context.Context, filter domain.PaymentFilter) ([]domain.ProviderBreakdown, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.breakdownLocked(func(p *domain.Payment) bool { return m.matchesLocked(p, filter) })
}

func (m *MemoryRepository) AccountTotals(ctx context.Context, accountNumber int64) (domain.PaymentTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := domain.PaymentTotals{Total: decimal.Zero}
	for _, p := range m.payments {
		if p.AccountNumber == accountNumber {
			t.Total = t.Total.Add(p.Amount)
			t.Count++
		}
	}
	return t, nil
}

func (m *MemoryRepository) AccountTotalsByProvider(ctx context.Context, accountNumber int64) ([]domain.ProviderBreakdown, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.breakdownLocked(func(p *domain.Payment) bool { return p.AccountNumber == accountNumber })
}

// breakdownLocked requires m.mu held.
func (m *MemoryRepository) breakdownLocked(match func(*domain.Payment) bool) ([]domain.ProviderBreakdown, error) {
	byProvider := make(map[int64]*domain.ProviderBreakdown)
	for _, p := range m.payments {
		if !match(p) {
			continue
		}
		b, ok := byProvider[p.ProviderID]
		if !ok {
			prov, found := m.providers[p.ProviderID]
			if !found {
				return nil, fmt.Errorf("%w: provider %d", domain.ErrNotFound, p.ProviderID)
			}
			b = &domain.ProviderBreakdown{
				ProviderCode: prov.Code,
				ProviderName: prov.Name,
				Total:        decimal.Zero,
			}
			byProvider[p.ProviderID] = b
		}
		b.Total = b.Total.Add(p.Amount)
		b.Count++
	}
	var out []domain.ProviderBreakdown
	for _, b := range byProvider {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })
	return out, nil
}

func (m *MemoryRepository) PaymentsByProviderCode(ctx context.Context, providerCode string, filter domain.PaymentFilter) ([]domain.PaymentDetails, error) {
	filter.ProviderCode = &providerCode
	filter.AccountNumber = nil
	filter.CustomerID = nil
	out, err := m.SearchPayments(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDate.Before(out[j].PaymentDate) })
	return out, nil
}

// Providers

func (m *MemoryRepository) CreateProvider(ctx context.Context, provider *domain.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.providers {
		if p.Code == provider.Code {
			return fmt.Errorf("%w: provider code %s already exists", domain.ErrDuplicate, provider.Code)
		}
	}
	m.nextProviderID++
	provider.ID = m.nextProviderID
	provider.Active = true
	now := time.Now()
	provider.CreatedAt, provider.UpdatedAt = now, now
	pc := *provider
	m.providers[pc.ID] = &pc
	return nil
}

func (m *MemoryRepository) GetProvider(ctx context.Context, id int64) (*domain.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: provider %d", domain.ErrNotFound, id)
	}
	pc := *p
	return &pc, nil
}

func (m *MemoryRepository) GetProviderByCode(ctx context.Context, code string) (*domain.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.providers {
		if p.Code == code {
			pc := *p
			return &pc, nil
		}
	}
	return nil, fmt.Errorf("%w: provider %s", domain.ErrNotFound, code)
}

func (m *MemoryRepository) ListProviders(ctx context.Context) ([]domain.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Provider
	for _, p := range m.providers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *MemoryRepository) UpdateProviderName(ctx context.Context, id int64, name string) (*domain.Provider, error) {
	return m.mutateProvider(id, func(p *domain.Provider) { p.Name = name })
}

func (m *MemoryRepository) SetProviderActive(ctx context.Context, id int64, active bool) (*domain.Provider, error) {
	return m.mutateProvider(id, func(p *domain.Provider) { p.Active = active })
}

func (m *MemoryRepository) UpdateProviderKey(ctx context.Context, id int64, keyHash, keyPrefix string) (*domain.Provider, error) {
	return m.mutateProvider(id, func(p *domain.Provider) {
		p.APIKeyHash = keyHash
		p.APIKeyPrefix = keyPrefix
	})
}

func (m *MemoryRepository) mutateProvider(id int64, mutate func(*domain.Provider)) (*domain.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: provider", domain.ErrNotFound)
	}
	mutate(p)
	p.UpdatedAt = time.Now()
	pc := *p
	return &pc, nil
}

func (m *MemoryRepository) FindActiveProviderByKeyHash(ctx context.Context, keyHash string) (*domain.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.providers {
		if p.Active && p.APIKeyHash == keyHash {
			pc := *p
			return &pc, nil
		}
	}
	return nil, fmt.Errorf("%w: no active provider for key", domain.ErrNotFound)
}
