/**
 * @description
 * PostgreSQL implementation of the Repository interface: customers and
 * accounts. Payments and providers live in postgres_payments.go and
 * postgres_providers.go.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver; pgconn for error-code
 *   inspection, pgxpool for connection pooling.
 * - github.com/shopspring/decimal: NUMERIC(15,2) balances and amounts.
 *
 * @notes
 * - Uniqueness and collision outcomes are reclassified here, at the edge,
 *   by constraint name. The application layer never sees a raw *pgconn.PgError
 *   for a duplicate.
 * - All customer/account reads join on customers.active. A row owned by a
 *   soft-deleted customer is reported as domain.ErrNotFound.
 */
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mobipay/account-service/internal/domain"
)

// Constraint names from schema.sql. Error reclassification keys off these.
const (
	constraintCustomersPK        = "customers_pkey"
	constraintAccountsPK         = "accounts_pkey"
	constraintCustomerEmail      = "uq_customers_email"
	constraintOneMainPerCustomer = "uq_accounts_one_main_per_customer"
	constraintProviderReference  = "uq_payments_provider_reference"
	constraintProviderCode       = "uq_payment_providers_code"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// atomic balance adjustment can run standalone or inside the deposit
// transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository is the production Repository backed by a pgx pool.
type PostgresRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool, logger *zap.Logger) *PostgresRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresRepository{db: db, logger: logger}
}

func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func checkViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

// CreateCustomerWithMainAccount inserts the customer row and the main
// account in one transaction. The INSERTs themselves surface primary-key
// collisions immediately, so a collision aborts before the account is
// touched and the caller can retry the whole attempt with fresh identifiers.
func (r *PostgresRepository) CreateCustomerWithMainAccount(ctx context.Context, customer *domain.Customer, account *domain.Account) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin onboarding tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO customers (customer_id, first_name, last_name, email, mobile_number, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		customer.CustomerID, customer.FirstName, customer.LastName,
		customer.Email, customer.MobileNumber,
	).Scan(&customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		switch {
		case uniqueViolation(err, constraintCustomersPK):
			return fmt.Errorf("customer id %d: %w", customer.CustomerID, ErrIDCollision)
		case uniqueViolation(err, constraintCustomerEmail):
			return fmt.Errorf("%w: customer with email %s already exists", domain.ErrDuplicate, customer.Email)
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	customer.Active = true

	if err := insertAccount(ctx, tx, account); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit onboarding tx: %w", err)
	}
	return nil
}

func insertAccount(ctx context.Context, q querier, account *domain.Account) error {
	query := `
		INSERT INTO accounts (account_number, customer_id, balance, is_main_account)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		account.AccountNumber, account.CustomerID, account.Balance, account.MainAccount,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		switch {
		case uniqueViolation(err, constraintAccountsPK):
			return fmt.Errorf("account number %d: %w", account.AccountNumber, ErrIDCollision)
		case uniqueViolation(err, constraintOneMainPerCustomer):
			return fmt.Errorf("%w: customer %d already has a main account", domain.ErrDuplicate, account.CustomerID)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// EmailExists checks all customers, including soft-deleted ones, so an email
// conflict with an inactive customer is a clean duplicate instead of a raw
// constraint crash at insert time.
func (r *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

const customerColumns = `customer_id, first_name, last_name, email, mobile_number, active, created_at, updated_at`

func scanCustomer(row pgx.Row, c *domain.Customer) error {
	return row.Scan(&c.CustomerID, &c.FirstName, &c.LastName, &c.Email,
		&c.MobileNumber, &c.Active, &c.CreatedAt, &c.UpdatedAt)
}

func (r *PostgresRepository) GetCustomer(ctx context.Context, customerID int64) (*domain.Customer, error) {
	var c domain.Customer
	query := `SELECT ` + customerColumns + ` FROM customers WHERE customer_id = $1 AND active`
	if err := scanCustomer(r.db.QueryRow(ctx, query, customerID), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer %d", domain.ErrNotFound, customerID)
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE active ORDER BY created_at`
	return r.queryCustomers(ctx, query)
}

func (r *PostgresRepository) SearchCustomersByMobile(ctx context.Context, fragment string) ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE active AND mobile_number LIKE '%' || $1 || '%' ORDER BY created_at`
	return r.queryCustomers(ctx, query, fragment)
}

func (r *PostgresRepository) queryCustomers(ctx context.Context, query string, args ...any) ([]domain.Customer, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *PostgresRepository) UpdateCustomer(ctx context.Context, customer *domain.Customer) error {
	query := `
		UPDATE customers
		SET first_name = $1, last_name = $2, email = $3, mobile_number = $4, updated_at = now()
		WHERE customer_id = $5 AND active
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		customer.FirstName, customer.LastName, customer.Email,
		customer.MobileNumber, customer.CustomerID,
	).Scan(&customer.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: customer %d", domain.ErrNotFound, customer.CustomerID)
		}
		if uniqueViolation(err, constraintCustomerEmail) {
			return fmt.Errorf("%w: customer with email %s already exists", domain.ErrDuplicate, customer.Email)
		}
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeactivateCustomer(ctx context.Context, customerID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customers SET active = FALSE, updated_at = now() WHERE customer_id = $1 AND active`,
		customerID,
	)
	if err != nil {
		return fmt.Errorf("deactivate customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: customer %d", domain.ErrNotFound, customerID)
	}
	return nil
}

// Accounts

func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	return insertAccount(ctx, r.db, account)
}

func (r *PostgresRepository) HasMainAccount(ctx context.Context, customerID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE customer_id = $1 AND is_main_account)`,
		customerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check main account: %w", err)
	}
	return exists, nil
}

const accountColumns = `a.account_number, a.customer_id, a.balance, a.is_main_account, a.created_at, a.updated_at`

func scanAccount(row pgx.Row, a *domain.Account) error {
	return row.Scan(&a.AccountNumber, &a.CustomerID, &a.Balance,
		&a.MainAccount, &a.CreatedAt, &a.UpdatedAt)
}

func (r *PostgresRepository) GetAccount(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	var a domain.Account
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		JOIN customers c ON c.customer_id = a.customer_id
		WHERE a.account_number = $1 AND c.active
	`
	if err := scanAccount(r.db.QueryRow(ctx, query, accountNumber), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %d", domain.ErrNotFound, accountNumber)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) GetMainAccount(ctx context.Context, customerID int64) (*domain.Account, error) {
	var a domain.Account
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		JOIN customers c ON c.customer_id = a.customer_id
		WHERE a.customer_id = $1 AND a.is_main_account AND c.active
	`
	if err := scanAccount(r.db.QueryRow(ctx, query, customerID), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: main account for customer %d", domain.ErrNotFound, customerID)
		}
		return nil, fmt.Errorf("get main account: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) ListCustomerAccounts(ctx context.Context, customerID int64) ([]domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		JOIN customers c ON c.customer_id = a.customer_id
		WHERE a.customer_id = $1 AND c.active
		ORDER BY a.is_main_account DESC, a.created_at
	`
	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AdjustBalance is the single atomic balance mutation in the system:
// one UPDATE statement, guarded on the account number and an active owning
// customer, refreshing updated_at in the same statement. Never read-then-write.
func (r *PostgresRepository) AdjustBalance(ctx context.Context, accountNumber int64, delta decimal.Decimal) error {
	return adjustBalance(ctx, r.db, accountNumber, delta)
}

func adjustBalance(ctx context.Context, q querier, accountNumber int64, delta decimal.Decimal) error {
	query := `
		UPDATE accounts a
		SET balance = a.balance + $1, updated_at = now()
		FROM customers c
		WHERE a.account_number = $2 AND c.customer_id = a.customer_id AND c.active
	`
	tag, err := q.Exec(ctx, query, delta, accountNumber)
	if err != nil {
		if checkViolation(err) {
			return fmt.Errorf("%w: account %d", domain.ErrBalanceUpdate, accountNumber)
		}
		return fmt.Errorf("adjust balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %d not found or owner inactive", domain.ErrNotFound, accountNumber)
	}
	return nil
}
