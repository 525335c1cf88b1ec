/**
 * @description
 * PostgreSQL payment persistence: the insert-first deposit transaction, the
 * duplicate-resolution lookups, and the read-only reporting aggregations.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: transactions and error-code inspection.
 * - github.com/shopspring/decimal: NUMERIC amounts and totals.
 *
 * @notes
 * - RecordDeposit inserts the payment row BEFORE touching the balance. The
 *   unique constraint on (provider_id, payment_reference) fires on the
 *   insert, so a replayed reference rolls the transaction back with the
 *   balance untouched. Reordering these statements breaks idempotency.
 * - Reporting filters use the null-sentinel pattern
 *   ($n::type IS NULL OR column = $n) so one prepared statement covers every
 *   filter combination.
 */
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mobipay/account-service/internal/domain"
)

// RecordDeposit runs the deposit transaction: INSERT the payment, then the
// atomic balance adjustment, then commit. Any failure rolls back both.
func (r *PostgresRepository) RecordDeposit(ctx context.Context, payment *domain.Payment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin deposit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO payments (receipt_number, account_number, amount, provider_id, payment_reference)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING payment_date
	`
	err = tx.QueryRow(ctx, query,
		payment.ReceiptNumber, payment.AccountNumber, payment.Amount,
		payment.ProviderID, payment.PaymentReference,
	).Scan(&payment.PaymentDate)
	if err != nil {
		if uniqueViolation(err, constraintProviderReference) {
			return fmt.Errorf("provider %d reference %q: %w",
				payment.ProviderID, payment.PaymentReference, ErrDuplicateReference)
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	if err := adjustBalance(ctx, tx, payment.AccountNumber, payment.Amount); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit deposit tx: %w", err)
	}
	return nil
}

// GetPaymentByProviderAndReference fetches the bare payment row for duplicate
// resolution. Runs on the pool, never inside the failed transaction.
func (r *PostgresRepository) GetPaymentByProviderAndReference(ctx context.Context, providerID int64, reference string) (*domain.Payment, error) {
	var p domain.Payment
	query := `
		SELECT receipt_number, account_number, amount, provider_id, payment_reference, payment_date
		FROM payments
		WHERE provider_id = $1 AND payment_reference = $2
	`
	err := r.db.QueryRow(ctx, query, providerID, reference).Scan(
		&p.ReceiptNumber, &p.AccountNumber, &p.Amount,
		&p.ProviderID, &p.PaymentReference, &p.PaymentDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: payment for provider %d reference %q", domain.ErrNotFound, providerID, reference)
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

const paymentDetailsColumns = `
	p.receipt_number, p.account_number, p.amount, p.provider_id,
	p.payment_reference, p.payment_date,
	pp.code, pp.name, a.customer_id
`

const paymentDetailsJoins = `
	FROM payments p
	JOIN payment_providers pp ON pp.id = p.provider_id
	JOIN accounts a ON a.account_number = p.account_number
`

func scanPaymentDetails(row pgx.Row, d *domain.PaymentDetails) error {
	return row.Scan(
		&d.ReceiptNumber, &d.AccountNumber, &d.Amount, &d.ProviderID,
		&d.PaymentReference, &d.PaymentDate,
		&d.ProviderCode, &d.ProviderName, &d.CustomerID,
	)
}

// GetPaymentDetails returns the payment with provider and customer projected
// in, for confirmation lookups.
func (r *PostgresRepository) GetPaymentDetails(ctx context.Context, providerID int64, reference string) (*domain.PaymentDetails, error) {
	var d domain.PaymentDetails
	query := `SELECT ` + paymentDetailsColumns + paymentDetailsJoins + `
		WHERE p.provider_id = $1 AND p.payment_reference = $2`
	if err := scanPaymentDetails(r.db.QueryRow(ctx, query, providerID, reference), &d); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: payment for provider %d reference %q", domain.ErrNotFound, providerID, reference)
		}
		return nil, fmt.Errorf("get payment details: %w", err)
	}
	return &d, nil
}

const paymentFilterClause = `
	($1::bigint IS NULL OR p.account_number = $1)
	AND ($2::bigint IS NULL OR a.customer_id = $2)
	AND ($3::varchar IS NULL OR pp.code = $3)
	AND ($4::timestamptz IS NULL OR p.payment_date >= $4)
	AND ($5::timestamptz IS NULL OR p.payment_date < $5)
`

func filterArgs(f domain.PaymentFilter) []any {
	return []any{f.AccountNumber, f.CustomerID, f.ProviderCode, f.From, f.To}
}

// SearchPayments returns payments matching the filter, newest first.
func (r *PostgresRepository) SearchPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.PaymentDetails, error) {
	query := `SELECT ` + paymentDetailsColumns + paymentDetailsJoins + `
		WHERE ` + paymentFilterClause + `
		ORDER BY p.payment_date DESC, p.receipt_number DESC`
	return r.queryPaymentDetails(ctx, query, filterArgs(filter)...)
}

func (r *PostgresRepository) queryPaymentDetails(ctx context.Context, query string, args ...any) ([]domain.PaymentDetails, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.PaymentDetails
	for rows.Next() {
		var d domain.PaymentDetails
		if err := scanPaymentDetails(rows, &d); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, d)
	}
	return payments, rows.Err()
}

// GlobalTotals aggregates amount and count over the filtered payment set.
func (r *PostgresRepository) GlobalTotals(ctx context.Context, filter domain.PaymentFilter) (domain.PaymentTotals, error) {
	var t domain.PaymentTotals
	query := `
		SELECT COALESCE(SUM(p.amount), 0), COUNT(*)` + paymentDetailsJoins + `
		WHERE ` + paymentFilterClause
	err := r.db.QueryRow(ctx, query, filterArgs(filter)...).Scan(&t.Total, &t.Count)
	if err != nil {
		return domain.PaymentTotals{}, fmt.Errorf("payment totals: %w", err)
	}
	return t, nil
}

// TotalsByProvider groups the filtered totals per provider, largest first.
func (r *PostgresRepository) TotalsByProvider(ctx context.Context, filter domain.PaymentFilter) ([]domain.ProviderBreakdown, error) {
	query := `
		SELECT pp.code, pp.name, COALESCE(SUM(p.amount), 0), COUNT(*)` + paymentDetailsJoins + `
		WHERE ` + paymentFilterClause + `
		GROUP BY pp.code, pp.name
		ORDER BY SUM(p.amount) DESC`
	return r.queryBreakdown(ctx, query, filterArgs(filter)...)
}

// AccountTotals aggregates all deposits ever recorded against one account.
func (r *PostgresRepository) AccountTotals(ctx context.Context, accountNumber int64) (domain.PaymentTotals, error) {
	var t domain.PaymentTotals
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM payments WHERE account_number = $1`,
		accountNumber,
	).Scan(&t.Total, &t.Count)
	if err != nil {
		return domain.PaymentTotals{}, fmt.Errorf("account totals: %w", err)
	}
	return t, nil
}

// AccountTotalsByProvider groups one account's deposits per provider.
func (r *PostgresRepository) AccountTotalsByProvider(ctx context.Context, accountNumber int64) ([]domain.ProviderBreakdown, error) {
	query := `
		SELECT pp.code, pp.name, COALESCE(SUM(p.amount), 0), COUNT(*)
		FROM payments p
		JOIN payment_providers pp ON pp.id = p.provider_id
		WHERE p.account_number = $1
		GROUP BY pp.code, pp.name
		ORDER BY SUM(p.amount) DESC`
	return r.queryBreakdown(ctx, query, accountNumber)
}

func (r *PostgresRepository) queryBreakdown(ctx context.Context, query string, args ...any) ([]domain.ProviderBreakdown, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query breakdown: %w", err)
	}
	defer rows.Close()

	var breakdown []domain.ProviderBreakdown
	for rows.Next() {
		var b domain.ProviderBreakdown
		if err := rows.Scan(&b.ProviderCode, &b.ProviderName, &b.Total, &b.Count); err != nil {
			return nil, fmt.Errorf("scan breakdown: %w", err)
		}
		breakdown = append(breakdown, b)
	}
	return breakdown, rows.Err()
}

// PaymentsByProviderCode lists one provider's payments in a period, oldest
// first, for settlement reconciliation.
func (r *PostgresRepository) PaymentsByProviderCode(ctx context.Context, providerCode string, filter domain.PaymentFilter) ([]domain.PaymentDetails, error) {
	query := `SELECT ` + paymentDetailsColumns + paymentDetailsJoins + `
		WHERE pp.code = $1
		AND ($2::timestamptz IS NULL OR p.payment_date >= $2)
		AND ($3::timestamptz IS NULL OR p.payment_date < $3)
		ORDER BY p.payment_date, p.receipt_number`
	return r.queryPaymentDetails(ctx, query, providerCode, filter.From, filter.To)
}
