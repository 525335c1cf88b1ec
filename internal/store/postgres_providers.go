/**
 * @description
 * PostgreSQL persistence for payment providers: onboarding, key rotation,
 * activation state, and the key-hash lookup backing provider authentication.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: driver and error inspection.
 *
 * @notes
 * - Only the SHA-256 hash of an API key is ever stored or queried. The
 *   partial index on (api_key_hash) WHERE active keeps the hot
 *   authentication lookup an index-only probe.
 */
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mobipay/account-service/internal/domain"
)

const providerColumns = `id, code, name, api_key_hash, api_key_prefix, active, created_at, updated_at`

func scanProvider(row pgx.Row, p *domain.Provider) error {
	return row.Scan(&p.ID, &p.Code, &p.Name, &p.APIKeyHash,
		&p.APIKeyPrefix, &p.Active, &p.CreatedAt, &p.UpdatedAt)
}

// CreateProvider inserts a provider with its initial key hash.
func (r *PostgresRepository) CreateProvider(ctx context.Context, provider *domain.Provider) error {
	query := `
		INSERT INTO payment_providers (code, name, api_key_hash, api_key_prefix, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		provider.Code, provider.Name, provider.APIKeyHash, provider.APIKeyPrefix,
	).Scan(&provider.ID, &provider.CreatedAt, &provider.UpdatedAt)
	if err != nil {
		if uniqueViolation(err, constraintProviderCode) {
			return fmt.Errorf("%w: provider code %s already exists", domain.ErrDuplicate, provider.Code)
		}
		return fmt.Errorf("insert provider: %w", err)
	}
	provider.Active = true
	return nil
}

func (r *PostgresRepository) GetProvider(ctx context.Context, id int64) (*domain.Provider, error) {
	var p domain.Provider
	query := `SELECT ` + providerColumns + ` FROM payment_providers WHERE id = $1`
	if err := scanProvider(r.db.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: provider %d", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get provider: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) GetProviderByCode(ctx context.Context, code string) (*domain.Provider, error) {
	var p domain.Provider
	query := `SELECT ` + providerColumns + ` FROM payment_providers WHERE code = $1`
	if err := scanProvider(r.db.QueryRow(ctx, query, code), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: provider %s", domain.ErrNotFound, code)
		}
		return nil, fmt.Errorf("get provider by code: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) ListProviders(ctx context.Context) ([]domain.Provider, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+providerColumns+` FROM payment_providers ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var providers []domain.Provider
	for rows.Next() {
		var p domain.Provider
		if err := scanProvider(rows, &p); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

func (r *PostgresRepository) UpdateProviderName(ctx context.Context, id int64, name string) (*domain.Provider, error) {
	query := `
		UPDATE payment_providers SET name = $1, updated_at = now()
		WHERE id = $2
		RETURNING ` + providerColumns
	return r.mutateProvider(ctx, query, name, id)
}

func (r *PostgresRepository) SetProviderActive(ctx context.Context, id int64, active bool) (*domain.Provider, error) {
	query := `
		UPDATE payment_providers SET active = $1, updated_at = now()
		WHERE id = $2
		RETURNING ` + providerColumns
	return r.mutateProvider(ctx, query, active, id)
}

func (r *PostgresRepository) UpdateProviderKey(ctx context.Context, id int64, keyHash, keyPrefix string) (*domain.Provider, error) {
	query := `
		UPDATE payment_providers SET api_key_hash = $1, api_key_prefix = $2, updated_at = now()
		WHERE id = $3
		RETURNING ` + providerColumns
	return r.mutateProvider(ctx, query, keyHash, keyPrefix, id)
}

func (r *PostgresRepository) mutateProvider(ctx context.Context, query string, args ...any) (*domain.Provider, error) {
	var p domain.Provider
	if err := scanProvider(r.db.QueryRow(ctx, query, args...), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: provider", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update provider: %w", err)
	}
	return &p, nil
}

// FindActiveProviderByKeyHash resolves an API key hash to the active provider
// holding it. Inactive providers never match, so a deactivated provider's key
// is dead at the database even if a stale cache entry survives elsewhere.
func (r *PostgresRepository) FindActiveProviderByKeyHash(ctx context.Context, keyHash string) (*domain.Provider, error) {
	var p domain.Provider
	query := `SELECT ` + providerColumns + ` FROM payment_providers WHERE api_key_hash = $1 AND active`
	if err := scanProvider(r.db.QueryRow(ctx, query, keyHash), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no active provider for key", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find provider by key hash: %w", err)
	}
	return &p, nil
}
