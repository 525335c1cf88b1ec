/**
 * @description
 * Payment provider administration and authentication. Providers are issued
 * random API keys at onboarding; only the SHA-256 hash is stored.
 * Authentication is cache-aside over the in-process credential cache.
 *
 * @notes
 * - Every mutation that can affect an issued key (rotation, deactivation,
 *   rename, reactivation) invalidates the cached entry for the provider's
 *   current hash BEFORE returning, so the next request with that key sees
 *   the database state.
 * - Authentication never caches a failure. Unknown and inactive keys always
 *   hit the database, so a newly issued key works immediately.
 */
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mobipay/account-service/internal/domain"
	"github.com/mobipay/account-service/pkg/apikey"
	"github.com/mobipay/account-service/pkg/rabbitmq"
)

// CreateProvider onboards a payment provider and issues its initial API key.
// The raw key appears only in the returned credentials.
func (s *Service) CreateProvider(ctx context.Context, req domain.CreateProviderRequest) (*domain.ProviderCredentials, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	raw := apikey.Issue()
	provider := &domain.Provider{
		Code:         strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:         strings.TrimSpace(req.Name),
		APIKeyHash:   apikey.Hash(raw),
		APIKeyPrefix: apikey.Prefix(raw),
	}
	if err := s.repo.CreateProvider(ctx, provider); err != nil {
		return nil, err
	}

	s.logger.Info("provider onboarded",
		zap.String("provider_code", provider.Code),
		zap.String("key_prefix", provider.APIKeyPrefix),
	)
	return &domain.ProviderCredentials{Provider: *provider, RawKey: raw}, nil
}

// RegenerateProviderKey rotates a provider's API key. The old key stops
// authenticating before this returns.
func (s *Service) RegenerateProviderKey(ctx context.Context, id int64) (*domain.ProviderCredentials, error) {
	current, err := s.repo.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}

	raw := apikey.Issue()
	updated, err := s.repo.UpdateProviderKey(ctx, id, apikey.Hash(raw), apikey.Prefix(raw))
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(current.APIKeyHash)

	s.logger.Info("provider key rotated",
		zap.String("provider_code", updated.Code),
		zap.String("key_prefix", updated.APIKeyPrefix),
	)
	return &domain.ProviderCredentials{Provider: *updated, RawKey: raw}, nil
}

// UpdateProviderName renames a provider and refreshes any cached copy.
func (s *Service) UpdateProviderName(ctx context.Context, id int64, req domain.UpdateProviderRequest) (*domain.Provider, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, domain.NewValidationError("name", "must not be empty")
	}
	updated, err := s.repo.UpdateProviderName(ctx, id, strings.TrimSpace(req.Name))
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(updated.APIKeyHash)
	return updated, nil
}

// DeactivateProvider disables a provider. Its key stops authenticating
// synchronously; recorded payments remain on the books.
func (s *Service) DeactivateProvider(ctx context.Context, id int64) (*domain.Provider, error) {
	updated, err := s.repo.SetProviderActive(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(updated.APIKeyHash)

	s.logger.Info("provider deactivated", zap.String("provider_code", updated.Code))
	s.publishProviderDeactivated(updated)
	return updated, nil
}

// ReactivateProvider re-enables a provider. Its existing key authenticates
// again on the next request.
func (s *Service) ReactivateProvider(ctx context.Context, id int64) (*domain.Provider, error) {
	updated, err := s.repo.SetProviderActive(ctx, id, true)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(updated.APIKeyHash)
	s.logger.Info("provider reactivated", zap.String("provider_code", updated.Code))
	return updated, nil
}

// GetProvider returns a provider by ID.
func (s *Service) GetProvider(ctx context.Context, id int64) (*domain.Provider, error) {
	return s.repo.GetProvider(ctx, id)
}

// ListProviders returns all providers, active and inactive.
func (s *Service) ListProviders(ctx context.Context) ([]domain.Provider, error) {
	return s.repo.ListProviders(ctx)
}

// Authenticate resolves a raw API key to an active provider, consulting the
// cache first and falling back to the database on a miss.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*domain.Provider, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, fmt.Errorf("%w: no active provider for key", domain.ErrNotFound)
	}
	hash := apikey.Hash(rawKey)

	if cached, ok := s.cache.Get(hash); ok {
		return &cached, nil
	}

	provider, err := s.repo.FindActiveProviderByKeyHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	s.cache.Put(hash, *provider)
	return provider, nil
}

func (s *Service) publishProviderDeactivated(provider *domain.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.producer.PublishProviderDeactivated(ctx, rabbitmq.ProviderDeactivatedEvent{
		ProviderID:   provider.ID,
		ProviderCode: provider.Code,
		Timestamp:    time.Now(),
	})
	if err != nil {
		s.logger.Warn("provider deactivated event publish failed",
			zap.String("provider_code", provider.Code),
			zap.Error(err),
		)
	}
}
