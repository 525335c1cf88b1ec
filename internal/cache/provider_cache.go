/**
 * @description
 * In-process cache for authenticated payment providers, keyed by API key
 * hash. Sits in front of the provider lookup on the hot deposit path so a
 * steady stream of deposits from one provider costs one database round trip,
 * not one per request.
 *
 * @notes
 * - Only successful authentications are cached. A miss is never cached, so an
 *   unknown key always falls through to the database and a key that becomes
 *   valid is usable immediately.
 * - Mutations to a provider (key rotation, deactivation, rename) must call
 *   Invalidate with the provider's current hash before the mutation is
 *   acknowledged. Entries have no TTL; invalidation is the only eviction.
 */
package cache

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mobipay/account-service/internal/domain"
)

// ProviderCache maps API key hashes to authenticated providers.
type ProviderCache struct {
	entries sync.Map // string -> domain.Provider
	logger  *zap.Logger
}

// NewProviderCache creates an empty cache.
func NewProviderCache(logger *zap.Logger) *ProviderCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderCache{logger: logger}
}

// Get returns the cached provider for the key hash, if present. The returned
// value is a copy; callers cannot mutate the cached entry.
func (c *ProviderCache) Get(keyHash string) (domain.Provider, bool) {
	v, ok := c.entries.Load(keyHash)
	if !ok {
		return domain.Provider{}, false
	}
	return v.(domain.Provider), true
}

// Put stores a successfully authenticated provider under its key hash.
func (c *ProviderCache) Put(keyHash string, provider domain.Provider) {
	c.entries.Store(keyHash, provider)
	c.logger.Debug("provider cached",
		zap.String("provider_code", provider.Code),
		zap.String("key_prefix", provider.APIKeyPrefix),
	)
}

// Invalidate drops the entry for the key hash. Safe to call for hashes that
// were never cached.
func (c *ProviderCache) Invalidate(keyHash string) {
	if _, loaded := c.entries.LoadAndDelete(keyHash); loaded {
		c.logger.Debug("provider cache entry invalidated")
	}
}
