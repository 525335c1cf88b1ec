/**
 * @description
 * The application layer: business workflows composed on top of the store,
 * the provider credential cache, the event producer, and the rate limiter.
 * HTTP handlers call into Service; Service owns every rule that is not a
 * storage constraint.
 *
 * @dependencies
 * - internal/store: the Repository contract and its sentinel errors.
 * - internal/cache: in-process provider credential cache.
 * - pkg/rabbitmq: best-effort domain event publishing.
 * - go.uber.org/zap: structured logging.
 */
package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/mobipay/account-service/internal/cache"
	"github.com/mobipay/account-service/internal/store"
	"github.com/mobipay/account-service/pkg/rabbitmq"
)

// Options tunes the retry and rate-limit behavior of the service. Zero
// values fall back to the defaults below.
type Options struct {
	// CreateMaxAttempts bounds identifier-collision retries during customer
	// onboarding.
	CreateMaxAttempts int
	// CreateBackoff is the fixed delay between collision retries.
	CreateBackoff time.Duration
	// DepositRateLimitPerMinute caps deposits per provider per minute. Zero
	// disables the limit.
	DepositRateLimitPerMinute int
}

const (
	defaultCreateMaxAttempts = 5
	defaultCreateBackoff     = 100 * time.Millisecond
)

// Service implements the business workflows of the account service.
type Service struct {
	repo     store.Repository
	cache    *cache.ProviderCache
	producer rabbitmq.Publisher
	limiter  RateLimiter
	logger   *zap.Logger
	opts     Options
}

// NewService wires the application layer. producer and limiter may be nil;
// events are then dropped and deposits are never rate limited.
func NewService(repo store.Repository, providerCache *cache.ProviderCache, producer rabbitmq.Publisher, limiter RateLimiter, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if providerCache == nil {
		providerCache = cache.NewProviderCache(logger)
	}
	if producer == nil {
		producer = &rabbitmq.EventProducerFallback{}
	}
	if opts.CreateMaxAttempts <= 0 {
		opts.CreateMaxAttempts = defaultCreateMaxAttempts
	}
	if opts.CreateBackoff <= 0 {
		opts.CreateBackoff = defaultCreateBackoff
	}
	return &Service{
		repo:     repo,
		cache:    providerCache,
		producer: producer,
		limiter:  limiter,
		logger:   logger,
		opts:     opts,
	}
}
