/**
 * @description
 * The deposit pipeline: validate, resolve the target account, insert-first
 * record, and resolve duplicates. This is the only money-moving path in the
 * service.
 *
 * @notes
 * - Idempotency rests on the storage unique constraint, not on any check
 *   the pipeline performs first. Two racing submissions of the same
 *   (provider, reference) both go straight to the insert; exactly one
 *   commits, the other resolves against the committed row.
 * - Duplicate resolution runs outside the failed transaction, on a fresh
 *   connection. A replayed deposit returns the original payment unchanged;
 *   a reference reused with different details is a conflict.
 * - Event publishing happens after commit and is best-effort: a publish
 *   failure is logged, never surfaced, and never unwinds the deposit.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mobipay/account-service/internal/domain"
	"github.com/mobipay/account-service/internal/store"
	"github.com/mobipay/account-service/pkg/rabbitmq"
)

// DepositResult is the outcome of a deposit submission. Replayed marks an
// idempotent replay: the returned payment is the originally recorded one and
// no balance change happened on this call.
type DepositResult struct {
	Payment  domain.Payment
	Replayed bool
}

// DepositToAccount records a deposit from a provider into a specific account.
func (s *Service) DepositToAccount(ctx context.Context, provider domain.Provider, accountNumber int64, req domain.DepositRequest) (*DepositResult, error) {
	account, err := s.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	return s.deposit(ctx, provider, account.AccountNumber, req)
}

// DepositToCustomer records a deposit into a customer's main account.
func (s *Service) DepositToCustomer(ctx context.Context, provider domain.Provider, customerID int64, req domain.DepositRequest) (*DepositResult, error) {
	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	account, err := s.repo.GetMainAccount(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.deposit(ctx, provider, account.AccountNumber, req)
}

func (s *Service) deposit(ctx context.Context, provider domain.Provider, accountNumber int64, req domain.DepositRequest) (*DepositResult, error) {
	// Malformed submissions are rejected before they consume any quota.
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.consumeDepositRateLimit(ctx, provider); err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(req.Reference)

	receipt, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate receipt number: %w", err)
	}

	payment := &domain.Payment{
		ReceiptNumber:    receipt.String(),
		AccountNumber:    accountNumber,
		Amount:           req.Amount,
		ProviderID:       provider.ID,
		PaymentReference: reference,
	}

	err = s.repo.RecordDeposit(ctx, payment)
	if err == nil {
		s.logger.Info("deposit recorded",
			zap.String("receipt_number", payment.ReceiptNumber),
			zap.Int64("account_number", payment.AccountNumber),
			zap.String("amount", payment.Amount.String()),
			zap.String("provider_code", provider.Code),
		)
		s.publishPaymentRecorded(provider, payment)
		return &DepositResult{Payment: *payment}, nil
	}
	if !errors.Is(err, store.ErrDuplicateReference) {
		return nil, err
	}

	return s.resolveDuplicate(ctx, provider, accountNumber, req.Amount, reference)
}

// resolveDuplicate decides whether a unique violation on the idempotency key
// was a replay or a conflict, by fetching the committed payment and comparing
// it to the submission.
func (s *Service) resolveDuplicate(ctx context.Context, provider domain.Provider, accountNumber int64, amount decimal.Decimal, reference string) (*DepositResult, error) {
	existing, err := s.repo.GetPaymentByProviderAndReference(ctx, provider.ID, reference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The constraint fired but the row is gone: the competing
			// transaction rolled back after we lost the race. Treat as a
			// conflict rather than guess.
			s.logger.Error("duplicate reference reported but no payment found",
				zap.String("provider_code", provider.Code),
				zap.String("reference", reference),
			)
			return nil, domain.NewConflictError(
				"payment reference %s is already in use by provider %s", reference, provider.Code)
		}
		return nil, err
	}

	if existing.Amount.Equal(amount) && existing.AccountNumber == accountNumber {
		s.logger.Info("idempotent deposit replay",
			zap.String("receipt_number", existing.ReceiptNumber),
			zap.String("provider_code", provider.Code),
			zap.String("reference", reference),
		)
		return &DepositResult{Payment: *existing, Replayed: true}, nil
	}

	return nil, domain.NewConflictError(
		"payment reference %s was already used by provider %s with different details (recorded amount %s to account %d)",
		reference, provider.Code, existing.Amount.String(), existing.AccountNumber)
}

// GetDepositConfirmation returns the recorded payment for a provider's own
// reference, with provider and customer details projected in.
func (s *Service) GetDepositConfirmation(ctx context.Context, provider domain.Provider, reference string) (*domain.PaymentDetails, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domain.NewValidationError("reference", "must not be empty")
	}
	return s.repo.GetPaymentDetails(ctx, provider.ID, reference)
}

func (s *Service) consumeDepositRateLimit(ctx context.Context, provider domain.Provider) error {
	if s.limiter == nil || s.opts.DepositRateLimitPerMinute <= 0 {
		return nil
	}
	count, retryAfter, err := s.limiter.ConsumeRateLimit(ctx, "deposit", provider.Code,
		s.opts.DepositRateLimitPerMinute, time.Minute)
	if err != nil {
		// The limiter is protective, not load-bearing. If Redis is down the
		// deposit proceeds.
		s.logger.Warn("rate limiter unavailable; allowing request", zap.Error(err))
		return nil
	}
	if count > s.opts.DepositRateLimitPerMinute {
		return fmt.Errorf("%w: retry after %d seconds", domain.ErrRateLimited, retryAfter)
	}
	return nil
}

func (s *Service) publishPaymentRecorded(provider domain.Provider, payment *domain.Payment) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.producer.PublishPaymentRecorded(ctx, rabbitmq.PaymentRecordedEvent{
		ReceiptNumber:    payment.ReceiptNumber,
		AccountNumber:    payment.AccountNumber,
		Amount:           payment.Amount.String(),
		ProviderCode:     provider.Code,
		PaymentReference: payment.PaymentReference,
		Timestamp:        time.Now(),
	})
	if err != nil {
		s.logger.Warn("payment recorded event publish failed",
			zap.String("receipt_number", payment.ReceiptNumber),
			zap.Error(err),
		)
	}
}
