/**
 * @description
 * Account workflows: secondary account creation and account reads. Main
 * accounts are only ever created inside the onboarding transaction; this
 * path creates additional accounts for an existing customer.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mobipay/account-service/internal/domain"
	"github.com/mobipay/account-service/internal/store"
	"github.com/mobipay/account-service/pkg/luhn"
)

// CreateAccount opens an additional account for an active customer, retrying
// account-number collisions within the same budget as onboarding. A main
// account is only created when the customer has none; the partial unique
// index backs the check against a concurrent creation.
func (s *Service) CreateAccount(ctx context.Context, customerID int64, req domain.CreateAccountRequest) (*domain.Account, error) {
	customer, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if req.MainAccount {
		hasMain, err := s.repo.HasMainAccount(ctx, customerID)
		if err != nil {
			return nil, fmt.Errorf("checking main account: %w", err)
		}
		if hasMain {
			return nil, domain.NewConflictError("customer %d already has a main account", customerID)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= s.opts.CreateMaxAttempts; attempt++ {
		account := &domain.Account{
			AccountNumber: luhn.GenerateAccountNumber(),
			CustomerID:    customer.CustomerID,
			MainAccount:   req.MainAccount,
		}
		err := s.repo.CreateAccount(ctx, account)
		if err == nil {
			s.logger.Info("account created",
				zap.Int64("customer_id", customer.CustomerID),
				zap.Int64("account_number", account.AccountNumber),
			)
			return account, nil
		}
		if !errors.Is(err, store.ErrIDCollision) {
			return nil, err
		}

		lastErr = err
		s.logger.Warn("account number collision; retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < s.opts.CreateMaxAttempts {
			select {
			case <-time.After(s.opts.CreateBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v",
		domain.ErrCollisionExhausted, s.opts.CreateMaxAttempts, lastErr)
}

// GetAccount returns an account owned by an active customer.
func (s *Service) GetAccount(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	if !luhn.ValidAccountNumber(accountNumber) {
		return nil, fmt.Errorf("%w: account %d", domain.ErrNotFound, accountNumber)
	}
	return s.repo.GetAccount(ctx, accountNumber)
}

// AdjustAccountBalance applies a back-office balance correction as a single
// atomic statement. A debit that would take the balance negative fails with
// ErrBalanceUpdate and leaves the balance untouched.
func (s *Service) AdjustAccountBalance(ctx context.Context, accountNumber int64, req domain.AdjustBalanceRequest) (*domain.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !luhn.ValidAccountNumber(accountNumber) {
		return nil, fmt.Errorf("%w: account %d", domain.ErrNotFound, accountNumber)
	}
	if err := s.repo.AdjustBalance(ctx, accountNumber, req.Amount); err != nil {
		return nil, err
	}

	s.logger.Info("balance adjusted",
		zap.Int64("account_number", accountNumber),
		zap.String("amount", req.Amount.String()),
	)
	return s.repo.GetAccount(ctx, accountNumber)
}

// ListCustomerAccounts returns an active customer's accounts, main first.
func (s *Service) ListCustomerAccounts(ctx context.Context, customerID int64) ([]domain.Account, error) {
	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.ListCustomerAccounts(ctx, customerID)
}
