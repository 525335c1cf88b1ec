/**
 * @description
 * Customer onboarding and lifecycle workflows. Onboarding generates both
 * Luhn identifiers, creates the customer and their main account in one
 * transaction, and retries the whole attempt on identifier collision.
 *
 * @notes
 * - Collision retries regenerate BOTH identifiers; an email conflict is a
 *   business error and is never retried.
 * - The email pre-check is a courtesy for a clean error message; the unique
 *   constraint remains the authority and a constraint-level duplicate from a
 *   racing request maps to the same conflict.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mobipay/account-service/internal/domain"
	"github.com/mobipay/account-service/internal/store"
	"github.com/mobipay/account-service/pkg/luhn"
)

// CreateCustomer onboards a customer with a zero-balance main account.
func (s *Service) CreateCustomer(ctx context.Context, req domain.CreateCustomerRequest) (*domain.Customer, *domain.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	email := domain.NormalizeEmail(req.Email)

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("email pre-check: %w", err)
	}
	if exists {
		return nil, nil, fmt.Errorf("%w: customer with email %s already exists", domain.ErrDuplicate, email)
	}

	var lastErr error
	for attempt := 1; attempt <= s.opts.CreateMaxAttempts; attempt++ {
		customer := &domain.Customer{
			CustomerID:   luhn.GenerateCustomerID(),
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			Email:        email,
			MobileNumber: strings.TrimSpace(req.MobileNumber),
		}
		account := &domain.Account{
			AccountNumber: luhn.GenerateAccountNumber(),
			CustomerID:    customer.CustomerID,
			MainAccount:   true,
		}

		err := s.repo.CreateCustomerWithMainAccount(ctx, customer, account)
		if err == nil {
			s.logger.Info("customer created",
				zap.Int64("customer_id", customer.CustomerID),
				zap.Int64("account_number", account.AccountNumber),
				zap.Int("attempt", attempt),
			)
			return customer, account, nil
		}
		if !errors.Is(err, store.ErrIDCollision) {
			return nil, nil, err
		}

		lastErr = err
		s.logger.Warn("identifier collision during onboarding; retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < s.opts.CreateMaxAttempts {
			select {
			case <-time.After(s.opts.CreateBackoff):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}
	}

	return nil, nil, fmt.Errorf("%w after %d attempts: %v",
		domain.ErrCollisionExhausted, s.opts.CreateMaxAttempts, lastErr)
}

// GetCustomer returns an active customer by ID.
func (s *Service) GetCustomer(ctx context.Context, customerID int64) (*domain.Customer, error) {
	if !luhn.ValidCustomerID(customerID) {
		return nil, fmt.Errorf("%w: customer %d", domain.ErrNotFound, customerID)
	}
	return s.repo.GetCustomer(ctx, customerID)
}

// ListCustomers returns all active customers.
func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// SearchCustomersByMobile returns active customers whose mobile number
// contains the fragment.
func (s *Service) SearchCustomersByMobile(ctx context.Context, fragment string) ([]domain.Customer, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, domain.NewValidationError("mobile_number", "search fragment must not be empty")
	}
	return s.repo.SearchCustomersByMobile(ctx, fragment)
}

// UpdateCustomer applies the non-nil fields of the request to an active
// customer.
func (s *Service) UpdateCustomer(ctx context.Context, customerID int64, req domain.UpdateCustomerRequest) (*domain.Customer, error) {
	customer, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		if strings.TrimSpace(*req.FirstName) == "" {
			return nil, domain.NewValidationError("first_name", "must not be empty")
		}
		customer.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		if strings.TrimSpace(*req.LastName) == "" {
			return nil, domain.NewValidationError("last_name", "must not be empty")
		}
		customer.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		email := domain.NormalizeEmail(*req.Email)
		if email == "" || !strings.Contains(email, "@") || len(email) > 100 {
			return nil, domain.NewValidationError("email", "must be a valid email address")
		}
		customer.Email = email
	}
	if req.MobileNumber != nil {
		mobile := strings.TrimSpace(*req.MobileNumber)
		if mobile == "" || len(mobile) > 15 {
			return nil, domain.NewValidationError("mobile_number", "must be 1-15 characters")
		}
		customer.MobileNumber = mobile
	}

	if err := s.repo.UpdateCustomer(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// DeactivateCustomer soft-deletes a customer. Their accounts and payment
// history remain on record but disappear from every read path.
func (s *Service) DeactivateCustomer(ctx context.Context, customerID int64) error {
	if err := s.repo.DeactivateCustomer(ctx, customerID); err != nil {
		return err
	}
	s.logger.Info("customer deactivated", zap.Int64("customer_id", customerID))
	return nil
}
