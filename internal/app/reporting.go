/**
 * @description
 * Read-only reporting workflows: payment search, totals, per-provider
 * breakdowns, and settlement reports. These aggregate the immutable payment
 * log; they hold no invariants of their own.
 */
package app

import (
	"context"
	"strings"
	"time"

	"github.com/mobipay/account-service/internal/domain"
)

// SearchPayments returns payments matching the filter, newest first.
func (s *Service) SearchPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.PaymentDetails, error) {
	if err := validateFilterWindow(filter); err != nil {
		return nil, err
	}
	return s.repo.SearchPayments(ctx, filter)
}

// PaymentTotals aggregates amount and count over the filtered payments.
func (s *Service) PaymentTotals(ctx context.Context, filter domain.PaymentFilter) (domain.PaymentTotals, error) {
	if err := validateFilterWindow(filter); err != nil {
		return domain.PaymentTotals{}, err
	}
	return s.repo.GlobalTotals(ctx, filter)
}

// PaymentTotalsByProvider groups the filtered totals per provider.
func (s *Service) PaymentTotalsByProvider(ctx context.Context, filter domain.PaymentFilter) ([]domain.ProviderBreakdown, error) {
	if err := validateFilterWindow(filter); err != nil {
		return nil, err
	}
	return s.repo.TotalsByProvider(ctx, filter)
}

// AccountDepositSummary returns the lifetime totals for one account, overall
// and per provider. The account must exist and belong to an active customer.
func (s *Service) AccountDepositSummary(ctx context.Context, accountNumber int64) (domain.PaymentTotals, []domain.ProviderBreakdown, error) {
	if _, err := s.GetAccount(ctx, accountNumber); err != nil {
		return domain.PaymentTotals{}, nil, err
	}
	totals, err := s.repo.AccountTotals(ctx, accountNumber)
	if err != nil {
		return domain.PaymentTotals{}, nil, err
	}
	breakdown, err := s.repo.AccountTotalsByProvider(ctx, accountNumber)
	if err != nil {
		return domain.PaymentTotals{}, nil, err
	}
	return totals, breakdown, nil
}

// SettlementReport builds a provider's reconciliation report for a period:
// every payment it submitted, oldest first, with the period totals.
func (s *Service) SettlementReport(ctx context.Context, providerCode string, from, to *time.Time) (*domain.SettlementReport, error) {
	providerCode = strings.ToUpper(strings.TrimSpace(providerCode))
	provider, err := s.repo.GetProviderByCode(ctx, providerCode)
	if err != nil {
		return nil, err
	}

	filter := domain.PaymentFilter{From: from, To: to}
	if err := validateFilterWindow(filter); err != nil {
		return nil, err
	}

	payments, err := s.repo.PaymentsByProviderCode(ctx, providerCode, filter)
	if err != nil {
		return nil, err
	}

	code := provider.Code
	filter.ProviderCode = &code
	totals, err := s.repo.GlobalTotals(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &domain.SettlementReport{
		ProviderCode: provider.Code,
		ProviderName: provider.Name,
		From:         from,
		To:           to,
		Totals:       totals,
		Payments:     payments,
	}, nil
}

func validateFilterWindow(filter domain.PaymentFilter) error {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return domain.NewValidationError("to", "must not be before from")
	}
	return nil
}
