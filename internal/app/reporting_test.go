package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mobipay/account-service/internal/domain"
	"github.com/mobipay/account-service/internal/store"
)

func seedPayments(t *testing.T, svc *Service) (*domain.Account, domain.Provider, domain.Provider) {
	t.Helper()
	_, account := seedCustomer(t, svc, "asha@example.com")
	mpesa := seedProvider(t, svc, "MPESA")
	airtel := seedProvider(t, svc, "AIRTEL")

	deposits := []struct {
		provider  domain.Provider
		amount    string
		reference string
	}{
		{mpesa, "100.00", "M-1"},
		{mpesa, "250.50", "M-2"},
		{airtel, "75.25", "A-1"},
	}
	for _, d := range deposits {
		_, err := svc.DepositToAccount(context.Background(), d.provider, account.AccountNumber, domain.DepositRequest{
			Amount:    decimal.RequireFromString(d.amount),
			Reference: d.reference,
		})
		if err != nil {
			t.Fatalf("seed deposit %s: %v", d.reference, err)
		}
	}
	return account, mpesa, airtel
}

func TestPaymentTotals(t *testing.T) {
	svc := newTestService(t, store.NewMemoryRepository())
	account, _, _ := seedPayments(t, svc)

	totals, err := svc.PaymentTotals(context.Background(), domain.PaymentFilter{})
	if err != nil {
		t.Fatalf("PaymentTotals: %v", err)
	}
	want := decimal.RequireFromString("425.75")
	if !totals.Total.Equal(want) || totals.Count != 3 {
		t.Errorf("totals = %s/%d, want %s/3", totals.Total, totals.Count, want)
	}

	code := "MPESA"
	totals, err = svc.PaymentTotals(context.Background(), domain.PaymentFilter{ProviderCode: &code})
	if err != nil {
		t.Fatalf("filtered totals: %v", err)
	}
	if !totals.Total.Equal(decimal.RequireFromString("350.50")) || totals.Count != 2 {
		t.Errorf("MPESA totals = %s/%d, want 350.50/2", totals.Total, totals.Count)
	}

	accTotals, breakdown, err := svc.AccountDepositSummary(context.Background(), account.AccountNumber)
	if err != nil {
		t.Fatalf("AccountDepositSummary: %v", err)
	}
	if !accTotals.Total.Equal(want) {
		t.Errorf("account totals = %s, want %s", accTotals.Total, want)
	}
	if len(breakdown) != 2 {
		t.Fatalf("breakdown has %d providers, want 2", len(breakdown))
	}
	if breakdown[0].ProviderCode != "MPESA" {
		t.Errorf("breakdown not ordered by total descending: first is %s", breakdown[0].ProviderCode)
	}
}

func TestSearchPaymentsFilters(t *testing.T) {
	svc := newTestService(t, store.NewMemoryRepository())
	account, _, _ := seedPayments(t, svc)

	code := "AIRTEL"
	results, err := svc.SearchPayments(context.Background(), domain.PaymentFilter{
		AccountNumber: &account.AccountNumber,
		ProviderCode:  &code,
	})
	if err != nil {
		t.Fatalf("SearchPayments: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d payments, want 1", len(results))
	}
	if results[0].PaymentReference != "A-1" {
		t.Errorf("reference = %q, want A-1", results[0].PaymentReference)
	}
	if results[0].ProviderName == "" || results[0].CustomerID == 0 {
		t.Error("projection fields not populated")
	}
}

func TestSearchPaymentsRejectsInvertedWindow(t *testing.T) {
	svc := newTestService(t, store.NewMemoryRepository())
	from := time.Now()
	to := from.Add(-time.Hour)

	_, err := svc.SearchPayments(context.Background(), domain.PaymentFilter{From: &from, To: &to})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSettlementReport(t *testing.T) {
	svc := newTestService(t, store.NewMemoryRepository())
	seedPayments(t, svc)

	report, err := svc.SettlementReport(context.Background(), "mpesa", nil, nil)
	if err != nil {
		t.Fatalf("SettlementReport: %v", err)
	}
	if report.ProviderCode != "MPESA" {
		t.Errorf("code = %q", report.ProviderCode)
	}
	if len(report.Payments) != 2 {
		t.Fatalf("report has %d payments, want 2", len(report.Payments))
	}
	if !report.Totals.Total.Equal(decimal.RequireFromString("350.50")) {
		t.Errorf("report total = %s, want 350.50", report.Totals.Total)
	}
	// Settlement listing is chronological.
	if report.Payments[0].PaymentDate.After(report.Payments[1].PaymentDate) {
		t.Error("payments not in chronological order")
	}

	if _, err := svc.SettlementReport(context.Background(), "UNKNOWN", nil, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown provider, got %v", err)
	}
}
