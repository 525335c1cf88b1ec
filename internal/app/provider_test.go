package app

import (
	"context"
	"errors"
	"testing"

	"github.com/mobipay/account-service/internal/domain"
	"github.com/mobipay/account-service/internal/store"
	"github.com/mobipay/account-service/pkg/apikey"
)

func TestCreateProviderIssuesWorkingKey(t *testing.T) {
	svc := newTestService(t, store.NewMemoryRepository())

	creds, err := svc.CreateProvider(context.Background(), domain.CreateProviderRequest{
		Code: "mpesa",
		Name: "M-Pesa",
	})
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	if creds.Provider.Code != "MPESA" {
		t.Errorf("code = %q, want uppercased MPESA", creds.Provider.Code)
	}
	if creds.RawKey == "" {
		t.Fatal("no raw key issued")
	}
	if creds.Provider.APIKeyHash == creds.RawKey {
		t.Error("raw key stored instead of hash")
	}
	if creds.Provider.APIKeyPrefix != creds.RawKey[:apikey.PrefixLength] {
		t.Errorf("prefix = %q, want first %d characters of the key",
			creds.Provider.APIKeyPrefix, apikey.PrefixLength)
	}

	authed, err := svc.Authenticate(context.Background(), creds.RawKey)
	if err != nil {
		t.Fatalf("Authenticate with fresh key: %v", err)
	}
	if authed.ID != creds.Provider.ID {
		t.Errorf("authenticated as provider %d, want %d", authed.ID, creds.Provider.ID)
	}
}

func TestCreateProviderDuplicateCode(t *testing.T) {
	svc := newTestService(t, store.NewMemoryRepository())
	seedProvider(t, svc, "MPESA")

	_, err := svc.CreateProvider(context.Background(), domain.CreateProviderRequest{
		Code: "MPESA",
		Name: "Duplicate",
	})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate code conflict, got %v", err)
	}
}

func TestAuthenticateUnknownKey(t *testing.T) {
	svc := newTestService(t, store.NewMemoryRepository())

	if _, err := svc.Authenticate(context.Background(), "not-a-key"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for empty key, got %v", err)
	}
}

func TestRegenerateKeyInvalidatesOldKey(t *testing.T) {
	svc := newTestService(t, store.NewMemoryRepository())

	creds, err := svc.CreateProvider(context.Background(), domain.CreateProviderRequest{
		Code: "MPESA", Name: "M-Pesa",
	})
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}

	// Warm the cache with the old key.
	if _, err := svc.Authenticate(context.Background(), creds.RawKey); err != nil {
		t.Fatalf("warm-up authenticate: %v", err)
	}

	rotated, err := svc.RegenerateProviderKey(context.Background(), creds.Provider.ID)
	if err != nil {
		t.Fatalf("RegenerateProviderKey: %v", err)
	}
	if rotated.RawKey == creds.RawKey {
		t.Fatal("rotation returned the same key")
	}

	if _, err := svc.Authenticate(context.Background(), creds.RawKey); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("old key still authenticates after rotation: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), rotated.RawKey); err != nil {
		t.Errorf("new key rejected: %v", err)
	}
}

func TestDeactivateProviderKillsKeyDespiteCache(t *testing.T) {
	svc := newTestService(t, store.NewMemoryRepository())

	creds, err := svc.CreateProvider(context.Background(), domain.CreateProviderRequest{
		Code: "MPESA", Name: "M-Pesa",
	})
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}

	// Warm the cache so deactivation must actually invalidate, not just rely
	// on the database filter.
	if _, err := svc.Authenticate(context.Background(), creds.RawKey); err != nil {
		t.Fatalf("warm-up authenticate: %v", err)
	}

	if _, err := svc.DeactivateProvider(context.Background(), creds.Provider.ID); err != nil {
		t.Fatalf("DeactivateProvider: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), creds.RawKey); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("deactivated provider's key still authenticates: %v", err)
	}

	// Reactivation brings the same key back.
	if _, err := svc.ReactivateProvider(context.Background(), creds.Provider.ID); err != nil {
		t.Fatalf("ReactivateProvider: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), creds.RawKey); err != nil {
		t.Errorf("key rejected after reactivation: %v", err)
	}
}

func TestAuthenticateDoesNotCacheFailures(t *testing.T) {
	repo := store.NewMemoryRepository()
	svc := newTestService(t, repo)

	creds, err := svc.CreateProvider(context.Background(), domain.CreateProviderRequest{
		Code: "MPESA", Name: "M-Pesa",
	})
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}

	if _, err := svc.DeactivateProvider(context.Background(), creds.Provider.ID); err != nil {
		t.Fatalf("DeactivateProvider: %v", err)
	}
	// Failed attempt while inactive must not poison the key.
	if _, err := svc.Authenticate(context.Background(), creds.RawKey); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found while inactive, got %v", err)
	}

	if _, err := svc.ReactivateProvider(context.Background(), creds.Provider.ID); err != nil {
		t.Fatalf("ReactivateProvider: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), creds.RawKey); err != nil {
		t.Errorf("key rejected after reactivation; negative result was cached: %v", err)
	}
}

func TestUpdateProviderName(t *testing.T) {
	svc := newTestService(t, store.NewMemoryRepository())
	provider := seedProvider(t, svc, "MPESA")

	updated, err := svc.UpdateProviderName(context.Background(), provider.ID, domain.UpdateProviderRequest{
		Name: "M-Pesa Kenya",
	})
	if err != nil {
		t.Fatalf("UpdateProviderName: %v", err)
	}
	if updated.Name != "M-Pesa Kenya" {
		t.Errorf("name = %q", updated.Name)
	}

	if _, err := svc.UpdateProviderName(context.Background(), provider.ID, domain.UpdateProviderRequest{Name: " "}); err == nil {
		t.Error("blank name accepted")
	}
}
