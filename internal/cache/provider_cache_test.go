package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mobipay/account-service/internal/domain"
)

func TestProviderCachePutGet(t *testing.T) {
	c := NewProviderCache(nil)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put("hash-1", domain.Provider{ID: 1, Code: "MPESA", Active: true})

	got, ok := c.Get("hash-1")
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got.Code != "MPESA" {
		t.Errorf("Code = %q, want MPESA", got.Code)
	}
}

func TestProviderCacheInvalidate(t *testing.T) {
	c := NewProviderCache(nil)
	c.Put("hash-1", domain.Provider{ID: 1, Code: "MPESA"})

	c.Invalidate("hash-1")
	if _, ok := c.Get("hash-1"); ok {
		t.Fatal("expected miss after Invalidate")
	}

	// Invalidating an absent hash must not panic.
	c.Invalidate("never-cached")
}

func TestProviderCacheReturnsCopy(t *testing.T) {
	c := NewProviderCache(nil)
	c.Put("hash-1", domain.Provider{ID: 1, Code: "MPESA", Active: true})

	got, _ := c.Get("hash-1")
	got.Active = false

	again, _ := c.Get("hash-1")
	if !again.Active {
		t.Fatal("mutation of returned value leaked into the cache")
	}
}

func TestProviderCacheConcurrentAccess(t *testing.T) {
	c := NewProviderCache(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			hash := fmt.Sprintf("hash-%d", n%10)
			c.Put(hash, domain.Provider{ID: int64(n), Code: "P"})
			c.Get(hash)
			if n%3 == 0 {
				c.Invalidate(hash)
			}
		}(i)
	}
	wg.Wait()
}
