package apikey

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestIssueReturnsUniqueOpaqueKeys(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		raw := Issue()
		if _, err := uuid.Parse(raw); err != nil {
			t.Fatalf("issued key %q is not a UUID: %v", raw, err)
		}
		if _, dup := seen[raw]; dup {
			t.Fatalf("issued duplicate key %q", raw)
		}
		seen[raw] = struct{}{}
	}
}

func TestHashIsDeterministicAndOneWay(t *testing.T) {
	raw := Issue()

	h1 := Hash(raw)
	h2 := Hash(raw)
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h1))
	}
	if strings.Contains(h1, raw[:PrefixLength]) {
		t.Fatal("hash must not embed the raw key")
	}
	if Hash(raw+"x") == h1 {
		t.Fatal("different inputs produced the same hash")
	}
}

func TestPrefix(t *testing.T) {
	if got := Prefix("e7e75fe1-4192-4e34-af5e-6010d787c029"); got != "e7e75fe1" {
		t.Fatalf("unexpected prefix %q", got)
	}
	if got := Prefix("abc"); got != "abc" {
		t.Fatalf("short input should be returned whole, got %q", got)
	}
}
