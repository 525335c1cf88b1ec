package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/mobipay/account-service/internal/app"
	"github.com/mobipay/account-service/internal/domain"
	"github.com/mobipay/account-service/internal/store"
)

const testAdminSecret = "test-admin-secret"

type testEnv struct {
	server  *httptest.Server
	service *app.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := store.NewMemoryRepository()
	service := app.NewService(repo, nil, nil, nil, nil, app.Options{
		CreateMaxAttempts: 5,
		CreateBackoff:     time.Millisecond,
	})
	handlers := NewHandlers(service, nil)
	server := httptest.NewServer(Routes(handlers, service, testAdminSecret))
	t.Cleanup(server.Close)
	return &testEnv{server: server, service: service}
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"sub":  "ops@example.com",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testAdminSecret))
	if err != nil {
		t.Fatalf("sign admin token: %v", err)
	}
	return signed
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp, buf.Bytes()
}

func (e *testEnv) admin(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	return e.do(t, method, path, body, map[string]string{
		"Authorization": "Bearer " + adminToken(t),
	})
}

func (e *testEnv) seedCustomer(t *testing.T) (domain.Customer, domain.Account) {
	t.Helper()
	resp, body := e.admin(t, http.MethodPost, "/admin/v1/customers", domain.CreateCustomerRequest{
		FirstName:    "Asha",
		LastName:     "Mwangi",
		Email:        fmt.Sprintf("asha%d@example.com", time.Now().UnixNano()),
		MobileNumber: "254700111222",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed customer: status %d body %s", resp.StatusCode, body)
	}
	var out struct {
		Customer domain.Customer `json:"customer"`
		Account  domain.Account  `json:"account"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode customer response: %v", err)
	}
	return out.Customer, out.Account
}

func (e *testEnv) seedProvider(t *testing.T, code string) (domain.Provider, string) {
	t.Helper()
	resp, body := e.admin(t, http.MethodPost, "/admin/v1/providers", domain.CreateProviderRequest{
		Code: code,
		Name: code + " Provider",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed provider: status %d body %s", resp.StatusCode, body)
	}
	var creds struct {
		Provider domain.Provider `json:"provider"`
		APIKey   string          `json:"api_key"`
	}
	if err := json.Unmarshal(body, &creds); err != nil {
		t.Fatalf("decode provider response: %v", err)
	}
	return creds.Provider, creds.APIKey
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/health", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	if string(body) != "healthy" {
		t.Errorf("health body = %q", body)
	}
}

func TestAdminAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/admin/v1/customers", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}

	// Valid signature but wrong role.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "viewer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte(testAdminSecret))
	resp, _ = env.do(t, http.MethodGet, "/admin/v1/customers", nil, map[string]string{
		"Authorization": "Bearer " + signed,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("wrong role: status = %d, want 403", resp.StatusCode)
	}

	// Wrong secret.
	forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
	}).SignedString([]byte("wrong-secret"))
	resp, _ = env.do(t, http.MethodGet, "/admin/v1/customers", nil, map[string]string{
		"Authorization": "Bearer " + forged,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("forged token: status = %d, want 401", resp.StatusCode)
	}
}

func TestProviderAPIRequiresKey(t *testing.T) {
	env := newTestEnv(t)
	_, account := env.seedCustomer(t)

	path := fmt.Sprintf("/api/v1/accounts/%d/deposits", account.AccountNumber)
	body := map[string]string{"amount": "100", "reference": "REF-1"}

	resp, _ := env.do(t, http.MethodPost, path, body, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodPost, path, body, map[string]string{APIKeyHeader: "bogus"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad key: status = %d, want 401", resp.StatusCode)
	}
}

func TestDepositEndpointStatusCodes(t *testing.T) {
	env := newTestEnv(t)
	_, account := env.seedCustomer(t)
	_, key := env.seedProvider(t, "MPESA")
	auth := map[string]string{APIKeyHeader: key}

	path := fmt.Sprintf("/api/v1/accounts/%d/deposits", account.AccountNumber)
	deposit := map[string]string{"amount": "500.00", "reference": "REF-1"}

	// Fresh deposit: 201.
	resp, body := env.do(t, http.MethodPost, path, deposit, auth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("fresh deposit: status %d body %s", resp.StatusCode, body)
	}
	var first struct {
		ReceiptNumber string `json:"receipt_number"`
		Replayed      bool   `json:"replayed"`
	}
	if err := json.Unmarshal(body, &first); err != nil {
		t.Fatalf("decode deposit response: %v", err)
	}
	if first.Replayed || first.ReceiptNumber == "" {
		t.Errorf("fresh deposit response: %+v", first)
	}

	// Identical resubmission: 200 with the original receipt.
	resp, body = env.do(t, http.MethodPost, path, deposit, auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replay: status %d body %s", resp.StatusCode, body)
	}
	var replay struct {
		ReceiptNumber string `json:"receipt_number"`
		Replayed      bool   `json:"replayed"`
	}
	_ = json.Unmarshal(body, &replay)
	if !replay.Replayed || replay.ReceiptNumber != first.ReceiptNumber {
		t.Errorf("replay response: %+v, want replay of %s", replay, first.ReceiptNumber)
	}

	// Same reference, different amount: 409.
	resp, _ = env.do(t, http.MethodPost, path, map[string]string{"amount": "600.00", "reference": "REF-1"}, auth)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("conflicting reuse: status = %d, want 409", resp.StatusCode)
	}

	// Unknown account: 404.
	resp, _ = env.do(t, http.MethodPost, "/api/v1/accounts/9999999999/deposits", deposit, auth)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown account: status = %d, want 404", resp.StatusCode)
	}

	// Invalid amount: 400.
	resp, _ = env.do(t, http.MethodPost, path, map[string]string{"amount": "-5", "reference": "REF-2"}, auth)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid amount: status = %d, want 400", resp.StatusCode)
	}
}

func TestDepositConfirmationEndpoint(t *testing.T) {
	env := newTestEnv(t)
	customer, account := env.seedCustomer(t)
	_, key := env.seedProvider(t, "MPESA")
	auth := map[string]string{APIKeyHeader: key}

	path := fmt.Sprintf("/api/v1/accounts/%d/deposits", account.AccountNumber)
	resp, _ := env.do(t, http.MethodPost, path, map[string]string{"amount": "42.00", "reference": "REF-C"}, auth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("deposit failed: %d", resp.StatusCode)
	}

	resp, body := env.do(t, http.MethodGet, "/api/v1/deposits/REF-C", nil, auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirmation: status %d body %s", resp.StatusCode, body)
	}
	var details domain.PaymentDetails
	if err := json.Unmarshal(body, &details); err != nil {
		t.Fatalf("decode confirmation: %v", err)
	}
	if details.ProviderCode != "MPESA" || details.CustomerID != customer.CustomerID {
		t.Errorf("confirmation details = %+v", details)
	}

	// A different provider gets 404 for the same reference.
	_, otherKey := env.seedProvider(t, "AIRTEL")
	resp, _ = env.do(t, http.MethodGet, "/api/v1/deposits/REF-C", nil, map[string]string{APIKeyHeader: otherKey})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign provider confirmation: status = %d, want 404", resp.StatusCode)
	}
}

func TestCustomerLifecycleEndpoints(t *testing.T) {
	env := newTestEnv(t)
	customer, _ := env.seedCustomer(t)

	// Duplicate email: 409.
	resp, _ := env.admin(t, http.MethodPost, "/admin/v1/customers", domain.CreateCustomerRequest{
		FirstName:    "Dup",
		LastName:     "User",
		Email:        customer.Email,
		MobileNumber: "254700000000",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate email: status = %d, want 409", resp.StatusCode)
	}

	// Partial update.
	newName := "Amina"
	resp, body := env.admin(t, http.MethodPatch, fmt.Sprintf("/admin/v1/customers/%d", customer.CustomerID),
		domain.UpdateCustomerRequest{FirstName: &newName})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status %d body %s", resp.StatusCode, body)
	}

	// Soft delete, then reads 404.
	resp, _ = env.admin(t, http.MethodDelete, fmt.Sprintf("/admin/v1/customers/%d", customer.CustomerID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("deactivate: status = %d, want 204", resp.StatusCode)
	}
	resp, _ = env.admin(t, http.MethodGet, fmt.Sprintf("/admin/v1/customers/%d", customer.CustomerID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after deactivate: status = %d, want 404", resp.StatusCode)
	}
}

func TestAccountManagementEndpoints(t *testing.T) {
	env := newTestEnv(t)
	customer, account := env.seedCustomer(t)

	// Secondary account with no body.
	resp, body := env.admin(t, http.MethodPost,
		fmt.Sprintf("/admin/v1/customers/%d/accounts", customer.CustomerID), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create secondary: status %d body %s", resp.StatusCode, body)
	}
	var secondary domain.Account
	if err := json.Unmarshal(body, &secondary); err != nil {
		t.Fatalf("decode secondary account: %v", err)
	}
	if secondary.MainAccount {
		t.Error("secondary account flagged as main")
	}

	// A second main account conflicts.
	resp, _ = env.admin(t, http.MethodPost,
		fmt.Sprintf("/admin/v1/customers/%d/accounts", customer.CustomerID),
		domain.CreateAccountRequest{MainAccount: true})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second main account: status = %d, want 409", resp.StatusCode)
	}

	// Balance correction, then an over-debit that must not change anything.
	adjustPath := fmt.Sprintf("/admin/v1/accounts/%d/adjustments", account.AccountNumber)
	resp, body = env.admin(t, http.MethodPost, adjustPath,
		domain.AdjustBalanceRequest{Amount: decimal.RequireFromString("75.00")})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("credit adjustment: status %d body %s", resp.StatusCode, body)
	}
	var adjusted domain.Account
	if err := json.Unmarshal(body, &adjusted); err != nil {
		t.Fatalf("decode adjusted account: %v", err)
	}
	if !adjusted.Balance.Equal(decimal.RequireFromString("75.00")) {
		t.Errorf("balance = %s, want 75.00", adjusted.Balance)
	}

	resp, _ = env.admin(t, http.MethodPost, adjustPath,
		domain.AdjustBalanceRequest{Amount: decimal.RequireFromString("-200.00")})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("over-debit: status = %d, want 422", resp.StatusCode)
	}

	resp, body = env.admin(t, http.MethodGet,
		fmt.Sprintf("/admin/v1/accounts/%d", account.AccountNumber), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get account: status %d body %s", resp.StatusCode, body)
	}
	var after domain.Account
	if err := json.Unmarshal(body, &after); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if !after.Balance.Equal(decimal.RequireFromString("75.00")) {
		t.Errorf("balance changed on failed debit: %s", after.Balance)
	}
}

func TestReportingEndpoints(t *testing.T) {
	env := newTestEnv(t)
	_, account := env.seedCustomer(t)
	_, key := env.seedProvider(t, "MPESA")
	auth := map[string]string{APIKeyHeader: key}

	path := fmt.Sprintf("/api/v1/accounts/%d/deposits", account.AccountNumber)
	for i, amount := range []string{"100.00", "200.00"} {
		resp, _ := env.do(t, http.MethodPost, path, map[string]string{
			"amount": amount, "reference": fmt.Sprintf("REF-%d", i),
		}, auth)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed deposit %d: status %d", i, resp.StatusCode)
		}
	}

	resp, body := env.admin(t, http.MethodGet, "/admin/v1/payments/totals", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("totals: status %d body %s", resp.StatusCode, body)
	}
	var totals domain.PaymentTotals
	if err := json.Unmarshal(body, &totals); err != nil {
		t.Fatalf("decode totals: %v", err)
	}
	if totals.Count != 2 {
		t.Errorf("totals count = %d, want 2", totals.Count)
	}

	resp, body = env.admin(t, http.MethodGet,
		fmt.Sprintf("/admin/v1/accounts/%d/deposits/summary", account.AccountNumber), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary: status %d body %s", resp.StatusCode, body)
	}

	resp, body = env.admin(t, http.MethodGet, "/admin/v1/reports/settlement/MPESA", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("settlement: status %d body %s", resp.StatusCode, body)
	}
	var report domain.SettlementReport
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatalf("decode settlement: %v", err)
	}
	if len(report.Payments) != 2 {
		t.Errorf("settlement payments = %d, want 2", len(report.Payments))
	}

	// Malformed filter: 400.
	resp, _ = env.admin(t, http.MethodGet, "/admin/v1/payments?from=yesterday", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad filter: status = %d, want 400", resp.StatusCode)
	}
}

func TestProviderKeyRotationEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, account := env.seedCustomer(t)
	provider, oldKey := env.seedProvider(t, "MPESA")

	resp, body := env.admin(t, http.MethodPost,
		fmt.Sprintf("/admin/v1/providers/%d/regenerate-key", provider.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rotation: status %d body %s", resp.StatusCode, body)
	}
	var creds struct {
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal(body, &creds); err != nil {
		t.Fatalf("decode rotation response: %v", err)
	}

	path := fmt.Sprintf("/api/v1/accounts/%d/deposits", account.AccountNumber)
	deposit := map[string]string{"amount": "10.00", "reference": "REF-R"}

	resp, _ = env.do(t, http.MethodPost, path, deposit, map[string]string{APIKeyHeader: oldKey})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("old key after rotation: status = %d, want 401", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, path, deposit, map[string]string{APIKeyHeader: creds.APIKey})
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("new key: status = %d, want 201", resp.StatusCode)
	}
}
