package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pagsegurowebhook "github.com/resgatesabor/resgatesabor-backend/internal/webhooks/pagseguro"
)

type fakeWebhookService struct {
	calls  int
	events []*pagsegurowebhook.ChargeEvent
	fail   error
}

func (f *fakeWebhookService) HandleEvent(ctx context.Context, event *pagsegurowebhook.ChargeEvent) error {
	f.calls++
	f.events = append(f.events, event)
	return f.fail
}

type fakeGuard struct {
	seen map[string]bool
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{seen: make(map[string]bool)}
}

func (f *fakeGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if f.seen[eventID] {
		return true, nil
	}
	f.seen[eventID] = true
	return false, nil
}

func (f *fakeGuard) Delete(ctx context.Context, eventID string) error {
	delete(f.seen, eventID)
	return nil
}

type hmacVerifier struct {
	secret string
}

func (v *hmacVerifier) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func signedChargeEvent(t *testing.T, secret string) ([]byte, string) {
	t.Helper()
	paidAt := time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(pagsegurowebhook.ChargeEvent{
		EventID:     "evt_" + uuid.NewString(),
		ChargeID:    "CHAR_" + uuid.NewString(),
		ReferenceID: uuid.NewString(),
		Status:      "PAID",
		PaidAt:      &paidAt,
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return payload, hex.EncodeToString(mac.Sum(nil))
}

func TestPagSeguroWebhook_SuccessAndIdempotent(t *testing.T) {
	payload, signature := signedChargeEvent(t, "whsec_test")
	service := &fakeWebhookService{}
	guard := newFakeGuard()
	handler := PagSeguroWebhook(service, &hmacVerifier{secret: "whsec_test"}, guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pagseguro", bytes.NewReader(payload))
	req.Header.Set("X-PagSeguro-Signature", signature)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	// Same delivery again: acknowledged but not reprocessed.
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pagseguro", bytes.NewReader(payload))
	req2.Header.Set("X-PagSeguro-Signature", signature)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected duplicate not processed, call count %d", service.calls)
	}
}

func TestPagSeguroWebhook_InvalidSignature(t *testing.T) {
	payload, _ := signedChargeEvent(t, "whsec_test")
	service := &fakeWebhookService{}
	handler := PagSeguroWebhook(service, &hmacVerifier{secret: "whsec_test"}, newFakeGuard(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pagseguro", bytes.NewReader(payload))
	req.Header.Set("X-PagSeguro-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestPagSeguroWebhook_MissingSignature(t *testing.T) {
	payload, _ := signedChargeEvent(t, "whsec_test")
	service := &fakeWebhookService{}
	handler := PagSeguroWebhook(service, &hmacVerifier{secret: "whsec_test"}, newFakeGuard(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pagseguro", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked without signature")
	}
}

func TestPagSeguroWebhook_FailureReleasesGuard(t *testing.T) {
	payload, signature := signedChargeEvent(t, "whsec_test")
	service := &fakeWebhookService{fail: errors.New("db down")}
	guard := newFakeGuard()
	handler := PagSeguroWebhook(service, &hmacVerifier{secret: "whsec_test"}, guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pagseguro", bytes.NewReader(payload))
	req.Header.Set("X-PagSeguro-Signature", signature)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		t.Fatalf("expected error status, got 200")
	}
	if len(guard.seen) != 0 {
		t.Fatalf("failed delivery should release the guard for the retry")
	}

	// Gateway retry after the failure must reach the service again.
	service.fail = nil
	retry := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pagseguro", bytes.NewReader(payload))
	retry.Header.Set("X-PagSeguro-Signature", signature)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, retry)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on retry, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if service.calls != 2 {
		t.Fatalf("expected retry to be processed, call count %d", service.calls)
	}
}
