package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/daybeamapp/golfkit/billing"
	memorystore "github.com/daybeamapp/golfkit/storage/memory"
)

const testSecret = "whsec-test"

func newWebhookRouter(t *testing.T, secret string) (*gin.Engine, *memorystore.PermissionStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memorystore.NewPermissionStore()
	svc := billing.NewService(billing.ServiceConfig{
		Store:              store,
		PremiumEntitlement: "product_a",
		DefaultEntitlement: "product_a",
		Logger:             logrus.New(),
	})
	r := gin.New()
	r.Any("/webhooks/revenuecat", HandleBillingWebhookPOST(svc, secret, logrus.New()))
	return r, store
}

func webhookBody() string {
	return `{
		"api_version": "1.0",
		"event": {
			"type": "INITIAL_PURCHASE",
			"id": "evt-1",
			"original_app_user_id": "u1",
			"product_id": "p1",
			"entitlement_ids": ["product_a"],
			"environment": "PRODUCTION",
			"expiration_at_ms": 1893456000000,
			"transaction_id": "t1",
			"store": "app_store"
		}
	}`
}

func TestWebhookRejectsWrongMethod(t *testing.T) {
	r, store := newWebhookRouter(t, testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/webhooks/revenuecat", nil)
	// Deliberately no Authorization: method checks come before auth.
	r.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["error"] != "Method not allowed" {
		t.Fatalf("bad error payload: %v", resp)
	}
	if perms, _ := store.ListByProfile(context.Background(), "u1"); len(perms) != 0 {
		t.Fatal("rejected request must not touch the store")
	}
}

func TestWebhookAnswersPreflight(t *testing.T) {
	r, _ := newWebhookRouter(t, testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/webhooks/revenuecat", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Fatalf("missing CORS methods header: %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Authorization") {
		t.Fatalf("missing CORS headers header: %q", got)
	}
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	r, store := newWebhookRouter(t, testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/revenuecat", strings.NewReader(webhookBody()))
	req.Header.Set("Authorization", "wrong-secret")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "Unauthorized" {
		t.Fatalf("bad error payload: %v", resp)
	}
	if perms, _ := store.ListByProfile(context.Background(), "u1"); len(perms) != 0 {
		t.Fatal("unauthorized request must not touch the store")
	}
}

func TestWebhookFailsClosedWithoutSecret(t *testing.T) {
	r, store := newWebhookRouter(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/revenuecat", strings.NewReader(webhookBody()))
	req.Header.Set("Authorization", "anything")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "Server configuration error" {
		t.Fatalf("bad error payload: %v", resp)
	}
	if perms, _ := store.ListByProfile(context.Background(), "u1"); len(perms) != 0 {
		t.Fatal("misconfigured server must not touch the store")
	}
}

func TestWebhookMalformedBodyIsGenericServerError(t *testing.T) {
	r, _ := newWebhookRouter(t, testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/revenuecat", strings.NewReader("{not json"))
	req.Header.Set("Authorization", testSecret)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "error" || resp["message"] != "Server error processing webhook" {
		t.Fatalf("internal detail must not leak: %v", resp)
	}
}

func TestWebhookProcessesPurchase(t *testing.T) {
	r, store := newWebhookRouter(t, testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/revenuecat", strings.NewReader(webhookBody()))
	req.Header.Set("Authorization", testSecret)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "processed" || resp["event_type"] != "INITIAL_PURCHASE" ||
		resp["environment"] != "PRODUCTION" || resp["user_id"] != "u1" {
		t.Fatalf("bad success payload: %v", resp)
	}

	p, found, _ := store.Get(context.Background(), "u1", "product_a")
	if !found || !p.Active {
		t.Fatalf("record not written: found=%v %+v", found, p)
	}
}

func TestWebhookAcknowledgesUnknownEventType(t *testing.T) {
	r, store := newWebhookRouter(t, testSecret)

	body := `{"event":{"type":"SUBSCRIBER_ALIAS","original_app_user_id":"u1"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/revenuecat", strings.NewReader(body))
	req.Header.Set("Authorization", testSecret)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unknown event types must return 200, got %d", w.Code)
	}
	if perms, _ := store.ListByProfile(context.Background(), "u1"); len(perms) != 0 {
		t.Fatal("unknown event must not mutate the store")
	}
}
