package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestClientGenerateSendsRequest(t *testing.T) {
	var gotAuth string
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL, Token: "insights-token"}
	if err := c.Generate(context.Background(), "u1", TriggerPurchaseWebhook); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer insights-token" {
		t.Fatalf("bad authorization header: %q", gotAuth)
	}
	if gotBody.UserID != "u1" || gotBody.Trigger != "purchase_webhook" {
		t.Fatalf("bad request body: %+v", gotBody)
	}
}

func TestClientGenerateErrorsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL}
	if err := c.Generate(context.Background(), "u1", TriggerPurchaseWebhook); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestTriggerSwallowsFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "downstream broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	trig := NewTrigger(&Client{URL: srv.URL}, time.Second, logrus.New())

	// Must return immediately and must not panic or surface the failure.
	trig.TriggerPurchaseInsights("u1")
	trig.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected one outbound call, got %d", calls.Load())
	}
}

func TestTriggerDetachesFromCaller(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	trig := NewTrigger(&Client{URL: srv.URL}, 5*time.Second, logrus.New())

	done := make(chan struct{})
	go func() {
		trig.TriggerPurchaseInsights("u1")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("trigger blocked the caller")
	}
	close(release)
	trig.Wait()
}
