package api

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func idempotentRequest(h http.Handler, key string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/offers/transfer", nil)
	req.Header.Set(IdempotencyHeader, key)
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyConcurrentSameKey(t *testing.T) {
	c := newIdempotencyCache(time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	h := c.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		writeJSON(w, http.StatusCreated, map[string]any{"offer": "o-1"})
	}))

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- idempotentRequest(h, "bid-1") }()
	<-started

	if rec := idempotentRequest(h, "bid-1"); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate during first request: expected 409, got %d", rec.Code)
	}
	close(release)
	first := <-done
	if first.Code != http.StatusCreated {
		t.Fatalf("first request: %d", first.Code)
	}

	replay := idempotentRequest(h, "bid-1")
	if replay.Code != http.StatusCreated || replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed 201, got %d", replay.Code)
	}
	if replay.Body.String() != first.Body.String() {
		t.Fatalf("replayed body %q want %q", replay.Body.String(), first.Body.String())
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("handler ran %d times", n)
	}
}

func TestIdempotencyServerErrorsNotCached(t *testing.T) {
	c := newIdempotencyCache(time.Minute)
	var calls atomic.Int32
	h := c.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeError(w, http.StatusInternalServerError, "boom")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}))

	if rec := idempotentRequest(h, "retry-1"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("first: %d", rec.Code)
	}
	rec := idempotentRequest(h, "retry-1")
	if rec.Code != http.StatusOK || rec.Header().Get("Idempotent-Replayed") != "" {
		t.Fatalf("retry after 500 should run again, got %d replayed=%q", rec.Code, rec.Header().Get("Idempotent-Replayed"))
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("handler ran %d times", n)
	}
}

func TestIdempotencyKeysExpire(t *testing.T) {
	c := newIdempotencyCache(20 * time.Millisecond)
	var calls atomic.Int32
	h := c.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}))

	idempotentRequest(h, "old")
	time.Sleep(50 * time.Millisecond)
	if rec := idempotentRequest(h, "old"); rec.Header().Get("Idempotent-Replayed") != "" {
		t.Fatalf("expired key was replayed")
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("handler ran %d times", n)
	}
}
