package api

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	gocache "github.com/patrickmn/go-cache"
)

// IdempotencyHeader lets clients retry mutations safely. A repeated key on
// the same route replays the first response instead of running the
// operation again.
const IdempotencyHeader = "Idempotency-Key"

const defaultIdempotencyTTL = 24 * time.Hour

type cachedResponse struct {
	status int
	body   []byte
}

// inFlight marks a key whose first request is still running.
type inFlight struct{}

type idempotencyCache struct {
	cache *gocache.Cache
	ttl   time.Duration
}

func newIdempotencyCache(ttl time.Duration) *idempotencyCache {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &idempotencyCache{
		cache: gocache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// claim reserves key for the caller. When the key is already taken it
// returns the stored entry instead.
func (c *idempotencyCache) claim(key string) (any, bool) {
	if err := c.cache.Add(key, inFlight{}, c.ttl); err == nil {
		return nil, true
	}
	entry, found := c.cache.Get(key)
	if !found {
		// Expired between Add and Get.
		return nil, c.cache.Add(key, inFlight{}, c.ttl) == nil
	}
	return entry, false
}

func (c *idempotencyCache) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		key = r.Method + " " + r.URL.Path + " " + key
		entry, owner := c.claim(key)
		if !owner {
			resp, done := entry.(cachedResponse)
			if !done {
				writeError(w, http.StatusConflict, "a request with this idempotency key is still in progress")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(resp.status)
			_, _ = w.Write(resp.body)
			return
		}

		var buf bytes.Buffer
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&buf)
		defer func() {
			// Server errors and panics release the key so the client can retry.
			status := ww.Status()
			if status == 0 || status >= http.StatusInternalServerError {
				c.cache.Delete(key)
				return
			}
			c.cache.Set(key, cachedResponse{status: status, body: buf.Bytes()}, c.ttl)
		}()
		next.ServeHTTP(ww, r)
	})
}
