package tenant

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

type config struct {
	cache         Cache
	cacheTTL      time.Duration
	errorHandler  func(w http.ResponseWriter, r *http.Request, err error)
	requireActive bool
}

// Option configures the auth middleware.
type Option func(*config)

// WithCache replaces the default in-memory cache.
func WithCache(cache Cache) Option {
	return func(c *config) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithCacheTTL sets how long resolved tenants stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithErrorHandler replaces the default JSON error responder.
func WithErrorHandler(fn func(w http.ResponseWriter, r *http.Request, err error)) Option {
	return func(c *config) {
		if fn != nil {
			c.errorHandler = fn
		}
	}
}

// Middleware authenticates dashboard/API requests by API key and puts
// the resolved tenant into the request context. The cache is keyed by a
// digest of the raw key, so a hit skips both the store lookup and the
// bcrypt comparison.
func Middleware(provider Provider, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		cache:         NewMemCache(),
		cacheTTL:      5 * time.Minute,
		errorHandler:  defaultErrorHandler,
		requireActive: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := apiKeyFromRequest(r)
			if raw == "" {
				cfg.errorHandler(w, r, ErrInvalidAPIKey)
				return
			}

			cacheKey := digest(raw)
			if cached, ok := cfg.cache.Get(r.Context(), cacheKey); ok {
				if cfg.requireActive && !cached.Active {
					cfg.errorHandler(w, r, ErrInactiveTenant)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), cached)))
				return
			}

			id, secret, err := ParseAPIKey(raw)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			t, err := provider.GetByID(r.Context(), id)
			if err != nil {
				if errors.Is(err, ErrTenantNotFound) {
					// Same response as a bad key: existence of tenant
					// IDs is not disclosed to key guessers.
					cfg.errorHandler(w, r, ErrInvalidAPIKey)
					return
				}
				cfg.errorHandler(w, r, err)
				return
			}

			if err := VerifyAPIKey(t.APIKeyHash, secret); err != nil {
				cfg.errorHandler(w, r, err)
				return
			}
			if cfg.requireActive && !t.Active {
				cfg.errorHandler(w, r, ErrInactiveTenant)
				return
			}

			cfg.cache.Set(r.Context(), cacheKey, t, cfg.cacheTTL)
			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), t)))
		})
	}
}

func apiKeyFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-Api-Key")
}

func digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"
	switch {
	case errors.Is(err, ErrInvalidAPIKey):
		status, msg = http.StatusUnauthorized, "invalid API key"
	case errors.Is(err, ErrInactiveTenant):
		status, msg = http.StatusForbidden, "tenant is inactive"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
