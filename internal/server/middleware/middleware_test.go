package middleware

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/bolao/internal/httputil"
)

func signToken(t *testing.T, method jwt.SigningMethod, secret, sub string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := httputil.UserIDFrom(r.Context())
		_, _ = w.Write([]byte(id))
	})
}

func TestJWTAuth(t *testing.T) {
	future := time.Now().Add(time.Hour)
	tests := []struct {
		name       string
		secret     string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid", "s3cret", "Bearer " + signToken(t, jwt.SigningMethodHS256, "s3cret", "user-1", future), http.StatusOK, "user-1"},
		{"missing header", "s3cret", "", http.StatusUnauthorized, ""},
		{"wrong secret", "s3cret", "Bearer " + signToken(t, jwt.SigningMethodHS256, "other", "user-1", future), http.StatusUnauthorized, ""},
		{"wrong algorithm", "s3cret", "Bearer " + signToken(t, jwt.SigningMethodHS512, "s3cret", "user-1", future), http.StatusUnauthorized, ""},
		{"expired", "s3cret", "Bearer " + signToken(t, jwt.SigningMethodHS256, "s3cret", "user-1", time.Now().Add(-time.Hour)), http.StatusUnauthorized, ""},
		{"no subject", "s3cret", "Bearer " + signToken(t, jwt.SigningMethodHS256, "s3cret", "", future), http.StatusUnauthorized, ""},
		{"not configured", "", "Bearer whatever", http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewJWTAuth(tt.secret).Middleware(echoUser())
			req := httptest.NewRequest(http.MethodGet, "/boosters/inventory", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func argonHash(value string) string {
	salt := []byte("0123456789abcdef")
	hash := argon2.IDKey([]byte(value), salt, 1, 1024, 1, 32)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s", 1024, 1, 1,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(hash))
}

func TestSchedulerSecret(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name       string
		configured string
		header     *string
		wantStatus int
	}{
		{"matching header", "tick", ptr("tick"), http.StatusOK},
		{"mismatching header", "tick", ptr("tock"), http.StatusUnauthorized},
		{"absent header, no secret", "", nil, http.StatusOK},
		{"absent header, secret set", "tick", nil, http.StatusUnauthorized},
		{"present header, no secret", "", ptr("tick"), http.StatusUnauthorized},
		{"argon2 hash matches", argonHash("tick"), ptr("tick"), http.StatusOK},
		{"argon2 hash mismatch", argonHash("tick"), ptr("tock"), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/jobs/sweep-expired", nil)
			if tt.header != nil {
				req.Header.Set(SchedulerSecretHeader, *tt.header)
			}
			rec := httptest.NewRecorder()
			SchedulerSecret(tt.configured)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func ptr(s string) *string { return &s }

func TestRateLimiterPerUser(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u2"))

	now = now.Add(31 * time.Second)
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))
}

func TestRateLimiterEvictsIdle(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("u1")

	now = now.Add(idleTTL + time.Second)
	rl.evictIdle()
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()
	h := rl.Middleware(echoUser())

	call := func() int {
		req := httptest.NewRequest(http.MethodPost, "/boosters/activate", nil)
		req = req.WithContext(httputil.WithUserID(req.Context(), "u1"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, call())
	assert.Equal(t, http.StatusTooManyRequests, call())
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":false`)
}

func TestAccessLogKeepsStatus(t *testing.T) {
	h := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
