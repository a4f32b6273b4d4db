package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// TokenVerifier is the external identity collaborator. Token issuance and
// session mechanics live entirely outside this service; the middleware only
// gates on the verdict.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// Auth rejects requests whose bearer token (or session cookie) the verifier
// does not accept. With required=false the middleware is a no-op, for local
// development behind a trusted proxy.
func Auth(l *slog.Logger, v TokenVerifier, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if !required {
				next.ServeHTTP(w, r)
				return
			}
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "missing credentials", http.StatusUnauthorized)
				return
			}
			ok, err := v.Verify(r.Context(), token)
			if err != nil {
				l.Warn("token verification failed", "err", err)
				http.Error(w, "authorization unavailable", http.StatusServiceUnavailable)
				return
			}
			if !ok {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if rest, found := strings.CutPrefix(h, "Bearer "); found {
		return strings.TrimSpace(rest)
	}
	if c, err := r.Cookie("session_token"); err == nil {
		return c.Value
	}
	return ""
}

// StaticVerifier accepts a fixed token set; stands in for the hosted identity
// provider in tests and single-tenant deployments.
type StaticVerifier struct {
	tokens []string
}

func NewStaticVerifier(tokens []string) *StaticVerifier {
	var out []string
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return &StaticVerifier{tokens: out}
}

func (s *StaticVerifier) Verify(_ context.Context, token string) (bool, error) {
	for _, t := range s.tokens {
		if subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1 {
			return true, nil
		}
	}
	return false, nil
}
