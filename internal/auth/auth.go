// Package auth verifies bearer tokens and enforces the admin role on the
// movies API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"git.cscs.ch/openchami/chamicore-movies/internal/httputil"
)

// AdminClaim is the private claim marking a caller as administrator.
const AdminClaim = "admin"

// DevSubject is the subject of the principal used when dev mode bypasses
// verification.
const DevSubject = "dev-mode"

var (
	// ErrTokenMissing indicates the Authorization header did not carry a
	// bearer token.
	ErrTokenMissing = errors.New("missing or malformed Authorization bearer token")
	// ErrTokenInvalid indicates the bearer token failed verification.
	ErrTokenInvalid = errors.New("invalid bearer token")
)

// Principal is the authenticated caller.
type Principal struct {
	Subject string
	Admin   bool
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by the middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Config configures a Verifier.
type Config struct {
	// Secret is the HS256 signing key.
	Secret []byte
	// Issuer, when set, must match the token's iss claim.
	Issuer string
	// DevMode skips verification and treats every caller as admin.
	DevMode bool
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	cfg Config
}

// NewVerifier returns a Verifier. A secret is required unless dev mode is
// enabled.
func NewVerifier(cfg Config) (*Verifier, error) {
	if !cfg.DevMode && len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("jwt secret is required when dev mode is disabled")
	}
	return &Verifier{cfg: cfg}, nil
}

// Verify parses and validates token and returns its principal.
func (v *Verifier) Verify(token string) (Principal, error) {
	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, v.cfg.Secret),
		jwt.WithValidate(true),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}

	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	subject := strings.TrimSpace(parsed.Subject())
	if subject == "" {
		return Principal{}, fmt.Errorf("%w: sub claim is required", ErrTokenInvalid)
	}

	p := Principal{Subject: subject}
	if raw, ok := parsed.Get(AdminClaim); ok {
		p.Admin = isTrue(raw)
	}
	return p, nil
}

func isTrue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	default:
		return false
	}
}

// Authenticate verifies the Authorization header of r.
func (v *Verifier) Authenticate(r *http.Request) (Principal, error) {
	if v.cfg.DevMode {
		return Principal{Subject: DevSubject, Admin: true}, nil
	}
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return Principal{}, ErrTokenMissing
	}
	return v.Verify(token)
}

// Middleware rejects unauthenticated requests with 401 and stores the
// principal in the request context.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := v.Authenticate(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="chamicore-movies"`)
			httputil.RespondProblem(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireAdmin rejects callers without the admin claim with 403. It must
// run after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			httputil.RespondProblem(w, r, http.StatusForbidden, "no principal in context")
			return
		}
		if !p.Admin {
			httputil.RespondProblem(w, r, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseBearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
