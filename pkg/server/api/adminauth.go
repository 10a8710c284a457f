package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminAuth issues and validates the bearer tokens that protect the
// operator surface (§9: server session auth, kept deliberately separate
// from the per-file signed-envelope auth every protocol endpoint uses).
// An admin token authorizes operating the server itself - inspecting
// accounts, usage - never a user's encrypted data, which this token
// carries no key material to decrypt regardless.
type AdminAuth struct {
	secret   []byte
	issuer   string
	duration time.Duration
}

var (
	ErrInvalidAdminToken = errors.New("server/api: invalid admin token")
	ErrAdminTokenExpired = errors.New("server/api: admin token expired")
)

// NewAdminAuth builds an AdminAuth from an HMAC secret of at least 32
// bytes, matching the minimum the teacher's own JWT service enforces.
func NewAdminAuth(secret string, issuer string, duration time.Duration) (*AdminAuth, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("server/api: admin secret must be at least 32 characters")
	}
	if issuer == "" {
		issuer = "lockbook-server"
	}
	if duration == 0 {
		duration = 15 * time.Minute
	}
	return &AdminAuth{secret: []byte(secret), issuer: issuer, duration: duration}, nil
}

type adminClaims struct {
	jwt.RegisteredClaims
	Operator string `json:"operator"`
}

// IssueToken mints a bearer token for operator, valid for a.duration.
// There is no refresh flow: operators re-authenticate through whatever
// out-of-band channel (config secret, SSO) the deployment wires up.
func (a *AdminAuth) IssueToken(operator string) (string, error) {
	now := time.Now()
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.duration)),
		},
		Operator: operator,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AdminAuth) validate(tokenString string) (*adminClaims, error) {
	claims := &adminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method)
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAdminTokenExpired
		}
		return nil, ErrInvalidAdminToken
	}
	if !token.Valid {
		return nil, ErrInvalidAdminToken
	}
	return claims, nil
}

// Middleware rejects any request without a valid "Bearer <token>"
// Authorization header, the way apiMiddleware.JWTAuth does in the teacher.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, wireError{Kind: "invalid_auth", Message: "missing bearer token"})
			return
		}
		if _, err := a.validate(token); err != nil {
			status := http.StatusUnauthorized
			kind := "invalid_auth"
			if errors.Is(err, ErrAdminTokenExpired) {
				kind = "expired_auth"
			}
			writeError(w, status, wireError{Kind: kind, Message: err.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}
