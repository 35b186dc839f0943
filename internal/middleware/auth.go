package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	claimsKey contextKey = "admin_claims"
	apiKeyKey contextKey = "api_key"

	APIKeyHeader = "X-API-Key"

	RolePlatformOwner = "PLATFORM_OWNER"
	RolePlatformAdmin = "PLATFORM_ADMIN"
)

var errMissingToken = errors.New("missing bearer token")

// Claims are the admin token claims. Roles may arrive as a "roles" list or
// a single "role" string.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	Role  string   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if c.Role == r || slices.Contains(c.Roles, r) {
			return true
		}
	}
	return false
}

// TokenValidator parses an admin bearer token.
type TokenValidator interface {
	ValidateToken(tokenStr string) (*Claims, error)
}

type jwtValidator struct {
	secret []byte
}

func NewJWTValidator(secret string) TokenValidator {
	return &jwtValidator{secret: []byte(secret)}
}

func (v *jwtValidator) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// SignToken issues an HS256 admin token. Used by operators' tooling and tests.
func SignToken(secret string, claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// AdminAuth rejects requests without a valid bearer token and stores the
// claims in the request context.
func AdminAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized: "+err.Error())
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized: invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole must run after AdminAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !claims.HasAnyRole(roles...) {
				writeError(w, http.StatusForbidden, "forbidden: insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// APIKey copies the X-API-Key header into the request context. Validation is
// left to the handlers, which differ in how strict they are.
func APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
		ctx := context.WithValue(r.Context(), apiKeyKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func APIKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(apiKeyKey).(string)
	return key
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}
