package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

type ctxKey string

const ctxIdentity ctxKey = "identity"

// Identity is the caller as asserted by a verified bearer token.
type Identity struct {
	Role     domain.Role
	EntityID string
}

type authClaims struct {
	Role     string `json:"role"`
	EntityID string `json:"entity_id"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token carrying role and entity_id claims.
func IssueToken(secret string, role domain.Role, entityID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := authClaims{
		Role:     string(role),
		EntityID: entityID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// identify verifies a bearer token when one is sent and a secret is
// configured. Without a token the request falls through to query-parameter
// identity unless auth is required.
func (h *HTTPHandler) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if h.opts.AuthSecret == "" || header == "" {
			if h.opts.AuthRequired {
				h.respondError(w, domain.Unauthenticatedf("missing bearer token"))
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			h.respondError(w, domain.Unauthenticatedf("missing bearer token"))
			return
		}
		id, err := h.verify(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			h.respondError(w, &domain.Error{Kind: domain.KindUnauthenticated, Message: "invalid token", Err: err})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxIdentity, id)))
	})
}

func (h *HTTPHandler) verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(h.opts.AuthSecret), nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid token")
	}
	claims, ok := token.Claims.(*authClaims)
	if !ok {
		return Identity{}, errors.New("invalid token claims")
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return Identity{}, errors.New("unknown role claim")
	}
	if role != domain.RoleSuperAdmin && claims.EntityID == "" {
		return Identity{}, errors.New("missing entity_id claim")
	}
	return Identity{Role: role, EntityID: claims.EntityID}, nil
}

func identityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(Identity)
	return id, ok
}

// scope resolves the caller's visibility. A verified token wins over the
// role and entityId query parameters.
func (h *HTTPHandler) scope(r *http.Request) (domain.Scope, error) {
	if id, ok := identityFrom(r.Context()); ok {
		return h.inventory.ResolveScope(r.Context(), string(id.Role), id.EntityID)
	}
	q := r.URL.Query()
	return h.inventory.ResolveScope(r.Context(), q.Get("role"), q.Get("entityId"))
}
