// Package identity resolves the authenticated principal for a request.
//
// Token issuance and session management live in an external auth
// collaborator; this package only maps a presented token to a principal
// and materializes the principal's permission grants once per request.
package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/agentdeck/internal/domain"
	"github.com/ashureev/agentdeck/internal/rbac"
)

const authHeaderName = "Authorization"

type contextKey int

const (
	principalKey contextKey = iota
	grantsKey
)

// Resolver maps an auth token to a principal. A (nil, nil) result means
// the token is unknown; the request then proceeds unauthenticated.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*domain.Principal, error)
}

// StaticResolver resolves tokens from a fixed in-memory table. It backs
// single-operator deployments where the admin token is configured via
// the environment.
type StaticResolver struct {
	tokens map[string]domain.Principal
}

// NewStaticResolver creates a resolver over a fixed token table.
func NewStaticResolver(tokens map[string]domain.Principal) *StaticResolver {
	return &StaticResolver{tokens: tokens}
}

// Resolve looks up the token in the static table.
func (r *StaticResolver) Resolve(_ context.Context, token string) (*domain.Principal, error) {
	if p, ok := r.tokens[token]; ok {
		principal := p
		return &principal, nil
	}
	return nil, nil
}

// PrincipalFromContext extracts the principal from the request context.
// Returns nil for unauthenticated requests.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	if p, ok := ctx.Value(principalKey).(*domain.Principal); ok {
		return p
	}
	return nil
}

// GrantsFromContext extracts the materialized permission set from the
// request context. Unauthenticated requests carry an empty set.
func GrantsFromContext(ctx context.Context) rbac.Grants {
	if g, ok := ctx.Value(grantsKey).(rbac.Grants); ok {
		return g
	}
	return rbac.Grants{}
}

func tokenFromRequest(r *http.Request) string {
	auth := r.Header.Get(authHeaderName)
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// Middleware resolves the request's bearer token to a principal and
// attaches it, with its permission grants, to the context. Requests
// without a resolvable token proceed unauthenticated: the evaluator
// then denies every capability check. A resolver or role-lookup failure
// is treated the same way rather than failing the request, since public
// embed routes share this middleware.
func Middleware(resolver Resolver, evaluator *rbac.Evaluator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				slog.Warn("principal resolution failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			grants, err := evaluator.Grants(r.Context(), principal)
			if err != nil {
				slog.Warn("grant materialization failed", "user_id", principal.UserID, "error", err)
				grants = rbac.Grants{}
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			ctx = context.WithValue(ctx, grantsKey, grants)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
