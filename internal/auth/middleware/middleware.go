// Package middleware authenticates requests and establishes the
// per-request tenant context.
//
// The tenant identifier is taken exclusively from validated token
// claims. Nothing in the request body or query can override it; every
// downstream unit of work derives its RLS setting from what this
// middleware put into the context.
package middleware

import (
	"net/http"
	"strings"

	"github.com/dentora/dentora-backend/internal/auth/jwt"
	"github.com/dentora/dentora-backend/pkg/actor"
	"github.com/dentora/dentora-backend/pkg/errors"
	"github.com/dentora/dentora-backend/pkg/httputil"
	"github.com/dentora/dentora-backend/pkg/logger"
	"github.com/dentora/dentora-backend/pkg/permissions"
	"github.com/dentora/dentora-backend/pkg/tenant"
	"github.com/dentora/dentora-backend/pkg/tokencache"
)

// Authenticator validates bearer tokens and populates request context
type Authenticator struct {
	jwtManager *jwt.Manager
	revoked    *tokencache.Cache
	logger     *logger.Logger
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(jwtManager *jwt.Manager, revoked *tokencache.Cache, log *logger.Logger) *Authenticator {
	return &Authenticator{
		jwtManager: jwtManager,
		revoked:    revoked,
		logger:     log,
	}
}

// Authenticate validates the Authorization header, rejects revoked
// tokens, and attaches user, actor and tenant context. Principals
// without a tenant claim are rejected: no request reaches a repository
// without a resolvable tenant.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			httputil.Error(w, errors.Unauthorized("missing bearer token"))
			return
		}

		claims, err := a.jwtManager.ValidateAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			httputil.Error(w, err)
			return
		}

		revoked, err := a.revoked.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			a.logger.Error().Err(err).Msg("token revocation check failed")
			httputil.Error(w, errors.Unauthorized("could not verify token"))
			return
		}
		if revoked {
			httputil.Error(w, errors.TokenInvalid())
			return
		}

		if claims.TenantID == "" {
			httputil.Error(w, errors.MissingTenantContext())
			return
		}

		ctx := httputil.WithUserContext(r.Context(), claims.UserID, claims.Email, claims.Role)
		ctx = actor.WithActor(ctx, &actor.Actor{
			ID:       claims.UserID,
			Email:    claims.Email,
			TenantID: claims.TenantID,
			Role:     claims.Role,
		})
		ctx = tenant.WithTenant(ctx, claims.TenantID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission gates a route on the acting principal's role.
func RequirePermission(required string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := httputil.GetUserRole(r.Context())
			if !permissions.HasPermission(role, required) {
				httputil.Error(w, errors.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
