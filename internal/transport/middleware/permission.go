package middleware

import (
	"log/slog"
	"net/http"

	"github.com/ThanhXT2002/api-insurance-sub001/internal"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/auth"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/transport"
)

// RequirePermissions passes only when the identity holds EVERY listed key
// (logical AND). The forbidden response carries the required and held keys
// for admin tooling; public-facing routers should not mount this detail.
func RequirePermissions(keys ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			base := transport.NewBaseHandler(nil)

			snap, ok := auth.SnapshotFromContext(r.Context())
			if !ok || snap == nil {
				base.WriteAppError(w, internal.ErrMissingCredential)
				return
			}

			if !snap.HasAllPermissions(keys) {
				slog.Warn("access denied: missing permissions",
					"user_id", snap.UserID,
					"required_permissions", keys,
					"missing_permissions", snap.MissingPermissions(keys),
					"user_permissions", snap.Permissions)
				base.WriteAppError(w, internal.ErrInsufficientPermissions.WithDetails(map[string]interface{}{
					"required": keys,
					"held":     snap.Permissions,
				}))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles passes when the identity holds ANY of the listed role keys
// (logical OR), in contrast to RequirePermissions' AND.
func RequireRoles(keys ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			base := transport.NewBaseHandler(nil)

			snap, ok := auth.SnapshotFromContext(r.Context())
			if !ok || snap == nil {
				base.WriteAppError(w, internal.ErrMissingCredential)
				return
			}

			if !snap.HasAnyRole(keys) {
				slog.Warn("access denied: missing role",
					"user_id", snap.UserID,
					"required_roles", keys,
					"user_roles", snap.RoleKeys())
				base.WriteAppError(w, internal.ErrMissingRole.WithDetails(map[string]interface{}{
					"required": keys,
					"held":     snap.RoleKeys(),
				}))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
