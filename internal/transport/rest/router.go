package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/ThanhXT2002/api-insurance-sub001/internal/auth"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/cache"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/rbac"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/transport/middleware"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/transport/swagger"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/user"
)

// PermManageRBAC guards the whole administrative surface.
const PermManageRBAC = "rbac.manage"

// RegisterAllRoutes wires the full HTTP surface: global middleware, health
// and swagger plumbing, the authenticated user surface, and the admin
// surface behind the rbac.manage permission gate.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	cacheStore cache.Store,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	rbacHandler *rbac.Handler,
	allowedOrigins string,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db, cacheStore)

	router.Use(middleware.CORSWithOrigins(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Optional-auth surface: resolves an identity when a credential is
		// present, never blocks. Handlers read the snapshot from context if
		// they care.
		r.Group(func(or chi.Router) {
			or.Use(authHandler.OptionalAuthMiddleware)
			or.Get("/session", authHandler.Session)
		})

		// Everything below fails closed.
		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			pr.Get("/auth/me", authHandler.Me)

			if userHandler != nil {
				pr.Get("/users/me", userHandler.GetCurrentUser)
				pr.Patch("/users/me", userHandler.UpdateCurrentUser)
			}

			if rbacHandler != nil {
				pr.Route("/admin", func(ar chi.Router) {
					ar.Use(middleware.RequirePermissions(PermManageRBAC))

					ar.Route("/roles", func(rr chi.Router) {
						rr.Get("/", rbacHandler.ListRoles)
						rr.Post("/", rbacHandler.CreateRole)
						rr.Get("/{id}", rbacHandler.GetRole)
						rr.Patch("/{id}", rbacHandler.UpdateRole)
						rr.Delete("/{id}", rbacHandler.DeleteRole)
						rr.Put("/{id}/permissions", rbacHandler.SetRolePermissions)
					})

					ar.Route("/permissions", func(pmr chi.Router) {
						pmr.Get("/", rbacHandler.ListPermissions)
						pmr.Post("/", rbacHandler.CreatePermission)
						pmr.Delete("/{id}", rbacHandler.DeletePermission)
					})

					ar.Route("/users/{userID}", func(ur chi.Router) {
						ur.Get("/roles", rbacHandler.ListUserRoles)
						ur.Post("/roles", rbacHandler.AssignRole)
						ur.Delete("/roles/{roleID}", rbacHandler.RemoveRole)
						ur.Get("/overrides", rbacHandler.ListOverrides)
						ur.Put("/overrides", rbacHandler.SetOverride)
						ur.Delete("/overrides/{permissionID}", rbacHandler.RemoveOverride)
						if userHandler != nil {
							ur.Patch("/active", userHandler.SetUserActive)
						}
					})
				})
			}
		})
	})
}
