package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ThanhXT2002/api-insurance-sub001/internal"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/transport"
	"github.com/ThanhXT2002/api-insurance-sub001/pkg/logger"
)

// ServiceAPI is what the HTTP layer needs from the gate.
type ServiceAPI interface {
	Authenticate(ctx context.Context, token string) (*Snapshot, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// Me returns the caller's resolved snapshot: profile, roles with their
// permission lists, and the flattened effective permission set.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	snap, ok := SnapshotFromContext(r.Context())
	if !ok || snap == nil {
		h.WriteAppError(w, internal.ErrMissingCredential)
		return
	}
	h.WriteJSON(w, http.StatusOK, snap)
}

// Session reports who the caller is on the optional-auth surface: the
// snapshot when a valid credential was presented, an anonymous marker
// otherwise. Never an error.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if snap, ok := SnapshotFromContext(r.Context()); ok && snap != nil {
		h.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"authenticated": true,
			"user":          snap,
		})
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": false,
	})
}

// AuthMiddleware verifies the bearer credential, resolves the snapshot and
// attaches it to the request context. Requests fail closed: any gap in
// resolution short-circuits before the handler runs.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, internal.ErrMissingCredential)
			return
		}

		snap, err := h.Service.Authenticate(r.Context(), token)
		if err != nil {
			h.writeAuthFailure(w, r, err)
			return
		}

		ctx := ContextWithSnapshot(r.Context(), snap)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthMiddleware resolves an identity when a valid credential is
// present, and otherwise lets the request through anonymous. Resolution
// failures are logged and swallowed: this path must never block a request.
func (h *Handler) OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		snap, err := h.Service.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, internal.ErrResolutionFailed) {
				h.Logger.Error("optional auth: resolution failed, proceeding anonymous", "error", err)
			} else {
				h.Logger.Debug("optional auth: credential rejected, proceeding anonymous", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := ContextWithSnapshot(r.Context(), snap)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) writeAuthFailure(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := internal.IsAppError(err); ok {
		switch appErr.Type {
		case internal.ErrorTypeUnauthenticated:
			// Generic message only; the reason verification failed stays in
			// the logs.
			h.Logger.Warn("authentication rejected", "code", appErr.Code)
		case internal.ErrorTypeForbidden:
			h.Logger.Warn("inactive account rejected", "code", appErr.Code)
		default:
			h.Logger.Error("authorization resolution failed", "error", err)
		}
		h.WriteAppError(w, appErr)
		return
	}

	h.Logger.Error("authentication failed unexpectedly", "error", err)
	h.WriteAppError(w, internal.NewInternalError("authentication failed", err))
}
