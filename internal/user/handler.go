package user

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/ThanhXT2002/api-insurance-sub001/internal"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/auth"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/transport"
	"github.com/ThanhXT2002/api-insurance-sub001/pkg/logger"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, userID int64) (*ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID int64, dto UpdateProfileDTO) (*ProfileResponse, error)
	SetActive(ctx context.Context, userID int64, active bool) error
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

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	snap, ok := auth.SnapshotFromContext(r.Context())
	if !ok || snap == nil {
		h.WriteAppError(w, internal.ErrMissingCredential)
		return
	}

	profile, err := h.Service.GetByID(r.Context(), snap.UserID)
	if err != nil {
		h.Logger.Error("GetCurrentUser: lookup failed", "user_id", snap.UserID, "error", err)
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, profile)
}

// UpdateCurrentUser handles PATCH /users/me
func (h *Handler) UpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	snap, ok := auth.SnapshotFromContext(r.Context())
	if !ok || snap == nil {
		h.WriteAppError(w, internal.ErrMissingCredential)
		return
	}

	var dto UpdateProfileDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	profile, err := h.Service.UpdateProfile(r.Context(), snap.UserID, dto)
	if err != nil {
		h.Logger.Error("UpdateCurrentUser: update failed", "user_id", snap.UserID, "error", err)
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, profile)
}

// SetUserActive handles PATCH /admin/users/{userID}/active
func (h *Handler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		h.WriteAppError(w, internal.NewValidationError("invalid userID", internal.ErrCodeValidationFailed))
		return
	}

	var body struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Active == nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.SetActive(r.Context(), userID, *body.Active); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
