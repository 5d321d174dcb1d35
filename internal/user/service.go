package user

import (
	"context"
	"log/slog"

	"github.com/ThanhXT2002/api-insurance-sub001/internal"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/events"
)

// Service reads and updates local user profiles. Profile updates
// invalidate the user's cached authorization snapshot, because the
// snapshot embeds the scalar profile fields.
type Service struct {
	repo   RepositoryAPI
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*ProfileResponse, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("lookup user", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}

	resp := toProfileResponse(u)
	return &resp, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, dto UpdateProfileDTO) (*ProfileResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("lookup user", err)
	}
	if existing == nil {
		return nil, internal.ErrUserNotFound
	}

	updated, err := s.repo.UpdateFields(ctx, userID, dto.Fields())
	if err != nil {
		return nil, internal.NewInternalError("update user", err)
	}

	if err := s.bus.PublishSync(ctx, events.NewUserInvalidated(userID, "profile updated")); err != nil {
		return nil, internal.NewInternalError("invalidate after profile update", err)
	}

	s.logger.Info("profile updated", "user_id", userID)
	resp := toProfileResponse(updated)
	return &resp, nil
}

// SetActive enables or disables the account. Deactivation invalidates the
// snapshot so the next request re-checks the flag against the store.
func (s *Service) SetActive(ctx context.Context, userID int64, active bool) error {
	existing, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return internal.NewInternalError("lookup user", err)
	}
	if existing == nil {
		return internal.ErrUserNotFound
	}

	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return internal.NewInternalError("set user active", err)
	}

	if err := s.bus.PublishSync(ctx, events.NewUserInvalidated(userID, "active flag changed")); err != nil {
		return internal.NewInternalError("invalidate after active change", err)
	}

	s.logger.Info("user active flag changed", "user_id", userID, "active", active)
	return nil
}
