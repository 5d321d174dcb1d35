package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThanhXT2002/api-insurance-sub001/internal"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/cache"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/datamodel/identity"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/events"
)

// Service is the authorization gate: it turns a bearer credential into a
// resolved Snapshot, caching results and owning the invalidation entry
// points.
type Service struct {
	store          IdentityStore
	verifier       Verifier
	snapshots      SnapshotCache
	logger         *slog.Logger
	storeTimeout   time.Duration
	defaultRoleKey string
}

func NewService(store IdentityStore, verifier Verifier, snapshots SnapshotCache, logger *slog.Logger, storeTimeout time.Duration, defaultRoleKey string) *Service {
	if defaultRoleKey == "" {
		defaultRoleKey = "member"
	}
	return &Service{
		store:          store,
		verifier:       verifier,
		snapshots:      snapshots,
		logger:         logger,
		storeTimeout:   storeTimeout,
		defaultRoleKey: defaultRoleKey,
	}
}

// Authenticate verifies the credential, resolves (or creates) the local
// user, rejects inactive accounts, and returns the authorization snapshot.
//
// Failure modes: invalid or expired credential reports unauthenticated;
// inactive account reports forbidden; any Identity Store trouble reports a
// resolution failure. A store outage is never translated into "no
// permissions".
func (s *Service) Authenticate(ctx context.Context, token string) (*Snapshot, error) {
	verified, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.resolveUser(ctx, verified)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, internal.ErrUserInactive
	}

	return s.Resolve(ctx, user)
}

// resolveUser maps the verified external subject to a LocalUser: lookup by
// external id, fall back to email linking, create on first login.
func (s *Service) resolveUser(ctx context.Context, verified *VerifiedIdentity) (*identity.User, error) {
	tctx, cancel := internal.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.store.FindUserByExternalID(tctx, verified.SubjectID)
	if err != nil {
		return nil, internal.ErrResolutionFailed.WithCause(err)
	}
	if user != nil {
		return user, nil
	}

	if verified.Email != "" {
		user, err = s.store.FindUserByEmail(tctx, verified.Email)
		if err != nil {
			return nil, internal.ErrResolutionFailed.WithCause(err)
		}
		if user != nil {
			if err := s.store.LinkExternalID(tctx, user.ID, verified.SubjectID); err != nil {
				return nil, internal.ErrResolutionFailed.WithCause(err)
			}
			user.ExternalID = verified.SubjectID
			s.logger.Info("linked existing user to external subject",
				"user_id", user.ID, "external_id", verified.SubjectID)
			return user, nil
		}
	}

	user = &identity.User{
		ExternalID: verified.SubjectID,
		Email:      verified.Email,
		Name:       verified.Name,
		IsActive:   true,
	}
	if err := s.store.CreateUser(tctx, user); err != nil {
		return nil, internal.ErrResolutionFailed.WithCause(err)
	}
	if err := s.ensureDefaultRoleAssignment(tctx, user.ID); err != nil {
		return nil, err
	}

	s.logger.Info("created local user on first login",
		"user_id", user.ID, "external_id", verified.SubjectID)
	return user, nil
}

// ensureDefaultRoleAssignment gives a newly created user the configured
// default role. Explicit and named so the side effect is part of the
// contract, not buried in the login flow.
func (s *Service) ensureDefaultRoleAssignment(ctx context.Context, userID int64) error {
	role, err := s.store.EnsureDefaultRole(ctx, s.defaultRoleKey)
	if err != nil {
		return internal.ErrResolutionFailed.WithCause(err)
	}
	if err := s.store.CreateRoleAssignment(ctx, userID, role.ID); err != nil {
		return internal.ErrResolutionFailed.WithCause(err)
	}
	return nil
}

// Resolve returns the user's snapshot from cache, or loads the raw records,
// aggregates, stores and returns. The cache is consulted before the store
// call and written after it; no cache lock is held across store I/O, so two
// concurrent misses may both load. That duplicate work is harmless because
// aggregation is pure.
func (s *Service) Resolve(ctx context.Context, user *identity.User) (*Snapshot, error) {
	snap, err := s.snapshots.Get(ctx, user.ID)
	if err == nil {
		return snap, nil
	}
	if !cache.IsNotFound(err) {
		// A broken cache backend degrades to a miss; the store remains the
		// source of truth.
		s.logger.Warn("snapshot cache read failed", "user_id", user.ID, "error", err)
	}

	tctx, cancel := internal.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	roles, err := s.store.LoadRolesWithPermissions(tctx, user.ID)
	if err != nil {
		return nil, internal.ErrResolutionFailed.WithCause(err)
	}
	overrides, err := s.store.LoadOverrides(tctx, user.ID)
	if err != nil {
		return nil, internal.ErrResolutionFailed.WithCause(err)
	}

	built := BuildSnapshot(user, roles, overrides)
	if err := s.snapshots.Set(ctx, &built); err != nil {
		// The computed snapshot is still valid for this request.
		s.logger.Warn("snapshot cache write failed", "user_id", user.ID, "error", err)
	}
	return &built, nil
}

// InvalidateUser drops one user's cached snapshot.
func (s *Service) InvalidateUser(ctx context.Context, userID int64) error {
	if err := s.snapshots.Invalidate(ctx, userID); err != nil {
		return internal.NewInternalError("invalidate snapshot", err)
	}
	s.logger.Debug("snapshot invalidated", "user_id", userID)
	return nil
}

// InvalidateAll drops every cached snapshot. Used after mutations whose
// affected users cannot be enumerated efficiently.
func (s *Service) InvalidateAll(ctx context.Context) error {
	if err := s.snapshots.InvalidateAll(ctx); err != nil {
		return internal.NewInternalError("invalidate all snapshots", err)
	}
	s.logger.Info("all snapshots invalidated")
	return nil
}

// RegisterInvalidationHooks subscribes the service to the invalidation
// events published by administrative mutations. Publishers use PublishSync,
// so the mutation does not return until the stale snapshot is gone.
func (s *Service) RegisterInvalidationHooks(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeUserInvalidated, func(ctx context.Context, e events.Event) error {
		userID, ok := events.UserIDFromEvent(e)
		if !ok {
			s.logger.Error("invalidation event without user id", "event_id", e.EventID())
			return nil
		}
		return s.InvalidateUser(ctx, userID)
	})
	bus.Subscribe(events.EventTypeInvalidatedAll, func(ctx context.Context, e events.Event) error {
		return s.InvalidateAll(ctx)
	})
}
