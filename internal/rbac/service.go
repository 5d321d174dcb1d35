package rbac

import (
	"context"
	"log/slog"

	"github.com/ThanhXT2002/api-insurance-sub001/internal"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/datamodel/identity"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/events"
)

// Service is the administrative surface for roles, permissions,
// assignments and overrides. Every mutation that can change a user's
// effective permission set publishes an invalidation event synchronously:
// the call does not return until the stale snapshot is gone.
//
// Scope of invalidation: mutations bound to one user (assignment,
// override) invalidate that user; mutations to role or permission
// definitions invalidate everything, because the affected users cannot be
// enumerated cheaply.
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

func (s *Service) CreateRole(ctx context.Context, dto CreateRoleDTO) (*RoleResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetRoleByKey(ctx, dto.Key)
	if err != nil {
		return nil, internal.NewInternalError("lookup role", err)
	}
	if existing != nil {
		return nil, internal.NewConflictError("role key already exists", internal.ErrCodeDuplicateKey)
	}

	role := &identity.Role{
		Key:         dto.Key,
		Name:        dto.Name,
		Description: dto.Description,
	}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, internal.NewInternalError("create role", err)
	}

	s.logger.Info("role created", "role_id", role.ID, "key", role.Key)
	resp := roleToResponse(role)
	return &resp, nil
}

func (s *Service) GetRole(ctx context.Context, id int64) (*RoleResponse, error) {
	role, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("lookup role", err)
	}
	if role == nil {
		return nil, internal.ErrRoleNotFound
	}
	resp := roleToResponse(role)
	return &resp, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, internal.NewInternalError("list roles", err)
	}
	responses := make([]RoleResponse, len(roles))
	for i, role := range roles {
		responses[i] = roleToResponse(role)
	}
	return responses, nil
}

// UpdateRole changes display fields only. The key is immutable and the
// permission list is untouched, so no invalidation is needed.
func (s *Service) UpdateRole(ctx context.Context, id int64, dto UpdateRoleDTO) (*RoleResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	role, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("lookup role", err)
	}
	if role == nil {
		return nil, internal.ErrRoleNotFound
	}

	role.Name = dto.Name
	role.Description = dto.Description
	if err := s.repo.UpdateRole(ctx, role); err != nil {
		return nil, internal.NewInternalError("update role", err)
	}

	resp := roleToResponse(role)
	return &resp, nil
}

// DeleteRole removes the role and its links. Membership cannot be
// enumerated cheaply afterwards, so every snapshot is dropped.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	role, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		return internal.NewInternalError("lookup role", err)
	}
	if role == nil {
		return internal.ErrRoleNotFound
	}

	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return internal.NewInternalError("delete role", err)
	}

	s.logger.Info("role deleted", "role_id", id, "key", role.Key)
	return s.bus.PublishSync(ctx, events.NewInvalidatedAll("role deleted"))
}

func (s *Service) CreatePermission(ctx context.Context, dto CreatePermissionDTO) (*PermissionResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetPermissionByKey(ctx, dto.Key)
	if err != nil {
		return nil, internal.NewInternalError("lookup permission", err)
	}
	if existing != nil {
		return nil, internal.NewConflictError("permission key already exists", internal.ErrCodeDuplicateKey)
	}

	perm := &identity.Permission{
		Key:         dto.Key,
		Name:        dto.Name,
		Description: dto.Description,
	}
	if err := s.repo.CreatePermission(ctx, perm); err != nil {
		return nil, internal.NewInternalError("create permission", err)
	}

	s.logger.Info("permission created", "permission_id", perm.ID, "key", perm.Key)
	resp := permissionToResponse(perm)
	return &resp, nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, internal.NewInternalError("list permissions", err)
	}
	responses := make([]PermissionResponse, len(perms))
	for i, perm := range perms {
		responses[i] = permissionToResponse(perm)
	}
	return responses, nil
}

// DeletePermission removes the permission and cascades over role links and
// overrides, so every cached set may shrink.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	perm, err := s.repo.GetPermissionByID(ctx, id)
	if err != nil {
		return internal.NewInternalError("lookup permission", err)
	}
	if perm == nil {
		return internal.ErrPermissionNotFound
	}

	if err := s.repo.DeletePermission(ctx, id); err != nil {
		return internal.NewInternalError("delete permission", err)
	}

	s.logger.Info("permission deleted", "permission_id", id, "key", perm.Key)
	return s.bus.PublishSync(ctx, events.NewInvalidatedAll("permission deleted"))
}

// SetRolePermissions replaces the role's permission list. The write is
// diff-based: only links that actually change are touched. Any change
// drops every snapshot, since all members of the role are affected.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, dto SetRolePermissionsDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	role, err := s.repo.GetRoleByID(ctx, roleID)
	if err != nil {
		return internal.NewInternalError("lookup role", err)
	}
	if role == nil {
		return internal.ErrRoleNotFound
	}

	for _, permID := range dto.PermissionIDs {
		perm, err := s.repo.GetPermissionByID(ctx, permID)
		if err != nil {
			return internal.NewInternalError("lookup permission", err)
		}
		if perm == nil {
			return internal.ErrPermissionNotFound.WithDetails(map[string]interface{}{
				"permission_id": permID,
			})
		}
	}

	current, err := s.repo.ListRolePermissionIDs(ctx, roleID)
	if err != nil {
		return internal.NewInternalError("list role permissions", err)
	}

	toAttach, toDetach := diffIDs(current, dto.PermissionIDs)
	if len(toAttach) == 0 && len(toDetach) == 0 {
		return nil
	}

	// One transactional write. A failure leaves the stored list untouched,
	// so skipping invalidation on the error path is safe.
	if err := s.repo.ReplacePermissions(ctx, roleID, toAttach, toDetach); err != nil {
		return internal.NewInternalError("replace role permissions", err)
	}

	s.logger.Info("role permissions updated",
		"role_id", roleID, "attached", len(toAttach), "detached", len(toDetach))
	return s.bus.PublishSync(ctx, events.NewInvalidatedAll("role permissions changed"))
}

// AssignRole adds the role to the user and drops that user's snapshot.
func (s *Service) AssignRole(ctx context.Context, userID int64, dto AssignRoleDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	role, err := s.repo.GetRoleByID(ctx, dto.RoleID)
	if err != nil {
		return internal.NewInternalError("lookup role", err)
	}
	if role == nil {
		return internal.ErrRoleNotFound
	}

	if err := s.repo.AssignRole(ctx, userID, dto.RoleID); err != nil {
		return internal.NewInternalError("assign role", err)
	}

	s.logger.Info("role assigned", "user_id", userID, "role_id", dto.RoleID)
	return s.bus.PublishSync(ctx, events.NewUserInvalidated(userID, "role assigned"))
}

// RemoveRole detaches the role from the user and drops that user's
// snapshot.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return internal.NewInternalError("remove role", err)
	}

	s.logger.Info("role removed", "user_id", userID, "role_id", roleID)
	return s.bus.PublishSync(ctx, events.NewUserInvalidated(userID, "role removed"))
}

// ListUserRoles returns the definition rows behind a user's assignments.
func (s *Service) ListUserRoles(ctx context.Context, userID int64) ([]RoleResponse, error) {
	ids, err := s.repo.ListUserRoleIDs(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("list user roles", err)
	}

	responses := make([]RoleResponse, 0, len(ids))
	for _, id := range ids {
		role, err := s.repo.GetRoleByID(ctx, id)
		if err != nil {
			return nil, internal.NewInternalError("lookup role", err)
		}
		if role == nil {
			continue
		}
		responses = append(responses, roleToResponse(role))
	}
	return responses, nil
}

// SetOverride writes the per-user override row, replacing any existing row
// for the same permission. Allowed=false is a first-class revocation, not
// a deletion.
func (s *Service) SetOverride(ctx context.Context, userID int64, dto SetOverrideDTO, grantedBy *int64) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	perm, err := s.repo.GetPermissionByID(ctx, dto.PermissionID)
	if err != nil {
		return internal.NewInternalError("lookup permission", err)
	}
	if perm == nil {
		return internal.ErrPermissionNotFound
	}

	override := &identity.UserPermissionOverride{
		UserID:       userID,
		PermissionID: dto.PermissionID,
		Allowed:      *dto.Allowed,
		GrantedBy:    grantedBy,
	}
	if err := s.repo.UpsertOverride(ctx, override); err != nil {
		return internal.NewInternalError("set override", err)
	}

	s.logger.Info("override set",
		"user_id", userID, "permission_id", dto.PermissionID, "allowed", *dto.Allowed)
	return s.bus.PublishSync(ctx, events.NewUserInvalidated(userID, "override set"))
}

// RemoveOverride deletes the row, returning the permission to whatever the
// user's roles decide.
func (s *Service) RemoveOverride(ctx context.Context, userID, permissionID int64) error {
	if err := s.repo.DeleteOverride(ctx, userID, permissionID); err != nil {
		return internal.NewInternalError("remove override", err)
	}

	s.logger.Info("override removed", "user_id", userID, "permission_id", permissionID)
	return s.bus.PublishSync(ctx, events.NewUserInvalidated(userID, "override removed"))
}

func (s *Service) ListOverrides(ctx context.Context, userID int64) ([]OverrideResponse, error) {
	overrides, err := s.repo.ListOverrides(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("list overrides", err)
	}
	responses := make([]OverrideResponse, len(overrides))
	for i, o := range overrides {
		responses[i] = overrideToResponse(o)
	}
	return responses, nil
}

// diffIDs computes which ids to attach and which to detach so that
// current becomes desired.
func diffIDs(current, desired []int64) (toAttach, toDetach []int64) {
	currentSet := make(map[int64]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}
	desiredSet := make(map[int64]struct{}, len(desired))
	for _, id := range desired {
		desiredSet[id] = struct{}{}
	}

	for _, id := range desired {
		if _, ok := currentSet[id]; !ok {
			toAttach = append(toAttach, id)
		}
	}
	for _, id := range current {
		if _, ok := desiredSet[id]; !ok {
			toDetach = append(toDetach, id)
		}
	}
	return toAttach, toDetach
}
