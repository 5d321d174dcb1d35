package rbac

import (
	"context"

	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/datamodel/identity"
)

// RepositoryAPI is the persistence contract for the administrative
// role/permission surface. Lookups return (nil, nil) when absent.
type RepositoryAPI interface {
	// Roles
	CreateRole(ctx context.Context, role *identity.Role) error
	GetRoleByID(ctx context.Context, id int64) (*identity.Role, error)
	GetRoleByKey(ctx context.Context, key string) (*identity.Role, error)
	ListRoles(ctx context.Context) ([]*identity.Role, error)
	UpdateRole(ctx context.Context, role *identity.Role) error
	DeleteRole(ctx context.Context, id int64) error

	// Permissions
	CreatePermission(ctx context.Context, perm *identity.Permission) error
	GetPermissionByID(ctx context.Context, id int64) (*identity.Permission, error)
	GetPermissionByKey(ctx context.Context, key string) (*identity.Permission, error)
	ListPermissions(ctx context.Context) ([]*identity.Permission, error)
	DeletePermission(ctx context.Context, id int64) error

	// Role-permission links. ReplacePermissions applies both sets in one
	// transaction: the stored list is either the old one or the new one,
	// never a mix.
	ListRolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error)
	ReplacePermissions(ctx context.Context, roleID int64, attach, detach []int64) error

	// User-role links
	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	ListUserRoleIDs(ctx context.Context, userID int64) ([]int64, error)

	// Overrides
	UpsertOverride(ctx context.Context, override *identity.UserPermissionOverride) error
	DeleteOverride(ctx context.Context, userID, permissionID int64) error
	ListOverrides(ctx context.Context, userID int64) ([]*identity.UserPermissionOverride, error)
}
