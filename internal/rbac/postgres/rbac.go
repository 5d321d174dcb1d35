package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/datamodel/identity"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/rbac"
)

type RBACRepository struct {
	db *gorm.DB
}

func NewRBACRepository(db *gorm.DB) rbac.RepositoryAPI {
	return &RBACRepository{db: db}
}

func (r *RBACRepository) CreateRole(ctx context.Context, role *identity.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *RBACRepository) GetRoleByID(ctx context.Context, id int64) (*identity.Role, error) {
	var role identity.Role
	err := r.db.WithContext(ctx).First(&role, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *RBACRepository) GetRoleByKey(ctx context.Context, key string) (*identity.Role, error) {
	var role identity.Role
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&role).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *RBACRepository) ListRoles(ctx context.Context) ([]*identity.Role, error) {
	var roles []*identity.Role
	err := r.db.WithContext(ctx).Order("key ASC").Find(&roles).Error
	return roles, err
}

func (r *RBACRepository) UpdateRole(ctx context.Context, role *identity.Role) error {
	return r.db.WithContext(ctx).Save(role).Error
}

// DeleteRole removes the role and its links in one transaction so a
// half-deleted role never becomes visible.
func (r *RBACRepository) DeleteRole(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&identity.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&identity.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&identity.Role{}, id).Error
	})
}

func (r *RBACRepository) CreatePermission(ctx context.Context, perm *identity.Permission) error {
	return r.db.WithContext(ctx).Create(perm).Error
}

func (r *RBACRepository) GetPermissionByID(ctx context.Context, id int64) (*identity.Permission, error) {
	var perm identity.Permission
	err := r.db.WithContext(ctx).First(&perm, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &perm, nil
}

func (r *RBACRepository) GetPermissionByKey(ctx context.Context, key string) (*identity.Permission, error) {
	var perm identity.Permission
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&perm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &perm, nil
}

func (r *RBACRepository) ListPermissions(ctx context.Context) ([]*identity.Permission, error) {
	var perms []*identity.Permission
	err := r.db.WithContext(ctx).Order("key ASC").Find(&perms).Error
	return perms, err
}

func (r *RBACRepository) DeletePermission(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("permission_id = ?", id).Delete(&identity.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("permission_id = ?", id).Delete(&identity.UserPermissionOverride{}).Error; err != nil {
			return err
		}
		return tx.Delete(&identity.Permission{}, id).Error
	})
}

func (r *RBACRepository) ListRolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&identity.RolePermission{}).
		Where("role_id = ?", roleID).
		Pluck("permission_id", &ids).Error
	return ids, err
}

// ReplacePermissions applies the attach and detach sets in one transaction
// so the role's permission list never changes halfway.
func (r *RBACRepository) ReplacePermissions(ctx context.Context, roleID int64, attach, detach []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(attach) > 0 {
			links := make([]identity.RolePermission, len(attach))
			for i, permID := range attach {
				links[i] = identity.RolePermission{RoleID: roleID, PermissionID: permID}
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
				return err
			}
		}
		if len(detach) > 0 {
			if err := tx.Where("role_id = ? AND permission_id IN ?", roleID, detach).
				Delete(&identity.RolePermission{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RBACRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	link := identity.UserRole{UserID: userID, RoleID: roleID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
}

func (r *RBACRepository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&identity.UserRole{}).Error
}

func (r *RBACRepository) ListUserRoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&identity.UserRole{}).
		Where("user_id = ?", userID).
		Pluck("role_id", &ids).Error
	return ids, err
}

// UpsertOverride replaces any existing row for the same (user, permission)
// pair. At most one row per pair, by construction.
func (r *RBACRepository) UpsertOverride(ctx context.Context, override *identity.UserPermissionOverride) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"allowed", "granted_by", "updated_at"}),
		}).
		Create(override).Error
}

func (r *RBACRepository) DeleteOverride(ctx context.Context, userID, permissionID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Delete(&identity.UserPermissionOverride{}).Error
}

func (r *RBACRepository) ListOverrides(ctx context.Context, userID int64) ([]*identity.UserPermissionOverride, error) {
	var overrides []*identity.UserPermissionOverride
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("permission_id ASC").
		Find(&overrides).Error
	return overrides, err
}
