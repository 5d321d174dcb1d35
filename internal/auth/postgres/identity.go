package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ThanhXT2002/api-insurance-sub001/internal/auth"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/datamodel/identity"
)

// IdentityRepository is the gorm-backed Identity Store.
type IdentityRepository struct {
	db *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) auth.IdentityStore {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) FindUserByExternalID(ctx context.Context, externalID string) (*identity.User, error) {
	var user identity.User
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *IdentityRepository) FindUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	var user identity.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *IdentityRepository) CreateUser(ctx context.Context, user *identity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *IdentityRepository) UpdateUser(ctx context.Context, userID int64, fields map[string]interface{}) (*identity.User, error) {
	result := r.db.WithContext(ctx).Model(&identity.User{}).Where("id = ?", userID).Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("user %d not found", userID)
	}

	var user identity.User
	if err := r.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *IdentityRepository) LinkExternalID(ctx context.Context, userID int64, externalID string) error {
	return r.db.WithContext(ctx).Model(&identity.User{}).
		Where("id = ?", userID).
		Update("external_id", externalID).Error
}

// LoadRolesWithPermissions returns the user's roles, each with its own
// permission key list. One query for roles, one for the role-permission
// join: the whole load is two round trips regardless of role count.
func (r *IdentityRepository) LoadRolesWithPermissions(ctx context.Context, userID int64) ([]auth.RoleGrant, error) {
	var roles []identity.Role
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ur ON ur.role_id = roles.id").
		Where("ur.user_id = ?", userID).
		Order("roles.key ASC").
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return []auth.RoleGrant{}, nil
	}

	roleIDs := make([]int64, len(roles))
	for i, role := range roles {
		roleIDs[i] = role.ID
	}

	type rolePermRow struct {
		RoleID int64
		Key    string
	}
	var rows []rolePermRow
	err = r.db.WithContext(ctx).
		Table("role_permissions rp").
		Select("rp.role_id AS role_id, p.key AS key").
		Joins("JOIN permissions p ON p.id = rp.permission_id").
		Where("rp.role_id IN ?", roleIDs).
		Order("p.key ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	permsByRole := make(map[int64][]string, len(roles))
	for _, row := range rows {
		permsByRole[row.RoleID] = append(permsByRole[row.RoleID], row.Key)
	}

	grants := make([]auth.RoleGrant, len(roles))
	for i, role := range roles {
		grants[i] = auth.RoleGrant{
			ID:          role.ID,
			Key:         role.Key,
			Name:        role.Name,
			Permissions: permsByRole[role.ID],
		}
	}
	return grants, nil
}

func (r *IdentityRepository) LoadOverrides(ctx context.Context, userID int64) ([]auth.Override, error) {
	type overrideRow struct {
		Key     string
		Allowed bool
	}
	var rows []overrideRow
	err := r.db.WithContext(ctx).
		Table("user_permission_overrides upo").
		Select("p.key AS key, upo.allowed AS allowed").
		Joins("JOIN permissions p ON p.id = upo.permission_id").
		Where("upo.user_id = ?", userID).
		Order("p.key ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	overrides := make([]auth.Override, len(rows))
	for i, row := range rows {
		overrides[i] = auth.Override{PermissionKey: row.Key, Allowed: row.Allowed}
	}
	return overrides, nil
}

// EnsureDefaultRole upserts the default role by key.
func (r *IdentityRepository) EnsureDefaultRole(ctx context.Context, key string) (*identity.Role, error) {
	role := identity.Role{
		Key:  key,
		Name: key,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&role).Error
	if err != nil {
		return nil, err
	}

	// DoNothing leaves the id unset when the role already existed.
	var existing identity.Role
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func (r *IdentityRepository) CreateRoleAssignment(ctx context.Context, userID, roleID int64) error {
	assignment := identity.UserRole{UserID: userID, RoleID: roleID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&assignment).Error
}
