package rbac

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ThanhXT2002/api-insurance-sub001/internal"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/datamodel/identity"
)

var validate = validator.New()

type CreateRoleDTO struct {
	Key         string `json:"key" validate:"required,min=2,max=64"`
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"max=512"`
}

func (d *CreateRoleDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateRoleDTO struct {
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"max=512"`
}

func (d *UpdateRoleDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

type CreatePermissionDTO struct {
	Key         string `json:"key" validate:"required,min=2,max=128"`
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"max=512"`
}

func (d *CreatePermissionDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

// SetRolePermissionsDTO replaces a role's permission list wholesale; the
// service diffs against the current list.
type SetRolePermissionsDTO struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required"`
}

func (d *SetRolePermissionsDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

type AssignRoleDTO struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

func (d *AssignRoleDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

// SetOverrideDTO writes a per-user override row. Allowed is a pointer so
// an omitted value is a validation error rather than a silent revoke.
type SetOverrideDTO struct {
	PermissionID int64 `json:"permission_id" validate:"required,gt=0"`
	Allowed      *bool `json:"allowed" validate:"required"`
}

func (d *SetOverrideDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

type RoleResponse struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func roleToResponse(role *identity.Role) RoleResponse {
	return RoleResponse{
		ID:          role.ID,
		Key:         role.Key,
		Name:        role.Name,
		Description: role.Description,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

type PermissionResponse struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func permissionToResponse(perm *identity.Permission) PermissionResponse {
	return PermissionResponse{
		ID:          perm.ID,
		Key:         perm.Key,
		Name:        perm.Name,
		Description: perm.Description,
		CreatedAt:   perm.CreatedAt,
	}
}

type OverrideResponse struct {
	UserID       int64     `json:"user_id"`
	PermissionID int64     `json:"permission_id"`
	Allowed      bool      `json:"allowed"`
	GrantedBy    *int64    `json:"granted_by,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func overrideToResponse(o *identity.UserPermissionOverride) OverrideResponse {
	return OverrideResponse{
		UserID:       o.UserID,
		PermissionID: o.PermissionID,
		Allowed:      o.Allowed,
		GrantedBy:    o.GrantedBy,
		UpdatedAt:    o.UpdatedAt,
	}
}
