package identity

import "time"

// User is the local account mapped 1:1 to an external authentication
// subject. Created on first successful authentication if absent.
type User struct {
	ID         int64     `gorm:"primaryKey"`
	ExternalID string    `gorm:"column:external_id;uniqueIndex"`
	Email      string    `gorm:"column:email;uniqueIndex;not null"`
	Name       string    `gorm:"column:name"`
	Phone      string    `gorm:"column:phone"`
	Address    string    `gorm:"column:address"`
	AvatarURL  string    `gorm:"column:avatar_url"`
	IsActive   bool      `gorm:"column:is_active;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt  time.Time `gorm:"column:updated_at;default:now()"`
}

func (User) TableName() string { return "users" }

// Role groups permissions under a unique slug key.
type Role struct {
	ID          int64     `gorm:"primaryKey"`
	Key         string    `gorm:"column:key;uniqueIndex;not null"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time `gorm:"column:updated_at;default:now()"`
}

func (Role) TableName() string { return "roles" }

// Permission is an atomic capability keyed by a dot-namespaced string,
// e.g. "post.edit". Keys are compared by exact string equality.
type Permission struct {
	ID          int64     `gorm:"primaryKey"`
	Key         string    `gorm:"column:key;uniqueIndex;not null"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;default:now()"`
}

func (Permission) TableName() string { return "permissions" }

type RolePermission struct {
	RoleID       int64     `gorm:"column:role_id;primaryKey"`
	PermissionID int64     `gorm:"column:permission_id;primaryKey"`
	CreatedAt    time.Time `gorm:"column:created_at;default:now()"`
}

func (RolePermission) TableName() string { return "role_permissions" }

type UserRole struct {
	UserID    int64     `gorm:"column:user_id;primaryKey"`
	RoleID    int64     `gorm:"column:role_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
}

func (UserRole) TableName() string { return "user_roles" }

// UserPermissionOverride grants (allowed=true) or revokes (allowed=false) a
// single permission for a single user, superseding whatever the user's
// roles say about that key. At most one row per (user, permission): writes
// replace, never duplicate. Absence of a row means "defer to role".
type UserPermissionOverride struct {
	UserID       int64     `gorm:"column:user_id;primaryKey"`
	PermissionID int64     `gorm:"column:permission_id;primaryKey"`
	Allowed      bool      `gorm:"column:allowed;not null"`
	GrantedBy    *int64    `gorm:"column:granted_by"`
	CreatedAt    time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time `gorm:"column:updated_at;default:now()"`
}

func (UserPermissionOverride) TableName() string { return "user_permission_overrides" }
