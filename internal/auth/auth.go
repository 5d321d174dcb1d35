package auth

import (
	"context"
	"time"

	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/datamodel/identity"
)

// Snapshot is the resolved authorization state for one user at one point
// in time. It is immutable once built: cached copies are replaced, never
// patched.
type Snapshot struct {
	UserID      int64       `json:"user_id"`
	ExternalID  string      `json:"external_id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	IsActive    bool        `json:"is_active"`
	Roles       []RoleGrant `json:"roles"`
	Permissions []string    `json:"permissions"`
	ResolvedAt  time.Time   `json:"resolved_at"`
}

// RoleGrant is a role held by the user, carrying the role's own permission
// list for diagnostics. The flattened Snapshot.Permissions is what gets
// enforced; per-role lists only explain where a key came from.
type RoleGrant struct {
	ID          int64    `json:"id"`
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Override is a per-user grant (Allowed=true) or revocation
// (Allowed=false) of a single permission key. It wins over role-derived
// permissions for that exact key.
type Override struct {
	PermissionKey string `json:"permission_key"`
	Allowed       bool   `json:"allowed"`
}

func (s *Snapshot) HasPermission(key string) bool {
	for _, p := range s.Permissions {
		if p == key {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every key is in the effective set.
func (s *Snapshot) HasAllPermissions(keys []string) bool {
	for _, k := range keys {
		if !s.HasPermission(k) {
			return false
		}
	}
	return true
}

// MissingPermissions returns the required keys the user does not hold, for
// forbidden-response diagnostics.
func (s *Snapshot) MissingPermissions(keys []string) []string {
	var missing []string
	for _, k := range keys {
		if !s.HasPermission(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

// HasAnyRole reports whether the user holds at least one of the role keys.
func (s *Snapshot) HasAnyRole(keys []string) bool {
	for _, r := range s.Roles {
		for _, k := range keys {
			if r.Key == k {
				return true
			}
		}
	}
	return false
}

func (s *Snapshot) RoleKeys() []string {
	keys := make([]string, 0, len(s.Roles))
	for _, r := range s.Roles {
		keys = append(keys, r.Key)
	}
	return keys
}

// VerifiedIdentity is what the external credential verifier yields for a
// valid token.
type VerifiedIdentity struct {
	SubjectID string
	Email     string
	Name      string
	Metadata  map[string]any
}

// Verifier validates a bearer credential with the external identity
// provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (*VerifiedIdentity, error)
}

// IdentityStore is the persistence contract the gate resolves users and
// raw authorization records through. Lookups return (nil, nil) when the
// record is absent.
type IdentityStore interface {
	FindUserByExternalID(ctx context.Context, externalID string) (*identity.User, error)
	FindUserByEmail(ctx context.Context, email string) (*identity.User, error)
	CreateUser(ctx context.Context, user *identity.User) error
	UpdateUser(ctx context.Context, userID int64, fields map[string]interface{}) (*identity.User, error)
	LinkExternalID(ctx context.Context, userID int64, externalID string) error
	LoadRolesWithPermissions(ctx context.Context, userID int64) ([]RoleGrant, error)
	LoadOverrides(ctx context.Context, userID int64) ([]Override, error)
	EnsureDefaultRole(ctx context.Context, key string) (*identity.Role, error)
	CreateRoleAssignment(ctx context.Context, userID, roleID int64) error
}

// SnapshotCache stores resolved snapshots keyed by user id. Implementations
// must be safe for concurrent use; after Invalidate returns, the next Get
// for that user misses.
type SnapshotCache interface {
	Get(ctx context.Context, userID int64) (*Snapshot, error)
	Set(ctx context.Context, snap *Snapshot) error
	Invalidate(ctx context.Context, userID int64) error
	InvalidateAll(ctx context.Context) error
}
