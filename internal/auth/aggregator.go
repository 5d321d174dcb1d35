package auth

import (
	"sort"
	"time"

	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/datamodel/identity"
)

// BuildSnapshot computes the effective permission set for a user from role
// memberships and direct overrides. Pure: no I/O, never fails on
// well-formed input, and iteration order of the inputs does not affect the
// result.
//
// The effective set is (union of role permission keys) plus override keys
// with allowed=true, minus override keys with allowed=false. Denials are
// applied last so an explicit revocation wins regardless of how many roles
// grant the key.
func BuildSnapshot(user *identity.User, roles []RoleGrant, overrides []Override) Snapshot {
	set := make(map[string]struct{})

	for _, role := range roles {
		for _, key := range role.Permissions {
			set[key] = struct{}{}
		}
	}

	for _, o := range overrides {
		if o.Allowed {
			set[o.PermissionKey] = struct{}{}
		}
	}
	for _, o := range overrides {
		if !o.Allowed {
			delete(set, o.PermissionKey)
		}
	}

	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	grants := make([]RoleGrant, len(roles))
	copy(grants, roles)

	return Snapshot{
		UserID:      user.ID,
		ExternalID:  user.ExternalID,
		Email:       user.Email,
		Name:        user.Name,
		IsActive:    user.IsActive,
		Roles:       grants,
		Permissions: keys,
		ResolvedAt:  time.Now(),
	}
}
