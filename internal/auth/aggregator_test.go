package auth

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/datamodel/identity"
)

var _ = ginkgo.Describe("BuildSnapshot", func() {
	var user *identity.User

	ginkgo.BeforeEach(func() {
		user = &identity.User{
			ID:         42,
			ExternalID: "sub-42",
			Email:      "editor@example.com",
			Name:       "Editor",
			IsActive:   true,
		}
	})

	ginkgo.Describe("role union", func() {
		ginkgo.It("should merge permissions from all roles without duplicates", func() {
			roles := []RoleGrant{
				{ID: 1, Key: "editor", Permissions: []string{"post.create", "post.edit"}},
				{ID: 2, Key: "moderator", Permissions: []string{"post.edit", "comment.delete"}},
			}

			snap := BuildSnapshot(user, roles, nil)

			gomega.Expect(snap.Permissions).To(gomega.Equal([]string{
				"comment.delete", "post.create", "post.edit",
			}))
		})

		ginkgo.It("should carry the user's identity fields", func() {
			snap := BuildSnapshot(user, nil, nil)

			gomega.Expect(snap.UserID).To(gomega.Equal(int64(42)))
			gomega.Expect(snap.ExternalID).To(gomega.Equal("sub-42"))
			gomega.Expect(snap.Email).To(gomega.Equal("editor@example.com"))
			gomega.Expect(snap.IsActive).To(gomega.BeTrue())
			gomega.Expect(snap.ResolvedAt).NotTo(gomega.BeZero())
		})

		ginkgo.It("should produce an empty set for a user with no roles", func() {
			snap := BuildSnapshot(user, nil, nil)

			gomega.Expect(snap.Permissions).To(gomega.BeEmpty())
			gomega.Expect(snap.Roles).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("override precedence", func() {
		ginkgo.It("should add a permission no role grants", func() {
			roles := []RoleGrant{
				{ID: 1, Key: "editor", Permissions: []string{"post.edit"}},
			}
			overrides := []Override{
				{PermissionKey: "report.view", Allowed: true},
			}

			snap := BuildSnapshot(user, roles, overrides)

			gomega.Expect(snap.HasPermission("report.view")).To(gomega.BeTrue())
			gomega.Expect(snap.HasPermission("post.edit")).To(gomega.BeTrue())
		})

		ginkgo.It("should revoke a permission even when several roles grant it", func() {
			roles := []RoleGrant{
				{ID: 1, Key: "editor", Permissions: []string{"post.edit"}},
				{ID: 2, Key: "moderator", Permissions: []string{"post.edit"}},
			}
			overrides := []Override{
				{PermissionKey: "post.edit", Allowed: false},
			}

			snap := BuildSnapshot(user, roles, overrides)

			gomega.Expect(snap.HasPermission("post.edit")).To(gomega.BeFalse())
		})

		ginkgo.It("should apply denials after grants regardless of input order", func() {
			overrides := []Override{
				{PermissionKey: "post.edit", Allowed: false},
				{PermissionKey: "post.edit", Allowed: true},
			}

			snap := BuildSnapshot(user, nil, overrides)

			gomega.Expect(snap.HasPermission("post.edit")).To(gomega.BeFalse())
		})

		ginkgo.It("should fall back to role permissions once an override is gone", func() {
			roles := []RoleGrant{
				{ID: 1, Key: "editor", Permissions: []string{"post.edit"}},
			}

			denied := BuildSnapshot(user, roles, []Override{{PermissionKey: "post.edit", Allowed: false}})
			gomega.Expect(denied.HasPermission("post.edit")).To(gomega.BeFalse())

			restored := BuildSnapshot(user, roles, nil)
			gomega.Expect(restored.HasPermission("post.edit")).To(gomega.BeTrue())
		})

		ginkgo.It("should make a redundant allow override a no-op", func() {
			roles := []RoleGrant{
				{ID: 1, Key: "editor", Permissions: []string{"post.edit"}},
			}
			overrides := []Override{
				{PermissionKey: "post.edit", Allowed: true},
			}

			snap := BuildSnapshot(user, roles, overrides)

			gomega.Expect(snap.Permissions).To(gomega.Equal([]string{"post.edit"}))
		})
	})

	ginkgo.Describe("determinism", func() {
		ginkgo.It("should be insensitive to role iteration order", func() {
			a := []RoleGrant{
				{ID: 1, Key: "editor", Permissions: []string{"post.edit", "post.create"}},
				{ID: 2, Key: "viewer", Permissions: []string{"post.view"}},
			}
			b := []RoleGrant{a[1], a[0]}

			snapA := BuildSnapshot(user, a, nil)
			snapB := BuildSnapshot(user, b, nil)

			gomega.Expect(snapA.Permissions).To(gomega.Equal(snapB.Permissions))
		})

		ginkgo.It("should return permission keys sorted", func() {
			roles := []RoleGrant{
				{ID: 1, Key: "editor", Permissions: []string{"z.last", "a.first", "m.middle"}},
			}

			snap := BuildSnapshot(user, roles, nil)

			gomega.Expect(snap.Permissions).To(gomega.Equal([]string{"a.first", "m.middle", "z.last"}))
		})
	})

	ginkgo.Describe("snapshot checks", func() {
		ginkgo.It("should answer HasAllPermissions as a conjunction", func() {
			snap := BuildSnapshot(user, []RoleGrant{
				{ID: 1, Key: "editor", Permissions: []string{"post.edit", "post.create"}},
			}, nil)

			gomega.Expect(snap.HasAllPermissions([]string{"post.edit", "post.create"})).To(gomega.BeTrue())
			gomega.Expect(snap.HasAllPermissions([]string{"post.edit", "post.delete"})).To(gomega.BeFalse())
			gomega.Expect(snap.MissingPermissions([]string{"post.edit", "post.delete"})).To(gomega.Equal([]string{"post.delete"}))
		})

		ginkgo.It("should answer HasAnyRole as a disjunction", func() {
			snap := BuildSnapshot(user, []RoleGrant{
				{ID: 1, Key: "editor"},
			}, nil)

			gomega.Expect(snap.HasAnyRole([]string{"admin", "editor"})).To(gomega.BeTrue())
			gomega.Expect(snap.HasAnyRole([]string{"admin", "moderator"})).To(gomega.BeFalse())
		})
	})
})
