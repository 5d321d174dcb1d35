package rbac

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/ThanhXT2002/api-insurance-sub001/internal"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/datamodel/identity"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/events"
)

func TestRBAC(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "RBAC Module Suite")
}

type overrideKey struct {
	userID       int64
	permissionID int64
}

// Mock repository backed by maps, with failure injection.
type mockRepository struct {
	roles       map[int64]*identity.Role
	permissions map[int64]*identity.Permission
	rolePerms   map[int64][]int64
	userRoles   map[int64][]int64
	overrides   map[overrideKey]*identity.UserPermissionOverride
	nextID      int64

	failWith     error
	replaceFails error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:       make(map[int64]*identity.Role),
		permissions: make(map[int64]*identity.Permission),
		rolePerms:   make(map[int64][]int64),
		userRoles:   make(map[int64][]int64),
		overrides:   make(map[overrideKey]*identity.UserPermissionOverride),
		nextID:      1,
	}
}

func (m *mockRepository) CreateRole(ctx context.Context, role *identity.Role) error {
	if m.failWith != nil {
		return m.failWith
	}
	role.ID = m.nextID
	m.nextID++
	m.roles[role.ID] = role
	return nil
}

func (m *mockRepository) GetRoleByID(ctx context.Context, id int64) (*identity.Role, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.roles[id], nil
}

func (m *mockRepository) GetRoleByKey(ctx context.Context, key string) (*identity.Role, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, role := range m.roles {
		if role.Key == key {
			return role, nil
		}
	}
	return nil, nil
}

func (m *mockRepository) ListRoles(ctx context.Context) ([]*identity.Role, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []*identity.Role
	for _, role := range m.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *mockRepository) UpdateRole(ctx context.Context, role *identity.Role) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.roles[role.ID] = role
	return nil
}

func (m *mockRepository) DeleteRole(ctx context.Context, id int64) error {
	if m.failWith != nil {
		return m.failWith
	}
	delete(m.roles, id)
	delete(m.rolePerms, id)
	return nil
}

func (m *mockRepository) CreatePermission(ctx context.Context, perm *identity.Permission) error {
	if m.failWith != nil {
		return m.failWith
	}
	perm.ID = m.nextID
	m.nextID++
	m.permissions[perm.ID] = perm
	return nil
}

func (m *mockRepository) GetPermissionByID(ctx context.Context, id int64) (*identity.Permission, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.permissions[id], nil
}

func (m *mockRepository) GetPermissionByKey(ctx context.Context, key string) (*identity.Permission, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, perm := range m.permissions {
		if perm.Key == key {
			return perm, nil
		}
	}
	return nil, nil
}

func (m *mockRepository) ListPermissions(ctx context.Context) ([]*identity.Permission, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []*identity.Permission
	for _, perm := range m.permissions {
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *mockRepository) DeletePermission(ctx context.Context, id int64) error {
	if m.failWith != nil {
		return m.failWith
	}
	delete(m.permissions, id)
	return nil
}

func (m *mockRepository) ListRolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.rolePerms[roleID], nil
}

// ReplacePermissions mirrors the transactional contract: on failure the
// stored list is left untouched.
func (m *mockRepository) ReplacePermissions(ctx context.Context, roleID int64, attach, detach []int64) error {
	if m.failWith != nil {
		return m.failWith
	}
	if m.replaceFails != nil {
		return m.replaceFails
	}
	drop := make(map[int64]struct{}, len(detach))
	for _, id := range detach {
		drop[id] = struct{}{}
	}
	var kept []int64
	for _, id := range m.rolePerms[roleID] {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	m.rolePerms[roleID] = append(kept, attach...)
	return nil
}

func (m *mockRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.userRoles[userID] = append(m.userRoles[userID], roleID)
	return nil
}

func (m *mockRepository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	if m.failWith != nil {
		return m.failWith
	}
	var kept []int64
	for _, id := range m.userRoles[userID] {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	m.userRoles[userID] = kept
	return nil
}

func (m *mockRepository) ListUserRoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.userRoles[userID], nil
}

func (m *mockRepository) UpsertOverride(ctx context.Context, override *identity.UserPermissionOverride) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.overrides[overrideKey{override.UserID, override.PermissionID}] = override
	return nil
}

func (m *mockRepository) DeleteOverride(ctx context.Context, userID, permissionID int64) error {
	if m.failWith != nil {
		return m.failWith
	}
	delete(m.overrides, overrideKey{userID, permissionID})
	return nil
}

func (m *mockRepository) ListOverrides(ctx context.Context, userID int64) ([]*identity.UserPermissionOverride, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []*identity.UserPermissionOverride
	for key, o := range m.overrides {
		if key.userID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PermissionID < out[j].PermissionID })
	return out, nil
}

// recordedEvents captures everything published on the bus so specs can
// assert on invalidation behavior.
type recordedEvents struct {
	userInvalidations []int64
	allInvalidations  int
}

func subscribeRecorder(bus *events.EventBus) *recordedEvents {
	rec := &recordedEvents{}
	bus.Subscribe(events.EventTypeUserInvalidated, func(ctx context.Context, e events.Event) error {
		userID, _ := events.UserIDFromEvent(e)
		rec.userInvalidations = append(rec.userInvalidations, userID)
		return nil
	})
	bus.Subscribe(events.EventTypeInvalidatedAll, func(ctx context.Context, e events.Event) error {
		rec.allInvalidations++
		return nil
	})
	return rec
}

var _ = ginkgo.Describe("RBAC Service", func() {
	var (
		service *Service
		repo    *mockRepository
		bus     *events.EventBus
		rec     *recordedEvents
		ctx     context.Context
	)

	boolPtr := func(b bool) *bool { return &b }

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		repo = newMockRepository()
		bus = events.NewEventBus(logger)
		rec = subscribeRecorder(bus)
		service = NewService(repo, bus, logger)
	})

	ginkgo.Describe("CreateRole", func() {
		ginkgo.It("should create a role with a unique key", func() {
			role, err := service.CreateRole(ctx, CreateRoleDTO{Key: "editor", Name: "Editor"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(role.ID).To(gomega.BeNumerically(">", 0))
			gomega.Expect(role.Key).To(gomega.Equal("editor"))
		})

		ginkgo.It("should reject a duplicate key with a conflict", func() {
			_, err := service.CreateRole(ctx, CreateRoleDTO{Key: "editor", Name: "Editor"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.CreateRole(ctx, CreateRoleDTO{Key: "editor", Name: "Other"})

			gomega.Expect(err).To(gomega.HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(409))
		})

		ginkgo.It("should reject an invalid payload", func() {
			_, err := service.CreateRole(ctx, CreateRoleDTO{Key: "", Name: ""})

			gomega.Expect(err).To(gomega.HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(400))
		})
	})

	ginkgo.Describe("UpdateRole", func() {
		ginkgo.It("should change display fields without invalidating", func() {
			created, err := service.CreateRole(ctx, CreateRoleDTO{Key: "editor", Name: "Editor"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			updated, err := service.UpdateRole(ctx, created.ID, UpdateRoleDTO{Name: "Content Editor"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.Name).To(gomega.Equal("Content Editor"))
			gomega.Expect(rec.allInvalidations).To(gomega.Equal(0))
			gomega.Expect(rec.userInvalidations).To(gomega.BeEmpty())
		})

		ginkgo.It("should report not found for an unknown role", func() {
			_, err := service.UpdateRole(ctx, 999, UpdateRoleDTO{Name: "x-name"})

			gomega.Expect(errors.Is(err, internal.ErrRoleNotFound)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("DeleteRole", func() {
		ginkgo.It("should invalidate every snapshot", func() {
			created, err := service.CreateRole(ctx, CreateRoleDTO{Key: "editor", Name: "Editor"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(service.DeleteRole(ctx, created.ID)).To(gomega.Succeed())

			gomega.Expect(rec.allInvalidations).To(gomega.Equal(1))
		})
	})

	ginkgo.Describe("SetRolePermissions", func() {
		var roleID int64
		var permA, permB, permC int64

		ginkgo.BeforeEach(func() {
			role, err := service.CreateRole(ctx, CreateRoleDTO{Key: "editor", Name: "Editor"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			roleID = role.ID

			for _, key := range []string{"post.create", "post.edit", "post.delete"} {
				perm, err := service.CreatePermission(ctx, CreatePermissionDTO{Key: key, Name: key})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				switch key {
				case "post.create":
					permA = perm.ID
				case "post.edit":
					permB = perm.ID
				case "post.delete":
					permC = perm.ID
				}
			}
		})

		ginkgo.It("should attach the desired permission set and invalidate everything", func() {
			err := service.SetRolePermissions(ctx, roleID, SetRolePermissionsDTO{
				PermissionIDs: []int64{permA, permB},
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(repo.rolePerms[roleID]).To(gomega.ConsistOf(permA, permB))
			gomega.Expect(rec.allInvalidations).To(gomega.Equal(1))
		})

		ginkgo.It("should only touch links that changed", func() {
			gomega.Expect(service.SetRolePermissions(ctx, roleID, SetRolePermissionsDTO{
				PermissionIDs: []int64{permA, permB},
			})).To(gomega.Succeed())

			gomega.Expect(service.SetRolePermissions(ctx, roleID, SetRolePermissionsDTO{
				PermissionIDs: []int64{permB, permC},
			})).To(gomega.Succeed())

			gomega.Expect(repo.rolePerms[roleID]).To(gomega.ConsistOf(permB, permC))
			gomega.Expect(rec.allInvalidations).To(gomega.Equal(2))
		})

		ginkgo.It("should be a no-op when the set is unchanged", func() {
			gomega.Expect(service.SetRolePermissions(ctx, roleID, SetRolePermissionsDTO{
				PermissionIDs: []int64{permA},
			})).To(gomega.Succeed())

			gomega.Expect(service.SetRolePermissions(ctx, roleID, SetRolePermissionsDTO{
				PermissionIDs: []int64{permA},
			})).To(gomega.Succeed())

			gomega.Expect(rec.allInvalidations).To(gomega.Equal(1))
		})

		ginkgo.It("should leave the stored list untouched and skip invalidation when the write fails", func() {
			gomega.Expect(service.SetRolePermissions(ctx, roleID, SetRolePermissionsDTO{
				PermissionIDs: []int64{permA},
			})).To(gomega.Succeed())

			repo.replaceFails = errors.New("connection reset")

			err := service.SetRolePermissions(ctx, roleID, SetRolePermissionsDTO{
				PermissionIDs: []int64{permB, permC},
			})

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(repo.rolePerms[roleID]).To(gomega.ConsistOf(permA))
			gomega.Expect(rec.allInvalidations).To(gomega.Equal(1))
		})

		ginkgo.It("should reject unknown permission ids before writing", func() {
			err := service.SetRolePermissions(ctx, roleID, SetRolePermissionsDTO{
				PermissionIDs: []int64{permA, 9999},
			})

			gomega.Expect(errors.Is(err, internal.ErrPermissionNotFound)).To(gomega.BeTrue())
			gomega.Expect(repo.rolePerms[roleID]).To(gomega.BeEmpty())
			gomega.Expect(rec.allInvalidations).To(gomega.Equal(0))
		})
	})

	ginkgo.Describe("AssignRole and RemoveRole", func() {
		var roleID int64

		ginkgo.BeforeEach(func() {
			role, err := service.CreateRole(ctx, CreateRoleDTO{Key: "editor", Name: "Editor"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			roleID = role.ID
		})

		ginkgo.It("should invalidate exactly the affected user on assignment", func() {
			err := service.AssignRole(ctx, 42, AssignRoleDTO{RoleID: roleID})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(repo.userRoles[42]).To(gomega.Equal([]int64{roleID}))
			gomega.Expect(rec.userInvalidations).To(gomega.Equal([]int64{42}))
			gomega.Expect(rec.allInvalidations).To(gomega.Equal(0))
		})

		ginkgo.It("should reject assignment of an unknown role", func() {
			err := service.AssignRole(ctx, 42, AssignRoleDTO{RoleID: 9999})

			gomega.Expect(errors.Is(err, internal.ErrRoleNotFound)).To(gomega.BeTrue())
			gomega.Expect(rec.userInvalidations).To(gomega.BeEmpty())
		})

		ginkgo.It("should list the roles a user holds", func() {
			viewer, err := service.CreateRole(ctx, CreateRoleDTO{Key: "viewer", Name: "Viewer"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(service.AssignRole(ctx, 42, AssignRoleDTO{RoleID: roleID})).To(gomega.Succeed())
			gomega.Expect(service.AssignRole(ctx, 42, AssignRoleDTO{RoleID: viewer.ID})).To(gomega.Succeed())

			roles, err := service.ListUserRoles(ctx, 42)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(roles).To(gomega.HaveLen(2))
			keys := []string{roles[0].Key, roles[1].Key}
			gomega.Expect(keys).To(gomega.ConsistOf("editor", "viewer"))
		})

		ginkgo.It("should invalidate the user on removal", func() {
			gomega.Expect(service.AssignRole(ctx, 42, AssignRoleDTO{RoleID: roleID})).To(gomega.Succeed())

			gomega.Expect(service.RemoveRole(ctx, 42, roleID)).To(gomega.Succeed())

			gomega.Expect(repo.userRoles[42]).To(gomega.BeEmpty())
			gomega.Expect(rec.userInvalidations).To(gomega.Equal([]int64{42, 42}))
		})
	})

	ginkgo.Describe("overrides", func() {
		var permID int64

		ginkgo.BeforeEach(func() {
			perm, err := service.CreatePermission(ctx, CreatePermissionDTO{Key: "report.view", Name: "View reports"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			permID = perm.ID
		})

		ginkgo.It("should write a grant row and invalidate the user", func() {
			err := service.SetOverride(ctx, 42, SetOverrideDTO{PermissionID: permID, Allowed: boolPtr(true)}, nil)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			stored := repo.overrides[overrideKey{42, permID}]
			gomega.Expect(stored).NotTo(gomega.BeNil())
			gomega.Expect(stored.Allowed).To(gomega.BeTrue())
			gomega.Expect(rec.userInvalidations).To(gomega.Equal([]int64{42}))
		})

		ginkgo.It("should replace the row on a second write, never duplicate", func() {
			admin := int64(7)
			gomega.Expect(service.SetOverride(ctx, 42, SetOverrideDTO{PermissionID: permID, Allowed: boolPtr(true)}, &admin)).To(gomega.Succeed())

			gomega.Expect(service.SetOverride(ctx, 42, SetOverrideDTO{PermissionID: permID, Allowed: boolPtr(false)}, &admin)).To(gomega.Succeed())

			overrides, err := service.ListOverrides(ctx, 42)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(overrides).To(gomega.HaveLen(1))
			gomega.Expect(overrides[0].Allowed).To(gomega.BeFalse())
			gomega.Expect(rec.userInvalidations).To(gomega.Equal([]int64{42, 42}))
		})

		ginkgo.It("should reject a payload without the allowed field", func() {
			err := service.SetOverride(ctx, 42, SetOverrideDTO{PermissionID: permID}, nil)

			gomega.Expect(err).To(gomega.HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.StatusCode).To(gomega.Equal(400))
		})

		ginkgo.It("should reject an override for an unknown permission", func() {
			err := service.SetOverride(ctx, 42, SetOverrideDTO{PermissionID: 9999, Allowed: boolPtr(true)}, nil)

			gomega.Expect(errors.Is(err, internal.ErrPermissionNotFound)).To(gomega.BeTrue())
		})

		ginkgo.It("should delete the row on removal and invalidate the user", func() {
			gomega.Expect(service.SetOverride(ctx, 42, SetOverrideDTO{PermissionID: permID, Allowed: boolPtr(false)}, nil)).To(gomega.Succeed())

			gomega.Expect(service.RemoveOverride(ctx, 42, permID)).To(gomega.Succeed())

			overrides, err := service.ListOverrides(ctx, 42)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(overrides).To(gomega.BeEmpty())
			gomega.Expect(rec.userInvalidations).To(gomega.Equal([]int64{42, 42}))
		})
	})

	ginkgo.Describe("when the repository fails", func() {
		ginkgo.It("should surface an internal error and skip invalidation", func() {
			role, err := service.CreateRole(ctx, CreateRoleDTO{Key: "editor", Name: "Editor"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			repo.failWith = errors.New("connection refused")

			err = service.DeleteRole(ctx, role.ID)

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(rec.allInvalidations).To(gomega.Equal(0))
		})
	})
})
