package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with roles, permissions and sample users for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := initGorm(sqlxDB)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{
				"user_permission_overrides", "user_roles", "role_permissions",
				"permissions", "roles", "users",
			} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		permissions := []struct {
			Key  string
			Name string
			Desc string
		}{
			{"rbac.manage", "Manage RBAC", "Administer roles, permissions and overrides"},
			{"post.view", "View posts", "Read site content"},
			{"post.create", "Create posts", "Author new site content"},
			{"post.edit", "Edit posts", "Modify site content"},
			{"post.delete", "Delete posts", "Remove site content"},
			{"report.view", "View reports", "Read sales and traffic reports"},
		}

		for _, p := range permissions {
			seedPermission(db, p.Key, p.Name, p.Desc)
		}

		rolePermissions := map[string][]string{
			"admin":  {"rbac.manage", "post.view", "post.create", "post.edit", "post.delete", "report.view"},
			"editor": {"post.view", "post.create", "post.edit"},
			"member": {"post.view"},
		}
		roleNames := map[string]string{
			"admin":  "Administrator",
			"editor": "Content Editor",
			"member": "Member",
		}

		for key, permKeys := range rolePermissions {
			roleID := seedRole(db, key, roleNames[key])
			for _, permKey := range permKeys {
				linkRolePermission(db, roleID, permissionID(db, permKey))
			}
		}

		adminID := seedUser(db, "seed-admin", "admin@example.com", "Site Admin")
		editorID := seedUser(db, "seed-editor", "editor@example.com", "Site Editor")

		assignRole(db, adminID, roleID(db, "admin"))
		assignRole(db, editorID, roleID(db, "editor"))

		// Example override: the editor additionally sees reports without
		// holding a reporting role.
		seedOverride(db, editorID, permissionID(db, "report.view"), true, adminID)

		fmt.Println("Seed data loaded")
	},
}

func seedPermission(db *gorm.DB, key, name, desc string) {
	var exists int
	if err := db.Raw("SELECT 1 FROM permissions WHERE key = ?", key).Row().Scan(&exists); err == nil {
		return
	}
	if err := db.Exec("INSERT INTO permissions (key, name, description, created_at) VALUES (?, ?, ?, now())", key, name, desc).Error; err != nil {
		log.Fatalf("failed to insert permission %s: %v", key, err)
	}
	fmt.Println("Seeded permission:", key)
}

func seedRole(db *gorm.DB, key, name string) int64 {
	var id int64
	if err := db.Raw("SELECT id FROM roles WHERE key = ?", key).Row().Scan(&id); err == nil {
		return id
	}
	if err := db.Exec("INSERT INTO roles (key, name, created_at, updated_at) VALUES (?, ?, now(), now())", key, name).Error; err != nil {
		log.Fatalf("failed to insert role %s: %v", key, err)
	}
	fmt.Println("Seeded role:", key)
	return roleID(db, key)
}

func roleID(db *gorm.DB, key string) int64 {
	var id int64
	if err := db.Raw("SELECT id FROM roles WHERE key = ?", key).Row().Scan(&id); err != nil {
		log.Fatalf("role not found %s: %v", key, err)
	}
	return id
}

func permissionID(db *gorm.DB, key string) int64 {
	var id int64
	if err := db.Raw("SELECT id FROM permissions WHERE key = ?", key).Row().Scan(&id); err != nil {
		log.Fatalf("permission not found %s: %v", key, err)
	}
	return id
}

func linkRolePermission(db *gorm.DB, roleID, permID int64) {
	var exists int
	if err := db.Raw("SELECT 1 FROM role_permissions WHERE role_id = ? AND permission_id = ?", roleID, permID).Row().Scan(&exists); err == nil {
		return
	}
	if err := db.Exec("INSERT INTO role_permissions (role_id, permission_id, created_at) VALUES (?, ?, now())", roleID, permID).Error; err != nil {
		log.Fatalf("failed to link role %d permission %d: %v", roleID, permID, err)
	}
}

func seedUser(db *gorm.DB, externalID, email, name string) int64 {
	var id int64
	if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&id); err == nil {
		return id
	}
	if err := db.Exec("INSERT INTO users (external_id, email, name, is_active, created_at, updated_at) VALUES (?, ?, ?, true, now(), now())", externalID, email, name).Error; err != nil {
		log.Fatalf("failed to insert user %s: %v", email, err)
	}
	fmt.Println("Seeded user:", email)
	var newID int64
	if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&newID); err != nil {
		log.Fatalf("user not found after insert %s: %v", email, err)
	}
	return newID
}

func assignRole(db *gorm.DB, userID, roleID int64) {
	var exists int
	if err := db.Raw("SELECT 1 FROM user_roles WHERE user_id = ? AND role_id = ?", userID, roleID).Row().Scan(&exists); err == nil {
		return
	}
	if err := db.Exec("INSERT INTO user_roles (user_id, role_id, created_at) VALUES (?, ?, now())", userID, roleID).Error; err != nil {
		log.Fatalf("failed to assign role %d to user %d: %v", roleID, userID, err)
	}
}

func seedOverride(db *gorm.DB, userID, permID int64, allowed bool, grantedBy int64) {
	var exists int
	if err := db.Raw("SELECT 1 FROM user_permission_overrides WHERE user_id = ? AND permission_id = ?", userID, permID).Row().Scan(&exists); err == nil {
		return
	}
	if err := db.Exec("INSERT INTO user_permission_overrides (user_id, permission_id, allowed, granted_by, created_at, updated_at) VALUES (?, ?, ?, ?, now(), now())", userID, permID, allowed, grantedBy).Error; err != nil {
		log.Fatalf("failed to seed override for user %d: %v", userID, err)
	}
	fmt.Printf("Seeded override: user %d permission %d allowed=%v\n", userID, permID, allowed)
}
