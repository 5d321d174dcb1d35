package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/datamodel/identity"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	var u identity.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*identity.User, error) {
	if err := r.db.WithContext(ctx).Model(&identity.User{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return nil, err
	}

	var u identity.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.db.WithContext(ctx).Model(&identity.User{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}
