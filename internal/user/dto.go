package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ThanhXT2002/api-insurance-sub001/internal"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/datamodel/identity"
)

var validate = validator.New()

// UpdateProfileDTO carries the mutable profile fields. Pointers
// distinguish "leave unchanged" from "set to empty".
type UpdateProfileDTO struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1,max=128"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address   *string `json:"address,omitempty" validate:"omitempty,max=512"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url,max=512"`
}

func (d *UpdateProfileDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if d.Name == nil && d.Phone == nil && d.Address == nil && d.AvatarURL == nil {
		return internal.NewValidationError("no fields to update", internal.ErrCodeValidationFailed)
	}
	return nil
}

// Fields converts the DTO to the partial-update map the Identity Store
// expects.
func (d *UpdateProfileDTO) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if d.Name != nil {
		fields["name"] = *d.Name
	}
	if d.Phone != nil {
		fields["phone"] = *d.Phone
	}
	if d.Address != nil {
		fields["address"] = *d.Address
	}
	if d.AvatarURL != nil {
		fields["avatar_url"] = *d.AvatarURL
	}
	return fields
}

type ProfileResponse struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toProfileResponse(u *identity.User) ProfileResponse {
	return ProfileResponse{
		ID:         u.ID,
		ExternalID: u.ExternalID,
		Email:      u.Email,
		Name:       u.Name,
		Phone:      u.Phone,
		Address:    u.Address,
		AvatarURL:  u.AvatarURL,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}
