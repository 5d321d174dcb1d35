package user

import (
	"context"

	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/datamodel/identity"
)

// RepositoryAPI is the profile persistence contract. Lookups return
// (nil, nil) when the user is absent.
type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*identity.User, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*identity.User, error)
	SetActive(ctx context.Context, id int64, active bool) error
}
