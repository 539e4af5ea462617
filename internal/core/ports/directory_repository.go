package ports

import (
	"context"

	"github.com/winiceo/kevio/internal/core/domain"
)

// RoleRepository looks up role master data by id set. Implementations return
// only the roles that exist; unknown ids are silently absent from the result.
type RoleRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]domain.Role, error)
}

// AppRepository looks up application master data by id set, with the same
// partial-result contract as RoleRepository.
type AppRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]domain.App, error)
}
