package ports

import (
	"context"

	"github.com/winiceo/kevio/internal/core/domain"
)

// CreateUserInput carries the fields accepted at signup or invite time.
type CreateUserInput struct {
	Email     string
	Name      string
	Password  string
	Type      domain.UserType
	RoleIDs   []string
	Invited   bool
	InviterID string
}

// UpdateUserInput uses pointers so absent fields are left untouched.
type UpdateUserInput struct {
	Email         *string
	Name          *string
	Password      *string
	Enabled       *bool
	Type          *domain.UserType
	RoleIDs       *[]string
	WaitingStatus *domain.WaitingStatus
}

type UserService interface {
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	Update(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	// RecordLogin stamps the last-login time. It is the only mutation exempt
	// from access sync and change-event emission.
	RecordLogin(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type AuthService interface {
	Register(ctx context.Context, in CreateUserInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}
