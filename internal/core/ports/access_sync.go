package ports

import (
	"context"

	"github.com/winiceo/kevio/internal/core/domain"
)

// AccessSync converges the external ACL store with a user's persisted role
// assignments after a lifecycle event. Calls are best-effort: an error means
// this sync attempt failed and was logged, never that the entity mutation
// should be rolled back.
type AccessSync interface {
	// UserCreated grants capabilities for all roles assigned at creation.
	UserCreated(ctx context.Context, user *domain.User) error

	// UserUpdated diffs the pre-mutation snapshot against the persisted state
	// and applies additions before removals. When loginOnly is set the update
	// touched nothing but the last-login timestamp and the whole sync is
	// skipped.
	UserUpdated(ctx context.Context, before, after *domain.User, loginOnly bool) error

	// UserDeleted revokes capabilities for every role the user held.
	UserDeleted(ctx context.Context, user *domain.User) error
}
