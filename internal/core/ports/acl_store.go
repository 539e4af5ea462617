package ports

import "context"

// ACLStore is the external authorization backend. Capability names, not role
// ids, are what cross this boundary. Both operations are set-based: adding a
// capability a user already holds, or removing one they do not, is a no-op.
type ACLStore interface {
	AddUserRoles(ctx context.Context, userID string, capabilities []string) error
	RemoveUserRoles(ctx context.Context, userID string, capabilities []string) error
}
