package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/winiceo/kevio/internal/api/metrics"
)

// ACLStore tracks capability grants in Redis, one set per user.
// Key format: acl:user:<user_id>:roles
type ACLStore struct {
	client *redis.Client
}

// NewACLStore creates an ACLStore wrapping the given Redis client.
func NewACLStore(client *redis.Client) *ACLStore {
	return &ACLStore{client: client}
}

// AddUserRoles grants capabilities to the user. Set semantics make repeated
// grants idempotent.
func (s *ACLStore) AddUserRoles(ctx context.Context, userID string, capabilities []string) error {
	if len(capabilities) == 0 {
		return nil
	}
	if err := s.client.SAdd(ctx, s.key(userID), toMembers(capabilities)...).Err(); err != nil {
		metrics.ACLOperationsTotal.WithLabelValues("add", "error").Inc()
		return fmt.Errorf("acl add user roles: %w", err)
	}
	metrics.ACLOperationsTotal.WithLabelValues("add", "ok").Inc()
	return nil
}

// RemoveUserRoles revokes capabilities from the user. Removing an absent
// capability is a no-op.
func (s *ACLStore) RemoveUserRoles(ctx context.Context, userID string, capabilities []string) error {
	if len(capabilities) == 0 {
		return nil
	}
	if err := s.client.SRem(ctx, s.key(userID), toMembers(capabilities)...).Err(); err != nil {
		metrics.ACLOperationsTotal.WithLabelValues("remove", "error").Inc()
		return fmt.Errorf("acl remove user roles: %w", err)
	}
	metrics.ACLOperationsTotal.WithLabelValues("remove", "ok").Inc()
	return nil
}

// UserRoles returns the capability names currently granted to the user.
func (s *ACLStore) UserRoles(ctx context.Context, userID string) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("acl list user roles: %w", err)
	}
	return names, nil
}

func (s *ACLStore) key(userID string) string {
	return fmt.Sprintf("acl:user:%s:roles", userID)
}

func toMembers(capabilities []string) []interface{} {
	members := make([]interface{}, len(capabilities))
	for i, c := range capabilities {
		members[i] = c
	}
	return members
}
