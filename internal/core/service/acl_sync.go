package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/winiceo/kevio/internal/core/domain"
	"github.com/winiceo/kevio/internal/core/events"
	"github.com/winiceo/kevio/internal/core/ports"
)

// changeEmitter abstracts the process-wide event bus (events.Emitter).
type changeEmitter interface {
	Emit(event string, payload any)
}

// capabilityResolver abstracts CapabilityResolver for testing.
type capabilityResolver interface {
	Resolve(ctx context.Context, roleIDs []string) (map[string]string, error)
}

// AccessSync keeps the external ACL store consistent with persisted role
// assignments. All work happens after the authoritative entity write has
// committed; no error here ever rolls that write back. When the ACL store is
// absent (nil) every ACL step is a silent no-op.
type AccessSync struct {
	resolver capabilityResolver
	acl      ports.ACLStore
	emitter  changeEmitter
	log      zerolog.Logger
}

func NewAccessSync(resolver capabilityResolver, acl ports.ACLStore, emitter changeEmitter, log zerolog.Logger) *AccessSync {
	return &AccessSync{resolver: resolver, acl: acl, emitter: emitter, log: log}
}

// UserCreated grants the capabilities for every role assigned at creation
// time. Unresolvable role ids are skipped, not retried. No change event is
// emitted for creations.
func (s *AccessSync) UserCreated(ctx context.Context, user *domain.User) error {
	if s.acl == nil || len(user.RoleIDs) == 0 {
		return nil
	}

	caps, err := s.resolver.Resolve(ctx, user.RoleIDs)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("access sync aborted on create")
		return fmt.Errorf("access sync create: %w", err)
	}

	names := capabilityNames(user.RoleIDs, caps)
	if len(names) == 0 {
		s.log.Info().Str("user_id", user.ID).Msg("no resolvable roles on create")
		return nil
	}

	if err := s.acl.AddUserRoles(ctx, user.ID, names); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Strs("capabilities", names).Msg("acl add failed")
		return fmt.Errorf("access sync create: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Strs("capabilities", names).Msg("acl roles added")
	return nil
}

// UserUpdated computes the role delta between the pre-mutation snapshot and
// the persisted state, then applies additions strictly before removals so a
// stale removal can never undo a fresh grant. A login-timestamp-only update
// performs no ACL work and emits no change event; if such an update smuggles
// in a role change, that is a caller contract violation and the sync is
// skipped with a warning.
func (s *AccessSync) UserUpdated(ctx context.Context, before, after *domain.User, loginOnly bool) error {
	if loginOnly {
		if !domain.SameRoleSet(before.RoleIDs, after.RoleIDs) {
			s.log.Warn().Str("user_id", after.ID).Msg("role change carried by login-only update, sync skipped")
		}
		return nil
	}

	s.emitter.Emit(events.UserUpdated, events.UserUpdatedPayload{
		Source: "system_users",
		User:   after,
	})

	if s.acl == nil {
		return nil
	}

	diff := domain.DiffRoles(before.RoleIDs, after.RoleIDs)
	if diff.Empty() {
		return nil
	}

	// One combined lookup for both directions of the delta.
	caps, err := s.resolver.Resolve(ctx, append(append([]string{}, diff.Added...), diff.Removed...))
	if err != nil {
		s.log.Error().Err(err).Str("user_id", after.ID).Msg("access sync aborted on update")
		return fmt.Errorf("access sync update: %w", err)
	}

	added := capabilityNames(diff.Added, caps)
	removed := capabilityNames(diff.Removed, caps)

	var errs []error
	if len(added) > 0 {
		if err := s.acl.AddUserRoles(ctx, after.ID, added); err != nil {
			s.log.Error().Err(err).Str("user_id", after.ID).Strs("capabilities", added).Msg("acl add failed")
			errs = append(errs, fmt.Errorf("add user roles: %w", err))
		} else {
			s.log.Info().Str("user_id", after.ID).Strs("capabilities", added).Msg("acl roles added")
		}
	}
	// Removals only run once the add call has completed.
	if len(removed) > 0 {
		if err := s.acl.RemoveUserRoles(ctx, after.ID, removed); err != nil {
			s.log.Error().Err(err).Str("user_id", after.ID).Strs("capabilities", removed).Msg("acl remove failed")
			errs = append(errs, fmt.Errorf("remove user roles: %w", err))
		} else {
			s.log.Info().Str("user_id", after.ID).Strs("capabilities", removed).Msg("acl roles removed")
		}
	}
	return errors.Join(errs...)
}

// UserDeleted revokes every capability the user still held at deletion time.
func (s *AccessSync) UserDeleted(ctx context.Context, user *domain.User) error {
	if s.acl == nil || len(user.RoleIDs) == 0 {
		return nil
	}

	caps, err := s.resolver.Resolve(ctx, user.RoleIDs)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("access sync aborted on delete")
		return fmt.Errorf("access sync delete: %w", err)
	}

	names := capabilityNames(user.RoleIDs, caps)
	if len(names) == 0 {
		return nil
	}

	if err := s.acl.RemoveUserRoles(ctx, user.ID, names); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Strs("capabilities", names).Msg("acl remove failed")
		return fmt.Errorf("access sync delete: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Strs("capabilities", names).Msg("acl roles removed")
	return nil
}

// capabilityNames projects the resolved subset of ids onto sorted capability
// names, deduplicated for stable ACL calls.
func capabilityNames(ids []string, caps map[string]string) []string {
	seen := make(map[string]struct{}, len(ids))
	var names []string
	for _, id := range ids {
		name, ok := caps[id]
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
