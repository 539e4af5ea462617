package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/winiceo/kevio/internal/core/domain"
	"github.com/winiceo/kevio/internal/core/ports"
)

// CapabilityResolver translates role ids into ACL capability names by joining
// each role's slug with its owning application's slug.
type CapabilityResolver struct {
	roles ports.RoleRepository
	apps  ports.AppRepository
	log   zerolog.Logger
}

func NewCapabilityResolver(roles ports.RoleRepository, apps ports.AppRepository, log zerolog.Logger) *CapabilityResolver {
	return &CapabilityResolver{roles: roles, apps: apps, log: log}
}

// Resolve returns a partial role id → capability name mapping. Superadmin
// roles are excluded, and ids with no resolvable role or app are dropped from
// the result after a warning; referential integrity is never assumed. Only an
// unreachable backing store is an error, reported as domain.ErrLookup.
func (r *CapabilityResolver) Resolve(ctx context.Context, roleIDs []string) (map[string]string, error) {
	result := make(map[string]string, len(roleIDs))
	if len(roleIDs) == 0 {
		return result, nil
	}

	roles, err := r.roles.FindByIDs(ctx, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: roles: %v", domain.ErrLookup, err)
	}

	byID := make(map[string]domain.Role, len(roles))
	known := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		known[role.ID] = struct{}{}
		if role.Superadmin() {
			continue
		}
		byID[role.ID] = role
	}
	for _, id := range roleIDs {
		if _, ok := known[id]; !ok {
			r.log.Warn().Str("role_id", id).Msg("role not found, skipped")
		}
	}
	if len(byID) == 0 {
		return result, nil
	}

	appIDs := make([]string, 0, len(byID))
	seen := make(map[string]struct{}, len(byID))
	for _, role := range byID {
		if _, ok := seen[role.AppID]; ok {
			continue
		}
		seen[role.AppID] = struct{}{}
		appIDs = append(appIDs, role.AppID)
	}

	apps, err := r.apps.FindByIDs(ctx, appIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: apps: %v", domain.ErrLookup, err)
	}

	appByID := make(map[string]domain.App, len(apps))
	for _, app := range apps {
		appByID[app.ID] = app
	}

	for id, role := range byID {
		app, ok := appByID[role.AppID]
		if !ok {
			r.log.Warn().Str("role_id", id).Str("app_id", role.AppID).Msg("app not found, role skipped")
			continue
		}
		result[id] = domain.Capability(app.Slug, role.Slug)
	}
	return result, nil
}
