package auth

import (
	"context"
	"errors"
	"strings"
)

// RoleResolver computes which roles a caller may assign or see. The hierarchy
// is pure data: a role with a numerically lower rank holds more privilege.
type RoleResolver struct {
	roles RoleStore
}

// NewRoleResolver constructs a resolver over the role store.
func NewRoleResolver(roles RoleStore) *RoleResolver {
	return &RoleResolver{roles: roles}
}

// ResolveAssignable validates that the caller may assign the named role and
// returns it. Assignment is strict: a non-global caller can only assign roles
// ranked strictly weaker than its own, never its own rank or better.
func (r *RoleResolver) ResolveAssignable(ctx context.Context, roleName string, caller Caller) (Role, error) {
	role, err := r.roles.FindByName(ctx, normalizeRoleName(roleName))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, err
	}
	if caller.Global() {
		return role, nil
	}
	if role.Rank <= caller.Role.Rank {
		return Role{}, ErrForbidden
	}
	return role, nil
}

// ListSubroles returns roles ranked weaker than or equal to the named
// reference role, minus any explicitly excluded names. Visibility is
// weaker-or-equal while assignment is strict-weaker; the reference role is
// usually self-excluded by the caller rather than by the rank comparison.
func (r *RoleResolver) ListSubroles(ctx context.Context, roleName string, excluded []string) ([]Role, error) {
	ref, err := r.roles.FindByName(ctx, normalizeRoleName(roleName))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The reference comes from the caller's own role, so a missing
			// role is an authorization failure rather than a lookup miss.
			return nil, ErrForbidden
		}
		return nil, err
	}
	skip := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		skip[normalizeRoleName(name)] = struct{}{}
	}
	all, err := r.roles.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Role
	for _, role := range all {
		if role.Rank < ref.Rank {
			continue
		}
		if _, ok := skip[normalizeRoleName(role.Name)]; ok {
			continue
		}
		out = append(out, role)
	}
	return out, nil
}

func normalizeRoleName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
