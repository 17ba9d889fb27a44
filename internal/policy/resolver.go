// Package policy implements privilege resolution and access decisions:
// role-closure traversal, privilege aggregation, exception overlays, masking
// rule matching, and the decision engine composing them.
package policy

import (
	"context"
	"errors"
	"time"

	"sqlgate/internal/domain"
)

// ResolvedRole is one role in a principal's closure, annotated with how it
// was reached.
type ResolvedRole struct {
	Role   domain.Role
	Direct bool
	// Via is the ID of the child role whose parent link pulled this role in.
	// Empty for direct assignments.
	Via string
}

// Resolver computes the transitive role closure for a principal.
type Resolver struct {
	roles domain.RoleRepository
	users domain.UserRepository
}

// NewResolver creates a Resolver over the given stores.
func NewResolver(roles domain.RoleRepository, users domain.UserRepository) *Resolver {
	return &Resolver{roles: roles, users: users}
}

// Resolve walks parent links breadth-first from the principal's direct
// assignments active at now, visiting each role at most once so a corrupted
// graph containing a cycle terminates instead of looping. A dangling role or
// parent reference is skipped, not fatal. When the principal has no active
// assignments the deprecated single-role field is used as a fallback.
func (r *Resolver) Resolve(ctx context.Context, userID string, now time.Time) ([]ResolvedRole, error) {
	assignments, err := r.roles.ListAssignmentsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	type queued struct {
		id     string
		direct bool
		via    string
	}
	var queue []queued
	for _, a := range assignments {
		if a.ActiveAt(now) {
			queue = append(queue, queued{id: a.RoleID, direct: true})
		}
	}

	if len(queue) == 0 {
		user, err := r.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user.LegacyRoleID != nil {
			queue = append(queue, queued{id: *user.LegacyRoleID, direct: true})
		}
	}

	visited := map[string]bool{}
	var out []ResolvedRole
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next.id] {
			continue
		}
		visited[next.id] = true

		role, err := r.roles.GetByID(ctx, next.id)
		if err != nil {
			var nf *domain.NotFoundError
			if errors.As(err, &nf) {
				continue
			}
			return nil, err
		}

		out = append(out, ResolvedRole{Role: *role, Direct: next.direct, Via: next.via})
		if role.ParentID != nil {
			queue = append(queue, queued{id: *role.ParentID, via: role.ID})
		}
	}
	return out, nil
}

// RoleIDs returns the IDs of the resolved roles in traversal order.
func RoleIDs(roles []ResolvedRole) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.Role.ID
	}
	return out
}

// RoleIDSet returns the resolved role IDs as a membership set.
func RoleIDSet(roles []ResolvedRole) map[string]bool {
	out := make(map[string]bool, len(roles))
	for _, r := range roles {
		out[r.Role.ID] = true
	}
	return out
}
