package policy

import (
	"context"
	"strings"

	"sqlgate/internal/domain"
)

// EffectivePrivilege is one grant in a principal's effective set, annotated
// with where it came from for audit and explainability.
type EffectivePrivilege struct {
	Code          string
	Category      domain.PrivilegeCategory
	ResourceType  domain.ResourceType
	ResourceID    *string
	ConditionExpr *string
	// SourceRole is the name of the granting role, or the exception ID for
	// overlay grants.
	SourceRole    string
	FromException bool
}

// AppliesTo reports whether the grant covers the named resource. A nil
// ResourceID is an unscoped grant covering every resource of its type.
func (p EffectivePrivilege) AppliesTo(resource string) bool {
	if p.ResourceID == nil {
		return true
	}
	return strings.EqualFold(*p.ResourceID, resource)
}

// Aggregator merges role privilege bindings into an effective privilege set.
type Aggregator struct {
	privileges domain.PrivilegeRepository
}

// NewAggregator creates an Aggregator over the given store.
func NewAggregator(privileges domain.PrivilegeRepository) *Aggregator {
	return &Aggregator{privileges: privileges}
}

// Aggregate fetches every binding whose role is in the closure and flattens
// them, deduplicating by (code, resource type, resource id). Bindings are
// additive grants only; there is no deny layer, so duplicates from different
// roles collapse to the first occurrence with its provenance.
func (a *Aggregator) Aggregate(ctx context.Context, roles []ResolvedRole) ([]EffectivePrivilege, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	bindings, err := a.privileges.ListBindingsForRoles(ctx, RoleIDs(roles))
	if err != nil {
		return nil, err
	}

	type key struct {
		code         string
		resourceType domain.ResourceType
		resourceID   string
	}
	seen := map[key]bool{}
	var out []EffectivePrivilege
	for _, b := range bindings {
		k := key{code: b.PrivilegeCode, resourceType: b.ResourceType}
		if b.ResourceID != nil {
			k.resourceID = *b.ResourceID
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, EffectivePrivilege{
			Code:          b.PrivilegeCode,
			Category:      b.PrivilegeCategory,
			ResourceType:  b.ResourceType,
			ResourceID:    b.ResourceID,
			ConditionExpr: b.ConditionExpr,
			SourceRole:    b.RoleName,
		})
	}
	return out, nil
}
