package policy

import (
	"context"
	"time"

	"sqlgate/internal/domain"
)

// Overlay folds approved, in-window policy exceptions into a principal's
// effective privilege set for the duration of one decision.
type Overlay struct {
	exceptions domain.ExceptionRepository
}

// NewOverlay creates an Overlay over the given store.
func NewOverlay(exceptions domain.ExceptionRepository) *Overlay {
	return &Overlay{exceptions: exceptions}
}

// ActiveGrants returns the extra grants from exceptions whose subject is the
// principal or any of its resolved roles. Only APPROVED rows inside their
// [start, end) window at now count: the window is re-derived here, so a row
// still stored as APPROVED past its end is ignored, and a REVOKED row is
// never honored regardless of its window. Grants are request-scoped and
// never persisted back into role bindings.
func (o *Overlay) ActiveGrants(ctx context.Context, userID string, roleIDs []string, now time.Time) ([]EffectivePrivilege, error) {
	subjects := append([]string{userID}, roleIDs...)
	rows, err := o.exceptions.ListApprovedForSubjects(ctx, subjects)
	if err != nil {
		return nil, err
	}

	var out []EffectivePrivilege
	for _, e := range rows {
		if !e.ActiveAt(now) {
			continue
		}
		out = append(out, EffectivePrivilege{
			Code:          e.OverridePrivilege,
			ResourceType:  e.Scope,
			ResourceID:    e.ResourceID,
			SourceRole:    e.ID,
			FromException: true,
		})
	}
	return out, nil
}
