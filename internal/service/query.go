package service

import (
	"context"
	"time"

	"sqlgate/internal/domain"
	"sqlgate/internal/policy"
)

// ExecuteResult is the outcome of a governed query execution.
type ExecuteResult struct {
	Result           *domain.QueryResult
	SQL              string
	Rewritten        bool
	MaskedColumns    []string
	AmbiguousColumns []string
	ExecutionMS      int64
}

// QueryService runs statements through the decision engine and an injected
// execution collaborator, recording every attempt in the query history.
type QueryService struct {
	engine   *policy.Engine
	executor domain.Executor
	history  domain.QueryHistoryRepository
	now      func() time.Time
}

// NewQueryService creates a new QueryService.
func NewQueryService(engine *policy.Engine, executor domain.Executor, history domain.QueryHistoryRepository) *QueryService {
	return &QueryService{engine: engine, executor: executor, history: history, now: time.Now}
}

// Execute decides and, if allowed, runs one statement for the caller. A
// denial is returned as AccessDeniedError carrying the engine's reason.
func (s *QueryService) Execute(ctx context.Context, sqlText string) (*ExecuteResult, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAccessDenied("authentication required")
	}

	decision, err := s.engine.Decide(ctx, p, sqlText)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		_ = s.history.Insert(ctx, &domain.QueryHistoryEntry{
			Principal: p.Username,
			SQL:       sqlText,
			Status:    domain.QueryDenied,
			Error:     decision.Reason,
		})
		return nil, domain.ErrAccessDenied("query denied: %s", decision.Reason)
	}

	start := s.now()
	result, execErr := s.executor.Execute(ctx, decision.SQL)
	elapsed := s.now().Sub(start).Milliseconds()

	entry := &domain.QueryHistoryEntry{
		Principal:   p.Username,
		SQL:         sqlText,
		Status:      domain.QuerySucceeded,
		ExecutionMS: elapsed,
	}
	if decision.Rewritten {
		entry.RewrittenSQL = decision.SQL
	}
	if execErr != nil {
		entry.Status = domain.QueryFailed
		entry.Error = execErr.Error()
	}
	_ = s.history.Insert(ctx, entry)

	if execErr != nil {
		return nil, execErr
	}
	return &ExecuteResult{
		Result:           result,
		SQL:              decision.SQL,
		Rewritten:        decision.Rewritten,
		MaskedColumns:    decision.MaskedColumns,
		AmbiguousColumns: decision.AmbiguousColumns,
		ExecutionMS:      elapsed,
	}, nil
}

// EffectivePrivileges explains a user's resolved role closure and effective
// privilege set. Non-admin callers may only inspect themselves.
func (s *QueryService) EffectivePrivileges(ctx context.Context, userID string) ([]policy.ResolvedRole, []policy.EffectivePrivilege, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, nil, domain.ErrAccessDenied("authentication required")
	}
	if !p.IsAdmin && p.UserID != userID {
		return nil, nil, domain.ErrAccessDenied("cannot inspect another user's privileges")
	}
	return s.engine.Effective(ctx, userID)
}

// CheckAccess answers whether the caller holds a privilege on a resource
// without running any statement.
func (s *QueryService) CheckAccess(ctx context.Context, privilege, resource string) (bool, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return false, domain.ErrAccessDenied("authentication required")
	}
	return s.engine.CheckAccess(ctx, p, privilege, resource)
}

// History returns recent query history. Non-admin callers only see their
// own entries.
func (s *QueryService) History(ctx context.Context, principal string, limit int) ([]domain.QueryHistoryEntry, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAccessDenied("authentication required")
	}
	if !p.IsAdmin {
		principal = p.Username
	}
	return s.history.List(ctx, principal, limit)
}
