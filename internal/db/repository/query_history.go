package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"sqlgate/internal/domain"
)

// QueryHistoryRepo implements domain.QueryHistoryRepository.
type QueryHistoryRepo struct {
	db *sql.DB
}

// NewQueryHistoryRepo creates a QueryHistoryRepo over the given pool.
func NewQueryHistoryRepo(db *sql.DB) *QueryHistoryRepo {
	return &QueryHistoryRepo{db: db}
}

var _ domain.QueryHistoryRepository = (*QueryHistoryRepo)(nil)

func (r *QueryHistoryRepo) Insert(ctx context.Context, e *domain.QueryHistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO query_history (id, principal, sql, rewritten_sql, status, execution_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Principal, e.SQL, e.RewrittenSQL, e.Status, e.ExecutionMS, e.Error)
	if err != nil {
		return mapDBError(err)
	}
	return nil
}

func (r *QueryHistoryRepo) List(ctx context.Context, principal string, limit int) ([]domain.QueryHistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, principal, sql, rewritten_sql, status, execution_ms, error, created_at
	          FROM query_history`
	args := []interface{}{}
	if principal != "" {
		query += ` WHERE principal = ?`
		args = append(args, principal)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.QueryHistoryEntry
	for rows.Next() {
		var e domain.QueryHistoryEntry
		if err := rows.Scan(&e.ID, &e.Principal, &e.SQL, &e.RewrittenSQL, &e.Status,
			&e.ExecutionMS, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
