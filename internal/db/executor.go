package db

import (
	"context"
	"database/sql"
	"strings"

	"sqlgate/internal/domain"
)

// SQLiteExecutor runs approved statements against the governed SQLite
// database. It implements domain.Executor.
type SQLiteExecutor struct {
	db *sql.DB
}

// NewSQLiteExecutor creates an executor over the given database.
func NewSQLiteExecutor(db *sql.DB) *SQLiteExecutor {
	return &SQLiteExecutor{db: db}
}

// Execute runs one statement. Row-returning statements are scanned into
// the result; everything else reports rows affected.
func (e *SQLiteExecutor) Execute(ctx context.Context, sqlText string) (*domain.QueryResult, error) {
	if returnsRows(sqlText) {
		return e.query(ctx, sqlText)
	}
	res, err := e.db.ExecContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	affected, _ := res.RowsAffected()
	return &domain.QueryResult{
		Columns: []string{"rows_affected"},
		Rows:    [][]interface{}{{affected}},
	}, nil
}

func (e *SQLiteExecutor) query(ctx context.Context, sqlText string) (*domain.QueryResult, error) {
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &domain.QueryResult{Columns: cols}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			// Return text instead of raw bytes so results JSON-encode cleanly.
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

func returnsRows(sqlText string) bool {
	head := strings.ToUpper(strings.TrimSpace(sqlText))
	return strings.HasPrefix(head, "SELECT") || strings.HasPrefix(head, "WITH")
}

var _ domain.Executor = (*SQLiteExecutor)(nil)
