package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"sqlgate/internal/domain"
)

// ExceptionRepo implements domain.ExceptionRepository.
type ExceptionRepo struct {
	db *sql.DB
}

// NewExceptionRepo creates an ExceptionRepo over the given pool.
func NewExceptionRepo(db *sql.DB) *ExceptionRepo {
	return &ExceptionRepo{db: db}
}

var _ domain.ExceptionRepository = (*ExceptionRepo)(nil)

const exceptionColumns = `id, subject_type, subject_id, resource_id, override_privilege, scope, purpose,
	start_time, end_time, approved_by, risk_level, status, created_at, updated_at`

func scanException(row interface{ Scan(...interface{}) error }) (*domain.PolicyException, error) {
	var e domain.PolicyException
	var resID, approvedBy sql.NullString
	if err := row.Scan(&e.ID, &e.SubjectType, &e.SubjectID, &resID, &e.OverridePrivilege, &e.Scope, &e.Purpose,
		&e.StartTime, &e.EndTime, &approvedBy, &e.RiskLevel, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.ResourceID = stringPtr(resID)
	e.ApprovedBy = stringPtr(approvedBy)
	return &e, nil
}

func (r *ExceptionRepo) Create(ctx context.Context, e *domain.PolicyException) (*domain.PolicyException, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO policy_exceptions (id, subject_type, subject_id, resource_id, override_privilege, scope,
		    purpose, start_time, end_time, risk_level, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.SubjectType), e.SubjectID, nullString(e.ResourceID), e.OverridePrivilege, string(e.Scope),
		e.Purpose, e.StartTime, e.EndTime, string(e.RiskLevel), string(e.Status))
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, e.ID)
}

func (r *ExceptionRepo) GetByID(ctx context.Context, id string) (*domain.PolicyException, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+exceptionColumns+` FROM policy_exceptions WHERE id = ?`, id)
	e, err := scanException(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return e, nil
}

func (r *ExceptionRepo) List(ctx context.Context, status domain.ExceptionStatus, subjectID string) ([]domain.PolicyException, error) {
	query := `SELECT ` + exceptionColumns + ` FROM policy_exceptions WHERE 1=1`
	args := []interface{}{}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	if subjectID != "" {
		query += ` AND subject_id = ?`
		args = append(args, subjectID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PolicyException
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *ExceptionRepo) SetStatus(ctx context.Context, id string, status domain.ExceptionStatus, approvedBy *string) error {
	var res sql.Result
	var err error
	if approvedBy != nil {
		res, err = r.db.ExecContext(ctx,
			`UPDATE policy_exceptions SET status = ?, approved_by = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			string(status), *approvedBy, id)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE policy_exceptions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			string(status), id)
	}
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("policy exception %s not found", id)
	}
	return nil
}

func (r *ExceptionRepo) ListApprovedForSubjects(ctx context.Context, subjectIDs []string) ([]domain.PolicyException, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + exceptionColumns + ` FROM policy_exceptions
		WHERE status = 'APPROVED' AND subject_id IN (` + placeholders(len(subjectIDs)) + `)`

	rows, err := r.db.QueryContext(ctx, query, toAnySlice(subjectIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PolicyException
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *ExceptionRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE policy_exceptions SET status = 'EXPIRED', updated_at = CURRENT_TIMESTAMP
		 WHERE status = 'APPROVED' AND end_time <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ExceptionRepo) InsertAudit(ctx context.Context, a *domain.ExceptionAudit) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO exception_audits (id, exception_id, user_id, action, resource, context) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.ExceptionID, a.UserID, a.Action, a.Resource, a.Context)
	return mapDBError(err)
}

func (r *ExceptionRepo) ListAudits(ctx context.Context, exceptionID string) ([]domain.ExceptionAudit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, exception_id, user_id, action, resource, context, created_at
		 FROM exception_audits WHERE exception_id = ? ORDER BY created_at`, exceptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ExceptionAudit
	for rows.Next() {
		var a domain.ExceptionAudit
		if err := rows.Scan(&a.ID, &a.ExceptionID, &a.UserID, &a.Action, &a.Resource, &a.Context, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
