package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"sqlgate/internal/domain"
)

// AccessRequestRepo implements domain.AccessRequestRepository.
type AccessRequestRepo struct {
	db *sql.DB
}

// NewAccessRequestRepo creates an AccessRequestRepo over the given pool.
func NewAccessRequestRepo(db *sql.DB) *AccessRequestRepo {
	return &AccessRequestRepo{db: db}
}

var _ domain.AccessRequestRepository = (*AccessRequestRepo)(nil)

const accessRequestColumns = `id, user_id, role_id, status, request_reason, valid_from, valid_until,
	reviewer_id, reviewed_at, rejection_reason, created_at, updated_at`

func scanAccessRequest(row interface{ Scan(...interface{}) error }) (*domain.AccessRequest, error) {
	var ar domain.AccessRequest
	var from, until, reviewedAt sql.NullTime
	var reviewer, rejection sql.NullString
	if err := row.Scan(&ar.ID, &ar.UserID, &ar.RoleID, &ar.Status, &ar.RequestReason, &from, &until,
		&reviewer, &reviewedAt, &rejection, &ar.CreatedAt, &ar.UpdatedAt); err != nil {
		return nil, err
	}
	ar.ValidFrom = timePtr(from)
	ar.ValidUntil = timePtr(until)
	ar.ReviewerID = stringPtr(reviewer)
	ar.ReviewedAt = timePtr(reviewedAt)
	ar.RejectionReason = stringPtr(rejection)
	return &ar, nil
}

func (r *AccessRequestRepo) Create(ctx context.Context, ar *domain.AccessRequest) (*domain.AccessRequest, error) {
	if ar.ID == "" {
		ar.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_requests (id, user_id, role_id, status, request_reason, valid_from, valid_until)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ar.ID, ar.UserID, ar.RoleID, string(ar.Status), ar.RequestReason, nullTime(ar.ValidFrom), nullTime(ar.ValidUntil))
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, ar.ID)
}

func (r *AccessRequestRepo) GetByID(ctx context.Context, id string) (*domain.AccessRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accessRequestColumns+` FROM access_requests WHERE id = ?`, id)
	ar, err := scanAccessRequest(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return ar, nil
}

func (r *AccessRequestRepo) List(ctx context.Context, userID string, status domain.RequestStatus) ([]domain.AccessRequestDetail, error) {
	query := `SELECT ar.id, ar.user_id, ar.role_id, ar.status, ar.request_reason, ar.valid_from, ar.valid_until,
	       ar.reviewer_id, ar.reviewed_at, ar.rejection_reason, ar.created_at, ar.updated_at, u.username, r.name
	FROM access_requests ar
	JOIN users u ON u.id = ar.user_id
	JOIN roles r ON r.id = ar.role_id
	WHERE 1=1`
	args := []interface{}{}
	if userID != "" {
		query += ` AND ar.user_id = ?`
		args = append(args, userID)
	}
	if status != "" {
		query += ` AND ar.status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY ar.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AccessRequestDetail
	for rows.Next() {
		var d domain.AccessRequestDetail
		var from, until, reviewedAt sql.NullTime
		var reviewer, rejection sql.NullString
		if err := rows.Scan(&d.ID, &d.UserID, &d.RoleID, &d.Status, &d.RequestReason, &from, &until,
			&reviewer, &reviewedAt, &rejection, &d.CreatedAt, &d.UpdatedAt, &d.Username, &d.RoleName); err != nil {
			return nil, err
		}
		d.ValidFrom = timePtr(from)
		d.ValidUntil = timePtr(until)
		d.ReviewerID = stringPtr(reviewer)
		d.ReviewedAt = timePtr(reviewedAt)
		d.RejectionReason = stringPtr(rejection)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *AccessRequestRepo) Update(ctx context.Context, ar *domain.AccessRequest) (*domain.AccessRequest, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE access_requests SET status = ?, reviewer_id = ?, reviewed_at = ?, rejection_reason = ?,
		    updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		string(ar.Status), nullString(ar.ReviewerID), nullTime(ar.ReviewedAt), nullString(ar.RejectionReason), ar.ID)
	if err != nil {
		return nil, mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("access request %s not found", ar.ID)
	}
	return r.GetByID(ctx, ar.ID)
}

func (r *AccessRequestRepo) PendingExists(ctx context.Context, userID, roleID string) (bool, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM access_requests WHERE user_id = ? AND role_id = ? AND status = 'PENDING'`,
		userID, roleID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *AccessRequestRepo) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM access_requests WHERE status = 'PENDING'`).Scan(&n)
	return n, err
}
