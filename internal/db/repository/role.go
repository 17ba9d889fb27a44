package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"sqlgate/internal/domain"
)

// RoleRepo implements domain.RoleRepository.
type RoleRepo struct {
	db *sql.DB
}

// NewRoleRepo creates a RoleRepo over the given pool.
func NewRoleRepo(db *sql.DB) *RoleRepo {
	return &RoleRepo{db: db}
}

var _ domain.RoleRepository = (*RoleRepo)(nil)

const roleColumns = `id, name, description, parent_id, classification, created_at, updated_at`

func scanRole(row interface{ Scan(...interface{}) error }) (*domain.Role, error) {
	var r domain.Role
	var parent sql.NullString
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &parent, &r.Classification, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ParentID = stringPtr(parent)
	return &r, nil
}

func (r *RoleRepo) Create(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	if role.Classification == "" {
		role.Classification = domain.RoleCustom
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, description, parent_id, classification) VALUES (?, ?, ?, ?, ?)`,
		role.ID, role.Name, role.Description, nullString(role.ParentID), string(role.Classification))
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, role.ID)
}

func (r *RoleRepo) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = ?`, id)
	role, err := scanRole(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return role, nil
}

func (r *RoleRepo) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = ?`, name)
	role, err := scanRole(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return role, nil
}

func (r *RoleRepo) List(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, rows.Err()
}

func (r *RoleRepo) Update(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE roles SET name = ?, description = ?, parent_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		role.Name, role.Description, nullString(role.ParentID), role.ID)
	if err != nil {
		return nil, mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("role %s not found", role.ID)
	}
	return r.GetByID(ctx, role.ID)
}

func (r *RoleRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("role %s not found", id)
	}
	return nil
}

func (r *RoleRepo) ListAssignmentsForUser(ctx context.Context, userID string) ([]domain.UserRole, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, role_id, valid_from, valid_until, created_at FROM user_roles WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserRole
	for rows.Next() {
		var ur domain.UserRole
		var from, until sql.NullTime
		if err := rows.Scan(&ur.UserID, &ur.RoleID, &from, &until, &ur.CreatedAt); err != nil {
			return nil, err
		}
		ur.ValidFrom = timePtr(from)
		ur.ValidUntil = timePtr(until)
		out = append(out, ur)
	}
	return out, rows.Err()
}

func (r *RoleRepo) UpsertAssignment(ctx context.Context, ur domain.UserRole) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id, valid_from, valid_until) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, role_id) DO UPDATE SET valid_from = excluded.valid_from, valid_until = excluded.valid_until`,
		ur.UserID, ur.RoleID, nullTime(ur.ValidFrom), nullTime(ur.ValidUntil))
	return mapDBError(err)
}

func (r *RoleRepo) DeleteAssignment(ctx context.Context, userID, roleID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ? AND role_id = ?`, userID, roleID)
	return mapDBError(err)
}
