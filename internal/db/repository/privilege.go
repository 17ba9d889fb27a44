package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"sqlgate/internal/domain"
)

// PrivilegeRepo implements domain.PrivilegeRepository.
type PrivilegeRepo struct {
	db *sql.DB
}

// NewPrivilegeRepo creates a PrivilegeRepo over the given pool.
func NewPrivilegeRepo(db *sql.DB) *PrivilegeRepo {
	return &PrivilegeRepo{db: db}
}

var _ domain.PrivilegeRepository = (*PrivilegeRepo)(nil)

const privilegeTypeColumns = `id, code, category, description, created_at, updated_at`

func scanPrivilegeType(row interface{ Scan(...interface{}) error }) (*domain.PrivilegeType, error) {
	var p domain.PrivilegeType
	if err := row.Scan(&p.ID, &p.Code, &p.Category, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PrivilegeRepo) CreateType(ctx context.Context, p *domain.PrivilegeType) (*domain.PrivilegeType, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO privilege_types (id, code, category, description) VALUES (?, ?, ?, ?)`,
		p.ID, p.Code, string(p.Category), p.Description)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetTypeByID(ctx, p.ID)
}

func (r *PrivilegeRepo) GetTypeByID(ctx context.Context, id string) (*domain.PrivilegeType, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+privilegeTypeColumns+` FROM privilege_types WHERE id = ?`, id)
	p, err := scanPrivilegeType(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return p, nil
}

func (r *PrivilegeRepo) GetTypeByCode(ctx context.Context, code string) (*domain.PrivilegeType, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+privilegeTypeColumns+` FROM privilege_types WHERE code = ?`, code)
	p, err := scanPrivilegeType(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return p, nil
}

func (r *PrivilegeRepo) ListTypes(ctx context.Context, category domain.PrivilegeCategory) ([]domain.PrivilegeType, error) {
	query := `SELECT ` + privilegeTypeColumns + ` FROM privilege_types`
	args := []interface{}{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY category, code`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PrivilegeType
	for rows.Next() {
		p, err := scanPrivilegeType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PrivilegeRepo) UpdateType(ctx context.Context, p *domain.PrivilegeType) (*domain.PrivilegeType, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE privilege_types SET code = ?, category = ?, description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.Code, string(p.Category), p.Description, p.ID)
	if err != nil {
		return nil, mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("privilege type %s not found", p.ID)
	}
	return r.GetTypeByID(ctx, p.ID)
}

func (r *PrivilegeRepo) DeleteType(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM privilege_types WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("privilege type %s not found", id)
	}
	return nil
}

func (r *PrivilegeRepo) Assign(ctx context.Context, rp *domain.RolePrivilege) (*domain.RolePrivilege, error) {
	if rp.ID == "" {
		rp.ID = uuid.NewString()
	}
	if rp.ResourceType == "" {
		rp.ResourceType = domain.ResourceSystem
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role_privileges (id, role_id, privilege_type_id, resource_type, resource_id, condition_expr)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rp.ID, rp.RoleID, rp.PrivilegeTypeID, string(rp.ResourceType), nullString(rp.ResourceID), nullString(rp.ConditionExpr))
	if err != nil {
		return nil, mapDBError(err)
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT id, role_id, privilege_type_id, resource_type, resource_id, condition_expr, created_at
		 FROM role_privileges WHERE id = ?`, rp.ID)
	out := &domain.RolePrivilege{}
	var resID, cond sql.NullString
	if err := row.Scan(&out.ID, &out.RoleID, &out.PrivilegeTypeID, &out.ResourceType, &resID, &cond, &out.CreatedAt); err != nil {
		return nil, mapDBError(err)
	}
	out.ResourceID = stringPtr(resID)
	out.ConditionExpr = stringPtr(cond)
	return out, nil
}

func (r *PrivilegeRepo) Revoke(ctx context.Context, bindingID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM role_privileges WHERE id = ?`, bindingID)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("role privilege %s not found", bindingID)
	}
	return nil
}

const bindingDetailQuery = `
SELECT rp.id, rp.role_id, rp.privilege_type_id, rp.resource_type, rp.resource_id, rp.condition_expr, rp.created_at,
       r.name, pt.code, pt.category
FROM role_privileges rp
JOIN roles r ON r.id = rp.role_id
JOIN privilege_types pt ON pt.id = rp.privilege_type_id`

func scanBindingDetail(rows *sql.Rows) (*domain.RolePrivilegeDetail, error) {
	var d domain.RolePrivilegeDetail
	var resID, cond sql.NullString
	if err := rows.Scan(&d.ID, &d.RoleID, &d.PrivilegeTypeID, &d.ResourceType, &resID, &cond, &d.CreatedAt,
		&d.RoleName, &d.PrivilegeCode, &d.PrivilegeCategory); err != nil {
		return nil, err
	}
	d.ResourceID = stringPtr(resID)
	d.ConditionExpr = stringPtr(cond)
	return &d, nil
}

func (r *PrivilegeRepo) ListBindings(ctx context.Context, f domain.BindingFilter) ([]domain.RolePrivilegeDetail, error) {
	var conds []string
	var args []interface{}
	if f.RoleID != "" {
		conds = append(conds, `rp.role_id = ?`)
		args = append(args, f.RoleID)
	}
	if f.ResourceType != "" {
		conds = append(conds, `rp.resource_type = ?`)
		args = append(args, string(f.ResourceType))
	}
	if f.ResourceID != "" {
		conds = append(conds, `rp.resource_id = ?`)
		args = append(args, f.ResourceID)
	}

	query := bindingDetailQuery
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY r.name, pt.code`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RolePrivilegeDetail
	for rows.Next() {
		d, err := scanBindingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *PrivilegeRepo) ListBindingsForRoles(ctx context.Context, roleIDs []string) ([]domain.RolePrivilegeDetail, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	query := bindingDetailQuery + ` WHERE rp.role_id IN (` + placeholders(len(roleIDs)) + `) ORDER BY r.name, pt.code`

	rows, err := r.db.QueryContext(ctx, query, toAnySlice(roleIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RolePrivilegeDetail
	for rows.Next() {
		d, err := scanBindingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
