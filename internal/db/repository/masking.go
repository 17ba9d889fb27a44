package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"sqlgate/internal/domain"
)

// MaskingRuleRepo implements domain.MaskingRuleRepository.
type MaskingRuleRepo struct {
	db *sql.DB
}

// NewMaskingRuleRepo creates a MaskingRuleRepo over the given pool.
func NewMaskingRuleRepo(db *sql.DB) *MaskingRuleRepo {
	return &MaskingRuleRepo{db: db}
}

var _ domain.MaskingRuleRepository = (*MaskingRuleRepo)(nil)

const maskingRuleColumns = `id, name, description, schema_name, table_name, column_name, role_id, kind,
	prefix_len, suffix_len, mask_token, pattern, replacement, enabled, priority, created_at, updated_at`

func scanMaskingRule(row interface{ Scan(...interface{}) error }) (*domain.MaskingRule, error) {
	var m domain.MaskingRule
	var roleID sql.NullString
	var enabled int64
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Schema, &m.Table, &m.Column, &roleID, &m.Kind,
		&m.Params.PrefixLen, &m.Params.SuffixLen, &m.Params.MaskToken, &m.Params.Pattern, &m.Params.Replacement,
		&enabled, &m.Priority, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.RoleID = stringPtr(roleID)
	m.Enabled = enabled != 0
	return &m, nil
}

func (r *MaskingRuleRepo) Create(ctx context.Context, m *domain.MaskingRule) (*domain.MaskingRule, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Schema == "" {
		m.Schema = "public"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO masking_rules (id, name, description, schema_name, table_name, column_name, role_id, kind,
		    prefix_len, suffix_len, mask_token, pattern, replacement, enabled, priority)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Description, m.Schema, m.Table, m.Column, nullString(m.RoleID), string(m.Kind),
		m.Params.PrefixLen, m.Params.SuffixLen, m.Params.MaskToken, m.Params.Pattern, m.Params.Replacement,
		boolToInt(m.Enabled), m.Priority)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, m.ID)
}

func (r *MaskingRuleRepo) GetByID(ctx context.Context, id string) (*domain.MaskingRule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+maskingRuleColumns+` FROM masking_rules WHERE id = ?`, id)
	m, err := scanMaskingRule(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return m, nil
}

func (r *MaskingRuleRepo) List(ctx context.Context, table string) ([]domain.MaskingRule, error) {
	query := `SELECT ` + maskingRuleColumns + ` FROM masking_rules`
	args := []interface{}{}
	if table != "" {
		query += ` WHERE table_name = ? COLLATE NOCASE`
		args = append(args, table)
	}
	query += ` ORDER BY priority DESC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MaskingRule
	for rows.Next() {
		m, err := scanMaskingRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *MaskingRuleRepo) Update(ctx context.Context, m *domain.MaskingRule) (*domain.MaskingRule, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE masking_rules SET name = ?, description = ?, schema_name = ?, table_name = ?, column_name = ?,
		    role_id = ?, kind = ?, prefix_len = ?, suffix_len = ?, mask_token = ?, pattern = ?, replacement = ?,
		    enabled = ?, priority = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		m.Name, m.Description, m.Schema, m.Table, m.Column,
		nullString(m.RoleID), string(m.Kind), m.Params.PrefixLen, m.Params.SuffixLen, m.Params.MaskToken,
		m.Params.Pattern, m.Params.Replacement, boolToInt(m.Enabled), m.Priority, m.ID)
	if err != nil {
		return nil, mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("masking rule %s not found", m.ID)
	}
	return r.GetByID(ctx, m.ID)
}

func (r *MaskingRuleRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM masking_rules WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("masking rule %s not found", id)
	}
	return nil
}

func (r *MaskingRuleRepo) ListActiveForRoles(ctx context.Context, roleIDs []string) ([]domain.MaskingRule, error) {
	query := `SELECT ` + maskingRuleColumns + ` FROM masking_rules WHERE enabled = 1 AND (role_id IS NULL`
	args := []interface{}{}
	if len(roleIDs) > 0 {
		query += ` OR role_id IN (` + placeholders(len(roleIDs)) + `)`
		args = append(args, toAnySlice(roleIDs)...)
	}
	query += `) ORDER BY priority DESC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MaskingRule
	for rows.Next() {
		m, err := scanMaskingRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
