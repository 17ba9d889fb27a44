package domain

import "time"

// MaskKind selects the masking transformation applied to a column's
// projected value. The rewriter matches it exhaustively; anything it does not
// recognize degrades to full redaction, never to passthrough.
type MaskKind string

// Masking kinds.
const (
	MaskFull    MaskKind = "FULL"
	MaskPartial MaskKind = "PARTIAL"
	MaskHash    MaskKind = "HASH"
	MaskEmail   MaskKind = "EMAIL"
	MaskNull    MaskKind = "NULL"
	MaskRegex   MaskKind = "REGEX"
	MaskCustom  MaskKind = "CUSTOM"
)

// Valid reports whether the kind is a known value.
func (k MaskKind) Valid() bool {
	switch k {
	case MaskFull, MaskPartial, MaskHash, MaskEmail, MaskNull, MaskRegex, MaskCustom:
		return true
	}
	return false
}

// MaskParams carries kind-specific configuration. PrefixLen/SuffixLen and
// MaskToken apply to PARTIAL; Pattern and Replacement apply to REGEX.
type MaskParams struct {
	PrefixLen   int
	SuffixLen   int
	MaskToken   string
	Pattern     string
	Replacement string
}

// MaskingRule configures masking for a (schema, table, column) target.
// RoleID nil means the rule applies to every role; otherwise it applies only
// to principals whose resolved role set contains the role. Higher Priority
// wins within a scope bucket; a role-scoped match always beats a global one.
type MaskingRule struct {
	ID          string
	Name        string
	Description string
	Schema      string
	Table       string
	Column      string
	RoleID      *string
	Kind        MaskKind
	Params      MaskParams
	Enabled     bool
	Priority    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoleScoped reports whether the rule is restricted to a specific role.
func (r MaskingRule) RoleScoped() bool { return r.RoleID != nil }
