package domain

import "time"

// Audit outcome values.
const (
	OutcomeAllowed = "ALLOWED"
	OutcomeDenied  = "DENIED"
	OutcomeBypass  = "BYPASS"
)

// Audit action values written by the decision engine. Administrative services
// write free-form CRUD actions (CREATE_ROLE, APPROVE_EXCEPTION, ...).
const (
	ActionQueryDecision    = "QUERY_DECISION"
	ActionAccessBypass     = "ACCESS_BYPASS"
	ActionMaskingAmbiguous = "MASKING_AMBIGUOUS"
)

// AuditEntry is one append-only audit record. OriginalSQL/RewrittenSQL are
// set only for query-path entries.
type AuditEntry struct {
	ID           string
	Principal    string
	Action       string
	Resource     string
	OriginalSQL  string
	RewrittenSQL string
	Outcome      string
	Detail       string
	CreatedAt    time.Time
}
