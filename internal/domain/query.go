package domain

import "time"

// QueryResult is what the execution collaborator returns for a statement.
type QueryResult struct {
	Columns []string
	Rows    [][]interface{}
}

// QueryHistoryEntry records one execution attempt, successful or not.
type QueryHistoryEntry struct {
	ID           string
	Principal    string
	SQL          string
	RewrittenSQL string
	Status       string
	ExecutionMS  int64
	Error        string
	CreatedAt    time.Time
}

// Query history statuses.
const (
	QuerySucceeded = "SUCCESS"
	QueryFailed    = "FAILED"
	QueryDenied    = "DENIED"
)
