// Package sqlrewrite parses SQL statements and rewrites SELECT projection
// lists to apply column masking expressions.
//
// Only projections are touched. Predicates, joins, grouping, and DML targets
// pass through untouched so a rewrite can never change which rows a query
// sees, only how sensitive columns are rendered.
package sqlrewrite

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParseError wraps a parser failure. Callers distinguish it from other
// rewrite errors because the recovery differs: unparseable input falls back
// to the original statement and is audited as a policy bypass.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse SQL: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// StatementType represents the kind of SQL statement.
type StatementType int

// SQL statement types identified during query classification.
const (
	StmtSelect StatementType = iota
	StmtInsert
	StmtUpdate
	StmtDelete
	StmtDDL
	StmtOther
)

func (t StatementType) String() string {
	switch t {
	case StmtSelect:
		return "SELECT"
	case StmtInsert:
		return "INSERT"
	case StmtUpdate:
		return "UPDATE"
	case StmtDelete:
		return "DELETE"
	case StmtDDL:
		return "DDL"
	default:
		return "OTHER"
	}
}

// Classify parses the SQL and returns the statement type. It rejects
// multi-statement input to prevent piggy-backed SQL injection
// (e.g., "SELECT 1; DROP TABLE foo").
func Classify(sqlStr string) (StatementType, error) {
	result, err := pg_query.Parse(sqlStr)
	if err != nil {
		return StmtOther, &ParseError{Err: err}
	}
	if len(result.Stmts) != 1 {
		return StmtOther, fmt.Errorf("expected a single statement, got %d", len(result.Stmts))
	}

	switch result.Stmts[0].Stmt.Node.(type) {
	case *pg_query.Node_SelectStmt:
		if name, found := containsDangerousFunction(result.Stmts[0].Stmt); found {
			return StmtOther, fmt.Errorf("prohibited function: %s", name)
		}
		return StmtSelect, nil
	case *pg_query.Node_InsertStmt:
		return StmtInsert, nil
	case *pg_query.Node_UpdateStmt:
		return StmtUpdate, nil
	case *pg_query.Node_DeleteStmt:
		return StmtDelete, nil
	case *pg_query.Node_CreateStmt, *pg_query.Node_DropStmt, *pg_query.Node_AlterTableStmt,
		*pg_query.Node_TruncateStmt, *pg_query.Node_IndexStmt, *pg_query.Node_ViewStmt:
		return StmtDDL, nil
	default:
		return StmtOther, nil
	}
}

// CollectTables parses a SQL statement and returns the deduplicated list of
// table names (lowercased) referenced in FROM clauses, JOINs, subqueries,
// CTEs, and DML targets. CTE names are excluded since they are not real
// relations.
func CollectTables(sqlStr string) ([]string, error) {
	result, err := pg_query.Parse(sqlStr)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	seen := map[string]bool{}
	cteNames := map[string]bool{}
	var tables []string
	for _, stmt := range result.Stmts {
		collectTablesFromNode(stmt.Stmt, seen, cteNames, &tables)
	}

	filtered := tables[:0]
	for _, t := range tables {
		if !cteNames[t] {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

func collectTablesFromNode(node *pg_query.Node, seen, cteNames map[string]bool, tables *[]string) {
	if node == nil {
		return
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		collectTablesFromSelect(n.SelectStmt, seen, cteNames, tables)
	case *pg_query.Node_InsertStmt:
		if n.InsertStmt.Relation != nil {
			addTable(n.InsertStmt.Relation.Relname, seen, tables)
		}
		collectTablesFromNode(n.InsertStmt.SelectStmt, seen, cteNames, tables)
	case *pg_query.Node_UpdateStmt:
		if n.UpdateStmt.Relation != nil {
			addTable(n.UpdateStmt.Relation.Relname, seen, tables)
		}
		for _, from := range n.UpdateStmt.FromClause {
			collectTablesFromFrom(from, seen, cteNames, tables)
		}
	case *pg_query.Node_DeleteStmt:
		if n.DeleteStmt.Relation != nil {
			addTable(n.DeleteStmt.Relation.Relname, seen, tables)
		}
	}
}

func collectTablesFromSelect(sel *pg_query.SelectStmt, seen, cteNames map[string]bool, tables *[]string) {
	if sel == nil {
		return
	}
	collectTablesFromSelect(sel.Larg, seen, cteNames, tables)
	collectTablesFromSelect(sel.Rarg, seen, cteNames, tables)

	if sel.WithClause != nil {
		for _, cte := range sel.WithClause.Ctes {
			if c, ok := cte.Node.(*pg_query.Node_CommonTableExpr); ok {
				cteNames[strings.ToLower(c.CommonTableExpr.Ctename)] = true
				collectTablesFromNode(c.CommonTableExpr.Ctequery, seen, cteNames, tables)
			}
		}
	}
	for _, from := range sel.FromClause {
		collectTablesFromFrom(from, seen, cteNames, tables)
	}
	collectTablesFromExpr(sel.WhereClause, seen, cteNames, tables)
	collectTablesFromExpr(sel.HavingClause, seen, cteNames, tables)
	for _, target := range sel.TargetList {
		collectTablesFromExpr(target, seen, cteNames, tables)
	}
}

func collectTablesFromFrom(node *pg_query.Node, seen, cteNames map[string]bool, tables *[]string) {
	if node == nil {
		return
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_RangeVar:
		addTable(n.RangeVar.Relname, seen, tables)
	case *pg_query.Node_JoinExpr:
		collectTablesFromFrom(n.JoinExpr.Larg, seen, cteNames, tables)
		collectTablesFromFrom(n.JoinExpr.Rarg, seen, cteNames, tables)
	case *pg_query.Node_RangeSubselect:
		collectTablesFromNode(n.RangeSubselect.Subquery, seen, cteNames, tables)
	case *pg_query.Node_RangeFunction:
		// table-valued functions are not relations
	}
}

func collectTablesFromExpr(node *pg_query.Node, seen, cteNames map[string]bool, tables *[]string) {
	if node == nil {
		return
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_SubLink:
		collectTablesFromNode(n.SubLink.Subselect, seen, cteNames, tables)
	case *pg_query.Node_BoolExpr:
		for _, arg := range n.BoolExpr.Args {
			collectTablesFromExpr(arg, seen, cteNames, tables)
		}
	case *pg_query.Node_AExpr:
		collectTablesFromExpr(n.AExpr.Lexpr, seen, cteNames, tables)
		collectTablesFromExpr(n.AExpr.Rexpr, seen, cteNames, tables)
	case *pg_query.Node_ResTarget:
		collectTablesFromExpr(n.ResTarget.Val, seen, cteNames, tables)
	}
}

func addTable(name string, seen map[string]bool, tables *[]string) {
	name = strings.ToLower(name)
	if name == "" || seen[name] {
		return
	}
	seen[name] = true
	*tables = append(*tables, name)
}

// containsDangerousFunction walks the parse tree looking for function calls
// that can read the server filesystem or escape the query sandbox.
func containsDangerousFunction(node *pg_query.Node) (string, bool) {
	if node == nil {
		return "", false
	}
	if fc, ok := node.Node.(*pg_query.Node_FuncCall); ok {
		if len(fc.FuncCall.Funcname) > 0 {
			last := fc.FuncCall.Funcname[len(fc.FuncCall.Funcname)-1]
			if s, ok := last.Node.(*pg_query.Node_String_); ok {
				if dangerousFunctions[strings.ToLower(s.String_.Sval)] {
					return s.String_.Sval, true
				}
			}
		}
		for _, arg := range fc.FuncCall.Args {
			if name, found := containsDangerousFunction(arg); found {
				return name, true
			}
		}
		return "", false
	}

	for _, child := range childNodes(node) {
		if name, found := containsDangerousFunction(child); found {
			return name, true
		}
	}
	return "", false
}

// childNodes returns the direct child nodes relevant for function scanning.
func childNodes(node *pg_query.Node) []*pg_query.Node {
	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		sel := n.SelectStmt
		var out []*pg_query.Node
		out = append(out, sel.TargetList...)
		out = append(out, sel.FromClause...)
		out = append(out, sel.WhereClause, sel.HavingClause)
		if sel.Larg != nil {
			out = append(out, &pg_query.Node{Node: &pg_query.Node_SelectStmt{SelectStmt: sel.Larg}})
		}
		if sel.Rarg != nil {
			out = append(out, &pg_query.Node{Node: &pg_query.Node_SelectStmt{SelectStmt: sel.Rarg}})
		}
		if sel.WithClause != nil {
			out = append(out, sel.WithClause.Ctes...)
		}
		return out
	case *pg_query.Node_CommonTableExpr:
		return []*pg_query.Node{n.CommonTableExpr.Ctequery}
	case *pg_query.Node_ResTarget:
		return []*pg_query.Node{n.ResTarget.Val}
	case *pg_query.Node_RangeSubselect:
		return []*pg_query.Node{n.RangeSubselect.Subquery}
	case *pg_query.Node_JoinExpr:
		return []*pg_query.Node{n.JoinExpr.Larg, n.JoinExpr.Rarg, n.JoinExpr.Quals}
	case *pg_query.Node_BoolExpr:
		return n.BoolExpr.Args
	case *pg_query.Node_AExpr:
		return []*pg_query.Node{n.AExpr.Lexpr, n.AExpr.Rexpr}
	case *pg_query.Node_TypeCast:
		return []*pg_query.Node{n.TypeCast.Arg}
	case *pg_query.Node_SubLink:
		return []*pg_query.Node{n.SubLink.Subselect}
	case *pg_query.Node_CaseExpr:
		out := append([]*pg_query.Node{}, n.CaseExpr.Args...)
		return append(out, n.CaseExpr.Arg, n.CaseExpr.Defresult)
	case *pg_query.Node_CaseWhen:
		return []*pg_query.Node{n.CaseWhen.Expr, n.CaseWhen.Result}
	case *pg_query.Node_CoalesceExpr:
		return n.CoalesceExpr.Args
	}
	return nil
}

// dangerousFunctions is the blocklist of functions that can read the server
// filesystem, move data out of band, or stall the executor.
var dangerousFunctions = map[string]bool{
	"pg_read_file":        true,
	"pg_read_binary_file": true,
	"pg_ls_dir":           true,
	"pg_stat_file":        true,
	"lo_import":           true,
	"lo_export":           true,
	"dblink":              true,
	"dblink_exec":         true,
	"pg_sleep":            true,
}
