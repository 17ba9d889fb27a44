package sqlrewrite

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ColumnRef is a projection column reference resolved against the FROM
// clause of its enclosing SELECT. Table is the resolved relation name
// (lowercased) when the reference is qualified, empty otherwise. Candidates
// lists the relations in scope for an unqualified reference.
type ColumnRef struct {
	Table      string
	Column     string
	Candidates []string
}

// MaskFor decides whether a resolved column reference must be masked and, if
// so, returns a freshly built replacement expression. col is the original
// reference node; mask kinds that preserve part of the value embed it in the
// returned expression. Implementations must return a new node on every call;
// returned nodes are spliced into the tree.
type MaskFor func(ref ColumnRef, col *pg_query.Node) (*pg_query.Node, bool)

// Result is the outcome of a projection rewrite.
type Result struct {
	SQL       string
	Rewritten bool
}

// RewriteProjections parses sqlStr, walks the projection list of every
// SELECT (including UNION arms, CTE bodies, and FROM subqueries), and
// substitutes masked column references with the expressions produced by
// mask. tableColumns provides per-table column metadata (lowercased table
// name to column list) used to expand SELECT * before masking; a star over a
// table with no metadata is left untouched.
//
// When no reference is masked the original string is returned verbatim.
// Unparseable input yields a ParseError; callers fall back to the original
// statement and audit the bypass.
func RewriteProjections(sqlStr string, mask MaskFor, tableColumns map[string][]string) (Result, error) {
	res := Result{SQL: sqlStr}

	parsed, err := pg_query.Parse(sqlStr)
	if err != nil {
		return res, &ParseError{Err: err}
	}

	rw := &rewriter{mask: mask, tableColumns: tableColumns}
	for _, stmt := range parsed.Stmts {
		if n, ok := stmt.Stmt.Node.(*pg_query.Node_SelectStmt); ok {
			rw.rewriteSelect(n.SelectStmt)
		}
	}
	if !rw.changed {
		return res, nil
	}

	out, err := pg_query.Deparse(parsed)
	if err != nil {
		return res, fmt.Errorf("deparse SQL: %w", err)
	}
	res.SQL = out
	res.Rewritten = true
	return res, nil
}

type rewriter struct {
	mask         MaskFor
	tableColumns map[string][]string
	changed      bool
}

// scope maps the aliases visible inside one SELECT to their relation names.
type scope struct {
	aliases map[string]string
	tables  []string
}

func (s scope) resolve(qualifier string) string {
	return s.aliases[strings.ToLower(qualifier)]
}

func buildScope(fromClause []*pg_query.Node) scope {
	sc := scope{aliases: map[string]string{}}
	var walk func(node *pg_query.Node)
	walk = func(node *pg_query.Node) {
		if node == nil {
			return
		}
		switch n := node.Node.(type) {
		case *pg_query.Node_RangeVar:
			rel := strings.ToLower(n.RangeVar.Relname)
			alias := rel
			if n.RangeVar.Alias != nil && n.RangeVar.Alias.Aliasname != "" {
				alias = strings.ToLower(n.RangeVar.Alias.Aliasname)
			}
			sc.aliases[alias] = rel
			sc.tables = append(sc.tables, rel)
		case *pg_query.Node_JoinExpr:
			walk(n.JoinExpr.Larg)
			walk(n.JoinExpr.Rarg)
		case *pg_query.Node_RangeSubselect:
			// A subselect alias hides a derived relation; its projections are
			// rewritten when the subquery itself is visited.
		}
	}
	for _, from := range fromClause {
		walk(from)
	}
	return sc
}

func (rw *rewriter) rewriteSelect(sel *pg_query.SelectStmt) {
	if sel == nil {
		return
	}

	// Set-operation arms and CTE bodies carry their own projections.
	rw.rewriteSelect(sel.Larg)
	rw.rewriteSelect(sel.Rarg)
	if sel.WithClause != nil {
		for _, cte := range sel.WithClause.Ctes {
			if c, ok := cte.Node.(*pg_query.Node_CommonTableExpr); ok {
				rw.rewriteNode(c.CommonTableExpr.Ctequery)
			}
		}
	}
	for _, from := range sel.FromClause {
		rw.rewriteFromNode(from)
	}

	if len(sel.TargetList) == 0 {
		return
	}

	sc := buildScope(sel.FromClause)
	rw.expandStars(sel, sc)

	for _, target := range sel.TargetList {
		rt, ok := target.Node.(*pg_query.Node_ResTarget)
		if !ok || rt.ResTarget.Val == nil {
			continue
		}

		// Keep the output column name stable when a bare column reference is
		// replaced by a mask expression.
		origName := columnName(rt.ResTarget.Val)

		newVal, changed := rw.substitute(rt.ResTarget.Val, sc)
		if !changed {
			continue
		}
		rt.ResTarget.Val = newVal
		if rt.ResTarget.Name == "" && origName != "" {
			rt.ResTarget.Name = origName
		}
	}
}

func (rw *rewriter) rewriteNode(node *pg_query.Node) {
	if node == nil {
		return
	}
	if n, ok := node.Node.(*pg_query.Node_SelectStmt); ok {
		rw.rewriteSelect(n.SelectStmt)
	}
}

func (rw *rewriter) rewriteFromNode(node *pg_query.Node) {
	if node == nil {
		return
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_RangeSubselect:
		rw.rewriteNode(n.RangeSubselect.Subquery)
	case *pg_query.Node_JoinExpr:
		rw.rewriteFromNode(n.JoinExpr.Larg)
		rw.rewriteFromNode(n.JoinExpr.Rarg)
	}
}

// expandStars replaces star targets with explicit column references when
// metadata for the underlying relation is available. Unexpandable stars pass
// through; their columns cannot be matched against masking rules.
func (rw *rewriter) expandStars(sel *pg_query.SelectStmt, sc scope) {
	var expanded []*pg_query.Node
	needed := false

	for _, target := range sel.TargetList {
		rt, ok := target.Node.(*pg_query.Node_ResTarget)
		if !ok {
			expanded = append(expanded, target)
			continue
		}
		qualifier, isStar := starQualifier(rt.ResTarget.Val)
		if !isStar {
			expanded = append(expanded, target)
			continue
		}

		var table string
		if qualifier != "" {
			table = sc.resolve(qualifier)
		} else if len(sc.tables) == 1 {
			table = sc.tables[0]
		}
		cols := rw.tableColumns[table]
		if table == "" || len(cols) == 0 {
			expanded = append(expanded, target)
			continue
		}

		needed = true
		for _, col := range cols {
			expanded = append(expanded, &pg_query.Node{
				Node: &pg_query.Node_ResTarget{
					ResTarget: &pg_query.ResTarget{
						Val: makeColumnRef(qualifier, col),
					},
				},
			})
		}
	}

	if needed {
		sel.TargetList = expanded
	}
}

// starQualifier reports whether the node is a star column reference and
// returns its table qualifier, if any.
func starQualifier(node *pg_query.Node) (string, bool) {
	if node == nil {
		return "", false
	}
	cr, ok := node.Node.(*pg_query.Node_ColumnRef)
	if !ok {
		return "", false
	}
	fields := cr.ColumnRef.Fields
	if len(fields) == 0 {
		return "", false
	}
	if _, isStar := fields[len(fields)-1].Node.(*pg_query.Node_AStar); !isStar {
		return "", false
	}
	if len(fields) >= 2 {
		if s, ok := fields[len(fields)-2].Node.(*pg_query.Node_String_); ok {
			return s.String_.Sval, true
		}
	}
	return "", true
}

// columnName extracts the bare column name from a plain ColumnRef node.
func columnName(node *pg_query.Node) string {
	cr, ok := node.Node.(*pg_query.Node_ColumnRef)
	if !ok {
		return ""
	}
	fields := cr.ColumnRef.Fields
	if len(fields) == 0 {
		return ""
	}
	if s, ok := fields[len(fields)-1].Node.(*pg_query.Node_String_); ok {
		return s.String_.Sval
	}
	return ""
}

// substitute walks a projection expression tree and replaces every masked
// column reference with its mask expression. Only expression shapes that can
// carry column references toward the output are visited.
func (rw *rewriter) substitute(node *pg_query.Node, sc scope) (*pg_query.Node, bool) {
	if node == nil {
		return nil, false
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_ColumnRef:
		ref, ok := resolveColumnRef(n.ColumnRef, sc)
		if !ok {
			return node, false
		}
		if expr, masked := rw.mask(ref, node); masked {
			rw.changed = true
			return expr, true
		}
		return node, false

	case *pg_query.Node_FuncCall:
		changed := false
		for i, arg := range n.FuncCall.Args {
			if newArg, c := rw.substitute(arg, sc); c {
				n.FuncCall.Args[i] = newArg
				changed = true
			}
		}
		return node, changed

	case *pg_query.Node_TypeCast:
		if newArg, c := rw.substitute(n.TypeCast.Arg, sc); c {
			n.TypeCast.Arg = newArg
			return node, true
		}
		return node, false

	case *pg_query.Node_AExpr:
		changed := false
		if newL, c := rw.substitute(n.AExpr.Lexpr, sc); c {
			n.AExpr.Lexpr = newL
			changed = true
		}
		if newR, c := rw.substitute(n.AExpr.Rexpr, sc); c {
			n.AExpr.Rexpr = newR
			changed = true
		}
		return node, changed

	case *pg_query.Node_BoolExpr:
		changed := false
		for i, arg := range n.BoolExpr.Args {
			if newArg, c := rw.substitute(arg, sc); c {
				n.BoolExpr.Args[i] = newArg
				changed = true
			}
		}
		return node, changed

	case *pg_query.Node_CaseExpr:
		changed := false
		if newArg, c := rw.substitute(n.CaseExpr.Arg, sc); c {
			n.CaseExpr.Arg = newArg
			changed = true
		}
		for i, when := range n.CaseExpr.Args {
			if newWhen, c := rw.substitute(when, sc); c {
				n.CaseExpr.Args[i] = newWhen
				changed = true
			}
		}
		if newDef, c := rw.substitute(n.CaseExpr.Defresult, sc); c {
			n.CaseExpr.Defresult = newDef
			changed = true
		}
		return node, changed

	case *pg_query.Node_CaseWhen:
		changed := false
		if newExpr, c := rw.substitute(n.CaseWhen.Expr, sc); c {
			n.CaseWhen.Expr = newExpr
			changed = true
		}
		if newRes, c := rw.substitute(n.CaseWhen.Result, sc); c {
			n.CaseWhen.Result = newRes
			changed = true
		}
		return node, changed

	case *pg_query.Node_CoalesceExpr:
		changed := false
		for i, arg := range n.CoalesceExpr.Args {
			if newArg, c := rw.substitute(arg, sc); c {
				n.CoalesceExpr.Args[i] = newArg
				changed = true
			}
		}
		return node, changed

	case *pg_query.Node_SubLink:
		// Scalar subqueries carry their own SELECT; visit it with its own
		// scope rather than the enclosing one.
		rw.rewriteNode(n.SubLink.Subselect)
		return node, false
	}

	return node, false
}

// resolveColumnRef turns a parsed ColumnRef into a resolved reference.
// Star references and qualifiers that do not resolve to a known relation
// (e.g. a subselect alias) are not maskable.
func resolveColumnRef(cr *pg_query.ColumnRef, sc scope) (ColumnRef, bool) {
	fields := cr.Fields
	if len(fields) == 0 {
		return ColumnRef{}, false
	}
	last, ok := fields[len(fields)-1].Node.(*pg_query.Node_String_)
	if !ok {
		return ColumnRef{}, false
	}

	ref := ColumnRef{Column: strings.ToLower(last.String_.Sval)}
	if len(fields) >= 2 {
		q, ok := fields[len(fields)-2].Node.(*pg_query.Node_String_)
		if !ok {
			return ColumnRef{}, false
		}
		ref.Table = sc.resolve(q.String_.Sval)
		if ref.Table == "" {
			return ColumnRef{}, false
		}
		return ref, true
	}
	ref.Candidates = sc.tables
	return ref, true
}
