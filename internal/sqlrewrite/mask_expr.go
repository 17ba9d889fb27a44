package sqlrewrite

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"sqlgate/internal/domain"
)

// RedactedToken is the literal emitted for full redaction and for any mask
// kind the rewriter does not recognize.
const RedactedToken = "*****"

// defaultMaskToken fills the middle of a partial mask when the rule carries
// no token of its own.
const defaultMaskToken = "******"

// MaskExpr builds the replacement expression for a masked column. col is the
// original column reference node; kinds that preserve part of the value
// embed it in the generated expression. Unrecognized kinds degrade to full
// redaction, never to passthrough.
func MaskExpr(rule domain.MaskingRule, col *pg_query.Node) *pg_query.Node {
	switch rule.Kind {
	case domain.MaskFull:
		return makeStringConst(RedactedToken)

	case domain.MaskPartial:
		token := rule.Params.MaskToken
		if token == "" {
			token = defaultMaskToken
		}
		return makeFuncCall("concat",
			makeFuncCall("left", col, makeIntConst(int32(rule.Params.PrefixLen))),
			makeStringConst(token),
			makeFuncCall("right", col, makeIntConst(int32(rule.Params.SuffixLen))),
		)

	case domain.MaskEmail:
		return makeFuncCall("concat",
			makeStringConst("***@"),
			makeFuncCall("split_part", col, makeStringConst("@"), makeIntConst(2)),
		)

	case domain.MaskHash:
		return makeFuncCall("md5", makeTextCast(col))

	case domain.MaskNull:
		return makeNullConst()

	case domain.MaskRegex:
		pattern := rule.Params.Pattern
		if pattern == "" {
			pattern = ".*"
		}
		replacement := rule.Params.Replacement
		if replacement == "" {
			replacement = RedactedToken
		}
		return makeFuncCall("regexp_replace", col, makeStringConst(pattern), makeStringConst(replacement))

	default:
		return makeStringConst(RedactedToken)
	}
}

func makeFuncCall(name string, args ...*pg_query.Node) *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_FuncCall{
			FuncCall: &pg_query.FuncCall{
				Funcname: []*pg_query.Node{makeStringNode(name)},
				Args:     args,
			},
		},
	}
}

func makeTextCast(arg *pg_query.Node) *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_TypeCast{
			TypeCast: &pg_query.TypeCast{
				Arg: arg,
				TypeName: &pg_query.TypeName{
					Names: []*pg_query.Node{makeStringNode("text")},
				},
			},
		},
	}
}

// makeColumnRef creates a ColumnRef node, qualified when qualifier is
// non-empty.
func makeColumnRef(qualifier, column string) *pg_query.Node {
	var fields []*pg_query.Node
	if qualifier != "" {
		fields = append(fields, makeStringNode(qualifier))
	}
	fields = append(fields, makeStringNode(column))
	return &pg_query.Node{
		Node: &pg_query.Node_ColumnRef{
			ColumnRef: &pg_query.ColumnRef{Fields: fields},
		},
	}
}

func makeStringNode(s string) *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_String_{
			String_: &pg_query.String{Sval: s},
		},
	}
}

func makeStringConst(v string) *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_AConst{
			AConst: &pg_query.A_Const{
				Val: &pg_query.A_Const_Sval{
					Sval: &pg_query.String{Sval: v},
				},
			},
		},
	}
}

func makeIntConst(v int32) *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_AConst{
			AConst: &pg_query.A_Const{
				Val: &pg_query.A_Const_Ival{
					Ival: &pg_query.Integer{Ival: v},
				},
			},
		},
	}
}

func makeNullConst() *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_AConst{
			AConst: &pg_query.A_Const{Isnull: true},
		},
	}
}
