package parse

import (
	"fmt"

	"github.com/xwb1989/sqlparser"

	"github.com/stratalab/strata/ast"
)

func convertQuery(sel *sqlparser.Select) (*ast.Query, error) {
	converted, err := convertSelect(sel)
	if err != nil {
		return nil, err
	}
	return &ast.Query{Select: converted}, nil
}

func convertSelect(sel *sqlparser.Select) (*ast.Select, error) {
	if len(sel.OrderBy) > 0 {
		return nil, fmt.Errorf("ORDER BY is not supported")
	}
	out := &ast.Select{Distinct: sel.Distinct != ""}

	from, relations, err := convertFrom(sel.From)
	if err != nil {
		return nil, err
	}
	out.From = from

	for _, se := range sel.SelectExprs {
		proj, err := convertSelectExpr(se, relations)
		if err != nil {
			return nil, err
		}
		out.Projection = append(out.Projection, proj)
	}
	if sel.Where != nil {
		if out.Where, err = convertExpr(sel.Where.Expr); err != nil {
			return nil, err
		}
	}
	for _, g := range sel.GroupBy {
		expr, err := convertExpr(g)
		if err != nil {
			return nil, err
		}
		out.GroupBy = append(out.GroupBy, expr)
	}
	if sel.Having != nil {
		if out.Having, err = convertExpr(sel.Having.Expr); err != nil {
			return nil, err
		}
	}
	if sel.Limit != nil {
		if sel.Limit.Offset != nil {
			return nil, fmt.Errorf("LIMIT with OFFSET is not supported")
		}
		count, err := convertExpr(sel.Limit.Rowcount)
		if err != nil {
			return nil, err
		}
		num, ok := count.(*ast.Number)
		if !ok {
			return nil, fmt.Errorf("LIMIT requires a numeric literal")
		}
		out.Limit = num
	}
	return out, nil
}

// convertFrom flattens the FROM clause into a primary relation plus joins.
// Comma-separated relations become cross joins. The grammar synthesizes a
// bare `FROM dual` for fragments with no source; that maps to an absent From.
// The returned map indexes relations by referenceable name for wildcard
// binding.
func convertFrom(exprs sqlparser.TableExprs) (*ast.From, map[string]ast.Node, error) {
	var primary ast.Node
	var joins []*ast.Join
	relations := make(map[string]ast.Node)

	add := func(rel ast.Node) {
		if primary == nil {
			primary = rel
		} else {
			joins = append(joins, ast.NewJoin(ast.CrossJoin, rel, nil))
		}
		addRelation(relations, rel)
	}

	var walk func(te sqlparser.TableExpr) error
	walk = func(te sqlparser.TableExpr) error {
		switch t := te.(type) {
		case *sqlparser.AliasedTableExpr:
			rel, err := convertRelation(t)
			if err != nil {
				return err
			}
			add(rel)
			return nil
		case *sqlparser.ParenTableExpr:
			for _, inner := range t.Exprs {
				if err := walk(inner); err != nil {
					return err
				}
			}
			return nil
		case *sqlparser.JoinTableExpr:
			if err := walk(t.LeftExpr); err != nil {
				return err
			}
			right, ok := t.RightExpr.(*sqlparser.AliasedTableExpr)
			if !ok {
				return fmt.Errorf("unsupported join shape %T", t.RightExpr)
			}
			rel, err := convertRelation(right)
			if err != nil {
				return err
			}
			kind, err := joinKind(t.Join)
			if err != nil {
				return err
			}
			if len(t.Condition.Using) > 0 {
				return fmt.Errorf("JOIN USING is not supported")
			}
			var on ast.Node
			if t.Condition.On != nil {
				if on, err = convertExpr(t.Condition.On); err != nil {
					return err
				}
			} else {
				kind = ast.CrossJoin
			}
			joins = append(joins, ast.NewJoin(kind, rel, on))
			addRelation(relations, rel)
			return nil
		default:
			return fmt.Errorf("unsupported FROM clause %T", te)
		}
	}
	for _, te := range exprs {
		if err := walk(te); err != nil {
			return nil, nil, err
		}
	}

	// The grammar's synthesized source for source-less fragments.
	if tbl, ok := primary.(*ast.Table); ok && len(joins) == 0 &&
		tbl.Namespace() == nil && tbl.Ident().Name == "dual" {
		return nil, relations, nil
	}
	return ast.NewFrom(primary, joins...), relations, nil
}

func joinKind(join string) (ast.JoinKind, error) {
	switch join {
	case sqlparser.JoinStr, sqlparser.StraightJoinStr:
		return ast.InnerJoin, nil
	case sqlparser.LeftJoinStr:
		return ast.LeftOuterJoin, nil
	case sqlparser.RightJoinStr:
		return ast.RightOuterJoin, nil
	default:
		return 0, fmt.Errorf("unsupported join kind %q", join)
	}
}

func convertRelation(t *sqlparser.AliasedTableExpr) (ast.Node, error) {
	var inner ast.Node
	switch e := t.Expr.(type) {
	case sqlparser.TableName:
		tbl := ast.NewTable(ast.NewName(e.Name.String()))
		if !e.Qualifier.IsEmpty() {
			tbl.AddNamespace(ast.NewNamespace(ast.NewName(e.Qualifier.String())))
		}
		inner = tbl
	case *sqlparser.Subquery:
		sub, ok := e.Select.(*sqlparser.Select)
		if !ok {
			return nil, fmt.Errorf("unsupported subquery statement %T", e.Select)
		}
		q, err := convertQuery(sub)
		if err != nil {
			return nil, err
		}
		inner = q
	default:
		return nil, fmt.Errorf("unsupported relation %T", t.Expr)
	}
	if t.As.IsEmpty() {
		if _, ok := inner.(*ast.Query); ok {
			return nil, fmt.Errorf("subquery in FROM requires an alias")
		}
		return inner, nil
	}
	return ast.NewAlias(ast.NewName(t.As.String()), inner), nil
}

func convertSelectExpr(se sqlparser.SelectExpr, relations map[string]ast.Node) (ast.Node, error) {
	switch e := se.(type) {
	case *sqlparser.StarExpr:
		w := ast.NewWildcard()
		if !e.TableName.Name.IsEmpty() {
			rel, ok := relations[e.TableName.Name.String()]
			if !ok {
				return nil, fmt.Errorf("%s.* does not match any FROM relation", e.TableName.Name.String())
			}
			w.AddTable(rel)
		}
		return w, nil
	case *sqlparser.AliasedExpr:
		expr, err := convertExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		if e.As.IsEmpty() {
			return expr, nil
		}
		return ast.NewAlias(ast.NewName(e.As.String()), expr), nil
	default:
		return nil, fmt.Errorf("unsupported projection %T", se)
	}
}

func convertExpr(expr sqlparser.Expr) (ast.Node, error) {
	switch e := expr.(type) {
	case *sqlparser.ColName:
		col := ast.NewColumn(ast.NewName(e.Name.String()))
		if !e.Qualifier.IsEmpty() {
			var names []*ast.Name
			if !e.Qualifier.Qualifier.IsEmpty() {
				names = append(names, ast.NewName(e.Qualifier.Qualifier.String()))
			}
			names = append(names, ast.NewName(e.Qualifier.Name.String()))
			col.AddNamespace(ast.NewNamespace(names...))
		}
		return col, nil
	case *sqlparser.SQLVal:
		switch e.Type {
		case sqlparser.StrVal:
			return ast.NewString(string(e.Val)), nil
		case sqlparser.IntVal, sqlparser.FloatVal:
			return ast.NewNumber(string(e.Val)), nil
		default:
			return nil, fmt.Errorf("unsupported literal type %v", e.Type)
		}
	case sqlparser.BoolVal:
		return ast.NewBoolean(bool(e)), nil
	case *sqlparser.NullVal:
		return ast.NewNull(), nil
	case *sqlparser.ParenExpr:
		return convertExpr(e.Expr)
	case *sqlparser.AndExpr:
		return convertBinary(ast.OpAnd, e.Left, e.Right)
	case *sqlparser.OrExpr:
		return convertBinary(ast.OpOr, e.Left, e.Right)
	case *sqlparser.NotExpr:
		inner, err := convertExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(ast.UnaryNot, inner), nil
	case *sqlparser.ComparisonExpr:
		return convertComparison(e)
	case *sqlparser.RangeCond:
		return convertRange(e)
	case *sqlparser.IsExpr:
		return convertIs(e)
	case *sqlparser.BinaryExpr:
		op, ok := binaryOps[e.Operator]
		if !ok {
			return nil, fmt.Errorf("unsupported operator %q", e.Operator)
		}
		return convertBinary(op, e.Left, e.Right)
	case *sqlparser.UnaryExpr:
		op, ok := unaryOps[e.Operator]
		if !ok {
			return nil, fmt.Errorf("unsupported operator %q", e.Operator)
		}
		inner, err := convertExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(op, inner), nil
	case *sqlparser.FuncExpr:
		return convertFunc(e)
	case *sqlparser.CaseExpr:
		return convertCase(e)
	default:
		return nil, fmt.Errorf("unsupported expression %T", expr)
	}
}

var binaryOps = map[string]ast.BinaryOpKind{
	sqlparser.BitAndStr: ast.OpBitwiseAnd,
	sqlparser.BitOrStr:  ast.OpBitwiseOr,
	sqlparser.BitXorStr: ast.OpBitwiseXor,
	sqlparser.PlusStr:   ast.OpPlus,
	sqlparser.MinusStr:  ast.OpMinus,
	sqlparser.MultStr:   ast.OpMultiply,
	sqlparser.DivStr:    ast.OpDivide,
	sqlparser.ModStr:    ast.OpModulo,
}

var unaryOps = map[string]ast.UnaryOpKind{
	sqlparser.UPlusStr:  ast.UnaryPlus,
	sqlparser.UMinusStr: ast.UnaryMinus,
}

var comparisonOps = map[string]ast.BinaryOpKind{
	sqlparser.EqualStr:        ast.OpEq,
	sqlparser.NotEqualStr:     ast.OpNotEq,
	sqlparser.LessThanStr:     ast.OpLt,
	sqlparser.GreaterThanStr:  ast.OpGt,
	sqlparser.LessEqualStr:    ast.OpLtEq,
	sqlparser.GreaterEqualStr: ast.OpGtEq,
	sqlparser.LikeStr:         ast.OpLike,
}

func convertBinary(op ast.BinaryOpKind, left, right sqlparser.Expr) (ast.Node, error) {
	l, err := convertExpr(left)
	if err != nil {
		return nil, err
	}
	r, err := convertExpr(right)
	if err != nil {
		return nil, err
	}
	return ast.NewBinaryOp(op, l, r), nil
}

func convertComparison(e *sqlparser.ComparisonExpr) (ast.Node, error) {
	if e.Operator == sqlparser.NotLikeStr {
		inner, err := convertBinary(ast.OpLike, e.Left, e.Right)
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(ast.UnaryNot, inner), nil
	}
	op, ok := comparisonOps[e.Operator]
	if !ok {
		return nil, fmt.Errorf("unsupported operator %q", e.Operator)
	}
	return convertBinary(op, e.Left, e.Right)
}

func convertRange(e *sqlparser.RangeCond) (ast.Node, error) {
	left, err := convertExpr(e.Left)
	if err != nil {
		return nil, err
	}
	low, err := convertExpr(e.From)
	if err != nil {
		return nil, err
	}
	high, err := convertExpr(e.To)
	if err != nil {
		return nil, err
	}
	between := ast.NewBetween(left, low, high)
	if e.Operator == sqlparser.NotBetweenStr {
		return ast.NewUnaryOp(ast.UnaryNot, between), nil
	}
	return between, nil
}

func convertIs(e *sqlparser.IsExpr) (ast.Node, error) {
	inner, err := convertExpr(e.Expr)
	if err != nil {
		return nil, err
	}
	switch e.Operator {
	case sqlparser.IsNullStr:
		return ast.NewIsNull(inner), nil
	case sqlparser.IsNotNullStr:
		return ast.NewUnaryOp(ast.UnaryNot, ast.NewIsNull(inner)), nil
	case sqlparser.IsTrueStr:
		return ast.NewBinaryOp(ast.OpIs, inner, ast.NewBoolean(true)), nil
	case sqlparser.IsFalseStr:
		return ast.NewBinaryOp(ast.OpIs, inner, ast.NewBoolean(false)), nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", e.Operator)
	}
}

func convertFunc(e *sqlparser.FuncExpr) (ast.Node, error) {
	fn := ast.NewFunction(ast.NewName(e.Name.String()))
	fn.Distinct = e.Distinct
	if !e.Qualifier.IsEmpty() {
		fn.AddNamespace(ast.NewNamespace(ast.NewName(e.Qualifier.String())))
	}
	for _, se := range e.Exprs {
		switch arg := se.(type) {
		case *sqlparser.StarExpr:
			fn.Args = append(fn.Args, ast.NewWildcard())
		case *sqlparser.AliasedExpr:
			converted, err := convertExpr(arg.Expr)
			if err != nil {
				return nil, err
			}
			fn.Args = append(fn.Args, converted)
		default:
			return nil, fmt.Errorf("unsupported function argument %T", se)
		}
	}
	return fn, nil
}

func convertCase(e *sqlparser.CaseExpr) (ast.Node, error) {
	out := &ast.Case{}
	var err error
	if e.Expr != nil {
		if out.Operand, err = convertExpr(e.Expr); err != nil {
			return nil, err
		}
	}
	for _, when := range e.Whens {
		cond, err := convertExpr(when.Cond)
		if err != nil {
			return nil, err
		}
		result, err := convertExpr(when.Val)
		if err != nil {
			return nil, err
		}
		out.Conditions = append(out.Conditions, cond)
		out.Results = append(out.Results, result)
	}
	if e.Else != nil {
		if out.ElseResult, err = convertExpr(e.Else); err != nil {
			return nil, err
		}
	}
	return out, nil
}
