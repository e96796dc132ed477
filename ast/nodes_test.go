package ast

import (
	"testing"

	"github.com/stratalab/strata/internal/testutil"
)

// --- Names and namespaces ---

func TestNameRendering(t *testing.T) {
	t.Parallel()
	testutil.AssertSQL(t, NewName("users"), "users")
	testutil.AssertSQL(t, NewName("user table").Quoted(`"`), `"user table"`)
	testutil.AssertSQL(t, NewName("order").Quoted("`"), "`order`")
}

func TestNamespaceRendering(t *testing.T) {
	t.Parallel()
	ns := NewNamespace(NewName("analytics"), NewName("core"))
	testutil.AssertSQL(t, ns, "analytics.core")
}

func TestNamespaceToColumn(t *testing.T) {
	t.Parallel()
	ns := NewNamespace(NewName("orders"), NewName("user_id"))
	col, err := ns.ToColumn()
	testutil.AssertNoError(t, err)
	testutil.AssertSQL(t, col, "orders.user_id")
}

func TestNamespaceToTable(t *testing.T) {
	t.Parallel()
	ns := NewNamespace(NewName("analytics"), NewName("orders"))
	tbl, err := ns.ToTable()
	testutil.AssertNoError(t, err)
	testutil.AssertSQL(t, tbl, "analytics.orders")
}

func TestEmptyNamespacePop(t *testing.T) {
	t.Parallel()
	_, _, err := NewNamespace().PopSelf()
	testutil.AssertError(t, err)
}

// --- Columns, tables, wildcards, aliases ---

func TestColumnTableBindingIsSetOnce(t *testing.T) {
	t.Parallel()
	col := NewColumn(NewName("id"))
	first := NewTable(NewName("users"))
	second := NewTable(NewName("orders"))

	col.AddTable(first)
	col.AddTable(second)
	if col.Table() != Node(first) {
		t.Error("first writer must win")
	}

	col.Relink(second)
	if col.Table() != Node(second) {
		t.Error("Relink must repoint the binding")
	}
}

func TestColumnRendersBoundRelation(t *testing.T) {
	t.Parallel()
	col := NewColumn(NewName("id"))
	testutil.AssertSQL(t, col, "id")

	NewTable(NewName("users")).AddColumns(col)
	testutil.AssertSQL(t, col, "users.id")
}

func TestColumnRendersAliasedRelation(t *testing.T) {
	t.Parallel()
	alias := NewAlias(NewName("u"), NewTable(NewName("users")))
	col := NewColumn(NewName("id")).AddTable(alias)
	testutil.AssertSQL(t, col, "u.id")
}

func TestColumnCopyKeepsBindingAndFlag(t *testing.T) {
	t.Parallel()
	tbl := NewTable(NewName("sales"))
	col := NewColumn(NewName("region"))
	tbl.AddColumns(col)
	col.SetAPIColumn(true)

	cp := col.Copy()
	if cp == col {
		t.Fatal("copy must be a fresh node")
	}
	if cp.Table() != Node(tbl) {
		t.Error("copy must carry the table binding")
	}
	if !cp.IsAPIColumn() {
		t.Error("copy must carry the API flag")
	}
	testutil.AssertSQL(t, cp, "sales.region")
}

func TestTableAccumulatesColumns(t *testing.T) {
	t.Parallel()
	tbl := NewTable(NewName("users"))
	a := NewColumn(NewName("a"))
	b := NewColumn(NewName("b"))
	tbl.AddColumns(a).AddColumns(b)
	if len(tbl.Columns()) != 2 {
		t.Fatalf("expected 2 observed columns, got %d", len(tbl.Columns()))
	}
}

func TestWildcardRendering(t *testing.T) {
	t.Parallel()
	testutil.AssertSQL(t, NewWildcard(), "*")
	testutil.AssertSQL(t, NewWildcard().AddTable(NewTable(NewName("users"))), "users.*")
}

func TestAliasRendering(t *testing.T) {
	t.Parallel()
	testutil.AssertSQL(t,
		NewAlias(NewName("u"), NewTable(NewName("users"))),
		"users AS u")

	sub := &Select{Projection: []Node{NewWildcard()}, From: NewFrom(NewTable(NewName("users")))}
	testutil.AssertSQL(t,
		NewAlias(NewName("u"), sub),
		"(SELECT * FROM users) AS u")
}

func TestAliasOrName(t *testing.T) {
	t.Parallel()
	col := NewColumn(NewName("full_name"))
	testutil.AssertEqual(t, col.AliasOrName(), "full_name")

	alias := NewAlias(NewName("n"), col)
	CompileParents(alias)
	testutil.AssertEqual(t, col.AliasOrName(), "n")
}

// --- Operators and expressions ---

func TestUnaryOpRendering(t *testing.T) {
	t.Parallel()
	testutil.AssertSQL(t, NewUnaryOp(UnaryMinus, NewNumber(5)), "-5")
	testutil.AssertSQL(t, NewUnaryOp(UnaryNot, NewIsNull(NewColumn(NewName("a")))), "NOT a IS NULL")
}

func TestBinaryOpRendering(t *testing.T) {
	t.Parallel()
	eq := NewBinaryOp(OpEq, NewColumn(NewName("a")), NewNumber(1))
	testutil.AssertSQL(t, eq, "a = 1")

	ne := NewBinaryOp(OpNotEq, NewColumn(NewName("a")), NewNumber(1))
	testutil.AssertSQL(t, ne, "a <> 1")
}

func TestBinaryOpParenthesizesLowerPrecedence(t *testing.T) {
	t.Parallel()
	or := NewBinaryOp(OpOr,
		NewBinaryOp(OpEq, NewColumn(NewName("a")), NewNumber(1)),
		NewBinaryOp(OpEq, NewColumn(NewName("b")), NewNumber(2)))
	and := NewBinaryOp(OpAnd, or, NewBinaryOp(OpEq, NewColumn(NewName("c")), NewNumber(3)))
	testutil.AssertSQL(t, and, "(a = 1 OR b = 2) AND c = 3")

	mul := NewBinaryOp(OpMultiply,
		NewBinaryOp(OpPlus, NewNumber(1), NewNumber(2)),
		NewNumber(3))
	testutil.AssertSQL(t, mul, "(1 + 2) * 3")
}

func TestBetweenRendering(t *testing.T) {
	t.Parallel()
	b := NewBetween(NewColumn(NewName("age")), NewNumber(18), NewNumber(65))
	testutil.AssertSQL(t, b, "age BETWEEN 18 AND 65")
}

func TestCaseRendering(t *testing.T) {
	t.Parallel()
	c := &Case{
		Conditions: []Node{NewBinaryOp(OpGt, NewColumn(NewName("amount")), NewNumber(100))},
		Results:    []Node{NewString("large")},
		ElseResult: NewString("small"),
	}
	testutil.AssertSQL(t, c, "CASE WHEN amount > 100 THEN 'large' ELSE 'small' END")
}

func TestFunctionRendering(t *testing.T) {
	t.Parallel()
	count := NewFunction(NewName("COUNT"), NewWildcard())
	testutil.AssertSQL(t, count, "COUNT(*)")

	distinct := NewFunction(NewName("COUNT"), NewColumn(NewName("user_id")))
	distinct.Distinct = true
	testutil.AssertSQL(t, distinct, "COUNT(DISTINCT user_id)")
}

// --- Literals ---

func TestNumberNormalization(t *testing.T) {
	t.Parallel()
	n := NewNumber("5")
	if v, ok := n.Value.(int64); !ok || v != 5 {
		t.Errorf("expected int64 5, got %T %v", n.Value, n.Value)
	}

	f := NewNumber("5.5")
	if v, ok := f.Value.(float64); !ok || v != 5.5 {
		t.Errorf("expected float64 5.5, got %T %v", f.Value, f.Value)
	}

	raw := NewNumber("1e9x")
	if _, ok := raw.Value.(string); !ok {
		t.Errorf("unparseable token should stay verbatim, got %T", raw.Value)
	}
}

func TestLiteralRendering(t *testing.T) {
	t.Parallel()
	testutil.AssertSQL(t, NewNumber("5"), "5")
	testutil.AssertSQL(t, NewNumber("5.5"), "5.5")
	testutil.AssertSQL(t, NewString("it's"), "'it''s'")
	testutil.AssertSQL(t, NewBoolean(true), "TRUE")
	testutil.AssertSQL(t, NewBoolean(false), "FALSE")
	testutil.AssertSQL(t, NewNull(), "NULL")
}

// --- Statements ---

func TestJoinRendering(t *testing.T) {
	t.Parallel()
	on := NewBinaryOp(OpEq, NewColumn(NewName("a")), NewColumn(NewName("b")))
	testutil.AssertSQL(t,
		NewJoin(LeftOuterJoin, NewTable(NewName("users")), on),
		"LEFT JOIN users ON a = b")
	testutil.AssertSQL(t,
		NewJoin(CrossJoin, NewTable(NewName("regions")), nil),
		"CROSS JOIN regions")
}

func TestSelectRendering(t *testing.T) {
	t.Parallel()
	tbl := NewTable(NewName("orders"))
	amount := NewColumn(NewName("amount"))
	region := NewColumn(NewName("region"))
	tbl.AddColumns(amount, region)

	sel := &Select{
		Projection: []Node{NewFunction(NewName("SUM"), amount), region},
		From:       NewFrom(tbl),
		Where:      NewBinaryOp(OpGt, NewColumn(NewName("amount")), NewNumber(0)),
		GroupBy:    []Node{NewColumn(NewName("region"))},
		Having:     NewBinaryOp(OpGt, NewFunction(NewName("SUM"), NewColumn(NewName("amount"))), NewNumber(10)),
		Limit:      NewNumber(100),
	}
	testutil.AssertSQL(t, sel,
		"SELECT SUM(orders.amount), orders.region FROM orders WHERE amount > 0 GROUP BY region HAVING SUM(amount) > 10 LIMIT 100")
}

func TestSelectDistinctRendering(t *testing.T) {
	t.Parallel()
	sel := &Select{
		Distinct:   true,
		Projection: []Node{NewColumn(NewName("region"))},
		From:       NewFrom(NewTable(NewName("sales"))),
	}
	testutil.AssertSQL(t, sel, "SELECT DISTINCT region FROM sales")
}

func TestQueryWithCTERendering(t *testing.T) {
	t.Parallel()
	cte := NewAlias(NewName("recent"), &Select{
		Projection: []Node{NewWildcard()},
		From:       NewFrom(NewTable(NewName("orders"))),
	})
	query := &Query{
		CTEs: []*Alias{cte},
		Select: &Select{
			Projection: []Node{NewWildcard()},
			From:       NewFrom(NewTable(NewName("recent"))),
		},
	}
	testutil.AssertSQL(t, query,
		"WITH recent AS (SELECT * FROM orders) SELECT * FROM recent")
}

func TestWildcardTableBindingIsSetOnce(t *testing.T) {
	t.Parallel()
	w := NewWildcard()
	first := NewTable(NewName("a"))
	w.AddTable(first)
	w.AddTable(NewTable(NewName("b")))
	if w.Table() != Node(first) {
		t.Error("first writer must win")
	}
}
