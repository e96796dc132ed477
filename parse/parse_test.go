package parse

import (
	"errors"
	"testing"

	"github.com/stratalab/strata/ast"
	"github.com/stratalab/strata/internal/testutil"
)

func mustParse(t *testing.T, sql string) *ast.Query {
	t.Helper()
	query, err := Parse(sql, "")
	testutil.AssertNoError(t, err)
	return query
}

func TestParseSimpleSelect(t *testing.T) {
	t.Parallel()
	query := mustParse(t, "SELECT a, b FROM t")
	testutil.AssertSQL(t, query, "SELECT a, b FROM t")
}

func TestParseQualifiedColumnsBindToFromRelation(t *testing.T) {
	t.Parallel()
	query := mustParse(t, "SELECT orders.user_id FROM orders")

	cols := ast.FindAll[*ast.Column](query)
	if len(cols) != 1 {
		t.Fatalf("expected 1 column, got %d", len(cols))
	}
	tbl, ok := cols[0].Table().(*ast.Table)
	if !ok {
		t.Fatal("expected the column bound to the FROM table")
	}
	testutil.AssertEqual(t, tbl.Ident().Name, "orders")
	testutil.AssertSQL(t, query, "SELECT orders.user_id FROM orders")
}

func TestParseUnknownQualifierStaysUnbound(t *testing.T) {
	t.Parallel()
	query := mustParse(t, "SELECT users.country FROM orders")

	cols := ast.FindAll[*ast.Column](query)
	if len(cols) != 1 {
		t.Fatalf("expected 1 column, got %d", len(cols))
	}
	if cols[0].Table() != nil {
		t.Error("a qualifier matching no FROM relation must stay unbound")
	}
	testutil.AssertSQL(t, cols[0], "users.country")
}

func TestParseAliasedRelation(t *testing.T) {
	t.Parallel()
	query := mustParse(t, "SELECT o.amount FROM orders AS o")

	cols := ast.FindAll[*ast.Column](query)
	if _, ok := cols[0].Table().(*ast.Alias); !ok {
		t.Fatal("expected the column bound to the alias")
	}
	testutil.AssertSQL(t, query, "SELECT o.amount FROM orders AS o")
}

func TestParseJoins(t *testing.T) {
	t.Parallel()
	query := mustParse(t, "SELECT a FROM t LEFT JOIN u ON t.id = u.id")
	testutil.AssertSQL(t, query, "SELECT a FROM t LEFT JOIN u ON t.id = u.id")

	sel := query.Select
	if len(sel.From.Joins) != 1 {
		t.Fatalf("expected 1 join, got %d", len(sel.From.Joins))
	}
	if sel.From.Joins[0].Kind != ast.LeftOuterJoin {
		t.Errorf("expected a left join, got %v", sel.From.Joins[0].Kind)
	}
}

func TestParseCommaFromBecomesCrossJoin(t *testing.T) {
	t.Parallel()
	query := mustParse(t, "SELECT a FROM t, u")
	sel := query.Select
	if len(sel.From.Joins) != 1 || sel.From.Joins[0].Kind != ast.CrossJoin {
		t.Fatal("expected the second relation as a cross join")
	}
	testutil.AssertSQL(t, query, "SELECT a FROM t CROSS JOIN u")
}

func TestParseFragmentWithoutFrom(t *testing.T) {
	t.Parallel()
	query := mustParse(t, "SELECT * WHERE region = 'EU'")
	if query.Select.From != nil {
		t.Error("a source-less fragment must have no FROM clause")
	}
	testutil.AssertSQL(t, query.Select.Where, "region = 'EU'")
}

func TestParseGroupByFragment(t *testing.T) {
	t.Parallel()
	query := mustParse(t, "SELECT * GROUP BY region")
	if len(query.Select.GroupBy) != 1 {
		t.Fatalf("expected 1 group-by term, got %d", len(query.Select.GroupBy))
	}
	testutil.AssertSQL(t, query.Select.GroupBy[0], "region")
}

func TestParseExpressions(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		sql      string
		rendered string
	}{
		{"SELECT a + b * c FROM t", "SELECT a + b * c FROM t"},
		{"SELECT a FROM t WHERE a BETWEEN 1 AND 10", "SELECT a FROM t WHERE a BETWEEN 1 AND 10"},
		{"SELECT a FROM t WHERE a IS NULL", "SELECT a FROM t WHERE a IS NULL"},
		{"SELECT a FROM t WHERE a IS NOT NULL", "SELECT a FROM t WHERE NOT a IS NULL"},
		{"SELECT a FROM t WHERE NOT a = 1", "SELECT a FROM t WHERE NOT a = 1"},
		{"SELECT a FROM t WHERE a LIKE 'x%'", "SELECT a FROM t WHERE a LIKE 'x%'"},
		{"SELECT a FROM t WHERE a != 1", "SELECT a FROM t WHERE a <> 1"},
		{"SELECT COUNT(*) FROM t", "SELECT COUNT(*) FROM t"},
		{"SELECT COUNT(DISTINCT a) FROM t", "SELECT COUNT(DISTINCT a) FROM t"},
		{"SELECT a FROM t WHERE b = TRUE", "SELECT a FROM t WHERE b = TRUE"},
		{"SELECT a FROM t WHERE b = NULL", "SELECT a FROM t WHERE b = NULL"},
		{"SELECT a FROM t LIMIT 10", "SELECT a FROM t LIMIT 10"},
		{"SELECT DISTINCT a FROM t", "SELECT DISTINCT a FROM t"},
		{
			"SELECT CASE WHEN a > 1 THEN 'x' ELSE 'y' END FROM t",
			"SELECT CASE WHEN a > 1 THEN 'x' ELSE 'y' END FROM t",
		},
	} {
		query, err := Parse(tc.sql, "")
		testutil.AssertNoError(t, err)
		testutil.AssertSQL(t, query, tc.rendered)
	}
}

func TestParseSubqueryInFrom(t *testing.T) {
	t.Parallel()
	query := mustParse(t, "SELECT v.a FROM (SELECT a FROM t) AS v")
	testutil.AssertSQL(t, query, "SELECT v.a FROM (SELECT a FROM t) AS v")
}

func TestParseSubqueryScopesColumns(t *testing.T) {
	t.Parallel()
	query := mustParse(t, "SELECT v.a FROM (SELECT t.a FROM t) AS v")

	for _, col := range ast.FindAll[*ast.Column](query) {
		switch rel := col.Table().(type) {
		case *ast.Table:
			testutil.AssertEqual(t, rel.Ident().Name, "t")
		case *ast.Alias:
			testutil.AssertEqual(t, rel.Ident().Name, "v")
		default:
			t.Errorf("column %s left unbound", col)
		}
	}
}

func TestParseCompilesParents(t *testing.T) {
	t.Parallel()
	query := mustParse(t, "SELECT a FROM t WHERE a = 1")
	for _, node := range ast.Flatten(query) {
		if node == ast.Node(query) {
			continue
		}
		if len(node.Parents()) == 0 {
			t.Errorf("%T has no parents after parsing", node)
		}
	}
}

func TestParseSyntaxError(t *testing.T) {
	t.Parallel()
	_, err := Parse("SELECT FROM WHERE", "")
	testutil.AssertError(t, err)

	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("expected a SyntaxError, got %T", err)
	}
	if syntaxErr.SQL != "SELECT FROM WHERE" {
		t.Errorf("error must carry the offending fragment, got %q", syntaxErr.SQL)
	}
}

func TestParseRejectsNonSelect(t *testing.T) {
	t.Parallel()
	_, err := Parse("INSERT INTO t (a) VALUES (1)", "")
	testutil.AssertError(t, err)

	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("expected a SyntaxError, got %T", err)
	}
}
