package build

import (
	"context"
	"errors"
	"testing"

	"github.com/stratalab/strata/catalog"
	"github.com/stratalab/strata/internal/testutil"
	"github.com/stratalab/strata/parse"
)

func TestCompileNode(t *testing.T) {
	t.Parallel()
	store := testStore()

	result, err := CompileNode(context.Background(), store, "revenue", BuildOptions{})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result.SQL, "SELECT SUM(raw.orders.amount) AS total FROM raw.orders")
	testutil.AssertEqual(t, result.Database.Name, "warehouse")
	if len(result.Columns) != 1 {
		t.Fatalf("expected 1 result column, got %d", len(result.Columns))
	}
	testutil.AssertEqual(t, result.Columns[0], ColumnMetadata{Name: "total", Type: "float"})
}

func TestCompileNodeUnknownName(t *testing.T) {
	t.Parallel()
	_, err := CompileNode(context.Background(), testStore(), "missing", BuildOptions{})
	if !errors.Is(err, catalog.ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestCompileNodeColumnsFromDeclarations(t *testing.T) {
	t.Parallel()
	store := testStore()

	result, err := CompileNode(context.Background(), store, "clean_orders", BuildOptions{DatabaseID: 1})
	testutil.AssertNoError(t, err)
	if len(result.Columns) != 4 {
		t.Fatalf("expected 4 result columns, got %d", len(result.Columns))
	}
	testutil.AssertEqual(t, result.Columns[0], ColumnMetadata{Name: "id", Type: "int"})
	testutil.AssertEqual(t, result.Columns[2], ColumnMetadata{Name: "amount", Type: "float"})
}

func TestCompileNodeRejectsDialectMismatch(t *testing.T) {
	t.Parallel()
	store := testStore()
	store.AddNode(&catalog.NodeRevision{
		Name:    "daily_revenue",
		Type:    catalog.Metric,
		Query:   "SELECT SUM(amount) AS total FROM orders GROUP BY date_trunc('day', region)",
		Columns: []catalog.ColumnDecl{{Name: "total", Type: "float"}},
	})

	// The warehouse is postgres, where date_trunc exists.
	_, err := CompileNode(context.Background(), store, "daily_revenue", BuildOptions{})
	testutil.AssertNoError(t, err)

	// Forcing sqlite rejects the call.
	_, err = CompileNode(context.Background(), store, "daily_revenue", BuildOptions{Dialect: "sqlite"})
	var fnErr *UnsupportedFunctionError
	if !errors.As(err, &fnErr) {
		t.Fatalf("expected an UnsupportedFunctionError, got %v", err)
	}
	testutil.AssertEqual(t, fnErr.Function, "date_trunc")
	testutil.AssertEqual(t, fnErr.Dialect, "sqlite")
}

func TestCheckFunctions(t *testing.T) {
	t.Parallel()
	queryWith := func(sql string) error {
		query, err := parse.Parse(sql, "")
		testutil.AssertNoError(t, err)
		return checkFunctions(query, "sqlite")
	}

	testutil.AssertNoError(t, queryWith("SELECT COUNT(*), MAX(a) FROM t"))
	testutil.AssertNoError(t, queryWith("SELECT strftime('%Y', ts) FROM t"))
	testutil.AssertNoError(t, queryWith("SELECT CONCAT(a, b), NULLIF(a, 0) FROM t"))

	err := queryWith("SELECT now() FROM t")
	var fnErr *UnsupportedFunctionError
	if !errors.As(err, &fnErr) {
		t.Fatalf("expected an UnsupportedFunctionError, got %v", err)
	}

	if err := queryWith("SELECT frobnicate(a) FROM t"); err == nil {
		t.Error("expected an unknown function to be rejected")
	}

	query, err := parse.Parse("SELECT now() FROM t", "")
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, checkFunctions(query, ""))
}
