package build

import (
	"errors"
	"testing"

	"github.com/stratalab/strata/catalog"
	"github.com/stratalab/strata/internal/testutil"
)

func TestMaxDepth(t *testing.T) {
	t.Parallel()
	store := testStore()

	testutil.AssertEqual(t, MaxDepth(planFor(t, store, "SELECT amount FROM orders")), 0)
	testutil.AssertEqual(t, MaxDepth(planFor(t, store, "SELECT amount FROM clean_orders")), 1)
}

func TestMaxDepthDiamondDependencies(t *testing.T) {
	t.Parallel()
	// top references a both directly and through b, so the sub-plan for a is
	// shared by two branches of different length. The depth of the long branch
	// must win no matter which branch is walked first.
	store := catalog.NewMemoryStore()
	store.AddDatabase(&catalog.Database{ID: 1, Name: "warehouse", Dialect: "postgres", Cost: 1.0})
	store.AddNode(&catalog.NodeRevision{
		Name:    "src",
		Type:    catalog.Source,
		Columns: []catalog.ColumnDecl{{Name: "x", Type: "int"}},
		Tables:  []catalog.PhysicalTable{{DatabaseID: 1, Table: "raw.src"}},
	})
	store.AddNode(&catalog.NodeRevision{
		Name:    "mid",
		Type:    catalog.Transform,
		Query:   "SELECT x FROM src",
		Columns: []catalog.ColumnDecl{{Name: "x", Type: "int"}},
	})
	store.AddNode(&catalog.NodeRevision{
		Name:    "a",
		Type:    catalog.Transform,
		Query:   "SELECT x FROM mid",
		Columns: []catalog.ColumnDecl{{Name: "x", Type: "int"}},
	})
	store.AddNode(&catalog.NodeRevision{
		Name:    "b",
		Type:    catalog.Transform,
		Query:   "SELECT x FROM a",
		Columns: []catalog.ColumnDecl{{Name: "x", Type: "int"}},
	})
	store.AddNode(&catalog.NodeRevision{
		Name:    "top",
		Type:    catalog.Transform,
		Query:   "SELECT a.x, b.x FROM a, b",
		Columns: []catalog.ColumnDecl{{Name: "ax", Type: "int"}, {Name: "bx", Type: "int"}},
	})
	plan := planFor(t, store, "SELECT ax FROM top")

	// Only the source carries a physical table, so everything above it must be
	// inlined: top, b, a, and mid make four levels of subqueries.
	testutil.AssertEqual(t, MaxDepth(plan), 4)

	depth, db, err := OptimizeByDatabaseID(plan, 1)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, depth, 4)
	testutil.AssertEqual(t, db.Name, "warehouse")
}

func TestOptimizeByDatabaseID(t *testing.T) {
	t.Parallel()
	store := testStore()
	plan := planFor(t, store, "SELECT amount FROM clean_orders")

	// The transform is materialized on the cache, so full pushdown works.
	depth, db, err := OptimizeByDatabaseID(plan, 2)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, depth, 0)
	testutil.AssertEqual(t, db.Name, "cache")

	// The warehouse only holds the underlying source; the transform has to
	// be inlined one level.
	depth, db, err = OptimizeByDatabaseID(plan, 1)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, depth, 1)
	testutil.AssertEqual(t, db.Name, "warehouse")
}

func TestOptimizeByDatabaseIDNoDepthWorks(t *testing.T) {
	t.Parallel()
	plan := planFor(t, testStore(), "SELECT amount FROM clean_orders")

	_, _, err := OptimizeByDatabaseID(plan, 9)
	if !errors.Is(err, ErrNoDatabase) {
		t.Errorf("expected ErrNoDatabase, got %v", err)
	}
}

func TestOptimizeByCostPrefersCheaperDatabase(t *testing.T) {
	t.Parallel()
	plan := planFor(t, testStore(), "SELECT amount FROM clean_orders")

	depth, db, err := OptimizeByCost(plan)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, depth, 0)
	testutil.AssertEqual(t, db.Name, "cache")
}

func TestOptimizeByCostTieFavorsPushdown(t *testing.T) {
	t.Parallel()
	store := catalog.NewMemoryStore()
	store.AddDatabase(&catalog.Database{ID: 1, Name: "only", Dialect: "postgres", Cost: 5.0})
	store.AddNode(&catalog.NodeRevision{
		Name:    "orders",
		Type:    catalog.Source,
		Columns: []catalog.ColumnDecl{{Name: "amount", Type: "float"}},
		Tables:  []catalog.PhysicalTable{{DatabaseID: 1, Table: "orders"}},
	})
	store.AddNode(&catalog.NodeRevision{
		Name:    "clean_orders",
		Type:    catalog.Transform,
		Query:   "SELECT amount FROM orders",
		Columns: []catalog.ColumnDecl{{Name: "amount", Type: "float"}},
		Tables:  []catalog.PhysicalTable{{DatabaseID: 1, Table: "clean_orders"}},
	})
	plan := planFor(t, store, "SELECT amount FROM clean_orders")

	depth, _, err := OptimizeByCost(plan)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, depth, 0)

	depth, _, err = OptimizeByCost(plan, PreferVirtual())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, depth, 1)
}

func TestOptimizeByCostNoCommonDatabase(t *testing.T) {
	t.Parallel()
	// orders lives only on the warehouse, solo only on the cache; no single
	// database covers the whole frontier at any depth.
	plan := planFor(t, testStore(), "SELECT orders.amount, solo.x FROM orders, solo")

	_, _, err := OptimizeByCost(plan)
	if !errors.Is(err, ErrNoDatabase) {
		t.Errorf("expected ErrNoDatabase, got %v", err)
	}
}

func TestFrontierCollectsSourcesAcrossDepths(t *testing.T) {
	t.Parallel()
	plan := planFor(t, testStore(), "SELECT amount FROM clean_orders")

	shallow := make(map[string]*PlanEntry)
	frontier(plan, 0, shallow)
	if _, ok := shallow["clean_orders"]; !ok || len(shallow) != 1 {
		t.Errorf("expected only clean_orders at full pushdown, got %v", shallow)
	}

	deep := make(map[string]*PlanEntry)
	frontier(plan, 1, deep)
	if _, ok := deep["orders"]; !ok || len(deep) != 1 {
		t.Errorf("expected only the underlying source at depth 1, got %v", deep)
	}
}
