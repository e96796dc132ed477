package build

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/stratalab/strata/ast"
	"github.com/stratalab/strata/catalog"
	"github.com/stratalab/strata/parse"
)

// DimensionJoinError reports a declared dimension relationship that cannot
// produce a join key.
type DimensionJoinError struct {
	Node      string
	Dimension string
	Column    string
}

func (e *DimensionJoinError) Error() string {
	return fmt.Sprintf(
		"node %s specifying dimension %s on column %s does not specify a dimension column, but %s does not have the default key id",
		e.Node, e.Dimension, e.Column, e.Dimension,
	)
}

// BuildOptions steers one compilation.
type BuildOptions struct {
	// Dialect is recorded in parse errors and drives the function check; the
	// accepted grammar does not vary.
	Dialect string
	// DatabaseID pins the target database; zero means pick by cost.
	DatabaseID int64
	// Filters are WHERE fragments ANDed into the query.
	Filters []string
	// Aggs are GROUP BY fragments appended to the query.
	Aggs []string
	// Optimize adjusts cost-based selection (PreferVirtual).
	Optimize []OptimizeOption
}

// BuildNode compiles a node's defining query into a physically-resolved query
// and the database it targets. Filters and aggs are spliced in before
// planning so their columns participate in resolution. When the node itself
// is materialized on an acceptable database and no splicing was requested,
// the materialization is compiled directly instead of rebuilding the
// dependency graph.
func BuildNode(ctx context.Context, store catalog.Store, node *catalog.NodeRevision, opts BuildOptions) (*ast.Query, *catalog.Database, error) {
	if node.Query == "" {
		return nil, nil, fmt.Errorf("node %s has no query; cannot generate a build plan", node.Name)
	}
	query, err := parse.Parse(node.Query, opts.Dialect)
	if err != nil {
		return nil, nil, err
	}

	topDBs := make(map[int64]*catalog.Database)
	if len(opts.Filters) > 0 || len(opts.Aggs) > 0 {
		if err := AddFiltersAndAggs(query, opts.Dialect, opts.Filters, opts.Aggs); err != nil {
			return nil, nil, err
		}
	} else {
		for _, id := range node.DatabaseIDs() {
			db, err := store.Database(ctx, id)
			if err != nil {
				return nil, nil, err
			}
			topDBs[id] = db
		}
	}

	plan, err := GenerateBuildPlan(ctx, store, query, opts.Dialect)
	if err != nil {
		return nil, nil, err
	}

	var depth int
	var database *catalog.Database
	if opts.DatabaseID != 0 {
		if db, ok := topDBs[opts.DatabaseID]; ok {
			return materializedShortcut(node, db)
		}
		depth, database, err = OptimizeByDatabaseID(plan, opts.DatabaseID)
		if err != nil {
			return nil, nil, err
		}
	} else {
		depth, database, err = OptimizeByCost(plan, opts.Optimize...)
		if err != nil {
			return nil, nil, err
		}
		if db := cheapestDatabase(topDBs); db != nil && db.Cost <= database.Cost {
			return materializedShortcut(node, db)
		}
	}

	if err := buildQuery(ctx, plan, depth, database); err != nil {
		return nil, nil, err
	}
	return ast.CompileParents(plan.Query), database, nil
}

func cheapestDatabase(dbs map[int64]*catalog.Database) *catalog.Database {
	ids := make([]int64, 0, len(dbs))
	for id := range dbs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var best *catalog.Database
	for _, id := range ids {
		if best == nil || dbs[id].Cost < best.Cost {
			best = dbs[id]
		}
	}
	return best
}

// materializedShortcut compiles a query straight against the node's own
// physical table: its declared columns projected from the cheapest
// materialization on the database.
func materializedShortcut(node *catalog.NodeRevision, db *catalog.Database) (*ast.Query, *catalog.Database, error) {
	tables := node.PhysicalTables(db.ID)
	if len(tables) == 0 {
		return nil, nil, fmt.Errorf("node %s has no physical table on database %s: %w", node.Name, db.Name, ErrNoDatabase)
	}
	tbl := physicalSource(tables[0])
	sel := &ast.Select{From: ast.NewFrom(tbl)}
	if len(node.Columns) == 0 {
		sel.Projection = []ast.Node{ast.NewWildcard().AddTable(tbl)}
	} else {
		for _, decl := range node.Columns {
			col := ast.NewColumn(ast.NewName(decl.Name))
			tbl.AddColumns(col)
			sel.Projection = append(sel.Projection, col)
		}
	}
	query := &ast.Query{Select: sel}
	return ast.CompileParents(query), db, nil
}

// buildQuery rewrites the plan's query in place for the chosen depth and
// database. A plan shared by several call sites is built once.
func buildQuery(ctx context.Context, bp *BuildPlan, depth int, db *catalog.Database) error {
	if bp.built {
		return nil
	}
	bp.built = true
	return buildSelect(ctx, bp.Query.Select, bp, depth, db)
}

type tableGroup struct {
	rev  *catalog.NodeRevision
	tbls []*ast.Table
}

type dimensionGroup struct {
	rev  *catalog.NodeRevision
	cols []*ast.Column
}

func buildSelect(ctx context.Context, sel *ast.Select, bp *BuildPlan, depth int, db *catalog.Database) error {
	dims, tables := tablesAndDimensionColumns(sel, bp)
	if err := buildDimensionsOnSelect(ctx, sel, dims, tables, bp, depth, db); err != nil {
		return err
	}
	return buildTablesOnSelect(ctx, sel, tables, bp, depth, db)
}

// tablesAndDimensionColumns partitions the select's logical references:
// tables appearing literally in the tree, and columns bound to a
// dimension-typed node (directly joined or placeholder). Groups keep
// first-seen pre-order, so rewriting is deterministic.
func tablesAndDimensionColumns(sel *ast.Select, bp *BuildPlan) ([]*dimensionGroup, []*tableGroup) {
	var tables []*tableGroup
	tableIdx := make(map[string]*tableGroup)
	for _, tbl := range ast.FindAll[*ast.Table](sel) {
		rev, ok := bp.RevisionFor(tbl)
		if !ok {
			continue
		}
		group := tableIdx[rev.Name]
		if group == nil {
			group = &tableGroup{rev: rev}
			tableIdx[rev.Name] = group
			tables = append(tables, group)
		}
		group.tbls = append(group.tbls, tbl)
	}

	var dims []*dimensionGroup
	dimIdx := make(map[string]*dimensionGroup)
	for _, col := range ast.FindAll[*ast.Column](sel) {
		tbl, ok := col.Table().(*ast.Table)
		if !ok {
			continue
		}
		rev, ok := bp.RevisionFor(tbl)
		if !ok || rev.Type != catalog.Dimension {
			continue
		}
		group := dimIdx[rev.Name]
		if group == nil {
			group = &dimensionGroup{rev: rev}
			dimIdx[rev.Name] = group
			dims = append(dims, group)
		}
		group.cols = append(group.cols, col)
	}
	return dims, tables
}

// buildDimensionsOnSelect joins in every dimension referenced through column
// traversal but not already present in the FROM clause: resolve the
// dimension's own source (subquery at depth, physical table at full
// pushdown), repoint the referencing columns at it, and synthesize a LEFT
// JOIN per relation declaring a key to the dimension, ANDing multiple
// key equalities.
func buildDimensionsOnSelect(ctx context.Context, sel *ast.Select, dims []*dimensionGroup, tables []*tableGroup, bp *BuildPlan, depth int, db *catalog.Database) error {
	joined := make(map[string]bool)
	for _, group := range tables {
		joined[group.rev.Name] = true
	}

	for _, dim := range dims {
		if joined[dim.rev.Name] {
			continue
		}

		joinCols := make(map[string][]catalog.ColumnDecl)
		for _, group := range tables {
			for _, decl := range group.rev.Columns {
				if decl.Dimension != dim.rev.Name {
					continue
				}
				if decl.DimensionColumn == "" && !dim.rev.HasColumn("id") {
					return &DimensionJoinError{
						Node:      group.rev.Name,
						Dimension: dim.rev.Name,
						Column:    decl.Name,
					}
				}
				joinCols[group.rev.Name] = append(joinCols[group.rev.Name], decl)
			}
		}

		source, err := dimensionSource(ctx, dim.rev, bp, depth, db)
		if err != nil {
			return err
		}
		for _, col := range dim.cols {
			col.Relink(source)
		}

		added := false
		for _, group := range tables {
			decls := joinCols[group.rev.Name]
			if len(decls) == 0 {
				continue
			}
			for _, tbl := range group.tbls {
				var on ast.Node
				for _, decl := range decls {
					left := ast.NewColumn(ast.NewName(decl.Name))
					tbl.AddColumns(left)
					key := decl.DimensionColumn
					if key == "" {
						key = "id"
					}
					right := ast.NewColumn(ast.NewName(key))
					bindToSource(right, source)
					eq := ast.NewBinaryOp(ast.OpEq, left, right)
					if on == nil {
						on = eq
					} else {
						on = ast.NewBinaryOp(ast.OpAnd, on, eq)
					}
				}
				sel.From.Joins = append(sel.From.Joins, ast.NewJoin(ast.LeftOuterJoin, source, on))
				added = true
			}
		}
		if !added {
			return fmt.Errorf("dimension %s is referenced but no relation in the query declares a join to it", dim.rev.Name)
		}
	}
	return nil
}

func dimensionSource(ctx context.Context, rev *catalog.NodeRevision, bp *BuildPlan, depth int, db *catalog.Database) (ast.Node, error) {
	if depth > 0 {
		sub := bp.Lookup[rev.Name].SubPlan
		if err := buildQuery(ctx, sub, depth-1, db); err != nil {
			return nil, err
		}
		return ast.NewAlias(ast.NewName(amenableName(rev.Name)), sub.Query.Select), nil
	}
	tables := rev.PhysicalTables(db.ID)
	if len(tables) == 0 {
		return nil, fmt.Errorf("dimension %s has no physical table on database %s: %w", rev.Name, db.Name, ErrNoDatabase)
	}
	return physicalSource(tables[0]), nil
}

func bindToSource(col *ast.Column, source ast.Node) {
	if tbl, ok := source.(*ast.Table); ok {
		tbl.AddColumns(col)
		return
	}
	col.AddTable(source)
}

// buildTablesOnSelect replaces every logical table reference: non-source
// nodes with depth remaining become aliased subqueries built from their own
// plan; sources and depth-exhausted nodes become their physical table on the
// target database. Columns bound to a replaced table are repointed at the
// replacement.
func buildTablesOnSelect(ctx context.Context, sel *ast.Select, tables []*tableGroup, bp *BuildPlan, depth int, db *catalog.Database) error {
	for _, group := range tables {
		var replacement ast.Node
		if group.rev.Type != catalog.Source && depth > 0 {
			sub := bp.Lookup[group.rev.Name].SubPlan
			if err := buildQuery(ctx, sub, depth-1, db); err != nil {
				return err
			}
			replacement = ast.NewAlias(ast.NewName(amenableName(group.rev.Name)), sub.Query.Select)
		} else {
			physical := group.rev.PhysicalTables(db.ID)
			if len(physical) == 0 {
				return fmt.Errorf("node %s has no physical table on database %s: %w", group.rev.Name, db.Name, ErrNoDatabase)
			}
			replacement = physicalSource(physical[0])
		}
		for _, tbl := range group.tbls {
			for _, col := range tbl.Columns() {
				col.Relink(replacement)
			}
			ast.Replace(sel, tbl, replacement)
		}
	}
	return nil
}

// physicalSource builds the table leaf for one materialization, namespaced by
// catalog and schema when present.
func physicalSource(pt catalog.PhysicalTable) *ast.Table {
	tbl := ast.NewTable(ast.NewName(pt.Table))
	var names []*ast.Name
	for _, part := range []string{pt.Catalog, pt.Schema} {
		if part != "" {
			names = append(names, ast.NewName(part))
		}
	}
	if len(names) > 0 {
		tbl.AddNamespace(ast.NewNamespace(names...))
	}
	return tbl
}

// AddFiltersAndAggs splices caller-supplied fragments into the query: each
// filter parses as a standalone WHERE fragment and is ANDed after the
// existing condition, each agg as a GROUP BY fragment appended to the list.
// Columns the fragments reference are copied into the projection, flagged as
// API-added and deduplicated, so the compiled SQL actually selects them.
func AddFiltersAndAggs(query *ast.Query, dialect string, filters, aggs []string) error {
	var additions []*ast.Column

	if len(filters) > 0 {
		where := query.Select.Where
		for _, filter := range filters {
			fragment, err := parse.Parse("SELECT * WHERE "+filter, dialect)
			if err != nil {
				return err
			}
			if where == nil {
				where = fragment.Select.Where
			} else {
				where = ast.NewBinaryOp(ast.OpAnd, where, fragment.Select.Where)
			}
			additions = append(additions, ast.FindAll[*ast.Column](fragment.Select)...)
		}
		query.Select.Where = where
	}

	for _, agg := range aggs {
		fragment, err := parse.Parse("SELECT * GROUP BY "+agg, dialect)
		if err != nil {
			return err
		}
		query.Select.GroupBy = append(query.Select.GroupBy, fragment.Select.GroupBy...)
		additions = append(additions, ast.FindAll[*ast.Column](fragment.Select)...)
	}

	seen := make(map[string]bool)
	for _, col := range additions {
		col.SetAPIColumn(true)
		key := col.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		query.Select.Projection = append(query.Select.Projection, col.Copy())
	}
	return nil
}

// amenableName mangles a dotted node name into a single plain identifier
// usable as an alias.
func amenableName(name string) string {
	var parts []string
	var current strings.Builder
	for _, r := range name {
		if r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			current.WriteRune(r)
			continue
		}
		parts = append(parts, current.String())
		current.Reset()
	}
	parts = append(parts, current.String())
	return strings.Join(parts, "_DOT_")
}
