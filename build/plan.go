// Package build compiles a logical node's query into executable SQL: it
// generates a build plan over the node's dependency graph, picks a target
// database and pushdown depth, and rewrites the AST so every logical table
// reference becomes a physical one.
package build

import (
	"context"
	"fmt"
	"strings"

	"github.com/stratalab/strata/ast"
	"github.com/stratalab/strata/catalog"
	"github.com/stratalab/strata/parse"
)

// PlanEntry holds what the plan knows about one node revision: the databases
// it is materialized on and, for non-source nodes, the plan for its own
// defining query.
type PlanEntry struct {
	Revision  *catalog.NodeRevision
	Databases map[int64]*catalog.Database
	SubPlan   *BuildPlan
}

// BuildPlan pairs a parsed query with the resolution of every logical
// reference in it. Lookup is shared across all nested plans of one
// compilation, memoizing each revision by name.
type BuildPlan struct {
	Query  *ast.Query
	Lookup map[string]*PlanEntry

	// tableRevs maps every table leaf in Query, plus the dimension
	// placeholders synthesized during column resolution, to its revision.
	tableRevs map[*ast.Table]*catalog.NodeRevision
	built     bool
}

// RevisionFor returns the node revision a table leaf of this plan's query
// resolved to.
func (bp *BuildPlan) RevisionFor(tbl *ast.Table) (*catalog.NodeRevision, bool) {
	rev, ok := bp.tableRevs[tbl]
	return rev, ok
}

// ResolutionError reports a column that could not be resolved to any source.
type ResolutionError struct {
	Column string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve column %s: %s", e.Column, e.Reason)
}

// GenerateBuildPlan walks every logical reference in the query, resolving it
// through the store and recursing into defining queries, and binds unresolved
// columns against catalog metadata. The store is read sequentially; the plan
// assumes one consistent snapshot for the whole compilation.
func GenerateBuildPlan(ctx context.Context, store catalog.Store, query *ast.Query, dialect string) (*BuildPlan, error) {
	p := &planner{
		store:   store,
		dialect: dialect,
		entries: make(map[string]*PlanEntry),
	}
	return p.plan(ctx, query)
}

type planner struct {
	store   catalog.Store
	dialect string
	entries map[string]*PlanEntry
}

func (p *planner) plan(ctx context.Context, query *ast.Query) (*BuildPlan, error) {
	bp := &BuildPlan{
		Query:     query,
		Lookup:    p.entries,
		tableRevs: make(map[*ast.Table]*catalog.NodeRevision),
	}
	for _, tbl := range ast.FindAll[*ast.Table](query) {
		rev, err := p.store.Resolve(ctx, referencedName(tbl))
		if err != nil {
			return nil, err
		}
		bp.tableRevs[tbl] = rev
		if err := p.visit(ctx, rev); err != nil {
			return nil, err
		}
	}
	if err := p.resolveColumns(ctx, bp); err != nil {
		return nil, err
	}
	return bp, nil
}

// visit records a revision in the shared lookup: its candidate databases and,
// for non-source nodes, the plan of its defining query. The entry is
// registered before recursing so self-referential graphs terminate.
func (p *planner) visit(ctx context.Context, rev *catalog.NodeRevision) error {
	if _, ok := p.entries[rev.Name]; ok {
		return nil
	}
	entry := &PlanEntry{
		Revision:  rev,
		Databases: make(map[int64]*catalog.Database),
	}
	p.entries[rev.Name] = entry
	for _, id := range rev.DatabaseIDs() {
		db, err := p.store.Database(ctx, id)
		if err != nil {
			return err
		}
		entry.Databases[id] = db
	}
	if rev.Type == catalog.Source {
		return nil
	}
	if rev.Query == "" {
		return fmt.Errorf("node %s of type %s has no query; cannot generate a build plan", rev.Name, rev.Type)
	}
	sub, err := parse.Parse(rev.Query, p.dialect)
	if err != nil {
		return err
	}
	subPlan, err := p.plan(ctx, sub)
	if err != nil {
		return err
	}
	entry.SubPlan = subPlan
	return nil
}

// resolveColumns binds the columns the parser left unbound. A qualifier
// naming a node outside the FROM clause becomes a placeholder table for the
// rewriter to join in; an unqualified column is matched against the declared
// columns of the FROM relations, then against their linked dimensions.
func (p *planner) resolveColumns(ctx context.Context, bp *BuildPlan) error {
	placeholders := make(map[string]*ast.Table)
	for _, sel := range ast.FindAll[*ast.Select](bp.Query) {
		fromTables := bp.fromTables(sel)
		for _, col := range ast.FindAll[*ast.Column](sel) {
			if col.Table() != nil {
				continue
			}
			ns := col.Namespace()
			if ns != nil && len(ns.Names) > 0 {
				if err := p.resolveQualified(ctx, bp, col, ns.String(), placeholders); err != nil {
					return err
				}
				continue
			}
			if err := p.resolveUnqualified(ctx, bp, col, fromTables, placeholders); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *planner) resolveQualified(ctx context.Context, bp *BuildPlan, col *ast.Column, qualifier string, placeholders map[string]*ast.Table) error {
	rev, err := p.store.Resolve(ctx, qualifier)
	if err != nil {
		return &ResolutionError{
			Column: qualifier + "." + col.Ident().Name,
			Reason: fmt.Sprintf("%s is neither a FROM relation nor a known node", qualifier),
		}
	}
	if err := p.visit(ctx, rev); err != nil {
		return err
	}
	bp.placeholder(rev, placeholders).AddColumns(col)
	return nil
}

func (p *planner) resolveUnqualified(ctx context.Context, bp *BuildPlan, col *ast.Column, fromTables []*ast.Table, placeholders map[string]*ast.Table) error {
	name := col.Ident().Name

	var owners []*ast.Table
	for _, tbl := range fromTables {
		if rev := bp.tableRevs[tbl]; rev != nil && rev.HasColumn(name) {
			owners = append(owners, tbl)
		}
	}
	switch len(owners) {
	case 1:
		owners[0].AddColumns(col)
		return nil
	case 0:
	default:
		return &ResolutionError{Column: name, Reason: "declared by more than one FROM relation"}
	}

	// Follow the dimension links declared by the FROM relations.
	var dimRev *catalog.NodeRevision
	for _, tbl := range fromTables {
		rev := bp.tableRevs[tbl]
		if rev == nil {
			continue
		}
		for _, decl := range rev.Columns {
			if decl.Dimension == "" {
				continue
			}
			dim, err := p.store.Resolve(ctx, decl.Dimension)
			if err != nil {
				return err
			}
			if !dim.HasColumn(name) {
				continue
			}
			if dimRev != nil && dimRev.Name != dim.Name {
				return &ResolutionError{Column: name, Reason: "declared by more than one linked dimension"}
			}
			dimRev = dim
		}
	}
	if dimRev == nil {
		return &ResolutionError{Column: name, Reason: "not declared by any FROM relation or linked dimension"}
	}
	if err := p.visit(ctx, dimRev); err != nil {
		return err
	}
	bp.placeholder(dimRev, placeholders).AddColumns(col)
	return nil
}

// placeholder returns the plan's stand-in table for a node referenced outside
// the FROM clause, creating and registering it on first use. The placeholder
// never enters the tree; it exists only as a binding target the rewriter
// partitions on.
func (bp *BuildPlan) placeholder(rev *catalog.NodeRevision, placeholders map[string]*ast.Table) *ast.Table {
	if tbl, ok := placeholders[rev.Name]; ok {
		return tbl
	}
	tbl := tableForName(rev.Name)
	placeholders[rev.Name] = tbl
	bp.tableRevs[tbl] = rev
	return tbl
}

// fromTables returns the table leaves reachable from the select's FROM
// clause, unwrapping aliases.
func (bp *BuildPlan) fromTables(sel *ast.Select) []*ast.Table {
	if sel.From == nil {
		return nil
	}
	var out []*ast.Table
	add := func(rel ast.Node) {
		switch r := rel.(type) {
		case *ast.Table:
			out = append(out, r)
		case *ast.Alias:
			if tbl, ok := r.Child.(*ast.Table); ok {
				out = append(out, tbl)
			}
		}
	}
	add(sel.From.Table)
	for _, join := range sel.From.Joins {
		add(join.Table)
	}
	return out
}

// referencedName is the logical name a table leaf denotes: its namespace and
// name joined with dots, unquoted.
func referencedName(tbl *ast.Table) string {
	var parts []string
	if ns := tbl.Namespace(); ns != nil {
		for _, n := range ns.Names {
			parts = append(parts, n.Name)
		}
	}
	parts = append(parts, tbl.Ident().Name)
	return strings.Join(parts, ".")
}

// tableForName builds a table leaf for a dotted logical name.
func tableForName(name string) *ast.Table {
	parts := strings.Split(name, ".")
	tbl := ast.NewTable(ast.NewName(parts[len(parts)-1]))
	if len(parts) > 1 {
		names := make([]*ast.Name, len(parts)-1)
		for i, p := range parts[:len(parts)-1] {
			names[i] = ast.NewName(p)
		}
		tbl.AddNamespace(ast.NewNamespace(names...))
	}
	return tbl
}
