// Package parse turns SQL text into the strata AST. The grammar work is
// delegated to github.com/xwb1989/sqlparser; this package converts its parse
// tree into ast nodes and resolves column qualifiers against the FROM clause.
package parse

import (
	"fmt"

	"github.com/xwb1989/sqlparser"

	"github.com/stratalab/strata/ast"
)

// SyntaxError reports SQL text that failed to parse or that parsed into a
// statement shape the compiler does not accept.
type SyntaxError struct {
	SQL string
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("parsing %q: %v", e.SQL, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Parse parses a single SELECT statement into a Query with parent references
// compiled and qualified columns bound to their FROM relations. The dialect
// is recorded for error messages only; the accepted grammar does not vary.
func Parse(sql string, dialect string) (*ast.Query, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, &SyntaxError{SQL: sql, Err: err}
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, &SyntaxError{SQL: sql, Err: fmt.Errorf("expected a SELECT statement, got %T", stmt)}
	}
	query, err := convertQuery(sel)
	if err != nil {
		return nil, &SyntaxError{SQL: sql, Err: err}
	}
	bindColumns(query)
	return ast.CompileParents(query), nil
}

// bindColumns binds each column whose qualifier names a FROM relation (by
// table name or alias) to that relation. Selects are visited innermost-first
// so a subquery claims its own columns before an enclosing scope can; columns
// whose qualifier matches nothing in scope are left for catalog-aware
// resolution downstream.
func bindColumns(query *ast.Query) {
	selects := ast.FindAll[*ast.Select](query)
	for i := len(selects) - 1; i >= 0; i-- {
		sel := selects[i]
		if sel.From == nil {
			continue
		}
		relations := make(map[string]ast.Node)
		addRelation(relations, sel.From.Table)
		for _, join := range sel.From.Joins {
			addRelation(relations, join.Table)
		}
		for _, col := range ast.FindAll[*ast.Column](sel) {
			ns := col.Namespace()
			if col.Table() != nil || ns == nil || len(ns.Names) == 0 {
				continue
			}
			if rel, ok := relations[ns.String()]; ok {
				if tbl, isTable := rel.(*ast.Table); isTable {
					tbl.AddColumns(col)
				} else {
					col.AddTable(rel)
				}
			}
		}
	}
}

func addRelation(relations map[string]ast.Node, rel ast.Node) {
	switch r := rel.(type) {
	case *ast.Table:
		relations[r.String()] = r
	case *ast.Alias:
		relations[r.Ident().String()] = r
	}
}
