package build

import (
	"context"
	"strings"

	"github.com/stratalab/strata/ast"
	"github.com/stratalab/strata/catalog"
)

// ColumnMetadata describes one column of a compiled result.
type ColumnMetadata struct {
	Name string
	Type string
}

// TranslatedSQL is the compiled result handed outward: the rendered SQL, its
// projection-derived columns, and the database it targets.
type TranslatedSQL struct {
	SQL      string
	Columns  []ColumnMetadata
	Database *catalog.Database
}

// CompileNode resolves a node by name, builds its query, verifies every
// function call against the target dialect, and renders the result.
func CompileNode(ctx context.Context, store catalog.Store, name string, opts BuildOptions) (*TranslatedSQL, error) {
	node, err := store.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	query, db, err := BuildNode(ctx, store, node, opts)
	if err != nil {
		return nil, err
	}
	dialect := opts.Dialect
	if dialect == "" {
		dialect = db.Dialect
	}
	if err := checkFunctions(query, dialect); err != nil {
		return nil, err
	}
	return &TranslatedSQL{
		SQL:      query.String(),
		Columns:  projectionColumns(query.Select, node),
		Database: db,
	}, nil
}

// projectionColumns derives the result columns from the rewritten projection,
// typing each against the node's declared columns where the name matches.
func projectionColumns(sel *ast.Select, node *catalog.NodeRevision) []ColumnMetadata {
	var out []ColumnMetadata
	for _, expr := range sel.Projection {
		switch e := expr.(type) {
		case *ast.Wildcard:
			for _, decl := range node.Columns {
				out = append(out, ColumnMetadata{Name: decl.Name, Type: decl.Type})
			}
		case *ast.Alias:
			out = append(out, declared(node, e.Ident().Name))
		case *ast.Column:
			out = append(out, declared(node, e.AliasOrName()))
		case *ast.Function:
			out = append(out, declared(node, strings.ToLower(e.AliasOrName())))
		default:
			out = append(out, ColumnMetadata{Name: expr.String()})
		}
	}
	return out
}

func declared(node *catalog.NodeRevision, name string) ColumnMetadata {
	if decl, ok := node.Column(name); ok {
		return ColumnMetadata{Name: decl.Name, Type: decl.Type}
	}
	return ColumnMetadata{Name: name}
}
