// Package strata compiles semantic-layer queries: SQL referencing logical
// nodes (sources, transforms, dimensions, metrics) is rewritten into
// executable SQL against a concrete physical database.
//
// This package re-exports the commonly used types and functions from
// subpackages for convenience. Advanced users can import subpackages
// directly:
//   - github.com/stratalab/strata/ast (tree node model and SQL rendering)
//   - github.com/stratalab/strata/parse (SQL text front-end)
//   - github.com/stratalab/strata/catalog (node and database metadata)
//   - github.com/stratalab/strata/build (planning, optimization, rewriting)
package strata

import (
	"context"

	"github.com/stratalab/strata/build"
	"github.com/stratalab/strata/catalog"
)

// --- Compilation ---

// BuildOptions steers one compilation.
type BuildOptions = build.BuildOptions

// TranslatedSQL is the compiled result: rendered SQL, projection-derived
// columns, and the target database.
type TranslatedSQL = build.TranslatedSQL

// ColumnMetadata describes one column of a compiled result.
type ColumnMetadata = build.ColumnMetadata

// CompileNode resolves a node by name and compiles its query.
func CompileNode(ctx context.Context, store catalog.Store, name string, opts BuildOptions) (*TranslatedSQL, error) {
	return build.CompileNode(ctx, store, name, opts)
}

// PreferVirtual flips the optimizer's cost tie-break toward subquery
// inlining instead of pushdown.
func PreferVirtual() build.OptimizeOption {
	return build.PreferVirtual()
}

// --- Catalog Types ---

// Store resolves node names and database ids to metadata.
type Store = catalog.Store

// NodeRevision is one immutable version of a logical node's definition.
type NodeRevision = catalog.NodeRevision

// Database is one physical engine SQL can be compiled against.
type Database = catalog.Database

// ColumnDecl is a column declared on a node revision.
type ColumnDecl = catalog.ColumnDecl

// PhysicalTable is one materialization of a node on a database.
type PhysicalTable = catalog.PhysicalTable

// NewMemoryStore returns an empty in-memory catalog.
func NewMemoryStore() *catalog.MemoryStore {
	return catalog.NewMemoryStore()
}

// OpenSQLiteCatalog opens (and if needed initializes) a SQLite-backed
// catalog at the given DSN.
func OpenSQLiteCatalog(dsn string) (*catalog.SQLiteStore, error) {
	return catalog.OpenSQLite(dsn)
}
