// Package catalog defines the semantic-layer metadata the compiler reads:
// versioned logical node definitions, the physical tables they map to, and
// the directory of physical databases. The compiler treats this metadata as
// an external, read-only collaborator consumed through the Store interface.
package catalog

import (
	"context"
	"errors"
	"sort"
)

// NodeType classifies a logical node.
type NodeType string

const (
	Source    NodeType = "source"
	Transform NodeType = "transform"
	Dimension NodeType = "dimension"
	Metric    NodeType = "metric"
	Cube      NodeType = "cube"
)

// Database is one physical engine SQL can be compiled against. Cost is a
// monotonic score: lower is cheaper to query.
type Database struct {
	ID      int64
	Name    string
	Dialect string
	Cost    float64
}

// PhysicalTable is one materialization of a node on a database.
type PhysicalTable struct {
	DatabaseID int64
	Catalog    string
	Schema     string
	Table      string
	Cost       float64
}

// ColumnDecl is a column declared on a node revision. Dimension, when set,
// names the dimension node the column refers to; DimensionColumn names the
// join column on that dimension (default "id" when empty).
type ColumnDecl struct {
	Name            string
	Type            string
	Dimension       string
	DimensionColumn string
}

// NodeRevision is one immutable version of a logical node's definition.
type NodeRevision struct {
	Name    string
	Version string
	Type    NodeType
	Query   string // defining query; empty for pure physical sources
	Columns []ColumnDecl
	Tables  []PhysicalTable
}

// PhysicalTables returns the node's materializations on the given database,
// cheapest first.
func (r *NodeRevision) PhysicalTables(databaseID int64) []PhysicalTable {
	var out []PhysicalTable
	for _, t := range r.Tables {
		if t.DatabaseID == databaseID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cost < out[j].Cost })
	return out
}

// DatabaseIDs returns the distinct databases the node is materialized on.
func (r *NodeRevision) DatabaseIDs() []int64 {
	seen := make(map[int64]struct{}, len(r.Tables))
	var out []int64
	for _, t := range r.Tables {
		if _, ok := seen[t.DatabaseID]; ok {
			continue
		}
		seen[t.DatabaseID] = struct{}{}
		out = append(out, t.DatabaseID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Column returns the declared column with the given name.
func (r *NodeRevision) Column(name string) (ColumnDecl, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDecl{}, false
}

// HasColumn reports whether the node declares a column with the given name.
func (r *NodeRevision) HasColumn(name string) bool {
	_, ok := r.Column(name)
	return ok
}

// ErrNodeNotFound is returned by Store.Resolve for unknown node names.
var ErrNodeNotFound = errors.New("node not found")

// ErrDatabaseNotFound is returned by Store.Database for unknown ids.
var ErrDatabaseNotFound = errors.New("database not found")

// Store resolves node names and database ids to metadata. Implementations
// must be safe for concurrent readers; the compiler never writes through it.
type Store interface {
	Resolve(ctx context.Context, name string) (*NodeRevision, error)
	Database(ctx context.Context, id int64) (*Database, error)
	Databases(ctx context.Context) ([]*Database, error)
}
