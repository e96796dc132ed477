package ast

// Table is a reference to a table or relation. It accumulates the Columns
// observed to be pulled from it; the list is a back-reference and never part
// of the tree.
type Table struct {
	named
	columns []*Column
}

func NewTable(name *Name, namespace ...*Namespace) *Table {
	t := &Table{}
	t.name = name
	if len(namespace) > 0 {
		t.ns = namespace[0]
	}
	return t
}

// Columns returns the columns observed to reference this table.
func (t *Table) Columns() []*Column { return t.columns }

// AddColumns records columns pulled from this table and binds each column
// back to it.
func (t *Table) AddColumns(columns ...*Column) *Table {
	for _, c := range columns {
		t.columns = append(t.columns, c)
		c.AddTable(t)
	}
	return t
}

func (t *Table) Children() []Node {
	if t.name == nil {
		return nil
	}
	return []Node{t.name}
}

func (t *Table) Eq(other Node) bool {
	o, ok := other.(*Table)
	return ok && sameKind(nodeOrNil(t.name), nodeOrNil(o.name))
}

func (t *Table) Hash() uint64 { return hashKind("table", t.name.Name) }

func (t *Table) String() string { return t.qualified() }

func (t *Table) replaceChild(old, new Node) bool {
	if nn, ok := new.(*Name); ok && Node(t.name) == old {
		t.name = nn
		return true
	}
	return false
}

// Column is a column reference. The table it was resolved against is a lazy,
// set-once back-reference, never ownership.
type Column struct {
	named
	table Node // *Table or *Alias once bound
	api   bool
}

func NewColumn(name *Name, namespace ...*Namespace) *Column {
	c := &Column{}
	c.name = name
	if len(namespace) > 0 {
		c.ns = namespace[0]
	}
	return c
}

// Table returns the relation the column was resolved against, if bound.
func (c *Column) Table() Node { return c.table }

// AddTable binds the column to a relation. The first writer wins; later
// calls are no-ops.
func (c *Column) AddTable(relation Node) *Column {
	if c.table == nil {
		c.table = relation
	}
	return c
}

// Relink repoints the column at a new relation, bypassing the set-once rule.
// Only the rewriter uses this, when the relation a column was bound to is
// itself replaced; ordinary resolution goes through AddTable.
func (c *Column) Relink(relation Node) *Column {
	c.table = relation
	return c
}

// SetAPIColumn marks the column as spliced into the projection from a
// caller-supplied filter or group-by fragment.
func (c *Column) SetAPIColumn(on bool) *Column {
	c.api = on
	return c
}

// IsAPIColumn reports whether the column was added by filter/agg splicing.
func (c *Column) IsAPIColumn() bool { return c.api }

// Copy returns a column with fresh name and namespace nodes, carrying over
// the table binding and API flag but no parents.
func (c *Column) Copy() *Column {
	cp := NewColumn(c.name.Quoted(c.name.QuoteStyle))
	if c.ns != nil {
		names := make([]*Name, len(c.ns.Names))
		for i, n := range c.ns.Names {
			names[i] = n.Quoted(n.QuoteStyle)
		}
		cp.ns = NewNamespace(names...)
	}
	cp.table = c.table
	cp.api = c.api
	return cp
}

func (c *Column) Children() []Node {
	if c.name == nil {
		return nil
	}
	return []Node{c.name}
}

func (c *Column) Eq(other Node) bool {
	o, ok := other.(*Column)
	return ok && sameKind(nodeOrNil(c.name), nodeOrNil(o.name))
}

func (c *Column) Hash() uint64 { return hashKind("column", c.name.Name) }

func (c *Column) String() string {
	if c.table != nil {
		if rel := relationName(c.table); rel != "" {
			return rel + "." + c.name.String()
		}
	}
	return c.qualified()
}

func (c *Column) replaceChild(old, new Node) bool {
	if nn, ok := new.(*Name); ok && Node(c.name) == old {
		c.name = nn
		return true
	}
	return false
}

// Wildcard is a `*` projection, optionally bound to a table.
type Wildcard struct {
	base
	table Node // *Table or *Alias once bound
}

func NewWildcard() *Wildcard { return &Wildcard{} }

// Table returns the relation the wildcard was resolved against, if bound.
func (w *Wildcard) Table() Node { return w.table }

// AddTable binds the wildcard to a relation; the first writer wins.
func (w *Wildcard) AddTable(relation Node) *Wildcard {
	if w.table == nil {
		w.table = relation
	}
	return w
}

func (w *Wildcard) Children() []Node { return nil }

func (w *Wildcard) Eq(other Node) bool {
	_, ok := other.(*Wildcard)
	return ok
}

func (w *Wildcard) Hash() uint64 { return hashKind("wildcard") }

func (w *Wildcard) String() string {
	if w.table != nil {
		if rel := relationName(w.table); rel != "" {
			return rel + ".*"
		}
	}
	return "*"
}

func (w *Wildcard) replaceChild(old, new Node) bool { return false }

// Alias wraps an arbitrary child node (subquery, column, table) with a name.
// The alias exclusively owns its child.
type Alias struct {
	named
	Child Node
}

func NewAlias(name *Name, child Node) *Alias {
	a := &Alias{Child: child}
	a.name = name
	return a
}

func (a *Alias) Children() []Node {
	out := make([]Node, 0, 2)
	if a.name != nil {
		out = append(out, a.name)
	}
	if a.Child != nil {
		out = append(out, a.Child)
	}
	return out
}

func (a *Alias) Eq(other Node) bool {
	o, ok := other.(*Alias)
	return ok && sameKind(nodeOrNil(a.name), nodeOrNil(o.name)) && sameKind(a.Child, o.Child)
}

func (a *Alias) Hash() uint64 { return hashKind("alias", a.name.Name) }

func (a *Alias) String() string {
	switch a.Child.(type) {
	case *Select, *Query:
		return "(" + a.Child.String() + ") AS " + a.name.String()
	default:
		return a.Child.String() + " AS " + a.name.String()
	}
}

func (a *Alias) replaceChild(old, new Node) bool {
	changed := false
	if nn, ok := new.(*Name); ok && Node(a.name) == old {
		a.name = nn
		changed = true
	}
	if a.Child == old {
		a.Child = new
		changed = true
	}
	return changed
}

// relationName is the prefix a column bound to the given relation renders
// with: the alias name for an Alias, the qualified table name for a Table.
func relationName(n Node) string {
	switch r := n.(type) {
	case *Alias:
		return r.name.String()
	case *Table:
		return r.qualified()
	default:
		return ""
	}
}

// nodeOrNil normalizes a typed nil pointer into an absent Node so sameKind
// treats unset fields as matching.
func nodeOrNil[T Node](n T) Node {
	var zero T
	if any(n) == any(zero) {
		return nil
	}
	return n
}
