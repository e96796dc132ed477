package ast

import (
	"errors"
	"strings"

	"github.com/stratalab/strata/internal/quoting"
)

// Name is a quoted or unquoted identifier.
type Name struct {
	base
	Name       string
	QuoteStyle string
}

func NewName(name string) *Name {
	return &Name{Name: name}
}

// Quoted returns a copy of the name carrying the given quote style.
func (n *Name) Quoted(style string) *Name {
	return &Name{Name: n.Name, QuoteStyle: style}
}

func (n *Name) Children() []Node { return nil }

func (n *Name) Eq(other Node) bool {
	o, ok := other.(*Name)
	return ok && n.Name == o.Name && n.QuoteStyle == o.QuoteStyle
}

func (n *Name) Hash() uint64 { return hashKind("name", n.Name+n.QuoteStyle) }

func (n *Name) String() string { return quoting.Quote(n.QuoteStyle, n.Name) }

func (n *Name) replaceChild(old, new Node) bool { return false }

// ToColumn wraps the name into a Column that is already a parent of it.
func (n *Name) ToColumn() *Column {
	return AddSelfAsParent(NewColumn(n))
}

// ToTable wraps the name into a Table that is already a parent of it.
func (n *Name) ToTable() *Table {
	return AddSelfAsParent(NewTable(n))
}

// ToNamespace wraps the name into a single-item Namespace.
func (n *Name) ToNamespace() *Namespace {
	return AddSelfAsParent(NewNamespace(n))
}

// Namespace is the dotted sequence of names preceding a Table or Column.
type Namespace struct {
	base
	Names []*Name
}

func NewNamespace(names ...*Name) *Namespace {
	return &Namespace{Names: names}
}

func (ns *Namespace) Children() []Node {
	out := make([]Node, 0, len(ns.Names))
	for _, n := range ns.Names {
		out = append(out, n)
	}
	return out
}

func (ns *Namespace) Eq(other Node) bool {
	_, ok := other.(*Namespace)
	return ok
}

func (ns *Namespace) Hash() uint64 { return hashKind("namespace") }

func (ns *Namespace) String() string {
	parts := make([]string, len(ns.Names))
	for i, n := range ns.Names {
		parts[i] = n.String()
	}
	return strings.Join(parts, ".")
}

func (ns *Namespace) replaceChild(old, new Node) bool {
	nn, ok := new.(*Name)
	if !ok {
		return false
	}
	for i, n := range ns.Names {
		if Node(n) == old {
			ns.Names[i] = nn
			return true
		}
	}
	return false
}

// PopSelf splits off the last name, returning it with its parents cleared
// and the shortened namespace.
func (ns *Namespace) PopSelf() (*Name, *Namespace, error) {
	if len(ns.Names) == 0 {
		return nil, nil, errors.New("namespace is empty")
	}
	last := ns.Names[len(ns.Names)-1]
	ns.Names = ns.Names[:len(ns.Names)-1]
	last.ClearParents()
	return last, ns, nil
}

// ToColumn converts the namespace into a Column named by its last name; any
// remaining names become the column's namespace.
func (ns *Namespace) ToColumn() (*Column, error) {
	last, rest, err := ns.PopSelf()
	if err != nil {
		return nil, err
	}
	col := AddSelfAsParent(NewColumn(last))
	if len(rest.Names) > 0 {
		col.AddNamespace(rest)
	}
	return col, nil
}

// ToTable converts the namespace into a Table named by its last name; any
// remaining names become the table's namespace.
func (ns *Namespace) ToTable() (*Table, error) {
	last, rest, err := ns.PopSelf()
	if err != nil {
		return nil, err
	}
	tbl := AddSelfAsParent(NewTable(last))
	if len(rest.Names) > 0 {
		tbl.AddNamespace(rest)
	}
	return tbl, nil
}

// Named is the capability shared by nodes carrying an identifier and an
// optional preceding namespace (Table, Column, Alias, Function).
type Named interface {
	Node
	Ident() *Name
	Namespace() *Namespace
	AddNamespace(ns *Namespace)
	AliasOrName() string
}

// named implements the Named plumbing. The namespace is internal
// bookkeeping: excluded from Children and from equality, like every other
// back-half reference, but it still renders.
type named struct {
	base
	name *Name
	ns   *Namespace
}

func (n *named) Ident() *Name { return n.name }

func (n *named) Namespace() *Namespace { return n.ns }

// AddNamespace attaches a namespace if none is present; the first writer
// wins.
func (n *named) AddNamespace(ns *Namespace) {
	if n.ns == nil {
		n.ns = ns
	}
}

// AliasOrName returns the enclosing alias name when the node is the child of
// exactly one Alias, and the node's own name otherwise.
func (n *named) AliasOrName() string {
	if len(n.parents) == 1 {
		for p := range n.parents {
			if a, ok := p.(*Alias); ok {
				return a.name.Name
			}
		}
	}
	return n.name.Name
}

// qualified renders the name with its namespace prefix, if any.
func (n *named) qualified() string {
	if n.ns != nil && len(n.ns.Names) > 0 {
		return n.ns.String() + "." + n.name.String()
	}
	return n.name.String()
}
