// Package ast defines the intermediate representation used for all SQL
// fragments: a closed set of node variants sharing generic traversal,
// parent bookkeeping, two-tier equality, and canonical SQL rendering.
package ast

import (
	"fmt"
	"hash/fnv"
)

// Node is the interface all AST nodes implement.
//
// Equality is two-tier. Eq is shallow: it checks the concrete variant and
// primitive fields only, never descending into nested nodes. Deep structural
// comparison goes through Diff/Compare, which walk two trees in lock-step.
// Parent sets and other back-references never participate in either tier.
type Node interface {
	fmt.Stringer

	// Children returns the directly contained nodes in field order,
	// flattening slice fields and skipping absent optionals. The slice is
	// rebuilt on every call so it always reflects current field values.
	Children() []Node

	// Eq reports shallow equality with another node.
	Eq(other Node) bool

	// Hash returns a hash consistent with Eq: shallow-equal nodes hash
	// equal. It combines a variant tag with a stable identifying subset of
	// the node's fields.
	Hash() uint64

	Parents() []Node
	AddParents(parents ...Node)
	RemoveParents(parents ...Node)
	ClearParents()

	// replaceChild swaps direct references to old with new, returning
	// whether anything changed. Unexported so the variant set is closed.
	replaceChild(old, new Node) bool
}

// base carries the transient parent set shared by every variant. Parents are
// bookkeeping valid only within one compilation; they are populated
// explicitly (CompileParents or AddParents), never on construction.
type base struct {
	parents map[Node]struct{}
}

func (b *base) Parents() []Node {
	out := make([]Node, 0, len(b.parents))
	for p := range b.parents {
		out = append(out, p)
	}
	return out
}

func (b *base) AddParents(parents ...Node) {
	if b.parents == nil {
		b.parents = make(map[Node]struct{}, len(parents))
	}
	for _, p := range parents {
		b.parents[p] = struct{}{}
	}
}

func (b *base) RemoveParents(parents ...Node) {
	for _, p := range parents {
		delete(b.parents, p)
	}
}

func (b *base) ClearParents() {
	b.parents = nil
}

// AddSelfAsParent registers n as a parent of each of its direct children and
// returns n.
func AddSelfAsParent[T Node](n T) T {
	for _, child := range n.Children() {
		child.AddParents(n)
	}
	return n
}

// CompileParents walks the whole subtree and records every node as a parent
// of its direct children. Parent sets make repeated calls idempotent.
func CompileParents[T Node](n T) T {
	Apply(n, func(m Node) { AddSelfAsParent(m) })
	return n
}

// Apply traverses the subtree depth-first pre-order, invoking fn on every
// node including n itself.
func Apply(n Node, fn func(Node)) {
	fn(n)
	for _, child := range n.Children() {
		Apply(child, fn)
	}
}

// Filter returns all nodes in the subtree, pre-order, for which pred holds.
func Filter(n Node, pred func(Node) bool) []Node {
	var out []Node
	Apply(n, func(m Node) {
		if pred(m) {
			out = append(out, m)
		}
	})
	return out
}

// FindAll returns all nodes of the given concrete variant in the subtree,
// pre-order.
func FindAll[T Node](n Node) []T {
	var out []T
	Apply(n, func(m Node) {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	})
	return out
}

// Flatten returns every node in the subtree, pre-order, n included.
func Flatten(n Node) []Node {
	return Filter(n, func(Node) bool { return true })
}

// DiffPair is one mismatch found by Diff. Either side may be nil when the
// other tree has no node at that position.
type DiffPair struct {
	Left  Node
	Right Node
}

// Diff walks a and b in lock-step over positionally matched children. At
// each step, if shallow equality fails the pair is recorded and descent into
// that pair stops; otherwise the children are compared pairwise, padding the
// shorter side with absent placeholders.
func Diff(a, b Node) []DiffPair {
	var diffs []DiffPair
	diffNodes(a, b, &diffs)
	return diffs
}

// Compare reports whether two trees are deeply equal: Diff found nothing.
func Compare(a, b Node) bool {
	return len(Diff(a, b)) == 0
}

func diffNodes(a, b Node, diffs *[]DiffPair) {
	if !shallowEq(a, b) {
		*diffs = append(*diffs, DiffPair{a, b})
		return
	}
	if a == nil {
		return
	}
	ac, bc := a.Children(), b.Children()
	n := len(ac)
	if len(bc) > n {
		n = len(bc)
	}
	for i := 0; i < n; i++ {
		var left, right Node
		if i < len(ac) {
			left = ac[i]
		}
		if i < len(bc) {
			right = bc[i]
		}
		diffNodes(left, right, diffs)
	}
}

// shallowEq extends Eq over absent nodes: two absences match, an absence
// never matches a node.
func shallowEq(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Eq(b)
}

// sameKind reports whether two child-field values hold the same concrete
// variant, treating two absences as matching. Shallow equality compares
// nested-node fields with this, never by value.
func sameKind(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return kindOf(a) == kindOf(b)
}

// kindOf maps a node to its variant tag. The switch is exhaustive over the
// closed variant set.
func kindOf(n Node) string {
	switch n.(type) {
	case *Name:
		return "name"
	case *Namespace:
		return "namespace"
	case *Column:
		return "column"
	case *Wildcard:
		return "wildcard"
	case *Table:
		return "table"
	case *Alias:
		return "alias"
	case *Function:
		return "function"
	case *UnaryOp:
		return "unaryop"
	case *BinaryOp:
		return "binaryop"
	case *Between:
		return "between"
	case *Case:
		return "case"
	case *IsNull:
		return "isnull"
	case *Number:
		return "number"
	case *String:
		return "string"
	case *Boolean:
		return "boolean"
	case *Null:
		return "null"
	case *Join:
		return "join"
	case *From:
		return "from"
	case *Select:
		return "select"
	case *Query:
		return "query"
	default:
		return fmt.Sprintf("%T", n)
	}
}

// Replace substitutes every occurrence of old with new anywhere in the tree
// rooted at n. Matching is by node identity, not equality.
func Replace(n Node, old, new Node) {
	Apply(n, func(m Node) { m.replaceChild(old, new) })
}

// hashKind seeds a variant-tag hash; identifying fields are mixed in with
// hashPart.
func hashKind(kind string, parts ...string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(kind))
	for _, p := range parts {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(p))
	}
	return h.Sum64()
}
