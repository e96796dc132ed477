package ast

import "strings"

// JoinKind is the closed set of accepted join kinds.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftOuterJoin
	RightOuterJoin
	FullOuterJoin
	CrossJoin
)

var joinKindSQL = [...]string{
	InnerJoin:      "INNER JOIN",
	LeftOuterJoin:  "LEFT JOIN",
	RightOuterJoin: "RIGHT JOIN",
	FullOuterJoin:  "FULL JOIN",
	CrossJoin:      "CROSS JOIN",
}

func (k JoinKind) String() string { return joinKindSQL[k] }

// Join is one join clause: the joined table or alias and the ON condition
// (absent for CROSS JOIN).
type Join struct {
	base
	Kind  JoinKind
	Table Node // *Table or *Alias
	On    Node
}

func NewJoin(kind JoinKind, table, on Node) *Join {
	return &Join{Kind: kind, Table: table, On: on}
}

func (j *Join) Children() []Node {
	out := make([]Node, 0, 2)
	if j.Table != nil {
		out = append(out, j.Table)
	}
	if j.On != nil {
		out = append(out, j.On)
	}
	return out
}

func (j *Join) Eq(other Node) bool {
	o, ok := other.(*Join)
	return ok && j.Kind == o.Kind && sameKind(j.Table, o.Table) && sameKind(j.On, o.On)
}

func (j *Join) Hash() uint64 { return hashKind("join", j.Kind.String()) }

func (j *Join) String() string {
	if j.On == nil {
		return j.Kind.String() + " " + j.Table.String()
	}
	return j.Kind.String() + " " + j.Table.String() + " ON " + j.On.String()
}

func (j *Join) replaceChild(old, new Node) bool {
	changed := false
	if j.Table == old {
		j.Table = new
		changed = true
	}
	if j.On == old {
		j.On = new
		changed = true
	}
	return changed
}

// From is a select's source clause: the primary table or alias plus its
// joins. From exclusively owns its joins.
type From struct {
	base
	Table Node // *Table or *Alias
	Joins []*Join
}

func NewFrom(table Node, joins ...*Join) *From {
	return &From{Table: table, Joins: joins}
}

func (f *From) Children() []Node {
	out := make([]Node, 0, len(f.Joins)+1)
	if f.Table != nil {
		out = append(out, f.Table)
	}
	for _, j := range f.Joins {
		out = append(out, j)
	}
	return out
}

func (f *From) Eq(other Node) bool {
	o, ok := other.(*From)
	return ok && sameKind(f.Table, o.Table)
}

func (f *From) Hash() uint64 { return hashKind("from") }

func (f *From) String() string {
	var sb strings.Builder
	sb.WriteString("FROM ")
	sb.WriteString(f.Table.String())
	for _, j := range f.Joins {
		sb.WriteString(" ")
		sb.WriteString(j.String())
	}
	return sb.String()
}

func (f *From) replaceChild(old, new Node) bool {
	changed := false
	if f.Table == old {
		f.Table = new
		changed = true
	}
	if nj, ok := new.(*Join); ok {
		for i, j := range f.Joins {
			if Node(j) == old {
				f.Joins[i] = nj
				changed = true
			}
		}
	}
	return changed
}

// Select is a single SELECT statement. It exclusively owns its From,
// projection expressions, and clauses.
type Select struct {
	base
	Distinct   bool
	From       *From
	Projection []Node
	Where      Node
	GroupBy    []Node
	Having     Node
	Limit      *Number
}

func (s *Select) Children() []Node {
	var out []Node
	if s.From != nil {
		out = append(out, s.From)
	}
	out = append(out, s.Projection...)
	if s.Where != nil {
		out = append(out, s.Where)
	}
	out = append(out, s.GroupBy...)
	if s.Having != nil {
		out = append(out, s.Having)
	}
	if s.Limit != nil {
		out = append(out, s.Limit)
	}
	return out
}

func (s *Select) Eq(other Node) bool {
	o, ok := other.(*Select)
	return ok && s.Distinct == o.Distinct && sameKind(nodeOrNil(s.From), nodeOrNil(o.From)) &&
		sameKind(s.Where, o.Where) && sameKind(s.Having, o.Having) &&
		sameKind(nodeOrNil(s.Limit), nodeOrNil(o.Limit))
}

func (s *Select) Hash() uint64 { return hashKind("select") }

func (s *Select) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if s.Distinct {
		sb.WriteString("DISTINCT ")
	}
	writeJoined(&sb, ", ", s.Projection)
	if s.From != nil {
		sb.WriteString(" ")
		sb.WriteString(s.From.String())
	}
	writeNodeClause(&sb, " WHERE ", s.Where)
	writeClause(&sb, " GROUP BY ", s.GroupBy, ", ")
	writeNodeClause(&sb, " HAVING ", s.Having)
	if s.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(s.Limit.String())
	}
	return sb.String()
}

func (s *Select) replaceChild(old, new Node) bool {
	changed := false
	if nf, ok := new.(*From); ok && Node(s.From) == old {
		s.From = nf
		changed = true
	}
	for i, p := range s.Projection {
		if p == old {
			s.Projection[i] = new
			changed = true
		}
	}
	if s.Where == old {
		s.Where = new
		changed = true
	}
	for i, g := range s.GroupBy {
		if g == old {
			s.GroupBy[i] = new
			changed = true
		}
	}
	if s.Having == old {
		s.Having = new
		changed = true
	}
	if nl, ok := new.(*Number); ok && Node(s.Limit) == old {
		s.Limit = nl
		changed = true
	}
	return changed
}

// Query is the top-level statement: one Select plus an ordered list of named
// CTEs, each an Alias wrapping a Select.
type Query struct {
	base
	Select *Select
	CTEs   []*Alias
}

func (q *Query) Children() []Node {
	var out []Node
	if q.Select != nil {
		out = append(out, q.Select)
	}
	for _, cte := range q.CTEs {
		out = append(out, cte)
	}
	return out
}

func (q *Query) Eq(other Node) bool {
	o, ok := other.(*Query)
	return ok && sameKind(nodeOrNil(q.Select), nodeOrNil(o.Select))
}

func (q *Query) Hash() uint64 { return hashKind("query") }

func (q *Query) String() string {
	var sb strings.Builder
	if len(q.CTEs) > 0 {
		sb.WriteString("WITH ")
		for i, cte := range q.CTEs {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(cte.Ident().String())
			sb.WriteString(" AS (")
			sb.WriteString(cte.Child.String())
			sb.WriteString(")")
		}
		sb.WriteString(" ")
	}
	sb.WriteString(q.Select.String())
	return sb.String()
}

func (q *Query) replaceChild(old, new Node) bool {
	changed := false
	if ns, ok := new.(*Select); ok && Node(q.Select) == old {
		q.Select = ns
		changed = true
	}
	if na, ok := new.(*Alias); ok {
		for i, cte := range q.CTEs {
			if Node(cte) == old {
				q.CTEs[i] = na
				changed = true
			}
		}
	}
	return changed
}
