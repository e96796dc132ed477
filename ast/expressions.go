package ast

import "strings"

// UnaryOpKind is the closed set of accepted unary operators.
type UnaryOpKind int

const (
	UnaryPlus UnaryOpKind = iota
	UnaryMinus
	UnaryNot
)

var unaryOpSQL = [...]string{
	UnaryPlus:  "+",
	UnaryMinus: "-",
	UnaryNot:   "NOT",
}

func (k UnaryOpKind) String() string { return unaryOpSQL[k] }

// UnaryOp is an operation on a single expression.
type UnaryOp struct {
	base
	Op   UnaryOpKind
	Expr Node
}

func NewUnaryOp(op UnaryOpKind, expr Node) *UnaryOp {
	return &UnaryOp{Op: op, Expr: expr}
}

func (u *UnaryOp) Children() []Node {
	if u.Expr == nil {
		return nil
	}
	return []Node{u.Expr}
}

func (u *UnaryOp) Eq(other Node) bool {
	o, ok := other.(*UnaryOp)
	return ok && u.Op == o.Op && sameKind(u.Expr, o.Expr)
}

func (u *UnaryOp) Hash() uint64 { return hashKind("unaryop", u.Op.String()) }

func (u *UnaryOp) String() string {
	if u.Op == UnaryNot {
		return "NOT " + u.Expr.String()
	}
	return u.Op.String() + u.Expr.String()
}

func (u *UnaryOp) replaceChild(old, new Node) bool {
	if u.Expr == old {
		u.Expr = new
		return true
	}
	return false
}

// BinaryOpKind is the closed set of accepted binary operators.
type BinaryOpKind int

const (
	OpAnd BinaryOpKind = iota
	OpOr
	OpIs
	OpEq
	OpNotEq
	OpGt
	OpLt
	OpGtEq
	OpLtEq
	OpLike
	OpBitwiseOr
	OpBitwiseAnd
	OpBitwiseXor
	OpMultiply
	OpDivide
	OpPlus
	OpMinus
	OpModulo
)

var binaryOpSQL = [...]string{
	OpAnd:        "AND",
	OpOr:         "OR",
	OpIs:         "IS",
	OpEq:         "=",
	OpNotEq:      "<>",
	OpGt:         ">",
	OpLt:         "<",
	OpGtEq:       ">=",
	OpLtEq:       "<=",
	OpLike:       "LIKE",
	OpBitwiseOr:  "|",
	OpBitwiseAnd: "&",
	OpBitwiseXor: "^",
	OpMultiply:   "*",
	OpDivide:     "/",
	OpPlus:       "+",
	OpMinus:      "-",
	OpModulo:     "%",
}

func (k BinaryOpKind) String() string { return binaryOpSQL[k] }

// binaryOpPrec orders operators for parenthesization when rendering nested
// operations.
var binaryOpPrec = [...]int{
	OpOr:         1,
	OpAnd:        2,
	OpIs:         3,
	OpEq:         3,
	OpNotEq:      3,
	OpGt:         3,
	OpLt:         3,
	OpGtEq:       3,
	OpLtEq:       3,
	OpLike:       3,
	OpBitwiseOr:  4,
	OpBitwiseAnd: 4,
	OpBitwiseXor: 4,
	OpPlus:       5,
	OpMinus:      5,
	OpMultiply:   6,
	OpDivide:     6,
	OpModulo:     6,
}

// BinaryOp is an operation on two expressions.
type BinaryOp struct {
	base
	Op    BinaryOpKind
	Left  Node
	Right Node
}

func NewBinaryOp(op BinaryOpKind, left, right Node) *BinaryOp {
	return &BinaryOp{Op: op, Left: left, Right: right}
}

func (b *BinaryOp) Children() []Node {
	out := make([]Node, 0, 2)
	if b.Left != nil {
		out = append(out, b.Left)
	}
	if b.Right != nil {
		out = append(out, b.Right)
	}
	return out
}

func (b *BinaryOp) Eq(other Node) bool {
	o, ok := other.(*BinaryOp)
	return ok && b.Op == o.Op && sameKind(b.Left, o.Left) && sameKind(b.Right, o.Right)
}

func (b *BinaryOp) Hash() uint64 { return hashKind("binaryop", b.Op.String()) }

func (b *BinaryOp) String() string {
	return b.operand(b.Left) + " " + b.Op.String() + " " + b.operand(b.Right)
}

// operand parenthesizes a nested operation of lower precedence so rendering
// round-trips the parsed structure.
func (b *BinaryOp) operand(n Node) string {
	if op, ok := n.(*BinaryOp); ok && binaryOpPrec[op.Op] < binaryOpPrec[b.Op] {
		return "(" + op.String() + ")"
	}
	return n.String()
}

func (b *BinaryOp) replaceChild(old, new Node) bool {
	changed := false
	if b.Left == old {
		b.Left = new
		changed = true
	}
	if b.Right == old {
		b.Right = new
		changed = true
	}
	return changed
}

// Between is a BETWEEN comparison.
type Between struct {
	base
	Expr Node
	Low  Node
	High Node
}

func NewBetween(expr, low, high Node) *Between {
	return &Between{Expr: expr, Low: low, High: high}
}

func (b *Between) Children() []Node {
	out := make([]Node, 0, 3)
	for _, n := range []Node{b.Expr, b.Low, b.High} {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (b *Between) Eq(other Node) bool {
	o, ok := other.(*Between)
	return ok && sameKind(b.Expr, o.Expr) && sameKind(b.Low, o.Low) && sameKind(b.High, o.High)
}

func (b *Between) Hash() uint64 { return hashKind("between") }

func (b *Between) String() string {
	return b.Expr.String() + " BETWEEN " + b.Low.String() + " AND " + b.High.String()
}

func (b *Between) replaceChild(old, new Node) bool {
	changed := false
	if b.Expr == old {
		b.Expr = new
		changed = true
	}
	if b.Low == old {
		b.Low = new
		changed = true
	}
	if b.High == old {
		b.High = new
		changed = true
	}
	return changed
}

// Case is a CASE expression: an optional operand, paired WHEN conditions and
// THEN results, and an optional ELSE.
type Case struct {
	base
	Operand    Node
	Conditions []Node
	Results    []Node
	ElseResult Node
}

func (c *Case) Children() []Node {
	var out []Node
	if c.Operand != nil {
		out = append(out, c.Operand)
	}
	out = append(out, c.Conditions...)
	out = append(out, c.Results...)
	if c.ElseResult != nil {
		out = append(out, c.ElseResult)
	}
	return out
}

func (c *Case) Eq(other Node) bool {
	o, ok := other.(*Case)
	return ok && sameKind(c.Operand, o.Operand) && sameKind(c.ElseResult, o.ElseResult)
}

func (c *Case) Hash() uint64 { return hashKind("case") }

func (c *Case) String() string {
	var sb strings.Builder
	sb.WriteString("CASE")
	if c.Operand != nil {
		sb.WriteString(" ")
		sb.WriteString(c.Operand.String())
	}
	for i, cond := range c.Conditions {
		sb.WriteString(" WHEN ")
		sb.WriteString(cond.String())
		if i < len(c.Results) {
			sb.WriteString(" THEN ")
			sb.WriteString(c.Results[i].String())
		}
	}
	if c.ElseResult != nil {
		sb.WriteString(" ELSE ")
		sb.WriteString(c.ElseResult.String())
	}
	sb.WriteString(" END")
	return sb.String()
}

func (c *Case) replaceChild(old, new Node) bool {
	changed := false
	if c.Operand == old {
		c.Operand = new
		changed = true
	}
	for i, n := range c.Conditions {
		if n == old {
			c.Conditions[i] = new
			changed = true
		}
	}
	for i, n := range c.Results {
		if n == old {
			c.Results[i] = new
			changed = true
		}
	}
	if c.ElseResult == old {
		c.ElseResult = new
		changed = true
	}
	return changed
}

// IsNull is an IS NULL test.
type IsNull struct {
	base
	Expr Node
}

func NewIsNull(expr Node) *IsNull { return &IsNull{Expr: expr} }

func (i *IsNull) Children() []Node {
	if i.Expr == nil {
		return nil
	}
	return []Node{i.Expr}
}

func (i *IsNull) Eq(other Node) bool {
	o, ok := other.(*IsNull)
	return ok && sameKind(i.Expr, o.Expr)
}

func (i *IsNull) Hash() uint64 { return hashKind("isnull") }

func (i *IsNull) String() string { return i.Expr.String() + " IS NULL" }

func (i *IsNull) replaceChild(old, new Node) bool {
	if i.Expr == old {
		i.Expr = new
		return true
	}
	return false
}

// Function is a function call with ordered arguments.
type Function struct {
	named
	Distinct bool
	Args     []Node
}

func NewFunction(name *Name, args ...Node) *Function {
	f := &Function{Args: args}
	f.name = name
	return f
}

func (f *Function) Children() []Node {
	out := make([]Node, 0, len(f.Args)+1)
	if f.name != nil {
		out = append(out, f.name)
	}
	out = append(out, f.Args...)
	return out
}

func (f *Function) Eq(other Node) bool {
	o, ok := other.(*Function)
	return ok && f.Distinct == o.Distinct && sameKind(nodeOrNil(f.name), nodeOrNil(o.name))
}

func (f *Function) Hash() uint64 { return hashKind("function") }

func (f *Function) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	inner := strings.Join(args, ", ")
	if f.Distinct {
		inner = "DISTINCT " + inner
	}
	return f.qualified() + "(" + inner + ")"
}

func (f *Function) replaceChild(old, new Node) bool {
	changed := false
	if nn, ok := new.(*Name); ok && Node(f.name) == old {
		f.name = nn
		changed = true
	}
	for i, a := range f.Args {
		if a == old {
			f.Args[i] = new
			changed = true
		}
	}
	return changed
}
