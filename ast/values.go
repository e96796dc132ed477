package ast

import (
	"fmt"
	"strconv"

	"github.com/stratalab/strata/internal/quoting"
)

// Number is a numeric literal. Construction normalizes to an integer first,
// falling back to floating-point when integer parsing fails; a token that
// parses as neither is kept verbatim and rendered as-is.
type Number struct {
	base
	Value any // int64, float64, or the raw string token
}

func NewNumber(value any) *Number {
	n := &Number{}
	switch v := value.(type) {
	case int:
		n.Value = int64(v)
	case int32:
		n.Value = int64(v)
	case int64:
		n.Value = v
	case float32:
		n.Value = float64(v)
	case float64:
		n.Value = v
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			n.Value = i
		} else if f, err := strconv.ParseFloat(v, 64); err == nil {
			n.Value = f
		} else {
			n.Value = v
		}
	default:
		n.Value = fmt.Sprint(value)
	}
	return n
}

func (n *Number) Children() []Node { return nil }

func (n *Number) Eq(other Node) bool {
	o, ok := other.(*Number)
	return ok && n.Value == o.Value
}

func (n *Number) Hash() uint64 { return hashKind("number", n.String()) }

func (n *Number) String() string {
	switch v := n.Value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (n *Number) replaceChild(old, new Node) bool { return false }

// String is a string literal.
type String struct {
	base
	Value string
}

func NewString(value string) *String { return &String{Value: value} }

func (s *String) Children() []Node { return nil }

func (s *String) Eq(other Node) bool {
	o, ok := other.(*String)
	return ok && s.Value == o.Value
}

func (s *String) Hash() uint64 { return hashKind("string", s.Value) }

func (s *String) String() string {
	return "'" + quoting.EscapeString(s.Value) + "'"
}

func (s *String) replaceChild(old, new Node) bool { return false }

// Boolean is a TRUE/FALSE literal.
type Boolean struct {
	base
	Value bool
}

func NewBoolean(value bool) *Boolean { return &Boolean{Value: value} }

func (b *Boolean) Children() []Node { return nil }

func (b *Boolean) Eq(other Node) bool {
	o, ok := other.(*Boolean)
	return ok && b.Value == o.Value
}

func (b *Boolean) Hash() uint64 { return hashKind("boolean", b.String()) }

func (b *Boolean) String() string {
	if b.Value {
		return "TRUE"
	}
	return "FALSE"
}

func (b *Boolean) replaceChild(old, new Node) bool { return false }

// Null is the NULL literal.
type Null struct {
	base
}

func NewNull() *Null { return &Null{} }

func (n *Null) Children() []Node { return nil }

func (n *Null) Eq(other Node) bool {
	_, ok := other.(*Null)
	return ok
}

func (n *Null) Hash() uint64 { return hashKind("null") }

func (n *Null) String() string { return "NULL" }

func (n *Null) replaceChild(old, new Node) bool { return false }
