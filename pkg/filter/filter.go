// Package filter builds SCIM filter expressions for the Anaplan users API.
//
// Expressions are immutable values composed from fields, comparisons and the
// boolean operators And, Or and Not:
//
//	f := filter.Or(
//		filter.And(filter.Field(filter.Active), filter.Field(filter.ID).Eq("123")),
//		filter.Not(filter.Field(filter.UserName)),
//	)
//	f.String() // (active eq true and id eq "123") or userName eq null
//
// A bare field is a presence test. For the boolean field "active" the
// presence test renders as "active eq true".
//
// Negation is supported for presence tests, equality and inequality, and is
// pushed through And and Or with De Morgan's laws. Negating an ordering
// comparison (gt, ge, lt, le) is not supported because the server gives no
// defined result for missing attributes; Render reports ErrUnsupportedNegation.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors reported by Render.
var (
	ErrUnknownField        = errors.New("filter: unknown field")
	ErrUnsupportedNegation = errors.New("filter: negation not supported for this expression")
)

// Fields accepted by the SCIM users endpoint.
const (
	ID         = "id"
	ExternalID = "externalId"
	UserName   = "userName"
	FamilyName = "name.familyName"
	GivenName  = "name.givenName"
	Active     = "active"
)

var knownFields = map[string]bool{
	ID: true, ExternalID: true, UserName: true, FamilyName: true, GivenName: true, Active: true,
}

// Op is a SCIM comparison operator.
type Op string

// Comparison operators.
const (
	OpEq Op = "eq"
	OpNe Op = "ne"
	OpGt Op = "gt"
	OpGe Op = "ge"
	OpLt Op = "lt"
	OpLe Op = "le"
	OpPr Op = "pr"
)

type kind int

const (
	kindLeaf kind = iota
	kindAnd
	kindOr
	kindNot
)

// Expr is a filter expression node.
type Expr struct {
	kind     kind
	field    string
	op       Op
	value    any
	children []Expr
}

// Field starts an expression on name. Used bare it is a presence test.
func Field(name string) Expr {
	return Expr{kind: kindLeaf, field: name, op: OpPr}
}

// Eq compares the field for equality with v.
func (e Expr) Eq(v any) Expr { return e.compare(OpEq, v) }

// Ne compares the field for inequality with v.
func (e Expr) Ne(v any) Expr { return e.compare(OpNe, v) }

// Gt compares the field with v.
func (e Expr) Gt(v any) Expr { return e.compare(OpGt, v) }

// Ge compares the field with v.
func (e Expr) Ge(v any) Expr { return e.compare(OpGe, v) }

// Lt compares the field with v.
func (e Expr) Lt(v any) Expr { return e.compare(OpLt, v) }

// Le compares the field with v.
func (e Expr) Le(v any) Expr { return e.compare(OpLe, v) }

// Present is an explicit presence test.
func (e Expr) Present() Expr { return e.compare(OpPr, nil) }

func (e Expr) compare(op Op, v any) Expr {
	return Expr{kind: kindLeaf, field: e.field, op: op, value: v}
}

// And joins e and others with "and".
func (e Expr) And(others ...Expr) Expr { return And(append([]Expr{e}, others...)...) }

// Or joins e and others with "or".
func (e Expr) Or(others ...Expr) Expr { return Or(append([]Expr{e}, others...)...) }

// And joins exprs with "and". A single expression is returned unchanged.
func And(exprs ...Expr) Expr { return join(kindAnd, exprs) }

// Or joins exprs with "or". A single expression is returned unchanged.
func Or(exprs ...Expr) Expr { return join(kindOr, exprs) }

// Not negates e. Not(Not(x)) is x.
func Not(e Expr) Expr {
	if e.kind == kindNot {
		return e.children[0]
	}

	return Expr{kind: kindNot, children: []Expr{e}}
}

func join(k kind, exprs []Expr) Expr {
	if len(exprs) == 1 {
		return exprs[0]
	}

	flat := make([]Expr, 0, len(exprs))
	for _, c := range exprs {
		if c.kind == k {
			flat = append(flat, c.children...)
			continue
		}

		flat = append(flat, c)
	}

	return Expr{kind: k, children: flat}
}

// IsZero reports whether e is the zero Expr, meaning no filter.
func (e Expr) IsZero() bool {
	return e.kind == kindLeaf && e.field == "" && e.children == nil
}

// Render serializes e to the SCIM filter grammar.
func (e Expr) Render() (string, error) {
	n, err := normalize(e, false)
	if err != nil {
		return "", err
	}

	return render(n), nil
}

// String renders e, or a description of the error for invalid expressions.
func (e Expr) String() string {
	s, err := e.Render()
	if err != nil {
		return fmt.Sprintf("<invalid filter: %v>", err)
	}

	return s
}

// normalize validates fields and eliminates Not nodes, leaving only leaves
// combined with And and Or.
func normalize(e Expr, negated bool) (Expr, error) {
	switch e.kind {
	case kindNot:
		return normalize(e.children[0], !negated)

	case kindAnd, kindOr:
		k := e.kind
		if negated {
			k = flip(k)
		}

		children := make([]Expr, 0, len(e.children))
		for _, c := range e.children {
			n, err := normalize(c, negated)
			if err != nil {
				return Expr{}, err
			}

			children = append(children, n)
		}

		return join(k, children), nil

	default:
		return normalizeLeaf(e, negated)
	}
}

func normalizeLeaf(e Expr, negated bool) (Expr, error) {
	if !knownFields[e.field] {
		return Expr{}, fmt.Errorf("%w: %q", ErrUnknownField, e.field)
	}

	if e.op == OpPr && e.field == Active {
		e = Expr{kind: kindLeaf, field: Active, op: OpEq, value: true}
	}

	if !negated {
		return e, nil
	}

	switch e.op {
	case OpPr:
		return Expr{kind: kindLeaf, field: e.field, op: OpEq, value: nil}, nil
	case OpEq:
		if b, ok := e.value.(bool); ok {
			return Expr{kind: kindLeaf, field: e.field, op: OpEq, value: !b}, nil
		}

		if e.value == nil {
			return Expr{kind: kindLeaf, field: e.field, op: OpPr}, nil
		}

		return Expr{kind: kindLeaf, field: e.field, op: OpNe, value: e.value}, nil
	case OpNe:
		return Expr{kind: kindLeaf, field: e.field, op: OpEq, value: e.value}, nil
	default:
		return Expr{}, fmt.Errorf("%w: not (%s %s ...)", ErrUnsupportedNegation, e.field, e.op)
	}
}

func flip(k kind) kind {
	if k == kindAnd {
		return kindOr
	}

	return kindAnd
}

func render(e Expr) string {
	if e.kind == kindLeaf {
		if e.op == OpPr {
			return e.field + " pr"
		}

		return e.field + " " + string(e.op) + " " + literal(e.value)
	}

	sep := " and "
	if e.kind == kindOr {
		sep = " or "
	}

	parts := make([]string, 0, len(e.children))
	for _, c := range e.children {
		s := render(c)
		if c.kind != kindLeaf && c.kind != e.kind {
			s = "(" + s + ")"
		}

		parts = append(parts, s)
	}

	return strings.Join(parts, sep)
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return quote(x)
	default:
		return quote(fmt.Sprint(x))
	}
}

// quote renders s as a JSON string literal without HTML escaping.
func quote(s string) string {
	var b strings.Builder

	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // encoding a string cannot fail

	return strings.TrimSuffix(b.String(), "\n")
}
