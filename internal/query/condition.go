// Package query implements the declarative condition language used to
// filter catalog records.
//
// A condition is either a literal (equality) or an operator object
// ($regex, $lt, $lte, $gt, $gte, $ne, $in, $nin, $and, $or), recursively
// composable. Conditions are parsed once into a closed tree so malformed
// operators fail when a query is built, not while records are matched.
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"aircheck/internal/timeparse"
)

var (
	// ErrUnsupportedPattern means an anchored pattern was supplied to the
	// substring operator, which only supports plain substring search.
	ErrUnsupportedPattern = errors.New("unsupported pattern")

	// ErrInvalidShape means an operator's operand has the wrong shape,
	// e.g. an unknown $-key or a non-list operand where a list is required.
	ErrInvalidShape = errors.New("invalid query shape")
)

// Condition is a compiled predicate over a single field value.
type Condition interface {
	// Match evaluates the condition against a field value. Value-level
	// type mismatches (e.g. ordering a string against a number) evaluate
	// to no-match; shape errors were rejected when the condition was built.
	Match(v any) bool

	// Raw returns the serializable operator form of the condition.
	// Timestamp operands are rendered in the canonical string form so a
	// saved query survives a JSON round trip.
	Raw() any
}

type eqCond struct{ want any }

func (c eqCond) Match(v any) bool { return looseEqual(v, c.want) }
func (c eqCond) Raw() any         { return rawValue(c.want) }

type regexCond struct{ substr string }

func (c regexCond) Match(v any) bool {
	s, ok := v.(string)
	return ok && strings.Contains(s, c.substr)
}
func (c regexCond) Raw() any { return map[string]any{"$regex": c.substr} }

type cmpCond struct {
	op   string // "$lt", "$lte", "$gt", "$gte", "$ne"
	want any
}

func (c cmpCond) Match(v any) bool {
	if c.op == "$ne" {
		return !looseEqual(v, c.want)
	}
	d, ok := compare(v, c.want)
	if !ok {
		return false
	}
	switch c.op {
	case "$lt":
		return d < 0
	case "$lte":
		return d <= 0
	case "$gt":
		return d > 0
	default:
		return d >= 0
	}
}
func (c cmpCond) Raw() any { return map[string]any{c.op: rawValue(c.want)} }

// inCond tests whether the query operand occurs in the field value treated
// as a list; a scalar field value is coerced to a single-element list.
// Note the direction: the operand is the needle, the field is the haystack.
type inCond struct {
	want   any
	negate bool
}

func (c inCond) Match(v any) bool {
	found := false
	for _, e := range toList(v) {
		if looseEqual(e, c.want) {
			found = true
			break
		}
	}
	return found != c.negate
}

func (c inCond) Raw() any {
	op := "$in"
	if c.negate {
		op = "$nin"
	}
	return map[string]any{op: rawValue(c.want)}
}

type boolCond struct {
	any   bool // OR when set, AND otherwise
	conds []Condition
}

func (c boolCond) Match(v any) bool {
	for _, sub := range c.conds {
		if sub.Match(v) == c.any {
			return c.any
		}
	}
	return !c.any
}

func (c boolCond) Raw() any {
	raws := make([]any, len(c.conds))
	for i, sub := range c.conds {
		raws[i] = sub.Raw()
	}
	op := "$and"
	if c.any {
		op = "$or"
	}
	return map[string]any{op: raws}
}

// Constructors for building conditions programmatically.

// Eq matches a field equal to v.
func Eq(v any) Condition { return eqCond{want: v} }

// Regex matches a text field containing substr anywhere. Anchors are not
// supported; use Parse for the fallible form.
func Regex(substr string) Condition { return regexCond{substr: substr} }

// Lt matches a field strictly less than v.
func Lt(v any) Condition { return cmpCond{op: "$lt", want: v} }

// Lte matches a field less than or equal to v.
func Lte(v any) Condition { return cmpCond{op: "$lte", want: v} }

// Gt matches a field strictly greater than v.
func Gt(v any) Condition { return cmpCond{op: "$gt", want: v} }

// Gte matches a field greater than or equal to v.
func Gte(v any) Condition { return cmpCond{op: "$gte", want: v} }

// Ne matches a field not equal to v.
func Ne(v any) Condition { return cmpCond{op: "$ne", want: v} }

// In matches when v occurs in the field value treated as a list.
func In(v any) Condition { return inCond{want: v} }

// Nin is the negation of In.
func Nin(v any) Condition { return inCond{want: v, negate: true} }

// And matches when every sub-condition matches.
func And(conds ...Condition) Condition { return boolCond{conds: conds} }

// Or matches when any sub-condition matches.
func Or(conds ...Condition) Condition { return boolCond{any: true, conds: conds} }

// Parse compiles a raw condition value into a Condition. A mapping with
// $-keys is an operator object; any other value is a literal equality test.
func Parse(raw any) (Condition, error) {
	m, ok := raw.(map[string]any)
	if !ok || !hasOperatorKey(m) {
		return eqCond{want: raw}, nil
	}
	conds := make([]Condition, 0, len(m))
	for op, operand := range m {
		c, err := parseOperator(op, operand)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return boolCond{conds: conds}, nil
}

func parseOperator(op string, operand any) (Condition, error) {
	switch op {
	case "$regex":
		s, ok := operand.(string)
		if !ok {
			return nil, fmt.Errorf("%w: $regex operand is %T, want string", ErrInvalidShape, operand)
		}
		if strings.HasPrefix(s, "^") || strings.HasSuffix(s, "$") {
			return nil, fmt.Errorf("%w: anchors are not supported: %q", ErrUnsupportedPattern, s)
		}
		return regexCond{substr: s}, nil
	case "$lt", "$lte", "$gt", "$gte", "$ne":
		return cmpCond{op: op, want: operand}, nil
	case "$in":
		return inCond{want: operand}, nil
	case "$nin":
		return inCond{want: operand, negate: true}, nil
	case "$and", "$or":
		conds, err := parseConditionList(op, operand)
		if err != nil {
			return nil, err
		}
		return boolCond{any: op == "$or", conds: conds}, nil
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidShape, op)
	}
}

// parseConditionList coerces a single non-list operand to a one-element list.
func parseConditionList(op string, operand any) ([]Condition, error) {
	var raws []any
	switch l := operand.(type) {
	case []any:
		raws = l
	case []Condition:
		return l, nil
	case nil:
		return nil, fmt.Errorf("%w: %s operand is nil", ErrInvalidShape, op)
	default:
		raws = []any{operand}
	}
	conds := make([]Condition, 0, len(raws))
	for _, raw := range raws {
		c, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return conds, nil
}

func hasOperatorKey(m map[string]any) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

// rawValue converts an operand to its serializable form: timestamps become
// canonical strings (minute precision), lists are converted element-wise.
func rawValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(timeparse.Layout)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = rawValue(e)
		}
		return out
	}
	return v
}

// asList reports whether v is a list, without the scalar coercion toList does.
func asList(v any) ([]any, bool) {
	switch v.(type) {
	case []any, []string:
		return toList(v), true
	}
	return nil, false
}

func toList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	case nil:
		return nil
	default:
		return []any{v}
	}
}

// looseEqual compares two values across the numeric representations that
// raw mappings produce (int, int64, float64), time values and lists.
func looseEqual(a, b any) bool {
	if al, ok := asList(a); ok {
		bl, ok := asList(b)
		if !ok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !looseEqual(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
		return false
	}
	if an, ok := asFloat(a); ok {
		bn, ok := asFloat(b)
		return ok && an == bn
	}
	return a == b
}

// compare orders two values of a shared orderable kind: numbers, strings
// or timestamps. The second result is false when they are not comparable.
func compare(a, b any) (int, bool) {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}
	if an, ok := asFloat(a); ok {
		bn, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		}
		return 0, true
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
