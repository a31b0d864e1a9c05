// Package rules builds goform validate functions from small combinators:
// conditions on other fields, cross-field equality and collection checks.
package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/reoring/goform"
	"github.com/reoring/goform/fieldpath"
	"github.com/reoring/goform/internal/deep"
)

// Op defines simple comparison operators for If(...).Then(...)
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Conditional composes conditional execution of validators.
type Conditional struct {
	path string
	op   Op
	want any
	all  []Conditional // composite AND
	any  []Conditional // composite OR
}

// If builds a conditional comparing the value at path (in the form values)
// against want.
func If(path string, op Op, want any) Conditional {
	return Conditional{path: fieldpath.Normalize(path), op: op, want: want}
}

// IfAll builds a conditional that requires all conditions to hold.
func IfAll(conds ...Conditional) Conditional { return Conditional{all: conds} }

// IfAny builds a conditional that requires any condition to hold.
func IfAny(conds ...Conditional) Conditional { return Conditional{any: conds} }

// And combines the receiver with additional conditions using logical AND.
func (c Conditional) And(others ...Conditional) Conditional {
	return IfAll(append([]Conditional{c}, others...)...)
}

// Or combines the receiver with additional conditions using logical OR.
func (c Conditional) Or(others ...Conditional) Conditional {
	return IfAny(append([]Conditional{c}, others...)...)
}

// Holds evaluates the condition against a value tree.
func (c Conditional) Holds(values map[string]any) bool {
	if len(c.all) > 0 {
		for _, it := range c.all {
			if !it.Holds(values) {
				return false
			}
		}
		return true
	}
	if len(c.any) > 0 {
		for _, it := range c.any {
			if it.Holds(values) {
				return true
			}
		}
		return false
	}
	cur, ok := fieldpath.Get(values, c.path)
	if !ok {
		return false
	}
	return compare(cur, c.op, c.want)
}

// Then runs the validators when the condition holds; otherwise the field passes.
func (c Conditional) Then(validators ...goform.ValidateFunc) goform.ValidateFunc {
	return func(ctx context.Context, v any, values map[string]any) (any, error) {
		if !c.Holds(values) {
			return true, nil
		}
		return And(validators...)(ctx, v, values)
	}
}

// RequiredIf fails with msg when the condition holds and the value is empty.
func RequiredIf(c Conditional, msg string) goform.ValidateFunc {
	return c.Then(func(_ context.Context, v any, _ map[string]any) (any, error) {
		if deep.IsEmpty(v) {
			return failure(msg), nil
		}
		return true, nil
	})
}

// EqualTo fails with msg unless the value equals the value at path, as in a
// password confirmation.
func EqualTo(path, msg string) goform.ValidateFunc {
	p := fieldpath.Normalize(path)
	return func(_ context.Context, v any, values map[string]any) (any, error) {
		if deep.Equal(v, fieldpath.Value(values, p)) {
			return true, nil
		}
		return failure(msg), nil
	}
}

// OneOf fails with msg unless the value equals one of allowed.
func OneOf(msg string, allowed ...any) goform.ValidateFunc {
	return func(_ context.Context, v any, _ map[string]any) (any, error) {
		if v == nil || v == "" {
			return true, nil
		}
		for _, a := range allowed {
			if deep.Equal(v, a) {
				return true, nil
			}
		}
		return failure(msg), nil
	}
}

// AtLeastOne ensures the field value is a collection with at least one element.
func AtLeastOne(msg string) goform.ValidateFunc {
	if msg == "" {
		msg = "at least 1 item is required"
	}
	return func(_ context.Context, v any, _ map[string]any) (any, error) {
		if n, ok := deep.Len(v); ok && n > 0 {
			return true, nil
		}
		if _, isStr := v.(string); isStr {
			return true, nil
		}
		return msg, nil
	}
}

// UniqueBy ensures the elements of the field value have unique values at
// keyPath, a path relative to each element ("" compares whole elements).
// Prefer a comparable key type such as string: keys are compared by their
// printed form.
func UniqueBy(keyPath, msg string) goform.ValidateFunc {
	kp := fieldpath.Normalize(strings.TrimPrefix(keyPath, "/"))
	if msg == "" {
		msg = "duplicate value"
	}
	return func(_ context.Context, v any, _ map[string]any) (any, error) {
		items, ok := v.([]any)
		if !ok {
			return true, nil
		}
		seen := map[string]int{}
		for i, elem := range items {
			kv, ok := fieldpath.Get(elem, kp)
			if !ok || kv == nil {
				continue
			}
			key := fmt.Sprint(kv)
			if _, dup := seen[key]; dup {
				return msg, nil
			}
			seen[key] = i
		}
		return true, nil
	}
}

// And runs every validator and fails with the first failure.
func And(validators ...goform.ValidateFunc) goform.ValidateFunc {
	return func(ctx context.Context, v any, values map[string]any) (any, error) {
		for _, fn := range validators {
			if fn == nil {
				continue
			}
			res, err := fn(ctx, v, values)
			if err != nil {
				return nil, err
			}
			if failed(res) {
				return res, nil
			}
		}
		return true, nil
	}
}

// Or passes when any validator passes. When all fail it returns the last failure.
func Or(validators ...goform.ValidateFunc) goform.ValidateFunc {
	return func(ctx context.Context, v any, values map[string]any) (any, error) {
		var last any = true
		for _, fn := range validators {
			if fn == nil {
				continue
			}
			res, err := fn(ctx, v, values)
			if err != nil {
				return nil, err
			}
			if !failed(res) {
				return true, nil
			}
			last = res
		}
		return last, nil
	}
}

// ------- helpers -------

// failure returns msg, or false when there is no message.
func failure(msg string) any {
	if msg == "" {
		return false
	}
	return msg
}

func failed(res any) bool {
	switch r := res.(type) {
	case bool:
		return !r
	case string:
		return r != ""
	case []any:
		for _, x := range r {
			if failed(x) {
				return true
			}
		}
	}
	return false
}

func compare(cur any, op Op, want any) bool {
	switch op {
	case Eq:
		return deep.Equal(cur, want)
	case Ne:
		return !deep.Equal(cur, want)
	case Lt, Le, Gt, Ge:
		return compareOrdered(cur, op, want)
	default:
		return false
	}
}

func compareOrdered(cur any, op Op, want any) bool {
	a, okA := deep.Number(cur)
	b, okB := deep.Number(want)
	if !okA || !okB {
		da, okA := deep.Date(cur)
		db, okB := deep.Date(want)
		if !okA || !okB {
			return false
		}
		a, b = float64(da.UnixNano()), float64(db.UnixNano())
	}
	switch op {
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	}
	return false
}
