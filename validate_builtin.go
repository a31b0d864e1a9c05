package goform

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/reoring/goform/internal/deep"
)

// evaluate runs the built-in rules of one field in order: required, min/max,
// minLength/maxLength, pattern, then the validate functions.
func (f *Form) evaluate(ctx context.Context, t target, values map[string]any) (*FieldError, []*UsageError) {
	e := &collector{all: f.opts.criteria == CriteriaAll, tr: f}
	r, v := t.opts, t.value

	if r.Required != nil && r.Required.Value && isEmptyValue(v) {
		if e.add(TypeRequired, r.Required.Message, nil) {
			return e.err, nil
		}
	}

	if !isEmptyValue(v) && (r.Min != nil || r.Max != nil) {
		if typ, msg, data, failed := checkRange(r, v); failed {
			if e.add(typ, msg, data) {
				return e.err, nil
			}
		}
	}

	if n, ok := deep.Len(v); ok && !isEmptyValue(v) {
		switch {
		case r.MaxLength != nil && n > r.MaxLength.Value:
			if e.add(TypeMaxLength, r.MaxLength.Message, map[string]string{"maxLength": strconv.Itoa(r.MaxLength.Value)}) {
				return e.err, nil
			}
		case r.MinLength != nil && n < r.MinLength.Value:
			if e.add(TypeMinLength, r.MinLength.Message, map[string]string{"minLength": strconv.Itoa(r.MinLength.Value)}) {
				return e.err, nil
			}
		}
	}

	if s, ok := v.(string); ok && s != "" && r.Pattern != nil && r.Pattern.Value != nil && !r.Pattern.Value.MatchString(s) {
		if e.add(TypePattern, r.Pattern.Message, nil) {
			return e.err, nil
		}
	}

	var diags []*UsageError
	runOne := func(typ string, fn ValidateFunc) bool {
		res, err := callValidator(ctx, fn, v, values)
		if err != nil {
			code := CodeValidatorFailed
			if _, ok := err.(panicError); ok {
				code = CodeValidatorPanic
			}
			diags = append(diags, &UsageError{Code: code, Op: "validate", Path: t.name, Err: err})
			return e.addGeneric(typ, f.genericMessage("validate_error"))
		}
		if failed, msg := interpretResult(res); failed {
			return e.add(typ, msg, nil)
		}
		return false
	}
	if r.Validate != nil && runOne(TypeValidate, r.Validate) {
		return e.err, diags
	}
	for _, vd := range r.Validators {
		typ := vd.Name
		if typ == "" {
			typ = TypeValidate
		}
		if vd.Fn != nil && runOne(typ, vd.Fn) {
			return e.err, diags
		}
	}
	return e.err, diags
}

// collector builds the FieldError of one field. add reports whether evaluation
// should stop.
type collector struct {
	all bool
	tr  *Form
	err *FieldError
}

func (c *collector) add(typ, msg string, data map[string]string) bool {
	if msg == "" && c.tr.opts.translator != nil {
		msg = c.tr.opts.translator.Message(typ, data)
	}
	return c.addGeneric(typ, msg)
}

func (c *collector) addGeneric(typ, msg string) bool {
	if c.err == nil {
		c.err = &FieldError{Type: typ, Message: msg}
	}
	if !c.all {
		return true
	}
	if c.err.Types == nil {
		c.err.Types = map[string]string{}
	}
	if _, ok := c.err.Types[typ]; !ok {
		c.err.Types[typ] = msg
	}
	return false
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("validator panic: %v", p.v) }

func callValidator(ctx context.Context, fn ValidateFunc, v any, values map[string]any) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{v: r}
		}
	}()
	return fn(ctx, v, values)
}

// interpretResult reads a validate function result: false or a non-empty
// string fails, slices fail when any element fails, anything else passes.
func interpretResult(res any) (bool, string) {
	switch r := res.(type) {
	case nil:
		return false, ""
	case bool:
		return !r, ""
	case string:
		return r != "", r
	case error:
		return true, r.Error()
	case *FieldError:
		if r == nil {
			return false, ""
		}
		return true, r.Message
	case []any:
		for _, x := range r {
			if failed, msg := interpretResult(x); failed {
				return true, msg
			}
		}
	case []string:
		for _, s := range r {
			if s != "" {
				return true, s
			}
		}
	case []bool:
		for _, b := range r {
			if !b {
				return true, ""
			}
		}
	}
	return false, ""
}

func isEmptyValue(v any) bool {
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return true
	}
	return deep.IsEmpty(v)
}

// checkRange applies min and max. Numeric bounds compare numerically, other
// bounds compare as dates.
func checkRange(r RegisterOptions, v any) (typ, msg string, data map[string]string, failed bool) {
	if n, ok := deep.Coerce(v); ok && !isDateBound(r) {
		if r.Max != nil {
			if bound, ok := deep.Coerce(r.Max.Value); ok && n > bound {
				return TypeMax, r.Max.Message, map[string]string{"max": fmt.Sprint(r.Max.Value)}, true
			}
		}
		if r.Min != nil {
			if bound, ok := deep.Coerce(r.Min.Value); ok && n < bound {
				return TypeMin, r.Min.Message, map[string]string{"min": fmt.Sprint(r.Min.Value)}, true
			}
		}
		return "", "", nil, false
	}
	d, ok := deep.Date(v)
	if !ok {
		return "", "", nil, false
	}
	if r.Max != nil {
		if bound, ok := deep.Date(r.Max.Value); ok && d.After(bound) {
			return TypeMax, r.Max.Message, map[string]string{"max": bound.Format(time.RFC3339)}, true
		}
	}
	if r.Min != nil {
		if bound, ok := deep.Date(r.Min.Value); ok && d.Before(bound) {
			return TypeMin, r.Min.Message, map[string]string{"min": bound.Format(time.RFC3339)}, true
		}
	}
	return "", "", nil, false
}

func isDateBound(r RegisterOptions) bool {
	for _, b := range []*Rule[any]{r.Min, r.Max} {
		if b == nil {
			continue
		}
		if _, ok := deep.Number(b.Value); ok {
			return false
		}
		if _, ok := deep.Date(b.Value); ok {
			return true
		}
	}
	return false
}
