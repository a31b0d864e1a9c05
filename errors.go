package goform

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/reoring/goform/fieldpath"
	"github.com/reoring/goform/internal/deep"
)

// FieldError is the validation failure recorded for one field. Types collects
// every failing rule when the form runs in CriteriaAll mode.
type FieldError struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Types   map[string]string `json:"types,omitempty"`
}

// Error implements error.
func (e *FieldError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Type
}

func (e *FieldError) clone() *FieldError {
	if e == nil {
		return nil
	}
	out := &FieldError{Type: e.Type, Message: e.Message}
	if len(e.Types) > 0 {
		out.Types = make(map[string]string, len(e.Types))
		for k, v := range e.Types {
			out.Types[k] = v
		}
	}
	return out
}

func (e *FieldError) equal(o *FieldError) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Type != o.Type || e.Message != o.Message || len(e.Types) != len(o.Types) {
		return false
	}
	for k, v := range e.Types {
		if w, ok := o.Types[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// ErrorTree is a read-only copy of the form errors, nested by path.
type ErrorTree struct {
	root map[string]any
}

func newErrorTree(root map[string]any) ErrorTree { return ErrorTree{root: cloneErrors(root)} }

// ErrorsFromMap builds an ErrorTree from errors keyed by path.
func ErrorsFromMap(m map[string]*FieldError) ErrorTree {
	root := map[string]any{}
	for p, e := range m {
		if e != nil {
			fieldpath.Set(root, p, e.clone())
		}
	}
	return ErrorTree{root: root}
}

// Get returns the error recorded exactly at path.
func (t ErrorTree) Get(path string) *FieldError {
	v, _ := fieldpath.Get(t.root, path)
	fe, _ := v.(*FieldError)
	return fe
}

// Has reports whether path or anything below it has an error.
func (t ErrorTree) Has(path string) bool {
	v, ok := fieldpath.Get(t.root, path)
	return ok && hasError(v)
}

// Len returns the number of field errors.
func (t ErrorTree) Len() int { return len(t.Flatten()) }

// Empty reports whether there are no errors.
func (t ErrorTree) Empty() bool { return !hasError(t.root) }

// Flatten returns the errors keyed by canonical path.
func (t ErrorTree) Flatten() map[string]*FieldError {
	out := map[string]*FieldError{}
	walkErrors(t.root, nil, func(segs []fieldpath.Segment, e *FieldError) {
		out[fieldpath.Join(segs)] = e
	})
	return out
}

// Paths returns the paths with errors in sorted order.
func (t ErrorTree) Paths() []string {
	m := t.Flatten()
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the flattened errors.
func (t ErrorTree) MarshalJSON() ([]byte, error) { return json.Marshal(t.Flatten()) }

func (t ErrorTree) String() string {
	var b strings.Builder
	for i, p := range t.Paths() {
		if i > 0 {
			b.WriteString("; ")
		}
		e := t.Get(p)
		fmt.Fprintf(&b, "%s at %s", e.Type, p)
	}
	return b.String()
}

func hasError(v any) bool {
	switch t := v.(type) {
	case *FieldError:
		return t != nil
	case map[string]any:
		for _, x := range t {
			if hasError(x) {
				return true
			}
		}
	case []any:
		for _, x := range t {
			if hasError(x) {
				return true
			}
		}
	}
	return false
}

func walkErrors(v any, segs []fieldpath.Segment, fn func([]fieldpath.Segment, *FieldError)) {
	switch t := v.(type) {
	case *FieldError:
		if t != nil {
			fn(append([]fieldpath.Segment(nil), segs...), t)
		}
	case map[string]any:
		for k, x := range t {
			walkErrors(x, append(segs, fieldpath.Key(k)), fn)
		}
	case []any:
		for i, x := range t {
			walkErrors(x, append(segs, fieldpath.Index(i)), fn)
		}
	}
}

func cloneErrors(v map[string]any) map[string]any {
	out, _ := cloneErrorNode(v).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

func cloneErrorNode(v any) any {
	switch t := v.(type) {
	case *FieldError:
		return t.clone()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = cloneErrorNode(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneErrorNode(x)
		}
		return out
	default:
		return deep.Clone(v)
	}
}

func errorNodesEqual(a, b any) bool {
	switch at := a.(type) {
	case *FieldError:
		bt, ok := b.(*FieldError)
		return ok && at.equal(bt)
	case map[string]any:
		bt, ok := b.(map[string]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, x := range at {
			if !errorNodesEqual(x, bt[k]) {
				return false
			}
		}
		return true
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !errorNodesEqual(at[i], bt[i]) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

// UsageCode classifies a usage error.
type UsageCode string

const (
	// CodeUnregisteredField reports an operation on a path no field is registered at.
	CodeUnregisteredField UsageCode = "UNREGISTERED_FIELD"
	// CodeMalformedPath reports an empty or unusable path.
	CodeMalformedPath UsageCode = "MALFORMED_PATH"
	// CodeNotArray reports an array operation on a non-array value.
	CodeNotArray UsageCode = "NOT_AN_ARRAY"
	// CodeArrayInvariant reports keys, values and dirty state out of step.
	CodeArrayInvariant UsageCode = "ARRAY_INVARIANT"
	// CodeValidatorFailed reports a validate function returning an error.
	CodeValidatorFailed UsageCode = "VALIDATOR_FAILED"
	// CodeValidatorPanic reports a validate function panicking.
	CodeValidatorPanic UsageCode = "VALIDATOR_PANIC"
	// CodeResolverFailed reports a resolver returning an error or panicking.
	CodeResolverFailed UsageCode = "RESOLVER_FAILED"
	// CodeCallbackPanic reports a subscriber callback panicking.
	CodeCallbackPanic UsageCode = "CALLBACK_PANIC"
	// CodeDefaultsFailed reports a failure loading asynchronous default values.
	CodeDefaultsFailed UsageCode = "DEFAULTS_FAILED"
)

// UsageError is a non-fatal diagnostic for a misuse of the form API or a
// misbehaving collaborator. It is reported through the diagnostic channel and
// never returned from form operations.
type UsageError struct {
	Code UsageCode
	Op   string
	Path string
	Err  error
}

func (e *UsageError) Error() string {
	var b strings.Builder
	b.WriteString("goform: ")
	b.WriteString(e.Op)
	if e.Path != "" {
		fmt.Fprintf(&b, " %q", e.Path)
	}
	fmt.Fprintf(&b, ": %s", e.Code)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *UsageError) Unwrap() error { return e.Err }

// AsUsageError extracts a UsageError using errors.As.
func AsUsageError(err error) (*UsageError, bool) {
	var ue *UsageError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
