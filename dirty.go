package goform

import (
	"sort"

	json "github.com/goccy/go-json"

	"github.com/reoring/goform/fieldpath"
	"github.com/reoring/goform/internal/arrayops"
	"github.com/reoring/goform/internal/deep"
)

// FieldSet is a read-only copy of a boolean state tree (dirty, touched or
// validating fields).
type FieldSet struct {
	root map[string]any
}

func newFieldSet(root map[string]any) FieldSet { return FieldSet{root: deep.CloneMap(root)} }

// Has reports whether path or anything below it is set.
func (s FieldSet) Has(path string) bool {
	v, ok := fieldpath.Get(s.root, path)
	return ok && anyTrue(v)
}

// Paths returns the set leaves in sorted order.
func (s FieldSet) Paths() []string {
	var out []string
	walkTrue(s.root, nil, func(segs []fieldpath.Segment) {
		out = append(out, fieldpath.Join(segs))
	})
	sort.Strings(out)
	return out
}

// Len returns the number of set leaves.
func (s FieldSet) Len() int { return len(s.Paths()) }

// Tree returns a copy of the nested tree. Array subtrees of the dirty tree are
// as long as the value arrays they describe.
func (s FieldSet) Tree() map[string]any { return deep.CloneMap(s.root) }

// MarshalJSON encodes the nested tree.
func (s FieldSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.root) }

func anyTrue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case map[string]any:
		for _, x := range t {
			if anyTrue(x) {
				return true
			}
		}
	case []any:
		for _, x := range t {
			if anyTrue(x) {
				return true
			}
		}
	}
	return false
}

func walkTrue(v any, segs []fieldpath.Segment, fn func([]fieldpath.Segment)) {
	switch t := v.(type) {
	case bool:
		if t {
			fn(append([]fieldpath.Segment(nil), segs...))
		}
	case map[string]any:
		for k, x := range t {
			walkTrue(x, append(segs, fieldpath.Key(k)), fn)
		}
	case []any:
		for i, x := range t {
			walkTrue(x, append(segs, fieldpath.Index(i)), fn)
		}
	}
}

// dirtyTree compares val against def. It returns nil when they are equal, true
// for a differing leaf, or a container mirroring val's shape. Array results have
// one slot per value element.
func dirtyTree(def, val any) any {
	switch v := val.(type) {
	case map[string]any:
		d, _ := def.(map[string]any)
		out := map[string]any{}
		for k, x := range v {
			if c := dirtyTree(d[k], x); c != nil {
				out[k] = c
			}
		}
		for k, y := range d {
			if _, ok := v[k]; !ok && y != nil {
				out[k] = true
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		d, _ := def.([]any)
		out := make([]any, len(v))
		found := false
		for i, x := range v {
			var dx any
			if i < len(d) {
				dx = d[i]
			}
			if c := dirtyTree(dx, x); c != nil {
				out[i] = c
				found = true
			}
		}
		if !found {
			// a shorter or longer array differs even when every shared slot matches
			if len(v) != len(d) || (d == nil && def != nil) {
				return true
			}
			return nil
		}
		return out
	default:
		if deep.Equal(def, val) {
			return nil
		}
		return true
	}
}

// refreshDirtyLocked recomputes the dirty subtree at name and the aggregate
// isDirty flag.
func (f *Form) refreshDirtyLocked(o *op, name string) {
	old := deep.Clone(fieldpath.Value(f.dirty, name))
	nd := dirtyTree(fieldpath.Value(f.defaults, name), fieldpath.Value(f.values, name))
	switch {
	case name == "":
		m, _ := nd.(map[string]any)
		if m == nil {
			m = map[string]any{}
		}
		f.dirty = m
	case nd == nil:
		fieldpath.Unset(f.dirty, name)
	default:
		fieldpath.Set(f.dirty, name, nd)
	}
	f.refreshArrayAncestorsLocked(o, name)
	f.alignDirtyLocked(name)
	if !deep.Equal(old, fieldpath.Value(f.dirty, name)) {
		o.mark(name, KeyDirtyFields)
	}
	f.refreshIsDirtyLocked(o)
}

// refreshArrayAncestorsLocked recomputes the dirty subtree of every array above
// name whose length differs from its default, or whose node is a bare marker.
// A write below such an array can neither set nor clear its marker.
func (f *Form) refreshArrayAncestorsLocked(o *op, name string) {
	segs := fieldpath.Parse(name)
	for i := len(segs) - 1; i >= 1; i-- {
		p := fieldpath.Join(segs[:i])
		vals, ok := fieldpath.Value(f.values, p).([]any)
		if !ok {
			continue
		}
		def := fieldpath.Value(f.defaults, p)
		d, _ := def.([]any)
		node := fieldpath.Value(f.dirty, p)
		if b, _ := node.(bool); !b && len(d) == len(vals) {
			continue
		}
		nd := dirtyTree(def, vals)
		if deep.Equal(node, nd) {
			continue
		}
		if nd == nil {
			fieldpath.Unset(f.dirty, p)
		} else {
			fieldpath.Set(f.dirty, p, nd)
		}
		o.mark(p, KeyDirtyFields)
	}
}

// alignDirtyLocked pads or truncates the dirty arrays on the way to name so
// each is as long as the value array at the same path.
func (f *Form) alignDirtyLocked(name string) {
	segs := fieldpath.Parse(name)
	for i := len(segs); i >= 1; i-- {
		p := fieldpath.Join(segs[:i])
		vals, ok := fieldpath.Value(f.values, p).([]any)
		if !ok {
			continue
		}
		d, ok := fieldpath.Value(f.dirty, p).([]any)
		if !ok || len(d) == len(vals) {
			continue
		}
		if padded := arrayops.Pad(d, len(vals)); fieldpath.IsEmptyContainer(padded) {
			fieldpath.Unset(f.dirty, p)
		} else {
			fieldpath.Set(f.dirty, p, padded)
		}
	}
}

func (f *Form) refreshIsDirtyLocked(o *op) {
	d := !deep.Equal(f.values, f.defaults)
	if d != f.isDirty {
		f.isDirty = d
		o.keys |= KeyIsDirty
	}
}
