package goform

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/reoring/goform/fieldpath"
	"github.com/reoring/goform/internal/arrayops"
	"github.com/reoring/goform/internal/deep"
)

type arrayState struct {
	keys []string
}

// ArrayItem is one element of a field array together with its stable key.
type ArrayItem struct {
	Key   string
	Index int
	Value any
}

// FieldArray manipulates the array value at one path. Every operation commits
// atomically against the state current at the time it runs, so operations
// issued concurrently compose in whatever order they acquire the form.
type FieldArray struct {
	form *Form
	name string
}

// FieldArray returns the array handle for path.
func (f *Form) FieldArray(path string) *FieldArray {
	return &FieldArray{form: f, name: fieldpath.Normalize(path)}
}

// Name returns the array path.
func (a *FieldArray) Name() string { return a.name }

// Fields returns the elements with their keys.
func (a *FieldArray) Fields() []ArrayItem {
	f := a.form
	f.mu.Lock()
	defer f.mu.Unlock()
	vals, _ := arrayValue(f.values, a.name)
	keys := f.keysLocked(a.name, len(vals))
	out := make([]ArrayItem, len(vals))
	for i, v := range vals {
		out[i] = ArrayItem{Key: keys[i], Index: i, Value: deep.Clone(v)}
	}
	return out
}

// Keys returns the element keys in order.
func (a *FieldArray) Keys() []string {
	f := a.form
	f.mu.Lock()
	defer f.mu.Unlock()
	vals, _ := arrayValue(f.values, a.name)
	return f.keysLocked(a.name, len(vals))
}

// ArrayOption tunes focus after Append, Prepend and Insert. By default the
// first field of the new element is focused once it is registered.
type ArrayOption func(*arrayFocus)

type arrayFocus struct {
	skip  bool
	index int
	name  string
	set   bool
}

// NoFocus disables focusing the new element.
func NoFocus() ArrayOption { return func(o *arrayFocus) { o.skip = true } }

// FocusIndex focuses the element at i instead of the new one.
func FocusIndex(i int) ArrayOption {
	return func(o *arrayFocus) { o.index, o.set = i, true }
}

// FocusName focuses the named field inside the element.
func FocusName(name string) ArrayOption { return func(o *arrayFocus) { o.name = name } }

// Append adds value at the end. A []any value appends each of its elements.
func (a *FieldArray) Append(ctx context.Context, value any, opts ...ArrayOption) {
	items := asItems(value)
	a.apply(ctx, "append", func(vals []any) arrayEdit {
		return insertEdit(vals, len(vals), items)
	}, opts)
}

// Prepend adds value at the start.
func (a *FieldArray) Prepend(ctx context.Context, value any, opts ...ArrayOption) {
	items := asItems(value)
	a.apply(ctx, "prepend", func(vals []any) arrayEdit {
		return insertEdit(vals, 0, items)
	}, opts)
}

// Insert adds value at index, clamped to the array bounds.
func (a *FieldArray) Insert(ctx context.Context, index int, value any, opts ...ArrayOption) {
	items := asItems(value)
	a.apply(ctx, "insert", func(vals []any) arrayEdit {
		return insertEdit(vals, arrayops.Clamp(index, len(vals)), items)
	}, opts)
}

// Remove deletes the elements at indices; with no indices it removes every
// element. Out-of-range indices are ignored.
func (a *FieldArray) Remove(ctx context.Context, indices ...int) {
	a.apply(ctx, "remove", func(vals []any) arrayEdit {
		return removeEdit(vals, indices)
	}, nil)
}

// RemoveKeys deletes the elements with the given keys. Keys are resolved when
// the operation commits, so it is unaffected by reordering since they were read.
func (a *FieldArray) RemoveKeys(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	a.apply(ctx, "remove", func(vals []any) arrayEdit {
		want := make(map[string]bool, len(keys))
		for _, k := range keys {
			want[k] = true
		}
		current := a.form.keysLocked(a.name, len(vals))
		idx := []int{}
		for i, k := range current {
			if want[k] {
				idx = append(idx, i)
			}
		}
		if len(idx) == 0 {
			return arrayEdit{values: vals, origin: identity(len(vals)), inserted: -1, replaced: -1}
		}
		return removeEdit(vals, idx)
	}, nil)
}

// Swap exchanges the elements at i and j.
func (a *FieldArray) Swap(ctx context.Context, i, j int) {
	a.apply(ctx, "swap", func(vals []any) arrayEdit {
		return arrayEdit{values: arrayops.Swap(vals, i, j), origin: arrayops.Swap(identity(len(vals)), i, j), inserted: -1, replaced: -1}
	}, nil)
}

// Move relocates the element at from to position to.
func (a *FieldArray) Move(ctx context.Context, from, to int) {
	a.apply(ctx, "move", func(vals []any) arrayEdit {
		return arrayEdit{values: arrayops.Move(vals, from, to), origin: arrayops.Move(identity(len(vals)), from, to), inserted: -1, replaced: -1}
	}, nil)
}

// Update replaces the element at index, keeping its key. An index past the
// end appends.
func (a *FieldArray) Update(ctx context.Context, index int, value any) {
	v := deep.Clone(value)
	a.apply(ctx, "update", func(vals []any) arrayEdit {
		at := max(index, 0)
		if at >= len(vals) {
			e := insertEdit(vals, len(vals), []any{v})
			e.inserted = -1
			return e
		}
		out := append([]any(nil), vals...)
		out[at] = v
		return arrayEdit{values: out, origin: identity(len(vals)), inserted: -1, replaced: at}
	}, nil)
}

// Replace swaps the whole array for values. Every element gets a new key and
// the errors and touched state of the array are cleared.
func (a *FieldArray) Replace(ctx context.Context, values []any) {
	items := asItems(values)
	a.apply(ctx, "replace", func([]any) arrayEdit {
		return arrayEdit{values: items, origin: arrayops.Fill(len(items), -1), inserted: -1, replaced: -1}
	}, nil)
}

// arrayEdit describes the outcome of an array operation: the new values, the
// origin of each new position (an old index or -1 for a new element), the
// index of the first inserted element and the index whose element was
// replaced in place (-1 when not applicable).
type arrayEdit struct {
	values   []any
	origin   []int
	inserted int
	replaced int
}

func insertEdit(vals []any, at int, items []any) arrayEdit {
	return arrayEdit{
		values:   arrayops.Insert(vals, at, items...),
		origin:   arrayops.Insert(identity(len(vals)), at, arrayops.Fill(len(items), -1)...),
		inserted: at,
		replaced: -1,
	}
}

func removeEdit(vals []any, indices []int) arrayEdit {
	return arrayEdit{
		values:   arrayops.Remove(vals, indices...),
		origin:   arrayops.Remove(identity(len(vals)), indices...),
		inserted: -1,
		replaced: -1,
	}
}

// apply runs one array operation against the state current at commit time.
func (a *FieldArray) apply(ctx context.Context, name string, edit func([]any) arrayEdit, opts []ArrayOption) {
	f := a.form
	o := &op{name: name}
	if a.name == "" {
		o.diag(CodeMalformedPath, a.name, nil)
		f.finish(ctx, o)
		return
	}
	var focus arrayFocus
	for _, fn := range opts {
		fn(&focus)
	}

	f.mu.Lock()
	vals, ok := arrayValue(f.values, a.name)
	if !ok {
		o.diag(CodeNotArray, a.name, nil)
		f.mu.Unlock()
		f.finish(ctx, o)
		return
	}
	keys := f.keysLocked(a.name, len(vals))
	e := edit(vals)
	newVals, origin, inserted := e.values, e.origin, e.inserted
	if slices.Equal(origin, identity(len(vals))) && deep.Equal(newVals, vals) {
		// nothing moved or changed: a missing array stays missing
		f.mu.Unlock()
		f.finish(ctx, o)
		return
	}

	newKeys := make([]string, len(origin))
	for j, from := range origin {
		if from >= 0 {
			newKeys[j] = keys[from]
		} else {
			newKeys[j] = f.opts.keyFunc()
		}
	}
	fieldpath.Set(f.values, a.name, newVals)
	f.gen++
	o.mark(a.name, KeyValues)
	f.arrays[a.name] = &arrayState{keys: newKeys}
	f.remapNestedLocked(a.name, origin, e.replaced)

	if remapState(f.errors, a.name, origin, errorNodesEqual) {
		o.mark(a.name, KeyErrors)
	}
	if remapState(f.touched, a.name, origin, deep.Equal) {
		o.mark(a.name, KeyTouchedFields)
	}
	f.refreshDirtyLocked(o, a.name)
	removers := f.dropFieldsLocked(func(n string) bool { return beyond(n, a.name, len(newVals)) })
	f.syncElementsLocked(o, a.name)
	if inserted >= 0 && !focus.skip {
		idx := inserted
		if focus.set {
			idx = focus.index
		}
		target := fieldpath.AppendIndex(a.name, idx)
		if focus.name != "" {
			target = fieldpath.Append(target, fieldpath.Parse(focus.name)...)
		}
		f.focusOrDeferLocked(o, target)
	}
	if err := f.checkArrayLocked(a.name); err != nil {
		o.diag(CodeArrayInvariant, a.name, err)
	}
	revalidate := (f.opts.mode != ModeOnSubmit || f.isSubmitted) && f.opts.reValidateMode != ModeOnSubmit
	f.mu.Unlock()

	for _, rm := range removers {
		rm()
	}
	if revalidate {
		f.validate(ctx, o, []string{a.name})
	} else {
		o.revalidate = true
	}
	f.finish(ctx, o)
}

// keysLocked returns the keys of the array at name, generating or resizing them
// to n entries.
func (f *Form) keysLocked(name string, n int) []string {
	st := f.arrays[name]
	if st == nil {
		st = &arrayState{}
		f.arrays[name] = st
	}
	for len(st.keys) < n {
		st.keys = append(st.keys, f.opts.keyFunc())
	}
	st.keys = st.keys[:n]
	return append([]string(nil), st.keys...)
}

// syncKeysLocked keeps array keys in step after a value write at name: arrays
// at or below name are replaced and get new keys, arrays above it are resized.
func (f *Form) syncKeysLocked(name string) {
	for p, st := range f.arrays {
		vals, _ := arrayValue(f.values, p)
		switch {
		case fieldpath.HasPrefix(p, name):
			st.keys = nil
			f.keysLocked(p, len(vals))
		case fieldpath.HasPrefix(name, p):
			f.keysLocked(p, len(vals))
		}
	}
}

// remapNestedLocked moves the key state of arrays nested in elements of name to
// their new positions. Nested arrays of the element replaced in place start over.
func (f *Form) remapNestedLocked(name string, origin []int, replaced int) {
	base := fieldpath.Parse(name)
	newPos := map[int]int{}
	for j, from := range origin {
		if from >= 0 {
			newPos[from] = j
		}
	}
	moved := map[string]*arrayState{}
	for p, st := range f.arrays {
		segs := fieldpath.Parse(p)
		if len(segs) <= len(base) || !fieldpath.HasPrefix(p, name) {
			continue
		}
		delete(f.arrays, p)
		idx := segs[len(base)]
		if !idx.IsIndex || idx.Index == replaced {
			continue
		}
		if j, ok := newPos[idx.Index]; ok {
			rel := append([]fieldpath.Segment{fieldpath.Index(j)}, segs[len(base)+1:]...)
			moved[fieldpath.Join(append(append([]fieldpath.Segment(nil), base...), rel...))] = st
		}
	}
	for p, st := range moved {
		f.arrays[p] = st
	}
}

// remapState moves the per-element subtrees of the array at name inside a
// state tree (errors or touched) following origin. It reports whether anything
// changed according to eq.
func remapState(root map[string]any, name string, origin []int, eq func(a, b any) bool) bool {
	old, ok := fieldpath.Value(root, name).([]any)
	if !ok {
		return false
	}
	next := make([]any, len(origin))
	for j, from := range origin {
		if from >= 0 && from < len(old) {
			next[j] = old[from]
		}
	}
	if eq(old, next) {
		return false
	}
	if fieldpath.IsEmptyContainer(next) {
		fieldpath.Unset(root, name)
	} else {
		fieldpath.Set(root, name, next)
	}
	return true
}

// focusOrDeferLocked focuses the first registered field at or below target, or
// remembers target for the next matching registration.
func (f *Form) focusOrDeferLocked(o *op, target string) {
	for _, n := range f.order {
		fld := f.fields[n]
		if fieldpath.HasPrefix(n, target) && len(fld.bindings) > 0 {
			o.effect(fld.bindings[0].el.Focus)
			return
		}
	}
	f.pendingFocus = target
}

// checkArrayLocked verifies that keys, values and the dirty subtree of the
// array at name have the same length.
func (f *Form) checkArrayLocked(name string) error {
	vals, _ := arrayValue(f.values, name)
	st := f.arrays[name]
	if st == nil || len(st.keys) != len(vals) {
		n := 0
		if st != nil {
			n = len(st.keys)
		}
		return fmt.Errorf("%d keys for %d values", n, len(vals))
	}
	if d, ok := fieldpath.Value(f.dirty, name).([]any); ok && len(d) != len(vals) {
		return fmt.Errorf("dirty array has %d entries for %d values", len(d), len(vals))
	}
	return nil
}

// arrayValue reads the array at name. A missing or nil value is an empty array;
// ok is false for any other non-array value.
func arrayValue(root map[string]any, name string) ([]any, bool) {
	v, _ := fieldpath.Get(root, name)
	switch t := v.(type) {
	case nil:
		return []any{}, true
	case []any:
		return t, true
	}
	return nil, false
}

// beyond reports whether path addresses an element of the array at name with
// an index of at least n.
func beyond(path, name string, n int) bool {
	if !fieldpath.HasPrefix(path, name) {
		return false
	}
	segs, base := fieldpath.Parse(path), fieldpath.Parse(name)
	if len(segs) <= len(base) {
		return false
	}
	s := segs[len(base)]
	if !s.IsIndex {
		i, err := strconv.Atoi(s.Key)
		return err == nil && i >= n
	}
	return s.Index >= n
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func asItems(v any) []any {
	if s, ok := v.([]any); ok {
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = deep.Clone(x)
		}
		return out
	}
	return []any{deep.Clone(v)}
}
