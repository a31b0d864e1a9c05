package goform

import (
	"context"
	"reflect"
	"slices"

	"github.com/reoring/goform/fieldpath"
	"github.com/reoring/goform/internal/deep"
)

// Element is a host input bound to a field. The form reads from it on change
// events, writes to it when the value changes programmatically, and focuses it
// on errors. The listener passed to AddChangeListener must be called with
// EventChange or EventBlur.
type Element interface {
	ReadValue(kind FieldKind) any
	WriteValue(v any)
	Focus()
	AddChangeListener(fn func(EventType)) (remove func())
}

type binding struct {
	el     Element
	remove func()
}

type field struct {
	name         string
	opts         RegisterOptions
	bindings     []*binding
	mounted      bool
	arrayElement bool
}

func (fld *field) elements() []Element {
	out := make([]Element, 0, len(fld.bindings))
	for _, b := range fld.bindings {
		out = append(out, b.el)
	}
	return out
}

// Registration is the handle returned by Register. UI bindings use it to attach
// elements and to forward change and blur events.
type Registration struct {
	Name string
	form *Form
}

// Ref attaches el to the field. A nil element detaches every element.
func (r *Registration) Ref(el Element) {
	if r.form == nil || r.Name == "" {
		return
	}
	if el == nil {
		r.form.detach(r.Name, nil)
		return
	}
	r.form.attach(r.Name, el)
}

// Detach removes one element from the field.
func (r *Registration) Detach(el Element) {
	if r.form == nil || r.Name == "" || el == nil {
		return
	}
	r.form.detach(r.Name, el)
}

// OnChange reads the value from the attached elements and records a change.
func (r *Registration) OnChange(ctx context.Context) {
	if r.form != nil && r.Name != "" {
		r.form.handleEvent(ctx, r.Name, EventChange, nil, false)
	}
}

// OnBlur reads the value from the attached elements and marks the field touched.
func (r *Registration) OnBlur(ctx context.Context) {
	if r.form != nil && r.Name != "" {
		r.form.handleEvent(ctx, r.Name, EventBlur, nil, false)
	}
}

// Change records a change with a value supplied by the binding instead of one
// read from the elements.
func (r *Registration) Change(ctx context.Context, v any) {
	if r.form != nil && r.Name != "" {
		r.form.handleEvent(ctx, r.Name, EventChange, v, true)
	}
}

// Register adds a field or updates its rules. Registering an existing path keeps
// its value and its dirty and touched state. A missing value is seeded from
// opts.Value or the defaults.
func (f *Form) Register(path string, opts RegisterOptions) *Registration {
	name := fieldpath.Normalize(path)
	reg := &Registration{Name: name, form: f}
	if name == "" {
		f.report(&UsageError{Code: CodeMalformedPath, Op: "register", Path: path})
		return reg
	}
	o := &op{name: "register"}
	f.mu.Lock()
	fld, ok := f.fields[name]
	if !ok {
		fld = &field{name: name}
		f.fields[name] = fld
		f.order = append(f.order, name)
	}
	fld.opts = opts
	fld.mounted = true
	fld.arrayElement = f.inArrayLocked(name)
	if cur, exists := fieldpath.Get(f.values, name); !exists || (cur == nil && opts.Value != nil) {
		v := opts.Value
		if v == nil {
			v = fieldpath.Value(f.defaults, name)
		}
		f.writeLocked(o, name, deep.Clone(v))
	}
	f.gen++
	o.revalidate = true
	f.mu.Unlock()
	f.finish(context.Background(), o)
	return reg
}

// Unregister removes fields at and below each path. With no paths every field
// is unregistered.
func (f *Form) Unregister(paths []string, opts UnregisterOptions) {
	o := &op{name: "unregister"}
	f.mu.Lock()
	if len(paths) == 0 {
		paths = append([]string(nil), f.order...)
	}
	var removers []func()
	for _, p := range paths {
		name := fieldpath.Normalize(p)
		if name == "" {
			o.diag(CodeMalformedPath, p, nil)
			continue
		}
		removers = append(removers, f.dropFieldsLocked(func(n string) bool { return fieldpath.HasPrefix(n, name) })...)
		if !opts.KeepValue {
			if _, ok := fieldpath.Get(f.values, name); ok {
				fieldpath.Unset(f.values, name)
				f.gen++
				o.mark(name, KeyValues)
				f.syncKeysLocked(name)
			}
			if !opts.KeepDefaultValue {
				fieldpath.Unset(f.defaults, name)
			}
		}
		if !opts.KeepError {
			f.replaceErrorsLocked(o, name, nil)
		}
		if !opts.KeepTouched {
			if _, ok := fieldpath.Get(f.touched, name); ok {
				fieldpath.Unset(f.touched, name)
				o.mark(name, KeyTouchedFields)
			}
		}
		if !opts.KeepDirty {
			f.refreshDirtyLocked(o, name)
		}
	}
	if !opts.KeepIsValid {
		f.gen++
		o.revalidate = true
	}
	f.mu.Unlock()
	for _, rm := range removers {
		rm()
	}
	f.finish(context.Background(), o)
}

// dropFieldsLocked removes the matching fields from the registry and returns
// the listener removers of their elements.
func (f *Form) dropFieldsLocked(match func(string) bool) []func() {
	var removers []func()
	f.order = slices.DeleteFunc(f.order, func(n string) bool {
		if !match(n) {
			return false
		}
		for _, b := range f.fields[n].bindings {
			if b.remove != nil {
				removers = append(removers, b.remove)
			}
		}
		delete(f.fields, n)
		return true
	})
	return removers
}

// IsWatched reports whether an active subscriber observes values at path.
func (f *Form) IsWatched(path string) bool {
	return f.bus.watches(fieldpath.Normalize(path))
}

// SetFocus focuses the first element of the field at path, or the next element
// registered under it.
func (f *Form) SetFocus(path string) {
	name := fieldpath.Normalize(path)
	f.mu.Lock()
	var el Element
	if fld := f.fields[name]; fld != nil && len(fld.bindings) > 0 {
		el = fld.bindings[0].el
	} else {
		f.pendingFocus = name
	}
	f.mu.Unlock()
	if el != nil {
		el.Focus()
	}
}

func (f *Form) attach(name string, el Element) {
	o := &op{name: "ref"}
	f.mu.Lock()
	fld := f.fields[name]
	if fld == nil {
		o.diag(CodeUnregisteredField, name, nil)
		f.mu.Unlock()
		f.finish(context.Background(), o)
		return
	}
	for _, b := range fld.bindings {
		if sameElement(b.el, el) {
			f.mu.Unlock()
			return
		}
	}
	b := &binding{el: el}
	fld.bindings = append(fld.bindings, b)
	fld.mounted = true
	kind := fld.opts.Kind
	v, exists := fieldpath.Get(f.values, name)
	v = deep.Clone(v)
	focus := f.pendingFocus != "" && fieldpath.HasPrefix(name, f.pendingFocus)
	if focus {
		f.pendingFocus = ""
	}
	f.mu.Unlock()

	if exists && v != nil {
		el.WriteValue(v)
	} else if read := el.ReadValue(kind); read != nil {
		f.mu.Lock()
		if cur := fieldpath.Value(f.values, name); cur == nil {
			f.writeLocked(o, name, read)
		}
		f.mu.Unlock()
	}
	remove := el.AddChangeListener(func(ev EventType) {
		f.handleEvent(context.Background(), name, ev, nil, false)
	})
	f.mu.Lock()
	b.remove = remove
	f.mu.Unlock()
	if focus {
		el.Focus()
	}
	f.finish(context.Background(), o)
}

// detach removes el (every element when nil). A field left without elements is
// unmounted and, when it should unregister, unregistered. Array elements keep
// their values since array operations own them.
func (f *Form) detach(name string, el Element) {
	f.mu.Lock()
	fld := f.fields[name]
	if fld == nil {
		f.mu.Unlock()
		return
	}
	var removers []func()
	fld.bindings = slices.DeleteFunc(fld.bindings, func(b *binding) bool {
		if el != nil && !sameElement(b.el, el) {
			return false
		}
		if b.remove != nil {
			removers = append(removers, b.remove)
		}
		return true
	})
	unregister := false
	if len(fld.bindings) == 0 {
		fld.mounted = false
		unregister = f.shouldUnregisterLocked(fld) && !fld.arrayElement
	}
	f.mu.Unlock()
	for _, rm := range removers {
		rm()
	}
	if unregister {
		f.Unregister([]string{name}, UnregisterOptions{})
	}
}

func (f *Form) shouldUnregisterLocked(fld *field) bool {
	if fld.opts.ShouldUnregister != nil {
		return *fld.opts.ShouldUnregister
	}
	return f.opts.shouldUnregister
}

// inArrayLocked reports whether name sits inside an array value.
func (f *Form) inArrayLocked(name string) bool {
	segs := fieldpath.Parse(name)
	for i := 1; i < len(segs); i++ {
		if node, ok := fieldpath.GetSegments(f.values, segs[:i]); ok {
			if _, isArr := node.([]any); isArr {
				return true
			}
		}
		if _, tracked := f.arrays[fieldpath.Join(segs[:i])]; tracked {
			return true
		}
	}
	return false
}

// fieldsUnderLocked returns the registered names at or below any of names, in
// registration order. With no names every field matches.
func (f *Form) fieldsUnderLocked(names []string) []string {
	var out []string
	for _, n := range f.order {
		if len(names) == 0 {
			out = append(out, n)
			continue
		}
		for _, want := range names {
			if fieldpath.HasPrefix(n, want) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

func sameElement(a, b Element) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
