package goform

import (
	"context"
	"math"

	"github.com/reoring/goform/fieldpath"
	"github.com/reoring/goform/internal/deep"
)

// SetValue writes value at path. Dirty state is recomputed; opts can also mark
// the field touched and validate it.
func (f *Form) SetValue(ctx context.Context, path string, value any, opts SetValueOptions) {
	name := fieldpath.Normalize(path)
	o := &op{name: "setValue"}
	if name == "" {
		o.diag(CodeMalformedPath, path, nil)
		f.finish(ctx, o)
		return
	}
	f.mu.Lock()
	f.writeLocked(o, name, deep.Clone(value))
	f.syncElementsLocked(o, name)
	if opts.ShouldTouch {
		f.touchLocked(o, name)
	}
	f.mu.Unlock()
	if opts.ShouldValidate {
		f.validate(ctx, o, f.withDeps([]string{name}))
	} else {
		o.revalidate = true
	}
	f.finish(ctx, o)
}

// writeLocked stores v at name and keeps keys and dirty state in step.
func (f *Form) writeLocked(o *op, name string, v any) {
	fieldpath.Set(f.values, name, v)
	f.gen++
	o.mark(name, KeyValues)
	f.syncKeysLocked(name)
	f.refreshDirtyLocked(o, name)
}

// syncElementsLocked schedules element writes for every field related to name.
func (f *Form) syncElementsLocked(o *op, name string) {
	for _, n := range f.order {
		fld := f.fields[n]
		if len(fld.bindings) == 0 || !fieldpath.Matches(n, name, false) {
			continue
		}
		v := deep.Clone(fieldpath.Value(f.values, n))
		els := fld.elements()
		o.effect(func() {
			for _, el := range els {
				el.WriteValue(v)
			}
		})
	}
}

func (f *Form) touchLocked(o *op, name string) {
	if v, _ := fieldpath.Get(f.touched, name); v == true {
		return
	}
	fieldpath.Set(f.touched, name, true)
	o.mark(name, KeyTouchedFields)
}

// handleEvent records a change or blur coming from a binding.
func (f *Form) handleEvent(ctx context.Context, name string, ev EventType, v any, supplied bool) {
	o := &op{name: ev.String(), typ: ev}
	f.mu.Lock()
	fld := f.fields[name]
	if fld == nil {
		o.diag(CodeUnregisteredField, name, nil)
		f.mu.Unlock()
		f.finish(ctx, o)
		return
	}
	els, fo := fld.elements(), fld.opts
	cur := deep.Clone(fieldpath.Value(f.values, name))
	f.mu.Unlock()

	switch {
	case supplied:
		v = transformValue(fo, v)
	case len(els) == 0:
		// headless binding without elements: the stored value stands
		v = cur
	default:
		v = transformValue(fo, readElements(els, fo.Kind))
	}

	f.mu.Lock()
	fld = f.fields[name]
	if fld == nil {
		f.mu.Unlock()
		return
	}
	f.writeLocked(o, name, v)
	if ev == EventBlur {
		f.touchLocked(o, name)
	}
	skip := f.skipValidationLocked(fld, ev)
	f.mu.Unlock()

	if skip {
		o.revalidate = true
	} else {
		f.validate(ctx, o, f.withDeps([]string{name}))
	}
	f.finish(ctx, o)
}

// skipValidationLocked decides whether a change or blur validates the field,
// based on the mode before the first submit and the revalidate mode after it.
func (f *Form) skipValidationLocked(fld *field, ev EventType) bool {
	_, hasErr := fieldpath.Get(f.errors, fld.name)
	if !fld.opts.hasValidation() && f.opts.resolver == nil && !hasErr && len(fld.opts.Deps) == 0 {
		return true
	}
	blur := ev == EventBlur
	touched := FieldSet{root: f.touched}.Has(fld.name)
	mode, revalidate := f.opts.mode, f.opts.reValidateMode
	switch {
	case mode == ModeAll:
		return false
	case !f.isSubmitted && mode == ModeOnTouched:
		return !(touched || blur)
	case f.isSubmitted && revalidate == ModeOnBlur, !f.isSubmitted && mode == ModeOnBlur:
		return !blur
	case f.isSubmitted && revalidate == ModeOnChange, !f.isSubmitted && mode == ModeOnChange:
		return blur
	}
	return true
}

// withDeps appends the dependencies of the fields at names.
func (f *Form) withDeps(names []string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), names...)
	for _, n := range names {
		fld := f.fields[n]
		if fld == nil {
			continue
		}
		for _, d := range fld.opts.Deps {
			d = fieldpath.Normalize(d)
			if d != "" && len(f.fieldsUnderLocked([]string{d})) > 0 {
				out = append(out, d)
			}
		}
	}
	return out
}

// readElements combines the values of a field's elements: a checkbox group
// yields the values of its checked boxes, other kinds the first non-nil value.
func readElements(els []Element, kind FieldKind) any {
	switch len(els) {
	case 0:
		return nil
	case 1:
		return els[0].ReadValue(kind)
	}
	if kind == KindCheckbox {
		var out []any
		for _, el := range els {
			if v := el.ReadValue(kind); v != nil {
				out = append(out, v)
			}
		}
		return out
	}
	for _, el := range els {
		if v := el.ReadValue(kind); v != nil {
			return v
		}
	}
	return nil
}

func transformValue(o RegisterOptions, v any) any {
	switch {
	case o.ValueAsNumber:
		if n, ok := deep.Coerce(v); ok && v != "" {
			v = n
		} else {
			v = math.NaN()
		}
	case o.ValueAsDate:
		if d, ok := deep.Date(v); ok {
			v = d
		} else {
			v = nil
		}
	}
	if o.SetValueAs != nil {
		v = o.SetValueAs(v)
	}
	return v
}
