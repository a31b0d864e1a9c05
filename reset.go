package goform

import (
	"context"

	"github.com/reoring/goform/fieldpath"
	"github.com/reoring/goform/internal/deep"
)

// Reset restores the form. With nil values the current defaults are used;
// otherwise values become the new defaults unless KeepDefaultValues is set.
// Array keys are regenerated. Registered fields stay registered.
func (f *Form) Reset(ctx context.Context, values map[string]any, keep KeepStateOptions) {
	o := &op{name: "reset"}
	f.mu.Lock()
	f.resetLocked(o, values, keep)
	f.mu.Unlock()
	f.finish(ctx, o)
}

func (f *Form) resetLocked(o *op, values map[string]any, keep KeepStateOptions) {
	updated := f.defaults
	if values != nil {
		updated = values
	}
	updated = deep.CloneMap(updated)
	if values != nil && !keep.KeepDefaultValues {
		f.defaults = deep.CloneMap(updated)
		o.markAll(KeyDefaultValues)
	}

	if !keep.KeepValues {
		next := updated
		if keep.KeepDirtyValues {
			for _, p := range newFieldSet(f.dirty).Paths() {
				fieldpath.Set(next, p, deep.Clone(fieldpath.Value(f.values, p)))
			}
		}
		f.values = next
		f.arrays = map[string]*arrayState{}
		f.syncElementsLocked(o, "")
		o.markAll(KeyValues)
	}
	f.gen++

	if !keep.KeepDirty {
		d, _ := dirtyTree(f.defaults, f.values).(map[string]any)
		if d == nil {
			d = map[string]any{}
		}
		f.dirty = d
		f.isDirty = !deep.Equal(f.values, f.defaults)
		o.markAll(KeyDirtyFields | KeyIsDirty)
	}
	if !keep.KeepTouched {
		f.touched = map[string]any{}
		o.markAll(KeyTouchedFields)
	}
	if !keep.KeepErrors {
		f.errors = map[string]any{}
		o.markAll(KeyErrors)
	}
	if !keep.KeepSubmitCount {
		f.submitCount = 0
	}
	if !keep.KeepIsSubmitted {
		f.isSubmitted = false
	}
	if !keep.KeepIsSubmitSuccessful {
		f.isSubmitSuccessful = false
	}
	f.isSubmitting = false
	o.markAll(KeySubmitCount | KeyIsSubmitted | KeyIsSubmitSuccessful | KeyIsSubmitting)
	if keep.KeepIsValid {
		f.validAt = f.gen
	} else {
		o.revalidate = true
	}
}

// ResetField restores one field to its default and clears its state.
func (f *Form) ResetField(ctx context.Context, path string, opts ResetFieldOptions) {
	name := fieldpath.Normalize(path)
	o := &op{name: "resetField"}
	if name == "" {
		o.diag(CodeMalformedPath, path, nil)
		f.finish(ctx, o)
		return
	}
	f.mu.Lock()
	if opts.DefaultValue != nil {
		fieldpath.Set(f.defaults, name, deep.Clone(opts.DefaultValue))
		o.markAll(KeyDefaultValues)
	}
	if opts.KeepDirty {
		fieldpath.Set(f.values, name, deep.Clone(fieldpath.Value(f.defaults, name)))
		f.gen++
		o.mark(name, KeyValues)
		f.syncKeysLocked(name)
	} else {
		f.writeLocked(o, name, deep.Clone(fieldpath.Value(f.defaults, name)))
	}
	f.syncElementsLocked(o, name)
	if !opts.KeepTouched {
		if _, ok := fieldpath.Get(f.touched, name); ok {
			fieldpath.Unset(f.touched, name)
			o.mark(name, KeyTouchedFields)
		}
	}
	if !opts.KeepError {
		f.replaceErrorsLocked(o, name, nil)
	}
	f.mu.Unlock()
	o.revalidate = true
	f.finish(ctx, o)
}

// SetError records a manual error at path. It stays until cleared, reset or
// replaced by validation of the same field.
func (f *Form) SetError(path string, fe FieldError, opts SetErrorOptions) {
	name := fieldpath.Normalize(path)
	o := &op{name: "setError"}
	if name == "" {
		o.diag(CodeMalformedPath, path, nil)
		f.finish(context.Background(), o)
		return
	}
	f.mu.Lock()
	f.setErrorLocked(o, name, fe.clone())
	f.setValidLocked(o, false)
	if opts.ShouldFocus {
		f.focusFirstErrorLocked(o, []string{name})
	}
	f.mu.Unlock()
	f.finish(context.Background(), o)
}

// ClearErrors removes the errors at and below each path, or every error when
// no path is given.
func (f *Form) ClearErrors(paths ...string) {
	o := &op{name: "clearErrors"}
	f.mu.Lock()
	if len(paths) == 0 {
		if hasError(f.errors) {
			o.markAll(KeyErrors)
		}
		f.errors = map[string]any{}
	}
	for _, p := range paths {
		if name := fieldpath.Normalize(p); name != "" {
			f.replaceErrorsLocked(o, name, nil)
		}
	}
	f.gen++
	f.mu.Unlock()
	o.revalidate = true
	f.finish(context.Background(), o)
}
