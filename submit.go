package goform

import (
	"context"

	"github.com/reoring/goform/fieldpath"
	"github.com/reoring/goform/internal/deep"
)

// SubmitHandler receives the validated values. Disabled fields are left out;
// with a resolver the values are the ones it returned.
type SubmitHandler func(ctx context.Context, values map[string]any) error

// InvalidHandler receives the errors of a failed submit.
type InvalidHandler func(ctx context.Context, errors ErrorTree) error

// HandleSubmit returns a submit function. It validates the whole form, then
// calls onValid or onInvalid (which may be nil) and updates isSubmitting,
// isSubmitted, submitCount and isSubmitSuccessful. The returned error is the
// one returned by the handler; validation failures are reported through the
// form state, not as errors.
func (f *Form) HandleSubmit(onValid SubmitHandler, onInvalid InvalidHandler) func(ctx context.Context) error {
	return func(ctx context.Context) (err error) {
		start := &op{name: "submit"}
		f.mu.Lock()
		f.isSubmitting = true
		start.markAll(KeyIsSubmitting)
		f.mu.Unlock()
		f.finish(ctx, start)

		o := &op{name: "submit"}
		succeeded := false
		defer func() {
			f.mu.Lock()
			f.isSubmitting = false
			f.isSubmitted = true
			f.submitCount++
			f.isSubmitSuccessful = succeeded && err == nil
			o.markAll(KeyIsSubmitting | KeyIsSubmitted | KeySubmitCount | KeyIsSubmitSuccessful)
			f.mu.Unlock()
			f.finish(ctx, o)
		}()

		f.mu.Lock()
		if _, ok := fieldpath.Get(f.errors, "root"); ok {
			fieldpath.Unset(f.errors, "root")
			o.markAll(KeyErrors)
		}
		f.mu.Unlock()

		_, resolved := f.validate(ctx, o, nil)

		f.mu.Lock()
		errs := newErrorTree(f.errors)
		var data map[string]any
		if errs.Empty() {
			if resolved != nil {
				data = deep.CloneMap(resolved)
			} else {
				data = deep.CloneMap(f.values)
			}
			for _, n := range f.order {
				if f.fields[n].opts.Disabled {
					fieldpath.Unset(data, n)
				}
			}
		} else if f.opts.shouldFocusError {
			f.focusFirstErrorLocked(o, nil)
		}
		f.mu.Unlock()

		if data != nil {
			succeeded = true
			if onValid != nil {
				err = onValid(ctx, data)
			}
			return err
		}
		if onInvalid != nil {
			err = onInvalid(ctx, errs)
		}
		return err
	}
}
