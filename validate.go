package goform

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/reoring/goform/fieldpath"
	"github.com/reoring/goform/i18n"
	"github.com/reoring/goform/internal/deep"
)

// target is one field captured for validation.
type target struct {
	name  string
	opts  RegisterOptions
	value any
}

// Trigger validates the fields at names (the whole form when names is empty)
// and reports whether they passed. Names without registered fields are
// reported as usage errors and skipped.
func (f *Form) Trigger(ctx context.Context, names []string, opts TriggerOptions) bool {
	o := &op{name: "trigger"}
	var req []string
	if len(names) > 0 {
		f.mu.Lock()
		for _, n := range names {
			nn := fieldpath.Normalize(n)
			if nn != "" && len(f.fieldsUnderLocked([]string{nn})) > 0 {
				req = append(req, nn)
			} else {
				o.diag(CodeUnregisteredField, n, nil)
			}
		}
		f.mu.Unlock()
		if len(req) == 0 {
			f.finish(ctx, o)
			return true
		}
	}
	valid, _ := f.validate(ctx, o, req)
	if opts.ShouldFocus && !valid {
		f.mu.Lock()
		f.focusFirstErrorLocked(o, req)
		f.mu.Unlock()
	}
	f.finish(ctx, o)
	return valid
}

// validate runs the configured validation for names, or for the whole form
// when names is empty, and applies results that are not stale. It reports
// whether the validated fields passed; a resolver may also return values.
func (f *Form) validate(ctx context.Context, o *op, names []string) (bool, map[string]any) {
	if f.opts.resolver != nil {
		return f.validateResolver(ctx, o, names)
	}
	return f.validateBuiltin(ctx, o, names), nil
}

func (f *Form) validateBuiltin(ctx context.Context, o *op, names []string) bool {
	full := len(names) == 0
	f.mu.Lock()
	targets, snapshot := f.targetsLocked(names)
	gen := f.gen
	paths := make([]string, len(targets))
	for i, t := range targets {
		paths[i] = t.name
	}
	started := f.beginValidatingLocked(paths)
	f.mu.Unlock()
	f.bus.publish(started)

	results, diags := f.runTargets(ctx, targets, snapshot)

	f.mu.Lock()
	defer f.mu.Unlock()
	o.diags = append(o.diags, diags...)
	valid := true
	for i, t := range targets {
		if ctx.Err() != nil || !deep.Equal(fieldpath.Value(f.values, t.name), t.value) {
			if (ErrorTree{root: f.errors}).Get(t.name) != nil {
				valid = false
			}
			continue
		}
		f.setErrorLocked(o, t.name, results[i])
		if results[i] != nil {
			valid = false
		}
	}
	f.endValidatingLocked(o, paths)
	if full && gen == f.gen && ctx.Err() == nil {
		f.setValidLocked(o, valid)
	} else {
		o.revalidate = true
	}
	return valid
}

// targetsLocked captures the mounted, enabled fields under names together with
// a snapshot of the value tree they are validated against.
func (f *Form) targetsLocked(names []string) ([]target, map[string]any) {
	snapshot := deep.CloneMap(f.values)
	var out []target
	for _, n := range f.fieldsUnderLocked(names) {
		fld := f.fields[n]
		if !fld.mounted || fld.opts.Disabled {
			continue
		}
		out = append(out, target{name: n, opts: fld.opts, value: deep.Clone(fieldpath.Value(snapshot, n))})
	}
	return out, snapshot
}

// runTargets evaluates the rules of each target, fanning out up to the
// configured concurrency. The snapshot is shared and must not be modified.
func (f *Form) runTargets(ctx context.Context, targets []target, snapshot map[string]any) ([]*FieldError, []*UsageError) {
	results := make([]*FieldError, len(targets))
	diags := make([][]*UsageError, len(targets))
	var g errgroup.Group
	g.SetLimit(f.opts.concurrency)
	for i := range targets {
		g.Go(func() error {
			results[i], diags[i] = f.evaluate(ctx, targets[i], snapshot)
			return nil
		})
	}
	_ = g.Wait()
	var all []*UsageError
	for _, d := range diags {
		all = append(all, d...)
	}
	return results, all
}

func (f *Form) validateResolver(ctx context.Context, o *op, names []string) (bool, map[string]any) {
	full := len(names) == 0
	f.mu.Lock()
	fields := append([]string(nil), f.order...)
	snapshot := deep.CloneMap(f.values)
	captured := make(map[string]any, len(names))
	for _, n := range names {
		captured[n] = deep.Clone(fieldpath.Value(snapshot, n))
	}
	marked := names
	if full {
		marked = fields
	}
	gen := f.gen
	started := f.beginValidatingLocked(marked)
	f.mu.Unlock()
	f.bus.publish(started)

	res, err := f.callResolver(ctx, deep.CloneMap(snapshot), ResolverOptions{
		Names:        names,
		Fields:       fields,
		CriteriaMode: f.opts.criteria,
	})
	if err != nil {
		o.diag(CodeResolverFailed, "", err)
		res = ResolverResult{Errors: map[string]*FieldError{}}
		for _, n := range marked {
			res.Errors[n] = &FieldError{Type: TypeResolver, Message: f.genericMessage("resolver_error")}
		}
	}
	tree := ErrorsFromMap(res.Errors).root

	f.mu.Lock()
	defer f.mu.Unlock()
	defer f.endValidatingLocked(o, marked)
	if full {
		if ctx.Err() != nil || !deep.Equal(f.values, snapshot) {
			o.revalidate = true
			return !hasError(f.errors), nil
		}
		if !errorNodesEqual(f.errors, tree) {
			f.errors = tree
			o.markAll(KeyErrors)
		}
		valid := !hasError(tree)
		if gen == f.gen {
			f.setValidLocked(o, valid)
		}
		return valid, res.Values
	}
	valid := true
	for _, n := range names {
		if ctx.Err() == nil && deep.Equal(fieldpath.Value(f.values, n), captured[n]) {
			f.replaceErrorsLocked(o, n, fieldpath.Value(tree, n))
		}
		if (ErrorTree{root: f.errors}).Has(n) {
			valid = false
		}
	}
	o.revalidate = true
	return valid, res.Values
}

func (f *Form) callResolver(ctx context.Context, values map[string]any, opts ResolverOptions) (res ResolverResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolver panic: %v", r)
		}
	}()
	return f.opts.resolver(ctx, values, f.opts.resolverContext, opts)
}

// refreshValid recomputes isValid when some observer reads it, without
// touching the error tree.
func (f *Form) refreshValid(ctx context.Context, o *op) {
	if o != nil && !f.bus.wants(KeyIsValid) {
		return
	}
	f.mu.Lock()
	if f.validAt == f.gen {
		f.mu.Unlock()
		return
	}
	gen := f.gen
	targets, snapshot := f.targetsLocked(nil)
	fields := append([]string(nil), f.order...)
	f.mu.Unlock()

	valid := true
	if f.opts.resolver != nil {
		res, err := f.callResolver(ctx, snapshot, ResolverOptions{Fields: fields, CriteriaMode: f.opts.criteria})
		valid = err == nil && !hasError(ErrorsFromMap(res.Errors).root)
	} else {
		results, _ := f.runTargets(ctx, targets, snapshot)
		for _, r := range results {
			if r != nil {
				valid = false
				break
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen || ctx.Err() != nil {
		return
	}
	if o == nil {
		f.isValid, f.validAt = valid, gen
		return
	}
	f.setValidLocked(o, valid)
}

func (f *Form) setValidLocked(o *op, valid bool) {
	f.validAt = f.gen
	if f.isValid != valid {
		f.isValid = valid
		o.keys |= KeyIsValid
	}
}

// setErrorLocked records fe (or clears the error when nil) at name.
func (f *Form) setErrorLocked(o *op, name string, fe *FieldError) {
	old, _ := fieldpath.Value(f.errors, name).(*FieldError)
	if fe == nil {
		if old != nil {
			fieldpath.Unset(f.errors, name)
			o.mark(name, KeyErrors)
		}
		return
	}
	if !fe.equal(old) {
		fieldpath.Set(f.errors, name, fe)
		o.mark(name, KeyErrors)
	}
}

// replaceErrorsLocked replaces the whole error subtree at name.
func (f *Form) replaceErrorsLocked(o *op, name string, sub any) {
	old := fieldpath.Value(f.errors, name)
	if !hasError(sub) {
		if old != nil {
			fieldpath.Unset(f.errors, name)
			o.mark(name, KeyErrors)
		}
		return
	}
	if !errorNodesEqual(old, sub) {
		fieldpath.Set(f.errors, name, cloneErrorNode(sub))
		o.mark(name, KeyErrors)
	}
}

// beginValidatingLocked marks paths as validating and returns the event that
// announces it.
func (f *Form) beginValidatingLocked(paths []string) event {
	f.validatingRuns++
	for _, p := range paths {
		f.validatingRefs[p]++
		if f.validatingRefs[p] == 1 {
			fieldpath.Set(f.validating, p, true)
		}
	}
	return event{names: append([]string(nil), paths...), keys: KeyIsValidating | KeyValidatingFields}
}

func (f *Form) endValidatingLocked(o *op, paths []string) {
	f.validatingRuns--
	for _, p := range paths {
		f.validatingRefs[p]--
		if f.validatingRefs[p] <= 0 {
			delete(f.validatingRefs, p)
			fieldpath.Unset(f.validating, p)
		}
		o.mark(p, KeyValidatingFields)
	}
	o.keys |= KeyIsValidating
}

// focusFirstErrorLocked focuses the first registered field with an error,
// limited to names when given.
func (f *Form) focusFirstErrorLocked(o *op, names []string) {
	errs := ErrorTree{root: f.errors}
	for _, n := range f.fieldsUnderLocked(names) {
		fld := f.fields[n]
		if len(fld.bindings) == 0 || !errs.Has(n) {
			continue
		}
		el := fld.bindings[0].el
		o.effect(el.Focus)
		return
	}
}

func (f *Form) genericMessage(key string) string {
	if f.opts.translator != nil {
		return f.opts.translator.Message(key, nil)
	}
	return i18n.T(key, nil)
}
