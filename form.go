package goform

import (
	"context"
	"log/slog"
	"sync"

	"github.com/reoring/goform/fieldpath"
	"github.com/reoring/goform/internal/deep"
)

// Form holds the state of one logical form. It is safe for concurrent use.
// Validators, resolvers, element methods and subscriber callbacks always run
// without the internal lock held, so they may call back into the form.
type Form struct {
	opts options
	log  *slog.Logger

	mu             sync.Mutex
	fields         map[string]*field
	order          []string
	values         map[string]any
	defaults       map[string]any
	errors         map[string]any
	dirty          map[string]any
	touched        map[string]any
	validating     map[string]any
	validatingRefs map[string]int
	arrays         map[string]*arrayState

	isDirty            bool
	isValid            bool
	isSubmitting       bool
	isSubmitted        bool
	isSubmitSuccessful bool
	isLoading          bool
	submitCount        int
	validatingRuns     int

	// gen changes whenever something that may affect validity changes; validAt
	// is the gen isValid was last computed at.
	gen     uint64
	validAt uint64

	pendingFocus string

	bus  *bus
	root *Subscription
}

// New creates a form.
func New(opts ...Option) *Form {
	o := applyOptions(opts)
	f := &Form{
		opts:           o,
		log:            o.logger,
		fields:         map[string]*field{},
		values:         deep.CloneMap(o.defaultValues),
		defaults:       deep.CloneMap(o.defaultValues),
		errors:         map[string]any{},
		dirty:          map[string]any{},
		touched:        map[string]any{},
		validating:     map[string]any{},
		validatingRefs: map[string]int{},
		arrays:         map[string]*arrayState{},
		isLoading:      o.defaultsFunc != nil,
		gen:            1,
	}
	f.bus = newBus(f.report)
	f.root = f.bus.add(f, SubscribeOptions{})
	return f
}

// LoadDefaults resolves the defaults passed with WithDefaultValuesFunc and
// resets the form to them. It is a no-op without such a function.
func (f *Form) LoadDefaults(ctx context.Context) error {
	fn := f.opts.defaultsFunc
	if fn == nil {
		return nil
	}
	values, err := fn(ctx)
	if err != nil {
		o := &op{name: "loadDefaults"}
		f.mu.Lock()
		f.isLoading = false
		o.markAll(KeyIsLoading)
		o.diag(CodeDefaultsFailed, "", err)
		f.mu.Unlock()
		f.finish(ctx, o)
		return err
	}
	o := &op{name: "loadDefaults"}
	f.mu.Lock()
	f.resetLocked(o, values, KeepStateOptions{})
	f.isLoading = false
	o.markAll(KeyIsLoading)
	f.mu.Unlock()
	f.finish(ctx, o)
	return nil
}

// op accumulates the changes of one public operation. It is committed by
// finish, which runs the deferred effects and publishes one event.
type op struct {
	name       string
	typ        EventType
	names      []string
	global     bool
	keys       StateKey
	effects    []func()
	diags      []*UsageError
	revalidate bool
}

func (o *op) mark(path string, keys StateKey) {
	o.keys |= keys
	for _, n := range o.names {
		if n == path {
			return
		}
	}
	o.names = append(o.names, path)
}

func (o *op) markAll(keys StateKey) {
	o.keys |= keys
	o.global = true
}

func (o *op) effect(fn func()) { o.effects = append(o.effects, fn) }

func (o *op) diag(code UsageCode, path string, err error) {
	o.diags = append(o.diags, &UsageError{Code: code, Op: o.name, Path: path, Err: err})
}

func (o *op) event() event {
	ev := event{keys: o.keys, typ: o.typ}
	if !o.global {
		ev.names = append([]string(nil), o.names...)
	}
	return ev
}

// finish commits o. It must be called without f.mu held.
func (f *Form) finish(ctx context.Context, o *op) {
	for _, fn := range o.effects {
		fn()
	}
	if o.revalidate {
		f.refreshValid(ctx, o)
	}
	for _, d := range o.diags {
		f.report(d)
	}
	if o.keys != 0 {
		f.bus.publish(o.event())
	}
}

func (f *Form) report(ue *UsageError) {
	f.log.Warn("goform usage error",
		slog.String("op", ue.Op),
		slog.String("path", ue.Path),
		slog.String("code", string(ue.Code)),
		slog.Any("err", ue.Err),
	)
	if fn := f.opts.diagnostics; fn != nil {
		fn(ue)
	}
	if f.opts.strict {
		panic(ue)
	}
}

// GetValues returns a copy of the whole value tree.
func (f *Form) GetValues() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return deep.CloneMap(f.values)
}

// GetValue returns a copy of the value at path.
func (f *Form) GetValue(path string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return deep.Clone(fieldpath.Value(f.values, path))
}

// DefaultValues returns a copy of the defaults tree.
func (f *Form) DefaultValues() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return deep.CloneMap(f.defaults)
}

// GetFieldState returns the per-field view of path.
func (f *Form) GetFieldState(path string) FieldState {
	name := fieldpath.Normalize(path)
	f.mu.Lock()
	defer f.mu.Unlock()
	errs := ErrorTree{root: f.errors}
	fs := FieldState{
		Invalid:      errs.Has(name),
		IsDirty:      FieldSet{root: f.dirty}.Has(name),
		IsTouched:    FieldSet{root: f.touched}.Has(name),
		IsValidating: FieldSet{root: f.validating}.Has(name),
	}
	fs.Error = errs.Get(name).clone()
	return fs
}

// FormState returns the root proxy. Reads through it record interest, which
// enables the lazy computation of isValid.
func (f *Form) FormState() *FormState { return &FormState{f: f, sub: f.root} }
