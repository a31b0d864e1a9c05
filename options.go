package goform

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/reoring/goform/i18n"
)

// Resolver validates the whole value tree in one call, replacing the built-in
// rules. It returns errors keyed by field path and, optionally, transformed
// values handed to the submit handler.
type Resolver func(ctx context.Context, values map[string]any, rctx any, opts ResolverOptions) (ResolverResult, error)

// ResolverOptions tells a resolver which fields are being validated.
type ResolverOptions struct {
	// Names lists the requested paths; empty means the whole form.
	Names []string
	// Fields lists every registered path.
	Fields       []string
	CriteriaMode CriteriaMode
}

// ResolverResult is what a resolver produces.
type ResolverResult struct {
	Values map[string]any
	Errors map[string]*FieldError
}

type options struct {
	mode             Mode
	reValidateMode   Mode
	criteria         CriteriaMode
	defaultValues    map[string]any
	defaultsFunc     func(context.Context) (map[string]any, error)
	resolver         Resolver
	resolverContext  any
	shouldUnregister bool
	shouldFocusError bool
	logger           *slog.Logger
	strict           bool
	diagnostics      func(*UsageError)
	keyFunc          func() string
	concurrency      int
	translator       i18n.Translator
}

// Option configures a Form.
type Option func(*options)

func defaultOptions() options {
	return options{
		mode:             ModeOnSubmit,
		reValidateMode:   ModeOnChange,
		criteria:         CriteriaFirstError,
		shouldFocusError: true,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		keyFunc:          uuid.NewString,
		concurrency:      1,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// WithMode sets when validation runs before the first submit.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithReValidateMode sets when validation runs after the first submit.
func WithReValidateMode(m Mode) Option {
	return func(o *options) { o.reValidateMode = m }
}

// WithCriteriaMode sets how many failures are collected per field.
func WithCriteriaMode(c CriteriaMode) Option {
	return func(o *options) { o.criteria = c }
}

// WithDefaultValues sets the defaults tree. The map is copied.
func WithDefaultValues(values map[string]any) Option {
	return func(o *options) { o.defaultValues = values }
}

// WithDefaultValuesFunc loads the defaults asynchronously. The form reports
// IsLoading until LoadDefaults has run.
func WithDefaultValuesFunc(fn func(context.Context) (map[string]any, error)) Option {
	return func(o *options) { o.defaultsFunc = fn }
}

// WithResolver replaces built-in rules with a resolver.
func WithResolver(r Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithResolverContext sets the opaque context passed to the resolver.
func WithResolverContext(rctx any) Option {
	return func(o *options) { o.resolverContext = rctx }
}

// WithShouldUnregister drops a field's value when its last element detaches.
func WithShouldUnregister(v bool) Option {
	return func(o *options) { o.shouldUnregister = v }
}

// WithShouldFocusError controls whether a failed submit focuses the first
// invalid field. Enabled by default.
func WithShouldFocusError(v bool) Option {
	return func(o *options) { o.shouldFocusError = v }
}

// WithLogger sets the logger diagnostics are written to. Nil keeps the default,
// which discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStrict makes usage errors panic instead of being logged.
func WithStrict(v bool) Option {
	return func(o *options) { o.strict = v }
}

// WithDiagnostics registers a hook that receives every usage error.
func WithDiagnostics(fn func(*UsageError)) Option {
	return func(o *options) { o.diagnostics = fn }
}

// WithKeyFunc replaces the generator of array item keys (random UUIDs by default).
func WithKeyFunc(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.keyFunc = fn
		}
	}
}

// WithValidationConcurrency bounds how many fields are validated in parallel
// during a full-form validation. Values below 1 mean 1.
func WithValidationConcurrency(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
	}
}

// WithTranslator fills in messages for built-in failures that have none.
func WithTranslator(t i18n.Translator) Option {
	return func(o *options) { o.translator = t }
}
