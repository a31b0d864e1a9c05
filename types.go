package goform

import (
	"context"
	"regexp"
	"strings"
)

// Mode selects when user interaction triggers validation.
type Mode int

const (
	ModeOnSubmit  Mode = iota // Validate on submit only.
	ModeOnBlur                // Validate when a field loses focus.
	ModeOnChange              // Validate on every change.
	ModeOnTouched             // Validate on the first blur, then on every change.
	ModeAll                   // Validate on blur and on change.
)

var modeNames = map[Mode]string{
	ModeOnSubmit:  "onSubmit",
	ModeOnBlur:    "onBlur",
	ModeOnChange:  "onChange",
	ModeOnTouched: "onTouched",
	ModeAll:       "all",
}

func (m Mode) String() string { return modeNames[m] }

// ParseMode maps "onSubmit", "onBlur", "onChange", "onTouched" and "all" to a Mode.
func ParseMode(s string) (Mode, bool) {
	for m, n := range modeNames {
		if strings.EqualFold(n, s) {
			return m, true
		}
	}
	return ModeOnSubmit, false
}

// CriteriaMode controls how many failures are collected per field.
type CriteriaMode int

const (
	CriteriaFirstError CriteriaMode = iota // Stop at the first failing rule.
	CriteriaAll                            // Run every rule and collect failures in FieldError.Types.
)

// FieldKind tells an Element how to read its value.
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumber
	KindDate
	KindCheckbox
	KindRadio
	KindSelectMultiple
	KindFile
	KindCustom
)

// EventType describes what caused a change.
type EventType int

const (
	EventNone EventType = iota
	EventChange
	EventBlur
)

func (e EventType) String() string {
	switch e {
	case EventChange:
		return "change"
	case EventBlur:
		return "blur"
	default:
		return ""
	}
}

// Error types produced by built-in rules.
const (
	TypeRequired  = "required"
	TypeMin       = "min"
	TypeMax       = "max"
	TypeMinLength = "minLength"
	TypeMaxLength = "maxLength"
	TypePattern   = "pattern"
	TypeValidate  = "validate"
	TypeResolver  = "resolver"
)

// Rule is a rule value with an optional message. A rule built with RuleOf is the
// bare form and never contributes a message; RuleMsg is the object form.
type Rule[T any] struct {
	Value   T
	Message string
}

// RuleOf returns the bare form of a rule.
func RuleOf[T any](v T) *Rule[T] { return &Rule[T]{Value: v} }

// RuleMsg returns the object form of a rule, carrying a message.
func RuleMsg[T any](v T, msg string) *Rule[T] { return &Rule[T]{Value: v, Message: msg} }

// Required is shorthand for a required rule with the given message.
func Required(msg string) *Rule[bool] { return &Rule[bool]{Value: true, Message: msg} }

// Pattern compiles expr into a pattern rule; it panics on an invalid expression
// like regexp.MustCompile.
func Pattern(expr, msg string) *Rule[*regexp.Regexp] {
	return &Rule[*regexp.Regexp]{Value: regexp.MustCompile(expr), Message: msg}
}

// ValidateFunc is a custom validator. It receives the field value and a snapshot
// of the whole value tree. The result is read as follows: false or a non-empty
// string fails (the string is the message); true, nil, "" and an empty slice pass;
// a slice is a batch that fails when any element fails. A non-nil error (or a
// panic) counts as a validator failure and fails the field with a generic message.
type ValidateFunc func(ctx context.Context, value any, values map[string]any) (any, error)

// Validator is a named ValidateFunc; the name becomes the error type.
type Validator struct {
	Name string
	Fn   ValidateFunc
}

// RegisterOptions carries the validation rules and value handling of a field.
type RegisterOptions struct {
	Required   *Rule[bool]
	Min        *Rule[any]
	Max        *Rule[any]
	MinLength  *Rule[int]
	MaxLength  *Rule[int]
	Pattern    *Rule[*regexp.Regexp]
	Validate   ValidateFunc
	Validators []Validator

	// Kind is passed to Element.ReadValue.
	Kind FieldKind
	// ValueAsNumber, ValueAsDate and SetValueAs transform values read from
	// changes before they are stored.
	ValueAsNumber bool
	ValueAsDate   bool
	SetValueAs    func(any) any

	// Disabled fields are not validated and are left out of submitted values.
	Disabled bool
	// Deps are revalidated whenever this field is validated after a change.
	Deps []string
	// ShouldUnregister overrides the form-level setting for this field.
	ShouldUnregister *bool
	// Value seeds the field when no value exists yet, taking precedence over
	// the default values.
	Value any
}

func (o RegisterOptions) hasValidation() bool {
	return o.Required != nil || o.Min != nil || o.Max != nil || o.MinLength != nil ||
		o.MaxLength != nil || o.Pattern != nil || o.Validate != nil || len(o.Validators) > 0
}

// SetValueOptions tunes SetValue.
type SetValueOptions struct {
	ShouldValidate bool
	ShouldTouch    bool
}

// UnregisterOptions selects which state survives Unregister.
type UnregisterOptions struct {
	KeepValue        bool
	KeepError        bool
	KeepDirty        bool
	KeepTouched      bool
	KeepDefaultValue bool
	KeepIsValid      bool
}

// TriggerOptions tunes Trigger.
type TriggerOptions struct {
	ShouldFocus bool
}

// SetErrorOptions tunes SetError.
type SetErrorOptions struct {
	ShouldFocus bool
}

// KeepStateOptions selects which state survives Reset.
type KeepStateOptions struct {
	KeepDefaultValues      bool
	KeepValues             bool
	KeepDirtyValues        bool
	KeepDirty              bool
	KeepErrors             bool
	KeepTouched            bool
	KeepIsValid            bool
	KeepIsSubmitted        bool
	KeepIsSubmitSuccessful bool
	KeepSubmitCount        bool
}

// ResetFieldOptions selects which state survives ResetField. A non-nil
// DefaultValue also replaces the field's default.
type ResetFieldOptions struct {
	KeepDirty    bool
	KeepTouched  bool
	KeepError    bool
	DefaultValue any
}

// FieldState is the per-field view returned by GetFieldState.
type FieldState struct {
	Invalid      bool
	IsDirty      bool
	IsTouched    bool
	IsValidating bool
	Error        *FieldError
}
