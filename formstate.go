package goform

import (
	"context"

	"github.com/reoring/goform/internal/deep"
)

// FormState is a lazy view of the form state. Every getter reads the live state
// and records the key it read in the owning subscription's read-set, so a
// subscriber is only notified about the state it has looked at.
type FormState struct {
	f   *Form
	sub *Subscription
	ev  event
}

func (s *FormState) track(k StateKey) {
	if s.sub != nil {
		s.sub.track(k)
	}
}

// Name returns the first path the notification concerns, or "" for a
// whole-form change.
func (s *FormState) Name() string {
	if len(s.ev.names) == 0 {
		return ""
	}
	return s.ev.names[0]
}

// Names returns every path the notification concerns.
func (s *FormState) Names() []string { return append([]string(nil), s.ev.names...) }

// Changed returns the keys that changed in this notification.
func (s *FormState) Changed() StateKey { return s.ev.keys }

// Type returns the interaction that caused the notification.
func (s *FormState) Type() EventType { return s.ev.typ }

// Values returns a copy of the current values.
func (s *FormState) Values() map[string]any {
	s.track(KeyValues)
	return s.f.GetValues()
}

// DefaultValues returns a copy of the default values.
func (s *FormState) DefaultValues() map[string]any {
	s.track(KeyDefaultValues)
	return s.f.DefaultValues()
}

// Errors returns a copy of the error tree.
func (s *FormState) Errors() ErrorTree {
	s.track(KeyErrors)
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return newErrorTree(s.f.errors)
}

// DirtyFields returns the paths whose values differ from their defaults.
func (s *FormState) DirtyFields() FieldSet {
	s.track(KeyDirtyFields)
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return newFieldSet(s.f.dirty)
}

// TouchedFields returns the paths that were blurred or set with ShouldTouch.
func (s *FormState) TouchedFields() FieldSet {
	s.track(KeyTouchedFields)
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return newFieldSet(s.f.touched)
}

// ValidatingFields returns the paths with a validation in flight.
func (s *FormState) ValidatingFields() FieldSet {
	s.track(KeyValidatingFields)
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return newFieldSet(s.f.validating)
}

// IsDirty reports whether the values differ from the defaults anywhere.
func (s *FormState) IsDirty() bool {
	s.track(KeyIsDirty)
	return s.flag(func(f *Form) bool { return f.isDirty })
}

// IsValid returns whether the form passes validation, computing it first when
// it is out of date.
func (s *FormState) IsValid() bool {
	s.track(KeyIsValid)
	s.f.refreshValid(context.Background(), nil)
	return s.flag(func(f *Form) bool { return f.isValid })
}

// IsValidating reports whether any validation is running.
func (s *FormState) IsValidating() bool {
	s.track(KeyIsValidating)
	return s.flag(func(f *Form) bool { return f.validatingRuns > 0 })
}

// IsSubmitting is true while a submit handler runs.
func (s *FormState) IsSubmitting() bool {
	s.track(KeyIsSubmitting)
	return s.flag(func(f *Form) bool { return f.isSubmitting })
}

// IsSubmitted is set by the first submit attempt and cleared by Reset.
func (s *FormState) IsSubmitted() bool {
	s.track(KeyIsSubmitted)
	return s.flag(func(f *Form) bool { return f.isSubmitted })
}

// IsSubmitSuccessful reports whether the last submit passed validation and
// its handler returned no error.
func (s *FormState) IsSubmitSuccessful() bool {
	s.track(KeyIsSubmitSuccessful)
	return s.flag(func(f *Form) bool { return f.isSubmitSuccessful })
}

// IsLoading is true until LoadDefaults has run for WithDefaultValuesFunc.
func (s *FormState) IsLoading() bool {
	s.track(KeyIsLoading)
	return s.flag(func(f *Form) bool { return f.isLoading })
}

// SubmitCount returns the number of submit attempts since the last reset.
func (s *FormState) SubmitCount() int {
	s.track(KeySubmitCount)
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return s.f.submitCount
}

func (s *FormState) flag(get func(*Form) bool) bool {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return get(s.f)
}

// Snapshot is a complete copy of the form state.
type Snapshot struct {
	Values             map[string]any `json:"values"`
	Errors             ErrorTree      `json:"errors"`
	DirtyFields        FieldSet       `json:"dirtyFields"`
	TouchedFields      FieldSet       `json:"touchedFields"`
	ValidatingFields   FieldSet       `json:"validatingFields"`
	IsDirty            bool           `json:"isDirty"`
	IsValid            bool           `json:"isValid"`
	IsValidating       bool           `json:"isValidating"`
	IsSubmitting       bool           `json:"isSubmitting"`
	IsSubmitted        bool           `json:"isSubmitted"`
	IsSubmitSuccessful bool           `json:"isSubmitSuccessful"`
	IsLoading          bool           `json:"isLoading"`
	SubmitCount        int            `json:"submitCount"`
}

// Snapshot reads every key at once.
func (s *FormState) Snapshot() Snapshot {
	s.track(KeyAll)
	s.f.refreshValid(context.Background(), nil)
	f := s.f
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		Values:             deep.CloneMap(f.values),
		Errors:             newErrorTree(f.errors),
		DirtyFields:        newFieldSet(f.dirty),
		TouchedFields:      newFieldSet(f.touched),
		ValidatingFields:   newFieldSet(f.validating),
		IsDirty:            f.isDirty,
		IsValid:            f.isValid,
		IsValidating:       f.validatingRuns > 0,
		IsSubmitting:       f.isSubmitting,
		IsSubmitted:        f.isSubmitted,
		IsSubmitSuccessful: f.isSubmitSuccessful,
		IsLoading:          f.isLoading,
		SubmitCount:        f.submitCount,
	}
}
