package goform_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goform"
)

func TestNew_DefaultValuesAreCopied(t *testing.T) {
	defaults := map[string]any{"a": "x", "n": map[string]any{"b": 1}}
	f := goform.New(goform.WithDefaultValues(defaults))

	defaults["a"] = "mutated"
	assert.Equal(t, "x", f.GetValue("a"))
	assert.Equal(t, 1, f.GetValue("n.b"))

	got := f.GetValues()
	got["a"] = "mutated"
	assert.Equal(t, "x", f.GetValue("a"))
	assert.Equal(t, map[string]any{"a": "x", "n": map[string]any{"b": 1}}, f.DefaultValues())
}

func TestRegister_SeedsValue(t *testing.T) {
	f := goform.New(goform.WithDefaultValues(map[string]any{"n": map[string]any{"b": 1}}))

	f.Register("n.b", goform.RegisterOptions{})
	assert.Equal(t, 1, f.GetValue("n.b"))

	f.Register("c", goform.RegisterOptions{Value: "seed"})
	assert.Equal(t, "seed", f.GetValue("c"))

	// a field without any value is present but does not make the form dirty
	f.Register("empty", goform.RegisterOptions{})
	_, present := f.GetValues()["empty"]
	assert.True(t, present)
	assert.False(t, f.FormState().DirtyFields().Has("empty"))

	// registering again keeps the current value
	f.SetValue(context.Background(), "n.b", 2, goform.SetValueOptions{})
	f.Register("n.b", goform.RegisterOptions{Required: goform.Required("")})
	assert.Equal(t, 2, f.GetValue("n.b"))
}

func TestRegister_MalformedPath(t *testing.T) {
	sink := &diagSink{}
	f := goform.New(sink.option())
	reg := f.Register("", goform.RegisterOptions{})
	assert.Equal(t, "", reg.Name)
	assert.Equal(t, []goform.UsageCode{goform.CodeMalformedPath}, sink.codes())
}

func TestSetValue_DirtyTracksDefaults(t *testing.T) {
	ctx := context.Background()
	f := goform.New(goform.WithDefaultValues(map[string]any{"a": "x"}))
	f.Register("a", goform.RegisterOptions{})
	st := f.FormState()
	require.False(t, st.IsDirty())

	f.SetValue(ctx, "a", "y", goform.SetValueOptions{})
	assert.True(t, st.IsDirty())
	assert.True(t, st.DirtyFields().Has("a"))
	assert.True(t, f.GetFieldState("a").IsDirty)

	f.SetValue(ctx, "a", "x", goform.SetValueOptions{})
	assert.False(t, st.IsDirty())
	assert.Zero(t, st.DirtyFields().Len())
}

func TestSetValue_NestedObjectDirtyLeaves(t *testing.T) {
	ctx := context.Background()
	f := goform.New(goform.WithDefaultValues(map[string]any{
		"user": map[string]any{"first": "a", "last": "b"},
	}))
	f.SetValue(ctx, "user", map[string]any{"first": "a", "last": "c"}, goform.SetValueOptions{})
	assert.Equal(t, []string{"user.last"}, f.FormState().DirtyFields().Paths())
}

func TestSetValue_TouchAndElementSync(t *testing.T) {
	ctx := context.Background()
	f := goform.New(goform.WithDefaultValues(map[string]any{"a": "x"}))
	reg := f.Register("a", goform.RegisterOptions{})
	el := newInput(nil)
	reg.Ref(el)
	assert.Equal(t, "x", el.current(), "attaching writes the stored value")

	f.SetValue(ctx, "a", "y", goform.SetValueOptions{ShouldTouch: true})
	assert.Equal(t, "y", el.current())
	assert.True(t, f.GetFieldState("a").IsTouched)
}

func TestRef_SeedsFromElementAndListens(t *testing.T) {
	f := goform.New()
	reg := f.Register("name", goform.RegisterOptions{})
	el := newInput("typed")
	reg.Ref(el)
	assert.Equal(t, "typed", f.GetValue("name"))

	el.typeValue("changed")
	assert.Equal(t, "changed", f.GetValue("name"))

	el.blur()
	assert.True(t, f.GetFieldState("name").IsTouched)

	// attaching the same element twice is a no-op
	reg.Ref(el)
	reg.Detach(el)
	assert.False(t, el.listening())
}

func TestRegistration_ValueTransforms(t *testing.T) {
	ctx := context.Background()
	f := goform.New()
	age := f.Register("age", goform.RegisterOptions{ValueAsNumber: true})
	age.Change(ctx, "42")
	assert.Equal(t, 42.0, f.GetValue("age"))

	upper := f.Register("code", goform.RegisterOptions{SetValueAs: func(v any) any {
		s, _ := v.(string)
		return s + "!"
	}})
	upper.Change(ctx, "go")
	assert.Equal(t, "go!", f.GetValue("code"))
}

// checkbox reads as its value when checked and nil otherwise.
type checkbox struct {
	fakeInput
	val     string
	checked bool
}

func (c *checkbox) ReadValue(goform.FieldKind) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.checked {
		return nil
	}
	return c.val
}

func (c *checkbox) WriteValue(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checked = false
	if vs, ok := v.([]any); ok {
		for _, x := range vs {
			if x == c.val {
				c.checked = true
			}
		}
	}
}

func (c *checkbox) check() {
	c.mu.Lock()
	c.checked = true
	c.mu.Unlock()
	c.typeValue(nil)
}

func TestCheckboxGroup_CollectsCheckedValues(t *testing.T) {
	ctx := context.Background()
	f := goform.New()
	reg := f.Register("colors", goform.RegisterOptions{Kind: goform.KindCheckbox})
	red, blue := &checkbox{val: "red"}, &checkbox{val: "blue"}
	reg.Ref(red)
	reg.Ref(blue)

	red.check()
	assert.Equal(t, []any{"red"}, f.GetValue("colors"))
	blue.check()
	assert.Equal(t, []any{"red", "blue"}, f.GetValue("colors"))

	f.SetValue(ctx, "colors", []any{"blue"}, goform.SetValueOptions{})
	assert.Nil(t, red.ReadValue(goform.KindCheckbox))
	assert.Equal(t, "blue", blue.ReadValue(goform.KindCheckbox))
}

func TestUnregister(t *testing.T) {
	ctx := context.Background()
	f := goform.New(goform.WithDefaultValues(map[string]any{"a": "x", "b": "y"}))
	f.Register("a", goform.RegisterOptions{})
	f.Register("b", goform.RegisterOptions{})
	f.SetValue(ctx, "a", "changed", goform.SetValueOptions{ShouldTouch: true})

	f.Unregister([]string{"a"}, goform.UnregisterOptions{})
	_, present := f.GetValues()["a"]
	assert.False(t, present)
	assert.False(t, f.GetFieldState("a").IsTouched)
	assert.False(t, f.FormState().IsDirty())

	f.Unregister([]string{"b"}, goform.UnregisterOptions{KeepValue: true})
	assert.Equal(t, "y", f.GetValue("b"))
	assert.True(t, f.Trigger(ctx, []string{"b"}, goform.TriggerOptions{}), "unregistered names are skipped")
}

func TestDetach_ShouldUnregister(t *testing.T) {
	f := goform.New(goform.WithShouldUnregister(true))
	reg := f.Register("a", goform.RegisterOptions{})
	el := newInput("v")
	reg.Ref(el)
	require.Equal(t, "v", f.GetValue("a"))

	reg.Ref(nil)
	_, present := f.GetValues()["a"]
	assert.False(t, present)

	keep := false
	g := goform.New(goform.WithShouldUnregister(true))
	regB := g.Register("b", goform.RegisterOptions{ShouldUnregister: &keep})
	regB.Ref(newInput("v"))
	regB.Ref(nil)
	assert.Equal(t, "v", g.GetValue("b"))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	f := goform.New(goform.WithDefaultValues(map[string]any{"a": "x"}))
	f.Register("a", goform.RegisterOptions{})
	f.SetValue(ctx, "a", "y", goform.SetValueOptions{ShouldTouch: true})
	f.SetError("b", goform.FieldError{Type: "server"}, goform.SetErrorOptions{})

	f.Reset(ctx, nil, goform.KeepStateOptions{})
	st := f.FormState()
	assert.Equal(t, "x", f.GetValue("a"))
	assert.False(t, st.IsDirty())
	assert.Zero(t, st.TouchedFields().Len())
	assert.True(t, st.Errors().Empty())

	f.Reset(ctx, map[string]any{"a": "z"}, goform.KeepStateOptions{})
	assert.Equal(t, "z", f.DefaultValues()["a"])
	assert.False(t, st.IsDirty())

	f.Reset(ctx, map[string]any{"a": "w"}, goform.KeepStateOptions{KeepDefaultValues: true})
	assert.Equal(t, "z", f.DefaultValues()["a"])
	assert.True(t, st.IsDirty())
}

func TestReset_KeepDirtyValues(t *testing.T) {
	ctx := context.Background()
	f := goform.New(goform.WithDefaultValues(map[string]any{"a": "x", "b": "y"}))
	f.SetValue(ctx, "a", "edited", goform.SetValueOptions{})

	f.Reset(ctx, map[string]any{"a": "new", "b": "new"}, goform.KeepStateOptions{KeepDirtyValues: true})
	assert.Equal(t, "edited", f.GetValue("a"))
	assert.Equal(t, "new", f.GetValue("b"))
	assert.Equal(t, []string{"a"}, f.FormState().DirtyFields().Paths())
}

func TestReset_SubmitFlags(t *testing.T) {
	ctx := context.Background()
	f := goform.New()
	require.NoError(t, f.HandleSubmit(nil, nil)(ctx))
	st := f.FormState()
	require.Equal(t, 1, st.SubmitCount())

	f.Reset(ctx, nil, goform.KeepStateOptions{KeepSubmitCount: true, KeepIsSubmitted: true})
	assert.Equal(t, 1, st.SubmitCount())
	assert.True(t, st.IsSubmitted())
	assert.False(t, st.IsSubmitSuccessful())

	f.Reset(ctx, nil, goform.KeepStateOptions{})
	assert.Zero(t, st.SubmitCount())
	assert.False(t, st.IsSubmitted())
}

func TestResetField(t *testing.T) {
	ctx := context.Background()
	f := goform.New(goform.WithDefaultValues(map[string]any{"a": "x"}))
	f.Register("a", goform.RegisterOptions{})
	f.SetValue(ctx, "a", "y", goform.SetValueOptions{ShouldTouch: true})
	f.SetError("a", goform.FieldError{Type: "server", Message: "taken"}, goform.SetErrorOptions{})

	f.ResetField(ctx, "a", goform.ResetFieldOptions{KeepError: true})
	fs := f.GetFieldState("a")
	assert.Equal(t, "x", f.GetValue("a"))
	assert.False(t, fs.IsDirty)
	assert.False(t, fs.IsTouched)
	require.NotNil(t, fs.Error)
	assert.Equal(t, "taken", fs.Error.Message)

	f.ResetField(ctx, "a", goform.ResetFieldOptions{DefaultValue: "z"})
	assert.Equal(t, "z", f.GetValue("a"))
	assert.Equal(t, "z", f.DefaultValues()["a"])
	assert.Nil(t, f.GetFieldState("a").Error)
}

func TestSetErrorAndClearErrors(t *testing.T) {
	f := goform.New()
	el := newInput("v")
	f.Register("email", goform.RegisterOptions{}).Ref(el)
	st := f.FormState()
	require.True(t, st.IsValid())

	f.SetError("email", goform.FieldError{Type: "server", Message: "taken"}, goform.SetErrorOptions{ShouldFocus: true})
	f.SetError("root.server", goform.FieldError{Type: "503"}, goform.SetErrorOptions{})
	assert.Equal(t, 1, el.focusCount())
	assert.False(t, st.IsValid())
	assert.Equal(t, []string{"email", "root.server"}, st.Errors().Paths())
	fs := f.GetFieldState("email")
	assert.True(t, fs.Invalid)
	assert.Equal(t, "taken", fs.Error.Message)

	f.ClearErrors("root")
	assert.Equal(t, []string{"email"}, st.Errors().Paths())

	f.ClearErrors()
	assert.True(t, st.Errors().Empty())
	assert.True(t, st.IsValid())
}

func TestLoadDefaults(t *testing.T) {
	ctx := context.Background()
	f := goform.New(goform.WithDefaultValuesFunc(func(context.Context) (map[string]any, error) {
		return map[string]any{"a": "loaded"}, nil
	}))
	st := f.FormState()
	require.True(t, st.IsLoading())

	require.NoError(t, f.LoadDefaults(ctx))
	assert.False(t, st.IsLoading())
	assert.Equal(t, "loaded", f.GetValue("a"))
	assert.Equal(t, "loaded", st.DefaultValues()["a"])
	assert.False(t, st.IsDirty())
}

func TestLoadDefaults_Failure(t *testing.T) {
	sink := &diagSink{}
	boom := errors.New("backend down")
	f := goform.New(sink.option(), goform.WithDefaultValuesFunc(func(context.Context) (map[string]any, error) {
		return nil, boom
	}))
	err := f.LoadDefaults(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, f.FormState().IsLoading())
	assert.Equal(t, []goform.UsageCode{goform.CodeDefaultsFailed}, sink.codes())

	// without a loader it does nothing
	assert.NoError(t, goform.New().LoadDefaults(context.Background()))
}

func TestSetFocus_DefersUntilAttached(t *testing.T) {
	f := goform.New()
	reg := f.Register("a", goform.RegisterOptions{})
	f.SetFocus("a")
	el := newInput(nil)
	reg.Ref(el)
	assert.Equal(t, 1, el.focusCount())

	f.SetFocus("a")
	assert.Equal(t, 2, el.focusCount())
}
