package goform_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goform"
)

func TestHandleSubmit_InvalidThenValid(t *testing.T) {
	ctx := context.Background()
	f := goform.New()
	el := newInput("")
	f.Register("email", goform.RegisterOptions{Required: goform.Required("email is required")}).Ref(el)
	f.Register("note", goform.RegisterOptions{Disabled: true, Value: "internal"})

	var submitted map[string]any
	var invalid goform.ErrorTree
	submit := f.HandleSubmit(
		func(_ context.Context, values map[string]any) error {
			submitted = values
			return nil
		},
		func(_ context.Context, errs goform.ErrorTree) error {
			invalid = errs
			return nil
		},
	)

	require.NoError(t, submit(ctx))
	st := f.FormState()
	assert.Nil(t, submitted)
	assert.Equal(t, []string{"email"}, invalid.Paths())
	assert.Equal(t, "email is required", invalid.Get("email").Message)
	assert.Equal(t, 1, el.focusCount(), "the first invalid field is focused")
	assert.True(t, st.IsSubmitted())
	assert.False(t, st.IsSubmitSuccessful())
	assert.Equal(t, 1, st.SubmitCount())

	el.typeValue("me@example.com")
	require.NoError(t, submit(ctx))
	assert.Equal(t, map[string]any{"email": "me@example.com"}, submitted, "disabled fields are left out")
	assert.True(t, st.IsSubmitSuccessful())
	assert.Equal(t, 2, st.SubmitCount())
	assert.False(t, st.IsSubmitting())
}

func TestHandleSubmit_HandlerError(t *testing.T) {
	boom := errors.New("save failed")
	f := goform.New()
	err := f.HandleSubmit(func(context.Context, map[string]any) error { return boom }, nil)(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, f.FormState().IsSubmitSuccessful())
	assert.Equal(t, 1, f.FormState().SubmitCount())
}

func TestHandleSubmit_IsSubmittingDuringHandler(t *testing.T) {
	f := goform.New()
	var during bool
	var events []bool
	f.Subscribe(goform.SubscribeOptions{Keys: goform.KeyIsSubmitting, Callback: func(st *goform.FormState) {
		events = append(events, st.IsSubmitting())
	}})
	err := f.HandleSubmit(func(context.Context, map[string]any) error {
		during = f.FormState().IsSubmitting()
		return nil
	}, nil)(context.Background())
	require.NoError(t, err)
	assert.True(t, during)
	assert.Equal(t, []bool{true, false}, events)
}

func TestHandleSubmit_ClearsRootErrors(t *testing.T) {
	f := goform.New()
	f.SetError("root.server", goform.FieldError{Type: "500", Message: "try again"}, goform.SetErrorOptions{})
	called := false
	require.NoError(t, f.HandleSubmit(func(context.Context, map[string]any) error {
		called = true
		return nil
	}, nil)(context.Background()))
	assert.True(t, called)
	assert.True(t, f.FormState().Errors().Empty())
}

func TestHandleSubmit_ResolverValues(t *testing.T) {
	f := goform.New(goform.WithResolver(func(_ context.Context, values map[string]any, _ any, _ goform.ResolverOptions) (goform.ResolverResult, error) {
		return goform.ResolverResult{Values: map[string]any{"age": 30.0, "extra": true}}, nil
	}))
	f.Register("age", goform.RegisterOptions{Value: "30"})
	var got map[string]any
	require.NoError(t, f.HandleSubmit(func(_ context.Context, v map[string]any) error {
		got = v
		return nil
	}, nil)(context.Background()))
	assert.Equal(t, map[string]any{"age": 30.0, "extra": true}, got)
}

func TestHandleSubmit_NoFocusWhenDisabled(t *testing.T) {
	f := goform.New(goform.WithShouldFocusError(false))
	el := newInput("")
	f.Register("a", goform.RegisterOptions{Required: goform.RuleOf(true)}).Ref(el)
	require.NoError(t, f.HandleSubmit(nil, nil)(context.Background()))
	assert.Zero(t, el.focusCount())
}

type signup struct {
	Email string `json:"email"`
	Age   int    `json:"age"`
}

func TestHandleSubmitAs(t *testing.T) {
	f := goform.New(goform.WithDefaultValues(map[string]any{"email": "a@b.c", "age": 41}))
	var got signup
	err := goform.HandleSubmitAs(f, func(_ context.Context, s signup) error {
		got = s
		return nil
	}, nil)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, signup{Email: "a@b.c", Age: 41}, got)

	bad := goform.New(goform.WithDefaultValues(map[string]any{"age": "not a number"}))
	err = goform.HandleSubmitAs(bad, func(context.Context, signup) error { return nil }, nil)(context.Background())
	assert.Error(t, err)
	assert.False(t, bad.FormState().IsSubmitSuccessful())
}
