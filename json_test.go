package goform_test

import (
	"context"
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goform"
)

func TestValuesFromJSON(t *testing.T) {
	v, err := goform.ValuesFromJSON([]byte(`{"a":1,"items":[{"n":"x"}]}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0, "items": []any{map[string]any{"n": "x"}}}, v)

	v, err = goform.ValuesFromJSON([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = goform.ValuesFromJSON([]byte(`{`))
	assert.Error(t, err)
}

func TestValuesOfAndDecode(t *testing.T) {
	v, err := goform.ValuesOf(signup{Email: "e", Age: 3})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"email": "e", "age": 3.0}, v)

	s, err := goform.Decode[signup](v)
	require.NoError(t, err)
	assert.Equal(t, signup{Email: "e", Age: 3}, s)
}

func TestForm_ToJSON(t *testing.T) {
	f := goform.New(goform.WithDefaultValues(map[string]any{"a": "x"}))
	b, err := f.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"x"}`, string(b))
}

func TestSnapshot_JSON(t *testing.T) {
	ctx := context.Background()
	f := goform.New()
	f.Register("a", goform.RegisterOptions{Required: goform.Required("needed")})
	f.Trigger(ctx, nil, goform.TriggerOptions{})
	f.SetValue(ctx, "b", 1, goform.SetValueOptions{ShouldTouch: true})

	b, err := json.Marshal(f.FormState().Snapshot())
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, map[string]any{"a": map[string]any{"type": "required", "message": "needed"}}, out["errors"])
	assert.Equal(t, map[string]any{"b": true}, out["touchedFields"])
	assert.Equal(t, false, out["isValid"])
}

func TestErrorTree(t *testing.T) {
	tree := goform.ErrorsFromMap(map[string]*goform.FieldError{
		"items.1.name": {Type: "required"},
		"email":        {Type: "pattern", Message: "bad email"},
		"ignored":      nil,
	})
	assert.Equal(t, 2, tree.Len())
	assert.Equal(t, []string{"email", "items.1.name"}, tree.Paths())
	assert.True(t, tree.Has("items"))
	assert.Nil(t, tree.Get("items"))
	assert.Equal(t, "bad email", tree.Get("email").Error())
	assert.Equal(t, "required", tree.Get("items.1.name").Error())
	assert.Equal(t, "pattern at email; required at items.1.name", tree.String())
	assert.True(t, goform.ErrorsFromMap(nil).Empty())
}

func TestUsageError(t *testing.T) {
	inner := errors.New("boom")
	var err error = &goform.UsageError{Code: goform.CodeValidatorPanic, Op: "validate", Path: "a", Err: inner}
	assert.Equal(t, `goform: validate "a": VALIDATOR_PANIC: boom`, err.Error())
	assert.ErrorIs(t, err, inner)

	ue, ok := goform.AsUsageError(err)
	require.True(t, ok)
	assert.Equal(t, goform.CodeValidatorPanic, ue.Code)
	_, ok = goform.AsUsageError(inner)
	assert.False(t, ok)
}

func TestStrictModePanics(t *testing.T) {
	f := goform.New(goform.WithStrict(true))
	assert.Panics(t, func() {
		f.SetValue(context.Background(), "", 1, goform.SetValueOptions{})
	})
}

func TestParseMode(t *testing.T) {
	for _, m := range []goform.Mode{goform.ModeOnSubmit, goform.ModeOnBlur, goform.ModeOnChange, goform.ModeOnTouched, goform.ModeAll} {
		got, ok := goform.ParseMode(m.String())
		require.True(t, ok)
		assert.Equal(t, m, got)
	}
	_, ok := goform.ParseMode("whenever")
	assert.False(t, ok)
}
