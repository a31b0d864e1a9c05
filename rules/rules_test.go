package rules_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goform"
	"github.com/reoring/goform/rules"
)

func run(t *testing.T, fn goform.ValidateFunc, v any, values map[string]any) any {
	t.Helper()
	res, err := fn(context.Background(), v, values)
	require.NoError(t, err)
	return res
}

func TestIf_Operators(t *testing.T) {
	values := map[string]any{"age": 20.0, "country": "JP", "start": "2024-01-01"}
	cases := []struct {
		cond rules.Conditional
		want bool
	}{
		{rules.If("country", rules.Eq, "JP"), true},
		{rules.If("country", rules.Ne, "JP"), false},
		{rules.If("age", rules.Gt, 18), true},
		{rules.If("age", rules.Le, 19), false},
		{rules.If("age", rules.Ge, 20), true},
		{rules.If("age", rules.Lt, "x"), false},
		{rules.If("start", rules.Lt, "2024-06-01"), true},
		{rules.If("missing", rules.Eq, nil), false},
		{rules.If("age", rules.Gt, 18).And(rules.If("country", rules.Eq, "US")), false},
		{rules.If("age", rules.Gt, 18).Or(rules.If("country", rules.Eq, "US")), true},
		{rules.IfAny(rules.If("country", rules.Eq, "US"), rules.If("country", rules.Eq, "FR")), false},
	}
	for i, tc := range cases {
		assert.Equal(t, tc.want, tc.cond.Holds(values), "case %d", i)
	}
}

func TestRequiredIf(t *testing.T) {
	fn := rules.RequiredIf(rules.If("contact", rules.Eq, "phone"), "phone is required")
	assert.Equal(t, "phone is required", run(t, fn, "", map[string]any{"contact": "phone"}))
	assert.Equal(t, true, run(t, fn, "", map[string]any{"contact": "email"}))
	assert.Equal(t, true, run(t, fn, "555", map[string]any{"contact": "phone"}))

	bare := rules.RequiredIf(rules.If("x", rules.Eq, true), "")
	assert.Equal(t, false, run(t, bare, nil, map[string]any{"x": true}))
}

func TestEqualTo(t *testing.T) {
	fn := rules.EqualTo("password", "passwords differ")
	assert.Equal(t, true, run(t, fn, "s3cret", map[string]any{"password": "s3cret"}))
	assert.Equal(t, "passwords differ", run(t, fn, "other", map[string]any{"password": "s3cret"}))
}

func TestOneOf(t *testing.T) {
	fn := rules.OneOf("pick a plan", "free", "pro")
	assert.Equal(t, true, run(t, fn, "pro", nil))
	assert.Equal(t, true, run(t, fn, "", nil))
	assert.Equal(t, "pick a plan", run(t, fn, "gold", nil))
}

func TestAtLeastOne(t *testing.T) {
	fn := rules.AtLeastOne("")
	assert.Equal(t, true, run(t, fn, []any{1}, nil))
	assert.Equal(t, "at least 1 item is required", run(t, fn, []any{}, nil))
	assert.Equal(t, "at least 1 item is required", run(t, fn, nil, nil))
}

func TestUniqueBy(t *testing.T) {
	fn := rules.UniqueBy("sku", "")
	items := []any{map[string]any{"sku": "a"}, map[string]any{"sku": "b"}}
	assert.Equal(t, true, run(t, fn, items, nil))
	items = append(items, map[string]any{"sku": "a"})
	assert.Equal(t, "duplicate value", run(t, fn, items, nil))

	whole := rules.UniqueBy("", "dup")
	assert.Equal(t, "dup", run(t, whole, []any{"x", "x"}, nil))
	assert.Equal(t, true, run(t, whole, "not a list", nil))
}

func TestAndOr(t *testing.T) {
	pass := func(context.Context, any, map[string]any) (any, error) { return true, nil }
	fail := func(msg string) goform.ValidateFunc {
		return func(context.Context, any, map[string]any) (any, error) { return msg, nil }
	}
	assert.Equal(t, "first", run(t, rules.And(pass, fail("first"), fail("second")), nil, nil))
	assert.Equal(t, true, run(t, rules.And(pass, nil), nil, nil))
	assert.Equal(t, true, run(t, rules.Or(fail("a"), pass), nil, nil))
	assert.Equal(t, "b", run(t, rules.Or(fail("a"), fail("b")), nil, nil))

	boom := errors.New("boom")
	_, err := rules.And(func(context.Context, any, map[string]any) (any, error) { return nil, boom })(context.Background(), nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRules_InForm(t *testing.T) {
	ctx := context.Background()
	f := goform.New(goform.WithDefaultValues(map[string]any{"password": "a", "confirm": "b"}))
	f.Register("password", goform.RegisterOptions{Deps: []string{"confirm"}})
	f.Register("confirm", goform.RegisterOptions{Validators: []goform.Validator{
		{Name: "equalTo", Fn: rules.EqualTo("password", "passwords differ")},
	}})

	require.False(t, f.Trigger(ctx, nil, goform.TriggerOptions{}))
	fe := f.GetFieldState("confirm").Error
	require.NotNil(t, fe)
	assert.Equal(t, "equalTo", fe.Type)
	assert.Equal(t, "passwords differ", fe.Message)

	f.SetValue(ctx, "password", "b", goform.SetValueOptions{ShouldValidate: true})
	assert.Nil(t, f.GetFieldState("confirm").Error)
}
