package goform

import (
	"bytes"
	"context"
	"fmt"

	json "github.com/goccy/go-json"
)

// ValuesFromJSON decodes a JSON object into a value tree. Numbers decode as
// float64.
func ValuesFromJSON(data []byte) (map[string]any, error) {
	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// ValuesOf converts a struct (or any JSON-encodable value) into a value tree
// using its json tags.
func ValuesOf(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode values: %w", err)
	}
	return ValuesFromJSON(b)
}

// Decode converts a value tree into T using T's json tags.
func Decode[T any](values map[string]any) (T, error) {
	var out T
	b, err := json.Marshal(values)
	if err != nil {
		return out, fmt.Errorf("encode values: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode into %T: %w", out, err)
	}
	return out, nil
}

// ToJSON encodes the current values.
func (f *Form) ToJSON() ([]byte, error) { return json.Marshal(f.GetValues()) }

// HandleSubmitAs is HandleSubmit with the submitted values decoded into T. A
// decoding failure is returned from the submit function.
func HandleSubmitAs[T any](f *Form, onValid func(ctx context.Context, v T) error, onInvalid InvalidHandler) func(ctx context.Context) error {
	return f.HandleSubmit(func(ctx context.Context, values map[string]any) error {
		v, err := Decode[T](values)
		if err != nil {
			return err
		}
		return onValid(ctx, v)
	}, onInvalid)
}
