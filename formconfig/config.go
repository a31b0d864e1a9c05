// Package formconfig builds forms from declarative YAML or JSON documents.
//
// A document declares the validation modes, default values and the rules of
// each field:
//
//	mode: onBlur
//	criteriaMode: all
//	defaultValues:
//	  email: ""
//	fields:
//	  - name: email
//	    required: email is required
//	    pattern: {value: "^[^@]+@[^@]+$", message: invalid email}
//	  - name: confirm
//	    equalTo: email
//
// Rule values take either the bare form (min: 3) or the object form
// (min: {value: 3, message: too small}).
package formconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/reoring/goform"
	"github.com/reoring/goform/rules"
)

// Config is a form declaration.
type Config struct {
	Mode             string         `json:"mode,omitempty"`
	ReValidateMode   string         `json:"reValidateMode,omitempty"`
	CriteriaMode     string         `json:"criteriaMode,omitempty"`
	ShouldUnregister bool           `json:"shouldUnregister,omitempty"`
	DefaultValues    map[string]any `json:"defaultValues,omitempty"`
	Fields           []Field        `json:"fields"`
}

// Field declares the rules of one field.
type Field struct {
	Name          string   `json:"name"`
	Required      any      `json:"required,omitempty"`
	Min           any      `json:"min,omitempty"`
	Max           any      `json:"max,omitempty"`
	MinLength     any      `json:"minLength,omitempty"`
	MaxLength     any      `json:"maxLength,omitempty"`
	Pattern       any      `json:"pattern,omitempty"`
	ValueAsNumber bool     `json:"valueAsNumber,omitempty"`
	ValueAsDate   bool     `json:"valueAsDate,omitempty"`
	Disabled      bool     `json:"disabled,omitempty"`
	Deps          []string `json:"deps,omitempty"`
	EqualTo       any      `json:"equalTo,omitempty"`
	OneOf         any      `json:"oneOf,omitempty"`
	UniqueBy      any      `json:"uniqueBy,omitempty"`
	AtLeastOne    any      `json:"atLeastOne,omitempty"`
}

var ErrUnknownFormat = errors.New("formconfig: unknown config format")

// Load reads a config file; .yaml and .yml are read as YAML, .json as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("formconfig: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(data)
	case ".json":
		return LoadJSON(data)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// LoadJSON parses a JSON config.
func LoadJSON(data []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("formconfig: decode json: %w", err)
	}
	return &c, c.check()
}

// LoadYAML parses a YAML config.
func LoadYAML(data []byte) (*Config, error) {
	var node any
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("formconfig: decode yaml: %w", err)
	}
	m := yamlAnyToStringMap(node)
	if m == nil {
		return nil, errors.New("formconfig: yaml document is not a mapping")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("formconfig: %w", err)
	}
	return LoadJSON(b)
}

func (c *Config) check() error {
	seen := map[string]bool{}
	for i, f := range c.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("formconfig: field %d has no name", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("formconfig: field %q declared twice", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Options converts the form-level settings into goform options.
func (c *Config) Options() ([]goform.Option, error) {
	var opts []goform.Option
	if c.Mode != "" {
		m, ok := goform.ParseMode(c.Mode)
		if !ok {
			return nil, fmt.Errorf("formconfig: unknown mode %q", c.Mode)
		}
		opts = append(opts, goform.WithMode(m))
	}
	if c.ReValidateMode != "" {
		m, ok := goform.ParseMode(c.ReValidateMode)
		if !ok {
			return nil, fmt.Errorf("formconfig: unknown reValidateMode %q", c.ReValidateMode)
		}
		opts = append(opts, goform.WithReValidateMode(m))
	}
	switch c.CriteriaMode {
	case "", "firstError":
	case "all":
		opts = append(opts, goform.WithCriteriaMode(goform.CriteriaAll))
	default:
		return nil, fmt.Errorf("formconfig: unknown criteriaMode %q", c.CriteriaMode)
	}
	if c.DefaultValues != nil {
		opts = append(opts, goform.WithDefaultValues(c.DefaultValues))
	}
	if c.ShouldUnregister {
		opts = append(opts, goform.WithShouldUnregister(true))
	}
	return opts, nil
}

// Apply registers every declared field on f.
func (c *Config) Apply(f *goform.Form) error {
	for _, fc := range c.Fields {
		ro, err := fc.RegisterOptions()
		if err != nil {
			return err
		}
		f.Register(fc.Name, ro)
	}
	return nil
}

// Build creates a form from the config. extra options are applied after the
// config's own.
func (c *Config) Build(extra ...goform.Option) (*goform.Form, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	f := goform.New(append(opts, extra...)...)
	if err := c.Apply(f); err != nil {
		return nil, err
	}
	return f, nil
}

// RegisterOptions converts the field declaration.
func (fc Field) RegisterOptions() (goform.RegisterOptions, error) {
	ro := goform.RegisterOptions{
		ValueAsNumber: fc.ValueAsNumber,
		ValueAsDate:   fc.ValueAsDate,
		Disabled:      fc.Disabled,
		Deps:          fc.Deps,
	}
	if fc.ValueAsNumber {
		ro.Kind = goform.KindNumber
	} else if fc.ValueAsDate {
		ro.Kind = goform.KindDate
	}
	wrap := func(rule string, err error) error {
		return fmt.Errorf("formconfig: field %q: %s: %w", fc.Name, rule, err)
	}

	if fc.Required != nil {
		v, msg := split(fc.Required)
		switch t := v.(type) {
		case bool:
			if t {
				ro.Required = goform.RuleMsg(true, msg)
			}
		case string:
			ro.Required = goform.Required(t)
		default:
			return ro, wrap("required", fmt.Errorf("unexpected %T", v))
		}
	}
	if fc.Min != nil {
		v, msg := split(fc.Min)
		ro.Min = goform.RuleMsg(v, msg)
	}
	if fc.Max != nil {
		v, msg := split(fc.Max)
		ro.Max = goform.RuleMsg(v, msg)
	}
	var err error
	if ro.MinLength, err = lengthRule(fc.MinLength); err != nil {
		return ro, wrap("minLength", err)
	}
	if ro.MaxLength, err = lengthRule(fc.MaxLength); err != nil {
		return ro, wrap("maxLength", err)
	}
	if fc.Pattern != nil {
		v, msg := split(fc.Pattern)
		expr, ok := v.(string)
		if !ok {
			return ro, wrap("pattern", fmt.Errorf("unexpected %T", v))
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return ro, wrap("pattern", err)
		}
		ro.Pattern = goform.RuleMsg(re, msg)
	}

	if fc.EqualTo != nil {
		v, msg := split(fc.EqualTo)
		path, ok := v.(string)
		if !ok {
			return ro, wrap("equalTo", fmt.Errorf("unexpected %T", v))
		}
		ro.Validators = append(ro.Validators, goform.Validator{Name: "equalTo", Fn: rules.EqualTo(path, msg)})
	}
	if fc.OneOf != nil {
		v, msg := split(fc.OneOf)
		allowed, ok := v.([]any)
		if !ok {
			return ro, wrap("oneOf", fmt.Errorf("unexpected %T", v))
		}
		ro.Validators = append(ro.Validators, goform.Validator{Name: "oneOf", Fn: rules.OneOf(msg, allowed...)})
	}
	if fc.UniqueBy != nil {
		v, msg := split(fc.UniqueBy)
		key, ok := v.(string)
		if !ok {
			return ro, wrap("uniqueBy", fmt.Errorf("unexpected %T", v))
		}
		ro.Validators = append(ro.Validators, goform.Validator{Name: "uniqueBy", Fn: rules.UniqueBy(key, msg)})
	}
	if fc.AtLeastOne != nil {
		v, msg := split(fc.AtLeastOne)
		if s, ok := v.(string); ok {
			v, msg = true, s
		}
		if b, _ := v.(bool); b {
			ro.Validators = append(ro.Validators, goform.Validator{Name: "atLeastOne", Fn: rules.AtLeastOne(msg)})
		}
	}
	return ro, nil
}

// split separates the object form {value, message} from a bare rule value.
func split(raw any) (any, string) {
	m, ok := raw.(map[string]any)
	if !ok {
		return raw, ""
	}
	v, has := m["value"]
	if !has {
		return raw, ""
	}
	msg, _ := m["message"].(string)
	return v, msg
}

func lengthRule(raw any) (*goform.Rule[int], error) {
	if raw == nil {
		return nil, nil
	}
	v, msg := split(raw)
	n, ok := v.(float64)
	if !ok || n < 0 || n != float64(int(n)) {
		return nil, fmt.Errorf("want a non-negative integer, got %v", v)
	}
	return goform.RuleMsg(int(n), msg), nil
}

// yamlAnyToStringMap converts YAML-decoded values (which may contain map[any]any)
// into JSON-like map[string]any recursively. Non-map roots return nil.
func yamlAnyToStringMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = yamlNormalizeValue(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = yamlNormalizeValue(vv)
		}
		return out
	default:
		return nil
	}
}

func yamlNormalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any, map[any]any:
		return yamlAnyToStringMap(t)
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = yamlNormalizeValue(t[i])
		}
		return arr
	default:
		return v
	}
}
