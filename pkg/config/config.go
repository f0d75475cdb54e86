// Package config loads struct-tagged configuration from YAML files and
// environment variables.
//
// Supported tags:
//
//	env:"NAME"        environment variable that overrides the field
//	default:"value"   applied when the field is still zero after file + env
//	required:"true"   error when the field is still zero and has no default
//
// Nested structs are walked recursively. Scalars, time.Duration and comma
// separated []string values are supported.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Validator is implemented by config structs with cross-field rules. It runs
// after file, env and defaults have been applied.
type Validator interface {
	Validate() error
}

// assign parses raw into field according to the field's type.
func assign(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %q to duration: %w", raw, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to convert %q to int: %w", raw, err)
		}
		field.SetInt(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("failed to convert %q to float: %w", raw, err)
		}
		field.SetFloat(v)
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %q to bool: %w", raw, err)
		}
		field.SetBool(v)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(raw, ",")
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			slice.Index(i).SetString(strings.TrimSpace(p))
		}
		field.Set(slice)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}

// applyEnv overlays environment variables and records which fields they set,
// keyed by "<StructType>.<Field>".
func applyEnv(val reflect.Value, set map[string]bool) error {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field, meta := val.Field(i), typ.Field(i)
		if !meta.IsExported() {
			continue
		}
		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := applyEnv(field, set); err != nil {
				return err
			}
			continue
		}

		name := meta.Tag.Get("env")
		if name == "" {
			continue
		}
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		if err := assign(field, raw); err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
		set[typ.Name()+"."+meta.Name] = true
	}
	return nil
}

// applyDefaults fills zero fields from their default tag and reports missing
// required fields. All problems are collected rather than stopping at the first.
func applyDefaults(val reflect.Value, set map[string]bool) error {
	var result error
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field, meta := val.Field(i), typ.Field(i)
		if !meta.IsExported() {
			continue
		}
		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := applyDefaults(field, set); err != nil {
				result = multierror.Append(result, err)
			}
			continue
		}

		def := meta.Tag.Get("default")
		required := strings.EqualFold(meta.Tag.Get("required"), "true") || meta.Tag.Get("required") == "1"

		if !field.IsZero() {
			continue
		}
		if def == "" {
			if required {
				result = multierror.Append(result, fmt.Errorf("required field env:%s / yaml:%s is missing",
					meta.Tag.Get("env"), meta.Tag.Get("yaml")))
			}
			continue
		}
		if set[typ.Name()+"."+meta.Name] {
			continue
		}
		if err := assign(field, def); err != nil {
			result = multierror.Append(result, fmt.Errorf("default for %s: %w", meta.Name, err))
		}
	}
	return result
}

func validate[T any](dest *T) error {
	if v, ok := any(dest).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

func load[T any](dest *T) error {
	val := reflect.ValueOf(dest).Elem()
	set := make(map[string]bool)
	if err := applyEnv(val, set); err != nil {
		return err
	}
	if err := applyDefaults(val, set); err != nil {
		var zero T
		*dest = zero
		return err
	}
	return nil
}

// GetConfigFromEnvVars loads configuration from environment variables only.
//
//	var cfg MyConfig
//	err := GetConfigFromEnvVars(&cfg)
func GetConfigFromEnvVars[T any](dest *T) error {
	if err := load(dest); err != nil {
		return err
	}
	return validate(dest)
}

// GetConfig reads a YAML file (with ${VAR} interpolation), then overlays
// environment variables and defaults. An empty path means env only. With
// allowFileErrors, an unreadable or malformed file falls back to env only.
//
//	var cfg MyConfig
//	err := GetConfig(&cfg, "config.yaml", true)
func GetConfig[T any](dest *T, path string, allowFileErrors bool) error {
	if path == "" {
		return GetConfigFromEnvVars(dest)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: operator supplied config path
	if err != nil {
		if allowFileErrors {
			return GetConfigFromEnvVars(dest)
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), dest); err != nil {
		if allowFileErrors {
			var zero T
			*dest = zero
			return GetConfigFromEnvVars(dest)
		}
		return fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return GetConfigFromEnvVars(dest)
}
