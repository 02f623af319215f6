package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// LoadFromEnv loads configuration values from environment variables.
// It uses the `env` struct tag to determine which environment variable to read.
// This function recursively processes nested structs.
func LoadFromEnv(cfg interface{}) error {
	return loadFromEnv(reflect.ValueOf(cfg))
}

// MergeFromEnv merges environment variables into an existing config.
func MergeFromEnv(cfg interface{}) error {
	return LoadFromEnv(cfg)
}

func loadFromEnv(v reflect.Value) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := loadFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue, ok := os.LookupEnv(envTag)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue, fieldType.Name, envTag); err != nil {
			return err
		}
	}

	return nil
}

// setFieldValue sets a field value from a string environment variable.
// Integers accept any base prefix (0x, 0o, 0b).
func setFieldValue(field reflect.Value, value string, fieldName string, envVar string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intVal, err := strconv.ParseInt(value, 0, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer for %s (%s): %w", fieldName, envVar, err)
		}
		field.SetInt(intVal)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		uintVal, err := strconv.ParseUint(value, 0, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer for %s (%s): %w", fieldName, envVar, err)
		}
		field.SetUint(uintVal)

	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s (%s): %w", fieldName, envVar, err)
		}
		field.SetBool(boolVal)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type for %s (%s)", fieldName, envVar)
		}
		values := strings.Split(value, ",")
		for i, v := range values {
			values[i] = strings.TrimSpace(v)
		}
		field.Set(reflect.ValueOf(values))

	default:
		return fmt.Errorf("unsupported type %s for %s (%s)", field.Kind(), fieldName, envVar)
	}

	return nil
}
