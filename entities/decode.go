package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Decode unmarshals a contract value into v, a pointer. Every field of a
// contract is required: a missing or null field, a field of the wrong JSON
// type, or a value failing its Validate method makes Decode fail.
func Decode(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode into %T: not a pointer", v)
	}

	if err := json.Unmarshal(data, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return malformed("%s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return malformed("%v", err)
	}

	if err := requireFields(data, rv.Elem().Type(), ""); err != nil {
		return err
	}

	if val, ok := v.(Validator); ok {
		return val.Validate()
	}
	return nil
}

func requireFields(raw json.RawMessage, t reflect.Type, path string) error {
	switch t.Kind() {
	case reflect.Struct:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			return malformed("%s is not an object", orRoot(path))
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name, required := jsonName(f)
			if name == "" {
				continue
			}
			fieldPath := join(path, name)
			value, ok := obj[name]
			if !ok {
				if required {
					return malformed("%s is missing", fieldPath)
				}
				continue
			}
			if isNull(value) {
				return malformed("%s is null", fieldPath)
			}
			if err := requireFields(value, f.Type, fieldPath); err != nil {
				return err
			}
		}
	case reflect.Slice:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return malformed("%s is not an array", orRoot(path))
		}
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if isNull(item) {
				return malformed("%s is null", itemPath)
			}
			if err := requireFields(item, t.Elem(), itemPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// jsonName returns the wire name of f and whether it must be present.
func jsonName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, !strings.Contains(opts, "omitempty")
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func orRoot(path string) string {
	if path == "" {
		return "payload"
	}
	return path
}
