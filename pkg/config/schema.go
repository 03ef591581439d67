// Package config reflects strategy and provider configuration structs
// into JSON Schema so the CLI and strategy loader can validate operator-
// supplied YAML before an engine ever sees it.
package config

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
)

// ToJSONSchema reflects T's struct tags into a JSON Schema document.
// DoNotReference is set so the result is a single self-contained object
// rather than a tree of "$ref" definitions, which is easier to render
// in CLI validation error messages.
func ToJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true

	schema := r.Reflect(t)

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// GetKeychainFields walks T's fields (including embedded structs) and
// returns the JSON names of those tagged `keychain:"true"` — secrets like
// API keys that the CLI should source from a keychain instead of a plain
// config file.
func GetKeychainFields[T any](t T) []string {
	var fields []string

	walkKeychainFields(reflect.TypeOf(t), &fields)

	return fields
}

func walkKeychainFields(t reflect.Type, fields *[]string) {
	if t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous {
			walkKeychainFields(field.Type, fields)
			continue
		}

		if field.Tag.Get("keychain") == "true" {
			name := field.Tag.Get("json")
			if name == "" {
				name = field.Name
			}

			*fields = append(*fields, name)
		}
	}
}
