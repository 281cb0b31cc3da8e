package openapi

import (
	"reflect"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

var timeType = reflect.TypeOf(time.Time{})

// SchemaOf derives an inline JSON schema from the Go type of example,
// honouring json tags. Fields tagged omitempty are optional.
func SchemaOf(example any) *openapi3.SchemaRef {
	if example == nil {
		return openapi3.NewObjectSchema().NewRef()
	}
	return schemaFor(reflect.TypeOf(example), map[reflect.Type]bool{})
}

func schemaFor(t reflect.Type, seen map[reflect.Type]bool) *openapi3.SchemaRef {
	if t.Kind() == reflect.Pointer {
		ref := schemaFor(t.Elem(), seen)
		ref.Value.Nullable = true
		return ref
	}

	switch t.Kind() {
	case reflect.String:
		return openapi3.NewStringSchema().NewRef()
	case reflect.Bool:
		return openapi3.NewBoolSchema().NewRef()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return openapi3.NewIntegerSchema().NewRef()
	case reflect.Float32, reflect.Float64:
		return openapi3.NewFloat64Schema().NewRef()
	case reflect.Slice, reflect.Array:
		return openapi3.NewArraySchema().WithItems(schemaFor(t.Elem(), seen).Value).NewRef()
	case reflect.Map:
		return openapi3.NewObjectSchema().WithAdditionalProperties(schemaFor(t.Elem(), seen).Value).NewRef()
	case reflect.Struct:
		if t == timeType {
			return openapi3.NewDateTimeSchema().NewRef()
		}
		return structSchema(t, seen).NewRef()
	default:
		return openapi3.NewObjectSchema().NewRef()
	}
}

func structSchema(t reflect.Type, seen map[reflect.Type]bool) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	if seen[t] {
		return schema
	}
	seen[t] = true
	defer delete(seen, t)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}

		prop := schemaFor(field.Type, seen)
		if doc := field.Tag.Get("doc"); doc != "" {
			prop.Value.Description = doc
		}
		if ex := field.Tag.Get("example"); ex != "" {
			prop.Value.Example = ex
		}
		schema.Properties[name] = prop

		if !strings.Contains(opts, "omitempty") {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}
