// Handles JSON Schema reflection of row types and the required key set used by
// strict decoding.

package jsonldb

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
)

// ColumnType is the storage kind of a row field, as shown to users.
type ColumnType string

const (
	ColumnTypeText   ColumnType = "text"
	ColumnTypeNumber ColumnType = "number"
	ColumnTypeBool   ColumnType = "bool"
	ColumnTypeDate   ColumnType = "date"
	ColumnTypeJSONB  ColumnType = "jsonb"
)

// Column describes one JSON key of a row.
type Column struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Required    bool       `json:"required,omitempty"`
	Description string     `json:"description,omitempty"`
}

// requiredCache maps reflect.Type to the []string of required keys.
var requiredCache sync.Map

// Schema returns the JSON Schema of a single line of T.
//
// Properties are inlined (no $ref) and ordered as the struct fields are.
func Schema[T any]() (*jsonschema.Schema, error) {
	structType, err := rowStructType[T]()
	if err != nil {
		return nil, err
	}
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	return r.ReflectFromType(structType), nil
}

// Columns describes the keys of a T line, in struct field order, using JSON
// Schema reflection.
//
// Field descriptions come from `jsonschema:"description=..."` tags. A field is
// required unless its json tag has omitempty.
func Columns[T any]() ([]Column, error) {
	structType, err := rowStructType[T]()
	if err != nil {
		return nil, err
	}
	schema, err := Schema[T]()
	if err != nil {
		return nil, err
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	var columns []Column
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key
		colType := ColumnTypeText
		for i := range structType.NumField() {
			field := structType.Field(i)
			if jsonFieldName(&field) == name {
				colType = goTypeToColumnType(field.Type)
				break
			}
		}
		columns = append(columns, Column{
			Name:        name,
			Type:        colType,
			Required:    required[name],
			Description: pair.Value.Description,
		})
	}
	return columns, nil
}

// requiredKeys returns the JSON keys every encoded T must carry.
func requiredKeys[T any]() ([]string, error) {
	t := reflect.TypeFor[T]()
	if v, ok := requiredCache.Load(t); ok {
		return v.([]string), nil
	}
	columns, err := Columns[T]()
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, c := range columns {
		if c.Required {
			keys = append(keys, c.Name)
		}
	}
	actual, _ := requiredCache.LoadOrStore(t, keys)
	return actual.([]string), nil
}

func rowStructType[T any]() (reflect.Type, error) {
	t := reflect.TypeFor[T]()
	switch t.Kind() {
	case reflect.Pointer:
		if t.Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
		}
		return t.Elem(), nil
	case reflect.Struct:
		return t, nil
	default:
		return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
	}
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(field *reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	for i, c := range tag {
		if c == ',' {
			if i == 0 {
				return field.Name
			}
			return tag[:i]
		}
	}
	return tag
}

// goTypeToColumnType maps Go types to column types.
func goTypeToColumnType(t reflect.Type) ColumnType {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == reflect.TypeFor[time.Time]() {
		return ColumnTypeDate
	}
	switch t.Kind() { //nolint:exhaustive // Everything else is stored as text.
	case reflect.String:
		return ColumnTypeText
	case reflect.Bool:
		return ColumnTypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return ColumnTypeNumber
	case reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
		return ColumnTypeJSONB
	default:
		return ColumnTypeText
	}
}
