// Encodes rows to single JSON lines and decodes them back with strict shape checks.

package jsonldb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"unicode/utf8"
)

var (
	errNotObject   = errors.New("row is not a JSON object")
	errInvalidUTF8 = errors.New("invalid UTF-8")
)

// EncodingError is returned when a row cannot be represented as a line.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return "failed to encode row: " + e.Err.Error()
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// DecodingError is returned when a line is not a valid row.
//
// Line is the 1-based line number in the file, or 0 when decoding a detached
// line.
type DecodingError struct {
	Line int
	Err  error
}

func (e *DecodingError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: failed to decode row: %v", e.Line, e.Err)
	}
	return "failed to decode row: " + e.Err.Error()
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// Encode returns the single-line JSON encoding of v, without line terminator.
//
// Strings must be valid UTF-8: json.Marshal would silently substitute U+FFFD
// and the row would not decode back to v.
func Encode[T any](v T) ([]byte, error) {
	if path, ok := findInvalidUTF8(reflect.ValueOf(v), ""); ok {
		return nil, &EncodingError{Err: fmt.Errorf("%s: %w", path, errInvalidUTF8)}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	// json.Marshal escapes control characters so the output never spans lines;
	// a nil pointer or a non-struct would still not decode as a row.
	if len(data) == 0 || data[0] != '{' {
		return nil, &EncodingError{Err: errNotObject}
	}
	return data, nil
}

// Decode parses one line into a T.
//
// The line must be a JSON object holding every key that T requires. Extra keys
// are ignored.
func Decode[T any](line []byte) (T, error) {
	var zero T
	line = bytes.TrimSpace(line)
	if !utf8.Valid(line) {
		return zero, &DecodingError{Err: errInvalidUTF8}
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return zero, &DecodingError{Err: err}
	}
	if raw == nil {
		return zero, &DecodingError{Err: errNotObject}
	}
	keys, err := requiredKeys[T]()
	if err != nil {
		return zero, &DecodingError{Err: err}
	}
	for _, k := range keys {
		if _, ok := raw[k]; !ok {
			return zero, &DecodingError{Err: fmt.Errorf("missing required key %q", k)}
		}
	}
	var v T
	if err := json.Unmarshal(line, &v); err != nil {
		return zero, &DecodingError{Err: err}
	}
	return v, nil
}

// findInvalidUTF8 returns the path of the first string in v that is not valid
// UTF-8.
func findInvalidUTF8(v reflect.Value, path string) (string, bool) {
	switch v.Kind() { //nolint:exhaustive // Other kinds hold no text.
	case reflect.String:
		return path, !utf8.ValidString(v.String())
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return "", false
		}
		return findInvalidUTF8(v.Elem(), path)
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if p, ok := findInvalidUTF8(v.Field(i), joinPath(path, jsonFieldName(&f))); ok {
				return p, true
			}
		}
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			if p, ok := findInvalidUTF8(v.Index(i), fmt.Sprintf("%s[%d]", path, i)); ok {
				return p, true
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			if !utf8.ValidString(k) {
				return joinPath(path, "key"), true
			}
			if p, ok := findInvalidUTF8(iter.Value(), joinPath(path, k)); ok {
				return p, true
			}
		}
	}
	return "", false
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
