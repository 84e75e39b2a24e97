package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"
)

// Encode marshals value for storage. Marshal failures, and strings that are
// not valid UTF-8, are returned as a *WriteError wrapping ErrUnencodable.
func Encode(key string, value any) ([]byte, error) {
	if path, ok := invalidUTF8(reflect.ValueOf(value), "$", 0); ok {
		return nil, &WriteError{Key: key, Err: fmt.Errorf("%w: invalid UTF-8 at %s", ErrUnencodable, path)}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, &WriteError{Key: key, Err: fmt.Errorf("%w: %v", ErrUnencodable, err)}
	}
	return data, nil
}

const maxUTF8Depth = 1000

// invalidUTF8 reports the first string under v that json.Marshal would
// rewrite with U+FFFD. Byte slices and raw JSON are left to the encoder, as
// are values nested deeper than maxUTF8Depth, where json.Marshal reports
// cycles.
func invalidUTF8(v reflect.Value, path string, depth int) (string, bool) {
	if depth > maxUTF8Depth {
		return "", false
	}
	depth++
	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return path, true
		}
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			return invalidUTF8(v.Elem(), path, depth)
		}
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return "", false
		}
		for i := 0; i < v.Len(); i++ {
			if p, ok := invalidUTF8(v.Index(i), fmt.Sprintf("%s[%d]", path, i), depth); ok {
				return p, true
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if p, ok := invalidUTF8(iter.Key(), path+".<key>", depth); ok {
				return p, true
			}
			if p, ok := invalidUTF8(iter.Value(), fmt.Sprintf("%s[%v]", path, iter.Key()), depth); ok {
				return p, true
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if p, ok := invalidUTF8(v.Field(i), path+"."+t.Field(i).Name, depth); ok {
				return p, true
			}
		}
	}
	return "", false
}

// Decode turns stored bytes into a Result. Blank input counts as corrupt.
// With repair set, malformed JSON is run through jsonrepair once before it
// is declared corrupt.
func Decode(key string, data []byte, repair bool) Result {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Result{Key: key, Status: StatusCorrupt, Cause: fmt.Errorf("empty payload")}
	}
	if json.Valid(trimmed) {
		return Result{Key: key, Status: StatusFound, Data: json.RawMessage(trimmed)}
	}

	cause := invalidJSONCause(trimmed)
	if !repair {
		return Result{Key: key, Status: StatusCorrupt, Cause: cause}
	}

	fixed, err := jsonrepair.JSONRepair(string(trimmed))
	if err != nil || !json.Valid([]byte(fixed)) {
		if err == nil {
			err = fmt.Errorf("repair produced invalid JSON")
		}
		return Result{Key: key, Status: StatusCorrupt, Cause: fmt.Errorf("%w (repair: %v)", cause, err)}
	}
	return Result{Key: key, Status: StatusFound, Data: json.RawMessage(fixed), Repaired: true}
}

func invalidJSONCause(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return fmt.Errorf("invalid JSON")
}
