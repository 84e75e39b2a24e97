package utils

import (
	"bytes"
	"encoding/json"
)

// JSONToString renders object as JSON, indented with two spaces when indent
// is true. Raw JSON input is re-indented rather than quoted. Marshal
// failures come back as a JSON error object so the result is always
// printable.
func JSONToString(object interface{}, indent bool) string {
	var encoded []byte
	var err error
	if raw, ok := object.(json.RawMessage); ok {
		if !indent {
			return string(raw)
		}
		var buf bytes.Buffer
		if err = json.Indent(&buf, raw, "", "  "); err == nil {
			return buf.String()
		}
	} else if indent {
		encoded, err = json.MarshalIndent(object, "", "  ")
	} else {
		encoded, err = json.Marshal(object)
	}
	if err != nil {
		errJSON, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(errJSON)
	}
	return string(encoded)
}
