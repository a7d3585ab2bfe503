// Package jsonfmt renders resp.Value replies as JSON, for the CLI's
// --format json output mode. It builds output incrementally with
// github.com/tidwall/sjson and reads it back with
// github.com/tidwall/gjson, rather than hand-rolling JSON construction.
package jsonfmt

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"mredis/resp"
)

// Format renders v as a JSON document: strings/errors become JSON
// strings, integers become JSON numbers, null bulk/array become JSON
// null, and arrays become JSON arrays built up one element at a time.
func Format(v resp.Value) (string, error) {
	switch v.Kind {
	case resp.SimpleString, resp.Error:
		return quote(v.Str), nil
	case resp.Integer:
		return strconv.FormatInt(v.Int, 10), nil
	case resp.BulkString:
		if v.IsNilBulk() {
			return "null", nil
		}
		return quote(string(v.Bulk)), nil
	case resp.Array:
		if v.IsNilArray() {
			return "null", nil
		}
		out := "[]"
		for i, elem := range v.Array {
			elemJSON, err := Format(elem)
			if err != nil {
				return "", err
			}
			out, err = sjson.SetRaw(out, strconv.Itoa(i), elemJSON)
			if err != nil {
				return "", err
			}
		}
		return out, nil
	default:
		return "null", nil
	}
}

// quote encodes s as a JSON string literal.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// PlainText renders a Format'd JSON document the way a human-facing CLI
// would print it: a bare scalar prints unquoted, an array prints one
// element per line. It reads the document with gjson rather than
// re-deciding the shape from the original resp.Value.
func PlainText(jsonDoc string) string {
	result := gjson.Parse(jsonDoc)
	if !result.IsArray() {
		if result.Type == gjson.Null {
			return "(nil)"
		}
		return result.String()
	}
	lines := make([]string, 0, len(result.Array()))
	for _, elem := range result.Array() {
		if elem.Type == gjson.Null {
			lines = append(lines, "(nil)")
			continue
		}
		lines = append(lines, elem.String())
	}
	return strings.Join(lines, "\n")
}
