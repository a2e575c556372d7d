package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractInt reads an integer at a JSONPath ($.userId, $.ticket.owner).
// Numeric strings are accepted since some backends serialize longs as text.
func ExtractInt(body []byte, path string) (int64, error) {
	if !gjson.ValidBytes(body) {
		return 0, fmt.Errorf("invalid JSON in response body")
	}

	value := gjson.GetBytes(body, convertJSONPath(path))
	switch value.Type {
	case gjson.Number:
		return value.Int(), nil
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(value.Str), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("path %q is not an integer: %q", path, value.Str)
		}
		return n, nil
	case gjson.Null:
		if !value.Exists() {
			return 0, fmt.Errorf("path %q not found", path)
		}
		return 0, fmt.Errorf("path %q is null", path)
	default:
		return 0, fmt.Errorf("path %q is not an integer", path)
	}
}

// ExtractString reads a string at a JSONPath. It returns "" when the body
// is not JSON or the path is missing, which suits optional fields such as
// error messages.
func ExtractString(body []byte, path string) string {
	if path == "" || !gjson.ValidBytes(body) {
		return ""
	}
	return gjson.GetBytes(body, convertJSONPath(path)).String()
}

// convertJSONPath converts JSONPath syntax to gjson path format.
//
//	$.foo.bar      -> foo.bar
//	$.items[0].id  -> items.0.id
//	$.data[*].name -> data.#.name
func convertJSONPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "$."); ok {
		path = rest
	} else {
		path = strings.TrimPrefix(path, "$")
	}

	var result strings.Builder
	for i := 0; i < len(path); i++ {
		if path[i] != '[' {
			result.WriteByte(path[i])
			continue
		}
		end := strings.IndexByte(path[i:], ']')
		if end < 0 {
			result.WriteString(path[i:])
			break
		}
		content := path[i+1 : i+end]
		if content == "*" {
			result.WriteString(".#")
		} else {
			result.WriteByte('.')
			result.WriteString(content)
		}
		i += end
	}
	return result.String()
}
