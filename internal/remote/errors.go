package remote

import (
	"fmt"
	"sort"
)

// APIError is a non-2xx response from the incapacity server with whatever
// structured body it carried. Validation failures arrive as a JSON object
// keyed by field name, plus the two special keys non_field_errors and
// detail.
type APIError struct {
	StatusCode int
	Body       map[string]any
}

func (e *APIError) Error() string {
	if msg := e.Message(); msg != "" {
		return msg
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// Message unpacks the server's error body in display precedence: the
// general non-field error list first, then the generic detail message, then
// the first named field error. Empty when the body matches none of those
// shapes, so callers can fall back to a connectivity message.
func (e *APIError) Message() string {
	if e.Body == nil {
		return ""
	}

	if list, ok := e.Body["non_field_errors"].([]any); ok && len(list) > 0 {
		if msg, ok := list[0].(string); ok {
			return msg
		}
	}

	if detail, ok := e.Body["detail"].(string); ok && detail != "" {
		return detail
	}

	keys := make([]string, 0, len(e.Body))
	for key := range e.Body {
		if key == "non_field_errors" || key == "detail" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch value := e.Body[key].(type) {
		case string:
			return fmt.Sprintf("%s: %s", key, value)
		case []any:
			if len(value) > 0 {
				if msg, ok := value[0].(string); ok {
					return fmt.Sprintf("%s: %s", key, msg)
				}
			}
		}
	}

	return ""
}
