package menu

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Normalize converts a decoded meal field into an ordered item list.
//
//   - []string / []any: copied as-is, order preserved, nothing trimmed or dropped
//     (non-string scalars are stringified, null and object elements skipped)
//   - string: split on ',' with each piece trimmed; empty pieces are kept
//   - anything else (nil, numbers, objects): empty list
//
// Normalize never panics and never returns nil.
func Normalize(v any) []string {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, el := range t {
			if s, ok := scalarString(el); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return splitItems(t)
	}
	return []string{}
}

// NormalizeRaw decodes a raw JSON meal field and normalises it.
// Undecodable input yields an empty list.
func NormalizeRaw(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return []string{}
	}
	return Normalize(v)
}

// Clean drops blank and whitespace-only items and trims the rest.
// This is the submission-time filter; load time keeps blanks.
func Clean(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeForSubmission is Normalize followed by Clean.
func NormalizeForSubmission(v any) []string {
	return Clean(Normalize(v))
}

// Join renders cleaned items in the backend's comma-and-space form.
func Join(items []string) string {
	return strings.Join(Clean(items), ", ")
}

func splitItems(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}
