package models

// Document is a loosely typed JSON object returned by the target service.
// The remote schema is not contractually guaranteed, so callers read
// optional fields through accessors instead of declaring structs.
type Document map[string]any

// String returns the string stored under key, or "" when absent or not a string.
func (d Document) String(key string) string {
	if d == nil {
		return ""
	}
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

// StringOr returns the string under key or the provided fallback.
func (d Document) StringOr(key, fallback string) string {
	if v := d.String(key); v != "" {
		return v
	}
	return fallback
}

// Int returns the integer under key. JSON numbers decode as float64.
func (d Document) Int(key string) int {
	if d == nil {
		return 0
	}
	switch v := d[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Bool returns the boolean under key, or false when absent.
func (d Document) Bool(key string) bool {
	if d == nil {
		return false
	}
	v, _ := d[key].(bool)
	return v
}

// Child returns the nested object under key, or nil.
func (d Document) Child(key string) Document {
	if d == nil {
		return nil
	}
	if v, ok := d[key].(map[string]any); ok {
		return Document(v)
	}
	return nil
}

// Slice returns the array under key, or nil.
func (d Document) Slice(key string) []any {
	if d == nil {
		return nil
	}
	v, _ := d[key].([]any)
	return v
}

// Strings returns the array under key with every string element kept.
func (d Document) Strings(key string) []string {
	raw := d.Slice(key)
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Has reports whether key is present at all.
func (d Document) Has(key string) bool {
	_, ok := d[key]
	return ok
}
