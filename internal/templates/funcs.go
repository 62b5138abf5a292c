package templates

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"text/template"
)

// Funcs returns the helper functions available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"default": defaultValue,
		"join":    join,
		"lower":   strings.ToLower,
		"upper":   strings.ToUpper,
		"json":    toJSON,
		"safe":    func(s any) string { return fmt.Sprint(s) },
	}
}

// defaultValue returns fallback when value is nil or an empty value.
// Usage: {{ .page.title | default "Untitled" }}.
func defaultValue(fallback, value any) any {
	if isEmpty(value) {
		return fallback
	}
	return value
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func join(sep string, items any) string {
	rv := reflect.ValueOf(items)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Sprint(items)
	}
	parts := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		parts = append(parts, fmt.Sprint(rv.Index(i).Interface()))
	}
	return strings.Join(parts, sep)
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
